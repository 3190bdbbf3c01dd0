// Package engine implements the intent execution lifecycle engine.
//
// The engine is the heart of intentd - it accepts submitted intents,
// drives each one through an ordered sequence of execution stages, and
// broadcasts every state transition to subscribed watchers in real time.
//
// ARCHITECTURE:
//
// One Driver Per Intent:
// Each intent gets exactly one driver goroutine, started at creation.
// Drivers run concurrently with each other and with control operations;
// they communicate with the rest of the system only through the shared
// record store and subscription registry.
//
// Lifecycle Flow:
// 1. Create() records the intent in PENDING and starts its driver
// 2. The driver sleeps the stage's delay, then transitions forward
// 3. Each transition appends one event and synchronously notifies watchers
// 4. Control surface (pause/resume/cancel/kill) interleaves at checkpoints
// 5. A terminal state (COMPLETED/FAILED/CANCELLED) ends the stream
//
// Transition Atomicity:
// State update, event append, outcome, and watcher notification for one
// intent happen under that intent's transition lock. Watchers therefore
// see events in append order, one at a time, never concurrently for the
// same intent. Ordering across different intents is unconstrained.
//
// Checkpoints:
// Cancellation is best-effort-prompt. A driver inside a stage delay is not
// interrupted; it observes cancel/kill/pause when the delay elapses, with
// promptness bounded by the delay granularity. The control surface records
// the cancellation event itself, so a stopping driver appends nothing.
//
// Everything nondeterministic is injected: the clock (stage delays and
// timestamps), the id generator, and the failure-injection policy. Tests
// run the full lifecycle with a manual clock, fixed ids, and scripted
// failures, with no wall-clock waits and no ambient randomness.
//
// The engine keeps all state in memory and assumes a single process.
package engine
