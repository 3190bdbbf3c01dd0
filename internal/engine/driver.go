package engine

import (
	"fmt"
	"hash/fnv"
	"strings"
	"time"
)

// DefaultStageDelays is the delay consumed before entering each stage.
// Stages model different downstream latencies: confirmation dominates,
// validation is near-instant.
var DefaultStageDelays = map[State]time.Duration{
	StateValidating: 300 * time.Millisecond,
	StatePlanning:   500 * time.Millisecond,
	StateSimulating: 700 * time.Millisecond,
	StateSubmitting: 600 * time.Millisecond,
	StateConfirming: 1200 * time.Millisecond,
	StateVerifying:  500 * time.Millisecond,
	StateCompleted:  400 * time.Millisecond,
}

// stageMessages are the human-readable messages for forward transitions.
var stageMessages = map[State]string{
	StateValidating: "validating intent parameters",
	StatePlanning:   "building execution plan",
	StateSimulating: "simulating execution",
	StateSubmitting: "submitting to network",
	StateConfirming: "awaiting confirmation",
	StateVerifying:  "verifying execution result",
}

// advance starts the lifecycle driver for an intent. Idempotent: if a
// driver is already active for the id, or the intent is unknown or
// terminal, this is a no-op. The one-active-driver guarantee lives here;
// everything else trusts it.
func (e *Engine) advance(id string) {
	r, ok := e.store.lookup(id)
	if !ok || r.state().Terminal() {
		return
	}

	e.driversMu.Lock()
	if _, active := e.drivers[id]; active {
		e.driversMu.Unlock()
		return
	}
	e.drivers[id] = struct{}{}
	e.driversMu.Unlock()

	e.wg.Add(1)
	go e.drive(r)
}

// drive walks one intent through the remaining stages of the success path.
//
// Checkpoints: before consuming each stage's delay and again after it
// elapses, the driver re-checks the pause gate and whether the intent has
// been cancelled or killed. A cancellation observed at a checkpoint stops
// the driver without appending anything beyond the cancellation event the
// control surface already recorded. Promptness is bounded by the delay
// granularity: a mid-delay cancel is observed when the delay elapses, not
// before.
func (e *Engine) drive(r *record) {
	id := r.id()
	defer e.wg.Done()
	defer func() {
		e.driversMu.Lock()
		delete(e.drivers, id)
		e.driversMu.Unlock()
	}()

	for _, stage := range SuccessPath[1:] {
		if e.checkpoint(r) {
			return
		}
		if err := e.clock.Sleep(e.ctx, e.delays[stage]); err != nil {
			return
		}
		if e.checkpoint(r) {
			return
		}

		// Validation is exempt: upstream validation already passed or the
		// intent would not exist. COMPLETED is an outcome, not a stage roll.
		if stage != StateValidating && stage != StateCompleted && e.policy.ShouldFail(stage) {
			e.fail(r, stage)
			return
		}

		if stage == StateCompleted {
			e.complete(r)
			return
		}

		if !e.transition(r, stage, EventStateChange, stageMessages[stage], nil) {
			// Lost the race with a cancel; the cancellation event stands.
			return
		}
	}
}

// checkpoint reports whether the driver must stop: engine shut down, pause
// gate interrupted, or the intent reached a terminal state (cancel/kill).
func (e *Engine) checkpoint(r *record) (stop bool) {
	if err := e.pauseGate(); err != nil {
		return true
	}
	if e.ctx.Err() != nil {
		return true
	}
	return r.state().Terminal()
}

// fail moves the intent to FAILED with a message naming the stage.
// Injected failures are terminal: retries are a caller-level concern
// (resubmit a new intent).
func (e *Engine) fail(r *record, stage State) {
	msg := fmt.Sprintf("execution failed during %s", strings.ToLower(string(stage)))
	e.transition(r, StateFailed, EventFailed, msg, &Outcome{
		Success: false,
		Reason:  msg,
	})
	e.log.Info("intent failed", "intent_id", r.id(), "stage", stage)
}

// complete fabricates the synthetic success outcome and moves the intent
// to COMPLETED. Amounts are derived from the intent id so a deterministic
// test run produces stable values; the tx hash comes from the injected
// id generator.
func (e *Engine) complete(r *record) {
	h := fnv.New64a()
	h.Write([]byte(r.id()))
	n := h.Sum64()

	out := &Outcome{
		Success:      true,
		OutputAmount: fmt.Sprintf("%d.%06d", 1+n%999, n%1000000),
		Fee:          fmt.Sprintf("0.%06d", 500+n%9500),
		SlippageBPS:  int(n % 50),
		TxHash:       e.ids.TxHash(),
	}
	e.transition(r, StateCompleted, EventCompleted, "intent executed successfully", out)
	e.log.Info("intent completed", "intent_id", r.id(), "tx_hash", out.TxHash)
}
