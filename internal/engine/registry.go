package engine

import (
	"log/slog"
	"sync"
)

// Watcher consumes transition events for one intent.
type Watcher func(TransitionEvent)

// subscription pairs a registration sequence number with its callback.
// The sequence number preserves registration order and makes removal exact
// even when the same callback is registered twice.
type subscription struct {
	seq int64
	fn  Watcher
}

// subscriptionRegistry holds per-intent watcher lists.
//
// Subscribing to an unknown intent is allowed: the entry is parked and will
// simply never fire unless an intent with that id is created later.
//
// Once an intent is terminal its entry is retired: the list is dropped and
// notify becomes a no-op for that id, so a stray late transition can never
// reach a watcher.
//
// Thread-safety: all methods are safe for concurrent use. Delivery order
// for a single intent is the caller's concern; the engine notifies under
// the intent's transition lock, which serializes calls per intent.
type subscriptionRegistry struct {
	mu      sync.Mutex
	nextSeq int64
	subs    map[string][]subscription
	retired map[string]bool
}

// newSubscriptionRegistry creates an empty registry.
func newSubscriptionRegistry() *subscriptionRegistry {
	return &subscriptionRegistry{
		subs:    make(map[string][]subscription),
		retired: make(map[string]bool),
	}
}

// subscribe registers fn for every subsequent event of intentID and returns
// a handle that permanently removes it. The handle is idempotent.
//
// Subscribing to a retired (terminal) intent parks nothing and returns a
// no-op handle; the caller is expected to have replayed the terminal event
// from the record before subscribing.
func (g *subscriptionRegistry) subscribe(intentID string, fn Watcher) (unsubscribe func()) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.retired[intentID] {
		return func() {}
	}

	g.nextSeq++
	seq := g.nextSeq
	g.subs[intentID] = append(g.subs[intentID], subscription{seq: seq, fn: fn})

	return func() {
		g.mu.Lock()
		defer g.mu.Unlock()
		list := g.subs[intentID]
		for i, sub := range list {
			if sub.seq == seq {
				g.subs[intentID] = append(list[:i:i], list[i+1:]...)
				break
			}
		}
		if len(g.subs[intentID]) == 0 {
			delete(g.subs, intentID)
		}
	}
}

// notify invokes every registered watcher for intentID, in registration
// order, synchronously. A watcher that panics does not prevent delivery to
// the remaining watchers; the panic is logged and swallowed.
func (g *subscriptionRegistry) notify(intentID string, ev TransitionEvent) {
	g.mu.Lock()
	if g.retired[intentID] {
		g.mu.Unlock()
		return
	}
	list := g.subs[intentID]
	// Copy so watchers may unsubscribe (or subscribe) from inside a callback.
	snapshot := make([]subscription, len(list))
	copy(snapshot, list)
	g.mu.Unlock()

	for _, sub := range snapshot {
		deliver(intentID, sub.fn, ev)
	}
}

// deliver invokes a single watcher, isolating panics per subscriber.
func deliver(intentID string, fn Watcher, ev TransitionEvent) {
	defer func() {
		if r := recover(); r != nil {
			slog.Error("watcher panicked",
				"intent_id", intentID,
				"stage", ev.Stage,
				"panic", r,
			)
		}
	}()
	fn(ev)
}

// retire drops the watcher list for a terminal intent and blocks any
// further delivery for that id.
func (g *subscriptionRegistry) retire(intentID string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.retired[intentID] = true
	delete(g.subs, intentID)
}

// watcherCount returns the number of registered watchers for intentID.
// Used for testing and diagnostics.
func (g *subscriptionRegistry) watcherCount(intentID string) int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.subs[intentID])
}
