package engine

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// Engine owns the intent record store, the subscription registry, and the
// global control state. All dependencies are constructor-injected so tests
// can run multiple isolated engines with deterministic clocks, ids, and
// failure policies.
//
// Thread-safety model:
//   - Create/Get/List/Cancel/Kill/Pause/Resume/QueueStatus/Subscribe/Watch:
//     safe from any goroutine.
//   - Each intent has exactly one driver goroutine; double-drive of an id
//     is prevented by the drivers guard set.
//   - All mutation of a single intent (state, event append, outcome) is
//     applied as one atomic unit under the record's locks; no caller
//     observes a half-applied transition.
type Engine struct {
	store    *recordStore
	registry *subscriptionRegistry
	clock    Clock
	ids      IDGenerator
	policy   FailurePolicy
	delays   map[State]time.Duration
	log      *slog.Logger

	// Global control state. resumeCh is replaced on every pause and closed
	// on resume; gated drivers wait on the channel they observed.
	controlMu sync.Mutex
	paused    bool
	pausedAt  time.Time
	resumeCh  chan struct{}

	// Externally-managed long-running workers, stopped by Kill.
	workersMu sync.Mutex
	workers   map[string]func()

	// One active driver per intent.
	driversMu sync.Mutex
	drivers   map[string]struct{}

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// Option allows configuration of engine parameters.
type Option func(*Engine)

// WithClock sets the clock used for event timestamps and stage delays.
// Default: WallClock.
func WithClock(c Clock) Option {
	return func(e *Engine) { e.clock = c }
}

// WithIDGenerator sets the intent id / tx hash generator.
// Default: UUIDv7Generator.
func WithIDGenerator(g IDGenerator) Option {
	return func(e *Engine) { e.ids = g }
}

// WithFailurePolicy sets the failure-injection policy.
// Default: RandomFailures at DefaultFailureRate.
func WithFailurePolicy(p FailurePolicy) Option {
	return func(e *Engine) { e.policy = p }
}

// WithStageDelays overrides per-stage delays. Stages absent from the map
// keep their defaults.
func WithStageDelays(d map[State]time.Duration) Option {
	return func(e *Engine) {
		for stage, delay := range d {
			e.delays[stage] = delay
		}
	}
}

// WithLogger sets the structured logger. Default: slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(e *Engine) { e.log = l }
}

// New creates an Engine with default dependencies, then applies options.
func New(opts ...Option) *Engine {
	ctx, cancel := context.WithCancel(context.Background())

	e := &Engine{
		store:    newRecordStore(),
		registry: newSubscriptionRegistry(),
		clock:    NewWallClock(),
		ids:      UUIDv7Generator{},
		policy:   NewRandomFailures(DefaultFailureRate),
		delays:   make(map[State]time.Duration, len(DefaultStageDelays)),
		log:      slog.Default(),
		workers:  make(map[string]func()),
		drivers:  make(map[string]struct{}),
		ctx:      ctx,
		cancel:   cancel,
	}
	for stage, delay := range DefaultStageDelays {
		e.delays[stage] = delay
	}

	for _, opt := range opts {
		opt(e)
	}

	return e
}

// Close stops the engine: in-flight drivers exit at their next checkpoint
// without recording further transitions. Blocks until all drivers return.
func (e *Engine) Close() {
	e.cancel()
	e.wg.Wait()
}

// CreateRequest describes a new unit of work. ID is optional; one is
// generated when absent. Payload is opaque to the engine.
type CreateRequest struct {
	ID      string         `json:"id,omitempty"`
	Payload map[string]any `json:"payload"`
}

// Create records a new intent in PENDING and kicks off its lifecycle
// driver asynchronously. Returns the created record snapshot.
func (e *Engine) Create(req CreateRequest) (Intent, error) {
	id := req.ID
	if id == "" {
		id = e.ids.IntentID()
	}

	now := e.clock.Now()
	in := Intent{
		ID:        id,
		Payload:   req.Payload,
		State:     StatePending,
		CreatedAt: now,
		EventLog: []TransitionEvent{{
			Stage:     StatePending,
			Type:      EventStateChange,
			Message:   "intent accepted",
			Timestamp: now,
		}},
	}

	r, ok := e.store.insert(in)
	if !ok {
		return Intent{}, NewDuplicateIntentError(id)
	}

	e.log.Info("intent created", "intent_id", id)
	e.advance(id)
	return r.snapshot(), nil
}

// Get returns a snapshot of the intent, or a not-found error.
func (e *Engine) Get(id string) (Intent, error) {
	r, ok := e.store.lookup(id)
	if !ok {
		return Intent{}, NewNotFoundError(id)
	}
	return r.snapshot(), nil
}

// Subscribe registers a watcher for every subsequent transition event of
// intentID and returns a handle that removes it. Subscribing to an intent
// that does not exist is not an error: the subscription is parked and never
// fires unless the id is created later.
func (e *Engine) Subscribe(intentID string, fn Watcher) (unsubscribe func()) {
	return e.registry.subscribe(intentID, fn)
}

// watchBuffer covers the longest possible lifecycle (success path plus the
// replayed current event) with room to spare, so a prompt consumer never
// causes a dropped event.
const watchBuffer = 16

// Watch opens an ordered live stream of transition events for an intent.
//
// The current latest event is delivered immediately. If the intent is
// already terminal that is the only event, and the channel is closed right
// after it. Otherwise each subsequent transition follows, and the channel
// is closed after the terminal event: channel close is the end-of-stream
// marker, delivered exactly once per watch.
//
// The returned stop function detaches the watch; it never closes the
// channel and is safe to call more than once.
func (e *Engine) Watch(intentID string) (<-chan TransitionEvent, func(), error) {
	r, ok := e.store.lookup(intentID)
	if !ok {
		return nil, nil, NewNotFoundError(intentID)
	}

	ch := make(chan TransitionEvent, watchBuffer)

	// Hold the transition lock while wiring replay + live so no transition
	// can slip between the replayed snapshot and the live subscription.
	r.txMu.Lock()

	r.mu.Lock()
	last := r.intent.LastEvent()
	terminal := r.intent.State.Terminal()
	r.mu.Unlock()

	ch <- last
	if terminal {
		r.txMu.Unlock()
		close(ch)
		return ch, func() {}, nil
	}

	unsubscribe := e.registry.subscribe(intentID, func(ev TransitionEvent) {
		select {
		case ch <- ev:
		default:
			// Cannot happen for a bounded lifecycle; guard anyway so a
			// misbehaving consumer stalls only its own stream.
			e.log.Warn("watch buffer full, dropping event",
				"intent_id", intentID, "stage", ev.Stage)
			return
		}
		if ev.Stage.Terminal() {
			close(ch)
		}
	})
	r.txMu.Unlock()

	var once sync.Once
	stop := func() { once.Do(unsubscribe) }
	return ch, stop, nil
}

// RegisterWorker registers an externally-managed long-running worker.
// Kill invokes stop exactly once and drops the registration; QueueStatus
// counts registered workers. Re-registering a name replaces its stop hook.
func (e *Engine) RegisterWorker(name string, stop func()) {
	e.workersMu.Lock()
	defer e.workersMu.Unlock()
	e.workers[name] = stop
}

// transition atomically applies one state change to the record: it mutates
// state, appends exactly one event, sets outcome/completedAt on terminal
// states, and synchronously notifies subscribers, all under the record's
// transition lock. Returns false without mutating anything if the intent
// is already terminal (idempotent terminality).
func (e *Engine) transition(r *record, next State, evType EventType, msg string, outcome *Outcome) bool {
	r.txMu.Lock()
	defer r.txMu.Unlock()

	r.mu.Lock()
	if r.intent.State.Terminal() {
		r.mu.Unlock()
		return false
	}

	now := e.clock.Now()
	ev := TransitionEvent{Stage: next, Type: evType, Message: msg, Timestamp: now}
	r.intent.State = next
	r.intent.EventLog = append(r.intent.EventLog, ev)
	if next.Terminal() {
		r.intent.Outcome = outcome
		completed := now
		r.intent.CompletedAt = &completed
	}
	id := r.intent.ID
	r.mu.Unlock()

	e.log.Debug("intent transition",
		"intent_id", id,
		"stage", next,
		"type", evType,
	)

	// Notify while still holding txMu: delivery order equals append order
	// and is never concurrent for the same intent.
	e.registry.notify(id, ev)
	if next.Terminal() {
		e.registry.retire(id)
	}
	return true
}
