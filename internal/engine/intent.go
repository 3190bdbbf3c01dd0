package engine

import "time"

// State is a lifecycle state of an intent.
//
// States form a fixed success path plus three terminal states. The driver
// only ever moves an intent forward along the success path or sideways into
// a terminal state; there are no backward transitions.
type State string

const (
	// StatePending is the initial state of every created intent.
	StatePending State = "PENDING"
	// StateValidating is the first driver-owned stage. It is exempt from
	// failure injection: validation happens upstream of intent creation,
	// so a created intent always validates.
	StateValidating State = "VALIDATING"
	// StatePlanning is the route/plan construction stage.
	StatePlanning State = "PLANNING"
	// StateSimulating is the dry-run simulation stage.
	StateSimulating State = "SIMULATING"
	// StateSubmitting is the submission stage.
	StateSubmitting State = "SUBMITTING"
	// StateConfirming is the confirmation-wait stage.
	StateConfirming State = "CONFIRMING"
	// StateVerifying is the post-confirmation verification stage.
	StateVerifying State = "VERIFYING"
	// StateCompleted is the terminal success state.
	StateCompleted State = "COMPLETED"
	// StateFailed is the terminal failure state.
	StateFailed State = "FAILED"
	// StateCancelled is the terminal state for caller-initiated cancellation.
	StateCancelled State = "CANCELLED"
	// StateRetrying is reserved for a future retry policy. It is a valid
	// state value but no transition currently produces it.
	StateRetrying State = "RETRYING"
)

// SuccessPath is the required traversal order for an intent that is never
// cancelled and never hits an injected failure. Index 0 is the creation
// state; the driver walks the remaining entries in order.
var SuccessPath = []State{
	StatePending,
	StateValidating,
	StatePlanning,
	StateSimulating,
	StateSubmitting,
	StateConfirming,
	StateVerifying,
	StateCompleted,
}

// Terminal reports whether s permits no further transitions.
func (s State) Terminal() bool {
	switch s {
	case StateCompleted, StateFailed, StateCancelled:
		return true
	}
	return false
}

// Valid reports whether s is one of the defined lifecycle states.
func (s State) Valid() bool {
	switch s {
	case StatePending, StateValidating, StatePlanning, StateSimulating,
		StateSubmitting, StateConfirming, StateVerifying,
		StateCompleted, StateFailed, StateCancelled, StateRetrying:
		return true
	}
	return false
}

// EventType classifies a transition event.
type EventType string

const (
	// EventStateChange marks an ordinary forward step on the success path.
	EventStateChange EventType = "STATE_CHANGE"
	// EventCompleted marks the final transition of a successful intent.
	EventCompleted EventType = "COMPLETED"
	// EventFailed marks an injected-failure transition.
	EventFailed EventType = "FAILED"
	// EventCancelled marks a caller- or kill-initiated cancellation.
	EventCancelled EventType = "CANCELLED"
)

// TransitionEvent records one state change. Events are immutable once
// appended to an intent's log; insertion order is causal order.
type TransitionEvent struct {
	Stage     State     `json:"stage"`
	Type      EventType `json:"type"`
	Message   string    `json:"message"`
	Timestamp time.Time `json:"timestamp"`
}

// Outcome is the terminal result of an intent. Present only once the
// intent reaches a terminal state.
//
// For completed intents the amounts are synthetic: this engine simulates
// downstream execution, it does not price anything.
type Outcome struct {
	Success      bool   `json:"success"`
	OutputAmount string `json:"outputAmount,omitempty"`
	Fee          string `json:"fee,omitempty"`
	SlippageBPS  int    `json:"slippageBps,omitempty"`
	TxHash       string `json:"txHash,omitempty"`
	Reason       string `json:"reason,omitempty"`
}

// Intent is one unit of submitted work tracked through the lifecycle.
//
// The payload is structurally opaque to the engine: it is stored and echoed
// back but never inspected. State is always consistent with the last entry
// of EventLog, and Outcome is nil until State is terminal.
type Intent struct {
	ID          string            `json:"id"`
	Payload     map[string]any    `json:"payload"`
	State       State             `json:"state"`
	EventLog    []TransitionEvent `json:"eventLog"`
	Outcome     *Outcome          `json:"outcome,omitempty"`
	CreatedAt   time.Time         `json:"createdAt"`
	CompletedAt *time.Time        `json:"completedAt,omitempty"`
}

// LastEvent returns the most recent transition event.
// Every stored intent has at least the creation event.
func (in *Intent) LastEvent() TransitionEvent {
	return in.EventLog[len(in.EventLog)-1]
}

// clone returns a deep copy safe to hand to callers. The event log is
// copied; the payload map is shared because the engine treats it as
// immutable after creation.
func (in *Intent) clone() Intent {
	out := *in
	out.EventLog = make([]TransitionEvent, len(in.EventLog))
	copy(out.EventLog, in.EventLog)
	if in.Outcome != nil {
		o := *in.Outcome
		out.Outcome = &o
	}
	if in.CompletedAt != nil {
		t := *in.CompletedAt
		out.CompletedAt = &t
	}
	return out
}
