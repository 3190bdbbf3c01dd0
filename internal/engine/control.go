package engine

import "time"

// ControlState is the global pause flag plus the moment it was set.
// Process-wide, not per-intent.
type ControlState struct {
	Paused   bool       `json:"paused"`
	PausedAt *time.Time `json:"pausedAt,omitempty"`
}

// CancelResult reports the effect of a cancel call.
// Cancelled is false when the intent was already terminal; FinalState then
// carries the pre-existing terminal state.
type CancelResult struct {
	Cancelled  bool  `json:"cancelled"`
	FinalState State `json:"finalState"`
}

// KillResult reports the sweep counts of an emergency kill.
type KillResult struct {
	IntentsCancelled int `json:"intentsCancelled"`
	AgentsStopped    int `json:"agentsStopped"`
}

// Pause sets the global pause flag. Drivers already inside a stage delay
// finish that delay, then suspend at their next checkpoint until Resume.
// This is an advisory throttle, not an abort: no intent state changes.
// Pausing an already-paused engine is a no-op that reports current state.
func (e *Engine) Pause() ControlState {
	e.controlMu.Lock()
	defer e.controlMu.Unlock()

	if !e.paused {
		e.paused = true
		e.pausedAt = e.clock.Now()
		e.resumeCh = make(chan struct{})
		e.log.Info("execution paused")
	}
	at := e.pausedAt
	return ControlState{Paused: true, PausedAt: &at}
}

// Resume clears the pause flag and releases every gated driver.
func (e *Engine) Resume() ControlState {
	e.controlMu.Lock()
	defer e.controlMu.Unlock()

	if e.paused {
		e.paused = false
		e.pausedAt = time.Time{}
		close(e.resumeCh)
		e.resumeCh = nil
		e.log.Info("execution resumed")
	}
	return ControlState{Paused: false}
}

// ControlStatus returns the current pause state.
func (e *Engine) ControlStatus() ControlState {
	e.controlMu.Lock()
	defer e.controlMu.Unlock()

	if !e.paused {
		return ControlState{Paused: false}
	}
	at := e.pausedAt
	return ControlState{Paused: true, PausedAt: &at}
}

// pauseGate blocks while the engine is paused. Returns the context error
// if the engine shuts down while waiting.
func (e *Engine) pauseGate() error {
	for {
		e.controlMu.Lock()
		if !e.paused {
			e.controlMu.Unlock()
			return nil
		}
		resume := e.resumeCh
		e.controlMu.Unlock()

		select {
		case <-e.ctx.Done():
			return e.ctx.Err()
		case <-resume:
		}
	}
}

// Cancel moves a non-terminal intent to CANCELLED immediately: it appends
// the cancellation event, notifies subscribers, and sets completedAt. The
// intent's driver is not waited on; it observes the terminal state at its
// next checkpoint and stops without recording anything further.
//
// Cancelling an already-terminal intent is a no-op that reports the
// existing terminal state. A cancellation never overwrites a completed or
// failed outcome.
func (e *Engine) Cancel(id, reason string) (CancelResult, error) {
	r, ok := e.store.lookup(id)
	if !ok {
		return CancelResult{}, NewNotFoundError(id)
	}
	return e.cancelRecord(r, reason), nil
}

func (e *Engine) cancelRecord(r *record, reason string) CancelResult {
	if reason == "" {
		reason = "cancelled"
	}
	cancelled := e.transition(r, StateCancelled, EventCancelled, reason, &Outcome{
		Success: false,
		Reason:  reason,
	})
	if !cancelled {
		// Already terminal: report the state that won.
		return CancelResult{Cancelled: false, FinalState: r.state()}
	}
	e.log.Info("intent cancelled", "intent_id", r.id(), "reason", reason)
	return CancelResult{Cancelled: true, FinalState: StateCancelled}
}

// Kill cancels every non-terminal intent in one sweep and stops all
// registered workers. Safe to call concurrently with in-flight drivers:
// the per-record terminal check inside transition makes each intent count
// at most once, and a driver racing the sweep either loses (and stops at
// its next checkpoint) or had already reached a terminal state.
func (e *Engine) Kill(reason string) KillResult {
	if reason == "" {
		reason = "emergency kill"
	}

	var res KillResult
	for _, id := range e.store.ids() {
		r, ok := e.store.lookup(id)
		if !ok {
			continue
		}
		if out := e.cancelRecord(r, reason); out.Cancelled {
			res.IntentsCancelled++
		}
	}

	e.workersMu.Lock()
	stops := make([]func(), 0, len(e.workers))
	for name, stop := range e.workers {
		stops = append(stops, stop)
		delete(e.workers, name)
	}
	e.workersMu.Unlock()

	for _, stop := range stops {
		stop()
	}
	res.AgentsStopped = len(stops)

	e.log.Warn("emergency kill",
		"reason", reason,
		"intents_cancelled", res.IntentsCancelled,
		"agents_stopped", res.AgentsStopped,
	)
	return res
}
