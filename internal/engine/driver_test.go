package engine

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDriver_InjectedFailure(t *testing.T) {
	e, clk := newManualEngine(t, WithFailurePolicy(FailAt{Stage: StatePlanning}))

	in, err := e.Create(CreateRequest{})
	require.NoError(t, err)

	driveToTerminal(t, e, clk, in.ID)
	awaitDriverExit(t, e, in.ID)

	final, err := e.Get(in.ID)
	require.NoError(t, err)
	assert.Equal(t, StateFailed, final.State)

	last := final.LastEvent()
	assert.Equal(t, EventFailed, last.Type)
	assert.Contains(t, last.Message, "planning")

	require.NotNil(t, final.Outcome)
	assert.False(t, final.Outcome.Success)
	require.NotNil(t, final.CompletedAt)

	// PENDING, VALIDATING, FAILED: nothing past the failed stage.
	require.Len(t, final.EventLog, 3)
	assert.Equal(t, StateValidating, final.EventLog[1].Stage)
}

// The validation stage is exempt from injection: a policy failing it never
// gets consulted, so the intent completes.
func TestDriver_ValidationExemptFromInjection(t *testing.T) {
	e, clk := newManualEngine(t, WithFailurePolicy(FailAt{Stage: StateValidating}))

	in, err := e.Create(CreateRequest{})
	require.NoError(t, err)

	driveToTerminal(t, e, clk, in.ID)

	final, err := e.Get(in.ID)
	require.NoError(t, err)
	assert.Equal(t, StateCompleted, final.State)
}

// Cancel before any stage delay elapses: the driver's next checkpoint
// observes the cancellation and appends nothing further.
func TestDriver_CancelBeforeFirstStage(t *testing.T) {
	e, clk := newManualEngine(t)

	in, err := e.Create(CreateRequest{})
	require.NoError(t, err)

	// Driver is parked in the first stage delay.
	clk.AwaitSleepers(1)

	res, err := e.Cancel(in.ID, "user abort")
	require.NoError(t, err)
	assert.True(t, res.Cancelled)
	assert.Equal(t, StateCancelled, res.FinalState)

	// Release the delay; the driver must stop at its checkpoint.
	clk.Advance(testStep)
	awaitDriverExit(t, e, in.ID)

	final, err := e.Get(in.ID)
	require.NoError(t, err)
	assert.Equal(t, StateCancelled, final.State)
	require.Len(t, final.EventLog, 2)
	assert.Equal(t, EventCancelled, final.EventLog[1].Type)
	assert.Equal(t, "user abort", final.EventLog[1].Message)
	require.NotNil(t, final.CompletedAt)
}

func TestDriver_CancelMidFlight(t *testing.T) {
	e, clk := newManualEngine(t)

	in, err := e.Create(CreateRequest{})
	require.NoError(t, err)

	// Let the intent reach VALIDATING, then cancel during the next delay.
	clk.AwaitSleepers(1)
	clk.Advance(testStep)
	require.Eventually(t, func() bool {
		got, _ := e.Get(in.ID)
		return got.State == StateValidating
	}, 2*time.Second, time.Millisecond)

	res, err := e.Cancel(in.ID, "changed my mind")
	require.NoError(t, err)
	assert.True(t, res.Cancelled)

	clk.AwaitSleepers(1)
	clk.Advance(testStep)
	awaitDriverExit(t, e, in.ID)

	final, err := e.Get(in.ID)
	require.NoError(t, err)
	assert.Equal(t, StateCancelled, final.State)
	assert.Equal(t, EventCancelled, final.LastEvent().Type)
}

// Repeated cancels of a terminal intent are no-ops reporting the same
// final state and never touching the event log.
func TestDriver_CancelIdempotentOnTerminal(t *testing.T) {
	e, clk := newManualEngine(t)

	in, err := e.Create(CreateRequest{})
	require.NoError(t, err)
	driveToTerminal(t, e, clk, in.ID)

	before, err := e.Get(in.ID)
	require.NoError(t, err)
	require.Equal(t, StateCompleted, before.State)

	for i := 0; i < 3; i++ {
		res, err := e.Cancel(in.ID, "too late")
		require.NoError(t, err)
		assert.False(t, res.Cancelled)
		assert.Equal(t, StateCompleted, res.FinalState)
	}

	after, err := e.Get(in.ID)
	require.NoError(t, err)
	assert.Equal(t, before.EventLog, after.EventLog)
	assert.Equal(t, before.Outcome, after.Outcome)
}

func TestDriver_CancelUnknownIntent(t *testing.T) {
	e, _ := newManualEngine(t)

	_, err := e.Cancel("ghost", "")
	assert.True(t, IsNotFound(err))
}

// Pause gates a new intent before its first stage; resume lets it finish.
func TestDriver_PauseSuspendsProgress(t *testing.T) {
	e, clk := newManualEngine(t)

	st := e.Pause()
	assert.True(t, st.Paused)
	require.NotNil(t, st.PausedAt)

	in, err := e.Create(CreateRequest{})
	require.NoError(t, err)

	// The driver must be gated, not sleeping: advancing the clock moves
	// nothing while paused.
	time.Sleep(20 * time.Millisecond)
	assert.Zero(t, clk.Sleepers())
	got, err := e.Get(in.ID)
	require.NoError(t, err)
	assert.Equal(t, StatePending, got.State)

	st = e.Resume()
	assert.False(t, st.Paused)
	assert.Nil(t, st.PausedAt)

	driveToTerminal(t, e, clk, in.ID)
	final, err := e.Get(in.ID)
	require.NoError(t, err)
	assert.Equal(t, StateCompleted, final.State)
}

// Pause is advisory: it never cancels, and pausing twice is a no-op that
// reports the original pause timestamp.
func TestDriver_PauseIdempotent(t *testing.T) {
	e, _ := newManualEngine(t)

	first := e.Pause()
	second := e.Pause()
	require.NotNil(t, first.PausedAt)
	require.NotNil(t, second.PausedAt)
	assert.Equal(t, *first.PausedAt, *second.PausedAt)

	assert.True(t, e.ControlStatus().Paused)
	e.Resume()
	e.Resume()
	assert.False(t, e.ControlStatus().Paused)
}
