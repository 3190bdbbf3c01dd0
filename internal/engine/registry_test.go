package engine

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testEvent(stage State) TransitionEvent {
	return TransitionEvent{
		Stage:     stage,
		Type:      EventStateChange,
		Message:   "test",
		Timestamp: time.Unix(0, 0),
	}
}

func TestRegistry_NotifyInRegistrationOrder(t *testing.T) {
	reg := newSubscriptionRegistry()

	var order []int
	reg.subscribe("a", func(TransitionEvent) { order = append(order, 1) })
	reg.subscribe("a", func(TransitionEvent) { order = append(order, 2) })
	reg.subscribe("a", func(TransitionEvent) { order = append(order, 3) })

	reg.notify("a", testEvent(StateValidating))
	assert.Equal(t, []int{1, 2, 3}, order)
}

// A panicking watcher must not prevent delivery to the remaining watchers.
func TestRegistry_PanicIsolation(t *testing.T) {
	reg := newSubscriptionRegistry()

	var delivered []string
	reg.subscribe("a", func(TransitionEvent) { panic("bad watcher") })
	reg.subscribe("a", func(TransitionEvent) { delivered = append(delivered, "second") })

	require.NotPanics(t, func() {
		reg.notify("a", testEvent(StatePlanning))
	})
	assert.Equal(t, []string{"second"}, delivered)
}

func TestRegistry_Unsubscribe(t *testing.T) {
	reg := newSubscriptionRegistry()

	var count int
	unsubscribe := reg.subscribe("a", func(TransitionEvent) { count++ })

	reg.notify("a", testEvent(StateValidating))
	assert.Equal(t, 1, count)

	unsubscribe()
	unsubscribe() // idempotent
	reg.notify("a", testEvent(StatePlanning))
	assert.Equal(t, 1, count)
	assert.Zero(t, reg.watcherCount("a"))
}

// Subscriptions to unknown intents are parked, not rejected.
func TestRegistry_ParkedSubscription(t *testing.T) {
	reg := newSubscriptionRegistry()

	fired := false
	reg.subscribe("never-created", func(TransitionEvent) { fired = true })
	assert.Equal(t, 1, reg.watcherCount("never-created"))

	reg.notify("some-other-intent", testEvent(StateValidating))
	assert.False(t, fired)
}

// Once retired, an intent delivers nothing, even if a stray transition
// were produced, and new subscriptions are inert.
func TestRegistry_RetireBlocksDelivery(t *testing.T) {
	reg := newSubscriptionRegistry()

	var count int
	reg.subscribe("a", func(TransitionEvent) { count++ })
	reg.notify("a", testEvent(StateCompleted))
	require.Equal(t, 1, count)

	reg.retire("a")
	reg.notify("a", testEvent(StateCompleted))
	assert.Equal(t, 1, count)

	unsubscribe := reg.subscribe("a", func(TransitionEvent) { count++ })
	reg.notify("a", testEvent(StateCompleted))
	assert.Equal(t, 1, count)
	unsubscribe()
}

// A watcher may unsubscribe itself from inside its own callback.
func TestRegistry_UnsubscribeDuringNotify(t *testing.T) {
	reg := newSubscriptionRegistry()

	var count int
	var unsubscribe func()
	unsubscribe = reg.subscribe("a", func(TransitionEvent) {
		count++
		unsubscribe()
	})

	reg.notify("a", testEvent(StateValidating))
	reg.notify("a", testEvent(StatePlanning))
	assert.Equal(t, 1, count)
}

// Engine-level wiring: subscribers registered through the engine receive
// driver transitions and nothing after the terminal event.
func TestEngine_Subscribe_LiveDelivery(t *testing.T) {
	e, clk := newManualEngine(t)

	in, err := e.Create(CreateRequest{})
	require.NoError(t, err)

	events := make(chan TransitionEvent, watchBuffer)
	unsubscribe := e.Subscribe(in.ID, func(ev TransitionEvent) { events <- ev })
	defer unsubscribe()

	driveToTerminal(t, e, clk, in.ID)
	awaitDriverExit(t, e, in.ID)
	close(events)

	var stages []State
	for ev := range events {
		stages = append(stages, ev.Stage)
	}
	// Subscribe sees everything after creation: the success path minus the
	// initial PENDING event, which predates the subscription.
	assert.Equal(t, SuccessPath[1:], stages)
}
