package engine

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func storedIntent(id string) Intent {
	now := time.Unix(1700000000, 0)
	return Intent{
		ID:        id,
		State:     StatePending,
		CreatedAt: now,
		EventLog: []TransitionEvent{{
			Stage:     StatePending,
			Type:      EventStateChange,
			Message:   "intent accepted",
			Timestamp: now,
		}},
	}
}

func TestStore_InsertAndLookup(t *testing.T) {
	s := newRecordStore()

	r, ok := s.insert(storedIntent("a"))
	require.True(t, ok)
	require.NotNil(t, r)

	_, ok = s.insert(storedIntent("a"))
	assert.False(t, ok, "duplicate insert must be rejected")

	got, ok := s.lookup("a")
	require.True(t, ok)
	assert.Equal(t, "a", got.id())

	_, ok = s.lookup("b")
	assert.False(t, ok)
	assert.Equal(t, 1, s.size())
}

func TestStore_InsertionOrder(t *testing.T) {
	s := newRecordStore()
	for _, id := range []string{"c", "a", "b"} {
		_, ok := s.insert(storedIntent(id))
		require.True(t, ok)
	}

	assert.Equal(t, []string{"c", "a", "b"}, s.ids())

	all := s.all()
	require.Len(t, all, 3)
	assert.Equal(t, "c", all[0].ID)
	assert.Equal(t, "b", all[2].ID)
}

// Snapshots are deep copies: mutating one never leaks into the store.
func TestStore_SnapshotIsolation(t *testing.T) {
	s := newRecordStore()
	r, ok := s.insert(storedIntent("a"))
	require.True(t, ok)

	snap := r.snapshot()
	snap.State = StateFailed
	snap.EventLog[0].Message = "tampered"
	snap.EventLog = append(snap.EventLog, TransitionEvent{Stage: StateFailed})

	fresh := r.snapshot()
	assert.Equal(t, StatePending, fresh.State)
	require.Len(t, fresh.EventLog, 1)
	assert.Equal(t, "intent accepted", fresh.EventLog[0].Message)
}

func TestIntent_LastEvent(t *testing.T) {
	in := storedIntent("a")
	assert.Equal(t, StatePending, in.LastEvent().Stage)

	in.EventLog = append(in.EventLog, TransitionEvent{Stage: StateValidating})
	assert.Equal(t, StateValidating, in.LastEvent().Stage)
}
