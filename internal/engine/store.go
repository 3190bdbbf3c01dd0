package engine

import "sync"

// record wraps a stored intent with its locks.
//
// Two locks with distinct roles:
//   - txMu serializes transitions for this intent, covering both the
//     mutation and the subscriber notifications that follow it. Holding it
//     across notify is what gives subscribers append-order delivery with no
//     interleaving for a single intent.
//   - mu guards the intent fields themselves. Readers (get, list, counts)
//     take only mu, so subscriber callbacks may query the engine without
//     deadlocking even though txMu is held while they run.
type record struct {
	txMu sync.Mutex
	mu   sync.Mutex

	intent Intent
}

// snapshot returns a deep copy of the intent, safe to hand to callers.
func (r *record) snapshot() Intent {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.intent.clone()
}

// id returns the intent id. Immutable after insert.
func (r *record) id() string {
	return r.intent.ID
}

// state returns the current lifecycle state.
func (r *record) state() State {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.intent.State
}

// recordStore is the in-memory intent record store.
//
// Records are never deleted: they persist until process restart. The store
// keeps insertion order so listings are stable by creation sequence.
//
// Thread-safety: the map and order slice are guarded by mu; individual
// intents are guarded by their record locks.
type recordStore struct {
	mu      sync.RWMutex
	records map[string]*record
	order   []string
}

// newRecordStore creates an empty store.
func newRecordStore() *recordStore {
	return &recordStore{
		records: make(map[string]*record),
	}
}

// insert adds a new intent. Returns false if the id already exists.
func (s *recordStore) insert(in Intent) (*record, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.records[in.ID]; exists {
		return nil, false
	}
	r := &record{intent: in}
	s.records[in.ID] = r
	s.order = append(s.order, in.ID)
	return r, true
}

// lookup returns the record for id, or false if unknown.
func (s *recordStore) lookup(id string) (*record, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	r, ok := s.records[id]
	return r, ok
}

// ids returns the intent ids in insertion order.
func (s *recordStore) ids() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]string, len(s.order))
	copy(out, s.order)
	return out
}

// all returns snapshots of every intent in insertion order.
// Snapshots are taken per record, not under one global lock, so a listing
// concurrent with transitions sees each intent at some consistent point but
// not the whole store at a single instant.
func (s *recordStore) all() []Intent {
	ids := s.ids()

	out := make([]Intent, 0, len(ids))
	for _, id := range ids {
		if r, ok := s.lookup(id); ok {
			out = append(out, r.snapshot())
		}
	}
	return out
}

// size returns the number of stored intents.
func (s *recordStore) size() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.records)
}
