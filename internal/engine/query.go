package engine

import (
	"encoding/base64"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// DefaultListLimit is the page size used when the filter does not set one.
const DefaultListLimit = 50

// MaxListLimit caps the page size.
const MaxListLimit = 200

// ListFilter selects and pages intents. Zero values mean "no constraint".
type ListFilter struct {
	// States restricts to intents currently in any of these states.
	States []State
	// CreatedAfter / CreatedBefore bound creation time (exclusive).
	CreatedAfter  time.Time
	CreatedBefore time.Time
	// Cursor is an opaque pagination token from a previous ListResult.
	Cursor string
	// Limit is the page size; 0 means DefaultListLimit.
	Limit int
}

// ListResult is one page of intents.
type ListResult struct {
	Items []Intent `json:"items"`
	// NextCursor is set when more pages remain. The cursor is offset-based
	// and stable only while the underlying collection does not shrink;
	// listing concurrently with kills or cancels may skip or duplicate
	// entries at page boundaries.
	NextCursor string `json:"nextCursor,omitempty"`
	TotalCount int    `json:"totalCount"`
}

// QueueStatus is the aggregate view of the engine's work.
type QueueStatus struct {
	// Pending counts intents in PENDING.
	Pending int `json:"pending"`
	// Executing counts intents in any intermediate non-terminal,
	// non-pending state.
	Executing int `json:"executing"`
	// RunningWorkers counts registered long-running workers.
	RunningWorkers int `json:"runningWorkers"`
	Paused         bool `json:"paused"`
}

// List returns intents matching the filter in creation order, one page at
// a time. Malformed filters (unknown state, bad cursor, negative limit)
// return an invalid-filter error.
func (e *Engine) List(f ListFilter) (ListResult, error) {
	for _, s := range f.States {
		if !s.Valid() {
			return ListResult{}, NewInvalidFilterError(fmt.Sprintf("unknown state %q", string(s)))
		}
	}
	if f.Limit < 0 {
		return ListResult{}, NewInvalidFilterError("limit must not be negative")
	}
	limit := f.Limit
	if limit == 0 {
		limit = DefaultListLimit
	}
	if limit > MaxListLimit {
		limit = MaxListLimit
	}

	offset := 0
	if f.Cursor != "" {
		var err error
		offset, err = decodeCursor(f.Cursor)
		if err != nil {
			return ListResult{}, NewInvalidFilterError("malformed cursor")
		}
	}

	matched := make([]Intent, 0)
	for _, in := range e.store.all() {
		if !f.matches(&in) {
			continue
		}
		matched = append(matched, in)
	}

	res := ListResult{TotalCount: len(matched)}
	if offset >= len(matched) {
		res.Items = []Intent{}
		return res, nil
	}

	end := offset + limit
	if end > len(matched) {
		end = len(matched)
	}
	res.Items = matched[offset:end]
	if end < len(matched) {
		res.NextCursor = encodeCursor(end)
	}
	return res, nil
}

// matches applies the filter's state-set and creation-time bounds.
func (f *ListFilter) matches(in *Intent) bool {
	if len(f.States) > 0 {
		found := false
		for _, s := range f.States {
			if in.State == s {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	if !f.CreatedAfter.IsZero() && !in.CreatedAt.After(f.CreatedAfter) {
		return false
	}
	if !f.CreatedBefore.IsZero() && !in.CreatedAt.Before(f.CreatedBefore) {
		return false
	}
	return true
}

// QueueStatus computes aggregate counts by full scan. Acceptable at
// in-memory scale; a larger deployment would maintain incremental counters.
func (e *Engine) QueueStatus() QueueStatus {
	var st QueueStatus
	for _, in := range e.store.all() {
		switch {
		case in.State == StatePending:
			st.Pending++
		case !in.State.Terminal():
			st.Executing++
		}
	}

	e.workersMu.Lock()
	st.RunningWorkers = len(e.workers)
	e.workersMu.Unlock()

	st.Paused = e.ControlStatus().Paused
	return st
}

// cursorPrefix versions the cursor format so a stale token from an older
// build fails decoding instead of silently pointing somewhere else.
const cursorPrefix = "v1:"

func encodeCursor(offset int) string {
	return base64.RawURLEncoding.EncodeToString([]byte(cursorPrefix + strconv.Itoa(offset)))
}

func decodeCursor(cursor string) (int, error) {
	raw, err := base64.RawURLEncoding.DecodeString(cursor)
	if err != nil {
		return 0, fmt.Errorf("decode cursor: %w", err)
	}
	s := string(raw)
	if !strings.HasPrefix(s, cursorPrefix) {
		return 0, fmt.Errorf("unrecognized cursor format")
	}
	offset, err := strconv.Atoi(strings.TrimPrefix(s, cursorPrefix))
	if err != nil || offset < 0 {
		return 0, fmt.Errorf("invalid cursor offset")
	}
	return offset, nil
}
