package engine

import (
	"context"
	"time"
)

// Clock abstracts wall-clock time and timer waits so the full lifecycle can
// be driven in tests without real waits.
//
// Implemented by WallClock (production) and testutil.ManualClock (tests).
//
// Thread-safety: implementations must be safe for concurrent use; every
// in-flight driver sleeps on the same clock.
type Clock interface {
	// Now returns the current time. Used to stamp transition events.
	Now() time.Time

	// Sleep blocks for d, returning early with ctx.Err() if ctx is done.
	// A non-positive d returns immediately.
	Sleep(ctx context.Context, d time.Duration) error
}

// WallClock is the production Clock backed by the system clock.
type WallClock struct{}

// NewWallClock creates a wall-clock backed Clock.
func NewWallClock() WallClock {
	return WallClock{}
}

// Now returns time.Now().
func (WallClock) Now() time.Time {
	return time.Now()
}

// Sleep waits for d or until ctx is cancelled, whichever comes first.
func (WallClock) Sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
