// Package testutil provides deterministic test doubles for the engine's
// injected dependencies.
package testutil

import (
	"context"
	"sync"
	"time"
)

// ManualClock is a Clock whose time only moves when a test calls Advance.
//
// Sleepers block until accumulated Advance calls reach their deadline.
// This lets a test drive a full intent lifecycle with zero wall-clock
// waits and exact, reproducible timestamps.
//
// Thread-safety: all methods are safe for concurrent use.
type ManualClock struct {
	mu      sync.Mutex
	cond    *sync.Cond
	now     time.Time
	waiters []*waiter
}

type waiter struct {
	deadline time.Time
	done     chan struct{}
}

// NewManualClock creates a manual clock frozen at start.
func NewManualClock(start time.Time) *ManualClock {
	c := &ManualClock{now: start}
	c.cond = sync.NewCond(&c.mu)
	return c
}

// Now returns the clock's current frozen time.
func (c *ManualClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

// Sleep blocks until Advance moves the clock past now+d, or ctx is done.
func (c *ManualClock) Sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}

	c.mu.Lock()
	w := &waiter{deadline: c.now.Add(d), done: make(chan struct{})}
	c.waiters = append(c.waiters, w)
	c.cond.Broadcast()
	c.mu.Unlock()

	select {
	case <-ctx.Done():
		c.remove(w)
		return ctx.Err()
	case <-w.done:
		return nil
	}
}

// Advance moves the clock forward by d and releases every sleeper whose
// deadline has been reached.
func (c *ManualClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.now = c.now.Add(d)

	remaining := c.waiters[:0]
	for _, w := range c.waiters {
		if !w.deadline.After(c.now) {
			close(w.done)
		} else {
			remaining = append(remaining, w)
		}
	}
	c.waiters = remaining
	c.cond.Broadcast()
}

// Sleepers returns the number of goroutines currently blocked in Sleep.
func (c *ManualClock) Sleepers() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.waiters)
}

// AwaitSleepers blocks until at least n goroutines are blocked in Sleep.
// Tests use this to synchronize with a driver before advancing the clock.
func (c *ManualClock) AwaitSleepers(n int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for len(c.waiters) < n {
		c.cond.Wait()
	}
}

func (c *ManualClock) remove(target *waiter) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for i, w := range c.waiters {
		if w == target {
			c.waiters = append(c.waiters[:i], c.waiters[i+1:]...)
			break
		}
	}
	c.cond.Broadcast()
}
