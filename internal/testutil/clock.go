package testutil

import (
	"sync"
	"time"
)

// FixedClock is a settable wall clock for tests.
//
// Unlike engine.SystemClock, FixedClock only moves when told to, so flag
// timestamps, metadata stamps, and staleness checks come out identical on
// every run. The same scenario with the same FixedClock produces
// byte-identical output.
//
// Thread-safety: all methods are safe for concurrent use via internal mutex.
type FixedClock struct {
	mu  sync.Mutex
	now time.Time
}

// NewFixedClock creates a clock pinned to the given instant.
func NewFixedClock(now time.Time) *FixedClock {
	return &FixedClock{now: now.UTC()}
}

// Now returns the pinned instant.
//
// Implements engine.Clock.
func (c *FixedClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

// Set pins the clock to a new instant.
func (c *FixedClock) Set(now time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = now.UTC()
}

// Advance moves the clock forward by d. Negative d moves it backward.
func (c *FixedClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}
