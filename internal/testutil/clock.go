package testutil

import (
	"sync"
	"time"
)

// Epoch is the first instant returned by a fresh DeterministicClock.
var Epoch = time.Date(2024, time.January, 1, 0, 0, 0, 0, time.UTC)

// DeterministicClock is a wall clock for tests that advances by a fixed
// step on every reading, so elapsed times in reports are reproducible.
//
// Thread-safety: All methods are safe for concurrent use via internal mutex.
type DeterministicClock struct {
	mu    sync.Mutex
	now   time.Time
	step  time.Duration
	reads int
}

// NewDeterministicClock creates a clock at Epoch that advances by step per
// call to Now. The first call returns Epoch.
func NewDeterministicClock(step time.Duration) *DeterministicClock {
	return &DeterministicClock{now: Epoch, step: step}
}

// Now returns the current instant and advances the clock.
func (c *DeterministicClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	t := c.now
	c.now = c.now.Add(c.step)
	c.reads++
	return t
}

// Reads returns how many times Now was called.
func (c *DeterministicClock) Reads() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.reads
}

// Reset rewinds the clock to Epoch.
func (c *DeterministicClock) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = Epoch
	c.reads = 0
}
