package engine

import "sync/atomic"

// Clock is a monotonic logical clock. The scheduler stamps each outcome with
// Next() as it arrives, so Seq orders trials by completion independently of
// their ids and of wall-clock resolution.
//
// Thread-safety: Clock is safe for concurrent use; workers call Next
// directly.
type Clock struct {
	seq atomic.Int64
}

// NewClock creates a new clock starting at 0.
func NewClock() *Clock {
	return &Clock{}
}

// Next returns the next sequence number. Each call returns a unique,
// increasing value.
func (c *Clock) Next() int64 {
	return c.seq.Add(1)
}
