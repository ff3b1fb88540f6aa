package journal

import "sync/atomic"

// Clock is the monotonic logical clock stamping journal rows.
//
// Every event carries a strictly increasing seq from this clock, which
// keeps reports and golden traces deterministically ordered without
// wall-clock races.
//
// Thread-safety: safe for concurrent use (atomic operations); multiple
// goroutines may journal checks from concurrent invocations.
type Clock struct {
	seq atomic.Int64
}

// NewClock creates a new clock starting at 0.
func NewClock() *Clock {
	return &Clock{}
}

// NewClockAt creates a clock starting at a specific sequence number.
// Used when reopening a journal file to resume past existing rows.
func NewClockAt(start int64) *Clock {
	c := &Clock{}
	c.seq.Store(start)
	return c
}

// Next returns the next sequence number and increments the clock.
// Calls are linearizable - each call returns a unique, increasing value.
func (c *Clock) Next() int64 {
	return c.seq.Add(1)
}

// Current returns the current sequence number without incrementing.
func (c *Clock) Current() int64 {
	return c.seq.Load()
}
