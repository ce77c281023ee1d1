package engine

import "sync/atomic"

// Clock hands out the seq stamped on every published event. Seqs strictly
// increase within a process and are not persisted; dispatchers that share a
// Clock share one ordering.
//
// Thread-safety: Clock is safe for concurrent use.
type Clock struct {
	seq atomic.Int64
}

// NewClock creates a clock whose first seq is 1.
func NewClock() *Clock {
	return &Clock{}
}

// Next issues the next seq.
func (c *Clock) Next() int64 {
	return c.seq.Add(1)
}

// Last returns the most recently issued seq, or 0 before the first one.
func (c *Clock) Last() int64 {
	return c.seq.Load()
}
