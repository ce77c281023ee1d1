package engine

import (
	"sync"

	"github.com/roach88/fieldsync/internal/bus"
)

// itemKind distinguishes between queued work kinds.
type itemKind int

const (
	// itemCommand is a command to dispatch.
	itemCommand itemKind = iota + 1
	// itemChange is a write observed from another context.
	itemChange
)

// reply carries a dispatch result back to Submit.
type reply struct {
	outcome Outcome
	err     error
}

// item is one unit of work for the Loop.
type item struct {
	kind    itemKind
	command Command
	change  bus.Change
	reply   chan<- reply // nil for fire-and-forget commands
}

// workQueue is a thread-safe FIFO queue for loop items.
//
// The queue is unbounded so reactors running inside the loop can enqueue
// follow-up commands without blocking it.
//
// The queue uses a channel for signaling to enable context-aware waiting
// in the Run loop (prevents goroutine hangs on context cancellation).
type workQueue struct {
	mu     sync.Mutex
	items  []item
	closed bool
	signal chan struct{} // Signals item availability (buffered, size 1)
}

// newWorkQueue creates an empty queue.
func newWorkQueue() *workQueue {
	return &workQueue{
		items:  make([]item, 0, 16),
		signal: make(chan struct{}, 1),
	}
}

// Enqueue adds an item to the back of the queue.
// Thread-safe: may be called from any goroutine.
// Returns false if the queue is closed.
func (q *workQueue) Enqueue(it item) bool {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return false
	}

	q.items = append(q.items, it)

	// Non-blocking: the buffer of 1 coalesces signals
	select {
	case q.signal <- struct{}{}:
	default:
	}

	return true
}

// TryDequeue attempts to dequeue without blocking.
// Returns (item{}, false) if the queue is empty.
func (q *workQueue) TryDequeue() (item, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if len(q.items) == 0 {
		return item{}, false
	}

	it := q.items[0]

	// Clear the slot so the backing array does not pin commands and reply
	// channels.
	q.items[0] = item{}

	if len(q.items) == 1 {
		q.items = q.items[:0]
	} else {
		q.items = q.items[1:]
	}

	return it, true
}

// Wait returns a channel that signals when items may be available.
// Use with select for context-aware waiting:
//
//	select {
//	case <-ctx.Done():
//	    return ctx.Err()
//	case <-q.Wait():
//	    // Try TryDequeue
//	}
func (q *workQueue) Wait() <-chan struct{} {
	return q.signal
}

// Len returns the current queue length.
func (q *workQueue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}

// Closed reports whether Close has been called.
func (q *workQueue) Closed() bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.closed
}

// Close signals that no more items will be enqueued.
// Wakes any blocked waiters by closing the signal channel.
// Items still queued are returned so their callers can be answered.
func (q *workQueue) Close() []item {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return nil
	}

	q.closed = true
	close(q.signal)

	rest := q.items
	q.items = nil
	return rest
}
