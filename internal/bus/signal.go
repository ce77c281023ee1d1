package bus

import (
	"context"
	"sync"
)

// Change is the cross-context "store changed" signal.
type Change struct {
	Collection string `json:"collection"`
	Version    int64  `json:"version"`
	Writer     string `json:"writer"`
}

// Signal delivers changes to other contexts sharing the same store.
// Delivery is best-effort: a subscriber may miss changes and must re-read.
type Signal interface {
	Notify(ctx context.Context, c Change) error
	Subscribe(ctx context.Context) (<-chan Change, error)
	Close() error
}

// LocalSignal fans changes out to subscribers in the same process.
// A slow subscriber drops changes rather than blocking the notifier.
type LocalSignal struct {
	mu     sync.Mutex
	subs   []chan Change
	closed bool
}

// NewLocalSignal creates an in-process signal.
func NewLocalSignal() *LocalSignal {
	return &LocalSignal{}
}

// Notify delivers c to every current subscriber without blocking.
func (s *LocalSignal) Notify(ctx context.Context, c Change) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	for _, ch := range s.subs {
		select {
		case ch <- c:
		default:
		}
	}
	return nil
}

// Subscribe returns a channel of changes. The channel closes when ctx is
// done or the signal is closed.
func (s *LocalSignal) Subscribe(ctx context.Context) (<-chan Change, error) {
	ch := make(chan Change, 16)

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		close(ch)
		return ch, nil
	}
	s.subs = append(s.subs, ch)
	s.mu.Unlock()

	go func() {
		<-ctx.Done()
		s.remove(ch)
	}()
	return ch, nil
}

func (s *LocalSignal) remove(ch chan Change) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, c := range s.subs {
		if c == ch {
			s.subs = append(s.subs[:i], s.subs[i+1:]...)
			close(ch)
			return
		}
	}
}

// Close closes every subscriber channel.
func (s *LocalSignal) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true
	for _, ch := range s.subs {
		close(ch)
	}
	s.subs = nil
	return nil
}
