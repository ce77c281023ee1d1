package testutil

import (
	"fmt"
	"sync"
)

// SequentialIDs issues "<prefix>-<n>" identifiers with a separate counter
// per prefix: Q-1, Q-2, J-1, ...
//
// The same scenario run with a fresh SequentialIDs produces the same ids,
// which keeps golden traces stable.
//
// Thread-safety: SequentialIDs is safe for concurrent use via internal mutex.
type SequentialIDs struct {
	mu     sync.Mutex
	counts map[string]int
}

// NewSequentialIDs creates a generator with every counter at zero.
func NewSequentialIDs() *SequentialIDs {
	return &SequentialIDs{counts: make(map[string]int)}
}

// NewID returns the next identifier for prefix.
func (g *SequentialIDs) NewID(prefix string) string {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.counts[prefix]++
	return fmt.Sprintf("%s-%d", prefix, g.counts[prefix])
}

// Reset sets every counter back to zero.
func (g *SequentialIDs) Reset() {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.counts = make(map[string]int)
}
