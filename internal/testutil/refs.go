package testutil

import (
	"fmt"
	"sync"
)

// SequentialRefs generates predictable sale references ("sale-0001", ...).
//
// Production code uses UUIDv7 references; tests use this so that receipts and
// golden files do not change between runs.
type SequentialRefs struct {
	mu     sync.Mutex
	prefix string
	n      int
}

// NewSequentialRefs creates a generator. An empty prefix defaults to "sale".
func NewSequentialRefs(prefix string) *SequentialRefs {
	if prefix == "" {
		prefix = "sale"
	}
	return &SequentialRefs{prefix: prefix}
}

// NewRef returns the next reference.
func (g *SequentialRefs) NewRef() string {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.n++
	return fmt.Sprintf("%s-%04d", g.prefix, g.n)
}
