package testutil

import (
	"fmt"
	"sync"
)

// IDGenerator mints sequential instance identifiers.
//
// Guards default to random UUIDs for instance IDs, which makes traces
// differ run to run. Tests and golden snapshots pass generated IDs via
// invariant.WithInstanceID so the same scenario produces byte-identical
// output every time.
//
// Thread-safety: all methods are safe for concurrent use.
type IDGenerator struct {
	mu     sync.Mutex
	prefix string
	n      int
}

// NewIDGenerator creates a generator with the given prefix.
//
// An empty prefix defaults to "instance".
func NewIDGenerator(prefix string) *IDGenerator {
	if prefix == "" {
		prefix = "instance"
	}
	return &IDGenerator{prefix: prefix}
}

// Next returns the next identifier: "<prefix>-1", "<prefix>-2", ...
func (g *IDGenerator) Next() string {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.n++
	return fmt.Sprintf("%s-%d", g.prefix, g.n)
}
