package testutil

import (
	"sync"

	"github.com/roach88/ironclad/pkg/condition"
)

// Recorder is a condition.Observer that collects every check event it
// sees, in order. Used by scenario runs and tests to assert on the
// exact evaluation trace.
type Recorder struct {
	mu     sync.Mutex
	events []condition.CheckEvent
}

var _ condition.Observer = (*Recorder)(nil)

// Observe implements condition.Observer.
func (r *Recorder) Observe(e condition.CheckEvent) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, e)
}

// Events returns a copy of the recorded events.
func (r *Recorder) Events() []condition.CheckEvent {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]condition.CheckEvent, len(r.events))
	copy(out, r.events)
	return out
}

// Reset discards all recorded events.
func (r *Recorder) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = nil
}

// Len returns the number of recorded events.
func (r *Recorder) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.events)
}
