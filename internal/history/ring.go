// Package history keeps the bounded record of recognised gestures and the
// token tally handed to the transcript builder.
package history

import (
	"sync"

	"github.com/ayusman/mudra/internal/gesture"
)

// Ring is a fixed-capacity FIFO of events. When full, Append evicts the
// oldest entry. Readers get copies, never the live buffer.
type Ring struct {
	mu    sync.RWMutex
	buf   []gesture.Event
	start int
	size  int
}

// NewRing creates a Ring holding at most capacity events.
// A capacity below one is treated as one.
func NewRing(capacity int) *Ring {
	if capacity < 1 {
		capacity = 1
	}
	return &Ring{buf: make([]gesture.Event, capacity)}
}

// Append adds ev, evicting the oldest event if the ring is full.
// It reports whether an event was evicted.
func (r *Ring) Append(ev gesture.Event) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	ev = ev.Clone()
	if r.size < len(r.buf) {
		r.buf[(r.start+r.size)%len(r.buf)] = ev
		r.size++
		return false
	}

	r.buf[r.start] = ev
	r.start = (r.start + 1) % len(r.buf)
	return true
}

// Snapshot returns the events oldest first.
func (r *Ring) Snapshot() []gesture.Event {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]gesture.Event, r.size)
	for i := range out {
		out[i] = r.buf[(r.start+i)%len(r.buf)].Clone()
	}
	return out
}

// Last returns the newest event, if any.
func (r *Ring) Last() (gesture.Event, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if r.size == 0 {
		return gesture.Event{}, false
	}
	return r.buf[(r.start+r.size-1)%len(r.buf)].Clone(), true
}

// Len returns the number of stored events.
func (r *Ring) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.size
}

// Cap returns the ring capacity.
func (r *Ring) Cap() int {
	return len(r.buf)
}

// Reset empties the ring.
func (r *Ring) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	clear(r.buf)
	r.start = 0
	r.size = 0
}
