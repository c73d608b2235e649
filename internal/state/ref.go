package state

import "sync"

// Ref is a concurrency-safe holder for the current State. The State
// value itself stays immutable; Ref only serializes which snapshot is
// current. This is the single point where the otherwise pure core meets
// the application's goroutines.
type Ref struct {
	mu sync.RWMutex
	s  State
}

// NewRef wraps an initial state.
func NewRef(s State) *Ref {
	return &Ref{s: s}
}

// Get returns the current snapshot.
func (r *Ref) Get() State {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.s
}

// Update applies fn to the current state under the lock and installs the
// result, returning it. fn must be pure.
func (r *Ref) Update(fn func(State) State) State {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.s = fn(r.s)
	return r.s
}
