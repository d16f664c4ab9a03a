// Package idalloc hands out strictly increasing job identifiers.
//
// The allocator is the sole source of job ids for the lifetime of the
// process: it is never reset, and every call to Next returns a value one
// greater than the last value it returned.
package idalloc

import "sync"

// Allocator is a monotonic integer source guarded by a single mutex. The
// zero value is not usable; construct one with New.
type Allocator struct {
	mu      sync.Mutex
	counter int
}

// New returns an Allocator whose first Next() call returns 1.
func New() *Allocator {
	return &Allocator{counter: 1}
}

// Next returns the next job id and advances the counter. Ids start at 1
// and are never reused.
func (a *Allocator) Next() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	id := a.counter
	a.counter++
	return id
}

// LastIssued returns the largest id handed out so far, or 0 if Next has
// never been called.
func (a *Allocator) LastIssued() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.counter - 1
}
