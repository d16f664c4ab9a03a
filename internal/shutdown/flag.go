// Package shutdown holds the one-shot lifecycle flag shared between
// ingress, which must stop admitting jobs once it is set, and the worker
// pool, which watches it to know when to stop pulling from the queue.
package shutdown

import "sync"

// Flag is a monotone boolean: false initially, true after exactly one call
// to Set. It is safe for concurrent use.
type Flag struct {
	mu  sync.Mutex
	set bool
}

// New returns an unset Flag.
func New() *Flag {
	return &Flag{}
}

// Set transitions the flag to true. Calling it more than once has no
// further effect.
func (f *Flag) Set() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.set = true
}

// IsSet reports the current state.
func (f *Flag) IsSet() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.set
}
