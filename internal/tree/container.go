package tree

import "sync"

// Container is one top-level named entity (procedure, function, class,
// trigger) whose descendants' summaries fold into a container-level summary
// once every analyzable descendant has concluded.
type Container struct {
	Key       string // scope + declared name + start line
	Name      string
	Kind      string
	StartLine int
	EndLine   int

	mu      sync.Mutex
	pending int // analyzable descendants not yet concluded
	fired   bool
}

// AddPending raises the count of analyzable descendants awaiting conclusion.
// Called only during collection.
func (c *Container) AddPending(n int) {
	c.mu.Lock()
	c.pending += n
	c.mu.Unlock()
}

// Pending returns the current outstanding descendant count.
func (c *Container) Pending() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.pending
}

// Decrement lowers the pending count by one and reports true exactly once:
// on the call that brings the count to zero. Racing zero-hits cannot fire
// twice; the one-shot flag is guarded by the container's mutex.
func (c *Container) Decrement() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.pending--
	if c.pending <= 0 && !c.fired {
		c.fired = true
		return true
	}
	return false
}
