package serializer

import "context"

// Pool bounds how many Funcs run concurrently, independent of key.
// Combined with Serializer, a caller gets per-key ordering and a global
// concurrency ceiling at once: acquire a Pool slot, then Run under the
// Serializer for the task's key.
type Pool struct {
	slots chan struct{}
}

// NewPool returns a Pool that allows at most n concurrent Acquires.
func NewPool(n int) *Pool {
	if n < 1 {
		n = 1
	}
	return &Pool{slots: make(chan struct{}, n)}
}

// Acquire blocks until a slot is free or ctx is done, returning a
// release function that must be called exactly once.
func (p *Pool) Acquire(ctx context.Context) (release func(), err error) {
	select {
	case p.slots <- struct{}{}:
		return func() { <-p.slots }, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}
