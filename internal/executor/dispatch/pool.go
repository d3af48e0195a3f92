package dispatch

import "context"

// pool is the admission-control slot pool: a fixed number of executions may
// be in flight; further callers block in arrival order until a slot frees or
// their context is canceled. This is what stops a burst of requests from
// turning into a fork storm on the host.
type pool struct {
	slots chan struct{}
}

func newPool(size int) *pool {
	if size < 1 {
		size = 1
	}
	return &pool{slots: make(chan struct{}, size)}
}

func (p *pool) acquire(ctx context.Context) error {
	// A canceled caller never takes a slot, even when one is free.
	if err := ctx.Err(); err != nil {
		return err
	}
	select {
	case p.slots <- struct{}{}:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (p *pool) release() {
	<-p.slots
}
