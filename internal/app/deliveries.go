package app

import (
	"context"
	"sync"
)

// deliveryGroup tracks background webhook deliveries. Once closed it refuses
// new work, so Wait never races with a late Go.
type deliveryGroup struct {
	mu     sync.Mutex
	closed bool
	wg     sync.WaitGroup
}

// Go runs fn in the background unless the group is closed. It reports whether
// fn was started.
func (g *deliveryGroup) Go(fn func()) bool {
	g.mu.Lock()
	if g.closed {
		g.mu.Unlock()
		return false
	}
	g.wg.Add(1)
	g.mu.Unlock()

	go func() {
		defer g.wg.Done()
		fn()
	}()
	return true
}

// CloseAndWait stops accepting work and waits for running deliveries or ctx.
func (g *deliveryGroup) CloseAndWait(ctx context.Context) error {
	g.mu.Lock()
	g.closed = true
	g.mu.Unlock()

	done := make(chan struct{})
	go func() {
		g.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
