package cart

import (
	"context"
	"sync"
)

// mutationGate serializes mutations on one cart in strict FIFO order.
//
// A mutation arriving while another is in flight queues behind it rather
// than interleaving - two concurrent snapshot/rollback cycles would clobber
// each other's snapshot. A plain mutex gives no ordering guarantee under
// contention, so the gate keeps an explicit waiter list.
//
// Thread-safety: all methods are safe from any goroutine.
type mutationGate struct {
	mu      sync.Mutex
	busy    bool
	waiters []chan struct{}
	closed  bool
}

func newMutationGate() *mutationGate {
	return &mutationGate{}
}

// Acquire blocks until the caller holds the gate, its context ends, or the
// gate closes. Returns nil exactly when the gate is held; every nil return
// must be paired with Release.
func (g *mutationGate) Acquire(ctx context.Context) error {
	g.mu.Lock()
	if g.closed {
		g.mu.Unlock()
		return errClosed
	}
	if !g.busy {
		g.busy = true
		g.mu.Unlock()
		return nil
	}

	turn := make(chan struct{})
	g.waiters = append(g.waiters, turn)
	g.mu.Unlock()

	select {
	case <-turn:
		g.mu.Lock()
		if g.closed {
			g.mu.Unlock()
			// Hand the slot on so closing cannot strand later waiters.
			g.Release()
			return errClosed
		}
		g.mu.Unlock()
		return nil

	case <-ctx.Done():
		g.mu.Lock()
		for i, w := range g.waiters {
			if w == turn {
				g.waiters = append(g.waiters[:i], g.waiters[i+1:]...)
				g.mu.Unlock()
				return ctx.Err()
			}
		}
		g.mu.Unlock()
		// The turn was granted between ctx firing and the lock; give it up.
		g.Release()
		return ctx.Err()
	}
}

// Release hands the gate to the next waiter in arrival order, or marks it
// idle when none are queued.
func (g *mutationGate) Release() {
	g.mu.Lock()
	if len(g.waiters) > 0 {
		next := g.waiters[0]
		// Nil out the slot so the backing array does not retain the channel.
		g.waiters[0] = nil
		g.waiters = g.waiters[1:]
		g.mu.Unlock()
		close(next)
		return
	}
	g.busy = false
	g.mu.Unlock()
}

// Close wakes every waiter with an error and rejects future Acquires.
func (g *mutationGate) Close() {
	g.mu.Lock()
	if g.closed {
		g.mu.Unlock()
		return
	}
	g.closed = true
	waiters := g.waiters
	g.waiters = nil
	g.mu.Unlock()

	for _, w := range waiters {
		close(w)
	}
}

// Len returns the number of queued waiters (excluding the holder).
func (g *mutationGate) Len() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.waiters)
}
