package dispatch

import (
	"context"
	"sync"
)

// ReadyGate tracks whether the gateway session has been established. Work
// queued before the transition runs exactly once when it happens; work queued
// afterwards runs immediately.
type ReadyGate struct {
	mu      sync.Mutex
	ready   bool
	pending []func()
	done    chan struct{}
}

// NewReadyGate returns a gate in the NotReady state.
func NewReadyGate() *ReadyGate {
	return &ReadyGate{done: make(chan struct{})}
}

// MarkReady moves the gate to Ready and runs queued callbacks in the order
// they were queued. Calls after the first are no-ops.
func (g *ReadyGate) MarkReady() {
	g.mu.Lock()
	if g.ready {
		g.mu.Unlock()
		return
	}
	g.ready = true
	pending := g.pending
	g.pending = nil
	close(g.done)
	g.mu.Unlock()

	for _, fn := range pending {
		fn()
	}
}

// Ready reports whether the session has been established.
func (g *ReadyGate) Ready() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.ready
}

// OnReady runs fn once the gate is ready: now, on the caller's goroutine, if
// it already is, otherwise during MarkReady.
func (g *ReadyGate) OnReady(fn func()) {
	g.mu.Lock()
	if !g.ready {
		g.pending = append(g.pending, fn)
		g.mu.Unlock()
		return
	}
	g.mu.Unlock()
	fn()
}

// Wait blocks until the gate is ready or ctx is done.
func (g *ReadyGate) Wait(ctx context.Context) error {
	select {
	case <-g.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
