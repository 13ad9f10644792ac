// Package rendertest provides an in-memory render backend for tests.
package rendertest

import (
	"context"
	"sync"
	"time"
)

// Call records one backend invocation.
type Call struct {
	Kind    string // "syntax-tree" or "graph"
	Target  string
	Payload string
}

// Recorder implements render.Backend by recording calls.
// It is safe for concurrent use.
type Recorder struct {
	mu    sync.Mutex
	calls []Call
	wake  chan struct{}

	// Err, when set, is returned from every render call.
	Err error
	// Delay is slept before each call returns, respecting ctx.
	Delay time.Duration
	// Block, when non-nil, is received from before each call returns.
	Block chan struct{}
}

// NewRecorder returns an empty recorder.
func NewRecorder() *Recorder {
	return &Recorder{wake: make(chan struct{})}
}

// RenderSyntaxTree records a syntax-tree render.
func (r *Recorder) RenderSyntaxTree(ctx context.Context, target, payload string) error {
	return r.record(ctx, Call{Kind: "syntax-tree", Target: target, Payload: payload})
}

// RenderGraph records a graph render.
func (r *Recorder) RenderGraph(ctx context.Context, target string) error {
	return r.record(ctx, Call{Kind: "graph", Target: target})
}

func (r *Recorder) record(ctx context.Context, c Call) error {
	if r.Block != nil {
		select {
		case <-r.Block:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	if r.Delay > 0 {
		select {
		case <-time.After(r.Delay):
		case <-ctx.Done():
			return ctx.Err()
		}
	}

	r.mu.Lock()
	r.calls = append(r.calls, c)
	close(r.wake)
	r.wake = make(chan struct{})
	err := r.Err
	r.mu.Unlock()
	return err
}

// Calls returns a copy of the recorded calls in completion order.
func (r *Recorder) Calls() []Call {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Call(nil), r.calls...)
}

// Len returns the number of recorded calls.
func (r *Recorder) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.calls)
}

// WaitFor blocks until at least n calls are recorded or timeout elapses.
// It reports whether n calls were reached.
func (r *Recorder) WaitFor(n int, timeout time.Duration) bool {
	deadline := time.NewTimer(timeout)
	defer deadline.Stop()
	for {
		r.mu.Lock()
		if len(r.calls) >= n {
			r.mu.Unlock()
			return true
		}
		wake := r.wake
		r.mu.Unlock()

		select {
		case <-wake:
		case <-deadline.C:
			return false
		}
	}
}
