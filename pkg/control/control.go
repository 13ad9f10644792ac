// Package control implements the service's two-state lifecycle.
//
// A [Plane] starts in [Running] and moves to [ShuttingDown] exactly once.
// The transition sets a flag that the acceptor and every worker check, closes
// the registered resources (the listening socket, which unblocks a pending
// accept), and closes the channel returned by [Plane.Done]. Later calls to
// [Plane.Shutdown] are no-ops.
package control

import (
	"io"
	"sync"
	"sync/atomic"

	"github.com/charmbracelet/log"
)

// State is the lifecycle state of the service.
type State int32

const (
	Running State = iota
	ShuttingDown
)

// String returns the state name used in logs and the admin API.
func (s State) String() string {
	if s == ShuttingDown {
		return "shutting-down"
	}
	return "running"
}

// Plane owns the shutdown flag and the resources closed on shutdown.
type Plane struct {
	shuttingDown atomic.Bool
	done         chan struct{}
	logger       *log.Logger

	mu      sync.Mutex
	closers []io.Closer
	reason  string
}

// New creates a plane in the Running state.
func New(logger *log.Logger) *Plane {
	if logger == nil {
		logger = log.Default()
	}
	return &Plane{
		done:   make(chan struct{}),
		logger: logger,
	}
}

// Register adds a resource to close on shutdown, in registration order. If the
// plane is already shutting down, c is closed immediately.
func (p *Plane) Register(c io.Closer) {
	p.mu.Lock()
	if !p.shuttingDown.Load() {
		p.closers = append(p.closers, c)
		p.mu.Unlock()
		return
	}
	p.mu.Unlock()
	p.close(c)
}

// Shutdown moves the plane to ShuttingDown. It reports whether this call
// performed the transition; every call after the first returns false and
// has no effect.
func (p *Plane) Shutdown(reason string) bool {
	p.mu.Lock()
	if !p.shuttingDown.CompareAndSwap(false, true) {
		p.mu.Unlock()
		return false
	}
	p.reason = reason
	closers := p.closers
	p.closers = nil
	p.mu.Unlock()

	p.logger.Info("shutting down", "reason", reason)
	for _, c := range closers {
		p.close(c)
	}
	close(p.done)
	return true
}

func (p *Plane) close(c io.Closer) {
	if err := c.Close(); err != nil {
		p.logger.Debug("close on shutdown", "err", err)
	}
}

// ShuttingDown reports whether Shutdown has been called.
func (p *Plane) ShuttingDown() bool {
	return p.shuttingDown.Load()
}

// State returns the current state.
func (p *Plane) State() State {
	if p.shuttingDown.Load() {
		return ShuttingDown
	}
	return Running
}

// Reason returns the reason given to the transitioning Shutdown call.
func (p *Plane) Reason() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.reason
}

// Done is closed once the plane is shutting down and its resources are closed.
func (p *Plane) Done() <-chan struct{} {
	return p.done
}
