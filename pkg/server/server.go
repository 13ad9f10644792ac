package server

import (
	"context"
	"net"
	"sync"
	"sync/atomic"

	"github.com/charmbracelet/log"
	"golang.org/x/sync/errgroup"

	"github.com/matzehuels/graphwriter/pkg/control"
	"github.com/matzehuels/graphwriter/pkg/errors"
	"github.com/matzehuels/graphwriter/pkg/queue"
	"github.com/matzehuels/graphwriter/pkg/render"
)

// Server is one instance of the render-job service.
type Server struct {
	cfg     Config
	backend render.Backend
	queue   *queue.Queue
	plane   *control.Plane
	logger  *log.Logger
	workers int

	mu       sync.Mutex
	listener net.Listener

	conns    *connSet
	handlers sync.WaitGroup
	counters counters
}

type counters struct {
	accepted atomic.Uint64
	rejected atomic.Uint64
	rendered atomic.Uint64
	failed   atomic.Uint64
	dropped  atomic.Uint64
	inFlight atomic.Int64
}

// New creates a server. Nothing is bound until Listen or Run.
func New(cfg Config, backend render.Backend, logger *log.Logger) *Server {
	if logger == nil {
		logger = log.Default()
	}
	cfg = cfg.withDefaults()
	s := &Server{
		cfg:     cfg,
		backend: backend,
		queue:   queue.New(cfg.QueueCapacity),
		plane:   control.New(logger),
		logger:  logger,
		workers: cfg.PoolSize(),
		conns:   newConnSet(),
	}
	// Idle peers must not hold up shutdown.
	s.plane.Register(s.conns)
	return s
}

// Listen binds the listening socket. The address must be a loopback address.
// Run calls Listen if it has not been called.
func (s *Server) Listen() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listener != nil {
		return nil
	}
	if err := errors.ValidateLoopbackAddr(s.cfg.Addr); err != nil {
		return errors.Wrap(errors.ErrCodeListenBind, err, "refusing to listen on %s", s.cfg.Addr)
	}
	ln, err := net.Listen("tcp", s.cfg.Addr)
	if err != nil {
		return errors.Wrap(errors.ErrCodeListenBind, err, "listen on %s", s.cfg.Addr)
	}
	s.listener = ln
	s.plane.Register(ln)
	return nil
}

// Addr returns the bound address, or the configured one before Listen.
func (s *Server) Addr() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listener != nil {
		return s.listener.Addr().String()
	}
	return s.cfg.Addr
}

// Run serves until shutdown and waits for in-flight renders.
// Cancelling ctx starts a graceful shutdown; it does not abort renders.
func (s *Server) Run(ctx context.Context) error {
	if err := s.Listen(); err != nil {
		return err
	}

	s.mu.Lock()
	ln := s.listener
	s.mu.Unlock()

	// Blocking queue operations end when shutdown begins.
	stopCtx, stop := context.WithCancel(context.WithoutCancel(ctx))
	defer stop()
	go func() {
		select {
		case <-ctx.Done():
			s.plane.Shutdown("signal")
		case <-s.plane.Done():
		}
		stop()
	}()

	// Renders outlive shutdown so that in-flight jobs can finish.
	renderCtx := context.WithoutCancel(ctx)

	s.logger.Info("listening", "addr", ln.Addr().String(), "workers", s.workers, "queue", s.queue.Cap())

	var g errgroup.Group
	g.Go(func() error {
		return s.accept(stopCtx, ln)
	})
	for i := range s.workers {
		g.Go(func() error {
			s.work(stopCtx, renderCtx, i)
			return nil
		})
	}

	err := g.Wait()
	s.handlers.Wait()

	if n := s.queue.Len(); n > 0 {
		s.logger.Info("discarded queued jobs", "count", n)
	}
	s.logger.Info("stopped", "reason", s.plane.Reason())
	return err
}

// Shutdown starts a graceful shutdown, as a "quit" job would. It reports
// whether this call performed the transition.
func (s *Server) Shutdown(reason string) bool {
	return s.plane.Shutdown(reason)
}

// Done is closed once shutdown has begun.
func (s *Server) Done() <-chan struct{} {
	return s.plane.Done()
}

// State returns the control-plane state.
func (s *Server) State() control.State {
	return s.plane.State()
}

// Stats is a point-in-time snapshot of the service.
type Stats struct {
	Addr     string      `json:"addr"`
	State    string      `json:"state"`
	Workers  int         `json:"workers"`
	Queue    queue.Stats `json:"queue"`
	Accepted uint64      `json:"accepted"`
	Rejected uint64      `json:"rejected"`
	Rendered uint64      `json:"rendered"`
	Failed   uint64      `json:"failed"`
	Dropped  uint64      `json:"dropped"`
	InFlight int64       `json:"in_flight"`
	Conns    int         `json:"conns"`
}

// Stats returns current counters.
func (s *Server) Stats() Stats {
	return Stats{
		Addr:     s.Addr(),
		State:    s.plane.State().String(),
		Workers:  s.workers,
		Queue:    s.queue.Stats(),
		Accepted: s.counters.accepted.Load(),
		Rejected: s.counters.rejected.Load(),
		Rendered: s.counters.rendered.Load(),
		Failed:   s.counters.failed.Load(),
		Dropped:  s.counters.dropped.Load(),
		InFlight: s.counters.inFlight.Load(),
		Conns:    s.conns.len(),
	}
}
