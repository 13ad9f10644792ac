package server

import (
	"context"
	"time"

	"github.com/matzehuels/graphwriter/pkg/observability"
	"github.com/matzehuels/graphwriter/pkg/request"
)

// work is the loop of one pool worker. It returns when stopCtx ends or after
// it performs a quit. Renders run on renderCtx and are never interrupted by
// shutdown.
func (s *Server) work(stopCtx, renderCtx context.Context, id int) {
	logger := s.logger.With("worker", id)
	logger.Debug("worker started")
	defer logger.Debug("worker stopped")

	for {
		req, err := s.queue.Take(stopCtx)
		if err != nil {
			return
		}
		if !s.dispatch(renderCtx, req, id) {
			return
		}
	}
}

// dispatch handles one job and reports whether the worker should continue.
func (s *Server) dispatch(ctx context.Context, req request.Request, id int) bool {
	hooks := observability.Server()
	kind := req.Kind()
	logger := s.logger.With("worker", id, "job", req.ID, "target", req.Target)

	if s.plane.ShuttingDown() {
		s.counters.dropped.Add(1)
		hooks.OnDrop(ctx, kind.String())
		logger.Debug("dropped, shutting down", "kind", kind)
		return true
	}
	hooks.OnDispatch(ctx, kind.String())

	var err error
	switch kind {
	case request.KindQuit:
		logger.Info("quit requested")
		s.plane.Shutdown("quit request")
		return false
	case request.KindIgnore:
		logger.Debug("liveness probe")
		return true
	case request.KindGraph:
		err = s.render(ctx, kind, func() error {
			return s.backend.RenderGraph(ctx, req.Target)
		})
	default:
		logger.Info("rendering syntax tree", "payload", request.Abbrev(req.Payload))
		err = s.render(ctx, kind, func() error {
			return s.backend.RenderSyntaxTree(ctx, req.Target, req.Payload)
		})
	}

	if err != nil {
		s.counters.failed.Add(1)
		logger.Warn("render failed", "kind", kind, "err", err)
		return true
	}
	s.counters.rendered.Add(1)
	logger.Info("rendered", "kind", kind, "output", req.Target+".png")
	return true
}

func (s *Server) render(ctx context.Context, kind request.Kind, fn func() error) error {
	s.counters.inFlight.Add(1)
	defer s.counters.inFlight.Add(-1)

	start := time.Now()
	err := fn()
	observability.Server().OnRenderComplete(ctx, kind.String(), time.Since(start), err)
	return err
}
