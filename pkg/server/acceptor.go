package server

import (
	"context"
	"net"
	"time"

	"github.com/google/uuid"

	"github.com/matzehuels/graphwriter/pkg/errors"
	"github.com/matzehuels/graphwriter/pkg/observability"
	"github.com/matzehuels/graphwriter/pkg/request"
)

// accept runs the accept loop until the listener is closed. An accept error
// during shutdown ends the loop cleanly; any other accept error is fatal and
// starts a shutdown so the workers stop as well.
func (s *Server) accept(ctx context.Context, ln net.Listener) error {
	hooks := observability.Server()
	for {
		conn, err := ln.Accept()
		if err != nil {
			if s.plane.ShuttingDown() {
				return nil
			}
			s.plane.Shutdown("accept failure")
			return errors.Wrap(errors.ErrCodeAccept, err, "accept on %s", ln.Addr())
		}

		remote := conn.RemoteAddr().String()
		s.counters.accepted.Add(1)
		hooks.OnAccept(ctx, remote)

		s.handlers.Add(1)
		go func() {
			defer s.handlers.Done()
			s.handle(ctx, conn, remote)
		}()
	}
}

// handle decodes one request from conn and publishes it. Failures are
// scoped to this connection.
func (s *Server) handle(ctx context.Context, conn net.Conn, remote string) {
	defer conn.Close()
	hooks := observability.Server()
	logger := s.logger.With("remote", remote)

	if !s.conns.add(conn) {
		logger.Debug("connection closed at shutdown")
		return
	}
	defer s.conns.remove(conn)

	if s.cfg.ReadTimeout > 0 {
		if err := conn.SetReadDeadline(time.Now().Add(s.cfg.ReadTimeout)); err != nil {
			logger.Debug("set read deadline", "err", err)
		}
	}

	req, err := request.Decode(conn)
	if err != nil {
		if s.plane.ShuttingDown() {
			logger.Debug("connection closed at shutdown", "err", err)
			return
		}
		s.counters.rejected.Add(1)
		hooks.OnDecodeError(ctx, remote, err)
		logger.Warn("dropping request", "target", req.Target, "code", errors.GetCode(err), "err", err)
		return
	}

	req.ID = uuid.NewString()
	kind := req.Kind().String()
	logger = logger.With("job", req.ID, "target", req.Target)
	logger.Debug("received", "kind", kind, "payload", request.Abbrev(req.Payload))

	start := time.Now()
	if !s.queue.TryPublish(req) {
		logger.Warn("queue full, waiting for a free slot", "kind", kind)
		if err := s.queue.Publish(ctx, req); err != nil {
			s.counters.dropped.Add(1)
			hooks.OnDrop(ctx, kind)
			logger.Info("dropped at shutdown", "kind", kind)
			return
		}
	}
	hooks.OnEnqueue(ctx, kind, time.Since(start))
}
