package server

import (
	"context"
	"io"
	"net"
	"testing"
	"time"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/graphwriter/pkg/control"
	"github.com/matzehuels/graphwriter/pkg/errors"
	"github.com/matzehuels/graphwriter/pkg/render/rendertest"
	"github.com/matzehuels/graphwriter/pkg/request"
)

const waitTimeout = 5 * time.Second

func quietLogger() *log.Logger {
	return log.New(io.Discard)
}

type running struct {
	srv  *Server
	addr string
	errc chan error
}

func startServer(t *testing.T, cfg Config, backend *rendertest.Recorder) *running {
	t.Helper()
	return startServerCtx(t, context.Background(), cfg, backend)
}

func startServerCtx(t *testing.T, ctx context.Context, cfg Config, backend *rendertest.Recorder) *running {
	t.Helper()
	if cfg.Addr == "" {
		cfg.Addr = "127.0.0.1:0"
	}
	if cfg.Workers == 0 {
		cfg.Workers = 2
	}
	srv := New(cfg, backend, quietLogger())
	if err := srv.Listen(); err != nil {
		t.Fatalf("Listen: %v", err)
	}
	r := &running{srv: srv, addr: srv.Addr(), errc: make(chan error, 1)}
	go func() { r.errc <- srv.Run(ctx) }()

	t.Cleanup(func() {
		srv.Shutdown("test cleanup")
		if backend.Block != nil {
			select {
			case <-backend.Block:
			default:
				close(backend.Block)
			}
		}
		select {
		case <-r.errc:
		case <-time.After(waitTimeout):
			t.Error("server did not stop")
		}
	})
	return r
}

func (r *running) send(t *testing.T, req request.Request) {
	t.Helper()
	conn, err := net.Dial("tcp", r.addr)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()
	if err := request.Encode(conn, req); err != nil {
		t.Fatalf("encode: %v", err)
	}
}

func (r *running) sendRaw(t *testing.T, raw string) {
	t.Helper()
	conn, err := net.Dial("tcp", r.addr)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()
	if _, err := io.WriteString(conn, raw); err != nil {
		t.Fatalf("write: %v", err)
	}
}

func (r *running) wait(t *testing.T) error {
	t.Helper()
	select {
	case err := <-r.errc:
		r.errc <- err // leave it for cleanup
		return err
	case <-time.After(waitTimeout):
		t.Fatal("Run did not return")
		return nil
	}
}

func eventually(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(waitTimeout)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatalf("timed out waiting for %s", what)
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func TestPoolSize(t *testing.T) {
	tests := []struct {
		cpus, reserved, want int
	}{
		{8, 2, 6},
		{4, 2, 2},
		{3, 2, 1},
		{2, 2, 1},
		{1, 2, 1},
		{16, 0, 16},
	}
	for _, tt := range tests {
		if got := PoolSize(tt.cpus, tt.reserved); got != tt.want {
			t.Errorf("PoolSize(%d, %d) = %d, want %d", tt.cpus, tt.reserved, got, tt.want)
		}
	}
}

func TestConfigPoolSizeOverride(t *testing.T) {
	if got := (Config{Workers: 3, Reserved: 100}).PoolSize(); got != 3 {
		t.Errorf("PoolSize = %d, want 3", got)
	}
	if got := (Config{Reserved: 1 << 20}).PoolSize(); got != 1 {
		t.Errorf("PoolSize = %d, want 1", got)
	}
}

func TestServerRoutesByPayload(t *testing.T) {
	rec := rendertest.NewRecorder()
	r := startServer(t, Config{Workers: 1}, rec)

	r.send(t, request.Request{Target: "/tmp/tree", Payload: "[S [NP] [VP]]"})
	r.send(t, request.Request{Target: "/tmp/graph", Payload: request.GraphvizMarker})

	if !rec.WaitFor(2, waitTimeout) {
		t.Fatalf("got %d calls, want 2", rec.Len())
	}
	calls := rec.Calls()
	want := []rendertest.Call{
		{Kind: "syntax-tree", Target: "/tmp/tree", Payload: "[S [NP] [VP]]"},
		{Kind: "graph", Target: "/tmp/graph"},
	}
	for i := range want {
		if calls[i] != want[i] {
			t.Errorf("call %d = %+v, want %+v", i, calls[i], want[i])
		}
	}
}

func TestServerIgnoreHasNoSideEffect(t *testing.T) {
	rec := rendertest.NewRecorder()
	r := startServer(t, Config{Workers: 1}, rec)

	r.send(t, request.Ignore())
	r.send(t, request.Ignore())
	r.send(t, request.Request{Target: "after", Payload: "[S]"})

	if !rec.WaitFor(1, waitTimeout) {
		t.Fatal("render after ignore never ran")
	}
	// One worker, FIFO: both ignores were handled before the render.
	if n := rec.Len(); n != 1 {
		t.Errorf("calls = %d, want 1", n)
	}
	if got := r.srv.State(); got != control.Running {
		t.Errorf("state = %s, want running", got)
	}
}

func TestServerQuit(t *testing.T) {
	rec := rendertest.NewRecorder()
	r := startServer(t, Config{Workers: 1}, rec)

	r.send(t, request.Request{Target: "before", Payload: "[S]"})
	r.send(t, request.Quit())

	if err := r.wait(t); err != nil {
		t.Fatalf("Run = %v, want nil", err)
	}
	// The render queued ahead of quit was taken first.
	if n := rec.Len(); n != 1 {
		t.Errorf("calls = %d, want 1", n)
	}
	if _, err := net.DialTimeout("tcp", r.addr, time.Second); err == nil {
		t.Error("listener still accepting after quit")
	}
	if r.srv.Shutdown("again") {
		t.Error("second Shutdown reported a transition")
	}
}

func TestServerDoubleQuit(t *testing.T) {
	rec := rendertest.NewRecorder()
	rec.Block = make(chan struct{})
	r := startServer(t, Config{Workers: 3}, rec)

	// Hold one worker so both quits are queued behind a render.
	r.send(t, request.Request{Target: "slow", Payload: "[S]"})
	eventually(t, "render in flight", func() bool { return r.srv.Stats().InFlight == 1 })
	r.send(t, request.Quit())
	r.send(t, request.Quit())

	<-r.srv.Done()
	close(rec.Block)
	if err := r.wait(t); err != nil {
		t.Fatalf("Run = %v, want nil", err)
	}
	if got := r.srv.State(); got != control.ShuttingDown {
		t.Errorf("state = %s", got)
	}
}

func TestServerWaitsForInFlightRender(t *testing.T) {
	rec := rendertest.NewRecorder()
	rec.Block = make(chan struct{})
	r := startServer(t, Config{Workers: 2}, rec)

	r.send(t, request.Request{Target: "slow", Payload: "[S]"})
	eventually(t, "render in flight", func() bool { return r.srv.Stats().InFlight == 1 })
	r.send(t, request.Quit())
	<-r.srv.Done()

	select {
	case <-r.errc:
		t.Fatal("Run returned while a render was in flight")
	case <-time.After(100 * time.Millisecond):
	}

	close(rec.Block)
	if err := r.wait(t); err != nil {
		t.Fatalf("Run = %v", err)
	}
	if n := rec.Len(); n != 1 {
		t.Errorf("calls = %d, want 1", n)
	}
}

func TestServerContextCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	r := startServerCtx(t, ctx, Config{}, rendertest.NewRecorder())

	cancel()
	if err := r.wait(t); err != nil {
		t.Fatalf("Run = %v", err)
	}
	if reason := r.srv.plane.Reason(); reason != "signal" {
		t.Errorf("reason = %q, want signal", reason)
	}
}

func TestServerDecodeErrorsAreConnectionScoped(t *testing.T) {
	rec := rendertest.NewRecorder()
	r := startServer(t, Config{Workers: 1}, rec)

	tests := []struct {
		name string
		raw  string
	}{
		{"truncated", "target\x00payload"},
		{"empty target", "\x00payload\x00"},
		{"empty payload", "target\x00\x00"},
		{"nothing", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r.sendRaw(t, tt.raw)
		})
	}
	r.send(t, request.Request{Target: "good", Payload: "[S]"})

	if !rec.WaitFor(1, waitTimeout) {
		t.Fatal("valid request after bad ones was not rendered")
	}
	eventually(t, "rejections counted", func() bool {
		return r.srv.Stats().Rejected == uint64(len(tests))
	})
	if calls := rec.Calls(); len(calls) != 1 || calls[0].Target != "good" {
		t.Errorf("calls = %+v", calls)
	}
}

func TestServerReadTimeout(t *testing.T) {
	r := startServer(t, Config{ReadTimeout: 50 * time.Millisecond}, rendertest.NewRecorder())

	conn, err := net.Dial("tcp", r.addr)
	if err != nil {
		t.Fatal(err)
	}
	defer conn.Close()
	if _, err := io.WriteString(conn, "no terminator"); err != nil {
		t.Fatal(err)
	}

	eventually(t, "stalled connection dropped", func() bool {
		return r.srv.Stats().Rejected == 1
	})
}

func TestServerQuitClosesIdleConnections(t *testing.T) {
	tests := []struct {
		name        string
		readTimeout time.Duration
	}{
		{"no read timeout", 0},
		{"long read timeout", DefaultReadTimeout},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := startServer(t, Config{ReadTimeout: tt.readTimeout}, rendertest.NewRecorder())

			idle, err := net.Dial("tcp", r.addr)
			if err != nil {
				t.Fatal(err)
			}
			defer idle.Close()
			eventually(t, "idle connection tracked", func() bool { return r.srv.Stats().Conns == 1 })

			start := time.Now()
			r.send(t, request.Quit())
			if err := r.wait(t); err != nil {
				t.Fatalf("Run = %v, want nil", err)
			}
			if elapsed := time.Since(start); elapsed > time.Second {
				t.Errorf("Run returned after %s with an idle peer", elapsed)
			}

			// The server closed its end.
			_ = idle.SetReadDeadline(time.Now().Add(time.Second))
			if _, err := idle.Read(make([]byte, 1)); err == nil {
				t.Error("idle connection still open after shutdown")
			}
			if n := r.srv.Stats().Rejected; n != 0 {
				t.Errorf("Rejected = %d, want 0", n)
			}
		})
	}
}

func TestServerRenderFailureKeepsWorker(t *testing.T) {
	rec := rendertest.NewRecorder()
	rec.Err = errors.New(errors.ErrCodeRenderFailure, "backend exited 1")
	r := startServer(t, Config{Workers: 1}, rec)

	r.send(t, request.Request{Target: "a", Payload: "[S"})
	r.send(t, request.Request{Target: "b", Payload: "[S"})

	if !rec.WaitFor(2, waitTimeout) {
		t.Fatalf("calls = %d, want 2", rec.Len())
	}
	eventually(t, "failures counted", func() bool { return r.srv.Stats().Failed == 2 })
	if got := r.srv.State(); got != control.Running {
		t.Errorf("state = %s, want running", got)
	}
}

func TestServerStats(t *testing.T) {
	r := startServer(t, Config{Workers: 3, QueueCapacity: 100}, rendertest.NewRecorder())

	s := r.srv.Stats()
	if s.Workers != 3 {
		t.Errorf("Workers = %d, want 3", s.Workers)
	}
	if s.Queue.Capacity != 128 {
		t.Errorf("Queue.Capacity = %d, want 128", s.Queue.Capacity)
	}
	if s.State != "running" {
		t.Errorf("State = %q", s.State)
	}
	if s.Addr != r.addr {
		t.Errorf("Addr = %q, want %q", s.Addr, r.addr)
	}
}

func TestListenRejectsNonLoopback(t *testing.T) {
	srv := New(Config{Addr: "0.0.0.0:0"}, rendertest.NewRecorder(), quietLogger())
	err := srv.Listen()
	if !errors.Is(err, errors.ErrCodeListenBind) {
		t.Fatalf("Listen = %v, want LISTEN_BIND_FAILURE", err)
	}
}

func TestListenBindFailure(t *testing.T) {
	taken, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}
	defer taken.Close()

	srv := New(Config{Addr: taken.Addr().String()}, rendertest.NewRecorder(), quietLogger())
	err = srv.Run(context.Background())
	if !errors.Is(err, errors.ErrCodeListenBind) {
		t.Fatalf("Run = %v, want LISTEN_BIND_FAILURE", err)
	}
	if !errors.IsFatal(err) {
		t.Error("bind failure should be fatal")
	}
}

func TestAcceptFailureIsFatal(t *testing.T) {
	srv := New(Config{Addr: "127.0.0.1:0", Workers: 1}, rendertest.NewRecorder(), quietLogger())
	if err := srv.Listen(); err != nil {
		t.Fatal(err)
	}
	errc := make(chan error, 1)
	go func() { errc <- srv.Run(context.Background()) }()

	// Closing the socket behind the control plane's back is an accept failure.
	eventually(t, "accept loop running", func() bool {
		c, err := net.Dial("tcp", srv.Addr())
		if err == nil {
			c.Close()
		}
		return err == nil
	})
	srv.mu.Lock()
	srv.listener.Close()
	srv.mu.Unlock()

	select {
	case err := <-errc:
		if !errors.Is(err, errors.ErrCodeAccept) {
			t.Fatalf("Run = %v, want ACCEPT_FAILURE", err)
		}
	case <-time.After(waitTimeout):
		t.Fatal("Run did not return")
	}
}
