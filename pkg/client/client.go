// Package client talks to a running graphwriter service.
//
// Every call opens a fresh loopback connection, writes one request, and
// closes it. The service never answers, so a successful call only means the
// bytes were handed to the socket.
//
//	c := client.New(client.Options{})
//	if err := c.EnsureRunning(ctx); err != nil {
//	    return err
//	}
//	err := c.Submit(ctx, "/tmp/tree", "[S [NP graphwriter] [VP renders]]")
package client

import (
	"context"
	"net"
	"time"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/graphwriter/pkg/errors"
	"github.com/matzehuels/graphwriter/pkg/request"
)

// Defaults used when the corresponding Options field is zero.
const (
	DefaultAddr        = "127.0.0.1:14446"
	DefaultDialTimeout = 2 * time.Second
	DefaultStartDelay  = 5 * time.Second
)

// Launcher starts a service process without waiting for it.
type Launcher func(ctx context.Context) error

// Options configures a Client.
type Options struct {
	Addr        string
	DialTimeout time.Duration
	// StartDelay is how long EnsureRunning waits after launching the service.
	StartDelay time.Duration
	// Launch starts the service. Nil uses LaunchSelf("serve").
	Launch Launcher
	Logger *log.Logger
}

// Client is a handle on one service address.
type Client struct {
	addr        string
	dialTimeout time.Duration
	startDelay  time.Duration
	launch      Launcher
	logger      *log.Logger
}

// New creates a client, filling unset options with defaults.
func New(opts Options) *Client {
	c := &Client{
		addr:        opts.Addr,
		dialTimeout: opts.DialTimeout,
		startDelay:  opts.StartDelay,
		launch:      opts.Launch,
		logger:      opts.Logger,
	}
	if c.addr == "" {
		c.addr = DefaultAddr
	}
	if c.dialTimeout <= 0 {
		c.dialTimeout = DefaultDialTimeout
	}
	if c.startDelay < 0 {
		c.startDelay = 0
	}
	if c.launch == nil {
		c.launch = LaunchSelf("serve", "--addr", c.addr)
	}
	if c.logger == nil {
		c.logger = log.Default()
	}
	return c
}

// Addr returns the service address.
func (c *Client) Addr() string { return c.addr }

// Probe reports whether the service accepts connections. It sends an
// "ignore" request, which the service discards.
func (c *Client) Probe(ctx context.Context) bool {
	err := c.send(ctx, request.Ignore())
	if err != nil {
		c.logger.Debug("probe failed", "addr", c.addr, "err", err)
		return false
	}
	return true
}

// EnsureRunning launches the service if Probe fails, then waits StartDelay
// for it to come up. It does not probe again afterwards.
func (c *Client) EnsureRunning(ctx context.Context) error {
	if c.Probe(ctx) {
		return nil
	}
	c.logger.Info("service not running, starting it", "addr", c.addr)
	if err := c.launch(ctx); err != nil {
		return errors.Wrap(errors.ErrCodeUnavailable, err, "start service")
	}

	t := time.NewTimer(c.startDelay)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Submit sends one render job. The reserved targets "quit" and "ignore" are
// rejected; use RequestShutdown or Probe for those.
func (c *Client) Submit(ctx context.Context, target, payload string) error {
	if err := errors.ValidateTarget(target); err != nil {
		return err
	}
	req, err := request.New(target, payload)
	if err != nil {
		return err
	}
	if req.IsControl() {
		return errors.New(errors.ErrCodeInvalidRequest,
			"target %q is reserved; use RequestShutdown or Probe", target)
	}
	c.logger.Info("submitting", "target", target, "payload", request.Abbrev(payload))
	return c.send(ctx, req)
}

// SubmitGraph asks the service to render <target>.dot.
func (c *Client) SubmitGraph(ctx context.Context, target string) error {
	return c.Submit(ctx, target, request.GraphvizMarker)
}

// RequestShutdown sends "quit". The service stops after every job queued
// before it has been taken; use WaitStopped to observe that.
func (c *Client) RequestShutdown(ctx context.Context) error {
	c.logger.Info("requesting shutdown", "addr", c.addr)
	return c.send(ctx, request.Quit())
}

// WaitStopped polls Probe every interval until it fails or ctx ends.
func (c *Client) WaitStopped(ctx context.Context, interval time.Duration) error {
	if interval <= 0 {
		interval = 100 * time.Millisecond
	}
	tick := time.NewTicker(interval)
	defer tick.Stop()
	for {
		if !c.Probe(ctx) {
			return nil
		}
		select {
		case <-tick.C:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

func (c *Client) send(ctx context.Context, req request.Request) error {
	d := net.Dialer{Timeout: c.dialTimeout}
	conn, err := d.DialContext(ctx, "tcp", c.addr)
	if err != nil {
		return errors.Wrap(errors.ErrCodeUnavailable, err, "connect to %s", c.addr)
	}
	defer conn.Close()

	if deadline, ok := ctx.Deadline(); ok {
		_ = conn.SetWriteDeadline(deadline)
	}
	if err := request.Encode(conn, req); err != nil {
		return errors.Wrap(errors.ErrCodeUnavailable, err, "send to %s", c.addr)
	}
	return nil
}
