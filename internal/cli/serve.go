package cli

import (
	"context"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/matzehuels/graphwriter/pkg/admin"
	"github.com/matzehuels/graphwriter/pkg/metrics"
	"github.com/matzehuels/graphwriter/pkg/observability"
	"github.com/matzehuels/graphwriter/pkg/server"
)

func (c *CLI) serveCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the render service in the foreground",
		Long: `Run the render service in the foreground until it receives a quit request,
SIGINT, or SIGTERM. Jobs already being rendered are allowed to finish.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return c.runServe(cmd.Context())
		},
	}
}

func (c *CLI) runServe(ctx context.Context) error {
	logger := loggerFromContext(ctx)

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	observability.SetServerHooks(metrics.NewServerHooks(reg))
	observability.SetCacheHooks(metrics.NewCacheHooks(reg))
	defer observability.Reset()

	backend, closeBackend, err := newBackend(ctx, c.cfg, logger)
	if err != nil {
		return err
	}
	defer func() {
		if err := closeBackend(); err != nil {
			logger.Warn("closing artifact cache", "err", err)
		}
	}()

	srv := server.New(serverConfig(c.cfg), backend, logger)
	if err := srv.Listen(); err != nil {
		return err
	}
	prog := newProgress(logger)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return srv.Run(gctx)
	})
	if addr := c.cfg.Admin.Address; addr != "" {
		g.Go(func() error {
			adminCtx, cancel := context.WithCancel(gctx)
			defer cancel()
			go func() {
				select {
				case <-srv.Done():
				case <-adminCtx.Done():
				}
				cancel()
			}()
			return admin.Serve(adminCtx, addr, admin.NewRouter(srv, reg, logger), logger)
		})
	}

	err = g.Wait()
	prog.done("service stopped")
	return err
}
