// Package cli implements the graphwriter command-line interface.
package cli

import (
	"context"
	"io"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"github.com/matzehuels/graphwriter/pkg/buildinfo"
	"github.com/matzehuels/graphwriter/pkg/cache"
	"github.com/matzehuels/graphwriter/pkg/client"
	"github.com/matzehuels/graphwriter/pkg/config"
	"github.com/matzehuels/graphwriter/pkg/render"
	"github.com/matzehuels/graphwriter/pkg/server"
)

// =============================================================================
// Constants
// =============================================================================

const appName = "graphwriter"

// Log levels exported for use in main.go.
const (
	LogDebug = log.DebugLevel
	LogInfo  = log.InfoLevel
)

// =============================================================================
// CLI - Central CLI State
// =============================================================================

// CLI holds shared state for all commands.
type CLI struct {
	Logger *log.Logger

	configPath string // --config
	addr       string // --addr
	cfg        config.Config
	cfgSource  string
}

// New creates a new CLI instance with a default logger.
func New(w io.Writer, level log.Level) *CLI {
	return &CLI{
		Logger: newLogger(w, level),
		cfg:    config.Default(),
	}
}

// SetLogLevel updates the logger's level.
func (c *CLI) SetLogLevel(level log.Level) {
	c.Logger.SetLevel(level)
}

// RootCommand creates the root cobra command with all subcommands registered.
func (c *CLI) RootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:   appName,
		Short: "graphwriter renders syntax trees and graphs in a local background service",
		Long: `graphwriter runs a loopback service that queues render jobs and hands them
to a pool of workers. Syntax trees are rendered by an external labeled-tree
renderer; graphs are rendered from <target>.dot with Graphviz.`,
		Version:       buildinfo.Version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return c.loadConfig(cmd)
		},
	}

	root.SetVersionTemplate(buildinfo.Template())
	root.PersistentFlags().StringVar(&c.configPath, "config", "", "config file (default $XDG_CONFIG_HOME/graphwriter/config.toml)")
	root.PersistentFlags().StringVar(&c.addr, "addr", "", "service address (overrides listen.address)")

	root.AddCommand(c.serveCommand())
	root.AddCommand(c.submitCommand())
	root.AddCommand(c.probeCommand())
	root.AddCommand(c.startCommand())
	root.AddCommand(c.stopCommand())
	root.AddCommand(c.configCommand())
	root.AddCommand(c.completionCommand())

	return root
}

// loadConfig reads the configuration file and applies flag overrides.
func (c *CLI) loadConfig(cmd *cobra.Command) error {
	cfg, path, err := config.Load(c.configPath)
	if err != nil {
		return err
	}
	if c.addr != "" {
		cfg.Listen.Address = c.addr
		if err := cfg.Validate(); err != nil {
			return err
		}
	}
	c.cfg = cfg
	c.cfgSource = path
	c.SetLogLevel(cfg.LogLevel())

	cmd.SetContext(withLogger(cmd.Context(), c.Logger))
	c.Logger.Debug("configuration loaded", "path", path)
	return nil
}

// =============================================================================
// Factories
// =============================================================================

// serverConfig maps the configuration file onto server settings.
func serverConfig(cfg config.Config) server.Config {
	return server.Config{
		Addr:          cfg.Listen.Address,
		ReadTimeout:   cfg.Listen.ReadTimeout.Std(),
		QueueCapacity: cfg.Queue.Capacity,
		Workers:       cfg.Workers.Count,
		Reserved:      cfg.Workers.Reserved,
	}
}

// newClient creates a client whose launcher re-runs this binary with the
// same configuration.
func (c *CLI) newClient(logger *log.Logger) *client.Client {
	args := []string{"serve", "--addr", c.cfg.Listen.Address}
	if c.configPath != "" {
		args = append(args, "--config", c.configPath)
	}
	return client.New(client.Options{
		Addr:        c.cfg.Listen.Address,
		DialTimeout: c.cfg.Client.DialTimeout.Std(),
		StartDelay:  c.cfg.Client.StartDelay.Std(),
		Launch:      client.LaunchSelf(args...),
		Logger:      logger,
	})
}

// newBackend builds the render backend described by cfg. The returned close
// function releases the artifact cache, if any.
func newBackend(ctx context.Context, cfg config.Config, logger *log.Logger) (render.Backend, func() error, error) {
	r := cfg.Render
	tree := render.NewSyntaxTreeBackend(render.SyntaxTreeConfig{
		Command: r.SyntaxTree.Command,
		Args:    r.SyntaxTree.Args,
		Dir:     r.SyntaxTree.Dir,
		WorkDir: r.WorkDir,
		Timeout: r.Timeout.Std(),
	}, logger)

	var (
		graph     render.GraphRenderer
		graphID   string
		graphStem func(string) string
		noop      = func() error { return nil }
		backend   render.Backend
		artifact  cache.Cache
		err       error
	)
	switch r.Graph.Engine {
	case config.EngineEmbedded:
		b := render.NewEmbeddedGraphBackend(r.WorkDir, logger)
		graph, graphID, graphStem = b, b.Identity(), b.Stem
	default:
		b := render.NewDotBackend(render.DotConfig{
			Command: r.Graph.Command,
			Layout:  r.Graph.Layout,
			WorkDir: r.WorkDir,
			Timeout: r.Timeout.Std(),
		}, logger)
		graph, graphID, graphStem = b, b.Identity(), b.Stem
	}
	backend = render.Combine(tree, graph)

	artifact, err = newCache(ctx, cfg.Cache)
	if err != nil {
		return nil, noop, err
	}
	if _, ok := artifact.(*cache.NullCache); ok {
		return backend, artifact.Close, nil
	}

	// Changing either renderer invalidates earlier artifacts.
	keyer := cache.NewScopedKeyer(nil, strings.Join([]string{tree.Identity(), graphID}, "|")+":")
	cached := render.Cached(backend, artifact, render.CacheOptions{
		Keyer:          keyer,
		TTL:            cfg.Cache.TTL.Std(),
		SyntaxTreeStem: tree.Stem,
		GraphStem:      graphStem,
	}, logger)
	logger.Info("artifact cache enabled", "backend", cfg.Cache.Backend)
	return cached, artifact.Close, nil
}

// newCache opens the configured artifact cache. It returns a NullCache when
// caching is disabled.
func newCache(ctx context.Context, cfg config.Cache) (cache.Cache, error) {
	switch cfg.Backend {
	case config.CacheFile:
		return cache.NewFileCache(cfg.Dir)
	case config.CacheRedis:
		return cache.NewRedisCache(ctx, cache.RedisConfig{Addr: cfg.RedisAddr})
	}
	return cache.NewNullCache(), nil
}
