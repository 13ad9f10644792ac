package render

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/goccy/go-graphviz"

	"github.com/matzehuels/graphwriter/pkg/errors"
)

// DotConfig configures the Graphviz command-line backend.
type DotConfig struct {
	// Command defaults to "dot".
	Command string
	// Layout optionally selects a layout engine (-K), e.g. "neato".
	Layout string
	// WorkDir resolves relative targets. Empty leaves them as given.
	WorkDir string
	// Timeout bounds one invocation. Zero means no bound.
	Timeout time.Duration
}

// DotBackend runs Graphviz as
//
//	dot -Tpng <target>.dot -o <target>.png
type DotBackend struct {
	cfg    DotConfig
	logger *log.Logger
}

// NewDotBackend creates a Graphviz command-line backend.
func NewDotBackend(cfg DotConfig, logger *log.Logger) *DotBackend {
	if cfg.Command == "" {
		cfg.Command = "dot"
	}
	if logger == nil {
		logger = log.Default()
	}
	return &DotBackend{cfg: cfg, logger: logger}
}

// RenderGraph renders <target>.dot to <target>.png.
func (b *DotBackend) RenderGraph(ctx context.Context, target string) error {
	target = b.Stem(target)

	args := []string{"-Tpng"}
	if b.cfg.Layout != "" {
		args = append(args, "-K"+b.cfg.Layout)
	}
	args = append(args, dotPath(target), "-o", pngPath(target))

	return process{
		name:    b.cfg.Command,
		args:    args,
		timeout: b.cfg.Timeout,
		logger:  b.logger.With("target", target),
	}.run(ctx)
}

// Stem returns the path stem of the files read and written for target.
func (b *DotBackend) Stem(target string) string {
	return resolveTarget(b.cfg.WorkDir, target)
}

// Identity names the backend configuration for cache scoping.
func (b *DotBackend) Identity() string {
	return identity(b.cfg.Command, []string{b.cfg.Layout})
}

// EmbeddedGraphBackend renders DOT in-process with go-graphviz.
type EmbeddedGraphBackend struct {
	workDir string
	logger  *log.Logger
}

// NewEmbeddedGraphBackend creates an in-process graph backend.
func NewEmbeddedGraphBackend(workDir string, logger *log.Logger) *EmbeddedGraphBackend {
	if logger == nil {
		logger = log.Default()
	}
	return &EmbeddedGraphBackend{workDir: workDir, logger: logger}
}

// RenderGraph renders <target>.dot to <target>.png.
func (b *EmbeddedGraphBackend) RenderGraph(ctx context.Context, target string) error {
	target = b.Stem(target)

	src, err := os.ReadFile(dotPath(target))
	if err != nil {
		return errors.Wrap(errors.ErrCodeRenderFailure, err, "read graph source")
	}

	png, err := RenderDOT(ctx, src)
	if err != nil {
		return errors.Wrap(errors.ErrCodeRenderFailure, err, "render %s", dotPath(target))
	}

	if err := os.WriteFile(pngPath(target), png, 0o644); err != nil {
		return errors.Wrap(errors.ErrCodeRenderFailure, err, "write image")
	}
	b.logger.Debug("rendered graph in-process", "target", target, "bytes", len(png))
	return nil
}

// Stem returns the path stem of the files read and written for target.
func (b *EmbeddedGraphBackend) Stem(target string) string {
	return resolveTarget(b.workDir, target)
}

// Identity names the backend configuration for cache scoping.
func (b *EmbeddedGraphBackend) Identity() string {
	return "go-graphviz"
}

// RenderDOT renders DOT source to PNG bytes using Graphviz compiled to WebAssembly.
func RenderDOT(ctx context.Context, dot []byte) ([]byte, error) {
	gv, err := graphviz.New(ctx)
	if err != nil {
		return nil, fmt.Errorf("init graphviz: %w", err)
	}
	defer gv.Close()

	g, err := graphviz.ParseBytes(dot)
	if err != nil {
		return nil, fmt.Errorf("parse DOT: %w", err)
	}
	defer g.Close()

	var buf bytes.Buffer
	if err := gv.Render(ctx, g, graphviz.PNG, &buf); err != nil {
		return nil, fmt.Errorf("render: %w", err)
	}
	return buf.Bytes(), nil
}

func identity(command string, args []string) string {
	return command + " " + strings.TrimSpace(strings.Join(args, " "))
}

var (
	_ GraphRenderer = (*DotBackend)(nil)
	_ GraphRenderer = (*EmbeddedGraphBackend)(nil)
)
