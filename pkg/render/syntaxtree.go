package render

import (
	"context"
	"path/filepath"
	"time"

	"github.com/charmbracelet/log"
)

// SyntaxTreeConfig configures the syntax-tree backend.
type SyntaxTreeConfig struct {
	// Command is the program to run, e.g. "php".
	Command string
	// Args precede the output path and payload, e.g. ["graph.php"].
	Args []string
	// Dir is the working directory of the process.
	Dir string
	// WorkDir resolves relative targets. Empty resolves them against Dir.
	WorkDir string
	// Timeout bounds one invocation. Zero means no bound.
	Timeout time.Duration
}

// SyntaxTreeBackend runs an external labeled-tree renderer as
//
//	<command> <args...> <target>.png <payload>
type SyntaxTreeBackend struct {
	cfg    SyntaxTreeConfig
	logger *log.Logger
}

// NewSyntaxTreeBackend creates a syntax-tree backend.
func NewSyntaxTreeBackend(cfg SyntaxTreeConfig, logger *log.Logger) *SyntaxTreeBackend {
	if logger == nil {
		logger = log.Default()
	}
	return &SyntaxTreeBackend{cfg: cfg, logger: logger}
}

// RenderSyntaxTree renders payload to <target>.png.
func (b *SyntaxTreeBackend) RenderSyntaxTree(ctx context.Context, target, payload string) error {
	target = b.Stem(target)

	args := make([]string, 0, len(b.cfg.Args)+2)
	args = append(args, b.cfg.Args...)
	args = append(args, pngPath(target), payload)

	return process{
		name:    b.cfg.Command,
		args:    args,
		dir:     b.cfg.Dir,
		timeout: b.cfg.Timeout,
		logger:  b.logger.With("target", target),
	}.run(ctx)
}

// Stem returns the path the backend writes <stem>.png to for target. A
// relative target resolves against WorkDir, or against Dir when WorkDir is
// empty, because the process runs in Dir.
func (b *SyntaxTreeBackend) Stem(target string) string {
	if b.cfg.WorkDir != "" {
		return resolveTarget(b.cfg.WorkDir, target)
	}
	dir := b.cfg.Dir
	if abs, err := filepath.Abs(dir); err == nil && dir != "" {
		dir = abs
	}
	return resolveTarget(dir, target)
}

// Identity names the backend configuration for cache scoping.
func (b *SyntaxTreeBackend) Identity() string {
	return identity(b.cfg.Command, b.cfg.Args)
}

var _ SyntaxTreeRenderer = (*SyntaxTreeBackend)(nil)
