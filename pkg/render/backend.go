package render

import (
	"context"
	"path/filepath"
)

// SyntaxTreeRenderer renders a labeled tree to <target>.png.
type SyntaxTreeRenderer interface {
	RenderSyntaxTree(ctx context.Context, target, payload string) error
}

// GraphRenderer renders <target>.dot to <target>.png.
type GraphRenderer interface {
	RenderGraph(ctx context.Context, target string) error
}

// Backend is the full render interface the dispatcher calls into.
type Backend interface {
	SyntaxTreeRenderer
	GraphRenderer
}

type combined struct {
	SyntaxTreeRenderer
	GraphRenderer
}

// Combine joins independent syntax-tree and graph renderers into a Backend.
func Combine(tree SyntaxTreeRenderer, graph GraphRenderer) Backend {
	return combined{SyntaxTreeRenderer: tree, GraphRenderer: graph}
}

// Output paths derived from a target stem.
func pngPath(target string) string { return target + ".png" }
func dotPath(target string) string { return target + ".dot" }

// resolveTarget makes a relative target absolute against workDir, so the
// output location does not depend on the backend's working directory.
// An empty workDir leaves the target unchanged.
func resolveTarget(workDir, target string) string {
	if workDir == "" || filepath.IsAbs(target) {
		return target
	}
	return filepath.Join(workDir, target)
}
