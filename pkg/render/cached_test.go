package render

import (
	"context"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"

	"github.com/matzehuels/graphwriter/pkg/cache"
)

// fileBackend writes a fixed image and counts invocations.
type fileBackend struct {
	dir   string
	image string
	calls atomic.Int32
}

func (f *fileBackend) RenderSyntaxTree(_ context.Context, target, payload string) error {
	f.calls.Add(1)
	return os.WriteFile(filepath.Join(f.dir, target+".png"), []byte(f.image+payload), 0o644)
}

func (f *fileBackend) RenderGraph(_ context.Context, target string) error {
	f.calls.Add(1)
	return os.WriteFile(filepath.Join(f.dir, target+".png"), []byte(f.image), 0o644)
}

func newCached(t *testing.T) (*CachedBackend, *fileBackend, string) {
	t.Helper()
	dir := t.TempDir()
	c, err := cache.NewFileCache(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	inner := &fileBackend{dir: dir, image: "img:"}
	in := func(target string) string { return filepath.Join(dir, target) }
	return Cached(inner, c, CacheOptions{SyntaxTreeStem: in, GraphStem: in}, nil), inner, dir
}

func TestCachedSyntaxTree(t *testing.T) {
	ctx := context.Background()
	b, inner, dir := newCached(t)

	if err := b.RenderSyntaxTree(ctx, "first", "[S]"); err != nil {
		t.Fatal(err)
	}
	if err := b.RenderSyntaxTree(ctx, "second", "[S]"); err != nil {
		t.Fatal(err)
	}
	if n := inner.calls.Load(); n != 1 {
		t.Errorf("inner calls = %d, want 1", n)
	}
	got, err := os.ReadFile(filepath.Join(dir, "second.png"))
	if err != nil {
		t.Fatal(err)
	}
	if string(got) != "img:[S]" {
		t.Errorf("cached image = %q", got)
	}

	if err := b.RenderSyntaxTree(ctx, "third", "[NP]"); err != nil {
		t.Fatal(err)
	}
	if n := inner.calls.Load(); n != 2 {
		t.Errorf("inner calls = %d after distinct payload, want 2", n)
	}
}

func TestCachedGraphKeyedBySource(t *testing.T) {
	ctx := context.Background()
	b, inner, dir := newCached(t)

	write := func(name, src string) {
		t.Helper()
		if err := os.WriteFile(filepath.Join(dir, name+".dot"), []byte(src), 0o644); err != nil {
			t.Fatal(err)
		}
	}
	write("a", "digraph { a -> b }")
	write("b", "digraph { a -> b }")
	write("c", "digraph { c }")

	for _, target := range []string{"a", "b", "c"} {
		if err := b.RenderGraph(ctx, target); err != nil {
			t.Fatalf("RenderGraph(%s): %v", target, err)
		}
	}
	if n := inner.calls.Load(); n != 2 {
		t.Errorf("inner calls = %d, want 2", n)
	}
	if _, err := os.Stat(filepath.Join(dir, "b.png")); err != nil {
		t.Errorf("cached graph not written: %v", err)
	}
}

func TestCachedGraphMissingSourcePassesThrough(t *testing.T) {
	b, inner, _ := newCached(t)
	_ = b.RenderGraph(context.Background(), "absent")
	if n := inner.calls.Load(); n != 1 {
		t.Errorf("inner calls = %d, want 1", n)
	}
}

func TestCachedSyntaxTreeFollowsRendererDir(t *testing.T) {
	requireShell(t)
	ctx := context.Background()
	rendererDir := t.TempDir()
	cwd := t.TempDir()
	t.Chdir(cwd)

	for _, name := range []string{"out.png", "out2.png"} {
		if err := os.WriteFile(filepath.Join(cwd, name), []byte("STALE"), 0o644); err != nil {
			t.Fatal(err)
		}
	}

	tree := NewSyntaxTreeBackend(SyntaxTreeConfig{
		Command: "sh",
		Args:    []string{"-c", `printf '%s' "$2" > "$1"`, "sh"},
		Dir:     rendererDir,
	}, nil)
	c, err := cache.NewFileCache(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	b := Cached(Combine(tree, nil), c, CacheOptions{SyntaxTreeStem: tree.Stem}, nil)

	read := func(path string) string {
		t.Helper()
		data, err := os.ReadFile(path)
		if err != nil {
			t.Fatalf("read %s: %v", path, err)
		}
		return string(data)
	}

	// Miss: the renderer writes under its own directory and that image is cached.
	if err := b.RenderSyntaxTree(ctx, "out", "[S A]"); err != nil {
		t.Fatal(err)
	}
	if got := read(filepath.Join(rendererDir, "out.png")); got != "[S A]" {
		t.Errorf("miss wrote %q, want %q", got, "[S A]")
	}

	// Hit: the cached image lands where a miss would have written it.
	if err := b.RenderSyntaxTree(ctx, "out2", "[S A]"); err != nil {
		t.Fatal(err)
	}
	if got := read(filepath.Join(rendererDir, "out2.png")); got != "[S A]" {
		t.Errorf("hit wrote %q, want %q", got, "[S A]")
	}
	if got := read(filepath.Join(cwd, "out2.png")); got != "STALE" {
		t.Errorf("working directory file changed to %q", got)
	}
}

func TestSyntaxTreeStem(t *testing.T) {
	tests := []struct {
		name   string
		cfg    SyntaxTreeConfig
		target string
		want   string
	}{
		{"work dir wins", SyntaxTreeConfig{Dir: "/php", WorkDir: "/work"}, "out", "/work/out"},
		{"falls back to dir", SyntaxTreeConfig{Dir: "/php"}, "out", "/php/out"},
		{"absolute target", SyntaxTreeConfig{Dir: "/php"}, "/tmp/out", "/tmp/out"},
		{"no dirs", SyntaxTreeConfig{}, "out", "out"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := NewSyntaxTreeBackend(tt.cfg, nil)
			if got := b.Stem(tt.target); got != filepath.FromSlash(tt.want) {
				t.Errorf("Stem(%q) = %q, want %q", tt.target, got, tt.want)
			}
		})
	}
}
