package render

import (
	"context"
	"os"
	"time"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/graphwriter/pkg/cache"
	"github.com/matzehuels/graphwriter/pkg/errors"
	"github.com/matzehuels/graphwriter/pkg/observability"
)

// Cache key types reported to observability hooks.
const (
	keyTypeSyntaxTree = "syntax-tree"
	keyTypeGraph      = "graph"
)

// CacheOptions configures a [Cached] backend.
type CacheOptions struct {
	// Keyer derives artifact keys. Nil uses cache.DefaultKeyer.
	Keyer cache.Keyer
	// TTL of stored artifacts. Zero never expires.
	TTL time.Duration
	// SyntaxTreeStem and GraphStem map a target to the path stem the inner
	// renderer writes to, e.g. [SyntaxTreeBackend.Stem]. Nil leaves targets
	// unchanged.
	SyntaxTreeStem func(target string) string
	GraphStem      func(target string) string
}

func resolveStem(fn func(string) string, target string) string {
	if fn == nil {
		return target
	}
	return fn(target)
}

// CachedBackend serves repeated renders from an artifact cache.
// Cache errors are logged and fall through to the inner backend.
type CachedBackend struct {
	inner  Backend
	cache  cache.Cache
	opts   CacheOptions
	logger *log.Logger
}

// Cached wraps inner with the artifact cache c.
func Cached(inner Backend, c cache.Cache, opts CacheOptions, logger *log.Logger) *CachedBackend {
	if opts.Keyer == nil {
		opts.Keyer = cache.NewDefaultKeyer()
	}
	if logger == nil {
		logger = log.Default()
	}
	return &CachedBackend{inner: inner, cache: c, opts: opts, logger: logger}
}

// RenderSyntaxTree renders payload, reusing a cached image for identical payloads.
func (b *CachedBackend) RenderSyntaxTree(ctx context.Context, target, payload string) error {
	key := b.opts.Keyer.ArtifactKey(keyTypeSyntaxTree, []byte(payload))
	out := pngPath(resolveStem(b.opts.SyntaxTreeStem, target))
	return b.through(ctx, keyTypeSyntaxTree, key, out, func() error {
		return b.inner.RenderSyntaxTree(ctx, target, payload)
	})
}

// RenderGraph renders <target>.dot, reusing a cached image for identical sources.
func (b *CachedBackend) RenderGraph(ctx context.Context, target string) error {
	stem := resolveStem(b.opts.GraphStem, target)
	src, err := os.ReadFile(dotPath(stem))
	if err != nil {
		// Let the inner backend report the missing source.
		return b.inner.RenderGraph(ctx, target)
	}
	key := b.opts.Keyer.ArtifactKey(keyTypeGraph, src)
	return b.through(ctx, keyTypeGraph, key, pngPath(stem), func() error {
		return b.inner.RenderGraph(ctx, target)
	})
}

func (b *CachedBackend) through(ctx context.Context, keyType, key, out string, render func() error) error {
	hooks := observability.Cache()

	data, ok, err := b.cache.Get(ctx, key)
	if err != nil {
		b.logger.Warn("artifact cache read failed", "key", key, "err", err)
	}
	if ok {
		hooks.OnCacheHit(ctx, keyType)
		if err := os.WriteFile(out, data, 0o644); err != nil {
			return errors.Wrap(errors.ErrCodeRenderFailure, err, "write cached image")
		}
		b.logger.Debug("served from cache", "path", out, "bytes", len(data))
		return nil
	}
	hooks.OnCacheMiss(ctx, keyType)

	if err := render(); err != nil {
		return err
	}

	data, err = os.ReadFile(out)
	if err != nil {
		// The backend succeeded but wrote elsewhere; nothing to cache.
		b.logger.Debug("rendered image not found for caching", "path", out, "err", err)
		return nil
	}
	if err := b.cache.Set(ctx, key, data, b.opts.TTL); err != nil {
		b.logger.Warn("artifact cache write failed", "key", key, "err", err)
		return nil
	}
	hooks.OnCacheSet(ctx, keyType, len(data))
	return nil
}

var _ Backend = (*CachedBackend)(nil)
