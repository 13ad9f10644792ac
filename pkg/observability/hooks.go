// Package observability provides hooks for metrics and tracing.
//
// This package enables optional instrumentation without adding hard dependencies
// on specific observability backends. Consumers register hooks at startup to
// receive events about connection intake, dispatch, rendering, and cache use.
//
// # Architecture
//
// The package uses a simple hooks pattern:
//   - Define hook interfaces for different event categories
//   - Provide no-op default implementations
//   - Allow registration of custom implementations at startup
//
// The prometheus implementation lives in pkg/metrics and is registered by
// the serve command.
//
// # Usage
//
// Register hooks at application startup:
//
//	func main() {
//	    observability.SetServerHooks(metrics.NewServerHooks(reg))
//	    observability.SetCacheHooks(metrics.NewCacheHooks(reg))
//	    // ... run the service
//	}
//
// Libraries call hooks to emit events:
//
//	observability.Server().OnDispatch(ctx, kind)
//	// ... render ...
//	observability.Server().OnRenderComplete(ctx, kind, duration, err)
package observability

import (
	"context"
	"sync"
	"time"
)

// =============================================================================
// Server Hooks
// =============================================================================

// ServerHooks receives events from the acceptor and the worker pool.
type ServerHooks interface {
	// Intake events
	OnAccept(ctx context.Context, remote string)
	OnDecodeError(ctx context.Context, remote string, err error)
	OnEnqueue(ctx context.Context, kind string, wait time.Duration)

	// Dispatch events
	OnDispatch(ctx context.Context, kind string)
	OnDrop(ctx context.Context, kind string)
	OnRenderComplete(ctx context.Context, kind string, duration time.Duration, err error)
}

// =============================================================================
// Cache Hooks
// =============================================================================

// CacheHooks receives events from cache operations.
type CacheHooks interface {
	// OnCacheHit records a cache hit.
	OnCacheHit(ctx context.Context, keyType string)

	// OnCacheMiss records a cache miss.
	OnCacheMiss(ctx context.Context, keyType string)

	// OnCacheSet records a cache write.
	OnCacheSet(ctx context.Context, keyType string, size int)
}

// =============================================================================
// No-op Implementations
// =============================================================================

// NoopServerHooks is a no-op implementation of ServerHooks.
type NoopServerHooks struct{}

func (NoopServerHooks) OnAccept(context.Context, string)                                {}
func (NoopServerHooks) OnDecodeError(context.Context, string, error)                    {}
func (NoopServerHooks) OnEnqueue(context.Context, string, time.Duration)                {}
func (NoopServerHooks) OnDispatch(context.Context, string)                              {}
func (NoopServerHooks) OnDrop(context.Context, string)                                  {}
func (NoopServerHooks) OnRenderComplete(context.Context, string, time.Duration, error) {}

// NoopCacheHooks is a no-op implementation of CacheHooks.
type NoopCacheHooks struct{}

func (NoopCacheHooks) OnCacheHit(context.Context, string)      {}
func (NoopCacheHooks) OnCacheMiss(context.Context, string)     {}
func (NoopCacheHooks) OnCacheSet(context.Context, string, int) {}

// =============================================================================
// Global Hook Registry
// =============================================================================

var (
	serverHooks ServerHooks = NoopServerHooks{}
	cacheHooks  CacheHooks  = NoopCacheHooks{}
	hooksMu     sync.RWMutex
)

// SetServerHooks registers custom server hooks.
// This should be called once at application startup before the server runs.
func SetServerHooks(h ServerHooks) {
	hooksMu.Lock()
	defer hooksMu.Unlock()
	if h != nil {
		serverHooks = h
	}
}

// SetCacheHooks registers custom cache hooks.
// This should be called once at application startup before any cache operations.
func SetCacheHooks(h CacheHooks) {
	hooksMu.Lock()
	defer hooksMu.Unlock()
	if h != nil {
		cacheHooks = h
	}
}

// Server returns the registered server hooks.
func Server() ServerHooks {
	hooksMu.RLock()
	defer hooksMu.RUnlock()
	return serverHooks
}

// Cache returns the registered cache hooks.
func Cache() CacheHooks {
	hooksMu.RLock()
	defer hooksMu.RUnlock()
	return cacheHooks
}

// Reset restores all hooks to their no-op defaults.
// This is primarily useful for testing.
func Reset() {
	hooksMu.Lock()
	defer hooksMu.Unlock()
	serverHooks = NoopServerHooks{}
	cacheHooks = NoopCacheHooks{}
}
