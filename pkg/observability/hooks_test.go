package observability

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestNoopHooksDoNotPanic(t *testing.T) {
	ctx := context.Background()

	// Server hooks
	s := NoopServerHooks{}
	s.OnAccept(ctx, "127.0.0.1:50000")
	s.OnDecodeError(ctx, "127.0.0.1:50000", errors.New("malformed"))
	s.OnEnqueue(ctx, "syntax-tree", time.Millisecond)
	s.OnDispatch(ctx, "graph")
	s.OnDrop(ctx, "graph")
	s.OnRenderComplete(ctx, "syntax-tree", time.Second, nil)

	// Cache hooks
	c := NoopCacheHooks{}
	c.OnCacheHit(ctx, "syntax-tree")
	c.OnCacheMiss(ctx, "graph")
	c.OnCacheSet(ctx, "graph", 1024)
}

func TestGlobalHooksRegistry(t *testing.T) {
	// Reset to known state
	Reset()

	if _, ok := Server().(NoopServerHooks); !ok {
		t.Error("Server() should return NoopServerHooks by default")
	}
	if _, ok := Cache().(NoopCacheHooks); !ok {
		t.Error("Cache() should return NoopCacheHooks by default")
	}

	customServer := &testServerHooks{}
	SetServerHooks(customServer)
	if Server() != customServer {
		t.Error("SetServerHooks should set custom hooks")
	}

	customCache := &testCacheHooks{}
	SetCacheHooks(customCache)
	if Cache() != customCache {
		t.Error("SetCacheHooks should set custom hooks")
	}

	// Reset and verify
	Reset()
	if _, ok := Server().(NoopServerHooks); !ok {
		t.Error("Reset() should restore NoopServerHooks")
	}
	if _, ok := Cache().(NoopCacheHooks); !ok {
		t.Error("Reset() should restore NoopCacheHooks")
	}
}

func TestSetNilHooksIsIgnored(t *testing.T) {
	Reset()

	custom := &testServerHooks{}
	SetServerHooks(custom)

	// Setting nil should be ignored
	SetServerHooks(nil)

	if Server() != custom {
		t.Error("SetServerHooks(nil) should be ignored")
	}

	Reset()
}

// Test implementations
type testServerHooks struct{ NoopServerHooks }
type testCacheHooks struct{ NoopCacheHooks }
