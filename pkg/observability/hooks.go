// Package observability provides hooks for metrics, tracing, and logging.
//
// This package enables optional instrumentation without adding hard dependencies
// on specific observability backends. Consumers can register hooks at startup
// to receive events about version lookups, cache operations, and HTTP calls.
//
// # Architecture
//
// The package uses a simple hooks pattern:
//   - Define hook interfaces for different event categories
//   - Provide no-op default implementations
//   - Allow registration of custom implementations at startup
//
// Hooks are registered by main, not by libraries, so the resolver packages
// never import a metrics backend.
//
// # Usage
//
// Register hooks at application startup:
//
//	func main() {
//	    observability.SetResolveHooks(&myResolveHooks{})
//	    observability.SetCacheHooks(&myCacheHooks{})
//	    // ... run application
//	}
//
// Libraries call hooks to emit events:
//
//	observability.Resolve().OnResolveStart(ctx, name, release)
//	// ... fetch and parse ...
//	observability.Resolve().OnResolveComplete(ctx, name, release, version, duration, err)
package observability

import (
	"context"
	"sync"
	"time"
)

// =============================================================================
// Resolve Hooks
// =============================================================================

// ResolveHooks receives events from the dispatch engine and the batch runner.
type ResolveHooks interface {
	// Single source lookups. version is "0.0.0" when the lookup degraded.
	OnResolveStart(ctx context.Context, name, release string)
	OnResolveComplete(ctx context.Context, name, release, version string, duration time.Duration, err error)

	// Batch events
	OnBatchStart(ctx context.Context, runID string, sources int)
	OnBatchComplete(ctx context.Context, runID string, unknown int, duration time.Duration)
}

// =============================================================================
// Cache Hooks
// =============================================================================

// CacheHooks receives events from cache operations.
type CacheHooks interface {
	// OnCacheHit records a cache hit.
	OnCacheHit(ctx context.Context, key string)

	// OnCacheMiss records a cache miss.
	OnCacheMiss(ctx context.Context, key string)

	// OnCacheSet records a cache write.
	OnCacheSet(ctx context.Context, key string, size int)
}

// =============================================================================
// HTTP Hooks
// =============================================================================

// HTTPHooks receives events from HTTP client operations.
type HTTPHooks interface {
	// OnRequest records an outgoing HTTP request.
	OnRequest(ctx context.Context, method, host, path string)

	// OnResponse records an HTTP response.
	OnResponse(ctx context.Context, method, host, path string, statusCode int, duration time.Duration)

	// OnError records an HTTP error (network failure, timeout).
	OnError(ctx context.Context, method, host, path string, err error)
}

// =============================================================================
// No-op Implementations
// =============================================================================

// NoopResolveHooks is a no-op implementation of ResolveHooks.
type NoopResolveHooks struct{}

func (NoopResolveHooks) OnResolveStart(context.Context, string, string) {}
func (NoopResolveHooks) OnResolveComplete(context.Context, string, string, string, time.Duration, error) {
}
func (NoopResolveHooks) OnBatchStart(context.Context, string, int)                   {}
func (NoopResolveHooks) OnBatchComplete(context.Context, string, int, time.Duration) {}

// NoopCacheHooks is a no-op implementation of CacheHooks.
type NoopCacheHooks struct{}

func (NoopCacheHooks) OnCacheHit(context.Context, string)      {}
func (NoopCacheHooks) OnCacheMiss(context.Context, string)     {}
func (NoopCacheHooks) OnCacheSet(context.Context, string, int) {}

// NoopHTTPHooks is a no-op implementation of HTTPHooks.
type NoopHTTPHooks struct{}

func (NoopHTTPHooks) OnRequest(context.Context, string, string, string)                      {}
func (NoopHTTPHooks) OnResponse(context.Context, string, string, string, int, time.Duration) {}
func (NoopHTTPHooks) OnError(context.Context, string, string, string, error)                 {}

// =============================================================================
// Global Hook Registry
// =============================================================================

var (
	resolveHooks ResolveHooks = NoopResolveHooks{}
	cacheHooks   CacheHooks   = NoopCacheHooks{}
	httpHooks    HTTPHooks    = NoopHTTPHooks{}
	hooksMu      sync.RWMutex
)

// SetResolveHooks registers custom resolve hooks.
// This should be called once at application startup before any lookups.
func SetResolveHooks(h ResolveHooks) {
	hooksMu.Lock()
	defer hooksMu.Unlock()
	if h != nil {
		resolveHooks = h
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

// SetHTTPHooks registers custom HTTP hooks.
// This should be called once at application startup before any HTTP operations.
func SetHTTPHooks(h HTTPHooks) {
	hooksMu.Lock()
	defer hooksMu.Unlock()
	if h != nil {
		httpHooks = h
	}
}

// Resolve returns the registered resolve hooks.
func Resolve() ResolveHooks {
	hooksMu.RLock()
	defer hooksMu.RUnlock()
	return resolveHooks
}

// Cache returns the registered cache hooks.
func Cache() CacheHooks {
	hooksMu.RLock()
	defer hooksMu.RUnlock()
	return cacheHooks
}

// HTTP returns the registered HTTP hooks.
func HTTP() HTTPHooks {
	hooksMu.RLock()
	defer hooksMu.RUnlock()
	return httpHooks
}

// Reset restores all hooks to their no-op defaults.
// This is primarily useful for testing.
func Reset() {
	hooksMu.Lock()
	defer hooksMu.Unlock()
	resolveHooks = NoopResolveHooks{}
	cacheHooks = NoopCacheHooks{}
	httpHooks = NoopHTTPHooks{}
}
