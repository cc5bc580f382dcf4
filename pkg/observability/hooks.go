// Package observability provides hooks for metrics and tracing.
//
// Libraries emit events through hook interfaces; main registers an
// implementation at startup. The defaults are no-ops, so packages such as
// analysis never depend on a metrics backend. [Prometheus] is the bundled
// implementation.
//
// Register hooks at application startup:
//
//	prom := observability.NewPrometheus()
//	observability.SetAnalysisHooks(prom)
//	observability.SetCacheHooks(prom)
//
// Libraries call hooks around their work:
//
//	observability.Analysis().OnSearchStart(ctx, len(targets))
//	// ... search ...
//	observability.Analysis().OnSearchComplete(ctx, SearchEvent{...}, err)
package observability

import (
	"context"
	"sync"
	"time"
)

// =============================================================================
// Analysis Hooks
// =============================================================================

// SearchEvent summarizes one path search.
type SearchEvent struct {
	Targets  int
	Found    int
	Visited  int
	Excluded int // found paths that cross an exclusion
	Duration time.Duration
}

// AnalysisHooks receives events from the analysis runner.
type AnalysisHooks interface {
	// Snapshot loading
	OnLoadStart(ctx context.Context, path string)
	OnLoadComplete(ctx context.Context, path string, instances int, duration time.Duration, err error)

	// Path search
	OnSearchStart(ctx context.Context, targets int)
	OnSearchComplete(ctx context.Context, ev SearchEvent, err error)

	// Chain building
	OnChainsComplete(ctx context.Context, chains int, duration time.Duration, err error)
}

// =============================================================================
// Cache Hooks
// =============================================================================

// CacheHooks receives events from cache operations.
type CacheHooks interface {
	OnCacheHit(ctx context.Context, keyType string)
	OnCacheMiss(ctx context.Context, keyType string)
	OnCacheSet(ctx context.Context, keyType string, size int)
}

// =============================================================================
// No-op Implementations
// =============================================================================

// NoopAnalysisHooks is a no-op implementation of AnalysisHooks.
type NoopAnalysisHooks struct{}

func (NoopAnalysisHooks) OnLoadStart(context.Context, string)                              {}
func (NoopAnalysisHooks) OnLoadComplete(context.Context, string, int, time.Duration, error) {}
func (NoopAnalysisHooks) OnSearchStart(context.Context, int)                               {}
func (NoopAnalysisHooks) OnSearchComplete(context.Context, SearchEvent, error)             {}
func (NoopAnalysisHooks) OnChainsComplete(context.Context, int, time.Duration, error)      {}

// NoopCacheHooks is a no-op implementation of CacheHooks.
type NoopCacheHooks struct{}

func (NoopCacheHooks) OnCacheHit(context.Context, string)      {}
func (NoopCacheHooks) OnCacheMiss(context.Context, string)     {}
func (NoopCacheHooks) OnCacheSet(context.Context, string, int) {}

// =============================================================================
// Global Hook Registry
// =============================================================================

var (
	analysisHooks AnalysisHooks = NoopAnalysisHooks{}
	cacheHooks    CacheHooks    = NoopCacheHooks{}
	hooksMu       sync.RWMutex
)

// SetAnalysisHooks registers analysis hooks. Nil is ignored.
func SetAnalysisHooks(h AnalysisHooks) {
	hooksMu.Lock()
	defer hooksMu.Unlock()
	if h != nil {
		analysisHooks = h
	}
}

// SetCacheHooks registers cache hooks. Nil is ignored.
func SetCacheHooks(h CacheHooks) {
	hooksMu.Lock()
	defer hooksMu.Unlock()
	if h != nil {
		cacheHooks = h
	}
}

// Analysis returns the registered analysis hooks.
func Analysis() AnalysisHooks {
	hooksMu.RLock()
	defer hooksMu.RUnlock()
	return analysisHooks
}

// Cache returns the registered cache hooks.
func Cache() CacheHooks {
	hooksMu.RLock()
	defer hooksMu.RUnlock()
	return cacheHooks
}

// Reset restores the no-op defaults.
func Reset() {
	hooksMu.Lock()
	defer hooksMu.Unlock()
	analysisHooks = NoopAnalysisHooks{}
	cacheHooks = NoopCacheHooks{}
}
