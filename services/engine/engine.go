package engine

import (
	"context"
	"sort"
	"time"

	"lyrics-finder-go/cache"
	"lyrics-finder-go/circuitbreaker"
	"lyrics-finder-go/services/providers"
	"lyrics-finder-go/services/token"
)

// Engine is the single entry point used by the HTTP server and the CLI.
type Engine struct {
	search *SearchAggregator
	lyrics *LyricsResolver

	registry *providers.Registry
	breakers map[string]*circuitbreaker.CircuitBreaker
	tokens   map[string]*token.Cache
	pages    *cache.PageCache
}

// New assembles an engine from already built parts.
func New(search *SearchAggregator, lyrics *LyricsResolver) *Engine {
	return &Engine{
		search:   search,
		lyrics:   lyrics,
		registry: providers.NewRegistry(),
		breakers: make(map[string]*circuitbreaker.CircuitBreaker),
		tokens:   make(map[string]*token.Cache),
	}
}

func (e *Engine) Search(ctx context.Context, query string, mode providers.SearchMode, selected *providers.Artist) (*providers.SearchResult, error) {
	return e.search.Search(ctx, query, mode, selected)
}

func (e *Engine) ResolveLyrics(ctx context.Context, song providers.Song) *providers.LyricsResult {
	return e.lyrics.Resolve(ctx, song)
}

// Providers lists registered provider names.
func (e *Engine) Providers() []string {
	return e.registry.List()
}

// Breakers returns every provider breaker ordered by name.
func (e *Engine) Breakers() []*circuitbreaker.CircuitBreaker {
	names := make([]string, 0, len(e.breakers))
	for name := range e.breakers {
		names = append(names, name)
	}
	sort.Strings(names)

	out := make([]*circuitbreaker.CircuitBreaker, 0, len(names))
	for _, name := range names {
		out = append(out, e.breakers[name])
	}
	return out
}

func (e *Engine) Breaker(name string) (*circuitbreaker.CircuitBreaker, bool) {
	cb, ok := e.breakers[name]
	return cb, ok
}

// TokenStatus reports the access-token state of every provider that holds one.
func (e *Engine) TokenStatus() map[string]token.Status {
	out := make(map[string]token.Status, len(e.tokens))
	for name, c := range e.tokens {
		out[name] = c.Status()
	}
	return out
}

// StartTokenMonitors refreshes provider tokens ahead of expiry until ctx is done.
func (e *Engine) StartTokenMonitors(ctx context.Context, interval time.Duration) {
	for _, c := range e.tokens {
		c.StartMonitor(ctx, interval)
	}
}

// PageCache returns the persistent page cache, or nil when it is disabled.
func (e *Engine) PageCache() *cache.PageCache {
	return e.pages
}

func (e *Engine) Close() error {
	if e.pages != nil {
		return e.pages.Close()
	}
	return nil
}
