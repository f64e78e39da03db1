package providers

import (
	"context"
	"errors"
	"fmt"
	"time"

	"lyrics-finder-go/circuitbreaker"
)

// Observer receives the outcome of every guarded call.
type Observer func(provider, op string, err error, elapsed time.Duration)

// GuardOptions configures the protection placed around a provider.
type GuardOptions struct {
	Breaker *circuitbreaker.CircuitBreaker
	Timeout time.Duration
	Observe Observer
}

type guard struct {
	name string
	opts GuardOptions
}

// guarded runs fn behind the breaker with a per-call deadline.
// A not-found answer is a healthy response and does not count against the breaker.
func guarded[T any](ctx context.Context, g guard, op string, fn func(context.Context) (T, error)) (T, error) {
	var zero T

	if b := g.opts.Breaker; b != nil && !b.Allow() {
		err := NewProviderError(g.name, fmt.Sprintf("%s rejected, retry in %v", op, b.TimeUntilRetry().Round(time.Second)),
			fmt.Errorf("%w: %w", ErrProviderUnavailable, circuitbreaker.ErrCircuitOpen))
		g.observe(op, err, 0)
		return zero, err
	}

	callCtx := ctx
	if g.opts.Timeout > 0 {
		var cancel context.CancelFunc
		callCtx, cancel = context.WithTimeout(ctx, g.opts.Timeout)
		defer cancel()
	}

	start := time.Now()
	v, err := fn(callCtx)
	elapsed := time.Since(start)

	if err != nil && ctx.Err() == nil && errors.Is(callCtx.Err(), context.DeadlineExceeded) {
		err = NewProviderError(g.name, fmt.Sprintf("%s timed out after %v", op, g.opts.Timeout), ErrProviderUnavailable)
	}

	if b := g.opts.Breaker; b != nil {
		switch {
		case err == nil, errors.Is(err, ErrNotFound):
			b.RecordSuccess()
		case ctx.Err() != nil:
			// caller gave up, says nothing about the upstream
		default:
			b.RecordFailure()
		}
	}

	g.observe(op, err, elapsed)
	if err != nil {
		return zero, err
	}
	return v, nil
}

func (g guard) observe(op string, err error, elapsed time.Duration) {
	if g.opts.Observe != nil {
		g.opts.Observe(g.name, op, err, elapsed)
	}
}

// GuardedCatalog wraps a CatalogProvider with a circuit breaker and timeout.
type GuardedCatalog struct {
	inner CatalogProvider
	g     guard
}

func GuardCatalog(p CatalogProvider, opts GuardOptions) *GuardedCatalog {
	return &GuardedCatalog{inner: p, g: guard{name: p.Name(), opts: opts}}
}

func (c *GuardedCatalog) Name() string {
	return c.inner.Name()
}

func (c *GuardedCatalog) Breaker() *circuitbreaker.CircuitBreaker {
	return c.g.opts.Breaker
}

func (c *GuardedCatalog) SearchTracks(ctx context.Context, text string, limit int) ([]Song, error) {
	return guarded(ctx, c.g, "search_tracks", func(ctx context.Context) ([]Song, error) {
		return c.inner.SearchTracks(ctx, text, limit)
	})
}

func (c *GuardedCatalog) SearchArtists(ctx context.Context, text string, limit int) ([]Artist, error) {
	return guarded(ctx, c.g, "search_artists", func(ctx context.Context) ([]Artist, error) {
		return c.inner.SearchArtists(ctx, text, limit)
	})
}

func (c *GuardedCatalog) GetTopTracks(ctx context.Context, artist Handle) ([]Song, error) {
	return guarded(ctx, c.g, "top_tracks", func(ctx context.Context) ([]Song, error) {
		return c.inner.GetTopTracks(ctx, artist)
	})
}

func (c *GuardedCatalog) GetFullCatalog(ctx context.Context, artist Handle, limit int) ([]Song, error) {
	return guarded(ctx, c.g, "full_catalog", func(ctx context.Context) ([]Song, error) {
		return c.inner.GetFullCatalog(ctx, artist, limit)
	})
}

// GuardedLyrics wraps a LyricsProvider with a circuit breaker and timeout.
type GuardedLyrics struct {
	inner LyricsProvider
	g     guard
}

func GuardLyrics(p LyricsProvider, opts GuardOptions) *GuardedLyrics {
	return &GuardedLyrics{inner: p, g: guard{name: p.Name(), opts: opts}}
}

func (l *GuardedLyrics) Name() string {
	return l.inner.Name()
}

func (l *GuardedLyrics) Breaker() *circuitbreaker.CircuitBreaker {
	return l.g.opts.Breaker
}

func (l *GuardedLyrics) SearchSongs(ctx context.Context, text string) ([]SongRef, error) {
	return guarded(ctx, l.g, "search_songs", func(ctx context.Context) ([]SongRef, error) {
		return l.inner.SearchSongs(ctx, text)
	})
}

func (l *GuardedLyrics) FetchLyrics(ctx context.Context, ref SongRef) (string, error) {
	return guarded(ctx, l.g, "fetch_lyrics", func(ctx context.Context) (string, error) {
		return l.inner.FetchLyrics(ctx, ref)
	})
}
