package providers

import (
	"context"
	"fmt"
	"sort"
	"sync"
)

// CatalogProvider searches a music catalog.
type CatalogProvider interface {
	// Name returns the provider's identifier (e.g., "spotify", "genius")
	Name() string

	// SearchTracks returns songs matching text in provider relevance order.
	SearchTracks(ctx context.Context, text string, limit int) ([]Song, error)

	// SearchArtists returns artists matching text in provider relevance order.
	SearchArtists(ctx context.Context, text string, limit int) ([]Artist, error)

	// GetTopTracks returns the artist's most popular songs.
	GetTopTracks(ctx context.Context, artist Handle) ([]Song, error)

	// GetFullCatalog walks the artist's whole discography, stopping at limit songs.
	GetFullCatalog(ctx context.Context, artist Handle, limit int) ([]Song, error)
}

// LyricsProvider finds and fetches lyric text.
type LyricsProvider interface {
	Name() string
	SearchSongs(ctx context.Context, text string) ([]SongRef, error)
	FetchLyrics(ctx context.Context, ref SongRef) (string, error)
}

// Registry holds providers by name. Order is decided by the caller via the chain methods.
type Registry struct {
	mu      sync.RWMutex
	catalog map[string]CatalogProvider
	lyrics  map[string]LyricsProvider
}

func NewRegistry() *Registry {
	return &Registry{
		catalog: make(map[string]CatalogProvider),
		lyrics:  make(map[string]LyricsProvider),
	}
}

// RegisterCatalog adds a catalog provider, replacing any with the same name.
func (r *Registry) RegisterCatalog(p CatalogProvider) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.catalog[p.Name()] = p
}

// RegisterLyrics adds a lyrics provider, replacing any with the same name.
func (r *Registry) RegisterLyrics(p LyricsProvider) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.lyrics[p.Name()] = p
}

func (r *Registry) Catalog(name string) (CatalogProvider, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	p, ok := r.catalog[name]
	if !ok {
		return nil, fmt.Errorf("catalog provider not found: %s", name)
	}
	return p, nil
}

func (r *Registry) Lyrics(name string) (LyricsProvider, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	p, ok := r.lyrics[name]
	if !ok {
		return nil, fmt.Errorf("lyrics provider not found: %s", name)
	}
	return p, nil
}

// CatalogChain returns the named catalog providers in the given order,
// skipping names that are not registered.
func (r *Registry) CatalogChain(names []string) []CatalogProvider {
	r.mu.RLock()
	defer r.mu.RUnlock()

	chain := make([]CatalogProvider, 0, len(names))
	for _, name := range names {
		if p, ok := r.catalog[name]; ok {
			chain = append(chain, p)
		}
	}
	return chain
}

// LyricsChain returns the named lyrics providers in the given order,
// skipping names that are not registered.
func (r *Registry) LyricsChain(names []string) []LyricsProvider {
	r.mu.RLock()
	defer r.mu.RUnlock()

	chain := make([]LyricsProvider, 0, len(names))
	for _, name := range names {
		if p, ok := r.lyrics[name]; ok {
			chain = append(chain, p)
		}
	}
	return chain
}

// List returns every registered provider name, sorted.
func (r *Registry) List() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	seen := make(map[string]struct{}, len(r.catalog)+len(r.lyrics))
	for name := range r.catalog {
		seen[name] = struct{}{}
	}
	for name := range r.lyrics {
		seen[name] = struct{}{}
	}

	names := make([]string, 0, len(seen))
	for name := range seen {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
