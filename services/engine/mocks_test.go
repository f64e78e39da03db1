package engine

import (
	"context"
	"sync"
	"sync/atomic"

	"lyrics-finder-go/services/providers"
)

// mockCatalog returns canned answers and counts calls per operation.
type mockCatalog struct {
	name string

	tracks      []providers.Song
	tracksErr   error
	artists     []providers.Artist
	artistsErr  error
	topTracks   []providers.Song
	topErr      error
	catalog     []providers.Song
	catalogErr  error
	tracksByArg map[string][]providers.Song

	trackCalls   atomic.Int32
	artistCalls  atomic.Int32
	topCalls     atomic.Int32
	catalogCalls atomic.Int32
}

func (m *mockCatalog) Name() string { return m.name }

func (m *mockCatalog) SearchTracks(ctx context.Context, text string, limit int) ([]providers.Song, error) {
	m.trackCalls.Add(1)
	if songs, ok := m.tracksByArg[text]; ok {
		return songs, nil
	}
	return m.tracks, m.tracksErr
}

func (m *mockCatalog) SearchArtists(ctx context.Context, text string, limit int) ([]providers.Artist, error) {
	m.artistCalls.Add(1)
	return m.artists, m.artistsErr
}

func (m *mockCatalog) GetTopTracks(ctx context.Context, artist providers.Handle) ([]providers.Song, error) {
	m.topCalls.Add(1)
	return m.topTracks, m.topErr
}

func (m *mockCatalog) GetFullCatalog(ctx context.Context, artist providers.Handle, limit int) ([]providers.Song, error) {
	m.catalogCalls.Add(1)
	return m.catalog, m.catalogErr
}

func (m *mockCatalog) calls() int32 {
	return m.trackCalls.Load() + m.artistCalls.Load() + m.topCalls.Load() + m.catalogCalls.Load()
}

// mockLyrics serves lyrics by song id.
type mockLyrics struct {
	name      string
	refs      []providers.SongRef
	searchErr error
	texts     map[string]string
	fetchErr  error

	mu      sync.Mutex
	fetched []string
	calls   atomic.Int32
}

func (m *mockLyrics) Name() string { return m.name }

func (m *mockLyrics) SearchSongs(ctx context.Context, text string) ([]providers.SongRef, error) {
	m.calls.Add(1)
	return m.refs, m.searchErr
}

func (m *mockLyrics) FetchLyrics(ctx context.Context, ref providers.SongRef) (string, error) {
	m.calls.Add(1)
	m.mu.Lock()
	m.fetched = append(m.fetched, ref.ID)
	m.mu.Unlock()
	if m.fetchErr != nil {
		return "", m.fetchErr
	}
	text, ok := m.texts[ref.ID]
	if !ok {
		return "", providers.NewProviderError(m.name, "no lyrics for "+ref.ID, providers.ErrNotFound)
	}
	return text, nil
}

type mockRegional struct {
	songs []providers.Song
	calls atomic.Int32

	mu        sync.Mutex
	lastQuery string
}

func (m *mockRegional) Search(ctx context.Context, query string) []providers.Song {
	m.calls.Add(1)
	m.mu.Lock()
	m.lastQuery = query
	m.mu.Unlock()
	return m.songs
}

func song(id, title, artist string) providers.Song {
	return providers.Song{ID: id, Title: title, ArtistName: artist}
}
