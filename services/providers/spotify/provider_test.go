package spotify

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"lyrics-finder-go/services/providers"
)

type fakeSpotify struct {
	srv         *httptest.Server
	tokenCalls  atomic.Int32
	rejectToken atomic.Bool
}

func newFakeSpotify(t *testing.T, routes map[string]http.HandlerFunc) *fakeSpotify {
	t.Helper()

	f := &fakeSpotify{}
	mux := http.NewServeMux()
	mux.HandleFunc("/token", func(w http.ResponseWriter, r *http.Request) {
		f.tokenCalls.Add(1)
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprintf(w, `{"access_token":"tok-%d","token_type":"bearer","expires_in":3600}`, f.tokenCalls.Load())
	})
	for path, h := range routes {
		h := h
		mux.HandleFunc(path, func(w http.ResponseWriter, r *http.Request) {
			if r.Header.Get("Authorization") == "" {
				t.Errorf("Expected bearer token on %s", r.URL.Path)
			}
			w.Header().Set("Content-Type", "application/json")
			if f.rejectToken.Load() {
				w.WriteHeader(http.StatusUnauthorized)
				fmt.Fprint(w, `{"error":{"status":401,"message":"The access token expired"}}`)
				return
			}
			h(w, r)
		})
	}
	f.srv = httptest.NewServer(mux)
	t.Cleanup(f.srv.Close)
	return f
}

func (f *fakeSpotify) provider() *Provider {
	return New(Config{
		ClientID:     "id",
		ClientSecret: "secret",
		Market:       "IN",
		TokenURL:     f.srv.URL + "/token",
		BaseURL:      f.srv.URL + "/v1/",
	})
}

func track(id, name, artistID, artistName string) string {
	return fmt.Sprintf(`{"id":%q,"name":%q,"external_urls":{"spotify":"https://open.spotify.com/track/%s"},
		"artists":[{"id":%q,"name":%q,"external_urls":{"spotify":"https://open.spotify.com/artist/%s"}}],
		"album":{"id":"al-x","name":"Minsara Kanavu","images":[{"url":"https://img/%s.jpg"}]}}`,
		id, name, id, artistID, artistName, artistID, id)
}

func TestSearchTracks(t *testing.T) {
	f := newFakeSpotify(t, map[string]http.HandlerFunc{
		"/v1/search": func(w http.ResponseWriter, r *http.Request) {
			if r.URL.Query().Get("type") != "track" {
				t.Errorf("Expected type=track, got %q", r.URL.Query().Get("type"))
			}
			fmt.Fprintf(w, `{"tracks":{"items":[%s,%s],"next":null}}`,
				track("t1", "Vennilave", "a1", "Hariharan"),
				track("t2", "Vennilave (Reprise)", "a2", "Kavita Krishnamurthy"))
		},
	})

	songs, err := f.provider().SearchTracks(context.Background(), "vennilave", 10)
	if err != nil {
		t.Fatalf("SearchTracks failed: %v", err)
	}
	if len(songs) != 2 {
		t.Fatalf("Expected 2 songs, got %d", len(songs))
	}

	s := songs[0]
	if s.ID != "t1" || s.Title != "Vennilave" || s.ArtistName != "Hariharan" || s.AlbumName != "Minsara Kanavu" {
		t.Errorf("Unexpected song: %+v", s)
	}
	if s.Handle == nil || s.Handle.Provider != ProviderName || s.Handle.ID != "t1" {
		t.Errorf("Expected spotify handle, got %+v", s.Handle)
	}
	if s.PrimaryArtist == nil || s.PrimaryArtist.Handles[ProviderName].ID != "a1" {
		t.Errorf("Expected primary artist with spotify handle, got %+v", s.PrimaryArtist)
	}
	if s.Thumbnail != "https://img/t1.jpg" {
		t.Errorf("Expected album art thumbnail, got %q", s.Thumbnail)
	}
}

func TestSearchArtists_PreservesOrder(t *testing.T) {
	f := newFakeSpotify(t, map[string]http.HandlerFunc{
		"/v1/search": func(w http.ResponseWriter, r *http.Request) {
			fmt.Fprint(w, `{"artists":{"items":[
				{"id":"a2","name":"Yuvan Shankar Raja","popularity":70,"genres":["kollywood"],"followers":{"total":1200},"images":[{"url":"https://img/a2.jpg"}]},
				{"id":"a1","name":"Anirudh Ravichander","popularity":80,"followers":{"total":9000}}
			],"next":null}}`)
		},
	})

	artists, err := f.provider().SearchArtists(context.Background(), "tamil", 10)
	if err != nil {
		t.Fatalf("SearchArtists failed: %v", err)
	}
	if len(artists) != 2 || artists[0].Name != "Yuvan Shankar Raja" {
		t.Fatalf("Expected provider order to be kept, got %+v", artists)
	}
	a := artists[0]
	if a.Followers != 1200 || a.Popularity != 70 || a.Thumbnail != "https://img/a2.jpg" || len(a.Genres) != 1 {
		t.Errorf("Unexpected artist fields: %+v", a)
	}
}

func TestGetTopTracks_UsesMarket(t *testing.T) {
	f := newFakeSpotify(t, map[string]http.HandlerFunc{
		"/v1/artists/a1/top-tracks": func(w http.ResponseWriter, r *http.Request) {
			if r.URL.Query().Get("country") != "IN" {
				t.Errorf("Expected country=IN, got %q", r.URL.Query().Get("country"))
			}
			fmt.Fprintf(w, `{"tracks":[%s]}`, track("t9", "Why This Kolaveri Di", "a1", "Anirudh Ravichander"))
		},
	})

	songs, err := f.provider().GetTopTracks(context.Background(), providers.Handle{Provider: ProviderName, ID: "a1"})
	if err != nil {
		t.Fatalf("GetTopTracks failed: %v", err)
	}
	if len(songs) != 1 || songs[0].Title != "Why This Kolaveri Di" {
		t.Errorf("Unexpected songs: %+v", songs)
	}
}

func catalogRoutes(t *testing.T, srvURL *string) map[string]http.HandlerFunc {
	return map[string]http.HandlerFunc{
		"/v1/artists/a1/albums": func(w http.ResponseWriter, r *http.Request) {
			fmt.Fprint(w, `{"items":[{"id":"al1","name":"First"},{"id":"al2","name":"Second"}],"next":null}`)
		},
		"/v1/albums/al1/tracks": func(w http.ResponseWriter, r *http.Request) {
			if r.URL.Query().Get("offset") == "2" {
				fmt.Fprintf(w, `{"items":[%s],"next":null}`, track("t3", "Three", "a1", "A"))
				return
			}
			fmt.Fprintf(w, `{"items":[%s,%s],"next":%q}`,
				track("t1", "One", "a1", "A"), track("t2", "Two", "a1", "A"),
				*srvURL+"/v1/albums/al1/tracks?offset=2")
		},
		"/v1/albums/al2/tracks": func(w http.ResponseWriter, r *http.Request) {
			fmt.Fprintf(w, `{"items":[%s,%s],"next":null}`, track("t1", "One", "a1", "A"), track("t4", "Four", "a1", "A"))
		},
	}
}

func TestGetFullCatalog_DedupsAcrossAlbumsAndPages(t *testing.T) {
	var srvURL string
	f := newFakeSpotify(t, catalogRoutes(t, &srvURL))
	srvURL = f.srv.URL

	songs, err := f.provider().GetFullCatalog(context.Background(), providers.Handle{ID: "a1"}, 100)
	if err != nil {
		t.Fatalf("GetFullCatalog failed: %v", err)
	}

	expected := []string{"t1", "t2", "t3", "t4"}
	if len(songs) != len(expected) {
		t.Fatalf("Expected %d songs, got %d", len(expected), len(songs))
	}
	for i, id := range expected {
		if songs[i].ID != id {
			t.Errorf("Position %d: expected %s, got %s", i, id, songs[i].ID)
		}
	}
	if songs[3].AlbumName != "Second" {
		t.Errorf("Expected album name from the walked album, got %q", songs[3].AlbumName)
	}
}

func TestGetFullCatalog_StopsAtLimit(t *testing.T) {
	var srvURL string
	f := newFakeSpotify(t, catalogRoutes(t, &srvURL))
	srvURL = f.srv.URL

	songs, err := f.provider().GetFullCatalog(context.Background(), providers.Handle{ID: "a1"}, 2)
	if err != nil {
		t.Fatalf("GetFullCatalog failed: %v", err)
	}
	if len(songs) != 2 {
		t.Errorf("Expected 2 songs at limit, got %d", len(songs))
	}
}

func TestUnauthorizedInvalidatesToken(t *testing.T) {
	f := newFakeSpotify(t, map[string]http.HandlerFunc{
		"/v1/search": func(w http.ResponseWriter, r *http.Request) {
			fmt.Fprint(w, `{"tracks":{"items":[],"next":null}}`)
		},
	})
	p := f.provider()

	if _, err := p.SearchTracks(context.Background(), "roja", 5); err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}

	f.rejectToken.Store(true)
	_, err := p.SearchTracks(context.Background(), "roja", 5)
	if !errors.Is(err, providers.ErrAuthFailed) {
		t.Errorf("Expected ErrAuthFailed, got %v", err)
	}
	if !p.Tokens().Status().NeedsRefresh {
		t.Error("Expected token to be invalidated after 401")
	}

	f.rejectToken.Store(false)
	if _, err := p.SearchTracks(context.Background(), "roja", 5); err != nil {
		t.Fatalf("Unexpected error after re-auth: %v", err)
	}
	if f.tokenCalls.Load() != 2 {
		t.Errorf("Expected a second token exchange, got %d", f.tokenCalls.Load())
	}
}

func TestUnauthorizedReportsProvider(t *testing.T) {
	f := newFakeSpotify(t, map[string]http.HandlerFunc{
		"/v1/search": func(w http.ResponseWriter, r *http.Request) {
			fmt.Fprint(w, `{"tracks":{"items":[],"next":null}}`)
		},
	})

	var (
		calls    atomic.Int32
		provider string
		status   int
	)
	p := New(Config{
		ClientID:     "id",
		ClientSecret: "secret",
		TokenURL:     f.srv.URL + "/token",
		BaseURL:      f.srv.URL + "/v1/",
		OnUnauthorized: func(name string, code int) {
			calls.Add(1)
			provider, status = name, code
		},
	})

	if _, err := p.SearchTracks(context.Background(), "roja", 5); err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if calls.Load() != 0 {
		t.Errorf("Expected no auth failure report on success, got %d", calls.Load())
	}

	f.rejectToken.Store(true)
	p.SearchTracks(context.Background(), "roja", 5)
	if calls.Load() != 1 {
		t.Fatalf("Expected one auth failure report, got %d", calls.Load())
	}
	if provider != ProviderName || status != http.StatusUnauthorized {
		t.Errorf("Expected (%s, 401), got (%s, %d)", ProviderName, provider, status)
	}
}

func TestServerErrorIsUnavailable(t *testing.T) {
	f := newFakeSpotify(t, map[string]http.HandlerFunc{
		"/v1/search": func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusBadGateway)
			fmt.Fprint(w, `{"error":{"status":502,"message":"bad gateway"}}`)
		},
	})

	_, err := f.provider().SearchTracks(context.Background(), "roja", 5)
	if !errors.Is(err, providers.ErrProviderUnavailable) {
		t.Errorf("Expected ErrProviderUnavailable, got %v", err)
	}
	var pe *providers.ProviderError
	if !errors.As(err, &pe) || pe.Provider != ProviderName {
		t.Errorf("Expected ProviderError from spotify, got %v", err)
	}
}
