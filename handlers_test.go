package main

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"lyrics-finder-go/config"
	"lyrics-finder-go/middleware"
	"lyrics-finder-go/services/engine"
	"lyrics-finder-go/services/notifier"
	"lyrics-finder-go/services/providers"

	"github.com/gorilla/mux"
	"golang.org/x/time/rate"
)

type stubCatalog struct {
	songs []providers.Song
}

func (s *stubCatalog) Name() string { return "stub" }

func (s *stubCatalog) SearchTracks(ctx context.Context, text string, limit int) ([]providers.Song, error) {
	return s.songs, nil
}

func (s *stubCatalog) SearchArtists(ctx context.Context, text string, limit int) ([]providers.Artist, error) {
	return nil, nil
}

func (s *stubCatalog) GetTopTracks(ctx context.Context, artist providers.Handle) ([]providers.Song, error) {
	return nil, nil
}

func (s *stubCatalog) GetFullCatalog(ctx context.Context, artist providers.Handle, limit int) ([]providers.Song, error) {
	return nil, nil
}

type stubLyrics struct {
	refs  []providers.SongRef
	texts map[string]string
}

func (s *stubLyrics) Name() string { return "genius" }

func (s *stubLyrics) SearchSongs(ctx context.Context, text string) ([]providers.SongRef, error) {
	return s.refs, nil
}

func (s *stubLyrics) FetchLyrics(ctx context.Context, ref providers.SongRef) (string, error) {
	text, ok := s.texts[ref.ID]
	if !ok {
		return "", providers.ErrNotFound
	}
	return text, nil
}

// useEngine swaps the package-level engine for the duration of the test
func useEngine(t *testing.T, e *engine.Engine) {
	t.Helper()
	prev := lyricsEngine
	lyricsEngine = e
	t.Cleanup(func() {
		lyricsEngine = prev
		e.Close()
	})
}

func stubEngine(t *testing.T, catalog *stubCatalog, lyrics *stubLyrics) {
	t.Helper()
	search := engine.NewSearchAggregator([]providers.CatalogProvider{catalog}, nil, engine.SearchConfig{})
	resolver := engine.NewLyricsResolver([]providers.LyricsProvider{lyrics}, nil)
	useEngine(t, engine.New(search, resolver))
}

// builtEngine creates a real engine whose providers point at an unused address
func builtEngine(t *testing.T) {
	t.Helper()
	var cfg config.Config
	cfg.Configuration.GeniusBaseURL = "http://127.0.0.1:0"
	cfg.Configuration.LrclibBaseURL = "http://127.0.0.1:0"
	cfg.Configuration.CatalogProviders = "spotify,genius"
	cfg.Configuration.LyricsProviders = "genius,lrclib"
	cfg.Configuration.CircuitBreakerThreshold = 2

	e, err := buildEngine(cfg)
	if err != nil {
		t.Fatalf("buildEngine failed: %v", err)
	}
	useEngine(t, e)
}

func serve(method, target string, body string) *httptest.ResponseRecorder {
	router := mux.NewRouter()
	setupRoutes(router)

	var r *http.Request
	if body != "" {
		r = httptest.NewRequest(method, target, strings.NewReader(body))
		r.Header.Set("Content-Type", "application/json")
	} else {
		r = httptest.NewRequest(method, target, nil)
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, r)
	return w
}

func TestSearchHandler_Songs(t *testing.T) {
	stubEngine(t, &stubCatalog{songs: []providers.Song{{ID: "1", Title: "Vennilave", ArtistName: "Hariharan"}}}, &stubLyrics{})

	w := serve("GET", "/search?q=vennilave", "")

	if w.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d: %s", w.Code, w.Body.String())
	}
	if got := w.Header().Get("X-Search-Mode"); got != "song" {
		t.Errorf("Expected X-Search-Mode song, got %q", got)
	}

	var resp SearchResponse
	if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}
	if len(resp.Songs) != 1 || resp.Songs[0].Title != "Vennilave" {
		t.Errorf("Expected one song Vennilave, got %+v", resp.Songs)
	}
	if resp.Failed {
		t.Error("Expected search not to be failed")
	}
}

func TestSearchHandler_ExhaustedReturnsNotice(t *testing.T) {
	stubEngine(t, &stubCatalog{}, &stubLyrics{})

	w := serve("GET", "/search?q=nothing+here", "")

	if w.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", w.Code)
	}
	var resp SearchResponse
	json.NewDecoder(w.Body).Decode(&resp)
	if !resp.Failed {
		t.Error("Expected failed search")
	}
	if resp.Notice == "" {
		t.Error("Expected a notice for an exhausted search")
	}
	if resp.Songs == nil {
		t.Error("Expected songs to encode as an empty list")
	}
}

func TestSearchHandler_BadRequests(t *testing.T) {
	stubEngine(t, &stubCatalog{}, &stubLyrics{})

	tests := []struct {
		name   string
		target string
	}{
		{"short query", "/search?q=a"},
		{"empty query", "/search"},
		{"unknown mode", "/search?q=vennilave&mode=album"},
		{"malformed handle", "/search?mode=artist&artist=A&handle=spotify"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := serve("GET", tt.target, "")
			if w.Code != http.StatusBadRequest {
				t.Errorf("Expected 400, got %d", w.Code)
			}
		})
	}
}

func TestSearchHandler_PostBody(t *testing.T) {
	stubEngine(t, &stubCatalog{songs: []providers.Song{{ID: "1", Title: "Roja", ArtistName: "A. R. Rahman"}}}, &stubLyrics{})

	w := serve("POST", "/search", `{"query":"roja","mode":"song"}`)

	if w.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d: %s", w.Code, w.Body.String())
	}
	var resp SearchResponse
	json.NewDecoder(w.Body).Decode(&resp)
	if resp.Query != "roja" || len(resp.Songs) != 1 {
		t.Errorf("Expected roja with one song, got %+v", resp)
	}
}

func TestParseSearchRequest_ArtistHandles(t *testing.T) {
	q := url.Values{}
	q.Set("mode", "artist")
	q.Set("artist", "Ilaiyaraaja")
	q.Add("handle", "spotify:sp1")
	q.Add("handle", "genius:g1")

	r := httptest.NewRequest("GET", "/search?"+q.Encode(), nil)
	req, err := parseSearchRequest(httptest.NewRecorder(), r)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if req.Artist == nil {
		t.Fatal("Expected an artist selection")
	}
	if req.Artist.Name != "Ilaiyaraaja" {
		t.Errorf("Expected Ilaiyaraaja, got %q", req.Artist.Name)
	}
	if h, ok := req.Artist.HandleFor("spotify"); !ok || h.ID != "sp1" {
		t.Errorf("Expected spotify handle sp1, got %+v", h)
	}
	if h, ok := req.Artist.HandleFor("genius"); !ok || h.ID != "g1" {
		t.Errorf("Expected genius handle g1, got %+v", h)
	}
	if req.Artist.ID != "sp1" {
		t.Errorf("Expected artist id from first handle, got %q", req.Artist.ID)
	}
}

func TestLyricsHandler_ProviderSearch(t *testing.T) {
	lyrics := &stubLyrics{
		refs:  []providers.SongRef{{Provider: "genius", ID: "42", Title: "Vennilave", Artist: "Hariharan"}},
		texts: map[string]string{"42": "vennilave vennilave"},
	}
	stubEngine(t, &stubCatalog{}, lyrics)

	w := serve("GET", "/lyrics?title=Vennilave&artist=Hariharan", "")

	if w.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d: %s", w.Code, w.Body.String())
	}
	if got := w.Header().Get("X-Lyrics-Stage"); got != "provider_search" {
		t.Errorf("Expected stage provider_search, got %q", got)
	}

	var resp LyricsResponse
	json.NewDecoder(w.Body).Decode(&resp)
	if resp.LyricsResult == nil || resp.Text != "vennilave vennilave" {
		t.Errorf("Expected lyrics text, got %+v", resp.LyricsResult)
	}
	if resp.Title != "Vennilave" || resp.Artist != "Hariharan" {
		t.Errorf("Expected song echoed back, got %q by %q", resp.Title, resp.Artist)
	}
}

func TestLyricsHandler_PrefetchedPost(t *testing.T) {
	stubEngine(t, &stubCatalog{}, &stubLyrics{})

	body := `{"title":"Roja","artist":"A. R. Rahman","availableLyricsSources":[{"sourceName":"tamil2lyrics","text":"roja janeman"}]}`
	w := serve("POST", "/lyrics", body)

	if w.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d: %s", w.Code, w.Body.String())
	}
	if got := w.Header().Get("X-Lyrics-Stage"); got != "prefetched" {
		t.Errorf("Expected stage prefetched, got %q", got)
	}
}

func TestLyricsHandler_NotFoundGivesGuidance(t *testing.T) {
	stubEngine(t, &stubCatalog{}, &stubLyrics{})

	w := serve("GET", "/lyrics?s=Unknown+Song&a=Nobody", "")

	if w.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d: %s", w.Code, w.Body.String())
	}
	if got := w.Header().Get("X-Lyrics-Stage"); got != "alternative" {
		t.Errorf("Expected stage alternative, got %q", got)
	}
}

func TestLyricsHandler_Validation(t *testing.T) {
	stubEngine(t, &stubCatalog{}, &stubLyrics{})

	tests := []struct {
		name     string
		method   string
		target   string
		body     string
		expected int
	}{
		{"missing title", "GET", "/lyrics?artist=Hariharan", "", http.StatusUnprocessableEntity},
		{"bad handle", "GET", "/lyrics?title=T&handle=genius", "", http.StatusBadRequest},
		{"bad body", "POST", "/lyrics", "{not json", http.StatusBadRequest},
		{"empty body song", "POST", "/lyrics", "{}", http.StatusUnprocessableEntity},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := serve(tt.method, tt.target, tt.body)
			if w.Code != tt.expected {
				t.Errorf("Expected %d, got %d", tt.expected, w.Code)
			}
		})
	}
}

func TestLyricsFailureStatus(t *testing.T) {
	tests := []struct {
		kind     string
		expected int
	}{
		{"not_found", http.StatusNotFound},
		{"lyrics_unavailable", http.StatusNotFound},
		{"rate_limited", http.StatusTooManyRequests},
		{"provider_unavailable", http.StatusBadGateway},
		{"fetch_failed", http.StatusBadGateway},
	}

	for _, tt := range tests {
		t.Run(tt.kind, func(t *testing.T) {
			if got := lyricsFailureStatus(tt.kind); got != tt.expected {
				t.Errorf("Expected %d, got %d", tt.expected, got)
			}
		})
	}
}

func TestHealthHandler_DegradedWhenBreakerOpen(t *testing.T) {
	builtEngine(t)

	w := serve("GET", "/health", "")
	var health map[string]interface{}
	json.NewDecoder(w.Body).Decode(&health)
	if health["status"] != "ok" {
		t.Errorf("Expected ok, got %v", health["status"])
	}

	cb, ok := lyricsEngine.Breaker("genius")
	if !ok {
		t.Fatal("Expected a genius breaker")
	}
	cb.RecordFailure()
	cb.RecordFailure()

	w = serve("GET", "/health", "")
	health = nil
	json.NewDecoder(w.Body).Decode(&health)
	if health["status"] != "degraded" {
		t.Errorf("Expected degraded, got %v", health["status"])
	}
	states, _ := health["circuit_breakers"].(map[string]interface{})
	if states["genius"] != "OPEN" {
		t.Errorf("Expected genius OPEN, got %v", states["genius"])
	}
}

func TestResetCircuitBreakerHandler(t *testing.T) {
	builtEngine(t)

	cb, _ := lyricsEngine.Breaker("lrclib")
	cb.RecordFailure()
	cb.RecordFailure()

	w := serve("POST", "/circuit-breaker/reset?provider=lrclib", "")
	if w.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", w.Code)
	}
	if cb.State().String() != "CLOSED" {
		t.Errorf("Expected CLOSED after reset, got %s", cb.State())
	}

	w = serve("POST", "/circuit-breaker/reset?provider=musixmatch", "")
	if w.Code != http.StatusNotFound {
		t.Errorf("Expected 404 for unknown provider, got %d", w.Code)
	}

	w = serve("POST", "/circuit-breaker/reset", "")
	var resp struct {
		Reset []string `json:"reset"`
	}
	json.NewDecoder(w.Body).Decode(&resp)
	if len(resp.Reset) != 2 {
		t.Errorf("Expected 2 breakers reset, got %v", resp.Reset)
	}
}

func TestClearCacheHandler_Disabled(t *testing.T) {
	stubEngine(t, &stubCatalog{}, &stubLyrics{})

	w := serve("POST", "/cache/clear", "")
	if w.Code != http.StatusNotFound {
		t.Errorf("Expected 404 with the page cache disabled, got %d", w.Code)
	}
}

// subscribeEvents forwards bus events of the given type until the test ends
func subscribeEvents(t *testing.T, eventType notifier.EventType) <-chan *notifier.Event {
	t.Helper()
	ch := make(chan *notifier.Event, 16)
	done := make(chan struct{})
	t.Cleanup(func() { close(done) })
	notifier.GetEventBus().Subscribe(eventType, func(e *notifier.Event) {
		select {
		case ch <- e:
		case <-done:
		}
	})
	return ch
}

func awaitEvent(t *testing.T, ch <-chan *notifier.Event, key, value string) *notifier.Event {
	t.Helper()
	timeout := time.After(2 * time.Second)
	for {
		select {
		case e := <-ch:
			if e.Data[key] == value {
				return e
			}
		case <-timeout:
			t.Fatalf("Expected an event with %s=%s", key, value)
			return nil
		}
	}
}

func TestClearCacheHandler_PublishesEvent(t *testing.T) {
	var cfg config.Config
	cfg.Configuration.GeniusBaseURL = "http://127.0.0.1:0"
	cfg.Configuration.LrclibBaseURL = "http://127.0.0.1:0"
	cfg.Configuration.CatalogProviders = "genius"
	cfg.Configuration.LyricsProviders = "lrclib"
	cfg.Configuration.PageCachePath = filepath.Join(t.TempDir(), "pages.db")
	cfg.FeatureFlags.PageCache = true

	e, err := buildEngine(cfg)
	if err != nil {
		t.Fatalf("buildEngine failed: %v", err)
	}
	useEngine(t, e)
	events := subscribeEvents(t, notifier.EventPageCacheCleared)

	w := serve("POST", "/cache/clear", "")
	if w.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d: %s", w.Code, w.Body.String())
	}

	select {
	case ev := <-events:
		if ev.Data["cleared"] != 0 {
			t.Errorf("Expected 0 cleared pages, got %v", ev.Data["cleared"])
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Expected a page cache cleared event")
	}
}

func TestBuildEngine_PublishesBreakerEvents(t *testing.T) {
	builtEngine(t)
	opened := subscribeEvents(t, notifier.EventCircuitBreakerOpen)
	recovered := subscribeEvents(t, notifier.EventCircuitBreakerRecovered)

	cb, ok := lyricsEngine.Breaker("lrclib")
	if !ok {
		t.Fatal("Expected an lrclib breaker")
	}
	cb.RecordFailure()
	cb.RecordFailure()
	ev := awaitEvent(t, opened, "name", "lrclib")
	if ev.Severity != notifier.SeverityCritical {
		t.Errorf("Expected critical severity, got %s", ev.Severity)
	}

	cb.Reset()
	awaitEvent(t, recovered, "name", "lrclib")
}

func TestSetupNotifiers(t *testing.T) {
	tests := []struct {
		name     string
		setup    func(c *config.Config)
		expected []string
	}{
		{"none configured", func(c *config.Config) {}, nil},
		{"ntfy only", func(c *config.Config) { c.Notifier.NtfyTopic = "lyrics-alerts" }, []string{"ntfy"}},
		{"all channels", func(c *config.Config) {
			c.Notifier.SMTPHost = "smtp.example.com"
			c.Notifier.TelegramBotToken = "bot-token"
			c.Notifier.NtfyTopic = "lyrics-alerts"
		}, []string{"email", "telegram", "ntfy"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var cfg config.Config
			tt.setup(&cfg)

			got := setupNotifiers(cfg)
			if len(got) != len(tt.expected) {
				t.Fatalf("Expected %d notifiers, got %d", len(tt.expected), len(got))
			}
			for i, n := range got {
				if name := notifier.TypeName(n); name != tt.expected[i] {
					t.Errorf("Expected notifier %d to be %s, got %s", i, tt.expected[i], name)
				}
			}
			if h := startAlerts(cfg, notifier.NewEventBus()); (h != nil) != (len(tt.expected) > 0) {
				t.Errorf("Expected alert handler only when a notifier is configured, got %v", h)
			}
		})
	}
}

func TestStatsHandler(t *testing.T) {
	builtEngine(t)

	w := serve("GET", "/stats", "")
	if w.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", w.Code)
	}
	var snapshot map[string]interface{}
	json.NewDecoder(w.Body).Decode(&snapshot)
	for _, key := range []string{"server", "requests", "searches", "lyrics", "circuit_breakers"} {
		if _, ok := snapshot[key]; !ok {
			t.Errorf("Expected %q in stats snapshot", key)
		}
	}
}

func TestLimitMiddleware(t *testing.T) {
	prevKey := conf.Configuration.APIKey
	conf.Configuration.APIKey = "secret"
	defer func() { conf.Configuration.APIKey = prevKey }()

	limiter := middleware.NewIPRateLimiter(rate.Limit(0.001), 1)
	handler := limitMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		Respond(w, r).JSON(map[string]string{})
	}), limiter)

	request := func(key string) *httptest.ResponseRecorder {
		r := httptest.NewRequest("GET", "/search?q=test", nil)
		r.RemoteAddr = "10.0.0.1:1234"
		if key != "" {
			r.Header.Set("X-API-Key", key)
		}
		w := httptest.NewRecorder()
		handler.ServeHTTP(w, r)
		return w
	}

	w := request("")
	if w.Code != http.StatusOK {
		t.Fatalf("Expected first request to pass, got %d", w.Code)
	}
	if got := w.Header().Get("X-RateLimit-Type"); got != "normal" {
		t.Errorf("Expected X-RateLimit-Type normal, got %q", got)
	}

	w = request("")
	if w.Code != http.StatusTooManyRequests {
		t.Errorf("Expected 429, got %d", w.Code)
	}
	if w.Header().Get("Retry-After") == "" {
		t.Error("Expected Retry-After header")
	}

	w = request("secret")
	if w.Code != http.StatusOK {
		t.Errorf("Expected API key to bypass the limit, got %d", w.Code)
	}
	if w.Header().Get("X-RateLimit-Bypass") != "true" {
		t.Error("Expected X-RateLimit-Bypass header")
	}
}

func TestBuildHandler_AdminPathsNeedKey(t *testing.T) {
	stubEngine(t, &stubCatalog{}, &stubLyrics{})

	prev := conf.Configuration
	conf.Configuration.APIKey = "secret"
	conf.Configuration.APIKeyRequired = true
	defer func() { conf.Configuration = prev }()

	router := mux.NewRouter()
	setupRoutes(router)
	handler := buildHandler(router, middleware.NewIPRateLimiter(rate.Inf, 10))

	tests := []struct {
		name     string
		target   string
		key      string
		expected int
	}{
		{"stats without key", "/stats", "", http.StatusUnauthorized},
		{"stats with key", "/stats", "secret", http.StatusOK},
		{"breakers with wrong key", "/circuit-breaker", "nope", http.StatusUnauthorized},
		{"health is public", "/health", "", http.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := httptest.NewRequest("GET", tt.target, nil)
			if tt.key != "" {
				r.Header.Set("X-API-Key", tt.key)
			}
			w := httptest.NewRecorder()
			handler.ServeHTTP(w, r)
			if w.Code != tt.expected {
				t.Errorf("Expected %d, got %d", tt.expected, w.Code)
			}
		})
	}
}

func TestRequestIDMiddleware(t *testing.T) {
	handler := requestIDMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		Respond(w, r).JSON(map[string]string{})
	}))

	w := httptest.NewRecorder()
	handler.ServeHTTP(w, httptest.NewRequest("GET", "/", nil))
	if len(w.Header().Get("X-Request-ID")) != 36 {
		t.Errorf("Expected a generated uuid, got %q", w.Header().Get("X-Request-ID"))
	}

	w = httptest.NewRecorder()
	r := httptest.NewRequest("GET", "/", nil)
	r.Header.Set("X-Request-ID", "client-id")
	handler.ServeHTTP(w, r)
	if got := w.Header().Get("X-Request-ID"); got != "client-id" {
		t.Errorf("Expected client-id, got %q", got)
	}
}
