package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"lyrics-finder-go/circuitbreaker"
	"lyrics-finder-go/logcolors"
	"lyrics-finder-go/services/engine"
	"lyrics-finder-go/services/notifier"
	"lyrics-finder-go/services/providers"
	"lyrics-finder-go/stats"

	log "github.com/sirupsen/logrus"
)

var lyricsEngine *engine.Engine

const maxBodyBytes = 1 << 20

func searchHandler(w http.ResponseWriter, r *http.Request) {
	req, err := parseSearchRequest(w, r)
	if err != nil {
		Respond(w, r).Error(http.StatusBadRequest, ErrorResponse{Error: "invalid request", Message: err.Error()})
		return
	}

	mode, err := providers.ParseSearchMode(req.Mode)
	if err != nil {
		Respond(w, r).Error(http.StatusBadRequest, ErrorResponse{Error: "invalid mode", Message: err.Error()})
		return
	}

	result, err := lyricsEngine.Search(r.Context(), req.Query, mode, req.Artist)
	switch {
	case errors.Is(err, engine.ErrQueryTooShort):
		Respond(w, r).SetMode(mode).Error(http.StatusBadRequest, ErrorResponse{Error: "query too short", Message: err.Error()})
		return
	case err != nil:
		log.Errorf("%s Search %q (%s) aborted: %v", logcolors.LogSearch, req.Query, mode, err)
		Respond(w, r).SetMode(mode).Error(http.StatusServiceUnavailable, ErrorResponse{Error: "search aborted", Message: err.Error()})
		return
	}
	stats.Get().RecordSearch(mode, result)

	resp := SearchResponse{
		Query:   req.Query,
		Mode:    mode.String(),
		Songs:   result.Songs,
		Artists: result.Artists,
		Failed:  result.Failed,
		Notice:  result.Notice,
	}
	if resp.Songs == nil {
		resp.Songs = []providers.Song{}
	}
	Respond(w, r).SetMode(mode).JSON(resp)
}

// parseSearchRequest reads q, mode, artist and repeated handle=provider:id
// parameters for GET, or a SearchRequest body for POST.
func parseSearchRequest(w http.ResponseWriter, r *http.Request) (SearchRequest, error) {
	var req SearchRequest
	if r.Method == http.MethodPost {
		if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(&req); err != nil {
			return req, fmt.Errorf("decode body: %w", err)
		}
		return req, nil
	}

	q := r.URL.Query()
	req.Query = q.Get("q")
	req.Mode = q.Get("mode")

	name := strings.TrimSpace(q.Get("artist"))
	handles := q["handle"]
	if name == "" && len(handles) == 0 {
		return req, nil
	}

	artist := &providers.Artist{Name: name, Handles: make(map[string]providers.Handle)}
	for _, h := range handles {
		provider, id, ok := strings.Cut(h, ":")
		if !ok || provider == "" || id == "" {
			return req, fmt.Errorf("handle %q must be provider:id", h)
		}
		artist.Handles[provider] = providers.Handle{Provider: provider, ID: id}
		if artist.ID == "" {
			artist.ID = id
		}
	}
	req.Artist = artist
	return req, nil
}

func lyricsHandler(w http.ResponseWriter, r *http.Request) {
	song, err := parseLyricsRequest(w, r)
	if err != nil {
		Respond(w, r).Error(http.StatusBadRequest, ErrorResponse{Error: "invalid request", Message: err.Error()})
		return
	}
	if song.Title == "" && len(song.AvailableSources) == 0 {
		Respond(w, r).Error(http.StatusUnprocessableEntity, ErrorResponse{Error: "song title is required"})
		return
	}

	result := lyricsEngine.ResolveLyrics(r.Context(), song)
	stats.Get().RecordLyrics(result)

	resp := LyricsResponse{Title: song.Title, Artist: song.ArtistName, LyricsResult: result}
	if !result.Resolved() {
		log.Warnf("%s No lyrics for %q by %q: %s", logcolors.LogLyrics, song.Title, song.ArtistName, result.ErrorKind)
		Respond(w, r).SetStage(result.Stage).Error(lyricsFailureStatus(result.ErrorKind), resp)
		return
	}
	Respond(w, r).SetStage(result.Stage).JSON(resp)
}

// parseLyricsRequest accepts a Song body for POST. GET takes title and artist
// (s and a as short forms) plus an optional handle=provider:id.
func parseLyricsRequest(w http.ResponseWriter, r *http.Request) (providers.Song, error) {
	var song providers.Song
	if r.Method == http.MethodPost {
		if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(&song); err != nil {
			return song, fmt.Errorf("decode body: %w", err)
		}
		return song, nil
	}

	q := r.URL.Query()
	song.Title = firstNonEmpty(q.Get("title"), q.Get("s"), q.Get("song"))
	song.ArtistName = firstNonEmpty(q.Get("artist"), q.Get("a"))
	if h := q.Get("handle"); h != "" {
		provider, id, ok := strings.Cut(h, ":")
		if !ok || provider == "" || id == "" {
			return song, fmt.Errorf("handle %q must be provider:id", h)
		}
		song.Handle = &providers.Handle{Provider: provider, ID: id}
	}
	return song, nil
}

func lyricsFailureStatus(kind string) int {
	switch kind {
	case "not_found", "lyrics_unavailable":
		return http.StatusNotFound
	case "rate_limited":
		return http.StatusTooManyRequests
	default:
		return http.StatusBadGateway
	}
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			return v
		}
	}
	return ""
}

func healthHandler(w http.ResponseWriter, r *http.Request) {
	breakers := lyricsEngine.Breakers()

	states := make(map[string]string, len(breakers))
	open := 0
	for _, cb := range breakers {
		state := cb.State()
		states[cb.Name()] = state.String()
		if state == circuitbreaker.StateOpen {
			open++
		}
	}

	health := map[string]interface{}{
		"status":           "ok",
		"providers":        lyricsEngine.Providers(),
		"circuit_breakers": states,
	}

	// Regional search needs no breaker, so open breakers only degrade
	if open > 0 {
		health["status"] = "degraded"
	}

	// If authenticated, include detailed token status
	if key := r.Header.Get("X-API-Key"); key != "" && key == conf.Configuration.APIKey {
		tokens := make(map[string]interface{})
		for name, st := range lyricsEngine.TokenStatus() {
			tokens[name] = map[string]interface{}{
				"expires":       st.Expiry,
				"remaining":     st.Remaining.String(),
				"needs_refresh": st.NeedsRefresh,
			}
		}
		health["tokens"] = tokens
	}

	Respond(w, r).JSON(health)
}

func statsHandler(w http.ResponseWriter, r *http.Request) {
	snapshot := stats.Get().Snapshot()

	if pc := lyricsEngine.PageCache(); pc != nil {
		numKeys, sizeInKB := pc.Stats()
		snapshot["page_cache"] = map[string]interface{}{
			"keys":    numKeys,
			"size_kb": sizeInKB,
			"size_mb": float64(sizeInKB) / 1024,
		}
	}

	snapshot["circuit_breakers"] = breakerSnapshots()
	Respond(w, r).JSON(snapshot)
}

func breakerSnapshots() []circuitbreaker.Snapshot {
	breakers := lyricsEngine.Breakers()
	out := make([]circuitbreaker.Snapshot, 0, len(breakers))
	for _, cb := range breakers {
		out = append(out, cb.Snapshot())
	}
	return out
}

func circuitBreakerStatusHandler(w http.ResponseWriter, r *http.Request) {
	Respond(w, r).JSON(map[string]interface{}{
		"breakers": breakerSnapshots(),
		"config": map[string]interface{}{
			"threshold":    conf.Configuration.CircuitBreakerThreshold,
			"cooldown_sec": conf.Configuration.CircuitBreakerCooldownSecs,
		},
	})
}

// resetCircuitBreakerHandler resets one breaker when ?provider= is given, otherwise all of them
func resetCircuitBreakerHandler(w http.ResponseWriter, r *http.Request) {
	name := r.URL.Query().Get("provider")
	if name == "" {
		var reset []string
		for _, cb := range lyricsEngine.Breakers() {
			cb.Reset()
			reset = append(reset, cb.Name())
		}
		log.Infof("%s Reset %d circuit breakers", logcolors.LogServer, len(reset))
		Respond(w, r).JSON(map[string]interface{}{
			"message": "Circuit breakers reset to CLOSED state",
			"reset":   reset,
		})
		return
	}

	cb, ok := lyricsEngine.Breaker(name)
	if !ok {
		Respond(w, r).Error(http.StatusNotFound, ErrorResponse{Error: "unknown provider", Message: name})
		return
	}
	cb.Reset()
	Respond(w, r).JSON(map[string]interface{}{
		"message": fmt.Sprintf("Circuit breaker %s reset to CLOSED state", name),
		"reset":   []string{name},
	})
}

func clearCacheHandler(w http.ResponseWriter, r *http.Request) {
	pc := lyricsEngine.PageCache()
	if pc == nil {
		Respond(w, r).Error(http.StatusNotFound, ErrorResponse{Error: "page cache is disabled"})
		return
	}

	cleared, err := pc.Clear()
	if err != nil {
		log.Errorf("%s Failed to clear page cache: %v", logcolors.LogCacheClear, err)
		Respond(w, r).Error(http.StatusInternalServerError, ErrorResponse{Error: "failed to clear page cache", Message: err.Error()})
		return
	}

	notifier.PublishPageCacheCleared(cleared)
	Respond(w, r).JSON(map[string]interface{}{
		"message": "Page cache cleared",
		"cleared": cleared,
	})
}

func helpHandler(w http.ResponseWriter, r *http.Request) {
	Respond(w, r).JSON(map[string]interface{}{
		"help": "Use /search?q=<query>&mode=song|artist|regional to find songs, then /lyrics?title=<title>&artist=<artist> (or POST a song from the search results) to get its lyrics. Example: /lyrics?title=Vennilave&artist=Hariharan",
		"endpoints": []string{
			"GET|POST /search",
			"GET|POST /lyrics",
			"GET /health",
			"GET /stats",
			"GET /metrics",
			"GET /circuit-breaker",
			"POST /circuit-breaker/reset",
			"POST /cache/clear",
		},
	})
}
