package stats

import (
	"sync"
	"sync/atomic"
	"time"

	"lyrics-finder-go/circuitbreaker"
	"lyrics-finder-go/services/providers"
)

const maxInt64 = int64(^uint64(0) >> 1)

// Stats holds all server statistics with atomic counters
type Stats struct {
	// Server info
	StartTime time.Time

	// Request counters
	TotalRequests  atomic.Int64
	SearchRequests atomic.Int64
	LyricsRequests atomic.Int64
	AdminRequests  atomic.Int64
	StatsRequests  atomic.Int64
	HealthRequests atomic.Int64
	OtherRequests  atomic.Int64

	// Search outcomes
	SongSearches     atomic.Int64
	ArtistSearches   atomic.Int64
	RegionalSearches atomic.Int64
	FailedSearches   atomic.Int64

	// Lyrics outcomes by resolver stage
	LyricsPrefetched atomic.Int64
	LyricsDirect     atomic.Int64
	LyricsSearched   atomic.Int64
	LyricsGuidance   atomic.Int64
	LyricsFailed     atomic.Int64

	// Upstream provider calls
	ProviderCalls  atomic.Int64
	ProviderErrors atomic.Int64

	// Rate limiting
	RateLimitNormal   atomic.Int64 // Requests served under the rate limit
	RateLimitExceeded atomic.Int64 // Requests rejected (429)

	// Response status codes
	Status2xx atomic.Int64
	Status4xx atomic.Int64
	Status5xx atomic.Int64

	// Response time tracking (in microseconds for precision)
	totalResponseTime atomic.Int64
	responseCount     atomic.Int64
	minResponseTime   atomic.Int64
	maxResponseTime   atomic.Int64

	// Endpoint response times (microseconds)
	lyricsResponseTime  atomic.Int64
	lyricsResponseCount atomic.Int64

	// Per-provider call counts (map[string]*atomic.Int64)
	providerUsage sync.Map
}

// Global stats instance
var global = newStats()

func newStats() *Stats {
	s := &Stats{StartTime: time.Now()}
	s.minResponseTime.Store(maxInt64)
	return s
}

// Get returns the global stats instance
func Get() *Stats {
	return global
}

// RecordRequest records a request to a specific endpoint
func (s *Stats) RecordRequest(endpoint string) {
	s.TotalRequests.Add(1)
	switch endpoint {
	case "/search":
		s.SearchRequests.Add(1)
	case "/lyrics":
		s.LyricsRequests.Add(1)
	case "/circuit-breaker", "/circuit-breaker/reset", "/cache/clear":
		s.AdminRequests.Add(1)
	case "/stats", "/metrics":
		s.StatsRequests.Add(1)
	case "/health":
		s.HealthRequests.Add(1)
	default:
		s.OtherRequests.Add(1)
	}
}

// RecordSearch records the outcome of one search
func (s *Stats) RecordSearch(mode providers.SearchMode, result *providers.SearchResult) {
	switch mode {
	case providers.ModeSong:
		s.SongSearches.Add(1)
	case providers.ModeArtist:
		s.ArtistSearches.Add(1)
	case providers.ModeRegional:
		s.RegionalSearches.Add(1)
	}

	outcome := "ok"
	switch {
	case result == nil:
		outcome = "error"
	case result.Failed:
		outcome = "failed"
		s.FailedSearches.Add(1)
	case result.Empty():
		outcome = "empty"
	}
	searchesTotal.WithLabelValues(mode.String(), outcome).Inc()
}

// RecordLyrics records which resolver stage produced a result
func (s *Stats) RecordLyrics(result *providers.LyricsResult) {
	stage := providers.StageFailed
	if result != nil {
		stage = result.Stage
	}
	switch stage {
	case providers.StagePrefetched:
		s.LyricsPrefetched.Add(1)
	case providers.StageProviderDirect:
		s.LyricsDirect.Add(1)
	case providers.StageProviderSearch:
		s.LyricsSearched.Add(1)
	case providers.StageAlternative:
		s.LyricsGuidance.Add(1)
	default:
		s.LyricsFailed.Add(1)
	}
	lyricsResolutions.WithLabelValues(string(stage)).Inc()
}

// RecordProviderCall has the providers.Observer signature so it can be handed to the engine.
func (s *Stats) RecordProviderCall(provider, op string, err error, elapsed time.Duration) {
	s.ProviderCalls.Add(1)
	result := "ok"
	if err != nil {
		s.ProviderErrors.Add(1)
		result = providers.ErrorKind(err)
	}

	counter, _ := s.providerUsage.LoadOrStore(provider, &atomic.Int64{})
	counter.(*atomic.Int64).Add(1)

	providerCalls.WithLabelValues(provider, op, result).Inc()
	providerDuration.WithLabelValues(provider, op).Observe(elapsed.Seconds())
}

// RecordBreakerTransition has the circuitbreaker.TransitionFunc signature.
func (s *Stats) RecordBreakerTransition(name string, from, to circuitbreaker.State) {
	breakerState.WithLabelValues(name).Set(float64(to))
	breakerTransitions.WithLabelValues(name, to.String()).Inc()
}

// ProviderUsageSnapshot returns call counts per provider
func (s *Stats) ProviderUsageSnapshot() map[string]int64 {
	out := make(map[string]int64)
	s.providerUsage.Range(func(key, value any) bool {
		out[key.(string)] = value.(*atomic.Int64).Load()
		return true
	})
	return out
}

// RecordRateLimit records rate limit tier usage
func (s *Stats) RecordRateLimit(tier string) {
	switch tier {
	case "normal":
		s.RateLimitNormal.Add(1)
	case "exceeded":
		s.RateLimitExceeded.Add(1)
	}
}

// RecordStatusCode records a response status code
func (s *Stats) RecordStatusCode(code int) {
	switch {
	case code >= 200 && code < 300:
		s.Status2xx.Add(1)
	case code >= 400 && code < 500:
		s.Status4xx.Add(1)
	case code >= 500:
		s.Status5xx.Add(1)
	}
}

// RecordResponseTime records a response time
func (s *Stats) RecordResponseTime(duration time.Duration, endpoint string, code int) {
	us := duration.Microseconds()

	s.totalResponseTime.Add(us)
	s.responseCount.Add(1)

	for {
		current := s.minResponseTime.Load()
		if us >= current || s.minResponseTime.CompareAndSwap(current, us) {
			break
		}
	}
	for {
		current := s.maxResponseTime.Load()
		if us <= current || s.maxResponseTime.CompareAndSwap(current, us) {
			break
		}
	}

	if endpoint == "/lyrics" {
		s.lyricsResponseTime.Add(us)
		s.lyricsResponseCount.Add(1)
	}

	observeHTTP(endpoint, code, duration)
}

// Uptime returns the server uptime
func (s *Stats) Uptime() time.Duration {
	return time.Since(s.StartTime)
}

// AvgResponseTime returns the average response time
func (s *Stats) AvgResponseTime() time.Duration {
	count := s.responseCount.Load()
	if count == 0 {
		return 0
	}
	return time.Duration(s.totalResponseTime.Load()/count) * time.Microsecond
}

// MinResponseTime returns the minimum response time
func (s *Stats) MinResponseTime() time.Duration {
	min := s.minResponseTime.Load()
	if min == maxInt64 {
		return 0
	}
	return time.Duration(min) * time.Microsecond
}

// MaxResponseTime returns the maximum response time
func (s *Stats) MaxResponseTime() time.Duration {
	return time.Duration(s.maxResponseTime.Load()) * time.Microsecond
}

// AvgLyricsResponseTime returns the average response time for lyrics requests
func (s *Stats) AvgLyricsResponseTime() time.Duration {
	count := s.lyricsResponseCount.Load()
	if count == 0 {
		return 0
	}
	return time.Duration(s.lyricsResponseTime.Load()/count) * time.Microsecond
}

// Snapshot returns a point-in-time snapshot of all stats
func (s *Stats) Snapshot() map[string]interface{} {
	uptime := s.Uptime()

	return map[string]interface{}{
		"server": map[string]interface{}{
			"start_time":     s.StartTime.Format(time.RFC3339),
			"uptime":         uptime.String(),
			"uptime_seconds": int64(uptime.Seconds()),
		},
		"requests": map[string]interface{}{
			"total":  s.TotalRequests.Load(),
			"search": s.SearchRequests.Load(),
			"lyrics": s.LyricsRequests.Load(),
			"admin":  s.AdminRequests.Load(),
			"stats":  s.StatsRequests.Load(),
			"health": s.HealthRequests.Load(),
			"other":  s.OtherRequests.Load(),
		},
		"searches": map[string]interface{}{
			"song":     s.SongSearches.Load(),
			"artist":   s.ArtistSearches.Load(),
			"regional": s.RegionalSearches.Load(),
			"failed":   s.FailedSearches.Load(),
		},
		"lyrics": map[string]interface{}{
			"prefetched":      s.LyricsPrefetched.Load(),
			"provider_direct": s.LyricsDirect.Load(),
			"provider_search": s.LyricsSearched.Load(),
			"guidance":        s.LyricsGuidance.Load(),
			"failed":          s.LyricsFailed.Load(),
		},
		"providers": map[string]interface{}{
			"calls":  s.ProviderCalls.Load(),
			"errors": s.ProviderErrors.Load(),
			"usage":  s.ProviderUsageSnapshot(),
		},
		"rate_limiting": map[string]interface{}{
			"normal_tier": s.RateLimitNormal.Load(),
			"exceeded":    s.RateLimitExceeded.Load(),
		},
		"responses": map[string]interface{}{
			"2xx": s.Status2xx.Load(),
			"4xx": s.Status4xx.Load(),
			"5xx": s.Status5xx.Load(),
		},
		"response_times": map[string]interface{}{
			"avg":        s.AvgResponseTime().String(),
			"min":        s.MinResponseTime().String(),
			"max":        s.MaxResponseTime().String(),
			"avg_lyrics": s.AvgLyricsResponseTime().String(),
		},
	}
}
