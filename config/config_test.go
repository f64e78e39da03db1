package config

import (
	"os"
	"reflect"
	"testing"
	"time"
)

func TestConfigDefaultValues(t *testing.T) {
	// Clear any existing env vars that might interfere
	envVars := []string{
		"RATE_LIMIT_PER_SECOND",
		"RATE_LIMIT_BURST_LIMIT",
		"SPOTIFY_MARKET",
		"CATALOG_PROVIDERS",
		"LYRICS_PROVIDERS",
		"SONG_RESULT_LIMIT",
		"ARTIST_CATALOG_CAP",
		"MIN_QUERY_LENGTH",
		"SLUG_FETCH_LIMIT",
		"PAGE_FETCH_TIMEOUT_SECS",
		"FF_PAGE_CACHE",
		"FF_CACHE_COMPRESSION",
	}

	originalValues := make(map[string]string)
	for _, key := range envVars {
		originalValues[key] = os.Getenv(key)
		os.Unsetenv(key)
	}
	defer func() {
		for key, value := range originalValues {
			if value != "" {
				os.Setenv(key, value)
			}
		}
	}()

	cfg, err := load()
	if err != nil {
		t.Fatalf("Failed to load config: %v", err)
	}

	tests := []struct {
		name     string
		got      interface{}
		expected interface{}
	}{
		{name: "RateLimitPerSecond default", got: cfg.Configuration.RateLimitPerSecond, expected: 2},
		{name: "RateLimitBurstLimit default", got: cfg.Configuration.RateLimitBurstLimit, expected: 5},
		{name: "SpotifyMarket default", got: cfg.Configuration.SpotifyMarket, expected: "US"},
		{name: "SongResultLimit default", got: cfg.Configuration.SongResultLimit, expected: 10},
		{name: "ArtistCatalogCap default", got: cfg.Configuration.ArtistCatalogCap, expected: 100},
		{name: "MinQueryLength default", got: cfg.Configuration.MinQueryLength, expected: 2},
		{name: "SlugFetchLimit default", got: cfg.Configuration.SlugFetchLimit, expected: 8},
		{name: "PageFetchTimeout default", got: cfg.PageFetchTimeout(), expected: 10 * time.Second},
		{name: "PageCache default", got: cfg.FeatureFlags.PageCache, expected: false},
		{name: "CacheCompression default", got: cfg.FeatureFlags.CacheCompression, expected: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.got != tt.expected {
				t.Errorf("Expected %v, got %v", tt.expected, tt.got)
			}
		})
	}

	if !reflect.DeepEqual(cfg.CatalogChain(), []string{"spotify", "genius"}) {
		t.Errorf("Expected default catalog chain [spotify genius], got %v", cfg.CatalogChain())
	}
	if !reflect.DeepEqual(cfg.LyricsChain(), []string{"genius", "lrclib"}) {
		t.Errorf("Expected default lyrics chain [genius lrclib], got %v", cfg.LyricsChain())
	}
}

func TestConfigEnvironmentOverrides(t *testing.T) {
	os.Setenv("CATALOG_PROVIDERS", " Genius , ,spotify")
	os.Setenv("SLUG_FETCH_LIMIT", "4")
	os.Setenv("PROVIDER_TIMEOUT_SECS", "3")
	os.Setenv("FF_PAGE_CACHE", "true")
	defer func() {
		os.Unsetenv("CATALOG_PROVIDERS")
		os.Unsetenv("SLUG_FETCH_LIMIT")
		os.Unsetenv("PROVIDER_TIMEOUT_SECS")
		os.Unsetenv("FF_PAGE_CACHE")
	}()

	cfg, err := load()
	if err != nil {
		t.Fatalf("Failed to load config: %v", err)
	}

	if got := cfg.CatalogChain(); !reflect.DeepEqual(got, []string{"genius", "spotify"}) {
		t.Errorf("Expected [genius spotify], got %v", got)
	}
	if cfg.Configuration.SlugFetchLimit != 4 {
		t.Errorf("Expected SlugFetchLimit 4, got %d", cfg.Configuration.SlugFetchLimit)
	}
	if cfg.ProviderTimeout() != 3*time.Second {
		t.Errorf("Expected ProviderTimeout 3s, got %v", cfg.ProviderTimeout())
	}
	if !cfg.FeatureFlags.PageCache {
		t.Error("Expected PageCache to be enabled")
	}
}

func TestDurationHelpersFallBackOnInvalidValues(t *testing.T) {
	var cfg Config
	cfg.Configuration.PageFetchTimeoutSecs = 0
	cfg.Configuration.ProviderTimeoutSecs = -5
	cfg.Configuration.CircuitBreakerCooldownSecs = 0

	if cfg.PageFetchTimeout() != 10*time.Second {
		t.Errorf("Expected 10s fallback, got %v", cfg.PageFetchTimeout())
	}
	if cfg.ProviderTimeout() != 10*time.Second {
		t.Errorf("Expected 10s fallback, got %v", cfg.ProviderTimeout())
	}
	if cfg.CircuitBreakerCooldown() != 5*time.Minute {
		t.Errorf("Expected 5m fallback, got %v", cfg.CircuitBreakerCooldown())
	}
	if cfg.AlertCooldown() != 15*time.Minute {
		t.Errorf("Expected 15m fallback, got %v", cfg.AlertCooldown())
	}
}

func TestAllowedOrigins(t *testing.T) {
	tests := []struct {
		raw      string
		expected []string
	}{
		{"*", []string{"*"}},
		{"https://Example.com, http://localhost:3000 ,", []string{"https://Example.com", "http://localhost:3000"}},
		{"", nil},
	}

	for _, tt := range tests {
		var cfg Config
		cfg.Configuration.CORSAllowedOrigins = tt.raw
		if got := cfg.AllowedOrigins(); !reflect.DeepEqual(got, tt.expected) {
			t.Errorf("AllowedOrigins(%q): expected %v, got %v", tt.raw, tt.expected, got)
		}
	}
}
