package config

import (
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
	log "github.com/sirupsen/logrus"
)

var conf = mustLoad()

type Config struct {
	Configuration struct {
		Port     string `envconfig:"PORT" default:"8080"`
		LogLevel string `envconfig:"LOG_LEVEL" default:"info"`

		RateLimitPerSecond  int    `envconfig:"RATE_LIMIT_PER_SECOND" default:"2"`
		RateLimitBurstLimit int    `envconfig:"RATE_LIMIT_BURST_LIMIT" default:"5"`
		APIKey              string `envconfig:"API_KEY" default:""`
		APIKeyRequired      bool   `envconfig:"API_KEY_REQUIRED" default:"false"`

		// Structured providers
		SpotifyClientID     string `envconfig:"SPOTIFY_CLIENT_ID" default:""`
		SpotifyClientSecret string `envconfig:"SPOTIFY_CLIENT_SECRET" default:""`
		SpotifyMarket       string `envconfig:"SPOTIFY_MARKET" default:"US"`
		GeniusBaseURL       string `envconfig:"GENIUS_BASE_URL" default:"https://genius.com/api"`
		GeniusAccessToken   string `envconfig:"GENIUS_ACCESS_TOKEN" default:""`
		LrclibBaseURL       string `envconfig:"LRCLIB_BASE_URL" default:"https://lrclib.net/api"`

		// Provider order, first entry is the primary
		CatalogProviders string `envconfig:"CATALOG_PROVIDERS" default:"spotify,genius"`
		LyricsProviders  string `envconfig:"LYRICS_PROVIDERS" default:"genius,lrclib"`

		// Regional (unstructured) sources
		RegionalBaseURL   string `envconfig:"REGIONAL_BASE_URL" default:"https://www.tamil2lyrics.com"`
		RegionalSearchURL string `envconfig:"REGIONAL_SEARCH_URL" default:"https://www.tamil2lyrics.com/?s=%s"`
		UserAgent         string `envconfig:"USER_AGENT" default:"lyrics-finder/1.0 (+https://github.com/lyrics-finder; lyrics lookup bot)"`

		SongResultLimit      int `envconfig:"SONG_RESULT_LIMIT" default:"10"`
		ArtistResultLimit    int `envconfig:"ARTIST_RESULT_LIMIT" default:"10"`
		ArtistCatalogCap     int `envconfig:"ARTIST_CATALOG_CAP" default:"100"`
		MinQueryLength       int `envconfig:"MIN_QUERY_LENGTH" default:"2"`
		SlugFetchLimit       int `envconfig:"SLUG_FETCH_LIMIT" default:"8"`
		PageFetchTimeoutSecs int `envconfig:"PAGE_FETCH_TIMEOUT_SECS" default:"10"`
		ProviderTimeoutSecs  int `envconfig:"PROVIDER_TIMEOUT_SECS" default:"10"`

		CircuitBreakerThreshold    int `envconfig:"CIRCUIT_BREAKER_THRESHOLD" default:"5"`
		CircuitBreakerCooldownSecs int `envconfig:"CIRCUIT_BREAKER_COOLDOWN_SECS" default:"300"`

		PageCachePath    string `envconfig:"PAGE_CACHE_PATH" default:"./data/pages.db"`
		PageCacheTTLSecs int    `envconfig:"PAGE_CACHE_TTL_SECS" default:"86400"`

		StatsDBPath           string `envconfig:"STATS_DB_PATH" default:"./data/stats.db"`
		StatsSaveIntervalSecs int    `envconfig:"STATS_SAVE_INTERVAL_SECS" default:"300"`
		CORSAllowedOrigins    string `envconfig:"CORS_ALLOWED_ORIGINS" default:"*"`
	}

	// Alert channels, each enabled by its first key
	Notifier struct {
		SMTPHost         string `envconfig:"NOTIFIER_SMTP_HOST" default:""`
		SMTPPort         string `envconfig:"NOTIFIER_SMTP_PORT" default:"587"`
		SMTPUsername     string `envconfig:"NOTIFIER_SMTP_USERNAME" default:""`
		SMTPPassword     string `envconfig:"NOTIFIER_SMTP_PASSWORD" default:""`
		FromEmail        string `envconfig:"NOTIFIER_FROM_EMAIL" default:""`
		ToEmail          string `envconfig:"NOTIFIER_TO_EMAIL" default:""`
		TelegramBotToken string `envconfig:"NOTIFIER_TELEGRAM_BOT_TOKEN" default:""`
		TelegramChatID   string `envconfig:"NOTIFIER_TELEGRAM_CHAT_ID" default:""`
		NtfyTopic        string `envconfig:"NOTIFIER_NTFY_TOPIC" default:""`
		NtfyServer       string `envconfig:"NOTIFIER_NTFY_SERVER" default:"https://ntfy.sh"`
		CooldownSecs     int    `envconfig:"NOTIFIER_ALERT_COOLDOWN_SECS" default:"900"`
	}

	FeatureFlags struct {
		PageCache        bool `envconfig:"FF_PAGE_CACHE" default:"false"`
		CacheCompression bool `envconfig:"FF_CACHE_COMPRESSION" default:"true"`
		PersistStats     bool `envconfig:"FF_PERSIST_STATS" default:"false"`
	}
}

// load loads the configuration from the environment.
func load() (Config, error) {
	err := godotenv.Load()
	if err != nil {
		log.Debugf("No .env file loaded: %v", err)
	}

	cfg := Config{}
	err = envconfig.Process("", &cfg)
	return cfg, err
}

func mustLoad() Config {
	c, err := load()
	if err != nil {
		log.WithError(err).Warnf("Unable to load configuration")
	}

	return c
}

func Get() Config {
	return conf
}

// CatalogChain returns the configured catalog provider names in priority order.
func (c Config) CatalogChain() []string {
	return splitList(c.Configuration.CatalogProviders)
}

// LyricsChain returns the configured lyrics provider names in priority order.
func (c Config) LyricsChain() []string {
	return splitList(c.Configuration.LyricsProviders)
}

func (c Config) PageFetchTimeout() time.Duration {
	return seconds(c.Configuration.PageFetchTimeoutSecs, 10)
}

func (c Config) ProviderTimeout() time.Duration {
	return seconds(c.Configuration.ProviderTimeoutSecs, 10)
}

func (c Config) CircuitBreakerCooldown() time.Duration {
	return seconds(c.Configuration.CircuitBreakerCooldownSecs, 300)
}

func (c Config) PageCacheTTL() time.Duration {
	return seconds(c.Configuration.PageCacheTTLSecs, 86400)
}

func (c Config) StatsSaveInterval() time.Duration {
	return seconds(c.Configuration.StatsSaveIntervalSecs, 300)
}

func (c Config) AlertCooldown() time.Duration {
	return seconds(c.Notifier.CooldownSecs, 900)
}

// AllowedOrigins returns the CORS origins; origins keep their case.
func (c Config) AllowedOrigins() []string {
	var out []string
	for _, part := range strings.Split(c.Configuration.CORSAllowedOrigins, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func seconds(v, fallback int) time.Duration {
	if v <= 0 {
		v = fallback
	}
	return time.Duration(v) * time.Second
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		part = strings.ToLower(strings.TrimSpace(part))
		if part != "" {
			out = append(out, part)
		}
	}
	return out
}
