package engine

import (
	"fmt"

	"lyrics-finder-go/cache"
	"lyrics-finder-go/circuitbreaker"
	"lyrics-finder-go/config"
	"lyrics-finder-go/logcolors"
	"lyrics-finder-go/services/providers"
	"lyrics-finder-go/services/providers/genius"
	"lyrics-finder-go/services/providers/lrclib"
	"lyrics-finder-go/services/providers/spotify"
	"lyrics-finder-go/services/regional"
	"lyrics-finder-go/services/token"

	log "github.com/sirupsen/logrus"
)

// Options carries the hooks the caller layer uses for metrics and alerts.
type Options struct {
	Observe        providers.Observer
	OnTransition   circuitbreaker.TransitionFunc
	OnHighFailures circuitbreaker.WarningFunc
	OnAuthFailure  func(provider string, status int)
}

// Build creates every provider named in cfg, guards each with a circuit
// breaker and a per-call timeout, and wires them into an Engine.
func Build(cfg config.Config, opts Options) (*Engine, error) {
	c := cfg.Configuration
	e := &Engine{
		registry: providers.NewRegistry(),
		breakers: make(map[string]*circuitbreaker.CircuitBreaker),
		tokens:   make(map[string]*token.Cache),
	}

	guardOpts := func(name string) providers.GuardOptions {
		cb, ok := e.breakers[name]
		if !ok {
			cb = circuitbreaker.New(circuitbreaker.Config{
				Name:           name,
				Threshold:      c.CircuitBreakerThreshold,
				Cooldown:       cfg.CircuitBreakerCooldown(),
				OnTransition:   opts.OnTransition,
				OnHighFailures: opts.OnHighFailures,
			})
			e.breakers[name] = cb
		}
		return providers.GuardOptions{
			Breaker: cb,
			Timeout: cfg.ProviderTimeout(),
			Observe: opts.Observe,
		}
	}

	if c.SpotifyClientID != "" && c.SpotifyClientSecret != "" {
		sp := spotify.New(spotify.Config{
			ClientID:       c.SpotifyClientID,
			ClientSecret:   c.SpotifyClientSecret,
			Market:         c.SpotifyMarket,
			OnUnauthorized: opts.OnAuthFailure,
		})
		e.tokens[sp.Name()] = sp.Tokens()
		e.registry.RegisterCatalog(providers.GuardCatalog(sp, guardOpts(sp.Name())))
	} else {
		log.Warnf("%s Spotify credentials not set, %s catalog disabled", logcolors.LogConfig, spotify.ProviderName)
	}

	gn := genius.New(genius.Config{
		BaseURL:     c.GeniusBaseURL,
		AccessToken: c.GeniusAccessToken,
		UserAgent:   c.UserAgent,
	})
	e.registry.RegisterCatalog(providers.GuardCatalog(gn, guardOpts(gn.Name())))
	e.registry.RegisterLyrics(providers.GuardLyrics(gn, guardOpts(gn.Name())))

	lr := lrclib.New(lrclib.Config{
		BaseURL:   c.LrclibBaseURL,
		UserAgent: c.UserAgent,
	})
	e.registry.RegisterLyrics(providers.GuardLyrics(lr, guardOpts(lr.Name())))

	missingProviders("catalog", cfg.CatalogChain(), func(name string) error {
		_, err := e.registry.Catalog(name)
		return err
	})
	missingProviders("lyrics", cfg.LyricsChain(), func(name string) error {
		_, err := e.registry.Lyrics(name)
		return err
	})

	catalogs := e.registry.CatalogChain(cfg.CatalogChain())
	lyricsChain := e.registry.LyricsChain(cfg.LyricsChain())
	if len(catalogs) == 0 {
		return nil, fmt.Errorf("no catalog providers available from %q", c.CatalogProviders)
	}

	var fetcher regional.PageFetcher = regional.NewHTTPFetcher(c.UserAgent, opts.Observe)
	if cfg.FeatureFlags.PageCache {
		pages, err := cache.NewPageCache(c.PageCachePath, cfg.PageCacheTTL(), cfg.FeatureFlags.CacheCompression)
		if err != nil {
			log.Warnf("%s Page cache unavailable, fetching live: %v", logcolors.LogCacheInit, err)
		} else {
			e.pages = pages
			fetcher = regional.NewCachedFetcher(fetcher, pages)
		}
	}

	regionalSource := regional.NewSource(regional.Config{
		BaseURL:      c.RegionalBaseURL,
		SlugFetchCap: c.SlugFetchLimit,
		FetchTimeout: cfg.PageFetchTimeout(),
	}, fetcher, regional.NewSiteSearchSource(c.RegionalSearchURL, fetcher, cfg.PageFetchTimeout()))

	e.search = NewSearchAggregator(catalogs, regionalSource, SearchConfig{
		SongLimit:      c.SongResultLimit,
		ArtistLimit:    c.ArtistResultLimit,
		CatalogCap:     c.ArtistCatalogCap,
		MinQueryLength: c.MinQueryLength,
	})
	e.lyrics = NewLyricsResolver(lyricsChain, RegionalAlternative)

	log.Infof("%s Catalog chain: %v, lyrics chain: %v", logcolors.LogConfig, names(catalogs), names(lyricsChain))
	return e, nil
}

// missingProviders logs and returns the configured names lookup cannot resolve.
// The chain builders skip them silently.
func missingProviders(kind string, chain []string, lookup func(string) error) []string {
	var missing []string
	for _, name := range chain {
		if err := lookup(name); err != nil {
			log.Warnf("%s Skipping %s provider: %v", logcolors.LogConfig, kind, err)
			missing = append(missing, name)
		}
	}
	return missing
}

func names[P interface{ Name() string }](ps []P) []string {
	out := make([]string, len(ps))
	for i, p := range ps {
		out[i] = p.Name()
	}
	return out
}
