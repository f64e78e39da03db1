package regional

import (
	"context"
	"fmt"
	"strings"
	"time"

	"lyrics-finder-go/logcolors"
	"lyrics-finder-go/services/providers"

	log "github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

const (
	SourceName     = "Tamil2Lyrics.com"
	DefaultBaseURL = "https://www.tamil2lyrics.com"
	DefaultSlugCap = 8
	fetchWorkers   = 4
	songIDPrefix   = "tamil2lyrics:"
)

// SecondarySource is consulted after the slug candidates, in order.
type SecondarySource interface {
	Name() string
	Search(ctx context.Context, query string) ([]providers.Song, error)
}

type Config struct {
	BaseURL      string
	SlugFetchCap int
	FetchTimeout time.Duration
}

// Source searches regional lyrics sites by guessing page slugs.
// It always returns at least one song.
type Source struct {
	baseURL      string
	slugCap      int
	fetchTimeout time.Duration

	slugs       *SlugGenerator
	fetcher     PageFetcher
	secondaries []SecondarySource
}

func NewSource(cfg Config, fetcher PageFetcher, secondaries ...SecondarySource) *Source {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.SlugFetchCap <= 0 {
		cfg.SlugFetchCap = DefaultSlugCap
	}
	if cfg.FetchTimeout <= 0 {
		cfg.FetchTimeout = DefaultFetchTimeout
	}
	return &Source{
		baseURL:      strings.TrimRight(cfg.BaseURL, "/"),
		slugCap:      cfg.SlugFetchCap,
		fetchTimeout: cfg.FetchTimeout,
		slugs:        NewSlugGenerator(),
		fetcher:      fetcher,
		secondaries:  secondaries,
	}
}

// Search fetches the leading slug candidates concurrently and keeps results
// in candidate order, one song per distinct title, then appends secondary
// source results. When nothing is found it returns a suggestions song.
func (s *Source) Search(ctx context.Context, query string) []providers.Song {
	slugs := s.slugs.Generate(query)
	if len(slugs) > s.slugCap {
		slugs = slugs[:s.slugCap]
	}
	log.Infof("%s Trying %d slug candidates for %q", logcolors.LogRegional, len(slugs), query)

	found := make([]*providers.Song, len(slugs))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(fetchWorkers)
	for i, slug := range slugs {
		g.Go(func() error {
			found[i] = s.scrapeSlug(gctx, slug)
			return nil
		})
	}
	g.Wait()

	var (
		songs  []providers.Song
		titles = make(map[string]struct{})
	)
	keep := func(song providers.Song) {
		if _, dup := titles[song.Title]; dup {
			return
		}
		titles[song.Title] = struct{}{}
		songs = append(songs, song)
	}

	for _, song := range found {
		if song != nil {
			keep(*song)
		}
	}

	for _, sec := range s.secondaries {
		if ctx.Err() != nil {
			break
		}
		more, err := sec.Search(ctx, query)
		if err != nil {
			log.Warnf("%s %s failed for %q: %v", logcolors.LogRegional, sec.Name(), query, err)
			continue
		}
		for _, song := range more {
			keep(song)
		}
	}

	if len(songs) == 0 {
		log.Infof("%s Nothing found for %q, returning suggestions", logcolors.LogFallback, query)
		return []providers.Song{SuggestionsSong(s.baseURL, query)}
	}

	log.Infof("%s %d regional songs for %q", logcolors.LogSuccess, len(songs), query)
	return songs
}

func (s *Source) pageURL(slug string) string {
	return fmt.Sprintf("%s/lyrics/%s/", s.baseURL, slug)
}

// scrapeSlug returns nil for any miss; a failed fetch is not an error for the search.
func (s *Source) scrapeSlug(ctx context.Context, slug string) *providers.Song {
	url := s.pageURL(slug)
	html, err := s.fetcher.Fetch(ctx, url, s.fetchTimeout)
	if err != nil {
		log.Debugf("%s %s: %v", logcolors.LogFetch, slug, err)
		return nil
	}

	song, ok := songFromPage(html, slug, url)
	if !ok {
		log.Debugf("%s No lyrics block on %s", logcolors.LogExtract, url)
		return nil
	}
	log.Infof("%s %s -> %q", logcolors.LogMatch, slug, song.Title)
	return song
}

// songFromPage builds a song whose lyrics are already attached.
func songFromPage(html, slug, url string) (*providers.Song, bool) {
	page, ok := Extract(html, slug)
	if !ok {
		return nil, false
	}
	return &providers.Song{
		ID:         songIDPrefix + slug,
		Title:      page.Title,
		ArtistName: page.Singers.Or(UnknownField),
		Composer:   page.MusicDirector.Or(UnknownField),
		URL:        url,
		AvailableSources: []providers.LyricsSource{{
			Name: SourceName,
			Text: page.Lyrics,
			URL:  url,
		}},
	}, true
}
