package engine

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"lyrics-finder-go/logcolors"
	"lyrics-finder-go/services/providers"
	"lyrics-finder-go/utils"

	log "github.com/sirupsen/logrus"
)

// ErrQueryTooShort is returned for queries below the minimum length. No provider is called.
var ErrQueryTooShort = errors.New("query too short")

// RegionalSearcher finds songs on unstructured regional sites. It never returns an empty list.
type RegionalSearcher interface {
	Search(ctx context.Context, query string) []providers.Song
}

type SearchConfig struct {
	SongLimit      int
	ArtistLimit    int
	CatalogCap     int
	MinQueryLength int
}

func (c SearchConfig) withDefaults() SearchConfig {
	if c.SongLimit <= 0 {
		c.SongLimit = 10
	}
	if c.ArtistLimit <= 0 {
		c.ArtistLimit = 10
	}
	if c.CatalogCap <= 0 {
		c.CatalogCap = providers.DefaultCatalogCap
	}
	if c.MinQueryLength <= 0 {
		c.MinQueryLength = 2
	}
	return c
}

// SearchAggregator runs a query through the catalog chain for the requested mode.
// The first catalog provider is the primary, the rest are fallbacks in order.
type SearchAggregator struct {
	catalogs []providers.CatalogProvider
	regional RegionalSearcher
	cfg      SearchConfig
}

func NewSearchAggregator(catalogs []providers.CatalogProvider, regional RegionalSearcher, cfg SearchConfig) *SearchAggregator {
	return &SearchAggregator{
		catalogs: catalogs,
		regional: regional,
		cfg:      cfg.withDefaults(),
	}
}

// Search returns songs or artists for query. Provider failures never surface
// as errors; an exhausted song search is reported through result.Failed.
func (a *SearchAggregator) Search(ctx context.Context, query string, mode providers.SearchMode, selected *providers.Artist) (*providers.SearchResult, error) {
	q := utils.NormalizeQuery(query)
	if utils.RuneLen(q) < a.cfg.MinQueryLength && selected == nil {
		return nil, fmt.Errorf("%w: %q needs at least %d characters", ErrQueryTooShort, q, a.cfg.MinQueryLength)
	}

	log.Infof("%s %s search for %q", logcolors.LogSearch, mode, q)

	var result *providers.SearchResult
	switch mode {
	case providers.ModeSong:
		result = a.searchSongs(ctx, q)
	case providers.ModeArtist:
		if selected != nil {
			result = &providers.SearchResult{Songs: a.artistSongs(ctx, selected)}
		} else {
			result = &providers.SearchResult{Artists: a.searchArtists(ctx, q)}
		}
	case providers.ModeRegional:
		// regional slugs lower-case on their own; the suggestions text shows the query as typed
		result = a.searchRegional(ctx, utils.CollapseSpace(query))
	default:
		return nil, fmt.Errorf("unsupported search mode %v", mode)
	}
	result.Mode = mode

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

func (a *SearchAggregator) searchSongs(ctx context.Context, q string) *providers.SearchResult {
	for _, p := range a.catalogs {
		songs, err := p.SearchTracks(ctx, q, a.cfg.SongLimit)
		if err != nil {
			log.Warnf("%s %s track search failed, trying next: %v", logcolors.LogSearch, p.Name(), err)
			continue
		}
		if len(songs) == 0 {
			log.Debugf("%s %s has no tracks for %q", logcolors.LogSearch, p.Name(), q)
			continue
		}
		songs = dedupSongs(songs)
		log.Infof("%s %d songs from %s", logcolors.LogSuccess, len(songs), p.Name())
		return &providers.SearchResult{Songs: songs}
	}

	log.Warnf("%s No provider returned songs for %q", logcolors.LogSearch, q)
	return &providers.SearchResult{
		Failed: true,
		Notice: fmt.Sprintf("No songs found for %q. Check the spelling or try artist or regional mode.", q),
	}
}

// searchArtists keeps the primary's relevance order. The fallback path
// derives artists from secondary track hits, keeps the most relevant and
// sorts those by name.
func (a *SearchAggregator) searchArtists(ctx context.Context, q string) []providers.Artist {
	if len(a.catalogs) == 0 {
		return nil
	}

	primary := a.catalogs[0]
	artists, err := primary.SearchArtists(ctx, q, a.cfg.ArtistLimit)
	switch {
	case err != nil:
		log.Warnf("%s %s artist search failed: %v", logcolors.LogArtist, primary.Name(), err)
	case len(artists) > 0:
		return capArtists(artists, a.cfg.ArtistLimit)
	}

	for _, p := range a.catalogs[1:] {
		songs, err := p.SearchTracks(ctx, q, a.cfg.SongLimit)
		if err != nil {
			log.Warnf("%s %s track search failed: %v", logcolors.LogArtist, p.Name(), err)
			continue
		}
		artists := artistsFromSongs(songs)
		if len(artists) == 0 {
			continue
		}
		log.Infof("%s %d artists derived from %s tracks", logcolors.LogFallback, len(artists), p.Name())
		artists = capArtists(artists, a.cfg.ArtistLimit)
		sort.SliceStable(artists, func(i, j int) bool {
			return strings.ToLower(artists[i].Name) < strings.ToLower(artists[j].Name)
		})
		return artists
	}
	return nil
}

// artistSongs tries the selected artist's catalog on each provider, richest source first.
func (a *SearchAggregator) artistSongs(ctx context.Context, artist *providers.Artist) []providers.Song {
	if len(a.catalogs) == 0 {
		return nil
	}

	type step struct {
		name string
		run  func() ([]providers.Song, error)
	}
	var steps []step

	primary := a.catalogs[0]
	if h, ok := artist.HandleFor(primary.Name()); ok {
		steps = append(steps,
			step{primary.Name() + " full catalog", func() ([]providers.Song, error) {
				return primary.GetFullCatalog(ctx, h, a.cfg.CatalogCap)
			}},
			step{primary.Name() + " top tracks", func() ([]providers.Song, error) {
				return primary.GetTopTracks(ctx, h)
			}},
		)
	}
	for _, p := range a.catalogs[1:] {
		if h, ok := artist.HandleFor(p.Name()); ok {
			steps = append(steps, step{p.Name() + " artist songs", func() ([]providers.Song, error) {
				return p.GetFullCatalog(ctx, h, a.cfg.CatalogCap)
			}})
		}
	}
	for _, p := range a.catalogs[1:] {
		steps = append(steps, step{p.Name() + " name search", func() ([]providers.Song, error) {
			songs, err := p.SearchTracks(ctx, artist.Name, a.cfg.CatalogCap)
			if err != nil {
				return nil, err
			}
			return filterByArtist(songs, artist.Name), nil
		}})
	}

	for _, s := range steps {
		songs, err := s.run()
		if err != nil {
			log.Warnf("%s %s failed for %q: %v", logcolors.LogArtist, s.name, artist.Name, err)
			continue
		}
		collector := providers.NewCatalogCollector(a.cfg.CatalogCap)
		collector.AddAll(songs)
		if collector.Len() > 0 {
			log.Infof("%s %d songs for %q via %s", logcolors.LogSuccess, collector.Len(), artist.Name, s.name)
			return collector.Songs()
		}
		log.Debugf("%s %s empty for %q", logcolors.LogArtist, s.name, artist.Name)
	}

	log.Warnf("%s No songs found for artist %q", logcolors.LogArtist, artist.Name)
	return nil
}

func (a *SearchAggregator) searchRegional(ctx context.Context, q string) *providers.SearchResult {
	if a.regional == nil {
		return &providers.SearchResult{Failed: true, Notice: "Regional search is not configured."}
	}
	return &providers.SearchResult{Songs: a.regional.Search(ctx, q)}
}

// dedupSongs drops repeats of the same (id, title, artist) keeping provider order.
func dedupSongs(songs []providers.Song) []providers.Song {
	seen := make(map[string]struct{}, len(songs))
	out := make([]providers.Song, 0, len(songs))
	for _, s := range songs {
		key := s.ID + "\x00" + strings.ToLower(s.Title) + "\x00" + strings.ToLower(s.ArtistName)
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, s)
	}
	return out
}

// artistsFromSongs collapses songs to their artists, first occurrence per name.
func artistsFromSongs(songs []providers.Song) []providers.Artist {
	seen := make(map[string]struct{})
	var artists []providers.Artist
	for _, s := range songs {
		artist := providers.Artist{Name: s.ArtistName}
		if s.PrimaryArtist != nil {
			artist = *s.PrimaryArtist
		}
		key := strings.ToLower(strings.TrimSpace(artist.Name))
		if key == "" {
			continue
		}
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		artists = append(artists, artist)
	}
	return artists
}

// filterByArtist keeps songs credited to exactly name, ignoring case.
func filterByArtist(songs []providers.Song, name string) []providers.Song {
	var out []providers.Song
	for _, s := range songs {
		if strings.EqualFold(s.ArtistName, name) ||
			(s.PrimaryArtist != nil && strings.EqualFold(s.PrimaryArtist.Name, name)) {
			out = append(out, s)
		}
	}
	return out
}

func capArtists(artists []providers.Artist, limit int) []providers.Artist {
	if len(artists) > limit {
		return artists[:limit]
	}
	return artists
}
