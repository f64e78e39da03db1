package engine

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"lyrics-finder-go/logcolors"
	"lyrics-finder-go/services/providers"
	"lyrics-finder-go/services/regional"

	log "github.com/sirupsen/logrus"
)

// AlternativeFunc produces guidance content when no provider has the lyrics.
type AlternativeFunc func(ctx context.Context, song providers.Song) (providers.LyricsSource, error)

// RegionalAlternative picks regional or generic guidance from the song's title and artist.
func RegionalAlternative(_ context.Context, song providers.Song) (providers.LyricsSource, error) {
	return regional.AlternativeFor(song.Title, song.ArtistName), nil
}

var sourceLabels = map[string]string{
	"genius": "Genius",
	"lrclib": "LRCLIB",
}

func sourceLabel(provider string) string {
	if label, ok := sourceLabels[provider]; ok {
		return label
	}
	return provider
}

// LyricsResolver walks a song through prefetched sources, the song's own
// provider, a lyrics search over the chain and finally guidance content.
type LyricsResolver struct {
	chain       []providers.LyricsProvider
	alternative AlternativeFunc
}

func NewLyricsResolver(chain []providers.LyricsProvider, alternative AlternativeFunc) *LyricsResolver {
	if alternative == nil {
		alternative = RegionalAlternative
	}
	return &LyricsResolver{chain: chain, alternative: alternative}
}

// Resolve always returns displayable content unless the guidance step itself fails.
func (r *LyricsResolver) Resolve(ctx context.Context, song providers.Song) *providers.LyricsResult {
	if len(song.AvailableSources) > 0 {
		log.Infof("%s Using prefetched %s lyrics for %q", logcolors.LogLyrics, song.AvailableSources[0].Name, song.Title)
		return providers.ResolvedFrom(providers.StagePrefetched, song.AvailableSources[0], song.AvailableSources[1:])
	}

	if res := r.direct(ctx, song); res != nil {
		return res
	}
	if res := r.search(ctx, song); res != nil {
		return res
	}

	log.Infof("%s No provider lyrics for %q by %s, building guidance", logcolors.LogFallback, song.Title, song.ArtistName)
	alt, err := r.alternative(ctx, song)
	if err != nil {
		log.Errorf("%s Guidance lookup failed for %q: %v", logcolors.LogLyrics, song.Title, err)
		return providers.FailedResult(providers.ErrorKind(err), fmt.Sprintf("No lyrics available for %q: %v", song.Title, err))
	}
	if strings.TrimSpace(alt.Text) == "" {
		return providers.FailedResult("lyrics_unavailable", fmt.Sprintf("No lyrics available for %q", song.Title))
	}
	return providers.ResolvedFrom(providers.StageAlternative, alt, []providers.LyricsSource{alt})
}

// direct fetches from the provider that produced the song, when it serves lyrics.
func (r *LyricsResolver) direct(ctx context.Context, song providers.Song) *providers.LyricsResult {
	ref, ok := song.RefFromHandle()
	if !ok {
		return nil
	}
	p := r.provider(ref.Provider)
	if p == nil {
		return nil
	}

	text, err := p.FetchLyrics(ctx, ref)
	if err != nil {
		logProviderMiss(p.Name(), "direct fetch", song.Title, err)
		return nil
	}
	if strings.TrimSpace(text) == "" {
		return nil
	}

	log.Infof("%s %q fetched directly from %s", logcolors.LogSuccess, song.Title, p.Name())
	return providers.ResolvedFrom(providers.StageProviderDirect, providers.LyricsSource{
		Name: sourceLabel(p.Name()),
		Text: text,
		URL:  ref.URL,
	}, nil)
}

// search queries each lyrics provider for "{title} {artist}", preferring an exact match.
func (r *LyricsResolver) search(ctx context.Context, song providers.Song) *providers.LyricsResult {
	if strings.TrimSpace(song.Title) == "" {
		return nil
	}
	query := strings.TrimSpace(song.Title + " " + song.ArtistName)

	for _, p := range r.chain {
		if ctx.Err() != nil {
			return nil
		}

		refs, err := p.SearchSongs(ctx, query)
		if err != nil {
			logProviderMiss(p.Name(), "search", song.Title, err)
			continue
		}
		if len(refs) == 0 {
			continue
		}

		ref := bestMatch(refs, song.Title, song.ArtistName)
		log.Debugf("%s %s matched %q by %s", logcolors.LogMatch, p.Name(), ref.Title, ref.Artist)

		text, err := p.FetchLyrics(ctx, ref)
		if err != nil {
			logProviderMiss(p.Name(), "fetch", song.Title, err)
			continue
		}
		if strings.TrimSpace(text) == "" {
			continue
		}

		log.Infof("%s %q found via %s search", logcolors.LogSuccess, song.Title, p.Name())
		return providers.ResolvedFrom(providers.StageProviderSearch, providers.LyricsSource{
			Name: sourceLabel(p.Name()),
			Text: text,
			URL:  ref.URL,
		}, nil)
	}
	return nil
}

func (r *LyricsResolver) provider(name string) providers.LyricsProvider {
	for _, p := range r.chain {
		if p.Name() == name {
			return p
		}
	}
	return nil
}

// bestMatch returns the first exact title and artist match, or the first result.
func bestMatch(refs []providers.SongRef, title, artist string) providers.SongRef {
	for _, ref := range refs {
		if strings.EqualFold(strings.TrimSpace(ref.Title), strings.TrimSpace(title)) &&
			strings.EqualFold(strings.TrimSpace(ref.Artist), strings.TrimSpace(artist)) {
			return ref
		}
	}
	return refs[0]
}

func logProviderMiss(provider, step, title string, err error) {
	if errors.Is(err, providers.ErrNotFound) {
		log.Debugf("%s %s %s: no lyrics for %q", logcolors.LogLyrics, provider, step, title)
		return
	}
	log.Warnf("%s %s %s failed for %q: %v", logcolors.LogLyrics, provider, step, title, err)
}
