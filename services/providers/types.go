package providers

import (
	"fmt"
	"strings"
)

// SearchMode selects which pipeline a search runs.
type SearchMode int

const (
	ModeSong SearchMode = iota
	ModeArtist
	ModeRegional
)

func (m SearchMode) String() string {
	switch m {
	case ModeSong:
		return "song"
	case ModeArtist:
		return "artist"
	case ModeRegional:
		return "regional"
	default:
		return "unknown"
	}
}

// ParseSearchMode accepts the names produced by String. An empty string means song mode.
func ParseSearchMode(s string) (SearchMode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "song", "songs":
		return ModeSong, nil
	case "artist", "artists":
		return ModeArtist, nil
	case "regional", "tamil":
		return ModeRegional, nil
	default:
		return ModeSong, fmt.Errorf("unknown search mode %q", s)
	}
}

// Handle is an opaque reference back into the provider that produced an entity.
type Handle struct {
	Provider string `json:"provider"`
	ID       string `json:"id"`
	URL      string `json:"url,omitempty"`
}

type Artist struct {
	ID         string            `json:"id"`
	Name       string            `json:"name"`
	URL        string            `json:"url,omitempty"`
	Thumbnail  string            `json:"thumbnail,omitempty"`
	Followers  int               `json:"followers,omitempty"`
	Genres     []string          `json:"genres,omitempty"`
	Popularity int               `json:"popularity,omitempty"`
	Handles    map[string]Handle `json:"handles,omitempty"`
}

// HandleFor returns the artist's handle in the named provider.
func (a *Artist) HandleFor(provider string) (Handle, bool) {
	if a == nil || a.Handles == nil {
		return Handle{}, false
	}
	h, ok := a.Handles[provider]
	return h, ok
}

// LyricsSource is one block of lyric (or guidance) text and where it came from.
type LyricsSource struct {
	Name string `json:"sourceName"`
	Text string `json:"text"`
	URL  string `json:"originUrl,omitempty"`
}

type Song struct {
	ID         string `json:"id"`
	Title      string `json:"title"`
	ArtistName string `json:"artist"`
	AlbumName  string `json:"album,omitempty"`
	Composer   string `json:"composer,omitempty"`
	URL        string `json:"url,omitempty"`
	Thumbnail  string `json:"thumbnail,omitempty"`

	Handle        *Handle `json:"handle,omitempty"`
	PrimaryArtist *Artist `json:"primaryArtist,omitempty"`

	// AvailableSources holds lyrics fetched during search. When present it
	// is authoritative and no provider is consulted.
	AvailableSources []LyricsSource `json:"availableLyricsSources,omitempty"`
}

// SongRef is what a lyrics provider needs to fetch a song's lyrics.
type SongRef struct {
	Provider string `json:"provider"`
	ID       string `json:"id"`
	URL      string `json:"url,omitempty"`
	Title    string `json:"title"`
	Artist   string `json:"artist"`
}

// RefFromHandle builds a SongRef for the song's own handle.
func (s Song) RefFromHandle() (SongRef, bool) {
	if s.Handle == nil || s.Handle.Provider == "" {
		return SongRef{}, false
	}
	return SongRef{
		Provider: s.Handle.Provider,
		ID:       s.Handle.ID,
		URL:      s.Handle.URL,
		Title:    s.Title,
		Artist:   s.ArtistName,
	}, true
}

// Stage names the resolver state that produced a LyricsResult.
type Stage string

const (
	StagePrefetched     Stage = "prefetched"
	StageProviderDirect Stage = "provider_direct"
	StageProviderSearch Stage = "provider_search"
	StageAlternative    Stage = "alternative"
	StageFailed         Stage = "failed"
)

// LyricsResult is either resolved (Text set) or failed (ErrorKind set), never both.
type LyricsResult struct {
	Text         string         `json:"text,omitempty"`
	SourceName   string         `json:"sourceName,omitempty"`
	SourceURL    string         `json:"originUrl,omitempty"`
	Alternatives []LyricsSource `json:"alternativeSources,omitempty"`
	Stage        Stage          `json:"stage"`

	ErrorKind string `json:"errorKind,omitempty"`
	Message   string `json:"message,omitempty"`
}

func (r *LyricsResult) Resolved() bool {
	return r != nil && r.ErrorKind == ""
}

// ResolvedFrom builds a resolved result using primary as the displayed text.
func ResolvedFrom(stage Stage, primary LyricsSource, alternatives []LyricsSource) *LyricsResult {
	return &LyricsResult{
		Text:         primary.Text,
		SourceName:   primary.Name,
		SourceURL:    primary.URL,
		Alternatives: alternatives,
		Stage:        stage,
	}
}

func FailedResult(kind, message string) *LyricsResult {
	return &LyricsResult{ErrorKind: kind, Message: message, Stage: StageFailed}
}

type SearchResult struct {
	Mode    SearchMode `json:"-"`
	Songs   []Song     `json:"songs,omitempty"`
	Artists []Artist   `json:"artists,omitempty"`

	// Failed is set when song mode exhausted every provider.
	Failed bool   `json:"failed,omitempty"`
	Notice string `json:"notice,omitempty"`
}

func (r *SearchResult) Empty() bool {
	return r == nil || (len(r.Songs) == 0 && len(r.Artists) == 0)
}
