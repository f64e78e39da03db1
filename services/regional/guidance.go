package regional

import (
	"fmt"
	"net/url"
	"regexp"
	"strings"

	"lyrics-finder-go/services/providers"

	"github.com/google/uuid"
)

const (
	SuggestionsSourceName = "Search Suggestions"
	HelperSourceName      = "Tamil Lyrics Helper"
	GenericSourceName     = "Suggestion"

	searchEngineURL = "https://www.google.com/search?q="
)

var tamilScript = regexp.MustCompile(`[\x{0B80}-\x{0BFF}]`)

// regionalKeywords mark titles or artists that are most likely Tamil film music.
var regionalKeywords = []string{
	"tamil", "kollywood", "chennai", "madras",
	"ilayaraja", "ilaiyaraaja", "rahman", "yuvan", "anirudh",
	"gv prakash", "harris jayaraj", "devi sri prasad", "sean roldan",
}

// IsRegionalContent reports whether a title or artist looks Tamil, by script or keyword.
func IsRegionalContent(title, artist string) bool {
	if tamilScript.MatchString(title) || tamilScript.MatchString(artist) {
		return true
	}
	combined := strings.ToLower(title + " " + artist)
	for _, kw := range regionalKeywords {
		if strings.Contains(combined, kw) {
			return true
		}
	}
	return false
}

const searchTips = `Try these search strategies:

1. Search with the movie name: "[Movie Name] %s"
2. Use Tamil script if you know the Tamil spelling
3. Try other spellings, Tamil names have several English transliterations
4. Add the music director's name to the search

Tamil lyrics websites worth checking:
- TamilPaa.com
- Lyricstamil.com
- Tamillyrics.hoodi.com
- A2zlyrics.com (Tamil section)

Tips:
- Searching by movie name usually works better for film songs
- Adding the release year narrows the results
- Try both the original Tamil and the transliterated title`

// SuggestionsSong is returned by a regional search that found nothing, so
// regional results are never empty.
func SuggestionsSong(baseURL, query string) providers.Song {
	text := fmt.Sprintf(searchTips, query)
	return providers.Song{
		ID:         "suggestions:" + uuid.NewString(),
		Title:      fmt.Sprintf("Search suggestions for Tamil song %q", query),
		ArtistName: HelperSourceName,
		AlbumName:  "Search Tips",
		URL:        baseURL,
		AvailableSources: []providers.LyricsSource{{
			Name: SuggestionsSourceName,
			Text: text,
			URL:  baseURL,
		}},
	}
}

// RegionalGuidance is the alternative source for a Tamil song no provider had lyrics for.
func RegionalGuidance(title, artist string) providers.LyricsSource {
	query := fmt.Sprintf("%s %s tamil lyrics", title, artist)
	return providers.LyricsSource{
		Name: HelperSourceName,
		Text: fmt.Sprintf("Search suggestions for Tamil song %q by %s:\n\n", title, artist) + fmt.Sprintf(searchTips, title),
		URL:  searchEngineURL + url.QueryEscape(query),
	}
}

// GenericGuidance is the alternative source for any other song without lyrics.
func GenericGuidance(title, artist string) providers.LyricsSource {
	return providers.LyricsSource{
		Name: GenericSourceName,
		Text: fmt.Sprintf(`We couldn't find lyrics for %q by %s.

For Tamil songs, try searching with:
- Original Tamil script
- English transliteration
- Movie name + song name

Alternative sources to try:
- Tamil lyrics websites
- Movie soundtrack databases
- Regional music platforms`, title, artist),
	}
}

// AlternativeFor picks the guidance matching the song's heritage.
func AlternativeFor(title, artist string) providers.LyricsSource {
	if IsRegionalContent(title, artist) {
		return RegionalGuidance(title, artist)
	}
	return GenericGuidance(title, artist)
}
