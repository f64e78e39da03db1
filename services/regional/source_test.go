package regional

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"lyrics-finder-go/services/providers"
)

// fakeFetcher serves canned pages by url and records every request.
type fakeFetcher struct {
	mu     sync.Mutex
	pages  map[string]string
	delays map[string]time.Duration
	calls  []string
}

func newFakeFetcher() *fakeFetcher {
	return &fakeFetcher{pages: map[string]string{}, delays: map[string]time.Duration{}}
}

func (f *fakeFetcher) Fetch(ctx context.Context, url string, timeout time.Duration) (string, error) {
	f.mu.Lock()
	f.calls = append(f.calls, url)
	page, ok := f.pages[url]
	delay := f.delays[url]
	f.mu.Unlock()

	if delay > 0 {
		time.Sleep(delay)
	}
	if !ok {
		return "", fmt.Errorf("%w: %s returned status 404", providers.ErrFetchFailed, url)
	}
	return page, nil
}

func (f *fakeFetcher) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

func lyricsPage(title, singer string) string {
	return `<html><body><h1>` + title + ` Song Lyrics</h1>
		<p><strong>Singers</strong> : ` + singer + `</p>
		<p><strong>Music by</strong> : Ilaiyaraaja</p>
		<p>` + tamilText(120) + `</p></body></html>`
}

func slugURL(slug string) string {
	return DefaultBaseURL + "/lyrics/" + slug + "/"
}

func TestSearch_NeverEmpty(t *testing.T) {
	queries := []string{"happy birthday", "x", "வெண்ணிலவே", "completely unknown song title"}

	src := NewSource(Config{}, newFakeFetcher())
	for _, q := range queries {
		songs := src.Search(context.Background(), q)
		if len(songs) != 1 {
			t.Fatalf("Expected exactly the suggestions song for %q, got %d", q, len(songs))
		}
		if songs[0].AvailableSources[0].Name != SuggestionsSourceName {
			t.Errorf("Expected suggestions source for %q, got %q", q, songs[0].AvailableSources[0].Name)
		}
	}
}

func TestSearch_SuggestionsShowQueryAsTyped(t *testing.T) {
	songs := NewSource(Config{}, newFakeFetcher()).Search(context.Background(), "Vennilave")

	if want := `Search suggestions for Tamil song "Vennilave"`; songs[0].Title != want {
		t.Errorf("Expected title %q, got %q", want, songs[0].Title)
	}
}

func TestSearch_OrderFollowsSlugsNotArrival(t *testing.T) {
	f := newFakeFetcher()
	f.pages[slugURL("roja")] = lyricsPage("Roja", "S. P. Balasubrahmanyam")
	f.delays[slugURL("roja")] = 80 * time.Millisecond
	f.pages[slugURL("roja-lyrics")] = lyricsPage("Roja Janeman", "Hariharan")

	songs := NewSource(Config{}, f).Search(context.Background(), "roja")

	if len(songs) != 2 {
		t.Fatalf("Expected 2 songs, got %d", len(songs))
	}
	if songs[0].Title != "Roja" || songs[1].Title != "Roja Janeman" {
		t.Errorf("Expected generator order [Roja, Roja Janeman], got [%s, %s]", songs[0].Title, songs[1].Title)
	}
}

func TestSearch_DedupsByTitle(t *testing.T) {
	f := newFakeFetcher()
	f.pages[slugURL("vennilave")] = lyricsPage("Vennilave", "Hariharan")
	f.pages[slugURL("vennilave-song-lyrics")] = lyricsPage("Vennilave", "Someone Else")

	songs := NewSource(Config{}, f).Search(context.Background(), "vennilave")

	if len(songs) != 1 {
		t.Fatalf("Expected 1 song after title dedup, got %d", len(songs))
	}
	if songs[0].ArtistName != "Hariharan" {
		t.Errorf("Expected the earliest slug to win, got %q", songs[0].ArtistName)
	}
}

func TestSearch_SongShape(t *testing.T) {
	f := newFakeFetcher()
	f.pages[slugURL("vennilave")] = lyricsPage("Vennilave", "Hariharan")

	songs := NewSource(Config{}, f).Search(context.Background(), "Vennilave")
	s := songs[0]

	if s.ID != "tamil2lyrics:vennilave" {
		t.Errorf("Expected slug-derived id, got %q", s.ID)
	}
	if s.Composer != "Ilaiyaraaja" {
		t.Errorf("Expected composer from music director field, got %q", s.Composer)
	}
	if s.URL != slugURL("vennilave") {
		t.Errorf("Unexpected url %q", s.URL)
	}
	if len(s.AvailableSources) != 1 || s.AvailableSources[0].Name != SourceName || s.AvailableSources[0].Text == "" {
		t.Errorf("Expected one prefetched source, got %+v", s.AvailableSources)
	}
}

func TestSearch_FetchesAtMostSlugCap(t *testing.T) {
	f := newFakeFetcher()
	src := NewSource(Config{SlugFetchCap: 3}, f)

	src.Search(context.Background(), "anirudh god bless song")

	if f.callCount() != 3 {
		t.Errorf("Expected 3 fetches, got %d", f.callCount())
	}
}

func TestSearch_DefaultCapIsEight(t *testing.T) {
	f := newFakeFetcher()
	NewSource(Config{}, f).Search(context.Background(), "anirudh god bless song")

	if f.callCount() != DefaultSlugCap {
		t.Errorf("Expected %d fetches, got %d", DefaultSlugCap, f.callCount())
	}
}

type stubSecondary struct {
	songs []providers.Song
	err   error
}

func (s *stubSecondary) Name() string { return "stub" }

func (s *stubSecondary) Search(ctx context.Context, query string) ([]providers.Song, error) {
	return s.songs, s.err
}

func TestSearch_SecondarySources(t *testing.T) {
	f := newFakeFetcher()
	f.pages[slugURL("hukum")] = lyricsPage("Hukum", "Anirudh Ravichander")

	src := NewSource(Config{}, f,
		&stubSecondary{err: errors.New("search page down")},
		&stubSecondary{songs: []providers.Song{{Title: "Hukum"}, {Title: "Hukum (Extended)"}}},
	)

	songs := src.Search(context.Background(), "hukum")
	if len(songs) != 2 {
		t.Fatalf("Expected 2 songs, got %d", len(songs))
	}
	if songs[0].ID != "tamil2lyrics:hukum" || songs[1].Title != "Hukum (Extended)" {
		t.Errorf("Expected slug result then new secondary result, got %+v", songs)
	}
}

func TestSiteSearchSource(t *testing.T) {
	searchURL := DefaultBaseURL + "/?s=%s"
	f := newFakeFetcher()
	f.pages[DefaultBaseURL+"/?s=kadhal+rojave"] = `<html><body>
		<a href="/lyrics/kadhal-rojave-song-lyrics/">Kadhal Rojave</a>
		<a href="https://www.tamil2lyrics.com/lyrics/kadhal-rojave-song-lyrics/#comments">Comments</a>
		<a href="/category/rahman/">Category</a>
		<a href="/lyrics/missing-page/">Missing</a>
	</body></html>`
	f.pages[slugURL("kadhal-rojave-song-lyrics")] = lyricsPage("Kadhal Rojave", "S. P. Balasubrahmanyam")

	songs, err := NewSiteSearchSource(searchURL, f, time.Second).Search(context.Background(), "kadhal rojave")
	if err != nil {
		t.Fatalf("Search failed: %v", err)
	}
	if len(songs) != 1 {
		t.Fatalf("Expected 1 song, got %d", len(songs))
	}
	if songs[0].ID != "tamil2lyrics:kadhal-rojave-song-lyrics" {
		t.Errorf("Unexpected id %q", songs[0].ID)
	}
	// search page + two distinct lyrics links
	if f.callCount() != 3 {
		t.Errorf("Expected 3 fetches, got %d", f.callCount())
	}
}

func TestSiteSearchSource_SearchPageFailure(t *testing.T) {
	_, err := NewSiteSearchSource(DefaultBaseURL+"/?s=%s", newFakeFetcher(), time.Second).Search(context.Background(), "x")
	if !errors.Is(err, providers.ErrFetchFailed) {
		t.Errorf("Expected ErrFetchFailed, got %v", err)
	}
}

func TestSlugFromURL(t *testing.T) {
	tests := []struct {
		url      string
		expected string
	}{
		{"https://www.tamil2lyrics.com/lyrics/roja-song-lyrics/", "roja-song-lyrics"},
		{"https://www.tamil2lyrics.com/lyrics/roja", "roja"},
		{"https://www.tamil2lyrics.com/lyrics/", ""},
		{"https://www.tamil2lyrics.com/movie/roja/", ""},
	}
	for _, tt := range tests {
		if got := slugFromURL(tt.url); got != tt.expected {
			t.Errorf("slugFromURL(%q): expected %q, got %q", tt.url, tt.expected, got)
		}
	}
}

func TestSearch_ResultsCarryLyrics(t *testing.T) {
	f := newFakeFetcher()
	f.pages[slugURL("vennilave")] = lyricsPage("Vennilave", "Hariharan")

	songs := NewSource(Config{}, f).Search(context.Background(), "vennilave")
	if !strings.Contains(songs[0].AvailableSources[0].Text, "வெண்ணிலவே") {
		t.Error("Expected extracted Tamil lyrics on the song")
	}
}
