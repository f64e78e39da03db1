package regional

import (
	"context"
	"fmt"
	"net/url"
	"path"
	"strings"
	"time"

	"lyrics-finder-go/logcolors"
	"lyrics-finder-go/services/providers"

	"github.com/PuerkitoBio/goquery"
	log "github.com/sirupsen/logrus"
)

const (
	DefaultSearchURL = DefaultBaseURL + "/?s=%s"

	defaultSearchResults = 3
)

// SiteSearchSource runs the regional site's own search page and scrapes the
// lyrics pages it links to.
type SiteSearchSource struct {
	searchURL    string // printf template with one %s for the escaped query
	maxResults   int
	fetchTimeout time.Duration
	fetcher      PageFetcher
}

func NewSiteSearchSource(searchURL string, fetcher PageFetcher, fetchTimeout time.Duration) *SiteSearchSource {
	if searchURL == "" {
		searchURL = DefaultSearchURL
	}
	return &SiteSearchSource{
		searchURL:    searchURL,
		maxResults:   defaultSearchResults,
		fetchTimeout: fetchTimeout,
		fetcher:      fetcher,
	}
}

func (s *SiteSearchSource) Name() string {
	return "site-search"
}

func (s *SiteSearchSource) Search(ctx context.Context, query string) ([]providers.Song, error) {
	searchURL := fmt.Sprintf(s.searchURL, url.QueryEscape(query))
	html, err := s.fetcher.Fetch(ctx, searchURL, s.fetchTimeout)
	if err != nil {
		return nil, err
	}

	links, err := lyricsLinks(html, searchURL, s.maxResults)
	if err != nil {
		return nil, err
	}
	log.Debugf("%s Site search for %q linked %d pages", logcolors.LogRegional, query, len(links))

	var songs []providers.Song
	for _, link := range links {
		page, err := s.fetcher.Fetch(ctx, link, s.fetchTimeout)
		if err != nil {
			log.Debugf("%s %s: %v", logcolors.LogFetch, link, err)
			continue
		}
		if song, ok := songFromPage(page, slugFromURL(link), link); ok {
			songs = append(songs, *song)
		}
	}
	return songs, nil
}

// lyricsLinks returns up to max distinct absolute links to /lyrics/ pages, in page order.
func lyricsLinks(html, pageURL string, max int) ([]string, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, fmt.Errorf("%w: parse search page: %v", providers.ErrFetchFailed, err)
	}
	base, err := url.Parse(pageURL)
	if err != nil {
		return nil, fmt.Errorf("%w: bad search url: %v", providers.ErrFetchFailed, err)
	}

	seen := make(map[string]struct{})
	var links []string
	doc.Find(`a[href*="/lyrics/"]`).EachWithBreak(func(_ int, a *goquery.Selection) bool {
		href, _ := a.Attr("href")
		ref, err := url.Parse(href)
		if err != nil {
			return true
		}
		abs := base.ResolveReference(ref)
		abs.RawQuery, abs.Fragment = "", ""
		if slugFromURL(abs.String()) == "" {
			return true
		}
		key := abs.String()
		if _, dup := seen[key]; dup {
			return true
		}
		seen[key] = struct{}{}
		links = append(links, key)
		return len(links) < max
	})
	return links, nil
}

// slugFromURL returns the last path element of a /lyrics/<slug>/ url.
func slugFromURL(raw string) string {
	u, err := url.Parse(raw)
	if err != nil {
		return ""
	}
	p := strings.TrimRight(u.Path, "/")
	if !strings.Contains(p, "/lyrics/") {
		return ""
	}
	slug := path.Base(p)
	if slug == "lyrics" || slug == "." || slug == "/" {
		return ""
	}
	return slug
}
