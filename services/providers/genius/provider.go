package genius

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"lyrics-finder-go/logcolors"
	"lyrics-finder-go/services/providers"

	"github.com/PuerkitoBio/goquery"
	log "github.com/sirupsen/logrus"
)

const (
	ProviderName   = "genius"
	DefaultBaseURL = "https://genius.com/api"

	topTracksLimit = 10
	songsPerPage   = 50
)

type Config struct {
	BaseURL     string
	AccessToken string
	UserAgent   string
	HTTPClient  *http.Client
}

// Provider serves both as the secondary catalog and the primary lyrics source.
type Provider struct {
	baseURL     string
	accessToken string
	userAgent   string
	httpClient  *http.Client
}

func New(cfg Config) *Provider {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.UserAgent == "" {
		cfg.UserAgent = "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36"
	}
	if cfg.HTTPClient == nil {
		cfg.HTTPClient = newHTTPClient()
	}
	return &Provider{
		baseURL:     strings.TrimRight(cfg.BaseURL, "/"),
		accessToken: cfg.AccessToken,
		userAgent:   cfg.UserAgent,
		httpClient:  cfg.HTTPClient,
	}
}

func (p *Provider) Name() string {
	return ProviderName
}

func (p *Provider) search(ctx context.Context, text string) ([]songResult, error) {
	var resp searchResponse
	if err := p.getJSON(ctx, p.baseURL+"/search?q="+url.QueryEscape(text), &resp); err != nil {
		return nil, err
	}

	results := make([]songResult, 0, len(resp.Response.Hits))
	for _, hit := range resp.Response.Hits {
		if hit.Type != "" && hit.Type != "song" {
			continue
		}
		results = append(results, hit.Result)
	}
	return results, nil
}

func (p *Provider) SearchTracks(ctx context.Context, text string, limit int) ([]providers.Song, error) {
	results, err := p.search(ctx, text)
	if err != nil {
		return nil, err
	}

	songs := make([]providers.Song, 0, len(results))
	for _, r := range results {
		if limit > 0 && len(songs) >= limit {
			break
		}
		songs = append(songs, p.toSong(r))
	}
	log.Debugf("%s %s returned %d songs for %q", logcolors.LogSearch, ProviderName, len(songs), text)
	return songs, nil
}

// SearchArtists derives artists from song hits, keeping the first hit per name.
func (p *Provider) SearchArtists(ctx context.Context, text string, limit int) ([]providers.Artist, error) {
	results, err := p.search(ctx, text)
	if err != nil {
		return nil, err
	}

	seen := make(map[string]struct{})
	var artists []providers.Artist
	for _, r := range results {
		key := strings.ToLower(r.PrimaryArtist.Name)
		if key == "" {
			continue
		}
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		artists = append(artists, toArtist(r.PrimaryArtist))
		if limit > 0 && len(artists) >= limit {
			break
		}
	}
	return artists, nil
}

func (p *Provider) GetTopTracks(ctx context.Context, artist providers.Handle) ([]providers.Song, error) {
	songs, _, err := p.artistSongs(ctx, artist.ID, 1, topTracksLimit)
	return songs, err
}

// GetFullCatalog pages through the artist's songs in popularity order.
func (p *Provider) GetFullCatalog(ctx context.Context, artist providers.Handle, limit int) ([]providers.Song, error) {
	collector := providers.NewCatalogCollector(limit)

	page := 1
	for page > 0 && !collector.Full() {
		songs, next, err := p.artistSongs(ctx, artist.ID, page, songsPerPage)
		if err != nil {
			if collector.Len() > 0 {
				log.Warnf("%s %s stopped paging at page %d: %v", logcolors.LogArtist, ProviderName, page, err)
				break
			}
			return nil, err
		}
		collector.AddAll(songs)
		page = next
	}
	return collector.Songs(), nil
}

// artistSongs returns one page of songs and the next page number, or 0 when done.
func (p *Provider) artistSongs(ctx context.Context, artistID string, page, perPage int) ([]providers.Song, int, error) {
	if artistID == "" {
		return nil, 0, providers.NewProviderError(ProviderName, "artist handle has no id", providers.ErrNotFound)
	}

	u := fmt.Sprintf("%s/artists/%s/songs?sort=popularity&per_page=%d&page=%d", p.baseURL, url.PathEscape(artistID), perPage, page)
	var resp artistSongsResponse
	if err := p.getJSON(ctx, u, &resp); err != nil {
		return nil, 0, err
	}

	songs := make([]providers.Song, 0, len(resp.Response.Songs))
	for _, r := range resp.Response.Songs {
		songs = append(songs, p.toSong(r))
	}

	next := 0
	if resp.Response.NextPage != nil {
		next = *resp.Response.NextPage
	}
	return songs, next, nil
}

func (p *Provider) SearchSongs(ctx context.Context, text string) ([]providers.SongRef, error) {
	results, err := p.search(ctx, text)
	if err != nil {
		return nil, err
	}

	refs := make([]providers.SongRef, 0, len(results))
	for _, r := range results {
		refs = append(refs, providers.SongRef{
			Provider: ProviderName,
			ID:       strconv.Itoa(r.ID),
			URL:      p.pageURL(r),
			Title:    r.Title,
			Artist:   artistName(r),
		})
	}
	return refs, nil
}

// FetchLyrics scrapes the song page. A ref without a URL is resolved through the songs endpoint first.
func (p *Provider) FetchLyrics(ctx context.Context, ref providers.SongRef) (string, error) {
	pageURL := ref.URL
	if pageURL == "" {
		if ref.ID == "" {
			return "", providers.NewProviderError(ProviderName, "song ref has neither url nor id", providers.ErrNotFound)
		}
		var resp songResponse
		if err := p.getJSON(ctx, p.baseURL+"/songs/"+url.PathEscape(ref.ID), &resp); err != nil {
			return "", err
		}
		pageURL = p.pageURL(resp.Response.Song)
	}

	body, err := p.get(ctx, pageURL, "text/html,application/xhtml+xml")
	if err != nil {
		return "", err
	}

	lyrics, err := extractLyrics(string(body))
	if err != nil {
		return "", err
	}
	if lyrics == "" {
		return "", providers.NewProviderError(ProviderName, "no lyrics on page "+pageURL, providers.ErrNotFound)
	}
	log.Infof("%s %s lyrics for %q", logcolors.LogSuccess, ProviderName, ref.Title)
	return lyrics, nil
}

// extractLyrics joins every lyrics container on a song page, turning <br> into newlines.
func extractLyrics(html string) (string, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return "", providers.NewProviderError(ProviderName, "failed to parse page", err)
	}

	var blocks []string
	doc.Find(`[data-lyrics-container="true"]`).Each(func(_ int, s *goquery.Selection) {
		s.Find(`[data-exclude-from-selection="true"]`).Remove()
		s.Find("br").ReplaceWithHtml("\n")
		if text := strings.TrimSpace(s.Text()); text != "" {
			blocks = append(blocks, text)
		}
	})
	return strings.Join(blocks, "\n\n"), nil
}

func (p *Provider) toSong(r songResult) providers.Song {
	id := strconv.Itoa(r.ID)
	pageURL := p.pageURL(r)
	song := providers.Song{
		ID:         id,
		Title:      r.Title,
		ArtistName: artistName(r),
		URL:        pageURL,
		Thumbnail:  r.ThumbnailURL,
		Handle:     &providers.Handle{Provider: ProviderName, ID: id, URL: pageURL},
	}
	if r.Album != nil {
		song.AlbumName = r.Album.Name
	}
	if r.PrimaryArtist.Name != "" {
		a := toArtist(r.PrimaryArtist)
		song.PrimaryArtist = &a
	}
	return song
}

func toArtist(a artistResult) providers.Artist {
	id := strconv.Itoa(a.ID)
	return providers.Artist{
		ID:        id,
		Name:      a.Name,
		URL:       a.URL,
		Thumbnail: a.ImageURL,
		Handles: map[string]providers.Handle{
			ProviderName: {Provider: ProviderName, ID: id, URL: a.URL},
		},
	}
}

func artistName(r songResult) string {
	if r.ArtistNames != "" {
		return r.ArtistNames
	}
	return r.PrimaryArtist.Name
}

// pageURL prefers the absolute url and falls back to the site root plus path.
func (p *Provider) pageURL(r songResult) string {
	if r.URL != "" {
		return r.URL
	}
	if r.Path == "" {
		return ""
	}
	root := strings.TrimSuffix(p.baseURL, "/api")
	return root + r.Path
}
