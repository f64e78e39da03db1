package spotify

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"lyrics-finder-go/logcolors"
	"lyrics-finder-go/services/providers"
	"lyrics-finder-go/services/token"

	log "github.com/sirupsen/logrus"
	spotifyclient "github.com/zmb3/spotify/v2"
	spotifyauth "github.com/zmb3/spotify/v2/auth"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/clientcredentials"
)

const ProviderName = "spotify"

// albumGroups are walked in this order by GetFullCatalog.
var albumGroups = []spotifyclient.AlbumType{
	spotifyclient.AlbumTypeAlbum,
	spotifyclient.AlbumTypeSingle,
	spotifyclient.AlbumTypeAppearsOn,
	spotifyclient.AlbumTypeCompilation,
}

type Config struct {
	ClientID     string
	ClientSecret string
	Market       string

	// Overrides for tests. Empty means the public Spotify endpoints.
	TokenURL string
	BaseURL  string

	HTTPClient *http.Client

	// OnUnauthorized runs when the API rejects the access token.
	OnUnauthorized func(provider string, status int)
}

// Provider is the primary catalog provider.
type Provider struct {
	client *spotifyclient.Client
	tokens *token.Cache
	market string

	onUnauthorized func(provider string, status int)
}

func New(cfg Config) *Provider {
	if cfg.TokenURL == "" {
		cfg.TokenURL = spotifyauth.TokenURL
	}
	if cfg.Market == "" {
		cfg.Market = "US"
	}
	base := cfg.HTTPClient
	if base == nil {
		base = &http.Client{Timeout: 10 * time.Second}
	}

	creds := &clientcredentials.Config{
		ClientID:     cfg.ClientID,
		ClientSecret: cfg.ClientSecret,
		TokenURL:     cfg.TokenURL,
	}
	p := &Provider{market: cfg.Market, onUnauthorized: cfg.OnUnauthorized}
	p.tokens = token.New(ProviderName, func(ctx context.Context) (token.Token, error) {
		t, err := creds.Token(context.WithValue(ctx, oauth2.HTTPClient, base))
		if err != nil {
			return token.Token{}, providers.NewProviderError(ProviderName, "client credentials exchange failed", fmt.Errorf("%w: %w", providers.ErrAuthFailed, err))
		}
		return token.Token{Value: t.AccessToken, Expiry: t.Expiry}, nil
	})

	httpClient := &http.Client{
		Timeout: base.Timeout,
		Transport: &oauth2.Transport{
			Source: &tokenSource{cache: p.tokens},
			Base:   base.Transport,
		},
	}

	var opts []spotifyclient.ClientOption
	if cfg.BaseURL != "" {
		opts = append(opts, spotifyclient.WithBaseURL(cfg.BaseURL))
	}
	p.client = spotifyclient.New(httpClient, opts...)
	return p
}

func (p *Provider) Name() string {
	return ProviderName
}

// Tokens exposes the token cache for status reporting and proactive refresh.
func (p *Provider) Tokens() *token.Cache {
	return p.tokens
}

func (p *Provider) SearchTracks(ctx context.Context, text string, limit int) ([]providers.Song, error) {
	res, err := p.client.Search(ctx, text, spotifyclient.SearchTypeTrack, spotifyclient.Limit(limit))
	if err != nil {
		return nil, p.wrap("track search failed", err)
	}
	if res.Tracks == nil {
		return nil, nil
	}

	songs := make([]providers.Song, 0, len(res.Tracks.Tracks))
	for _, t := range res.Tracks.Tracks {
		songs = append(songs, songFromTrack(t.SimpleTrack, t.Album))
	}
	log.Debugf("%s %s returned %d tracks for %q", logcolors.LogSearch, ProviderName, len(songs), text)
	return songs, nil
}

func (p *Provider) SearchArtists(ctx context.Context, text string, limit int) ([]providers.Artist, error) {
	res, err := p.client.Search(ctx, text, spotifyclient.SearchTypeArtist, spotifyclient.Limit(limit))
	if err != nil {
		return nil, p.wrap("artist search failed", err)
	}
	if res.Artists == nil {
		return nil, nil
	}

	artists := make([]providers.Artist, 0, len(res.Artists.Artists))
	for _, a := range res.Artists.Artists {
		artists = append(artists, artistFromFull(a))
	}
	return artists, nil
}

func (p *Provider) GetTopTracks(ctx context.Context, artist providers.Handle) ([]providers.Song, error) {
	tracks, err := p.client.GetArtistsTopTracks(ctx, spotifyclient.ID(artist.ID), p.market)
	if err != nil {
		return nil, p.wrap("top tracks failed", err)
	}

	songs := make([]providers.Song, 0, len(tracks))
	for _, t := range tracks {
		songs = append(songs, songFromTrack(t.SimpleTrack, t.Album))
	}
	return songs, nil
}

// GetFullCatalog walks every album group, paging through albums and their
// tracks, until limit distinct tracks are collected.
func (p *Provider) GetFullCatalog(ctx context.Context, artist providers.Handle, limit int) ([]providers.Song, error) {
	collector := providers.NewCatalogCollector(limit)

	albums, err := p.client.GetArtistAlbums(ctx, spotifyclient.ID(artist.ID), albumGroups, spotifyclient.Limit(50))
	if err != nil {
		return nil, p.wrap("artist albums failed", err)
	}

	for {
		for _, album := range albums.Albums {
			if err := p.collectAlbum(ctx, album, collector); err != nil {
				return collector.Songs(), err
			}
			if collector.Full() {
				log.Debugf("%s %s catalog cap reached for %s", logcolors.LogArtist, ProviderName, artist.ID)
				return collector.Songs(), nil
			}
		}

		err = p.client.NextPage(ctx, albums)
		if errors.Is(err, spotifyclient.ErrNoMorePages) {
			break
		}
		if err != nil {
			return collector.Songs(), p.wrap("album paging failed", err)
		}
	}

	return collector.Songs(), nil
}

func (p *Provider) collectAlbum(ctx context.Context, album spotifyclient.SimpleAlbum, collector *providers.CatalogCollector) error {
	page, err := p.client.GetAlbumTracks(ctx, album.ID, spotifyclient.Limit(50))
	if err != nil {
		return p.wrap("album tracks failed", err)
	}

	for {
		for _, t := range page.Tracks {
			if !collector.Add(songFromTrack(t, album)) {
				return nil
			}
		}

		err = p.client.NextPage(ctx, page)
		if errors.Is(err, spotifyclient.ErrNoMorePages) {
			return nil
		}
		if err != nil {
			return p.wrap("track paging failed", err)
		}
	}
}

// wrap maps a client error onto the provider error taxonomy. A rejected
// token is dropped so the next call fetches a new one.
func (p *Provider) wrap(message string, err error) error {
	var status int
	var apiErr spotifyclient.Error
	var apiErrPtr *spotifyclient.Error
	switch {
	case errors.As(err, &apiErr):
		status = apiErr.Status
	case errors.As(err, &apiErrPtr):
		status = apiErrPtr.Status
	}

	kind := providers.ClassifyStatus(status)
	switch {
	case errors.Is(err, providers.ErrAuthFailed):
		kind = providers.ErrAuthFailed
	case status == 0:
		kind = providers.ErrProviderUnavailable
	}

	if status == http.StatusUnauthorized {
		log.Warnf("%s %s rejected the access token", logcolors.LogAuthError, ProviderName)
		p.tokens.Invalidate()
		if p.onUnauthorized != nil {
			p.onUnauthorized(ProviderName, status)
		}
	}

	return providers.NewProviderError(ProviderName, message, fmt.Errorf("%w: %w", kind, err))
}

func songFromTrack(t spotifyclient.SimpleTrack, album spotifyclient.SimpleAlbum) providers.Song {
	url := t.ExternalURLs["spotify"]
	song := providers.Song{
		ID:        string(t.ID),
		Title:     t.Name,
		AlbumName: album.Name,
		URL:       url,
		Handle:    &providers.Handle{Provider: ProviderName, ID: string(t.ID), URL: url},
	}
	if len(album.Images) > 0 {
		song.Thumbnail = album.Images[0].URL
	}

	names := make([]string, 0, len(t.Artists))
	for _, a := range t.Artists {
		names = append(names, a.Name)
	}
	song.ArtistName = strings.Join(names, ", ")

	if len(t.Artists) > 0 {
		primary := artistFromSimple(t.Artists[0])
		song.PrimaryArtist = &primary
	}
	return song
}

func artistFromSimple(a spotifyclient.SimpleArtist) providers.Artist {
	url := a.ExternalURLs["spotify"]
	return providers.Artist{
		ID:   string(a.ID),
		Name: a.Name,
		URL:  url,
		Handles: map[string]providers.Handle{
			ProviderName: {Provider: ProviderName, ID: string(a.ID), URL: url},
		},
	}
}

func artistFromFull(a spotifyclient.FullArtist) providers.Artist {
	artist := artistFromSimple(a.SimpleArtist)
	artist.Followers = int(a.Followers.Count)
	artist.Genres = a.Genres
	artist.Popularity = int(a.Popularity)
	if len(a.Images) > 0 {
		artist.Thumbnail = a.Images[0].URL
	}
	return artist
}

// tokenSource serves oauth2 tokens out of the shared cache.
type tokenSource struct {
	cache *token.Cache
}

func (s *tokenSource) Token() (*oauth2.Token, error) {
	t, err := s.cache.Token(context.Background())
	if err != nil {
		return nil, err
	}
	return &oauth2.Token{AccessToken: t.Value, TokenType: "Bearer", Expiry: t.Expiry}, nil
}
