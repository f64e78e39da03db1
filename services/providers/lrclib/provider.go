package lrclib

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"regexp"
	"strconv"
	"strings"
	"time"

	"lyrics-finder-go/services/providers"
)

const (
	ProviderName   = "lrclib"
	DefaultBaseURL = "https://lrclib.net/api"
)

var syncedTimestamp = regexp.MustCompile(`(?m)^[ \t]*(\[\d+:\d+(?:[.:]\d+)?\][ \t]*)+`)

type record struct {
	ID           int     `json:"id"`
	TrackName    string  `json:"trackName"`
	ArtistName   string  `json:"artistName"`
	AlbumName    string  `json:"albumName"`
	Duration     float64 `json:"duration"`
	Instrumental bool    `json:"instrumental"`
	PlainLyrics  string  `json:"plainLyrics"`
	SyncedLyrics string  `json:"syncedLyrics"`
}

type Config struct {
	BaseURL    string
	UserAgent  string
	HTTPClient *http.Client
}

// Provider is the secondary lyrics provider.
type Provider struct {
	baseURL    string
	userAgent  string
	httpClient *http.Client
}

func New(cfg Config) *Provider {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.HTTPClient == nil {
		cfg.HTTPClient = &http.Client{Timeout: 10 * time.Second}
	}
	return &Provider{
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		userAgent:  cfg.UserAgent,
		httpClient: cfg.HTTPClient,
	}
}

func (p *Provider) Name() string {
	return ProviderName
}

func (p *Provider) SearchSongs(ctx context.Context, text string) ([]providers.SongRef, error) {
	var records []record
	if err := p.getJSON(ctx, p.baseURL+"/search?q="+url.QueryEscape(text), &records); err != nil {
		return nil, err
	}

	refs := make([]providers.SongRef, 0, len(records))
	for _, r := range records {
		if r.Instrumental {
			continue
		}
		refs = append(refs, providers.SongRef{
			Provider: ProviderName,
			ID:       strconv.Itoa(r.ID),
			Title:    r.TrackName,
			Artist:   r.ArtistName,
		})
	}
	return refs, nil
}

// FetchLyrics prefers plain lyrics and falls back to synced lyrics with timestamps stripped.
func (p *Provider) FetchLyrics(ctx context.Context, ref providers.SongRef) (string, error) {
	if ref.ID == "" {
		return "", providers.NewProviderError(ProviderName, "song ref has no id", providers.ErrNotFound)
	}

	var r record
	if err := p.getJSON(ctx, p.baseURL+"/get/"+url.PathEscape(ref.ID), &r); err != nil {
		return "", err
	}

	if lyrics := strings.TrimSpace(r.PlainLyrics); lyrics != "" {
		return lyrics, nil
	}
	if lyrics := StripTimestamps(r.SyncedLyrics); lyrics != "" {
		return lyrics, nil
	}
	return "", providers.NewProviderError(ProviderName, fmt.Sprintf("record %s has no lyrics", ref.ID), providers.ErrNotFound)
}

// StripTimestamps removes leading [mm:ss.xx] tags from every line of an LRC body.
func StripTimestamps(synced string) string {
	return strings.TrimSpace(syncedTimestamp.ReplaceAllString(synced, ""))
}

func (p *Provider) getJSON(ctx context.Context, u string, v any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return providers.NewProviderError(ProviderName, "failed to create request", err)
	}
	req.Header.Set("Accept", "application/json")
	if p.userAgent != "" {
		req.Header.Set("User-Agent", p.userAgent)
	}

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return providers.NewProviderError(ProviderName, "request failed", fmt.Errorf("%w: %w", providers.ErrProviderUnavailable, err))
	}
	defer resp.Body.Close()

	if kind := providers.ClassifyStatus(resp.StatusCode); kind != nil {
		return providers.NewProviderError(ProviderName, fmt.Sprintf("upstream returned status %d", resp.StatusCode), kind)
	}

	if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
		return providers.NewProviderError(ProviderName, "failed to decode response", fmt.Errorf("%w: %w", providers.ErrProviderUnavailable, err))
	}
	return nil
}
