package genius

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"lyrics-finder-go/services/providers"
)

type searchResponse struct {
	Response struct {
		Hits []struct {
			Type   string     `json:"type"`
			Result songResult `json:"result"`
		} `json:"hits"`
	} `json:"response"`
}

type artistSongsResponse struct {
	Response struct {
		Songs    []songResult `json:"songs"`
		NextPage *int         `json:"next_page"`
	} `json:"response"`
}

type songResponse struct {
	Response struct {
		Song songResult `json:"song"`
	} `json:"response"`
}

type songResult struct {
	ID            int          `json:"id"`
	Title         string       `json:"title"`
	ArtistNames   string       `json:"artist_names"`
	URL           string       `json:"url"`
	Path          string       `json:"path"`
	ThumbnailURL  string       `json:"song_art_image_thumbnail_url"`
	PrimaryArtist artistResult `json:"primary_artist"`
	Album         *albumResult `json:"album"`
}

type artistResult struct {
	ID       int    `json:"id"`
	Name     string `json:"name"`
	URL      string `json:"url"`
	ImageURL string `json:"image_url"`
}

type albumResult struct {
	Name string `json:"name"`
}

func newHTTPClient() *http.Client {
	return &http.Client{Timeout: 10 * time.Second}
}

// get issues a GET and returns the body of a 2xx response.
func (p *Provider) get(ctx context.Context, url string, accept string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, providers.NewProviderError(ProviderName, "failed to create request", err)
	}
	req.Header.Set("User-Agent", p.userAgent)
	req.Header.Set("Accept", accept)
	if p.accessToken != "" {
		req.Header.Set("Authorization", "Bearer "+p.accessToken)
	}

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return nil, providers.NewProviderError(ProviderName, "request failed", fmt.Errorf("%w: %w", providers.ErrProviderUnavailable, err))
	}
	defer resp.Body.Close()

	if kind := providers.ClassifyStatus(resp.StatusCode); kind != nil {
		return nil, providers.NewProviderError(ProviderName, fmt.Sprintf("upstream returned status %d", resp.StatusCode), kind)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, providers.NewProviderError(ProviderName, "failed to read response", fmt.Errorf("%w: %w", providers.ErrProviderUnavailable, err))
	}
	return body, nil
}

func (p *Provider) getJSON(ctx context.Context, url string, v any) error {
	body, err := p.get(ctx, url, "application/json")
	if err != nil {
		return err
	}
	if err := json.Unmarshal(body, v); err != nil {
		return providers.NewProviderError(ProviderName, "failed to decode response", fmt.Errorf("%w: %w", providers.ErrProviderUnavailable, err))
	}
	return nil
}
