package regional

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"lyrics-finder-go/cache"
	"lyrics-finder-go/logcolors"
	"lyrics-finder-go/services/providers"

	log "github.com/sirupsen/logrus"
)

const (
	DefaultFetchTimeout = 10 * time.Second

	maxPageBytes = 4 << 20
)

// PageFetcher retrieves the HTML of a single page.
type PageFetcher interface {
	Fetch(ctx context.Context, url string, timeout time.Duration) (string, error)
}

// HTTPFetcher fetches pages over HTTP with a bounded timeout.
type HTTPFetcher struct {
	client    *http.Client
	userAgent string
	observe   providers.Observer
}

func NewHTTPFetcher(userAgent string, observe providers.Observer) *HTTPFetcher {
	return &HTTPFetcher{
		client:    &http.Client{},
		userAgent: userAgent,
		observe:   observe,
	}
}

// Fetch returns the page body. Any failure wraps providers.ErrFetchFailed.
func (f *HTTPFetcher) Fetch(ctx context.Context, url string, timeout time.Duration) (string, error) {
	if timeout <= 0 {
		timeout = DefaultFetchTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	start := time.Now()
	body, err := f.fetch(ctx, url)
	if f.observe != nil {
		f.observe("regional", "page_fetch", err, time.Since(start))
	}
	return body, err
}

func (f *HTTPFetcher) fetch(ctx context.Context, url string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", fmt.Errorf("%w: %v", providers.ErrFetchFailed, err)
	}
	req.Header.Set("User-Agent", f.userAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")

	resp, err := f.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("%w: %s: %v", providers.ErrFetchFailed, url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", fmt.Errorf("%w: %s returned status %d", providers.ErrFetchFailed, url, resp.StatusCode)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxPageBytes))
	if err != nil {
		return "", fmt.Errorf("%w: reading %s: %v", providers.ErrFetchFailed, url, err)
	}
	return string(data), nil
}

// CachedFetcher serves pages from the persistent page cache before going to the network.
type CachedFetcher struct {
	next  PageFetcher
	pages *cache.PageCache
}

func NewCachedFetcher(next PageFetcher, pages *cache.PageCache) *CachedFetcher {
	return &CachedFetcher{next: next, pages: pages}
}

func (c *CachedFetcher) Fetch(ctx context.Context, url string, timeout time.Duration) (string, error) {
	if body, ok := c.pages.Get(url); ok {
		log.Debugf("%s Hit %s", logcolors.LogCachePages, url)
		return body, nil
	}

	body, err := c.next.Fetch(ctx, url, timeout)
	if err != nil {
		return "", err
	}
	if err := c.pages.Set(url, body); err != nil {
		log.Warnf("%s Failed to store %s: %v", logcolors.LogCachePages, url, err)
	}
	return body, nil
}
