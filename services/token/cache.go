// Package token holds provider access tokens in process memory and coalesces
// concurrent refreshes into a single upstream call.
package token

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"lyrics-finder-go/logcolors"

	log "github.com/sirupsen/logrus"
	"golang.org/x/sync/singleflight"
)

// DefaultRefreshThreshold is how close to expiry a token is considered stale.
const DefaultRefreshThreshold = 5 * time.Minute

const refreshTimeout = 30 * time.Second

// Token is an access token and the moment it stops being valid.
type Token struct {
	Value  string
	Expiry time.Time
}

// RefreshFunc obtains a fresh token from the upstream.
type RefreshFunc func(ctx context.Context) (Token, error)

// Status describes the cached token for monitoring.
type Status struct {
	Expiry       time.Time     `json:"expiry"`
	Remaining    time.Duration `json:"remainingNs"`
	NeedsRefresh bool          `json:"needsRefresh"`
}

// Cache is owned by a single provider adapter.
type Cache struct {
	name      string
	refresh   RefreshFunc
	threshold time.Duration
	now       func() time.Time

	mu    sync.RWMutex
	token Token

	flight    singleflight.Group
	refreshes atomic.Int64
}

func New(name string, refresh RefreshFunc) *Cache {
	return &Cache{
		name:      name,
		refresh:   refresh,
		threshold: DefaultRefreshThreshold,
		now:       time.Now,
	}
}

// Get returns a valid access token, refreshing it if missing or near expiry.
func (c *Cache) Get(ctx context.Context) (string, error) {
	t, err := c.Token(ctx)
	if err != nil {
		return "", err
	}
	return t.Value, nil
}

// Token is like Get but also returns the expiry.
func (c *Cache) Token(ctx context.Context) (Token, error) {
	c.mu.RLock()
	t := c.token
	stale := c.staleLocked()
	c.mu.RUnlock()

	if !stale {
		return t, nil
	}

	// The refresh outlives any single caller so that a caller giving up
	// does not fail the others waiting on the same flight.
	ch := c.flight.DoChan("refresh", func() (any, error) {
		fctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), refreshTimeout)
		defer cancel()
		return c.doRefresh(fctx)
	})

	select {
	case res := <-ch:
		if res.Err != nil {
			return Token{}, res.Err
		}
		return res.Val.(Token), nil
	case <-ctx.Done():
		return Token{}, ctx.Err()
	}
}

func (c *Cache) doRefresh(ctx context.Context) (Token, error) {
	c.mu.RLock()
	if !c.staleLocked() {
		t := c.token
		c.mu.RUnlock()
		return t, nil
	}
	c.mu.RUnlock()

	log.Infof("%s Refreshing %s access token...", logcolors.LogToken, c.name)
	c.refreshes.Add(1)

	t, err := c.refresh(ctx)
	if err != nil {
		return Token{}, fmt.Errorf("refresh %s token: %w", c.name, err)
	}
	if t.Value == "" {
		return Token{}, errors.New("refresh returned an empty token")
	}
	if t.Expiry.IsZero() {
		t.Expiry = c.now().Add(time.Hour)
	}

	c.mu.Lock()
	c.token = t
	c.mu.Unlock()

	log.Infof("%s %s token refreshed, expires in %v", logcolors.LogToken, c.name, t.Expiry.Sub(c.now()).Round(time.Minute))
	return t, nil
}

// staleLocked must be called with c.mu held.
func (c *Cache) staleLocked() bool {
	if c.token.Value == "" || c.token.Expiry.IsZero() {
		return true
	}
	return c.now().Add(c.threshold).After(c.token.Expiry)
}

// Invalidate drops the cached token, typically after the upstream rejected it.
func (c *Cache) Invalidate() {
	c.mu.Lock()
	c.token = Token{}
	c.mu.Unlock()
	log.Warnf("%s %s token invalidated", logcolors.LogToken, c.name)
}

func (c *Cache) Status() Status {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if c.token.Expiry.IsZero() {
		return Status{NeedsRefresh: true}
	}
	return Status{
		Expiry:       c.token.Expiry,
		Remaining:    c.token.Expiry.Sub(c.now()),
		NeedsRefresh: c.staleLocked(),
	}
}

// Refreshes counts upstream refresh calls made so far.
func (c *Cache) Refreshes() int64 {
	return c.refreshes.Load()
}

// StartMonitor refreshes the token ahead of expiry until ctx is done.
func (c *Cache) StartMonitor(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if !c.Status().NeedsRefresh {
					continue
				}
				if _, err := c.Get(ctx); err != nil {
					log.Errorf("%s Proactive %s refresh failed: %v", logcolors.LogToken, c.name, err)
				}
			}
		}
	}()
}
