package engine

import (
	"sync"

	"lyrics-finder-go/services/providers"
)

// RequestToken identifies one search or resolve issued by a session.
type RequestToken uint64

// Session holds one caller's browsing state. A newer request supersedes older
// ones: results delivered with a stale token are dropped.
type Session struct {
	mu sync.Mutex

	latest RequestToken
	mode   providers.SearchMode
	artist *providers.Artist
	result *providers.SearchResult
	lyrics *providers.LyricsResult
}

func NewSession(mode providers.SearchMode) *Session {
	return &Session{mode: mode}
}

// Begin issues the token for a new request and supersedes every earlier one.
func (s *Session) Begin() RequestToken {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.latest++
	return s.latest
}

// Current reports whether t is still the newest request.
func (s *Session) Current(t RequestToken) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return t == s.latest
}

// Deliver stores a search result if t is still current.
func (s *Session) Deliver(t RequestToken, result *providers.SearchResult) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if t != s.latest {
		return false
	}
	s.result = result
	s.lyrics = nil
	return true
}

// DeliverLyrics stores a lyrics result if t is still current.
func (s *Session) DeliverLyrics(t RequestToken, result *providers.LyricsResult) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if t != s.latest {
		return false
	}
	s.lyrics = result
	return true
}

// SetMode switches mode and drops all held results and the selected artist.
func (s *Session) SetMode(mode providers.SearchMode) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.mode = mode
	s.artist = nil
	s.resetLocked()
}

// SelectArtist scopes the next artist-mode search to a.
func (s *Session) SelectArtist(a providers.Artist) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.artist = &a
	s.resetLocked()
}

// ClearArtist goes back to artist search and drops held results.
func (s *Session) ClearArtist() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.artist = nil
	s.resetLocked()
}

// resetLocked also invalidates in-flight requests so nothing from before the reset lands.
func (s *Session) resetLocked() {
	s.result = nil
	s.lyrics = nil
	s.latest++
}

func (s *Session) Mode() providers.SearchMode {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.mode
}

func (s *Session) SelectedArtist() *providers.Artist {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.artist == nil {
		return nil
	}
	a := *s.artist
	return &a
}

func (s *Session) Result() *providers.SearchResult {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.result
}

func (s *Session) Lyrics() *providers.LyricsResult {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lyrics
}
