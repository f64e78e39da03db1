package main

import (
	"lyrics-finder-go/services/providers"
)

type contextKey string

const (
	rateLimitTypeKey contextKey = "rateLimitType"
	requestIDKey     contextKey = "requestID"
)

// SearchRequest is the POST body for /search. GET uses query parameters instead.
type SearchRequest struct {
	Query  string            `json:"query"`
	Mode   string            `json:"mode"`
	Artist *providers.Artist `json:"artist,omitempty"`
}

type SearchResponse struct {
	Query   string             `json:"query"`
	Mode    string             `json:"mode"`
	Songs   []providers.Song   `json:"songs"`
	Artists []providers.Artist `json:"artists,omitempty"`
	Failed  bool               `json:"failed,omitempty"`
	Notice  string             `json:"notice,omitempty"`
}

// LyricsResponse echoes the song alongside its resolved lyrics
type LyricsResponse struct {
	Title  string `json:"title"`
	Artist string `json:"artist"`
	*providers.LyricsResult
}

type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
}
