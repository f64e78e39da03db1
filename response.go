package main

import (
	"encoding/json"
	"net/http"

	"lyrics-finder-go/services/providers"
)

// APIResponse handles consistent header setting and JSON responses.
// It sets X-Request-ID and X-RateLimit-Type from the request context
// plus the lyrics stage and search mode when the handler supplies them.
type APIResponse struct {
	w     http.ResponseWriter
	r     *http.Request
	stage providers.Stage
	mode  string
}

// Respond creates a response helper from request context
func Respond(w http.ResponseWriter, r *http.Request) *APIResponse {
	return &APIResponse{w: w, r: r}
}

// SetStage sets the X-Lyrics-Stage header value
func (a *APIResponse) SetStage(stage providers.Stage) *APIResponse {
	a.stage = stage
	return a
}

// SetMode sets the X-Search-Mode header value
func (a *APIResponse) SetMode(mode providers.SearchMode) *APIResponse {
	a.mode = mode.String()
	return a
}

func (a *APIResponse) writeHeaders() {
	a.w.Header().Set("Content-Type", "application/json")

	if a.stage != "" {
		a.w.Header().Set("X-Lyrics-Stage", string(a.stage))
	}
	if a.mode != "" {
		a.w.Header().Set("X-Search-Mode", a.mode)
	}
	if id, ok := a.r.Context().Value(requestIDKey).(string); ok && id != "" {
		a.w.Header().Set("X-Request-ID", id)
	}
	if rateLimitType, ok := a.r.Context().Value(rateLimitTypeKey).(string); ok && rateLimitType != "" {
		a.w.Header().Set("X-RateLimit-Type", rateLimitType)
	}
}

// JSON writes headers and encodes data as JSON (200 OK)
func (a *APIResponse) JSON(data interface{}) error {
	a.writeHeaders()
	return json.NewEncoder(a.w).Encode(data)
}

// Error writes headers, sets status code, and encodes error response
func (a *APIResponse) Error(statusCode int, data interface{}) error {
	a.writeHeaders()
	a.w.WriteHeader(statusCode)
	return json.NewEncoder(a.w).Encode(data)
}
