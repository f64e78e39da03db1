package main

import (
	"net/http"

	"lyrics-finder-go/middleware"
	"lyrics-finder-go/stats"

	"github.com/gorilla/mux"
)

// adminPaths require X-API-Key when API_KEY_REQUIRED is set
var adminPaths = []string{"/stats", "/circuit-breaker*", "/cache/*"}

// setupRoutes configures all HTTP routes for the API
func setupRoutes(router *mux.Router) {
	router.Use(middleware.RouteLabel)

	// Engine endpoints
	router.HandleFunc("/search", searchHandler).Methods(http.MethodGet, http.MethodPost)
	router.HandleFunc("/lyrics", lyricsHandler).Methods(http.MethodGet, http.MethodPost)

	// Health and stats endpoints
	router.HandleFunc("/health", healthHandler).Methods(http.MethodGet)
	router.HandleFunc("/stats", statsHandler).Methods(http.MethodGet)
	router.Handle("/metrics", stats.MetricsHandler()).Methods(http.MethodGet)

	// Circuit breaker endpoints
	router.HandleFunc("/circuit-breaker", circuitBreakerStatusHandler).Methods(http.MethodGet)
	router.HandleFunc("/circuit-breaker/reset", resetCircuitBreakerHandler).Methods(http.MethodPost)

	// Page cache
	router.HandleFunc("/cache/clear", clearCacheHandler).Methods(http.MethodPost)

	router.HandleFunc("/", helpHandler)
}
