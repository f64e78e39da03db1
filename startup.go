package main

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"lyrics-finder-go/circuitbreaker"
	"lyrics-finder-go/config"
	"lyrics-finder-go/logcolors"
	"lyrics-finder-go/middleware"
	"lyrics-finder-go/services/engine"
	"lyrics-finder-go/services/notifier"
	"lyrics-finder-go/stats"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/rs/cors"
	log "github.com/sirupsen/logrus"
)

func setupLogging(level string) {
	lvl, err := log.ParseLevel(strings.ToLower(strings.TrimSpace(level)))
	if err != nil {
		log.Warnf("%s Unknown LOG_LEVEL %q, using info", logcolors.LogConfig, level)
		lvl = log.InfoLevel
	}
	log.SetLevel(lvl)
}

// buildEngine wires provider calls into the stats collector and breaker or
// auth trouble into both stats and the alert bus
func buildEngine(cfg config.Config) (*engine.Engine, error) {
	return engine.Build(cfg, engine.Options{
		Observe: stats.Get().RecordProviderCall,
		OnTransition: func(name string, from, to circuitbreaker.State) {
			stats.Get().RecordBreakerTransition(name, from, to)
			notifier.BreakerTransition(name, from, to)
		},
		OnHighFailures: notifier.PublishHighFailureRate,
		OnAuthFailure:  notifier.PublishProviderAuthFailure,
	})
}

func setupNotifiers(cfg config.Config) []notifier.Notifier {
	n := cfg.Notifier
	var notifiers []notifier.Notifier

	if n.SMTPHost != "" {
		notifiers = append(notifiers, &notifier.EmailNotifier{
			SMTPHost:     n.SMTPHost,
			SMTPPort:     n.SMTPPort,
			SMTPUsername: n.SMTPUsername,
			SMTPPassword: n.SMTPPassword,
			FromEmail:    n.FromEmail,
			ToEmail:      n.ToEmail,
		})
	}
	if n.TelegramBotToken != "" {
		notifiers = append(notifiers, &notifier.TelegramNotifier{
			BotToken: n.TelegramBotToken,
			ChatID:   n.TelegramChatID,
		})
	}
	if n.NtfyTopic != "" {
		notifiers = append(notifiers, &notifier.NtfyNotifier{
			Topic:  n.NtfyTopic,
			Server: n.NtfyServer,
		})
	}

	for _, nt := range notifiers {
		log.Infof("%s %s notifier enabled", logcolors.LogNotifier, notifier.TypeName(nt))
	}
	return notifiers
}

// startAlerts subscribes an alert handler to bus. Returns nil when no
// notifier is configured.
func startAlerts(cfg config.Config, bus *notifier.EventBus) *notifier.AlertHandler {
	notifiers := setupNotifiers(cfg)
	if len(notifiers) == 0 {
		log.Infof("%s No notifiers configured, alerts disabled", logcolors.LogNotifier)
		return nil
	}
	h := notifier.NewAlertHandler(notifier.AlertConfig{
		Notifiers:        notifiers,
		CooldownDuration: cfg.AlertCooldown(),
	})
	h.Start(bus)
	return h
}

// startStatsStore restores persisted counters and starts the auto-save loop.
// Returns nil when persistence is disabled or the store cannot be opened.
func startStatsStore(cfg config.Config) *stats.Store {
	if !cfg.FeatureFlags.PersistStats {
		return nil
	}
	store, err := stats.NewStore(cfg.Configuration.StatsDBPath)
	if err != nil {
		log.Warnf("%s Stats persistence disabled: %v", logcolors.LogStats, err)
		return nil
	}
	if err := store.Load(); err != nil {
		log.Warnf("%s Failed to load persisted stats: %v", logcolors.LogStats, err)
	}
	store.StartAutoSave(cfg.StatsSaveInterval())
	return store
}

func requestIDMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get("X-Request-ID")
		if id == "" {
			id = uuid.NewString()
		}
		ctx := context.WithValue(r.Context(), requestIDKey, id)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func limitMiddleware(next http.Handler, limiter *middleware.IPRateLimiter) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// Check for API key to bypass rate limits
		apiKey := r.Header.Get("X-API-Key")
		if apiKey != "" && conf.Configuration.APIKey != "" && apiKey == conf.Configuration.APIKey {
			w.Header().Set("X-RateLimit-Bypass", "true")
			ctx := context.WithValue(r.Context(), rateLimitTypeKey, "bypass")
			next.ServeHTTP(w, r.WithContext(ctx))
			return
		}

		ip := middleware.ClientIP(r)
		w.Header().Set("X-RateLimit-Limit", fmt.Sprintf("%d", limiter.Burst()))

		if limiter.GetLimiter(ip).Allow() {
			stats.Get().RecordRateLimit("normal")
			w.Header().Set("X-RateLimit-Remaining", fmt.Sprintf("%d", limiter.Remaining(ip)))
			ctx := context.WithValue(r.Context(), rateLimitTypeKey, "normal")
			next.ServeHTTP(w, r.WithContext(ctx))
			return
		}

		stats.Get().RecordRateLimit("exceeded")
		log.Warnf("%s IP %s exceeded rate limit", logcolors.LogRateLimit, ip)
		w.Header().Set("X-RateLimit-Remaining", "0")
		w.Header().Set("X-RateLimit-Type", "exceeded")
		w.Header().Set("Retry-After", "1")
		http.Error(w, http.StatusText(http.StatusTooManyRequests), http.StatusTooManyRequests)
	})
}

// buildHandler chains the router behind logging, CORS, API key checks,
// rate limiting and request ids. Logging is outermost so rejected requests
// are counted too.
func buildHandler(router *mux.Router, limiter *middleware.IPRateLimiter) http.Handler {
	c := cors.New(cors.Options{
		AllowedOrigins: conf.AllowedOrigins(),
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"Content-Type", "X-API-Key", "X-Request-ID"},
		ExposedHeaders: []string{"X-Lyrics-Stage", "X-Search-Mode", "X-Request-ID", "X-RateLimit-Type", "X-RateLimit-Remaining"},
	})

	apiKey := middleware.APIKeyMiddleware(conf.Configuration.APIKey, conf.Configuration.APIKeyRequired, adminPaths)

	handler := requestIDMiddleware(router)
	handler = limitMiddleware(handler, limiter)
	handler = apiKey(handler)
	handler = c.Handler(handler)
	return middleware.LoggingMiddleware(handler)
}
