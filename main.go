package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"lyrics-finder-go/config"
	"lyrics-finder-go/logcolors"
	"lyrics-finder-go/middleware"
	"lyrics-finder-go/services/notifier"

	"github.com/gorilla/mux"
	log "github.com/sirupsen/logrus"
	"golang.org/x/time/rate"
)

var conf = config.Get()

func init() {
	log.SetFormatter(&log.JSONFormatter{})
	log.SetOutput(os.Stdout)
}

func main() {
	setupLogging(conf.Configuration.LogLevel)

	startAlerts(conf, notifier.GetEventBus())

	var err error
	lyricsEngine, err = buildEngine(conf)
	if err != nil {
		log.Fatalf("%s Failed to build engine: %v", logcolors.LogServer, err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	lyricsEngine.StartTokenMonitors(ctx, time.Minute)
	store := startStatsStore(conf)

	router := mux.NewRouter()
	setupRoutes(router)

	limiter := middleware.NewIPRateLimiter(rate.Limit(conf.Configuration.RateLimitPerSecond), conf.Configuration.RateLimitBurstLimit)

	srv := &http.Server{
		Addr:              ":" + conf.Configuration.Port,
		Handler:           buildHandler(router, limiter),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		log.Infof("%s Listening on port %s", logcolors.LogServer, conf.Configuration.Port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("%s Server failed: %v", logcolors.LogServer, err)
		}
	}()

	<-ctx.Done()
	log.Infof("%s Shutting down", logcolors.LogServer)

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Errorf("%s Graceful shutdown failed: %v", logcolors.LogServer, err)
	}

	if store != nil {
		if err := store.Close(); err != nil {
			log.Errorf("%s Failed to close stats store: %v", logcolors.LogStats, err)
		}
	}
	if err := lyricsEngine.Close(); err != nil {
		log.Errorf("%s Failed to close engine: %v", logcolors.LogServer, err)
	}
}
