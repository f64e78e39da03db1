package stats

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	"lyrics-finder-go/logcolors"

	log "github.com/sirupsen/logrus"
	bolt "go.etcd.io/bbolt"
)

const (
	statsBucketName = "stats"
	statsKey        = "server_stats"
)

// Store persists counters so totals survive restarts
type Store struct {
	db       *bolt.DB
	dbPath   string
	stats    *Stats
	mu       sync.Mutex
	stopChan chan struct{}
	wg       sync.WaitGroup
}

// PersistedStats is the on-disk form of the cumulative counters
type PersistedStats struct {
	TotalRequests  int64 `json:"total_requests"`
	SearchRequests int64 `json:"search_requests"`
	LyricsRequests int64 `json:"lyrics_requests"`
	AdminRequests  int64 `json:"admin_requests"`
	StatsRequests  int64 `json:"stats_requests"`
	HealthRequests int64 `json:"health_requests"`
	OtherRequests  int64 `json:"other_requests"`

	SongSearches     int64 `json:"song_searches"`
	ArtistSearches   int64 `json:"artist_searches"`
	RegionalSearches int64 `json:"regional_searches"`
	FailedSearches   int64 `json:"failed_searches"`

	LyricsPrefetched int64 `json:"lyrics_prefetched"`
	LyricsDirect     int64 `json:"lyrics_direct"`
	LyricsSearched   int64 `json:"lyrics_searched"`
	LyricsGuidance   int64 `json:"lyrics_guidance"`
	LyricsFailed     int64 `json:"lyrics_failed"`

	ProviderCalls     int64 `json:"provider_calls"`
	ProviderErrors    int64 `json:"provider_errors"`
	RateLimitNormal   int64 `json:"rate_limit_normal"`
	RateLimitExceeded int64 `json:"rate_limit_exceeded"`
	Status2xx         int64 `json:"status_2xx"`
	Status4xx         int64 `json:"status_4xx"`
	Status5xx         int64 `json:"status_5xx"`

	TotalResponseTime   int64 `json:"total_response_time"`
	ResponseCount       int64 `json:"response_count"`
	MinResponseTime     int64 `json:"min_response_time"`
	MaxResponseTime     int64 `json:"max_response_time"`
	LyricsResponseTime  int64 `json:"lyrics_response_time"`
	LyricsResponseCount int64 `json:"lyrics_response_count"`

	ProviderUsage map[string]int64 `json:"provider_usage"`

	LastSaved    time.Time `json:"last_saved"`
	FirstStarted time.Time `json:"first_started"`
}

// NewStore opens a dedicated BoltDB file for the global stats
func NewStore(dbPath string) (*Store, error) {
	return newStore(dbPath, Get())
}

func newStore(dbPath string, stats *Stats) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("failed to create stats directory: %w", err)
	}

	db, err := bolt.Open(dbPath, 0600, &bolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, fmt.Errorf("failed to open stats database: %w", err)
	}

	err = db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists([]byte(statsBucketName))
		return err
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create stats bucket: %w", err)
	}

	log.Infof("%s Stats store initialized at %s", logcolors.LogStats, dbPath)
	return &Store{
		db:       db,
		dbPath:   dbPath,
		stats:    stats,
		stopChan: make(chan struct{}),
	}, nil
}

type counterField struct {
	disk *int64
	live *atomic.Int64
}

// counters pairs every persisted field with its live counter.
func (s *Store) counters(p *PersistedStats) []counterField {
	st := s.stats
	return []counterField{
		{&p.TotalRequests, &st.TotalRequests},
		{&p.SearchRequests, &st.SearchRequests},
		{&p.LyricsRequests, &st.LyricsRequests},
		{&p.AdminRequests, &st.AdminRequests},
		{&p.StatsRequests, &st.StatsRequests},
		{&p.HealthRequests, &st.HealthRequests},
		{&p.OtherRequests, &st.OtherRequests},
		{&p.SongSearches, &st.SongSearches},
		{&p.ArtistSearches, &st.ArtistSearches},
		{&p.RegionalSearches, &st.RegionalSearches},
		{&p.FailedSearches, &st.FailedSearches},
		{&p.LyricsPrefetched, &st.LyricsPrefetched},
		{&p.LyricsDirect, &st.LyricsDirect},
		{&p.LyricsSearched, &st.LyricsSearched},
		{&p.LyricsGuidance, &st.LyricsGuidance},
		{&p.LyricsFailed, &st.LyricsFailed},
		{&p.ProviderCalls, &st.ProviderCalls},
		{&p.ProviderErrors, &st.ProviderErrors},
		{&p.RateLimitNormal, &st.RateLimitNormal},
		{&p.RateLimitExceeded, &st.RateLimitExceeded},
		{&p.Status2xx, &st.Status2xx},
		{&p.Status4xx, &st.Status4xx},
		{&p.Status5xx, &st.Status5xx},
		{&p.TotalResponseTime, &st.totalResponseTime},
		{&p.ResponseCount, &st.responseCount},
		{&p.LyricsResponseTime, &st.lyricsResponseTime},
		{&p.LyricsResponseCount, &st.lyricsResponseCount},
	}
}

// Load reads persisted stats from disk and applies them to the live counters
func (s *Store) Load() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	var persisted PersistedStats
	found := false
	err := s.db.View(func(tx *bolt.Tx) error {
		data := tx.Bucket([]byte(statsBucketName)).Get([]byte(statsKey))
		if data == nil {
			return nil
		}
		found = true
		return json.Unmarshal(data, &persisted)
	})
	if err != nil {
		return fmt.Errorf("failed to load stats: %w", err)
	}
	if !found {
		return nil
	}

	for _, c := range s.counters(&persisted) {
		c.live.Store(*c.disk)
	}
	if persisted.MinResponseTime > 0 && persisted.MinResponseTime < maxInt64 {
		s.stats.minResponseTime.Store(persisted.MinResponseTime)
	}
	if persisted.MaxResponseTime > 0 {
		s.stats.maxResponseTime.Store(persisted.MaxResponseTime)
	}
	for name, count := range persisted.ProviderUsage {
		counter := &atomic.Int64{}
		counter.Store(count)
		s.stats.providerUsage.Store(name, counter)
	}
	if !persisted.FirstStarted.IsZero() {
		s.stats.StartTime = persisted.FirstStarted
	}

	log.Infof("%s Loaded persisted stats (total requests: %d, first started: %s)",
		logcolors.LogStats, persisted.TotalRequests, persisted.FirstStarted.Format(time.RFC3339))
	return nil
}

// Save persists current stats to disk
func (s *Store) Save() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	persisted := PersistedStats{
		MinResponseTime: s.stats.minResponseTime.Load(),
		MaxResponseTime: s.stats.maxResponseTime.Load(),
		ProviderUsage:   s.stats.ProviderUsageSnapshot(),
		LastSaved:       time.Now(),
		FirstStarted:    s.stats.StartTime,
	}
	for _, c := range s.counters(&persisted) {
		*c.disk = c.live.Load()
	}

	data, err := json.Marshal(persisted)
	if err != nil {
		return fmt.Errorf("failed to marshal stats: %w", err)
	}

	err = s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket([]byte(statsBucketName)).Put([]byte(statsKey), data)
	})
	if err != nil {
		return fmt.Errorf("failed to save stats: %w", err)
	}
	return nil
}

// StartAutoSave begins periodic saving of stats
func (s *Store) StartAutoSave(interval time.Duration) {
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-ticker.C:
				if err := s.Save(); err != nil {
					log.Warnf("%s Failed to auto-save stats: %v", logcolors.LogStats, err)
				}
			case <-s.stopChan:
				return
			}
		}
	}()
	log.Infof("%s Started auto-save with interval %v", logcolors.LogStats, interval)
}

// Close saves stats and closes the database
func (s *Store) Close() error {
	close(s.stopChan)
	s.wg.Wait()

	if err := s.Save(); err != nil {
		log.Warnf("%s Failed to save stats on close: %v", logcolors.LogStats, err)
	} else {
		log.Infof("%s Stats saved on shutdown", logcolors.LogStats)
	}
	return s.db.Close()
}
