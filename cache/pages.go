package cache

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"lyrics-finder-go/logcolors"
	"lyrics-finder-go/utils"

	log "github.com/sirupsen/logrus"
	bolt "go.etcd.io/bbolt"
)

const bucketName = "pages"

// PageCache stores fetched pages in BoltDB with an in-memory mirror.
// Entries older than the TTL are treated as misses and removed lazily.
type PageCache struct {
	db                 *bolt.DB
	memCache           sync.Map
	dbPath             string
	ttl                time.Duration
	compressionEnabled bool
	now                func() time.Time
}

// PageEntry is the stored form of a cached page.
type PageEntry struct {
	Body       string    `json:"body"`
	Compressed bool      `json:"compressed,omitempty"`
	StoredAt   time.Time `json:"storedAt"`
}

func NewPageCache(dbPath string, ttl time.Duration, compressionEnabled bool) (*PageCache, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("failed to create cache directory: %w", err)
	}

	db, err := bolt.Open(dbPath, 0600, &bolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, fmt.Errorf("failed to open cache database: %w", err)
	}

	err = db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists([]byte(bucketName))
		return err
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create cache bucket: %w", err)
	}

	pc := &PageCache{
		db:                 db,
		dbPath:             dbPath,
		ttl:                ttl,
		compressionEnabled: compressionEnabled,
		now:                time.Now,
	}

	if err := pc.loadToMemory(); err != nil {
		log.Warnf("%s Failed to preload pages: %v", logcolors.LogCacheInit, err)
	}

	log.Infof("%s Page cache ready at %s (ttl: %v, compression: %v)", logcolors.LogCacheInit, dbPath, ttl, compressionEnabled)
	return pc, nil
}

func (pc *PageCache) loadToMemory() error {
	count := 0
	err := pc.db.View(func(tx *bolt.Tx) error {
		return tx.Bucket([]byte(bucketName)).ForEach(func(k, v []byte) error {
			var entry PageEntry
			if err := json.Unmarshal(v, &entry); err != nil {
				log.Warnf("%s Skipping unreadable entry %s: %v", logcolors.LogCache, string(k), err)
				return nil
			}
			if pc.expired(entry) {
				return nil
			}
			pc.memCache.Store(string(k), entry)
			count++
			return nil
		})
	})
	if err != nil {
		return err
	}

	log.Infof("%s Loaded %d live pages from disk", logcolors.LogCacheInit, count)
	return nil
}

func (pc *PageCache) expired(entry PageEntry) bool {
	return pc.ttl > 0 && pc.now().Sub(entry.StoredAt) > pc.ttl
}

// Get returns the cached body for key if present and not expired.
func (pc *PageCache) Get(key string) (string, bool) {
	v, ok := pc.memCache.Load(key)
	if !ok {
		return "", false
	}
	entry := v.(PageEntry)

	if pc.expired(entry) {
		if err := pc.Delete(key); err != nil {
			log.Warnf("%s Failed to evict expired page %s: %v", logcolors.LogCache, key, err)
		}
		return "", false
	}

	if !entry.Compressed {
		return entry.Body, true
	}
	body, err := utils.DecompressString(entry.Body)
	if err != nil {
		log.Warnf("%s Failed to decompress page %s: %v", logcolors.LogCache, key, err)
		return "", false
	}
	return body, true
}

func (pc *PageCache) Set(key, body string) error {
	entry := PageEntry{Body: body, StoredAt: pc.now()}
	if pc.compressionEnabled {
		compressed, err := utils.CompressString(body)
		if err != nil {
			return fmt.Errorf("failed to compress page: %w", err)
		}
		entry.Body = compressed
		entry.Compressed = true
	}

	data, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("failed to marshal page entry: %w", err)
	}

	err = pc.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket([]byte(bucketName)).Put([]byte(key), data)
	})
	if err != nil {
		return fmt.Errorf("failed to persist page: %w", err)
	}

	pc.memCache.Store(key, entry)
	return nil
}

func (pc *PageCache) Delete(key string) error {
	pc.memCache.Delete(key)
	return pc.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket([]byte(bucketName)).Delete([]byte(key))
	})
}

// Clear drops every cached page and returns how many were removed.
func (pc *PageCache) Clear() (int, error) {
	removed := 0
	pc.memCache.Range(func(k, _ any) bool {
		pc.memCache.Delete(k)
		removed++
		return true
	})

	err := pc.db.Update(func(tx *bolt.Tx) error {
		if err := tx.DeleteBucket([]byte(bucketName)); err != nil {
			return err
		}
		_, err := tx.CreateBucket([]byte(bucketName))
		return err
	})
	if err != nil {
		return removed, fmt.Errorf("failed to clear page cache: %w", err)
	}

	log.Infof("%s Removed %d pages", logcolors.LogCacheClear, removed)
	return removed, nil
}

// Stats returns the number of entries and their approximate stored size in KB.
func (pc *PageCache) Stats() (numKeys int, sizeInKB int) {
	size := 0
	pc.memCache.Range(func(k, v any) bool {
		numKeys++
		size += len(k.(string)) + len(v.(PageEntry).Body)
		return true
	})
	return numKeys, size / 1024
}

func (pc *PageCache) Close() error {
	return pc.db.Close()
}
