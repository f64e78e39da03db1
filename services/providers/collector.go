package providers

import "strings"

// DefaultCatalogCap bounds full-catalog traversals.
const DefaultCatalogCap = 100

// CatalogCollector accumulates songs in arrival order, dropping repeated ids,
// until it holds cap songs.
type CatalogCollector struct {
	cap   int
	seen  map[string]struct{}
	songs []Song
}

func NewCatalogCollector(cap int) *CatalogCollector {
	if cap <= 0 {
		cap = DefaultCatalogCap
	}
	return &CatalogCollector{
		cap:  cap,
		seen: make(map[string]struct{}),
	}
}

// Add keeps s unless it was already seen or the collector is full.
// It returns false once the collector is full.
func (c *CatalogCollector) Add(s Song) bool {
	if c.Full() {
		return false
	}

	key := s.ID
	if key == "" {
		key = strings.ToLower(s.Title) + "\x00" + strings.ToLower(s.ArtistName)
	}
	if _, dup := c.seen[key]; !dup {
		c.seen[key] = struct{}{}
		c.songs = append(c.songs, s)
	}
	return !c.Full()
}

// AddAll adds songs until the collector fills up.
func (c *CatalogCollector) AddAll(songs []Song) bool {
	for _, s := range songs {
		if !c.Add(s) {
			return false
		}
	}
	return !c.Full()
}

func (c *CatalogCollector) Full() bool {
	return len(c.songs) >= c.cap
}

func (c *CatalogCollector) Len() int {
	return len(c.songs)
}

func (c *CatalogCollector) Songs() []Song {
	return c.songs
}
