package geocode

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"commuteatlas/model"
)

// CacheEntry is one geocoded address, keyed by the normalized input
// address. Matched is the street address string the geocoder settled on.
type CacheEntry struct {
	Query     string    `json:"query"`
	Matched   string    `json:"matched"`
	Score     float64   `json:"score"`
	Lat       float64   `json:"lat"`
	Lng       float64   `json:"lng"`
	UpdatedAt time.Time `json:"updated_at"`
}

type Cache struct {
	mu      sync.Mutex
	Entries map[string]CacheEntry `json:"entries"`
}

func LoadCache(path string) (*Cache, error) {
	if strings.TrimSpace(path) == "" {
		return &Cache{Entries: map[string]CacheEntry{}}, nil
	}
	payload, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return &Cache{Entries: map[string]CacheEntry{}}, nil
		}
		return nil, err
	}
	var cache Cache
	if err := json.Unmarshal(payload, &cache); err != nil {
		return nil, err
	}
	if cache.Entries == nil {
		cache.Entries = map[string]CacheEntry{}
	}
	return &cache, nil
}

func SaveCache(path string, cache *Cache) error {
	if cache == nil {
		return nil
	}
	if strings.TrimSpace(path) == "" {
		return nil
	}
	dir := filepath.Dir(path)
	if dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}
	cache.mu.Lock()
	payload, err := json.Marshal(cache)
	cache.mu.Unlock()
	if err != nil {
		return err
	}
	return os.WriteFile(path, append(payload, '\n'), 0o644)
}

func (c *Cache) Get(address model.Address) (CacheEntry, bool) {
	if c == nil {
		return CacheEntry{}, false
	}
	key := cacheKey(address)
	c.mu.Lock()
	entry, ok := c.Entries[key]
	c.mu.Unlock()
	return entry, ok
}

func (c *Cache) Set(address model.Address, entry CacheEntry) {
	if c == nil {
		return
	}
	key := cacheKey(address)
	entry.Query = key
	c.mu.Lock()
	if c.Entries == nil {
		c.Entries = map[string]CacheEntry{}
	}
	c.Entries[key] = entry
	c.mu.Unlock()
}

func cacheKey(address model.Address) string {
	parts := []string{address.Street, address.City, address.Region, address.Postal}
	for i, part := range parts {
		parts[i] = strings.ToLower(strings.TrimSpace(part))
	}
	return strings.Join(parts, "|")
}
