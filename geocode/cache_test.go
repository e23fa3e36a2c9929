package geocode

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"commuteatlas/model"
)

func TestCacheRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "cache.json")
	address := model.Address{Street: " 12 Main St ", City: "Springfield", Region: "MN", Postal: "55401"}

	cache := &Cache{Entries: map[string]CacheEntry{}}
	cache.Set(address, CacheEntry{Matched: "12 Main St, Springfield", Score: 98.5, Lat: 44.98, Lng: -93.29})
	require.NoError(t, SaveCache(path, cache))

	loaded, err := LoadCache(path)
	require.NoError(t, err)

	// key normalization makes lookups whitespace and case insensitive
	entry, ok := loaded.Get(model.Address{Street: "12 MAIN ST", City: "springfield", Region: "mn", Postal: "55401"})
	require.True(t, ok)
	assert.Equal(t, "12 Main St, Springfield", entry.Matched)
	assert.Equal(t, 98.5, entry.Score)
}

func TestLoadCacheMissingFile(t *testing.T) {
	cache, err := LoadCache(filepath.Join(t.TempDir(), "absent.json"))
	require.NoError(t, err)
	require.NotNil(t, cache)
	assert.Empty(t, cache.Entries)
}
