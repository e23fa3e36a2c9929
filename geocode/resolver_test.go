package geocode

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"commuteatlas/arcgis"
	"commuteatlas/model"
)

type stubGeocoder struct {
	mu        sync.Mutex
	batchSize int
	sizeErr   error
	calls     int
	respond   func(records []arcgis.AddressRecord) ([]arcgis.GeocodeCandidate, error)
}

func (s *stubGeocoder) SuggestedBatchSize(ctx context.Context) (int, error) {
	if s.sizeErr != nil {
		return 0, s.sizeErr
	}
	if s.batchSize == 0 {
		return DefaultBatchSize, nil
	}
	return s.batchSize, nil
}

func (s *stubGeocoder) GeocodeAddresses(ctx context.Context, records []arcgis.AddressRecord, token string) ([]arcgis.GeocodeCandidate, error) {
	s.mu.Lock()
	s.calls++
	s.mu.Unlock()
	return s.respond(records)
}

func candidate(resultID int, address string, score, x, y float64) arcgis.GeocodeCandidate {
	c := arcgis.GeocodeCandidate{
		Address:  address,
		Score:    score,
		Location: arcgis.Point{X: x, Y: y},
	}
	c.Attributes.ResultID = resultID
	return c
}

func employee(id int) model.EmployeeAddresses {
	return model.EmployeeAddresses{
		EmployeeID:   id,
		WorkRecordID: id,
		HomeRecordID: id + 1,
		Work:         model.Address{Street: "1 Office Plaza", City: "Springfield", Region: "MN", Postal: "55401"},
		Home:         model.Address{Street: "8 Maple St", City: "Springfield", Region: "MN", Postal: "55402"},
	}
}

func echoCandidates(records []arcgis.AddressRecord) ([]arcgis.GeocodeCandidate, error) {
	candidates := make([]arcgis.GeocodeCandidate, 0, len(records))
	for _, record := range records {
		candidates = append(candidates, candidate(record.ObjectID, record.Address+" (matched)", 97, -93.2, 44.9))
	}
	return candidates, nil
}

func TestResolveAssignsAddressTypes(t *testing.T) {
	geocoder := &stubGeocoder{respond: echoCandidates}
	resolver := NewResolver(geocoder, nil, nil)

	pooled, flagged, err := resolver.Resolve(context.Background(), []model.EmployeeAddresses{employee(7)}, "tok")

	require.NoError(t, err)
	assert.Empty(t, flagged)
	require.Len(t, pooled, 2)
	assert.Equal(t, 7, pooled[0].EmployeeID)
	assert.Equal(t, model.AddressTypeWork, pooled[0].Type)
	assert.Equal(t, model.AddressTypeHome, pooled[1].Type)
	assert.Equal(t, "1 Office Plaza (matched)", pooled[0].Address)
}

func TestResolveBatchFailureFlagsOnlyItsEmployees(t *testing.T) {
	geocoder := &stubGeocoder{
		batchSize: 2, // one employee per batch
		respond: func(records []arcgis.AddressRecord) ([]arcgis.GeocodeCandidate, error) {
			if records[0].ObjectID == 1 {
				return nil, errors.New("geocode server unavailable")
			}
			return echoCandidates(records)
		},
	}
	resolver := NewResolver(geocoder, nil, nil, WithWorkers(1))

	pooled, flagged, err := resolver.Resolve(context.Background(), []model.EmployeeAddresses{employee(1), employee(3)}, "tok")

	require.NoError(t, err)
	assert.Equal(t, []int{1}, flagged)
	require.Len(t, pooled, 2)
	assert.Equal(t, 3, pooled[0].EmployeeID)
	assert.Equal(t, 3, pooled[1].EmployeeID)
}

func TestResolveZeroCandidatesFlagged(t *testing.T) {
	geocoder := &stubGeocoder{
		respond: func(records []arcgis.AddressRecord) ([]arcgis.GeocodeCandidate, error) {
			// only employee 1's records resolve
			var candidates []arcgis.GeocodeCandidate
			for _, record := range records {
				if record.ObjectID <= 2 {
					candidates = append(candidates, candidate(record.ObjectID, record.Address, 97, -93.2, 44.9))
				}
			}
			return candidates, nil
		},
	}
	resolver := NewResolver(geocoder, nil, nil)

	pooled, flagged, err := resolver.Resolve(context.Background(), []model.EmployeeAddresses{employee(1), employee(4)}, "tok")

	require.NoError(t, err)
	assert.Equal(t, []int{4}, flagged)
	require.Len(t, pooled, 2)
	assert.Equal(t, 1, pooled[0].EmployeeID)
}

func TestResolveDegenerateCandidateCountPassesUntyped(t *testing.T) {
	geocoder := &stubGeocoder{
		respond: func(records []arcgis.AddressRecord) ([]arcgis.GeocodeCandidate, error) {
			// one candidate for a two-record pair
			return []arcgis.GeocodeCandidate{candidate(records[0].ObjectID, records[0].Address, 97, -93.2, 44.9)}, nil
		},
	}
	resolver := NewResolver(geocoder, nil, nil)

	pooled, flagged, err := resolver.Resolve(context.Background(), []model.EmployeeAddresses{employee(9)}, "tok")

	require.NoError(t, err)
	assert.Empty(t, flagged)
	require.Len(t, pooled, 1)
	assert.Empty(t, pooled[0].Type)
}

func TestResolveCacheHitSkipsGeocoder(t *testing.T) {
	worker := employee(5)
	cache := &Cache{Entries: map[string]CacheEntry{}}
	cache.Set(worker.Work, CacheEntry{Matched: "1 Office Plaza (matched)", Score: 99, Lat: 44.98, Lng: -93.29})
	cache.Set(worker.Home, CacheEntry{Matched: "8 Maple St (matched)", Score: 95, Lat: 44.95, Lng: -93.31})

	geocoder := &stubGeocoder{respond: echoCandidates}
	resolver := NewResolver(geocoder, cache, nil)

	pooled, flagged, err := resolver.Resolve(context.Background(), []model.EmployeeAddresses{worker}, "tok")

	require.NoError(t, err)
	assert.Empty(t, flagged)
	assert.Zero(t, geocoder.calls)
	require.Len(t, pooled, 2)
	assert.Equal(t, model.AddressTypeWork, pooled[0].Type)
	assert.Equal(t, 44.98, pooled[0].Latitude)
	assert.Equal(t, model.AddressTypeHome, pooled[1].Type)
	assert.Equal(t, -93.31, pooled[1].Longitude)
}

func TestResolvePopulatesCache(t *testing.T) {
	worker := employee(5)
	cache := &Cache{Entries: map[string]CacheEntry{}}
	geocoder := &stubGeocoder{respond: echoCandidates}
	resolver := NewResolver(geocoder, cache, nil)

	_, _, err := resolver.Resolve(context.Background(), []model.EmployeeAddresses{worker}, "tok")
	require.NoError(t, err)

	entry, ok := cache.Get(worker.Work)
	require.True(t, ok)
	assert.Equal(t, "1 Office Plaza (matched)", entry.Matched)
	_, ok = cache.Get(worker.Home)
	assert.True(t, ok)
}

func TestResolveBatchSizeFallback(t *testing.T) {
	geocoder := &stubGeocoder{
		sizeErr: errors.New("server unreachable"),
		respond: echoCandidates,
	}
	resolver := NewResolver(geocoder, nil, nil)

	pooled, flagged, err := resolver.Resolve(context.Background(), []model.EmployeeAddresses{employee(2)}, "tok")

	require.NoError(t, err)
	assert.Empty(t, flagged)
	assert.Len(t, pooled, 2)
}
