package geocode

import (
	"context"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"commuteatlas/arcgis"
	"commuteatlas/mapper"
	"commuteatlas/match"
	"commuteatlas/model"
)

// Geocoder is the slice of the service client the resolver needs.
type Geocoder interface {
	GeocodeAddresses(ctx context.Context, records []arcgis.AddressRecord, token string) ([]arcgis.GeocodeCandidate, error)
	SuggestedBatchSize(ctx context.Context) (int, error)
}

type Resolver struct {
	geocoder Geocoder
	cache    *Cache
	log      *zap.Logger
	workers  int
	now      func() time.Time
}

type ResolverOption func(*Resolver)

func WithWorkers(workers int) ResolverOption {
	return func(r *Resolver) {
		if workers > 0 {
			r.workers = workers
		}
	}
}

func NewResolver(geocoder Geocoder, cache *Cache, log *zap.Logger, opts ...ResolverOption) *Resolver {
	if log == nil {
		log = zap.NewNop()
	}
	resolver := &Resolver{
		geocoder: geocoder,
		cache:    cache,
		log:      log,
		workers:  4,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(resolver)
	}
	return resolver
}

type batchOutcome struct {
	locations map[int][]model.GeocodeLocation
	flagged   []int
}

// Resolve geocodes every employee's address pair and returns the pooled,
// address-type-assigned locations in roster order, plus the employees
// flagged before matching (failed batches, zero-candidate responses).
// Batches run concurrently; a failed batch flags only its own employees.
func (r *Resolver) Resolve(ctx context.Context, employees []model.EmployeeAddresses, token string) ([]model.GeocodeLocation, []int, error) {
	if len(employees) == 0 {
		return nil, nil, nil
	}

	batchSize := DefaultBatchSize
	if size, err := r.geocoder.SuggestedBatchSize(ctx); err != nil {
		r.log.Warn("could not fetch suggested batch size, using default",
			zap.Int("default", DefaultBatchSize),
			zap.Error(err),
		)
	} else {
		batchSize = size
	}

	cached, pending := r.splitCached(employees)

	batches := SplitBatches(pending, batchSize)
	outcomes := make([]batchOutcome, len(batches))

	group, groupCtx := errgroup.WithContext(ctx)
	group.SetLimit(r.workers)
	for i, batch := range batches {
		i, batch := i, batch
		group.Go(func() error {
			outcome, err := r.resolveBatch(groupCtx, batch, token)
			if err != nil {
				return err
			}
			outcomes[i] = outcome
			return nil
		})
	}
	if err := group.Wait(); err != nil {
		return nil, nil, err
	}

	byEmployee := cached
	var flagged []int
	for _, outcome := range outcomes {
		for employee, locations := range outcome.locations {
			byEmployee[employee] = locations
		}
		flagged = append(flagged, outcome.flagged...)
	}

	pooled := make([]model.GeocodeLocation, 0, 2*len(employees))
	for _, employee := range employees {
		pooled = append(pooled, byEmployee[employee.EmployeeID]...)
	}
	return pooled, flagged, nil
}

// splitCached resolves employees whose both addresses are already cached,
// bypassing the geocoder entirely for them. The cached work/home roles are
// known, so disambiguation is not needed.
func (r *Resolver) splitCached(employees []model.EmployeeAddresses) (map[int][]model.GeocodeLocation, []model.EmployeeAddresses) {
	byEmployee := make(map[int][]model.GeocodeLocation, len(employees))
	if r.cache == nil {
		return byEmployee, employees
	}

	pending := make([]model.EmployeeAddresses, 0, len(employees))
	for _, employee := range employees {
		work, workOK := r.cache.Get(employee.Work)
		home, homeOK := r.cache.Get(employee.Home)
		if !workOK || !homeOK {
			pending = append(pending, employee)
			continue
		}
		byEmployee[employee.EmployeeID] = []model.GeocodeLocation{
			cachedLocation(employee.EmployeeID, employee.WorkRecordID, model.AddressTypeWork, work),
			cachedLocation(employee.EmployeeID, employee.HomeRecordID, model.AddressTypeHome, home),
		}
	}
	return byEmployee, pending
}

func cachedLocation(employeeID, recordID int, addressType model.AddressType, entry CacheEntry) model.GeocodeLocation {
	return model.GeocodeLocation{
		EmployeeID: employeeID,
		RecordID:   recordID,
		Address:    entry.Matched,
		Score:      entry.Score,
		Latitude:   entry.Lat,
		Longitude:  entry.Lng,
		Type:       addressType,
	}
}

func (r *Resolver) resolveBatch(ctx context.Context, batch []model.EmployeeAddresses, token string) (batchOutcome, error) {
	outcome := batchOutcome{locations: make(map[int][]model.GeocodeLocation, len(batch))}

	records := make([]arcgis.AddressRecord, 0, 2*len(batch))
	employeeByRecord := make(map[int]int, 2*len(batch))
	for _, employee := range batch {
		records = append(records, mapper.AddressRecords(employee)...)
		employeeByRecord[employee.WorkRecordID] = employee.EmployeeID
		employeeByRecord[employee.HomeRecordID] = employee.EmployeeID
	}

	candidates, err := r.geocoder.GeocodeAddresses(ctx, records, token)
	if err != nil {
		if ctx.Err() != nil {
			return batchOutcome{}, ctx.Err()
		}
		r.log.Error("geocode batch failed, flagging its employees",
			zap.Int("employees", len(batch)),
			zap.Error(err),
		)
		for _, employee := range batch {
			outcome.flagged = append(outcome.flagged, employee.EmployeeID)
		}
		return outcome, nil
	}

	grouped := make(map[int][]model.GeocodeLocation, len(batch))
	for _, candidate := range candidates {
		employee, ok := employeeByRecord[candidate.Attributes.ResultID]
		if !ok {
			r.log.Warn("geocode candidate with unknown result id",
				zap.Int("result_id", candidate.Attributes.ResultID),
			)
			continue
		}
		grouped[employee] = append(grouped[employee], mapper.NormalizeCandidate(candidate, employee))
	}

	for _, employee := range batch {
		pair := grouped[employee.EmployeeID]
		switch {
		case len(pair) == 0:
			r.log.Warn("no geocode candidates for employee",
				zap.Int("employee", employee.EmployeeID),
			)
			outcome.flagged = append(outcome.flagged, employee.EmployeeID)
			continue
		case len(pair) == 2:
			if match.AssignAddressTypes(pair) {
				r.cacheResolved(employee, pair)
			}
		default:
			r.log.Warn("unexpected geocode candidate count, skipping disambiguation",
				zap.Int("employee", employee.EmployeeID),
				zap.Int("candidates", len(pair)),
			)
		}
		outcome.locations[employee.EmployeeID] = pair
	}
	return outcome, nil
}

func (r *Resolver) cacheResolved(employee model.EmployeeAddresses, pair []model.GeocodeLocation) {
	if r.cache == nil {
		return
	}
	for _, location := range pair {
		address := employee.Work
		if location.Type == model.AddressTypeHome {
			address = employee.Home
		}
		r.cache.Set(address, CacheEntry{
			Matched:   location.Address,
			Score:     location.Score,
			Lat:       location.Latitude,
			Lng:       location.Longitude,
			UpdatedAt: r.now(),
		})
	}
}
