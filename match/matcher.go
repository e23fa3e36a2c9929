package match

import (
	"go.uber.org/zap"

	"commuteatlas/model"
)

// Result pairs each resolvable employee's work location (origin) with its
// home location (destination). Origins and Destinations are index-aligned.
// Flagged lists employees with no usable pair, in flagging order.
type Result struct {
	Origins      []model.GeocodeLocation
	Destinations []model.GeocodeLocation
	Flagged      []int
}

type Matcher struct {
	log *zap.Logger
}

func NewMatcher(log *zap.Logger) *Matcher {
	if log == nil {
		log = zap.NewNop()
	}
	return &Matcher{log: log}
}

// Match walks the pooled locations in input order and resolves each
// employee exactly once: the first outcome (paired or flagged) is final,
// later duplicates are ignored. A location without an employee key cannot
// even be flagged; it is logged and skipped.
func (m *Matcher) Match(locations []model.GeocodeLocation) Result {
	found := map[int]bool{}
	flagged := map[int]bool{}
	result := Result{}

	flag := func(employee int) {
		if !flagged[employee] {
			flagged[employee] = true
			result.Flagged = append(result.Flagged, employee)
		}
	}

	for _, location := range locations {
		employee := location.EmployeeID
		if employee <= 0 {
			m.log.Warn("location without employee key, skipping",
				zap.Int("record_id", location.RecordID),
				zap.String("address", location.Address),
			)
			continue
		}
		if found[employee] || flagged[employee] {
			continue
		}

		counterpart, ok := findCounterpart(locations, location)
		if !ok {
			m.log.Warn("no counterpart location, or home and work addresses are the same",
				zap.Int("employee", employee),
			)
			flag(employee)
			continue
		}

		if location.Score == 0 || counterpart.Score == 0 {
			m.log.Warn("zero-confidence geocode invalidates pair",
				zap.Int("employee", employee),
				zap.Float64("score", location.Score),
				zap.Float64("counterpart_score", counterpart.Score),
			)
			flag(employee)
			continue
		}

		origin, destination := location, counterpart
		if origin.Type != model.AddressTypeWork {
			origin, destination = destination, origin
		}
		result.Origins = append(result.Origins, origin)
		result.Destinations = append(result.Destinations, destination)
		found[employee] = true
	}

	return result
}

// findCounterpart searches the pool for the other half of an employee's
// pair: same employee, a different matched address, the opposite address
// type. Untyped locations never qualify, so employees whose pair skipped
// disambiguation end up flagged.
func findCounterpart(locations []model.GeocodeLocation, location model.GeocodeLocation) (model.GeocodeLocation, bool) {
	if location.Type == "" {
		return model.GeocodeLocation{}, false
	}
	for _, candidate := range locations {
		if candidate.EmployeeID != location.EmployeeID {
			continue
		}
		if candidate.Address == location.Address {
			continue
		}
		if candidate.Type == "" || candidate.Type == location.Type {
			continue
		}
		return candidate, true
	}
	return model.GeocodeLocation{}, false
}
