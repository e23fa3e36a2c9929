// Package report turns solved routes and flagged employees into the fixed
// eight-column output schema.
package report

import (
	"strconv"

	"github.com/umahmood/haversine"
	"go.uber.org/zap"

	"commuteatlas/arcgis"
	"commuteatlas/model"
)

type Builder struct {
	log *zap.Logger
}

func NewBuilder(log *zap.Logger) *Builder {
	if log == nil {
		log = zap.NewNop()
	}
	return &Builder{log: log}
}

// Build emits one row per employee: matched rows first in route order,
// then zero-filled flagged rows in flagging order. Which route endpoint is
// work is read from the From_ address-type tag, never assumed from
// origin/destination position.
func (b *Builder) Build(features []arcgis.RouteFeature, flagged []int) []model.CommuteRow {
	rows := make([]model.CommuteRow, 0, len(features)+len(flagged))
	for _, feature := range features {
		attrs := feature.Attributes
		employee, err := strconv.Atoi(string(attrs.RouteName))
		if err != nil {
			b.log.Error("route with unusable employee key, dropping",
				zap.String("route_name", string(attrs.RouteName)),
				zap.Error(err),
			)
			continue
		}

		row := model.CommuteRow{
			EmployeeID: employee,
			Miles:      attrs.TotalMiles,
			Minutes:    attrs.TotalMinutes,
		}
		if attrs.FromAddressType == string(model.AddressTypeWork) {
			row.WorkLat, row.WorkLon = attrs.FromLat, attrs.FromLon
			row.HomeLat, row.HomeLon = attrs.ToLat, attrs.ToLon
		} else {
			row.WorkLat, row.WorkLon = attrs.ToLat, attrs.ToLon
			row.HomeLat, row.HomeLon = attrs.FromLat, attrs.FromLon
		}
		b.sanityCheck(row)
		rows = append(rows, row)
	}

	for _, employee := range flagged {
		rows = append(rows, model.CommuteRow{EmployeeID: employee, Flagged: true})
	}
	return rows
}

// sanityCheck warns about routes reported shorter than the straight-line
// distance between their endpoints, which indicates the service paired
// the wrong locations.
func (b *Builder) sanityCheck(row model.CommuteRow) {
	if row.Miles <= 0 {
		return
	}
	work := haversine.Coord{Lat: row.WorkLat, Lon: row.WorkLon}
	home := haversine.Coord{Lat: row.HomeLat, Lon: row.HomeLon}
	straightMiles, _ := haversine.Distance(work, home)
	if row.Miles < straightMiles {
		b.log.Warn("route shorter than straight-line distance",
			zap.Int("employee", row.EmployeeID),
			zap.Float64("route_miles", row.Miles),
			zap.Float64("straight_miles", straightMiles),
		)
	}
}
