package mapper

import (
	"commuteatlas/arcgis"
	"commuteatlas/model"
)

// AddressRecords builds the two geocode records for one employee, work
// first. The record IDs are what lets candidates be tied back to the pair.
func AddressRecords(employee model.EmployeeAddresses) []arcgis.AddressRecord {
	return []arcgis.AddressRecord{
		{
			ObjectID: employee.WorkRecordID,
			Address:  employee.Work.Street,
			City:     employee.Work.City,
			Region:   employee.Work.Region,
			Postal:   employee.Work.Postal,
		},
		{
			ObjectID: employee.HomeRecordID,
			Address:  employee.Home.Street,
			City:     employee.Home.City,
			Region:   employee.Home.Region,
			Postal:   employee.Home.Postal,
		},
	}
}

// NormalizeCandidate ties a geocoder candidate back to its roster
// employee. The address type stays unset until disambiguation.
func NormalizeCandidate(candidate arcgis.GeocodeCandidate, employeeID int) model.GeocodeLocation {
	return model.GeocodeLocation{
		EmployeeID: employeeID,
		RecordID:   candidate.Attributes.ResultID,
		Address:    candidate.Address,
		Score:      candidate.Score,
		Latitude:   candidate.Location.Y,
		Longitude:  candidate.Location.X,
	}
}

// FeatureCollection converts matched locations into the point layer the
// analysis service consumes.
func FeatureCollection(locations []model.GeocodeLocation) arcgis.FeatureCollection {
	features := make([]arcgis.Feature, 0, len(locations))
	for _, location := range locations {
		features = append(features, arcgis.Feature{
			Geometry: arcgis.Point{X: location.Longitude, Y: location.Latitude},
			Attributes: map[string]interface{}{
				arcgis.RouteIDField:     location.EmployeeID,
				arcgis.AddressTypeField: string(location.Type),
				"Lat":                   location.Latitude,
				"Lon":                   location.Longitude,
			},
		})
	}

	return arcgis.FeatureCollection{
		LayerDefinition: arcgis.LayerDefinition{
			GeometryType: "esriGeometryPoint",
			Fields: []arcgis.LayerField{
				{Name: arcgis.RouteIDField, Type: "esriFieldTypeOID"},
				{Name: arcgis.AddressTypeField, Type: "esriFieldTypeString"},
				{Name: "Lat", Type: "esriFieldTypeDouble"},
				{Name: "Lon", Type: "esriFieldTypeDouble"},
			},
		},
		FeatureSet: arcgis.FeatureSet{
			GeometryType:     "esriGeometryPoint",
			SpatialReference: arcgis.SpatialReference{WKID: 4326},
			Features:         features,
		},
	}
}
