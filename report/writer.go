package report

import (
	"encoding/csv"
	"os"
	"path/filepath"
	"strconv"

	"github.com/rotisserie/eris"

	"commuteatlas/model"
)

// Header is the fixed output schema.
var Header = []string{
	"Employee_Number",
	"Commute_Miles",
	"Commute_Minutes",
	"Work_Latitude",
	"Work_Longitude",
	"Home_Latitude",
	"Home_Longitude",
	"Flagged",
}

func WriteCSV(path string, rows []model.CommuteRow) error {
	dir := filepath.Dir(path)
	if dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return eris.Wrap(err, "report: create output directory")
		}
	}
	file, err := os.Create(path)
	if err != nil {
		return eris.Wrap(err, "report: create output")
	}
	defer file.Close()

	writer := csv.NewWriter(file)
	if err := writer.Write(Header); err != nil {
		return eris.Wrap(err, "report: write header")
	}
	for _, row := range rows {
		record := []string{
			strconv.Itoa(row.EmployeeID),
			formatFloat(row.Miles),
			formatFloat(row.Minutes),
			formatFloat(row.WorkLat),
			formatFloat(row.WorkLon),
			formatFloat(row.HomeLat),
			formatFloat(row.HomeLon),
			strconv.FormatBool(row.Flagged),
		}
		if err := writer.Write(record); err != nil {
			return eris.Wrap(err, "report: write row")
		}
	}
	writer.Flush()
	if err := writer.Error(); err != nil {
		return eris.Wrap(err, "report: flush output")
	}
	return file.Sync()
}

func formatFloat(value float64) string {
	return strconv.FormatFloat(value, 'f', -1, 64)
}
