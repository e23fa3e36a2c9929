package report

import (
	"encoding/csv"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"commuteatlas/model"
)

func TestWriteCSV(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out", "commutes.csv")
	rows := []model.CommuteRow{
		{EmployeeID: 101, Miles: 4.2, Minutes: 11.5, WorkLat: 44.98, WorkLon: -93.29, HomeLat: 44.95, HomeLon: -93.31},
		{EmployeeID: 300, Flagged: true},
	}

	require.NoError(t, WriteCSV(path, rows))

	file, err := os.Open(path)
	require.NoError(t, err)
	defer file.Close()

	records, err := csv.NewReader(file).ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 3)
	assert.Equal(t, Header, records[0])
	assert.Equal(t, []string{"101", "4.2", "11.5", "44.98", "-93.29", "44.95", "-93.31", "false"}, records[1])
	assert.Equal(t, []string{"300", "0", "0", "0", "0", "0", "0", "true"}, records[2])
}

func TestWriteCSVEmptyRows(t *testing.T) {
	path := filepath.Join(t.TempDir(), "commutes.csv")

	require.NoError(t, WriteCSV(path, nil))

	payload, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "Employee_Number,Commute_Miles,Commute_Minutes,Work_Latitude,Work_Longitude,Home_Latitude,Home_Longitude,Flagged\n", string(payload))
}
