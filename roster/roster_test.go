package roster

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func testFields() FieldMap {
	return FieldMap{
		EmployeeNumber: "Employee Number",
		WorkAddress:    "Work Address",
		WorkCity:       "Work City",
		WorkState:      "Work State",
		WorkZip:        "Work Zip",
		HomeAddress:    "Home Address",
		HomeCity:       "Home City",
		HomeState:      "Home State",
		HomeZip:        "Home Zip",
	}
}

func writeRoster(t *testing.T, rows string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "roster.csv")
	header := "Employee Number,Work Address,Work City,Work State,Work Zip,Home Address,Home City,Home State,Home Zip\n"
	require.NoError(t, os.WriteFile(path, []byte(header+rows), 0o644))
	return path
}

func TestReadDerivesRecordIDs(t *testing.T) {
	path := writeRoster(t,
		"101,1 Office Plaza,Springfield,MN,55401,8 Maple St,Springfield,MN,55402\n"+
			"205,1 Office Plaza,Springfield,MN,55401,14 Elm Ave,Duluth,MN,55803\n")

	employees, err := Read(path, testFields(), zap.NewNop())

	require.NoError(t, err)
	require.Len(t, employees, 2)
	assert.Equal(t, 101, employees[0].EmployeeID)
	assert.Equal(t, 101, employees[0].WorkRecordID)
	assert.Equal(t, 102, employees[0].HomeRecordID)
	assert.Equal(t, "8 Maple St", employees[0].Home.Street)
	assert.Equal(t, 205, employees[1].EmployeeID)
	assert.Equal(t, 206, employees[1].HomeRecordID)
	assert.Equal(t, "Duluth", employees[1].Home.City)
}

func TestReadSkipsMalformedRows(t *testing.T) {
	path := writeRoster(t,
		"not-a-number,1 Office Plaza,Springfield,MN,55401,8 Maple St,Springfield,MN,55402\n"+
			"0,1 Office Plaza,Springfield,MN,55401,8 Maple St,Springfield,MN,55402\n"+
			"300,1 Office Plaza,Springfield,MN,55401,9 Oak Rd,Springfield,MN,55403\n")

	employees, err := Read(path, testFields(), zap.NewNop())

	require.NoError(t, err)
	require.Len(t, employees, 1)
	assert.Equal(t, 300, employees[0].EmployeeID)
}

func TestReadMissingColumn(t *testing.T) {
	path := filepath.Join(t.TempDir(), "roster.csv")
	require.NoError(t, os.WriteFile(path, []byte("Employee Number,Work Address\n1,x\n"), 0o644))

	_, err := Read(path, testFields(), nil)

	require.Error(t, err)
	assert.Contains(t, err.Error(), "Work City")
}

func TestLoadFieldMap(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	payload := `{
		"employee_number_field": "Employee Number",
		"work_address_field": "Work Address",
		"work_city_field": "Work City",
		"work_state_field": "Work State",
		"work_zip_field": "Work Zip",
		"home_address_field": "Home Address",
		"home_city_field": "Home City",
		"home_state_field": "Home State",
		"home_zip_field": "Home Zip"
	}`
	require.NoError(t, os.WriteFile(path, []byte(payload), 0o644))

	fields, err := LoadFieldMap(path)

	require.NoError(t, err)
	assert.Equal(t, "Employee Number", fields.EmployeeNumber)
	assert.Equal(t, "Home Zip", fields.HomeZip)
}

func TestLoadFieldMapIncomplete(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"employee_number_field":"Employee Number"}`), 0o644))

	_, err := LoadFieldMap(path)
	require.Error(t, err)
}
