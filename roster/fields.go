package roster

import (
	"encoding/json"
	"os"
	"strings"

	"github.com/rotisserie/eris"
)

// FieldMap names the roster CSV columns. It is loaded from a small JSON
// file so the tool can follow whatever export schema HR produces.
type FieldMap struct {
	EmployeeNumber string `json:"employee_number_field"`
	WorkAddress    string `json:"work_address_field"`
	WorkCity       string `json:"work_city_field"`
	WorkState      string `json:"work_state_field"`
	WorkZip        string `json:"work_zip_field"`
	HomeAddress    string `json:"home_address_field"`
	HomeCity       string `json:"home_city_field"`
	HomeState      string `json:"home_state_field"`
	HomeZip        string `json:"home_zip_field"`
}

func LoadFieldMap(path string) (FieldMap, error) {
	payload, err := os.ReadFile(path)
	if err != nil {
		return FieldMap{}, eris.Wrap(err, "roster: read field map")
	}
	var fields FieldMap
	if err := json.Unmarshal(payload, &fields); err != nil {
		return FieldMap{}, eris.Wrap(err, "roster: parse field map")
	}
	if err := fields.validate(); err != nil {
		return FieldMap{}, err
	}
	return fields, nil
}

func (f FieldMap) validate() error {
	for _, name := range f.names() {
		if strings.TrimSpace(name) == "" {
			return eris.New("roster: field map is missing column names")
		}
	}
	return nil
}

func (f FieldMap) names() []string {
	return []string{
		f.EmployeeNumber,
		f.WorkAddress, f.WorkCity, f.WorkState, f.WorkZip,
		f.HomeAddress, f.HomeCity, f.HomeState, f.HomeZip,
	}
}

func (f FieldMap) columnIndexes(header []string) (columnIndexes, error) {
	byName := make(map[string]int, len(header))
	for i, name := range header {
		byName[strings.TrimSpace(name)] = i
	}

	lookup := func(name string) (int, error) {
		index, ok := byName[name]
		if !ok {
			return 0, eris.Errorf("roster: column %q not in header", name)
		}
		return index, nil
	}

	var columns columnIndexes
	var err error
	if columns.employee, err = lookup(f.EmployeeNumber); err != nil {
		return columnIndexes{}, err
	}
	for i, name := range []string{f.WorkAddress, f.WorkCity, f.WorkState, f.WorkZip} {
		if columns.work[i], err = lookup(name); err != nil {
			return columnIndexes{}, err
		}
	}
	for i, name := range []string{f.HomeAddress, f.HomeCity, f.HomeState, f.HomeZip} {
		if columns.home[i], err = lookup(name); err != nil {
			return columnIndexes{}, err
		}
	}
	return columns, nil
}
