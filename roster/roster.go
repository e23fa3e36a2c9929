// Package roster reads the employee roster CSV and derives the synthetic
// geocode record IDs: the work record carries the employee number, the
// home record the employee number plus one.
package roster

import (
	"encoding/csv"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"commuteatlas/model"
)

// Read loads the roster using the column names in fields. A row that
// cannot be parsed is logged and skipped; it never aborts the roster.
func Read(path string, fields FieldMap, log *zap.Logger) ([]model.EmployeeAddresses, error) {
	if log == nil {
		log = zap.NewNop()
	}
	if err := fields.validate(); err != nil {
		return nil, err
	}

	file, err := os.Open(path)
	if err != nil {
		return nil, eris.Wrap(err, "roster: open")
	}
	defer file.Close()

	reader := csv.NewReader(file)
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err != nil {
		return nil, eris.Wrap(err, "roster: read header")
	}
	columns, err := fields.columnIndexes(header)
	if err != nil {
		return nil, err
	}

	var employees []model.EmployeeAddresses
	for line := 2; ; line++ {
		row, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			log.Warn("unreadable roster row, skipping",
				zap.Int("line", line),
				zap.Error(err),
			)
			continue
		}
		employee, err := columns.parse(row)
		if err != nil {
			log.Warn("malformed roster row, skipping",
				zap.Int("line", line),
				zap.Error(err),
			)
			continue
		}
		employees = append(employees, employee)
	}
	return employees, nil
}

type columnIndexes struct {
	employee int
	work     [4]int
	home     [4]int
}

func (c columnIndexes) parse(row []string) (model.EmployeeAddresses, error) {
	want := c.employee
	for _, index := range c.work {
		if index > want {
			want = index
		}
	}
	for _, index := range c.home {
		if index > want {
			want = index
		}
	}
	if len(row) <= want {
		return model.EmployeeAddresses{}, eris.Errorf("roster: row has %d columns, need %d", len(row), want+1)
	}

	employeeID, err := strconv.Atoi(strings.TrimSpace(row[c.employee]))
	if err != nil {
		return model.EmployeeAddresses{}, eris.Wrapf(err, "roster: employee number %q", row[c.employee])
	}
	if employeeID <= 0 {
		return model.EmployeeAddresses{}, eris.Errorf("roster: employee number %d out of range", employeeID)
	}

	return model.EmployeeAddresses{
		EmployeeID:   employeeID,
		WorkRecordID: employeeID,
		HomeRecordID: employeeID + 1,
		Work:         addressFrom(row, c.work),
		Home:         addressFrom(row, c.home),
	}, nil
}

func addressFrom(row []string, indexes [4]int) model.Address {
	return model.Address{
		Street: strings.TrimSpace(row[indexes[0]]),
		City:   strings.TrimSpace(row[indexes[1]]),
		Region: strings.TrimSpace(row[indexes[2]]),
		Postal: strings.TrimSpace(row[indexes[3]]),
	}
}
