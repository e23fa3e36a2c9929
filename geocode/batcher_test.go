package geocode

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"commuteatlas/model"
)

func TestSplitBatches(t *testing.T) {
	employees := make([]model.EmployeeAddresses, 10)
	for i := range employees {
		employees[i].EmployeeID = i + 1
	}

	// batch size 6 records means 3 employees per batch
	batches := SplitBatches(employees, 6)
	require.Len(t, batches, 4)
	assert.Len(t, batches[0], 3)
	assert.Len(t, batches[3], 1)

	total := 0
	for _, batch := range batches {
		total += len(batch)
	}
	assert.Equal(t, len(employees), total)
}

func TestSplitBatchesNeverSplitsAPair(t *testing.T) {
	employees := make([]model.EmployeeAddresses, 3)

	// a batch size of 1 record cannot hold a pair, so one employee per
	// batch is the floor
	batches := SplitBatches(employees, 1)
	require.Len(t, batches, 3)
	for _, batch := range batches {
		assert.Len(t, batch, 1)
	}
}

func TestSplitBatchesEmpty(t *testing.T) {
	assert.Nil(t, SplitBatches(nil, DefaultBatchSize))
}
