package geocode

import "commuteatlas/model"

// DefaultBatchSize is used when the geocode server cannot be asked for an
// advised batch size.
const DefaultBatchSize = 150

// SplitBatches chunks employees so that no geocode request carries more
// records than the advised batch size. Every employee contributes two
// records, work and home, and a pair is never split across batches.
func SplitBatches(employees []model.EmployeeAddresses, batchSize int) [][]model.EmployeeAddresses {
	if len(employees) == 0 {
		return nil
	}
	perBatch := batchSize / 2
	if perBatch < 1 {
		perBatch = 1
	}

	batches := make([][]model.EmployeeAddresses, 0, (len(employees)+perBatch-1)/perBatch)
	for start := 0; start < len(employees); start += perBatch {
		end := start + perBatch
		if end > len(employees) {
			end = len(employees)
		}
		batches = append(batches, employees[start:end])
	}
	return batches
}
