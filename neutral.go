package malaya

import (
	"errors"
	"fmt"
	"math"
)

// DefaultNeutralAlpha is the floor coefficient used by AddNeutral when
// callers have no reason to pick another value.
const DefaultNeutralAlpha = 1e-2

// AddNeutral redistributes probability mass to a synthetic "neutral" class.
//
// Each row of x holds the probabilities of K classes. Per row, with
// d = 1/K, every probability is rescaled to max(p-d, alpha*p)/d and the
// leftover mass 1-sum is appended as the neutral column, yielding rows of
// K+1 values. The input is not modified.
//
// Returns an error for an empty or ragged matrix.
func AddNeutral(x [][]float64, alpha float64) ([][]float64, error) {
	if len(x) == 0 || len(x[0]) == 0 {
		return nil, errors.New("malaya: empty probability matrix")
	}

	cols := len(x[0])
	divide := 1 / float64(cols)

	out := make([][]float64, len(x))
	for i, row := range x {
		if len(row) != cols {
			return nil, fmt.Errorf("malaya: ragged probability matrix: row %d has %d columns, want %d", i, len(row), cols)
		}

		scaled := make([]float64, cols+1)
		var sum float64
		for j, p := range row {
			v := math.Max(p-divide, alpha*p) / divide
			scaled[j] = v
			sum += v
		}
		scaled[cols] = 1 - sum
		out[i] = scaled
	}

	return out, nil
}
