package gacha

import (
	"fmt"
	"math"
)

func validateProb(p float64) error {
	if math.IsNaN(p) || math.IsInf(p, 0) {
		return ErrInvalidProb
	}
	if p < 0 || p > 1 {
		return ErrInvalidProb
	}
	return nil
}

// validateWeights requires finite, non-negative weights with at least one
// strictly positive entry.
func validateWeights(weights []float64) error {
	positive := false
	for i, w := range weights {
		if math.IsNaN(w) || math.IsInf(w, 0) || w < 0 {
			return fmt.Errorf("%w: weight[%d]=%v", ErrMalformedWeightTable, i, w)
		}
		if w > 0 {
			positive = true
		}
	}
	if !positive {
		return fmt.Errorf("%w: no positive weight", ErrMalformedWeightTable)
	}
	return nil
}
