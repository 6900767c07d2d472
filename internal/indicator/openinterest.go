package indicator

import (
	"fmt"
	"math"
)

// OpenInterestChange returns the percent change between the first and
// last value of an open-interest series.
func OpenInterestChange(values []float64) (float64, error) {
	if len(values) < 2 {
		return 0, fmt.Errorf("open interest: need at least 2 values, got %d", len(values))
	}
	first := math.Max(values[0], 1e-9)
	return (values[len(values)-1] - values[0]) / first * 100.0, nil
}
