// Package indicator holds the pure technical-indicator math the signal
// engine votes on. Functions take plain float series and never touch
// the network or the journal.
package indicator

import "fmt"

// EMA returns the exponential moving average series with
// alpha = 2/(period+1), seeded with the first value (matching
// ewm(span=period, adjust=False)).
func EMA(values []float64, period int) ([]float64, error) {
	if period <= 0 {
		return nil, fmt.Errorf("ema: period must be > 0, got %d", period)
	}
	if len(values) < period {
		return nil, fmt.Errorf("ema: need at least %d values, got %d", period, len(values))
	}

	alpha := 2.0 / float64(period+1)
	out := make([]float64, len(values))
	out[0] = values[0]
	for i := 1; i < len(values); i++ {
		out[i] = alpha*values[i] + (1-alpha)*out[i-1]
	}
	return out, nil
}
