package indicator

import "fmt"

// RSI returns the latest Relative Strength Index value. Gains and
// losses are smoothed with Wilder-style exponential averages
// (alpha = 1/period, seeded with the first delta), and
// rs = gain/(loss+1e-12) so an all-gain series tops out near 100
// instead of dividing by zero.
func RSI(closes []float64, period int) (float64, error) {
	if period <= 0 {
		return 0, fmt.Errorf("rsi: period must be > 0, got %d", period)
	}
	if len(closes) < period+1 {
		return 0, fmt.Errorf("rsi: need at least %d closes, got %d", period+1, len(closes))
	}

	alpha := 1.0 / float64(period)

	gain := closes[1] - closes[0]
	var avgGain, avgLoss float64
	if gain > 0 {
		avgGain = gain
	} else {
		avgLoss = -gain
	}

	for i := 2; i < len(closes); i++ {
		delta := closes[i] - closes[i-1]
		g, l := 0.0, 0.0
		if delta > 0 {
			g = delta
		} else {
			l = -delta
		}
		avgGain = alpha*g + (1-alpha)*avgGain
		avgLoss = alpha*l + (1-alpha)*avgLoss
	}

	rs := avgGain / (avgLoss + 1e-12)
	return 100 - 100/(1+rs), nil
}
