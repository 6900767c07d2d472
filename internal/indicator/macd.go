package indicator

import "fmt"

// MACDHistogram returns the latest histogram value:
// (EMA(fast) - EMA(slow)) minus its own signal-line EMA.
func MACDHistogram(closes []float64, fast, slow, signal int) (float64, error) {
	if fast <= 0 || slow <= 0 || signal <= 0 {
		return 0, fmt.Errorf("macd: periods must be > 0, got %d/%d/%d", fast, slow, signal)
	}
	if len(closes) < slow+signal {
		return 0, fmt.Errorf("macd: need at least %d closes, got %d", slow+signal, len(closes))
	}

	fastEMA, err := EMA(closes, fast)
	if err != nil {
		return 0, fmt.Errorf("macd: fast ema: %w", err)
	}
	slowEMA, err := EMA(closes, slow)
	if err != nil {
		return 0, fmt.Errorf("macd: slow ema: %w", err)
	}

	macd := make([]float64, len(closes))
	for i := range closes {
		macd[i] = fastEMA[i] - slowEMA[i]
	}

	signalLine, err := EMA(macd, signal)
	if err != nil {
		return 0, fmt.Errorf("macd: signal ema: %w", err)
	}

	last := len(closes) - 1
	return macd[last] - signalLine[last], nil
}
