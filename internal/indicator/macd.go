package indicator

// MACDResult holds the three MACD series, all of equal length.
// Output 0 corresponds to input index slow+signal-2.
type MACDResult struct {
	Line      []float64 // fast EMA − slow EMA
	Signal    []float64 // EMA(signalPeriod) of Line
	Histogram []float64 // Line − Signal
}

// MACD computes Moving Average Convergence Divergence.
// fast < slow is required (typically 12, 26, 9). EMAs are seeded with the
// SMA of their first window.
func MACD(closes []float64, fast, slow, signal int) (MACDResult, error) {
	if fast < 1 || slow < 1 || signal < 1 || fast >= slow {
		return MACDResult{}, ErrInvalidPeriod
	}
	if len(closes) < slow+signal-1 {
		return MACDResult{}, ErrInsufficientHistory
	}

	fastEMA := ema(closes, fast) // starts at input index fast-1
	slowEMA := ema(closes, slow) // starts at input index slow-1

	// Align the fast EMA to the slow EMA's first index.
	fastEMA = fastEMA[slow-fast:]

	line := make([]float64, len(slowEMA))
	for i := range slowEMA {
		line[i] = fastEMA[i] - slowEMA[i]
	}

	sig := ema(line, signal) // starts at line index signal-1
	line = line[signal-1:]

	hist := make([]float64, len(sig))
	for i := range sig {
		hist[i] = line[i] - sig[i]
	}

	return MACDResult{Line: line, Signal: sig, Histogram: hist}, nil
}
