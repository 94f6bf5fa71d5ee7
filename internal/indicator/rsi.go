package indicator

// RSI computes the Relative Strength Index using Wilder-style average
// gain/loss over a rolling window: each output recomputes the averages over
// the trailing period deltas, NOT an exponential continuation across the
// whole history. This keeps every output a pure function of its window.
//
// Output 0 corresponds to input index period (offset = period — the first
// period+1 closes yield period deltas). Values are always in [0, 100];
// a window with zero average loss yields exactly 100.
func RSI(closes []float64, period int) ([]float64, error) {
	if period < 1 {
		return nil, ErrInvalidPeriod
	}
	if len(closes) < period+1 {
		return nil, ErrInsufficientHistory
	}

	out := make([]float64, 0, len(closes)-period)
	for i := period; i < len(closes); i++ {
		gains, losses := 0.0, 0.0
		for j := i - period + 1; j <= i; j++ {
			delta := closes[j] - closes[j-1]
			if delta > 0 {
				gains += delta
			} else {
				losses -= delta
			}
		}
		avgGain := gains / float64(period)
		avgLoss := losses / float64(period)

		if avgLoss == 0 {
			out = append(out, 100.0)
			continue
		}
		rs := avgGain / avgLoss
		out = append(out, 100.0-(100.0/(1.0+rs)))
	}
	return out, nil
}
