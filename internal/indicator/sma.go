package indicator

// SMA computes the Simple Moving Average over a rolling window.
// Output 0 corresponds to input index period-1 (offset = period-1);
// out[i] is the arithmetic mean of closes[i..i+period-1].
// Uses a running sum — O(n) for the whole series.
func SMA(closes []float64, period int) ([]float64, error) {
	if period < 1 {
		return nil, ErrInvalidPeriod
	}
	if len(closes) < period {
		return nil, ErrInsufficientHistory
	}

	out := make([]float64, 0, len(closes)-period+1)
	sum := 0.0
	for i, v := range closes {
		sum += v
		if i >= period {
			sum -= closes[i-period]
		}
		if i >= period-1 {
			out = append(out, sum/float64(period))
		}
	}
	return out, nil
}
