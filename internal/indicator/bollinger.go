package indicator

import "math"

// BollingerBands holds the three band series, all of equal length.
// Output 0 corresponds to input index period-1.
type BollingerBands struct {
	Upper  []float64
	Middle []float64 // SMA(period)
	Lower  []float64
}

// Bollinger computes Bollinger Bands: middle = SMA(period), upper/lower =
// middle ± mult × σ where σ is the population standard deviation of the
// window (typically period=20, mult=2).
func Bollinger(closes []float64, period int, mult float64) (BollingerBands, error) {
	if period < 1 {
		return BollingerBands{}, ErrInvalidPeriod
	}
	if len(closes) < period {
		return BollingerBands{}, ErrInsufficientHistory
	}

	middle, err := SMA(closes, period)
	if err != nil {
		return BollingerBands{}, err
	}

	upper := make([]float64, len(middle))
	lower := make([]float64, len(middle))
	for i := range middle {
		window := closes[i : i+period]
		variance := 0.0
		for _, v := range window {
			d := v - middle[i]
			variance += d * d
		}
		sigma := math.Sqrt(variance / float64(period))
		upper[i] = middle[i] + mult*sigma
		lower[i] = middle[i] - mult*sigma
	}

	return BollingerBands{Upper: upper, Middle: middle, Lower: lower}, nil
}
