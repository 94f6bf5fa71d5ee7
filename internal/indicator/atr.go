package indicator

import (
	"math"

	"trading-dashboard/internal/model"
)

// ATR computes the Average True Range, a volatility measure.
// True range = max(high−low, |high−prevClose|, |low−prevClose|), so the
// first candle produces no TR. The first ATR is the SMA of the first
// period TRs; subsequent values use Wilder smoothing:
// atr = (prev×(period−1) + tr) / period.
// Output 0 corresponds to candle index period (offset = period).
func ATR(candles []model.Candle, period int) ([]float64, error) {
	if period < 1 {
		return nil, ErrInvalidPeriod
	}
	if len(candles) < period+1 {
		return nil, ErrInsufficientHistory
	}

	trs := make([]float64, len(candles)-1)
	for i := 1; i < len(candles); i++ {
		c := candles[i]
		prevClose := candles[i-1].Close
		tr := c.High - c.Low
		if d := math.Abs(c.High - prevClose); d > tr {
			tr = d
		}
		if d := math.Abs(c.Low - prevClose); d > tr {
			tr = d
		}
		trs[i-1] = tr
	}

	out := make([]float64, 0, len(trs)-period+1)
	seed := 0.0
	for _, tr := range trs[:period] {
		seed += tr
	}
	cur := seed / float64(period)
	out = append(out, cur)

	for _, tr := range trs[period:] {
		cur = (cur*float64(period-1) + tr) / float64(period)
		out = append(out, cur)
	}
	return out, nil
}
