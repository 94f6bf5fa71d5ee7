// Package indicator provides technical indicator calculations over candle data.
//
// All functions are pure and deterministic: given an ordered input sequence
// they return a shorter output sequence with the warm-up window trimmed.
// Output index i corresponds to input index i+offset, where offset is
// documented per function. Inputs too short to produce a single value return
// ErrInsufficientHistory.
package indicator

import "errors"

var (
	// ErrInsufficientHistory means the input has fewer samples than the
	// indicator's warm-up window. Recoverable — callers abstain and retry
	// once more samples accumulate.
	ErrInsufficientHistory = errors.New("indicator: insufficient history")

	// ErrInvalidPeriod means a non-positive or otherwise unusable period
	// was supplied. Rejected at call time, never a tick-loop condition.
	ErrInvalidPeriod = errors.New("indicator: invalid period")
)

// ema computes an exponential moving average seeded with the SMA of the
// first period values. Returns len(values)-period+1 outputs; output 0
// corresponds to input index period-1.
func ema(values []float64, period int) []float64 {
	mult := 2.0 / float64(period+1)
	out := make([]float64, 0, len(values)-period+1)

	seed := 0.0
	for _, v := range values[:period] {
		seed += v
	}
	cur := seed / float64(period)
	out = append(out, cur)

	for _, v := range values[period:] {
		cur = v*mult + cur*(1-mult)
		out = append(out, cur)
	}
	return out
}
