package model

// Series is a bounded, ordered candle window for one symbol.
// Closed candles are append-only and immutable; the most recent candle may
// be replaced in place while its period is still forming (live tick updates).
// Owned and mutated by the evaluation tick loop only — no locks needed.
type Series struct {
	maxLen  int
	candles []Candle
}

// NewSeries creates an empty series that retains at most maxLen candles.
func NewSeries(maxLen int) *Series {
	if maxLen < 2 {
		maxLen = 2
	}
	return &Series{
		maxLen:  maxLen,
		candles: make([]Candle, 0, maxLen),
	}
}

// Apply incorporates one candle sample. A sample with the same OpenTime as
// the current forming candle replaces it in place; otherwise it is appended
// and the oldest candle is evicted once the window is full.
func (s *Series) Apply(c Candle) {
	n := len(s.candles)
	if n > 0 {
		last := &s.candles[n-1]
		if last.OpenTime.Equal(c.OpenTime) {
			if !last.Closed {
				*last = c
			}
			// re-sends of an already-closed bucket are ignored
			return
		}
	}
	if n == s.maxLen {
		copy(s.candles, s.candles[1:])
		s.candles[n-1] = c
		return
	}
	s.candles = append(s.candles, c)
}

// Len returns the number of candles currently held.
func (s *Series) Len() int { return len(s.candles) }

// Candles returns the underlying window, oldest first.
// Callers must treat the slice as read-only.
func (s *Series) Candles() []Candle { return s.candles }

// Last returns the most recent candle, or false if the series is empty.
func (s *Series) Last() (Candle, bool) {
	if len(s.candles) == 0 {
		return Candle{}, false
	}
	return s.candles[len(s.candles)-1], true
}

// Closes returns the close price of every candle, oldest first.
func (s *Series) Closes() []float64 {
	out := make([]float64, len(s.candles))
	for i := range s.candles {
		out[i] = s.candles[i].Close
	}
	return out
}

// Volumes returns the volume of every candle, oldest first.
func (s *Series) Volumes() []float64 {
	out := make([]float64, len(s.candles))
	for i := range s.candles {
		out[i] = s.candles[i].Volume
	}
	return out
}
