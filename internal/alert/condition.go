package alert

import (
	"math"

	"trading-dashboard/internal/indicator"
	"trading-dashboard/internal/model"
)

// Evaluate decides trigger/no-trigger for one condition against the current
// series state. Returns the triggering value for the event payload.
// evaluable=false means the series is too short for this condition — the
// evaluator abstains, it never triggers on partial history.
func Evaluate(c AlertCondition, s *model.Series) (fired bool, value float64, evaluable bool) {
	closes := s.Closes()
	n := len(closes)
	if n == 0 {
		return false, 0, false
	}
	cur := closes[n-1]

	switch c.Type {
	case PriceAbove:
		return cur > c.Value, cur, true
	case PriceBelow:
		return cur < c.Value, cur, true

	case PriceCrossAbove, PriceCrossBelow:
		// cross-* needs the prior sample
		if n < 2 {
			return false, 0, false
		}
		prev := closes[n-2]
		if c.Type == PriceCrossAbove {
			return crossAbove(prev, cur, c.Value), cur, true
		}
		return crossBelow(prev, cur, c.Value), cur, true

	case PercentageChange:
		lookback := intParam(c.Secondary, defaultLookback)
		if n < lookback+1 {
			return false, 0, false
		}
		baseline := closes[n-1-lookback]
		if baseline == 0 {
			return false, 0, false
		}
		change := math.Abs(cur-baseline) / baseline * 100
		return change >= c.Value, change, true

	case RSIAbove, RSIBelow, RSICrossAbove, RSICrossBelow:
		period := intParam(c.Secondary, defaultRSIPeriod)
		rsi, err := indicator.RSI(closes, period)
		if err != nil {
			return false, 0, false
		}
		curRSI := rsi[len(rsi)-1]
		switch c.Type {
		case RSIAbove:
			return curRSI > c.Value, curRSI, true
		case RSIBelow:
			return curRSI < c.Value, curRSI, true
		}
		if len(rsi) < 2 {
			return false, 0, false
		}
		prevRSI := rsi[len(rsi)-2]
		if c.Type == RSICrossAbove {
			return crossAbove(prevRSI, curRSI, c.Value), curRSI, true
		}
		return crossBelow(prevRSI, curRSI, c.Value), curRSI, true

	case MACDCrossAbove, MACDCrossBelow:
		// line crossing signal == histogram crossing zero
		res, err := indicator.MACD(closes, macdFast, macdSlow, macdSignal)
		if err != nil || len(res.Histogram) < 2 {
			return false, 0, false
		}
		h := res.Histogram
		curLine := res.Line[len(res.Line)-1]
		if c.Type == MACDCrossAbove {
			return crossAbove(h[len(h)-2], h[len(h)-1], 0), curLine, true
		}
		return crossBelow(h[len(h)-2], h[len(h)-1], 0), curLine, true

	case SMACrossAbove, SMACrossBelow:
		period := intParam(c.Value, 0)
		sma, err := indicator.SMA(closes, period)
		if err != nil || len(sma) < 2 || n < 2 {
			return false, 0, false
		}
		// price vs its moving average, checked as a cross of the spread
		curDiff := cur - sma[len(sma)-1]
		prevDiff := closes[n-2] - sma[len(sma)-2]
		if c.Type == SMACrossAbove {
			return crossAbove(prevDiff, curDiff, 0), cur, true
		}
		return crossBelow(prevDiff, curDiff, 0), cur, true

	case BollingerBreakoutUpper, BollingerBreakoutLower:
		period := intParam(c.Value, defaultBollingerPeriod)
		mult := c.Secondary
		if mult == 0 {
			mult = defaultBollingerMult
		}
		bands, err := indicator.Bollinger(closes, period, mult)
		if err != nil {
			return false, 0, false
		}
		if c.Type == BollingerBreakoutUpper {
			return cur > bands.Upper[len(bands.Upper)-1], cur, true
		}
		return cur < bands.Lower[len(bands.Lower)-1], cur, true

	case VolumeSpike:
		period := intParam(c.Secondary, defaultVolumePeriod)
		vols := s.Volumes()
		if len(vols) < period+1 {
			return false, 0, false
		}
		// average excludes the candle being judged
		avg, err := indicator.SMA(vols[:len(vols)-1], period)
		if err != nil {
			return false, 0, false
		}
		curVol := vols[len(vols)-1]
		base := avg[len(avg)-1]
		if base == 0 {
			return false, 0, false
		}
		return curVol > c.Value*base, curVol, true
	}

	return false, 0, false
}

// crossAbove is true only at the sample where the value transitions from at
// or below the target to above it.
func crossAbove(prev, cur, target float64) bool {
	return prev <= target && cur > target
}

// crossBelow is true only at the sample where the value transitions from at
// or above the target to below it.
func crossBelow(prev, cur, target float64) bool {
	return prev >= target && cur < target
}

// intParam rounds a float parameter to int, falling back to def when unset.
func intParam(v float64, def int) int {
	if v <= 0 {
		return def
	}
	return int(v + 0.5)
}
