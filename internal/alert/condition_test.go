package alert

import (
	"testing"
	"time"

	"trading-dashboard/internal/model"
)

var base = time.Date(2024, 1, 15, 10, 0, 0, 0, time.UTC)

// seriesOf builds a closed-candle series from close prices.
func seriesOf(symbol string, closes ...float64) *model.Series {
	s := model.NewSeries(200)
	for i, c := range closes {
		s.Apply(model.Candle{
			Symbol:   symbol,
			OpenTime: base.Add(time.Duration(i) * time.Minute),
			Open:     c, High: c, Low: c, Close: c,
			Volume: 10,
			Closed: true,
		})
	}
	return s
}

func TestEvaluate_PriceAbove(t *testing.T) {
	c := AlertCondition{Type: PriceAbove, Symbol: "BTCUSDT", Value: 50000}

	fired, value, ok := Evaluate(c, seriesOf("BTCUSDT", 50100))
	if !ok || !fired {
		t.Fatalf("expected fired on first candle above target, got fired=%v ok=%v", fired, ok)
	}
	if value != 50100 {
		t.Errorf("expected value=50100, got %v", value)
	}

	fired, _, ok = Evaluate(c, seriesOf("BTCUSDT", 49900))
	if !ok || fired {
		t.Fatalf("below target should not fire: fired=%v ok=%v", fired, ok)
	}

	// Exactly at target is not above.
	fired, _, _ = Evaluate(c, seriesOf("BTCUSDT", 50000))
	if fired {
		t.Fatal("price equal to target must not fire PRICE_ABOVE")
	}
}

func TestEvaluate_PriceCrossAbove(t *testing.T) {
	c := AlertCondition{Type: PriceCrossAbove, Symbol: "BTCUSDT", Value: 50000}

	// Transition from below to above fires.
	if fired, _, ok := Evaluate(c, seriesOf("BTCUSDT", 49000, 51000)); !ok || !fired {
		t.Fatalf("cross from 49000 to 51000 should fire: fired=%v ok=%v", fired, ok)
	}

	// Already above — no edge, no fire.
	if fired, _, _ := Evaluate(c, seriesOf("BTCUSDT", 51000, 52000)); fired {
		t.Fatal("series already above target must not fire")
	}

	// Exactly at the target then above counts as a cross.
	if fired, _, _ := Evaluate(c, seriesOf("BTCUSDT", 50000, 50001)); !fired {
		t.Fatal("prev == target, cur > target should fire")
	}

	// One candle — no prior sample, not evaluable.
	if _, _, ok := Evaluate(c, seriesOf("BTCUSDT", 51000)); ok {
		t.Fatal("single-candle series must not be evaluable for a cross")
	}
}

func TestEvaluate_PriceCrossBelow(t *testing.T) {
	c := AlertCondition{Type: PriceCrossBelow, Symbol: "BTCUSDT", Value: 50000}

	if fired, _, _ := Evaluate(c, seriesOf("BTCUSDT", 51000, 49000)); !fired {
		t.Fatal("cross from 51000 to 49000 should fire")
	}
	if fired, _, _ := Evaluate(c, seriesOf("BTCUSDT", 49000, 48000)); fired {
		t.Fatal("series already below target must not fire")
	}
}

func TestEvaluate_PercentageChange(t *testing.T) {
	// 100 → 103 over lookback 1 is a 3% move.
	c := AlertCondition{Type: PercentageChange, Symbol: "BTCUSDT", Value: 3, Secondary: 1}

	fired, value, ok := Evaluate(c, seriesOf("BTCUSDT", 100, 103))
	if !ok || !fired {
		t.Fatalf("3%% move at 3%% threshold should fire: fired=%v ok=%v", fired, ok)
	}
	if value != 3 {
		t.Errorf("expected change value 3, got %v", value)
	}

	// Drops count too (absolute change).
	if fired, _, _ := Evaluate(c, seriesOf("BTCUSDT", 100, 97)); !fired {
		t.Fatal("-3% move should fire")
	}

	if fired, _, _ := Evaluate(c, seriesOf("BTCUSDT", 100, 102)); fired {
		t.Fatal("2% move under 3% threshold must not fire")
	}

	// Not enough history for the lookback.
	if _, _, ok := Evaluate(c, seriesOf("BTCUSDT", 100)); ok {
		t.Fatal("lookback 1 needs 2 candles")
	}
}

func TestEvaluate_RSIAbove(t *testing.T) {
	// Monotonically rising closes peg RSI at 100.
	c := AlertCondition{Type: RSIAbove, Symbol: "BTCUSDT", Value: 70, Secondary: 3}

	fired, value, ok := Evaluate(c, seriesOf("BTCUSDT", 1, 2, 3, 4, 5))
	if !ok || !fired {
		t.Fatalf("RSI 100 above 70 should fire: fired=%v ok=%v", fired, ok)
	}
	if value != 100 {
		t.Errorf("expected RSI value 100, got %v", value)
	}

	// Too little history for the default 14 period — abstain.
	cDefault := AlertCondition{Type: RSIAbove, Symbol: "BTCUSDT", Value: 70}
	if _, _, ok := Evaluate(cDefault, seriesOf("BTCUSDT", 1, 2, 3)); ok {
		t.Fatal("3 closes cannot produce RSI(14)")
	}
}

func TestEvaluate_RSIBelow(t *testing.T) {
	// Monotonically falling closes peg RSI at 0.
	c := AlertCondition{Type: RSIBelow, Symbol: "BTCUSDT", Value: 30, Secondary: 3}
	if fired, _, ok := Evaluate(c, seriesOf("BTCUSDT", 5, 4, 3, 2, 1)); !ok || !fired {
		t.Fatalf("RSI 0 below 30 should fire: fired=%v ok=%v", fired, ok)
	}
}

func TestEvaluate_SMACrossAbove(t *testing.T) {
	// SMA(2): closes 10,10,9,12
	//   sma = [10, 9.5, 10.5]
	//   prev spread = 9 − 9.5 = −0.5, cur spread = 12 − 10.5 = +1.5 → cross
	c := AlertCondition{Type: SMACrossAbove, Symbol: "BTCUSDT", Value: 2}
	if fired, _, ok := Evaluate(c, seriesOf("BTCUSDT", 10, 10, 9, 12)); !ok || !fired {
		t.Fatalf("price crossing above SMA should fire: fired=%v ok=%v", fired, ok)
	}

	// Staying above the SMA is not a cross.
	if fired, _, _ := Evaluate(c, seriesOf("BTCUSDT", 10, 11, 12, 13)); fired {
		t.Fatal("price above SMA without a transition must not fire")
	}
}

func TestEvaluate_BollingerBreakoutUpper(t *testing.T) {
	// Window [100,100,200], period 3, mult 1:
	// middle = 133.33, σ ≈ 47.14, upper ≈ 180.47 → 200 breaks out.
	c := AlertCondition{Type: BollingerBreakoutUpper, Symbol: "BTCUSDT", Value: 3, Secondary: 1}
	if fired, _, ok := Evaluate(c, seriesOf("BTCUSDT", 100, 100, 200)); !ok || !fired {
		t.Fatalf("spike should break upper band: fired=%v ok=%v", fired, ok)
	}

	// Flat series: σ = 0, price equals the band, strict > means no fire.
	if fired, _, _ := Evaluate(c, seriesOf("BTCUSDT", 100, 100, 100)); fired {
		t.Fatal("flat series must not break out")
	}
}

func TestEvaluate_VolumeSpike(t *testing.T) {
	s := model.NewSeries(200)
	vols := []float64{10, 10, 30}
	for i, v := range vols {
		s.Apply(model.Candle{
			Symbol:   "BTCUSDT",
			OpenTime: base.Add(time.Duration(i) * time.Minute),
			Close:    100, Volume: v, Closed: true,
		})
	}

	// Average of prior 2 candles = 10; 30 > 2×10 fires.
	c := AlertCondition{Type: VolumeSpike, Symbol: "BTCUSDT", Value: 2, Secondary: 2}
	fired, value, ok := Evaluate(c, s)
	if !ok || !fired {
		t.Fatalf("3x volume at 2x threshold should fire: fired=%v ok=%v", fired, ok)
	}
	if value != 30 {
		t.Errorf("expected volume value 30, got %v", value)
	}

	// 3x threshold: 30 > 3×10 is false (strict).
	c.Value = 3
	if fired, _, _ := Evaluate(c, s); fired {
		t.Fatal("exactly 3x at 3x threshold must not fire")
	}
}

func TestEvaluate_MACDCross_FiresOnceOnVReversal(t *testing.T) {
	// A long decline then a recovery: the MACD histogram goes negative,
	// then crosses zero exactly once on the way back up.
	var closes []float64
	price := 100.0
	for i := 0; i < 40; i++ {
		price -= 0.5
		closes = append(closes, price)
	}
	for i := 0; i < 40; i++ {
		price += 0.8
		closes = append(closes, price)
	}

	c := AlertCondition{Type: MACDCrossAbove, Symbol: "BTCUSDT"}
	fires := 0
	s := model.NewSeries(200)
	for i, cl := range closes {
		s.Apply(model.Candle{
			Symbol:   "BTCUSDT",
			OpenTime: base.Add(time.Duration(i) * time.Minute),
			Close:    cl, Closed: true,
		})
		if fired, _, ok := Evaluate(c, s); ok && fired {
			fires++
		}
	}
	if fires != 1 {
		t.Fatalf("expected exactly 1 MACD cross on a V reversal, got %d", fires)
	}
}

func TestEvaluate_MACD_InsufficientHistory(t *testing.T) {
	c := AlertCondition{Type: MACDCrossAbove, Symbol: "BTCUSDT"}
	if _, _, ok := Evaluate(c, seriesOf("BTCUSDT", 1, 2, 3, 4, 5)); ok {
		t.Fatal("5 closes cannot produce MACD(12,26,9)")
	}
}

func TestCondition_Validate(t *testing.T) {
	cases := []struct {
		name string
		cond AlertCondition
		ok   bool
	}{
		{"valid price above", AlertCondition{Type: PriceAbove, Symbol: "BTCUSDT", Value: 50000}, true},
		{"empty symbol", AlertCondition{Type: PriceAbove, Value: 50000}, false},
		{"zero target price", AlertCondition{Type: PriceAbove, Symbol: "BTCUSDT"}, false},
		{"negative target price", AlertCondition{Type: PriceCrossBelow, Symbol: "BTCUSDT", Value: -5}, false},
		{"rsi level over 100", AlertCondition{Type: RSIAbove, Symbol: "BTCUSDT", Value: 101}, false},
		{"valid rsi", AlertCondition{Type: RSIBelow, Symbol: "BTCUSDT", Value: 30, Secondary: 14}, true},
		{"macd needs nothing", AlertCondition{Type: MACDCrossAbove, Symbol: "BTCUSDT"}, true},
		{"sma period 1", AlertCondition{Type: SMACrossAbove, Symbol: "BTCUSDT", Value: 1}, false},
		{"zero percent threshold", AlertCondition{Type: PercentageChange, Symbol: "BTCUSDT"}, false},
		{"zero volume multiplier", AlertCondition{Type: VolumeSpike, Symbol: "BTCUSDT"}, false},
		{"unknown type", AlertCondition{Type: "NONSENSE", Symbol: "BTCUSDT", Value: 1}, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := tc.cond.Validate()
			if tc.ok && err != nil {
				t.Errorf("expected valid, got %v", err)
			}
			if !tc.ok && err == nil {
				t.Error("expected validation error, got nil")
			}
		})
	}
}
