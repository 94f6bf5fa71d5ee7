package trailing

import (
	"math"
	"testing"
	"time"

	"trading-dashboard/internal/model"
)

var now = time.Date(2024, 1, 15, 10, 0, 0, 0, time.UTC)

func assertClose(t *testing.T, got, want, tol float64, label string) {
	t.Helper()
	if math.Abs(got-want) > tol {
		t.Errorf("%s: got %v, want %v (tol %v)", label, got, want, tol)
	}
}

func mustStop(t *testing.T, cfg Config) *Stop {
	t.Helper()
	s, err := NewStop(cfg)
	if err != nil {
		t.Fatalf("NewStop: %v", err)
	}
	return s
}

// ─── percentage trail ────────────────────────────────────────────────────────

func TestStop_LongPercentageTrail(t *testing.T) {
	s := mustStop(t, Config{
		ID: "ts1", Symbol: "BTCUSDT", Side: model.SideLong,
		Type: TrailPercentage, TrailAmount: 5, Quantity: 1,
	})
	if s.State != StateActive {
		t.Fatalf("no activation price: expected ACTIVE, got %s", s.State)
	}

	// The stop ratchets with the running high and never moves down.
	prices := []float64{100, 102, 105, 103, 107}
	wantExtreme := []float64{100, 102, 105, 105, 107}
	wantStop := []float64{95, 96.9, 99.75, 99.75, 101.65}

	for i, p := range prices {
		res := s.Tick(p, nil, now)
		if res.Triggered {
			t.Fatalf("tick %d (price %v): unexpected trigger", i, p)
		}
		assertClose(t, s.ExtremePrice, wantExtreme[i], 1e-9, "extreme")
		assertClose(t, s.StopPrice, wantStop[i], 1e-9, "stop")
	}

	// Pullback through the stop ends the run.
	res := s.Tick(101, nil, now)
	if !res.Triggered {
		t.Fatal("price 101 through stop 101.65 should trigger")
	}
	if s.State != StateTriggered {
		t.Errorf("state = %s, want TRIGGERED", s.State)
	}
	if res.Event == nil || res.Event.Type != model.EventStopTriggered {
		t.Fatal("trigger must carry a stop-triggered event")
	}
	if res.Instruction == nil {
		t.Fatal("trigger must carry a close instruction")
	}
	if res.Instruction.Side != model.SideLong || res.Instruction.Quantity != 1 {
		t.Errorf("instruction = %+v", res.Instruction)
	}

	// Terminal: further ticks are ignored.
	if res := s.Tick(90, nil, now); res.Triggered || res.Event != nil {
		t.Error("triggered stop must ignore further ticks")
	}
}

func TestStop_ShortFixedAmountTrail(t *testing.T) {
	s := mustStop(t, Config{
		ID: "ts2", Symbol: "BTCUSDT", Side: model.SideShort,
		Type: TrailFixedAmount, TrailAmount: 2, Quantity: 3,
	})

	s.Tick(100, nil, now)
	assertClose(t, s.StopPrice, 102, 1e-9, "initial stop")

	// New low drags the stop down.
	s.Tick(98, nil, now)
	assertClose(t, s.ExtremePrice, 98, 1e-9, "extreme")
	assertClose(t, s.StopPrice, 100, 1e-9, "stop after new low")

	// Bounce short of the stop is survivable.
	if res := s.Tick(99, nil, now); res.Triggered {
		t.Fatal("price 99 under stop 100 must not trigger a short")
	}

	// Touching the stop exactly triggers.
	res := s.Tick(100, nil, now)
	if !res.Triggered {
		t.Fatal("price at the stop level should trigger")
	}
	if res.Instruction.Quantity != 3 {
		t.Errorf("instruction quantity = %v, want 3", res.Instruction.Quantity)
	}
}

// ─── ATR trail ───────────────────────────────────────────────────────────────

func TestStop_ATRTrailAbstainsOnShortHistory(t *testing.T) {
	candles := []model.Candle{
		{High: 12, Low: 8, Close: 10},
		{High: 13, Low: 9, Close: 12},
		{High: 15, Low: 11, Close: 14},
		{High: 16, Low: 10, Close: 12},
	}

	s := mustStop(t, Config{
		ID: "ts3", Symbol: "BTCUSDT", Side: model.SideLong,
		Type: TrailATR, TrailAmount: 1, Quantity: 1, ATRPeriod: 2,
	})

	// ATR(2) needs 3 candles; until then the stop has no level and cannot
	// trigger.
	s.Tick(10, candles[:1], now)
	s.Tick(12, candles[:2], now)
	if s.StopPrice != 0 {
		t.Fatalf("stop computed on insufficient history: %v", s.StopPrice)
	}

	// Third candle: ATR = 4, extreme 14 → stop 10.
	res := s.Tick(14, candles[:3], now)
	if res.Triggered {
		t.Fatal("unexpected trigger on first computed stop")
	}
	assertClose(t, s.StopPrice, 10, 1e-9, "first ATR stop")

	// ATR widens to 5, candidate 14−5 = 9 would loosen the stop — clamped.
	s.Tick(12, candles, now)
	assertClose(t, s.StopPrice, 10, 1e-9, "stop must not widen")
}

// ─── activation ──────────────────────────────────────────────────────────────

func TestStop_PendingActivation(t *testing.T) {
	s := mustStop(t, Config{
		ID: "ts4", Symbol: "BTCUSDT", Side: model.SideLong,
		Type: TrailPercentage, TrailAmount: 5, Quantity: 1,
		ActivationPrice: 110,
	})
	if s.State != StatePendingActivation {
		t.Fatalf("expected PENDING_ACTIVATION, got %s", s.State)
	}

	// Below the activation price nothing happens, not even extreme tracking.
	if res := s.Tick(105, nil, now); res.Activated || res.Event != nil {
		t.Fatal("activation below the threshold")
	}
	if s.ExtremePrice != 0 {
		t.Errorf("pending stop must not track extremes, got %v", s.ExtremePrice)
	}

	// Reaching the activation price flips to ACTIVE and seeds the trail.
	res := s.Tick(110, nil, now)
	if !res.Activated {
		t.Fatal("expected activation at the threshold")
	}
	if res.Triggered {
		t.Fatal("the activation tick can never trigger")
	}
	if res.Event == nil || res.Event.Type != model.EventStopActivated {
		t.Fatal("activation must carry an activated event")
	}
	if s.State != StateActive {
		t.Errorf("state = %s, want ACTIVE", s.State)
	}
	assertClose(t, s.ExtremePrice, 110, 1e-9, "seeded extreme")
	assertClose(t, s.StopPrice, 104.5, 1e-9, "seeded stop")
}

func TestStop_ShortActivation(t *testing.T) {
	s := mustStop(t, Config{
		ID: "ts5", Symbol: "BTCUSDT", Side: model.SideShort,
		Type: TrailFixedAmount, TrailAmount: 2, Quantity: 1,
		ActivationPrice: 90,
	})

	if res := s.Tick(95, nil, now); res.Activated {
		t.Fatal("short activation requires price at or below the threshold")
	}
	if res := s.Tick(90, nil, now); !res.Activated {
		t.Fatal("expected short activation at 90")
	}
	assertClose(t, s.StopPrice, 92, 1e-9, "seeded short stop")
}

// ─── cancel and validation ───────────────────────────────────────────────────

func TestStop_Cancel(t *testing.T) {
	s := mustStop(t, Config{
		ID: "ts6", Symbol: "BTCUSDT", Side: model.SideLong,
		Type: TrailPercentage, TrailAmount: 5, Quantity: 1,
	})
	s.Tick(100, nil, now)

	s.Cancel()
	if s.State != StateCancelled {
		t.Fatalf("state = %s, want CANCELLED", s.State)
	}
	if res := s.Tick(50, nil, now); res.Triggered || res.Event != nil {
		t.Error("cancelled stop must ignore ticks")
	}
}

func TestStop_CancelAfterTriggerIsNoop(t *testing.T) {
	s := mustStop(t, Config{
		ID: "ts7", Symbol: "BTCUSDT", Side: model.SideLong,
		Type: TrailFixedAmount, TrailAmount: 1, Quantity: 1,
	})
	s.Tick(100, nil, now)
	if res := s.Tick(99, nil, now); !res.Triggered {
		t.Fatal("expected trigger")
	}

	s.Cancel()
	if s.State != StateTriggered {
		t.Errorf("Cancel overwrote terminal TRIGGERED state: %s", s.State)
	}
}

func TestConfig_Validate(t *testing.T) {
	valid := Config{
		ID: "x", Symbol: "BTCUSDT", Side: model.SideLong,
		Type: TrailPercentage, TrailAmount: 5, Quantity: 1,
	}

	cases := []struct {
		name   string
		mutate func(*Config)
	}{
		{"empty id", func(c *Config) { c.ID = "" }},
		{"empty symbol", func(c *Config) { c.Symbol = "" }},
		{"unknown side", func(c *Config) { c.Side = "SIDEWAYS" }},
		{"unknown type", func(c *Config) { c.Type = "MAGIC" }},
		{"zero percent", func(c *Config) { c.TrailAmount = 0 }},
		{"percent over 100", func(c *Config) { c.TrailAmount = 100 }},
		{"zero quantity", func(c *Config) { c.Quantity = 0 }},
		{"negative activation", func(c *Config) { c.ActivationPrice = -1 }},
		{"negative atr period", func(c *Config) { c.ATRPeriod = -1 }},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := valid
			tc.mutate(&cfg)
			if _, err := NewStop(cfg); err == nil {
				t.Error("expected validation error, got nil")
			}
		})
	}

	if _, err := NewStop(valid); err != nil {
		t.Errorf("valid config rejected: %v", err)
	}
}
