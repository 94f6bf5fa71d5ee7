// Package trailing provides per-position trailing-stop state machines:
// percentage, fixed-amount, and ATR-based trails that track the extreme
// favorable price and recompute a dynamic stop level for long and short
// exposure.
package trailing

import (
	"errors"
	"fmt"
	"time"

	"trading-dashboard/internal/indicator"
	"trading-dashboard/internal/model"
)

// TrailType selects how the stop distance is computed.
type TrailType string

const (
	TrailPercentage  TrailType = "PERCENTAGE"   // trail = extreme × amount%
	TrailFixedAmount TrailType = "FIXED_AMOUNT" // trail = absolute price distance
	TrailATR         TrailType = "ATR_BASED"    // trail = amount × ATR(period)
)

// State of a trailing stop. Triggered and Cancelled are terminal.
type State string

const (
	StatePendingActivation State = "PENDING_ACTIVATION"
	StateActive            State = "ACTIVE"
	StateTriggered         State = "TRIGGERED"
	StateCancelled         State = "CANCELLED"
)

const defaultATRPeriod = 14

// ErrInvalidConfig is returned when a stop is rejected at creation time.
var ErrInvalidConfig = errors.New("trailing: invalid configuration")

// Config describes one trailing stop. ActivationPrice zero means the stop
// starts directly in ACTIVE.
type Config struct {
	ID              string     `json:"id"`
	Symbol          string     `json:"symbol"`
	Side            model.Side `json:"side"`
	Type            TrailType  `json:"type"`
	TrailAmount     float64    `json:"trail_amount"` // percent, absolute, or ATR multiplier
	Quantity        float64    `json:"quantity"`
	ActivationPrice float64    `json:"activation_price,omitempty"`
	ATRPeriod       int        `json:"atr_period,omitempty"` // ATR_BASED only, default 14
}

// Validate rejects malformed configs so they never reach the tick loop.
func (c *Config) Validate() error {
	if c.ID == "" {
		return fmt.Errorf("%w: empty id", ErrInvalidConfig)
	}
	if c.Symbol == "" {
		return fmt.Errorf("%w: empty symbol", ErrInvalidConfig)
	}
	if c.Side != model.SideLong && c.Side != model.SideShort {
		return fmt.Errorf("%w: unknown side %q", ErrInvalidConfig, c.Side)
	}
	switch c.Type {
	case TrailPercentage:
		if c.TrailAmount <= 0 || c.TrailAmount >= 100 {
			return fmt.Errorf("%w: percentage trail must be in (0,100)", ErrInvalidConfig)
		}
	case TrailFixedAmount, TrailATR:
		if c.TrailAmount <= 0 {
			return fmt.Errorf("%w: trail amount must be positive", ErrInvalidConfig)
		}
	default:
		return fmt.Errorf("%w: unknown trail type %q", ErrInvalidConfig, c.Type)
	}
	if c.Quantity <= 0 {
		return fmt.Errorf("%w: quantity must be positive", ErrInvalidConfig)
	}
	if c.ATRPeriod < 0 {
		return fmt.Errorf("%w: negative ATR period", ErrInvalidConfig)
	}
	if c.ActivationPrice < 0 {
		return fmt.Errorf("%w: negative activation price", ErrInvalidConfig)
	}
	return nil
}

// Stop is one trailing-stop state machine instance.
// Mutated only by the evaluation tick for its owning symbol.
type Stop struct {
	Config

	State        State   `json:"state"`
	ExtremePrice float64 `json:"extreme_price"`
	StopPrice    float64 `json:"stop_price"`

	hasStop bool // StopPrice has been computed at least once
}

// NewStop validates the config and creates the stop in its initial state.
func NewStop(cfg Config) (*Stop, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if cfg.Type == TrailATR && cfg.ATRPeriod == 0 {
		cfg.ATRPeriod = defaultATRPeriod
	}
	s := &Stop{Config: cfg, State: StateActive}
	if cfg.ActivationPrice > 0 {
		s.State = StatePendingActivation
	}
	return s, nil
}

// Result reports what one tick did to the stop.
type Result struct {
	Activated   bool
	Triggered   bool
	Event       *model.AlertEvent
	Instruction *model.StopInstruction
}

// Tick processes one price sample. candles back the ATR window for
// ATR-based stops; now stamps any emitted event. Terminal states are no-ops.
func (s *Stop) Tick(price float64, candles []model.Candle, now time.Time) Result {
	switch s.State {
	case StateTriggered, StateCancelled:
		return Result{}

	case StatePendingActivation:
		if !s.activationReached(price) {
			return Result{}
		}
		s.State = StateActive
		s.ExtremePrice = price
		s.updateStop(price, candles)
		ev := model.NewAlertEvent(model.EventStopActivated, s.Symbol, price, now,
			fmt.Sprintf("trailing stop %s activated at %.8g", s.ID, price))
		ev.TrailingStopID = s.ID
		// a fresh stop trails behind the activation price, so it cannot
		// trigger on the activation tick
		return Result{Activated: true, Event: &ev}

	case StateActive:
		if s.ExtremePrice == 0 {
			// first ACTIVE tick seeds the extreme
			s.ExtremePrice = price
		} else if s.Side == model.SideLong {
			if price > s.ExtremePrice {
				s.ExtremePrice = price
			}
		} else if price < s.ExtremePrice {
			s.ExtremePrice = price
		}
		s.updateStop(price, candles)
		return s.checkTrigger(price, now)
	}
	return Result{}
}

// Cancel moves the stop to CANCELLED; no further ticks are processed.
func (s *Stop) Cancel() {
	if s.State == StateTriggered {
		return
	}
	s.State = StateCancelled
}

func (s *Stop) activationReached(price float64) bool {
	if s.Side == model.SideLong {
		return price >= s.ActivationPrice
	}
	return price <= s.ActivationPrice
}

// updateStop recomputes the dynamic stop from the current extreme and clamps
// it to the best level seen so far: the stop only ever moves favorably, up
// for LONG and down for SHORT. Insufficient ATR history suspends the update
// without reverting state.
func (s *Stop) updateStop(price float64, candles []model.Candle) {
	var dist float64
	switch s.Type {
	case TrailPercentage:
		dist = s.ExtremePrice * s.TrailAmount / 100
	case TrailFixedAmount:
		dist = s.TrailAmount
	case TrailATR:
		atr, err := indicator.ATR(candles, s.ATRPeriod)
		if err != nil {
			return // abstain until enough candles accumulate
		}
		dist = s.TrailAmount * atr[len(atr)-1]
	}

	var candidate float64
	if s.Side == model.SideLong {
		candidate = s.ExtremePrice - dist
	} else {
		candidate = s.ExtremePrice + dist
	}

	if !s.hasStop {
		s.StopPrice = candidate
		s.hasStop = true
		return
	}
	if s.Side == model.SideLong {
		if candidate > s.StopPrice {
			s.StopPrice = candidate
		}
	} else if candidate < s.StopPrice {
		s.StopPrice = candidate
	}
}

func (s *Stop) checkTrigger(price float64, now time.Time) Result {
	if !s.hasStop {
		return Result{}
	}
	hit := false
	if s.Side == model.SideLong {
		hit = price <= s.StopPrice
	} else {
		hit = price >= s.StopPrice
	}
	if !hit {
		return Result{}
	}

	s.State = StateTriggered
	ev := model.NewAlertEvent(model.EventStopTriggered, s.Symbol, price, now,
		fmt.Sprintf("trailing stop %s triggered: %s %.8g through stop %.8g",
			s.ID, s.Side, price, s.StopPrice))
	ev.TrailingStopID = s.ID
	inst := model.StopInstruction{
		Symbol:   s.Symbol,
		Side:     s.Side,
		Quantity: s.Quantity,
		Reason:   string(model.EventStopTriggered),
	}
	return Result{Triggered: true, Event: &ev, Instruction: &inst}
}
