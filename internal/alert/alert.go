// Package alert provides the condition evaluator: user-defined alert
// conditions matched against the live candle stream, with per-alert cooldown
// arming and a shared rate-limit guard on emission.
package alert

import (
	"errors"
	"fmt"
	"time"
)

// ConditionType is the tag of the AlertCondition union.
type ConditionType string

const (
	PriceAbove      ConditionType = "PRICE_ABOVE"
	PriceBelow      ConditionType = "PRICE_BELOW"
	PriceCrossAbove ConditionType = "PRICE_CROSS_ABOVE"
	PriceCrossBelow ConditionType = "PRICE_CROSS_BELOW"

	PercentageChange ConditionType = "PERCENTAGE_CHANGE"

	RSIAbove      ConditionType = "RSI_ABOVE"
	RSIBelow      ConditionType = "RSI_BELOW"
	RSICrossAbove ConditionType = "RSI_CROSS_ABOVE"
	RSICrossBelow ConditionType = "RSI_CROSS_BELOW"

	MACDCrossAbove ConditionType = "MACD_CROSS_ABOVE"
	MACDCrossBelow ConditionType = "MACD_CROSS_BELOW"

	SMACrossAbove ConditionType = "SMA_CROSS_ABOVE"
	SMACrossBelow ConditionType = "SMA_CROSS_BELOW"

	BollingerBreakoutUpper ConditionType = "BOLLINGER_BREAKOUT_UPPER"
	BollingerBreakoutLower ConditionType = "BOLLINGER_BREAKOUT_LOWER"

	VolumeSpike ConditionType = "VOLUME_SPIKE"
)

// Defaults for conditions that omit their period parameter.
const (
	defaultRSIPeriod       = 14
	defaultBollingerPeriod = 20
	defaultBollingerMult   = 2.0
	defaultVolumePeriod    = 20
	defaultLookback        = 1

	macdFast   = 12
	macdSlow   = 26
	macdSignal = 9
)

// AlertCondition is the tagged union describing what to watch.
// The meaning of Value and Secondary depends on Type:
//
//	PRICE_*              Value = target price
//	PERCENTAGE_CHANGE    Value = threshold percent, Secondary = lookback candles
//	RSI_*                Value = RSI level, Secondary = period (default 14)
//	MACD_CROSS_*         line vs signal with 12/26/9, Value/Secondary unused
//	SMA_CROSS_*          Value = SMA period (price crosses the SMA)
//	BOLLINGER_BREAKOUT_* Value = period (default 20), Secondary = σ multiplier (default 2)
//	VOLUME_SPIKE         Value = multiplier over average volume, Secondary = period (default 20)
type AlertCondition struct {
	Type      ConditionType `json:"type"`
	Symbol    string        `json:"symbol"`
	Value     float64       `json:"value"`
	Secondary float64       `json:"secondary,omitempty"`
}

// ErrInvalidConfig is returned when an alert is rejected at creation time.
var ErrInvalidConfig = errors.New("alert: invalid configuration")

// Validate rejects malformed conditions so they never reach the tick loop.
func (c *AlertCondition) Validate() error {
	if c.Symbol == "" {
		return fmt.Errorf("%w: empty symbol", ErrInvalidConfig)
	}
	switch c.Type {
	case PriceAbove, PriceBelow, PriceCrossAbove, PriceCrossBelow:
		if c.Value <= 0 {
			return fmt.Errorf("%w: target price must be positive", ErrInvalidConfig)
		}
	case PercentageChange:
		if c.Value <= 0 {
			return fmt.Errorf("%w: change threshold must be positive", ErrInvalidConfig)
		}
		if c.Secondary < 0 {
			return fmt.Errorf("%w: negative lookback", ErrInvalidConfig)
		}
	case RSIAbove, RSIBelow, RSICrossAbove, RSICrossBelow:
		if c.Value < 0 || c.Value > 100 {
			return fmt.Errorf("%w: RSI level must be in [0,100]", ErrInvalidConfig)
		}
		if c.Secondary < 0 {
			return fmt.Errorf("%w: negative RSI period", ErrInvalidConfig)
		}
	case MACDCrossAbove, MACDCrossBelow:
		// fixed 12/26/9 parameters, nothing to validate
	case SMACrossAbove, SMACrossBelow:
		if c.Value < 2 {
			return fmt.Errorf("%w: SMA period must be >= 2", ErrInvalidConfig)
		}
	case BollingerBreakoutUpper, BollingerBreakoutLower:
		if c.Value < 0 || c.Secondary < 0 {
			return fmt.Errorf("%w: negative Bollinger parameter", ErrInvalidConfig)
		}
	case VolumeSpike:
		if c.Value <= 0 {
			return fmt.Errorf("%w: volume multiplier must be positive", ErrInvalidConfig)
		}
	default:
		return fmt.Errorf("%w: unknown condition type %q", ErrInvalidConfig, c.Type)
	}
	return nil
}

// Alert owns one condition plus its lifecycle state. Created by user action
// (active, untriggered), evaluated every tick, re-armed after cooldown
// unless TriggerOnce is set.
type Alert struct {
	ID              string         `json:"id"`
	Name            string         `json:"name"`
	Condition       AlertCondition `json:"condition"`
	Active          bool           `json:"active"`
	Triggered       bool           `json:"triggered"`
	TriggerOnce     bool           `json:"trigger_once"`
	CooldownMinutes int            `json:"cooldown_minutes"`
	LastTriggeredAt time.Time      `json:"last_triggered_at"`
	TriggerCount    int            `json:"trigger_count"`
}

// Validate rejects malformed alerts at creation time.
func (a *Alert) Validate() error {
	if a.ID == "" {
		return fmt.Errorf("%w: empty alert id", ErrInvalidConfig)
	}
	if a.CooldownMinutes < 0 {
		return fmt.Errorf("%w: negative cooldown", ErrInvalidConfig)
	}
	return a.Condition.Validate()
}
