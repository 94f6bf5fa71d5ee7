package model

import (
	"encoding/json"
	"time"
)

// EventType classifies an AlertEvent.
type EventType string

const (
	EventAlertTriggered EventType = "ALERT_TRIGGERED"
	EventStopActivated  EventType = "TRAILING_STOP_ACTIVATED"
	EventStopTriggered  EventType = "TRAILING_STOP_TRIGGERED"
)

// AlertEvent is the immutable record emitted when an alert condition matches
// or a trailing stop changes state. It is the only artifact handed to the
// notification dispatcher — downstream consumers never see Alert or
// TrailingStop state.
type AlertEvent struct {
	AlertID        string    `json:"alert_id,omitempty"`
	TrailingStopID string    `json:"trailing_stop_id,omitempty"`
	Type           EventType `json:"type"`
	Symbol         string    `json:"symbol"`
	Value          float64   `json:"value"` // triggering price/indicator value
	Timestamp      int64     `json:"ts"`    // epoch millis
	Message        string    `json:"message"`
}

// NewAlertEvent builds an event stamped with the given time.
func NewAlertEvent(typ EventType, symbol string, value float64, at time.Time, msg string) AlertEvent {
	return AlertEvent{
		Type:      typ,
		Symbol:    symbol,
		Value:     value,
		Timestamp: at.UnixMilli(),
		Message:   msg,
	}
}

// Time returns the event timestamp as time.Time (UTC).
func (e *AlertEvent) Time() time.Time {
	return time.UnixMilli(e.Timestamp).UTC()
}

// JSON returns the JSON-encoded event.
func (e *AlertEvent) JSON() []byte {
	b, _ := json.Marshal(e)
	return b
}
