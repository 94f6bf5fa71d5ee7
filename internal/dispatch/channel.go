// Package dispatch provides alert-event delivery to external channels
// (email, webhook, Telegram, in-app) with per-channel rate limiting and
// retry-with-backoff on transport failure.
package dispatch

import (
	"context"
	"log"

	"trading-dashboard/internal/model"
)

// Channel is the interface for all notification backends.
type Channel interface {
	// Name identifies the channel in logs and metrics (e.g. "email").
	Name() string

	// Send delivers one event. Returns an error on transport failure.
	Send(ctx context.Context, ev model.AlertEvent) error
}

// LogChannel is a simple channel that logs events (useful for development).
type LogChannel struct{}

// NewLogChannel creates a log-based channel.
func NewLogChannel() *LogChannel {
	return &LogChannel{}
}

func (c *LogChannel) Name() string { return "log" }

func (c *LogChannel) Send(ctx context.Context, ev model.AlertEvent) error {
	log.Printf("[notify] [%s] %s: %s (value=%.8g)", ev.Type, ev.Symbol, ev.Message, ev.Value)
	return nil
}
