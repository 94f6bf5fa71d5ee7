package dispatch

import (
	"context"

	"trading-dashboard/internal/model"
)

// InAppChannel pushes events to the dashboard front-end through an
// EventPublisher (the Redis stream publisher in production).
type InAppChannel struct {
	pub model.EventPublisher
}

// NewInAppChannel creates an in-app channel over the given publisher.
func NewInAppChannel(pub model.EventPublisher) *InAppChannel {
	return &InAppChannel{pub: pub}
}

func (c *InAppChannel) Name() string { return "inapp" }

func (c *InAppChannel) Send(ctx context.Context, ev model.AlertEvent) error {
	return c.pub.Publish(ctx, ev)
}
