// Package redis publishes alert events to a capped Redis stream that the
// dashboard front-end tails for in-app notifications. Writes go through a
// circuit breaker so a Redis outage degrades to dropped in-app events
// instead of blocked dispatch.
package redis

import (
	"context"
	"fmt"
	"log"
	"time"

	goredis "github.com/go-redis/redis/v8"

	"trading-dashboard/internal/model"
)

const (
	// Stream trimming: enough recent events for the dashboard feed.
	defaultStreamMaxLen = 10000

	defaultMaxFailures  = 5
	defaultResetTimeout = 10 * time.Second
)

// PublisherConfig configures the Redis event publisher.
type PublisherConfig struct {
	Addr     string // Redis address, e.g. "localhost:6379"
	Password string
	DB       int
	Stream   string // stream key, e.g. "alerts:events"
	MaxLen   int64  // approximate stream cap (default 10000)
}

// Publisher writes alert events to a Redis stream. Implements
// model.EventPublisher.
type Publisher struct {
	client  *goredis.Client
	cfg     PublisherConfig
	breaker *breaker

	// OnBreakerChange is called on breaker transitions (optional, metrics).
	OnBreakerChange func(from, to State)

	// OnWrite is called with the duration of each attempted stream write
	// (optional, metrics). Not called when the breaker is open.
	OnWrite func(elapsed time.Duration)
}

// NewPublisher creates a Publisher and pings the server.
func NewPublisher(cfg PublisherConfig) (*Publisher, error) {
	if cfg.Stream == "" {
		cfg.Stream = "alerts:events"
	}
	if cfg.MaxLen == 0 {
		cfg.MaxLen = defaultStreamMaxLen
	}

	client := goredis.NewClient(&goredis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("redis ping: %w", err)
	}

	p := &Publisher{
		client:  client,
		cfg:     cfg,
		breaker: newBreaker(defaultMaxFailures, defaultResetTimeout),
	}
	p.breaker.onStateChange = func(from, to State) {
		log.Printf("[redis] breaker %s → %s", from, to)
		if p.OnBreakerChange != nil {
			p.OnBreakerChange(from, to)
		}
	}

	log.Printf("[redis] connected to %s, publishing to %s", cfg.Addr, cfg.Stream)
	return p, nil
}

// Publish appends the event to the stream (XADD with approximate trim).
func (p *Publisher) Publish(ctx context.Context, ev model.AlertEvent) error {
	return p.breaker.execute(func() error {
		start := time.Now()
		err := p.client.XAdd(ctx, &goredis.XAddArgs{
			Stream: p.cfg.Stream,
			MaxLen: p.cfg.MaxLen,
			Approx: true,
			Values: map[string]interface{}{
				"type":    string(ev.Type),
				"symbol":  ev.Symbol,
				"value":   ev.Value,
				"ts":      ev.Timestamp,
				"message": ev.Message,
				"json":    string(ev.JSON()),
			},
		}).Err()
		if p.OnWrite != nil {
			p.OnWrite(time.Since(start))
		}
		return err
	})
}

// BreakerState returns the current circuit breaker state.
func (p *Publisher) BreakerState() State {
	return p.breaker.currentState()
}

// Client returns the underlying Redis client for health checks.
func (p *Publisher) Client() *goredis.Client { return p.client }

// Close releases the Redis connection.
func (p *Publisher) Close() error {
	return p.client.Close()
}
