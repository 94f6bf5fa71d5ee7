package dispatch

import (
	"context"
	"log"
	"sync"
	"time"

	"trading-dashboard/internal/clock"
	"trading-dashboard/internal/model"
	"trading-dashboard/internal/ratelimit"
)

// Outcome of one channel delivery attempt sequence.
type Outcome string

const (
	OutcomeDelivered   Outcome = "delivered"
	OutcomeFailed      Outcome = "failed"       // all retry attempts exhausted
	OutcomeRateLimited Outcome = "rate_limited" // dropped, never retried
)

type registration struct {
	ch    Channel
	guard *ratelimit.Guard
	mu    sync.Mutex // guards the guard: deliveries run on their own goroutines
}

// Dispatcher fans a triggered event out to every registered channel.
// Channels are fully independent: each event × channel pair runs on its own
// goroutine, so failure or backoff on one channel never delays another, and
// delivery never blocks the evaluation tick loop.
//
// Transport failures are retried up to retryAttempts total attempts with
// linearly increasing backoff (1s, 2s, 3s, ...) scheduled on the injected
// clock — no blocking wall sleep under test.
type Dispatcher struct {
	mu            sync.RWMutex
	channels      []*registration
	retryAttempts int
	clk           clock.Clock
	wg            sync.WaitGroup

	// OnOutcome is called once per channel per event with the terminal
	// outcome. Optional, used for metrics.
	OnOutcome func(channel string, outcome Outcome)
}

// NewDispatcher creates a dispatcher. retryAttempts is the total number of
// delivery attempts per channel (minimum 1).
func NewDispatcher(retryAttempts int, clk clock.Clock) *Dispatcher {
	if retryAttempts < 1 {
		retryAttempts = 1
	}
	return &Dispatcher{
		retryAttempts: retryAttempts,
		clk:           clk,
	}
}

// Register adds a channel. guard may be nil for channels without their own
// emission cap.
func (d *Dispatcher) Register(ch Channel, guard *ratelimit.Guard) {
	d.mu.Lock()
	d.channels = append(d.channels, &registration{ch: ch, guard: guard})
	d.mu.Unlock()
}

// Dispatch hands the event to every channel asynchronously and returns
// immediately.
func (d *Dispatcher) Dispatch(ctx context.Context, ev model.AlertEvent) {
	d.mu.RLock()
	regs := d.channels
	d.mu.RUnlock()

	for _, reg := range regs {
		d.wg.Add(1)
		go func(reg *registration) {
			defer d.wg.Done()
			d.deliver(ctx, reg, ev)
		}(reg)
	}
}

// Wait blocks until all in-flight deliveries finish. Used on shutdown and
// in tests.
func (d *Dispatcher) Wait() {
	d.wg.Wait()
}

func (d *Dispatcher) deliver(ctx context.Context, reg *registration, ev model.AlertEvent) {
	name := reg.ch.Name()

	if reg.guard != nil {
		reg.mu.Lock()
		allowed := reg.guard.Allow(d.clk.Now())
		reg.mu.Unlock()
		if !allowed {
			// dropped for this channel only — logged, never retried
			log.Printf("[dispatch] %s: rate limited, dropping event %s/%s", name, ev.Type, ev.Symbol)
			d.outcome(name, OutcomeRateLimited)
			return
		}
	}

	for attempt := 1; attempt <= d.retryAttempts; attempt++ {
		err := reg.ch.Send(ctx, ev)
		if err == nil {
			log.Printf("[dispatch] %s: delivered %s/%s (attempt %d)", name, ev.Type, ev.Symbol, attempt)
			d.outcome(name, OutcomeDelivered)
			return
		}

		log.Printf("[dispatch] %s: attempt %d/%d failed: %v", name, attempt, d.retryAttempts, err)
		if attempt == d.retryAttempts {
			break
		}

		// linear backoff: 1s after the first failure, 2s after the second, ...
		select {
		case <-ctx.Done():
			d.outcome(name, OutcomeFailed)
			return
		case <-d.clk.After(time.Duration(attempt) * time.Second):
		}
	}

	log.Printf("[dispatch] %s: giving up on event %s/%s after %d attempts", name, ev.Type, ev.Symbol, d.retryAttempts)
	d.outcome(name, OutcomeFailed)
}

func (d *Dispatcher) outcome(channel string, o Outcome) {
	if d.OnOutcome != nil {
		d.OnOutcome(channel, o)
	}
}
