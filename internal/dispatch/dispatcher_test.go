package dispatch

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"trading-dashboard/internal/clock"
	"trading-dashboard/internal/model"
	"trading-dashboard/internal/ratelimit"
)

var errSend = errors.New("transport down")

// stubChannel fails the first failures sends, then succeeds.
type stubChannel struct {
	name     string
	failures int

	mu    sync.Mutex
	sends int
}

func (c *stubChannel) Name() string { return c.name }

func (c *stubChannel) Send(ctx context.Context, ev model.AlertEvent) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.sends++
	if c.sends <= c.failures {
		return errSend
	}
	return nil
}

func (c *stubChannel) sendCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.sends
}

type outcomeRecorder struct {
	mu       sync.Mutex
	outcomes map[string][]Outcome
}

func newOutcomeRecorder() *outcomeRecorder {
	return &outcomeRecorder{outcomes: make(map[string][]Outcome)}
}

func (r *outcomeRecorder) record(channel string, o Outcome) {
	r.mu.Lock()
	r.outcomes[channel] = append(r.outcomes[channel], o)
	r.mu.Unlock()
}

func (r *outcomeRecorder) get(channel string) []Outcome {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.outcomes[channel]
}

func testEvent() model.AlertEvent {
	at := time.Date(2024, 1, 15, 10, 0, 0, 0, time.UTC)
	return model.NewAlertEvent(model.EventAlertTriggered, "BTCUSDT", 50100, at, "test")
}

// waitForTimers blocks until the delivery goroutine parks on a backoff timer.
func waitForTimers(t *testing.T, clk *clock.Fake, n int) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for clk.PendingTimers() < n {
		if time.Now().After(deadline) {
			t.Fatal("timed out waiting for backoff timer")
		}
		time.Sleep(time.Millisecond)
	}
}

func waitForSends(t *testing.T, ch *stubChannel, n int) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for ch.sendCount() < n {
		if time.Now().After(deadline) {
			t.Fatalf("timed out waiting for %d sends, have %d", n, ch.sendCount())
		}
		time.Sleep(time.Millisecond)
	}
}

func TestDispatcher_RetriesWithLinearBackoff(t *testing.T) {
	clk := clock.NewFake(time.Date(2024, 1, 15, 10, 0, 0, 0, time.UTC))
	d := NewDispatcher(3, clk)

	rec := newOutcomeRecorder()
	d.OnOutcome = rec.record

	ch := &stubChannel{name: "webhook", failures: 2}
	d.Register(ch, nil)

	d.Dispatch(context.Background(), testEvent())

	// First attempt fails, the goroutine parks on the 1s backoff.
	waitForSends(t, ch, 1)
	waitForTimers(t, clk, 1)

	// Half a second is not enough.
	clk.Advance(500 * time.Millisecond)
	time.Sleep(10 * time.Millisecond)
	if got := ch.sendCount(); got != 1 {
		t.Fatalf("retry fired before 1s backoff elapsed: %d sends", got)
	}

	// Completing the first second releases attempt 2, which also fails;
	// the second backoff is 2s.
	clk.Advance(500 * time.Millisecond)
	waitForSends(t, ch, 2)
	waitForTimers(t, clk, 1)

	clk.Advance(2 * time.Second)
	waitForSends(t, ch, 3)
	d.Wait()

	if got := ch.sendCount(); got != 3 {
		t.Errorf("expected 3 total attempts, got %d", got)
	}
	if got := rec.get("webhook"); len(got) != 1 || got[0] != OutcomeDelivered {
		t.Errorf("outcomes = %v, want [delivered]", got)
	}
}

func TestDispatcher_ExhaustsRetries(t *testing.T) {
	clk := clock.NewFake(time.Date(2024, 1, 15, 10, 0, 0, 0, time.UTC))
	d := NewDispatcher(3, clk)

	rec := newOutcomeRecorder()
	d.OnOutcome = rec.record

	ch := &stubChannel{name: "webhook", failures: 99}
	d.Register(ch, nil)

	d.Dispatch(context.Background(), testEvent())

	waitForSends(t, ch, 1)
	waitForTimers(t, clk, 1)
	clk.Advance(time.Second)

	waitForSends(t, ch, 2)
	waitForTimers(t, clk, 1)
	clk.Advance(2 * time.Second)

	waitForSends(t, ch, 3)
	d.Wait()

	// The final attempt fails without scheduling another backoff.
	if got := ch.sendCount(); got != 3 {
		t.Errorf("expected exactly 3 attempts, got %d", got)
	}
	if clk.PendingTimers() != 0 {
		t.Error("backoff timer left pending after the last attempt")
	}
	if got := rec.get("webhook"); len(got) != 1 || got[0] != OutcomeFailed {
		t.Errorf("outcomes = %v, want [failed]", got)
	}
}

func TestDispatcher_ChannelsAreIndependent(t *testing.T) {
	clk := clock.NewFake(time.Date(2024, 1, 15, 10, 0, 0, 0, time.UTC))
	d := NewDispatcher(1, clk)

	rec := newOutcomeRecorder()
	d.OnOutcome = rec.record

	broken := &stubChannel{name: "telegram", failures: 99}
	healthy := &stubChannel{name: "webhook"}
	d.Register(broken, nil)
	d.Register(healthy, nil)

	d.Dispatch(context.Background(), testEvent())
	d.Wait()

	if got := rec.get("telegram"); len(got) != 1 || got[0] != OutcomeFailed {
		t.Errorf("telegram outcomes = %v, want [failed]", got)
	}
	if got := rec.get("webhook"); len(got) != 1 || got[0] != OutcomeDelivered {
		t.Errorf("webhook outcomes = %v, want [delivered]", got)
	}
}

func TestDispatcher_RateLimitedIsNeverRetried(t *testing.T) {
	clk := clock.NewFake(time.Date(2024, 1, 15, 10, 0, 0, 0, time.UTC))
	d := NewDispatcher(3, clk)

	rec := newOutcomeRecorder()
	d.OnOutcome = rec.record

	ch := &stubChannel{name: "email"}
	d.Register(ch, ratelimit.NewGuard(ratelimit.Config{MaxPerHour: 1}))

	d.Dispatch(context.Background(), testEvent())
	d.Wait()
	d.Dispatch(context.Background(), testEvent())
	d.Wait()

	// Second event was dropped before any send.
	if got := ch.sendCount(); got != 1 {
		t.Errorf("expected 1 send, got %d", got)
	}
	got := rec.get("email")
	if len(got) != 2 || got[0] != OutcomeDelivered || got[1] != OutcomeRateLimited {
		t.Errorf("outcomes = %v, want [delivered rate_limited]", got)
	}
	if clk.PendingTimers() != 0 {
		t.Error("rate-limited drop must not schedule a backoff")
	}
}

func TestDispatcher_ContextCancelAbortsBackoff(t *testing.T) {
	clk := clock.NewFake(time.Date(2024, 1, 15, 10, 0, 0, 0, time.UTC))
	d := NewDispatcher(3, clk)

	rec := newOutcomeRecorder()
	d.OnOutcome = rec.record

	ch := &stubChannel{name: "webhook", failures: 99}
	d.Register(ch, nil)

	ctx, cancel := context.WithCancel(context.Background())
	d.Dispatch(ctx, testEvent())

	waitForSends(t, ch, 1)
	waitForTimers(t, clk, 1)
	cancel()
	d.Wait()

	if got := ch.sendCount(); got != 1 {
		t.Errorf("expected no retry after cancel, got %d sends", got)
	}
	if got := rec.get("webhook"); len(got) != 1 || got[0] != OutcomeFailed {
		t.Errorf("outcomes = %v, want [failed]", got)
	}
}

func TestDispatcher_MinimumOneAttempt(t *testing.T) {
	clk := clock.NewFake(time.Date(2024, 1, 15, 10, 0, 0, 0, time.UTC))
	d := NewDispatcher(0, clk)

	ch := &stubChannel{name: "log"}
	d.Register(ch, nil)

	d.Dispatch(context.Background(), testEvent())
	d.Wait()

	if got := ch.sendCount(); got != 1 {
		t.Errorf("expected 1 attempt, got %d", got)
	}
}
