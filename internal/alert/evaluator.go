package alert

import (
	"fmt"
	"log"

	"trading-dashboard/internal/clock"
	"trading-dashboard/internal/model"
	"trading-dashboard/internal/ratelimit"
)

// Evaluator owns the alert collection and runs every alert against each new
// candle sample. It is driven by a single evaluation goroutine: all mutation
// (Add/Remove/Reset and tick updates) happens on that goroutine, so the
// evaluator itself carries no locks.
type Evaluator struct {
	clk    clock.Clock
	guard  *ratelimit.Guard
	alerts map[string]*Alert

	// OnSuppressed is called when the rate-limit guard denies an emission.
	// Optional, used for metrics.
	OnSuppressed func(a *Alert)
}

// NewEvaluator creates an evaluator sharing the given emission guard.
func NewEvaluator(guard *ratelimit.Guard, clk clock.Clock) *Evaluator {
	return &Evaluator{
		clk:    clk,
		guard:  guard,
		alerts: make(map[string]*Alert),
	}
}

// Add registers an alert after validating its configuration.
func (e *Evaluator) Add(a *Alert) error {
	if err := a.Validate(); err != nil {
		return err
	}
	e.alerts[a.ID] = a
	return nil
}

// Remove deletes an alert. Unknown IDs are a no-op.
func (e *Evaluator) Remove(id string) {
	delete(e.alerts, id)
}

// Reset clears the triggered flag so a TriggerOnce alert can fire again.
func (e *Evaluator) Reset(id string) {
	if a, ok := e.alerts[id]; ok {
		a.Triggered = false
	}
}

// Get returns the alert with the given ID, or nil.
func (e *Evaluator) Get(id string) *Alert {
	return e.alerts[id]
}

// List returns all registered alerts (no ordering guarantee).
func (e *Evaluator) List() []*Alert {
	out := make([]*Alert, 0, len(e.alerts))
	for _, a := range e.alerts {
		out = append(out, a)
	}
	return out
}

// Len returns the number of registered alerts.
func (e *Evaluator) Len() int { return len(e.alerts) }

// OnCandle evaluates every active alert for the series' symbol against the
// latest sample and returns the emitted events. Alerts on other symbols,
// unarmed alerts, and not-yet-evaluable conditions are skipped.
func (e *Evaluator) OnCandle(s *model.Series) []model.AlertEvent {
	last, ok := s.Last()
	if !ok {
		return nil
	}
	now := e.clk.Now()

	var events []model.AlertEvent
	for _, a := range e.alerts {
		if !a.Active || a.Condition.Symbol != last.Symbol {
			continue
		}
		if a.Triggered {
			if a.TriggerOnce || !ratelimit.CooldownOver(a.LastTriggeredAt, a.CooldownMinutes, now) {
				continue
			}
			// cooldown expired — re-arm
			a.Triggered = false
		}

		fired, value, evaluable := Evaluate(a.Condition, s)
		if !evaluable || !fired {
			continue
		}

		if !e.guard.Allow(now) {
			// normal suppression outcome, not an error
			log.Printf("[alert] rate limited: %s (%s)", a.ID, a.Condition.Type)
			if e.OnSuppressed != nil {
				e.OnSuppressed(a)
			}
			continue
		}

		a.Triggered = true
		a.LastTriggeredAt = now
		a.TriggerCount++

		ev := model.NewAlertEvent(model.EventAlertTriggered, last.Symbol, value, now,
			fmt.Sprintf("%s: %s at %.8g", a.Name, a.Condition.Type, value))
		ev.AlertID = a.ID
		events = append(events, ev)
	}
	return events
}
