// Package ratelimit provides the shared emission guard: fixed-size sliding
// counters capping how many notifications may be emitted per hour and per
// day. The alert evaluator and the email dispatch channel each hold their
// own Guard instance with their own ceilings.
package ratelimit

import "time"

const (
	hourWindow = time.Hour
	dayWindow  = 24 * time.Hour
)

// Config holds the guard ceilings. A ceiling <= 0 disables that cap.
type Config struct {
	MaxPerHour int
	MaxPerDay  int
}

// Guard tracks grant timestamps over a rolling hour and a rolling day.
// Entries older than their window are evicted lazily on each Allow call —
// no background sweep, growth is bounded by the ceilings themselves.
//
// Guard is NOT safe for concurrent use: it is owned by a single evaluation
// goroutine per the engine's single-writer discipline.
type Guard struct {
	cfg  Config
	hour []time.Time
	day  []time.Time
}

// NewGuard creates a guard with the given ceilings.
func NewGuard(cfg Config) *Guard {
	return &Guard{cfg: cfg}
}

// Allow reports whether an emission may happen at now, and records the grant
// if so. Both windows must be below their ceiling; a grant counts against
// both.
func (g *Guard) Allow(now time.Time) bool {
	g.hour = evict(g.hour, now.Add(-hourWindow))
	g.day = evict(g.day, now.Add(-dayWindow))

	if g.cfg.MaxPerHour > 0 && len(g.hour) >= g.cfg.MaxPerHour {
		return false
	}
	if g.cfg.MaxPerDay > 0 && len(g.day) >= g.cfg.MaxPerDay {
		return false
	}

	g.hour = append(g.hour, now)
	g.day = append(g.day, now)
	return true
}

// HourCount returns the grants currently inside the hour window.
func (g *Guard) HourCount(now time.Time) int {
	g.hour = evict(g.hour, now.Add(-hourWindow))
	return len(g.hour)
}

// DayCount returns the grants currently inside the day window.
func (g *Guard) DayCount(now time.Time) int {
	g.day = evict(g.day, now.Add(-dayWindow))
	return len(g.day)
}

// evict drops all entries at or before cutoff. Entries are appended in time
// order, so a single scan from the front suffices.
func evict(entries []time.Time, cutoff time.Time) []time.Time {
	i := 0
	for i < len(entries) && !entries[i].After(cutoff) {
		i++
	}
	return entries[i:]
}

// CooldownOver reports whether the per-alert cooldown has elapsed.
// A zero lastTriggered means the alert never fired — always over.
func CooldownOver(lastTriggered time.Time, cooldownMinutes int, now time.Time) bool {
	if lastTriggered.IsZero() {
		return true
	}
	return now.Sub(lastTriggered) >= time.Duration(cooldownMinutes)*time.Minute
}
