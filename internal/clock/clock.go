// Package clock abstracts wall-clock time so cooldown and backoff logic can
// be tested without real delays. Production code uses Real; tests use Fake
// and advance time explicitly.
package clock

import (
	"sort"
	"sync"
	"time"
)

// Clock provides the current time and timer scheduling.
type Clock interface {
	// Now returns the current time.
	Now() time.Time

	// After returns a channel that receives the fire time after d elapses.
	After(d time.Duration) <-chan time.Time
}

// Real delegates to the time package.
type Real struct{}

// New returns the wall-clock implementation.
func New() Clock { return Real{} }

func (Real) Now() time.Time                         { return time.Now() }
func (Real) After(d time.Duration) <-chan time.Time { return time.After(d) }

// ─── Fake clock (tests) ──────────────────────────────────────────────────────

// Fake is a manually advanced clock. Timers created via After fire when
// Advance moves the clock past their deadline. Safe for concurrent use.
type Fake struct {
	mu     sync.Mutex
	now    time.Time
	timers []*fakeTimer
}

type fakeTimer struct {
	deadline time.Time
	ch       chan time.Time
}

// NewFake creates a fake clock frozen at start.
func NewFake(start time.Time) *Fake {
	return &Fake{now: start}
}

func (f *Fake) Now() time.Time {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.now
}

func (f *Fake) After(d time.Duration) <-chan time.Time {
	f.mu.Lock()
	defer f.mu.Unlock()

	t := &fakeTimer{
		deadline: f.now.Add(d),
		ch:       make(chan time.Time, 1),
	}
	if d <= 0 {
		t.ch <- f.now
		return t.ch
	}
	f.timers = append(f.timers, t)
	return t.ch
}

// Advance moves the clock forward by d and fires every timer whose deadline
// has been reached, in deadline order.
func (f *Fake) Advance(d time.Duration) {
	f.mu.Lock()
	f.now = f.now.Add(d)
	now := f.now

	sort.Slice(f.timers, func(i, j int) bool {
		return f.timers[i].deadline.Before(f.timers[j].deadline)
	})

	remaining := f.timers[:0]
	var due []*fakeTimer
	for _, t := range f.timers {
		if !t.deadline.After(now) {
			due = append(due, t)
		} else {
			remaining = append(remaining, t)
		}
	}
	f.timers = remaining
	f.mu.Unlock()

	for _, t := range due {
		t.ch <- now
	}
}

// PendingTimers returns the number of timers not yet fired.
func (f *Fake) PendingTimers() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.timers)
}
