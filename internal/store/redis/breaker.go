package redis

import (
	"fmt"
	"sync"
	"time"
)

// State represents the circuit breaker state.
type State int

const (
	StateClosed   State = 0 // normal operation — publishes pass through
	StateOpen     State = 1 // circuit tripped — publishes rejected immediately
	StateHalfOpen State = 2 // testing — one probe publish allowed through
)

func (s State) String() string {
	switch s {
	case StateClosed:
		return "closed"
	case StateOpen:
		return "open"
	case StateHalfOpen:
		return "half-open"
	default:
		return "unknown"
	}
}

// ErrCircuitOpen is returned when the circuit breaker is open.
var ErrCircuitOpen = fmt.Errorf("circuit breaker is open")

// breaker guards the publisher against a Redis outage: after maxFailures
// consecutive failures it opens and rejects publishes for resetTimeout,
// then allows one half-open probe. A failed probe reopens it; a successful
// one closes it. This keeps the in-app channel from stalling dispatch
// goroutines on a dead Redis.
type breaker struct {
	mu           sync.Mutex
	state        State
	failures     int
	maxFailures  int
	resetTimeout time.Duration
	lastFailure  time.Time

	// onStateChange is called on state transitions (optional).
	onStateChange func(from, to State)
}

func newBreaker(maxFailures int, resetTimeout time.Duration) *breaker {
	return &breaker{
		maxFailures:  maxFailures,
		resetTimeout: resetTimeout,
		state:        StateClosed,
	}
}

// execute runs fn through the breaker.
func (b *breaker) execute(fn func() error) error {
	b.mu.Lock()
	if b.state == StateOpen {
		if time.Since(b.lastFailure) > b.resetTimeout {
			b.transition(StateHalfOpen)
		} else {
			b.mu.Unlock()
			return ErrCircuitOpen
		}
	}
	b.mu.Unlock()

	err := fn()

	b.mu.Lock()
	defer b.mu.Unlock()

	if err != nil {
		b.failures++
		b.lastFailure = time.Now()
		if b.state == StateHalfOpen {
			b.transition(StateOpen) // probe failed — reopen
		} else if b.failures >= b.maxFailures {
			b.transition(StateOpen)
		}
		return err
	}

	if b.state == StateHalfOpen {
		b.transition(StateClosed)
	}
	b.failures = 0
	return nil
}

func (b *breaker) currentState() State {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.state
}

func (b *breaker) transition(to State) {
	from := b.state
	b.state = to
	if to == StateClosed {
		b.failures = 0
	}
	if b.onStateChange != nil {
		b.onStateChange(from, to)
	}
}
