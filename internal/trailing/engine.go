package trailing

import (
	"time"

	"trading-dashboard/internal/model"
)

// Engine owns the trailing-stop collection and routes ticks to the stops
// watching each symbol. Driven by a single evaluation goroutine — no locks.
//
// Stops are independent: multiple stops on the same (symbol, side) are
// allowed and each runs its own state machine.
type Engine struct {
	stops    map[string]*Stop            // by ID
	bySymbol map[string]map[string]*Stop // symbol → ID → stop

	// OnTransition is called with the new state on every state change.
	// Optional, used for metrics.
	OnTransition func(s *Stop)
}

// NewEngine creates an empty trailing-stop engine.
func NewEngine() *Engine {
	return &Engine{
		stops:    make(map[string]*Stop),
		bySymbol: make(map[string]map[string]*Stop),
	}
}

// Add validates and registers a new trailing stop.
func (e *Engine) Add(cfg Config) (*Stop, error) {
	s, err := NewStop(cfg)
	if err != nil {
		return nil, err
	}
	e.stops[s.ID] = s
	m := e.bySymbol[s.Symbol]
	if m == nil {
		m = make(map[string]*Stop)
		e.bySymbol[s.Symbol] = m
	}
	m[s.ID] = s
	return s, nil
}

// Cancel marks the stop CANCELLED and removes it from tick routing.
// Returns false for unknown IDs.
func (e *Engine) Cancel(id string) bool {
	s, ok := e.stops[id]
	if !ok {
		return false
	}
	s.Cancel()
	e.unroute(s)
	if e.OnTransition != nil {
		e.OnTransition(s)
	}
	return true
}

// Get returns the stop with the given ID, or nil. Terminal stops remain
// readable until Drop is called, so the dashboard can show their outcome.
func (e *Engine) Get(id string) *Stop {
	return e.stops[id]
}

// List returns all stops (no ordering guarantee).
func (e *Engine) List() []*Stop {
	out := make([]*Stop, 0, len(e.stops))
	for _, s := range e.stops {
		out = append(out, s)
	}
	return out
}

// Active returns the number of stops still routed for ticks, i.e. those not
// yet triggered or cancelled.
func (e *Engine) Active() int {
	n := 0
	for _, m := range e.bySymbol {
		n += len(m)
	}
	return n
}

// Drop forgets a terminal stop entirely.
func (e *Engine) Drop(id string) {
	if s, ok := e.stops[id]; ok {
		e.unroute(s)
		delete(e.stops, id)
	}
}

// OnCandle runs one tick for every stop watching the series' symbol.
// A tick for a symbol with no registered stop is a no-op.
func (e *Engine) OnCandle(s *model.Series, now time.Time) ([]model.AlertEvent, []model.StopInstruction) {
	last, ok := s.Last()
	if !ok {
		return nil, nil
	}
	watching := e.bySymbol[last.Symbol]
	if len(watching) == 0 {
		return nil, nil
	}

	var (
		events       []model.AlertEvent
		instructions []model.StopInstruction
	)
	for _, stop := range watching {
		res := stop.Tick(last.Close, s.Candles(), now)
		if res.Event != nil {
			events = append(events, *res.Event)
		}
		if res.Instruction != nil {
			instructions = append(instructions, *res.Instruction)
		}
		if res.Activated || res.Triggered {
			if e.OnTransition != nil {
				e.OnTransition(stop)
			}
		}
		if res.Triggered {
			e.unroute(stop)
		}
	}
	return events, instructions
}

func (e *Engine) unroute(s *Stop) {
	if m := e.bySymbol[s.Symbol]; m != nil {
		delete(m, s.ID)
		if len(m) == 0 {
			delete(e.bySymbol, s.Symbol)
		}
	}
}
