// Package engine runs the evaluation tick loop: each incoming candle sample
// drives one atomic pass over all alerts and trailing stops for its symbol.
// Control operations (create/cancel/delete) enter through a command channel
// and are applied only at tick boundaries, never inside an evaluation step.
package engine

import (
	"context"
	"log"
	"time"

	"trading-dashboard/internal/alert"
	"trading-dashboard/internal/clock"
	"trading-dashboard/internal/model"
	"trading-dashboard/internal/position"
	"trading-dashboard/internal/trailing"
)

// Config holds engine tuning knobs.
type Config struct {
	// SeriesWindow is how many candles to retain per symbol.
	// Must cover the largest indicator warm-up in use. Default 200.
	SeriesWindow int

	// CommandBuffer is the control-channel capacity. Default 64.
	CommandBuffer int
}

func (c *Config) defaults() {
	if c.SeriesWindow == 0 {
		c.SeriesWindow = 200
	}
	if c.CommandBuffer == 0 {
		c.CommandBuffer = 64
	}
}

// Engine owns the per-symbol candle windows and drives the alert evaluator
// and trailing-stop engine. All entity state is mutated only on the Run
// goroutine; notification delivery and order placement happen downstream of
// the outbound channels and never block a tick.
type Engine struct {
	cfg       Config
	clk       clock.Clock
	evaluator *alert.Evaluator
	stops     *trailing.Engine
	positions *position.Store

	series map[string]*model.Series
	cmdCh  chan command

	eventCh chan<- model.AlertEvent
	instrCh chan<- model.StopInstruction

	// OnTick is called after each evaluated sample with the wall-clock time
	// the evaluation pass took. Optional, for metrics.
	OnTick func(c model.Candle, elapsed time.Duration)
	// OnEventDropped is called when the outbound event channel is full.
	OnEventDropped func()
}

type command struct {
	fn   func() error
	resp chan error
}

// New creates an engine. eventCh receives every emitted AlertEvent; instrCh
// receives stop-close instructions. Both are written non-blocking so slow
// consumers can never stall evaluation.
func New(cfg Config, ev *alert.Evaluator, stops *trailing.Engine, pos *position.Store,
	clk clock.Clock, eventCh chan<- model.AlertEvent, instrCh chan<- model.StopInstruction) *Engine {
	cfg.defaults()
	return &Engine{
		cfg:       cfg,
		clk:       clk,
		evaluator: ev,
		stops:     stops,
		positions: pos,
		series:    make(map[string]*model.Series),
		cmdCh:     make(chan command, cfg.CommandBuffer),
		eventCh:   eventCh,
		instrCh:   instrCh,
	}
}

// Run consumes candle samples and processes commands at tick boundaries.
// Blocks until ctx is cancelled or candleCh is closed.
func (e *Engine) Run(ctx context.Context, candleCh <-chan model.Candle) {
	for {
		select {
		case <-ctx.Done():
			return
		case cmd := <-e.cmdCh:
			cmd.resp <- cmd.fn()
		case c, ok := <-candleCh:
			if !ok {
				return
			}
			e.onCandle(c)
		}
	}
}

// onCandle is one atomic evaluation pass: the alert evaluator and the
// trailing-stop engine both observe the same updated window.
func (e *Engine) onCandle(c model.Candle) {
	start := time.Now()

	s := e.series[c.Symbol]
	if s == nil {
		s = model.NewSeries(e.cfg.SeriesWindow)
		e.series[c.Symbol] = s
	}
	s.Apply(c)

	for _, ev := range e.evaluator.OnCandle(s) {
		e.emit(ev)
	}

	events, instructions := e.stops.OnCandle(s, e.clk.Now())
	for _, ev := range events {
		e.emit(ev)
	}
	for _, inst := range instructions {
		select {
		case e.instrCh <- inst:
		default:
			log.Printf("[engine] instruction channel full, dropping %s %s close", inst.Symbol, inst.Side)
		}
	}

	if e.OnTick != nil {
		e.OnTick(c, time.Since(start))
	}
}

func (e *Engine) emit(ev model.AlertEvent) {
	select {
	case e.eventCh <- ev:
	default:
		log.Printf("[engine] event channel full, dropping %s/%s", ev.Type, ev.Symbol)
		if e.OnEventDropped != nil {
			e.OnEventDropped()
		}
	}
}

// do runs fn on the evaluation goroutine between ticks and returns its
// error. Safe to call concurrently with in-flight ticks; requires Run to be
// active.
func (e *Engine) do(fn func() error) error {
	cmd := command{fn: fn, resp: make(chan error, 1)}
	e.cmdCh <- cmd
	return <-cmd.resp
}

// AddAlert validates and registers an alert at the next tick boundary.
func (e *Engine) AddAlert(a *alert.Alert) error {
	return e.do(func() error { return e.evaluator.Add(a) })
}

// RemoveAlert deletes an alert at the next tick boundary.
func (e *Engine) RemoveAlert(id string) error {
	return e.do(func() error {
		e.evaluator.Remove(id)
		return nil
	})
}

// ResetAlert re-arms a triggered alert at the next tick boundary.
func (e *Engine) ResetAlert(id string) error {
	return e.do(func() error {
		e.evaluator.Reset(id)
		return nil
	})
}

// AddTrailingStop validates and registers a trailing stop at the next tick
// boundary. A zero Quantity is defaulted from the current position snapshot
// for the stop's (symbol, side).
func (e *Engine) AddTrailingStop(cfg trailing.Config) error {
	return e.do(func() error {
		if cfg.Quantity == 0 {
			if pos, ok := e.positions.Get(cfg.Symbol, cfg.Side); ok {
				cfg.Quantity = pos.Size
			}
		}
		_, err := e.stops.Add(cfg)
		return err
	})
}

// CancelTrailingStop cancels a stop at the next tick boundary, so a
// cancellation can never interleave with an evaluation step.
func (e *Engine) CancelTrailingStop(id string) error {
	return e.do(func() error {
		e.stops.Cancel(id)
		return nil
	})
}
