// Package execution routes stop-close instructions from the trailing-stop
// engine to an order placer.
//
// The Runner receives instructions emitted when a trailing stop triggers and
// translates them into market close orders via a model.OrderPlacer. Placement
// failures are logged and surfaced as results, never retried; a triggered stop
// fires at most once.
package execution

import (
	"context"
	"log"

	"trading-dashboard/internal/model"
)

// PlacementResult represents the outcome of a stop-close order placement.
type PlacementResult struct {
	OrderID     string                `json:"order_id"`
	Status      string                `json:"status"` // PLACED, ERROR
	Message     string                `json:"message"`
	Instruction model.StopInstruction `json:"instruction"`
}

// Runner consumes stop instructions and places close orders.
type Runner struct {
	placer   model.OrderPlacer
	resultCh chan PlacementResult
}

// NewRunner creates an instruction runner backed by the given placer.
func NewRunner(placer model.OrderPlacer, resultBufferSize int) *Runner {
	return &Runner{
		placer:   placer,
		resultCh: make(chan PlacementResult, resultBufferSize),
	}
}

// Results returns the channel of placement results.
func (r *Runner) Results() <-chan PlacementResult {
	return r.resultCh
}

// Run consumes instructions and places orders.
// Blocks until ctx is cancelled or instrCh is closed.
func (r *Runner) Run(ctx context.Context, instrCh <-chan model.StopInstruction) {
	for {
		select {
		case <-ctx.Done():
			return
		case instr, ok := <-instrCh:
			if !ok {
				return
			}
			log.Printf("[execution] stop close: %s %s qty=%v reason=%s",
				instr.Symbol, instr.Side, instr.Quantity, instr.Reason)

			orderID, err := r.placer.PlaceStopClose(ctx, instr)
			res := PlacementResult{OrderID: orderID, Status: "PLACED", Instruction: instr}
			if err != nil {
				log.Printf("[execution] placement failed: %v", err)
				res.Status = "ERROR"
				res.Message = err.Error()
			}

			select {
			case r.resultCh <- res:
			default:
				log.Println("[execution] resultCh full, dropping result")
			}
		}
	}
}
