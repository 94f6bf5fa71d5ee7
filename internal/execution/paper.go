package execution

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"trading-dashboard/internal/model"
)

// PaperFill records a simulated close of a position.
type PaperFill struct {
	OrderID     string                `json:"order_id"`
	Instruction model.StopInstruction `json:"instruction"`
	FilledAt    time.Time             `json:"filled_at"`
}

// PaperPlacer simulates stop-close placement without real broker calls.
// Implements model.OrderPlacer.
type PaperPlacer struct {
	mu       sync.RWMutex
	fills    []PaperFill
	orderSeq int64
}

// NewPaperPlacer creates a paper order placer.
func NewPaperPlacer() *PaperPlacer {
	return &PaperPlacer{fills: make([]PaperFill, 0, 100)}
}

// PlaceStopClose records the instruction as an instantly-filled paper order.
func (p *PaperPlacer) PlaceStopClose(_ context.Context, instr model.StopInstruction) (string, error) {
	p.mu.Lock()
	p.orderSeq++
	orderID := fmt.Sprintf("PAPER-%d", p.orderSeq)
	p.fills = append(p.fills, PaperFill{
		OrderID:     orderID,
		Instruction: instr,
		FilledAt:    time.Now(),
	})
	p.mu.Unlock()

	log.Printf("[paper] close %s %s qty=%v order=%s",
		instr.Symbol, instr.Side, instr.Quantity, orderID)
	return orderID, nil
}

// Fills returns a snapshot of all paper fills.
func (p *PaperPlacer) Fills() []PaperFill {
	p.mu.RLock()
	defer p.mu.RUnlock()
	cp := make([]PaperFill, len(p.fills))
	copy(cp, p.fills)
	return cp
}
