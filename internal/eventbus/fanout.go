// Package eventbus broadcasts alert events from the evaluation loop to N
// consumers (notification dispatch, journal) without letting a slow consumer
// block the pipeline.
package eventbus

import (
	"context"
	"log"
	"sync"

	"trading-dashboard/internal/model"
)

// FanOut broadcasts events from a single input channel to N output channels.
// If an output channel is full, the event is dropped for that consumer.
type FanOut struct {
	mu      sync.RWMutex
	outputs []chan model.AlertEvent
	bufSize int

	// OnDrop is called when an event is dropped for a subscriber.
	// subscriberIdx is the 0-based index of the slow consumer.
	OnDrop func(subscriberIdx int)
}

// New creates a FanOut with the given buffer size for output channels.
func New(outputBufferSize int) *FanOut {
	return &FanOut{
		bufSize: outputBufferSize,
	}
}

// Subscribe creates and returns a new output channel.
// Must be called before Run.
func (f *FanOut) Subscribe() <-chan model.AlertEvent {
	ch := make(chan model.AlertEvent, f.bufSize)
	f.mu.Lock()
	f.outputs = append(f.outputs, ch)
	f.mu.Unlock()
	return ch
}

// Run reads from the input channel and fans out to all subscribers.
// Blocks until ctx is cancelled or input is closed; output channels are
// closed on return.
func (f *FanOut) Run(ctx context.Context, input <-chan model.AlertEvent) {
	defer func() {
		f.mu.RLock()
		for _, ch := range f.outputs {
			close(ch)
		}
		f.mu.RUnlock()
	}()

	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-input:
			if !ok {
				return
			}
			f.mu.RLock()
			for i, ch := range f.outputs {
				select {
				case ch <- ev:
				default:
					if f.OnDrop != nil {
						f.OnDrop(i)
					} else {
						log.Printf("[eventbus] output channel %d full, dropping event %s/%s", i, ev.Type, ev.Symbol)
					}
				}
			}
			f.mu.RUnlock()
		}
	}
}
