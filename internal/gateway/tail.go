package gateway

import (
	"context"
	"encoding/json"
	"log"
	"time"

	goredis "github.com/go-redis/redis/v8"

	"trading-dashboard/internal/model"
	"trading-dashboard/internal/ringbuf"
)

// StreamTailer follows the alert-event Redis stream and hands decoded events
// to the Hub. The tail loop and the broadcast loop are decoupled through a
// lock-free ring buffer so a burst of WS fan-out work never blocks XREAD.
type StreamTailer struct {
	client *goredis.Client
	stream string
	hub    *Hub
	ring   *ringbuf.Ring

	// OnOverflow is called when the ring drops an event (optional, metrics).
	OnOverflow func()
}

// NewStreamTailer creates a tailer for the given stream key.
func NewStreamTailer(client *goredis.Client, stream string, hub *Hub) *StreamTailer {
	return &StreamTailer{
		client: client,
		stream: stream,
		hub:    hub,
		ring:   ringbuf.New(4096),
	}
}

// Overflow returns the number of events dropped by the ring buffer.
func (t *StreamTailer) Overflow() uint64 {
	return t.ring.Overflow()
}

// Run tails the stream starting from new entries ("$") and broadcasts each
// event. Blocks until ctx is cancelled.
func (t *StreamTailer) Run(ctx context.Context) {
	go t.broadcastLoop(ctx)

	lastID := "$"
	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		results, err := t.client.XRead(ctx, &goredis.XReadArgs{
			Streams: []string{t.stream, lastID},
			Count:   100,
			Block:   2 * time.Second,
		}).Result()
		if err != nil {
			if err == goredis.Nil || ctx.Err() != nil {
				continue
			}
			log.Printf("[gateway] xread error: %v", err)
			time.Sleep(500 * time.Millisecond)
			continue
		}

		for _, stream := range results {
			for _, msg := range stream.Messages {
				lastID = msg.ID

				raw, ok := msg.Values["json"].(string)
				if !ok {
					continue
				}
				var ev model.AlertEvent
				if err := json.Unmarshal([]byte(raw), &ev); err != nil {
					log.Printf("[gateway] unmarshal event error: %v", err)
					continue
				}

				if !t.ring.Push(ev) {
					if t.OnOverflow != nil {
						t.OnOverflow()
					}
					log.Println("[gateway] ring full, dropping event")
				}
			}
		}
	}
}

// broadcastLoop drains the ring and fans events out to clients.
func (t *StreamTailer) broadcastLoop(ctx context.Context) {
	for {
		ev, ok := t.ring.Pop()
		if !ok {
			select {
			case <-ctx.Done():
				return
			case <-time.After(5 * time.Millisecond):
			}
			continue
		}
		t.hub.Broadcast(ev)
	}
}
