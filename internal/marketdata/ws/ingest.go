// Package ws provides a WebSocket ingest client that connects to a candle
// stream server (e.g. cmd/tickserver) and feeds candles into the evaluation
// engine pipeline.
//
// The expected JSON message format on the wire is identical to model.Candle:
//
//	{"symbol":"BTCUSDT","open_time":"2024-01-15T10:30:00Z","open":50000,
//	 "high":50120,"low":49900,"close":50050,"volume":12.4,"closed":false}
//
// Forming candles may be re-sent with updated fields; the final send for a
// bucket carries closed=true.
package ws

import (
	"context"
	"encoding/json"
	"log"
	"net/url"
	"time"

	"github.com/gorilla/websocket"

	"trading-dashboard/internal/model"
)

// Config holds configuration for the candle ingest.
type Config struct {
	// URL of the candle WebSocket server, e.g. "ws://localhost:9001/ws"
	URL string

	// ReconnectDelay is the initial delay before reconnection attempts.
	// Defaults to 2 seconds if zero.
	ReconnectDelay time.Duration

	// MaxReconnectDelay caps the exponential backoff. Defaults to 30s.
	MaxReconnectDelay time.Duration
}

func (c *Config) defaults() {
	if c.ReconnectDelay == 0 {
		c.ReconnectDelay = 2 * time.Second
	}
	if c.MaxReconnectDelay == 0 {
		c.MaxReconnectDelay = 30 * time.Second
	}
}

// Ingest connects to a plain-JSON WebSocket candle server and pushes
// model.Candle values into candleCh.
type Ingest struct {
	cfg Config

	// Optional hook — called each time a reconnection happens.
	OnReconnect func()

	// Optional hook — called for every decoded candle, including ones
	// dropped because candleCh is full.
	OnCandle func(c model.Candle)
}

// New creates a new Ingest. Returns an error if the URL is unparseable.
func New(cfg Config) (*Ingest, error) {
	cfg.defaults()
	if _, err := url.Parse(cfg.URL); err != nil {
		return nil, err
	}
	return &Ingest{cfg: cfg}, nil
}

// Start connects to the WebSocket and streams candles into candleCh.
// Blocks until ctx is cancelled. Reconnects automatically on disconnect.
func (ing *Ingest) Start(ctx context.Context, candleCh chan<- model.Candle) error {
	delay := ing.cfg.ReconnectDelay

	for {
		// Check context before each attempt
		select {
		case <-ctx.Done():
			return nil
		default:
		}

		err := ing.runOnce(ctx, candleCh)
		if err == nil {
			// Context cancelled cleanly
			return nil
		}

		log.Printf("[ws] disconnected (%v), reconnecting in %s...", err, delay)
		if ing.OnReconnect != nil {
			ing.OnReconnect()
		}

		select {
		case <-ctx.Done():
			return nil
		case <-time.After(delay):
		}

		// Exponential backoff
		delay *= 2
		if delay > ing.cfg.MaxReconnectDelay {
			delay = ing.cfg.MaxReconnectDelay
		}
	}
}

// runOnce makes a single connection attempt and reads until disconnect or ctx cancel.
func (ing *Ingest) runOnce(ctx context.Context, candleCh chan<- model.Candle) error {
	dialer := websocket.DefaultDialer
	conn, _, err := dialer.DialContext(ctx, ing.cfg.URL, nil)
	if err != nil {
		return err
	}
	defer conn.Close()

	log.Printf("[ws] connected to %s", ing.cfg.URL)

	// Async context watcher — closes the connection when ctx is cancelled.
	go func() {
		<-ctx.Done()
		conn.WriteMessage(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, "shutdown"))
		conn.Close()
	}()

	for {
		_, raw, err := conn.ReadMessage()
		if err != nil {
			// Check if it's a context cancellation
			select {
			case <-ctx.Done():
				return nil
			default:
			}
			return err
		}

		var candle model.Candle
		if err := json.Unmarshal(raw, &candle); err != nil {
			log.Printf("[ws] parse error: %v (raw: %s)", err, raw)
			continue
		}

		if candle.Symbol == "" {
			log.Printf("[ws] skipping candle with empty symbol")
			continue
		}

		if ing.OnCandle != nil {
			ing.OnCandle(candle)
		}

		select {
		case candleCh <- candle:
		default:
			log.Println("[ws] candleCh full, dropping candle")
		}
	}
}
