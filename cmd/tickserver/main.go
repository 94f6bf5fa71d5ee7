// cmd/tickserver — Demo WebSocket candle server.
// Broadcasts simulated OHLCV candles for testing alertengine without a real
// exchange feed.
//
// Candle JSON shape is identical to model.Candle:
//
//	{"symbol":"BTCUSDT","open_time":"...","open":50000,"high":50120,
//	 "low":49900,"close":50050,"volume":12.4,"closed":false}
//
// Each bucket is re-broadcast every interval with updated close/high/low;
// the final send for a bucket carries closed=true.
//
// Config (env vars):
//
//	TICK_SERVER_ADDR   — listen address  (default: ":9001")
//	TICK_SYMBOLS       — comma-separated SYMBOL:STARTPRICE pairs (default: "BTCUSDT:50000")
//	TICK_INTERVAL_MS   — broadcast interval milliseconds (default: "250")
//	TICK_BUCKET_SEC    — candle bucket length in seconds (default: "5")
package main

import (
	"encoding/json"
	"fmt"
	"log"
	"math/rand"
	"net/http"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

// candleMsg mirrors model.Candle for JSON serialisation.
type candleMsg struct {
	Symbol   string    `json:"symbol"`
	OpenTime time.Time `json:"open_time"`
	Open     float64   `json:"open"`
	High     float64   `json:"high"`
	Low      float64   `json:"low"`
	Close    float64   `json:"close"`
	Volume   float64   `json:"volume"`
	Closed   bool      `json:"closed"`
}

// instrument holds per-symbol simulation state.
type instrument struct {
	Symbol string
	Price  float64 // current simulated price

	bucket candleMsg // forming candle
}

// ─── Hub ──────────────────────────────────────────────────────────────────────

type hub struct {
	mu      sync.RWMutex
	clients map[*websocket.Conn]chan []byte
}

func newHub() *hub {
	return &hub{clients: make(map[*websocket.Conn]chan []byte)}
}

func (h *hub) register(conn *websocket.Conn) chan []byte {
	ch := make(chan []byte, 256)
	h.mu.Lock()
	h.clients[conn] = ch
	h.mu.Unlock()
	return ch
}

func (h *hub) unregister(conn *websocket.Conn) {
	h.mu.Lock()
	if ch, ok := h.clients[conn]; ok {
		close(ch)
		delete(h.clients, conn)
	}
	h.mu.Unlock()
}

func (h *hub) broadcast(msg []byte) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for _, ch := range h.clients {
		select {
		case ch <- msg:
		default: // slow client — drop candle
		}
	}
}

// ─── WebSocket handler ────────────────────────────────────────────────────────

var upgrader = websocket.Upgrader{
	CheckOrigin: func(_ *http.Request) bool { return true },
}

func wsHandler(h *hub) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			log.Printf("[tickserver] upgrade error: %v", err)
			return
		}
		log.Printf("[tickserver] client connected: %s", r.RemoteAddr)

		ch := h.register(conn)
		defer func() {
			h.unregister(conn)
			conn.Close()
			log.Printf("[tickserver] client disconnected: %s", r.RemoteAddr)
		}()

		// Write pump: sends candle JSON to this client.
		for msg := range ch {
			conn.SetWriteDeadline(time.Now().Add(5 * time.Second))
			if err := conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				return
			}
		}
	}
}

// ─── Candle generator ─────────────────────────────────────────────────────────

// walkPrice applies a tiny random walk (±0.1%) to simulate price movement.
func walkPrice(price float64) float64 {
	pct := (rand.Float64()*0.2 - 0.1) / 100.0
	newPrice := price * (1 + pct)
	if newPrice < 0.01 {
		newPrice = 0.01
	}
	return newPrice
}

func runGenerator(h *hub, instruments []instrument, intervalMs, bucketSec int) {
	ticker := time.NewTicker(time.Duration(intervalMs) * time.Millisecond)
	defer ticker.Stop()

	bucketLen := time.Duration(bucketSec) * time.Second

	for range ticker.C {
		now := time.Now().UTC()
		bucketStart := now.Truncate(bucketLen)

		for i := range instruments {
			inst := &instruments[i]
			inst.Price = walkPrice(inst.Price)

			// New bucket: close out the previous one first.
			if !inst.bucket.OpenTime.Equal(bucketStart) {
				if !inst.bucket.OpenTime.IsZero() {
					inst.bucket.Closed = true
					if b, err := json.Marshal(inst.bucket); err == nil {
						h.broadcast(b)
					}
				}
				inst.bucket = candleMsg{
					Symbol:   inst.Symbol,
					OpenTime: bucketStart,
					Open:     inst.Price,
					High:     inst.Price,
					Low:      inst.Price,
				}
			}

			inst.bucket.Close = inst.Price
			if inst.Price > inst.bucket.High {
				inst.bucket.High = inst.Price
			}
			if inst.Price < inst.bucket.Low {
				inst.bucket.Low = inst.Price
			}
			inst.bucket.Volume += rand.Float64() * 10

			if b, err := json.Marshal(inst.bucket); err == nil {
				h.broadcast(b)
			}
		}
	}
}

// ─── main ─────────────────────────────────────────────────────────────────────

func main() {
	log.SetFlags(log.LstdFlags | log.Lmicroseconds | log.Lshortfile)
	log.Println("[tickserver] starting demo candle server...")

	addr := envOrDefault("TICK_SERVER_ADDR", ":9001")
	symbolsEnv := envOrDefault("TICK_SYMBOLS", "BTCUSDT:50000")
	intervalMs := envIntOrDefault("TICK_INTERVAL_MS", 250)
	bucketSec := envIntOrDefault("TICK_BUCKET_SEC", 5)

	instruments := parseInstruments(symbolsEnv)
	if len(instruments) == 0 {
		log.Fatalf("[tickserver] no instruments configured via TICK_SYMBOLS")
	}
	log.Printf("[tickserver] instruments: %+v", instruments)
	log.Printf("[tickserver] broadcast interval: %dms, bucket: %ds", intervalMs, bucketSec)

	h := newHub()

	go runGenerator(h, instruments, intervalMs, bucketSec)

	http.HandleFunc("/ws", wsHandler(h))
	http.HandleFunc("/health", func(w http.ResponseWriter, _ *http.Request) {
		fmt.Fprintln(w, `{"status":"ok","service":"tickserver"}`)
	})

	log.Printf("[tickserver] listening on %s  (WebSocket: ws://localhost%s/ws)", addr, addr)
	if err := http.ListenAndServe(addr, nil); err != nil {
		log.Fatalf("[tickserver] server error: %v", err)
	}
}

// ─── helpers ──────────────────────────────────────────────────────────────────

func parseInstruments(s string) []instrument {
	var result []instrument
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		seg := strings.SplitN(part, ":", 2)
		if len(seg) != 2 {
			log.Printf("[tickserver] skipping invalid symbol spec: %q", part)
			continue
		}
		symbol := strings.TrimSpace(seg[0])
		price, err := strconv.ParseFloat(strings.TrimSpace(seg[1]), 64)
		if err != nil || price <= 0 {
			log.Printf("[tickserver] skipping symbol %q: bad start price %q", symbol, seg[1])
			continue
		}
		result = append(result, instrument{Symbol: symbol, Price: price})
	}
	return result
}

func envOrDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func envIntOrDefault(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return def
}
