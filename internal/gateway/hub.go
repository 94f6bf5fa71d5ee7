// Package gateway serves the browser-facing side of the dashboard: it tails
// the Redis alert-event stream and fans events out to WebSocket clients, with
// a replay buffer for gap backfill after brief disconnects.
package gateway

import (
	"log"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"trading-dashboard/internal/model"
)

// Hub manages WebSocket clients and event fan-out.
type Hub struct {
	mu      sync.RWMutex
	clients map[*Client]bool
	seq     int64

	// Replay buffer of recent envelopes for gap backfill
	replay *ReplayBuffer

	// End-to-end delivery latency (event timestamp → broadcast)
	Latency *LatencyTracker
}

// NewHub creates a Hub with a replay buffer of the given capacity.
func NewHub(replayCap int) *Hub {
	return &Hub{
		clients: make(map[*Client]bool),
		replay:  NewReplayBuffer(replayCap),
		Latency: NewLatencyTracker(10000),
	}
}

var upgrader = websocket.Upgrader{
	CheckOrigin: func(_ *http.Request) bool { return true },
}

// HandleWS upgrades the HTTP connection and registers the client.
func (h *Hub) HandleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("[gateway] upgrade error: %v", err)
		return
	}

	client := &Client{
		conn:    conn,
		send:    make(chan []byte, 256),
		hub:     h,
		symbols: make(map[string]bool),
	}
	conn.EnableWriteCompression(true)

	h.mu.Lock()
	h.clients[client] = true
	count := len(h.clients)
	h.mu.Unlock()

	log.Printf("[gateway] ws client connected (%d total)", count)

	// Backfill from a ?from_seq= query param, then live stream.
	if fromSeq, err := strconv.ParseInt(r.URL.Query().Get("from_seq"), 10, 64); err == nil {
		go client.sendBackfill(fromSeq)
	}
	go client.writePump()
	go client.readPump()
}

// RemoveClient removes a client from the hub.
func (h *Hub) RemoveClient(c *Client) {
	h.mu.Lock()
	if _, ok := h.clients[c]; ok {
		delete(h.clients, c)
		close(c.send)
	}
	h.mu.Unlock()
}

// Broadcast builds the wire envelope for an event, records it for replay, and
// fans it out to every subscribed client. Slow clients drop.
//
// The envelope is hand-crafted JSON; the event payload is pre-encoded once.
func (h *Hub) Broadcast(ev model.AlertEvent) {
	now := time.Now().UTC()

	if h.Latency != nil && ev.Timestamp > 0 {
		ageMs := float64(now.UnixMilli() - ev.Timestamp)
		if ageMs >= 0 {
			h.Latency.Record(ageMs)
		}
	}

	h.mu.Lock()
	h.seq++
	seq := h.seq
	h.mu.Unlock()

	data := ev.JSON()
	buf := make([]byte, 0, len(data)+96)
	buf = append(buf, `{"type":"event","seq":`...)
	buf = strconv.AppendInt(buf, seq, 10)
	buf = append(buf, `,"ts":"`...)
	buf = now.AppendFormat(buf, time.RFC3339Nano)
	buf = append(buf, `","event":`...)
	buf = append(buf, data...)
	buf = append(buf, '}')

	h.replay.Push(seq, buf)

	h.mu.RLock()
	defer h.mu.RUnlock()
	for client := range h.clients {
		if !client.wantsSymbol(ev.Symbol) {
			continue
		}
		select {
		case client.send <- buf:
		default: // slow client — drop
		}
	}
}

// ReplayRange returns buffered envelopes with seq in [fromSeq, toSeq].
func (h *Hub) ReplayRange(fromSeq, toSeq int64) [][]byte {
	entries := h.replay.Range(fromSeq, toSeq)
	result := make([][]byte, len(entries))
	for i, e := range entries {
		result[i] = e.Data
	}
	return result
}

// Seq returns the current global sequence number.
func (h *Hub) Seq() int64 {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.seq
}

// ClientCount returns the number of connected WS clients.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}
