package gateway

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	goredis "github.com/go-redis/redis/v8"
)

// API exposes the gateway's REST endpoints.
type API struct {
	hub    *Hub
	client *goredis.Client
	stream string
	tailer *StreamTailer
	start  time.Time
}

// NewAPI creates the REST handler set.
func NewAPI(hub *Hub, client *goredis.Client, stream string, tailer *StreamTailer) *API {
	return &API{hub: hub, client: client, stream: stream, tailer: tailer, start: time.Now()}
}

// Register mounts all routes on mux.
func (a *API) Register(mux *http.ServeMux) {
	mux.HandleFunc("/ws", a.hub.HandleWS)
	mux.HandleFunc("/api/events/recent", a.handleRecent)
	mux.HandleFunc("/api/missed", a.handleMissed)
	mux.HandleFunc("/api/stats", a.handleStats)
	mux.HandleFunc("/healthz", a.handleHealthz)
}

// handleRecent returns the newest events from the Redis stream, newest first.
// GET /api/events/recent?limit=50
func (a *API) handleRecent(w http.ResponseWriter, r *http.Request) {
	limit := int64(50)
	if n, err := strconv.ParseInt(r.URL.Query().Get("limit"), 10, 64); err == nil && n > 0 && n <= 1000 {
		limit = n
	}

	msgs, err := a.client.XRevRangeN(r.Context(), a.stream, "+", "-", limit).Result()
	if err != nil {
		http.Error(w, `{"error":"stream read failed"}`, http.StatusServiceUnavailable)
		return
	}

	events := make([]json.RawMessage, 0, len(msgs))
	for _, msg := range msgs {
		if raw, ok := msg.Values["json"].(string); ok {
			events = append(events, json.RawMessage(raw))
		}
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]interface{}{
		"events": events,
		"count":  len(events),
	})
}

// handleMissed returns replay-buffer envelopes for gap backfill.
// GET /api/missed?from=10&to=42
func (a *API) handleMissed(w http.ResponseWriter, r *http.Request) {
	from, err1 := strconv.ParseInt(r.URL.Query().Get("from"), 10, 64)
	to, err2 := strconv.ParseInt(r.URL.Query().Get("to"), 10, 64)
	if err1 != nil || err2 != nil || from > to {
		http.Error(w, `{"error":"from and to are required, from <= to"}`, http.StatusBadRequest)
		return
	}

	envelopes := a.hub.ReplayRange(from, to)

	w.Header().Set("Content-Type", "application/json")
	w.Write([]byte(`{"envelopes":[`))
	for i, env := range envelopes {
		if i > 0 {
			w.Write([]byte{','})
		}
		w.Write(env)
	}
	w.Write([]byte(`],"count":` + strconv.Itoa(len(envelopes)) + `}`))
}

// handleStats reports gateway runtime statistics.
func (a *API) handleStats(w http.ResponseWriter, r *http.Request) {
	p50, p95, p99 := a.hub.Latency.Percentiles()
	stats := map[string]interface{}{
		"clients":       a.hub.ClientCount(),
		"seq":           a.hub.Seq(),
		"uptime":        time.Since(a.start).Round(time.Second).String(),
		"latency_p50":   p50,
		"latency_p95":   p95,
		"latency_p99":   p99,
		"ring_overflow": a.tailer.Overflow(),
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(stats)
}

func (a *API) handleHealthz(w http.ResponseWriter, r *http.Request) {
	if err := a.client.Ping(r.Context()).Err(); err != nil {
		http.Error(w, `{"status":"degraded","redis":false}`, http.StatusServiceUnavailable)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.Write([]byte(`{"status":"ok","redis":true}`))
}
