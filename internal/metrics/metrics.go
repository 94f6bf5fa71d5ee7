package metrics

import (
	"context"
	"database/sql"
	"encoding/json"
	"log"
	"net/http"
	"sync"
	"time"

	goredis "github.com/go-redis/redis/v8"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus metrics for the alert engine.
type Metrics struct {
	CandlesTotal prometheus.Counter
	TicksTotal   prometheus.Counter
	WSReconnects prometheus.Counter

	// Per-type event counters (ALERT_TRIGGERED, TRAILING_STOP_ACTIVATED, ...)
	EventsTotal *prometheus.CounterVec

	// Alert evaluation
	AlertsSuppressed prometheus.Counter
	AlertsActive     prometheus.Gauge
	EvalDur          prometheus.Histogram

	// Trailing stops
	StopTransitions *prometheus.CounterVec // labels: state
	StopsActive     prometheus.Gauge

	// Notification dispatch
	Deliveries *prometheus.CounterVec // labels: channel, outcome

	// Persistence
	JournalWriteDur prometheus.Histogram
	RedisWriteDur   prometheus.Histogram

	// Circuit breaker
	PublisherBreakerState prometheus.Gauge // 0=closed, 1=open, 2=half-open
	PublisherBreakerTrips prometheus.Counter

	// Backpressure
	DroppedEvents *prometheus.CounterVec // labels: stage
}

// NewMetrics registers and returns all Prometheus metrics.
func NewMetrics() *Metrics {
	m := &Metrics{
		CandlesTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "alertengine_candles_total",
			Help: "Total candle updates received from the feed",
		}),
		TicksTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "alertengine_ticks_total",
			Help: "Total evaluation ticks processed by the engine loop",
		}),
		WSReconnects: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "alertengine_ws_reconnects_total",
			Help: "Total WebSocket reconnection attempts",
		}),

		EventsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "alertengine_events_total",
			Help: "Total alert events emitted (by event type)",
		}, []string{"type"}),

		AlertsSuppressed: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "alertengine_alerts_suppressed_total",
			Help: "Alert triggers suppressed by the rate limiter",
		}),
		AlertsActive: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "alertengine_alerts_active",
			Help: "Number of registered alerts",
		}),
		EvalDur: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "alertengine_eval_duration_seconds",
			Help:    "Evaluation latency per candle update",
			Buckets: []float64{0.000001, 0.000005, 0.00001, 0.00005, 0.0001, 0.0005, 0.001},
		}),

		StopTransitions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "alertengine_stop_transitions_total",
			Help: "Trailing stop state transitions (by target state)",
		}, []string{"state"}),
		StopsActive: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "alertengine_stops_active",
			Help: "Number of live trailing stops",
		}),

		Deliveries: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "alertengine_deliveries_total",
			Help: "Notification delivery outcomes (by channel and outcome)",
		}, []string{"channel", "outcome"}),

		JournalWriteDur: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "alertengine_journal_write_duration_seconds",
			Help:    "SQLite journal write latency",
			Buckets: prometheus.DefBuckets,
		}),
		RedisWriteDur: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "alertengine_redis_write_duration_seconds",
			Help:    "Redis stream publish latency",
			Buckets: prometheus.DefBuckets,
		}),

		PublisherBreakerState: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "alertengine_publisher_breaker_state",
			Help: "Redis publisher circuit breaker state (0=closed, 1=open, 2=half-open)",
		}),
		PublisherBreakerTrips: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "alertengine_publisher_breaker_trips_total",
			Help: "Times the Redis publisher circuit breaker tripped open",
		}),

		DroppedEvents: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "alertengine_dropped_events_total",
			Help: "Events dropped due to full channels (by pipeline stage)",
		}, []string{"stage"}),
	}

	prometheus.MustRegister(
		m.CandlesTotal,
		m.TicksTotal,
		m.WSReconnects,
		m.EventsTotal,
		m.AlertsSuppressed,
		m.AlertsActive,
		m.EvalDur,
		m.StopTransitions,
		m.StopsActive,
		m.Deliveries,
		m.JournalWriteDur,
		m.RedisWriteDur,
		m.PublisherBreakerState,
		m.PublisherBreakerTrips,
		m.DroppedEvents,
	)

	return m
}

// HealthStatus represents the system health.
type HealthStatus struct {
	mu sync.RWMutex

	WSConnected    bool      `json:"ws_connected"`
	LastCandleTime time.Time `json:"last_candle_time"`
	RedisConnected bool      `json:"redis_connected"`
	SQLiteOK       bool      `json:"sqlite_ok"`

	// Liveness probe results
	RedisLatencyMs  float64   `json:"redis_latency_ms"`
	SQLiteLatencyMs float64   `json:"sqlite_latency_ms"`
	LastCheckAt     time.Time `json:"last_check_at"`
	StartedAt       time.Time `json:"started_at"`
}

// NewHealthStatus returns a default health status.
func NewHealthStatus() *HealthStatus {
	return &HealthStatus{
		StartedAt: time.Now(),
	}
}

func (h *HealthStatus) SetWSConnected(v bool) {
	h.mu.Lock()
	h.WSConnected = v
	h.mu.Unlock()
}

func (h *HealthStatus) SetLastCandleTime(t time.Time) {
	h.mu.Lock()
	h.LastCandleTime = t
	h.mu.Unlock()
}

// CheckRedis pings Redis and records latency + connectivity.
func (h *HealthStatus) CheckRedis(ctx context.Context, rdb *goredis.Client) {
	start := time.Now()
	err := rdb.Ping(ctx).Err()
	latency := time.Since(start)

	h.mu.Lock()
	h.RedisConnected = err == nil
	h.RedisLatencyMs = float64(latency.Microseconds()) / 1000.0
	h.LastCheckAt = time.Now()
	h.mu.Unlock()
}

// CheckSQLite runs a trivial query and records latency + health.
func (h *HealthStatus) CheckSQLite(ctx context.Context, db *sql.DB) {
	start := time.Now()
	err := db.PingContext(ctx)
	latency := time.Since(start)

	h.mu.Lock()
	h.SQLiteOK = err == nil
	h.SQLiteLatencyMs = float64(latency.Microseconds()) / 1000.0
	h.LastCheckAt = time.Now()
	h.mu.Unlock()
}

// StartLivenessChecker runs periodic dependency checks.
func (h *HealthStatus) StartLivenessChecker(ctx context.Context, rdb *goredis.Client, sqlDB *sql.DB, interval time.Duration) {
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				probeCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
				if rdb != nil {
					h.CheckRedis(probeCtx, rdb)
				}
				if sqlDB != nil {
					h.CheckSQLite(probeCtx, sqlDB)
				}
				cancel()
			}
		}
	}()
}

// ServeHTTP handles the /healthz endpoint.
func (h *HealthStatus) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	overallStatus := "healthy"
	httpCode := http.StatusOK

	if !h.WSConnected || !h.RedisConnected || !h.SQLiteOK {
		overallStatus = "degraded"
		httpCode = http.StatusServiceUnavailable
	}
	if !h.RedisConnected && !h.SQLiteOK {
		overallStatus = "unhealthy"
	}

	candleAge := ""
	if !h.LastCandleTime.IsZero() {
		candleAge = time.Since(h.LastCandleTime).Round(time.Millisecond).String()
	}

	status := struct {
		Status          string  `json:"status"`
		Uptime          string  `json:"uptime"`
		WSConnected     bool    `json:"ws_connected"`
		LastCandleTime  string  `json:"last_candle_time"`
		CandleAge       string  `json:"candle_age"`
		RedisConnected  bool    `json:"redis_connected"`
		RedisLatencyMs  float64 `json:"redis_latency_ms"`
		SQLiteOK        bool    `json:"sqlite_ok"`
		SQLiteLatencyMs float64 `json:"sqlite_latency_ms"`
		LastCheckAt     string  `json:"last_check_at"`
	}{
		Status:          overallStatus,
		Uptime:          time.Since(h.StartedAt).Round(time.Second).String(),
		WSConnected:     h.WSConnected,
		LastCandleTime:  h.LastCandleTime.Format(time.RFC3339),
		CandleAge:       candleAge,
		RedisConnected:  h.RedisConnected,
		RedisLatencyMs:  h.RedisLatencyMs,
		SQLiteOK:        h.SQLiteOK,
		SQLiteLatencyMs: h.SQLiteLatencyMs,
		LastCheckAt:     h.LastCheckAt.Format(time.RFC3339),
	}

	w.Header().Set("Content-Type", "application/json")
	if httpCode != http.StatusOK {
		w.WriteHeader(httpCode)
	}
	json.NewEncoder(w).Encode(status)
}

// Server runs an HTTP server exposing /metrics and /healthz.
type Server struct {
	health *HealthStatus
	addr   string
	srv    *http.Server
}

// NewServer creates a metrics and health server.
func NewServer(addr string, health *HealthStatus) *Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/healthz", health.ServeHTTP)

	return &Server{
		health: health,
		addr:   addr,
		srv: &http.Server{
			Addr:    addr,
			Handler: mux,
		},
	}
}

// Start launches the HTTP server in a goroutine.
func (s *Server) Start() {
	go func() {
		log.Printf("[metrics] server listening on %s", s.addr)
		if err := s.srv.ListenAndServe(); err != http.ErrServerClosed {
			log.Printf("[metrics] server error: %v", err)
		}
	}()
}

// Stop gracefully shuts down the metrics server.
func (s *Server) Stop(ctx context.Context) {
	s.srv.Shutdown(ctx)
}
