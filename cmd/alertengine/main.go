// cmd/alertengine — Signal evaluation and trailing-risk engine.
//
// Pipeline:
//
//	[Candle WS] → [Engine loop: evaluator + trailing stops] → [Event fan-out]
//	                                                            ├─ dispatcher (webhook/telegram/email/in-app)
//	                                                            └─ SQLite journal
//	Stop instructions → [Execution runner] → order placer
package main

import (
	"context"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"trading-dashboard/config"
	"trading-dashboard/internal/alert"
	"trading-dashboard/internal/clock"
	"trading-dashboard/internal/dispatch"
	"trading-dashboard/internal/engine"
	"trading-dashboard/internal/eventbus"
	"trading-dashboard/internal/execution"
	"trading-dashboard/internal/logger"
	"trading-dashboard/internal/marketdata/ws"
	"trading-dashboard/internal/metrics"
	"trading-dashboard/internal/model"
	"trading-dashboard/internal/position"
	"trading-dashboard/internal/ratelimit"
	redisstore "trading-dashboard/internal/store/redis"
	sqlitestore "trading-dashboard/internal/store/sqlite"
	"trading-dashboard/internal/trailing"
)

func main() {
	log.SetFlags(log.LstdFlags | log.Lmicroseconds | log.Lshortfile)
	logger.Init("alertengine", slog.LevelInfo)
	log.Println("[alertengine] starting...")

	cfg := config.Load()
	symbols := cfg.ParseSymbols()
	log.Printf("[alertengine] tracking symbols: %v", symbols)

	// ---- Setup pipeline channels ----
	candleCh := make(chan model.Candle, 5000)
	eventCh := make(chan model.AlertEvent, 1000)
	instrCh := make(chan model.StopInstruction, 256)

	// ---- Setup metrics & health ----
	prom := metrics.NewMetrics()
	health := metrics.NewHealthStatus()
	metricsSrv := metrics.NewServer(cfg.MetricsAddr, health)
	metricsSrv.Start()

	// ---- Setup context for graceful shutdown ----
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	// ---- SQLite event journal (off hot path) ----
	os.MkdirAll("data", 0o755)
	journal, err := sqlitestore.NewJournal(cfg.SQLitePath)
	if err != nil {
		log.Fatalf("[alertengine] journal init failed: %v", err)
	}
	defer journal.Close()
	journal.OnWrite = func(d time.Duration) {
		prom.JournalWriteDur.Observe(d.Seconds())
	}
	log.Println("[alertengine] event journal ready")

	// ---- Redis stream publisher (in-app feed) ----
	var publisher *redisstore.Publisher
	publisher, err = redisstore.NewPublisher(redisstore.PublisherConfig{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		Stream:   cfg.RedisStream,
	})
	if err != nil {
		log.Printf("[alertengine] WARNING: redis init failed: %v (continuing without in-app feed)", err)
	} else {
		publisher.OnBreakerChange = func(_, to redisstore.State) {
			prom.PublisherBreakerState.Set(float64(to))
			if to == redisstore.StateOpen {
				prom.PublisherBreakerTrips.Inc()
			}
		}
		publisher.OnWrite = func(d time.Duration) {
			prom.RedisWriteDur.Observe(d.Seconds())
		}
		log.Println("[alertengine] redis publisher ready")
	}

	// ---- Periodic liveness checks ----
	if publisher != nil {
		health.StartLivenessChecker(ctx, publisher.Client(), journal.DB(), 10*time.Second)
	} else {
		health.StartLivenessChecker(ctx, nil, journal.DB(), 10*time.Second)
	}

	// ---- Core: evaluator, trailing engine, positions ----
	clk := clock.New()
	guard := ratelimit.NewGuard(ratelimit.Config{
		MaxPerHour: cfg.AlertMaxPerHour,
		MaxPerDay:  cfg.AlertMaxPerDay,
	})
	evaluator := alert.NewEvaluator(guard, clk)
	evaluator.OnSuppressed = func(_ *alert.Alert) {
		prom.AlertsSuppressed.Inc()
	}

	stops := trailing.NewEngine()
	stops.OnTransition = func(s *trailing.Stop) {
		prom.StopTransitions.WithLabelValues(string(s.State)).Inc()
	}

	positions := position.NewStore()

	eng := engine.New(engine.Config{SeriesWindow: cfg.SeriesWindow},
		evaluator, stops, positions, clk, eventCh, instrCh)
	// OnTick runs on the evaluation goroutine, so reading evaluator and stop
	// counts here needs no locking.
	eng.OnTick = func(c model.Candle, elapsed time.Duration) {
		prom.TicksTotal.Inc()
		prom.EvalDur.Observe(elapsed.Seconds())
		prom.AlertsActive.Set(float64(evaluator.Len()))
		prom.StopsActive.Set(float64(stops.Active()))
		health.SetLastCandleTime(c.OpenTime)
	}
	eng.OnEventDropped = func() {
		prom.DroppedEvents.WithLabelValues("engine").Inc()
	}
	go eng.Run(ctx, candleCh)

	// ---- Event fan-out: dispatcher + journal ----
	fanout := eventbus.New(1000)
	fanout.OnDrop = func(_ int) {
		prom.DroppedEvents.WithLabelValues("fanout").Inc()
	}
	dispatchCh := fanout.Subscribe()
	journalCh := fanout.Subscribe()
	go fanout.Run(ctx, eventCh)

	go journal.Run(ctx, journalCh)

	// ---- Notification dispatcher ----
	dispatcher := dispatch.NewDispatcher(cfg.ParseRetryAttempts(), clk)
	dispatcher.OnOutcome = func(channel string, outcome dispatch.Outcome) {
		prom.Deliveries.WithLabelValues(channel, string(outcome)).Inc()
	}
	registerChannels(dispatcher, cfg, publisher)

	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case ev, ok := <-dispatchCh:
				if !ok {
					return
				}
				prom.EventsTotal.WithLabelValues(string(ev.Type)).Inc()
				dispatcher.Dispatch(ctx, ev)
			}
		}
	}()

	// ---- Execution runner (paper placer) ----
	runner := execution.NewRunner(execution.NewPaperPlacer(), 256)
	go runner.Run(ctx, instrCh)

	// ---- Candle ingest ----
	ingest, err := ws.New(ws.Config{URL: cfg.StreamURL})
	if err != nil {
		log.Fatalf("[alertengine] ingest init failed: %v", err)
	}
	ingest.OnReconnect = func() {
		prom.WSReconnects.Inc()
		health.SetWSConnected(false)
	}
	ingest.OnCandle = func(_ model.Candle) {
		prom.CandlesTotal.Inc()
	}
	health.SetWSConnected(true)
	go func() {
		if err := ingest.Start(ctx, candleCh); err != nil {
			log.Printf("[alertengine] ingest error: %v", err)
			health.SetWSConnected(false)
		}
	}()

	log.Printf("[alertengine] pipeline ready, feed=%s metrics=%s", cfg.StreamURL, cfg.MetricsAddr)

	// ---- Wait for shutdown signal ----
	<-sigCh
	log.Println("[alertengine] shutdown signal received, cleaning up...")
	cancel()

	// Let in-flight deliveries finish before closing sinks
	dispatcher.Wait()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	metricsSrv.Stop(shutdownCtx)

	if publisher != nil {
		publisher.Close()
	}

	log.Println("[alertengine] shutdown complete.")
}

// registerChannels wires every channel that has credentials configured.
// The email channel gets its own rate-limit guard.
func registerChannels(d *dispatch.Dispatcher, cfg *config.Config, publisher *redisstore.Publisher) {
	d.Register(dispatch.NewLogChannel(), nil)

	if cfg.WebhookURL != "" {
		d.Register(dispatch.NewWebhookChannel(cfg.WebhookURL), nil)
		log.Println("[alertengine] webhook channel enabled")
	}

	if cfg.TelegramBotToken != "" && cfg.TelegramChatID != "" {
		d.Register(dispatch.NewTelegramChannel(cfg.TelegramBotToken, cfg.TelegramChatID), nil)
		log.Println("[alertengine] telegram channel enabled")
	}

	if cfg.SMTPHost != "" && cfg.SMTPFrom != "" && cfg.SMTPTo != "" {
		port, err := strconv.Atoi(cfg.SMTPPort)
		if err != nil || port <= 0 {
			port = 587
		}
		emailGuard := ratelimit.NewGuard(ratelimit.Config{
			MaxPerHour: cfg.EmailMaxPerHour,
			MaxPerDay:  cfg.EmailMaxPerDay,
		})
		d.Register(dispatch.NewEmailChannel(dispatch.EmailConfig{
			Host:     cfg.SMTPHost,
			Port:     port,
			From:     cfg.SMTPFrom,
			To:       splitList(cfg.SMTPTo),
			Username: cfg.SMTPUsername,
			Password: cfg.SMTPPassword,
		}), emailGuard)
		log.Println("[alertengine] email channel enabled")
	}

	if publisher != nil {
		d.Register(dispatch.NewInAppChannel(publisher), nil)
		log.Println("[alertengine] in-app channel enabled")
	}
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
