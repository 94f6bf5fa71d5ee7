// cmd/gateway — Dashboard WebSocket gateway.
//
// Tails the alert-event Redis stream published by cmd/alertengine and fans
// events out to browser WebSocket clients, with replay backfill for gaps:
//
//	[Redis stream] → [tailer → ring] → [hub → WS clients]
//	                                    └─ REST: /api/events/recent, /api/missed, /api/stats
//
// Config (env vars): GATEWAY_ADDR (default ":8080"), plus the shared
// REDIS_ADDR / REDIS_PASSWORD / REDIS_STREAM.
package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	goredis "github.com/go-redis/redis/v8"

	"trading-dashboard/config"
	"trading-dashboard/internal/gateway"
)

func main() {
	log.SetFlags(log.LstdFlags | log.Lmicroseconds | log.Lshortfile)
	log.Println("[gateway] starting...")

	cfg := config.Load()
	addr := os.Getenv("GATEWAY_ADDR")
	if addr == "" {
		addr = ":8080"
	}

	rdb := goredis.NewClient(&goredis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
	})
	pingCtx, pingCancel := context.WithTimeout(context.Background(), 5*time.Second)
	if err := rdb.Ping(pingCtx).Err(); err != nil {
		pingCancel()
		log.Fatalf("[gateway] redis ping failed: %v", err)
	}
	pingCancel()
	log.Printf("[gateway] connected to redis at %s, tailing %s", cfg.RedisAddr, cfg.RedisStream)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	hub := gateway.NewHub(1000)
	tailer := gateway.NewStreamTailer(rdb, cfg.RedisStream, hub)
	go tailer.Run(ctx)

	mux := http.NewServeMux()
	api := gateway.NewAPI(hub, rdb, cfg.RedisStream, tailer)
	api.Register(mux)

	srv := &http.Server{Addr: addr, Handler: mux}
	go func() {
		log.Printf("[gateway] listening on %s  (WebSocket: ws://localhost%s/ws)", addr, addr)
		if err := srv.ListenAndServe(); err != http.ErrServerClosed {
			log.Fatalf("[gateway] server error: %v", err)
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh
	log.Println("[gateway] shutdown signal received...")
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	srv.Shutdown(shutdownCtx)
	rdb.Close()
	log.Println("[gateway] shutdown complete.")
}
