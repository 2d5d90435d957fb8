// solosphere-bid-service
//
// Backend for the SoloSphere job-bidding marketplace. Exposes a REST
// API used by the web client to implement:
//   - placeBid(jobId, email, price, …)   — validated, duplicate-safe bid registration
//   - bidStatusUpdate(bidId, status)     — buyer accepts/rejects a bid
//   - myBids / bidRequest queries        — per-bidder and per-buyer listings
//   - job CRUD                           — post, list, edit, delete work listings
//
// A bid insert and the parent job's bid_count increment commit in one
// transaction; a cron audit repairs out-of-band counter drift.
// Publishes BID_PLACED / BID_STATUS_CHANGED to Redis for downstream
// consumers. Prometheus metrics are served on a separate port.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"solosphere/bid-service/internal/bidding"
	"solosphere/bid-service/internal/config"
	"solosphere/bid-service/internal/db"
	"solosphere/bid-service/internal/metrics"
	"solosphere/bid-service/internal/reconciler"
)

const version = "1.0.0"

func main() {
	// ── Config ──────────────────────────────────────────────────────────────
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("[bid-service] Config error: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// ── PostgreSQL ───────────────────────────────────────────────────────────
	log.Println("[bid-service] Connecting to PostgreSQL…")
	pool, err := db.NewPostgresPool(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("[bid-service] PostgreSQL: %v", err)
	}
	defer pool.Close()
	log.Println("[bid-service] PostgreSQL connected ✓")

	// ── Redis ────────────────────────────────────────────────────────────────
	log.Println("[bid-service] Connecting to Redis…")
	rdb, err := db.NewRedisClient(ctx, cfg.RedisURL)
	if err != nil {
		log.Fatalf("[bid-service] Redis: %v", err)
	}
	defer rdb.Close()
	log.Println("[bid-service] Redis connected ✓")

	// ── Service ──────────────────────────────────────────────────────────────
	svc := bidding.NewService(pool, rdb)
	if err := svc.EnsureSchema(ctx); err != nil {
		log.Fatalf("[bid-service] Schema: %v", err)
	}

	// ── Reconciler ───────────────────────────────────────────────────────────
	rec := reconciler.New(pool, cfg.ReconcileIntervalHrs)
	if err := rec.Start(ctx); err != nil {
		log.Fatalf("[bid-service] Reconciler: %v", err)
	}
	defer rec.Stop()

	// ── Metrics ──────────────────────────────────────────────────────────────
	metricsSrv := metrics.StartServer(cfg.MetricsPort, func(ctx context.Context) error {
		return pool.Ping(ctx)
	})
	log.Printf("[bid-service] Metrics listening on :%s", cfg.MetricsPort)

	// ── HTTP server ──────────────────────────────────────────────────────────
	mux := http.NewServeMux()
	mux.HandleFunc("/health", healthHandler)

	h := bidding.NewHandler(svc)
	h.RegisterRoutes(mux)

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%s", cfg.Port),
		Handler:      mux,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
	}

	go func() {
		log.Printf("[bid-service] v%s listening on :%s", version, cfg.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("[bid-service] HTTP server error: %v", err)
		}
	}()

	// ── Graceful shutdown ────────────────────────────────────────────────────
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("[bid-service] Shutting down…")
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("[bid-service] Shutdown error: %v", err)
	}
	if err := metricsSrv.Shutdown(shutdownCtx); err != nil {
		log.Printf("[bid-service] Metrics shutdown error: %v", err)
	}
	log.Println("[bid-service] Stopped.")
}

func healthHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(map[string]string{
		"status":  "ok",
		"service": "bid-service",
		"version": version,
	})
}
