// Package metrics exposes the service's Prometheus collectors and a
// lightweight HTTP server for /metrics and /healthz, run alongside the
// main API listener.
package metrics

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// BidsPlaced counts successfully registered bids.
	BidsPlaced = promauto.NewCounter(prometheus.CounterOpts{
		Name: "bid_service_bids_placed_total",
		Help: "Number of bids accepted and persisted.",
	})

	// DuplicateBids counts submissions rejected by the (job, bidder)
	// uniqueness constraint.
	DuplicateBids = promauto.NewCounter(prometheus.CounterOpts{
		Name: "bid_service_duplicate_bids_total",
		Help: "Number of bid submissions rejected as duplicates.",
	})

	// ValidationRejections counts server-side validation failures,
	// labelled by rejection reason.
	ValidationRejections = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "bid_service_validation_rejections_total",
		Help: "Number of bid submissions rejected by validation, by reason.",
	}, []string{"reason"})

	// CounterDrift counts jobs whose bid_count the reconciler had to repair.
	CounterDrift = promauto.NewCounter(prometheus.CounterOpts{
		Name: "bid_service_bid_count_repairs_total",
		Help: "Number of jobs whose denormalized bid_count was corrected.",
	})
)

// HealthFunc reports whether the service's dependencies are reachable.
type HealthFunc func(ctx context.Context) error

// StartServer runs a small HTTP server serving /metrics and /healthz in
// a background goroutine and returns it so main can shut it down.
func StartServer(port string, healthFn HealthFunc) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 500*time.Millisecond)
		defer cancel()

		if err := healthFn(ctx); err != nil {
			w.WriteHeader(http.StatusServiceUnavailable)
			fmt.Fprintf(w, "unhealthy: %v", err)
			return
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	srv := &http.Server{Addr: ":" + port, Handler: mux}
	go func() {
		_ = srv.ListenAndServe()
	}()
	return srv
}
