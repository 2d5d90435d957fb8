// Package reconciler wires up the cron job that periodically audits the
// denormalized jobs.bid_count against the real bid rows.
//
// PlaceBid keeps the counter exact in the normal path (same transaction
// as the insert); this sweep repairs drift introduced out-of-band, e.g.
// by operator edits or manual row deletes.
package reconciler

import (
	"context"
	"fmt"
	"log"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/robfig/cron/v3"

	"solosphere/bid-service/internal/metrics"
)

// Reconciler wraps robfig/cron and manages the audit loop.
type Reconciler struct {
	cron *cron.Cron
	pool *pgxpool.Pool
	spec string // cron spec, e.g. "@every 6h"
}

// New creates a Reconciler that fires every intervalHours hours.
func New(pool *pgxpool.Pool, intervalHours int) *Reconciler {
	return &Reconciler{
		cron: cron.New(cron.WithLogger(cron.DefaultLogger)),
		pool: pool,
		spec: fmt.Sprintf("@every %dh", intervalHours),
	}
}

// Start registers the job and starts the scheduler. Also runs one audit
// immediately so startup drift is caught without waiting for the first
// tick.
func (r *Reconciler) Start(ctx context.Context) error {
	_, err := r.cron.AddFunc(r.spec, func() {
		r.runAudit(ctx)
	})
	if err != nil {
		return fmt.Errorf("cron.AddFunc: %w", err)
	}

	r.cron.Start()
	log.Printf("[reconciler] Cron started — spec: %s", r.spec)

	go r.runAudit(ctx)

	return nil
}

// Stop gracefully shuts down the scheduler.
func (r *Reconciler) Stop() {
	r.cron.Stop()
	log.Println("[reconciler] Cron stopped")
}

// runAudit repairs every job whose bid_count disagrees with the number
// of bid rows referencing it, and logs each correction.
func (r *Reconciler) runAudit(ctx context.Context) {
	log.Println("[reconciler] Audit cycle started")

	rows, err := r.pool.Query(ctx,
		`UPDATE jobs j
		 SET bid_count = c.actual
		 FROM (
		   SELECT j2.id, COUNT(b.id)::int AS actual
		   FROM jobs j2
		   LEFT JOIN bids b ON b.job_id = j2.id
		   GROUP BY j2.id
		 ) c
		 WHERE c.id = j.id AND j.bid_count <> c.actual
		 RETURNING j.id, j.bid_count`,
	)
	if err != nil {
		log.Printf("[reconciler] Audit query error: %v", err)
		return
	}
	defer rows.Close()

	repaired := 0
	for rows.Next() {
		var jobID string
		var count int
		if err := rows.Scan(&jobID, &count); err != nil {
			log.Printf("[reconciler] Audit scan error: %v", err)
			return
		}
		log.Printf("[reconciler] Repaired bid_count for job %s → %d", jobID, count)
		metrics.CounterDrift.Inc()
		repaired++
	}

	if repaired == 0 {
		log.Println("[reconciler] Audit cycle complete — no drift")
	} else {
		log.Printf("[reconciler] Audit cycle complete — repaired %d job(s)", repaired)
	}
}
