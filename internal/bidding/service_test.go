package bidding_test

import (
	"context"
	"errors"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"solosphere/bid-service/internal/bidding"
)

// Registrar tests run against the database named by TEST_DATABASE_URL
// and are skipped when it is unset. Each test works with a freshly
// inserted job and a unique buyer, so runs are independent of leftover
// rows; created rows are removed on cleanup.

// newTestService connects a Service to the test database and applies
// the schema. Redis is only touched by best-effort event publishing, so
// it is pointed at nothing and publishes fail quietly.
func newTestService(t *testing.T, ctx context.Context) (*bidding.Service, *pgxpool.Pool) {
	t.Helper()

	url := os.Getenv("TEST_DATABASE_URL")
	if url == "" {
		t.Skip("TEST_DATABASE_URL not set — skipping registrar storage tests")
	}

	pool, err := pgxpool.New(ctx, url)
	if err != nil {
		t.Fatalf("pgxpool.New: %v", err)
	}
	t.Cleanup(pool.Close)

	rdb := redis.NewClient(&redis.Options{Addr: "127.0.0.1:1"})
	svc := bidding.NewService(pool, rdb)
	if err := svc.EnsureSchema(ctx); err != nil {
		t.Fatalf("EnsureSchema: %v", err)
	}
	return svc, pool
}

// createJob inserts a job owned by a unique buyer with a far-future
// deadline and budget 500–1500, and registers row cleanup.
func createJob(t *testing.T, ctx context.Context, svc *bidding.Service, pool *pgxpool.Pool) *bidding.Job {
	t.Helper()

	buyer := fmt.Sprintf("buyer-%s@x.com", uuid.NewString()[:8])
	job, err := svc.AddJob(ctx, bidding.Job{
		Title:    "Build landing page",
		Category: "Web Development",
		Buyer:    bidding.Buyer{Name: "Buyer", Email: buyer},
		Deadline: time.Now().Add(30 * 24 * time.Hour),
		MinPrice: 500,
		MaxPrice: 1500,
	})
	if err != nil {
		t.Fatalf("AddJob: %v", err)
	}
	t.Cleanup(func() {
		_, _ = pool.Exec(context.Background(), `DELETE FROM bids WHERE job_id = $1`, job.ID)
		_, _ = pool.Exec(context.Background(), `DELETE FROM jobs WHERE id = $1`, job.ID)
	})
	return job
}

func submission(job *bidding.Job, email string, price float64) bidding.BidSubmission {
	return bidding.BidSubmission{
		JobID:     job.ID,
		Email:     email,
		Price:     price,
		Comment:   "ok",
		StartDate: time.Now().Add(7 * 24 * time.Hour),
	}
}

func bidCount(t *testing.T, ctx context.Context, svc *bidding.Service, jobID string) int {
	t.Helper()
	job, err := svc.GetJob(ctx, jobID)
	if err != nil {
		t.Fatalf("GetJob: %v", err)
	}
	return job.BidCount
}

// ── One bid per (job, bidder): second submission conflicts, counter stays ──

func TestPlaceBid_DuplicatePairRejected(t *testing.T) {
	ctx := context.Background()
	svc, pool := newTestService(t, ctx)
	job := createJob(t, ctx, svc, pool)

	id, err := svc.PlaceBid(ctx, submission(job, "f@x.com", 1200))
	if err != nil {
		t.Fatalf("first PlaceBid: %v", err)
	}
	if id == "" {
		t.Fatal("first PlaceBid returned an empty id")
	}
	if got := bidCount(t, ctx, svc, job.ID); got != 1 {
		t.Fatalf("bid_count after first bid = %d, want 1", got)
	}

	// Any resubmission by the same bidder conflicts, whatever the price.
	_, err = svc.PlaceBid(ctx, submission(job, "f@x.com", 900))
	if !errors.Is(err, bidding.ErrDuplicateBid) {
		t.Fatalf("second PlaceBid = %v, want ErrDuplicateBid", err)
	}
	if got := bidCount(t, ctx, svc, job.ID); got != 1 {
		t.Errorf("bid_count after duplicate = %d, want 1 (conflict must not move the counter)", got)
	}
}

// ── N distinct bidders move the counter by exactly N ───────────────────────

func TestPlaceBid_CounterTracksBids(t *testing.T) {
	ctx := context.Background()
	svc, pool := newTestService(t, ctx)
	job := createJob(t, ctx, svc, pool)

	const n = 3
	for i := 0; i < n; i++ {
		email := fmt.Sprintf("freelancer%d@x.com", i)
		if _, err := svc.PlaceBid(ctx, submission(job, email, 1000+float64(i))); err != nil {
			t.Fatalf("PlaceBid %s: %v", email, err)
		}
	}

	if got := bidCount(t, ctx, svc, job.ID); got != n {
		t.Errorf("bid_count = %d, want %d", got, n)
	}
	bids, err := svc.ListBidRequests(ctx, job.Buyer.Email)
	if err != nil {
		t.Fatalf("ListBidRequests: %v", err)
	}
	if len(bids) != n {
		t.Errorf("ListBidRequests returned %d bid(s), want %d", len(bids), n)
	}
}

// ── The registrar re-validates; client checks are bypassable ───────────────

func TestPlaceBid_ServerSideValidation(t *testing.T) {
	ctx := context.Background()
	svc, pool := newTestService(t, ctx)
	job := createJob(t, ctx, svc, pool)

	cases := []struct {
		name string
		sub  bidding.BidSubmission
		want error
	}{
		{"buyer bidding on own job", submission(job, job.Buyer.Email, 1200), bidding.ErrSelfBid},
		{"price above maximum", submission(job, "f@x.com", 2000), bidding.ErrPriceAboveMaxBudget},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			if _, err := svc.PlaceBid(ctx, c.sub); !errors.Is(err, c.want) {
				t.Errorf("PlaceBid = %v, want %v", err, c.want)
			}
		})
	}

	if got := bidCount(t, ctx, svc, job.ID); got != 0 {
		t.Errorf("bid_count = %d, want 0 (rejected submissions must not write)", got)
	}

	if _, err := svc.PlaceBid(ctx, submission(&bidding.Job{ID: uuid.NewString()}, "f@x.com", 1200)); !errors.Is(err, bidding.ErrJobNotFound) {
		t.Errorf("PlaceBid against missing job = %v, want ErrJobNotFound", err)
	}
}

// ── Status transitions at the storage level ────────────────────────────────

func TestUpdateBidStatus_Storage(t *testing.T) {
	ctx := context.Background()
	svc, pool := newTestService(t, ctx)
	job := createJob(t, ctx, svc, pool)

	id, err := svc.PlaceBid(ctx, submission(job, "f@x.com", 1200))
	if err != nil {
		t.Fatalf("PlaceBid: %v", err)
	}

	bid, err := svc.UpdateBidStatus(ctx, id, "accepted")
	if err != nil {
		t.Fatalf("UpdateBidStatus(accepted): %v", err)
	}
	if bid.Status != "accepted" {
		t.Errorf("status = %q, want accepted", bid.Status)
	}

	// accepted is terminal
	var verr *bidding.ValidationError
	if _, err := svc.UpdateBidStatus(ctx, id, "rejected"); !errors.As(err, &verr) {
		t.Errorf("UpdateBidStatus(accepted → rejected) = %v, want a ValidationError", err)
	}

	if _, err := svc.UpdateBidStatus(ctx, uuid.NewString(), "accepted"); !errors.Is(err, bidding.ErrBidNotFound) {
		t.Errorf("UpdateBidStatus on missing bid = %v, want ErrBidNotFound", err)
	}
}

// ── Missing row vs storage failure ─────────────────────────────────────────

func TestGetJob_MissingJob(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService(t, ctx)

	if _, err := svc.GetJob(ctx, uuid.NewString()); !errors.Is(err, bidding.ErrJobNotFound) {
		t.Errorf("GetJob = %v, want ErrJobNotFound", err)
	}
}

// A storage outage must not be reported as "job not found": the handler
// maps not-found to 404 but an unavailable database to 500. Uses a lazy,
// already-closed pool, so no database is needed.
func TestGetJob_StorageFailureIsNotNotFound(t *testing.T) {
	ctx := context.Background()

	pool, err := pgxpool.New(ctx, "postgres://127.0.0.1:5432/unreachable")
	if err != nil {
		t.Fatalf("pgxpool.New: %v", err)
	}
	pool.Close()

	svc := bidding.NewService(pool, redis.NewClient(&redis.Options{Addr: "127.0.0.1:1"}))
	_, err = svc.GetJob(ctx, uuid.NewString())
	if err == nil {
		t.Fatal("GetJob on a closed pool returned nil error")
	}
	if errors.Is(err, bidding.ErrJobNotFound) {
		t.Errorf("GetJob = ErrJobNotFound, want a distinct storage error")
	}
}
