package bidding

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"solosphere/bid-service/internal/metrics"
)

// ─── Service ─────────────────────────────────────────────────────────────────

// Service is the authoritative bid registrar plus the job/bid read and
// write surface around it. It has no dependency on net/http — it can be
// used by any transport layer.
type Service struct {
	pool *pgxpool.Pool
	rdb  *redis.Client
}

// NewService returns a configured Service.
func NewService(pool *pgxpool.Pool, rdb *redis.Client) *Service {
	return &Service{pool: pool, rdb: rdb}
}

// schema is applied at startup. The UNIQUE (job_id, email) index is the
// storage-level backstop for the one-bid-per-user-per-job rule: the
// insert in PlaceBid relies on it rather than on a racy check-then-insert.
// job_id carries no foreign key — the jobs/bids link is application-level.
const schema = `
CREATE TABLE IF NOT EXISTS jobs (
	id          UUID PRIMARY KEY,
	title       TEXT NOT NULL,
	category    TEXT NOT NULL,
	description TEXT NOT NULL DEFAULT '',
	buyer_name  TEXT NOT NULL,
	buyer_email TEXT NOT NULL,
	buyer_photo TEXT NOT NULL DEFAULT '',
	deadline    TIMESTAMPTZ NOT NULL,
	min_price   DOUBLE PRECISION NOT NULL,
	max_price   DOUBLE PRECISION NOT NULL,
	bid_count   INTEGER NOT NULL DEFAULT 0,
	CHECK (min_price <= max_price),
	CHECK (bid_count >= 0)
);

CREATE TABLE IF NOT EXISTS bids (
	id         UUID PRIMARY KEY,
	job_id     UUID NOT NULL,
	email      TEXT NOT NULL,
	price      DOUBLE PRECISION NOT NULL,
	comment    TEXT NOT NULL DEFAULT '',
	start_date TIMESTAMPTZ NOT NULL,
	status     TEXT NOT NULL DEFAULT 'pending' CHECK (status IN ('pending', 'accepted', 'rejected')),
	created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
	UNIQUE (job_id, email)
);

CREATE INDEX IF NOT EXISTS bids_email_idx ON bids (email);
CREATE INDEX IF NOT EXISTS jobs_buyer_email_idx ON jobs (buyer_email);
`

// EnsureSchema creates the jobs/bids tables and indexes if missing.
func (s *Service) EnsureSchema(ctx context.Context) error {
	if _, err := s.pool.Exec(ctx, schema); err != nil {
		return fmt.Errorf("ensureSchema: %w", err)
	}
	return nil
}

// ─── Bid registrar ───────────────────────────────────────────────────────────

// PlaceBid registers a bid against a job. It re-runs the full
// pre-submission validation server-side, then inserts the bid and
// increments the job's bid_count in one transaction. Uniqueness of
// (job, bidder) comes from the unique index: a conflicting insert
// affects no rows and the whole transaction is rolled back, so a
// duplicate submission never moves the counter.
// Returns the new bid's id.
func (s *Service) PlaceBid(ctx context.Context, sub BidSubmission) (string, error) {
	job, err := s.GetJob(ctx, sub.JobID)
	if err != nil {
		return "", err
	}

	in := BidInput{Price: sub.Price, Comment: sub.Comment, StartDate: sub.StartDate}
	if err := ValidateBid(job, sub.Email, in, time.Now()); err != nil {
		var verr *ValidationError
		if errors.As(err, &verr) {
			metrics.ValidationRejections.WithLabelValues(verr.Reason).Inc()
		}
		return "", err
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return "", fmt.Errorf("placeBid begin: %w", err)
	}
	defer tx.Rollback(ctx)

	var id string
	err = tx.QueryRow(ctx,
		`INSERT INTO bids (id, job_id, email, price, comment, start_date, status)
		 VALUES ($1, $2, $3, $4, $5, $6, 'pending')
		 ON CONFLICT (job_id, email) DO NOTHING
		 RETURNING id`,
		uuid.NewString(), sub.JobID, sub.Email, sub.Price, sub.Comment, sub.StartDate,
	).Scan(&id)
	if errors.Is(err, pgx.ErrNoRows) {
		metrics.DuplicateBids.Inc()
		return "", ErrDuplicateBid
	}
	if err != nil {
		return "", fmt.Errorf("placeBid insert: %w", err)
	}

	if _, err := tx.Exec(ctx,
		`UPDATE jobs SET bid_count = bid_count + 1 WHERE id = $1`, sub.JobID,
	); err != nil {
		return "", fmt.Errorf("placeBid increment: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return "", fmt.Errorf("placeBid commit: %w", err)
	}

	metrics.BidsPlaced.Inc()
	s.publish(ctx, "BID_PLACED", map[string]string{
		"type":  "BID_PLACED",
		"bidId": id,
		"jobId": sub.JobID,
		"email": sub.Email,
	})

	return id, nil
}

// UpdateBidStatus transitions a bid to a new status.
// Returns ErrBidNotFound if the bid does not exist.
// Returns a ValidationError if the state machine rejects the transition.
func (s *Service) UpdateBidStatus(ctx context.Context, bidID, newStatusStr string) (*Bid, error) {
	newStatus, err := ParseStatus(newStatusStr)
	if err != nil {
		return nil, &ValidationError{Reason: "bad_status", Msg: err.Error()}
	}

	var currentStatusStr string
	err = s.pool.QueryRow(ctx,
		`SELECT status FROM bids WHERE id = $1`, bidID,
	).Scan(&currentStatusStr)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrBidNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("updateBidStatus read: %w", err)
	}

	currentStatus, _ := ParseStatus(currentStatusStr)
	if !IsTransitionAllowed(currentStatus, newStatus) {
		return nil, &ValidationError{
			Reason: "bad_transition",
			Msg:    fmt.Sprintf("transition %s → %s is not allowed", currentStatus, newStatus),
		}
	}

	// Compare-and-swap on the status read above: a concurrent transition
	// between the read and the update leaves this affecting no rows
	// instead of silently overwriting a terminal state.
	var b Bid
	err = s.pool.QueryRow(ctx,
		`UPDATE bids SET status = $1 WHERE id = $2 AND status = $3
		 RETURNING id, job_id, email, price, comment, start_date, status, created_at`,
		string(newStatus), bidID, string(currentStatus),
	).Scan(&b.ID, &b.JobID, &b.Email, &b.Price, &b.Comment, &b.StartDate, &b.Status, &b.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, &ValidationError{
			Reason: "bad_transition",
			Msg:    fmt.Sprintf("bid status changed concurrently, transition to %s rejected", newStatus),
		}
	}
	if err != nil {
		return nil, fmt.Errorf("updateBidStatus: %w", err)
	}

	s.publish(ctx, "BID_STATUS_CHANGED", map[string]string{
		"type":   "BID_STATUS_CHANGED",
		"bidId":  b.ID,
		"jobId":  b.JobID,
		"status": b.Status,
	})

	return &b, nil
}

// ListBidsByBidder returns all bids placed by the given email, newest
// first, with the job's title, category, and buyer joined in.
func (s *Service) ListBidsByBidder(ctx context.Context, email string) ([]Bid, error) {
	return s.listBids(ctx,
		`SELECT b.id, b.job_id, b.email, b.price, b.comment, b.start_date, b.status, b.created_at,
		        COALESCE(j.title, ''), COALESCE(j.category, ''), COALESCE(j.buyer_email, '')
		 FROM bids b
		 LEFT JOIN jobs j ON j.id = b.job_id
		 WHERE b.email = $1
		 ORDER BY b.created_at DESC`,
		email)
}

// ListBidRequests returns all bids placed against jobs owned by the
// given buyer, newest first.
func (s *Service) ListBidRequests(ctx context.Context, buyerEmail string) ([]Bid, error) {
	return s.listBids(ctx,
		`SELECT b.id, b.job_id, b.email, b.price, b.comment, b.start_date, b.status, b.created_at,
		        j.title, j.category, j.buyer_email
		 FROM bids b
		 JOIN jobs j ON j.id = b.job_id
		 WHERE j.buyer_email = $1
		 ORDER BY b.created_at DESC`,
		buyerEmail)
}

func (s *Service) listBids(ctx context.Context, query, arg string) ([]Bid, error) {
	rows, err := s.pool.Query(ctx, query, arg)
	if err != nil {
		return nil, fmt.Errorf("listBids query: %w", err)
	}
	defer rows.Close()

	bids := make([]Bid, 0)
	for rows.Next() {
		var b Bid
		if err := rows.Scan(
			&b.ID, &b.JobID, &b.Email, &b.Price, &b.Comment, &b.StartDate, &b.Status, &b.CreatedAt,
			&b.Title, &b.Category, &b.Buyer,
		); err != nil {
			return nil, fmt.Errorf("listBids scan: %w", err)
		}
		bids = append(bids, b)
	}
	return bids, nil
}

// ─── Job surface ─────────────────────────────────────────────────────────────

const jobColumns = `id, title, category, description, buyer_name, buyer_email, buyer_photo,
	deadline, min_price, max_price, bid_count`

func scanJob(row pgx.Row) (*Job, error) {
	var j Job
	err := row.Scan(
		&j.ID, &j.Title, &j.Category, &j.Description,
		&j.Buyer.Name, &j.Buyer.Email, &j.Buyer.Photo,
		&j.Deadline, &j.MinPrice, &j.MaxPrice, &j.BidCount,
	)
	if err != nil {
		return nil, err
	}
	return &j, nil
}

// GetJob returns a single job by id. A missing row is ErrJobNotFound;
// a storage failure surfaces as such rather than masquerading as 404.
func (s *Service) GetJob(ctx context.Context, jobID string) (*Job, error) {
	j, err := scanJob(s.pool.QueryRow(ctx,
		`SELECT `+jobColumns+` FROM jobs WHERE id = $1`, jobID))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrJobNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("getJob: %w", err)
	}
	return j, nil
}

// ListJobs returns every job, newest deadline first.
func (s *Service) ListJobs(ctx context.Context) ([]Job, error) {
	return s.listJobs(ctx, `SELECT `+jobColumns+` FROM jobs ORDER BY deadline DESC`)
}

// ListJobsByBuyer returns the jobs posted by the given buyer.
func (s *Service) ListJobsByBuyer(ctx context.Context, buyerEmail string) ([]Job, error) {
	return s.listJobs(ctx,
		`SELECT `+jobColumns+` FROM jobs WHERE buyer_email = $1 ORDER BY deadline DESC`,
		buyerEmail)
}

func (s *Service) listJobs(ctx context.Context, query string, args ...any) ([]Job, error) {
	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("listJobs query: %w", err)
	}
	defer rows.Close()

	jobs := make([]Job, 0)
	for rows.Next() {
		j, err := scanJob(rows)
		if err != nil {
			return nil, fmt.Errorf("listJobs scan: %w", err)
		}
		jobs = append(jobs, *j)
	}
	return jobs, nil
}

// AddJob persists a new job posting and returns it with its generated id.
// bid_count starts at zero.
func (s *Service) AddJob(ctx context.Context, job Job) (*Job, error) {
	job.ID = uuid.NewString()
	job.BidCount = 0
	_, err := s.pool.Exec(ctx,
		`INSERT INTO jobs (id, title, category, description, buyer_name, buyer_email, buyer_photo,
		                   deadline, min_price, max_price, bid_count)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, 0)`,
		job.ID, job.Title, job.Category, job.Description,
		job.Buyer.Name, job.Buyer.Email, job.Buyer.Photo,
		job.Deadline, job.MinPrice, job.MaxPrice,
	)
	if err != nil {
		return nil, fmt.Errorf("addJob: %w", err)
	}
	return &job, nil
}

// UpdateJob edits a job's listing fields, validating buyer ownership.
// bid_count is never touched by edits.
func (s *Service) UpdateJob(ctx context.Context, jobID, buyerEmail string, job Job) (*Job, error) {
	updated, err := scanJob(s.pool.QueryRow(ctx,
		`UPDATE jobs
		 SET title = $1, category = $2, description = $3,
		     deadline = $4, min_price = $5, max_price = $6
		 WHERE id = $7 AND buyer_email = $8
		 RETURNING `+jobColumns,
		job.Title, job.Category, job.Description,
		job.Deadline, job.MinPrice, job.MaxPrice,
		jobID, buyerEmail,
	))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrJobNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("updateJob: %w", err)
	}
	return updated, nil
}

// DeleteJob removes a job posting. Bids referencing it are kept: the
// reference is application-level and listing views tolerate the orphan.
func (s *Service) DeleteJob(ctx context.Context, jobID string) error {
	tag, err := s.pool.Exec(ctx, `DELETE FROM jobs WHERE id = $1`, jobID)
	if err != nil {
		return fmt.Errorf("deleteJob: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrJobNotFound
	}
	return nil
}

// ─── Event publishing ────────────────────────────────────────────────────────

// publish sends a JSON event to a Redis channel. Non-fatal: delivery is
// best-effort, failures are logged and the caller's write stands.
func (s *Service) publish(ctx context.Context, channel string, payload map[string]string) {
	event, _ := json.Marshal(payload)
	if err := s.rdb.Publish(ctx, channel, event).Err(); err != nil {
		slog.Warn("publish failed", "channel", channel, "err", err)
	}
}

// ─── Sentinel errors ─────────────────────────────────────────────────────────

// ErrJobNotFound is returned when a job id matches nothing.
var ErrJobNotFound = errors.New("job not found")

// ErrBidNotFound is returned when a bid id matches nothing.
var ErrBidNotFound = errors.New("bid not found")

// ErrDuplicateBid is returned when (job, bidder) already has a bid.
// The message is shown to the user as-is.
var ErrDuplicateBid = errors.New("You have already placed a bid on this job!")
