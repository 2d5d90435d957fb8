// Package bidding contains the business logic for the bid service:
// pre-submission validation, bid registration with per-(job, bidder)
// uniqueness, bid status transitions, and the job/bid read surface.
// It is transport-agnostic: used by the HTTP handler (same package) and
// by the client gate in pkg/bidclient.
package bidding

import "time"

// Buyer identifies the account that posted a Job.
type Buyer struct {
	Name  string `json:"name"`
	Email string `json:"email"`
	Photo string `json:"photo"`
}

// Job is the JSON shape of a work listing, as stored and as returned to
// clients. BidCount is a denormalized aggregate maintained by PlaceBid
// in the same transaction as the bid insert.
type Job struct {
	ID          string    `json:"_id"`
	Title       string    `json:"title"`
	Category    string    `json:"category"`
	Description string    `json:"description"`
	Buyer       Buyer     `json:"buyer"`
	Deadline    time.Time `json:"deadline"`
	MinPrice    float64   `json:"min_price"`
	MaxPrice    float64   `json:"max_price"`
	BidCount    int       `json:"bid_count"`
}

// BidInput is the raw form input a freelancer submits against a Job,
// before validation.
type BidInput struct {
	Price     float64   `json:"price"`
	Comment   string    `json:"comment"`
	StartDate time.Time `json:"startDate"`
}

// BidSubmission is the validated record handed to PlaceBid: form input
// plus the explicit identity of the bidder and the target job.
type BidSubmission struct {
	JobID     string    `json:"jobId"`
	Email     string    `json:"email"`
	Price     float64   `json:"price"`
	Comment   string    `json:"comment"`
	StartDate time.Time `json:"startDate"`
}

// Bid is the JSON shape of a stored bid. Title and Category are joined
// in from the referenced Job for the listing views.
type Bid struct {
	ID        string    `json:"_id"`
	JobID     string    `json:"jobId"`
	Email     string    `json:"email"`
	Price     float64   `json:"price"`
	Comment   string    `json:"comment"`
	StartDate time.Time `json:"startDate"`
	Status    string    `json:"status"`
	CreatedAt time.Time `json:"createdAt"`
	Title     string    `json:"title,omitempty"`
	Category  string    `json:"category,omitempty"`
	Buyer     string    `json:"buyer,omitempty"`
}
