package bidding_test

import (
	"errors"
	"testing"
	"time"

	"solosphere/bid-service/internal/bidding"
)

// testJob returns the job used across validation tests: posted by
// b@x.com, deadline 2025-01-01, budget 500–1500.
func testJob() *bidding.Job {
	return &bidding.Job{
		ID:       "J1",
		Title:    "Build landing page",
		Category: "Web Development",
		Buyer:    bidding.Buyer{Name: "Buyer", Email: "b@x.com"},
		Deadline: time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC),
		MinPrice: 500,
		MaxPrice: 1500,
	}
}

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// ── ValidateBid — rejections ───────────────────────────────────────────────

func TestValidateBid_Rejections(t *testing.T) {
	cases := []struct {
		name   string
		bidder string
		in     bidding.BidInput
		now    time.Time
		want   error
	}{
		{
			name:   "buyer bidding on own job",
			bidder: "b@x.com",
			in:     bidding.BidInput{Price: 1200, StartDate: day(2024, 12, 20)},
			now:    day(2024, 12, 1),
			want:   bidding.ErrSelfBid,
		},
		{
			name:   "deadline already crossed",
			bidder: "f@x.com",
			in:     bidding.BidInput{Price: 1200, StartDate: day(2024, 12, 20)},
			now:    day(2025, 2, 1),
			want:   bidding.ErrDeadlineCrossed,
		},
		{
			name:   "proposed start date after deadline",
			bidder: "f@x.com",
			in:     bidding.BidInput{Price: 1200, StartDate: day(2025, 1, 15)},
			now:    day(2024, 12, 1),
			want:   bidding.ErrOfferPastDeadline,
		},
		{
			name:   "price above maximum budget",
			bidder: "f@x.com",
			in:     bidding.BidInput{Price: 1501, StartDate: day(2024, 12, 20)},
			now:    day(2024, 12, 1),
			want:   bidding.ErrPriceAboveMaxBudget,
		},
	}

	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			err := bidding.ValidateBid(testJob(), c.bidder, c.in, c.now)
			if !errors.Is(err, c.want) {
				t.Errorf("ValidateBid = %v, want %v", err, c.want)
			}
		})
	}
}

// ── ValidateBid — the happy path from the marketplace scenario ─────────────

func TestValidateBid_Accepted(t *testing.T) {
	in := bidding.BidInput{Price: 1200, Comment: "ok", StartDate: day(2024, 12, 20)}
	if err := bidding.ValidateBid(testJob(), "f@x.com", in, day(2024, 12, 1)); err != nil {
		t.Errorf("ValidateBid returned unexpected error: %v", err)
	}
}

// ── Check ordering: self-bid wins even when later checks would also fail ───

func TestValidateBid_SelfBidCheckedFirst(t *testing.T) {
	// Buyer bids after the deadline with an over-budget price; the
	// self-bid rejection must still be the one reported.
	in := bidding.BidInput{Price: 9999, StartDate: day(2025, 6, 1)}
	err := bidding.ValidateBid(testJob(), "b@x.com", in, day(2025, 6, 1))
	if !errors.Is(err, bidding.ErrSelfBid) {
		t.Errorf("ValidateBid = %v, want ErrSelfBid", err)
	}
}

// ── Boundary conditions: comparisons against the deadline are strict ───────

func TestValidateBid_Boundaries(t *testing.T) {
	deadline := testJob().Deadline

	cases := []struct {
		name string
		in   bidding.BidInput
		now  time.Time
	}{
		{"bid at the deadline instant", bidding.BidInput{Price: 1200, StartDate: day(2024, 12, 20)}, deadline},
		{"start date exactly on the deadline", bidding.BidInput{Price: 1200, StartDate: deadline}, day(2024, 12, 1)},
		{"price exactly at the maximum", bidding.BidInput{Price: 1500, StartDate: day(2024, 12, 20)}, day(2024, 12, 1)},
	}

	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			if err := bidding.ValidateBid(testJob(), "f@x.com", c.in, c.now); err != nil {
				t.Errorf("ValidateBid = %v, want nil", err)
			}
		})
	}
}

// ── No floor check: offers below min_price are allowed ─────────────────────

func TestValidateBid_BelowMinPriceAccepted(t *testing.T) {
	in := bidding.BidInput{Price: 100, StartDate: day(2024, 12, 20)}
	if err := bidding.ValidateBid(testJob(), "f@x.com", in, day(2024, 12, 1)); err != nil {
		t.Errorf("ValidateBid = %v, want nil (no minimum-price check)", err)
	}
}

// ── Error surface ──────────────────────────────────────────────────────────

func TestValidationErrorMessages(t *testing.T) {
	cases := []struct {
		err *bidding.ValidationError
		msg string
	}{
		{bidding.ErrSelfBid, "Forbidden, You can't place Bid on your Job Post!"},
		{bidding.ErrDeadlineCrossed, "deadline crossed, Bid forbidden!"},
		{bidding.ErrOfferPastDeadline, "place offer within deadline!"},
		{bidding.ErrPriceAboveMaxBudget, "offer less or equal to maximum price!"},
	}
	for _, c := range cases {
		if c.err.Error() != c.msg {
			t.Errorf("message = %q, want %q", c.err.Error(), c.msg)
		}
	}
}
