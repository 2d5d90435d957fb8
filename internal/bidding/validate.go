package bidding

import "time"

// ValidationError is a user-facing rejection of a bid attempt before it
// reaches storage. Reason is a stable machine tag (used for metrics
// labels); Msg is shown to the user as-is.
type ValidationError struct {
	Reason string
	Msg    string
}

func (e *ValidationError) Error() string { return e.Msg }

// The four ways a bid attempt can be rejected without touching storage.
// Comparisons against the deadline are strict: a bid on the deadline
// instant is still valid.
var (
	ErrSelfBid             = &ValidationError{Reason: "self_bid", Msg: "Forbidden, You can't place Bid on your Job Post!"}
	ErrDeadlineCrossed     = &ValidationError{Reason: "deadline_crossed", Msg: "deadline crossed, Bid forbidden!"}
	ErrOfferPastDeadline   = &ValidationError{Reason: "offer_past_deadline", Msg: "place offer within deadline!"}
	ErrPriceAboveMaxBudget = &ValidationError{Reason: "price_above_max", Msg: "offer less or equal to maximum price!"}
)

// ValidateBid runs the pre-submission checks for a bid attempt, in
// order, short-circuiting on the first failure:
//
//  1. the bidder must not be the job's buyer
//  2. the job's deadline must not have passed
//  3. the proposed start date must fall within the deadline
//  4. the price must not exceed the job's maximum budget
//
// It is pure: the caller supplies the wall clock. The same function
// gates submissions client-side (pkg/bidclient) and is re-run by the
// registrar server-side, since client checks are bypassable.
//
// There is deliberately no check against MinPrice: buyers may accept
// offers below their stated floor.
func ValidateBid(job *Job, bidderEmail string, in BidInput, now time.Time) error {
	if bidderEmail == job.Buyer.Email {
		return ErrSelfBid
	}
	if now.After(job.Deadline) {
		return ErrDeadlineCrossed
	}
	if in.StartDate.After(job.Deadline) {
		return ErrOfferPastDeadline
	}
	if in.Price > job.MaxPrice {
		return ErrPriceAboveMaxBudget
	}
	return nil
}
