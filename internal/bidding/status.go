// Bid status state machine.
//
// Valid status graph:
//
//	pending ──► accepted
//	    │
//	    └─────► rejected
//
// accepted and rejected are terminal states. Only the job's buyer is
// supposed to move a bid out of pending; that ownership check sits at
// the gateway in front of this service (the status route carries no
// caller identity), the machine itself only answers "is this move legal".

package bidding

import "fmt"

// Status values mirror the CHECK constraint on bids.status in PostgreSQL.
type Status string

const (
	StatusPending  Status = "pending"
	StatusAccepted Status = "accepted"
	StatusRejected Status = "rejected"
)

// validTransitions lists every allowed (from → to) pair.
var validTransitions = map[Status][]Status{
	StatusPending: {StatusAccepted, StatusRejected},
	// accepted and rejected are terminal — no outgoing transitions
}

// ParseStatus converts a raw string to a Status, returning an error for
// unknown values.
func ParseStatus(s string) (Status, error) {
	st := Status(s)
	switch st {
	case StatusPending, StatusAccepted, StatusRejected:
		return st, nil
	}
	return "", fmt.Errorf("unknown bid status %q", s)
}

// IsTransitionAllowed returns true when moving from → to is permitted
// by the state machine.
func IsTransitionAllowed(from, to Status) bool {
	allowed, ok := validTransitions[from]
	if !ok {
		return false // terminal state — no outgoing transitions
	}
	for _, s := range allowed {
		if s == to {
			return true
		}
	}
	return false
}
