// Package bidclient is the API client for the bid service, including
// the pre-submission gate: every bid attempt is validated locally
// (self-bid, deadline, offer date, price ceiling) and an invalid
// attempt never produces a network call. The server re-runs the same
// checks; this gate exists for immediate user feedback.
package bidclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"solosphere/bid-service/internal/bidding"
)

// genericErrMsg is shown when the server's response carries no message.
const genericErrMsg = "An unknown error occurred"

// Client talks to the bid service. Now is the wall clock used by the
// local validation gate; it defaults to time.Now.
type Client struct {
	BaseURL string
	HTTP    *http.Client
	Now     func() time.Time
}

// New returns a Client with a bounded request timeout.
func New(base string) *Client {
	return &Client{
		BaseURL: base,
		HTTP:    &http.Client{Timeout: 5 * time.Second},
		Now:     time.Now,
	}
}

// GetJob fetches a single job by id.
func (c *Client) GetJob(ctx context.Context, jobID string) (*bidding.Job, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.BaseURL+"/job/"+jobID, nil)
	if err != nil {
		return nil, err
	}
	res, err := c.HTTP.Do(req)
	if err != nil {
		return nil, err
	}
	defer res.Body.Close()

	if res.StatusCode != http.StatusOK {
		return nil, responseError(res)
	}

	var job bidding.Job
	if err := json.NewDecoder(res.Body).Decode(&job); err != nil {
		return nil, err
	}
	return &job, nil
}

// PlaceBid validates the bid attempt locally and, only if it passes,
// submits it to the server. The bidder's identity is an explicit
// argument. Returns the new bid's id.
//
// A local rejection comes back as one of the bidding validation errors
// and is distinguishable from a server rejection, which is returned
// with the server's message verbatim. Neither is retried.
func (c *Client) PlaceBid(ctx context.Context, job *bidding.Job, bidderEmail string, in bidding.BidInput) (string, error) {
	if err := bidding.ValidateBid(job, bidderEmail, in, c.Now()); err != nil {
		return "", err
	}

	sub := bidding.BidSubmission{
		JobID:     job.ID,
		Email:     bidderEmail,
		Price:     in.Price,
		Comment:   in.Comment,
		StartDate: in.StartDate,
	}
	body, _ := json.Marshal(sub)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.BaseURL+"/add-bid", bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")

	res, err := c.HTTP.Do(req)
	if err != nil {
		return "", err
	}
	defer res.Body.Close()

	if res.StatusCode != http.StatusCreated {
		return "", responseError(res)
	}

	var out struct {
		InsertedID string `json:"insertedId"`
	}
	if err := json.NewDecoder(res.Body).Decode(&out); err != nil {
		return "", err
	}
	return out.InsertedID, nil
}

// MyBids fetches the bids the given freelancer has placed (the view a
// successful PlaceBid navigates to).
func (c *Client) MyBids(ctx context.Context, email string) ([]bidding.Bid, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.BaseURL+"/my-bids/"+email, nil)
	if err != nil {
		return nil, err
	}
	res, err := c.HTTP.Do(req)
	if err != nil {
		return nil, err
	}
	defer res.Body.Close()

	if res.StatusCode != http.StatusOK {
		return nil, responseError(res)
	}

	var bids []bidding.Bid
	if err := json.NewDecoder(res.Body).Decode(&bids); err != nil {
		return nil, err
	}
	return bids, nil
}

// responseError extracts the server's message from an error response,
// verbatim when present, falling back to a generic message.
func responseError(res *http.Response) error {
	raw, _ := io.ReadAll(io.LimitReader(res.Body, 4096))

	var body struct {
		Error string `json:"error"`
	}
	if err := json.Unmarshal(raw, &body); err == nil && body.Error != "" {
		return fmt.Errorf("%s", body.Error)
	}
	return fmt.Errorf("%s", genericErrMsg)
}
