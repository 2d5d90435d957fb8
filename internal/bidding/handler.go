// HTTP handlers for the bid service.
//
// Identity is always explicit — the caller's verified email arrives in
// the path or the request body, never from ambient state. Verification
// itself belongs to the gateway in front of this service.
//
// Routes:
//
//	POST   /add-bid                    → place a bid (registrar)
//	PATCH  /bid-status-update/{id}     → accept/reject a bid
//	GET    /my-bids/{email}            → bids placed by a freelancer
//	GET    /bid-request/{email}        → bids against a buyer's jobs
//	POST   /add-job                    → post a job
//	GET    /all-jobs                   → list all jobs
//	GET    /all-jobs/{email}           → jobs posted by a buyer
//	GET    /job/{id}                   → single job
//	PUT    /update-job/{id}            → edit a job (buyer only)
//	DELETE /delete-job/{id}            → delete a job
package bidding

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strings"
	"time"
)

// storageTimeout bounds every storage call made on behalf of a request.
const storageTimeout = 5 * time.Second

// ─── Handler ─────────────────────────────────────────────────────────────────

// Handler adapts the Service to HTTP.
type Handler struct {
	svc *Service
}

// NewHandler returns a configured Handler.
func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

// RegisterRoutes mounts all bid-service routes on mux.
func (h *Handler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("/add-bid", h.requireMethod(http.MethodPost, h.addBid))
	mux.HandleFunc("/bid-status-update/", h.requireMethod(http.MethodPatch, h.suffix(h.bidStatusUpdate)))
	mux.HandleFunc("/my-bids/", h.requireMethod(http.MethodGet, h.suffix(h.myBids)))
	mux.HandleFunc("/bid-request/", h.requireMethod(http.MethodGet, h.suffix(h.bidRequests)))

	mux.HandleFunc("/add-job", h.requireMethod(http.MethodPost, h.addJob))
	mux.HandleFunc("/all-jobs", h.requireMethod(http.MethodGet, h.allJobs))
	mux.HandleFunc("/all-jobs/", h.requireMethod(http.MethodGet, h.suffix(h.jobsByBuyer)))
	mux.HandleFunc("/job/", h.requireMethod(http.MethodGet, h.suffix(h.getJob)))
	mux.HandleFunc("/update-job/", h.requireMethod(http.MethodPut, h.suffix(h.updateJob)))
	mux.HandleFunc("/delete-job/", h.requireMethod(http.MethodDelete, h.suffix(h.deleteJob)))
}

// requireMethod rejects every verb except the given one.
func (h *Handler) requireMethod(method string, next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != method {
			jsonError(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}
		next(w, r)
	}
}

// suffix extracts the final path segment ({id} or {email}) and passes
// it to the wrapped handler.
func (h *Handler) suffix(next func(http.ResponseWriter, *http.Request, string)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		parts := strings.Split(strings.Trim(r.URL.Path, "/"), "/")
		if len(parts) != 2 || parts[1] == "" {
			jsonError(w, "invalid path", http.StatusNotFound)
			return
		}
		next(w, r, parts[1])
	}
}

// ─── Bid handlers ─────────────────────────────────────────────────────────────

func (h *Handler) addBid(w http.ResponseWriter, r *http.Request) {
	var sub BidSubmission
	if err := json.NewDecoder(r.Body).Decode(&sub); err != nil {
		jsonError(w, "invalid JSON body", http.StatusBadRequest)
		return
	}
	if sub.JobID == "" || sub.Email == "" || sub.Price <= 0 {
		jsonError(w, "body must contain jobId, email and a positive price", http.StatusBadRequest)
		return
	}

	ctx, cancel := reqCtx(r)
	defer cancel()

	id, err := h.svc.PlaceBid(ctx, sub)
	if err != nil {
		writeServiceError(w, "addBid", err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(map[string]string{"insertedId": id})
}

func (h *Handler) bidStatusUpdate(w http.ResponseWriter, r *http.Request, bidID string) {
	var body struct {
		Status string `json:"status"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil || body.Status == "" {
		jsonError(w, "body must contain status", http.StatusBadRequest)
		return
	}

	ctx, cancel := reqCtx(r)
	defer cancel()

	bid, err := h.svc.UpdateBidStatus(ctx, bidID, body.Status)
	if err != nil {
		writeServiceError(w, "bidStatusUpdate", err)
		return
	}
	jsonOK(w, bid)
}

func (h *Handler) myBids(w http.ResponseWriter, r *http.Request, email string) {
	ctx, cancel := reqCtx(r)
	defer cancel()

	bids, err := h.svc.ListBidsByBidder(ctx, email)
	if err != nil {
		writeServiceError(w, "myBids", err)
		return
	}
	jsonOK(w, bids)
}

func (h *Handler) bidRequests(w http.ResponseWriter, r *http.Request, email string) {
	ctx, cancel := reqCtx(r)
	defer cancel()

	bids, err := h.svc.ListBidRequests(ctx, email)
	if err != nil {
		writeServiceError(w, "bidRequests", err)
		return
	}
	jsonOK(w, bids)
}

// ─── Job handlers ─────────────────────────────────────────────────────────────

func (h *Handler) addJob(w http.ResponseWriter, r *http.Request) {
	var job Job
	if err := json.NewDecoder(r.Body).Decode(&job); err != nil {
		jsonError(w, "invalid JSON body", http.StatusBadRequest)
		return
	}
	if job.Title == "" || job.Buyer.Email == "" || job.MinPrice > job.MaxPrice {
		jsonError(w, "job must have title, buyer email and min_price <= max_price", http.StatusBadRequest)
		return
	}

	ctx, cancel := reqCtx(r)
	defer cancel()

	created, err := h.svc.AddJob(ctx, job)
	if err != nil {
		writeServiceError(w, "addJob", err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(created)
}

func (h *Handler) allJobs(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := reqCtx(r)
	defer cancel()

	jobs, err := h.svc.ListJobs(ctx)
	if err != nil {
		writeServiceError(w, "allJobs", err)
		return
	}
	jsonOK(w, jobs)
}

func (h *Handler) jobsByBuyer(w http.ResponseWriter, r *http.Request, email string) {
	ctx, cancel := reqCtx(r)
	defer cancel()

	jobs, err := h.svc.ListJobsByBuyer(ctx, email)
	if err != nil {
		writeServiceError(w, "jobsByBuyer", err)
		return
	}
	jsonOK(w, jobs)
}

func (h *Handler) getJob(w http.ResponseWriter, r *http.Request, jobID string) {
	ctx, cancel := reqCtx(r)
	defer cancel()

	job, err := h.svc.GetJob(ctx, jobID)
	if err != nil {
		writeServiceError(w, "getJob", err)
		return
	}
	jsonOK(w, job)
}

func (h *Handler) updateJob(w http.ResponseWriter, r *http.Request, jobID string) {
	var job Job
	if err := json.NewDecoder(r.Body).Decode(&job); err != nil {
		jsonError(w, "invalid JSON body", http.StatusBadRequest)
		return
	}
	if job.Buyer.Email == "" {
		jsonError(w, "body must carry the buyer's email", http.StatusBadRequest)
		return
	}

	ctx, cancel := reqCtx(r)
	defer cancel()

	updated, err := h.svc.UpdateJob(ctx, jobID, job.Buyer.Email, job)
	if err != nil {
		writeServiceError(w, "updateJob", err)
		return
	}
	jsonOK(w, updated)
}

func (h *Handler) deleteJob(w http.ResponseWriter, r *http.Request, jobID string) {
	ctx, cancel := reqCtx(r)
	defer cancel()

	if err := h.svc.DeleteJob(ctx, jobID); err != nil {
		writeServiceError(w, "deleteJob", err)
		return
	}
	jsonOK(w, map[string]int{"deletedCount": 1})
}

// ─── Helpers ─────────────────────────────────────────────────────────────────

func reqCtx(r *http.Request) (context.Context, context.CancelFunc) {
	return context.WithTimeout(r.Context(), storageTimeout)
}

// writeServiceError maps domain errors to HTTP responses. Storage
// failures are logged with detail but answered generically.
func writeServiceError(w http.ResponseWriter, op string, err error) {
	var verr *ValidationError
	switch {
	case errors.As(err, &verr):
		jsonError(w, verr.Msg, http.StatusBadRequest)
	case errors.Is(err, ErrDuplicateBid):
		jsonError(w, err.Error(), http.StatusBadRequest)
	case errors.Is(err, ErrJobNotFound), errors.Is(err, ErrBidNotFound):
		jsonError(w, err.Error(), http.StatusNotFound)
	default:
		log.Printf("[bid-service] %s error: %v", op, err)
		jsonError(w, "database error", http.StatusInternalServerError)
	}
}

func jsonOK(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(v)
}

func jsonError(w http.ResponseWriter, msg string, code int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(map[string]string{"error": msg})
}
