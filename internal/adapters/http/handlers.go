package web

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"contactform/internal/adapters/http/middleware"
	"contactform/internal/application/orchestrators"
	"contactform/internal/domain/enquiry"
)

// MaxBodyBytes caps the size of a submission body.
const MaxBodyBytes = 64 << 10

// ErrMalformedBody is returned when the request body is not a JSON submission.
var ErrMalformedBody = errors.New("malformed request body")

// SubmissionRequest is the JSON body posted by the website form.
type SubmissionRequest struct {
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
	Email     string `json:"email"`
	Topic     string `json:"topic"`
	Subject   string `json:"subject"`
	Message   string `json:"message"`
	Altcha    string `json:"altcha"`
}

// Submission converts the request into a trimmed domain Submission.
func (r SubmissionRequest) Submission() enquiry.Submission {
	return enquiry.NewSubmission(r.FirstName, r.LastName, r.Email, r.Topic, r.Subject, r.Message, r.Altcha)
}

// Response is the only body the contact endpoint ever returns.
type Response struct {
	Success bool `json:"success"`
}

// DecodeSubmission reads exactly one JSON submission. Unknown fields are
// ignored; anything after the object other than whitespace is rejected.
// PRE: body is bounded by the caller
// POST: Returns the submission, or an error wrapping ErrMalformedBody
func DecodeSubmission(body io.Reader) (enquiry.Submission, error) {
	var req SubmissionRequest
	dec := json.NewDecoder(body)
	if err := dec.Decode(&req); err != nil {
		return enquiry.Submission{}, fmt.Errorf("%w: %w", ErrMalformedBody, err)
	}
	if err := dec.Decode(&struct{}{}); !errors.Is(err, io.EOF) {
		return enquiry.Submission{}, fmt.Errorf("%w: trailing data after JSON object", ErrMalformedBody)
	}
	return req.Submission(), nil
}

// handleContact handles POST /api/contact and its alias.
// PRE: request body is a JSON submission no larger than MaxBodyBytes
// POST: 200 {"success":bool} for every business outcome; 400 for bodies that
// cannot be decoded; 405 for other methods; 500 when the server is miswired
func (s *server) handleContact(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.Header().Set("Allow", http.MethodPost)
		writeJSON(w, http.StatusMethodNotAllowed, Response{})
		return
	}
	if s.wiredErr != nil {
		slog.Error("contact_handler_misconfigured", "error", s.wiredErr)
		writeJSON(w, http.StatusInternalServerError, Response{})
		return
	}

	sub, err := DecodeSubmission(http.MaxBytesReader(w, r.Body, MaxBodyBytes))
	if err != nil {
		slog.Info("contact_bad_request", "request_id", middleware.RequestID(r.Context()), "error", err)
		writeJSON(w, http.StatusBadRequest, Response{})
		return
	}

	res := orchestrators.ExecuteSubmitEnquiry(r.Context(), orchestrators.SubmitEnquiryCommand{
		EnquiryID:  middleware.RequestID(r.Context()),
		Submission: sub,
	}, s.deps.Enquiry)

	writeJSON(w, http.StatusOK, Response{Success: res.Success})
}

// handleHealth handles GET /healthz.
// POST: 200 {"status":"ok"} when the directory answers a ping, 503 otherwise
func (s *server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet && r.Method != http.MethodHead {
		w.Header().Set("Allow", "GET, HEAD")
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	if s.deps.Health != nil {
		if err := s.deps.Health.Ping(r.Context()); err != nil {
			slog.Warn("health_check_failed", "error", err)
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
			return
		}
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("response_encode_failed", "error", err)
	}
}
