package orchestrators

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"contactform/internal/adapters/challenge"
	emailAdapter "contactform/internal/adapters/email"
	"contactform/internal/adapters/http/perf"
	"contactform/internal/domain/enquiry"
	"contactform/internal/domain/recipient"
)

// Outcome names the stage at which an enquiry finished.
type Outcome string

const (
	OutcomeSent           Outcome = "sent"
	OutcomeInvalid        Outcome = "invalid"
	OutcomeUnverified     Outcome = "unverified"
	OutcomeVerifyError    Outcome = "verify_error"
	OutcomeUnknownTopic   Outcome = "unknown_topic"
	OutcomeNoRecipients   Outcome = "no_recipients"
	OutcomeLookupError    Outcome = "lookup_error"
	OutcomeRenderError    Outcome = "render_error"
	OutcomeDispatchFailed Outcome = "dispatch_failed"
)

// RecipientLookup resolves a topic to its directory record.
// recipient.Store implementations satisfy it.
type RecipientLookup interface {
	Lookup(ctx context.Context, topic string) (recipient.Record, error)
}

// SubmitEnquiryCommand carries one contact-form submission.
type SubmitEnquiryCommand struct {
	EnquiryID  string // correlation ID for logs; generated when empty
	Submission enquiry.Submission
}

// SubmitEnquiryDeps are the collaborators and settings for this orchestrator.
// INVARIANT: built once at startup and shared read-only across requests.
type SubmitEnquiryDeps struct {
	Verifier  challenge.Verifier
	Directory RecipientLookup
	Sender    emailAdapter.Sender
	From      string
	Bcc       string // optional
	Provider  string // sender name recorded in perf entries
	Collector *perf.Collector
}

// SubmitEnquiryResult is the caller-visible outcome.
// Only Success is returned to the website; Outcome is for logs and metrics.
type SubmitEnquiryResult struct {
	EnquiryID string
	Success   bool
	Outcome   Outcome
	MessageID string
}

// ExecuteSubmitEnquiry validates, verifies, resolves recipients and dispatches a notification.
// PRE: deps has non-nil Verifier, Directory and Sender
// POST: Success is true only if the provider accepted exactly one send; every
// failure below misconfiguration is absorbed into the result
func ExecuteSubmitEnquiry(ctx context.Context, cmd SubmitEnquiryCommand, deps SubmitEnquiryDeps) SubmitEnquiryResult {
	id := cmd.EnquiryID
	if id == "" {
		id = uuid.NewString()
	}
	sub := cmd.Submission
	log := slog.With("enquiry_id", id, "topic", sub.Topic)

	fail := func(o Outcome) SubmitEnquiryResult {
		return SubmitEnquiryResult{EnquiryID: id, Outcome: o}
	}

	if err := sub.Validate(); err != nil {
		log.Info("enquiry_invalid", "error", err)
		return fail(OutcomeInvalid)
	}

	ok, err := deps.Verifier.Verify(ctx, sub.Altcha)
	if err != nil {
		log.Error("enquiry_verify_error", "error", err)
		return fail(OutcomeVerifyError)
	}
	if !ok {
		log.Info("enquiry_unverified")
		return fail(OutcomeUnverified)
	}

	rec, err := deps.Directory.Lookup(ctx, sub.Topic)
	if errors.Is(err, recipient.ErrNotFound) {
		log.Warn("enquiry_unknown_topic")
		return fail(OutcomeUnknownTopic)
	}
	if err != nil {
		log.Error("enquiry_lookup_failed", "error", err)
		return fail(OutcomeLookupError)
	}

	to := rec.Addresses()
	if len(to) == 0 {
		log.Warn("enquiry_no_recipients")
		return fail(OutcomeNoRecipients)
	}

	if _, valid := sub.ReplyToAddress(); !valid {
		log.Info("enquiry_reply_to_omitted")
	}

	note, err := enquiry.NewNotification(sub, to, deps.Bcc)
	if err != nil {
		log.Error("enquiry_render_failed", "error", err)
		return fail(OutcomeRenderError)
	}

	req := emailAdapter.SendRequest{
		To:      note.To,
		From:    deps.From,
		Subject: note.Subject,
		HTML:    note.HTML,
		ReplyTo: note.ReplyTo,
	}
	if note.Bcc != "" {
		req.Bcc = []string{note.Bcc}
	}

	start := time.Now()
	sent, err := deps.Sender.Send(ctx, req)
	deps.recordDispatch(start, err)
	if err != nil {
		log.Error("enquiry_dispatch_failed", "error", err, "recipients", len(to))
		return fail(OutcomeDispatchFailed)
	}

	log.Info("enquiry_sent", "message_id", sent.MessageID, "recipients", len(to))
	return SubmitEnquiryResult{
		EnquiryID: id,
		Success:   true,
		Outcome:   OutcomeSent,
		MessageID: sent.MessageID,
	}
}

func (d SubmitEnquiryDeps) recordDispatch(start time.Time, err error) {
	if d.Collector == nil {
		return
	}
	provider := d.Provider
	if provider == "" {
		provider = "email"
	}
	d.Collector.Record(perf.Entry{
		Kind:       perf.KindDispatch,
		Path:       provider,
		Failed:     err != nil,
		DurationMs: float64(time.Since(start).Microseconds()) / 1000.0,
		Timestamp:  start,
	})
}
