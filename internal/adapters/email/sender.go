package email

import (
	"context"
	"errors"
	"strings"
	"time"
)

// Request errors
var (
	ErrNoRecipients = errors.New("email has no recipients")
	ErrNoSubject    = errors.New("email has no subject")
)

// SendRequest contains the data needed to send an email via an external provider.
type SendRequest struct {
	To      []string // Recipient email addresses
	Bcc     []string // Blind copies (e.g. an enquiries archive mailbox)
	From    string   // Sender address; the sender's default is used when empty
	Subject string
	HTML    string // HTML body
	ReplyTo string // Reply-to address
}

// SendResult contains the response from the email provider.
type SendResult struct {
	MessageID string    // Provider's message ID for tracking
	SentAt    time.Time // When the send was accepted
}

// Sender is the interface for sending emails via an external provider.
// Send returns once the provider has accepted the message; delivery is not awaited.
type Sender interface {
	Send(ctx context.Context, req SendRequest) (SendResult, error)
}

// Check reports whether the request can be handed to a provider.
// PRE: none
// POST: Returns nil, ErrNoRecipients or ErrNoSubject
func (r SendRequest) Check() error {
	if len(r.To) == 0 {
		return ErrNoRecipients
	}
	if strings.TrimSpace(r.Subject) == "" {
		return ErrNoSubject
	}
	return nil
}
