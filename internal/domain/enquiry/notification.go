package enquiry

import (
	"errors"
	"slices"
)

// ErrNoRecipients is returned when a notification would have nobody to go to.
var ErrNoRecipients = errors.New("at least one recipient is required")

// Notification is the outbound email built for one Submission.
// INVARIANT: To is non-empty; the value is never mutated after NewNotification returns.
type Notification struct {
	Subject string
	HTML    string
	To      []string
	ReplyTo string // empty when the submitter address was unusable
	Bcc     string // empty when no BCC is configured
}

// NewNotification renders the notification for a submission.
// PRE: sub has passed Validate; to holds the resolved directory addresses
// POST: Returns a Notification with its own copy of to, or ErrNoRecipients
func NewNotification(sub Submission, to []string, bcc string) (Notification, error) {
	if len(to) == 0 {
		return Notification{}, ErrNoRecipients
	}
	html, err := RenderHTML(sub)
	if err != nil {
		return Notification{}, err
	}
	replyTo, _ := sub.ReplyToAddress()
	return Notification{
		Subject: sub.NotificationSubject(),
		HTML:    html,
		To:      slices.Clone(to),
		ReplyTo: replyTo,
		Bcc:     bcc,
	}, nil
}
