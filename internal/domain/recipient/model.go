package recipient

import (
	"errors"
	"strings"
)

// Delimiter separates addresses in a stored record.
const Delimiter = ","

// Domain errors
var (
	ErrNotFound   = errors.New("recipient record not found")
	ErrEmptyTopic = errors.New("topic is required")
	ErrNoEmails   = errors.New("at least one email address is required")
)

// Record maps a topic to the people who should receive its enquiries.
// Emails is kept exactly as stored: a comma-delimited list.
type Record struct {
	Topic  string
	Emails string
}

// NewRecord builds a Record from a topic and an address list.
// PRE: none
// POST: Emails holds the cleaned addresses joined with Delimiter
func NewRecord(topic string, emails []string) Record {
	return Record{
		Topic:  strings.TrimSpace(topic),
		Emails: strings.Join(cleanAddresses(emails), Delimiter),
	}
}

// Validate checks that the Record can be stored.
// PRE: Record struct is populated
// POST: Returns nil if valid, error otherwise
func (r Record) Validate() error {
	if strings.TrimSpace(r.Topic) == "" {
		return ErrEmptyTopic
	}
	if len(r.Addresses()) == 0 {
		return ErrNoEmails
	}
	return nil
}

// Addresses splits Emails into an ordered list of addresses.
// Blank entries are dropped and repeated addresses are kept once.
// INVARIANT: Emails field is not mutated
func (r Record) Addresses() []string {
	return cleanAddresses(strings.Split(r.Emails, Delimiter))
}

func cleanAddresses(raw []string) []string {
	seen := make(map[string]bool, len(raw))
	out := make([]string, 0, len(raw))
	for _, a := range raw {
		a = strings.TrimSpace(a)
		if a == "" || seen[a] {
			continue
		}
		seen[a] = true
		out = append(out, a)
	}
	return out
}
