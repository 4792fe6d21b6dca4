package enquiry

import (
	"errors"
	"strings"
	"unicode"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/go-ozzo/ozzo-validation/v4/is"
)

// SubjectPrefix starts every notification subject line.
const SubjectPrefix = "Website Enquiry"

// Domain errors
var (
	ErrInvalidSubmission = errors.New("submission is invalid")
)

// Submission is a contact-form payload as received from the website.
// INVARIANT: values are trimmed once by NewSubmission and never mutated afterwards.
type Submission struct {
	FirstName string
	LastName  string // optional
	Email     string
	Topic     string // directory key, matched case-sensitively
	Subject   string
	Message   string
	Altcha    string // bot-defense challenge token
}

// NewSubmission builds a Submission with every field trimmed.
// PRE: none
// POST: returned Submission holds trimmed copies of the inputs
func NewSubmission(firstName, lastName, email, topic, subject, message, altcha string) Submission {
	return Submission{
		FirstName: strings.TrimSpace(firstName),
		LastName:  strings.TrimSpace(lastName),
		Email:     strings.TrimSpace(email),
		Topic:     strings.TrimSpace(topic),
		Subject:   strings.TrimSpace(subject),
		Message:   strings.TrimSpace(message),
		Altcha:    strings.TrimSpace(altcha),
	}
}

// Validate checks that every required field is present.
// PRE: Submission was built by NewSubmission (fields are trimmed)
// POST: Returns nil if valid, an error wrapping ErrInvalidSubmission otherwise
func (s Submission) Validate() error {
	err := validation.ValidateStruct(&s,
		validation.Field(&s.FirstName, validation.Required),
		validation.Field(&s.Email, validation.Required),
		validation.Field(&s.Topic, validation.Required),
		validation.Field(&s.Subject, validation.Required),
		validation.Field(&s.Message, validation.Required),
		validation.Field(&s.Altcha, validation.Required),
	)
	if err != nil {
		return errors.Join(ErrInvalidSubmission, err)
	}
	return nil
}

// FullName joins first and last name, omitting the last name when absent.
func (s Submission) FullName() string {
	if s.LastName == "" {
		return s.FirstName
	}
	return s.FirstName + " " + s.LastName
}

// FormattedTopic returns the topic key in display form.
// INVARIANT: Topic field is not mutated
func (s Submission) FormattedTopic() string {
	return FormatTopic(s.Topic)
}

// NotificationSubject builds the subject line for the notification email.
// PRE: none
// POST: Returns "Website Enquiry: {topic} - {name}" on a single line
func (s Submission) NotificationSubject() string {
	subject := SubjectPrefix + ": " + s.FormattedTopic() + " - " + s.FullName()
	return strings.Join(strings.Fields(subject), " ")
}

// ReplyToAddress returns the submitter's address if it is usable as a Reply-To.
// The boolean is false when the address fails syntax validation.
func (s Submission) ReplyToAddress() (string, bool) {
	if s.Email == "" {
		return "", false
	}
	if err := validation.Validate(s.Email, is.EmailFormat); err != nil {
		return "", false
	}
	return s.Email, true
}

// FormatTopic converts a hyphenated topic key into title-cased words.
// "general-enquiry" becomes "General Enquiry". Words written entirely in
// upper case are treated as acronyms and left alone.
func FormatTopic(topic string) string {
	words := strings.Fields(strings.ReplaceAll(topic, "-", " "))
	for i, w := range words {
		words[i] = titleWord(w)
	}
	return strings.Join(words, " ")
}

func titleWord(w string) string {
	if isUpperWord(w) {
		return w
	}
	runes := []rune(strings.ToLower(w))
	runes[0] = unicode.ToTitle(runes[0])
	return string(runes)
}

// isUpperWord reports whether w has letters and none of them are lower case.
func isUpperWord(w string) bool {
	hasLetter := false
	for _, r := range w {
		if unicode.IsLower(r) {
			return false
		}
		if unicode.IsLetter(r) {
			hasLetter = true
		}
	}
	return hasLetter
}
