package email

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sesv2"
	"github.com/aws/aws-sdk-go-v2/service/sesv2/types"
)

const charsetUTF8 = "UTF-8"

// SendEmailAPI is the subset of the SES v2 client used by SESSender.
// *sesv2.Client satisfies it.
type SendEmailAPI interface {
	SendEmail(ctx context.Context, params *sesv2.SendEmailInput, optFns ...func(*sesv2.Options)) (*sesv2.SendEmailOutput, error)
}

var _ SendEmailAPI = (*sesv2.Client)(nil)

// SESSender sends emails via Amazon SES (API v2).
type SESSender struct {
	api              SendEmailAPI
	from             string
	configurationSet string
}

// NewSESSender creates a sender backed by an SES v2 client.
// PRE: api is non-nil; from is a verified SES identity
// POST: Returns a ready-to-use sender; configurationSet may be empty
func NewSESSender(api SendEmailAPI, from, configurationSet string) *SESSender {
	return &SESSender{
		api:              api,
		from:             from,
		configurationSet: configurationSet,
	}
}

// Send submits a single email to SES.
// PRE: none; requests failing Check are rejected before any network call
// POST: Email is accepted by SES; returns the SES message ID
func (s *SESSender) Send(ctx context.Context, req SendRequest) (SendResult, error) {
	if err := req.Check(); err != nil {
		return SendResult{}, err
	}
	from := req.From
	if from == "" {
		from = s.from
	}

	input := &sesv2.SendEmailInput{
		FromEmailAddress: aws.String(from),
		Destination: &types.Destination{
			ToAddresses:  req.To,
			BccAddresses: req.Bcc,
		},
		Content: &types.EmailContent{
			Simple: &types.Message{
				Subject: &types.Content{Data: aws.String(req.Subject), Charset: aws.String(charsetUTF8)},
				Body: &types.Body{
					Html: &types.Content{Data: aws.String(req.HTML), Charset: aws.String(charsetUTF8)},
				},
			},
		},
	}
	if req.ReplyTo != "" {
		input.ReplyToAddresses = []string{req.ReplyTo}
	}
	if s.configurationSet != "" {
		input.ConfigurationSetName = aws.String(s.configurationSet)
	}

	out, err := s.api.SendEmail(ctx, input)
	if err != nil {
		slog.Error("ses_send_failed", "error", err, "to_count", len(req.To))
		return SendResult{}, fmt.Errorf("ses send failed: %w", err)
	}

	messageID := aws.ToString(out.MessageId)
	slog.Info("ses_sent", "message_id", messageID, "to_count", len(req.To))
	return SendResult{
		MessageID: messageID,
		SentAt:    time.Now(),
	}, nil
}
