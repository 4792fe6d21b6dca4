package apigateway

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/aws/aws-lambda-go/events"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"contactform/internal/adapters/challenge"
	"contactform/internal/adapters/email"
	web "contactform/internal/adapters/http"
	"contactform/internal/application/orchestrators"
	"contactform/internal/domain/recipient"
)

type stubDirectory map[string]recipient.Record

func (d stubDirectory) Lookup(_ context.Context, topic string) (recipient.Record, error) {
	rec, ok := d[topic]
	if !ok {
		return recipient.Record{}, recipient.ErrNotFound
	}
	return rec, nil
}

type stubSender struct {
	calls int
	err   error
}

func (s *stubSender) Send(_ context.Context, _ email.SendRequest) (email.SendResult, error) {
	s.calls++
	return email.SendResult{MessageID: "m-1"}, s.err
}

func newHandler(sender *stubSender) *Handler {
	return NewHandler(web.Deps{
		Enquiry: orchestrators.SubmitEnquiryDeps{
			Verifier: challenge.VerifierFunc(func(_ context.Context, token string) (bool, error) {
				return token == "good", nil
			}),
			Directory: stubDirectory{"volunteering": {Topic: "volunteering", Emails: "a@x.com"}},
			Sender:    sender,
			From:      "noreply@example.com",
		},
		AllowedOrigins: []string{"https://site.example"},
	})
}

const validBody = `{"firstName":"Jane","email":"jane@example.com","topic":"volunteering","subject":"Hi","message":"Hello","altcha":"good"}`

func event(method, body string) events.APIGatewayV2HTTPRequest {
	var req events.APIGatewayV2HTTPRequest
	req.RequestContext.HTTP.Method = method
	req.RequestContext.RequestID = "req-1"
	req.Headers = map[string]string{"origin": "https://site.example"}
	req.Body = body
	return req
}

func success(t *testing.T, resp events.APIGatewayV2HTTPResponse) bool {
	t.Helper()
	var body web.Response
	require.NoError(t, json.Unmarshal([]byte(resp.Body), &body))
	return body.Success
}

func TestHandle_ValidSubmission(t *testing.T) {
	sender := &stubSender{}
	resp, err := newHandler(sender).Handle(context.Background(), event("POST", validBody))

	require.NoError(t, err)
	assert.Equal(t, 200, resp.StatusCode)
	assert.True(t, success(t, resp))
	assert.Equal(t, 1, sender.calls)
	assert.Equal(t, "https://site.example", resp.Headers["Access-Control-Allow-Origin"])
	assert.Equal(t, "application/json", resp.Headers["Content-Type"])
}

func TestHandle_Base64Body(t *testing.T) {
	sender := &stubSender{}
	req := event("POST", base64.StdEncoding.EncodeToString([]byte(validBody)))
	req.IsBase64Encoded = true

	resp, err := newHandler(sender).Handle(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, 200, resp.StatusCode)
	assert.True(t, success(t, resp))
}

func TestHandle_BadBase64(t *testing.T) {
	req := event("POST", "%%%")
	req.IsBase64Encoded = true
	resp, err := newHandler(&stubSender{}).Handle(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, 400, resp.StatusCode)
}

func TestHandle_BusinessFailure(t *testing.T) {
	sender := &stubSender{}
	body := strings.Replace(validBody, `"altcha":"good"`, `"altcha":"bad"`, 1)
	resp, err := newHandler(sender).Handle(context.Background(), event("POST", body))

	require.NoError(t, err)
	assert.Equal(t, 200, resp.StatusCode)
	assert.False(t, success(t, resp))
	assert.Zero(t, sender.calls)
}

func TestHandle_DispatchFailure(t *testing.T) {
	sender := &stubSender{err: errors.New("provider down")}
	resp, err := newHandler(sender).Handle(context.Background(), event("POST", validBody))
	require.NoError(t, err)
	assert.Equal(t, 200, resp.StatusCode)
	assert.False(t, success(t, resp))
}

func TestHandle_MalformedAndOversized(t *testing.T) {
	h := newHandler(&stubSender{})
	for name, body := range map[string]string{
		"malformed": `{"firstName":`,
		"oversized": strings.Repeat(" ", web.MaxBodyBytes+1) + validBody,
		"trailing":  validBody + "garbage",
	} {
		t.Run(name, func(t *testing.T) {
			resp, err := h.Handle(context.Background(), event("POST", body))
			require.NoError(t, err)
			assert.Equal(t, 400, resp.StatusCode)
			assert.False(t, success(t, resp))
		})
	}
}

func TestHandle_MethodNotAllowed(t *testing.T) {
	resp, err := newHandler(&stubSender{}).Handle(context.Background(), event("GET", ""))
	require.NoError(t, err)
	assert.Equal(t, 405, resp.StatusCode)
	assert.Equal(t, "POST", resp.Headers["Allow"])
}

func TestHandle_Preflight(t *testing.T) {
	resp, err := newHandler(&stubSender{}).Handle(context.Background(), event("OPTIONS", ""))
	require.NoError(t, err)
	assert.Equal(t, 204, resp.StatusCode)
	assert.Equal(t, "POST, OPTIONS", resp.Headers["Access-Control-Allow-Methods"])
}

func TestHandle_DisallowedOrigin(t *testing.T) {
	req := event("POST", validBody)
	req.Headers = map[string]string{"Origin": "https://evil.example"}
	resp, err := newHandler(&stubSender{}).Handle(context.Background(), req)
	require.NoError(t, err)
	assert.Empty(t, resp.Headers["Access-Control-Allow-Origin"])
}

func TestHandle_Miswired(t *testing.T) {
	resp, err := NewHandler(web.Deps{}).Handle(context.Background(), event("POST", validBody))
	require.NoError(t, err)
	assert.Equal(t, 500, resp.StatusCode)
}

func TestHeader_CaseInsensitive(t *testing.T) {
	assert.Equal(t, "x", header(map[string]string{"Origin": "x"}, "origin"))
	assert.Equal(t, "", header(nil, "origin"))
}
