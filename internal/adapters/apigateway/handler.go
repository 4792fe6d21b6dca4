// Package apigateway serves the contact endpoint as an AWS Lambda function
// behind an API Gateway HTTP API (payload format 2.0).
package apigateway

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/aws/aws-lambda-go/events"
	"github.com/google/uuid"

	web "contactform/internal/adapters/http"
	"contactform/internal/adapters/http/middleware"
	"contactform/internal/application/orchestrators"
)

var (
	errBadEncoding  = errors.New("body is not valid base64")
	errBodyTooLarge = errors.New("body exceeds size limit")
)

// Handler answers API Gateway events with the same contract as the HTTP server.
type Handler struct {
	deps     orchestrators.SubmitEnquiryDeps
	origins  middleware.OriginPolicy
	wiredErr error
}

// NewHandler builds a Handler from the same dependencies the HTTP server uses.
// PRE: none; wiring mistakes surface as 500 responses
// POST: Returns a Handler ready for lambda.Start
func NewHandler(deps web.Deps) *Handler {
	return &Handler{
		deps:     deps.Enquiry,
		origins:  middleware.NewOriginPolicy(deps.AllowedOrigins),
		wiredErr: deps.Validate(),
	}
}

// Handle processes one API Gateway request.
// PRE: req is a payload format 2.0 event
// POST: 204 for preflight; 405 for non-POST; 400 for undecodable or oversized
// bodies; 500 when miswired; 200 {"success":bool} otherwise. The returned error
// is always nil so API Gateway never substitutes its own body.
func (h *Handler) Handle(ctx context.Context, req events.APIGatewayV2HTTPRequest) (events.APIGatewayV2HTTPResponse, error) {
	headers := h.responseHeaders(header(req.Headers, "origin"))
	method := req.RequestContext.HTTP.Method

	if method == http.MethodOptions {
		return events.APIGatewayV2HTTPResponse{StatusCode: http.StatusNoContent, Headers: headers}, nil
	}
	if method != http.MethodPost {
		headers["Allow"] = http.MethodPost
		return respond(http.StatusMethodNotAllowed, headers, false), nil
	}
	if h.wiredErr != nil {
		slog.Error("contact_handler_misconfigured", "error", h.wiredErr)
		return respond(http.StatusInternalServerError, headers, false), nil
	}

	requestID := req.RequestContext.RequestID
	if requestID == "" {
		requestID = uuid.NewString()
	}

	body, err := requestBody(req)
	if err != nil {
		slog.Info("contact_bad_request", "request_id", requestID, "error", err)
		return respond(http.StatusBadRequest, headers, false), nil
	}
	sub, err := web.DecodeSubmission(strings.NewReader(body))
	if err != nil {
		slog.Info("contact_bad_request", "request_id", requestID, "error", err)
		return respond(http.StatusBadRequest, headers, false), nil
	}

	res := orchestrators.ExecuteSubmitEnquiry(ctx, orchestrators.SubmitEnquiryCommand{
		EnquiryID:  requestID,
		Submission: sub,
	}, h.deps)
	return respond(http.StatusOK, headers, res.Success), nil
}

func (h *Handler) responseHeaders(origin string) map[string]string {
	headers := map[string]string{
		"Content-Type":           "application/json",
		"Cache-Control":          "no-store",
		"X-Content-Type-Options": "nosniff",
		"Vary":                   "Origin",
	}
	for k, v := range h.origins.Headers(origin) {
		headers[k] = v
	}
	return headers
}

// requestBody returns the decoded body, rejecting anything over web.MaxBodyBytes.
func requestBody(req events.APIGatewayV2HTTPRequest) (string, error) {
	body := req.Body
	if req.IsBase64Encoded {
		raw, err := base64.StdEncoding.DecodeString(body)
		if err != nil {
			return "", errBadEncoding
		}
		body = string(raw)
	}
	if len(body) > web.MaxBodyBytes {
		return "", errBodyTooLarge
	}
	return body, nil
}

// header looks up name case-insensitively.
func header(headers map[string]string, name string) string {
	if v, ok := headers[name]; ok {
		return v
	}
	for k, v := range headers {
		if strings.EqualFold(k, name) {
			return v
		}
	}
	return ""
}

func respond(status int, headers map[string]string, success bool) events.APIGatewayV2HTTPResponse {
	body, _ := json.Marshal(web.Response{Success: success})
	return events.APIGatewayV2HTTPResponse{
		StatusCode: status,
		Headers:    headers,
		Body:       string(body),
	}
}
