package challenge

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"
)

// maxResponseBytes caps how much of the verification response is read.
const maxResponseBytes = 64 << 10

// AltchaVerifier validates ALTCHA payloads against a remote verification endpoint.
type AltchaVerifier struct {
	endpoint   string
	apiKey     string
	httpClient *http.Client
}

// NewAltchaVerifier creates a verifier for the given endpoint and API key.
// PRE: endpoint is an absolute URL; apiKey is non-empty
// POST: Returns a verifier using client, or a 5s-timeout client when client is nil
func NewAltchaVerifier(endpoint, apiKey string, client *http.Client) (*AltchaVerifier, error) {
	if endpoint == "" {
		return nil, errors.New("altcha endpoint cannot be empty")
	}
	if apiKey == "" {
		return nil, errors.New("altcha api key cannot be empty")
	}
	if client == nil {
		client = &http.Client{Timeout: 5 * time.Second}
	}
	return &AltchaVerifier{
		endpoint:   endpoint,
		apiKey:     apiKey,
		httpClient: client,
	}, nil
}

type altchaRequest struct {
	Payload string `json:"payload"`
}

type altchaResponse struct {
	Verified bool   `json:"verified"`
	Error    string `json:"error,omitempty"`
}

// Verify posts the payload to the verification endpoint.
// PRE: ctx is valid
// POST: Returns the endpoint's verdict; an empty token is invalid without a network call
func (v *AltchaVerifier) Verify(ctx context.Context, token string) (bool, error) {
	if token == "" {
		return false, nil
	}

	data, err := json.Marshal(altchaRequest{Payload: token})
	if err != nil {
		return false, fmt.Errorf("marshal altcha payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, v.endpoint, bytes.NewReader(data))
	if err != nil {
		return false, fmt.Errorf("build altcha request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Authorization", "Bearer "+v.apiKey)

	resp, err := v.httpClient.Do(req)
	if err != nil {
		return false, fmt.Errorf("altcha api request: %w", err)
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))

	switch {
	case resp.StatusCode >= http.StatusInternalServerError:
		return false, fmt.Errorf("altcha api returned %d: %s", resp.StatusCode, string(body))
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return false, fmt.Errorf("altcha api rejected credentials: %d", resp.StatusCode)
	case resp.StatusCode >= http.StatusBadRequest:
		// 4xx here is a verdict on the payload itself
		return false, nil
	}

	var result altchaResponse
	if err := json.Unmarshal(body, &result); err != nil {
		return false, fmt.Errorf("parse altcha response: %w", err)
	}
	return result.Verified, nil
}
