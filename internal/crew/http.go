package crew

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// maxErrorBodyLen caps how much of a failed response lands in the error message.
const maxErrorBodyLen = 512

// Compile-time interface satisfaction check.
var _ Provider = (*HTTPProvider)(nil)

// HTTPProvider calls a crew sidecar over HTTP: inputs are POSTed as JSON and
// the response body is the result.
type HTTPProvider struct {
	url        string
	token      string
	httpClient *http.Client
}

// NewHTTPProvider validates the endpoint URL and returns the provider.
// A zero timeout means the client waits indefinitely; the crew call is
// trusted to terminate.
func NewHTTPProvider(rawURL, token string, timeout time.Duration) (*HTTPProvider, error) {
	trimmed := strings.TrimSpace(rawURL)
	if trimmed == "" {
		return nil, errors.New("crew url is required")
	}
	if _, err := url.ParseRequestURI(trimmed); err != nil {
		return nil, fmt.Errorf("crew url: %w", err)
	}

	return &HTTPProvider{
		url:   trimmed,
		token: token,
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}, nil
}

// Name identifies the provider by its endpoint.
func (p *HTTPProvider) Name() string {
	return "http:" + p.url
}

// Execute POSTs the inputs to the crew endpoint.
func (p *HTTPProvider) Execute(ctx context.Context, inputs map[string]any) (string, error) {
	payload, err := json.Marshal(map[string]any{"inputs": inputs})
	if err != nil {
		return "", fmt.Errorf("encode inputs: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.url, bytes.NewReader(payload))
	if err != nil {
		return "", fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if p.token != "" {
		req.Header.Set("Authorization", "Bearer "+p.token)
	}

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("call crew endpoint: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("read crew response: %w", err)
	}

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		return "", fmt.Errorf("crew endpoint returned %d: %s", resp.StatusCode, truncate(body))
	}

	return strings.TrimSpace(string(body)), nil
}

func truncate(body []byte) string {
	s := strings.TrimSpace(string(body))
	if len(s) > maxErrorBodyLen {
		return s[:maxErrorBodyLen] + "..."
	}
	return s
}
