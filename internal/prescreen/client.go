// Package prescreen is the client for the PII pre-screening collaborator.
// The collaborator fails open: callers treat a returned error as "not
// blocked" and surface a non-blocking warning instead.
package prescreen

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
)

// Result is the collaborator's verdict on one candidate message.
type Result struct {
	Blocked            bool     `json:"blocked"`
	Message            string   `json:"message"`
	DetectedCategories []string `json:"detected_categories"`
}

// ClientOption configures the client.
type ClientOption func(*Client)

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(httpClient *http.Client) ClientOption {
	return func(c *Client) {
		c.httpClient = httpClient
	}
}

// Client posts candidate message text for screening.
type Client struct {
	url        string
	httpClient *http.Client
}

// NewClient creates a pre-screen client for the given endpoint URL.
func NewClient(url string, opts ...ClientOption) *Client {
	c := &Client{
		url:        url,
		httpClient: http.DefaultClient,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Screen submits the raw candidate text. Transport and HTTP-level failures
// are returned as errors; the fail-open decision belongs to the caller.
func (c *Client) Screen(ctx context.Context, text string) (Result, error) {
	body, err := json.Marshal(map[string]string{"text": text})
	if err != nil {
		return Result{}, fmt.Errorf("failed to marshal screen request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(body))
	if err != nil {
		return Result{}, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return Result{}, fmt.Errorf("prescreen request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return Result{}, fmt.Errorf("failed to read prescreen response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return Result{}, fmt.Errorf("prescreen returned status %d: %s", resp.StatusCode, strings.TrimSpace(string(respBody)))
	}

	var result Result
	if err := json.Unmarshal(respBody, &result); err != nil {
		return Result{}, fmt.Errorf("failed to unmarshal prescreen response: %w", err)
	}
	return result, nil
}
