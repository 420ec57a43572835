package voice

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
)

// SpeechClientOption configures the speech client.
type SpeechClientOption func(*SpeechClient)

// WithSpeechHTTPClient sets a custom HTTP client.
func WithSpeechHTTPClient(httpClient *http.Client) SpeechClientOption {
	return func(c *SpeechClient) {
		c.httpClient = httpClient
	}
}

// SpeechClient wraps the speech synthesis collaborator endpoint.
type SpeechClient struct {
	url        string
	httpClient *http.Client
}

// NewSpeechClient creates a synthesis client for the given endpoint URL.
func NewSpeechClient(url string, opts ...SpeechClientOption) *SpeechClient {
	c := &SpeechClient{
		url:        url,
		httpClient: http.DefaultClient,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Synthesize posts text and language and returns the audio payload. A failure
// response carries a JSON error body.
func (c *SpeechClient) Synthesize(ctx context.Context, text, language string) ([]byte, error) {
	body, err := json.Marshal(map[string]string{"text": text, "language": language})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal speech request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("speech request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read speech response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		var apiErr struct {
			Error string `json:"error"`
		}
		if err := json.Unmarshal(respBody, &apiErr); err == nil && apiErr.Error != "" {
			return nil, fmt.Errorf("speech synthesis failed: %s", apiErr.Error)
		}
		return nil, fmt.Errorf("speech synthesis failed with status %d: %s", resp.StatusCode, strings.TrimSpace(string(respBody)))
	}

	return respBody, nil
}
