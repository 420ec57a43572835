// Package stream is the client for the agent backend: it opens one turn's
// streaming request, decodes the event-stream framing, and delivers
// normalized events in arrival order. Transport failures are converted into a
// single synthetic agent_error event so consumers fold exactly one input
// contract.
package stream

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/kestrelview/kestrel/internal/event"
	"github.com/kestrelview/kestrel/internal/wire"
)

// AskRequest is the JSON POST body for one user turn.
type AskRequest struct {
	Message             string   `json:"message"`
	Mode                string   `json:"mode"`
	ConversationID      string   `json:"conversation_id,omitempty"`
	Profile             string   `json:"profile,omitempty"`
	RequiredSources     []string `json:"required_sources,omitempty"`
	FreshnessSLAMinutes int      `json:"freshness_sla_minutes,omitempty"`
	Explain             bool     `json:"explain"`
	RiskMode            string   `json:"risk_mode,omitempty"`
	Scenario            string   `json:"scenario,omitempty"`
}

// HTTPError is a non-2xx backend response, shown to the user as-is.
type HTTPError struct {
	StatusCode int
	Body       string
}

func (e *HTTPError) Error() string {
	return fmt.Sprintf("backend returned status %d: %s", e.StatusCode, e.Body)
}

// ClientOption configures the client.
type ClientOption func(*Client)

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(httpClient *http.Client) ClientOption {
	return func(c *Client) {
		c.httpClient = httpClient
	}
}

// WithLogger sets the logger for the client.
func WithLogger(logger *slog.Logger) ClientOption {
	return func(c *Client) {
		c.logger = logger
	}
}

// WithMaxAttempts sets the retry budget for the initial request.
func WithMaxAttempts(maxAttempts int) ClientOption {
	return func(c *Client) {
		c.maxAttempts = maxAttempts
	}
}

// WithRetryBaseDelay sets the linear backoff base delay.
func WithRetryBaseDelay(baseDelay time.Duration) ClientOption {
	return func(c *Client) {
		c.baseDelay = baseDelay
	}
}

// Client talks to the agent backend.
type Client struct {
	baseURL     string
	httpClient  *http.Client
	logger      *slog.Logger
	maxAttempts int
	baseDelay   time.Duration
}

// NewClient creates a backend client. The default transport is instrumented
// with OpenTelemetry.
func NewClient(baseURL string, opts ...ClientOption) *Client {
	c := &Client{
		baseURL:     strings.TrimSuffix(baseURL, "/"),
		httpClient:  &http.Client{Transport: otelhttp.NewTransport(http.DefaultTransport)},
		logger:      slog.Default(),
		maxAttempts: defaultMaxAttempts,
		baseDelay:   defaultBaseDelay,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Ask opens one turn's stream. On success the returned channel delivers
// normalized events in arrival order and is closed when the stream ends or an
// agent error terminates it. A transport failure after retries is delivered
// as a single synthetic agent_error event on the same channel. A non-2xx
// response is returned as *HTTPError.
func (c *Client) Ask(ctx context.Context, req *AskRequest) (<-chan event.Event, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal ask request: %w", err)
	}

	build := func() (*http.Request, error) {
		httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v1/ask", bytes.NewReader(body))
		if err != nil {
			return nil, fmt.Errorf("failed to create request: %w", err)
		}
		httpReq.Header.Set("Content-Type", "application/json")
		httpReq.Header.Set("Accept", "text/event-stream")
		return httpReq, nil
	}

	resp, err := DoWithRetry(ctx, c.httpClient, build, c.maxAttempts, c.baseDelay)
	if err != nil {
		c.logger.Error("backend unreachable after retries", slog.String("error", err.Error()))
		out := make(chan event.Event, 1)
		out <- syntheticAgentError("backend unreachable: " + err.Error())
		close(out)
		return out, nil
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		defer resp.Body.Close()
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 64*1024))
		return nil, &HTTPError{StatusCode: resp.StatusCode, Body: strings.TrimSpace(string(respBody))}
	}

	out := make(chan event.Event)
	go c.readStream(ctx, resp.Body, out)
	return out, nil
}

// readStream pumps body chunks through the frame decoder and normalizer.
// The reader is abandoned after an agent error; accumulated state downstream
// is finalized from whatever was read.
func (c *Client) readStream(ctx context.Context, body io.ReadCloser, out chan<- event.Event) {
	defer close(out)
	defer body.Close()

	var dec wire.Decoder
	buf := make([]byte, 32*1024)
	for {
		n, err := body.Read(buf)
		if n > 0 {
			for _, raw := range dec.Feed(buf[:n]) {
				ev, ok := event.Normalize(raw)
				if !ok {
					continue
				}
				if !send(ctx, out, ev) {
					return
				}
				if ev.Kind == event.KindAgentError || ev.Kind == event.KindError {
					return
				}
			}
		}
		if err != nil {
			if err != io.EOF {
				c.logger.Warn("stream read interrupted", slog.String("error", err.Error()))
				send(ctx, out, syntheticAgentError("stream interrupted: "+err.Error()))
				return
			}
			for _, raw := range dec.Close() {
				if ev, ok := event.Normalize(raw); ok {
					if !send(ctx, out, ev) {
						return
					}
				}
			}
			return
		}
	}
}

func send(ctx context.Context, out chan<- event.Event, ev event.Event) bool {
	select {
	case out <- ev:
		return true
	case <-ctx.Done():
		return false
	}
}

func syntheticAgentError(message string) event.Event {
	return event.Event{
		Kind:    event.KindAgentError,
		Time:    time.Now(),
		Message: message,
	}
}
