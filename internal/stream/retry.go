package stream

import (
	"context"
	"net/http"
	"time"
)

const (
	defaultMaxAttempts = 3
	defaultBaseDelay   = 500 * time.Millisecond
)

// DoWithRetry issues the request produced by build with bounded retry. A
// transport-level failure is retried with linear backoff (attempt index times
// baseDelay) and the last error is returned if every attempt fails. A 4xx
// response is returned immediately: client errors are not transient. Any
// other non-2xx response is retried, and after the last attempt the response
// is returned as-is, so an HTTP-level failure never surfaces as an error.
// build is called once per attempt because a request body cannot be replayed.
func DoWithRetry(ctx context.Context, client *http.Client, build func() (*http.Request, error), maxAttempts int, baseDelay time.Duration) (*http.Response, error) {
	if maxAttempts < 1 {
		maxAttempts = defaultMaxAttempts
	}

	var lastErr error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		req, err := build()
		if err != nil {
			return nil, err
		}

		resp, err := client.Do(req)
		if err == nil {
			if resp.StatusCode >= 200 && resp.StatusCode < 300 {
				return resp, nil
			}
			if resp.StatusCode >= 400 && resp.StatusCode < 500 {
				return resp, nil
			}
			if attempt == maxAttempts {
				return resp, nil
			}
			resp.Body.Close()
		} else {
			lastErr = err
			if attempt == maxAttempts {
				return nil, lastErr
			}
		}

		delay := time.Duration(attempt) * baseDelay
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(delay):
		}
	}
	return nil, lastErr
}
