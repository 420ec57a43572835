package server

import (
	"context"
	"net/http"
	"time"
)

// TimeoutMiddleware bounds each request's context. Handlers must observe
// context.Done() themselves; the streaming ask handler uses this to stop
// emitting mid-scenario when the client goes away or the budget expires.
func TimeoutMiddleware(timeout time.Duration) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx, cancel := context.WithTimeout(r.Context(), timeout)
			defer cancel()
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
