package middleware

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/cloudwear/cloudwear-api/internal/metrics"
)

// Metrics returns middleware that records each request in the
// Prometheus instruments. The chi route pattern (e.g. "/users/{id}")
// is used as the path label so parameterized routes collapse into one
// series instead of one per ID.
func Metrics() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()

			wrapped := &responseWriter{
				ResponseWriter: w,
				statusCode:     http.StatusOK,
			}

			next.ServeHTTP(wrapped, r)

			// The pattern is only resolved after routing ran.
			path := r.URL.Path
			if rctx := chi.RouteContext(r.Context()); rctx != nil {
				if pattern := rctx.RoutePattern(); pattern != "" {
					path = pattern
				}
			}

			metrics.ObserveHTTPRequest(r.Method, path,
				strconv.Itoa(wrapped.statusCode), time.Since(start))
		})
	}
}
