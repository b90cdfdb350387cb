package middleware

import (
	"net/http"
	"time"

	"github.com/sakif/videotube/internal/apperror"
	"github.com/sakif/videotube/internal/metrics"
	"github.com/sakif/videotube/internal/response"
)

// Metrics records request count, latency and in-flight requests per route.
func Metrics(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		metrics.HTTPActiveRequests.Inc()
		defer metrics.HTTPActiveRequests.Dec()

		start := time.Now()
		wrapped := wrap(w)
		next.ServeHTTP(wrapped, r)

		metrics.RecordHTTPRequest(r.Method, routePattern(r), wrapped.statusCode, time.Since(start))
	})
}

// RateLimited is the httprate limit handler: it counts the rejection and
// answers with the JSON envelope.
func RateLimited(w http.ResponseWriter, r *http.Request) {
	metrics.RateLimitHits.WithLabelValues(routePattern(r)).Inc()
	response.Error(w, r, apperror.RateLimited("Too many requests, try again later"))
}
