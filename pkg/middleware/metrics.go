package middleware

import (
	"net/http"
	"planner/pkg/metrics"
	"regexp"
	"strconv"
	"time"
)

var reObjectID = regexp.MustCompile(`[0-9a-fA-F]{24}`)

// Metrics records request counts and latency. Object ids in the path are
// collapsed to ":id" to keep label cardinality bounded.
func Metrics(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		wrapped := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}

		next.ServeHTTP(wrapped, r)

		route := reObjectID.ReplaceAllString(r.URL.Path, ":id")
		metrics.HTTPRequestDuration.WithLabelValues(r.Method, route).Observe(time.Since(start).Seconds())
		metrics.HTTPRequestsTotal.WithLabelValues(r.Method, route, strconv.Itoa(wrapped.statusCode)).Inc()
	})
}
