package middleware

import (
	"net/http"
	"time"

	"github.com/lunajoy/matchengine/internal/metrics"
)

// Metrics returns middleware that records request counts and latencies by
// chi route pattern.
func Metrics(m *metrics.Metrics) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			rw := newResponseWriter(w)

			next.ServeHTTP(rw, r)

			m.ObserveHTTP(r.Method, routePattern(r), rw.statusCode, time.Since(start))
		})
	}
}
