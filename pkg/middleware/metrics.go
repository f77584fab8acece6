package middleware

import (
	"net/http"
	"strconv"
	"time"

	"github.com/Adithya-Monish-Kumar-K/keyword-index/pkg/logger"
	"github.com/Adithya-Monish-Kumar-K/keyword-index/pkg/metrics"
)

// routes are the paths reported as their own label value; everything else is
// "other" so scanners cannot inflate label cardinality.
var routes = map[string]bool{
	"/api/v1/complete":         true,
	"/api/v1/indexes":          true,
	"/api/v1/cache/stats":      true,
	"/api/v1/cache/invalidate": true,
	"/api/v1/reindex":          true,
	"/health/live":             true,
	"/health/ready":            true,
}

// Metrics records request count, latency and in-flight requests, and logs
// every request at debug level.
func Metrics(m *metrics.Metrics) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			m.HTTPRequestsInFlight.Inc()
			rec := &statusRecorder{ResponseWriter: w}

			defer func() {
				m.HTTPRequestsInFlight.Dec()
				took := time.Since(start)
				path := routeLabel(r.URL.Path)
				status := rec.statusCode()
				m.HTTPRequestsTotal.WithLabelValues(r.Method, path, strconv.Itoa(status)).Inc()
				m.HTTPRequestDuration.WithLabelValues(r.Method, path).Observe(took.Seconds())
				logger.FromContext(r.Context()).Debug("http request",
					"method", r.Method,
					"path", r.URL.Path,
					"status", status,
					"bytes", rec.bytes,
					"duration", took,
				)
			}()

			next.ServeHTTP(rec, r)
		})
	}
}

type statusRecorder struct {
	http.ResponseWriter
	status int
	bytes  int
}

func (s *statusRecorder) WriteHeader(code int) {
	if s.status == 0 {
		s.status = code
	}
	s.ResponseWriter.WriteHeader(code)
}

func (s *statusRecorder) Write(b []byte) (int, error) {
	if s.status == 0 {
		s.status = http.StatusOK
	}
	n, err := s.ResponseWriter.Write(b)
	s.bytes += n
	return n, err
}

func (s *statusRecorder) statusCode() int {
	if s.status == 0 {
		return http.StatusOK
	}
	return s.status
}

func routeLabel(path string) string {
	if routes[path] {
		return path
	}
	return "other"
}
