package middleware

import (
	"net/http"
	"strconv"
	"time"

	"dispensary-queue/internal/infrastructure/metrics"

	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"
)

// MetricsMiddleware records request counts and latency per route template and logs each request at debug.
type MetricsMiddleware struct {
	metrics *metrics.Metrics
	log     *logrus.Logger
}

func NewMetricsMiddleware(m *metrics.Metrics, log *logrus.Logger) *MetricsMiddleware {
	return &MetricsMiddleware{
		metrics: m,
		log:     log,
	}
}

func (m *MetricsMiddleware) Handle(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		wrapper := &statusRecorder{ResponseWriter: w, statusCode: http.StatusOK}

		next.ServeHTTP(wrapper, r)

		elapsed := time.Since(start)
		route := routeTemplate(r)
		m.metrics.RecordHTTPRequest(r.Method, route, strconv.Itoa(wrapper.statusCode), elapsed)

		m.log.WithFields(logrus.Fields{
			"method":      r.Method,
			"route":       route,
			"status":      wrapper.statusCode,
			"duration_ms": elapsed.Milliseconds(),
		}).Debug("HTTP request")
	})
}

// routeTemplate keeps label cardinality bounded: /bookings/{id}/cancel rather than the raw path.
func routeTemplate(r *http.Request) string {
	if route := mux.CurrentRoute(r); route != nil {
		if tpl, err := route.GetPathTemplate(); err == nil {
			return tpl
		}
	}
	return "unmatched"
}

// statusRecorder wraps http.ResponseWriter to capture status code
type statusRecorder struct {
	http.ResponseWriter
	statusCode int
}

func (rw *statusRecorder) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}
