package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the service's Prometheus collectors. A nil *Metrics is valid and records nothing.
type Metrics struct {
	reservationsTotal   *prometheus.CounterVec
	allocationDuration  *prometheus.HistogramVec
	httpRequestsTotal   *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec
}

// New creates the collectors and registers them with reg.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		reservationsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "queue_reservations_total",
				Help: "Total number of reservation attempts by channel and outcome",
			},
			[]string{"channel", "outcome"},
		),
		allocationDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "queue_allocation_duration_seconds",
				Help:    "Duration of the atomic appointment number allocation",
				Buckets: []float64{0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1.0, 5.0},
			},
			[]string{"backend"},
		),
		httpRequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "route", "status_code"},
		),
		httpRequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "http_request_duration_seconds",
				Help:    "Duration of HTTP requests in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "route"},
		),
	}

	reg.MustRegister(m.reservationsTotal, m.allocationDuration, m.httpRequestsTotal, m.httpRequestDuration)
	return m
}

func (m *Metrics) RecordReservation(channel, outcome string) {
	if m == nil {
		return
	}
	m.reservationsTotal.WithLabelValues(channel, outcome).Inc()
}

func (m *Metrics) ObserveAllocation(backend string, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.allocationDuration.WithLabelValues(backend).Observe(elapsed.Seconds())
}

func (m *Metrics) RecordHTTPRequest(method, route, statusCode string, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.httpRequestsTotal.WithLabelValues(method, route, statusCode).Inc()
	m.httpRequestDuration.WithLabelValues(method, route).Observe(elapsed.Seconds())
}

// ReservationsTotal exposes the reservation counter for assertions.
func (m *Metrics) ReservationsTotal() *prometheus.CounterVec {
	return m.reservationsTotal
}
