package httpapi

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the Prometheus collectors of the storefront API.
type Metrics struct {
	registry *prometheus.Registry

	HTTPRequestsTotal   *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec

	// Auth flow outcomes, e.g. event="login", outcome="rejected".
	AuthEventsTotal *prometheus.CounterVec
	ThrottledTotal  *prometheus.CounterVec
	MailTotal       *prometheus.CounterVec
}

// NewMetrics creates and registers all collectors on registry.
func NewMetrics(registry *prometheus.Registry) *Metrics {
	m := &Metrics{
		registry: registry,
		HTTPRequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "minimart_http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "route", "status"},
		),
		HTTPRequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "minimart_http_request_duration_seconds",
				Help:    "HTTP request duration in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "route"},
		),
		AuthEventsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "minimart_auth_events_total",
				Help: "Auth flow results by event and outcome",
			},
			[]string{"event", "outcome"},
		),
		ThrottledTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "minimart_throttled_total",
				Help: "Requests rejected by attempt throttling",
			},
			[]string{"action"},
		),
		MailTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "minimart_mail_deliveries_total",
				Help: "Outbound mail deliveries by status",
			},
			[]string{"status"},
		),
	}

	registry.MustRegister(
		m.HTTPRequestsTotal,
		m.HTTPRequestDuration,
		m.AuthEventsTotal,
		m.ThrottledTotal,
		m.MailTotal,
	)

	return m
}

// ObserveMail is meant for mailer.Dispatcher.OnResult.
func (m *Metrics) ObserveMail(err error) {
	status := "sent"
	if err != nil {
		status = "failed"
	}
	m.MailTotal.WithLabelValues(status).Inc()
}

func (m *Metrics) authEvent(event, outcome string) {
	m.AuthEventsTotal.WithLabelValues(event, outcome).Inc()
}

// Handler serves the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// responseWriter wraps http.ResponseWriter to capture the status code.
type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

func (m *Metrics) observeRequest(method, route string, status int, elapsed time.Duration) {
	m.HTTPRequestsTotal.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	m.HTTPRequestDuration.WithLabelValues(method, route).Observe(elapsed.Seconds())
}
