package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the Prometheus collectors exposed on /metrics.
// A nil *Metrics is valid and records nothing.
type Metrics struct {
	HTTPRequestsTotal   *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec

	RateLimitHits       *prometheus.CounterVec
	LoginAttempts       *prometheus.CounterVec
	AdminActions        *prometheus.CounterVec
	SectionUnavailable  *prometheus.CounterVec
	AssetDeleteFailures prometheus.Counter
}

// New registers the collectors on reg (the default registerer when nil).
func New(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	factory := promauto.With(reg)

	return &Metrics{
		HTTPRequestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "http_requests_total",
				Help: "Total number of HTTP requests by method, route, and status code",
			},
			[]string{"method", "route", "status_code"},
		),
		HTTPRequestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "http_request_duration_seconds",
				Help:    "HTTP request latency in seconds",
				Buckets: []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
			},
			[]string{"method", "route"},
		),
		RateLimitHits: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "rate_limit_rejections_total",
				Help: "Requests rejected by the rate limiter, by endpoint",
			},
			[]string{"endpoint"},
		),
		LoginAttempts: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "admin_login_attempts_total",
				Help: "Admin login attempts by outcome (success, failure)",
			},
			[]string{"status"},
		),
		AdminActions: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "admin_actions_total",
				Help: "Admin mutations by action",
			},
			[]string{"action"},
		),
		SectionUnavailable: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "section_unavailable_total",
				Help: "Public requests answered with the unavailable page, by section",
			},
			[]string{"section"},
		),
		AssetDeleteFailures: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "asset_delete_failures_total",
				Help: "Failed best-effort image deletions on the asset host",
			},
		),
	}
}

// RecordHTTPRequest records a finished request.
func (m *Metrics) RecordHTTPRequest(method, route string, status int, d time.Duration) {
	if m == nil {
		return
	}
	if route == "" {
		route = "unmatched"
	}
	m.HTTPRequestsTotal.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	m.HTTPRequestDuration.WithLabelValues(method, route).Observe(d.Seconds())
}

// RecordRateLimitHit records a rejection for endpoint.
func (m *Metrics) RecordRateLimitHit(endpoint string) {
	if m == nil {
		return
	}
	m.RateLimitHits.WithLabelValues(endpoint).Inc()
}

// RecordLoginAttempt records a login with status "success" or "failure".
func (m *Metrics) RecordLoginAttempt(status string) {
	if m == nil {
		return
	}
	m.LoginAttempts.WithLabelValues(status).Inc()
}

// RecordAdminAction records a committed admin mutation.
func (m *Metrics) RecordAdminAction(action string) {
	if m == nil {
		return
	}
	m.AdminActions.WithLabelValues(action).Inc()
}

// RecordSectionUnavailable records a request for a disabled section.
func (m *Metrics) RecordSectionUnavailable(section string) {
	if m == nil {
		return
	}
	m.SectionUnavailable.WithLabelValues(section).Inc()
}

// RecordAssetDeleteFailure records a failed remote image deletion.
func (m *Metrics) RecordAssetDeleteFailure() {
	if m == nil {
		return
	}
	m.AssetDeleteFailures.Inc()
}
