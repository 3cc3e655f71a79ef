// internal/app/system/metrics/metrics.go
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the Prometheus collectors for the API.
type Metrics struct {
	Registry *prometheus.Registry

	// HTTP
	HTTPRequestsTotal   *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec

	// Authorization
	AuthzDenialsTotal *prometheus.CounterVec

	// Notifications
	PushPublishedTotal *prometheus.CounterVec
	PushDeliveredTotal *prometheus.CounterVec
	PushPrunedTotal    prometheus.Counter

	// Mail OTP
	OTPSentTotal *prometheus.CounterVec

	// Realtime
	RealtimeConnections prometheus.Gauge

	// Background jobs
	JobRunsTotal *prometheus.CounterVec
}

// New creates and registers every collector on registry. A nil registry
// gets a fresh one.
func New(registry *prometheus.Registry) *Metrics {
	if registry == nil {
		registry = prometheus.NewRegistry()
	}
	m := &Metrics{
		Registry: registry,
		HTTPRequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "churchhub_http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "route", "status"},
		),
		HTTPRequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "churchhub_http_request_duration_seconds",
				Help:    "HTTP request duration in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "route"},
		),
		AuthzDenialsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "churchhub_authz_denials_total",
				Help: "Requests refused by the authorization engine",
			},
			[]string{"route"},
		),
		PushPublishedTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "churchhub_push_published_total",
				Help: "Notifications handed to the dispatcher",
			},
			[]string{"result"}, // queued | dropped
		),
		PushDeliveredTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "churchhub_push_delivered_total",
				Help: "Per-token push delivery outcomes",
			},
			[]string{"result"}, // success | failure
		),
		PushPrunedTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "churchhub_push_pruned_tokens_total",
				Help: "Device tokens removed after the provider reported them unregistered",
			},
		),
		OTPSentTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "churchhub_mail_otp_sent_total",
				Help: "Mail OTP delivery attempts",
			},
			[]string{"result"},
		),
		RealtimeConnections: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "churchhub_realtime_connections",
				Help: "Open realtime websocket connections",
			},
		),
		JobRunsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "churchhub_job_runs_total",
				Help: "Scheduled job executions",
			},
			[]string{"job", "result"},
		),
	}

	registry.MustRegister(
		m.HTTPRequestsTotal,
		m.HTTPRequestDuration,
		m.AuthzDenialsTotal,
		m.PushPublishedTotal,
		m.PushDeliveredTotal,
		m.PushPrunedTotal,
		m.OTPSentTotal,
		m.RealtimeConnections,
		m.JobRunsTotal,
	)
	return m
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.Registry, promhttp.HandlerOpts{})
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

// Unwrap lets http.ResponseController reach the underlying writer, which
// the websocket upgrade needs for hijacking.
func (rw *responseWriter) Unwrap() http.ResponseWriter { return rw.ResponseWriter }

// Middleware instruments requests. Routes are labeled by their chi pattern
// so ids in paths do not explode label cardinality.
func (m *Metrics) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rw := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}

		next.ServeHTTP(rw, r)

		route := "unmatched"
		if rctx := chi.RouteContext(r.Context()); rctx != nil {
			if p := rctx.RoutePattern(); p != "" {
				route = p
			}
		}
		m.HTTPRequestsTotal.WithLabelValues(r.Method, route, strconv.Itoa(rw.statusCode)).Inc()
		m.HTTPRequestDuration.WithLabelValues(r.Method, route).Observe(time.Since(start).Seconds())
		if rw.statusCode == http.StatusForbidden {
			m.AuthzDenialsTotal.WithLabelValues(route).Inc()
		}
	})
}
