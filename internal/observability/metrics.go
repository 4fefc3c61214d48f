// Package observability exposes Prometheus metrics for the server
package observability

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the server's collectors on a private registry
type Metrics struct {
	registry        *prometheus.Registry
	requests        *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
	calculations    *prometheus.CounterVec
	estimates       *prometheus.CounterVec
	authEvents      *prometheus.CounterVec
}

// NewMetrics registers the collectors
func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()
	m := &Metrics{
		registry: reg,
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "realestate",
			Name:      "http_requests_total",
			Help:      "HTTP requests by method, route and status.",
		}, []string{"method", "route", "status"}),
		requestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "realestate",
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency by route.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "route"}),
		calculations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "realestate",
			Name:      "calculations_total",
			Help:      "Calculator runs by kind and cache outcome.",
		}, []string{"kind", "cache"}),
		estimates: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "realestate",
			Name:      "estimator_requests_total",
			Help:      "Price estimator calls by outcome.",
		}, []string{"outcome"}),
		authEvents: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "realestate",
			Name:      "auth_events_total",
			Help:      "Session events by type.",
		}, []string{"type"}),
	}

	reg.MustRegister(
		m.requests, m.requestDuration, m.calculations, m.estimates, m.authEvents,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

// Handler serves the exposition format
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Registry returns the underlying registry
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Middleware records request counts and latency by chi route pattern
func (m *Metrics) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()

		next.ServeHTTP(ww, r)

		route := "unmatched"
		if rctx := chi.RouteContext(r.Context()); rctx != nil {
			if p := rctx.RoutePattern(); p != "" {
				route = p
			}
		}
		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		m.requests.WithLabelValues(r.Method, route, strconv.Itoa(status)).Inc()
		m.requestDuration.WithLabelValues(r.Method, route).Observe(time.Since(start).Seconds())
	})
}

// ObserveCalculation counts a calculator run; cached reports a result-cache hit
func (m *Metrics) ObserveCalculation(kind string, cached bool) {
	outcome := "miss"
	if cached {
		outcome = "hit"
	}
	m.calculations.WithLabelValues(kind, outcome).Inc()
}

// ObserveEstimate counts an estimator call
func (m *Metrics) ObserveEstimate(err error) {
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	m.estimates.WithLabelValues(outcome).Inc()
}

// ObserveAuthEvent counts a login or logout
func (m *Metrics) ObserveAuthEvent(eventType string) {
	m.authEvents.WithLabelValues(eventType).Inc()
}
