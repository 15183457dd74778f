// Package metrics owns the Prometheus collectors exported at /metrics.
//
// All recording methods are safe on a nil *Metrics so that packages can be
// used without instrumentation in tests and tooling.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "grq"

// Metrics groups the HTTP and domain collectors on a private registry.
type Metrics struct {
	Registry *prometheus.Registry

	RequestCount    *prometheus.CounterVec
	RequestDuration *prometheus.HistogramVec

	CheckoutSessions *prometheus.CounterVec
	Confirmations    *prometheus.CounterVec
	LedgerFallbacks  *prometheus.CounterVec
	AccessDecisions  *prometheus.CounterVec
}

// New creates and registers every collector.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	m := &Metrics{
		Registry: reg,
		RequestCount: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total number of HTTP requests",
		}, []string{"method", "route", "status"}),
		RequestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "Duration of HTTP requests in seconds",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "route"}),
		CheckoutSessions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "checkout_sessions_total",
			Help:      "Checkout sessions requested from the payment provider",
		}, []string{"outcome"}),
		Confirmations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "confirmations_total",
			Help:      "Payment confirmations by entry point and outcome",
		}, []string{"path", "outcome"}),
		LedgerFallbacks: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "ledger_fallbacks_total",
			Help:      "Ledger operations served by the in-process store after a durable store failure",
		}, []string{"op"}),
		AccessDecisions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "access_decisions_total",
			Help:      "Access gate decisions by method",
		}, []string{"method", "granted"}),
	}
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.RequestCount,
		m.RequestDuration,
		m.CheckoutSessions,
		m.Confirmations,
		m.LedgerFallbacks,
		m.AccessDecisions,
	)
	return m
}

// Checkout counts a checkout attempt ("created" or "failed").
func (m *Metrics) Checkout(outcome string) {
	if m == nil {
		return
	}
	m.CheckoutSessions.WithLabelValues(outcome).Inc()
}

// Confirmation counts one pass through a confirmation entry point.
func (m *Metrics) Confirmation(path, outcome string) {
	if m == nil {
		return
	}
	m.Confirmations.WithLabelValues(path, outcome).Inc()
}

// LedgerFallback counts a get or set that fell back to memory.
func (m *Metrics) LedgerFallback(op string) {
	if m == nil {
		return
	}
	m.LedgerFallbacks.WithLabelValues(op).Inc()
}

// AccessDecision counts a gate decision.  method is empty for denials.
func (m *Metrics) AccessDecision(method string, granted bool) {
	if m == nil {
		return
	}
	if method == "" {
		method = "none"
	}
	m.AccessDecisions.WithLabelValues(method, strconv.FormatBool(granted)).Inc()
}

// Handler serves the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.Registry, promhttp.HandlerOpts{Registry: m.Registry})
}

// Middleware records count and latency per route template.
func (m *Metrics) Middleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()
			err := next(c)
			if err != nil {
				c.Error(err)
			}
			route := c.Path()
			if route == "" {
				route = "unmatched"
			}
			method := c.Request().Method
			status := strconv.Itoa(c.Response().Status)
			m.RequestCount.WithLabelValues(method, route, status).Inc()
			m.RequestDuration.WithLabelValues(method, route).Observe(time.Since(start).Seconds())
			return nil
		}
	}
}
