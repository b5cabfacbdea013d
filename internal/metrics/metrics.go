// Package metrics exposes prometheus counters for record lifecycle outcomes,
// generated reports and malfunction alerts. A nil *Metrics is valid and records nothing.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "endotrace"

// Metrics holds the application collectors and the registry they live in
type Metrics struct {
	registry   *prometheus.Registry
	operations *prometheus.CounterVec
	reports    *prometheus.CounterVec
	alerts     *prometheus.CounterVec
	requests   *prometheus.HistogramVec
}

// New creates a registry with process and Go runtime collectors plus the application counters
func New() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	m := &Metrics{
		registry: reg,
		operations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "operations_total",
			Help:      "Record lifecycle operations by kind, action and outcome.",
		}, []string{"kind", "action", "outcome"}),
		reports: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "reports_generated_total",
			Help:      "Generated PDF reports by category.",
		}, []string{"category"}),
		alerts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "malfunction_alerts_total",
			Help:      "Malfunction alert deliveries by outcome.",
		}, []string{"outcome"}),
		requests: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency by route and status class.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "route", "status"}),
	}
	reg.MustRegister(m.operations, m.reports, m.alerts, m.requests)
	return m
}

// Handler serves the registry in the prometheus text format
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// Registry returns the underlying registry
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// ObserveOperation counts one lifecycle operation. outcome is "ok" or an error class.
func (m *Metrics) ObserveOperation(kind, action, outcome string) {
	if m == nil {
		return
	}
	m.operations.WithLabelValues(kind, action, outcome).Inc()
}

// ObserveReport counts one generated report
func (m *Metrics) ObserveReport(category string) {
	if m == nil {
		return
	}
	m.reports.WithLabelValues(category).Inc()
}

// ObserveAlert counts one alert delivery attempt
func (m *Metrics) ObserveAlert(err error) {
	if m == nil {
		return
	}
	outcome := "sent"
	if err != nil {
		outcome = "failed"
	}
	m.alerts.WithLabelValues(outcome).Inc()
}

// ObserveRequest records the latency of one HTTP request
func (m *Metrics) ObserveRequest(method, route, status string, seconds float64) {
	if m == nil {
		return
	}
	m.requests.WithLabelValues(method, route, status).Observe(seconds)
}
