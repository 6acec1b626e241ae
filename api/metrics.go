package api

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/warp/residency-engine/presence"
)

// =============================================================================
// METRICS
// =============================================================================

// Metrics holds the Prometheus collectors exposed on /metrics. Each Metrics
// owns its registry so tests can create as many as they like.
type Metrics struct {
	registry *prometheus.Registry

	Simulations    *prometheus.CounterVec
	Reports        *prometheus.CounterVec
	ReportDuration prometheus.Histogram
	Stays          *prometheus.CounterVec
}

// NewMetrics creates and registers all collectors.
func NewMetrics() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),

		Simulations: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "presence_simulations_total",
				Help: "Forward simulations run, by country and whether the target was reached",
			},
			[]string{"country", "reached"},
		),

		Reports: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "presence_reports_total",
				Help: "Reports built, by trigger (api, scheduler)",
			},
			[]string{"source"},
		),

		ReportDuration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "presence_report_duration_seconds",
				Help:    "Time to build a full report",
				Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1.0, 2.5},
			},
		),

		Stays: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "presence_stay_writes_total",
				Help: "Stay writes, by operation (create, delete)",
			},
			[]string{"op"},
		),
	}

	m.registry.MustRegister(m.Simulations, m.Reports, m.ReportDuration, m.Stays)
	return m
}

// Handler serves the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// ObserveSimulation counts one simulation result.
func (m *Metrics) ObserveSimulation(r presence.SimulationResult) {
	if m == nil {
		return
	}
	m.Simulations.WithLabelValues(string(r.Country), strconv.FormatBool(r.Reached)).Inc()
}

// ObserveReport counts one report and its build time.
func (m *Metrics) ObserveReport(source string, started time.Time) {
	if m == nil {
		return
	}
	m.Reports.WithLabelValues(source).Inc()
	m.ReportDuration.Observe(time.Since(started).Seconds())
}

// ObserveStayWrite counts one stay create or delete.
func (m *Metrics) ObserveStayWrite(op string) {
	if m == nil {
		return
	}
	m.Stays.WithLabelValues(op).Inc()
}
