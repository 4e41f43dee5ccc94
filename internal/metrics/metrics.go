// Package metrics provides Prometheus metrics for the hydration pipeline.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus metrics for gibson.
type Metrics struct {
	HydrationsTotal  *prometheus.CounterVec
	HydrationSeconds *prometheus.HistogramVec
	AnalyzerRuns     *prometheus.CounterVec
	AnalyzerSeconds  *prometheus.HistogramVec
	ProjectsManaged  prometheus.Gauge
	GitOpsTotal      *prometheus.CounterVec

	registry *prometheus.Registry
}

// New creates and registers all metrics on a private registry.
func New() *Metrics {
	reg := prometheus.NewRegistry()

	m := &Metrics{
		HydrationsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "gibson_hydrations_total",
				Help: "Total hydration runs by mode and outcome.",
			},
			[]string{"mode", "status"},
		),
		HydrationSeconds: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "gibson_hydration_duration_seconds",
				Help:    "End-to-end hydration duration by mode.",
				Buckets: prometheus.ExponentialBuckets(0.5, 2, 12),
			},
			[]string{"mode"},
		),
		AnalyzerRuns: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "gibson_analyzer_runs_total",
				Help: "Total analyzer executions by analyzer and status.",
			},
			[]string{"analyzer", "status"},
		),
		AnalyzerSeconds: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "gibson_analyzer_duration_seconds",
				Help:    "Analyzer execution duration.",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"analyzer"},
		),
		ProjectsManaged: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "gibson_projects_managed",
				Help: "Number of projects present in the storage root.",
			},
		),
		GitOpsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "gibson_git_operations_total",
				Help: "Git operations by kind and outcome.",
			},
			[]string{"op", "status"},
		),
		registry: reg,
	}

	reg.MustRegister(m.HydrationsTotal)
	reg.MustRegister(m.HydrationSeconds)
	reg.MustRegister(m.AnalyzerRuns)
	reg.MustRegister(m.AnalyzerSeconds)
	reg.MustRegister(m.ProjectsManaged)
	reg.MustRegister(m.GitOpsTotal)

	return m
}

// Handler returns an http.Handler for the /metrics endpoint.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// RecordHydration increments the hydration counter.
func (m *Metrics) RecordHydration(mode, status string) {
	m.HydrationsTotal.WithLabelValues(mode, status).Inc()
}

// ObserveHydration records end-to-end hydration duration.
func (m *Metrics) ObserveHydration(mode string, seconds float64) {
	m.HydrationSeconds.WithLabelValues(mode).Observe(seconds)
}

// RecordAnalyzer increments the analyzer run counter.
func (m *Metrics) RecordAnalyzer(analyzer, status string) {
	m.AnalyzerRuns.WithLabelValues(analyzer, status).Inc()
}

// ObserveAnalyzer records one analyzer execution duration.
func (m *Metrics) ObserveAnalyzer(analyzer string, seconds float64) {
	m.AnalyzerSeconds.WithLabelValues(analyzer).Observe(seconds)
}

// SetProjects sets the managed project gauge.
func (m *Metrics) SetProjects(count float64) {
	m.ProjectsManaged.Set(count)
}

// RecordGitOp increments the git operation counter.
func (m *Metrics) RecordGitOp(op, status string) {
	m.GitOpsTotal.WithLabelValues(op, status).Inc()
}
