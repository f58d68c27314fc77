// Package metrics exposes Prometheus collectors for review runs.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/dshills/stylegate/internal/review"
)

// Metrics holds stylegate's collectors on a private registry. A nil
// *Metrics is valid and records nothing.
type Metrics struct {
	registry   *prometheus.Registry
	runs       *prometheus.CounterVec
	violations *prometheus.CounterVec
	failures   *prometheus.CounterVec
	duration   prometheus.Histogram
}

func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		runs: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "stylegate",
			Name:      "runs_total",
			Help:      "Review runs by verdict outcome.",
		}, []string{"outcome"}),
		violations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "stylegate",
			Name:      "violations_total",
			Help:      "Rule violations by rule and criticality.",
		}, []string{"rule", "critical"}),
		failures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "stylegate",
			Name:      "collaborator_failures_total",
			Help:      "Failed calls to external collaborators by operation.",
		}, []string{"op"}),
		duration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "stylegate",
			Name:      "run_duration_seconds",
			Help:      "Wall time of a review run, diff fetch included.",
			Buckets:   prometheus.DefBuckets,
		}),
	}
	m.registry.MustRegister(
		m.runs, m.violations, m.failures, m.duration,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

// ObserveReport records a finished run.
func (m *Metrics) ObserveReport(r *review.Report, seconds float64) {
	if m == nil || r == nil {
		return
	}
	m.runs.WithLabelValues(string(r.Verdict.Outcome)).Inc()
	for _, v := range r.Violations {
		crit := "false"
		if v.Critical {
			crit = "true"
		}
		m.violations.WithLabelValues(v.RuleID, crit).Inc()
	}
	m.duration.Observe(seconds)
}

// Failure counts a failed collaborator call such as "fetch_diff" or
// "set_status".
func (m *Metrics) Failure(op string) {
	if m == nil {
		return
	}
	m.failures.WithLabelValues(op).Inc()
}

// Registry returns the underlying registry.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
