// Package metrics exposes Prometheus instrumentation for solver and
// gate activity. All helpers are nil-safe so library users who do not
// care about metrics can pass a nil *Metrics everywhere.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics is the collector set of the optimization core.
type Metrics struct {
	// Kernel metrics
	SolveOperationsTotal *prometheus.CounterVec
	SolveDuration        *prometheus.HistogramVec
	SolveIterations      *prometheus.HistogramVec

	// Gate metrics
	GateDecisionsTotal    *prometheus.CounterVec
	InvariantFailuresTotal *prometheus.CounterVec
	PlanConfidence        prometheus.Histogram

	// Cache metrics
	CacheHitsTotal   prometheus.Counter
	CacheMissesTotal prometheus.Counter
}

// New creates the collector set and registers it on the given
// registerer. Pass prometheus.DefaultRegisterer for process-global
// metrics or a private registry in tests.
func New(namespace, subsystem string, reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		SolveOperationsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "solve_operations_total",
				Help:      "Total number of kernel solve operations",
			},
			[]string{"solver", "status"},
		),

		SolveDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "solve_duration_seconds",
				Help:      "Duration of kernel solve operations",
				Buckets:   []float64{.001, .005, .01, .05, .1, .25, .5, 1, 2.5, 5, 10, 30},
			},
			[]string{"solver"},
		),

		SolveIterations: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "solve_iterations",
				Help:      "Iterations per kernel solve",
				Buckets:   prometheus.ExponentialBuckets(1, 4, 10),
			},
			[]string{"solver"},
		),

		GateDecisionsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "gate_decisions_total",
				Help:      "Promotion gate decisions",
			},
			[]string{"pack", "decision"},
		),

		InvariantFailuresTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "invariant_failures_total",
				Help:      "Invariant failures by pack, invariant and severity",
			},
			[]string{"pack", "invariant", "severity"},
		),

		PlanConfidence: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "plan_confidence",
				Help:      "Confidence of proposed plans",
				Buckets:   prometheus.LinearBuckets(0, 0.1, 11),
			},
		),

		CacheHitsTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "plan_cache_hits_total",
				Help:      "Plan cache hits",
			},
		),

		CacheMissesTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "plan_cache_misses_total",
				Help:      "Plan cache misses",
			},
		),
	}

	if reg != nil {
		reg.MustRegister(
			m.SolveOperationsTotal,
			m.SolveDuration,
			m.SolveIterations,
			m.GateDecisionsTotal,
			m.InvariantFailuresTotal,
			m.PlanConfidence,
			m.CacheHitsTotal,
			m.CacheMissesTotal,
		)
	}

	return m
}

// ObserveSolve records one kernel solve.
func (m *Metrics) ObserveSolve(solver, status string, duration time.Duration, iterations int) {
	if m == nil {
		return
	}
	m.SolveOperationsTotal.WithLabelValues(solver, status).Inc()
	m.SolveDuration.WithLabelValues(solver).Observe(duration.Seconds())
	m.SolveIterations.WithLabelValues(solver).Observe(float64(iterations))
}

// ObserveDecision records one promotion-gate decision.
func (m *Metrics) ObserveDecision(pack, decision string, confidence float64) {
	if m == nil {
		return
	}
	m.GateDecisionsTotal.WithLabelValues(pack, decision).Inc()
	m.PlanConfidence.Observe(confidence)
}

// ObserveInvariantFailure records one failed invariant evaluation.
func (m *Metrics) ObserveInvariantFailure(pack, invariant, severity string) {
	if m == nil {
		return
	}
	m.InvariantFailuresTotal.WithLabelValues(pack, invariant, severity).Inc()
}

// ObserveCache records a cache lookup outcome.
func (m *Metrics) ObserveCache(hit bool) {
	if m == nil {
		return
	}
	if hit {
		m.CacheHitsTotal.Inc()
	} else {
		m.CacheMissesTotal.Inc()
	}
}
