package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestObserveSolve(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := New("optigate", "solver", reg)

	m.ObserveSolve("hungarian", "optimal", 5*time.Millisecond, 12)
	m.ObserveSolve("hungarian", "optimal", 3*time.Millisecond, 9)
	m.ObserveSolve("auction", "timeout", time.Second, 100)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.SolveOperationsTotal.WithLabelValues("hungarian", "optimal")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.SolveOperationsTotal.WithLabelValues("auction", "timeout")))
}

func TestObserveDecisionAndInvariants(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := New("optigate", "solver", reg)

	m.ObserveDecision("shipping-choice", "approve", 0.95)
	m.ObserveInvariantFailure("shipping-choice", "meets_sla", "advisory")

	assert.Equal(t, 1.0, testutil.ToFloat64(m.GateDecisionsTotal.WithLabelValues("shipping-choice", "approve")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.InvariantFailuresTotal.WithLabelValues("shipping-choice", "meets_sla", "advisory")))
}

func TestObserveCache(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := New("optigate", "solver", reg)

	m.ObserveCache(true)
	m.ObserveCache(true)
	m.ObserveCache(false)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.CacheHitsTotal))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.CacheMissesTotal))
}

func TestNilMetricsAreSafe(t *testing.T) {
	var m *Metrics
	require.NotPanics(t, func() {
		m.ObserveSolve("hungarian", "optimal", time.Millisecond, 1)
		m.ObserveDecision("p", "approve", 1)
		m.ObserveInvariantFailure("p", "i", "critical")
		m.ObserveCache(false)
	})
}

func TestDuplicateRegistrationPanics(t *testing.T) {
	reg := prometheus.NewRegistry()
	_ = New("optigate", "solver", reg)
	assert.Panics(t, func() { _ = New("optigate", "solver", reg) })
}
