// Package engine orchestrates a full governed solve: pack lookup,
// optional plan cache, the solve itself, the determinism probe,
// invariant-driven confidence, metrics, and the promotion decision.
//
// The engine owns no problem state; every Solve call is independent
// and the engine may be shared across worker threads.
package engine

import (
	"time"

	"github.com/goccy/go-json"

	"optigate/pkg/apperror"
	"optigate/pkg/cache"
	"optigate/pkg/config"
	"optigate/pkg/gate"
	"optigate/pkg/logger"
	"optigate/pkg/metrics"
	"optigate/pkg/packs"
)

// Result is the full outcome of one governed solve.
type Result struct {
	// Plan is the proposed plan.
	Plan *gate.ProposedPlan `json:"plan"`
	// Report is the audit report of the solve.
	Report *gate.SolverReport `json:"report"`
	// Decision is the promotion verdict.
	Decision gate.GateDecision `json:"decision"`
	// ProbeStable reports the determinism probe outcome; true when
	// the probe is disabled.
	ProbeStable bool `json:"probe_stable"`
	// CacheHit reports whether the plan came from the cache.
	CacheHit bool `json:"cache_hit"`
}

// cachedSolve is the cache wire format: plan and report only, since
// the decision is a deterministic function of both.
type cachedSolve struct {
	Plan   *gate.ProposedPlan `json:"plan"`
	Report *gate.SolverReport `json:"report"`
}

// Engine runs packs under the promotion gate.
type Engine struct {
	registry *packs.PackRegistry
	gate     *gate.PromotionGate
	cache    cache.Cache
	cacheTTL time.Duration
	metrics  *metrics.Metrics
	probes   bool
}

// Option customizes an Engine.
type Option func(*Engine)

// WithCache attaches a plan cache. Deterministic solves make cached
// plans indistinguishable from fresh ones.
func WithCache(c cache.Cache, ttl time.Duration) Option {
	return func(e *Engine) {
		e.cache = c
		e.cacheTTL = ttl
	}
}

// WithMetrics attaches Prometheus collectors.
func WithMetrics(m *metrics.Metrics) Option {
	return func(e *Engine) { e.metrics = m }
}

// WithGate replaces the promotion gate.
func WithGate(g *gate.PromotionGate) Option {
	return func(e *Engine) { e.gate = g }
}

// WithoutProbes disables the determinism double-solve.
func WithoutProbes() Option {
	return func(e *Engine) { e.probes = false }
}

// New creates an engine over a pack registry.
func New(registry *packs.PackRegistry, opts ...Option) *Engine {
	e := &Engine{
		registry: registry,
		gate:     gate.NewPromotionGate(),
		probes:   true,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// FromConfig creates an engine honoring the library configuration.
func FromConfig(cfg *config.Config, registry *packs.PackRegistry) *Engine {
	opts := []Option{
		WithGate(&gate.PromotionGate{ReviewThreshold: cfg.Gate.ReviewThreshold}),
	}
	if cfg.Cache.Enabled {
		opts = append(opts, WithCache(
			cache.NewMemoryCache(&cache.Options{
				MaxEntries: cfg.Cache.MaxEntries,
				DefaultTTL: cfg.Cache.TTL,
			}),
			cfg.Cache.TTL,
		))
	}
	if !cfg.Gate.DeterminismProbes {
		opts = append(opts, WithoutProbes())
	}
	return New(registry, opts...)
}

// Solve runs the named pack on a spec through the full gate pipeline.
func (e *Engine) Solve(packName string, spec *gate.ProblemSpec) (*Result, error) {
	pack, ok := e.registry.Get(packName)
	if !ok {
		return nil, apperror.Newf(apperror.CodeNotFound, "pack %q is not registered", packName)
	}

	specHash, err := spec.ContentHash()
	if err != nil {
		return nil, apperror.Wrap(err, apperror.CodeInvalidInput, "hash spec")
	}
	cacheKey := cache.BuildPlanKey(packName, specHash)

	if cached, ok := e.lookupCache(cacheKey); ok {
		decision := e.gate.Evaluate(cached.Plan, cached.Report, spec.Budgets)
		e.metrics.ObserveDecision(packName, string(decision.Outcome), cached.Plan.Confidence)
		return &Result{
			Plan:        cached.Plan,
			Report:      cached.Report,
			Decision:    decision,
			ProbeStable: true,
			CacheHit:    true,
		}, nil
	}

	start := time.Now()
	plan, report, err := pack.Solve(spec)
	if err != nil {
		e.metrics.ObserveSolve(packName, "error", time.Since(start), 0)
		return nil, err
	}

	stable := true
	if e.probes {
		stable, err = e.probe(pack, spec, plan)
		if err != nil {
			return nil, err
		}
		if !stable {
			plan.Confidence *= gate.InstabilityPenalty
			logger.WithPack(packName).Warn("determinism probe failed",
				"problem_id", spec.ProblemID, "tenant", spec.Tenant)
		}
	}

	e.metrics.ObserveSolve(report.Solver, report.Status.String(), time.Since(start), report.Stats.Iterations)
	for _, result := range report.Invariants {
		if !result.Passed {
			e.metrics.ObserveInvariantFailure(packName, result.Invariant, string(result.Severity))
		}
	}

	decision := e.gate.Evaluate(plan, report, spec.Budgets)
	e.metrics.ObserveDecision(packName, string(decision.Outcome), plan.Confidence)

	e.storeCache(cacheKey, plan, report)

	return &Result{
		Plan:        plan,
		Report:      report,
		Decision:    decision,
		ProbeStable: stable,
		CacheHit:    false,
	}, nil
}

// probe re-solves and compares the canonical plan encodings.
func (e *Engine) probe(pack packs.Pack, spec *gate.ProblemSpec, first *gate.ProposedPlan) (bool, error) {
	second, _, err := pack.Solve(spec)
	if err != nil {
		return false, err
	}
	firstBytes, err := json.Marshal(first)
	if err != nil {
		return false, err
	}
	secondBytes, err := json.Marshal(second)
	if err != nil {
		return false, err
	}
	return string(firstBytes) == string(secondBytes), nil
}

func (e *Engine) lookupCache(key string) (*cachedSolve, bool) {
	if e.cache == nil {
		return nil, false
	}
	data, err := e.cache.Get(key)
	hit := err == nil
	e.metrics.ObserveCache(hit)
	if !hit {
		return nil, false
	}
	var cached cachedSolve
	if err := json.Unmarshal(data, &cached); err != nil {
		// A corrupt entry is dropped, never served.
		e.cache.Delete(key)
		return nil, false
	}
	return &cached, true
}

func (e *Engine) storeCache(key string, plan *gate.ProposedPlan, report *gate.SolverReport) {
	if e.cache == nil {
		return
	}
	data, err := json.Marshal(cachedSolve{Plan: plan, Report: report})
	if err != nil {
		return
	}
	e.cache.Set(key, data, e.cacheTTL)
}
