// Package gate turns raw kernel solves into auditable, policy-governed
// plans.
//
// # Core Concepts
//
//   - ProblemSpec: immutable input with tenant scope, budgets, and
//     provenance.
//   - ProposedPlan: output plan with confidence scoring and a link to
//     its report trace.
//   - SolverReport: detailed solver execution record for audit.
//   - PromotionGate: the deterministic approve/reject decision.
//
// # Flow
//
//	ProblemSpec → pack solve → (ProposedPlan, SolverReport) → PromotionGate
package gate

import (
	"time"

	"github.com/goccy/go-json"

	"optigate/pkg/apperror"
	"optigate/pkg/types"
)

// SolveBudgets carries the resource limits of one solve.
type SolveBudgets struct {
	// TimeLimit bounds wall-clock solve time.
	TimeLimit time.Duration
	// IterationLimit bounds solver iterations.
	IterationLimit int
	// CandidateCap bounds candidate solutions evaluated.
	CandidateCap int
	// MemoryLimitBytes bounds memory usage (0 = unlimited).
	MemoryLimitBytes int64
}

// DefaultBudgets returns the standard budgets.
func DefaultBudgets() SolveBudgets {
	return SolveBudgets{
		TimeLimit:        30 * time.Second,
		IterationLimit:   100_000,
		CandidateCap:     1_000,
		MemoryLimitBytes: 0,
	}
}

// WithTimeLimit returns default budgets bounded to the given seconds.
func WithTimeLimit(seconds int64) SolveBudgets {
	b := DefaultBudgets()
	b.TimeLimit = time.Duration(seconds) * time.Second
	return b
}

// Strict returns tight budgets, mainly for tests.
func Strict(timeSeconds int64, iterations, candidates int) SolveBudgets {
	return SolveBudgets{
		TimeLimit:      time.Duration(timeSeconds) * time.Second,
		IterationLimit: iterations,
		CandidateCap:   candidates,
	}
}

// Validate checks that all limits are positive (memory may be 0,
// meaning unlimited).
func (b SolveBudgets) Validate() error {
	if b.TimeLimit <= 0 {
		return apperror.InvalidInput("time_limit must be positive").WithField("time_limit")
	}
	if b.IterationLimit <= 0 {
		return apperror.InvalidInput("iteration_limit must be positive").WithField("iteration_limit")
	}
	if b.CandidateCap <= 0 {
		return apperror.InvalidInput("candidate_cap must be positive").WithField("candidate_cap")
	}
	if b.MemoryLimitBytes < 0 {
		return apperror.InvalidInput("memory_limit_bytes must be non-negative").WithField("memory_limit_bytes")
	}
	return nil
}

// ToSolverParams projects the budgets onto kernel parameters.
func (b SolveBudgets) ToSolverParams(seed uint64) types.SolverParams {
	return types.SolverParams{
		TimeLimitSeconds: b.TimeLimit.Seconds(),
		IterationLimit:   b.IterationLimit,
		RandomSeed:       seed,
	}
}

// HasTimeRemaining reports whether elapsed is inside the time budget.
func (b SolveBudgets) HasTimeRemaining(elapsed time.Duration) bool {
	return elapsed < b.TimeLimit
}

// budgetsJSON is the wire form; the time limit travels as float
// seconds so the encoding stays language-neutral.
type budgetsJSON struct {
	TimeLimitSeconds float64 `json:"time_limit_seconds"`
	IterationLimit   int     `json:"iteration_limit"`
	CandidateCap     int     `json:"candidate_cap"`
	MemoryLimitBytes int64   `json:"memory_limit_bytes"`
}

// MarshalJSON implements json.Marshaler.
func (b SolveBudgets) MarshalJSON() ([]byte, error) {
	return json.Marshal(budgetsJSON{
		TimeLimitSeconds: b.TimeLimit.Seconds(),
		IterationLimit:   b.IterationLimit,
		CandidateCap:     b.CandidateCap,
		MemoryLimitBytes: b.MemoryLimitBytes,
	})
}

// UnmarshalJSON implements json.Unmarshaler.
func (b *SolveBudgets) UnmarshalJSON(data []byte) error {
	var wire budgetsJSON
	if err := json.Unmarshal(data, &wire); err != nil {
		return err
	}
	b.TimeLimit = time.Duration(wire.TimeLimitSeconds * float64(time.Second))
	b.IterationLimit = wire.IterationLimit
	b.CandidateCap = wire.CandidateCap
	b.MemoryLimitBytes = wire.MemoryLimitBytes
	return nil
}
