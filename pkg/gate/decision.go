package gate

import (
	"fmt"

	"optigate/pkg/types"
)

// GateOutcome is the promotion verdict.
type GateOutcome string

const (
	// Approve promotes the plan.
	Approve GateOutcome = "approve"
	// Reject blocks the plan.
	Reject GateOutcome = "reject"
	// NeedsReview defers the plan to a human.
	NeedsReview GateOutcome = "needs_review"
)

// GateDecision is the result of evaluating a plan against the gate.
type GateDecision struct {
	// Outcome is the verdict.
	Outcome GateOutcome `json:"outcome"`
	// Reason explains a rejection.
	Reason string `json:"reason,omitempty"`
	// Concerns lists review triggers for NeedsReview.
	Concerns []string `json:"concerns,omitempty"`
}

// Approved reports whether the plan may be promoted.
func (d GateDecision) Approved() bool {
	return d.Outcome == Approve
}

// PromotionGate aggregates invariants, confidence, and budget
// compliance into a decision. The gate is stateless: Evaluate is a
// pure function of its inputs.
type PromotionGate struct {
	// ReviewThreshold is the confidence below which plans need review.
	ReviewThreshold float64
}

// NewPromotionGate creates a gate with the standard review threshold.
func NewPromotionGate() *PromotionGate {
	return &PromotionGate{ReviewThreshold: 0.5}
}

// Evaluate decides whether the plan may be promoted.
//
// Rules, in order:
//  1. Any failed critical invariant rejects the plan.
//  2. Fatal solver statuses (infeasible, unbounded, unknown) reject.
//  3. Budget overruns, advisory failures, low confidence, empty plans
//     and degraded statuses (timeout, iteration limit) need review.
//  4. Otherwise the plan is approved.
func (g *PromotionGate) Evaluate(plan *ProposedPlan, report *SolverReport, budgets SolveBudgets) GateDecision {
	if plan == nil || report == nil {
		return GateDecision{Outcome: Reject, Reason: "missing plan or report"}
	}

	if failures := report.CriticalFailures(); len(failures) > 0 {
		return GateDecision{
			Outcome: Reject,
			Reason: fmt.Sprintf("critical invariant %q failed: %s",
				failures[0].Invariant, failures[0].Violation.Message),
		}
	}

	switch report.Status {
	case types.StatusInfeasible:
		return GateDecision{Outcome: Reject, Reason: "problem is infeasible"}
	case types.StatusUnbounded:
		return GateDecision{Outcome: Reject, Reason: "objective is unbounded"}
	case types.StatusUnknown:
		return GateDecision{Outcome: Reject, Reason: "solver status unknown"}
	}

	var concerns []string
	if report.Status == types.StatusTimeout || report.Status == types.StatusIterationLimit {
		concerns = append(concerns, fmt.Sprintf("solver stopped early with status %s", report.Status))
	}
	if budgets.TimeLimit > 0 && report.Stats.SolveTimeSeconds > budgets.TimeLimit.Seconds() {
		concerns = append(concerns, fmt.Sprintf("solve time %.3fs exceeded budget %.3fs",
			report.Stats.SolveTimeSeconds, budgets.TimeLimit.Seconds()))
	}
	if budgets.IterationLimit > 0 && report.Stats.Iterations > budgets.IterationLimit {
		concerns = append(concerns, fmt.Sprintf("iterations %d exceeded budget %d",
			report.Stats.Iterations, budgets.IterationLimit))
	}
	for _, failure := range report.AdvisoryFailures() {
		concerns = append(concerns, fmt.Sprintf("advisory invariant %q failed: %s",
			failure.Invariant, failure.Violation.Message))
	}
	if plan.Confidence < g.ReviewThreshold {
		concerns = append(concerns, fmt.Sprintf("confidence %.2f below threshold %.2f",
			plan.Confidence, g.ReviewThreshold))
	}
	if plan.IsEmpty() {
		concerns = append(concerns, "plan proposes no actions")
	}

	if len(concerns) > 0 {
		return GateDecision{Outcome: NeedsReview, Concerns: concerns}
	}
	return GateDecision{Outcome: Approve}
}
