package gate

import (
	"github.com/google/uuid"
)

// Namespaces for deterministic ids: plan and report ids are SHA-1
// UUIDs of the spec content hash, so re-solving an identical spec
// reproduces identical ids.
var (
	planNamespace   = uuid.MustParse("6ba7b810-9dad-11d1-80b4-00c04fd430c8")
	reportNamespace = uuid.MustParse("6ba7b811-9dad-11d1-80b4-00c04fd430c8")
)

// PlanID derives the deterministic plan id for a spec content hash.
func PlanID(specHash string) string {
	return uuid.NewSHA1(planNamespace, []byte(specHash)).String()
}

// ReportID derives the deterministic report id for a spec content hash.
func ReportID(specHash string) string {
	return uuid.NewSHA1(reportNamespace, []byte(specHash)).String()
}

// Action is one step of a proposed plan.
type Action struct {
	// Kind classifies the action (e.g. "select_carrier", "transfer").
	Kind string `json:"kind"`
	// Target is the acted-on entity.
	Target string `json:"target"`
	// Quantity is the numeric magnitude, if meaningful.
	Quantity float64 `json:"quantity,omitempty"`
	// Params carries action-specific details.
	Params map[string]any `json:"params,omitempty"`
}

// ProposedPlan is the externally visible outcome of a solve.
//
// A plan is produced exactly once per solve and never mutated; every
// action it contains references a decision recorded in the linked
// SolverReport trace.
type ProposedPlan struct {
	// PlanID is the deterministic id of the plan.
	PlanID string `json:"plan_id"`
	// SpecID links back to the solved ProblemSpec.
	SpecID string `json:"spec_id"`
	// Actions are the ordered plan steps.
	Actions []Action `json:"actions"`
	// ObjectiveValue is the achieved objective.
	ObjectiveValue float64 `json:"objective_value"`
	// Confidence in [0,1] summarizes invariant health and determinism
	// stability.
	Confidence float64 `json:"confidence"`
	// ReportID references the audit trail of the solve.
	ReportID string `json:"report_id"`
}

// IsEmpty reports whether the plan proposes no actions.
func (p *ProposedPlan) IsEmpty() bool {
	return len(p.Actions) == 0
}
