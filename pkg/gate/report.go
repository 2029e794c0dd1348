package gate

import (
	"fmt"

	"optigate/pkg/types"
)

// InvariantSeverity grades an invariant.
type InvariantSeverity string

const (
	// Critical invariants reject the plan on failure.
	Critical InvariantSeverity = "critical"
	// Advisory invariants downgrade confidence on failure.
	Advisory InvariantSeverity = "advisory"
)

// InvariantDef declares a property a pack's output must satisfy.
type InvariantDef struct {
	// Name is unique within the pack.
	Name string `json:"name"`
	// Severity decides the failure consequence.
	Severity InvariantSeverity `json:"severity"`
	// Description explains the property to reviewers.
	Description string `json:"description"`
}

// CriticalInvariant declares a critical invariant.
func CriticalInvariant(name, description string) InvariantDef {
	return InvariantDef{Name: name, Severity: Critical, Description: description}
}

// AdvisoryInvariant declares an advisory invariant.
func AdvisoryInvariant(name, description string) InvariantDef {
	return InvariantDef{Name: name, Severity: Advisory, Description: description}
}

// Violation describes a failed invariant evaluation.
type Violation struct {
	// Invariant names the failed invariant.
	Invariant string `json:"invariant"`
	// Weight in [0,1] scales the confidence penalty.
	Weight float64 `json:"weight"`
	// Message explains the failure.
	Message string `json:"message"`
}

// InvariantResult is the evaluation of one invariant on one output.
//
// Passed is true exactly when Violation is nil.
type InvariantResult struct {
	// Invariant names the evaluated invariant.
	Invariant string `json:"invariant"`
	// Severity mirrors the declaration.
	Severity InvariantSeverity `json:"severity"`
	// Passed reports the outcome.
	Passed bool `json:"passed"`
	// Violation details the failure, absent when passed.
	Violation *Violation `json:"violation,omitempty"`
}

// Pass builds a passing result for the invariant.
func Pass(def InvariantDef) InvariantResult {
	return InvariantResult{Invariant: def.Name, Severity: def.Severity, Passed: true}
}

// Fail builds a failing result with the given penalty weight.
func Fail(def InvariantDef, weight float64, format string, args ...any) InvariantResult {
	return InvariantResult{
		Invariant: def.Name,
		Severity:  def.Severity,
		Passed:    false,
		Violation: &Violation{
			Invariant: def.Name,
			Weight:    weight,
			Message:   fmt.Sprintf(format, args...),
		},
	}
}

// TraceEntry is one major decision recorded during a solve.
type TraceEntry struct {
	// Step orders entries within the trace.
	Step int `json:"step"`
	// Decision states what was chosen.
	Decision string `json:"decision"`
	// Rationale states why.
	Rationale string `json:"rationale"`
}

// SolverReport records one solver execution for audit.
//
// The report is append-only while a solve runs: packs add trace
// entries and invariant results but never remove or rewrite them.
type SolverReport struct {
	// ReportID is the deterministic id of the report.
	ReportID string `json:"report_id"`
	// SpecID links to the solved ProblemSpec.
	SpecID string `json:"spec_id"`
	// Solver names the kernel or pack solver used.
	Solver string `json:"solver"`
	// Status is the solver termination status.
	Status types.SolverStatus `json:"status"`
	// Stats holds solver run measurements.
	Stats types.SolverStats `json:"stats"`
	// Invariants holds one result per declared invariant, whole and
	// never short-circuited.
	Invariants []InvariantResult `json:"invariants"`
	// Trace is the ordered decision log.
	Trace []TraceEntry `json:"trace"`
}

// NewReport starts a report for a spec and solver.
func NewReport(specID, solver string) *SolverReport {
	return &SolverReport{
		SpecID: specID,
		Solver: solver,
		Status: types.StatusUnknown,
	}
}

// AddDecision appends one decision to the trace.
func (r *SolverReport) AddDecision(decision, rationaleFormat string, args ...any) {
	r.Trace = append(r.Trace, TraceEntry{
		Step:      len(r.Trace) + 1,
		Decision:  decision,
		Rationale: fmt.Sprintf(rationaleFormat, args...),
	})
}

// AddInvariant appends one invariant result.
func (r *SolverReport) AddInvariant(result InvariantResult) {
	r.Invariants = append(r.Invariants, result)
}

// CriticalFailures lists failed critical invariants.
func (r *SolverReport) CriticalFailures() []InvariantResult {
	var out []InvariantResult
	for _, res := range r.Invariants {
		if !res.Passed && res.Severity == Critical {
			out = append(out, res)
		}
	}
	return out
}

// AdvisoryFailures lists failed advisory invariants.
func (r *SolverReport) AdvisoryFailures() []InvariantResult {
	var out []InvariantResult
	for _, res := range r.Invariants {
		if !res.Passed && res.Severity == Advisory {
			out = append(out, res)
		}
	}
	return out
}

// InvariantConfidence summarizes invariant health as a [0,1] score.
//
// Critical invariants carry weight 1; advisory failures are scaled by
// their violation weight. A report with no invariants scores 1.
func (r *SolverReport) InvariantConfidence() float64 {
	if len(r.Invariants) == 0 {
		return 1.0
	}
	total := 0.0
	earned := 0.0
	for _, res := range r.Invariants {
		weight := 1.0
		if res.Severity == Advisory {
			weight = 0.5
		}
		total += weight
		if res.Passed {
			earned += weight
			continue
		}
		if res.Violation != nil && res.Severity == Advisory {
			// Partially credit soft failures by their penalty weight.
			earned += weight * (1.0 - clamp01(res.Violation.Weight))
		}
	}
	if total == 0 {
		return 1.0
	}
	return earned / total
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
