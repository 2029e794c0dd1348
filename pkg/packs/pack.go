// Package packs provides domain packs: typed adapters that translate
// a domain problem into kernel solves and decode the result into an
// auditable plan.
//
// Each pack supplies:
//
//   - typed input/output schemas,
//   - a solver translating its input into kernel problems,
//   - invariant definitions evaluated on every output,
//   - test scenarios exercising the pack end to end.
//
// Packs are stateless after construction and may be shared across
// worker threads; any per-solve state lives inside Solve.
package packs

import (
	"github.com/goccy/go-json"

	"optigate/pkg/apperror"
	"optigate/pkg/gate"
)

// Pack is the common interface of all domain packs.
//
// Solve operates on the gate envelope only: the pack-specific input is
// decoded from the spec's opaque payload and the typed output is
// encoded into the plan's actions. Recoverable solver failures
// (infeasible, timeout) surface as degraded plans; fatal errors
// (overflow, internal) are returned.
type Pack interface {
	// Name uniquely identifies the pack in the registry.
	Name() string
	// InputSchema names the pack's input payload schema.
	InputSchema() string
	// OutputSchema names the pack's output schema.
	OutputSchema() string
	// Solve runs the pack on a spec.
	Solve(spec *gate.ProblemSpec) (*gate.ProposedPlan, *gate.SolverReport, error)
	// Invariants lists the pack's declared invariants.
	Invariants() []gate.InvariantDef
	// Scenarios lists executable test scenarios.
	Scenarios() []TestScenario
}

// newPlan assembles a plan with deterministic ids derived from the
// spec content hash and confidence taken from the report's invariant
// health.
func newPlan(spec *gate.ProblemSpec, report *gate.SolverReport, actions []gate.Action, objective float64) (*gate.ProposedPlan, error) {
	hash, err := spec.ContentHash()
	if err != nil {
		return nil, err
	}
	report.ReportID = gate.ReportID(hash)
	actions, err = canonicalActions(actions)
	if err != nil {
		return nil, err
	}
	return &gate.ProposedPlan{
		PlanID:         gate.PlanID(hash),
		SpecID:         spec.ProblemID,
		Actions:        actions,
		ObjectiveValue: objective,
		Confidence:     report.InvariantConfidence(),
		ReportID:       report.ReportID,
	}, nil
}

// canonicalActions normalizes action params to JSON-native types by a
// marshal/unmarshal cycle, so a plan compares equal to itself after
// any number of encode/decode round trips (caches, probes, storage).
func canonicalActions(actions []gate.Action) ([]gate.Action, error) {
	if len(actions) == 0 {
		return []gate.Action{}, nil
	}
	data, err := json.Marshal(actions)
	if err != nil {
		return nil, apperror.Wrap(err, apperror.CodeInternal, "encode plan actions")
	}
	var out []gate.Action
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, apperror.Wrap(err, apperror.CodeInternal, "decode plan actions")
	}
	return out, nil
}
