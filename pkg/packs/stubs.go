package packs

import (
	"optigate/pkg/gate"
	"optigate/pkg/types"
)

// stubPack is a schema-only skeleton: it declares its name and
// schemas but its solver is a placeholder that emits an empty plan.
// Stubs are registered so discovery surfaces the full pack catalog
// before every solver is filled in.
type stubPack struct {
	name         string
	inputSchema  string
	outputSchema string
}

// Name implements Pack.
func (s *stubPack) Name() string { return s.name }

// InputSchema implements Pack.
func (s *stubPack) InputSchema() string { return s.inputSchema }

// OutputSchema implements Pack.
func (s *stubPack) OutputSchema() string { return s.outputSchema }

// Invariants implements Pack. Stubs declare none yet.
func (s *stubPack) Invariants() []gate.InvariantDef { return nil }

// Scenarios implements Pack.
func (s *stubPack) Scenarios() []TestScenario { return nil }

// Solve implements Pack with a placeholder: an empty, zero-confidence
// plan that the promotion gate will never approve.
func (s *stubPack) Solve(spec *gate.ProblemSpec) (*gate.ProposedPlan, *gate.SolverReport, error) {
	report := gate.NewReport(spec.ProblemID, s.name+"/unimplemented")
	report.Status = types.StatusUnknown
	report.AddDecision("no plan produced", "pack %s has no solver yet", s.name)

	plan, err := newPlan(spec, report, nil, 0)
	if err != nil {
		return nil, nil, err
	}
	plan.Confidence = 0
	return plan, report, nil
}

// stubPacks returns the catalog of packs awaiting solvers.
func stubPacks() []Pack {
	names := []string{
		"anomaly-triage",
		"backlog-prioritization",
		"budget-allocation",
		"capacity-planning",
		"inventory-replenishment",
		"lead-routing",
		"pricing-guardrails",
		"vendor-shortlist",
	}
	packs := make([]Pack, 0, len(names))
	for _, name := range names {
		schema := "optigate." + name + "."
		packs = append(packs, &stubPack{
			name:         name,
			inputSchema:  schema + "input.v1",
			outputSchema: schema + "output.v1",
		})
	}
	return packs
}
