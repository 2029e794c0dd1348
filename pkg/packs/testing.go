package packs

import (
	"fmt"
	"time"

	"optigate/pkg/gate"
	"optigate/pkg/types"
)

// TestScenario is one executable end-to-end case for a pack.
//
// Scenarios double as documentation: they show a realistic payload and
// the status, gate outcome, and plan shape it must produce.
type TestScenario struct {
	// Name identifies the scenario.
	Name string
	// Payload is the pack-typed input.
	Payload any
	// Objective passed into the spec.
	Objective gate.ObjectiveSpec
	// Budgets for the solve; zero value means defaults.
	Budgets gate.SolveBudgets
	// WantStatus is the expected solver status.
	WantStatus types.SolverStatus
	// WantOutcome is the expected promotion decision.
	WantOutcome gate.GateOutcome
	// WantActions is the expected number of plan actions.
	WantActions int
	// WantObjective is the expected objective value (0 = unchecked).
	WantObjective float64
}

// ScenarioResult is the outcome of running one scenario.
type ScenarioResult struct {
	// Name of the scenario.
	Name string
	// Passed reports whether every expectation held.
	Passed bool
	// Failures lists unmet expectations.
	Failures []string
	// Plan and Report are the raw solve outputs for inspection.
	Plan   *gate.ProposedPlan
	Report *gate.SolverReport
}

// scenarioSpec builds the ProblemSpec a scenario solves.
func scenarioSpec(pack Pack, scenario TestScenario) (*gate.ProblemSpec, error) {
	budgets := scenario.Budgets
	if budgets == (gate.SolveBudgets{}) {
		budgets = gate.DefaultBudgets()
	}
	return gate.NewSpec("scenario-"+scenario.Name, "scenario-tenant").
		Objective(scenario.Objective).
		Budgets(budgets).
		Provenance("scenario-harness", pack.Name(), time.Unix(0, 0).UTC()).
		Payload(scenario.Payload).
		Build()
}

// RunScenario executes one scenario through the pack and the
// promotion gate and checks every expectation.
func RunScenario(pack Pack, scenario TestScenario) ScenarioResult {
	result := ScenarioResult{Name: scenario.Name}
	fail := func(format string, args ...any) {
		result.Failures = append(result.Failures, fmt.Sprintf(format, args...))
	}

	spec, err := scenarioSpec(pack, scenario)
	if err != nil {
		fail("build spec: %v", err)
		return result
	}

	plan, report, err := pack.Solve(spec)
	if err != nil {
		fail("solve: %v", err)
		return result
	}
	result.Plan = plan
	result.Report = report

	if report.Status != scenario.WantStatus {
		fail("status: want %s, got %s", scenario.WantStatus, report.Status)
	}
	if len(plan.Actions) != scenario.WantActions {
		fail("actions: want %d, got %d", scenario.WantActions, len(plan.Actions))
	}
	if scenario.WantObjective != 0 && plan.ObjectiveValue != scenario.WantObjective {
		fail("objective: want %v, got %v", scenario.WantObjective, plan.ObjectiveValue)
	}
	if len(report.Invariants) != len(pack.Invariants()) {
		fail("invariants: want %d results, got %d", len(pack.Invariants()), len(report.Invariants))
	}

	decision := gate.NewPromotionGate().Evaluate(plan, report, spec.Budgets)
	if decision.Outcome != scenario.WantOutcome {
		fail("gate outcome: want %s, got %s (reason=%q concerns=%v)",
			scenario.WantOutcome, decision.Outcome, decision.Reason, decision.Concerns)
	}

	result.Passed = len(result.Failures) == 0
	return result
}

// RunAllScenarios executes every scenario a pack declares.
func RunAllScenarios(pack Pack) []ScenarioResult {
	scenarios := pack.Scenarios()
	results := make([]ScenarioResult, 0, len(scenarios))
	for _, scenario := range scenarios {
		results = append(results, RunScenario(pack, scenario))
	}
	return results
}
