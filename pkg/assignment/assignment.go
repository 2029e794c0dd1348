// Package assignment provides linear assignment problem solvers.
//
// The assignment problem finds the optimal one-to-one matching between
// agents and tasks that minimizes total cost.
//
// # Problem Definition
//
// Given n agents, m tasks, and a cost matrix C where C[a][t] is the
// cost of assigning agent a to task t, find an assignment minimizing
// the sum of costs such that each agent gets exactly one task and each
// task at most one agent.
//
// # Algorithms
//
//   - Hungarian (default): shortest augmenting paths with potentials,
//     O(n³), always returns a proven optimum on valid input.
//   - Auction: ε-scaling market simulation, optimal for ε = 1 on
//     integer costs, often faster on instances with clear preferences.
//
// # Determinism
//
// Both solvers are fully deterministic: iteration is in index order and
// ties are broken toward the lowest task index.
//
// # Example
//
//	problem := assignment.FromCosts([][]int64{
//		{10, 5, 13},
//		{3, 9, 18},
//		{14, 8, 7},
//	})
//	solution, err := assignment.Solve(problem)
//	// solution.Assignments == []int{1, 0, 2}, solution.TotalCost == 15
package assignment

import (
	"optigate/pkg/apperror"
	"optigate/pkg/types"
)

// Problem is an assignment problem instance.
//
// The cost matrix is read-only during solves; a Problem may be shared
// across concurrent solver calls.
type Problem struct {
	// Costs is the cost matrix: Costs[agent][task].
	Costs [][]types.Cost `json:"costs"`
	// NumAgents is the number of rows.
	NumAgents int `json:"num_agents"`
	// NumTasks is the number of columns.
	NumTasks int `json:"num_tasks"`
}

// FromCosts creates a problem from a cost matrix.
func FromCosts(costs [][]types.Cost) *Problem {
	numTasks := 0
	if len(costs) > 0 {
		numTasks = len(costs[0])
	}
	return &Problem{
		Costs:     costs,
		NumAgents: len(costs),
		NumTasks:  numTasks,
	}
}

// FromFlat creates a square n×n problem from a row-major flat cost slice.
func FromFlat(costs []types.Cost, n int) (*Problem, error) {
	if len(costs) != n*n {
		return nil, apperror.DimensionMismatch(n*n, len(costs))
	}
	matrix := make([][]types.Cost, n)
	for i := 0; i < n; i++ {
		matrix[i] = costs[i*n : (i+1)*n : (i+1)*n]
	}
	return FromCosts(matrix), nil
}

// IsSquare reports whether the problem has as many agents as tasks.
func (p *Problem) IsSquare() bool {
	return p.NumAgents == p.NumTasks
}

// Cost returns the cost of assigning agent a to task t.
func (p *Problem) Cost(a, t types.Index) types.Cost {
	return p.Costs[a][t]
}

// Validate checks the problem structure.
func (p *Problem) Validate() error {
	if p == nil {
		return apperror.ErrNilProblem
	}
	if p.NumAgents == 0 {
		return apperror.InvalidInput("no agents").WithField("costs")
	}
	if p.NumTasks == 0 {
		return apperror.InvalidInput("no tasks").WithField("costs")
	}
	if len(p.Costs) != p.NumAgents {
		return apperror.DimensionMismatch(p.NumAgents, len(p.Costs))
	}
	for i, row := range p.Costs {
		if len(row) != p.NumTasks {
			return apperror.DimensionMismatch(p.NumTasks, len(row)).WithField("costs").
				WithDetails("row", i)
		}
	}
	return nil
}

// Solution is the result of an assignment solve.
type Solution struct {
	// Assignments maps each agent to its task index, or
	// types.Unassigned for agents matched to a padding column.
	Assignments []types.Index `json:"assignments"`
	// TotalCost is the sum of matrix costs over assigned agents.
	TotalCost types.Cost `json:"total_cost"`
	// Status is the termination status.
	Status types.SolverStatus `json:"status"`
	// Stats holds run measurements.
	Stats types.SolverStats `json:"stats"`
}

// TaskForAgent returns the task assigned to an agent, or
// (Unassigned, false) when the agent is unmatched or out of range.
func (s *Solution) TaskForAgent(agent types.Index) (types.Index, bool) {
	if agent < 0 || agent >= len(s.Assignments) {
		return types.Unassigned, false
	}
	task := s.Assignments[agent]
	return task, task != types.Unassigned
}

// Solver is the common interface of assignment kernels.
type Solver interface {
	// Solve solves the problem under the given parameters. On budget
	// exhaustion the returned solution carries the best effort found so
	// far and the error identifies the exhausted budget.
	Solve(problem *Problem, params types.SolverParams) (*Solution, error)
	// Name identifies the solver in reports and metrics.
	Name() string
}

// Solve solves with the default solver (Hungarian) and default params.
func Solve(problem *Problem) (*Solution, error) {
	return SolveWithParams(problem, types.DefaultParams())
}

// SolveWithParams solves with the default solver (Hungarian).
func SolveWithParams(problem *Problem, params types.SolverParams) (*Solution, error) {
	if err := problem.Validate(); err != nil {
		return nil, err
	}
	return (&HungarianSolver{}).Solve(problem, params)
}
