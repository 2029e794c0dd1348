// Package setcover solves the weighted set cover problem with the
// greedy cost-effectiveness approximation.
//
// At each step the greedy picks the set minimizing cost per newly
// covered element, breaking ties toward the lowest set index. The
// result is within an H(n) factor of the optimum, so the returned
// status is Feasible, never Optimal.
package setcover

import (
	"time"

	"optigate/pkg/apperror"
	"optigate/pkg/types"
)

// Set is one selectable subset with a cost.
type Set struct {
	// Cost of selecting the set.
	Cost types.Cost `json:"cost"`
	// Members are the universe indices the set covers.
	Members []types.Index `json:"members"`
}

// Problem is a set cover instance over the universe 0..NumElements-1.
type Problem struct {
	// NumElements is the universe size.
	NumElements int `json:"num_elements"`
	// Sets are the selectable subsets.
	Sets []Set `json:"sets"`
}

// NewProblem creates a problem, validating member ranges.
func NewProblem(numElements int, sets []Set) (*Problem, error) {
	p := &Problem{NumElements: numElements, Sets: sets}
	if err := p.Validate(); err != nil {
		return nil, err
	}
	return p, nil
}

// UnitCost creates a problem where every set costs 1.
func UnitCost(numElements int, members [][]types.Index) (*Problem, error) {
	sets := make([]Set, len(members))
	for i, m := range members {
		sets[i] = Set{Cost: 1, Members: m}
	}
	return NewProblem(numElements, sets)
}

// NumSets returns the number of selectable sets.
func (p *Problem) NumSets() int {
	return len(p.Sets)
}

// Validate checks the problem structure.
func (p *Problem) Validate() error {
	if p == nil {
		return apperror.ErrNilProblem
	}
	if p.NumElements < 0 {
		return apperror.InvalidInput("universe size must be non-negative").WithField("num_elements")
	}
	for i, set := range p.Sets {
		if set.Cost < 0 {
			return apperror.InvalidInput("set cost must be non-negative").
				WithField("sets").WithDetails("set", i)
		}
		for _, e := range set.Members {
			if e < 0 || e >= p.NumElements {
				return apperror.Newf(apperror.CodeIndexOutOfRange,
					"element %d out of range [0, %d)", e, p.NumElements).
					WithDetails("set", i)
			}
		}
	}
	return nil
}

// Solution is the result of a set cover solve.
type Solution struct {
	// Selected lists chosen set indices in selection order.
	Selected []types.Index `json:"selected"`
	// TotalCost is the summed cost of selected sets.
	TotalCost types.Cost `json:"total_cost"`
	// Status is the termination status.
	Status types.SolverStatus `json:"status"`
	// Stats holds run measurements.
	Stats types.SolverStats `json:"stats"`
}

// Solve runs the greedy with default parameters.
func Solve(problem *Problem) (*Solution, error) {
	return SolveWithParams(problem, types.DefaultParams())
}

// SolveWithParams runs the greedy under kernel parameters.
//
// Fails with Infeasible when some element belongs to no set; partial
// selections made before the failure are reported.
func SolveWithParams(problem *Problem, params types.SolverParams) (*Solution, error) {
	if err := problem.Validate(); err != nil {
		return nil, err
	}

	start := time.Now()

	uncovered := make([]bool, problem.NumElements)
	remaining := problem.NumElements
	for i := range uncovered {
		uncovered[i] = true
	}
	used := make([]bool, len(problem.Sets))

	var selected []types.Index
	var totalCost types.Cost
	iterations := 0

	for remaining > 0 {
		iterations++
		if params.HasTimeLimit() && time.Since(start).Seconds() > params.TimeLimitSeconds {
			sol := buildSolution(selected, totalCost, types.StatusTimeout, start, iterations)
			return sol, apperror.Timeout(time.Since(start).Seconds())
		}
		if params.HasIterationLimit() && iterations > params.IterationLimit {
			sol := buildSolution(selected, totalCost, types.StatusIterationLimit, start, iterations)
			return sol, apperror.NoConvergence(iterations)
		}

		// Pick the set minimizing cost per newly covered element.
		// Integer cross-multiplication avoids float comparisons, and
		// the ascending scan with strict inequality keeps the lowest
		// index on ties.
		best := -1
		var bestCost types.Cost
		var bestNew int
		for idx, set := range problem.Sets {
			if used[idx] {
				continue
			}
			newCovered := 0
			for _, e := range set.Members {
				if uncovered[e] {
					newCovered++
				}
			}
			if newCovered == 0 {
				continue
			}
			// set.Cost/newCovered < bestCost/bestNew
			if best == -1 || set.Cost*types.Cost(bestNew) < bestCost*types.Cost(newCovered) {
				best = idx
				bestCost = set.Cost
				bestNew = newCovered
			}
		}

		if best == -1 {
			sol := buildSolution(selected, totalCost, types.StatusInfeasible, start, iterations)
			return sol, apperror.Infeasible("not all elements can be covered").
				WithDetails("uncovered", remaining)
		}

		used[best] = true
		selected = append(selected, best)
		var ok bool
		totalCost, ok = types.CheckedAdd(totalCost, problem.Sets[best].Cost)
		if !ok {
			return nil, apperror.Overflow("cover cost exceeds int64 range")
		}
		for _, e := range problem.Sets[best].Members {
			if uncovered[e] {
				uncovered[e] = false
				remaining--
			}
		}
	}

	sol := buildSolution(selected, totalCost, types.StatusFeasible, start, iterations)
	obj := float64(totalCost)
	sol.Stats.ObjectiveValue = &obj
	return sol, nil
}

func buildSolution(selected []types.Index, totalCost types.Cost, status types.SolverStatus, start time.Time, iterations int) *Solution {
	if selected == nil {
		selected = []types.Index{}
	}
	return &Solution{
		Selected:  selected,
		TotalCost: totalCost,
		Status:    status,
		Stats: types.SolverStats{
			SolveTimeSeconds: time.Since(start).Seconds(),
			Iterations:       iterations,
		},
	}
}
