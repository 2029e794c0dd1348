package assignment

import (
	"math"
	"time"

	"optigate/pkg/apperror"
	"optigate/pkg/types"
)

// hungarianInf is the internal infinity for reduced-cost scans. Kept
// well below MaxInt64 so a single addition cannot wrap.
const hungarianInf = math.MaxInt64 / 4

// HungarianSolver implements the O(n³) shortest-augmenting-path
// Hungarian algorithm with row/column potentials.
//
// Contract: on valid square input the result is always proven optimal.
// Rectangular inputs are padded with a sentinel cost of max(C)+1 (1 when
// no cost is positive) to the larger dimension; agents matched to padding columns are reported as
// unassigned and contribute nothing to the total cost.
type HungarianSolver struct{}

// Name implements Solver.
func (HungarianSolver) Name() string { return "hungarian" }

// Solve implements Solver.
func (HungarianSolver) Solve(problem *Problem, params types.SolverParams) (*Solution, error) {
	if err := problem.Validate(); err != nil {
		return nil, err
	}

	start := time.Now()
	n, m := problem.NumAgents, problem.NumTasks

	// Pad to square with a sentinel strictly above every real cost so
	// real cells are always preferred over padding.
	dim := n
	if m > dim {
		dim = m
	}
	sentinel := types.Cost(0)
	for _, row := range problem.Costs {
		for _, c := range row {
			if c > sentinel {
				sentinel = c
			}
		}
	}
	sentinel++

	costAt := func(i, j int) types.Cost {
		if i < n && j < m {
			return problem.Costs[i][j]
		}
		return sentinel
	}

	// 1-based arrays; index 0 is the virtual unmatched row/column.
	u := make([]int64, dim+1)
	v := make([]int64, dim+1)
	p := make([]int, dim+1)   // p[j] = row matched to column j
	way := make([]int, dim+1) // way[j] = previous column on the alternating path

	iterations := 0

	for i := 1; i <= dim; i++ {
		p[0] = i
		j0 := 0
		minv := make([]int64, dim+1)
		used := make([]bool, dim+1)
		for j := range minv {
			minv[j] = hungarianInf
		}

		for {
			iterations++
			if params.HasIterationLimit() && iterations > params.IterationLimit {
				sol := buildPartial(problem, p, dim, types.StatusIterationLimit, start, iterations)
				return sol, apperror.NoConvergence(iterations)
			}
			if params.HasTimeLimit() && time.Since(start).Seconds() > params.TimeLimitSeconds {
				sol := buildPartial(problem, p, dim, types.StatusTimeout, start, iterations)
				return sol, apperror.Timeout(time.Since(start).Seconds())
			}

			used[j0] = true
			i0 := p[j0]
			j1 := -1
			delta := int64(hungarianInf)

			for j := 1; j <= dim; j++ {
				if used[j] {
					continue
				}
				// Reduced cost of (i0, j). Strict comparisons keep the
				// lowest task index on ties.
				c, ok := checkedSub(int64(costAt(i0-1, j-1)), u[i0])
				if !ok {
					return nil, apperror.Overflow("row potential update exceeds int64 range")
				}
				cur, ok := checkedSub(c, v[j])
				if !ok {
					return nil, apperror.Overflow("column potential update exceeds int64 range")
				}
				if cur < minv[j] {
					minv[j] = cur
					way[j] = j0
				}
				if minv[j] < delta {
					delta = minv[j]
					j1 = j
				}
			}

			for j := 0; j <= dim; j++ {
				if used[j] {
					var ok bool
					u[p[j]], ok = types.CheckedAdd(u[p[j]], delta)
					if !ok {
						return nil, apperror.Overflow("row potential update exceeds int64 range")
					}
					v[j], ok = checkedSub(v[j], delta)
					if !ok {
						return nil, apperror.Overflow("column potential update exceeds int64 range")
					}
				} else {
					minv[j] -= delta
				}
			}

			j0 = j1
			if p[j0] == 0 {
				break
			}
		}

		// Flip the alternating path.
		for j0 != 0 {
			j1 := way[j0]
			p[j0] = p[j1]
			j0 = j1
		}
	}

	sol := buildPartial(problem, p, dim, types.StatusOptimal, start, iterations)
	obj := float64(sol.TotalCost)
	sol.Stats.ObjectiveValue = &obj
	return sol, nil
}

// buildPartial decodes the (possibly incomplete) matching in p into a
// caller-facing solution, dropping padding rows and columns.
func buildPartial(problem *Problem, p []int, dim int, status types.SolverStatus, start time.Time, iterations int) *Solution {
	n, m := problem.NumAgents, problem.NumTasks

	assignments := make([]types.Index, n)
	for a := range assignments {
		assignments[a] = types.Unassigned
	}
	total := types.Cost(0)
	for j := 1; j <= dim; j++ {
		row := p[j]
		if row == 0 {
			continue
		}
		agent, task := row-1, j-1
		if agent < n && task < m {
			assignments[agent] = task
			total += problem.Costs[agent][task]
		}
	}

	return &Solution{
		Assignments: assignments,
		TotalCost:   total,
		Status:      status,
		Stats: types.SolverStats{
			SolveTimeSeconds: time.Since(start).Seconds(),
			Iterations:       iterations,
		},
	}
}

// checkedSub returns a - b, reporting false on overflow.
func checkedSub(a, b int64) (int64, bool) {
	if b == math.MinInt64 {
		if a >= 0 {
			return 0, false
		}
		return a - b, true
	}
	return types.CheckedAdd(a, -b)
}
