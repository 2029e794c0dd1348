package assignment

import (
	"math"
	"time"

	"optigate/pkg/apperror"
	"optigate/pkg/types"
)

// AuctionSolver implements the ε-scaling auction algorithm.
//
// Costs are converted to benefits b[a][t] = (n+1)·(max(C) − C[a][t]) and
// agents bid for tasks against a price vector. Each round one unassigned
// agent computes the best and second-best net values, raises the price
// of its best task by (best − second + ε), and displaces any previous
// owner. The n+1 scaling makes ε = 1 worth less than 1/n in the original
// integer costs, so the final assignment is optimal.
//
// Rectangular problems fall back to the Hungarian solver.
type AuctionSolver struct {
	// Epsilon is the minimum bid increment, in scaled benefit units.
	// Zero means 1.
	Epsilon types.Cost
}

// Name implements Solver.
func (AuctionSolver) Name() string { return "auction" }

// Solve implements Solver.
func (s AuctionSolver) Solve(problem *Problem, params types.SolverParams) (*Solution, error) {
	if err := problem.Validate(); err != nil {
		return nil, err
	}
	if !problem.IsSquare() {
		return HungarianSolver{}.Solve(problem, params)
	}

	epsilon := s.Epsilon
	if epsilon <= 0 {
		epsilon = 1
	}

	start := time.Now()
	n := problem.NumAgents

	maxCost := problem.Costs[0][0]
	for _, row := range problem.Costs {
		for _, c := range row {
			if c > maxCost {
				maxCost = c
			}
		}
	}

	scale := int64(n + 1)
	benefit := make([][]int64, n)
	for a, row := range problem.Costs {
		benefit[a] = make([]int64, n)
		for t, c := range row {
			b, ok := checkedSub(maxCost, c)
			if ok {
				b, ok = types.CheckedMul(b, scale)
			}
			if !ok {
				return nil, apperror.Overflow("benefit conversion exceeds int64 range")
			}
			benefit[a][t] = b
		}
	}

	prices := make([]int64, n)
	assignment := make([]types.Index, n)
	owner := make([]types.Index, n)
	for i := 0; i < n; i++ {
		assignment[i] = types.Unassigned
		owner[i] = types.Unassigned
	}

	// LIFO queue of unassigned agents; deterministic given the fixed
	// initial order and the displacement sequence.
	unassigned := make([]types.Index, n)
	for i := range unassigned {
		unassigned[i] = i
	}

	iterations := 0
	for len(unassigned) > 0 {
		iterations++
		if params.HasTimeLimit() && time.Since(start).Seconds() > params.TimeLimitSeconds {
			sol := auctionPartial(problem, assignment, types.StatusTimeout, start, iterations)
			return sol, apperror.Timeout(time.Since(start).Seconds())
		}
		if params.HasIterationLimit() && iterations > params.IterationLimit {
			sol := auctionPartial(problem, assignment, types.StatusIterationLimit, start, iterations)
			return sol, apperror.NoConvergence(iterations)
		}

		agent := unassigned[len(unassigned)-1]
		unassigned = unassigned[:len(unassigned)-1]

		// Best and second-best net values; ascending scan with strict
		// comparison keeps the lowest task index on ties.
		bestTask := types.Index(0)
		bestValue := int64(math.MinInt64)
		secondValue := int64(math.MinInt64)
		for t := 0; t < n; t++ {
			value, ok := checkedSub(benefit[agent][t], prices[t])
			if !ok {
				return nil, apperror.Overflow("net value exceeds int64 range")
			}
			if value > bestValue {
				secondValue = bestValue
				bestValue = value
				bestTask = t
			} else if value > secondValue {
				secondValue = value
			}
		}
		if secondValue == math.MinInt64 {
			secondValue = bestValue
		}

		increment, ok := types.CheckedAdd(bestValue-secondValue, epsilon)
		if !ok {
			return nil, apperror.Overflow("bid increment exceeds int64 range")
		}

		if prev := owner[bestTask]; prev != types.Unassigned {
			assignment[prev] = types.Unassigned
			unassigned = append(unassigned, prev)
		}

		assignment[agent] = bestTask
		owner[bestTask] = agent
		prices[bestTask], ok = types.CheckedAdd(prices[bestTask], increment)
		if !ok {
			return nil, apperror.Overflow("task price exceeds int64 range")
		}
	}

	sol := auctionPartial(problem, assignment, types.StatusOptimal, start, iterations)
	obj := float64(sol.TotalCost)
	sol.Stats.ObjectiveValue = &obj
	return sol, nil
}

func auctionPartial(problem *Problem, assignment []types.Index, status types.SolverStatus, start time.Time, iterations int) *Solution {
	total := types.Cost(0)
	out := make([]types.Index, len(assignment))
	copy(out, assignment)
	for agent, task := range out {
		if task != types.Unassigned {
			total += problem.Costs[agent][task]
		}
	}
	return &Solution{
		Assignments: out,
		TotalCost:   total,
		Status:      status,
		Stats: types.SolverStats{
			SolveTimeSeconds: time.Since(start).Seconds(),
			Iterations:       iterations,
		},
	}
}
