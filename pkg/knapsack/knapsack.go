// Package knapsack solves the 0/1 knapsack problem.
//
// Two kernels share a common entry point: a dynamic program over
// capacity for moderate capacities, and depth-first branch and bound
// with an LP-relaxation bound for capacities too large to tabulate.
// Both return a proven optimum; the DP/branch switch only affects
// running time and memory.
package knapsack

import (
	"sort"
	"time"

	"optigate/pkg/apperror"
	"optigate/pkg/types"
)

// DPCapacityLimit is the largest capacity solved by the dynamic
// program; larger instances go through branch and bound.
const DPCapacityLimit = 1_000_000

// Item is one selectable object.
type Item struct {
	// Weight consumed if the item is selected.
	Weight types.Weight `json:"weight"`
	// Value gained if the item is selected.
	Value types.Value `json:"value"`
}

// Problem is a 0/1 knapsack instance.
type Problem struct {
	// Items are the candidate objects.
	Items []Item `json:"items"`
	// Capacity is the total weight budget.
	Capacity types.Weight `json:"capacity"`
}

// Validate checks the problem structure.
func (p *Problem) Validate() error {
	if p == nil {
		return apperror.ErrNilProblem
	}
	if p.Capacity < 0 {
		return apperror.InvalidInput("capacity must be non-negative").WithField("capacity")
	}
	for i, item := range p.Items {
		if item.Weight < 0 {
			return apperror.InvalidInput("item weight must be non-negative").
				WithField("items").WithDetails("item", i)
		}
		if item.Value < 0 {
			return apperror.InvalidInput("item value must be non-negative").
				WithField("items").WithDetails("item", i)
		}
	}
	return nil
}

// Solution is the result of a knapsack solve.
type Solution struct {
	// Selected lists chosen item indices in ascending order.
	Selected []types.Index `json:"selected"`
	// TotalValue is the summed value of selected items.
	TotalValue types.Value `json:"total_value"`
	// TotalWeight is the summed weight of selected items.
	TotalWeight types.Weight `json:"total_weight"`
	// Status is the termination status.
	Status types.SolverStatus `json:"status"`
	// Stats holds run measurements.
	Stats types.SolverStats `json:"stats"`
}

// Solve solves with default parameters.
func Solve(problem *Problem) (*Solution, error) {
	return SolveWithParams(problem, types.DefaultParams())
}

// SolveWithParams picks the kernel by capacity and solves.
func SolveWithParams(problem *Problem, params types.SolverParams) (*Solution, error) {
	if err := problem.Validate(); err != nil {
		return nil, err
	}
	if problem.Capacity <= DPCapacityLimit {
		return solveDP(problem, params)
	}
	return solveBranchAndBound(problem, params)
}

// solveDP runs the table dynamic program over capacity.
func solveDP(problem *Problem, params types.SolverParams) (*Solution, error) {
	start := time.Now()
	n := len(problem.Items)
	w := int(problem.Capacity)

	// dp[w] is the best value using the items processed so far; keep
	// bitsets record per-item take decisions for reconstruction.
	dp := make([]types.Value, w+1)
	keep := make([][]uint64, n)
	words := w/64 + 1

	iterations := 0
	for i, item := range problem.Items {
		iterations++
		if params.HasTimeLimit() && time.Since(start).Seconds() > params.TimeLimitSeconds {
			// A half-filled table has no usable selection; report the
			// empty best-so-far.
			sol := &Solution{
				Selected: []types.Index{},
				Status:   types.StatusTimeout,
				Stats:    types.SolverStats{SolveTimeSeconds: time.Since(start).Seconds(), Iterations: iterations},
			}
			return sol, apperror.Timeout(time.Since(start).Seconds())
		}
		if params.HasIterationLimit() && iterations > params.IterationLimit {
			sol := &Solution{
				Selected: []types.Index{},
				Status:   types.StatusIterationLimit,
				Stats:    types.SolverStats{SolveTimeSeconds: time.Since(start).Seconds(), Iterations: iterations},
			}
			return sol, apperror.NoConvergence(iterations)
		}

		keep[i] = make([]uint64, words)
		if item.Weight > types.Weight(w) {
			continue
		}
		for cap := w; cap >= int(item.Weight); cap-- {
			candidate, ok := types.CheckedAdd(dp[cap-int(item.Weight)], item.Value)
			if !ok {
				return nil, apperror.Overflow("knapsack value exceeds int64 range")
			}
			if candidate > dp[cap] {
				dp[cap] = candidate
				keep[i][cap/64] |= 1 << (cap % 64)
			}
		}
	}

	// Walk the keep bits backwards to recover the selection.
	selected := make([]types.Index, 0, n)
	var totalWeight types.Weight
	cap := w
	for i := n - 1; i >= 0; i-- {
		if keep[i][cap/64]&(1<<(cap%64)) != 0 {
			selected = append(selected, i)
			totalWeight += problem.Items[i].Weight
			cap -= int(problem.Items[i].Weight)
		}
	}
	sort.Ints(selected)

	sol := &Solution{
		Selected:    selected,
		TotalValue:  dp[w],
		TotalWeight: totalWeight,
		Status:      types.StatusOptimal,
		Stats: types.SolverStats{
			SolveTimeSeconds: time.Since(start).Seconds(),
			Iterations:       iterations,
		},
	}
	obj := float64(dp[w])
	sol.Stats.ObjectiveValue = &obj
	return sol, nil
}

// bbItem is an item annotated with its original index for density sort.
type bbItem struct {
	Item
	index types.Index
}

// solveBranchAndBound runs depth-first search with a fractional
// (LP-relaxation) upper bound. Items are explored in density order;
// ties go to the lower original index so search order is deterministic.
func solveBranchAndBound(problem *Problem, params types.SolverParams) (*Solution, error) {
	start := time.Now()
	n := len(problem.Items)

	items := make([]bbItem, n)
	for i, item := range problem.Items {
		items[i] = bbItem{Item: item, index: i}
	}
	sort.SliceStable(items, func(i, j int) bool {
		// value/weight density descending without division:
		// vi·wj > vj·wi, treating zero weight as infinite density.
		if items[i].Weight == 0 || items[j].Weight == 0 {
			if (items[i].Weight == 0) != (items[j].Weight == 0) {
				return items[i].Weight == 0
			}
			return items[i].Value > items[j].Value
		}
		return items[i].Value*items[j].Weight > items[j].Value*items[i].Weight
	})

	bound := func(depth int, weight types.Weight, value types.Value) float64 {
		remaining := float64(problem.Capacity - weight)
		b := float64(value)
		for k := depth; k < n; k++ {
			if float64(items[k].Weight) <= remaining {
				remaining -= float64(items[k].Weight)
				b += float64(items[k].Value)
			} else {
				b += float64(items[k].Value) * remaining / float64(items[k].Weight)
				remaining = 0
			}
		}
		return b
	}

	bestValue := types.Value(0)
	bestWeight := types.Weight(0)
	bestTaken := make([]bool, n)
	taken := make([]bool, n)
	nodes := 0
	var limitErr *apperror.Error

	var dfs func(depth int, weight types.Weight, value types.Value)
	dfs = func(depth int, weight types.Weight, value types.Value) {
		if limitErr != nil {
			return
		}
		nodes++
		if params.HasTimeLimit() && time.Since(start).Seconds() > params.TimeLimitSeconds {
			limitErr = apperror.Timeout(time.Since(start).Seconds())
			return
		}
		if params.HasIterationLimit() && nodes > params.IterationLimit {
			limitErr = apperror.NoConvergence(nodes)
			return
		}

		if value > bestValue {
			bestValue = value
			bestWeight = weight
			copy(bestTaken, taken)
		}
		if depth == n || bound(depth, weight, value) <= float64(bestValue) {
			return
		}

		if weight+items[depth].Weight <= problem.Capacity {
			taken[depth] = true
			dfs(depth+1, weight+items[depth].Weight, value+items[depth].Value)
			taken[depth] = false
		}
		dfs(depth+1, weight, value)
	}
	dfs(0, 0, 0)

	selected := make([]types.Index, 0, n)
	for k, took := range bestTaken {
		if took {
			selected = append(selected, items[k].index)
		}
	}
	sort.Ints(selected)

	status := types.StatusOptimal
	if limitErr != nil {
		if limitErr.Code == apperror.CodeTimeout {
			status = types.StatusTimeout
		} else {
			status = types.StatusIterationLimit
		}
	}

	sol := &Solution{
		Selected:    selected,
		TotalValue:  bestValue,
		TotalWeight: bestWeight,
		Status:      status,
		Stats: types.SolverStats{
			SolveTimeSeconds: time.Since(start).Seconds(),
			Iterations:       nodes,
			NodesExplored:    nodes,
		},
	}
	if limitErr != nil {
		return sol, limitErr
	}
	obj := float64(bestValue)
	sol.Stats.ObjectiveValue = &obj
	return sol, nil
}

// SolveBranchAndBound exposes the branch-and-bound kernel directly,
// regardless of capacity.
func SolveBranchAndBound(problem *Problem, params types.SolverParams) (*Solution, error) {
	if err := problem.Validate(); err != nil {
		return nil, err
	}
	return solveBranchAndBound(problem, params)
}
