//go:build cpsat

package cp

import (
	"time"

	"optigate/pkg/apperror"
	"optigate/pkg/types"
)

// solve runs a depth-first search with bounds propagation over the
// linear equalities. Variables are branched in declaration order and
// values tried ascending, so the search is deterministic.
func solve(m *Model, params types.SolverParams) (types.SolverStatus, []int64, error) {
	if len(m.vars) == 0 {
		return types.StatusOptimal, []int64{}, nil
	}

	start := time.Now()
	values := make([]int64, len(m.vars))
	var best []int64
	bestObjective := int64(0)
	hasBest := false
	nodes := 0
	var limitErr *apperror.Error

	objectiveOf := func(assignment []int64) int64 {
		if m.objective == nil {
			return 0
		}
		var sum int64
		for i, idx := range m.objective.vars {
			sum += m.objective.weights[i] * assignment[idx]
		}
		return sum
	}

	// feasibleSoFar checks every equality whose variables are all
	// assigned (depth-prefix assignment) and bounds the rest.
	feasibleSoFar := func(depth int) bool {
		for _, eq := range m.eqs {
			var fixed int64
			loRest, hiRest := int64(0), int64(0)
			for i, idx := range eq.vars {
				c := eq.coeffs[i]
				if idx < depth {
					fixed += c * values[idx]
					continue
				}
				lo, hi := m.vars[idx].lo, m.vars[idx].hi
				if c >= 0 {
					loRest += c * lo
					hiRest += c * hi
				} else {
					loRest += c * hi
					hiRest += c * lo
				}
			}
			if fixed+loRest > eq.rhs || fixed+hiRest < eq.rhs {
				return false
			}
		}
		return true
	}

	var dfs func(depth int)
	dfs = func(depth int) {
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

		if !feasibleSoFar(depth) {
			return
		}
		if depth == len(m.vars) {
			obj := objectiveOf(values)
			if !hasBest || obj < bestObjective {
				best = append([]int64(nil), values...)
				bestObjective = obj
				hasBest = true
			}
			return
		}
		for v := m.vars[depth].lo; v <= m.vars[depth].hi; v++ {
			values[depth] = v
			dfs(depth + 1)
			if limitErr != nil {
				return
			}
			// Without an objective any solution is enough.
			if hasBest && m.objective == nil {
				return
			}
		}
	}
	dfs(0)

	if limitErr != nil {
		status := types.StatusTimeout
		if limitErr.Code == apperror.CodeNoConvergence {
			status = types.StatusIterationLimit
		}
		return status, best, limitErr
	}
	if !hasBest {
		return types.StatusInfeasible, nil,
			apperror.Infeasible("no assignment satisfies all equalities")
	}
	if m.objective == nil {
		return types.StatusFeasible, best, nil
	}
	return types.StatusOptimal, best, nil
}
