package graph

import (
	"time"

	"optigate/pkg/apperror"
	"optigate/pkg/types"
)

// MinCostFlowProblem couples a network with node supplies.
//
// Positive supply means the node produces flow, negative means it
// demands flow; supplies must sum to zero. The problem is read-only
// during the solve: the kernel works on an internal copy of the
// network, so the same problem may be solved concurrently.
type MinCostFlowProblem struct {
	// Network carries edges with capacities and per-unit costs.
	Network *FlowNetwork `json:"network,omitempty"`
	// Supplies[v] is the supply (+) or demand (−) of node v.
	Supplies []int64 `json:"supplies"`
}

// Validate checks problem structure and supply balance.
func (p *MinCostFlowProblem) Validate() error {
	if p == nil || p.Network == nil {
		return apperror.ErrNilProblem
	}
	if len(p.Supplies) != p.Network.NumNodes {
		return apperror.DimensionMismatch(p.Network.NumNodes, len(p.Supplies))
	}
	var sum int64
	for _, s := range p.Supplies {
		var ok bool
		sum, ok = types.CheckedAdd(sum, s)
		if !ok {
			return apperror.Overflow("supply total exceeds int64 range")
		}
	}
	if sum != 0 {
		return apperror.InvalidInput("supplies must sum to zero").
			WithDetails("sum", sum).WithField("supplies")
	}
	return nil
}

// MinCostFlowResult is the outcome of a min-cost flow computation.
type MinCostFlowResult struct {
	// TotalCost is Σ flow·cost over the problem's forward edges.
	TotalCost types.Cost `json:"total_cost"`
	// TotalFlow is the amount of supply routed.
	TotalFlow int64 `json:"total_flow"`
	// Flows holds the flow on each forward edge, insertion order.
	Flows []int64 `json:"flows"`
	// Status is the termination status.
	Status types.SolverStatus `json:"status"`
	// Stats holds run measurements.
	Stats types.SolverStats `json:"stats"`
}

// MinCostFlow routes all supplies at minimum total cost using
// successive shortest paths with default parameters.
func MinCostFlow(problem *MinCostFlowProblem) (*MinCostFlowResult, error) {
	return MinCostFlowWithParams(problem, types.DefaultParams())
}

// MinCostFlowWithParams solves under kernel parameters.
//
// The kernel runs successive shortest paths on reduced costs: one
// Bellman-Ford pass establishes initial node potentials (and detects
// negative-cost cycles reachable from supply nodes, which make the
// objective unbounded), then Dijkstra with potentials finds each
// augmenting path. Status is Infeasible when the residual graph
// disconnects before every supply is routed.
func MinCostFlowWithParams(problem *MinCostFlowProblem, params types.SolverParams) (*MinCostFlowResult, error) {
	if err := problem.Validate(); err != nil {
		return nil, err
	}

	start := time.Now()
	n := problem.Network.NumNodes
	numEdges := problem.Network.NumEdges()

	if hasReachableNegativeCycle(problem) {
		return &MinCostFlowResult{
			Status: types.StatusUnbounded,
			Stats:  types.SolverStats{SolveTimeSeconds: time.Since(start).Seconds()},
		}, apperror.Unbounded("negative-cost cycle reachable from a supply node")
	}

	// Work on a super-source/super-sink augmentation of a copy.
	superSource := types.Index(n)
	superSink := types.Index(n + 1)
	work := NewFlowNetwork(n + 2)
	for k := 0; k < numEdges; k++ {
		e := problem.Network.ForwardEdge(k)
		if err := work.AddEdge(e.From, e.To, e.Capacity, e.Cost); err != nil {
			return nil, apperror.Wrap(err, apperror.CodeInternal, "copy network")
		}
	}
	var totalSupply int64
	for v, s := range problem.Supplies {
		switch {
		case s > 0:
			if err := work.AddEdge(superSource, v, s, 0); err != nil {
				return nil, apperror.Wrap(err, apperror.CodeInternal, "attach supply")
			}
			totalSupply += s
		case s < 0:
			if err := work.AddEdge(v, superSink, -s, 0); err != nil {
				return nil, apperror.Wrap(err, apperror.CodeInternal, "attach demand")
			}
		}
	}

	// Initial potentials from one Bellman-Ford sweep over the residual
	// graph; afterwards every residual edge has non-negative reduced
	// cost and Dijkstra applies.
	pi, err := bellmanFordPotentials(work, superSource)
	if err != nil {
		return nil, err
	}

	iterations := 0
	var routed int64

	for {
		iterations++
		if params.HasTimeLimit() && time.Since(start).Seconds() > params.TimeLimitSeconds {
			result := minCostResult(work, numEdges, routed, types.StatusTimeout, start, iterations)
			return result, apperror.Timeout(time.Since(start).Seconds())
		}
		if params.HasIterationLimit() && iterations > params.IterationLimit {
			result := minCostResult(work, numEdges, routed, types.StatusIterationLimit, start, iterations)
			return result, apperror.NoConvergence(iterations)
		}

		sp, err := DijkstraResidual(work, superSource, func(e Edge) int64 {
			return int64(e.Cost) + pi[e.From] - pi[e.To]
		})
		if err != nil {
			return nil, err
		}
		if sp.Dist[superSink] == DistInf {
			break // no residual path from any supply to any demand
		}

		// Bottleneck along the shortest path.
		bottleneck := int64(0)
		for v := superSink; v != superSource; {
			idx := sp.ParentEdge[v]
			r := work.residual(idx)
			if bottleneck == 0 || r < bottleneck {
				bottleneck = r
			}
			v = work.edges[idx].From
		}
		for v := superSink; v != superSource; {
			idx := sp.ParentEdge[v]
			work.push(idx, bottleneck)
			v = work.edges[idx].From
		}
		routed += bottleneck

		// Shift potentials by the new distances.
		for v := 0; v < work.NumNodes; v++ {
			if sp.Dist[v] != DistInf {
				pi[v] += sp.Dist[v]
			}
		}
	}

	if routed < totalSupply {
		result := minCostResult(work, numEdges, routed, types.StatusInfeasible, start, iterations)
		return result, apperror.Infeasible("supplies cannot be fully routed").
			WithDetails("routed", routed).
			WithDetails("required", totalSupply)
	}

	result := minCostResult(work, numEdges, routed, types.StatusOptimal, start, iterations)
	obj := float64(result.TotalCost)
	result.Stats.ObjectiveValue = &obj
	return result, nil
}

func minCostResult(work *FlowNetwork, numEdges int, routed int64, status types.SolverStatus, start time.Time, iterations int) *MinCostFlowResult {
	flows := make([]int64, numEdges)
	var totalCost types.Cost
	for k := 0; k < numEdges; k++ {
		e := work.edges[2*k]
		flows[k] = e.Flow
		totalCost += types.Cost(e.Flow) * e.Cost
	}
	return &MinCostFlowResult{
		TotalCost: totalCost,
		TotalFlow: routed,
		Flows:     flows,
		Status:    status,
		Stats: types.SolverStats{
			SolveTimeSeconds: time.Since(start).Seconds(),
			Iterations:       iterations,
		},
	}
}

// bellmanFordPotentials computes shortest distances from source over
// residual edges, tolerating negative costs. Unreachable nodes get
// potential 0; they can only become reachable through edges whose tail
// is also unreachable, so the choice never skews a reduced cost that
// Dijkstra actually inspects.
func bellmanFordPotentials(net *FlowNetwork, source types.Index) ([]int64, error) {
	dist := make([]int64, net.NumNodes)
	for v := range dist {
		dist[v] = DistInf
	}
	dist[source] = 0

	for round := 0; round < net.NumNodes-1; round++ {
		changed := false
		for idx, e := range net.edges {
			if net.residual(idx) <= 0 || dist[e.From] == DistInf {
				continue
			}
			next, ok := types.CheckedAdd(dist[e.From], int64(e.Cost))
			if !ok {
				return nil, apperror.Overflow("potential exceeds int64 range")
			}
			if next < dist[e.To] {
				dist[e.To] = next
				changed = true
			}
		}
		if !changed {
			break
		}
	}

	for v := range dist {
		if dist[v] == DistInf {
			dist[v] = 0
		}
	}
	return dist, nil
}

// hasReachableNegativeCycle runs Bellman-Ford seeded at every supply
// node over the original forward edges and reports whether the final
// relaxation round still improves a distance.
func hasReachableNegativeCycle(problem *MinCostFlowProblem) bool {
	net := problem.Network
	dist := make([]int64, net.NumNodes)
	active := false
	for v := range dist {
		if problem.Supplies[v] > 0 {
			dist[v] = 0
			active = true
		} else {
			dist[v] = DistInf
		}
	}
	if !active {
		return false
	}

	relaxAll := func() bool {
		changed := false
		for k := 0; k < net.NumEdges(); k++ {
			e := net.edges[2*k]
			if e.Capacity <= 0 || dist[e.From] == DistInf {
				continue
			}
			next, ok := types.CheckedAdd(dist[e.From], int64(e.Cost))
			if !ok {
				continue
			}
			if next < dist[e.To] {
				dist[e.To] = next
				changed = true
			}
		}
		return changed
	}

	for round := 0; round < net.NumNodes-1; round++ {
		if !relaxAll() {
			return false
		}
	}
	return relaxAll()
}
