package graph

import (
	"time"

	"optigate/pkg/apperror"
	"optigate/pkg/types"
)

// MaxFlowResult is the outcome of a max-flow computation.
type MaxFlowResult struct {
	// MaxFlow is the value of the maximum s→t flow.
	MaxFlow int64 `json:"max_flow"`
	// Flows holds the final flow on each forward edge, insertion order.
	Flows []int64 `json:"flows"`
	// Status is the termination status.
	Status types.SolverStatus `json:"status"`
	// Stats holds run measurements.
	Stats types.SolverStats `json:"stats"`
}

// MaxFlow computes the maximum flow from source to sink with default
// parameters. The network's edge flows are updated in place.
func MaxFlow(net *FlowNetwork, source, sink types.Index) (*MaxFlowResult, error) {
	return MaxFlowWithParams(net, source, sink, types.DefaultParams())
}

// MaxFlowWithParams computes the maximum flow under kernel parameters.
//
// The algorithm is BFS-based augmentation (Edmonds-Karp): repeatedly
// find the shortest residual s→t path and saturate it. BFS visits
// adjacency lists in insertion order, so the flow decomposition is
// deterministic. At termination there is no augmenting path in the
// residual graph and flow is conserved at every interior node.
func MaxFlowWithParams(net *FlowNetwork, source, sink types.Index, params types.SolverParams) (*MaxFlowResult, error) {
	if net == nil {
		return nil, apperror.ErrNilProblem
	}
	if err := net.validateEndpoints(source, sink); err != nil {
		return nil, err
	}

	start := time.Now()
	var total int64
	iterations := 0

	parentEdge := make([]int, net.NumNodes)
	queue := make([]types.Index, 0, net.NumNodes)

	for {
		iterations++
		if params.HasTimeLimit() && time.Since(start).Seconds() > params.TimeLimitSeconds {
			result := maxFlowResult(net, total, types.StatusTimeout, start, iterations)
			return result, apperror.Timeout(time.Since(start).Seconds())
		}
		if params.HasIterationLimit() && iterations > params.IterationLimit {
			result := maxFlowResult(net, total, types.StatusIterationLimit, start, iterations)
			return result, apperror.NoConvergence(iterations)
		}

		// BFS for the shortest augmenting path.
		for v := range parentEdge {
			parentEdge[v] = -1
		}
		parentEdge[source] = -2
		queue = append(queue[:0], source)

		for len(queue) > 0 && parentEdge[sink] == -1 {
			u := queue[0]
			queue = queue[1:]
			for _, idx := range net.adj[u] {
				e := net.edges[idx]
				if parentEdge[e.To] == -1 && net.residual(idx) > 0 {
					parentEdge[e.To] = idx
					queue = append(queue, e.To)
				}
			}
		}

		if parentEdge[sink] == -1 {
			break // no augmenting path remains
		}

		// Bottleneck along the path.
		bottleneck := int64(0)
		for v := sink; v != source; {
			idx := parentEdge[v]
			r := net.residual(idx)
			if bottleneck == 0 || r < bottleneck {
				bottleneck = r
			}
			v = net.edges[idx].From
		}

		for v := sink; v != source; {
			idx := parentEdge[v]
			net.push(idx, bottleneck)
			v = net.edges[idx].From
		}

		var ok bool
		total, ok = types.CheckedAdd(total, bottleneck)
		if !ok {
			return nil, apperror.Overflow("total flow exceeds int64 range")
		}
	}

	result := maxFlowResult(net, total, types.StatusOptimal, start, iterations)
	obj := float64(total)
	result.Stats.ObjectiveValue = &obj
	return result, nil
}

func maxFlowResult(net *FlowNetwork, total int64, status types.SolverStatus, start time.Time, iterations int) *MaxFlowResult {
	return &MaxFlowResult{
		MaxFlow: total,
		Flows:   net.Flows(),
		Status:  status,
		Stats: types.SolverStats{
			SolveTimeSeconds: time.Since(start).Seconds(),
			Iterations:       iterations,
		},
	}
}

// MinCut returns the source side of a minimum s–t cut after a max-flow
// run: every node reachable from source in the residual graph.
func MinCut(net *FlowNetwork, source types.Index) []bool {
	side := make([]bool, net.NumNodes)
	side[source] = true
	queue := []types.Index{source}
	for len(queue) > 0 {
		u := queue[0]
		queue = queue[1:]
		for _, idx := range net.adj[u] {
			e := net.edges[idx]
			if !side[e.To] && net.residual(idx) > 0 {
				side[e.To] = true
				queue = append(queue, e.To)
			}
		}
	}
	return side
}
