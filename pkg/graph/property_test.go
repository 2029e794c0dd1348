package graph

import (
	"testing"

	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"

	"optigate/pkg/types"
)

// drawNetwork generates a random flow network with node 0 as source
// and node n-1 as sink.
func drawNetwork(t *rapid.T) *FlowNetwork {
	n := rapid.IntRange(2, 8).Draw(t, "n")
	net := NewFlowNetwork(n)
	edges := rapid.IntRange(1, 20).Draw(t, "edges")
	for i := 0; i < edges; i++ {
		from := rapid.IntRange(0, n-1).Draw(t, "from")
		to := rapid.IntRange(0, n-1).Draw(t, "to")
		if from == to {
			continue
		}
		capacity := rapid.Int64Range(0, 50).Draw(t, "capacity")
		require.NoError(t, net.AddEdgeWithCapacity(from, to, capacity))
	}
	return net
}

func TestMaxFlowConservationProperty(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		net := drawNetwork(t)
		source, sink := types.Index(0), types.Index(net.NumNodes-1)

		result, err := MaxFlow(net, source, sink)
		require.NoError(t, err)
		require.Equal(t, types.StatusOptimal, result.Status)

		balance := make([]int64, net.NumNodes)
		for k, e := range net.ForwardEdges() {
			flow := result.Flows[k]
			require.GreaterOrEqual(t, flow, int64(0))
			require.LessOrEqual(t, flow, e.Capacity)
			balance[e.From] -= flow
			balance[e.To] += flow
		}
		for v := 0; v < net.NumNodes; v++ {
			if v == int(source) || v == int(sink) {
				continue
			}
			require.Zero(t, balance[v], "conservation violated at node %d", v)
		}
		require.Equal(t, result.MaxFlow, -balance[source])
		require.Equal(t, result.MaxFlow, balance[sink])
	})
}

func TestMaxFlowMinCutDualityProperty(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		net := drawNetwork(t)
		source, sink := types.Index(0), types.Index(net.NumNodes-1)

		result, err := MaxFlow(net, source, sink)
		require.NoError(t, err)

		side := MinCut(net, source)
		require.True(t, side[source])
		require.False(t, side[sink], "sink reachable after max flow")

		var cutCapacity int64
		for _, e := range net.ForwardEdges() {
			if side[e.From] && !side[e.To] {
				cutCapacity += e.Capacity
			}
		}
		require.Equal(t, result.MaxFlow, cutCapacity)
	})
}

func TestMaxFlowDeterminismProperty(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		net := drawNetwork(t)
		source, sink := types.Index(0), types.Index(net.NumNodes-1)

		first, err := MaxFlow(net.Clone(), source, sink)
		require.NoError(t, err)
		second, err := MaxFlow(net.Clone(), source, sink)
		require.NoError(t, err)

		require.Equal(t, first.MaxFlow, second.MaxFlow)
		require.Equal(t, first.Flows, second.Flows)
	})
}

// TestMinCostFlowOptimalityProperty cross-checks min-cost flow against
// an exhaustive search over integer flow vectors on tiny instances.
func TestMinCostFlowOptimalityProperty(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		n := rapid.IntRange(2, 4).Draw(t, "n")
		net := NewFlowNetwork(n)
		numEdges := rapid.IntRange(1, 4).Draw(t, "edges")
		for i := 0; i < numEdges; i++ {
			from := rapid.IntRange(0, n-1).Draw(t, "from")
			to := rapid.IntRange(0, n-1).Draw(t, "to")
			if from == to {
				continue
			}
			capacity := rapid.Int64Range(0, 3).Draw(t, "capacity")
			cost := rapid.Int64Range(0, 9).Draw(t, "cost")
			require.NoError(t, net.AddEdge(from, to, capacity, cost))
		}
		if net.NumEdges() == 0 {
			t.Skip("no edges drawn")
		}

		amount := rapid.Int64Range(0, 3).Draw(t, "amount")
		supplies := make([]int64, n)
		supplies[0] = amount
		supplies[n-1] -= amount

		result, err := MinCostFlow(&MinCostFlowProblem{Network: net, Supplies: supplies})
		bruteCost, bruteFeasible := bruteForceMinCost(net, supplies)

		if !bruteFeasible {
			require.Error(t, err)
			return
		}
		require.NoError(t, err)
		require.Equal(t, types.StatusOptimal, result.Status)
		require.Equal(t, bruteCost, result.TotalCost)
	})
}

// bruteForceMinCost enumerates every integer flow vector within edge
// capacities and returns the cheapest one satisfying the supplies.
func bruteForceMinCost(net *FlowNetwork, supplies []int64) (types.Cost, bool) {
	edges := net.ForwardEdges()
	flows := make([]int64, len(edges))
	best := types.Cost(0)
	found := false

	var walk func(k int)
	walk = func(k int) {
		if k == len(edges) {
			balance := make([]int64, net.NumNodes)
			var cost types.Cost
			for i, e := range edges {
				balance[e.From] -= flows[i]
				balance[e.To] += flows[i]
				cost += types.Cost(flows[i]) * e.Cost
			}
			for v := range balance {
				if balance[v] != -supplies[v] {
					return
				}
			}
			if !found || cost < best {
				best = cost
				found = true
			}
			return
		}
		for f := int64(0); f <= edges[k].Capacity; f++ {
			flows[k] = f
			walk(k + 1)
		}
	}
	walk(0)
	return best, found
}
