package graph

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"optigate/pkg/apperror"
	"optigate/pkg/types"
)

func TestMinCostFlow(t *testing.T) {
	t.Run("prefers_cheap_path", func(t *testing.T) {
		// Two parallel routes 0→1: direct expensive, via 2 cheap.
		net := NewFlowNetwork(3)
		require.NoError(t, net.AddEdge(0, 1, 10, 10)) // edge 0
		require.NoError(t, net.AddEdge(0, 2, 10, 1))  // edge 1
		require.NoError(t, net.AddEdge(2, 1, 10, 1))  // edge 2

		result, err := MinCostFlow(&MinCostFlowProblem{
			Network:  net,
			Supplies: []int64{4, -4, 0},
		})
		require.NoError(t, err)

		assert.Equal(t, types.StatusOptimal, result.Status)
		assert.Equal(t, int64(4), result.TotalFlow)
		assert.Equal(t, types.Cost(8), result.TotalCost)
		assert.Equal(t, []int64{0, 4, 4}, result.Flows)
	})

	t.Run("splits_when_cheap_route_saturates", func(t *testing.T) {
		net := NewFlowNetwork(3)
		require.NoError(t, net.AddEdge(0, 1, 10, 10))
		require.NoError(t, net.AddEdge(0, 2, 3, 1))
		require.NoError(t, net.AddEdge(2, 1, 3, 1))

		result, err := MinCostFlow(&MinCostFlowProblem{
			Network:  net,
			Supplies: []int64{5, -5, 0},
		})
		require.NoError(t, err)

		assert.Equal(t, types.StatusOptimal, result.Status)
		// 3 units via node 2 at cost 2 each, 2 units direct at cost 10.
		assert.Equal(t, types.Cost(26), result.TotalCost)
		assert.Equal(t, []int64{2, 3, 3}, result.Flows)
	})

	t.Run("multiple_supplies_and_demands", func(t *testing.T) {
		// Two warehouses ship to two stores over a shared hub.
		net := NewFlowNetwork(5)
		require.NoError(t, net.AddEdge(0, 2, 10, 2)) // wh0 → hub
		require.NoError(t, net.AddEdge(1, 2, 10, 3)) // wh1 → hub
		require.NoError(t, net.AddEdge(2, 3, 10, 1)) // hub → store0
		require.NoError(t, net.AddEdge(2, 4, 10, 4)) // hub → store1

		result, err := MinCostFlow(&MinCostFlowProblem{
			Network:  net,
			Supplies: []int64{6, 4, 0, -7, -3},
		})
		require.NoError(t, err)

		assert.Equal(t, types.StatusOptimal, result.Status)
		assert.Equal(t, int64(10), result.TotalFlow)
		// All supply must move; cost = 6·2 + 4·3 + 7·1 + 3·4 = 43.
		assert.Equal(t, types.Cost(43), result.TotalCost)

		// Supply balance holds exactly at every node.
		balance := make([]int64, 5)
		for k, e := range net.ForwardEdges() {
			balance[e.From] -= result.Flows[k]
			balance[e.To] += result.Flows[k]
		}
		supplies := []int64{6, 4, 0, -7, -3}
		for v := range balance {
			assert.Equal(t, -supplies[v], balance[v], "node %d", v)
		}
	})

	t.Run("negative_edge_costs", func(t *testing.T) {
		// A negative-cost edge without a cycle is fine: the initial
		// Bellman-Ford pass absorbs it into the potentials.
		net := NewFlowNetwork(3)
		require.NoError(t, net.AddEdge(0, 1, 5, -2))
		require.NoError(t, net.AddEdge(1, 2, 5, 3))

		result, err := MinCostFlow(&MinCostFlowProblem{
			Network:  net,
			Supplies: []int64{2, 0, -2},
		})
		require.NoError(t, err)
		assert.Equal(t, types.StatusOptimal, result.Status)
		assert.Equal(t, types.Cost(2), result.TotalCost)
	})

	t.Run("zero_supplies", func(t *testing.T) {
		net := NewFlowNetwork(2)
		require.NoError(t, net.AddEdge(0, 1, 5, 1))

		result, err := MinCostFlow(&MinCostFlowProblem{
			Network:  net,
			Supplies: []int64{0, 0},
		})
		require.NoError(t, err)
		assert.Equal(t, types.StatusOptimal, result.Status)
		assert.Equal(t, types.Cost(0), result.TotalCost)
	})
}

func TestMinCostFlowInfeasible(t *testing.T) {
	// Demand node unreachable from the supply node.
	net := NewFlowNetwork(3)
	require.NoError(t, net.AddEdge(0, 1, 10, 1))

	result, err := MinCostFlow(&MinCostFlowProblem{
		Network:  net,
		Supplies: []int64{5, 0, -5},
	})
	require.Error(t, err)
	assert.True(t, apperror.Is(err, apperror.CodeInfeasible))
	require.NotNil(t, result)
	assert.Equal(t, types.StatusInfeasible, result.Status)

	// Capacity shortfall is also infeasible.
	net2 := NewFlowNetwork(2)
	require.NoError(t, net2.AddEdge(0, 1, 3, 1))
	_, err = MinCostFlow(&MinCostFlowProblem{
		Network:  net2,
		Supplies: []int64{5, -5},
	})
	assert.True(t, apperror.Is(err, apperror.CodeInfeasible))
}

func TestMinCostFlowUnbounded(t *testing.T) {
	// Negative cycle 1→2→1 reachable from the supply node 0.
	net := NewFlowNetwork(3)
	require.NoError(t, net.AddEdge(0, 1, 5, 1))
	require.NoError(t, net.AddEdge(1, 2, 5, -4))
	require.NoError(t, net.AddEdge(2, 1, 5, 1))

	_, err := MinCostFlow(&MinCostFlowProblem{
		Network:  net,
		Supplies: []int64{1, 0, -1},
	})
	require.Error(t, err)
	assert.True(t, apperror.Is(err, apperror.CodeUnbounded))
}

func TestMinCostFlowValidation(t *testing.T) {
	net := NewFlowNetwork(2)
	require.NoError(t, net.AddEdge(0, 1, 1, 1))

	_, err := MinCostFlow(&MinCostFlowProblem{Network: net, Supplies: []int64{1}})
	assert.True(t, apperror.Is(err, apperror.CodeDimensionMismatch))

	_, err = MinCostFlow(&MinCostFlowProblem{Network: net, Supplies: []int64{1, -2}})
	assert.True(t, apperror.Is(err, apperror.CodeInvalidInput))

	_, err = MinCostFlow(nil)
	assert.True(t, apperror.Is(err, apperror.CodeNilInput))
}

func TestMinCostFlowLeavesProblemUntouched(t *testing.T) {
	net := NewFlowNetwork(2)
	require.NoError(t, net.AddEdge(0, 1, 5, 1))

	_, err := MinCostFlow(&MinCostFlowProblem{Network: net, Supplies: []int64{5, -5}})
	require.NoError(t, err)
	assert.Equal(t, []int64{0}, net.Flows(), "solver must work on a copy")
}
