package graph

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"optigate/pkg/apperror"
	"optigate/pkg/types"
)

func TestMaxFlow(t *testing.T) {
	tests := []struct {
		name        string
		build       func() *FlowNetwork
		source      types.Index
		sink        types.Index
		wantMaxFlow int64
	}{
		{
			name: "single_edge",
			build: func() *FlowNetwork {
				net := NewFlowNetwork(2)
				require.NoError(t, net.AddEdgeWithCapacity(0, 1, 10))
				return net
			},
			source: 0, sink: 1, wantMaxFlow: 10,
		},
		{
			name: "linear_chain_bottleneck",
			build: func() *FlowNetwork {
				net := NewFlowNetwork(4)
				require.NoError(t, net.AddEdgeWithCapacity(0, 1, 8))
				require.NoError(t, net.AddEdgeWithCapacity(1, 2, 3))
				require.NoError(t, net.AddEdgeWithCapacity(2, 3, 8))
				return net
			},
			source: 0, sink: 3, wantMaxFlow: 3,
		},
		{
			name: "diamond",
			build: func() *FlowNetwork {
				net := NewFlowNetwork(4)
				require.NoError(t, net.AddEdgeWithCapacity(0, 1, 10))
				require.NoError(t, net.AddEdgeWithCapacity(0, 2, 10))
				require.NoError(t, net.AddEdgeWithCapacity(1, 3, 10))
				require.NoError(t, net.AddEdgeWithCapacity(2, 3, 10))
				return net
			},
			source: 0, sink: 3, wantMaxFlow: 20,
		},
		{
			name: "clrs_network",
			build: func() *FlowNetwork {
				net := NewFlowNetwork(6)
				require.NoError(t, net.AddEdgeWithCapacity(0, 1, 16))
				require.NoError(t, net.AddEdgeWithCapacity(0, 2, 13))
				require.NoError(t, net.AddEdgeWithCapacity(1, 2, 10))
				require.NoError(t, net.AddEdgeWithCapacity(1, 3, 12))
				require.NoError(t, net.AddEdgeWithCapacity(2, 1, 4))
				require.NoError(t, net.AddEdgeWithCapacity(2, 4, 14))
				require.NoError(t, net.AddEdgeWithCapacity(3, 2, 9))
				require.NoError(t, net.AddEdgeWithCapacity(3, 5, 20))
				require.NoError(t, net.AddEdgeWithCapacity(4, 3, 7))
				require.NoError(t, net.AddEdgeWithCapacity(4, 5, 4))
				return net
			},
			source: 0, sink: 5, wantMaxFlow: 23,
		},
		{
			name: "disconnected",
			build: func() *FlowNetwork {
				net := NewFlowNetwork(4)
				require.NoError(t, net.AddEdgeWithCapacity(0, 1, 5))
				require.NoError(t, net.AddEdgeWithCapacity(2, 3, 5))
				return net
			},
			source: 0, sink: 3, wantMaxFlow: 0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			net := tt.build()
			result, err := MaxFlow(net, tt.source, tt.sink)
			require.NoError(t, err)

			assert.Equal(t, types.StatusOptimal, result.Status)
			assert.Equal(t, tt.wantMaxFlow, result.MaxFlow)
			assertConservation(t, net, result, tt.source, tt.sink)
			assertCutMatchesFlow(t, net, result, tt.source)
		})
	}
}

// assertConservation checks Kirchhoff balance at interior nodes and
// capacity bounds on every edge.
func assertConservation(t *testing.T, net *FlowNetwork, result *MaxFlowResult, source, sink types.Index) {
	t.Helper()

	balance := make([]int64, net.NumNodes)
	for k, e := range net.ForwardEdges() {
		flow := result.Flows[k]
		assert.GreaterOrEqual(t, flow, int64(0))
		assert.LessOrEqual(t, flow, e.Capacity)
		balance[e.From] -= flow
		balance[e.To] += flow
	}
	for v := 0; v < net.NumNodes; v++ {
		if v == int(source) || v == int(sink) {
			continue
		}
		assert.Zero(t, balance[v], "conservation violated at node %d", v)
	}
	assert.Equal(t, result.MaxFlow, -balance[source], "net outflow from source")
	assert.Equal(t, result.MaxFlow, balance[sink], "net inflow to sink")
}

// assertCutMatchesFlow checks max-flow/min-cut duality on the residual
// reachability cut.
func assertCutMatchesFlow(t *testing.T, net *FlowNetwork, result *MaxFlowResult, source types.Index) {
	t.Helper()

	side := MinCut(net, source)
	var cutCapacity int64
	for _, e := range net.ForwardEdges() {
		if side[e.From] && !side[e.To] {
			cutCapacity += e.Capacity
		}
	}
	assert.Equal(t, result.MaxFlow, cutCapacity)
}

func TestMaxFlowInvalidInput(t *testing.T) {
	net := NewFlowNetwork(3)
	require.NoError(t, net.AddEdgeWithCapacity(0, 1, 1))

	_, err := MaxFlow(net, 1, 1)
	assert.True(t, apperror.Is(err, apperror.CodeSourceEqualsSink))

	_, err = MaxFlow(net, 0, 9)
	assert.True(t, apperror.Is(err, apperror.CodeIndexOutOfRange))

	_, err = MaxFlow(nil, 0, 1)
	assert.True(t, apperror.Is(err, apperror.CodeNilInput))
}

func TestAddEdgeValidation(t *testing.T) {
	net := NewFlowNetwork(2)

	err := net.AddEdge(0, 5, 1, 0)
	assert.True(t, apperror.Is(err, apperror.CodeIndexOutOfRange))

	err = net.AddEdge(0, 1, -1, 0)
	assert.True(t, apperror.Is(err, apperror.CodeNegativeCapacity))
}

func TestArenaLayout(t *testing.T) {
	net := NewFlowNetwork(3)
	require.NoError(t, net.AddEdge(0, 1, 10, 4))
	require.NoError(t, net.AddEdge(1, 2, 5, 7))

	// Forward edge k sits at arena index 2k with its reverse at 2k+1.
	for k := 0; k < net.NumEdges(); k++ {
		forward := net.edges[2*k]
		reverse := net.edges[2*k+1]
		assert.Equal(t, forward.From, reverse.To)
		assert.Equal(t, forward.To, reverse.From)
		assert.Equal(t, int64(0), reverse.Capacity)
		assert.Equal(t, -forward.Cost, reverse.Cost)
		assert.Equal(t, 2*k, reverse.Rev)
		assert.Equal(t, 2*k+1, forward.Rev)
	}
}

func TestCloneAndReset(t *testing.T) {
	net := NewFlowNetwork(2)
	require.NoError(t, net.AddEdgeWithCapacity(0, 1, 10))

	clone := net.Clone()
	_, err := MaxFlow(clone, 0, 1)
	require.NoError(t, err)

	assert.Equal(t, int64(10), clone.Flows()[0])
	assert.Equal(t, int64(0), net.Flows()[0], "clone must not mutate the original")

	clone.Reset()
	assert.Equal(t, int64(0), clone.Flows()[0])
}
