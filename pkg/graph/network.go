// Package graph provides the flow-network data structure and the graph
// kernels of the optimization core: Dijkstra shortest paths, max flow,
// and min-cost flow.
//
// # Edge Storage
//
// Edges live in a flat arena of size 2·|E|: the forward edge added as
// the k-th call to AddEdge sits at index 2k and its reverse at 2k+1.
// Reverse edges carry zero capacity and negated cost, and each edge
// stores the arena index of its partner. Residual updates are O(1) and
// there are no pointers between edges.
//
// # Determinism
//
// Adjacency lists hold arena indices in insertion order and every
// kernel iterates nodes and edges in ascending index order, so repeated
// solves of the same network produce identical flows.
//
// # Thread Safety
//
// A FlowNetwork is mutated in place during a solve and must be owned
// exclusively by one solver call at a time. Clone the network for
// concurrent solves.
package graph

import (
	"optigate/pkg/apperror"
	"optigate/pkg/types"
)

// Edge is one directed arc in the arena, forward or reverse.
type Edge struct {
	// From is the tail node.
	From types.Index `json:"from"`
	// To is the head node.
	To types.Index `json:"to"`
	// Capacity is the maximum flow (0 for reverse edges).
	Capacity int64 `json:"capacity"`
	// Cost is the cost per unit of flow (negated on reverse edges).
	Cost types.Cost `json:"cost"`
	// Flow is the current flow on the edge.
	Flow int64 `json:"flow"`
	// Rev is the arena index of the partner edge.
	Rev int `json:"rev"`
}

// Residual returns the remaining pushable amount on the edge.
func (e Edge) Residual() int64 {
	return e.Capacity - e.Flow
}

// FlowNetwork is a directed graph with per-edge capacities and costs.
type FlowNetwork struct {
	// NumNodes is the node count; node ids are 0..NumNodes-1.
	NumNodes int
	// adj[u] lists arena indices of edges leaving u, insertion order.
	adj [][]int
	// edges is the arena: forward at 2k, reverse at 2k+1.
	edges []Edge
}

// NewFlowNetwork creates a network with n nodes and no edges.
func NewFlowNetwork(n int) *FlowNetwork {
	return &FlowNetwork{
		NumNodes: n,
		adj:      make([][]int, n),
	}
}

// AddEdge adds a forward edge and its zero-capacity reverse partner.
func (net *FlowNetwork) AddEdge(from, to types.Index, capacity int64, cost types.Cost) error {
	if from < 0 || from >= net.NumNodes {
		return apperror.Newf(apperror.CodeIndexOutOfRange, "edge tail %d out of range [0,%d)", from, net.NumNodes)
	}
	if to < 0 || to >= net.NumNodes {
		return apperror.Newf(apperror.CodeIndexOutOfRange, "edge head %d out of range [0,%d)", to, net.NumNodes)
	}
	if capacity < 0 {
		return apperror.New(apperror.CodeNegativeCapacity, "edge capacity must be non-negative").
			WithDetails("capacity", capacity)
	}

	forward := len(net.edges)
	reverse := forward + 1

	net.edges = append(net.edges, Edge{
		From: from, To: to,
		Capacity: capacity,
		Cost:     cost,
		Rev:      reverse,
	})
	net.adj[from] = append(net.adj[from], forward)

	net.edges = append(net.edges, Edge{
		From: to, To: from,
		Capacity: 0,
		Cost:     -cost,
		Rev:      forward,
	})
	net.adj[to] = append(net.adj[to], reverse)

	return nil
}

// AddEdgeWithCapacity adds a zero-cost edge, for pure max-flow use.
func (net *FlowNetwork) AddEdgeWithCapacity(from, to types.Index, capacity int64) error {
	return net.AddEdge(from, to, capacity, 0)
}

// NumEdges returns the number of forward edges.
func (net *FlowNetwork) NumEdges() int {
	return len(net.edges) / 2
}

// ForwardEdge returns a copy of the k-th forward edge.
func (net *FlowNetwork) ForwardEdge(k int) Edge {
	return net.edges[2*k]
}

// ForwardEdges returns copies of all forward edges in insertion order.
func (net *FlowNetwork) ForwardEdges() []Edge {
	out := make([]Edge, 0, net.NumEdges())
	for k := 0; k < net.NumEdges(); k++ {
		out = append(out, net.edges[2*k])
	}
	return out
}

// Flows returns the flow on each forward edge in insertion order.
func (net *FlowNetwork) Flows() []int64 {
	out := make([]int64, net.NumEdges())
	for k := range out {
		out[k] = net.edges[2*k].Flow
	}
	return out
}

// Clone returns an independent deep copy of the network.
func (net *FlowNetwork) Clone() *FlowNetwork {
	clone := &FlowNetwork{
		NumNodes: net.NumNodes,
		adj:      make([][]int, len(net.adj)),
		edges:    make([]Edge, len(net.edges)),
	}
	for u, list := range net.adj {
		clone.adj[u] = append([]int(nil), list...)
	}
	copy(clone.edges, net.edges)
	return clone
}

// Reset clears all flow, restoring the network to its pre-solve state.
func (net *FlowNetwork) Reset() {
	for i := range net.edges {
		net.edges[i].Flow = 0
	}
}

// residual returns the residual capacity of the arena edge at idx.
func (net *FlowNetwork) residual(idx int) int64 {
	return net.edges[idx].Capacity - net.edges[idx].Flow
}

// push moves amount units along the arena edge at idx and backs the
// same amount out of its partner.
func (net *FlowNetwork) push(idx int, amount int64) {
	net.edges[idx].Flow += amount
	net.edges[net.edges[idx].Rev].Flow -= amount
}

// validateEndpoints checks a source/sink pair.
func (net *FlowNetwork) validateEndpoints(source, sink types.Index) error {
	if source < 0 || source >= net.NumNodes {
		return apperror.Newf(apperror.CodeIndexOutOfRange, "source %d out of range [0,%d)", source, net.NumNodes)
	}
	if sink < 0 || sink >= net.NumNodes {
		return apperror.Newf(apperror.CodeIndexOutOfRange, "sink %d out of range [0,%d)", sink, net.NumNodes)
	}
	if source == sink {
		return apperror.ErrSourceEqualsSink
	}
	return nil
}
