package graph

import (
	"container/heap"
	"math"

	"optigate/pkg/apperror"
	"optigate/pkg/types"
)

// DistInf marks unreachable nodes in shortest-path results.
const DistInf = int64(math.MaxInt64)

// WeightFunc extracts the traversal weight of an arena edge. Returning
// a negative weight aborts the search with a CodeNegativeWeight error.
// Edges for which the function is not meaningful (e.g. saturated
// residual edges) are skipped by the caller before invocation.
type WeightFunc func(e Edge) int64

// ShortestPaths is the result of a Dijkstra run.
type ShortestPaths struct {
	// Dist[v] is the shortest distance from the source, or DistInf.
	Dist []int64
	// Parent[v] is the predecessor node on the shortest path, or
	// types.Unassigned for the source and unreachable nodes.
	Parent []types.Index
	// ParentEdge[v] is the arena index of the edge entering v on the
	// shortest path, or -1.
	ParentEdge []int
}

// PathTo reconstructs the node sequence from the source to target.
// Returns nil when the target is unreachable.
func (sp *ShortestPaths) PathTo(target types.Index) []types.Index {
	if target < 0 || target >= len(sp.Dist) || sp.Dist[target] == DistInf {
		return nil
	}
	var rev []types.Index
	for v := target; v != types.Unassigned; v = sp.Parent[v] {
		rev = append(rev, v)
	}
	for i, j := 0, len(rev)-1; i < j; i, j = i+1, j-1 {
		rev[i], rev[j] = rev[j], rev[i]
	}
	return rev
}

// dijkstraItem is a priority-queue element.
type dijkstraItem struct {
	node types.Index
	dist int64
}

// dijkstraHeap is a min-heap on distance with node-id tie-break, so
// equal-distance pops are deterministic.
type dijkstraHeap []dijkstraItem

func (h dijkstraHeap) Len() int { return len(h) }

func (h dijkstraHeap) Less(i, j int) bool {
	if h[i].dist != h[j].dist {
		return h[i].dist < h[j].dist
	}
	return h[i].node < h[j].node
}

func (h dijkstraHeap) Swap(i, j int) { h[i], h[j] = h[j], h[i] }

func (h *dijkstraHeap) Push(x any) { *h = append(*h, x.(dijkstraItem)) }

func (h *dijkstraHeap) Pop() any {
	old := *h
	n := len(old)
	item := old[n-1]
	*h = old[:n-1]
	return item
}

// Dijkstra computes single-source shortest paths over the network's
// forward edges using the given weight extractor.
//
// Only forward (even-index) arena edges are traversed; use
// DijkstraResidual for searches over the residual graph. Non-negative
// weights are required.
func Dijkstra(net *FlowNetwork, source types.Index, weight WeightFunc) (*ShortestPaths, error) {
	return dijkstraOver(net, source, weight, func(idx int) bool { return idx%2 == 0 })
}

// DijkstraResidual computes shortest paths over edges with positive
// residual capacity, forward and reverse alike. Used by the min-cost
// flow kernel with reduced-cost weights.
func DijkstraResidual(net *FlowNetwork, source types.Index, weight WeightFunc) (*ShortestPaths, error) {
	return dijkstraOver(net, source, weight, func(idx int) bool { return net.residual(idx) > 0 })
}

func dijkstraOver(net *FlowNetwork, source types.Index, weight WeightFunc, usable func(idx int) bool) (*ShortestPaths, error) {
	if net == nil {
		return nil, apperror.ErrNilProblem
	}
	if source < 0 || source >= net.NumNodes {
		return nil, apperror.Newf(apperror.CodeIndexOutOfRange, "source %d out of range [0,%d)", source, net.NumNodes)
	}

	sp := &ShortestPaths{
		Dist:       make([]int64, net.NumNodes),
		Parent:     make([]types.Index, net.NumNodes),
		ParentEdge: make([]int, net.NumNodes),
	}
	for v := range sp.Dist {
		sp.Dist[v] = DistInf
		sp.Parent[v] = types.Unassigned
		sp.ParentEdge[v] = -1
	}
	sp.Dist[source] = 0

	h := &dijkstraHeap{{node: source, dist: 0}}
	for h.Len() > 0 {
		item := heap.Pop(h).(dijkstraItem)
		if item.dist > sp.Dist[item.node] {
			continue // stale entry
		}
		for _, idx := range net.adj[item.node] {
			if !usable(idx) {
				continue
			}
			e := net.edges[idx]
			w := weight(e)
			if w < 0 {
				return nil, apperror.New(apperror.CodeNegativeWeight,
					"dijkstra requires non-negative edge weights").
					WithDetails("edge", idx).
					WithDetails("weight", w)
			}
			next, ok := types.CheckedAdd(item.dist, w)
			if !ok {
				return nil, apperror.Overflow("path distance exceeds int64 range")
			}
			if next < sp.Dist[e.To] {
				sp.Dist[e.To] = next
				sp.Parent[e.To] = item.node
				sp.ParentEdge[e.To] = idx
				heap.Push(h, dijkstraItem{node: e.To, dist: next})
			}
		}
	}

	return sp, nil
}
