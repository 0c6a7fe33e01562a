package reasoning

import (
	"container/heap"

	"github.com/thebtf/melvin/internal/graphstore"
	"github.com/thebtf/melvin/internal/scoring"
	"github.com/thebtf/melvin/pkg/melvin"
)

// frontierItem is one entry in a best-first priority queue, ordered by
// descending cumulative edge-score product (§4.C "best-first priority =
// product of edge-scores").
type frontierItem struct {
	node     melvin.NodeID
	priority float64
}

type frontierHeap []*frontierItem

func (h frontierHeap) Len() int           { return len(h) }
func (h frontierHeap) Less(i, j int) bool { return h[i].priority > h[j].priority }
func (h frontierHeap) Swap(i, j int)      { h[i], h[j] = h[j], h[i] }
func (h *frontierHeap) Push(x any)        { *h = append(*h, x.(*frontierItem)) }
func (h *frontierHeap) Pop() any {
	old := *h
	n := len(old)
	item := old[n-1]
	*h = old[:n-1]
	return item
}

func newFrontier(start melvin.NodeID) *frontierHeap {
	h := &frontierHeap{{node: start, priority: 1}}
	heap.Init(h)
	return h
}

// walk records one frontier's exploration state: node id -> the path of
// hops from that frontier's root out to the node, in root-to-node order
// for the forward frontier and root-to-node order (where root = target)
// for the backward frontier.
type walk struct {
	root  melvin.NodeID
	nodes map[melvin.NodeID][]melvin.NodeID
	hops  map[melvin.NodeID][]melvin.Hop
}

func newWalk(root melvin.NodeID) *walk {
	return &walk{
		root:  root,
		nodes: map[melvin.NodeID][]melvin.NodeID{root: {root}},
		hops:  map[melvin.NodeID][]melvin.Hop{root: {}},
	}
}

// BidirectionalSearch grows two best-first frontiers from start and
// target in lockstep, alternating expansion, and reports the first path
// through a node that appears in both frontiers' path maps (§4.C
// "bidirectional variant"). The forward frontier walks out-edges from
// start; the backward frontier walks in-edges from target (so its stored
// hops are recorded start->target direction once reversed at the meet).
func BidirectionalSearch(store *graphstore.Store, calc *scoring.Calculator, start, target melvin.NodeID, params BeamParams) (*melvin.Path, bool) {
	maxHops := params.MaxHops
	if maxHops <= 0 {
		maxHops = 4
	}

	fwdFrontier := newFrontier(start)
	bwdFrontier := newFrontier(target)
	fwdWalk := newWalk(start)
	bwdWalk := newWalk(target)

	for hop := 0; hop < maxHops; hop++ {
		expandFrontier(store, calc, fwdFrontier, fwdWalk, params, true)
		if meet, ok := meetingPoint(fwdWalk, bwdWalk); ok {
			return meet, true
		}
		expandFrontier(store, calc, bwdFrontier, bwdWalk, params, false)
		if meet, ok := meetingPoint(fwdWalk, bwdWalk); ok {
			return meet, true
		}
		if fwdFrontier.Len() == 0 && bwdFrontier.Len() == 0 {
			break
		}
	}
	return nil, false
}

// expandFrontier pops the best-priority node and relaxes its neighbors
// (out-edges for the forward frontier, in-edges for the backward one).
func expandFrontier(store *graphstore.Store, calc *scoring.Calculator, frontier *frontierHeap, w *walk, params BeamParams, forward bool) {
	if frontier.Len() == 0 {
		return
	}
	cur := heap.Pop(frontier).(*frontierItem)

	var adj []graphstore.AdjEntry
	if forward {
		adj = store.AdjacencyOut(cur.node)
	} else {
		adj = store.IncomingEdges(cur.node)
	}

	for _, a := range adj {
		neighbor := a.Dst
		if _, seen := w.nodes[neighbor]; seen {
			continue
		}
		edge, err := store.Edge(a.EdgeID)
		if err != nil {
			continue
		}
		ec := calc.EdgeScore(scoring.EdgeInputs{
			WCore: float64(edge.WCore), WCtx: float64(edge.WCtx),
			Count: edge.Count, Rel: edge.Rel,
			LastAccessNs: edge.LastAccessNs, NowNs: params.NowNs,
			DegSrc: store.Degree(edge.Src), DegDst: store.Degree(edge.Dst),
			Contradiction: float64(edge.Contradiction),
		})

		hop := melvin.Hop{EdgeID: a.EdgeID, Rel: a.Rel, Score: ec.EdgeScore, LastAccessNs: edge.LastAccessNs}
		if forward {
			hop.From, hop.To = edge.Src, edge.Dst
		} else {
			hop.From, hop.To = edge.Src, edge.Dst // the underlying edge direction is unchanged
		}

		w.nodes[neighbor] = append(append([]melvin.NodeID(nil), w.nodes[cur.node]...), neighbor)
		w.hops[neighbor] = append(append([]melvin.Hop(nil), w.hops[cur.node]...), hop)

		heap.Push(frontier, &frontierItem{node: neighbor, priority: cur.priority * ec.EdgeScore})
	}
}

// meetingPoint reports a node reached by both frontiers, stitching the
// forward walk (root=start) with the reversed backward walk (root=target)
// into a single start->target path.
func meetingPoint(fwd, bwd *walk) (*melvin.Path, bool) {
	for node, fwdNodes := range fwd.nodes {
		bwdNodes, ok := bwd.nodes[node]
		if !ok {
			continue
		}
		nodes := append(append([]melvin.NodeID(nil), fwdNodes...), reverseNodes(bwdNodes)[1:]...)
		hops := append(append([]melvin.Hop(nil), fwd.hops[node]...), reverseHops(bwd.hops[node])...)
		return &melvin.Path{Nodes: nodes, Hops: hops, Score: 1}, true
	}
	return nil, false
}

func reverseNodes(nodes []melvin.NodeID) []melvin.NodeID {
	out := make([]melvin.NodeID, len(nodes))
	for i, n := range nodes {
		out[len(nodes)-1-i] = n
	}
	return out
}

func reverseHops(hops []melvin.Hop) []melvin.Hop {
	out := make([]melvin.Hop, len(hops))
	for i, h := range hops {
		out[len(hops)-1-i] = h
	}
	return out
}
