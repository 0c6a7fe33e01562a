package scheduler

import (
	"github.com/thebtf/melvin/internal/graphstore"
	"github.com/thebtf/melvin/pkg/melvin"
)

// edgeWeightStats walks every out-edge exactly once (via each node's
// AdjacencyOut) and reports the mean w_core and the fraction below 0.1,
// the two graph-health columns §6.3's metrics log requires.
func edgeWeightStats(g *graphstore.Store) (avg float64, pctBelow0_1 float64) {
	var sum float64
	var count, below int

	g.VisitNodesOrdered(func(n *melvin.Node) bool {
		for _, adj := range g.AdjacencyOut(n.ID) {
			edge, err := g.Edge(adj.EdgeID)
			if err != nil {
				continue
			}
			sum += float64(edge.WCore)
			count++
			if edge.WCore < 0.1 {
				below++
			}
		}
		return true
	})

	if count == 0 {
		return 0, 0
	}
	return sum / float64(count), float64(below) / float64(count)
}
