package reasoning

import (
	"container/heap"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/thebtf/melvin/internal/graphstore"
	"github.com/thebtf/melvin/internal/scoring"
	"github.com/thebtf/melvin/pkg/melvin"
)

func TestBidirectionalSearchFindsPathAcrossMiddle(t *testing.T) {
	s, cat, animal := buildChainGraph(t)
	calc := scoring.NewCalculator(nil)

	path, ok := BidirectionalSearch(s, calc, cat, animal, BeamParams{MaxHops: 4})
	require.True(t, ok)
	require.NotEmpty(t, path.Nodes)
	assert.Equal(t, cat, path.Nodes[0])
	assert.Equal(t, animal, path.Nodes[len(path.Nodes)-1])
}

func TestBidirectionalSearchReportsNoPathWhenDisconnected(t *testing.T) {
	s := graphstore.New()
	a := s.GetOrCreateNode("a", melvin.KindConcept, 0)
	z := s.GetOrCreateNode("z", melvin.KindConcept, 0)
	calc := scoring.NewCalculator(nil)

	_, ok := BidirectionalSearch(s, calc, a, z, BeamParams{MaxHops: 4})
	assert.False(t, ok)
}

func TestFrontierHeapPopsHighestPriorityFirst(t *testing.T) {
	h := &frontierHeap{}
	heap.Init(h)
	heap.Push(h, &frontierItem{node: 1, priority: 0.5})
	heap.Push(h, &frontierItem{node: 2, priority: 0.2})
	heap.Push(h, &frontierItem{node: 3, priority: 0.9})

	first := heap.Pop(h).(*frontierItem)
	assert.Equal(t, melvin.NodeID(3), first.node, "highest priority item should pop first")
}
