package graphstore

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/thebtf/melvin/pkg/melvin"
)

func TestGetOrCreateNodeDedupesByNormalizedText(t *testing.T) {
	s := New()
	a := s.GetOrCreateNode("Cats are Mammals", melvin.KindConcept, 1)
	b := s.GetOrCreateNode("  cats are mammals ", melvin.KindConcept, 2)
	assert.Equal(t, a, b)
	assert.Equal(t, 1, s.NodeCount())
}

// P1: an edge never references a non-live node.
func TestUpsertEdgeRejectsUnknownEndpoints(t *testing.T) {
	s := New()
	cat := s.GetOrCreateNode("cat", melvin.KindConcept, 0)
	_, err := s.UpsertEdge(cat, 9999, melvin.RelIsa, 0.5, 0)
	require.Error(t, err)
	assert.True(t, melvin.IsKind(err, melvin.KindUnknownNode))
}

// P2: repeated upserts of the same (src,dst,rel) reinforce, they never
// duplicate, and w_core is monotonically non-decreasing under positive
// weight reinforcement.
func TestUpsertEdgeReinforcesMonotonically(t *testing.T) {
	s := New()
	cat := s.GetOrCreateNode("cat", melvin.KindConcept, 0)
	mammal := s.GetOrCreateNode("mammal", melvin.KindConcept, 0)

	id1, err := s.UpsertEdge(cat, mammal, melvin.RelIsa, 0.5, 1)
	require.NoError(t, err)
	first, _ := s.Edge(id1)

	id2, err := s.UpsertEdge(cat, mammal, melvin.RelIsa, 0.5, 2)
	require.NoError(t, err)
	assert.Equal(t, id1, id2, "same (src,dst,rel) must reinforce, not duplicate")

	second, _ := s.Edge(id2)
	assert.GreaterOrEqual(t, second.WCore, first.WCore)
	assert.Equal(t, uint32(2), second.Count)
	assert.Equal(t, 1, s.EdgeCount())
}

func TestUpsertEdgeClampsWeight(t *testing.T) {
	s := New(WithClampMax(1.0))
	cat := s.GetOrCreateNode("cat", melvin.KindConcept, 0)
	mammal := s.GetOrCreateNode("mammal", melvin.KindConcept, 0)

	var id melvin.EdgeID
	for i := 0; i < 50; i++ {
		var err error
		id, err = s.UpsertEdge(cat, mammal, melvin.RelIsa, 1.0, int64(i))
		require.NoError(t, err)
	}
	e, _ := s.Edge(id)
	assert.LessOrEqual(t, e.WCore, float32(1.0))
	assert.LessOrEqual(t, e.WCtx, float32(1.0))
	assert.False(t, math.IsNaN(float64(e.WCore)))
	assert.False(t, math.IsInf(float64(e.WCore), 0))
}

func TestAdjacencyOutIsCanonicallyOrdered(t *testing.T) {
	s := New()
	cat := s.GetOrCreateNode("cat", melvin.KindConcept, 0)
	a := s.GetOrCreateNode("a", melvin.KindConcept, 0)
	b := s.GetOrCreateNode("b", melvin.KindConcept, 0)

	_, err := s.UpsertEdge(cat, b, melvin.RelIsa, 0.1, 0)
	require.NoError(t, err)
	_, err = s.UpsertEdge(cat, a, melvin.RelIsa, 0.1, 0)
	require.NoError(t, err)
	_, err = s.UpsertEdge(cat, a, melvin.RelAssoc, 0.1, 0)
	require.NoError(t, err)

	adj := s.AdjacencyOut(cat)
	require.Len(t, adj, 3)
	assert.Equal(t, a, adj[0].Dst)
	assert.Equal(t, melvin.RelIsa, adj[0].Rel)
	assert.Equal(t, a, adj[1].Dst)
	assert.Equal(t, melvin.RelAssoc, adj[1].Rel)
	assert.Equal(t, b, adj[2].Dst)
}

func TestMergeNodesRedirectsEdgesAndDropsSelfLoops(t *testing.T) {
	s := New()
	cat := s.GetOrCreateNode("cat", melvin.KindConcept, 0)
	kitty := s.GetOrCreateNode("kitty", melvin.KindConcept, 0)
	mammal := s.GetOrCreateNode("mammal", melvin.KindConcept, 0)

	_, err := s.UpsertEdge(kitty, mammal, melvin.RelIsa, 0.4, 0)
	require.NoError(t, err)
	// an edge from cat -> kitty would become a self-loop after merge
	_, err = s.UpsertEdge(cat, kitty, melvin.RelAssoc, 0.2, 0)
	require.NoError(t, err)

	s.MergeNodes(cat, kitty, 5)

	_, ok := s.EdgeByKey(cat, mammal, melvin.RelIsa)
	assert.True(t, ok, "kitty's outgoing edge must be redirected onto cat")

	_, err = s.GetNode(kitty)
	assert.True(t, melvin.IsKind(err, melvin.KindNotFound))

	adj := s.AdjacencyOut(cat)
	for _, e := range adj {
		assert.NotEqual(t, cat, e.Dst, "self-loop created by merge must be dropped")
	}
}

func TestRemoveDanglingNodeRefusesReferencedNode(t *testing.T) {
	s := New()
	cat := s.GetOrCreateNode("cat", melvin.KindConcept, 0)
	mammal := s.GetOrCreateNode("mammal", melvin.KindConcept, 0)
	_, err := s.UpsertEdge(cat, mammal, melvin.RelIsa, 0.4, 0)
	require.NoError(t, err)

	assert.False(t, s.RemoveDanglingNode(mammal), "mammal still has an incoming edge")
	s.RemoveEdge(mustEdgeID(t, s, cat, mammal, melvin.RelIsa))
	assert.True(t, s.RemoveDanglingNode(mammal))
}

func mustEdgeID(t *testing.T, s *Store, src, dst melvin.NodeID, rel melvin.RelType) melvin.EdgeID {
	t.Helper()
	e, ok := s.EdgeByKey(src, dst, rel)
	require.True(t, ok)
	return e.ID
}

func TestTokenRingCapsAtConfiguredCapacity(t *testing.T) {
	s := New(WithRingSize(2))
	id := s.GetOrCreateNode("cat", melvin.KindConcept, 0)
	s.GetOrCreateNode("cat", melvin.KindConcept, 1)
	s.GetOrCreateNode("cat", melvin.KindConcept, 2)

	ring := s.TokenRing("cat")
	require.Len(t, ring, 2, "ring capacity is 2")
	assert.Equal(t, id, ring[0])

	assert.Empty(t, s.TokenRing("never-taught"))
}
