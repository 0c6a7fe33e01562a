package scheduler

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/thebtf/melvin/internal/graphstore"
	"github.com/thebtf/melvin/pkg/melvin"
)

func TestEdgeWeightStatsAveragesAndCountsBelowThreshold(t *testing.T) {
	g := graphstore.New()
	a := g.GetOrCreateNode("a", melvin.KindConcept, 1)
	b := g.GetOrCreateNode("b", melvin.KindConcept, 1)
	c := g.GetOrCreateNode("c", melvin.KindConcept, 1)

	_, err := g.UpsertEdge(a, b, melvin.RelAssoc, 1.0, 1)
	require.NoError(t, err)
	_, err = g.UpsertEdge(a, c, melvin.RelAssoc, 0.05, 1)
	require.NoError(t, err)

	avg, pctBelow := edgeWeightStats(g)

	assert.InDelta(t, 0.1575, avg, 1e-6)
	assert.InDelta(t, 0.5, pctBelow, 1e-6)
}

func TestEdgeWeightStatsOnEmptyGraphReturnsZero(t *testing.T) {
	g := graphstore.New()

	avg, pctBelow := edgeWeightStats(g)

	assert.Equal(t, 0.0, avg)
	assert.Equal(t, 0.0, pctBelow)
}
