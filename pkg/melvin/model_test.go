package melvin

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizeText(t *testing.T) {
	assert.Equal(t, "cats are mammals", NormalizeText("  Cats, are... Mammals!  "))
	assert.Equal(t, "don't", NormalizeText("Don't"))
	assert.Equal(t, "multi word", NormalizeText("multi   word"))
}

func TestParseRelType(t *testing.T) {
	assert.Equal(t, RelExact, ParseRelType("ARE"))
	assert.Equal(t, RelConsumes, ParseRelType("drink"))
	assert.Equal(t, RelAssoc, ParseRelType("totally-unknown-relation"))
}

func TestThoughtEncodeDecodeRoundTrip(t *testing.T) {
	nodes := []NodeID{1, 42, 7}
	text := EncodeThoughtText(nodes)
	decoded, err := DecodeThoughtText(text)
	require.NoError(t, err)
	assert.Equal(t, nodes, decoded)
}

func TestDecodeThoughtTextRejectsGarbage(t *testing.T) {
	_, err := DecodeThoughtText("")
	assert.Error(t, err)
	_, err = DecodeThoughtText("1>abc>3")
	assert.Error(t, err)
}

func TestJaccard(t *testing.T) {
	a := map[NodeID]struct{}{1: {}, 2: {}, 3: {}}
	b := map[NodeID]struct{}{2: {}, 3: {}, 4: {}}
	assert.InDelta(t, 0.5, Jaccard(a, b), 1e-9)
	assert.Equal(t, 1.0, Jaccard(map[NodeID]struct{}{}, map[NodeID]struct{}{}))
}

func TestGenomeAccessorsFallBackToDefault(t *testing.T) {
	var g *Genome
	assert.Equal(t, 0.5, g.Float("missing", 0.5))

	g = &Genome{Params: map[string]*Param{
		"beta1": {Name: "beta1", Value: 3.0, Min: 0, Max: 10, Active: true},
		"dead":  {Name: "dead", Value: 9, Min: 0, Max: 10, Active: false},
	}}
	assert.Equal(t, 3.0, g.Float("beta1", 0))
	assert.Equal(t, 1.0, g.Float("dead", 1.0), "inactive params fall back to default")
	assert.Equal(t, 7, g.Int("missing", 7))
}

func TestGenomeCloneIsDeep(t *testing.T) {
	anchor := 0.5
	g := &Genome{Params: map[string]*Param{
		"p": {Name: "p", Value: 1, Min: 0, Max: 2, Anchor: &anchor, Active: true},
	}}
	clone := g.Clone()
	*clone.Params["p"].Anchor = 9
	assert.Equal(t, 0.5, *g.Params["p"].Anchor, "clone must not alias the original anchor pointer")
}

func TestParamClamp(t *testing.T) {
	p := &Param{Min: 0, Max: 1}
	assert.Equal(t, 1.0, p.Clamp(5))
	assert.Equal(t, 0.0, p.Clamp(-5))
	assert.Equal(t, 0.3, p.Clamp(0.3))
}

func TestSRSUrgencyGrowsWithOverdueAndLapses(t *testing.T) {
	item := &SRSItem{IntervalDays: 2, DueTimeNs: 0, Lapses: 1}
	dayNs := int64(86400 * 1e9)
	early := item.Urgency(0)
	late := item.Urgency(3 * dayNs)
	assert.Less(t, early, late)
}

func TestFitnessMonotonicity(t *testing.T) {
	w := DefaultFitnessWeights()
	base := MetricsSnapshot{Entropy: 1.0, Top2Margin: 0.3, SuccessRate: 0.5, CoherenceDrift: 0.1}
	better := base
	better.SuccessRate = 0.9
	assert.Greater(t, better.Fitness(w), base.Fitness(w), "fitness must increase with success_rate")

	worse := base
	worse.CoherenceDrift = 0.5
	assert.Less(t, worse.Fitness(w), base.Fitness(w), "fitness must decrease with drift")
}

func TestEvaluateTriggers(t *testing.T) {
	m := MetricsSnapshot{Entropy: 1.6, SuccessRate: 0.5, CoherenceDrift: 0.3}
	triggers := EvaluateTriggers(m, -0.01, 0.1)
	assert.True(t, triggers.Any())
	assert.True(t, triggers.HighEntropy)
	assert.True(t, triggers.LowSuccess)
	assert.True(t, triggers.HighDrift)
	assert.True(t, triggers.ConfidenceDecay)

	calm := EvaluateTriggers(MetricsSnapshot{Entropy: 0.5, SuccessRate: 0.9, CoherenceDrift: 0.01}, 0, 0.5)
	assert.False(t, calm.Any())
}

func TestErrorWrapAndKind(t *testing.T) {
	base := assert.AnError
	wrapped := Wrap("graphstore.UpsertEdge", KindIOError, base)
	assert.True(t, IsKind(wrapped, KindIOError))
	assert.False(t, IsKind(wrapped, KindTimeout))
	assert.ErrorIs(t, wrapped, base)
}
