package crossmodal

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/thebtf/melvin/pkg/melvin"
)

func TestBindGroundReturnsBoundConceptWithHighestProbability(t *testing.T) {
	ctx := context.Background()
	b := NewBinder(NewFlatIndex())

	dogKey := "bark.wav"
	dogVec := Embed(melvin.ModalityAudio, dogKey)
	require.NoError(t, b.Bind(ctx, melvin.CrossModalBinding{
		ConceptID: 7, Modality: melvin.ModalityAudio, Key: dogKey, Weight: 1.0, Source: "taught",
	}, dogVec))

	otherKey := "meow.wav"
	require.NoError(t, b.Bind(ctx, melvin.CrossModalBinding{
		ConceptID: 9, Modality: melvin.ModalityAudio, Key: otherKey, Weight: 1.0, Source: "taught",
	}, Embed(melvin.ModalityAudio, otherKey)))

	results, err := b.Ground(ctx, melvin.ModalityAudio, dogVec, 5, 0.5, DefaultGateParams())
	require.NoError(t, err)
	require.NotEmpty(t, results)
	assert.Equal(t, melvin.NodeID(7), results[0].ConceptID)
	assert.Greater(t, results[0].Prob, results[len(results)-1].Prob)
}

func TestTemporalDecayReducesGatedScoreOverTicks(t *testing.T) {
	ctx := context.Background()
	b := NewBinder(NewFlatIndex())
	key := "x.png"
	vec := Embed(melvin.ModalityVision, key)
	require.NoError(t, b.Bind(ctx, melvin.CrossModalBinding{
		ConceptID: 1, Modality: melvin.ModalityVision, Key: key, Weight: 1.0,
	}, vec))

	before, err := b.Ground(ctx, melvin.ModalityVision, vec, 1, 0, DefaultGateParams())
	require.NoError(t, err)

	for i := 0; i < 10; i++ {
		b.Tick(DefaultGateParams().TemporalDecay)
	}

	after, err := b.Ground(ctx, melvin.ModalityVision, vec, 1, 0, DefaultGateParams())
	require.NoError(t, err)

	require.NotEmpty(t, before)
	require.NotEmpty(t, after)
	assert.Less(t, after[0].Gated, before[0].Gated)
}

func TestBindingsForConceptReturnsAllModalities(t *testing.T) {
	ctx := context.Background()
	b := NewBinder(NewFlatIndex())
	require.NoError(t, b.Bind(ctx, melvin.CrossModalBinding{
		ConceptID: 3, Modality: melvin.ModalityText, Key: "ball", Weight: 1,
	}, Embed(melvin.ModalityText, "ball")))
	require.NoError(t, b.Bind(ctx, melvin.CrossModalBinding{
		ConceptID: 3, Modality: melvin.ModalityVision, Key: "ball.png", Weight: 1,
	}, Embed(melvin.ModalityVision, "ball.png")))

	bindings := b.BindingsForConcept(3)
	assert.Len(t, bindings, 2)
}
