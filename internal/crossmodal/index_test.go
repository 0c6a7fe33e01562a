package crossmodal

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/thebtf/melvin/pkg/melvin"
)

func TestFlatIndexTopKCosineRanksByClosestMatch(t *testing.T) {
	ctx := context.Background()
	idx := NewFlatIndex()

	ball := Embed(melvin.ModalityText, "ball")
	cup := Embed(melvin.ModalityText, "cup")
	require.NoError(t, idx.Upsert(ctx, melvin.ModalityText, "ball", ball))
	require.NoError(t, idx.Upsert(ctx, melvin.ModalityText, "cup", cup))

	matches, err := idx.TopKCosine(ctx, melvin.ModalityText, ball, 2)
	require.NoError(t, err)
	require.Len(t, matches, 2)
	assert.Equal(t, "ball", matches[0].Key)
	assert.InDelta(t, 1.0, matches[0].Score, 1e-6)
}

func TestFlatIndexTopKCosineRespectsK(t *testing.T) {
	ctx := context.Background()
	idx := NewFlatIndex()
	for _, key := range []string{"a", "b", "c", "d"} {
		require.NoError(t, idx.Upsert(ctx, melvin.ModalityAudio, key, Embed(melvin.ModalityAudio, key)))
	}

	matches, err := idx.TopKCosine(ctx, melvin.ModalityAudio, Embed(melvin.ModalityAudio, "a"), 2)
	require.NoError(t, err)
	assert.Len(t, matches, 2)
}

func TestFlatIndexRemoveDropsKey(t *testing.T) {
	ctx := context.Background()
	idx := NewFlatIndex()
	v := Embed(melvin.ModalityVision, "x")
	require.NoError(t, idx.Upsert(ctx, melvin.ModalityVision, "x", v))
	require.NoError(t, idx.Remove(ctx, melvin.ModalityVision, "x"))

	matches, err := idx.TopKCosine(ctx, melvin.ModalityVision, v, 5)
	require.NoError(t, err)
	assert.Empty(t, matches)
}

func TestFlatIndexIsolatesModalities(t *testing.T) {
	ctx := context.Background()
	idx := NewFlatIndex()
	v := Embed(melvin.ModalityText, "shared-key")
	require.NoError(t, idx.Upsert(ctx, melvin.ModalityText, "shared-key", v))

	matches, err := idx.TopKCosine(ctx, melvin.ModalityVision, v, 5)
	require.NoError(t, err)
	assert.Empty(t, matches)
}
