package crossmodal

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/thebtf/melvin/pkg/melvin"
)

func TestEmbedIsDeterministic(t *testing.T) {
	a := Embed(melvin.ModalityText, "a red ball")
	b := Embed(melvin.ModalityText, "a red ball")
	assert.Equal(t, a, b)
}

func TestEmbedIsUnitNormalized(t *testing.T) {
	v := Embed(melvin.ModalityVision, "frame-0042")
	var sumSq float64
	for _, x := range v {
		sumSq += float64(x) * float64(x)
	}
	assert.InDelta(t, 1.0, math.Sqrt(sumSq), 1e-4)
}

func TestEmbedDiffersAcrossModalitiesForSameKey(t *testing.T) {
	text := Embed(melvin.ModalityText, "ball")
	vision := Embed(melvin.ModalityVision, "ball")
	assert.NotEqual(t, text, vision)
}

func TestEmbedDiffersAcrossKeys(t *testing.T) {
	a := Embed(melvin.ModalityAudio, "bark")
	b := Embed(melvin.ModalityAudio, "meow")
	assert.NotEqual(t, a, b)
}

func TestCosineSimilarityOfIdenticalVectorsIsOne(t *testing.T) {
	v := Embed(melvin.ModalityMotor, "grasp")
	assert.InDelta(t, 1.0, CosineSimilarity(v, v), 1e-6)
}
