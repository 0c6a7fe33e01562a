package reasoning

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/thebtf/melvin/pkg/melvin"
)

func TestEngineAskReturnsListenForUnmatchedQuery(t *testing.T) {
	s, _, _ := buildChainGraph(t)
	eng, err := NewEngine(s, StaticGenome(nil))
	require.NoError(t, err)

	out, err := eng.Ask(context.Background(), AskParams{
		Query: "nonexistent-term", BeamWidth: 4, MaxHops: 3, Intent: melvin.IntentGeneral,
	})
	require.NoError(t, err)
	assert.Equal(t, melvin.GateListen, out.Mode)
}

func TestEngineAskCoalescesIdenticalConcurrentQueries(t *testing.T) {
	s, _, _ := buildChainGraph(t)
	eng, err := NewEngine(s, StaticGenome(nil))
	require.NoError(t, err)

	params := AskParams{Query: "cat", BeamWidth: 4, MaxHops: 3, Intent: melvin.IntentGeneral}

	done := make(chan melvin.OutputIntent, 2)
	for i := 0; i < 2; i++ {
		go func() {
			out, askErr := eng.Ask(context.Background(), params)
			require.NoError(t, askErr)
			done <- out
		}()
	}
	first := <-done
	second := <-done
	assert.Equal(t, first.Confidence, second.Confidence)
}

func TestBeamEntropyAndMarginOfEmptyBeamIsZero(t *testing.T) {
	entropy, margin := beamEntropyAndMargin(nil)
	assert.Equal(t, 0.0, entropy)
	assert.Equal(t, 0.0, margin)
}

func TestBeamEntropyAndMarginSinglePathHasZeroEntropy(t *testing.T) {
	paths := []*melvin.Path{{Score: 1}}
	entropy, margin := beamEntropyAndMargin(paths)
	assert.InDelta(t, 0, entropy, 1e-9)
	assert.InDelta(t, 1, margin, 1e-9)
}
