package teaching

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/thebtf/melvin/internal/graphstore"
	"github.com/thebtf/melvin/internal/reasoning"
)

func TestFuzzyMatchAcceptsSubstringAndCloseSpelling(t *testing.T) {
	assert.True(t, fuzzyMatch("a small animal", "animal"))
	assert.True(t, fuzzyMatch("elephnt", "elephant"), "one-letter typo should clear the similarity threshold")
	assert.False(t, fuzzyMatch("vehicle", "animal"))
}

func TestVerifyRunsQueryAndComputesPassRate(t *testing.T) {
	store := graphstore.New()
	doc := Parse("t.txt", "#FACT dog isa animal\n#QUERY what is a dog\n#EXPECT\nanimal\n")
	Ingest(store, doc, 0)

	engine, err := reasoning.NewEngine(store, reasoning.StaticGenome(nil))
	require.NoError(t, err)

	result, err := Verify(context.Background(), engine, store, doc, 0)
	require.NoError(t, err)
	require.Len(t, result.Probes, 1)
	assert.Equal(t, "what is a dog", result.Probes[0].Question)
	assert.Equal(t, 1.0, result.PassRate)
}

func TestVerifyWithNoProbesReportsFullPassRate(t *testing.T) {
	store := graphstore.New()
	doc := Parse("t.txt", "#FACT dog isa animal\n")
	Ingest(store, doc, 0)

	engine, err := reasoning.NewEngine(store, reasoning.StaticGenome(nil))
	require.NoError(t, err)

	result, err := Verify(context.Background(), engine, store, doc, 0)
	require.NoError(t, err)
	assert.Empty(t, result.Probes)
	assert.Equal(t, 1.0, result.PassRate)
}
