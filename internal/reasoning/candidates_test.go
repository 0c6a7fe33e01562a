package reasoning

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/thebtf/melvin/internal/graphstore"
	"github.com/thebtf/melvin/pkg/melvin"
)

func newTokenizer(t *testing.T) *Tokenizer {
	t.Helper()
	tok, err := NewTokenizer()
	require.NoError(t, err)
	return tok
}

func TestStartCandidatesRanksByRarityAndPopularity(t *testing.T) {
	s := graphstore.New()
	cat := s.GetOrCreateNode("cat", melvin.KindConcept, 0)
	mammal := s.GetOrCreateNode("mammal", melvin.KindConcept, 0)
	_, err := s.UpsertEdge(cat, mammal, melvin.RelIsa, 0.5, 0)
	require.NoError(t, err)

	tok := newTokenizer(t)
	cands := StartCandidates(s, tok, "cat", 8)
	require.NotEmpty(t, cands)
	assert.Equal(t, cat, cands[0].Node)
}

func TestStartCandidatesRespectsBeamWidthCap(t *testing.T) {
	s := graphstore.New()
	for _, w := range []string{"cat", "dog", "bird", "fish"} {
		s.GetOrCreateNode(w, melvin.KindConcept, 0)
	}
	tok := newTokenizer(t)
	cands := StartCandidates(s, tok, "cat dog bird fish", 2)
	assert.Len(t, cands, 2)
}

func TestStartCandidatesEmptyForUnknownQuery(t *testing.T) {
	s := graphstore.New()
	s.GetOrCreateNode("cat", melvin.KindConcept, 0)
	tok := newTokenizer(t)
	cands := StartCandidates(s, tok, "unrelated-xyz", 8)
	assert.Empty(t, cands)
}
