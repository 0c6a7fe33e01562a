package teaching

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/thebtf/melvin/pkg/melvin"
)

func TestParseFactBlock(t *testing.T) {
	doc := Parse("t.txt", "#FACT dog isa animal\n")
	require.Len(t, doc.Blocks, 1)
	assert.Equal(t, melvin.BlockFact, doc.Blocks[0].Type)
	assert.Equal(t, "dog", doc.Blocks[0].Fact.Subj)
	assert.Equal(t, "isa", doc.Blocks[0].Fact.Rel)
	assert.Equal(t, "animal", doc.Blocks[0].Fact.Obj)
}

func TestParseFactWithMultiWordObject(t *testing.T) {
	doc := Parse("t.txt", "#FACT paris capital_of the_french_republic extra\n")
	require.Len(t, doc.Blocks, 1)
	assert.Equal(t, "the_french_republic extra", doc.Blocks[0].Fact.Obj)
}

func TestParseAssociationBidirectionalMarker(t *testing.T) {
	doc := Parse("t.txt", "#ASSOC cat <-> whiskers\n")
	require.Len(t, doc.Blocks, 1)
	a := doc.Blocks[0].Assoc
	require.NotNil(t, a)
	assert.True(t, a.Bidirectional)
	assert.Equal(t, "cat", a.Left)
	assert.Equal(t, "whiskers", a.Right)
}

func TestParseAssociationUnicodeArrow(t *testing.T) {
	doc := Parse("t.txt", "#ASSOCIATION fire ↔ heat\n")
	require.Len(t, doc.Blocks, 1)
	assert.True(t, doc.Blocks[0].Assoc.Bidirectional)
}

func TestParseRuleIfThen(t *testing.T) {
	doc := Parse("t.txt", "#RULE IF it rains THEN ground gets wet\n")
	require.Len(t, doc.Blocks, 1)
	r := doc.Blocks[0].Rule
	require.NotNil(t, r)
	assert.Equal(t, "it rains", r.Pattern)
	assert.Equal(t, "ground gets wet", r.Implies)
}

func TestParseQueryMergesImmediatelyFollowingExpect(t *testing.T) {
	doc := Parse("t.txt", "#QUERY what is a dog\n#EXPECT\nanimal\n")
	require.Len(t, doc.Blocks, 1, "QUERY+EXPECT collapse into a single block")
	q := doc.Blocks[0].Query
	require.NotNil(t, q)
	assert.Equal(t, "what is a dog", q.Question)
	assert.Equal(t, []string{"animal"}, q.Expects)
}

func TestParseQueryWithoutExpectStaysStandalone(t *testing.T) {
	doc := Parse("t.txt", "#QUERY what is a dog\n#FACT dog isa animal\n")
	require.Len(t, doc.Blocks, 2)
	assert.Equal(t, melvin.BlockQuery, doc.Blocks[0].Type)
	assert.Empty(t, doc.Blocks[0].Query.Expects)
	assert.Equal(t, melvin.BlockFact, doc.Blocks[1].Type)
}

func TestParseTestMergesFollowingExpect(t *testing.T) {
	doc := Parse("t.txt", "#TEST dog-is-animal\nwhat is a dog\n#EXPECT\nanimal\n")
	require.Len(t, doc.Blocks, 1)
	test := doc.Blocks[0].Test
	require.NotNil(t, test)
	assert.Equal(t, "dog-is-animal", test.Name)
	assert.Equal(t, []string{"animal"}, test.Query.Expects)
}

func TestParseWeightBlockMetadata(t *testing.T) {
	doc := Parse("t.txt", "#WEIGHT\nconfidence:0.9 source:textbook\n")
	require.Len(t, doc.Blocks, 1)
	assert.InDelta(t, 0.9, doc.Blocks[0].Meta.Confidence, 1e-9)
	assert.Equal(t, "textbook", doc.Blocks[0].Meta.Source)
}

func TestParseMalformedFactRecordsErrorAndContinues(t *testing.T) {
	doc := Parse("t.txt", "#FACT onlyonetoken\n#FACT dog isa animal\n")
	require.Len(t, doc.Errors, 1)
	require.Len(t, doc.Blocks, 1, "the malformed block is skipped, not the whole file")
	assert.Equal(t, "dog", doc.Blocks[0].Fact.Subj)
}

func TestParseUnknownTagRecordsError(t *testing.T) {
	doc := Parse("t.txt", "#BOGUS nonsense\n")
	assert.Len(t, doc.Errors, 1)
	assert.Empty(t, doc.Blocks)
}
