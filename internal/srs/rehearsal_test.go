package srs

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/thebtf/melvin/internal/graphstore"
	"github.com/thebtf/melvin/pkg/melvin"
)

func TestGenerateRehearsalDocumentRendersQueryPerItem(t *testing.T) {
	store := graphstore.New()
	dog := store.GetOrCreateNode("dog", melvin.KindConcept, 0)
	animal := store.GetOrCreateNode("animal", melvin.KindConcept, 0)
	id, err := store.UpsertEdge(dog, animal, melvin.RelIsa, 1, 0)
	require.NoError(t, err)

	doc := GenerateRehearsalDocument(store, []*melvin.SRSItem{{EdgeID: id}})

	assert.Contains(t, doc, "#QUERY")
	assert.Contains(t, doc, "dog")
	assert.Contains(t, doc, "#EXPECT")
	assert.Contains(t, doc, "animal")
}

func TestGenerateRehearsalDocumentSkipsDanglingEdgeIDs(t *testing.T) {
	store := graphstore.New()
	doc := GenerateRehearsalDocument(store, []*melvin.SRSItem{{EdgeID: 999}})
	assert.Empty(t, doc)
}
