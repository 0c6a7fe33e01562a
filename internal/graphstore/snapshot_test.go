package graphstore

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/thebtf/melvin/pkg/melvin"
)

// P4: a snapshot/load round trip reproduces the same live graph.
func TestSnapshotLoadRoundTrip(t *testing.T) {
	s := New()
	cat := s.GetOrCreateNode("cat", melvin.KindConcept, 10)
	mammal := s.GetOrCreateNode("mammal", melvin.KindConcept, 20)
	s.nodes[cat].Embedding = []float32{0.1, -0.2, 0.3}

	_, err := s.UpsertEdge(cat, mammal, melvin.RelIsa, 0.6, 30)
	require.NoError(t, err)
	_, err = s.UpsertEdge(cat, mammal, melvin.RelAssoc, 0.2, 40)
	require.NoError(t, err)

	thoughtText := melvin.EncodeThoughtText([]melvin.NodeID{cat, mammal})
	s.GetOrCreateNode(thoughtText, melvin.KindThought, 50)

	var buf bytes.Buffer
	require.NoError(t, s.Snapshot(&buf))

	loaded, err := Load(bytes.NewReader(buf.Bytes()))
	require.NoError(t, err)

	assert.Equal(t, s.NodeCount(), loaded.NodeCount())
	assert.Equal(t, s.EdgeCount(), loaded.EdgeCount())

	gotCat, err := loaded.GetNode(cat)
	require.NoError(t, err)
	assert.Equal(t, "cat", gotCat.Text)
	assert.Equal(t, []float32{0.1, -0.2, 0.3}, gotCat.Embedding)

	e, ok := loaded.EdgeByKey(cat, mammal, melvin.RelIsa)
	require.True(t, ok)
	orig, _ := s.EdgeByKey(cat, mammal, melvin.RelIsa)
	assert.InDelta(t, orig.WCore, e.WCore, 1e-6)
	assert.InDelta(t, orig.WCtx, e.WCtx, 1e-6)
	assert.Equal(t, orig.Count, e.Count)

	thoughtID, ok := loaded.byText[thoughtText]
	require.True(t, ok)
	gotThought, err := loaded.GetNode(thoughtID)
	require.NoError(t, err)
	assert.Equal(t, melvin.KindThought, gotThought.Kind)
	path, err := melvin.DecodeThoughtText(gotThought.Text)
	require.NoError(t, err)
	assert.Equal(t, []melvin.NodeID{cat, mammal}, path)
}

// A snapshot whose CRC trailer is corrupted is rejected by Load.
func TestSnapshotRejectsCorruptedTrailer(t *testing.T) {
	s := New()
	a := s.GetOrCreateNode("a", melvin.KindConcept, 0)
	_ = a

	var buf bytes.Buffer
	require.NoError(t, s.Snapshot(&buf))
	corrupted := buf.Bytes()
	corrupted[len(corrupted)-1] ^= 0xFF

	_, err := Load(bytes.NewReader(corrupted))
	require.Error(t, err)
	assert.True(t, melvin.IsKind(err, melvin.KindSnapshotCorrupt))
}

func TestLoadRejectsTruncatedRecord(t *testing.T) {
	s := New()
	s.GetOrCreateNode("a", melvin.KindConcept, 0)

	var buf bytes.Buffer
	require.NoError(t, s.Snapshot(&buf))
	truncated := buf.Bytes()[:len(buf.Bytes())-6]

	_, err := Load(bytes.NewReader(truncated))
	require.Error(t, err)
	assert.True(t, melvin.IsKind(err, melvin.KindSnapshotCorrupt))
}
