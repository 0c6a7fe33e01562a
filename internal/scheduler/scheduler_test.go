package scheduler

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/thebtf/melvin/internal/emergent"
	"github.com/thebtf/melvin/internal/evolution"
	"github.com/thebtf/melvin/internal/graphstore"
	"github.com/thebtf/melvin/internal/reasoning"
	"github.com/thebtf/melvin/internal/srs"
	"github.com/thebtf/melvin/pkg/melvin"
)

func newTestScheduler(t *testing.T, cfg Config) (*Scheduler, *graphstore.Store) {
	t.Helper()
	genome := &melvin.Genome{Params: map[string]*melvin.Param{}}
	genomes := evolution.NewGenomeSource(genome)

	graph := graphstore.New()
	reasoner, err := reasoning.NewEngine(graph, genomes)
	require.NoError(t, err)
	em := emergent.NewEngine(graph, genomes)

	return New(cfg, graph, reasoner, em, genomes), graph
}

func TestRunTickWithNoOptionalComponentsSucceeds(t *testing.T) {
	s, _ := newTestScheduler(t, Config{PollSeconds: 1})

	result, err := s.RunTick(context.Background(), 1_000_000_000)

	require.NoError(t, err)
	assert.Equal(t, uint64(1), result.Tick)
	assert.False(t, result.Answered)
}

func TestEnqueueAndRunTickAnswersQueuedQuery(t *testing.T) {
	s, graph := newTestScheduler(t, Config{PollSeconds: 1, BeamWidth: 4, MaxHops: 4})

	dog := graph.GetOrCreateNode("dog", melvin.KindConcept, 1)
	animal := graph.GetOrCreateNode("animal", melvin.KindConcept, 1)
	_, err := graph.UpsertEdge(dog, animal, melvin.RelIsa, 1.0, 1)
	require.NoError(t, err)

	ctx := context.Background()
	require.NoError(t, s.Enqueue(ctx, "dog", melvin.IntentFactoid, 1))

	result, err := s.RunTick(ctx, 2_000_000_000)

	require.NoError(t, err)
	assert.True(t, result.Answered)
}

func TestSnapshotCadenceRespectsInterval(t *testing.T) {
	dir := t.TempDir()
	s, _ := newTestScheduler(t, Config{PollSeconds: 1, SnapshotEverySeconds: 10, SnapshotPath: filepath.Join(dir, "snap.bin")})
	ctx := context.Background()

	first, err := s.RunTick(ctx, 0)
	require.NoError(t, err)
	assert.True(t, first.Snapshotted)

	second, err := s.RunTick(ctx, 5_000_000_000)
	require.NoError(t, err)
	assert.False(t, second.Snapshotted)

	third, err := s.RunTick(ctx, 15_000_000_000)
	require.NoError(t, err)
	assert.True(t, third.Snapshotted)
}

func TestShouldRunGatesByIntervalAndDisablesOnZero(t *testing.T) {
	s, _ := newTestScheduler(t, Config{})
	var last int64

	assert.False(t, s.shouldRun(&last, 1000, 0))

	assert.True(t, s.shouldRun(&last, 1_000_000_000, 10))
	assert.False(t, s.shouldRun(&last, 5_000_000_000, 10))
	assert.True(t, s.shouldRun(&last, 12_000_000_000, 10))
}

func TestGradeReviewCreatesAndUpdatesSRSItem(t *testing.T) {
	genome := &melvin.Genome{Params: map[string]*melvin.Param{}}
	genomes := evolution.NewGenomeSource(genome)
	s, _ := newTestScheduler(t, Config{})
	s.Grader = srs.NewGrader(genomes)

	item, err := s.GradeReview(context.Background(), melvin.EdgeID(42), melvin.GradeGood, 1_000_000_000)

	require.NoError(t, err)
	assert.Equal(t, melvin.EdgeID(42), item.EdgeID)
	assert.Equal(t, uint32(1), item.TotalReviews)
}
