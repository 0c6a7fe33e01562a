package ingest

import (
	"context"

	"github.com/thebtf/melvin/internal/graphstore"
	"github.com/thebtf/melvin/pkg/melvin"
)

// GraphIngester adapts a graphstore.Store directly to BatchIngester,
// reusing the same upsert_edge idiom internal/teaching.Ingest uses for
// taught Facts (§4.E), for the structurally-already-parsed §6.5 entry
// point.
type GraphIngester struct {
	Store *graphstore.Store
	NowNs func() int64
}

// defaultBatchWeight is the core weight a batch fact starts at absent an
// explicit confidence.
const defaultBatchWeight = 1.0

func (g GraphIngester) IngestFacts(_ context.Context, facts []BatchFact) (int, int, error) {
	beforeNodes, beforeEdges := g.Store.NodeCount(), g.Store.EdgeCount()
	now := g.NowNs()

	for _, f := range facts {
		weight := float32(defaultBatchWeight)
		if f.Confidence > 0 {
			weight = float32(f.Confidence)
		}
		subj := g.Store.GetOrCreateNode(f.Subject, melvin.KindConcept, now)
		obj := g.Store.GetOrCreateNode(f.Object, melvin.KindConcept, now)
		rel := melvin.ParseRelType(f.Predicate)
		if _, err := g.Store.UpsertEdge(subj, obj, rel, weight, now); err != nil {
			return g.Store.NodeCount() - beforeNodes, g.Store.EdgeCount() - beforeEdges, err
		}
	}

	return g.Store.NodeCount() - beforeNodes, g.Store.EdgeCount() - beforeEdges, nil
}
