package scheduler

import (
	"context"
	"os"

	"github.com/thebtf/melvin/internal/graphstore"
	"github.com/thebtf/melvin/internal/reasoning"
	"github.com/thebtf/melvin/internal/store"
	"github.com/thebtf/melvin/internal/teaching"
)

// TeachingFileProcessor adapts a teaching-grammar document on disk to
// internal/ingest.Watcher's FileProcessor contract: parse, ingest, then
// verify (§4.E), recording a TeachingSessionRecord to the durable store.
type TeachingFileProcessor struct {
	Store   *graphstore.Store
	Engine  *reasoning.Engine
	Durable store.Store
	NowNs   func() int64
}

// ProcessFile implements internal/ingest.FileProcessor.
func (p *TeachingFileProcessor) ProcessFile(ctx context.Context, path string) (int, int, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return 0, 0, err
	}
	nowNs := p.NowNs()

	before := struct{ nodes, edges int }{p.Store.NodeCount(), p.Store.EdgeCount()}
	doc := teaching.Parse(path, string(data))

	ingestResult := teaching.Ingest(p.Store, doc, nowNs)
	verifyResult, err := teaching.Verify(ctx, p.Engine, p.Store, doc, nowNs)
	if err != nil {
		return ingestResult.NodesAdded, ingestResult.EdgesAdded, err
	}

	summary := teaching.Summarize(path, before.nodes, p.Store.NodeCount(), before.edges, p.Store.EdgeCount(),
		len(doc.Blocks), ingestResult, verifyResult, 0)

	if p.Durable != nil {
		_ = p.Durable.SaveTeachingSession(ctx, store.TeachingSessionRecord{
			FilePath:         summary.FilePath,
			NodesBefore:      summary.NodesBefore,
			NodesAfter:       summary.NodesAfter,
			EdgesBefore:      summary.EdgesBefore,
			EdgesAfter:       summary.EdgesAfter,
			NodesAdded:       ingestResult.NodesAdded,
			EdgesAdded:       ingestResult.EdgesAdded,
			PassRate:         verifyResult.PassRate,
			RetentionScore:   summary.RetentionScore,
			GrowthEfficiency: summary.GrowthEfficiency,
			CreatedAtNs:      nowNs,
		})
	}

	return ingestResult.NodesAdded, ingestResult.EdgesAdded, nil
}
