package teaching

import (
	"github.com/thebtf/melvin/internal/graphstore"
	"github.com/thebtf/melvin/pkg/melvin"
)

// IngestResult summarizes one document's ingestion (§6.5's HTTP response
// shape reuses these counts directly).
type IngestResult struct {
	NodesAdded int
	EdgesAdded int
}

// defaultFactWeight is the core weight an ingested Fact/Association starts
// at absent an explicit WEIGHT confidence override.
const defaultFactWeight = 1.0

// Ingest commits a parsed document's Fact, Association, and Rule blocks
// into store (§4.E "ingestion: each Fact/Association becomes an
// upsert_edge call"). Query/Expect/Test blocks are not ingested here; see
// Verify. A confidence override from a WEIGHT block applies only to the
// block immediately after it, and only a Fact or Association uses it; a
// Rule always uses defaultFactWeight.
func Ingest(store *graphstore.Store, doc *melvin.Document, nowNs int64) IngestResult {
	before := struct{ nodes, edges int }{store.NodeCount(), store.EdgeCount()}

	var pendingWeight *melvin.BlockMeta
	for _, blk := range doc.Blocks {
		switch blk.Type {
		case melvin.BlockWeight:
			meta := blk.Meta
			pendingWeight = &meta
			continue
		case melvin.BlockFact:
			weight := factWeight(pendingWeight)
			ingestFact(store, blk.Fact, weight, nowNs)
		case melvin.BlockAssociation:
			weight := factWeight(pendingWeight)
			ingestAssociation(store, blk.Assoc, weight, nowNs)
		case melvin.BlockRule:
			ingestRule(store, blk.Rule, nowNs)
		}
		pendingWeight = nil
	}

	return IngestResult{
		NodesAdded: store.NodeCount() - before.nodes,
		EdgesAdded: store.EdgeCount() - before.edges,
	}
}

func factWeight(meta *melvin.BlockMeta) float32 {
	if meta == nil || meta.Confidence <= 0 {
		return defaultFactWeight
	}
	return float32(meta.Confidence)
}

func ingestFact(store *graphstore.Store, f *melvin.Fact, weight float32, nowNs int64) {
	subj := store.GetOrCreateNode(f.Subj, melvin.KindConcept, nowNs)
	obj := store.GetOrCreateNode(f.Obj, melvin.KindConcept, nowNs)
	rel := melvin.ParseRelType(f.Rel)
	_, _ = store.UpsertEdge(subj, obj, rel, weight, nowNs)
}

func ingestAssociation(store *graphstore.Store, a *melvin.Association, weight float32, nowNs int64) {
	left := store.GetOrCreateNode(a.Left, melvin.KindConcept, nowNs)
	right := store.GetOrCreateNode(a.Right, melvin.KindConcept, nowNs)
	rel := melvin.ParseRelType(a.Rel)
	_, _ = store.UpsertEdge(left, right, rel, weight, nowNs)
	if a.Bidirectional {
		_, _ = store.UpsertEdge(right, left, rel, weight, nowNs)
	}
}

// ingestRule stores a RULE block as a RelLeap edge from its pattern to its
// consequent: §4.B's leap-relation prior is exactly the "implies/suggests"
// prior a taught rule should carry.
func ingestRule(store *graphstore.Store, r *melvin.Rule, nowNs int64) {
	pattern := store.GetOrCreateNode(r.Pattern, melvin.KindConcept, nowNs)
	implies := store.GetOrCreateNode(r.Implies, melvin.KindConcept, nowNs)
	_, _ = store.UpsertEdge(pattern, implies, melvin.RelLeap, defaultFactWeight, nowNs)
}
