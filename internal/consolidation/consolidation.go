// Package consolidation implements §4.E's decay, replay, and
// near-duplicate clustering passes — the maintenance half of the
// learning pipeline, run on the scheduler's consolidation cadence rather
// than every tick.
//
// This is a from-scratch Melvin-domain package: the teacher's own
// internal/consolidation (deleted; see DESIGN.md) scheduled unrelated IDE
// observation-retention jobs and shared nothing but the name.
package consolidation

import (
	"strings"

	"github.com/thebtf/melvin/internal/graphstore"
	"github.com/thebtf/melvin/pkg/melvin"
)

// Params are the genome-driven consolidation constants (§4.E).
type Params struct {
	// DecayRate (eta) shrinks an untouched edge's w_core by (1-eta) per
	// consolidation pass.
	DecayRate float64
	// TouchedWithinNs marks an edge as "touched" (exempt from decay) if
	// its LastAccessNs is within this window of the pass time.
	TouchedWithinNs int64
	// ReplaySampleSize bounds how many Thought nodes a single pass
	// replays for memory-health metrics.
	ReplaySampleSize int
}

// GenomeSource supplies the currently-active genome.
type GenomeSource interface {
	Current() *melvin.Genome
}

func defaultParams(g *melvin.Genome) Params {
	return Params{
		DecayRate:        g.Float("consolidation_decay_rate", 0.02),
		TouchedWithinNs:  int64(g.Float("consolidation_touched_window_s", 300) * 1e9),
		ReplaySampleSize: g.Int("consolidation_replay_sample", 32),
	}
}

// Engine runs consolidation passes over a graph store.
type Engine struct {
	store   *graphstore.Store
	genomes GenomeSource
}

// NewEngine constructs a consolidation engine over store.
func NewEngine(store *graphstore.Store, genomes GenomeSource) *Engine {
	return &Engine{store: store, genomes: genomes}
}

// DecayResult summarizes one decay pass.
type DecayResult struct {
	EdgesDecayed int
}

// Decay implements §4.E's "w <- w*(1-eta) for untouched edges": every
// node's outgoing edges not accessed within TouchedWithinNs of nowNs have
// their w_core shrunk by the genome's decay rate.
func (e *Engine) Decay(nowNs int64) DecayResult {
	p := defaultParams(e.genomes.Current())
	var result DecayResult

	e.store.VisitNodesOrdered(func(n *melvin.Node) bool {
		for _, a := range e.store.AdjacencyOut(n.ID) {
			edge, err := e.store.Edge(a.EdgeID)
			if err != nil {
				continue
			}
			if nowNs-edge.LastAccessNs < p.TouchedWithinNs {
				continue
			}
			e.store.ScaleCoreWeight(a.EdgeID, float32(1-p.DecayRate))
			result.EdgesDecayed++
		}
		return true
	})
	return result
}

// ReplayResult is the memory-health signal a replay pass computes (§4.E
// "replay sample of Thought nodes for memory-health metrics").
type ReplayResult struct {
	Sampled       int
	LiveFraction  float64 // fraction of sampled paths whose nodes are all still live
	AvgPathLength float64
}

// Replay samples up to ReplaySampleSize Thought nodes (taking the most
// recently accessed first) and decodes each one's encoded path, checking
// that every referenced node is still live in the store (§3.2 invariant
// 8). A path with a now-dead node indicates stale memory; the fraction of
// paths that are still fully live is the reported health signal.
func (e *Engine) Replay(nowNs int64) ReplayResult {
	p := defaultParams(e.genomes.Current())

	type candidate struct {
		node melvin.Node
	}
	var thoughts []candidate
	e.store.VisitNodesOrdered(func(n *melvin.Node) bool {
		if n.Kind == melvin.KindThought {
			thoughts = append(thoughts, candidate{node: *n})
		}
		return true
	})

	// most-recently-accessed first
	for i := 0; i < len(thoughts); i++ {
		for j := i + 1; j < len(thoughts); j++ {
			if thoughts[j].node.LastAccessedNs > thoughts[i].node.LastAccessedNs {
				thoughts[i], thoughts[j] = thoughts[j], thoughts[i]
			}
		}
	}
	if len(thoughts) > p.ReplaySampleSize {
		thoughts = thoughts[:p.ReplaySampleSize]
	}

	var live int
	var totalLen int
	for _, c := range thoughts {
		nodes, err := melvin.DecodeThoughtText(c.node.Text)
		if err != nil {
			continue
		}
		totalLen += len(nodes)
		allLive := true
		for _, id := range nodes {
			if _, err := e.store.GetNode(id); err != nil {
				allLive = false
				break
			}
		}
		if allLive {
			live++
		}
	}

	result := ReplayResult{Sampled: len(thoughts)}
	if len(thoughts) > 0 {
		result.LiveFraction = float64(live) / float64(len(thoughts))
		result.AvgPathLength = float64(totalLen) / float64(len(thoughts))
	}
	return result
}

// ClusterResult summarizes one near-duplicate clustering pass.
type ClusterResult struct {
	Merged int
}

// ClusterDuplicates finds concept nodes whose normalized text is
// identical, or one contained in the other, and merges the less-frequent
// node into the more-frequent one via graphstore.Store.MergeNodes (§4.E
// "near-duplicate node clustering ... via redirect-and-merge"). Pinned
// nodes are never merged away.
func (e *Engine) ClusterDuplicates(nowNs int64) ClusterResult {
	var nodes []melvin.Node
	e.store.VisitNodesOrdered(func(n *melvin.Node) bool {
		if n.Kind == melvin.KindConcept {
			nodes = append(nodes, *n)
		}
		return true
	})

	merged := make(map[melvin.NodeID]bool)
	var result ClusterResult

	for i := range nodes {
		a := nodes[i]
		if merged[a.ID] || a.Pinned {
			continue
		}
		for j := i + 1; j < len(nodes); j++ {
			b := nodes[j]
			if merged[b.ID] || b.Pinned {
				continue
			}
			if !textsCluster(a.Text, b.Text) {
				continue
			}
			primary, dup := a, b
			if dup.Freq > primary.Freq {
				primary, dup = dup, primary
			}
			e.store.MergeNodes(primary.ID, dup.ID, nowNs)
			merged[dup.ID] = true
			result.Merged++
		}
	}
	return result
}

// textsCluster reports whether two normalized node texts should be
// treated as near-duplicates: exact match, or one is a substring of the
// other (plain substring containment, not whole-word).
func textsCluster(a, b string) bool {
	na, nb := melvin.NormalizeText(a), melvin.NormalizeText(b)
	if na == "" || nb == "" || na == nb {
		return na == nb && na != ""
	}
	return strings.Contains(na, nb) || strings.Contains(nb, na)
}
