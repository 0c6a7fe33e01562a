package reasoning

import (
	"context"
	"sort"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/thebtf/melvin/internal/graphstore"
	"github.com/thebtf/melvin/internal/scoring"
	"github.com/thebtf/melvin/pkg/melvin"
)

// BeamParams configures a beam search run (§4.C).
type BeamParams struct {
	Query         string
	BeamWidth     int
	MaxHops       int
	MinEdgeWeight float64
	NowNs         int64
	// Workers bounds the fork-join pool expanding beam entries in
	// parallel (§5); defaults to 4 when <= 0.
	Workers int
}

func (p BeamParams) workers() int {
	if p.Workers > 0 {
		return p.Workers
	}
	return 4
}

// candidatePath is a beam entry paired with the node-set used for the
// diversity penalty.
type candidatePath struct {
	path    *melvin.Path
	nodeSet map[melvin.NodeID]struct{}
}

// BeamSearch implements §4.C's beam search over store, scoring every
// extension with calc and keeping the top BeamWidth paths at each hop.
// Expansion of the current beam's entries is a data-parallel fork-join
// fold (§5): each beam entry is expanded by a worker in a fixed-size
// pool, and results are merged under a mutex-guarded accumulator before
// the per-hop top-K cut.
func BeamSearch(ctx context.Context, store *graphstore.Store, calc *scoring.Calculator, tok *Tokenizer, params BeamParams) ([]*melvin.Path, error) {
	beamWidth := params.BeamWidth
	if beamWidth <= 0 {
		beamWidth = 8
	}
	maxHops := params.MaxHops
	if maxHops <= 0 {
		maxHops = 4
	}

	starts := StartCandidates(store, tok, params.Query, beamWidth)
	if len(starts) == 0 {
		return nil, nil
	}

	beam := make([]candidatePath, 0, len(starts))
	for _, c := range starts {
		beam = append(beam, candidatePath{
			path: &melvin.Path{
				Nodes: []melvin.NodeID{c.Node},
				Score: 1,
			},
			nodeSet: map[melvin.NodeID]struct{}{c.Node: {}},
		})
	}

	final := append([]candidatePath(nil), beam...)

	for hop := 0; hop < maxHops && len(beam) > 0; hop++ {
		select {
		case <-ctx.Done():
			return terminalPaths(markPartial(beam)), nil
		default:
		}

		extended, err := expandBeamParallel(ctx, store, calc, beam, params, hop == 0)
		if err != nil {
			return nil, err
		}
		if len(extended) == 0 {
			break
		}

		sort.Slice(extended, func(i, j int) bool {
			return lessCandidatePath(extended[i], extended[j])
		})
		if len(extended) > beamWidth {
			extended = extended[:beamWidth]
		}
		beam = extended
		final = append(final, beam...)
	}

	sort.Slice(final, func(i, j int) bool {
		return lessCandidatePath(final[i], final[j])
	})
	if len(final) > beamWidth {
		final = final[:beamWidth]
	}
	return terminalPaths(final), nil
}

// lessCandidatePath orders by descending score, then shorter length, then
// younger (larger) last-access ns on the terminal hop — the tie-break
// §4.C step 3b specifies.
func lessCandidatePath(a, b candidatePath) bool {
	if a.path.Score != b.path.Score {
		return a.path.Score > b.path.Score
	}
	if la, lb := a.path.Len(), b.path.Len(); la != lb {
		return la < lb
	}
	return lastHopAccess(a.path) > lastHopAccess(b.path)
}

func lastHopAccess(p *melvin.Path) int64 {
	if len(p.Hops) == 0 {
		return 0
	}
	return p.Hops[len(p.Hops)-1].LastAccessNs
}

// expandBeamParallel expands every beam entry along its live out-edges in
// a fixed-size worker pool (§5 fork-join), scoring each extension and
// dropping cycles. firstHop marks the first hop, where a beam entry
// is a bare single-node path with no edges yet to re-score.
func expandBeamParallel(ctx context.Context, store *graphstore.Store, calc *scoring.Calculator, beam []candidatePath, params BeamParams, firstHop bool) ([]candidatePath, error) {
	var mu sync.Mutex
	var out []candidatePath

	g, gctx := errgroup.WithContext(ctx)
	sem := make(chan struct{}, params.workers())

	for _, entry := range beam {
		entry := entry
		sem <- struct{}{}
		g.Go(func() error {
			defer func() { <-sem }()
			select {
			case <-gctx.Done():
				return nil
			default:
			}

			terminal, ok := entry.path.Terminal()
			if !ok {
				return nil
			}
			local := expandOne(store, calc, entry, terminal, params, firstHop)

			mu.Lock()
			out = append(out, local...)
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, melvin.Wrap("reasoning.BeamSearch", melvin.KindTimeout, err)
	}
	return out, nil
}

func expandOne(store *graphstore.Store, calc *scoring.Calculator, entry candidatePath, terminal melvin.NodeID, params BeamParams, firstHop bool) []candidatePath {
	adj := store.AdjacencyOut(terminal)
	out := make([]candidatePath, 0, len(adj))

	for _, a := range adj {
		if _, visited := entry.nodeSet[a.Dst]; visited {
			continue // no repeated nodes (§4.C step 3c)
		}
		edge, err := store.Edge(a.EdgeID)
		if err != nil {
			continue
		}

		ec := calc.EdgeScore(scoring.EdgeInputs{
			WCore: float64(edge.WCore), WCtx: float64(edge.WCtx),
			Count: edge.Count, Rel: edge.Rel,
			LastAccessNs: edge.LastAccessNs, NowNs: params.NowNs,
			DegSrc: store.Degree(edge.Src), DegDst: store.Degree(edge.Dst),
			Contradiction: float64(edge.Contradiction),
		})
		wMix := ec.WMix
		if wMix < params.MinEdgeWeight {
			continue
		}

		newPath := extendPath(entry.path, a, edge, ec.EdgeScore)
		newSet := make(map[melvin.NodeID]struct{}, len(entry.nodeSet)+1)
		for k := range entry.nodeSet {
			newSet[k] = struct{}{}
		}
		newSet[a.Dst] = struct{}{}

		pc := calc.PathScore(scoring.PathInputs{
			EdgeScores: edgeScoresOf(newPath),
			MinJaccard: 1, // single-query beam search has no prior-kept-beam comparison yet
		})
		newPath.Score = pc.PathScore

		out = append(out, candidatePath{path: newPath, nodeSet: newSet})
	}
	return out
}

func extendPath(p *melvin.Path, a graphstore.AdjEntry, edge melvin.Edge, edgeScore float64) *melvin.Path {
	nodes := append(append([]melvin.NodeID(nil), p.Nodes...), a.Dst)
	hops := append(append([]melvin.Hop(nil), p.Hops...), melvin.Hop{
		EdgeID: a.EdgeID, From: edge.Src, To: edge.Dst, Rel: a.Rel, Score: edgeScore,
		LastAccessNs: edge.LastAccessNs,
	})
	return &melvin.Path{Nodes: nodes, Hops: hops}
}

func edgeScoresOf(p *melvin.Path) []float64 {
	out := make([]float64, len(p.Hops))
	for i, h := range p.Hops {
		out[i] = h.Score
	}
	return out
}

func markPartial(beam []candidatePath) []candidatePath {
	for _, b := range beam {
		b.path.PartialDeadlineHit = true
	}
	return beam
}

func terminalPaths(cps []candidatePath) []*melvin.Path {
	out := make([]*melvin.Path, len(cps))
	for i, c := range cps {
		out[i] = c.path
	}
	return out
}
