package reasoning

import (
	"context"
	"fmt"
	"math"

	"golang.org/x/sync/singleflight"

	"github.com/thebtf/melvin/internal/graphstore"
	"github.com/thebtf/melvin/internal/scoring"
	"github.com/thebtf/melvin/pkg/melvin"
)

// GenomeSource supplies the currently-active genome, read fresh on every
// call so a hot-swap from internal/evolution takes effect immediately
// (§9 "hot-swap").
type GenomeSource interface {
	Current() *melvin.Genome
}

// staticGenome is the trivial GenomeSource used when evolution is not
// wired in (e.g. tests, or a deployment running with fixed defaults).
type staticGenome struct{ g *melvin.Genome }

func (s staticGenome) Current() *melvin.Genome { return s.g }

// StaticGenome wraps a fixed genome as a GenomeSource.
func StaticGenome(g *melvin.Genome) GenomeSource { return staticGenome{g} }

// Engine is Melvin's reasoning engine (§4.C): it ties the graph store,
// the scoring kernel, tokenization, and the emission gate together
// behind a single coalesced entry point.
//
// Grounded on the teacher's internal/search/manager.Manager: a
// singleflight.Group coalescing identical concurrent requests, generalized
// here from a document-search cache to a graph beam search with no result
// cache (the live graph mutates too often between ticks for a TTL cache
// to be correct — see DESIGN.md).
type Engine struct {
	store   *graphstore.Store
	genomes GenomeSource
	tok     *Tokenizer
	gate    *EmissionGate

	sf singleflight.Group
}

// NewEngine constructs a reasoning engine over store, reading genome
// coefficients from genomes.
func NewEngine(store *graphstore.Store, genomes GenomeSource) (*Engine, error) {
	tok, err := NewTokenizer()
	if err != nil {
		return nil, err
	}
	return &Engine{
		store:   store,
		genomes: genomes,
		tok:     tok,
		gate:    NewEmissionGate(genomes.Current()),
	}, nil
}

// AskParams is the public entry point's request shape.
type AskParams struct {
	Query         string
	Intent        melvin.Intent
	BeamWidth     int
	MaxHops       int
	MinEdgeWeight float64
	NowNs         int64
	SimToRecent   float64 // similarity of the best path to recently-emitted paths (§4.B confidence term)
}

// Ask runs a beam search for query and applies the emission gate,
// returning the decided OutputIntent. Identical concurrent queries
// (same query + intent) are coalesced via singleflight (§4.C additions).
func (e *Engine) Ask(ctx context.Context, p AskParams) (melvin.OutputIntent, error) {
	key := fmt.Sprintf("%s\x00%d", p.Query, p.Intent)
	v, err, _ := e.sf.Do(key, func() (any, error) {
		return e.ask(ctx, p)
	})
	if err != nil {
		return melvin.OutputIntent{}, err
	}
	return v.(melvin.OutputIntent), nil
}

func (e *Engine) ask(ctx context.Context, p AskParams) (melvin.OutputIntent, error) {
	genome := e.genomes.Current()
	e.gate.SetGenome(genome)
	calc := scoring.NewCalculator(genome)

	paths, err := BeamSearch(ctx, e.store, calc, e.tok, BeamParams{
		Query: p.Query, BeamWidth: p.BeamWidth, MaxHops: p.MaxHops,
		MinEdgeWeight: p.MinEdgeWeight, NowNs: p.NowNs,
	})
	if err != nil {
		return melvin.OutputIntent{}, err
	}
	if len(paths) == 0 {
		return melvin.OutputIntent{Mode: melvin.GateListen, Intent: p.Intent}, nil
	}
	// The beam keeps its bare start nodes; prefer the best path that
	// actually traversed an edge so the answer is not the query word itself.
	best := paths[0]
	for _, p := range paths {
		if p.Len() > 0 {
			best = p
			break
		}
	}

	maxContradiction := 0.0
	for _, h := range best.Hops {
		edge, err := e.store.Edge(h.EdgeID)
		if err != nil {
			continue
		}
		if float64(edge.Contradiction) > maxContradiction {
			maxContradiction = float64(edge.Contradiction)
		}
	}

	pc := calc.PathScore(scoring.PathInputs{EdgeScores: edgeScoresOf(best), MinJaccard: 1})
	conf := calc.Confidence(scoring.ConfidenceInputs{
		MeanLogEdge: pc.MeanLogEdge, PathLen: best.Len(),
		SimToRecent: p.SimToRecent, MaxContradiction: maxContradiction,
	})
	best.Confidence = conf
	best.Score = pc.PathScore

	entropy, top2Margin := beamEntropyAndMargin(paths)
	best.Top2Margin = top2Margin

	decision := e.gate.Decide(GateInputs{
		Confidence: conf, Entropy: entropy, Top2Margin: top2Margin,
		SPath: pc.MeanLogEdge, MaxContradiction: maxContradiction, Intent: p.Intent,
	})

	out := melvin.OutputIntent{
		Mode: decision, Path: best, Confidence: conf, Intent: p.Intent,
		Degraded: best.PartialDeadlineHit, Entropy: entropy,
	}
	if terminal, ok := best.Terminal(); ok {
		if n, err := e.store.GetNode(terminal); err == nil {
			out.Text = n.Text
		}
	}
	return out, nil
}

// beamEntropyAndMargin computes the Shannon entropy of the normalized
// beam-score distribution and the top-2 score margin, both read by the
// emission gate's "certain" predicate (§4.C).
func beamEntropyAndMargin(paths []*melvin.Path) (entropy, top2Margin float64) {
	if len(paths) == 0 {
		return 0, 0
	}
	sum := 0.0
	for _, p := range paths {
		sum += p.Score
	}
	if sum <= 0 {
		return 0, 0
	}
	for _, p := range paths {
		prob := p.Score / sum
		if prob > 0 {
			entropy -= prob * log2(prob)
		}
	}
	if len(paths) == 1 {
		return entropy, paths[0].Score / sum
	}
	top2Margin = (paths[0].Score - paths[1].Score) / sum
	return entropy, top2Margin
}

func log2(x float64) float64 {
	return math.Log2(x)
}
