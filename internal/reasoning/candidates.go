package reasoning

import (
	"math"
	"sort"

	"github.com/thebtf/melvin/internal/graphstore"
	"github.com/thebtf/melvin/pkg/melvin"
)

// Candidate is a ranked start-node for beam search (§4.C.1).
type Candidate struct {
	Node  melvin.NodeID
	Score float64
}

// StartCandidates maps query tokens to node ids via the token ring and an
// exact normalized-text lookup per token (no BM25 or fuzzy scan of node
// text), ranked by TF-IDF-lite token
// rarity times node popularity (freq), capped at beamWidth (§4.C.1).
func StartCandidates(store *graphstore.Store, tok *Tokenizer, query string, beamWidth int) []Candidate {
	tokens := tok.Tokens(query)
	scores := make(map[melvin.NodeID]float64)

	for _, token := range tokens {
		rarity := 1.0 + math.Log(1+float64(tok.PieceCount(token)))

		for _, id := range store.TokenRing(token) {
			n, err := store.GetNode(id)
			if err != nil {
				continue
			}
			scores[id] += rarity * popularity(n.Freq)
		}

		if id, ok := store.LookupNode(token); ok {
			n, err := store.GetNode(id)
			if err == nil {
				scores[id] += rarity * popularity(n.Freq)
			}
		}
	}

	out := make([]Candidate, 0, len(scores))
	for id, score := range scores {
		out = append(out, Candidate{Node: id, Score: score})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Score != out[j].Score {
			return out[i].Score > out[j].Score
		}
		return out[i].Node < out[j].Node
	})
	if beamWidth > 0 && len(out) > beamWidth {
		out = out[:beamWidth]
	}
	return out
}

// popularity is a diminishing-returns function of a node's activity
// count, mirroring the log-dampened retrieval boost pattern the teacher's
// scoring calculator uses for its own popularity-like term.
func popularity(freq uint32) float64 {
	return 1 + math.Log2(float64(freq)+1)
}
