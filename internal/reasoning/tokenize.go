// Package reasoning implements Melvin's beam-search reasoning engine
// (§4.C): tokenized candidate selection, beam and bidirectional search,
// and the hysteresis-gated Emit/Ask/Listen decision.
//
// Grounded on the teacher's internal/search/manager.go: a Manager holding
// a singleflight.Group to coalesce identical concurrent queries and a
// results cache, generalized here from a SQLite/vector document search to
// a graph beam search, keeping the same coalescing idiom (§4.C additions,
// "repeated identical queries ... coalesced with singleflight").
package reasoning

import (
	"strings"

	"github.com/tiktoken-go/tokenizer"

	"github.com/thebtf/melvin/pkg/melvin"
)

// Tokenizer wraps the cl100k codec whose piece counts feed the rarity
// weight of candidate selection (§4.C.1), matching how the teacher's reranking/search stack tokenizes
// text for scoring rather than hand-rolling a splitter.
type Tokenizer struct {
	codec tokenizer.Codec
}

// NewTokenizer constructs the cl100k tokenizer. Construction only fails
// if the embedded BPE ranks can't be loaded, which indicates a broken
// build rather than a runtime condition to recover from.
func NewTokenizer() (*Tokenizer, error) {
	codec, err := tokenizer.Get(tokenizer.Cl100kBase)
	if err != nil {
		return nil, melvin.Wrap("reasoning.NewTokenizer", melvin.KindInvalidInput, err)
	}
	return &Tokenizer{codec: codec}, nil
}

// Tokens splits a query into normalized word tokens for candidate
// lookup. tiktoken's BPE pieces are sub-word and not directly useful as
// graph-store lookup keys (node text is whole normalized words/phrases),
// so Tokens does not use cl100k at all: it splits on whitespace and
// normalizes. PieceCount alone uses cl100k, for the TF-IDF-lite rarity
// weight in StartCandidates.
func (t *Tokenizer) Tokens(query string) []string {
	words := strings.Fields(query)

	out := make([]string, 0, len(words))
	seen := make(map[string]struct{}, len(words))
	for _, w := range words {
		norm := melvin.NormalizeText(w)
		if norm == "" {
			continue
		}
		if _, ok := seen[norm]; ok {
			continue
		}
		seen[norm] = struct{}{}
		out = append(out, norm)
	}
	return out
}

// PieceCount returns the cl100k BPE token count of s, used as the rarity
// signal in the TF-IDF-lite candidate ranking of §4.C.1 — a longer BPE
// encoding for the same word count indicates rarer sub-word pieces.
func (t *Tokenizer) PieceCount(s string) int {
	ids, _, err := t.codec.Encode(s)
	if err != nil {
		return len(strings.Fields(s))
	}
	return len(ids)
}
