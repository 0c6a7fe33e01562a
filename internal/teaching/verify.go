package teaching

import (
	"context"
	"strings"

	"github.com/agnivade/levenshtein"

	"github.com/thebtf/melvin/internal/graphstore"
	"github.com/thebtf/melvin/internal/reasoning"
	"github.com/thebtf/melvin/pkg/melvin"
)

// similarityThreshold is §4.E's fuzzy-match acceptance bound.
const similarityThreshold = 0.85

// minimalBeamWidth is the beam width verification runs at (§4.E "run §4.C
// at minimal beam per Query+Expect pair"): just wide enough to break ties
// without paying for the full configured beam.
const minimalBeamWidth = 2

// ProbeResult is one Query+Expect pair's verification outcome.
type ProbeResult struct {
	Question string
	Got      string
	Expected []string
	Passed   bool
}

// VerifyResult aggregates every QUERY/TEST probe in a document.
type VerifyResult struct {
	Probes  []ProbeResult
	PassRate float64
}

// Verify runs every QUERY (merged with its EXPECT) and TEST block in doc
// through engine at minimal beam width, fuzzy-matching the emitted answer
// against each expected string (§4.E, §8 "SRS cycle"/"learn one fact"
// scenarios rely on this to confirm teaching took effect).
func Verify(ctx context.Context, engine *reasoning.Engine, store *graphstore.Store, doc *melvin.Document, nowNs int64) (VerifyResult, error) {
	var result VerifyResult

	probe := func(question string, expects []string) error {
		intent, err := engine.Ask(ctx, reasoning.AskParams{
			Query:     question,
			Intent:    melvin.IntentFactoid,
			BeamWidth: minimalBeamWidth,
			MaxHops:   4,
			NowNs:     nowNs,
		})
		if err != nil {
			return err
		}
		passed := len(expects) == 0
		for _, want := range expects {
			if fuzzyMatch(intent.Text, want) {
				passed = true
				break
			}
		}
		result.Probes = append(result.Probes, ProbeResult{
			Question: question,
			Got:      intent.Text,
			Expected: expects,
			Passed:   passed,
		})
		return nil
	}

	for _, blk := range doc.Blocks {
		switch blk.Type {
		case melvin.BlockQuery:
			if err := probe(blk.Query.Question, blk.Query.Expects); err != nil {
				return result, err
			}
		case melvin.BlockTest:
			if err := probe(blk.Test.Query.Question, blk.Test.Query.Expects); err != nil {
				return result, err
			}
		}
	}

	if len(result.Probes) == 0 {
		result.PassRate = 1
		return result, nil
	}
	passed := 0
	for _, p := range result.Probes {
		if p.Passed {
			passed++
		}
	}
	result.PassRate = float64(passed) / float64(len(result.Probes))
	return result, nil
}

// fuzzyMatch reports whether got satisfies want per §4.E: substring
// inclusion (either direction) or normalized Levenshtein similarity at or
// above similarityThreshold.
func fuzzyMatch(got, want string) bool {
	got = melvin.NormalizeText(got)
	want = melvin.NormalizeText(want)
	if got == "" || want == "" {
		return false
	}
	if strings.Contains(got, want) || strings.Contains(want, got) {
		return true
	}
	return normalizedSimilarity(got, want) >= similarityThreshold
}

// normalizedSimilarity converts a Levenshtein edit distance into a
// [0,1] similarity score: 1 - dist/max(len(a),len(b)).
func normalizedSimilarity(a, b string) float64 {
	maxLen := len(a)
	if len(b) > maxLen {
		maxLen = len(b)
	}
	if maxLen == 0 {
		return 1
	}
	dist := levenshtein.ComputeDistance(a, b)
	return 1 - float64(dist)/float64(maxLen)
}
