package teaching

import (
	"strconv"
	"strings"

	"github.com/thebtf/melvin/pkg/melvin"
)

// bodyText joins a raw block's header argument and body lines into a
// single whitespace-normalized string.
func bodyText(rb rawBlock) string {
	parts := make([]string, 0, len(rb.lines)+1)
	if rb.arg != "" {
		parts = append(parts, rb.arg)
	}
	parts = append(parts, rb.lines...)
	return strings.TrimSpace(strings.Join(parts, " "))
}

func parseFloat(s string) (float64, error) {
	return strconv.ParseFloat(strings.TrimSpace(s), 64)
}

// bidiMarkers are the tokens §6.2 recognizes for a bidirectional
// association.
var bidiMarkers = []string{"<->", "↔"}

func interpretFact(rb rawBlock, raw string) (melvin.Block, error) {
	text := bodyText(rb)
	toks := strings.Fields(text)
	if len(toks) < 3 {
		return melvin.Block{}, melvin.ParseErrorAt("teaching.Parse", rb.startLn, "FACT requires subject, relation, and object")
	}
	return melvin.Block{
		Type: melvin.BlockFact,
		Raw:  raw,
		Fact: &melvin.Fact{
			Subj: toks[0],
			Rel:  toks[1],
			Obj:  strings.Join(toks[2:], " "),
		},
	}, nil
}

func interpretAssociation(rb rawBlock, raw string) (melvin.Block, error) {
	text := bodyText(rb)

	for _, marker := range bidiMarkers {
		if idx := strings.Index(text, marker); idx >= 0 {
			left := strings.TrimSpace(text[:idx])
			right := strings.TrimSpace(text[idx+len(marker):])
			if left == "" || right == "" {
				return melvin.Block{}, melvin.ParseErrorAt("teaching.Parse", rb.startLn, "ASSOCIATION bidirectional marker needs both sides")
			}
			return melvin.Block{
				Type: melvin.BlockAssociation,
				Raw:  raw,
				Assoc: &melvin.Association{
					Left:          left,
					Rel:           "assoc",
					Right:         right,
					Bidirectional: true,
				},
			}, nil
		}
	}

	toks := strings.Fields(text)
	if len(toks) < 3 {
		return melvin.Block{}, melvin.ParseErrorAt("teaching.Parse", rb.startLn, "ASSOCIATION requires left, relation, and right (or a <-> marker)")
	}
	return melvin.Block{
		Type: melvin.BlockAssociation,
		Raw:  raw,
		Assoc: &melvin.Association{
			Left:  toks[0],
			Rel:   toks[1],
			Right: strings.Join(toks[2:], " "),
		},
	}, nil
}

func interpretRule(rb rawBlock, raw string) (melvin.Block, error) {
	text := bodyText(rb)
	upper := strings.ToUpper(text)
	ifIdx := strings.Index(upper, "IF ")
	thenIdx := strings.Index(upper, " THEN ")
	if ifIdx < 0 || thenIdx < 0 || thenIdx < ifIdx {
		return melvin.Block{}, melvin.ParseErrorAt("teaching.Parse", rb.startLn, "RULE requires \"IF <pattern> THEN <consequent>\"")
	}
	pattern := strings.TrimSpace(text[ifIdx+len("IF ") : thenIdx])
	implies := strings.TrimSpace(text[thenIdx+len(" THEN "):])
	if pattern == "" || implies == "" {
		return melvin.Block{}, melvin.ParseErrorAt("teaching.Parse", rb.startLn, "RULE pattern and consequent must be non-empty")
	}
	return melvin.Block{
		Type: melvin.BlockRule,
		Raw:  raw,
		Rule: &melvin.Rule{Pattern: pattern, Implies: implies},
	}, nil
}

func interpretQuery(rb rawBlock, raw string) (melvin.Block, error) {
	text := bodyText(rb)
	if text == "" {
		return melvin.Block{}, melvin.ParseErrorAt("teaching.Parse", rb.startLn, "QUERY requires a question")
	}
	return melvin.Block{
		Type:  melvin.BlockQuery,
		Raw:   raw,
		Query: &melvin.Query{Question: text},
	}, nil
}

func interpretTest(rb rawBlock, raw string) (melvin.Block, error) {
	name := strings.TrimSpace(rb.arg)
	if name == "" {
		return melvin.Block{}, melvin.ParseErrorAt("teaching.Parse", rb.startLn, "TEST requires a name")
	}
	question := strings.Join(rb.lines, " ")
	return melvin.Block{
		Type: melvin.BlockTest,
		Raw:  raw,
		Test: &melvin.Test{Name: name, Query: melvin.Query{Question: question}},
	}, nil
}
