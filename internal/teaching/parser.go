// Package teaching parses, ingests, and verifies teaching documents (§4.E,
// §6.2): the line-oriented `#FACT`/`#ASSOCIATION`/`#RULE`/`#QUERY`/`#TEST`
// grammar that feeds facts and verification probes into the graph store.
//
// Grounded on the teacher's internal/worker/sdk block-extraction parser
// (regex-delimited blocks, field extraction, warnings logged rather than
// aborting on a malformed block), generalized here from XML tags to the
// line-oriented `#TAG` grammar spec.md defines.
package teaching

import (
	"bufio"
	"strings"

	"github.com/thebtf/melvin/pkg/melvin"
)

// tag is one recognized block keyword.
type tag string

const (
	tagFact        tag = "FACT"
	tagAssociation tag = "ASSOCIATION"
	tagAssoc       tag = "ASSOC"
	tagRule        tag = "RULE"
	tagQuery       tag = "QUERY"
	tagQ           tag = "Q"
	tagExpect      tag = "EXPECT"
	tagTest        tag = "TEST"
	tagExplain     tag = "EXPLAIN"
	tagSource      tag = "SOURCE"
	tagWeight      tag = "WEIGHT"
)

func normalizeTag(t string) tag {
	switch tag(strings.ToUpper(t)) {
	case tagAssoc:
		return tagAssociation
	case tagQ:
		return tagQuery
	default:
		return tag(strings.ToUpper(t))
	}
}

// rawBlock is one `#TAG ...` header plus the non-tag lines that follow it,
// before any semantic interpretation.
type rawBlock struct {
	tag      tag
	arg      string // text after the tag on the header line (TEST's name, etc.)
	lines    []string
	startLn  int
}

// Parse lexes a teaching document's text into a *melvin.Document. Parse
// errors and warnings are collected on the document rather than aborting:
// a malformed block is skipped (with an error appended) and parsing
// continues with the next `#TAG` line, so one bad block in a large
// teaching file does not discard the rest.
func Parse(filePath, text string) *melvin.Document {
	doc := &melvin.Document{FilePath: filePath}

	raws := lexBlocks(text)
	blocks := make([]melvin.Block, 0, len(raws))

	// pending holds the most recent QUERY or TEST block, which merges with
	// an immediately-following EXPECT (§6.2) rather than being emitted
	// standalone. expects points at wherever that block's Expects slice
	// lives (Query.Expects directly, or Test.Query.Expects).
	var pending *melvin.Block
	var expects *[]string

	flush := func() {
		if pending != nil {
			blocks = append(blocks, *pending)
			pending = nil
			expects = nil
		}
	}

	for _, rb := range raws {
		blk, err := interpretBlock(rb)
		if err != nil {
			doc.Errors = append(doc.Errors, err.Error())
			continue
		}

		if blk.Type == melvin.BlockExpect && pending != nil {
			*expects = append(*expects, blk.Query.Expects...)
			continue // merged into the pending QUERY/TEST, not emitted separately
		}
		flush()

		switch blk.Type {
		case melvin.BlockQuery:
			cp := blk
			pending = &cp
			expects = &pending.Query.Expects
			continue
		case melvin.BlockTest:
			cp := blk
			pending = &cp
			expects = &pending.Test.Query.Expects
			continue
		}
		blocks = append(blocks, blk)
	}
	flush()

	doc.Blocks = blocks
	return doc
}

// lexBlocks splits text into header-plus-body raw blocks. A line matches a
// header when it starts with '#' followed by a word; the tag is matched
// case-insensitively later, and Parse records an unknown tag as an error.
// Every other line belongs to the most recently opened block. Lines before
// the first header are ignored (free-form comments/whitespace).
func lexBlocks(text string) []rawBlock {
	var blocks []rawBlock
	var cur *rawBlock

	sc := bufio.NewScanner(strings.NewReader(text))
	sc.Buffer(make([]byte, 64*1024), 1024*1024)
	ln := 0
	for sc.Scan() {
		ln++
		line := sc.Text()
		trimmed := strings.TrimSpace(line)
		if strings.HasPrefix(trimmed, "#") {
			if word, arg, ok := splitTagLine(trimmed); ok {
				if cur != nil {
					blocks = append(blocks, *cur)
				}
				cur = &rawBlock{tag: normalizeTag(word), arg: arg, startLn: ln}
				continue
			}
		}
		if cur == nil {
			continue
		}
		if trimmed == "" {
			continue
		}
		cur.lines = append(cur.lines, trimmed)
	}
	if cur != nil {
		blocks = append(blocks, *cur)
	}
	return blocks
}

// splitTagLine splits a "#WORD rest-of-line" header into its tag word and
// trailing argument text.
func splitTagLine(line string) (word, arg string, ok bool) {
	body := strings.TrimPrefix(line, "#")
	body = strings.TrimSpace(body)
	if body == "" {
		return "", "", false
	}
	parts := strings.SplitN(body, " ", 2)
	word = parts[0]
	if len(parts) == 2 {
		arg = strings.TrimSpace(parts[1])
	}
	if word == "" {
		return "", "", false
	}
	return word, arg, true
}

func interpretBlock(rb rawBlock) (melvin.Block, error) {
	raw := strings.Join(rb.lines, "\n")
	blk := melvin.Block{Raw: raw}

	switch rb.tag {
	case tagFact:
		return interpretFact(rb, raw)
	case tagAssociation:
		return interpretAssociation(rb, raw)
	case tagRule:
		return interpretRule(rb, raw)
	case tagQuery:
		return interpretQuery(rb, raw)
	case tagExpect:
		blk.Type = melvin.BlockExpect
		blk.Query = &melvin.Query{Expects: rb.lines}
		return blk, nil
	case tagTest:
		return interpretTest(rb, raw)
	case tagExplain:
		blk.Type = melvin.BlockExplain
		blk.Meta.Explain = raw
		return blk, nil
	case tagSource:
		blk.Type = melvin.BlockSource
		blk.Meta.Source = strings.TrimSpace(rb.arg + " " + raw)
		return blk, nil
	case tagWeight:
		blk.Type = melvin.BlockWeight
		blk.Meta = parseWeightMeta(rb.lines)
		return blk, nil
	}
	return melvin.Block{}, melvin.ParseErrorAt("teaching.Parse", rb.startLn, "unrecognized block tag")
}

// parseWeightMeta reads `key:value` tokens from a WEIGHT block's lines
// (confidence, temporal, source), tolerating unknown keys by ignoring them.
func parseWeightMeta(lines []string) melvin.BlockMeta {
	var meta melvin.BlockMeta
	for _, line := range lines {
		for _, tok := range strings.Fields(line) {
			k, v, ok := strings.Cut(tok, ":")
			if !ok {
				continue
			}
			switch strings.ToLower(strings.TrimSpace(k)) {
			case "confidence":
				if f, err := parseFloat(v); err == nil {
					meta.Confidence = f
				}
			case "temporal":
				meta.Temporal = strings.TrimSpace(v)
			case "source":
				meta.Source = strings.TrimSpace(v)
			}
		}
	}
	return meta
}
