package melvin

import (
	"strings"
	"unicode"
)

// NodeID is a stable, never-reused opaque handle into the graph store.
// Arena growth never invalidates a NodeID.
type NodeID uint64

// NodeKind is the closed set of node kinds (§3.1).
type NodeKind uint8

const (
	// KindSymbol is a bare token/word with no further structure.
	KindSymbol NodeKind = iota
	// KindConcept is a normalized concept node (the common case).
	KindConcept
	// KindThought is a node whose text encodes a reasoning path,
	// addressable and replayable (see EncodeThoughtText/DecodeThoughtText).
	KindThought
	// KindSensor is a node bound to a cross-modal perception key.
	KindSensor
)

func (k NodeKind) String() string {
	switch k {
	case KindSymbol:
		return "symbol"
	case KindConcept:
		return "concept"
	case KindThought:
		return "thought"
	case KindSensor:
		return "sensor"
	default:
		return "unknown"
	}
}

// Node is a concept/symbol/thought/sensor vertex in the graph. Embedding
// is a fixed-length real vector shared across the cross-modal embedding
// space (see internal/crossmodal). Nodes are never deleted directly;
// they are merged during consolidation and destroyed only when pruning
// leaves them unreferenced.
type Node struct {
	ID              NodeID    `json:"id"`
	Text            string    `json:"text"`
	Kind            NodeKind  `json:"kind"`
	Embedding       []float32 `json:"embedding,omitempty"`
	Freq            uint32    `json:"freq"`
	Pinned          bool      `json:"pinned"`
	LastAccessedNs  int64     `json:"last_accessed_ns"`
	Activation      float32   `json:"activation"`
}

// NormalizeText implements the §4.A get_or_create_node normalization:
// lowercase, trim, and strip punctuation except intra-token marks
// (hyphen, apostrophe, underscore) that carry meaning inside a token.
func NormalizeText(text string) string {
	text = strings.TrimSpace(strings.ToLower(text))
	var b strings.Builder
	b.Grow(len(text))
	prevSpace := false
	for _, r := range text {
		switch {
		case unicode.IsSpace(r):
			if !prevSpace && b.Len() > 0 {
				b.WriteRune(' ')
				prevSpace = true
			}
		case unicode.IsLetter(r) || unicode.IsDigit(r) ||
			r == '-' || r == '\'' || r == '_':
			b.WriteRune(r)
			prevSpace = false
		default:
			// punctuation dropped; treat as a word boundary
			if !prevSpace && b.Len() > 0 {
				b.WriteRune(' ')
				prevSpace = true
			}
		}
	}
	return strings.TrimRight(b.String(), " ")
}
