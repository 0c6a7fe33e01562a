package melvin

// BlockType is the closed set of teaching-file block tags (§6.2).
type BlockType uint8

const (
	BlockFact BlockType = iota
	BlockAssociation
	BlockRule
	BlockQuery
	BlockExpect
	BlockTest
	BlockExplain
	BlockSource
	BlockWeight
	BlockUnknown
)

func (b BlockType) String() string {
	switch b {
	case BlockFact:
		return "FACT"
	case BlockAssociation:
		return "ASSOCIATION"
	case BlockRule:
		return "RULE"
	case BlockQuery:
		return "QUERY"
	case BlockExpect:
		return "EXPECT"
	case BlockTest:
		return "TEST"
	case BlockExplain:
		return "EXPLAIN"
	case BlockSource:
		return "SOURCE"
	case BlockWeight:
		return "WEIGHT"
	default:
		return "UNKNOWN"
	}
}

// BlockMeta carries the optional metadata attached to a teaching block
// (§6.2 WEIGHT keys: confidence, temporal, source).
type BlockMeta struct {
	File       string
	Line       int
	Confidence float64
	Temporal   string
	Source     string
	Explain    string
}

// Fact is a parsed `#FACT subj rel obj` block.
type Fact struct {
	Subj string
	Rel  string
	Obj  string
	Meta BlockMeta
}

// Association is a parsed `#ASSOCIATION left [rel] right` block, with
// Bidirectional set when the text used `<->` or `↔`.
type Association struct {
	Left          string
	Rel           string
	Right         string
	Bidirectional bool
	Meta          BlockMeta
}

// Rule is a parsed `#RULE IF pattern THEN consequent` block (§4.E).
// internal/teaching stores it as a Leap edge from Pattern to Implies;
// there is no separate rule index, and rules are not consulted for
// contradiction hints.
type Rule struct {
	Pattern string
	Implies string
	Meta    BlockMeta
}

// Query is a parsed `#QUERY` block merged with its immediately following
// `#EXPECT` block.
type Query struct {
	Question string
	Expects  []string
	Meta     BlockMeta
}

// Test is a named `#TEST <name>` block wrapping a Query.
type Test struct {
	Name  string
	Query Query
}

// Block is a single parsed teaching-file block; exactly one of the typed
// payload fields is populated, selected by Type.
type Block struct {
	Type    BlockType
	Raw     string
	Meta    BlockMeta
	Fact    *Fact
	Assoc   *Association
	Rule    *Rule
	Query   *Query
	Test    *Test
}

// Document is a complete parsed teaching file (§4.E, §6.2).
type Document struct {
	FilePath string
	Blocks   []Block
	Errors   []string
	Warnings []string
}
