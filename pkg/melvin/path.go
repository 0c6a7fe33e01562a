package melvin

import (
	"fmt"
	"strconv"
	"strings"
)

// Hop is one edge traversed along a reasoning path.
type Hop struct {
	EdgeID       EdgeID
	From         NodeID
	To           NodeID
	Rel          RelType
	Score        float64
	LastAccessNs int64
}

// Path is an ordered sequence of node ids with the relations along it (a
// beam start candidate holds one node and no hops), plus the score/confidence the reasoning engine assigned it and the
// derived margin against the next-best competing path (§3.1).
type Path struct {
	Nodes       []NodeID
	Hops        []Hop
	Score       float64
	Confidence  float64
	Top2Margin  float64
	// PartialDeadlineHit is set when a wall-clock deadline expired mid
	// search and this path is the best partial result so far (§5).
	PartialDeadlineHit bool
}

// Len returns the hop count L of the path, used by the multi-hop
// discount and length tie-break.
func (p *Path) Len() int { return len(p.Hops) }

// Terminal returns the path's answer node, the nominal answer of a beam
// search (§4.C step 4).
func (p *Path) Terminal() (NodeID, bool) {
	if len(p.Nodes) == 0 {
		return 0, false
	}
	return p.Nodes[len(p.Nodes)-1], true
}

// NodeSet returns the set of node ids visited, used by the diversity
// penalty's Jaccard comparison (§4.B).
func (p *Path) NodeSet() map[NodeID]struct{} {
	set := make(map[NodeID]struct{}, len(p.Nodes))
	for _, n := range p.Nodes {
		set[n] = struct{}{}
	}
	return set
}

// Jaccard computes |A∩B| / |A∪B| over two path node-sets, as used by the
// diversity penalty (§4.B).
func Jaccard(a, b map[NodeID]struct{}) float64 {
	if len(a) == 0 && len(b) == 0 {
		return 1
	}
	inter := 0
	for n := range a {
		if _, ok := b[n]; ok {
			inter++
		}
	}
	union := len(a) + len(b) - inter
	if union == 0 {
		return 1
	}
	return float64(inter) / float64(union)
}

// EncodeThoughtText renders a path as the text payload of a Thought node
// (§3.1 "Thought node ... whose text encodes a reasoning path"). The
// format is a plain decimal node-id sequence; it is not meant to be
// human prose, only a stable, parseable address for replay.
func EncodeThoughtText(nodes []NodeID) string {
	parts := make([]string, len(nodes))
	for i, n := range nodes {
		parts[i] = strconv.FormatUint(uint64(n), 10)
	}
	return strings.Join(parts, ">")
}

// DecodeThoughtText parses a Thought node's text back into the node id
// sequence it encodes (§3.2 invariant 8: the decoded path must reference
// live nodes — checked by the caller against the graph store).
func DecodeThoughtText(text string) ([]NodeID, error) {
	if text == "" {
		return nil, fmt.Errorf("empty thought text")
	}
	parts := strings.Split(text, ">")
	nodes := make([]NodeID, len(parts))
	for i, p := range parts {
		v, err := strconv.ParseUint(p, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("decode thought segment %q: %w", p, err)
		}
		nodes[i] = NodeID(v)
	}
	return nodes, nil
}
