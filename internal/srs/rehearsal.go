package srs

import (
	"fmt"
	"strings"

	"github.com/thebtf/melvin/internal/graphstore"
	"github.com/thebtf/melvin/pkg/melvin"
)

// GenerateRehearsalDocument renders the top-N due items as teaching-grammar
// text (§6.2): one `#QUERY`/`#EXPECT` pair per edge, asking the edge's
// source and expecting its destination's text back. The caller re-parses
// this with internal/teaching and feeds it through Verify so a rehearsal
// is scored exactly like a freshly-taught query (§4.E).
func GenerateRehearsalDocument(store *graphstore.Store, items []*melvin.SRSItem) string {
	var b strings.Builder
	for _, item := range items {
		edge, err := store.Edge(item.EdgeID)
		if err != nil {
			continue
		}
		src, err := store.GetNode(edge.Src)
		if err != nil {
			continue
		}
		dst, err := store.GetNode(edge.Dst)
		if err != nil {
			continue
		}
		fmt.Fprintf(&b, "#QUERY what %s %s\n#EXPECT\n%s\n", edge.Rel, src.Text, dst.Text)
	}
	return b.String()
}
