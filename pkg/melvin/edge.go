package melvin

// EdgeID is a stable, never-reused opaque handle into the graph store.
type EdgeID uint64

// RelType is the closed set of edge relations (§3.1). Dispatch on RelType
// always goes through the static prior table in internal/scoring, never
// through dynamic per-type behavior — see DESIGN NOTES, "polymorphism over
// relation types."
type RelType uint8

const (
	RelExact RelType = iota
	RelTemporal
	RelLeap
	RelGeneralization
	RelIsa
	RelConsumes
	RelHas
	RelCan
	RelAssoc
)

// AllRelTypes enumerates the closed relation set, in the order snapshots
// and configuration tables index them by.
var AllRelTypes = [...]RelType{
	RelExact, RelTemporal, RelLeap, RelGeneralization,
	RelIsa, RelConsumes, RelHas, RelCan, RelAssoc,
}

func (r RelType) String() string {
	switch r {
	case RelExact:
		return "Exact"
	case RelTemporal:
		return "Temporal"
	case RelLeap:
		return "Leap"
	case RelGeneralization:
		return "Generalization"
	case RelIsa:
		return "Isa"
	case RelConsumes:
		return "Consumes"
	case RelHas:
		return "Has"
	case RelCan:
		return "Can"
	case RelAssoc:
		return "Assoc"
	default:
		return "Unknown"
	}
}

// ParseRelType maps a teaching-grammar relation token (free-form, as
// written in a #FACT/#ASSOCIATION block) onto the closed RelType set.
// Unrecognized tokens fall back to RelAssoc, the most permissive relation.
func ParseRelType(s string) RelType {
	switch NormalizeText(s) {
	case "exact", "is", "are", "equals":
		return RelExact
	case "temporal", "before", "after", "then":
		return RelTemporal
	case "leap", "implies", "suggests":
		return RelLeap
	case "generalization", "generalizes", "like", "similar-to":
		return RelGeneralization
	case "isa", "is-a", "is_a", "kind-of", "type-of":
		return RelIsa
	case "consumes", "drink", "drinks", "eat", "eats", "uses":
		return RelConsumes
	case "has", "have", "has-a", "owns", "contains":
		return RelHas
	case "can", "can-do", "able-to":
		return RelCan
	default:
		return RelAssoc
	}
}

// Edge is a directed, typed connection between two live nodes. At most
// one edge exists per (Src, Dst, Rel) triple; a second upsert reinforces
// the existing edge rather than creating a new one (§3.2 invariant 2).
type Edge struct {
	ID            EdgeID  `json:"id"`
	Src           NodeID  `json:"src"`
	Dst           NodeID  `json:"dst"`
	Rel           RelType `json:"rel"`
	WCore         float32 `json:"w_core"`
	WCtx          float32 `json:"w_ctx"`
	Count         uint32  `json:"count"`
	LastAccessNs  int64   `json:"last_access_ns"`
	Contradiction float32 `json:"contradiction"`
}

// Key identifies the (src, dst, rel) triple an edge occupies — the
// uniqueness key enforced by the graph store (§3.2 invariant 2).
type EdgeKey struct {
	Src NodeID
	Dst NodeID
	Rel RelType
}

func (e *Edge) Key() EdgeKey { return EdgeKey{Src: e.Src, Dst: e.Dst, Rel: e.Rel} }

func clampF32(v, lo, hi float32) float32 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// ClampWeight clamps a core/context weight into [0, clampMax] (§3.2
// invariant 3).
func ClampWeight(v, clampMax float32) float32 {
	return clampF32(v, 0, clampMax)
}
