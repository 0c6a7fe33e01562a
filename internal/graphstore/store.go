// Package graphstore implements Melvin's graph store (§4.A): the node
// and edge arena, typed-relation adjacency, the per-token recency ring,
// and canonical-order snapshot I/O.
//
// Grounded on the teacher's internal/graph/observation_graph.go: a
// mutex-guarded map-of-nodes plus an edge list, generalized here from a
// rebuild-on-demand CSR representation (fine for a batch-rebuilt
// observation graph) to a live adjacency structure, since Melvin's store
// is mutated on every tick rather than rebuilt periodically.
package graphstore

import (
	"sort"
	"sync"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/thebtf/melvin/pkg/melvin"
)

// DefaultClampMax is the ceiling w_core/w_ctx clamp to (§3.2 invariant 3).
const DefaultClampMax = 1.0

// DefaultLearningRate is the Δ = learning_rate · weight coefficient used
// by UpsertEdge's w_core update (§4.A).
const DefaultLearningRate = 0.3

// DefaultWCtxAlpha is the EMA coefficient driving w_ctx toward the
// reinforcement weight on every upsert (§4.A "w_ctx updated by an EMA
// against recent activity").
const DefaultWCtxAlpha = 0.2

// Mirror is an optional, best-effort external graph mirror a Store can
// publish committed mutations to (e.g. a Cypher-queryable secondary
// store). The store calls it synchronously but never fails a mutation
// because of a mirror error — mirroring is observational, not
// authoritative (see SPEC_FULL.md §4.A).
type Mirror interface {
	SyncNode(n *melvin.Node)
	SyncEdge(e *melvin.Edge)
}

// Store is the single mutable graph arena (§3.3 "the graph store
// exclusively owns all nodes and edges"). All other components hold
// NodeID/EdgeID handles and borrow data through Store's accessors.
type Store struct {
	mu sync.RWMutex

	nodes   map[melvin.NodeID]*melvin.Node
	edges   map[melvin.EdgeID]*melvin.Edge
	byKey   map[melvin.EdgeKey]melvin.EdgeID
	outAdj  map[melvin.NodeID][]melvin.EdgeID
	byText  map[string]melvin.NodeID
	rings   map[string]*ring

	nextNodeID melvin.NodeID
	nextEdgeID melvin.EdgeID

	ringSize int
	clampMax float32

	mirror Mirror
	log    zerolog.Logger
}

// Option configures a new Store.
type Option func(*Store)

// WithRingSize overrides the default 1024-entry token ring (§4.A).
func WithRingSize(n int) Option {
	return func(s *Store) { s.ringSize = n }
}

// WithClampMax overrides the default weight clamp ceiling.
func WithClampMax(v float32) Option {
	return func(s *Store) { s.clampMax = v }
}

// WithMirror attaches an optional external graph mirror.
func WithMirror(m Mirror) Option {
	return func(s *Store) { s.mirror = m }
}

// New creates an empty graph store.
func New(opts ...Option) *Store {
	s := &Store{
		nodes:    make(map[melvin.NodeID]*melvin.Node),
		edges:    make(map[melvin.EdgeID]*melvin.Edge),
		byKey:    make(map[melvin.EdgeKey]melvin.EdgeID),
		outAdj:   make(map[melvin.NodeID][]melvin.EdgeID),
		byText:   make(map[string]melvin.NodeID),
		rings:    make(map[string]*ring),
		ringSize: 1024,
		clampMax: DefaultClampMax,
		log:      log.With().Str("component", "graphstore").Logger(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// GetOrCreateNode normalizes text and returns the existing node id on an
// exact match, else creates a new node (§4.A).
func (s *Store) GetOrCreateNode(text string, kind melvin.NodeKind, nowNs int64) melvin.NodeID {
	// Thought node text is a canonical, already-stable path encoding
	// (melvin.EncodeThoughtText); normalizing it would strip the ">"
	// delimiter and corrupt the address.
	norm := text
	if kind != melvin.KindThought {
		norm = melvin.NormalizeText(text)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if id, ok := s.byText[norm]; ok {
		n := s.nodes[id]
		n.LastAccessedNs = nowNs
		s.pushRing(norm, id)
		return id
	}

	s.nextNodeID++
	id := s.nextNodeID
	n := &melvin.Node{
		ID:             id,
		Text:           norm,
		Kind:           kind,
		Freq:           0,
		LastAccessedNs: nowNs,
	}
	s.nodes[id] = n
	s.byText[norm] = id
	s.pushRing(norm, id)
	if s.mirror != nil {
		s.mirror.SyncNode(n)
	}
	return id
}

// LookupNode resolves normalized text to a node id without creating one,
// used by the reasoning engine's candidate start-set selection (§4.C.1).
func (s *Store) LookupNode(text string) (melvin.NodeID, bool) {
	norm := melvin.NormalizeText(text)
	s.mu.RLock()
	defer s.mu.RUnlock()
	id, ok := s.byText[norm]
	return id, ok
}

// GetNode returns a copy of the node for the given id, or KindNotFound.
func (s *Store) GetNode(id melvin.NodeID) (melvin.Node, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	n, ok := s.nodes[id]
	if !ok {
		return melvin.Node{}, melvin.NewError("graphstore.GetNode", melvin.KindNotFound)
	}
	return *n, nil
}

// NodeCount and EdgeCount report live arena sizes.
func (s *Store) NodeCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.nodes)
}

func (s *Store) EdgeCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.edges)
}

// UpsertEdge creates a new edge or reinforces an existing one (§4.A,
// §3.2 invariant 2). Both endpoints must already be live nodes (§3.2
// invariant 1), or KindUnknownNode is returned.
func (s *Store) UpsertEdge(src, dst melvin.NodeID, rel melvin.RelType, weight float32, tsNs int64) (melvin.EdgeID, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	srcNode, ok := s.nodes[src]
	if !ok {
		return 0, melvin.NewError("graphstore.UpsertEdge", melvin.KindUnknownNode)
	}
	dstNode, ok := s.nodes[dst]
	if !ok {
		return 0, melvin.NewError("graphstore.UpsertEdge", melvin.KindUnknownNode)
	}

	key := melvin.EdgeKey{Src: src, Dst: dst, Rel: rel}
	if id, ok := s.byKey[key]; ok {
		e := s.edges[id]
		e.Count++
		delta := DefaultLearningRate * weight
		e.WCore = melvin.ClampWeight(e.WCore+delta, s.clampMax)
		e.WCtx = melvin.ClampWeight(e.WCtx+DefaultWCtxAlpha*(weight-e.WCtx), s.clampMax)
		e.LastAccessNs = tsNs
		s.bumpFreq(srcNode, dstNode, e.Count)
		if s.mirror != nil {
			s.mirror.SyncEdge(e)
		}
		return id, nil
	}

	s.nextEdgeID++
	id := s.nextEdgeID
	e := &melvin.Edge{
		ID:           id,
		Src:          src,
		Dst:          dst,
		Rel:          rel,
		WCore:        melvin.ClampWeight(DefaultLearningRate*weight, s.clampMax),
		WCtx:         melvin.ClampWeight(weight, s.clampMax),
		Count:        1,
		LastAccessNs: tsNs,
	}
	s.edges[id] = e
	s.byKey[key] = id
	s.outAdj[src] = insertSorted(s.outAdj[src], id, s.edges)
	s.bumpFreq(srcNode, dstNode, 1)
	if s.mirror != nil {
		s.mirror.SyncEdge(e)
	}
	return id, nil
}

// bumpFreq enforces §3.2 invariant 4: a node's freq is >= the max count
// of its incident edges.
func (s *Store) bumpFreq(src, dst *melvin.Node, count uint32) {
	if count > src.Freq {
		src.Freq = count
	}
	if count > dst.Freq {
		dst.Freq = count
	}
}

// insertSorted keeps a node's outgoing edge ids ordered by ascending
// (dst, rel) — the canonical order §4.A defines for iteration and
// snapshots.
func insertSorted(ids []melvin.EdgeID, newID melvin.EdgeID, edges map[melvin.EdgeID]*melvin.Edge) []melvin.EdgeID {
	ne := edges[newID]
	idx := sort.Search(len(ids), func(i int) bool {
		e := edges[ids[i]]
		if e.Dst != ne.Dst {
			return e.Dst > ne.Dst
		}
		return e.Rel >= ne.Rel
	})
	ids = append(ids, 0)
	copy(ids[idx+1:], ids[idx:])
	ids[idx] = newID
	return ids
}

// AdjEntry is one edge out of a node (§4.A adjacency_out).
type AdjEntry struct {
	EdgeID melvin.EdgeID
	Dst    melvin.NodeID
	Rel    melvin.RelType
}

// AdjacencyOut returns the out-edges of id in canonical order.
func (s *Store) AdjacencyOut(id melvin.NodeID) []AdjEntry {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ids := s.outAdj[id]
	out := make([]AdjEntry, 0, len(ids))
	for _, eid := range ids {
		e := s.edges[eid]
		out = append(out, AdjEntry{EdgeID: eid, Dst: e.Dst, Rel: e.Rel})
	}
	return out
}

// IncomingEdges returns, as AdjEntry values whose Dst field is the
// neighboring source node, every edge terminating at id. Used by the
// bidirectional search variant's backward frontier (§4.C); unlike
// AdjacencyOut this is a linear scan since the store only indexes
// adjacency by source (§4.A).
func (s *Store) IncomingEdges(id melvin.NodeID) []AdjEntry {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []AdjEntry
	for eid, e := range s.edges {
		if e.Dst == id {
			out = append(out, AdjEntry{EdgeID: eid, Dst: e.Src, Rel: e.Rel})
		}
	}
	return out
}

// Edge returns a copy of the edge for the given id.
func (s *Store) Edge(id melvin.EdgeID) (melvin.Edge, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.edges[id]
	if !ok {
		return melvin.Edge{}, melvin.NewError("graphstore.Edge", melvin.KindNotFound)
	}
	return *e, nil
}

// EdgeByKey looks up the edge for an exact (src, dst, rel) triple.
func (s *Store) EdgeByKey(src, dst melvin.NodeID, rel melvin.RelType) (melvin.Edge, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	id, ok := s.byKey[melvin.EdgeKey{Src: src, Dst: dst, Rel: rel}]
	if !ok {
		return melvin.Edge{}, false
	}
	return *s.edges[id], true
}

// Degree returns the out-degree of a node, used by the scoring kernel's
// degree-normalization factor.
func (s *Store) Degree(id melvin.NodeID) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.outAdj[id])
}

// SetContradiction sets an edge's contradiction score; called by
// teaching ingestion when a conflicting Fact is taught (§9 "contradiction
// is updated only by explicit ingestion of a contradictory Fact").
func (s *Store) SetContradiction(id melvin.EdgeID, v float32) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.edges[id]
	if !ok {
		return melvin.NewError("graphstore.SetContradiction", melvin.KindNotFound)
	}
	e.Contradiction = v
	return nil
}

// TouchActivation sets a node's activation in place, used by the
// emergent-dynamics component which otherwise does not own node storage.
func (s *Store) TouchActivation(id melvin.NodeID, activation float32) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if n, ok := s.nodes[id]; ok {
		n.Activation = clampUnit(activation)
	}
}

// ScaleCoreWeight multiplies an edge's w_core by factor in place, used by
// consolidation's decay pass (§4.E "w <- w*(1-eta) for untouched edges").
func (s *Store) ScaleCoreWeight(id melvin.EdgeID, factor float32) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.edges[id]
	if !ok {
		return melvin.NewError("graphstore.ScaleCoreWeight", melvin.KindNotFound)
	}
	e.WCore = melvin.ClampWeight(e.WCore*factor, s.clampMax)
	return nil
}

func clampUnit(v float32) float32 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

// VisitNodesOrdered calls fn for every node in ascending-id canonical
// order (§4.A), stopping early if fn returns false.
func (s *Store) VisitNodesOrdered(fn func(*melvin.Node) bool) {
	s.mu.RLock()
	ids := make([]melvin.NodeID, 0, len(s.nodes))
	for id := range s.nodes {
		ids = append(ids, id)
	}
	s.mu.RUnlock()
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	for _, id := range ids {
		s.mu.RLock()
		n := s.nodes[id]
		cp := *n
		s.mu.RUnlock()
		if !fn(&cp) {
			return
		}
	}
}

// RemoveDanglingNode destroys a node that pruning has left unreferenced
// (§3.1 lifecycle: "destroyed only if unreferenced after pruning").
// Refuses to remove a node that still has outgoing or incoming edges.
func (s *Store) RemoveDanglingNode(id melvin.NodeID) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.outAdj[id]) > 0 {
		return false
	}
	for _, e := range s.edges {
		if e.Dst == id {
			return false
		}
	}
	n, ok := s.nodes[id]
	if !ok {
		return true
	}
	delete(s.nodes, id)
	delete(s.byText, n.Text)
	delete(s.outAdj, id)
	return true
}

// RemoveEdge drops an edge, e.g. under the pruning rule of §4.D step 5.
func (s *Store) RemoveEdge(id melvin.EdgeID) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.edges[id]
	if !ok {
		return
	}
	delete(s.edges, id)
	delete(s.byKey, e.Key())
	ids := s.outAdj[e.Src]
	for i, eid := range ids {
		if eid == id {
			s.outAdj[e.Src] = append(ids[:i], ids[i+1:]...)
			break
		}
	}
}

// MergeNodes redirects all incoming and outgoing edges of dup onto
// primary and removes dup, used by consolidation's near-duplicate
// clustering (§4.E). Self-edges created by the merge are dropped.
func (s *Store) MergeNodes(primary, dup melvin.NodeID, nowNs int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if primary == dup {
		return
	}

	for _, eid := range append([]melvin.EdgeID(nil), s.outAdj[dup]...) {
		e := s.edges[eid]
		if e.Dst == primary {
			delete(s.edges, eid)
			delete(s.byKey, e.Key())
			continue
		}
		s.rekeyEdgeSrc(eid, primary)
	}
	delete(s.outAdj, dup)

	for eid, e := range s.edges {
		if e.Dst == dup {
			if e.Src == primary {
				delete(s.edges, eid)
				delete(s.byKey, e.Key())
				ids := s.outAdj[e.Src]
				for i, x := range ids {
					if x == eid {
						s.outAdj[e.Src] = append(ids[:i], ids[i+1:]...)
						break
					}
				}
				continue
			}
			e.Dst = primary
		}
	}

	if dn, ok := s.nodes[dup]; ok {
		if pn, ok := s.nodes[primary]; ok {
			pn.Freq += dn.Freq
			if dn.Pinned {
				pn.Pinned = true
			}
		}
		delete(s.byText, dn.Text)
		delete(s.nodes, dup)
	}
}

func (s *Store) rekeyEdgeSrc(eid melvin.EdgeID, newSrc melvin.NodeID) {
	e := s.edges[eid]
	oldKey := e.Key()
	ids := s.outAdj[e.Src]
	for i, x := range ids {
		if x == eid {
			s.outAdj[e.Src] = append(ids[:i], ids[i+1:]...)
			break
		}
	}
	delete(s.byKey, oldKey)
	e.Src = newSrc
	newKey := e.Key()
	if existingID, clash := s.byKey[newKey]; clash && existingID != eid {
		delete(s.edges, eid)
		return
	}
	s.byKey[newKey] = eid
	s.outAdj[newSrc] = insertSorted(s.outAdj[newSrc], eid, s.edges)
}
