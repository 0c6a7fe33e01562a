// Package emergent implements Melvin's need-vs-cost emergent-graph
// dynamics (§4.D): activation spread, Hebbian edge growth, and synaptic
// pruning under an energy budget.
//
// Grounded on original_source/core/emergent_graph.h/.cpp: an
// EmergentGraph whose nodes carry an activation level and whose edges
// carry strength/need/cost/coactivation counters, updated every tick by
// activate -> spread_activation -> update_connections ->
// prune_weak_connections. Translated from a single C++ class owning
// both node and edge storage into a Go package that borrows node
// storage from internal/graphstore (via Store.TouchActivation, the same
// "does not own node storage" pattern internal/graphstore documents) and
// owns only the per-edge dynamics state graphstore's melvin.Edge has no
// room for (strength, need_signal, cost, coactivations, info_value,
// energy_consumption) — kept in a sidecar map keyed by EdgeID.
package emergent

import (
	"sync"

	"github.com/thebtf/melvin/pkg/melvin"
)

// EdgeDynamics is the emergent-specific state layered onto a graph edge
// (§4.D). The edge's own strength is independent of the scoring kernel's
// w_core/w_ctx: w_core/w_ctx drive beam-search edge_score, strength/need/
// cost drive whether the edge survives and how activation flows through
// it. The same melvin.Edge is shared by both systems.
type EdgeDynamics struct {
	Strength          float64
	NeedSignal        float64
	Cost              float64
	Coactivations     int64
	LastUseTick       int64
	InfoValue         float64
	EnergyConsumption float64
}

// newEdgeDynamics seeds a freshly-formed connection at the spec's s0
// weak-strength default (§4.D "created at weak strength s0 = 0.01").
func newEdgeDynamics(tick int64) *EdgeDynamics {
	return &EdgeDynamics{
		Strength:          0.01,
		Cost:              0.001,
		InfoValue:         0.5,
		EnergyConsumption: 0.001,
		LastUseTick:       tick,
	}
}

// dynamicsTable is the mutex-guarded sidecar map of per-edge dynamics.
// Held separately from internal/graphstore.Store's own lock: dynamics
// updates never need to block a concurrent graph read/write that isn't
// touching the same edge's sidecar entry.
type dynamicsTable struct {
	mu   sync.RWMutex
	byID map[melvin.EdgeID]*EdgeDynamics
}

func newDynamicsTable() *dynamicsTable {
	return &dynamicsTable{byID: make(map[melvin.EdgeID]*EdgeDynamics)}
}

func (t *dynamicsTable) getOrCreate(id melvin.EdgeID, tick int64) *EdgeDynamics {
	t.mu.Lock()
	defer t.mu.Unlock()
	d, ok := t.byID[id]
	if !ok {
		d = newEdgeDynamics(tick)
		t.byID[id] = d
	}
	return d
}

func (t *dynamicsTable) get(id melvin.EdgeID) (*EdgeDynamics, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	d, ok := t.byID[id]
	return d, ok
}

func (t *dynamicsTable) delete(id melvin.EdgeID) {
	t.mu.Lock()
	defer t.mu.Unlock()
	delete(t.byID, id)
}

// snapshot returns a point-in-time copy of every tracked edge id, used by
// the tick loop's decay/update/prune passes so they can iterate without
// holding the table lock for the whole pass.
func (t *dynamicsTable) snapshot() []melvin.EdgeID {
	t.mu.RLock()
	defer t.mu.RUnlock()
	ids := make([]melvin.EdgeID, 0, len(t.byID))
	for id := range t.byID {
		ids = append(ids, id)
	}
	return ids
}

func (t *dynamicsTable) len() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.byID)
}
