package emergent

import (
	"context"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/thebtf/melvin/pkg/melvin"
)

// spreadResult is one worker partition's contribution to a spread pass:
// activation deltas to apply to destination nodes, the edge ids that
// actually transmitted (and so count as "used" for the decay/update
// passes), and the energy consumed by those transmissions.
type spreadResult struct {
	deltas     map[melvin.NodeID]float64
	usedEdges  []melvin.EdgeID
	energyUsed float64
}

// spread implements §4.D step 2 as a data-parallel fold over the set of
// currently-active nodes (§5: "data-parallel fold over a frontier...
// disjoint frontier partition... merged under a mutex"), following the
// same errgroup-plus-semaphore shape internal/reasoning's beam expansion
// uses.
func (e *Engine) spread(ctx context.Context, p Params, nowNs int64, workers int) error {
	if workers <= 0 {
		workers = 4
	}

	active := e.activeNodes(p)
	if len(active) == 0 {
		return nil
	}

	var mu sync.Mutex
	merged := spreadResult{deltas: make(map[melvin.NodeID]float64)}

	g, gctx := errgroup.WithContext(ctx)
	sem := make(chan struct{}, workers)

	for _, node := range active {
		node := node
		sem <- struct{}{}
		g.Go(func() error {
			defer func() { <-sem }()
			select {
			case <-gctx.Done():
				return nil
			default:
			}
			local := e.spreadFrom(node, p)

			mu.Lock()
			for dst, delta := range local.deltas {
				merged.deltas[dst] += delta
			}
			merged.usedEdges = append(merged.usedEdges, local.usedEdges...)
			merged.energyUsed += local.energyUsed
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return melvin.Wrap("emergent.spread", melvin.KindTimeout, err)
	}

	e.applySpreadResult(merged)
	return nil
}

// activeNodes returns the nodes whose current activation exceeds
// epsilon_act (§4.D step 2's spread predicate).
func (e *Engine) activeNodes(p Params) []melvin.NodeID {
	var out []melvin.NodeID
	e.store.VisitNodesOrdered(func(n *melvin.Node) bool {
		if float64(n.Activation) > p.EpsilonAct {
			out = append(out, n.ID)
		}
		return true
	})
	return out
}

// spreadFrom computes node's outgoing contribution to a spread pass: the
// per-destination activation delta and which edges actually fired.
func (e *Engine) spreadFrom(node melvin.NodeID, p Params) spreadResult {
	out := spreadResult{deltas: make(map[melvin.NodeID]float64)}

	n, err := e.store.GetNode(node)
	if err != nil {
		return out
	}

	e.mu.Lock()
	tick := e.tick
	e.mu.Unlock()

	for _, a := range e.store.AdjacencyOut(node) {
		d, ok := e.dyn.get(a.EdgeID)
		if !ok {
			continue // not an emergent-tracked edge (e.g. a teaching-taught fact with no dynamics)
		}
		age := float64(tick - d.LastUseTick)
		need := needFor(d, p, age)
		if need <= d.Cost {
			continue
		}
		delta := float64(n.Activation) * d.Strength * p.SpreadFactor * (need - d.Cost)
		out.deltas[a.Dst] += delta
		out.usedEdges = append(out.usedEdges, a.EdgeID)
		out.energyUsed += d.EnergyConsumption
	}
	return out
}

// applySpreadResult commits a merged spread pass: activation deltas are
// written back to the graph store, transmitting edges have their
// LastUseTick bumped (feeding the next decay/update pass's recency
// term), and the consumed energy is deducted from the budget.
func (e *Engine) applySpreadResult(r spreadResult) {
	for dst, delta := range r.deltas {
		n, err := e.store.GetNode(dst)
		if err != nil {
			continue
		}
		e.store.TouchActivation(dst, n.Activation+float32(delta))
	}

	e.mu.Lock()
	tick := e.tick
	e.currentUsed += r.energyUsed
	e.mu.Unlock()

	for _, id := range r.usedEdges {
		if d, ok := e.dyn.get(id); ok {
			e.mu.Lock()
			d.LastUseTick = tick
			e.mu.Unlock()
		}
	}
}
