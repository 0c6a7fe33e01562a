package emergent

import (
	"context"
	"math"
	"sync"

	"github.com/thebtf/melvin/internal/graphstore"
	"github.com/thebtf/melvin/pkg/melvin"
)

// Params mirrors §4.D's named constants, every one genome-overridable the
// same way internal/scoring's coefficients are (§6.4).
type Params struct {
	SpreadFactor      float64
	DecayRate         float64
	FormationRate     float64
	EliminationRate   float64
	PruneThreshold    float64
	CostThreshold     float64
	EpsilonAct        float64
	EnergyBudget      float64
	RecoveryRate      float64
	CoactivationCap   float64
	NeedTauTicks      float64
	StaleEdgeAgeTicks int64
}

func defaultParams(g *melvin.Genome) Params {
	return Params{
		SpreadFactor:      g.Float("emergent_spread_factor", 0.3),
		DecayRate:         g.Float("emergent_decay_rate", 0.9),
		FormationRate:     g.Float("emergent_formation_rate", 0.01),
		EliminationRate:   g.Float("emergent_elimination_rate", 0.005),
		PruneThreshold:    g.Float("emergent_prune_threshold", 0.01),
		CostThreshold:     g.Float("emergent_cost_threshold", 0.05),
		EpsilonAct:        g.Float("emergent_epsilon_act", 0.05),
		EnergyBudget:      g.Float("emergent_energy_budget", 100),
		RecoveryRate:      g.Float("emergent_recovery_rate", 1.0),
		CoactivationCap:   g.Float("emergent_coactivation_cap", 100),
		NeedTauTicks:      g.Float("emergent_need_tau_ticks", 50),
		StaleEdgeAgeTicks: int64(g.Float("emergent_stale_edge_age_ticks", 100)),
	}
}

// Engine runs the need-vs-cost emergent-graph dynamics over a shared
// graphstore.Store. It owns no node/edge storage of its own beyond the
// per-edge dynamics sidecar (see EdgeDynamics) and the system-wide energy
// ledger (§4.D step 6).
type Engine struct {
	store   *graphstore.Store
	genomes genomeSource
	dyn     *dynamicsTable

	mu          sync.Mutex
	tick        int64
	currentUsed float64
}

// genomeSource is the minimal interface Engine needs; satisfied by
// internal/reasoning.GenomeSource and internal/evolution's controller.
type genomeSource interface {
	Current() *melvin.Genome
}

type staticGenome struct{ g *melvin.Genome }

func (s staticGenome) Current() *melvin.Genome { return s.g }

// StaticGenome wraps a fixed genome as a genomeSource, for callers that
// do not wire in internal/evolution.
func StaticGenome(g *melvin.Genome) genomeSource { return staticGenome{g} }

// NewEngine constructs an emergent-dynamics engine over store.
func NewEngine(store *graphstore.Store, genomes genomeSource) *Engine {
	return &Engine{store: store, genomes: genomes, dyn: newDynamicsTable()}
}

// EnergyAvailable reports whether the system has energy headroom to form
// new structure (§4.D step 6: "new node creation is refused when
// current_used >= 0.9*budget"). Activate applies the same check inline
// before forming co-activation edges; teaching ingestion does not call
// it.
func (e *Engine) EnergyAvailable() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	p := defaultParams(e.genomes.Current())
	return e.currentUsed < 0.9*p.EnergyBudget
}

// Activate is the only way nodes receive input activation (§4.D step 1).
// Every pair of nodes activated together in the same call gets a weak
// bidirectional edge if one is not already present — Hebbian formation:
// "neurons that fire together, wire together." Caller pays a fraction of
// the energy budget proportional to the activation strength and fan-out.
func (e *Engine) Activate(nodeIDs []melvin.NodeID, strength float64, nowNs int64) {
	if len(nodeIDs) == 0 {
		return
	}
	g := e.genomes.Current()
	p := defaultParams(g)

	e.mu.Lock()
	tick := e.tick
	cost := strength * float64(len(nodeIDs)) * 0.001
	e.currentUsed += cost
	canForm := e.currentUsed < 0.9*p.EnergyBudget
	e.mu.Unlock()

	for _, id := range nodeIDs {
		n, err := e.store.GetNode(id)
		if err != nil {
			continue
		}
		e.store.TouchActivation(id, n.Activation+float32(strength))
	}

	if !canForm {
		return // §4.D step 6: no new structure while near the energy ceiling
	}
	for i, a := range nodeIDs {
		for _, b := range nodeIDs[i+1:] {
			if a == b {
				continue
			}
			e.ensureCoactivationEdge(a, b, nowNs, tick)
			e.ensureCoactivationEdge(b, a, nowNs, tick)
		}
	}
}

func (e *Engine) ensureCoactivationEdge(src, dst melvin.NodeID, nowNs, tick int64) {
	if existing, ok := e.store.EdgeByKey(src, dst, melvin.RelAssoc); ok {
		if d, ok := e.dyn.get(existing.ID); ok {
			e.mu.Lock()
			d.Coactivations++
			d.LastUseTick = tick
			e.mu.Unlock()
		} else {
			e.dyn.getOrCreate(existing.ID, tick)
		}
		return
	}
	id, err := e.store.UpsertEdge(src, dst, melvin.RelAssoc, 0.01, nowNs)
	if err != nil {
		return
	}
	e.dyn.getOrCreate(id, tick)
}

// Tick runs one full §4.D pass: spread, decay, update, prune, energy
// recovery, in that order, and advances the internal tick counter.
// Spread is partitioned across a fork-join worker pool (§5); the
// remaining passes are cheap enough (the sidecar table is pruned, not
// the whole graph) to run serially, taking the engine mutex per edge.
func (e *Engine) Tick(ctx context.Context, nowNs int64, dt float64, workers int) error {
	g := e.genomes.Current()
	p := defaultParams(g)

	if err := e.spread(ctx, p, nowNs, workers); err != nil {
		return err
	}
	e.decayActivation(p)
	e.decayAndUpdate(p)
	e.prune(p)
	e.recoverEnergy(p, dt)

	e.mu.Lock()
	e.tick++
	e.mu.Unlock()
	return nil
}

// decayActivation runs §4.D step 3's node half: every node's activation
// dissipates by decay_rate regardless of whether it participated in this
// tick's spread.
func (e *Engine) decayActivation(p Params) {
	var ids []melvin.NodeID
	e.store.VisitNodesOrdered(func(n *melvin.Node) bool {
		ids = append(ids, n.ID)
		return true
	})
	for _, id := range ids {
		n, err := e.store.GetNode(id)
		if err != nil {
			continue
		}
		e.store.TouchActivation(id, n.Activation*float32(p.DecayRate))
	}
}

// decayAndUpdate runs §4.D steps 3-4 over every tracked edge.
func (e *Engine) decayAndUpdate(p Params) {
	e.mu.Lock()
	tick := e.tick
	e.mu.Unlock()

	for _, id := range e.dyn.snapshot() {
		d, ok := e.dyn.get(id)
		if !ok {
			continue
		}
		if _, err := e.store.Edge(id); err != nil {
			e.dyn.delete(id)
			continue
		}

		e.mu.Lock()
		age := tick - d.LastUseTick
		if age > p.StaleEdgeAgeTicks {
			d.Strength *= 0.99
		}

		dtTicks := float64(age)
		need := needFor(d, p, dtTicks)
		change := need - d.Cost
		if change > 0 {
			d.Strength = math.Min(1, d.Strength+p.FormationRate*change)
			d.InfoValue += 0.001 * change
			if need > 2*d.Cost {
				d.Cost *= 0.999
			}
		} else if change < 0 {
			d.Strength = math.Max(0, d.Strength-p.EliminationRate*math.Abs(change))
			d.Cost *= 1.001
		}
		d.NeedSignal = need
		e.mu.Unlock()
	}
}

// needFor computes §4.D step 2's need formula for an edge's current
// dynamics state.
func needFor(d *EdgeDynamics, p Params, dtTicks float64) float64 {
	coactTerm := math.Min(1, float64(d.Coactivations)/p.CoactivationCap)
	recencyTerm := math.Exp(-dtTicks / p.NeedTauTicks)
	return 0.4*d.InfoValue + 0.3*coactTerm + 0.3*recencyTerm
}

// prune drops edges failing §4.D step 5's survival test.
func (e *Engine) prune(p Params) {
	for _, id := range e.dyn.snapshot() {
		d, ok := e.dyn.get(id)
		if !ok {
			continue
		}
		e.mu.Lock()
		dead := d.Strength < p.PruneThreshold ||
			(d.Cost > 1.5*d.NeedSignal && d.Strength < 0.1)
		e.mu.Unlock()
		if dead {
			e.store.RemoveEdge(id)
			e.dyn.delete(id)
		}
	}
}

// recoverEnergy runs §4.D step 6's replenishment.
func (e *Engine) recoverEnergy(p Params, dt float64) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.currentUsed -= p.RecoveryRate * dt
	if e.currentUsed < 0 {
		e.currentUsed = 0
	}
}
