package reasoning

import (
	"sort"
	"sync"

	"github.com/thebtf/melvin/pkg/melvin"
)

// GateInputs carries the quantities the emission gate reads (§4.C).
type GateInputs struct {
	Confidence       float64
	Entropy          float64
	Top2Margin       float64
	SPath            float64 // mean_log_edge-derived path strength, for the null-hypothesis guard
	MaxContradiction float64
	Intent           melvin.Intent
}

// gateDefaults mirrors §4.C's named constants; every one is overridable
// via the genome the same way the scoring kernel's coefficients are.
type gateDefaults struct {
	tEmitGeneral      float64
	tEmitFactoid      float64
	tEmitControlRobot float64
	tAsk              float64
	hMax              float64
	mMin              float64
	baselineDelta     float64
	cooldownTicks     int
}

func defaultGateParams() gateDefaults {
	return gateDefaults{
		tEmitGeneral: 0.15, tEmitFactoid: 0.12, tEmitControlRobot: 0.35,
		tAsk: 0.06, hMax: 1.25, mMin: 0.35,
		baselineDelta: 0, cooldownTicks: 8,
	}
}

func tEmitFor(intent melvin.Intent, g *melvin.Genome, d gateDefaults) float64 {
	switch intent {
	case melvin.IntentFactoid:
		return g.Float("t_emit_factoid", d.tEmitFactoid)
	case melvin.IntentControlRobot:
		return g.Float("t_emit_control_robot", d.tEmitControlRobot)
	default:
		return g.Float("t_emit_general", d.tEmitGeneral)
	}
}

// EmissionGate implements §4.C's three-mode (Emit/Ask/Listen) decision
// with hysteresis: a decision is held for COOLDOWN ticks unless the raw
// decision has been stable across that window, preventing flip-flop.
// Safe for concurrent use — the scheduler calls Decide once per tick.
type EmissionGate struct {
	mu            sync.Mutex
	genome        *melvin.Genome
	defaults      gateDefaults
	history       []float64 // recent Decide confidences, for the Q75 T_dyn term
	historyCap    int
	recentRaw     []melvin.GateMode
	heldDecision  melvin.GateMode
	ticksInHold   int
}

// NewEmissionGate constructs a gate reading coefficients from g (nil is
// valid; every coefficient falls back to its spec default).
func NewEmissionGate(g *melvin.Genome) *EmissionGate {
	return &EmissionGate{
		genome:       g,
		defaults:     defaultGateParams(),
		historyCap:   200,
		heldDecision: melvin.GateListen,
	}
}

// SetGenome hot-swaps the coefficients the gate reads on the next Decide
// call, used by the evolution controller's genome swap.
func (gate *EmissionGate) SetGenome(g *melvin.Genome) {
	gate.mu.Lock()
	defer gate.mu.Unlock()
	gate.genome = g
}

// Decide applies §4.C's gate logic and hysteresis, returning the held
// (stabilized) decision for this tick.
func (gate *EmissionGate) Decide(in GateInputs) melvin.GateMode {
	gate.mu.Lock()
	defer gate.mu.Unlock()

	d := gate.defaults
	g := gate.genome

	gate.history = append(gate.history, in.Confidence)
	if len(gate.history) > gate.historyCap {
		gate.history = gate.history[len(gate.history)-gate.historyCap:]
	}

	tEmit := tEmitFor(in.Intent, g, d)
	tDyn := clampUnit(0.08+0.5*quantile75(gate.history), 0.08, 0.25)
	if tDyn > tEmit {
		tEmit = tDyn
	}

	hMax := g.Float("h_max", d.hMax)
	mMin := g.Float("m_min", d.mMin)
	tAsk := g.Float("t_ask", d.tAsk)
	baselineDelta := g.Float("baseline_delta", d.baselineDelta)

	certain := in.Entropy <= hMax && in.Top2Margin >= mMin
	safetyOK := in.SPath > baselineDelta && in.MaxContradiction <= 0.5

	raw := melvin.GateListen
	switch {
	case in.Confidence >= tEmit && certain && safetyOK:
		raw = melvin.GateEmit
	case in.Confidence >= tAsk:
		raw = melvin.GateAsk
	}

	cooldown := g.Int("gate_cooldown_ticks", d.cooldownTicks)
	gate.recentRaw = append(gate.recentRaw, raw)
	if len(gate.recentRaw) > cooldown {
		gate.recentRaw = gate.recentRaw[len(gate.recentRaw)-cooldown:]
	}

	if raw == gate.heldDecision {
		gate.ticksInHold = 0
		return gate.heldDecision
	}

	gate.ticksInHold++
	if stableAcrossWindow(gate.recentRaw, raw, cooldown) {
		gate.heldDecision = raw
		gate.ticksInHold = 0
	}
	return gate.heldDecision
}

func stableAcrossWindow(recent []melvin.GateMode, raw melvin.GateMode, window int) bool {
	if len(recent) < window {
		return false
	}
	for _, r := range recent[len(recent)-window:] {
		if r != raw {
			return false
		}
	}
	return true
}

func clampUnit(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// quantile75 returns the 75th percentile of a float64 slice via a full
// sort — history is capped at historyCap (200), so this is cheap enough
// to run every tick.
func quantile75(vals []float64) float64 {
	if len(vals) == 0 {
		return 0
	}
	sorted := append([]float64(nil), vals...)
	sort.Float64s(sorted)
	idx := int(0.75 * float64(len(sorted)-1))
	return sorted[idx]
}
