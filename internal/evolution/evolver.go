package evolution

import (
	"math"
	"math/rand"

	"github.com/thebtf/melvin/pkg/melvin"
)

// EvolverParams are the meta-evolution constants (§4.F). Mirrors
// internal/emergent.Params and internal/srs.Params's shape: a plain
// struct read fresh from the genome's own values where the genome
// carries meta-parameters about itself (§9's unification — see
// DESIGN.md).
type EvolverParams struct {
	RateLimitTicks    uint64  // minimum ticks between swaps
	MutationRate      float64 // per-parameter probability of mutation
	MutationStrength  float64 // stddev of the additive Gaussian noise
	UCBExploration    float64 // c in UCB(p) = mean_reward + c*sqrt(ln(N)/n_p)
	RetirementEpsilon float64 // |contrib_ema| below this is "approximately zero"
	ProtectWindow     uint64  // generations a newly introduced param is protected for
}

// DefaultEvolverParams are spec.md §4.F's stated defaults: rate limit <=1
// swap per 50 ticks.
func DefaultEvolverParams() EvolverParams {
	return EvolverParams{
		RateLimitTicks:    50,
		MutationRate:      0.2,
		MutationStrength:  0.1,
		UCBExploration:    1.4,
		RetirementEpsilon: 0.01,
		ProtectWindow:     20,
	}
}

// Evolver runs §4.F's rate-limited micro-evolution loop over a
// GenomeSource. It is not safe for concurrent Step calls (the scheduler's
// single-threaded tick loop is the only caller, per §5).
type Evolver struct {
	params      EvolverParams
	source      *GenomeSource
	lastSwap    uint64
	trials      map[string]int
	totalTrials int
	nextID      uint64
	rng         *rand.Rand
}

// NewEvolver constructs an Evolver over source.
func NewEvolver(source *GenomeSource, params EvolverParams) *Evolver {
	return &Evolver{
		params: params,
		source: source,
		trials: make(map[string]int),
		rng:    rand.New(rand.NewSource(1)),
	}
}

// StepResult reports what a Step call did.
type StepResult struct {
	Evolved        bool
	NewGeneration  uint64
	RetiredParams  []string
	SkippedReason  string // non-empty when Evolved is false
}

// Step runs one scheduler-tick's worth of evolution logic: it checks
// §4.F's stagnation triggers and rate limit, and if both allow a swap,
// mutates a clone of the active genome, blends it against the current
// elite via UCB-weighted parameter selection, retires stagnant
// parameters, and hot-swaps the result in atomically.
func (e *Evolver) Step(tick uint64, snap melvin.MetricsSnapshot, confSlope, confMean float64, haveConfSample bool) StepResult {
	var slope, mean float64
	if haveConfSample {
		slope, mean = confSlope, confMean
	}
	triggers := melvin.EvaluateTriggers(snap, slope, mean)
	if !triggers.Any() {
		return StepResult{SkippedReason: "no stagnation trigger fired"}
	}
	if e.lastSwap != 0 && tick-e.lastSwap < e.params.RateLimitTicks {
		return StepResult{SkippedReason: "rate limit"}
	}

	elite := e.source.Current()
	if elite == nil {
		return StepResult{SkippedReason: "no active genome"}
	}

	candidate := e.mutate(elite)
	blended := e.rankBlend(elite, candidate, snap.Fitness(melvin.DefaultFitnessWeights()))
	blended.Generation = elite.Generation + 1

	retired := e.retire(blended, blended.Generation)

	e.source.Swap(blended)
	e.lastSwap = tick

	return StepResult{Evolved: true, NewGeneration: blended.Generation, RetiredParams: retired}
}

// mutate returns a clone of elite with each active, non-derived float
// parameter independently mutated with probability MutationRate by
// additive N(0, MutationStrength) noise, clamped into [Min, Max].
func (e *Evolver) mutate(elite *melvin.Genome) *melvin.Genome {
	candidate := elite.Clone()
	for name, p := range candidate.Params {
		if !p.Active || p.Kind == melvin.ParamDerived {
			continue
		}
		e.trials[name]++
		e.totalTrials++
		if e.rng.Float64() >= e.params.MutationRate {
			continue
		}
		noise := e.rng.NormFloat64() * e.params.MutationStrength
		p.Value = p.Clamp(p.Value + noise)
	}
	return candidate
}

// rankBlend blends elite and candidate parameter-by-parameter, weighting
// each side by its UCB score (mean_reward = contrib_ema, explore term
// from per-parameter trial counts) so frequently-rewarding, rarely-tried
// parameters are favored without ever fully discarding the elite (§4.F
// "elitism + rank-blend new generation").
func (e *Evolver) rankBlend(elite, candidate *melvin.Genome, candidateFitness float64) *melvin.Genome {
	out := elite.Clone()
	for name, cp := range candidate.Params {
		ep, ok := out.Params[name]
		if !ok || !ep.Active || ep.Kind == melvin.ParamDerived {
			continue
		}
		eliteScore := e.ucb(name, ep.ContribEMA)
		candidateScore := e.ucb(name, candidateFitness)
		total := eliteScore + candidateScore
		weight := 0.5
		if total > 0 {
			weight = candidateScore / total
		}
		ep.Value = ep.Clamp(ep.Value*(1-weight) + cp.Value*weight)
		ep.ContribEMA = ema(ep.ContribEMA, candidateFitness)
	}
	out.Fitness = candidateFitness
	return out
}

// ucb computes UCB(p) = mean_reward(p) + c*sqrt(ln(N)/n_p) (§4.F).
// Parameters never yet tried get the maximal exploration bonus so they
// are preferred the first time they are seen.
func (e *Evolver) ucb(name string, meanReward float64) float64 {
	n := e.trials[name]
	if n == 0 || e.totalTrials == 0 {
		return math.Inf(1)
	}
	return meanReward + e.params.UCBExploration*math.Sqrt(math.Log(float64(e.totalTrials))/float64(n))
}

// retire deactivates parameters whose contribution has decayed to
// approximately zero past their protection window (§4.F "retire when
// contrib_ema ~ 0 past protect_until_gen"), returning the retired names.
func (e *Evolver) retire(g *melvin.Genome, generation uint64) []string {
	var retired []string
	for name, p := range g.Params {
		if !p.Active {
			continue
		}
		if generation < p.ProtectedUntilGen {
			continue
		}
		if math.Abs(p.ContribEMA) < e.params.RetirementEpsilon {
			p.Active = false
			retired = append(retired, name)
		}
	}
	return retired
}

// Introduce adds a new parameter to the active genome from a template,
// stamping it with a monotonically increasing innovation id and
// protecting it from retirement until generation+ProtectWindow (§4.F
// "parameter life-cycle: create from template set ... monotonic
// innovation_id").
func (e *Evolver) Introduce(name string, template melvin.Param) {
	current := e.source.Current()
	next := current.Clone()
	e.nextID++
	template.Name = name
	template.Active = true
	template.InnovationID = e.nextID
	template.ProtectedUntilGen = next.Generation + e.params.ProtectWindow
	next.Params[name] = &template
	e.source.Swap(next)
}
