// Package scoring implements Melvin's scoring kernel (§4.B): edge_score,
// path_score, and confidence, each driven by genome coefficients so that
// every numerical default is overridable without recompilation.
//
// Grounded on the teacher's internal/scoring/calculator.go: a Calculator
// wrapping a config object, a Calculate entry point that delegates to a
// CalculateComponents breakdown for debuggability, clamped sub-terms
// combined multiplicatively. Generalized from the teacher's single
// observation-importance formula to the three-stage edge/path/confidence
// pipeline §4.B specifies, and from a static config struct to genome
// lookups so coefficients can be hot-swapped by internal/evolution.
package scoring

import (
	"math"

	"github.com/thebtf/melvin/pkg/melvin"
)

// clampLo and clampHi bound every individual multiplicative factor into
// [1e-9, 1e9] before combination, so a pathological input (e.g. a zero
// degree_norm denominator) can never introduce NaN/Inf (§3.2 invariant 9,
// §8 P9).
const (
	clampLo = 1e-9
	clampHi = 1e9
)

func clampFactor(v float64) float64 {
	if math.IsNaN(v) {
		return clampLo
	}
	if v < clampLo {
		return clampLo
	}
	if v > clampHi {
		return clampHi
	}
	return v
}

// Calculator computes edge_score, path_score and confidence against a
// genome of coefficients. It holds no graph state; every call is pure in
// its genome and inputs. Construct one per tick to pick up a freshly
// hot-swapped genome.
type Calculator struct {
	genome *melvin.Genome
}

// NewCalculator builds a Calculator reading coefficients from g. A nil
// genome is valid and causes every coefficient to fall back to its
// spec-default (see Genome.Float).
func NewCalculator(g *melvin.Genome) *Calculator {
	return &Calculator{genome: g}
}

// EdgeInputs carries the raw quantities edge_score needs, independent of
// internal/graphstore so this package has no dependency on the store.
type EdgeInputs struct {
	WCore         float64
	WCtx          float64
	Count         uint32
	Rel           melvin.RelType
	LastAccessNs  int64
	NowNs         int64
	DegSrc        int
	DegDst        int
	Contradiction float64
}

// EdgeComponents is the breakdown of an edge_score call, kept for
// debugging and for the reasoning engine's tie-break/explain paths.
type EdgeComponents struct {
	WMix                 float64
	Recency              float64
	Trust                float64
	RelPrior             float64
	DegreeNorm           float64
	ContradictionPenalty float64
	EdgeScore            float64
}

// EdgeScore computes §4.B's edge_score for a single edge.
func (c *Calculator) EdgeScore(in EdgeInputs) EdgeComponents {
	g := c.genome

	lambda := g.Float("w_mix_lambda", 0.7)
	epsilon := g.Float("w_mix_epsilon", 1e-4)
	wMix := clampFactor(math.Max(lambda*in.WCtx+(1-lambda)*in.WCore, epsilon))

	tau := g.Float("recency_tau_s", 300)
	ageS := float64(in.NowNs-in.LastAccessNs) / 1e9
	if ageS < 0 {
		ageS = 0
	}
	recency := clampFactor(math.Exp(-ageS / tau))

	pseudoCount := g.Float("trust_pseudo_count", 0.75)
	trust := clampFactor(math.Min(1, (float64(in.Count)+pseudoCount)/10))

	relPrior := clampFactor(RelPrior(in.Rel, g))

	delta := g.Float("degree_norm_delta", 1e-6)
	degreeNorm := clampFactor(1 / (math.Sqrt(float64(in.DegSrc)*float64(in.DegDst)) + delta))

	beta := g.Float("contradiction_beta", 1.5)
	contradictionPenalty := clampFactor(math.Exp(-beta * in.Contradiction))

	score := wMix * recency * trust * relPrior * degreeNorm * contradictionPenalty

	return EdgeComponents{
		WMix:                 wMix,
		Recency:              recency,
		Trust:                trust,
		RelPrior:             relPrior,
		DegreeNorm:           degreeNorm,
		ContradictionPenalty: contradictionPenalty,
		EdgeScore:            score,
	}
}

// RelPrior returns the closed-table relation prior (§4.B), overridable
// per relation via a "rel_prior_<rel>" genome parameter. Dispatch on
// RelType always goes through this static table, never dynamic per-type
// behavior (see pkg/melvin's RelType doc, "polymorphism over relation
// types").
func RelPrior(rel melvin.RelType, g *melvin.Genome) float64 {
	def := 1.00
	switch rel {
	case melvin.RelTemporal:
		def = 1.20
	case melvin.RelLeap:
		def = 0.85
	case melvin.RelGeneralization:
		def = 1.10
	}
	return g.Float("rel_prior_"+rel.String(), def)
}

// PathInputs carries the per-edge scores and derived quantities
// path_score needs.
type PathInputs struct {
	EdgeScores   []float64
	MeanGapS     float64
	MinJaccard   float64 // against the kept beam's node-sets; 1 if beam empty
}

// PathComponents is the breakdown of a path_score call.
type PathComponents struct {
	GeoMean             float64
	TemporalContinuity  float64
	MultiHopDiscount     float64
	DiversityPenalty     float64
	PathScore            float64
	MeanLogEdge          float64
}

// PathScore computes §4.B's path_score for an L-edge path.
func (c *Calculator) PathScore(in PathInputs) PathComponents {
	g := c.genome
	l := len(in.EdgeScores)
	if l == 0 {
		return PathComponents{}
	}

	sumLog := 0.0
	for _, s := range in.EdgeScores {
		sumLog += math.Log(clampFactor(s))
	}
	meanLog := sumLog / float64(l)
	geoMean := clampFactor(math.Exp(meanLog))

	tc := g.Float("temporal_continuity_tc_s", 5)
	temporalContinuity := clampFactor(math.Exp(-in.MeanGapS / tc))

	gamma := g.Float("multi_hop_discount_gamma", 0.93)
	multiHopDiscount := clampFactor(math.Pow(gamma, float64(l)))

	lambdaDiv := g.Float("diversity_penalty_lambda", 0.3)
	diversityPenalty := clampFactor(math.Exp(-lambdaDiv * (1 - in.MinJaccard)))

	score := geoMean * temporalContinuity * multiHopDiscount * diversityPenalty

	return PathComponents{
		GeoMean:            geoMean,
		TemporalContinuity: temporalContinuity,
		MultiHopDiscount:   multiHopDiscount,
		DiversityPenalty:   diversityPenalty,
		PathScore:          score,
		MeanLogEdge:        meanLog,
	}
}

// ConfidenceInputs carries the quantities the logit regression in §4.B
// reads.
type ConfidenceInputs struct {
	MeanLogEdge      float64
	PathLen          int
	SimToRecent      float64
	MaxContradiction float64
}

// Confidence computes §4.B's confidence = sigma(logit), with every
// coefficient read from the genome.
func (c *Calculator) Confidence(in ConfidenceInputs) float64 {
	g := c.genome

	shift := g.Float("confidence_shift", 12)
	scale := g.Float("confidence_scale", 1)
	sPath := (in.MeanLogEdge + shift) * scale

	b0 := g.Float("confidence_beta0", -0.5)
	b1 := g.Float("confidence_beta1", 3.0)
	b2 := g.Float("confidence_beta2", 0.15)
	b3 := g.Float("confidence_beta3", 0.5)
	b4 := g.Float("confidence_beta4", 1.0)

	logit := b0 + b1*sPath + b2*(-float64(in.PathLen)) + b3*(-in.SimToRecent) + b4*(-in.MaxContradiction)
	return sigmoid(logit)
}

func sigmoid(x float64) float64 {
	return 1 / (1 + math.Exp(-x))
}
