package scoring

import (
	"math"
	"testing"

	"github.com/stretchr/testify/suite"

	"github.com/thebtf/melvin/pkg/melvin"
)

// CalculatorSuite exercises the scoring kernel's genome-driven formulas.
type CalculatorSuite struct {
	suite.Suite
	calc *Calculator
}

func (s *CalculatorSuite) SetupTest() {
	s.calc = NewCalculator(nil) // nil genome -> spec defaults throughout
}

func TestCalculatorSuite(t *testing.T) {
	suite.Run(t, new(CalculatorSuite))
}

func (s *CalculatorSuite) TestEdgeScoreFreshStrongEdge() {
	comp := s.calc.EdgeScore(EdgeInputs{
		WCore: 0.8, WCtx: 0.8, Count: 20,
		Rel: melvin.RelExact, LastAccessNs: 0, NowNs: 0,
		DegSrc: 2, DegDst: 2, Contradiction: 0,
	})
	s.Greater(comp.EdgeScore, 0.0)
	s.InDelta(1.0, comp.Trust, 1e-9, "count+pseudo_count well over 10 caps trust at 1")
	s.InDelta(1.0, comp.RelPrior, 1e-9, "Exact's default prior is 1.00")
}

func (s *CalculatorSuite) TestEdgeScoreDecaysWithAge() {
	fresh := s.calc.EdgeScore(EdgeInputs{WCore: 0.5, WCtx: 0.5, Count: 5, DegSrc: 1, DegDst: 1, NowNs: 0, LastAccessNs: 0})
	stale := s.calc.EdgeScore(EdgeInputs{WCore: 0.5, WCtx: 0.5, Count: 5, DegSrc: 1, DegDst: 1, NowNs: int64(3600 * 1e9), LastAccessNs: 0})
	s.Less(stale.Recency, fresh.Recency)
	s.Less(stale.EdgeScore, fresh.EdgeScore)
}

func (s *CalculatorSuite) TestEdgeScoreContradictionPenalizes() {
	clean := s.calc.EdgeScore(EdgeInputs{WCore: 0.5, WCtx: 0.5, Count: 5, DegSrc: 1, DegDst: 1, Contradiction: 0})
	contradicted := s.calc.EdgeScore(EdgeInputs{WCore: 0.5, WCtx: 0.5, Count: 5, DegSrc: 1, DegDst: 1, Contradiction: 1})
	s.Less(contradicted.EdgeScore, clean.EdgeScore)
}

func (s *CalculatorSuite) TestEdgeScoreNeverProducesNaNOrInf() {
	comp := s.calc.EdgeScore(EdgeInputs{WCore: 0, WCtx: 0, Count: 0, DegSrc: 0, DegDst: 0, Contradiction: 0})
	s.False(math.IsNaN(comp.EdgeScore))
	s.False(math.IsInf(comp.EdgeScore, 0))
	s.Greater(comp.EdgeScore, 0.0, "degree_norm's delta prevents a zero-degree divide by zero")
}

func (s *CalculatorSuite) TestRelPriorHonorsGenomeOverride() {
	g := &melvin.Genome{Params: map[string]*melvin.Param{
		"rel_prior_Leap": {Name: "rel_prior_Leap", Value: 2.0, Min: 0, Max: 5, Active: true},
	}}
	s.Equal(2.0, RelPrior(melvin.RelLeap, g))
	s.Equal(0.85, RelPrior(melvin.RelLeap, nil), "default Leap prior without a genome override")
}

func (s *CalculatorSuite) TestPathScoreShorterPathsDiscountedLess() {
	short := s.calc.PathScore(PathInputs{EdgeScores: []float64{0.5}, MinJaccard: 1})
	long := s.calc.PathScore(PathInputs{EdgeScores: []float64{0.5, 0.5, 0.5}, MinJaccard: 1})
	s.Greater(short.MultiHopDiscount, long.MultiHopDiscount)
}

func (s *CalculatorSuite) TestPathScoreDiversityPenalizesOverlap() {
	novel := s.calc.PathScore(PathInputs{EdgeScores: []float64{0.5}, MinJaccard: 0})
	redundant := s.calc.PathScore(PathInputs{EdgeScores: []float64{0.5}, MinJaccard: 1})
	s.Greater(novel.DiversityPenalty, redundant.DiversityPenalty)
}

func (s *CalculatorSuite) TestPathScoreEmptyPathIsZero() {
	comp := s.calc.PathScore(PathInputs{})
	s.Equal(0.0, comp.PathScore)
}

func (s *CalculatorSuite) TestConfidenceIncreasesWithPathStrength() {
	weak := s.calc.Confidence(ConfidenceInputs{MeanLogEdge: -20, PathLen: 3})
	strong := s.calc.Confidence(ConfidenceInputs{MeanLogEdge: -2, PathLen: 3})
	s.Less(weak, strong)
	s.GreaterOrEqual(strong, 0.0)
	s.LessOrEqual(strong, 1.0)
}

func (s *CalculatorSuite) TestConfidencePenalizesContradiction() {
	clean := s.calc.Confidence(ConfidenceInputs{MeanLogEdge: -5, PathLen: 2, MaxContradiction: 0})
	contradicted := s.calc.Confidence(ConfidenceInputs{MeanLogEdge: -5, PathLen: 2, MaxContradiction: 1})
	s.Less(contradicted, clean)
}
