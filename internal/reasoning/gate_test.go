package reasoning

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/thebtf/melvin/pkg/melvin"
)

func TestEmissionGateEmitsOnHighConfidenceAndCertainty(t *testing.T) {
	g := NewEmissionGate(nil)
	in := GateInputs{
		Confidence: 0.9, Entropy: 0.1, Top2Margin: 0.9,
		SPath: 1, MaxContradiction: 0, Intent: melvin.IntentGeneral,
	}
	var last melvin.GateMode
	for i := 0; i < 16; i++ {
		last = g.Decide(in)
	}
	assert.Equal(t, melvin.GateEmit, last)
}

func TestEmissionGateListensOnLowConfidence(t *testing.T) {
	g := NewEmissionGate(nil)
	in := GateInputs{Confidence: 0.01, Entropy: 2, Top2Margin: 0.01, Intent: melvin.IntentGeneral}
	var last melvin.GateMode
	for i := 0; i < 16; i++ {
		last = g.Decide(in)
	}
	assert.Equal(t, melvin.GateListen, last)
}

func TestEmissionGateHysteresisHoldsAcrossSingleFlip(t *testing.T) {
	g := NewEmissionGate(nil)
	low := GateInputs{Confidence: 0.01, Entropy: 2, Top2Margin: 0.01, Intent: melvin.IntentGeneral}
	high := GateInputs{Confidence: 0.9, Entropy: 0.1, Top2Margin: 0.9, SPath: 1, Intent: melvin.IntentGeneral}

	for i := 0; i < 16; i++ {
		g.Decide(low)
	}
	// A single high-confidence tick should not immediately flip the held
	// decision to Emit — the raw decision must be stable across the
	// cooldown window first.
	held := g.Decide(high)
	assert.Equal(t, melvin.GateListen, held)
}

func TestEmissionGateControlRobotRequiresHigherThreshold(t *testing.T) {
	g := NewEmissionGate(nil)
	in := GateInputs{
		Confidence: 0.2, Entropy: 0.1, Top2Margin: 0.9,
		SPath: 1, MaxContradiction: 0, Intent: melvin.IntentControlRobot,
	}
	var last melvin.GateMode
	for i := 0; i < 16; i++ {
		last = g.Decide(in)
	}
	assert.NotEqual(t, melvin.GateEmit, last, "0.2 confidence is below the control-robot emit threshold")
}

func TestEmissionGateSafetyBlocksEmitOnContradiction(t *testing.T) {
	g := NewEmissionGate(nil)
	in := GateInputs{
		Confidence: 0.9, Entropy: 0.1, Top2Margin: 0.9,
		SPath: 1, MaxContradiction: 0.9, Intent: melvin.IntentGeneral,
	}
	var last melvin.GateMode
	for i := 0; i < 16; i++ {
		last = g.Decide(in)
	}
	assert.NotEqual(t, melvin.GateEmit, last)
}

func TestQuantile75OfEmptyIsZero(t *testing.T) {
	assert.Equal(t, 0.0, quantile75(nil))
}
