package melvin

// MetricsSnapshot is the rolling predictive/memory/cognitive metrics
// state (§3.1). Entropy, Top2Margin and CoherenceDrift are EMAs (alpha =
// 0.1 by default); SuccessRate and EdgeReuseRatio are cumulative ratios
// over all samples seen, not EMAs; EntropyTrend is a least-squares slope
// over recent samples (§4.F).
type MetricsSnapshot struct {
	Entropy         float64 `json:"entropy"`
	Top2Margin      float64 `json:"top2_margin"`
	SuccessRate     float64 `json:"success_rate"`
	EdgeReuseRatio  float64 `json:"edge_reuse_ratio"`
	CoherenceDrift  float64 `json:"coherence_drift"`
	EntropyTrend    float64 `json:"entropy_trend"`

	// Tick is the scheduler tick this snapshot was computed at.
	Tick uint64 `json:"tick"`
}

// FitnessWeights are the w1..w4 coefficients of §4.F's fitness formula.
type FitnessWeights struct {
	W1, W2, W3, W4 float64
}

// DefaultFitnessWeights returns the spec defaults (0.3, 0.2, 0.3, 0.2).
func DefaultFitnessWeights() FitnessWeights {
	return FitnessWeights{W1: 0.3, W2: 0.2, W3: 0.3, W4: 0.2}
}

// Fitness computes §4.F's fitness formula:
//
//	w1*(1-entropy) + w2*margin + w3*success - w4*drift
//
// It is monotone increasing in SuccessRate and Top2Margin, and monotone
// decreasing in Entropy and CoherenceDrift, holding the others fixed
// (§8 P7).
func (m MetricsSnapshot) Fitness(w FitnessWeights) float64 {
	return w.W1*(1-m.Entropy) + w.W2*m.Top2Margin + w.W3*m.SuccessRate - w.W4*m.CoherenceDrift
}

// StagnationTriggers reports which of §4.F's stagnation conditions are
// currently true. Any one firing (while the swap rate limit allows it)
// should trigger a micro-evolution step.
type StagnationTriggers struct {
	HighEntropy     bool
	LowSuccess      bool
	HighDrift       bool
	ConfidenceDecay bool
}

// Any reports whether any trigger fired.
func (t StagnationTriggers) Any() bool {
	return t.HighEntropy || t.LowSuccess || t.HighDrift || t.ConfidenceDecay
}

// EvaluateTriggers applies the §4.F thresholds:
//
//	entropy > 1.5, success < 0.6, drift > 0.25
//
// plus the regression-based confidence-decay trigger, which is supplied
// pre-computed by the caller (internal/evolution owns the regression).
func EvaluateTriggers(m MetricsSnapshot, confidenceSlope, confidenceMean float64) StagnationTriggers {
	return StagnationTriggers{
		HighEntropy:     m.Entropy > 1.5,
		LowSuccess:      m.SuccessRate < 0.6,
		HighDrift:       m.CoherenceDrift > 0.25,
		ConfidenceDecay: confidenceSlope < -0.002 && confidenceMean < 0.18,
	}
}
