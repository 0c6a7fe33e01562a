// Package evolution implements §4.F: rolling metrics, stagnation
// detection, rate-limited micro-evolution (mutation, elitism, rank-blend),
// UCB-guided parameter selection, and the parameter life-cycle (create,
// mutate, retire).
package evolution

import (
	"github.com/thebtf/melvin/pkg/melvin"
)

// emaAlpha is §4.F's default EMA smoothing coefficient.
const emaAlpha = 0.1

// Sample is one tick's raw observations feeding the rolling metrics.
type Sample struct {
	Entropy        float64
	Top2Margin     float64
	Success        bool
	EdgeReused     bool
	CoherenceDrift float64
}

// Tracker maintains melvin.MetricsSnapshot plus the recent-entropy window
// EntropyTrend's regression slope is computed over. Entropy, Top2Margin
// and CoherenceDrift are EMAs; SuccessRate and EdgeReuseRatio are
// cumulative ratios over every sample since construction, not EMAs.
type Tracker struct {
	snapshot melvin.MetricsSnapshot
	seeded   bool

	successCount int
	successTotal int
	reuseCount   int
	reuseTotal   int

	entropyWindow []float64
	confidence    []float64
	windowSize    int
}

// NewTracker constructs a Tracker. windowSize bounds the regression
// window used for EntropyTrend and the confidence-decay trigger (§4.F
// requires >= 8 samples before that trigger can fire).
func NewTracker(windowSize int) *Tracker {
	if windowSize <= 0 {
		windowSize = 32
	}
	return &Tracker{windowSize: windowSize}
}

// Observe folds one tick's sample into the rolling state.
func (t *Tracker) Observe(tick uint64, s Sample, confidence float64) {
	if !t.seeded {
		t.snapshot = melvin.MetricsSnapshot{
			Entropy:        s.Entropy,
			Top2Margin:     s.Top2Margin,
			CoherenceDrift: s.CoherenceDrift,
		}
		t.seeded = true
	} else {
		t.snapshot.Entropy = ema(t.snapshot.Entropy, s.Entropy)
		t.snapshot.Top2Margin = ema(t.snapshot.Top2Margin, s.Top2Margin)
		t.snapshot.CoherenceDrift = ema(t.snapshot.CoherenceDrift, s.CoherenceDrift)
	}

	t.successTotal++
	if s.Success {
		t.successCount++
	}
	t.snapshot.SuccessRate = float64(t.successCount) / float64(t.successTotal)

	t.reuseTotal++
	if s.EdgeReused {
		t.reuseCount++
	}
	t.snapshot.EdgeReuseRatio = float64(t.reuseCount) / float64(t.reuseTotal)

	t.entropyWindow = pushWindow(t.entropyWindow, s.Entropy, t.windowSize)
	t.confidence = pushWindow(t.confidence, confidence, t.windowSize)
	t.snapshot.EntropyTrend = slope(t.entropyWindow)
	t.snapshot.Tick = tick
}

// Snapshot returns the current rolling metrics.
func (t *Tracker) Snapshot() melvin.MetricsSnapshot {
	return t.snapshot
}

// ConfidenceSlopeAndMean reports the regression slope and mean of the
// recent confidence window, the inputs melvin.EvaluateTriggers needs for
// its confidence-decay trigger.
func (t *Tracker) ConfidenceSlopeAndMean() (slopeVal, mean float64, enoughSamples bool) {
	if len(t.confidence) < 8 {
		return 0, 0, false
	}
	var sum float64
	for _, v := range t.confidence {
		sum += v
	}
	return slope(t.confidence), sum / float64(len(t.confidence)), true
}

func ema(prev, sample float64) float64 {
	return prev + emaAlpha*(sample-prev)
}

func pushWindow(w []float64, v float64, size int) []float64 {
	w = append(w, v)
	if len(w) > size {
		w = w[len(w)-size:]
	}
	return w
}

// slope computes the least-squares regression slope of y against its
// index (0..n-1), §4.F's EntropyTrend / confidence-decay input.
func slope(y []float64) float64 {
	n := len(y)
	if n < 2 {
		return 0
	}
	var sumX, sumY, sumXY, sumXX float64
	for i, v := range y {
		x := float64(i)
		sumX += x
		sumY += v
		sumXY += x * v
		sumXX += x * x
	}
	nf := float64(n)
	denom := nf*sumXX - sumX*sumX
	if denom == 0 {
		return 0
	}
	return (nf*sumXY - sumX*sumY) / denom
}
