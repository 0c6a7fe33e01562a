package teaching

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSummarizeComputesGrowthEfficiencyAndRetention(t *testing.T) {
	s := Summarize("lesson.txt", 10, 14, 5, 9, 4,
		IngestResult{NodesAdded: 4, EdgesAdded: 4},
		VerifyResult{PassRate: 0.75},
		120)

	assert.Equal(t, 0.75, s.RetentionScore)
	assert.Equal(t, 1.0, s.GrowthEfficiency)
	assert.False(t, s.OK())
}

func TestSummarizeFullPassRateIsOK(t *testing.T) {
	s := Summarize("lesson.txt", 0, 0, 0, 0, 0, IngestResult{}, VerifyResult{PassRate: 1}, 5)
	assert.True(t, s.OK())
}
