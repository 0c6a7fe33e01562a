package srs

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/thebtf/melvin/pkg/melvin"
)

type staticGenome struct{ g *melvin.Genome }

func (s staticGenome) Current() *melvin.Genome { return s.g }

func TestApplyFailResetsStreakAndShrinksInterval(t *testing.T) {
	gr := NewGrader(staticGenome{nil})
	item := &melvin.SRSItem{Ease: 2.5, IntervalDays: 10, Streak: 3, Lapses: 0}

	gr.Apply(item, melvin.GradeFail, 0)

	assert.InDelta(t, 1.7, item.Ease, 1e-9, "ease drops by 0.8")
	assert.InDelta(t, 5.0, item.IntervalDays, 1e-9, "interval *= lapse_factor (0.5)")
	assert.Equal(t, uint32(0), item.Streak)
	assert.Equal(t, uint32(1), item.Lapses)
}

func TestApplyFailNeverDropsEaseBelowFloor(t *testing.T) {
	gr := NewGrader(staticGenome{nil})
	item := &melvin.SRSItem{Ease: 1.5, IntervalDays: 2}

	gr.Apply(item, melvin.GradeFail, 0)

	assert.GreaterOrEqual(t, item.Ease, 1.3)
}

func TestApplyGoodFromZeroStreakUsesMinInterval(t *testing.T) {
	gr := NewGrader(staticGenome{nil})
	item := &melvin.SRSItem{Ease: 2.5, IntervalDays: 0, Streak: 0}

	gr.Apply(item, melvin.GradeGood, 0)

	assert.Equal(t, uint32(1), item.Streak)
	assert.InDelta(t, 1.0, item.IntervalDays, 1e-9)
}

func TestApplyGoodWithExistingStreakScalesByEase(t *testing.T) {
	gr := NewGrader(staticGenome{nil})
	item := &melvin.SRSItem{Ease: 2.5, IntervalDays: 4, Streak: 2}

	gr.Apply(item, melvin.GradeGood, 0)

	assert.InDelta(t, 4*2.65, item.IntervalDays, 1e-9, "interval *= updated ease (2.5+0.15)")
}

func TestApplyEasyAppliesExtraBonusMultiplier(t *testing.T) {
	gr := NewGrader(staticGenome{nil})
	itemEasy := &melvin.SRSItem{Ease: 2.5, IntervalDays: 4, Streak: 2}
	itemGood := &melvin.SRSItem{Ease: 2.5, IntervalDays: 4, Streak: 2}

	gr.Apply(itemEasy, melvin.GradeEasy, 0)
	gr.Apply(itemGood, melvin.GradeGood, 0)

	assert.Greater(t, itemEasy.IntervalDays, itemGood.IntervalDays)
}

func TestApplySetsDueTimeFromInterval(t *testing.T) {
	gr := NewGrader(staticGenome{nil})
	item := &melvin.SRSItem{Ease: 2.5, IntervalDays: 0, Streak: 0}

	gr.Apply(item, melvin.GradeGood, 1000)

	assert.Equal(t, int64(1000)+int64(1*86400*1e9), item.DueTimeNs)
}

func TestDueItemsFiltersAndOrdersByUrgency(t *testing.T) {
	notDue := &melvin.SRSItem{EdgeID: 1, DueTimeNs: 1_000_000, IntervalDays: 1}
	dueSoon := &melvin.SRSItem{EdgeID: 2, DueTimeNs: 0, IntervalDays: 1, Lapses: 0}
	dueOverdue := &melvin.SRSItem{EdgeID: 3, DueTimeNs: -200 * 86400 * int64(1e9), IntervalDays: 1, Lapses: 2}

	due := DueItems([]*melvin.SRSItem{notDue, dueSoon, dueOverdue}, 0)

	assert := assert.New(t)
	if assert.Len(due, 2) {
		assert.Equal(melvin.EdgeID(3), due[0].EdgeID, "the most overdue, most-lapsed item sorts first")
	}
}
