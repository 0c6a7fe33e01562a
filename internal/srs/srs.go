// Package srs implements §4.E's SM-2-derived spaced-repetition review:
// grading a reviewed edge updates its ease/interval/streak/lapses, and
// due items are selected by melvin.SRSItem.Urgency (already on the data
// type; this package only adds the behavior that mutates it).
//
// Grounded on the classic SM-2 algorithm as spec.md's §4.E constants
// describe it; internal/scoring.Calculator is the sibling package this
// mirrors in shape (a stateless calculator operating on pkg/melvin types
// read fresh from a genome-backed parameter set).
package srs

import (
	"sort"

	"github.com/thebtf/melvin/pkg/melvin"
)

// Params are the genome-driven SM-2 constants (§4.E). Defaults are the
// textbook SM-2 constants the spec's formulas were derived from.
type Params struct {
	EaseFloor      float64
	EaseHard       float64 // delta applied on Hard
	EaseGood       float64 // delta applied on Good
	EaseEasy       float64 // delta applied on Easy
	LapseFactor    float64 // interval *= this on Fail
	MinIntervalDay float64
	MaxIntervalDay float64
	EasyBonus      float64 // extra multiplier applied on Easy
}

// GenomeSource supplies the currently-active genome (mirrors
// internal/reasoning.GenomeSource / internal/emergent's genome source).
type GenomeSource interface {
	Current() *melvin.Genome
}

func defaultParams(g *melvin.Genome) Params {
	return Params{
		EaseFloor:      g.Float("srs_ease_floor", 1.3),
		EaseHard:       g.Float("srs_ease_delta_hard", -0.2),
		EaseGood:       g.Float("srs_ease_delta_good", 0.15),
		EaseEasy:       g.Float("srs_ease_delta_easy", 0.18),
		LapseFactor:    g.Float("srs_lapse_factor", 0.5),
		MinIntervalDay: g.Float("srs_min_interval_days", 1),
		MaxIntervalDay: g.Float("srs_max_interval_days", 180),
		EasyBonus:      g.Float("srs_easy_bonus", 1.3),
	}
}

// Grader applies SM-2 grade transitions to SRSItems.
type Grader struct {
	genomes GenomeSource
}

// NewGrader constructs a Grader reading SM-2 constants from genomes.
func NewGrader(genomes GenomeSource) *Grader {
	return &Grader{genomes: genomes}
}

// Apply mutates item in place per §4.E's SM-2 grade transition and
// returns it for chaining. nowNs is the review timestamp; the new due
// time is nowNs + interval_days worth of nanoseconds.
func (gr *Grader) Apply(item *melvin.SRSItem, grade melvin.Grade, nowNs int64) *melvin.SRSItem {
	p := defaultParams(gr.genomes.Current())
	item.TotalReviews++
	item.LastGrade = grade
	item.LastReviewNs = nowNs

	if item.Ease == 0 {
		item.Ease = 2.5 // SM-2's canonical starting ease factor
	}

	switch grade {
	case melvin.GradeFail:
		item.Ease = maxF(p.EaseFloor, item.Ease-0.8)
		item.IntervalDays = maxF(p.MinIntervalDay, item.IntervalDays*p.LapseFactor)
		item.Streak = 0
		item.Lapses++
	default:
		item.Ease = maxF(p.EaseFloor, item.Ease+easeDelta(grade, p))
		if item.Streak == 0 {
			item.IntervalDays = p.MinIntervalDay
		} else {
			item.IntervalDays = minF(p.MaxIntervalDay, item.IntervalDays*item.Ease)
		}
		if grade == melvin.GradeEasy {
			item.IntervalDays = minF(p.MaxIntervalDay, item.IntervalDays*p.EasyBonus)
		}
		item.Streak++
	}

	item.DueTimeNs = nowNs + int64(item.IntervalDays*86400*1e9)
	return item
}

func easeDelta(grade melvin.Grade, p Params) float64 {
	switch grade {
	case melvin.GradeHard:
		return p.EaseHard
	case melvin.GradeEasy:
		return p.EaseEasy
	default:
		return p.EaseGood
	}
}

func maxF(a, b float64) float64 {
	if a > b {
		return a
	}
	return b
}

func minF(a, b float64) float64 {
	if a < b {
		return a
	}
	return b
}

// DueItems returns the subset of items due at or before nowNs, sorted by
// descending Urgency (most overdue/most-lapsed first).
func DueItems(items []*melvin.SRSItem, nowNs int64) []*melvin.SRSItem {
	var due []*melvin.SRSItem
	for _, it := range items {
		if it.DueTimeNs <= nowNs {
			due = append(due, it)
		}
	}
	sort.Slice(due, func(i, j int) bool {
		return due[i].Urgency(nowNs) > due[j].Urgency(nowNs)
	})
	return due
}
