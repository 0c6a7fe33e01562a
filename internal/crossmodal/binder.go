package crossmodal

import (
	"context"
	"math"
	"sync"

	"github.com/thebtf/melvin/pkg/melvin"
)

// GateParams are §4.H's grounding-gate constants: score is scaled by
// (1 + alpha*context + beta*temporal) before a temperature softmax.
type GateParams struct {
	Alpha       float64
	Beta        float64
	Temperature float64
	// TemporalDecay is gamma, the per-tick multiplicative decay applied
	// to each binding's temporal consistency.
	TemporalDecay float64
}

// DefaultGateParams are reasonable defaults in the absence of a genome
// override (§6.4 "any numerical parameter may be overridden").
func DefaultGateParams() GateParams {
	return GateParams{Alpha: 0.5, Beta: 0.5, Temperature: 1.0, TemporalDecay: 0.97}
}

type modalityKey struct {
	modality melvin.Modality
	key      string
}

// Binder owns the bidirectional concept<->(modality,key) bindings table
// and the per-key temporal consistency state, and performs §4.H's gated
// grounding over a ModalityIndex.
type Binder struct {
	mu        sync.RWMutex
	index     ModalityIndex
	byConcept map[melvin.NodeID][]melvin.CrossModalBinding
	byKey     map[modalityKey][]melvin.CrossModalBinding
	temporal  map[modalityKey]float64
}

// NewBinder wraps a ModalityIndex with the bindings table.
func NewBinder(index ModalityIndex) *Binder {
	return &Binder{
		index:     index,
		byConcept: make(map[melvin.NodeID][]melvin.CrossModalBinding),
		byKey:     make(map[modalityKey][]melvin.CrossModalBinding),
		temporal:  make(map[modalityKey]float64),
	}
}

// Bind records a concept_id<->(modality,key) binding and indexes the
// perception key's embedding, seeding its temporal consistency at 1.0
// (freshly observed, per §4.H "temporal consistency ... re-set per
// query" for context but decays over ticks for temporal).
func (b *Binder) Bind(ctx context.Context, binding melvin.CrossModalBinding, v Vector) error {
	if err := b.index.Upsert(ctx, binding.Modality, binding.Key, v); err != nil {
		return err
	}
	mk := modalityKey{binding.Modality, binding.Key}

	b.mu.Lock()
	defer b.mu.Unlock()
	b.byConcept[binding.ConceptID] = appendBinding(b.byConcept[binding.ConceptID], binding)
	b.byKey[mk] = appendBinding(b.byKey[mk], binding)
	b.temporal[mk] = 1.0
	return nil
}

func appendBinding(bindings []melvin.CrossModalBinding, b melvin.CrossModalBinding) []melvin.CrossModalBinding {
	for i, existing := range bindings {
		if existing.ConceptID == b.ConceptID && existing.Modality == b.Modality && existing.Key == b.Key {
			bindings[i] = b
			return bindings
		}
	}
	return append(bindings, b)
}

// BindingsForConcept returns every modality binding a concept participates in.
func (b *Binder) BindingsForConcept(id melvin.NodeID) []melvin.CrossModalBinding {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return append([]melvin.CrossModalBinding(nil), b.byConcept[id]...)
}

// Tick decays every binding's temporal consistency by gamma (§4.H
// "temporal consistency decays by factor gamma per tick").
func (b *Binder) Tick(gamma float64) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for k, v := range b.temporal {
		b.temporal[k] = v * gamma
	}
}

// GroundedConcept is one ranked result of Ground: a concept reached via
// some perception key, with its gated score and post-softmax probability.
type GroundedConcept struct {
	ConceptID melvin.NodeID
	Key       string
	RawScore  float64
	Gated     float64
	Prob      float64
}

// Ground runs §4.H's grounding pipeline: top_k_cosine lookup in the
// query modality, multiplicative gating of each hit's cosine score by
// (1 + alpha*context + beta*temporal), then a temperature softmax over
// the gated scores of every bound concept. contextRelevance is supplied
// fresh per call (§4.H "context relevance is re-set per query").
func (b *Binder) Ground(ctx context.Context, modality melvin.Modality, query Vector, k int, contextRelevance float64, params GateParams) ([]GroundedConcept, error) {
	matches, err := b.index.TopKCosine(ctx, modality, query, k)
	if err != nil {
		return nil, err
	}

	b.mu.RLock()
	var results []GroundedConcept
	for _, m := range matches {
		mk := modalityKey{modality, m.Key}
		temporal := b.temporal[mk]
		gated := m.Score * (1 + params.Alpha*contextRelevance + params.Beta*temporal)
		for _, binding := range b.byKey[mk] {
			results = append(results, GroundedConcept{
				ConceptID: binding.ConceptID,
				Key:       m.Key,
				RawScore:  m.Score,
				Gated:     gated * binding.Weight,
			})
		}
	}
	b.mu.RUnlock()

	softmax(results, params.Temperature)
	return results, nil
}

// softmax fills in each result's Prob field with the temperature-scaled
// softmax of its Gated score, in place.
func softmax(results []GroundedConcept, temperature float64) {
	if len(results) == 0 {
		return
	}
	if temperature <= 0 {
		temperature = 1.0
	}
	max := results[0].Gated
	for _, r := range results[1:] {
		if r.Gated > max {
			max = r.Gated
		}
	}
	var sum float64
	exps := make([]float64, len(results))
	for i, r := range results {
		e := math.Exp((r.Gated - max) / temperature)
		exps[i] = e
		sum += e
	}
	if sum == 0 {
		return
	}
	for i := range results {
		results[i].Prob = exps[i] / sum
	}
}
