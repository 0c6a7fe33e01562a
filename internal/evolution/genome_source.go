package evolution

import (
	"sync/atomic"

	"github.com/thebtf/melvin/pkg/melvin"
)

// GenomeSource is published as an atomic pointer so every reader
// (internal/reasoning, internal/emergent, internal/srs,
// internal/consolidation) dereferences the active genome fresh on every
// call with no lock contention (§9 "hot-swap": "the scoring kernel and
// reasoning engine dereference an atomic pointer to the active genome
// once per call").
type GenomeSource struct {
	ptr atomic.Pointer[melvin.Genome]
}

// NewGenomeSource seeds a GenomeSource with an initial genome.
func NewGenomeSource(initial *melvin.Genome) *GenomeSource {
	s := &GenomeSource{}
	s.ptr.Store(initial)
	return s
}

// Current returns the active genome. Implements the Current() contract
// internal/reasoning.GenomeSource, internal/emergent's genome source,
// internal/srs.GenomeSource, and internal/consolidation.GenomeSource all
// share.
func (s *GenomeSource) Current() *melvin.Genome {
	return s.ptr.Load()
}

// Swap atomically replaces the active genome and returns the one it
// replaced.
func (s *GenomeSource) Swap(next *melvin.Genome) *melvin.Genome {
	return s.ptr.Swap(next)
}
