package crossmodal

import (
	"context"
	"sort"
	"sync"

	"github.com/thebtf/melvin/pkg/melvin"
)

// Match is one top_k_cosine hit (§4.H).
type Match struct {
	Key   string
	Score float64
}

// ModalityIndex supports §4.H's per-modality top_k_cosine(q). Two
// implementations exist: FlatIndex (in-memory, always available) and
// PGVectorIndex (postgres+pgvector backed, grounded on the teacher's
// internal/vector/pgvector.Client).
type ModalityIndex interface {
	Upsert(ctx context.Context, modality melvin.Modality, key string, v Vector) error
	Remove(ctx context.Context, modality melvin.Modality, key string) error
	TopKCosine(ctx context.Context, modality melvin.Modality, query Vector, k int) ([]Match, error)
}

// FlatIndex is a brute-force in-memory cosine index, one bucket per
// modality. It is the default index: always available, no external
// dependency, adequate at the scale a single-process reasoning loop
// operates at.
type FlatIndex struct {
	mu      sync.RWMutex
	vectors map[melvin.Modality]map[string]Vector
}

// NewFlatIndex constructs an empty FlatIndex.
func NewFlatIndex() *FlatIndex {
	return &FlatIndex{vectors: make(map[melvin.Modality]map[string]Vector)}
}

func (f *FlatIndex) Upsert(_ context.Context, modality melvin.Modality, key string, v Vector) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	bucket, ok := f.vectors[modality]
	if !ok {
		bucket = make(map[string]Vector)
		f.vectors[modality] = bucket
	}
	bucket[key] = v
	return nil
}

func (f *FlatIndex) Remove(_ context.Context, modality melvin.Modality, key string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.vectors[modality], key)
	return nil
}

func (f *FlatIndex) TopKCosine(_ context.Context, modality melvin.Modality, query Vector, k int) ([]Match, error) {
	f.mu.RLock()
	defer f.mu.RUnlock()
	bucket := f.vectors[modality]
	matches := make([]Match, 0, len(bucket))
	for key, v := range bucket {
		matches = append(matches, Match{Key: key, Score: CosineSimilarity(query, v)})
	}
	sort.Slice(matches, func(i, j int) bool {
		if matches[i].Score != matches[j].Score {
			return matches[i].Score > matches[j].Score
		}
		return matches[i].Key < matches[j].Key
	})
	if k > 0 && len(matches) > k {
		matches = matches[:k]
	}
	return matches, nil
}
