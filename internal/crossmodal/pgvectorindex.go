package crossmodal

import (
	"context"
	"fmt"

	pgvec "github.com/pgvector/pgvector-go"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/thebtf/melvin/pkg/melvin"
)

// vectorRecord is the GORM model backing the crossmodal_vectors table,
// grounded directly on the teacher's internal/vector/pgvector vectorRecord.
type vectorRecord struct {
	Modality  uint8        `gorm:"primaryKey;column:modality"`
	Key       string       `gorm:"primaryKey;column:key"`
	Embedding pgvec.Vector `gorm:"column:embedding"`
}

func (vectorRecord) TableName() string { return "crossmodal_vectors" }

// PGVectorIndex is a postgres+pgvector backed ModalityIndex, an
// alternative to FlatIndex for deployments that already run postgres for
// internal/store and want the cross-modal index to survive a restart.
type PGVectorIndex struct {
	db *gorm.DB
}

// NewPGVectorIndex wraps an existing gorm connection. Migration of the
// crossmodal_vectors table is the caller's responsibility; internal/store's
// migrations do not create it.
func NewPGVectorIndex(db *gorm.DB) *PGVectorIndex {
	return &PGVectorIndex{db: db}
}

func (p *PGVectorIndex) Upsert(ctx context.Context, modality melvin.Modality, key string, v Vector) error {
	rec := vectorRecord{Modality: uint8(modality), Key: key, Embedding: pgvec.NewVector(v[:])}
	return p.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "modality"}, {Name: "key"}},
			DoUpdates: clause.AssignmentColumns([]string{"embedding"}),
		}).
		Create(&rec).Error
}

func (p *PGVectorIndex) Remove(ctx context.Context, modality melvin.Modality, key string) error {
	return p.db.WithContext(ctx).
		Where("modality = ? AND key = ?", uint8(modality), key).
		Delete(&vectorRecord{}).Error
}

// TopKCosine orders by pgvector's cosine-distance operator and converts
// distance back to similarity (1-distance, valid since embeddings are
// unit-normalized), mirroring the teacher's raw-SQL Query method.
func (p *PGVectorIndex) TopKCosine(ctx context.Context, modality melvin.Modality, query Vector, k int) ([]Match, error) {
	if k <= 0 {
		k = 10
	}
	qv := pgvec.NewVector(query[:])

	var rows []struct {
		Key      string
		Distance float64
	}
	err := p.db.WithContext(ctx).
		Table("crossmodal_vectors").
		Select("key, embedding <=> ? AS distance", qv).
		Where("modality = ?", uint8(modality)).
		Order("distance").
		Limit(k).
		Scan(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("crossmodal: top_k_cosine: %w", err)
	}

	matches := make([]Match, len(rows))
	for i, r := range rows {
		matches[i] = Match{Key: r.Key, Score: 1 - r.Distance}
	}
	return matches, nil
}
