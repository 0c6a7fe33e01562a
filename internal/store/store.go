// Package store is Melvin's durable side-store: an operational audit
// trail (teaching-session outcomes, metrics-row history, genome
// generation history, SRS item state) kept independent of the in-memory
// graph (§4.E, §4.F additions). It is grounded on the teacher's
// internal/db/gorm package's shape (pooled gorm+postgres connection,
// gormigrate schema migrations, OnConflict upserts) but scoped to what
// Melvin actually persists rather than carrying over IDE-memory CRUD for
// sessions/observations/patterns the teacher's domain needed and Melvin
// has no use for.
package store

import (
	"context"

	"github.com/thebtf/melvin/pkg/melvin"
)

// TeachingSessionRecord is one ingested teaching file's outcome, the
// durable counterpart of internal/teaching.SessionSummary.
type TeachingSessionRecord struct {
	FilePath         string
	DurationMs       int64
	NodesBefore      int
	NodesAfter       int
	EdgesBefore      int
	EdgesAfter       int
	NodesAdded       int
	EdgesAdded       int
	PassRate         float64
	RetentionScore   float64
	GrowthEfficiency float64
	CreatedAtNs      int64
}

// MetricsRowRecord is one scheduler tick's metrics snapshot, the durable
// counterpart of §6.3's CSV metrics log.
type MetricsRowRecord struct {
	Tick           uint64
	Entropy        float64
	Top2Margin     float64
	SuccessRate    float64
	EdgeReuseRatio float64
	CoherenceDrift float64
	EntropyTrend   float64
	RecordedAtNs   int64
}

// GenomeGenerationRecord is one accepted hot-swap, an append-only history
// of the active genome so a restart resumes from the last generation
// rather than compiled-in defaults (§4.F additions).
type GenomeGenerationRecord struct {
	Generation  uint64
	Fitness     float64
	ParamsJSON  []byte
	CreatedAtNs int64
}

// Store is the durable side-store contract. Two implementations exist:
// SQLiteStore (default, modernc.org/sqlite, no external dependency) and
// PostgresStore (gorm+gormigrate+postgres, for deployments that already
// run postgres for internal/crossmodal's PGVectorIndex).
type Store interface {
	SaveTeachingSession(ctx context.Context, rec TeachingSessionRecord) error
	SaveMetricsRow(ctx context.Context, rec MetricsRowRecord) error

	SaveGenomeGeneration(ctx context.Context, g *melvin.Genome, nowNs int64) error
	LatestGenome(ctx context.Context) (*melvin.Genome, error)

	SaveSRSItem(ctx context.Context, item *melvin.SRSItem) error
	LoadSRSItems(ctx context.Context) ([]*melvin.SRSItem, error)

	Close() error
}
