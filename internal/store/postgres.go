package store

import (
	"context"
	"fmt"
	"time"

	json "github.com/goccy/go-json"
	"github.com/go-gormigrate/gormigrate/v2"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/logger"

	"github.com/thebtf/melvin/pkg/melvin"
)

// teachingSessionModel, metricsRowModel, genomeGenerationModel, srsItemModel
// are the gorm models backing PostgresStore, grounded on the teacher's
// internal/db/gorm model-per-table shape (SDKSession, Observation, ...).
type teachingSessionModel struct {
	ID               uint `gorm:"primaryKey"`
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

func (teachingSessionModel) TableName() string { return "teaching_sessions" }

type metricsRowModel struct {
	ID             uint `gorm:"primaryKey"`
	Tick           uint64
	Entropy        float64
	Top2Margin     float64
	SuccessRate    float64
	EdgeReuseRatio float64
	CoherenceDrift float64
	EntropyTrend   float64
	RecordedAtNs   int64
}

func (metricsRowModel) TableName() string { return "metrics_rows" }

type genomeGenerationModel struct {
	ID          uint `gorm:"primaryKey"`
	Generation  uint64
	Fitness     float64
	ParamsJSON  []byte
	CreatedAtNs int64
}

func (genomeGenerationModel) TableName() string { return "genome_generations" }

type srsItemModel struct {
	EdgeID        uint64 `gorm:"primaryKey;column:edge_id"`
	Ease          float64
	IntervalDays  float64
	DueTimeNs     int64
	Streak        uint32
	Lapses        uint32
	TotalReviews  uint32
	LastGrade     uint8
	CreatedTimeNs int64
	LastReviewNs  int64
}

func (srsItemModel) TableName() string { return "srs_items" }

// PostgresStore is the production durable side-store: gorm over
// jackc/pgx, schema-versioned with gormigrate, grounded directly on the
// teacher's internal/db/gorm.Store connection-pooling pattern.
type PostgresStore struct {
	db *gorm.DB
}

// OpenPostgres connects to dsn and runs pending migrations.
func OpenPostgres(dsn string) (*PostgresStore, error) {
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger:      logger.Default.LogMode(logger.Warn),
		PrepareStmt: true,
	})
	if err != nil {
		return nil, melvin.Wrap("store.OpenPostgres", melvin.KindIOError, err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, melvin.Wrap("store.OpenPostgres", melvin.KindIOError, err)
	}
	sqlDB.SetMaxOpenConns(10)
	sqlDB.SetMaxIdleConns(5)
	sqlDB.SetConnMaxLifetime(time.Hour)

	if err := runMigrations(db); err != nil {
		return nil, melvin.Wrap("store.OpenPostgres", melvin.KindIOError, err)
	}
	return &PostgresStore{db: db}, nil
}

func runMigrations(db *gorm.DB) error {
	m := gormigrate.New(db, gormigrate.DefaultOptions, []*gormigrate.Migration{
		{
			ID: "001_core_tables",
			Migrate: func(tx *gorm.DB) error {
				if err := tx.AutoMigrate(&teachingSessionModel{}); err != nil {
					return err
				}
				if err := tx.AutoMigrate(&metricsRowModel{}); err != nil {
					return err
				}
				if err := tx.AutoMigrate(&genomeGenerationModel{}); err != nil {
					return err
				}
				return tx.AutoMigrate(&srsItemModel{})
			},
			Rollback: func(tx *gorm.DB) error {
				return tx.Migrator().DropTable("teaching_sessions", "metrics_rows", "genome_generations", "srs_items")
			},
		},
	})
	return m.Migrate()
}

func (p *PostgresStore) SaveTeachingSession(ctx context.Context, rec TeachingSessionRecord) error {
	m := teachingSessionModel{
		FilePath: rec.FilePath, DurationMs: rec.DurationMs,
		NodesBefore: rec.NodesBefore, NodesAfter: rec.NodesAfter,
		EdgesBefore: rec.EdgesBefore, EdgesAfter: rec.EdgesAfter,
		NodesAdded: rec.NodesAdded, EdgesAdded: rec.EdgesAdded,
		PassRate: rec.PassRate, RetentionScore: rec.RetentionScore,
		GrowthEfficiency: rec.GrowthEfficiency, CreatedAtNs: rec.CreatedAtNs,
	}
	if err := p.db.WithContext(ctx).Create(&m).Error; err != nil {
		return melvin.Wrap("store.SaveTeachingSession", melvin.KindIOError, err)
	}
	return nil
}

func (p *PostgresStore) SaveMetricsRow(ctx context.Context, rec MetricsRowRecord) error {
	m := metricsRowModel{
		Tick: rec.Tick, Entropy: rec.Entropy, Top2Margin: rec.Top2Margin,
		SuccessRate: rec.SuccessRate, EdgeReuseRatio: rec.EdgeReuseRatio,
		CoherenceDrift: rec.CoherenceDrift, EntropyTrend: rec.EntropyTrend,
		RecordedAtNs: rec.RecordedAtNs,
	}
	if err := p.db.WithContext(ctx).Create(&m).Error; err != nil {
		return melvin.Wrap("store.SaveMetricsRow", melvin.KindIOError, err)
	}
	return nil
}

func (p *PostgresStore) SaveGenomeGeneration(ctx context.Context, g *melvin.Genome, nowNs int64) error {
	blob, err := json.Marshal(g)
	if err != nil {
		return melvin.Wrap("store.SaveGenomeGeneration", melvin.KindInvalidInput, err)
	}
	m := genomeGenerationModel{Generation: g.Generation, Fitness: g.Fitness, ParamsJSON: blob, CreatedAtNs: nowNs}
	if err := p.db.WithContext(ctx).Create(&m).Error; err != nil {
		return melvin.Wrap("store.SaveGenomeGeneration", melvin.KindIOError, err)
	}
	return nil
}

func (p *PostgresStore) LatestGenome(ctx context.Context) (*melvin.Genome, error) {
	var m genomeGenerationModel
	err := p.db.WithContext(ctx).Order("generation DESC").First(&m).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, melvin.Wrap("store.LatestGenome", melvin.KindIOError, err)
	}
	var g melvin.Genome
	if err := json.Unmarshal(m.ParamsJSON, &g); err != nil {
		return nil, melvin.Wrap("store.LatestGenome", melvin.KindSnapshotCorrupt, err)
	}
	return &g, nil
}

func (p *PostgresStore) SaveSRSItem(ctx context.Context, item *melvin.SRSItem) error {
	m := srsItemModel{
		EdgeID: uint64(item.EdgeID), Ease: item.Ease, IntervalDays: item.IntervalDays,
		DueTimeNs: item.DueTimeNs, Streak: item.Streak, Lapses: item.Lapses,
		TotalReviews: item.TotalReviews, LastGrade: uint8(item.LastGrade),
		CreatedTimeNs: item.CreatedTimeNs, LastReviewNs: item.LastReviewNs,
	}
	err := p.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "edge_id"}},
			DoUpdates: clause.AssignmentColumns([]string{
				"ease", "interval_days", "due_time_ns", "streak", "lapses",
				"total_reviews", "last_grade", "last_review_ns",
			}),
		}).
		Create(&m).Error
	if err != nil {
		return melvin.Wrap("store.SaveSRSItem", melvin.KindIOError, err)
	}
	return nil
}

func (p *PostgresStore) LoadSRSItems(ctx context.Context) ([]*melvin.SRSItem, error) {
	var rows []srsItemModel
	if err := p.db.WithContext(ctx).Find(&rows).Error; err != nil {
		return nil, melvin.Wrap("store.LoadSRSItems", melvin.KindIOError, err)
	}
	items := make([]*melvin.SRSItem, len(rows))
	for i, r := range rows {
		items[i] = &melvin.SRSItem{
			EdgeID: melvin.EdgeID(r.EdgeID), Ease: r.Ease, IntervalDays: r.IntervalDays,
			DueTimeNs: r.DueTimeNs, Streak: r.Streak, Lapses: r.Lapses,
			TotalReviews: r.TotalReviews, LastGrade: melvin.Grade(r.LastGrade),
			CreatedTimeNs: r.CreatedTimeNs, LastReviewNs: r.LastReviewNs,
		}
	}
	return items, nil
}

func (p *PostgresStore) Close() error {
	sqlDB, err := p.db.DB()
	if err != nil {
		return fmt.Errorf("store: get sql.DB: %w", err)
	}
	return sqlDB.Close()
}
