package store

import (
	"context"
	"database/sql"
	"fmt"

	json "github.com/goccy/go-json"
	_ "modernc.org/sqlite"

	"github.com/thebtf/melvin/pkg/melvin"
)

// sqliteSchema creates every table SQLiteStore needs. Plain DDL rather
// than gormigrate's versioned migrations: modernc.org/sqlite has no gorm
// dialector in this module's dependency set, so the sqlite backend talks
// to database/sql directly instead of through gorm.
const sqliteSchema = `
CREATE TABLE IF NOT EXISTS teaching_sessions (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	file_path TEXT NOT NULL,
	duration_ms INTEGER NOT NULL,
	nodes_before INTEGER NOT NULL,
	nodes_after INTEGER NOT NULL,
	edges_before INTEGER NOT NULL,
	edges_after INTEGER NOT NULL,
	nodes_added INTEGER NOT NULL,
	edges_added INTEGER NOT NULL,
	pass_rate REAL NOT NULL,
	retention_score REAL NOT NULL,
	growth_efficiency REAL NOT NULL,
	created_at_ns INTEGER NOT NULL
);
CREATE TABLE IF NOT EXISTS metrics_rows (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	tick INTEGER NOT NULL,
	entropy REAL NOT NULL,
	top2_margin REAL NOT NULL,
	success_rate REAL NOT NULL,
	edge_reuse_ratio REAL NOT NULL,
	coherence_drift REAL NOT NULL,
	entropy_trend REAL NOT NULL,
	recorded_at_ns INTEGER NOT NULL
);
CREATE TABLE IF NOT EXISTS genome_generations (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	generation INTEGER NOT NULL,
	fitness REAL NOT NULL,
	params_json BLOB NOT NULL,
	created_at_ns INTEGER NOT NULL
);
CREATE TABLE IF NOT EXISTS srs_items (
	edge_id INTEGER PRIMARY KEY,
	ease REAL NOT NULL,
	interval_days REAL NOT NULL,
	due_time_ns INTEGER NOT NULL,
	streak INTEGER NOT NULL,
	lapses INTEGER NOT NULL,
	total_reviews INTEGER NOT NULL,
	last_grade INTEGER NOT NULL,
	created_time_ns INTEGER NOT NULL,
	last_review_ns INTEGER NOT NULL
);
`

// SQLiteStore is the default durable side-store: a single local file, no
// external process required. Appropriate for the single-process,
// single-writer model §5 describes.
type SQLiteStore struct {
	db *sql.DB
}

// OpenSQLite opens (creating if absent) a sqlite-backed Store at path.
func OpenSQLite(path string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, melvin.Wrap("store.OpenSQLite", melvin.KindIOError, err)
	}
	db.SetMaxOpenConns(1) // modernc.org/sqlite serializes writers anyway
	if _, err := db.Exec(sqliteSchema); err != nil {
		db.Close()
		return nil, melvin.Wrap("store.OpenSQLite", melvin.KindIOError, err)
	}
	return &SQLiteStore{db: db}, nil
}

func (s *SQLiteStore) SaveTeachingSession(ctx context.Context, rec TeachingSessionRecord) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO teaching_sessions
			(file_path, duration_ms, nodes_before, nodes_after, edges_before, edges_after,
			 nodes_added, edges_added, pass_rate, retention_score, growth_efficiency, created_at_ns)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.FilePath, rec.DurationMs, rec.NodesBefore, rec.NodesAfter, rec.EdgesBefore, rec.EdgesAfter,
		rec.NodesAdded, rec.EdgesAdded, rec.PassRate, rec.RetentionScore, rec.GrowthEfficiency, rec.CreatedAtNs)
	if err != nil {
		return melvin.Wrap("store.SaveTeachingSession", melvin.KindIOError, err)
	}
	return nil
}

func (s *SQLiteStore) SaveMetricsRow(ctx context.Context, rec MetricsRowRecord) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO metrics_rows
			(tick, entropy, top2_margin, success_rate, edge_reuse_ratio, coherence_drift, entropy_trend, recorded_at_ns)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.Tick, rec.Entropy, rec.Top2Margin, rec.SuccessRate, rec.EdgeReuseRatio, rec.CoherenceDrift, rec.EntropyTrend, rec.RecordedAtNs)
	if err != nil {
		return melvin.Wrap("store.SaveMetricsRow", melvin.KindIOError, err)
	}
	return nil
}

func (s *SQLiteStore) SaveGenomeGeneration(ctx context.Context, g *melvin.Genome, nowNs int64) error {
	blob, err := json.Marshal(g)
	if err != nil {
		return melvin.Wrap("store.SaveGenomeGeneration", melvin.KindInvalidInput, err)
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO genome_generations (generation, fitness, params_json, created_at_ns)
		VALUES (?, ?, ?, ?)`,
		g.Generation, g.Fitness, blob, nowNs)
	if err != nil {
		return melvin.Wrap("store.SaveGenomeGeneration", melvin.KindIOError, err)
	}
	return nil
}

func (s *SQLiteStore) LatestGenome(ctx context.Context) (*melvin.Genome, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT params_json FROM genome_generations ORDER BY generation DESC LIMIT 1`)
	var blob []byte
	if err := row.Scan(&blob); err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, melvin.Wrap("store.LatestGenome", melvin.KindIOError, err)
	}
	var g melvin.Genome
	if err := json.Unmarshal(blob, &g); err != nil {
		return nil, melvin.Wrap("store.LatestGenome", melvin.KindSnapshotCorrupt, err)
	}
	return &g, nil
}

func (s *SQLiteStore) SaveSRSItem(ctx context.Context, item *melvin.SRSItem) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO srs_items
			(edge_id, ease, interval_days, due_time_ns, streak, lapses, total_reviews, last_grade, created_time_ns, last_review_ns)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(edge_id) DO UPDATE SET
			ease=excluded.ease, interval_days=excluded.interval_days, due_time_ns=excluded.due_time_ns,
			streak=excluded.streak, lapses=excluded.lapses, total_reviews=excluded.total_reviews,
			last_grade=excluded.last_grade, last_review_ns=excluded.last_review_ns`,
		item.EdgeID, item.Ease, item.IntervalDays, item.DueTimeNs, item.Streak, item.Lapses,
		item.TotalReviews, item.LastGrade, item.CreatedTimeNs, item.LastReviewNs)
	if err != nil {
		return melvin.Wrap("store.SaveSRSItem", melvin.KindIOError, err)
	}
	return nil
}

func (s *SQLiteStore) LoadSRSItems(ctx context.Context) ([]*melvin.SRSItem, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT edge_id, ease, interval_days, due_time_ns, streak, lapses, total_reviews, last_grade, created_time_ns, last_review_ns
		FROM srs_items`)
	if err != nil {
		return nil, melvin.Wrap("store.LoadSRSItems", melvin.KindIOError, err)
	}
	defer rows.Close()

	var items []*melvin.SRSItem
	for rows.Next() {
		item := &melvin.SRSItem{}
		if err := rows.Scan(&item.EdgeID, &item.Ease, &item.IntervalDays, &item.DueTimeNs,
			&item.Streak, &item.Lapses, &item.TotalReviews, &item.LastGrade,
			&item.CreatedTimeNs, &item.LastReviewNs); err != nil {
			return nil, melvin.Wrap("store.LoadSRSItems", melvin.KindIOError, err)
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, melvin.Wrap("store.LoadSRSItems", melvin.KindIOError, err)
	}
	return items, nil
}

func (s *SQLiteStore) Close() error {
	if err := s.db.Close(); err != nil {
		return fmt.Errorf("store: close sqlite: %w", err)
	}
	return nil
}
