package scheduler

import (
	"encoding/csv"
	"fmt"
	"os"
	"strconv"
)

// metricsHeader is §6.3's fixed CSV header.
var metricsHeader = []string{
	"timestamp", "tick", "files_seen", "files_ok", "files_failed",
	"nodes", "edges", "multihop_probe_success", "multihop_avg_path_len",
	"decay_events", "avg_edge_weight", "pct_edges_below_0_1",
	"srs_due", "srs_reviewed", "srs_pass_rate", "srs_avg_interval", "srs_avg_ease",
}

// MetricsRow is one tick's worth of §6.3 columns.
type MetricsRow struct {
	TimestampNs          int64
	Tick                 uint64
	FilesSeen            int
	FilesOK              int
	FilesFailed          int
	Nodes                int
	Edges                int
	MultihopProbeSuccess float64
	MultihopAvgPathLen   float64
	DecayEvents          int
	AvgEdgeWeight        float64
	PctEdgesBelow0_1     float64
	SRSDue               int
	SRSReviewed          int
	SRSPassRate          float64
	SRSAvgInterval       float64
	SRSAvgEase           float64
}

// MetricsLog appends MetricsRow values to a CSV file, writing the header
// once on first open (§6.3 "Appended atomically per tick" — each row is
// flushed and synced before the writer returns control to the tick
// loop, so a crash mid-tick never leaves a half-written row).
type MetricsLog struct {
	f *os.File
	w *csv.Writer
}

// OpenMetricsLog opens (creating if absent) the metrics CSV at path,
// writing the header only when the file is new/empty.
func OpenMetricsLog(path string) (*MetricsLog, error) {
	info, statErr := os.Stat(path)
	needsHeader := statErr != nil || info.Size() == 0

	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, fmt.Errorf("open metrics log: %w", err)
	}
	w := csv.NewWriter(f)
	if needsHeader {
		if err := w.Write(metricsHeader); err != nil {
			f.Close()
			return nil, err
		}
		w.Flush()
	}
	return &MetricsLog{f: f, w: w}, nil
}

// Append writes one row and flushes+syncs it before returning.
func (m *MetricsLog) Append(row MetricsRow) error {
	record := []string{
		strconv.FormatInt(row.TimestampNs, 10),
		strconv.FormatUint(row.Tick, 10),
		strconv.Itoa(row.FilesSeen),
		strconv.Itoa(row.FilesOK),
		strconv.Itoa(row.FilesFailed),
		strconv.Itoa(row.Nodes),
		strconv.Itoa(row.Edges),
		strconv.FormatFloat(row.MultihopProbeSuccess, 'f', -1, 64),
		strconv.FormatFloat(row.MultihopAvgPathLen, 'f', -1, 64),
		strconv.Itoa(row.DecayEvents),
		strconv.FormatFloat(row.AvgEdgeWeight, 'f', -1, 64),
		strconv.FormatFloat(row.PctEdgesBelow0_1, 'f', -1, 64),
		strconv.Itoa(row.SRSDue),
		strconv.Itoa(row.SRSReviewed),
		strconv.FormatFloat(row.SRSPassRate, 'f', -1, 64),
		strconv.FormatFloat(row.SRSAvgInterval, 'f', -1, 64),
		strconv.FormatFloat(row.SRSAvgEase, 'f', -1, 64),
	}
	if err := m.w.Write(record); err != nil {
		return err
	}
	m.w.Flush()
	if err := m.w.Error(); err != nil {
		return err
	}
	return m.f.Sync()
}

// Close flushes and closes the underlying file.
func (m *MetricsLog) Close() error {
	m.w.Flush()
	return m.f.Close()
}
