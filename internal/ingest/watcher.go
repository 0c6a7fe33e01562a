// Package ingest implements §6's external ingestion front doors: a
// fsnotify-backed inbox directory watcher (§6.4) and a chi-routed HTTP
// batch endpoint (§6.5).
package ingest

import (
	"context"
	"os"
	"path/filepath"
	"sort"

	"github.com/fsnotify/fsnotify"

	"github.com/thebtf/melvin/pkg/melvin"
)

// FileProcessor runs one teaching file through parse+ingest+verify and
// reports the resulting graph growth. internal/scheduler supplies the
// concrete implementation, wiring internal/teaching and internal/graphstore.
type FileProcessor interface {
	ProcessFile(ctx context.Context, path string) (nodesAdded, edgesAdded int, err error)
}

// WatcherConfig mirrors the subset of §6.4's runtime config the file
// watcher needs.
type WatcherConfig struct {
	InboxDir        string
	ProcessedDir    string
	FailedDir       string
	MaxFilesPerTick int
}

// Watcher polls InboxDir once per scheduler tick, bounded by
// MaxFilesPerTick (§5 "ingestion batches process at most max_files_per_tick
// entries; remaining entries wait"), moving each processed file into
// ProcessedDir or FailedDir. It also exposes the underlying fsnotify event
// stream so a caller can wake early on new files rather than only on the
// poll cadence.
type Watcher struct {
	fsw *fsnotify.Watcher
	cfg WatcherConfig
	proc FileProcessor
}

// NewWatcher starts watching cfg.InboxDir for filesystem events.
func NewWatcher(cfg WatcherConfig, proc FileProcessor) (*Watcher, error) {
	if err := os.MkdirAll(cfg.InboxDir, 0o755); err != nil {
		return nil, melvin.Wrap("ingest.NewWatcher", melvin.KindIOError, err)
	}
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, melvin.Wrap("ingest.NewWatcher", melvin.KindIOError, err)
	}
	if err := fsw.Add(cfg.InboxDir); err != nil {
		fsw.Close()
		return nil, melvin.Wrap("ingest.NewWatcher", melvin.KindIOError, err)
	}
	return &Watcher{fsw: fsw, cfg: cfg, proc: proc}, nil
}

// Events exposes the raw fsnotify event stream.
func (w *Watcher) Events() <-chan fsnotify.Event { return w.fsw.Events }

// Errors exposes the raw fsnotify error stream.
func (w *Watcher) Errors() <-chan error { return w.fsw.Errors }

// Close stops watching.
func (w *Watcher) Close() error { return w.fsw.Close() }

// TickResult summarizes one Tick call, feeding directly into §6.3's
// files_seen/files_ok/files_failed/nodes/edges metrics columns.
type TickResult struct {
	FilesSeen   int
	FilesOK     int
	FilesFailed int
	NodesAdded  int
	EdgesAdded  int
}

// Tick lists InboxDir, processes up to MaxFilesPerTick regular files in
// lexical order (deterministic), and relocates each to ProcessedDir or
// FailedDir depending on outcome.
func (w *Watcher) Tick(ctx context.Context) (TickResult, error) {
	entries, err := os.ReadDir(w.cfg.InboxDir)
	if err != nil {
		return TickResult{}, melvin.Wrap("ingest.Tick", melvin.KindIOError, err)
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].Name() < entries[j].Name() })

	var result TickResult
	limit := w.cfg.MaxFilesPerTick
	if limit <= 0 {
		limit = len(entries)
	}
	for _, e := range entries {
		if e.IsDir() || result.FilesSeen >= limit {
			continue
		}
		result.FilesSeen++
		path := filepath.Join(w.cfg.InboxDir, e.Name())
		nodes, edges, perr := w.proc.ProcessFile(ctx, path)

		destDir := w.cfg.ProcessedDir
		if perr != nil {
			destDir = w.cfg.FailedDir
			result.FilesFailed++
		} else {
			result.FilesOK++
			result.NodesAdded += nodes
			result.EdgesAdded += edges
		}
		if destDir != "" {
			_ = os.MkdirAll(destDir, 0o755)
			_ = os.Rename(path, filepath.Join(destDir, e.Name()))
		}
	}
	return result, nil
}
