package ingest

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubProcessor struct {
	fail map[string]bool
}

func (s stubProcessor) ProcessFile(_ context.Context, path string) (int, int, error) {
	if s.fail[filepath.Base(path)] {
		return 0, 0, assertError{}
	}
	return 2, 1, nil
}

type assertError struct{}

func (assertError) Error() string { return "boom" }

func writeFiles(t *testing.T, dir string, names ...string) {
	t.Helper()
	for _, n := range names {
		require.NoError(t, os.WriteFile(filepath.Join(dir, n), []byte("#FACT\ndog isa animal\n"), 0o644))
	}
}

func TestTickMovesSuccessfulFilesToProcessedDir(t *testing.T) {
	base := t.TempDir()
	inbox := filepath.Join(base, "inbox")
	processed := filepath.Join(base, "processed")
	failed := filepath.Join(base, "failed")
	require.NoError(t, os.MkdirAll(inbox, 0o755))

	writeFiles(t, inbox, "a.txt", "b.txt")

	w, err := NewWatcher(WatcherConfig{InboxDir: inbox, ProcessedDir: processed, FailedDir: failed, MaxFilesPerTick: 4}, stubProcessor{})
	require.NoError(t, err)
	defer w.Close()

	result, err := w.Tick(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, result.FilesSeen)
	assert.Equal(t, 2, result.FilesOK)
	assert.Equal(t, 4, result.NodesAdded)

	entries, _ := os.ReadDir(processed)
	assert.Len(t, entries, 2)
}

func TestTickMovesFailedFilesToFailedDir(t *testing.T) {
	base := t.TempDir()
	inbox := filepath.Join(base, "inbox")
	processed := filepath.Join(base, "processed")
	failed := filepath.Join(base, "failed")
	require.NoError(t, os.MkdirAll(inbox, 0o755))

	writeFiles(t, inbox, "bad.txt")

	w, err := NewWatcher(WatcherConfig{InboxDir: inbox, ProcessedDir: processed, FailedDir: failed, MaxFilesPerTick: 4},
		stubProcessor{fail: map[string]bool{"bad.txt": true}})
	require.NoError(t, err)
	defer w.Close()

	result, err := w.Tick(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, result.FilesFailed)

	entries, _ := os.ReadDir(failed)
	assert.Len(t, entries, 1)
}

func TestTickRespectsMaxFilesPerTick(t *testing.T) {
	base := t.TempDir()
	inbox := filepath.Join(base, "inbox")
	require.NoError(t, os.MkdirAll(inbox, 0o755))
	writeFiles(t, inbox, "a.txt", "b.txt", "c.txt")

	w, err := NewWatcher(WatcherConfig{InboxDir: inbox, ProcessedDir: filepath.Join(base, "processed"), FailedDir: filepath.Join(base, "failed"), MaxFilesPerTick: 2}, stubProcessor{})
	require.NoError(t, err)
	defer w.Close()

	result, err := w.Tick(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, result.FilesSeen)

	remaining, _ := os.ReadDir(inbox)
	assert.Len(t, remaining, 1)
}
