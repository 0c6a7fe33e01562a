package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadMissingFileReturnsDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "nonexistent.yaml"))
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
}

func TestLoadParsesYAMLOverridingDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "melvin.yaml")
	require.NoError(t, os.WriteFile(path, []byte("beam_width: 8\nmax_hops: 6\nenable_srs: true\n"), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 8, cfg.BeamWidth)
	assert.Equal(t, 6, cfg.MaxHops)
	assert.True(t, cfg.EnableSRS)
	assert.Equal(t, Default().LeapBias, cfg.LeapBias, "keys absent from the file keep their default")
}

func TestEnvOverrideWinsOverFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "melvin.yaml")
	require.NoError(t, os.WriteFile(path, []byte("beam_width: 8\n"), 0o644))

	t.Setenv("MELVIN_BEAM_WIDTH", "16")
	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 16, cfg.BeamWidth)
}

func TestEnsureDirsCreatesMissingDirectories(t *testing.T) {
	root := t.TempDir()
	cfg := &Config{
		InboxDir:     filepath.Join(root, "inbox"),
		ProcessedDir: filepath.Join(root, "processed"),
		FailedDir:    filepath.Join(root, "failed"),
	}
	require.NoError(t, EnsureDirs(cfg))
	for _, d := range []string{cfg.InboxDir, cfg.ProcessedDir, cfg.FailedDir} {
		info, err := os.Stat(d)
		require.NoError(t, err)
		assert.True(t, info.IsDir())
	}
}
