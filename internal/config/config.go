// Package config loads melvind's runtime configuration (§6.4): a YAML
// file on disk with every numerical parameter overridable by environment
// variable, mirroring the teacher's settings-file-plus-env-override
// shape (see _examples/thebtf-engram/internal/config/config.go) adapted
// from a JSON settings blob to the YAML file spec.md calls for.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/thebtf/melvin/pkg/melvin"
)

// Config is melvind's runtime configuration (§6.4).
type Config struct {
	InboxDir         string  `yaml:"inbox_dir"`
	ProcessedDir     string  `yaml:"processed_dir"`
	FailedDir        string  `yaml:"failed_dir"`
	SnapshotPath     string  `yaml:"snapshot_path"`
	MetricsLogPath   string  `yaml:"metrics_log_path"`
	HTTPAddr         string  `yaml:"http_addr"`

	PollSeconds          int `yaml:"poll_seconds"`
	SnapshotEverySeconds int `yaml:"snapshot_every_seconds"`
	MetricsEverySeconds  int `yaml:"metrics_every_seconds"`
	MaxFilesPerTick      int `yaml:"max_files_per_tick"`

	EnableDecay bool `yaml:"enable_decay"`
	EnableSRS   bool `yaml:"enable_srs"`

	BeamWidth           int     `yaml:"beam_width"`
	MaxHops             int     `yaml:"max_hops"`
	LeapBias            float64 `yaml:"leap_bias"`
	AbstractionThreshold float64 `yaml:"abstraction_threshold"`

	// StoreDSN selects the durable side-store (internal/store): a
	// postgres:// or postgresql:// DSN opens PostgreSQL, any other value
	// is a SQLite file path, and empty means melvin.db.
	StoreDSN string `yaml:"store_dsn"`
}

// Default returns spec.md §6.4's defaults.
func Default() *Config {
	return &Config{
		InboxDir:             "./melvin-data/inbox",
		ProcessedDir:         "./melvin-data/processed",
		FailedDir:            "./melvin-data/failed",
		SnapshotPath:         "./melvin-data/snapshot.bin",
		MetricsLogPath:       "./melvin-data/metrics.csv",
		HTTPAddr:             ":8737",
		PollSeconds:          3,
		SnapshotEverySeconds: 60,
		MetricsEverySeconds:  10,
		MaxFilesPerTick:      4,
		EnableDecay:          false,
		EnableSRS:            false,
		BeamWidth:            4,
		MaxHops:              4,
		LeapBias:             0.1,
		AbstractionThreshold: 0.6,
	}
}

// Load reads a YAML config file at path, falling back to defaults for any
// key it omits, then applies environment overrides (envOverrides). A
// missing file is not an error: Default() with environment overrides
// applied is returned.
func Load(path string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			applyEnv(cfg)
			return cfg, nil
		}
		return nil, melvin.Wrap("config.Load", melvin.KindIOError, err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, melvin.Wrap("config.Load", melvin.KindParseError, err)
	}
	applyEnv(cfg)
	return cfg, nil
}

// envPrefix namespaces every override (§6.4 "any numerical parameter may
// be overridden via environment variables").
const envPrefix = "MELVIN_"

// applyEnv overrides cfg's numerical and boolean fields from environment
// variables named MELVIN_<UPPER_SNAKE_FIELD>, e.g. MELVIN_BEAM_WIDTH.
func applyEnv(cfg *Config) {
	if v, ok := envInt("POLL_SECONDS"); ok {
		cfg.PollSeconds = v
	}
	if v, ok := envInt("SNAPSHOT_EVERY_SECONDS"); ok {
		cfg.SnapshotEverySeconds = v
	}
	if v, ok := envInt("METRICS_EVERY_SECONDS"); ok {
		cfg.MetricsEverySeconds = v
	}
	if v, ok := envInt("MAX_FILES_PER_TICK"); ok {
		cfg.MaxFilesPerTick = v
	}
	if v, ok := envBool("ENABLE_DECAY"); ok {
		cfg.EnableDecay = v
	}
	if v, ok := envBool("ENABLE_SRS"); ok {
		cfg.EnableSRS = v
	}
	if v, ok := envInt("BEAM_WIDTH"); ok {
		cfg.BeamWidth = v
	}
	if v, ok := envInt("MAX_HOPS"); ok {
		cfg.MaxHops = v
	}
	if v, ok := envFloat("LEAP_BIAS"); ok {
		cfg.LeapBias = v
	}
	if v, ok := envFloat("ABSTRACTION_THRESHOLD"); ok {
		cfg.AbstractionThreshold = v
	}
	if v := os.Getenv(envPrefix + "STORE_DSN"); v != "" {
		cfg.StoreDSN = v
	}
	if v := os.Getenv(envPrefix + "HTTP_ADDR"); v != "" {
		cfg.HTTPAddr = v
	}
}

func envInt(name string) (int, bool) {
	s := os.Getenv(envPrefix + name)
	if s == "" {
		return 0, false
	}
	v, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		return 0, false
	}
	return v, true
}

func envFloat(name string) (float64, bool) {
	s := os.Getenv(envPrefix + name)
	if s == "" {
		return 0, false
	}
	v, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		return 0, false
	}
	return v, true
}

func envBool(name string) (bool, bool) {
	s := os.Getenv(envPrefix + name)
	if s == "" {
		return false, false
	}
	v, err := strconv.ParseBool(strings.TrimSpace(s))
	if err != nil {
		return false, false
	}
	return v, true
}

// EnsureDirs creates the inbox/processed/failed directories if absent.
func EnsureDirs(cfg *Config) error {
	for _, dir := range []string{cfg.InboxDir, cfg.ProcessedDir, cfg.FailedDir} {
		if dir == "" {
			continue
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("mkdir %s: %w", dir, err)
		}
	}
	return nil
}
