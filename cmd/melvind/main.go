// Command melvind runs Melvin's continuously-learning graph reasoning
// engine as a long-lived service: a file-watcher and HTTP ingest front
// door feeding a single-threaded orchestrator tick loop (internal/scheduler)
// that reasons, learns, consolidates, and micro-evolves against a durable
// side-store and periodic binary graph snapshots.
package main

import (
	"context"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/thebtf/melvin/internal/config"
	"github.com/thebtf/melvin/internal/consolidation"
	"github.com/thebtf/melvin/internal/crossmodal"
	"github.com/thebtf/melvin/internal/emergent"
	"github.com/thebtf/melvin/internal/evolution"
	"github.com/thebtf/melvin/internal/graphstore"
	"github.com/thebtf/melvin/internal/ingest"
	"github.com/thebtf/melvin/internal/reasoning"
	"github.com/thebtf/melvin/internal/scheduler"
	"github.com/thebtf/melvin/internal/srs"
	"github.com/thebtf/melvin/internal/store"
	"github.com/thebtf/melvin/pkg/melvin"
)

var Version = "dev"

func main() {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})

	configPath := flag.String("config", "./melvind.yaml", "path to the YAML runtime configuration")
	flag.Parse()

	log.Info().Str("version", Version).Msg("starting melvind")

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load configuration")
	}
	if err := config.EnsureDirs(cfg); err != nil {
		log.Fatal().Err(err).Msg("failed to create data directories")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	nowNs := func() int64 { return time.Now().UnixNano() }

	durable, err := store.Open(cfg.StoreDSN)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to open durable store")
	}
	defer durable.Close()

	genome, err := durable.LatestGenome(ctx)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load latest genome")
	}
	if genome == nil {
		genome = seedGenome(cfg)
		log.Info().Msg("no persisted genome found, starting from compiled defaults")
	}
	genomes := evolution.NewGenomeSource(genome)

	graph := loadOrCreateGraph(cfg.SnapshotPath)

	reasoner, err := reasoning.NewEngine(graph, genomes)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to construct reasoning engine")
	}
	em := emergent.NewEngine(graph, genomes)
	consolidator := consolidation.NewEngine(graph, genomes)
	grader := srs.NewGrader(genomes)
	binder := crossmodal.NewBinder(crossmodal.NewFlatIndex())
	evolver := evolution.NewEvolver(genomes, evolution.DefaultEvolverParams())

	proc := &scheduler.TeachingFileProcessor{Store: graph, Engine: reasoner, Durable: durable, NowNs: nowNs}
	watcher, err := ingest.NewWatcher(ingest.WatcherConfig{
		InboxDir: cfg.InboxDir, ProcessedDir: cfg.ProcessedDir, FailedDir: cfg.FailedDir,
		MaxFilesPerTick: cfg.MaxFilesPerTick,
	}, proc)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to start inbox watcher")
	}
	defer watcher.Close()

	metricsLog, err := scheduler.OpenMetricsLog(cfg.MetricsLogPath)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to open metrics log")
	}
	defer metricsLog.Close()

	sched := scheduler.New(scheduler.Config{
		PollSeconds: cfg.PollSeconds, SnapshotEverySeconds: cfg.SnapshotEverySeconds,
		MetricsEverySeconds: cfg.MetricsEverySeconds, MaxFilesPerTick: cfg.MaxFilesPerTick,
		EnableDecay: cfg.EnableDecay, EnableSRS: cfg.EnableSRS,
		BeamWidth: cfg.BeamWidth, MaxHops: cfg.MaxHops,
		SnapshotPath: cfg.SnapshotPath, MetricsLogPath: cfg.MetricsLogPath,
	}, graph, reasoner, em, genomes)
	sched.Watcher = watcher
	sched.Durable = durable
	sched.Consolidator = consolidator
	sched.Grader = grader
	sched.Binder = binder
	sched.Evolver = evolver
	sched.MetricsLog = metricsLog
	sched.Input = inputQueue()

	if err := sched.LoadSRSItems(ctx); err != nil {
		log.Warn().Err(err).Msg("failed to load persisted SRS items")
	}

	var httpServer *http.Server
	if cfg.HTTPAddr != "" {
		httpServer = &http.Server{
			Addr:    cfg.HTTPAddr,
			Handler: ingest.NewRouter(&ingest.GraphIngester{Store: graph, NowNs: nowNs}),
		}
		go func() {
			if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				log.Error().Err(err).Msg("http ingest server stopped")
			}
		}()
		log.Info().Str("addr", cfg.HTTPAddr).Msg("http ingest endpoint listening")
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	pollEvery := time.Duration(cfg.PollSeconds) * time.Second
	if pollEvery <= 0 {
		pollEvery = 3 * time.Second
	}
	ticker := time.NewTicker(pollEvery)
	defer ticker.Stop()

	log.Info().Dur("poll_every", pollEvery).Msg("melvind entering tick loop")
	for {
		select {
		case <-ticker.C:
			result, err := sched.RunTick(ctx, nowNs())
			if err != nil {
				log.Error().Err(err).Msg("tick failed")
				continue
			}
			if result.FilesSeen > 0 || result.Answered || result.EvolveResult.Evolved {
				log.Info().
					Uint64("tick", result.Tick).
					Int("files_seen", result.FilesSeen).
					Bool("answered", result.Answered).
					Bool("evolved", result.EvolveResult.Evolved).
					Msg("tick")
			}
		case <-quit:
			log.Info().Msg("received shutdown signal")
			cancel()
			if httpServer != nil {
				shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
				_ = httpServer.Shutdown(shutdownCtx)
				shutdownCancel()
			}
			log.Info().Msg("melvind shutdown complete")
			return
		}
	}
}

// loadOrCreateGraph loads a prior binary snapshot (§6.1) if one exists at
// path, otherwise starts from an empty graph store.
func loadOrCreateGraph(path string) *graphstore.Store {
	f, err := os.Open(path)
	if err != nil {
		return graphstore.New()
	}
	defer f.Close()

	g, err := graphstore.Load(f)
	if err != nil {
		log.Warn().Err(err).Str("path", path).Msg("failed to load snapshot, starting from an empty graph")
		return graphstore.New()
	}
	return g
}

// seedGenome builds the compiled-in default genome (§6.4), overlaying
// leap_bias and abstraction_threshold onto the two relation priors they
// name: Leap's "shortcut" prior and Generalization's "abstraction" prior
// (internal/scoring.RelPrior reads both via rel_prior_<RelType>).
func seedGenome(cfg *config.Config) *melvin.Genome {
	g := &melvin.Genome{Params: map[string]*melvin.Param{}}
	g.Params["rel_prior_Leap"] = &melvin.Param{Name: "rel_prior_Leap", Value: cfg.LeapBias, Min: 0, Max: 2, Kind: melvin.ParamFloat, Active: true, ProtectedUntilGen: 20}
	g.Params["rel_prior_Generalization"] = &melvin.Param{Name: "rel_prior_Generalization", Value: cfg.AbstractionThreshold, Min: 0, Max: 2, Kind: melvin.ParamFloat, Active: true, ProtectedUntilGen: 20}
	return g
}

// inputQueue selects a redigo-backed durable input queue when REDIS_ADDR
// is configured (§4.G additions), else the in-process default.
func inputQueue() scheduler.InputQueue {
	if addr := os.Getenv("REDIS_ADDR"); addr != "" {
		log.Info().Str("addr", addr).Msg("using redis-backed input queue")
		return scheduler.NewRedisQueue(addr)
	}
	return scheduler.NewChanQueue(256)
}
