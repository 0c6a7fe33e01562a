// Package scheduler implements melvind's single-threaded orchestrator
// loop (§5): pull-input, perceive (ingest), reason, gate, output,
// feedback, learn, emergent, metrics, and the optional evolve and
// consolidate phases, in that strict order. Every dependency is injected
// so the loop itself stays a thin, testable conductor — the same shape
// as the teacher's own worker-service orchestration (see
// _examples/thebtf-engram/internal/worker), generalized from a job-queue
// drain to a fixed-phase cognitive tick.
package scheduler

import (
	"context"
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/thebtf/melvin/internal/consolidation"
	"github.com/thebtf/melvin/internal/crossmodal"
	"github.com/thebtf/melvin/internal/emergent"
	"github.com/thebtf/melvin/internal/evolution"
	"github.com/thebtf/melvin/internal/graphstore"
	"github.com/thebtf/melvin/internal/ingest"
	"github.com/thebtf/melvin/internal/reasoning"
	"github.com/thebtf/melvin/internal/srs"
	"github.com/thebtf/melvin/internal/store"
	"github.com/thebtf/melvin/internal/teaching"
	"github.com/thebtf/melvin/pkg/melvin"
)

// Config bundles the cadence knobs (§6.4) the scheduler reads from
// internal/config.Config without importing it directly, avoiding a
// dependency cycle with cmd/melvind's wiring code.
type Config struct {
	PollSeconds          int
	SnapshotEverySeconds int
	MetricsEverySeconds  int
	MaxFilesPerTick      int
	EnableDecay          bool
	EnableSRS            bool
	BeamWidth            int
	MaxHops              int
	SnapshotPath         string
	MetricsLogPath       string
}

// Scheduler owns one tick's worth of wiring across every engine package.
// Nil optional fields (Watcher, Durable, MetricsLog, Binder, Consolidator,
// Evolver) degrade that phase to a no-op rather than requiring callers to
// supply stub implementations (§4.G "every maintenance pass is
// independently toggleable").
type Scheduler struct {
	cfg Config
	log zerolog.Logger

	Graph    *graphstore.Store
	Reasoner *reasoning.Engine
	Emergent *emergent.Engine
	Genomes  *evolution.GenomeSource
	Tracker  *evolution.Tracker
	Evolver  *evolution.Evolver

	Watcher      *ingest.Watcher
	Input        InputQueue
	Durable      store.Store
	Consolidator *consolidation.Engine
	Grader       *srs.Grader
	Binder       *crossmodal.Binder
	MetricsLog   *MetricsLog

	srsItems map[melvin.EdgeID]*melvin.SRSItem

	tick                uint64
	lastSnapshotNs      int64
	lastMetricsNs       int64
	lastConsolidationNs int64
	decayEvents         int
}

// New constructs a Scheduler. Callers wire in whichever optional
// components their deployment enables (§6.4 enable_decay/enable_srs,
// store_dsn presence, http_addr presence) and leave the rest nil.
func New(cfg Config, graph *graphstore.Store, reasoner *reasoning.Engine, em *emergent.Engine, genomes *evolution.GenomeSource) *Scheduler {
	return &Scheduler{
		cfg:      cfg,
		log:      log.With().Str("component", "scheduler").Logger(),
		Graph:    graph,
		Reasoner: reasoner,
		Emergent: em,
		Genomes:  genomes,
		Tracker:  evolution.NewTracker(32),
		srsItems: make(map[melvin.EdgeID]*melvin.SRSItem),
	}
}

// LoadSRSItems seeds the in-memory SRS cache from the durable store, run
// once at startup so a restart resumes due-review state.
func (s *Scheduler) LoadSRSItems(ctx context.Context) error {
	if s.Durable == nil {
		return nil
	}
	items, err := s.Durable.LoadSRSItems(ctx)
	if err != nil {
		return err
	}
	for _, it := range items {
		s.srsItems[it.EdgeID] = it
	}
	return nil
}

// TickResult reports what a single RunTick call did, for logging and
// tests.
type TickResult struct {
	Tick         uint64
	FilesSeen    int
	FilesOK      int
	FilesFailed  int
	NodesAdded   int
	EdgesAdded   int
	Answered     bool
	Output       melvin.OutputIntent
	EvolveResult evolution.StepResult
	Snapshotted  bool
	MetricsWritten bool
}

// RunTick executes one full orchestrator cycle (§5's strict phase
// order). nowNs is supplied by the caller rather than read from the
// clock so tests are deterministic.
func (s *Scheduler) RunTick(ctx context.Context, nowNs int64) (TickResult, error) {
	s.tick++
	result := TickResult{Tick: s.tick}

	// perceive: drain the file watcher (bounded by max_files_per_tick)
	// and the explicit input queue.
	if s.Watcher != nil {
		tr, err := s.Watcher.Tick(ctx)
		if err != nil {
			return result, err
		}
		result.FilesSeen, result.FilesOK, result.FilesFailed = tr.FilesSeen, tr.FilesOK, tr.FilesFailed
		result.NodesAdded += tr.NodesAdded
		result.EdgesAdded += tr.EdgesAdded
	}

	var sample evolution.Sample
	var confidence float64

	if s.Input != nil {
		if item, ok, err := s.Input.Pop(ctx, 0); err != nil {
			return result, err
		} else if ok && item.Kind == InputTeachingText {
			nodesAdded, edgesAdded, err := s.ingestTeachingText(ctx, item, nowNs)
			if err != nil {
				return result, err
			}
			result.NodesAdded += nodesAdded
			result.EdgesAdded += edgesAdded
		} else if ok && item.Kind == InputQuery {
			// reason -> gate -> output
			out, err := s.Reasoner.Ask(ctx, reasoning.AskParams{
				Query: item.Query, Intent: item.Intent,
				BeamWidth: s.cfg.BeamWidth, MaxHops: s.cfg.MaxHops, NowNs: nowNs,
			})
			if err != nil {
				return result, err
			}
			result.Answered = true
			result.Output = out
			confidence = out.Confidence

			// feedback: reinforce activation of every node the answer
			// path touched.
			if out.Path != nil {
				s.Emergent.Activate(out.Path.Nodes, 1.0, nowNs)

				// learn: seed or update SRS bookkeeping for every edge
				// the path used (§4.E "SRS cycle").
				if s.cfg.EnableSRS && s.Grader != nil {
					for _, hop := range out.Path.Hops {
						s.touchSRSItem(hop.EdgeID, nowNs)
					}
				}
			}

			sample = evolution.Sample{
				Entropy:    out.Entropy,
				Top2Margin: top2MarginOf(out),
				Success:    out.Mode == melvin.GateEmit,
			}
		}
	}

	// emergent: always runs, even on a tick with no query, so spread,
	// decay, and energy recovery stay on a wall-clock cadence
	// independent of query traffic.
	dt := float64(s.cfg.PollSeconds)
	if dt <= 0 {
		dt = 1
	}
	if err := s.Emergent.Tick(ctx, nowNs, dt, 1); err != nil {
		return result, err
	}

	// metrics
	s.Tracker.Observe(s.tick, sample, confidence)
	if s.shouldRun(&s.lastMetricsNs, nowNs, s.cfg.MetricsEverySeconds) {
		if err := s.writeMetricsRow(ctx, nowNs, result); err == nil {
			result.MetricsWritten = true
		}
		s.decayEvents = 0
	}

	// optional evolve
	if s.Evolver != nil {
		slope, mean, have := s.Tracker.ConfidenceSlopeAndMean()
		step := s.Evolver.Step(s.tick, s.Tracker.Snapshot(), slope, mean, have)
		result.EvolveResult = step
		if step.Evolved && s.Durable != nil {
			_ = s.Durable.SaveGenomeGeneration(ctx, s.Genomes.Current(), nowNs)
		}
	}

	// optional consolidate
	if s.cfg.EnableDecay && s.Consolidator != nil && s.shouldRun(&s.lastConsolidationNs, nowNs, s.cfg.MetricsEverySeconds*6) {
		decay := s.Consolidator.Decay(nowNs)
		s.decayEvents += decay.EdgesDecayed
		s.Consolidator.Replay(nowNs)
		s.Consolidator.ClusterDuplicates(nowNs)
	}

	if s.Binder != nil {
		s.Binder.Tick(0.98)
	}

	// periodic snapshot
	if s.cfg.SnapshotPath != "" && s.shouldRun(&s.lastSnapshotNs, nowNs, s.cfg.SnapshotEverySeconds) {
		if err := s.writeSnapshot(); err != nil {
			s.log.Error().Err(err).Msg("snapshot failed")
		} else {
			result.Snapshotted = true
		}
	}

	return result, nil
}

// Enqueue pushes a query onto the input queue for a future tick to
// answer, defaulting to an in-process ChanQueue if none was wired.
func (s *Scheduler) Enqueue(ctx context.Context, query string, intent melvin.Intent, nowNs int64) error {
	if s.Input == nil {
		s.Input = NewChanQueue(64)
	}
	return s.Input.Push(ctx, InputItem{Kind: InputQuery, Query: query, Intent: intent, EnqueuedAtNs: nowNs})
}

// ingestTeachingText processes a teaching document pushed directly onto
// the input queue (as opposed to one dropped into the inbox directory
// for internal/ingest.Watcher to pick up), e.g. from an HTTP caller that
// wants queue-backed durability without writing a temp file.
func (s *Scheduler) ingestTeachingText(ctx context.Context, item InputItem, nowNs int64) (int, int, error) {
	before := struct{ nodes, edges int }{s.Graph.NodeCount(), s.Graph.EdgeCount()}
	doc := teaching.Parse(item.SourcePath, item.TeachingText)

	ingestResult := teaching.Ingest(s.Graph, doc, nowNs)
	verifyResult, err := teaching.Verify(ctx, s.Reasoner, s.Graph, doc, nowNs)
	if err != nil {
		return ingestResult.NodesAdded, ingestResult.EdgesAdded, err
	}

	if s.Durable != nil {
		summary := teaching.Summarize(item.SourcePath, before.nodes, s.Graph.NodeCount(), before.edges, s.Graph.EdgeCount(),
			len(doc.Blocks), ingestResult, verifyResult, 0)
		_ = s.Durable.SaveTeachingSession(ctx, store.TeachingSessionRecord{
			FilePath: summary.FilePath, NodesBefore: summary.NodesBefore, NodesAfter: summary.NodesAfter,
			EdgesBefore: summary.EdgesBefore, EdgesAfter: summary.EdgesAfter,
			NodesAdded: ingestResult.NodesAdded, EdgesAdded: ingestResult.EdgesAdded,
			PassRate: verifyResult.PassRate, RetentionScore: summary.RetentionScore,
			GrowthEfficiency: summary.GrowthEfficiency, CreatedAtNs: nowNs,
		})
	}

	return ingestResult.NodesAdded, ingestResult.EdgesAdded, nil
}

func (s *Scheduler) touchSRSItem(edgeID melvin.EdgeID, nowNs int64) {
	item, ok := s.srsItems[edgeID]
	if !ok {
		item = &melvin.SRSItem{EdgeID: edgeID, Ease: 2.5, IntervalDays: 1, DueTimeNs: nowNs, CreatedTimeNs: nowNs}
		s.srsItems[edgeID] = item
	}
}

// GradeReview applies an explicit review grade to edgeID's SRS item
// (§4.E SM-2), persisting the result to the durable store if wired.
func (s *Scheduler) GradeReview(ctx context.Context, edgeID melvin.EdgeID, grade melvin.Grade, nowNs int64) (*melvin.SRSItem, error) {
	item, ok := s.srsItems[edgeID]
	if !ok {
		item = &melvin.SRSItem{EdgeID: edgeID, Ease: 2.5, IntervalDays: 1, CreatedTimeNs: nowNs}
	}
	updated := s.Grader.Apply(item, grade, nowNs)
	s.srsItems[edgeID] = updated
	if s.Durable != nil {
		if err := s.Durable.SaveSRSItem(ctx, updated); err != nil {
			return updated, err
		}
	}
	return updated, nil
}

// DueReviews returns every SRS item currently due, ranked by urgency
// (srs.DueItems).
func (s *Scheduler) DueReviews(nowNs int64) []*melvin.SRSItem {
	items := make([]*melvin.SRSItem, 0, len(s.srsItems))
	for _, it := range s.srsItems {
		items = append(items, it)
	}
	return srs.DueItems(items, nowNs)
}

func (s *Scheduler) writeSnapshot() error {
	f, err := os.Create(s.cfg.SnapshotPath)
	if err != nil {
		return err
	}
	defer f.Close()
	return s.Graph.Snapshot(f)
}

func (s *Scheduler) writeMetricsRow(ctx context.Context, nowNs int64, tr TickResult) error {
	avgWeight, pctBelow := edgeWeightStats(s.Graph)
	due := s.DueReviews(nowNs)

	var reviewed int
	var passSum, intervalSum, easeSum float64
	for _, it := range s.srsItems {
		if it.TotalReviews == 0 {
			continue
		}
		reviewed++
		intervalSum += it.IntervalDays
		easeSum += it.Ease
		if it.LastGrade != melvin.GradeFail {
			passSum++
		}
	}

	row := MetricsRow{
		TimestampNs:      nowNs,
		Tick:             s.tick,
		FilesSeen:        tr.FilesSeen,
		FilesOK:          tr.FilesOK,
		FilesFailed:      tr.FilesFailed,
		Nodes:            s.Graph.NodeCount(),
		Edges:            s.Graph.EdgeCount(),
		DecayEvents:      s.decayEvents,
		AvgEdgeWeight:    avgWeight,
		PctEdgesBelow0_1: pctBelow,
		SRSDue:           len(due),
		SRSReviewed:      reviewed,
	}
	if reviewed > 0 {
		row.SRSPassRate = passSum / float64(reviewed)
		row.SRSAvgInterval = intervalSum / float64(reviewed)
		row.SRSAvgEase = easeSum / float64(reviewed)
	}
	if tr.Answered && tr.Output.Path != nil {
		row.MultihopProbeSuccess = boolToF(tr.Output.Mode == melvin.GateEmit)
		row.MultihopAvgPathLen = float64(tr.Output.Path.Len())
	}

	if s.Durable != nil {
		_ = s.Durable.SaveMetricsRow(ctx, store.MetricsRowRecord{
			Tick: s.tick, Entropy: s.Tracker.Snapshot().Entropy, Top2Margin: s.Tracker.Snapshot().Top2Margin,
			SuccessRate: s.Tracker.Snapshot().SuccessRate, EdgeReuseRatio: s.Tracker.Snapshot().EdgeReuseRatio,
			CoherenceDrift: s.Tracker.Snapshot().CoherenceDrift, EntropyTrend: s.Tracker.Snapshot().EntropyTrend,
			RecordedAtNs: nowNs,
		})
	}

	if s.MetricsLog == nil {
		return nil
	}
	return s.MetricsLog.Append(row)
}

func (s *Scheduler) shouldRun(last *int64, nowNs int64, everySeconds int) bool {
	if everySeconds <= 0 {
		return false
	}
	intervalNs := int64(everySeconds) * int64(time.Second)
	// *last stores the last run time plus one, so zero always means
	// "never ran", even after a run at nowNs == 0.
	if *last != 0 && nowNs-(*last-1) < intervalNs {
		return false
	}
	*last = nowNs + 1
	return true
}

func top2MarginOf(out melvin.OutputIntent) float64 {
	if out.Path == nil {
		return 0
	}
	return out.Path.Top2Margin
}

func boolToF(b bool) float64 {
	if b {
		return 1
	}
	return 0
}
