package teaching

// SessionSummary aggregates one teaching file's ingest+verify pass into
// the shape internal/store persists as a TeachingSessionRecord row (§4.E
// "supplement"). The metrics CSV's files_ok/files_failed are counted by
// the ingest watcher from processing errors, not from this. Grounded on original_source's
// teaching::TeachingSession/TeachingMetrics::create_session.
type SessionSummary struct {
	FilePath    string
	DurationMs  int64
	NodesBefore int
	NodesAfter  int
	EdgesBefore int
	EdgesAfter  int
	Ingest      IngestResult
	Verify      VerifyResult

	// RetentionScore mirrors the original's retention_score: the
	// verification pass rate.
	RetentionScore float64
	// GrowthEfficiency mirrors growth_efficiency: edges added per block
	// processed, a rough signal of how information-dense a file was.
	GrowthEfficiency float64
}

// Summarize computes a SessionSummary from a completed ingest+verify pass.
func Summarize(filePath string, nodesBefore, nodesAfter, edgesBefore, edgesAfter, blocksProcessed int, ingest IngestResult, verify VerifyResult, durationMs int64) SessionSummary {
	s := SessionSummary{
		FilePath:       filePath,
		DurationMs:     durationMs,
		NodesBefore:    nodesBefore,
		NodesAfter:     nodesAfter,
		EdgesBefore:    edgesBefore,
		EdgesAfter:     edgesAfter,
		Ingest:         ingest,
		Verify:         verify,
		RetentionScore: verify.PassRate,
	}
	if blocksProcessed > 0 {
		s.GrowthEfficiency = float64(ingest.EdgesAdded) / float64(blocksProcessed)
	}
	return s
}

// OK reports whether every verification probe passed (RetentionScore of
// 1.0). Parse errors are not considered.
func (s SessionSummary) OK() bool {
	return s.RetentionScore >= 1.0
}
