package models

import "time"

// ChunkOutcome records the result of ingesting a single chunk.
type ChunkOutcome struct {
	ChunkIndex int    `json:"chunk_index"`
	Succeeded  bool   `json:"succeeded"`
	Attempts   int    `json:"attempts"`
	Error      string `json:"error,omitempty"`
}

// IngestionVerdict grades a finished ingestion run by its success rate.
type IngestionVerdict string

const (
	VerdictPerfect    IngestionVerdict = "perfect"    // 100%
	VerdictExcellent  IngestionVerdict = "excellent"  // >= 95%
	VerdictGood       IngestionVerdict = "good"       // >= 85%
	VerdictAcceptable IngestionVerdict = "acceptable" // >= 70%, content may be missing
	VerdictFailed     IngestionVerdict = "failed"     // < 70%, caller must roll back
)

// IngestionReport summarizes one ingestion run and drives the caller's
// commit/rollback decision.
type IngestionReport struct {
	Total       int              `json:"total"`
	Succeeded   int              `json:"succeeded"`
	Failed      int              `json:"failed"`
	Skipped     int              `json:"skipped"`
	Retries     int              `json:"retries"`
	SuccessRate float64          `json:"success_rate"`
	Verdict     IngestionVerdict `json:"verdict"`
	Elapsed     time.Duration    `json:"elapsed_ms"`
	Outcomes    []ChunkOutcome   `json:"-"`
}

// VerdictFor maps a success rate onto the graduated acceptance scale.
// Anything at or above 70% is accepted; below that the run is failed and
// partially stored chunks must be cleaned up by the caller.
func VerdictFor(successRate float64) IngestionVerdict {
	switch {
	case successRate >= 1.0:
		return VerdictPerfect
	case successRate >= 0.95:
		return VerdictExcellent
	case successRate >= 0.85:
		return VerdictGood
	case successRate >= 0.70:
		return VerdictAcceptable
	default:
		return VerdictFailed
	}
}

// Accepted reports whether the run's verdict allows the document to be kept.
func (r *IngestionReport) Accepted() bool {
	return r.Verdict != VerdictFailed
}
