package services

import (
	"time"

	"hebrew-rag-platform/internal/logger"
)

// ProgressReporter tracks per-chunk processing progress and periodically
// logs a snapshot with running success rate, throughput and ETA.
type ProgressReporter struct {
	label     string
	total     int
	interval  int
	processed int
	succeeded int
	started   time.Time
}

// ProgressSnapshot is one point-in-time view of a running ingestion.
type ProgressSnapshot struct {
	Processed     int
	Total         int
	Succeeded     int
	SuccessRate   float64
	ChunksPerSec  float64
	EstimatedLeft time.Duration
}

// NewProgressReporter creates a reporter that emits a snapshot every
// `interval` processed items and once more at the end.
func NewProgressReporter(label string, total, interval int) *ProgressReporter {
	if interval <= 0 {
		interval = 5
	}
	return &ProgressReporter{
		label:    label,
		total:    total,
		interval: interval,
		started:  time.Now(),
	}
}

// Record counts one processed item and emits a snapshot on the reporting
// interval and on the final item.
func (p *ProgressReporter) Record(succeeded bool) {
	p.processed++
	if succeeded {
		p.succeeded++
	}
	if p.processed%p.interval == 0 || p.processed == p.total {
		p.emit()
	}
}

// Snapshot computes the current progress view without logging it.
func (p *ProgressReporter) Snapshot() ProgressSnapshot {
	elapsed := time.Since(p.started)
	snap := ProgressSnapshot{
		Processed: p.processed,
		Total:     p.total,
		Succeeded: p.succeeded,
	}
	if p.processed > 0 {
		snap.SuccessRate = float64(p.succeeded) / float64(p.processed)
		snap.ChunksPerSec = float64(p.processed) / elapsed.Seconds()
	}
	if snap.ChunksPerSec > 0 && p.total > p.processed {
		remaining := float64(p.total-p.processed) / snap.ChunksPerSec
		snap.EstimatedLeft = time.Duration(remaining * float64(time.Second))
	}
	return snap
}

// Elapsed returns the time since the reporter was created.
func (p *ProgressReporter) Elapsed() time.Duration {
	return time.Since(p.started)
}

func (p *ProgressReporter) emit() {
	snap := p.Snapshot()
	logger.Info(p.label+" progress",
		"processed", snap.Processed,
		"total", snap.Total,
		"succeeded", snap.Succeeded,
		"success_rate", snap.SuccessRate,
		"chunks_per_sec", snap.ChunksPerSec,
		"eta", snap.EstimatedLeft.Round(time.Second).String())
}
