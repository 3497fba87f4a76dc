package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"hebrew-rag-platform/internal/logger"
	"hebrew-rag-platform/models"
)

// EmbedFunc produces a fixed-dimension embedding for one chunk of text.
// Must be idempotent; the ingestor calls it again on retry.
type EmbedFunc func(ctx context.Context, text string) ([]float32, error)

// PersistFunc appends one embedded chunk to the vector store.
type PersistFunc func(ctx context.Context, documentID *primitive.ObjectID, chunk models.Chunk, embedding []float32) error

// IngestorConfig tunes the per-chunk retry and pacing behavior.
type IngestorConfig struct {
	MaxAttempts       int           // attempts per chunk in the main pass
	EmbedTimeout      time.Duration // per-attempt embedding budget
	PersistTimeout    time.Duration // per-attempt store-write budget
	BackoffStep       time.Duration // attempt N waits N * BackoffStep
	FinalRetryLimit   int           // max failed chunks eligible for the final pass
	FinalRetryTimeout time.Duration // extended embed budget in the final pass
	FinalRetryDelay   time.Duration // pause before each final-pass attempt
	EmbedDim          int           // expected embedding dimension, 0 disables the check
}

// DefaultIngestorConfig returns the production tuning.
func DefaultIngestorConfig() IngestorConfig {
	return IngestorConfig{
		MaxAttempts:       3,
		EmbedTimeout:      20 * time.Second,
		PersistTimeout:    15 * time.Second,
		BackoffStep:       time.Second,
		FinalRetryLimit:   10,
		FinalRetryTimeout: 30 * time.Second,
		FinalRetryDelay:   2 * time.Second,
		EmbedDim:          768,
	}
}

// IngestionFailedError is the run-level fatal outcome: too few chunks made it
// into the store for the document to be trustworthy. The caller must roll
// back the document rather than present it as ingested.
type IngestionFailedError struct {
	Report *models.IngestionReport
}

func (e *IngestionFailedError) Error() string {
	return fmt.Sprintf("ingestion failed: only %.0f%% of %d chunks stored (minimum 70%%)",
		e.Report.SuccessRate*100, e.Report.Total)
}

// EmbeddingIngestor feeds chunks one at a time through the injected embed and
// persist collaborators. Each chunk's failure is isolated: it is retried with
// linear backoff, and if it still fails the ingestor records it and moves on.
// Processing is deliberately sequential with inter-chunk pacing; the
// embedding API enforces aggressive rate limits.
type EmbeddingIngestor struct {
	embed   EmbedFunc
	persist PersistFunc
	cfg     IngestorConfig
}

// NewEmbeddingIngestor creates an ingestor around the injected collaborators.
func NewEmbeddingIngestor(embed EmbedFunc, persist PersistFunc, cfg IngestorConfig) *EmbeddingIngestor {
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = 3
	}
	return &EmbeddingIngestor{embed: embed, persist: persist, cfg: cfg}
}

// Ingest embeds and persists every chunk, then grades the run. A nil error
// with an accepted verdict means the caller may commit the document; an
// *IngestionFailedError means it must roll back. Context cancellation aborts
// the run without producing a report.
func (ei *EmbeddingIngestor) Ingest(ctx context.Context, chunks []models.Chunk, documentID *primitive.ObjectID) (*models.IngestionReport, error) {
	progress := NewProgressReporter("embedding ingestion", len(chunks), 5)
	outcomes := make([]models.ChunkOutcome, len(chunks))
	report := &models.IngestionReport{Total: len(chunks)}

	var failedIdx []int
	pause := interChunkDelay(len(chunks))

	for i, chunk := range chunks {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		if strings.TrimSpace(chunk.Text) == "" {
			// Nothing to embed; trivially successful.
			outcomes[i] = models.ChunkOutcome{ChunkIndex: i, Succeeded: true}
			report.Succeeded++
			report.Skipped++
			progress.Record(true)
			continue
		}

		attempts, err := ei.ingestChunk(ctx, documentID, chunk, ei.cfg.MaxAttempts, ei.cfg.EmbedTimeout)
		outcomes[i] = models.ChunkOutcome{ChunkIndex: i, Attempts: attempts, Succeeded: err == nil}
		report.Retries += attempts - 1
		if err != nil {
			outcomes[i].Error = err.Error()
			failedIdx = append(failedIdx, i)
			logger.Warn("chunk failed after retries",
				"chunk_index", i, "attempts", attempts, "error", err.Error())
		} else {
			report.Succeeded++
		}
		progress.Record(err == nil)

		if i < len(chunks)-1 {
			if err := sleepCtx(ctx, pause); err != nil {
				return nil, err
			}
		}
	}

	// Final pass: one extended-timeout attempt per failed chunk, bounded so a
	// badly-behaving batch cannot stretch the run indefinitely.
	if n := len(failedIdx); n > 0 && n <= ei.cfg.FinalRetryLimit {
		logger.Info("final retry pass", "candidates", n)
		for _, i := range failedIdx {
			if err := sleepCtx(ctx, ei.cfg.FinalRetryDelay); err != nil {
				return nil, err
			}
			attempts, err := ei.ingestChunk(ctx, documentID, chunks[i], 1, ei.cfg.FinalRetryTimeout)
			outcomes[i].Attempts += attempts
			report.Retries++
			if err == nil {
				outcomes[i].Succeeded = true
				outcomes[i].Error = ""
				report.Succeeded++
			} else {
				outcomes[i].Error = err.Error()
			}
		}
	}

	report.Failed = report.Total - report.Succeeded
	report.Elapsed = progress.Elapsed()
	report.Outcomes = outcomes
	if report.Total > 0 {
		report.SuccessRate = float64(report.Succeeded) / float64(report.Total)
	} else {
		report.SuccessRate = 1.0
	}
	report.Verdict = models.VerdictFor(report.SuccessRate)

	logger.Info("ingestion finished",
		"total", report.Total,
		"succeeded", report.Succeeded,
		"failed", report.Failed,
		"retries", report.Retries,
		"success_rate", report.SuccessRate,
		"verdict", string(report.Verdict),
		"elapsed", report.Elapsed.Round(time.Millisecond).String())

	if !report.Accepted() {
		return report, &IngestionFailedError{Report: report}
	}
	return report, nil
}

// ingestChunk runs up to maxAttempts embed+persist cycles for one chunk with
// linear backoff between attempts. Returns the attempt count and the last
// error, nil on success.
func (ei *EmbeddingIngestor) ingestChunk(ctx context.Context, documentID *primitive.ObjectID, chunk models.Chunk, maxAttempts int, embedTimeout time.Duration) (int, error) {
	var lastErr error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		embedding, err := ei.embedWithTimeout(ctx, chunk.Text, embedTimeout)
		if err == nil {
			err = ei.persistWithTimeout(ctx, documentID, chunk, embedding)
			if err == nil {
				return attempt, nil
			}
		}
		lastErr = err

		if attempt < maxAttempts {
			if serr := sleepCtx(ctx, time.Duration(attempt)*ei.cfg.BackoffStep); serr != nil {
				return attempt, serr
			}
		}
	}
	return maxAttempts, lastErr
}

// embedWithTimeout races the embed call against a timer so a hung embedding
// API cannot stall the run past its per-attempt budget.
func (ei *EmbeddingIngestor) embedWithTimeout(ctx context.Context, text string, timeout time.Duration) ([]float32, error) {
	tctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	type embedResult struct {
		vec []float32
		err error
	}
	done := make(chan embedResult, 1)
	go func() {
		vec, err := ei.embed(tctx, text)
		done <- embedResult{vec, err}
	}()

	select {
	case r := <-done:
		if r.err != nil {
			return nil, fmt.Errorf("embed: %w", r.err)
		}
		if ei.cfg.EmbedDim > 0 && len(r.vec) != ei.cfg.EmbedDim {
			return nil, fmt.Errorf("embed: got %d-dim vector, want %d", len(r.vec), ei.cfg.EmbedDim)
		}
		return r.vec, nil
	case <-tctx.Done():
		return nil, fmt.Errorf("embed timed out after %s: %w", timeout, tctx.Err())
	}
}

// persistWithTimeout races the store write against a timer.
func (ei *EmbeddingIngestor) persistWithTimeout(ctx context.Context, documentID *primitive.ObjectID, chunk models.Chunk, embedding []float32) error {
	tctx, cancel := context.WithTimeout(ctx, ei.cfg.PersistTimeout)
	defer cancel()

	done := make(chan error, 1)
	go func() {
		done <- ei.persist(tctx, documentID, chunk, embedding)
	}()

	select {
	case err := <-done:
		if err != nil {
			return fmt.Errorf("persist: %w", err)
		}
		return nil
	case <-tctx.Done():
		return fmt.Errorf("persist timed out: %w", tctx.Err())
	}
}

// interChunkDelay scales the pause between chunks by batch size to stay
// under the embedding API's rate limits.
func interChunkDelay(total int) time.Duration {
	switch {
	case total <= 20:
		return 50 * time.Millisecond
	case total <= 100:
		return 75 * time.Millisecond
	case total <= 300:
		return 100 * time.Millisecond
	default:
		return 150 * time.Millisecond
	}
}

// sleepCtx waits for d or until the context is cancelled.
func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
