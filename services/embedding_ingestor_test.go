package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"hebrew-rag-platform/models"
)

// testIngestorConfig shrinks the waits so retry paths run in milliseconds.
func testIngestorConfig() IngestorConfig {
	cfg := DefaultIngestorConfig()
	cfg.BackoffStep = time.Millisecond
	cfg.FinalRetryDelay = time.Millisecond
	cfg.EmbedDim = 4
	return cfg
}

func makeChunks(n int) []models.Chunk {
	chunks := make([]models.Chunk, n)
	for i := range chunks {
		chunks[i] = models.Chunk{Text: fmt.Sprintf("chunk-%02d content", i)}
	}
	return chunks
}

func okEmbed(ctx context.Context, text string) ([]float32, error) {
	return []float32{0.1, 0.2, 0.3, 0.4}, nil
}

type persistRecorder struct {
	calls int
	texts []string
}

func (p *persistRecorder) persist(ctx context.Context, id *primitive.ObjectID, chunk models.Chunk, emb []float32) error {
	p.calls++
	p.texts = append(p.texts, chunk.Text)
	return nil
}

func TestIngestAllSucceed(t *testing.T) {
	rec := &persistRecorder{}
	ing := NewEmbeddingIngestor(okEmbed, rec.persist, testIngestorConfig())

	report, err := ing.Ingest(context.Background(), makeChunks(5), nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if report.Succeeded != 5 || report.Failed != 0 {
		t.Fatalf("succeeded/failed = %d/%d, want 5/0", report.Succeeded, report.Failed)
	}
	if report.Verdict != models.VerdictPerfect {
		t.Errorf("verdict = %s, want perfect", report.Verdict)
	}
	if report.Retries != 0 {
		t.Errorf("retries = %d, want 0", report.Retries)
	}
	if rec.calls != 5 {
		t.Errorf("persist called %d times, want 5", rec.calls)
	}
}

func TestIngestIsolatesFailedChunks(t *testing.T) {
	// Chunks 3 and 7 fail on every attempt; the rest succeed.
	embed := func(ctx context.Context, text string) ([]float32, error) {
		if strings.HasPrefix(text, "chunk-03") || strings.HasPrefix(text, "chunk-07") {
			return nil, errors.New("quota exceeded")
		}
		return okEmbed(ctx, text)
	}
	rec := &persistRecorder{}
	ing := NewEmbeddingIngestor(embed, rec.persist, testIngestorConfig())

	report, err := ing.Ingest(context.Background(), makeChunks(10), nil)
	if err != nil {
		t.Fatalf("80%% success must not be an error: %v", err)
	}
	if report.Succeeded != 8 || report.Failed != 2 {
		t.Fatalf("succeeded/failed = %d/%d, want 8/2", report.Succeeded, report.Failed)
	}
	if report.Verdict != models.VerdictAcceptable {
		t.Errorf("verdict = %s, want acceptable", report.Verdict)
	}
	// 3 main-pass attempts plus 1 final-pass attempt, never more.
	for _, idx := range []int{3, 7} {
		if got := report.Outcomes[idx].Attempts; got != 4 {
			t.Errorf("chunk %d attempts = %d, want 4", idx, got)
		}
		if report.Outcomes[idx].Succeeded {
			t.Errorf("chunk %d reported succeeded despite permanent failure", idx)
		}
	}
	if rec.calls != 8 {
		t.Errorf("persist called %d times, want 8", rec.calls)
	}
}

func TestIngestRetryBound(t *testing.T) {
	embedCalls := 0
	embed := func(ctx context.Context, text string) ([]float32, error) {
		embedCalls++
		return nil, errors.New("service unavailable")
	}
	rec := &persistRecorder{}
	ing := NewEmbeddingIngestor(embed, rec.persist, testIngestorConfig())

	report, err := ing.Ingest(context.Background(), makeChunks(1), nil)
	if embedCalls != 4 {
		t.Fatalf("embed called %d times, want exactly 4 (3 attempts + 1 final retry)", embedCalls)
	}
	if rec.calls != 0 {
		t.Errorf("persist called %d times for a chunk that never embedded", rec.calls)
	}

	var failed *IngestionFailedError
	if !errors.As(err, &failed) {
		t.Fatalf("expected IngestionFailedError, got %v", err)
	}
	if report == nil || report.Verdict != models.VerdictFailed {
		t.Fatalf("report missing or not failed: %+v", report)
	}
}

func TestIngestAcceptanceBoundary(t *testing.T) {
	failingEmbed := func(failSet map[int]bool) EmbedFunc {
		return func(ctx context.Context, text string) ([]float32, error) {
			var idx int
			fmt.Sscanf(text, "chunk-%d", &idx)
			if failSet[idx] {
				return nil, errors.New("persistent failure")
			}
			return okEmbed(ctx, text)
		}
	}

	// 7 of 10 stored is exactly the floor: accepted.
	rec := &persistRecorder{}
	ing := NewEmbeddingIngestor(failingEmbed(map[int]bool{0: true, 1: true, 2: true}), rec.persist, testIngestorConfig())
	report, err := ing.Ingest(context.Background(), makeChunks(10), nil)
	if err != nil {
		t.Fatalf("70%% success must be accepted: %v", err)
	}
	if report.Verdict != models.VerdictAcceptable {
		t.Errorf("verdict at 0.70 = %s, want acceptable", report.Verdict)
	}

	// 6 of 10 is below the floor: rejected, caller rolls back.
	rec = &persistRecorder{}
	ing = NewEmbeddingIngestor(failingEmbed(map[int]bool{0: true, 1: true, 2: true, 3: true}), rec.persist, testIngestorConfig())
	report, err = ing.Ingest(context.Background(), makeChunks(10), nil)
	var failed *IngestionFailedError
	if !errors.As(err, &failed) {
		t.Fatalf("60%% success must be rejected, got err=%v", err)
	}
	if report.Verdict != models.VerdictFailed {
		t.Errorf("verdict at 0.60 = %s, want failed", report.Verdict)
	}
}

func TestIngestRecoversFlakyEmbeds(t *testing.T) {
	// Every fifth chunk fails its first attempt, then succeeds.
	attempts := make(map[string]int)
	embed := func(ctx context.Context, text string) ([]float32, error) {
		attempts[text]++
		var idx int
		fmt.Sscanf(text, "chunk-%d", &idx)
		if idx%5 == 0 && attempts[text] == 1 {
			return nil, errors.New("transient overload")
		}
		return okEmbed(ctx, text)
	}
	rec := &persistRecorder{}
	ing := NewEmbeddingIngestor(embed, rec.persist, testIngestorConfig())

	report, err := ing.Ingest(context.Background(), makeChunks(20), nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if report.SuccessRate != 1.0 {
		t.Errorf("success rate = %.2f, want 1.0", report.SuccessRate)
	}
	if report.Verdict != models.VerdictPerfect {
		t.Errorf("verdict = %s, want perfect", report.Verdict)
	}
	if report.Retries == 0 {
		t.Error("expected retries to be recorded for flaky chunks")
	}
	if rec.calls != 20 {
		t.Errorf("persist called %d times, want 20", rec.calls)
	}
}

func TestIngestSkipsEmptyChunks(t *testing.T) {
	embedCalls := 0
	embed := func(ctx context.Context, text string) ([]float32, error) {
		embedCalls++
		return okEmbed(ctx, text)
	}
	rec := &persistRecorder{}
	ing := NewEmbeddingIngestor(embed, rec.persist, testIngestorConfig())

	chunks := []models.Chunk{{Text: ""}, {Text: "  \n\t "}, {Text: "real content"}}
	report, err := ing.Ingest(context.Background(), chunks, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if report.Succeeded != 3 || report.Skipped != 2 {
		t.Fatalf("succeeded/skipped = %d/%d, want 3/2", report.Succeeded, report.Skipped)
	}
	if embedCalls != 1 {
		t.Errorf("embed called %d times, want 1", embedCalls)
	}
	if report.Verdict != models.VerdictPerfect {
		t.Errorf("verdict = %s, want perfect", report.Verdict)
	}
}

func TestIngestEmptyBatch(t *testing.T) {
	rec := &persistRecorder{}
	ing := NewEmbeddingIngestor(okEmbed, rec.persist, testIngestorConfig())

	report, err := ing.Ingest(context.Background(), nil, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if report.Verdict != models.VerdictPerfect {
		t.Errorf("empty batch verdict = %s, want perfect", report.Verdict)
	}
}

func TestIngestHonorsCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	rec := &persistRecorder{}
	ing := NewEmbeddingIngestor(okEmbed, rec.persist, testIngestorConfig())

	report, err := ing.Ingest(ctx, makeChunks(5), nil)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if report != nil {
		t.Error("cancelled run must not produce a report")
	}
}

func TestIngestRejectsWrongDimension(t *testing.T) {
	embed := func(ctx context.Context, text string) ([]float32, error) {
		return []float32{0.1, 0.2}, nil
	}
	rec := &persistRecorder{}
	ing := NewEmbeddingIngestor(embed, rec.persist, testIngestorConfig())

	report, err := ing.Ingest(context.Background(), makeChunks(1), nil)
	var failed *IngestionFailedError
	if !errors.As(err, &failed) {
		t.Fatalf("wrong-dimension embedding must fail the chunk, got err=%v", err)
	}
	if rec.calls != 0 {
		t.Errorf("persist called %d times with a bad vector", rec.calls)
	}
	if report.Failed != 1 {
		t.Errorf("failed = %d, want 1", report.Failed)
	}
}
