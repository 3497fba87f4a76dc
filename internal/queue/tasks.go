package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/hibiken/asynq"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"hebrew-rag-platform/internal/config"
	"hebrew-rag-platform/internal/logger"
	"hebrew-rag-platform/services"
)

// Task type identifiers
const (
	TaskDocumentIngest = "document:ingest"
)

// DocumentIngestPayload carries the id of a document awaiting processing.
type DocumentIngestPayload struct {
	DocumentID string `json:"document_id"`
}

// NewDocumentIngestTask creates a document ingestion task. Processing a
// large document end to end (extraction plus per-chunk embedding) can take
// minutes, hence the generous timeout.
func NewDocumentIngestTask(documentID string) (*asynq.Task, error) {
	payload, err := json.Marshal(DocumentIngestPayload{DocumentID: documentID})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal payload: %w", err)
	}

	return asynq.NewTask(TaskDocumentIngest, payload,
		asynq.MaxRetry(3),
		asynq.Timeout(30*time.Minute),
		asynq.Queue("critical"),
	), nil
}

// RedisConnOpt builds the asynq Redis connection options from config,
// accepting either a redis:// URL or a bare host:port.
func RedisConnOpt(cfg *config.Config) asynq.RedisConnOpt {
	if strings.HasPrefix(cfg.RedisURL, "redis://") || strings.HasPrefix(cfg.RedisURL, "rediss://") {
		if opt, err := asynq.ParseRedisURI(cfg.RedisURL); err == nil {
			return opt
		}
	}
	return asynq.RedisClientOpt{
		Addr:     cfg.RedisURL,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	}
}

// Client enqueues tasks for the worker. It satisfies
// services.IngestEnqueuer.
type Client struct {
	client *asynq.Client
}

func NewClient(redisOpt asynq.RedisConnOpt) *Client {
	return &Client{client: asynq.NewClient(redisOpt)}
}

// EnqueueDocumentIngest queues a document for background processing and
// returns the task id.
func (c *Client) EnqueueDocumentIngest(ctx context.Context, documentID string) (string, error) {
	task, err := NewDocumentIngestTask(documentID)
	if err != nil {
		return "", err
	}

	info, err := c.client.EnqueueContext(ctx, task)
	if err != nil {
		return "", fmt.Errorf("failed to enqueue task: %w", err)
	}

	logger.Info("task enqueued", "type", task.Type(), "task_id", info.ID, "queue", info.Queue)
	return info.ID, nil
}

func (c *Client) Close() error {
	return c.client.Close()
}

// TaskProcessor handles queued tasks on the worker side.
type TaskProcessor struct {
	documents *services.DocumentService
}

func NewTaskProcessor(documents *services.DocumentService) *TaskProcessor {
	return &TaskProcessor{documents: documents}
}

// HandleDocumentIngest processes one queued document.
func (p *TaskProcessor) HandleDocumentIngest(ctx context.Context, t *asynq.Task) error {
	var payload DocumentIngestPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return fmt.Errorf("failed to unmarshal payload: %v: %w", err, asynq.SkipRetry)
	}

	documentID, err := primitive.ObjectIDFromHex(payload.DocumentID)
	if err != nil {
		return fmt.Errorf("invalid document id %q: %v: %w", payload.DocumentID, err, asynq.SkipRetry)
	}

	logger.Info("processing queued document", "document_id", payload.DocumentID)

	if err := p.documents.ProcessDocument(ctx, documentID); err != nil {
		var failed *services.IngestionFailedError
		if errors.As(err, &failed) {
			// The document was rolled back and marked failed; retrying the
			// whole task would repeat the same partial run.
			return fmt.Errorf("ingestion rejected (%s): %w", failed.Report.Verdict, asynq.SkipRetry)
		}
		return fmt.Errorf("document processing failed: %w", err)
	}
	return nil
}
