package services

import (
	"context"
	"time"

	"github.com/go-co-op/gocron"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"

	"hebrew-rag-platform/internal/config"
	"hebrew-rag-platform/internal/logger"
	"hebrew-rag-platform/models"
	"hebrew-rag-platform/utils"
)

// CleanupService periodically sweeps failed documents and documents stuck
// in pending/processing past their TTL, removing their chunks, files, and
// records.
type CleanupService struct {
	config    *config.Config
	documents *mongo.Collection
	store     *VectorStore
	storage   *FileStorageManager
	scheduler *gocron.Scheduler
}

func NewCleanupService(cfg *config.Config, db *mongo.Database, store *VectorStore, storage *FileStorageManager) *CleanupService {
	s := gocron.NewScheduler(time.UTC)
	s.TagsUnique()

	return &CleanupService{
		config:    cfg,
		documents: db.Collection("documents"),
		store:     store,
		storage:   storage,
		scheduler: s,
	}
}

// Start schedules the sweep at the configured interval and runs the
// scheduler in the background.
func (c *CleanupService) Start() error {
	interval := time.Duration(c.config.CleanupIntervalMin) * time.Minute
	_, err := c.scheduler.Every(interval).Tag("document-cleanup").Do(func() {
		ctx, cancel := utils.WithCustomTimeout(context.Background(), 5*time.Minute)
		defer cancel()
		if err := c.Sweep(ctx); err != nil {
			logger.Error("cleanup sweep failed", "error", err.Error())
		}
	})
	if err != nil {
		return err
	}
	c.scheduler.StartAsync()
	logger.Info("cleanup scheduler started", "interval", interval.String())
	return nil
}

func (c *CleanupService) Stop() {
	c.scheduler.Stop()
}

// Sweep deletes failed documents older than the TTL, plus documents that
// never finished processing (crashed worker, lost queue).
func (c *CleanupService) Sweep(ctx context.Context) error {
	cutoff := time.Now().Add(-time.Duration(c.config.FailedDocTTLHours) * time.Hour)

	cursor, err := c.documents.Find(ctx, bson.M{
		"status":     bson.M{"$in": []string{models.StatusFailed, models.StatusPending, models.StatusProcessing}},
		"updated_at": bson.M{"$lt": cutoff},
	})
	if err != nil {
		return err
	}
	defer cursor.Close(ctx)

	var stale []models.Document
	if err := cursor.All(ctx, &stale); err != nil {
		return err
	}
	if len(stale) == 0 {
		return nil
	}

	removed := 0
	for _, doc := range stale {
		if _, err := c.store.DeleteByDocument(ctx, doc.ID); err != nil {
			logger.Error("cleanup: failed to delete chunks", "document_id", doc.ID.Hex(), "error", err.Error())
			continue
		}
		if _, err := c.documents.DeleteOne(ctx, bson.M{"_id": doc.ID}); err != nil {
			logger.Error("cleanup: failed to delete record", "document_id", doc.ID.Hex(), "error", err.Error())
			continue
		}
		c.storage.Cleanup(doc.FilePath)
		removed++
	}

	logger.Info("cleanup sweep finished", "candidates", len(stale), "removed", removed)
	return nil
}
