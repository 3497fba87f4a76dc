package services

import (
	"context"
	"errors"
	"fmt"
	"mime/multipart"
	"path/filepath"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"hebrew-rag-platform/internal/ai"
	"hebrew-rag-platform/internal/config"
	"hebrew-rag-platform/internal/logger"
	"hebrew-rag-platform/internal/telemetry"
	"hebrew-rag-platform/models"
	"hebrew-rag-platform/utils"
)

// ErrDocumentNotFound is returned when a document id resolves to nothing.
var ErrDocumentNotFound = errors.New("document not found")

// IngestEnqueuer hands a document off to the background worker. Implemented
// by the asynq-backed queue client; injected so this package stays free of
// queue imports.
type IngestEnqueuer interface {
	EnqueueDocumentIngest(ctx context.Context, documentID string) (string, error)
}

// DocumentService orchestrates the upload-to-searchable pipeline: validate,
// store, extract, chunk, embed, and commit or roll back based on the
// ingestion verdict.
type DocumentService struct {
	config    *config.Config
	documents *mongo.Collection
	store     *VectorStore
	chunker   *AdaptiveChunker
	ingestor  *EmbeddingIngestor
	storage   *FileStorageManager
	text      *HebrewTextService
	pdf       *PDFExtractor
	xlsx      *XLSXExtractor
	html      *HTMLExtractor
	ocr       *OCRClient
	metrics   *telemetry.Metrics
	enqueuer  IngestEnqueuer
}

// NewDocumentService wires the full pipeline around the given Gemini client
// and database. metrics and enqueuer may be nil (tests, worker-less setups).
func NewDocumentService(cfg *config.Config, db *mongo.Database, gemini *ai.GeminiClient, metrics *telemetry.Metrics, enqueuer IngestEnqueuer) *DocumentService {
	text := NewHebrewTextService()
	store := NewVectorStore(db, cfg)

	embed := func(ctx context.Context, chunkText string) ([]float32, error) {
		start := time.Now()
		vec, err := gemini.Embed(ctx, chunkText)
		if metrics != nil {
			metrics.RecordEmbedCall(time.Since(start).Seconds(), err == nil)
		}
		return vec, err
	}

	ingestorCfg := IngestorConfig{
		MaxAttempts:       cfg.IngestMaxAttempts,
		EmbedTimeout:      time.Duration(cfg.EmbedTimeoutSec) * time.Second,
		PersistTimeout:    time.Duration(cfg.PersistTimeoutSec) * time.Second,
		BackoffStep:       time.Second,
		FinalRetryLimit:   cfg.FinalRetryLimit,
		FinalRetryTimeout: time.Duration(cfg.FinalRetryTimeoutSec) * time.Second,
		FinalRetryDelay:   2 * time.Second,
		EmbedDim:          cfg.EmbeddingDim,
	}

	return &DocumentService{
		config:    cfg,
		documents: db.Collection("documents"),
		store:     store,
		chunker:   NewAdaptiveChunker(text, NewTableChunker(text)),
		ingestor:  NewEmbeddingIngestor(embed, store.InsertChunk, ingestorCfg),
		storage:   NewFileStorageManager(cfg),
		text:      text,
		pdf:       NewPDFExtractor(text),
		xlsx:      NewXLSXExtractor(),
		html:      NewHTMLExtractor(),
		ocr:       NewOCRClient(cfg),
		metrics:   metrics,
		enqueuer:  enqueuer,
	}
}

// UploadRequest is a validated multipart upload.
type UploadRequest struct {
	File    multipart.File
	Header  *multipart.FileHeader
	UserID  primitive.ObjectID
	IsAsync bool
}

// ValidateAndProcessUpload stores the upload and kicks off processing.
// Small files process in the background of this process; large ones go
// through the worker queue.
func (s *DocumentService) ValidateAndProcessUpload(ctx context.Context, req *UploadRequest) (*models.UploadResponse, error) {
	if err := s.validateUpload(req); err != nil {
		return nil, fmt.Errorf("file validation failed: %w", err)
	}

	fileInfo, err := s.storage.SecureStore(req.File, req.Header, req.UserID.Hex())
	if err != nil {
		return nil, fmt.Errorf("file storage failed: %w", err)
	}

	// Same bytes already ingested for this user: return the existing record
	// instead of paying for extraction and embedding again.
	existing, err := s.checkDuplicate(ctx, req.UserID, fileInfo.Hash)
	if err != nil {
		s.storage.Cleanup(fileInfo.Path)
		return nil, fmt.Errorf("duplicate check failed: %w", err)
	}
	if existing != nil {
		s.storage.Cleanup(fileInfo.Path)
		return &models.UploadResponse{
			ID:       existing.ID.Hex(),
			Filename: existing.OriginalName,
			Status:   existing.Status,
			Metadata: existing.Metadata,
			Message:  "document already exists",
			Warning:  existing.Warning,
		}, nil
	}

	doc := &models.Document{
		ID:           primitive.NewObjectID(),
		UserID:       req.UserID,
		Filename:     fileInfo.SecureName,
		OriginalName: req.Header.Filename,
		FilePath:     fileInfo.Path,
		FileHash:     fileInfo.Hash,
		ContentType:  req.Header.Header.Get("Content-Type"),
		Status:       models.StatusPending,
		UploadedAt:   time.Now(),
		UpdatedAt:    time.Now(),
		Metadata:     models.DocumentMetadata{Size: fileInfo.Size},
	}
	if _, err := s.documents.InsertOne(ctx, doc); err != nil {
		s.storage.Cleanup(fileInfo.Path)
		return nil, fmt.Errorf("database save failed: %w", err)
	}

	resp := &models.UploadResponse{
		ID:       doc.ID.Hex(),
		Filename: doc.OriginalName,
		Status:   doc.Status,
		Metadata: doc.Metadata,
		Message:  "processing started",
	}

	if (req.IsAsync || fileInfo.Size > s.config.SyncProcessingLimit) && s.enqueuer != nil {
		taskID, err := s.enqueuer.EnqueueDocumentIngest(ctx, doc.ID.Hex())
		if err != nil {
			// The upload itself succeeded; the cleanup job will pick up
			// documents stuck in pending if the queue stays down.
			logger.Error("failed to enqueue ingestion", "document_id", doc.ID.Hex(), "error", err.Error())
		} else {
			resp.TaskID = taskID
		}
		return resp, nil
	}

	go func() {
		processingCtx, cancel := context.WithTimeout(context.Background(), 30*time.Minute)
		defer cancel()
		if err := s.ProcessDocument(processingCtx, doc.ID); err != nil {
			logger.Error("document processing failed", "document_id", doc.ID.Hex(), "error", err.Error())
		}
	}()
	return resp, nil
}

// ProcessDocument runs extraction, chunking, and ingestion for a stored
// document, committing the record on an accepted verdict and rolling back
// every stored chunk otherwise.
func (s *DocumentService) ProcessDocument(ctx context.Context, documentID primitive.ObjectID) error {
	doc, err := s.GetDocument(ctx, documentID)
	if err != nil {
		return err
	}

	if err := s.updateStatus(ctx, documentID, models.StatusProcessing, ""); err != nil {
		return fmt.Errorf("failed to update status: %w", err)
	}

	start := time.Now()
	blocks, stats, err := s.extractBlocks(ctx, doc.FilePath)
	if err != nil {
		s.updateStatus(ctx, documentID, models.StatusFailed, err.Error())
		return fmt.Errorf("extraction failed: %w", err)
	}

	result := s.chunker.ChunkBlocks(blocks, s.config.BaseChunkSize, s.config.BaseChunkOverlap)
	if s.metrics != nil {
		s.metrics.RecordChunking(int64(len(result.Chunks)), result.Coverage, extractionType(doc.FilePath))
	}
	if len(result.Chunks) == 0 {
		s.updateStatus(ctx, documentID, models.StatusFailed, "document contains no extractable text")
		return fmt.Errorf("document %s produced no chunks", documentID.Hex())
	}

	report, ingestErr := s.ingestor.Ingest(ctx, result.Chunks, &documentID)
	if report != nil && s.metrics != nil {
		s.metrics.RecordIngestion(report.SuccessRate, int64(report.Failed), string(report.Verdict))
	}

	var failed *IngestionFailedError
	if errors.As(ingestErr, &failed) {
		// Partial chunks must not masquerade as a searchable document.
		if _, delErr := s.store.DeleteByDocument(ctx, documentID); delErr != nil {
			logger.Error("rollback cleanup failed", "document_id", documentID.Hex(), "error", delErr.Error())
		}
		msg := fmt.Sprintf(
			"ingestion stored only %.0f%% of chunks; the document was rolled back. Try re-uploading, or split the file into smaller documents.",
			failed.Report.SuccessRate*100)
		s.updateStatus(ctx, documentID, models.StatusFailed, msg)
		return ingestErr
	}
	if ingestErr != nil {
		s.updateStatus(ctx, documentID, models.StatusFailed, ingestErr.Error())
		return ingestErr
	}

	update := s.completionUpdate(doc, blocks, stats, result, report, time.Since(start))
	if _, err := s.documents.UpdateOne(ctx, bson.M{"_id": documentID}, update); err != nil {
		return fmt.Errorf("failed to commit document: %w", err)
	}

	logger.Info("document ingested",
		"document_id", documentID.Hex(),
		"chunks", len(result.Chunks),
		"success_rate", report.SuccessRate,
		"verdict", string(report.Verdict),
		"elapsed", time.Since(start).Round(time.Millisecond).String())
	return nil
}

// completionUpdate assembles the final document record: stats, the archived
// compressed full text, and a warning when content may be missing.
func (s *DocumentService) completionUpdate(doc *models.Document, blocks []models.ExtractedBlock, stats *ExtractionStats, result *ChunkingResult, report *models.IngestionReport, elapsed time.Duration) bson.M {
	tableChunks := 0
	hasHebrew := false
	for _, chunk := range result.Chunks {
		if chunk.Meta.IsTableChunk {
			tableChunks++
		}
	}
	var fullText strings.Builder
	for _, block := range blocks {
		fullText.WriteString(block.Text)
		fullText.WriteString("\n")
		if !hasHebrew && s.text.IsRTL(block.Text) {
			hasHebrew = true
		}
	}

	meta := models.DocumentMetadata{
		Size:           doc.Metadata.Size,
		Blocks:         len(blocks),
		Chunks:         len(result.Chunks),
		TableChunks:    tableChunks,
		CharacterCount: result.TotalChars,
		Coverage:       result.Coverage,
		SuccessRate:    report.SuccessRate,
		HasHebrew:      hasHebrew,
		HasTables:      tableChunks > 0,
		ChunkSize:      result.ChunkSize,
		ChunkOverlap:   result.Overlap,
		ProcessingTime: elapsed,
	}
	if stats != nil {
		meta.Pages = stats.Pages
	}

	now := time.Now()
	set := bson.M{
		"status":       models.StatusCompleted,
		"progress":     100,
		"processed_at": now,
		"updated_at":   now,
		"metadata":     meta,
	}

	if report.Verdict == models.VerdictAcceptable {
		set["warning"] = fmt.Sprintf(
			"only %.0f%% of chunks were stored; some content may be missing from answers",
			report.SuccessRate*100)
	}

	if compressed, algorithm, err := utils.CompressText(fullText.String()); err == nil {
		set["compressed_text"] = compressed
		set["compression"] = string(algorithm)
	} else {
		logger.Warn("full-text compression failed", "error", err.Error())
	}

	return bson.M{"$set": set}
}

// extractBlocks dispatches to the extractor for the file's type.
func (s *DocumentService) extractBlocks(ctx context.Context, filePath string) ([]models.ExtractedBlock, *ExtractionStats, error) {
	switch strings.ToLower(filepath.Ext(filePath)) {
	case ".pdf":
		blocks, stats, err := s.pdf.ExtractBlocks(ctx, filePath)
		// Scanned documents have no usable text layer. When an OCR service
		// is configured, hand the file over instead of failing.
		if s.ocr != nil && (err != nil || (stats != nil && stats.QualityScore < 0.3)) {
			ocrBlocks, ocrStats, ocrErr := s.ocr.ExtractBlocks(ctx, filePath)
			if ocrErr == nil {
				return ocrBlocks, ocrStats, nil
			}
			logger.Warn("OCR fallback failed", "file", filePath, "error", ocrErr.Error())
		}
		return blocks, stats, err
	case ".xlsx":
		blocks, err := s.xlsx.ExtractBlocks(ctx, filePath)
		return blocks, nil, err
	case ".html", ".htm":
		blocks, err := s.html.ExtractBlocks(ctx, filePath)
		return blocks, nil, err
	default:
		return nil, nil, fmt.Errorf("unsupported file type: %s", filepath.Ext(filePath))
	}
}

func extractionType(filePath string) string {
	ext := strings.TrimPrefix(strings.ToLower(filepath.Ext(filePath)), ".")
	if ext == "htm" {
		ext = "html"
	}
	return ext
}

// validateUpload performs size, name, and type checks before any bytes are
// written.
func (s *DocumentService) validateUpload(req *UploadRequest) error {
	header := req.Header

	if header.Size > s.config.MaxFileSize {
		return fmt.Errorf("file size %d exceeds maximum allowed size %d", header.Size, s.config.MaxFileSize)
	}
	if header.Size == 0 {
		return fmt.Errorf("file is empty")
	}

	if header.Filename == "" {
		return fmt.Errorf("filename is required")
	}
	if len(header.Filename) > 255 {
		return fmt.Errorf("filename too long (max 255 characters)")
	}
	dangerous := []string{"../", "..\\", "<", ">", ":", "\"", "|", "?", "*", "\x00"}
	for _, char := range dangerous {
		if strings.Contains(header.Filename, char) {
			return fmt.Errorf("filename contains invalid or dangerous characters")
		}
	}

	switch strings.ToLower(filepath.Ext(header.Filename)) {
	case ".pdf", ".xlsx", ".html", ".htm":
	default:
		return fmt.Errorf("only PDF, XLSX and HTML files are supported")
	}

	return nil
}

// checkDuplicate looks for a live document with the same content hash.
func (s *DocumentService) checkDuplicate(ctx context.Context, userID primitive.ObjectID, fileHash string) (*models.Document, error) {
	ctx, cancel := utils.WithTimeout(ctx)
	defer cancel()

	var existing models.Document
	err := s.documents.FindOne(ctx, bson.M{
		"user_id":   userID,
		"file_hash": fileHash,
		"status":    bson.M{"$in": []string{models.StatusCompleted, models.StatusProcessing, models.StatusPending}},
	}).Decode(&existing)

	if err == mongo.ErrNoDocuments {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &existing, nil
}

// GetDocument loads one document owned record by id.
func (s *DocumentService) GetDocument(ctx context.Context, documentID primitive.ObjectID) (*models.Document, error) {
	ctx, cancel := utils.WithTimeout(ctx)
	defer cancel()

	var doc models.Document
	err := s.documents.FindOne(ctx, bson.M{"_id": documentID}).Decode(&doc)
	if err == mongo.ErrNoDocuments {
		return nil, ErrDocumentNotFound
	}
	if err != nil {
		return nil, err
	}
	return &doc, nil
}

// ListDocuments returns a user's documents, newest first.
func (s *DocumentService) ListDocuments(ctx context.Context, userID primitive.ObjectID) ([]models.Document, error) {
	ctx, cancel := utils.WithTimeout(ctx)
	defer cancel()

	opts := options.Find().SetSort(bson.D{{Key: "uploaded_at", Value: -1}})
	cursor, err := s.documents.Find(ctx, bson.M{"user_id": userID}, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var docs []models.Document
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, err
	}
	return docs, nil
}

// DeleteDocument removes the document record, its stored chunks, and the
// file on disk.
func (s *DocumentService) DeleteDocument(ctx context.Context, userID, documentID primitive.ObjectID) error {
	// Chunk deletion can touch many rows for large documents.
	ctx, cancel := utils.WithLongTimeout(ctx)
	defer cancel()

	var doc models.Document
	err := s.documents.FindOne(ctx, bson.M{"_id": documentID, "user_id": userID}).Decode(&doc)
	if err == mongo.ErrNoDocuments {
		return ErrDocumentNotFound
	}
	if err != nil {
		return err
	}

	deleted, err := s.store.DeleteByDocument(ctx, documentID)
	if err != nil {
		return fmt.Errorf("failed to delete chunks: %w", err)
	}

	if _, err := s.documents.DeleteOne(ctx, bson.M{"_id": documentID}); err != nil {
		return fmt.Errorf("failed to delete document record: %w", err)
	}
	s.storage.Cleanup(doc.FilePath)

	logger.Info("document deleted", "document_id", documentID.Hex(), "chunks_deleted", deleted)
	return nil
}

// updateStatus updates the processing status of a document
func (s *DocumentService) updateStatus(ctx context.Context, documentID primitive.ObjectID, status, errorMessage string) error {
	ctx, cancel := utils.WithTimeout(ctx)
	defer cancel()

	set := bson.M{
		"status":     status,
		"updated_at": time.Now(),
	}

	switch status {
	case models.StatusPending:
		set["progress"] = 0
	case models.StatusProcessing:
		set["progress"] = 50
	case models.StatusCompleted:
		set["progress"] = 100
	case models.StatusFailed:
		set["progress"] = 0
	}

	if errorMessage != "" {
		set["error_message"] = errorMessage
	}
	if status == models.StatusCompleted || status == models.StatusFailed {
		set["processed_at"] = time.Now()
	}

	_, err := s.documents.UpdateOne(ctx, bson.M{"_id": documentID}, bson.M{"$set": set})
	return err
}
