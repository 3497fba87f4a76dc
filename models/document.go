package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Document represents one uploaded source document and its processing state.
type Document struct {
	ID             primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	UserID         primitive.ObjectID `bson:"user_id" json:"user_id"`
	Filename       string             `bson:"filename" json:"filename"`
	OriginalName   string             `bson:"original_name" json:"original_name"`
	FilePath       string             `bson:"file_path" json:"file_path"`
	FileHash       string             `bson:"file_hash" json:"file_hash"` // For deduplication
	ContentType    string             `bson:"content_type" json:"content_type"`
	Status         string             `bson:"status" json:"status"` // pending, processing, completed, failed
	Progress       int                `bson:"progress" json:"progress"`
	ErrorMessage   string             `bson:"error_message,omitempty" json:"error_message,omitempty"`
	Warning        string             `bson:"warning,omitempty" json:"warning,omitempty"`
	UploadedAt     time.Time          `bson:"uploaded_at" json:"uploaded_at"`
	UpdatedAt      time.Time          `bson:"updated_at" json:"updated_at"`
	ProcessedAt    *time.Time         `bson:"processed_at,omitempty" json:"processed_at,omitempty"`
	Metadata       DocumentMetadata   `bson:"metadata" json:"metadata"`
	CompressedText []byte             `bson:"compressed_text,omitempty" json:"-"` // Archived full text
	Compression    string             `bson:"compression,omitempty" json:"-"`
}

// DocumentMetadata contains extraction and ingestion statistics.
type DocumentMetadata struct {
	Size           int64         `bson:"size" json:"size"`
	Pages          int           `bson:"pages,omitempty" json:"pages,omitempty"`
	Blocks         int           `bson:"blocks" json:"blocks"`
	Chunks         int           `bson:"chunks" json:"chunks"`
	TableChunks    int           `bson:"table_chunks,omitempty" json:"table_chunks,omitempty"`
	CharacterCount int           `bson:"character_count" json:"character_count"`
	Coverage       float64       `bson:"coverage" json:"coverage"`
	SuccessRate    float64       `bson:"success_rate" json:"success_rate"`
	HasHebrew      bool          `bson:"has_hebrew" json:"has_hebrew"`
	HasTables      bool          `bson:"has_tables" json:"has_tables"`
	ChunkSize      int           `bson:"chunk_size" json:"chunk_size"`
	ChunkOverlap   int           `bson:"chunk_overlap" json:"chunk_overlap"`
	ProcessingTime time.Duration `bson:"processing_time" json:"processing_time"`
}

// UploadResponse is returned after a successful upload request.
type UploadResponse struct {
	ID       string           `json:"id"`
	Filename string           `json:"filename"`
	Status   string           `json:"status"`
	Metadata DocumentMetadata `json:"metadata"`
	Message  string           `json:"message"`
	Warning  string           `json:"warning,omitempty"`
	TaskID   string           `json:"task_id,omitempty"` // For async processing
}

// Document processing status constants.
const (
	StatusPending    = "pending"
	StatusProcessing = "processing"
	StatusCompleted  = "completed"
	StatusFailed     = "failed"
)
