package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// ChunkMeta is the metadata stamped onto every chunk. It inherits the source
// block's BlockMeta and adds chunk-level position and table flags.
type ChunkMeta struct {
	BlockMeta `bson:",inline" json:",inline"`

	ChunkIndex          int `bson:"chunk_index" json:"chunk_index"`
	TotalChunks         int `bson:"total_chunks" json:"total_chunks"`
	ElementIndex        int `bson:"element_index" json:"element_index"`
	SequentialID        int `bson:"sequential_id" json:"sequential_id"`
	TotalDocumentChunks int `bson:"total_document_chunks" json:"total_document_chunks"`
	AdaptiveChunkSize   int `bson:"adaptive_chunk_size" json:"adaptive_chunk_size"`

	IsTableChunk    bool `bson:"is_table_chunk,omitempty" json:"is_table_chunk,omitempty"`
	IsCompleteTable bool `bson:"is_complete_table,omitempty" json:"is_complete_table,omitempty"`
	IsPartialTable  bool `bson:"is_partial_table,omitempty" json:"is_partial_table,omitempty"`
	IsHebrewTable   bool `bson:"is_hebrew_table,omitempty" json:"is_hebrew_table,omitempty"`
	HasCurrency     bool `bson:"has_currency,omitempty" json:"has_currency,omitempty"`
	RowStart        int  `bson:"row_start,omitempty" json:"row_start,omitempty"`
	RowEnd          int  `bson:"row_end,omitempty" json:"row_end,omitempty"`
	TotalTableRows  int  `bson:"total_table_rows,omitempty" json:"total_table_rows,omitempty"`

	FallbackChunk bool `bson:"fallback_chunk,omitempty" json:"fallback_chunk,omitempty"`
	ErrorRecovery bool `bson:"error_recovery,omitempty" json:"error_recovery,omitempty"`
}

// Chunk is the atomic unit that gets embedded and stored.
type Chunk struct {
	Text string    `bson:"text" json:"text"`
	Meta ChunkMeta `bson:"meta" json:"meta"`
}

// StoredChunk is the persisted vector-store row for one embedded chunk.
// Rows are insert-only; deletion happens at document level.
type StoredChunk struct {
	ID          primitive.ObjectID  `bson:"_id,omitempty" json:"id"`
	DocumentID  *primitive.ObjectID `bson:"document_id,omitempty" json:"document_id,omitempty"`
	Content     string              `bson:"content" json:"content"`
	ContentHash string              `bson:"content_hash" json:"-"`
	Embedding   []float32           `bson:"embedding" json:"-"`
	Meta        ChunkMeta           `bson:"meta" json:"meta"`
	CreatedAt   time.Time           `bson:"created_at" json:"created_at"`
}

// RetrievedChunk is one vector-search hit returned to the answer layer.
type RetrievedChunk struct {
	Content    string    `bson:"content" json:"content"`
	Meta       ChunkMeta `bson:"meta" json:"meta"`
	Similarity float64   `bson:"similarity" json:"similarity"`
}
