package models

// BlockKind discriminates how an extracted block should be chunked.
type BlockKind string

const (
	BlockKindText     BlockKind = "text"
	BlockKindTable    BlockKind = "table"
	BlockKindJSON     BlockKind = "json"
	BlockKindImageOCR BlockKind = "image_ocr"
)

// BlockMeta carries the structural metadata attached to an extracted block.
// Well-known fields are typed; anything extractor-specific goes into Extra.
type BlockMeta struct {
	SourceFilename string            `bson:"source_filename" json:"source_filename"`
	ExtractionType string            `bson:"extraction_type" json:"extraction_type"`
	Chapter        string            `bson:"chapter,omitempty" json:"chapter,omitempty"`
	Section        string            `bson:"section,omitempty" json:"section,omitempty"`
	PageNumber     int               `bson:"page_number,omitempty" json:"page_number,omitempty"`
	TableIndex     int               `bson:"table_index,omitempty" json:"table_index,omitempty"`
	Extra          map[string]string `bson:"extra,omitempty" json:"extra,omitempty"`
}

// ExtractedBlock is one typed unit of text produced by an extractor.
// Blocks are immutable and consumed exactly once by the chunker.
type ExtractedBlock struct {
	Text string    `bson:"text" json:"text"`
	Kind BlockKind `bson:"kind" json:"kind"`
	Meta BlockMeta `bson:"meta" json:"meta"`
}
