package services

import (
	"fmt"
	"strings"
	"testing"

	"hebrew-rag-platform/models"
)

func newTestChunker() *AdaptiveChunker {
	text := NewHebrewTextService()
	return NewAdaptiveChunker(text, NewTableChunker(text))
}

func textBlock(text string) models.ExtractedBlock {
	return models.ExtractedBlock{
		Text: text,
		Kind: models.BlockKindText,
		Meta: models.BlockMeta{SourceFilename: "report.pdf", ExtractionType: "pdf"},
	}
}

// variedText builds non-repetitive prose of roughly n characters.
func variedText(n int) string {
	var b strings.Builder
	for i := 0; b.Len() < n; i++ {
		fmt.Fprintf(&b, "Sentence number %02d describes the landscape near the river bank. ", i)
	}
	return b.String()
}

func TestSelectChunkParams(t *testing.T) {
	cases := []struct {
		totalLen, size, overlap int
	}{
		{500, 1500, 50},
		{2999, 1500, 50},
		{3000, 1200, 100},
		{9999, 1200, 100},
		{10000, 1000, 150},
		{29999, 1000, 150},
		{30000, 800, 120},
		{99999, 800, 120},
		{100000, 600, 80},
		{500000, 600, 80},
	}
	for _, c := range cases {
		size, overlap := selectChunkParams(c.totalLen)
		if size != c.size || overlap != c.overlap {
			t.Errorf("selectChunkParams(%d) = (%d, %d), want (%d, %d)",
				c.totalLen, size, overlap, c.size, c.overlap)
		}
	}
}

func TestChunkBlocksSmallDocument(t *testing.T) {
	ac := newTestChunker()

	doc := variedText(1950)
	result := ac.ChunkBlocks([]models.ExtractedBlock{textBlock(doc)}, 1000, 200)

	if result.ChunkSize != 1500 || result.Overlap != 50 {
		t.Fatalf("params = (%d, %d), want (1500, 50)", result.ChunkSize, result.Overlap)
	}
	if len(result.Chunks) != 2 {
		t.Fatalf("got %d chunks, want 2", len(result.Chunks))
	}
	if result.Coverage < 1.0 || result.Coverage > 1.10 {
		t.Errorf("coverage = %.3f, want within [1.00, 1.10]", result.Coverage)
	}
}

func TestChunkBlocksComplexContentClamp(t *testing.T) {
	ac := newTestChunker()

	doc := variedText(1800) + " שלום עולם, זהו משפט בעברית."
	result := ac.ChunkBlocks([]models.ExtractedBlock{textBlock(doc)}, 1000, 200)

	if result.ChunkSize != 900 {
		t.Errorf("chunk size = %d, want 900 for RTL content", result.ChunkSize)
	}
	if result.Overlap != 100 {
		t.Errorf("overlap = %d, want 100 for RTL content", result.Overlap)
	}
}

func TestChunkBlocksCoverageBounds(t *testing.T) {
	ac := newTestChunker()

	for _, size := range []int{2_000, 8_000, 25_000, 60_000} {
		result := ac.ChunkBlocks([]models.ExtractedBlock{textBlock(variedText(size))}, 1000, 200)
		if result.Coverage < 0.90 || result.Coverage > 1.30 {
			t.Errorf("doc of %d chars: coverage = %.3f, want within [0.90, 1.30]",
				size, result.Coverage)
		}
	}
}

func TestChunkBlocksDeduplicates(t *testing.T) {
	ac := newTestChunker()

	blocks := []models.ExtractedBlock{
		textBlock("hello world from the chunking engine"),
		textBlock("hello world from the chunking engine"),
	}
	result := ac.ChunkBlocks(blocks, 1000, 100)

	if len(result.Chunks) != 1 {
		t.Fatalf("got %d chunks, want 1 after dedup", len(result.Chunks))
	}
	if result.Duplicates != 1 {
		t.Errorf("duplicates = %d, want 1", result.Duplicates)
	}

	seen := make(map[string]bool)
	for _, chunk := range result.Chunks {
		hash := HashChunkContent(chunk.Text)
		if seen[hash] {
			t.Errorf("duplicate content survived dedup: %q", chunk.Text)
		}
		seen[hash] = true
	}
}

func TestChunkBlocksTableStaysWhole(t *testing.T) {
	ac := newTestChunker()

	table := models.ExtractedBlock{
		Text: "פריט  כמות  מחיר\nמחשב נייד  2  4,500 ₪\nמסך  3  1,200 ₪",
		Kind: models.BlockKindTable,
		Meta: models.BlockMeta{SourceFilename: "invoice.pdf", ExtractionType: "pdf", TableIndex: 1},
	}
	result := ac.ChunkBlocks([]models.ExtractedBlock{table}, 1000, 100)

	if len(result.Chunks) != 1 {
		t.Fatalf("small Hebrew table produced %d chunks, want 1", len(result.Chunks))
	}
	meta := result.Chunks[0].Meta
	if !meta.IsTableChunk || !meta.IsCompleteTable {
		t.Errorf("table flags not set: %+v", meta)
	}
	if meta.TableIndex != 1 {
		t.Errorf("table index not propagated: %d", meta.TableIndex)
	}
}

func TestChunkBlocksMetadataStamping(t *testing.T) {
	ac := newTestChunker()

	blocks := []models.ExtractedBlock{
		textBlock("first short block"),
		textBlock("second short block"),
	}
	result := ac.ChunkBlocks(blocks, 1000, 100)
	if len(result.Chunks) != 2 {
		t.Fatalf("got %d chunks, want 2", len(result.Chunks))
	}

	for i, chunk := range result.Chunks {
		meta := chunk.Meta
		if meta.SequentialID != i {
			t.Errorf("chunk %d: sequential id = %d", i, meta.SequentialID)
		}
		if meta.TotalDocumentChunks != 2 {
			t.Errorf("chunk %d: total document chunks = %d", i, meta.TotalDocumentChunks)
		}
		if meta.ElementIndex != i {
			t.Errorf("chunk %d: element index = %d", i, meta.ElementIndex)
		}
		if meta.ChunkIndex != 0 || meta.TotalChunks != 1 {
			t.Errorf("chunk %d: per-block counters = %d/%d", i, meta.ChunkIndex, meta.TotalChunks)
		}
		if meta.AdaptiveChunkSize == 0 {
			t.Errorf("chunk %d: adaptive chunk size not stamped", i)
		}
	}
}

func TestChunkBlocksEmptyInput(t *testing.T) {
	ac := newTestChunker()

	result := ac.ChunkBlocks(nil, 800, 100)
	if len(result.Chunks) != 0 {
		t.Fatalf("empty input produced %d chunks", len(result.Chunks))
	}
	if result.ChunkSize != 800 || result.Overlap != 100 {
		t.Errorf("empty input should fall back to caller defaults, got (%d, %d)",
			result.ChunkSize, result.Overlap)
	}
}

func TestChunkBlocksWhitespaceOnlyBlock(t *testing.T) {
	ac := newTestChunker()

	result := ac.ChunkBlocks([]models.ExtractedBlock{textBlock("   \n\t  ")}, 800, 100)
	if len(result.Chunks) != 0 {
		t.Fatalf("whitespace-only block produced %d chunks", len(result.Chunks))
	}
}
