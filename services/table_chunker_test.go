package services

import (
	"fmt"
	"strings"
	"testing"

	"hebrew-rag-platform/models"
)

func tableBlock(text string) models.ExtractedBlock {
	return models.ExtractedBlock{
		Text: text,
		Kind: models.BlockKindTable,
		Meta: models.BlockMeta{SourceFilename: "invoice.pdf", ExtractionType: "pdf"},
	}
}

func TestChunkTableKeepsHebrewTableWhole(t *testing.T) {
	tc := NewTableChunker(NewHebrewTextService())

	table := "פריט  כמות  מחיר\n" +
		"מחשב נייד  2  4,500 ₪\n" +
		"מסך  3  1,200 ₪"

	chunks := tc.ChunkTable(tableBlock(table), 1000)
	if len(chunks) != 1 {
		t.Fatalf("Hebrew table split into %d chunks, want 1", len(chunks))
	}
	meta := chunks[0].Meta
	if !meta.IsTableChunk || !meta.IsCompleteTable {
		t.Errorf("missing table flags: %+v", meta)
	}
	if !meta.IsHebrewTable {
		t.Error("Hebrew table not flagged as such")
	}
	if !meta.HasCurrency {
		t.Error("currency not detected in table")
	}
	if meta.TotalTableRows != 3 {
		t.Errorf("total rows = %d, want 3", meta.TotalTableRows)
	}
}

func TestChunkTableKeepsFewRowsWhole(t *testing.T) {
	tc := NewTableChunker(NewHebrewTextService())

	// Four rows, each far over the size budget. Row count wins.
	var rows []string
	for i := 0; i < 4; i++ {
		rows = append(rows, fmt.Sprintf("row %d %s", i, strings.Repeat("ab ", 70)))
	}
	chunks := tc.ChunkTable(tableBlock(strings.Join(rows, "\n")), 100)
	if len(chunks) != 1 {
		t.Fatalf("4-row table split into %d chunks, want 1", len(chunks))
	}
	if !chunks[0].Meta.IsCompleteTable {
		t.Error("whole table not flagged complete")
	}
}

func TestChunkTableSplitsWithRowOverlap(t *testing.T) {
	tc := NewTableChunker(NewHebrewTextService())

	var rows []string
	for i := 0; i < 10; i++ {
		rows = append(rows, fmt.Sprintf("entry %02d alpha beta gamma delta epsilon zeta", i))
	}
	chunks := tc.ChunkTable(tableBlock(strings.Join(rows, "\n")), 100)
	if len(chunks) < 2 {
		t.Fatalf("large plain table produced %d chunks, want several", len(chunks))
	}

	covered := make(map[int]bool)
	for i, chunk := range chunks {
		meta := chunk.Meta
		if !meta.IsPartialTable {
			t.Errorf("chunk %d not flagged partial", i)
		}
		if meta.RowEnd < meta.RowStart {
			t.Errorf("chunk %d row range inverted: %d..%d", i, meta.RowStart, meta.RowEnd)
		}
		for r := meta.RowStart; r <= meta.RowEnd; r++ {
			covered[r] = true
		}
		if i > 0 && meta.RowStart != chunks[i-1].Meta.RowEnd {
			t.Errorf("chunk %d starts at row %d, want overlap with previous end row %d",
				i, meta.RowStart, chunks[i-1].Meta.RowEnd)
		}
	}
	for r := 0; r < 10; r++ {
		if !covered[r] {
			t.Errorf("row %d missing from all chunks", r)
		}
	}
}

func TestChunkTableOversizedRowNotCarriedAsOverlap(t *testing.T) {
	tc := NewTableChunker(NewHebrewTextService())

	// Six keyword-free rows so neither the row-count nor the size gate keeps
	// the table whole, with one row far over the budget in the middle.
	longRow := strings.Repeat("x", 120)
	table := strings.Join([]string{
		"row one alpha",
		"row two beta",
		"row three gamma",
		"row four delta",
		longRow,
		"short tail",
	}, "\n")

	chunks := tc.ChunkTable(tableBlock(table), 50)
	if len(chunks) < 2 {
		t.Fatalf("got %d chunks, want several", len(chunks))
	}

	var texts []string
	for _, c := range chunks {
		if !c.Meta.IsPartialTable {
			t.Errorf("chunk %q not marked partial", c.Text)
		}
		texts = append(texts, c.Text)
	}
	joined := strings.Join(texts, "\n")

	// The over-budget row is never dropped, and never duplicated into the
	// following chunk as overlap.
	if got := strings.Count(joined, longRow); got != 1 {
		t.Errorf("oversized row appears %d times across chunks, want exactly 1", got)
	}
	last := chunks[len(chunks)-1]
	if last.Text != "short tail" {
		t.Errorf("last chunk = %q, want the tail row alone", last.Text)
	}
}

func TestChunkTableNoOverlapOnlyChunks(t *testing.T) {
	tc := NewTableChunker(NewHebrewTextService())

	// Tight budget with rows sized to force a split on nearly every step.
	var rows []string
	for i := 0; i < 12; i++ {
		rows = append(rows, fmt.Sprintf("entry %c%c%c%c %02d", 'a'+i, 'b'+i, 'c'+i, 'd'+i, i))
	}
	chunks := tc.ChunkTable(tableBlock(strings.Join(rows, "\n")), 20)
	if len(chunks) < 3 {
		t.Fatalf("got %d chunks, want many", len(chunks))
	}
	for i := 1; i < len(chunks); i++ {
		prevRows := strings.Split(chunks[i-1].Text, "\n")
		if chunks[i].Text == prevRows[len(prevRows)-1] {
			t.Errorf("chunk %d is only the previous chunk's overlap row %q", i, chunks[i].Text)
		}
	}
}
