package services

import (
	"strings"
	"unicode/utf8"

	"hebrew-rag-platform/models"
)

// TableChunker splits table blocks without destroying row/column
// correspondence. Small, Hebrew, or keyword-dense tables are emitted whole;
// only large plain tables are split, row by row, with a one-row overlap so
// context survives the split boundary.
type TableChunker struct {
	text *HebrewTextService
}

// NewTableChunker creates a table chunker backed by the given text service.
func NewTableChunker(text *HebrewTextService) *TableChunker {
	return &TableChunker{text: text}
}

// ChunkTable produces one or more chunks from a single table block.
// chunkSize is the target chunk size in characters.
func (tc *TableChunker) ChunkTable(block models.ExtractedBlock, chunkSize int) []models.Chunk {
	isRTL := tc.text.IsRTL(block.Text)
	hasCurrency := tc.text.HasCurrency(block.Text)
	keywordHits := tc.text.KeywordHits(block.Text)
	needsCleanup := isRTL || hasCurrency || keywordHits >= 1

	rows := splitTableRows(block.Text)
	if needsCleanup {
		for i, row := range rows {
			rows[i] = tc.text.Clean(row)
		}
	}
	tableText := strings.Join(rows, "\n")

	baseMeta := models.ChunkMeta{
		BlockMeta:      block.Meta,
		IsTableChunk:   true,
		IsHebrewTable:  isRTL,
		HasCurrency:    hasCurrency,
		TotalTableRows: len(rows),
	}

	// Fragmenting a small or structured table loses more than it gains:
	// keep it whole when it fits, reads right-to-left, matches the domain
	// vocabulary, or simply has too few rows to be worth splitting.
	if charLen(tableText) <= chunkSize*3/2 || isRTL || keywordHits >= 2 || len(rows) <= 5 {
		meta := baseMeta
		meta.IsCompleteTable = true
		return []models.Chunk{{Text: tableText, Meta: meta}}
	}

	return tc.splitByRows(rows, chunkSize, baseMeta)
}

// splitByRows accumulates rows until the next row would overflow the target
// size, then emits the buffer and seeds the next chunk with the previous
// chunk's last row. A single row larger than the budget is emitted as its
// own chunk; size adherence never justifies dropping content.
func (tc *TableChunker) splitByRows(rows []string, chunkSize int, baseMeta models.ChunkMeta) []models.Chunk {
	var chunks []models.Chunk
	var buf []string
	bufLen := 0
	rowStart := 0

	emit := func(rowEnd int) {
		meta := baseMeta
		meta.IsPartialTable = true
		meta.RowStart = rowStart
		meta.RowEnd = rowEnd
		chunks = append(chunks, models.Chunk{Text: strings.Join(buf, "\n"), Meta: meta})
	}

	for i, row := range rows {
		rowLen := charLen(row)
		if len(buf) > 0 && bufLen+rowLen+1 > chunkSize {
			emit(i - 1)

			last := buf[len(buf)-1]
			if charLen(last) < chunkSize {
				// One-row overlap into the next chunk.
				buf = []string{last}
				bufLen = charLen(last)
				rowStart = i - 1
			} else {
				buf = buf[:0]
				bufLen = 0
				rowStart = i
			}
		}
		buf = append(buf, row)
		bufLen += rowLen + 1
	}
	if len(buf) > 0 {
		emit(len(rows) - 1)
	}

	return chunks
}

// splitTableRows splits raw table text into non-empty rows.
func splitTableRows(text string) []string {
	lines := strings.Split(text, "\n")
	rows := make([]string, 0, len(lines))
	for _, line := range lines {
		if strings.TrimSpace(line) != "" {
			rows = append(rows, line)
		}
	}
	return rows
}

// charLen counts characters rather than bytes; Hebrew text is multi-byte in
// UTF-8 and all size budgets are in characters.
func charLen(s string) int {
	return utf8.RuneCountInString(s)
}
