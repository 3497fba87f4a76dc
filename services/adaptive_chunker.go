package services

import (
	"fmt"
	"regexp"
	"strings"

	"hebrew-rag-platform/internal/logger"
	"hebrew-rag-platform/models"
)

// AdaptiveChunker turns a sequence of extracted blocks into deduplicated,
// metadata-stamped chunks. Chunk size and overlap are selected from total
// document length; table blocks are delegated to the TableChunker; all other
// blocks go through a recursive separator splitter that prefers paragraph
// boundaries over lines, lines over sentences, and only hard-cuts as a last
// resort.
type AdaptiveChunker struct {
	text       *HebrewTextService
	tables     *TableChunker
	separators []*regexp.Regexp
}

// ChunkingResult carries the produced chunks plus the coverage accounting
// used for observability. Coverage is logged, not enforced.
type ChunkingResult struct {
	Chunks       []models.Chunk
	TotalChars   int
	CoveredChars int
	Coverage     float64
	Duplicates   int
	Fallbacks    int
	ChunkSize    int
	Overlap      int
}

// NewAdaptiveChunker creates an adaptive chunker backed by the given text
// service and table chunker.
func NewAdaptiveChunker(text *HebrewTextService, tables *TableChunker) *AdaptiveChunker {
	return &AdaptiveChunker{
		text:   text,
		tables: tables,
		separators: []*regexp.Regexp{
			regexp.MustCompile(`\n{2,}`),   // paragraphs
			regexp.MustCompile(`\n`),       // lines
			regexp.MustCompile(`[.!?]+\s`), // sentences
			regexp.MustCompile(`\s`),       // words
		},
	}
}

// selectChunkParams picks chunk size and overlap from total document length.
// Small documents get large chunks to keep embedding-call count down; large
// documents get small chunks for retrieval granularity.
func selectChunkParams(totalLen int) (chunkSize, overlap int) {
	switch {
	case totalLen < 3_000:
		return 1500, 50
	case totalLen < 10_000:
		return 1200, 100
	case totalLen < 30_000:
		return 1000, 150
	case totalLen < 100_000:
		return 800, 120
	default:
		return 600, 80
	}
}

// ChunkBlocks chunks all blocks in order. baseSize and baseOverlap are the
// caller's defaults; they only apply when the document is empty and adaptive
// selection has nothing to measure.
func (ac *AdaptiveChunker) ChunkBlocks(blocks []models.ExtractedBlock, baseSize, baseOverlap int) *ChunkingResult {
	totalLen := 0
	hasComplex := false
	for _, block := range blocks {
		totalLen += charLen(block.Text)
		if block.Kind == models.BlockKindTable || block.Kind == models.BlockKindImageOCR || ac.text.IsRTL(block.Text) {
			hasComplex = true
		}
	}

	chunkSize, overlap := baseSize, baseOverlap
	if totalLen > 0 {
		chunkSize, overlap = selectChunkParams(totalLen)
	}
	if hasComplex {
		// Complex content needs smaller, more-overlapping chunks for
		// context preservation.
		if chunkSize > 900 {
			chunkSize = 900
		}
		if overlap < 100 {
			overlap = 100
		}
	}

	result := &ChunkingResult{
		TotalChars: totalLen,
		ChunkSize:  chunkSize,
		Overlap:    overlap,
	}
	seen := make(map[string]struct{})

	for elementIndex, block := range blocks {
		blockChunks, err := ac.splitBlock(block, chunkSize, overlap)
		if err != nil {
			// One block's splitting failure must never abort the whole
			// document: fall back to the raw block as a single chunk.
			logger.Warn("block splitting failed, emitting fallback chunk",
				"element_index", elementIndex, "error", err.Error())
			result.Fallbacks++
			blockChunks = []models.Chunk{{
				Text: block.Text,
				Meta: models.ChunkMeta{
					BlockMeta:     block.Meta,
					FallbackChunk: true,
					ErrorRecovery: true,
				},
			}}
		}

		emitted := 0
		for _, chunk := range blockChunks {
			hash := HashChunkContent(chunk.Text)
			if _, dup := seen[hash]; dup {
				result.Duplicates++
				continue
			}
			seen[hash] = struct{}{}

			chunk.Meta.ChunkIndex = emitted
			chunk.Meta.ElementIndex = elementIndex
			chunk.Meta.AdaptiveChunkSize = chunkSize
			result.CoveredChars += charLen(chunk.Text)
			result.Chunks = append(result.Chunks, chunk)
			emitted++
		}
		// TotalChunks counts what this block actually emitted.
		for i := len(result.Chunks) - emitted; i < len(result.Chunks); i++ {
			result.Chunks[i].Meta.TotalChunks = emitted
		}
	}

	for i := range result.Chunks {
		result.Chunks[i].Meta.SequentialID = i
		result.Chunks[i].Meta.TotalDocumentChunks = len(result.Chunks)
	}

	if totalLen > 0 {
		result.Coverage = float64(result.CoveredChars) / float64(totalLen)
	}
	logger.Info("document chunked",
		"blocks", len(blocks),
		"chunks", len(result.Chunks),
		"chunk_size", chunkSize,
		"overlap", overlap,
		"duplicates", result.Duplicates,
		"fallbacks", result.Fallbacks,
		"coverage", fmt.Sprintf("%.1f%%", result.Coverage*100))

	return result
}

// splitBlock splits one block into chunks, recovering from panics in the
// splitting logic so the caller can fall back to a raw-text chunk.
func (ac *AdaptiveChunker) splitBlock(block models.ExtractedBlock, chunkSize, overlap int) (chunks []models.Chunk, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("splitter panic: %v", r)
		}
	}()

	if block.Kind == models.BlockKindTable {
		return ac.tables.ChunkTable(block, chunkSize), nil
	}

	parts := ac.recursiveSplit(block.Text, ac.separators, chunkSize)
	parts = applyOverlap(parts, overlap)

	chunks = make([]models.Chunk, 0, len(parts))
	for _, part := range parts {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		chunks = append(chunks, models.Chunk{
			Text: part,
			Meta: models.ChunkMeta{BlockMeta: block.Meta},
		})
	}
	return chunks, nil
}

// recursiveSplit breaks text into pieces no larger than chunkSize, trying
// each separator in order before falling back to a hard character cut.
func (ac *AdaptiveChunker) recursiveSplit(text string, seps []*regexp.Regexp, chunkSize int) []string {
	if charLen(text) <= chunkSize {
		return []string{text}
	}
	if len(seps) == 0 {
		return hardCut(text, chunkSize)
	}

	pieces := splitAfter(text, seps[0])
	if len(pieces) == 1 {
		return ac.recursiveSplit(text, seps[1:], chunkSize)
	}

	var flat []string
	for _, piece := range pieces {
		if charLen(piece) <= chunkSize {
			flat = append(flat, piece)
		} else {
			flat = append(flat, ac.recursiveSplit(piece, seps[1:], chunkSize)...)
		}
	}
	return mergePieces(flat, chunkSize)
}

// splitAfter splits text on a separator regexp, keeping each separator
// attached to the piece before it.
func splitAfter(text string, sep *regexp.Regexp) []string {
	locs := sep.FindAllStringIndex(text, -1)
	if len(locs) == 0 {
		return []string{text}
	}
	parts := make([]string, 0, len(locs)+1)
	prev := 0
	for _, loc := range locs {
		parts = append(parts, text[prev:loc[1]])
		prev = loc[1]
	}
	if prev < len(text) {
		parts = append(parts, text[prev:])
	}
	return parts
}

// mergePieces greedily glues adjacent pieces back together up to chunkSize,
// so a paragraph split into many sentences still yields few, full chunks.
func mergePieces(pieces []string, chunkSize int) []string {
	var merged []string
	var buf strings.Builder
	bufLen := 0

	for _, piece := range pieces {
		pieceLen := charLen(piece)
		if bufLen > 0 && bufLen+pieceLen > chunkSize {
			merged = append(merged, buf.String())
			buf.Reset()
			bufLen = 0
		}
		buf.WriteString(piece)
		bufLen += pieceLen
	}
	if bufLen > 0 {
		merged = append(merged, buf.String())
	}
	return merged
}

// hardCut slices text into fixed-size rune windows. Last resort when no
// separator produced progress.
func hardCut(text string, chunkSize int) []string {
	runes := []rune(text)
	var parts []string
	for start := 0; start < len(runes); start += chunkSize {
		end := start + chunkSize
		if end > len(runes) {
			end = len(runes)
		}
		parts = append(parts, string(runes[start:end]))
	}
	return parts
}

// applyOverlap prefixes each chunk after the first with the tail of its
// predecessor, cut at a whitespace boundary where possible.
func applyOverlap(parts []string, overlap int) []string {
	if overlap <= 0 || len(parts) < 2 {
		return parts
	}
	out := make([]string, len(parts))
	out[0] = parts[0]
	for i := 1; i < len(parts); i++ {
		tail := tailChars(parts[i-1], overlap)
		if tail == "" {
			out[i] = parts[i]
			continue
		}
		out[i] = tail + " " + strings.TrimLeft(parts[i], " ")
	}
	return out
}

// tailChars returns roughly the last n characters of s, advanced to the next
// word boundary to avoid starting an overlap mid-word.
func tailChars(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return strings.TrimSpace(s)
	}
	tail := string(runes[len(runes)-n:])
	if idx := strings.IndexAny(tail, " \n\t"); idx >= 0 {
		tail = tail[idx+1:]
	}
	return strings.TrimSpace(tail)
}
