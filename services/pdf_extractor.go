package services

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"github.com/ledongthuc/pdf"

	"hebrew-rag-platform/internal/logger"
	"hebrew-rag-platform/models"
)

// PDFExtractor extracts typed blocks from PDF files. Per-page text is
// segmented into prose and table blocks so the chunker can treat each
// appropriately. When the native reader produces garbage (common with
// scanned or oddly-encoded Hebrew PDFs) it falls back to pdftotext.
type PDFExtractor struct {
	text *HebrewTextService
}

// ExtractionStats summarizes one extraction run for the document record.
type ExtractionStats struct {
	Pages          int
	Method         string
	QualityScore   float64
	ProcessingTime time.Duration
	WordCount      int
	CharacterCount int
	Language       string
	HasTables      bool
}

func NewPDFExtractor(text *HebrewTextService) *PDFExtractor {
	return &PDFExtractor{text: text}
}

// ExtractBlocks extracts all blocks from the PDF at filePath.
func (e *PDFExtractor) ExtractBlocks(ctx context.Context, filePath string) ([]models.ExtractedBlock, *ExtractionStats, error) {
	start := time.Now()

	stat, err := os.Stat(filePath)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to stat PDF file: %w", err)
	}
	if stat.Size() > 200<<20 { // 200MB safety cap
		return nil, nil, fmt.Errorf("pdf too large for in-memory extraction")
	}

	content, err := os.ReadFile(filePath)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to read PDF file: %w", err)
	}

	pages, pageCount, err := e.extractPages(content)
	method := "go-pdf"

	quality := 0.0
	if err == nil {
		quality = e.evaluateTextQuality(strings.Join(pages, "\n"))
	}

	// Low quality usually means encoding trouble; pdftotext handles a wider
	// range of producers, especially for RTL documents.
	if err != nil || quality < 0.5 {
		if fallbackPages, fallbackCount, fbErr := e.extractWithPdftotext(ctx, content); fbErr == nil {
			fbQuality := e.evaluateTextQuality(strings.Join(fallbackPages, "\n"))
			if err != nil || fbQuality > quality {
				pages, pageCount, quality, method = fallbackPages, fallbackCount, fbQuality, "pdftotext"
				err = nil
			}
		}
	}
	if err != nil {
		return nil, nil, fmt.Errorf("pdf extraction failed: %w", err)
	}

	filename := filepath.Base(filePath)
	var blocks []models.ExtractedBlock
	tableIndex := 0
	for pageNum, pageText := range pages {
		if strings.TrimSpace(pageText) == "" {
			continue
		}
		pageBlocks := e.segmentPage(pageText, filename, pageNum+1, &tableIndex)
		blocks = append(blocks, pageBlocks...)
	}

	fullText := strings.Join(pages, "\n")
	stats := &ExtractionStats{
		Pages:          pageCount,
		Method:         method,
		QualityScore:   quality,
		ProcessingTime: time.Since(start),
		WordCount:      len(strings.Fields(fullText)),
		CharacterCount: charLen(fullText),
		Language:       e.detectLanguage(fullText),
		HasTables:      tableIndex > 0,
	}

	logger.Info("pdf extracted",
		"file", filename,
		"method", method,
		"pages", pageCount,
		"blocks", len(blocks),
		"tables", tableIndex,
		"quality", fmt.Sprintf("%.2f", quality),
		"language", stats.Language)

	return blocks, stats, nil
}

// extractPages reads each page's plain text with the native reader.
func (e *PDFExtractor) extractPages(content []byte) ([]string, int, error) {
	reader, err := pdf.NewReader(bytes.NewReader(content), int64(len(content)))
	if err != nil {
		return nil, 0, fmt.Errorf("failed to create PDF reader: %w", err)
	}

	pageCount := reader.NumPage()
	pages := make([]string, 0, pageCount)
	extracted := 0

	for i := 1; i <= pageCount; i++ {
		page := reader.Page(i)
		if page.V.IsNull() {
			pages = append(pages, "")
			continue
		}

		fonts := make(map[string]*pdf.Font)
		text, err := page.GetPlainText(fonts)
		if err != nil {
			logger.Warn("page extraction failed", "page", i, "error", err.Error())
			pages = append(pages, "")
			continue
		}
		pages = append(pages, text)
		extracted++
	}

	if extracted == 0 {
		return nil, pageCount, fmt.Errorf("no text extracted from any page")
	}
	return pages, pageCount, nil
}

// extractWithPdftotext shells out to poppler-utils, splitting pages on the
// form-feed markers pdftotext emits.
func (e *PDFExtractor) extractWithPdftotext(ctx context.Context, content []byte) ([]string, int, error) {
	if _, err := exec.LookPath("pdftotext"); err != nil {
		return nil, 0, fmt.Errorf("pdftotext not available")
	}

	extractCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	cmd := exec.CommandContext(extractCtx, "pdftotext", "-layout", "-", "-")
	cmd.Stdin = bytes.NewReader(content)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		return nil, 0, fmt.Errorf("pdftotext failed: %v, stderr: %s", err, stderr.String())
	}

	output := stdout.String()
	if len(output) == 0 {
		return nil, 0, fmt.Errorf("no text extracted by pdftotext")
	}

	pages := strings.Split(output, "\f")
	return pages, len(pages), nil
}

// segmentPage splits one page's text into prose and table blocks. Runs of
// multi-column lines become table blocks; everything between them is prose.
func (e *PDFExtractor) segmentPage(pageText, filename string, pageNumber int, tableIndex *int) []models.ExtractedBlock {
	lines := strings.Split(pageText, "\n")

	var blocks []models.ExtractedBlock
	var prose, table []string

	baseMeta := func() models.BlockMeta {
		return models.BlockMeta{
			SourceFilename: filename,
			ExtractionType: "pdf",
			PageNumber:     pageNumber,
		}
	}

	flushProse := func() {
		text := strings.TrimSpace(strings.Join(prose, "\n"))
		prose = prose[:0]
		if text == "" {
			return
		}
		blocks = append(blocks, models.ExtractedBlock{
			Text: text,
			Kind: models.BlockKindText,
			Meta: baseMeta(),
		})
	}
	flushTable := func() {
		// A lone tabular line is not a table, keep it with the prose.
		if len(table) < 3 {
			prose = append(prose, table...)
			table = table[:0]
			return
		}
		flushProse()
		*tableIndex++
		meta := baseMeta()
		meta.TableIndex = *tableIndex
		blocks = append(blocks, models.ExtractedBlock{
			Text: strings.Join(table, "\n"),
			Kind: models.BlockKindTable,
			Meta: meta,
		})
		table = table[:0]
	}

	for _, line := range lines {
		if isTabularLine(line) {
			table = append(table, line)
			continue
		}
		flushTable()
		prose = append(prose, line)
	}
	flushTable()
	flushProse()

	return blocks
}

// isTabularLine reports whether a line looks like a table row: long enough
// to carry columns, separated by tabs or runs of spaces.
func isTabularLine(line string) bool {
	trimmed := strings.TrimSpace(line)
	if len(trimmed) < 10 {
		return false
	}
	return strings.Count(trimmed, "\t") >= 1 || strings.Count(trimmed, "  ") >= 2
}

// evaluateTextQuality scores extracted text between 0 and 1. Hebrew letters
// count as real content; the replacement character and unmapped glyphs count
// as corruption.
func (e *PDFExtractor) evaluateTextQuality(text string) float64 {
	text = strings.TrimSpace(text)
	if len(text) < 10 {
		return 0.1
	}

	var content, printable, corrupted int
	total := 0
	for _, r := range text {
		total++
		switch {
		case (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9'):
			content++
			printable++
		case r >= 0x0590 && r <= 0x05FF: // Hebrew block
			content++
			printable++
		case r == ' ' || r == '\n' || r == '\t':
			printable++
		case r == '�':
			corrupted++
		case r >= 32 && r <= 126:
			printable++
		case isCommonUnicodeChar(r):
			printable++
		default:
			corrupted++
		}
	}
	if total == 0 {
		return 0.0
	}

	contentRatio := float64(content) / float64(total)
	printableRatio := float64(printable) / float64(total)
	corruptedRatio := float64(corrupted) / float64(total)

	score := printableRatio * 0.5
	if contentRatio >= 0.3 {
		score += 0.4
	} else {
		score += contentRatio
	}
	score -= corruptedRatio * 2.0
	if len(text) > 100 {
		score += 0.1
	}

	if score < 0 {
		score = 0
	}
	if score > 1 {
		score = 1
	}
	return score
}

func isCommonUnicodeChar(r rune) bool {
	common := []rune{'—', '“', '”', '‘', '’', '…', '₪', '€', '£', '¥', '©', '®', '™', '״', '׳'}
	for _, c := range common {
		if r == c {
			return true
		}
	}
	return false
}

// detectLanguage classifies the dominant script of the document.
func (e *PDFExtractor) detectLanguage(text string) string {
	hebrew, latin := 0, 0
	for _, r := range text {
		switch {
		case r >= 0x0590 && r <= 0x05FF:
			hebrew++
		case (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z'):
			latin++
		}
	}
	switch {
	case hebrew == 0 && latin == 0:
		return "unknown"
	case hebrew >= latin:
		return "he"
	default:
		return "en"
	}
}
