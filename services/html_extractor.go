package services

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"hebrew-rag-platform/internal/logger"
	"hebrew-rag-platform/models"
)

// HTMLExtractor turns an uploaded HTML file into blocks: <table> elements
// become table blocks, headings set the running chapter/section, and the
// remaining prose becomes text blocks.
type HTMLExtractor struct{}

func NewHTMLExtractor() *HTMLExtractor {
	return &HTMLExtractor{}
}

// ExtractBlocks parses the HTML file at filePath.
func (e *HTMLExtractor) ExtractBlocks(ctx context.Context, filePath string) ([]models.ExtractedBlock, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	file, err := os.Open(filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to open HTML file: %w", err)
	}
	defer file.Close()

	doc, err := goquery.NewDocumentFromReader(file)
	if err != nil {
		return nil, fmt.Errorf("failed to parse HTML: %w", err)
	}

	doc.Find("script, style, noscript, nav, footer").Remove()

	filename := filepath.Base(filePath)
	var blocks []models.ExtractedBlock
	tableIndex := 0
	chapter, section := "", ""
	var prose []string

	flushProse := func() {
		text := strings.TrimSpace(strings.Join(prose, "\n\n"))
		prose = prose[:0]
		if text == "" {
			return
		}
		blocks = append(blocks, models.ExtractedBlock{
			Text: text,
			Kind: models.BlockKindText,
			Meta: models.BlockMeta{
				SourceFilename: filename,
				ExtractionType: "html",
				Chapter:        chapter,
				Section:        section,
			},
		})
	}

	doc.Find("h1, h2, h3, h4, h5, h6, p, li, table").Each(func(_ int, sel *goquery.Selection) {
		switch goquery.NodeName(sel) {
		case "h1", "h2":
			flushProse()
			chapter = strings.TrimSpace(sel.Text())
			section = ""
		case "h3", "h4", "h5", "h6":
			flushProse()
			section = strings.TrimSpace(sel.Text())
		case "table":
			flushProse()
			text := tableToRows(sel)
			if text == "" {
				return
			}
			tableIndex++
			blocks = append(blocks, models.ExtractedBlock{
				Text: text,
				Kind: models.BlockKindTable,
				Meta: models.BlockMeta{
					SourceFilename: filename,
					ExtractionType: "html",
					Chapter:        chapter,
					Section:        section,
					TableIndex:     tableIndex,
				},
			})
		default:
			// Skip list items and paragraphs nested inside a table cell;
			// the table row already carries that text.
			if sel.ParentsFiltered("table").Length() > 0 {
				return
			}
			if text := strings.TrimSpace(sel.Text()); text != "" {
				prose = append(prose, text)
			}
		}
	})
	flushProse()

	if len(blocks) == 0 {
		return nil, fmt.Errorf("HTML file contains no extractable content")
	}

	logger.Info("html extracted", "file", filename, "blocks", len(blocks), "tables", tableIndex)
	return blocks, nil
}

// tableToRows renders a <table> as newline-separated rows with
// double-space-separated cells, the row format the table chunker expects.
func tableToRows(table *goquery.Selection) string {
	var rows []string
	table.Find("tr").Each(func(_ int, tr *goquery.Selection) {
		var cells []string
		tr.Find("th, td").Each(func(_ int, cell *goquery.Selection) {
			cells = append(cells, strings.TrimSpace(cell.Text()))
		})
		row := strings.TrimSpace(strings.Join(cells, "  "))
		if row != "" {
			rows = append(rows, row)
		}
	})
	return strings.Join(rows, "\n")
}
