package services

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/xuri/excelize/v2"

	"hebrew-rag-platform/internal/logger"
	"hebrew-rag-platform/models"
)

// XLSXExtractor turns spreadsheet sheets into table blocks, one block per
// sheet. Spreadsheets are tables by construction, so everything goes through
// the table-aware chunking path.
type XLSXExtractor struct{}

func NewXLSXExtractor() *XLSXExtractor {
	return &XLSXExtractor{}
}

// ExtractBlocks reads every sheet of the workbook at filePath.
func (e *XLSXExtractor) ExtractBlocks(ctx context.Context, filePath string) ([]models.ExtractedBlock, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	f, err := excelize.OpenFile(filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to open workbook: %w", err)
	}
	defer func() {
		if cerr := f.Close(); cerr != nil {
			logger.Warn("workbook close failed", "error", cerr.Error())
		}
	}()

	filename := filepath.Base(filePath)
	var blocks []models.ExtractedBlock
	tableIndex := 0

	for _, sheet := range f.GetSheetList() {
		rows, err := f.GetRows(sheet)
		if err != nil {
			logger.Warn("sheet read failed", "sheet", sheet, "error", err.Error())
			continue
		}

		var lines []string
		for _, row := range rows {
			line := strings.TrimSpace(strings.Join(row, "  "))
			if line != "" {
				lines = append(lines, line)
			}
		}
		if len(lines) == 0 {
			continue
		}

		tableIndex++
		blocks = append(blocks, models.ExtractedBlock{
			Text: strings.Join(lines, "\n"),
			Kind: models.BlockKindTable,
			Meta: models.BlockMeta{
				SourceFilename: filename,
				ExtractionType: "xlsx",
				Section:        sheet,
				TableIndex:     tableIndex,
			},
		})
	}

	if len(blocks) == 0 {
		return nil, fmt.Errorf("workbook contains no data")
	}

	logger.Info("workbook extracted", "file", filename, "sheets", tableIndex)
	return blocks, nil
}
