package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"hebrew-rag-platform/internal/config"
	"hebrew-rag-platform/internal/logger"
	"hebrew-rag-platform/models"
)

// OCRClient calls an external OCR service for scanned documents whose text
// layer is missing or garbled. Optional: nil when no service is configured.
type OCRClient struct {
	httpClient *http.Client
	baseURL    string
}

type ocrResponse struct {
	Success        bool       `json:"success"`
	Text           string     `json:"text"`
	Blocks         []ocrBlock `json:"blocks"`
	Pages          int        `json:"pages"`
	QualityScore   float64    `json:"quality_score"`
	WordCount      int        `json:"word_count"`
	CharacterCount int        `json:"character_count"`
	Language       string     `json:"language"`
	Error          string     `json:"error,omitempty"`
}

type ocrBlock struct {
	Text       string  `json:"text"`
	Confidence float64 `json:"confidence"`
	Page       int     `json:"page"`
	BlockType  string  `json:"block_type"` // "text" or "table"
}

// NewOCRClient returns nil when OCR_SERVICE_URL is unset.
func NewOCRClient(cfg *config.Config) *OCRClient {
	if cfg.OCRServiceURL == "" {
		return nil
	}
	return &OCRClient{
		httpClient: &http.Client{
			Timeout: time.Duration(cfg.OCRTimeoutSec) * time.Second,
		},
		baseURL: cfg.OCRServiceURL,
	}
}

// ExtractBlocks sends the file to the OCR service and maps the response
// into blocks. Table regions come back as table blocks; everything else is
// tagged as OCR text so the chunker treats it as complex content.
func (c *OCRClient) ExtractBlocks(ctx context.Context, filePath string) ([]models.ExtractedBlock, *ExtractionStats, error) {
	start := time.Now()

	file, err := os.Open(filePath)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open file for OCR: %w", err)
	}
	defer file.Close()

	var body bytes.Buffer
	writer := multipart.NewWriter(&body)
	part, err := writer.CreateFormFile("file", filepath.Base(filePath))
	if err != nil {
		return nil, nil, err
	}
	if _, err := io.Copy(part, file); err != nil {
		return nil, nil, fmt.Errorf("failed to buffer file for OCR: %w", err)
	}
	if err := writer.Close(); err != nil {
		return nil, nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/ocr", &body)
	if err != nil {
		return nil, nil, err
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, nil, fmt.Errorf("OCR service request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		payload, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return nil, nil, fmt.Errorf("OCR service returned %d: %s", resp.StatusCode, string(payload))
	}

	var result ocrResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, nil, fmt.Errorf("failed to decode OCR response: %w", err)
	}
	if !result.Success {
		return nil, nil, fmt.Errorf("OCR failed: %s", result.Error)
	}

	filename := filepath.Base(filePath)
	tableIndex := 0
	blocks := make([]models.ExtractedBlock, 0, len(result.Blocks))
	for _, b := range result.Blocks {
		if b.Text == "" {
			continue
		}
		meta := models.BlockMeta{
			SourceFilename: filename,
			ExtractionType: "ocr",
			PageNumber:     b.Page,
			Extra:          map[string]string{"ocr_confidence": fmt.Sprintf("%.2f", b.Confidence)},
		}
		kind := models.BlockKindImageOCR
		if b.BlockType == "table" {
			kind = models.BlockKindTable
			meta.TableIndex = tableIndex
			tableIndex++
		}
		blocks = append(blocks, models.ExtractedBlock{Text: b.Text, Kind: kind, Meta: meta})
	}

	// Services that only return flat text still produce a usable document.
	if len(blocks) == 0 && result.Text != "" {
		blocks = append(blocks, models.ExtractedBlock{
			Text: result.Text,
			Kind: models.BlockKindImageOCR,
			Meta: models.BlockMeta{SourceFilename: filename, ExtractionType: "ocr"},
		})
	}
	if len(blocks) == 0 {
		return nil, nil, fmt.Errorf("OCR produced no text")
	}

	stats := &ExtractionStats{
		Pages:          result.Pages,
		Method:         "ocr",
		QualityScore:   result.QualityScore,
		ProcessingTime: time.Since(start),
		WordCount:      result.WordCount,
		CharacterCount: result.CharacterCount,
		Language:       result.Language,
	}

	logger.Info("OCR extraction completed",
		"file", filename,
		"pages", result.Pages,
		"blocks", len(blocks),
		"quality", result.QualityScore)
	return blocks, stats, nil
}
