package services

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"hebrew-rag-platform/models"
)

func writeTempHTML(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "doc.html")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestHTMLExtractorSeparatesProseAndTables(t *testing.T) {
	html := `<html><body>
		<h1>Annual Report</h1>
		<p>The company grew steadily over the year.</p>
		<p>Revenue targets were met in every quarter.</p>
		<h3>Financials</h3>
		<table>
			<tr><th>Quarter</th><th>Revenue</th></tr>
			<tr><td>Q1</td><td>100</td></tr>
			<tr><td>Q2</td><td>120</td></tr>
		</table>
		<p>Outlook for next year remains positive.</p>
	</body></html>`

	blocks, err := NewHTMLExtractor().ExtractBlocks(context.Background(), writeTempHTML(t, html))
	if err != nil {
		t.Fatalf("ExtractBlocks failed: %v", err)
	}

	var textBlocks, tableBlocks []models.ExtractedBlock
	for _, b := range blocks {
		switch b.Kind {
		case models.BlockKindText:
			textBlocks = append(textBlocks, b)
		case models.BlockKindTable:
			tableBlocks = append(tableBlocks, b)
		}
	}

	if len(tableBlocks) != 1 {
		t.Fatalf("expected 1 table block, got %d", len(tableBlocks))
	}
	table := tableBlocks[0]
	rows := strings.Split(table.Text, "\n")
	if len(rows) != 3 {
		t.Errorf("expected 3 table rows, got %d: %q", len(rows), table.Text)
	}
	if !strings.Contains(rows[0], "Quarter") || !strings.Contains(rows[0], "Revenue") {
		t.Errorf("header row missing cells: %q", rows[0])
	}
	if table.Meta.Chapter != "Annual Report" {
		t.Errorf("table chapter = %q, want %q", table.Meta.Chapter, "Annual Report")
	}
	if table.Meta.Section != "Financials" {
		t.Errorf("table section = %q, want %q", table.Meta.Section, "Financials")
	}

	if len(textBlocks) < 2 {
		t.Fatalf("expected at least 2 text blocks, got %d", len(textBlocks))
	}
	if textBlocks[0].Meta.Chapter != "Annual Report" {
		t.Errorf("prose chapter = %q", textBlocks[0].Meta.Chapter)
	}
	// Cell text must not leak into prose blocks.
	for _, b := range textBlocks {
		if strings.Contains(b.Text, "Q1  100") {
			t.Errorf("table row leaked into prose: %q", b.Text)
		}
	}
}

func TestHTMLExtractorStripsScriptsAndNav(t *testing.T) {
	html := `<html><body>
		<nav>Home | About</nav>
		<script>var tracking = true;</script>
		<p>Visible content only.</p>
		<footer>Copyright notice</footer>
	</body></html>`

	blocks, err := NewHTMLExtractor().ExtractBlocks(context.Background(), writeTempHTML(t, html))
	if err != nil {
		t.Fatalf("ExtractBlocks failed: %v", err)
	}

	for _, b := range blocks {
		if strings.Contains(b.Text, "tracking") || strings.Contains(b.Text, "Copyright") {
			t.Errorf("boilerplate leaked into block: %q", b.Text)
		}
	}
	if len(blocks) != 1 || blocks[0].Text != "Visible content only." {
		t.Errorf("unexpected blocks: %+v", blocks)
	}
}

func TestHTMLExtractorHebrewContent(t *testing.T) {
	html := `<html><body>
		<h2>דוח שנתי</h2>
		<p>החברה צמחה במהלך השנה.</p>
	</body></html>`

	blocks, err := NewHTMLExtractor().ExtractBlocks(context.Background(), writeTempHTML(t, html))
	if err != nil {
		t.Fatalf("ExtractBlocks failed: %v", err)
	}
	if len(blocks) != 1 {
		t.Fatalf("expected 1 block, got %d", len(blocks))
	}
	if blocks[0].Meta.Chapter != "דוח שנתי" {
		t.Errorf("chapter = %q", blocks[0].Meta.Chapter)
	}
	if !NewHebrewTextService().IsRTL(blocks[0].Text) {
		t.Error("Hebrew prose should be detected as RTL")
	}
}

func TestHTMLExtractorEmptyDocument(t *testing.T) {
	_, err := NewHTMLExtractor().ExtractBlocks(context.Background(), writeTempHTML(t, "<html><body></body></html>"))
	if err == nil {
		t.Fatal("expected error for empty document")
	}
}
