package utils

import (
	"strings"
	"testing"
)

func TestGetBestCompressionSmallPayload(t *testing.T) {
	if got := GetBestCompression([]byte("short")); got != CompressionNone {
		t.Errorf("small payload should skip compression, got %s", got)
	}
	large := []byte(strings.Repeat("archived document text ", 100))
	if got := GetBestCompression(large); got != CompressionBrotli {
		t.Errorf("large payload should use brotli, got %s", got)
	}
}

func TestCompressTextRoundTrip(t *testing.T) {
	original := strings.Repeat("מסמך בעברית עם טקסט חוזר. Repeated Hebrew document text. ", 50)

	compressed, algorithm, err := CompressText(original)
	if err != nil {
		t.Fatalf("CompressText failed: %v", err)
	}
	if algorithm != CompressionBrotli {
		t.Errorf("algorithm = %s, want brotli", algorithm)
	}
	if len(compressed) >= len(original) {
		t.Errorf("repetitive text should shrink: %d >= %d", len(compressed), len(original))
	}

	restored, err := DecompressText(compressed, algorithm)
	if err != nil {
		t.Fatalf("DecompressText failed: %v", err)
	}
	if restored != original {
		t.Error("round trip altered the text")
	}
}

func TestDecompressRejectsGarbage(t *testing.T) {
	if _, err := DecompressData([]byte{0x01, 0x02, 0x03}, CompressionGzip); err == nil {
		t.Error("expected error decompressing garbage gzip data")
	}
}
