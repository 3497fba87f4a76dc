package services

import "testing"

func TestHashChunkContentNormalization(t *testing.T) {
	a := HashChunkContent("  Hello World ")
	b := HashChunkContent("hello world")
	if a != b {
		t.Fatalf("normalized hashes differ: %s vs %s", a, b)
	}
	if len(a) != 32 {
		t.Fatalf("expected 32-char hex digest, got %d chars", len(a))
	}
}

func TestHashChunkContentIdempotent(t *testing.T) {
	text := `סה"כ לתשלום: 1,250 ₪`
	if HashChunkContent(text) != HashChunkContent(text) {
		t.Fatal("same text hashed differently on repeat calls")
	}
}

func TestHashChunkContentDistinguishes(t *testing.T) {
	if HashChunkContent("first chunk") == HashChunkContent("second chunk") {
		t.Fatal("different texts produced the same hash")
	}
}
