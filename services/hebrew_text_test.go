package services

import "testing"

func TestIsRTL(t *testing.T) {
	h := NewHebrewTextService()
	if !h.IsRTL("שלום עולם") {
		t.Error("Hebrew text not detected as RTL")
	}
	if !h.IsRTL("mixed שלום text") {
		t.Error("mixed Hebrew/Latin text not detected as RTL")
	}
	if h.IsRTL("plain english text") {
		t.Error("Latin-only text misdetected as RTL")
	}
}

func TestHasCurrency(t *testing.T) {
	h := NewHebrewTextService()
	for _, text := range []string{"₪100", "$50", `סה"כ 200 ש"ח`, "€30"} {
		if !h.HasCurrency(text) {
			t.Errorf("currency not detected in %q", text)
		}
	}
	if h.HasCurrency("one hundred dollars") {
		t.Error("spelled-out amount misdetected as currency")
	}
}

func TestKeywordHits(t *testing.T) {
	h := NewHebrewTextService()
	if hits := h.KeywordHits("Total price of the invoice"); hits < 3 {
		t.Errorf("expected at least 3 keyword hits, got %d", hits)
	}
	if hits := h.KeywordHits("nothing relevant here"); hits != 0 {
		t.Errorf("expected 0 keyword hits, got %d", hits)
	}
}

func TestCleanWhitespaceAndBoundaries(t *testing.T) {
	h := NewHebrewTextService()

	if got := h.Clean("שלום   עולם"); got != "שלום עולם" {
		t.Errorf("whitespace collapse: got %q", got)
	}
	if got := h.Clean("abc123שלום"); got != "abc123 שלום" {
		t.Errorf("latin-to-hebrew boundary: got %q", got)
	}
	if got := h.Clean("שלוםabc"); got != "שלום abc" {
		t.Errorf("hebrew-to-latin boundary: got %q", got)
	}
	if got := h.Clean("  padded  "); got != "padded" {
		t.Errorf("trim: got %q", got)
	}
}

func TestCleanRepairsAbbreviations(t *testing.T) {
	h := NewHebrewTextService()
	got := h.Clean(`סה" כ 100`)
	want := `סה"כ 100`
	if got != want {
		t.Errorf("abbreviation reglue: got %q, want %q", got, want)
	}
}

func TestCleanNormalizesDates(t *testing.T) {
	h := NewHebrewTextService()
	if got := h.Clean("15.3.2024"); got != "15/3/2024" {
		t.Errorf("dotted date: got %q", got)
	}
	if got := h.Clean("01-02-2023"); got != "01/02/2023" {
		t.Errorf("dashed date: got %q", got)
	}
}
