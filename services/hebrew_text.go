package services

import (
	"regexp"
	"strings"
)

// HebrewTextService detects right-to-left / table-like content and applies
// the cleanup rules mixed Hebrew-Latin text needs before chunking. The
// keyword and abbreviation lists are a content-tuning concern and can be
// extended without touching the chunkers.
type HebrewTextService struct {
	rtlRegex        *regexp.Regexp
	currencyRegex   *regexp.Regexp
	multiSpaceRegex *regexp.Regexp
	latinToRTLRegex *regexp.Regexp
	rtlToLatinRegex *regexp.Regexp
	dateRegex       *regexp.Regexp
	keywords        []string
	abbreviations   []string
}

// NewHebrewTextService creates a text service with the default bilingual
// keyword and abbreviation sets.
func NewHebrewTextService() *HebrewTextService {
	return &HebrewTextService{
		rtlRegex:        regexp.MustCompile(`[\x{0590}-\x{05FF}\x{0600}-\x{06FF}]`),
		currencyRegex:   regexp.MustCompile(`[₪$€£]|ש"ח`),
		multiSpaceRegex: regexp.MustCompile(`[ \t]+`),
		latinToRTLRegex: regexp.MustCompile(`([A-Za-z0-9%])([\x{0590}-\x{05FF}])`),
		rtlToLatinRegex: regexp.MustCompile(`([\x{0590}-\x{05FF}])([A-Za-z0-9])`),
		dateRegex:       regexp.MustCompile(`(\d{1,4})[.\-](\d{1,2})[.\-](\d{1,4})`),
		keywords: []string{
			// English table/financial vocabulary
			"amount", "total", "price", "quantity", "date", "sum",
			"invoice", "payment", "tax", "discount", "item", "unit",
			// Hebrew equivalents
			"סכום", "מחיר", "כמות", "תאריך", "חשבונית", "תשלום",
			`מע"מ`, `סה"כ`, "פריט", "יחידה", "הנחה", "חשבון", "מספר",
		},
		abbreviations: []string{
			`סה"כ`, `מע"מ`, `ש"ח`, `ד"ר`, `ס"מ`, `מ"ר`, `ח"פ`, `ע"מ`,
		},
	}
}

// IsRTL reports whether the text contains right-to-left script characters.
func (h *HebrewTextService) IsRTL(text string) bool {
	return h.rtlRegex.MatchString(text)
}

// HasCurrency reports whether the text contains currency symbols.
func (h *HebrewTextService) HasCurrency(text string) bool {
	return h.currencyRegex.MatchString(text)
}

// KeywordHits counts how many distinct domain keywords appear in the text.
func (h *HebrewTextService) KeywordHits(text string) int {
	lower := strings.ToLower(text)
	hits := 0
	for _, kw := range h.keywords {
		if strings.Contains(lower, kw) {
			hits++
		}
	}
	return hits
}

// IsComplex reports whether the text needs smaller, more-overlapping chunks:
// RTL script, currency, or at least one domain keyword.
func (h *HebrewTextService) IsComplex(text string) bool {
	return h.IsRTL(text) || h.HasCurrency(text) || h.KeywordHits(text) >= 1
}

// Clean normalizes mixed Hebrew-Latin text: collapses runs of whitespace,
// inserts a space at Latin/digit <-> RTL boundaries, re-glues abbreviations
// that whitespace normalization may have split, and canonicalizes
// digit-separator-digit date tokens to a single "/" separator.
func (h *HebrewTextService) Clean(text string) string {
	cleaned := h.multiSpaceRegex.ReplaceAllString(text, " ")
	cleaned = h.latinToRTLRegex.ReplaceAllString(cleaned, "$1 $2")
	cleaned = h.rtlToLatinRegex.ReplaceAllString(cleaned, "$1 $2")
	cleaned = h.reglueAbbreviations(cleaned)
	cleaned = h.dateRegex.ReplaceAllString(cleaned, "$1/$2/$3")
	return strings.TrimSpace(cleaned)
}

// reglueAbbreviations repairs known gershayim abbreviations that were split
// by spacing fixes, e.g. `סה" כ` or `סה "כ` back to `סה"כ`.
func (h *HebrewTextService) reglueAbbreviations(text string) string {
	for _, abbr := range h.abbreviations {
		idx := strings.Index(abbr, `"`)
		if idx < 0 {
			continue
		}
		head, tail := abbr[:idx], abbr[idx+1:]
		for _, split := range []string{
			head + `" ` + tail,
			head + ` "` + tail,
			head + ` " ` + tail,
		} {
			text = strings.ReplaceAll(text, split, abbr)
		}
	}
	return text
}
