package pipeline

import (
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/PuerkitoBio/goquery"
	"github.com/microcosm-cc/bluemonday"
)

// normalizeSpace collapses multiple spaces into one and trims the string.
func normalizeSpace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// cleanText normalizes whitespace (alias for normalizeSpace)
func cleanText(s string) string {
	return normalizeSpace(s)
}

// HTMLToText converts HTML to plain text, collapsing whitespace.
func HTMLToText(html string) string {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return html // Fallback to original if parsing fails
	}
	return cleanText(doc.Text())
}

// sanitizeUTF8 removes invalid UTF-8 byte sequences that cause PostgreSQL errors.
func sanitizeUTF8(s string) string {
	if utf8.ValidString(s) {
		return s
	}
	return strings.ToValidUTF8(s, "")
}

// sanitizeHTML uses bluemonday to strip unsafe tags and attributes from HTML.
func sanitizeHTML(s string) string {
	p := bluemonday.UGCPolicy()
	return p.Sanitize(s)
}

// mergeUniqueFold appends items to list, skipping case-insensitive duplicates.
func mergeUniqueFold(list []string, items []string) []string {
	seen := make(map[string]bool, len(list))
	for _, existing := range list {
		seen[strings.ToLower(strings.TrimSpace(existing))] = true
	}
	for _, item := range items {
		clean := strings.TrimSpace(item)
		if clean == "" {
			continue
		}
		key := strings.ToLower(clean)
		if seen[key] {
			continue
		}
		seen[key] = true
		list = append(list, clean)
	}
	return list
}

// tokenize lowercases s and splits it into word tokens. Apostrophes are kept
// so contractions ("won't") survive as single tokens.
func tokenize(s string) []string {
	return strings.FieldsFunc(strings.ToLower(s), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r) && r != '\'' && r != '$'
	})
}

// countOccurrences counts non-overlapping occurrences of each marker in text.
// text is expected to be lowercased already.
func countOccurrences(text string, markers []string) int {
	total := 0
	for _, m := range markers {
		total += strings.Count(text, m)
	}
	return total
}

func clampf(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func capf(v, hi float64) float64 {
	if v > hi {
		return hi
	}
	return v
}
