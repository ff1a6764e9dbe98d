// Package highlight locates tactical-term occurrences in OPORD text and
// resolves them into a non-overlapping, render-ready span list.
//
// All offsets are byte offsets into the content string. Boundary checks
// decode the adjacent runes, so multi-byte text never produces a false
// word-boundary hit.
package highlight

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

// Occurrence is a single raw match of a task name in content.
type Occurrence struct {
	Start       int    `json:"start"`
	End         int    `json:"end"`
	MatchedText string `json:"matched_text"`
}

// FindOccurrences returns every word-bounded occurrence of taskName in
// content, across the four case variants (verbatim, upper, lower, title).
// Results are unsorted; Resolve handles ordering and range dedup.
func FindOccurrences(content, taskName string) []Occurrence {
	if taskName == "" || content == "" {
		return nil
	}

	var occs []Occurrence
	for _, variant := range caseVariants(taskName) {
		from := 0
		for from <= len(content)-len(variant) {
			idx := strings.Index(content[from:], variant)
			if idx < 0 {
				break
			}
			start := from + idx
			end := start + len(variant)
			if isWordBoundary(content, start, end) {
				occs = append(occs, Occurrence{
					Start:       start,
					End:         end,
					MatchedText: content[start:end],
				})
			}
			// Resume one byte past the match start, not past its end,
			// so adjacent occurrences are never skipped.
			from = start + 1
		}
	}
	return occs
}

// caseVariants returns the distinct case forms matched for a task name:
// verbatim, all-upper, all-lower, and title (first rune upper, rest lower).
func caseVariants(name string) []string {
	variants := []string{name, strings.ToUpper(name), strings.ToLower(name), titleCase(name)}
	seen := make(map[string]bool, len(variants))
	out := variants[:0]
	for _, v := range variants {
		if !seen[v] {
			seen[v] = true
			out = append(out, v)
		}
	}
	return out
}

func titleCase(s string) string {
	r, size := utf8.DecodeRuneInString(s)
	if r == utf8.RuneError && size <= 1 {
		return s
	}
	return string(unicode.ToUpper(r)) + strings.ToLower(s[size:])
}

// isWordBoundary reports whether [start,end) sits on word boundaries:
// the rune before start and the rune at end are non-word or string edges.
// This is what keeps "Seize" from matching inside "Seizure".
func isWordBoundary(content string, start, end int) bool {
	if start > 0 {
		r, _ := utf8.DecodeLastRuneInString(content[:start])
		if isWordRune(r) {
			return false
		}
	}
	if end < len(content) {
		r, _ := utf8.DecodeRuneInString(content[end:])
		if isWordRune(r) {
			return false
		}
	}
	return true
}

func isWordRune(r rune) bool {
	return r == '_' || unicode.IsLetter(r) || unicode.IsDigit(r)
}
