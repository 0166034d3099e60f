package textutil

import (
	"regexp"
	"strings"
)

var (
	citationExpr   = regexp.MustCompile(`\[(?:\d+|[a-z]|citation needed|note \d+)\]`)
	whitespaceExpr = regexp.MustCompile(`\s+`)
)

// SanitizeText drops invalid UTF-8 and non-printing control characters,
// keeping common whitespace.
func SanitizeText(s string) string {
	if s == "" {
		return s
	}
	s = strings.ToValidUTF8(s, "")

	r := make([]rune, 0, len(s))
	for _, ch := range s {
		if ch == '\n' || ch == '\r' || ch == '\t' {
			r = append(r, ch)
			continue
		}
		if ch < 0x20 || ch == 0x7f {
			continue
		}
		r = append(r, ch)
	}
	return strings.TrimSpace(string(r))
}

// CleanParagraph prepares a scraped paragraph for the training corpus:
// citation markers like [1] are removed and whitespace is collapsed.
func CleanParagraph(s string) string {
	s = SanitizeText(s)
	s = citationExpr.ReplaceAllString(s, "")
	s = whitespaceExpr.ReplaceAllString(s, " ")
	return strings.TrimSpace(s)
}
