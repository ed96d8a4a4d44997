package monitor

import (
	"regexp"
	"strings"
)

var (
	excessNewlines = regexp.MustCompile(`\n{3,}`)
	excessSpaces   = regexp.MustCompile(` {2,}`)
)

// Normalize cleans extracted text: runs of three or more newlines collapse
// to two, runs of two or more spaces collapse to one, and surrounding
// whitespace is trimmed. Idempotent.
func Normalize(raw string) string {
	text := excessNewlines.ReplaceAllString(raw, "\n\n")
	text = excessSpaces.ReplaceAllString(text, " ")
	return strings.TrimSpace(text)
}
