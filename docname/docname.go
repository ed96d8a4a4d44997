// Package docname generates filesystem-safe names for stored artifacts.
package docname

import (
	"net/url"
	"regexp"
	"strings"
	"time"
	"unicode"

	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

var (
	separators = regexp.MustCompile(`[\s\-]+`)
	invalid    = regexp.MustCompile(`[^a-zA-Z0-9_.]+`)
)

// Sanitize converts text into a filesystem-safe token: separators become
// underscores, diacritics are transliterated to ASCII, anything else
// non-alphanumeric is removed.
func Sanitize(s string) string {
	if s == "" {
		return ""
	}
	s = transliterate(s)
	s = separators.ReplaceAllString(s, "_")
	s = invalid.ReplaceAllString(s, "")
	return strings.Trim(s, "_.")
}

// ForArtifact builds the stored filename for an artifact:
// {source}_{timestamp}_{title}.pdf. The title falls back to the last URL
// path segment when it sanitizes to nothing.
func ForArtifact(sourceName, title, rawURL string, now time.Time) string {
	source := Sanitize(sourceName)
	if source == "" {
		source = "unknown"
	}

	name := Sanitize(title)
	if name == "" {
		if u, err := url.Parse(rawURL); err == nil {
			parts := strings.Split(strings.Trim(u.Path, "/"), "/")
			segment := parts[len(parts)-1]
			if idx := strings.LastIndex(segment, "."); idx > 0 {
				segment = segment[:idx]
			}
			name = Sanitize(segment)
		}
	}
	if name == "" {
		name = "document"
	}
	if len(name) > 50 {
		name = strings.Trim(name[:50], "_.")
	}

	return source + "_" + now.Format("20060102_150405") + "_" + name + ".pdf"
}

// transliterate strips diacritics by decomposing to NFD and removing
// combining marks.
func transliterate(s string) string {
	t := transform.Chain(norm.NFD, transform.RemoveFunc(isMn), norm.NFC)
	result, _, err := transform.String(t, s)
	if err != nil {
		return s
	}
	// Drop any remaining non-ASCII runes for maximum compatibility.
	var b strings.Builder
	for _, r := range result {
		if r < 128 {
			b.WriteRune(r)
		}
	}
	return b.String()
}

func isMn(r rune) bool {
	return unicode.Is(unicode.Mn, r)
}
