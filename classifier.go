package monitor

import (
	"fmt"
	"strings"

	"github.com/koen-bo/KA-database/models"
)

// MultiThemeMarker is the sentinel context entry for verdicts established by
// cross-theme corroboration rather than an explicit context word.
const MultiThemeMarker = "(multi-theme match)"

// Classify runs the tiered relevance check over a feed item's title and
// description. Matching is case-insensitive substring containment with no
// word-boundary enforcement: a term matches anywhere inside a longer word.
//
// Evaluation order, short-circuiting on first hit:
//  1. any direct term present -> tier 1
//  2. at least one context word present and a theme with a matching
//     term -> tier 2, first matching theme in configured order
//  3. matching terms from two or more distinct themes -> tier 2,
//     the themes corroborate each other
//
// Matched terms are reported in keyword-set iteration order. A missing
// description is simply empty; empty keyword collections never match.
func Classify(ks models.KeywordSet, title, description string) models.Verdict {
	text := strings.ToLower(title + " " + description)

	var direct []string
	for _, term := range ks.Direct {
		if term != "" && strings.Contains(text, term) {
			direct = append(direct, term)
		}
	}
	if len(direct) > 0 {
		return models.Verdict{
			IsRelevant:     true,
			Tier:           1,
			MatchedTerms:   direct,
			MatchedContext: []string{},
		}
	}

	var contextHits []string
	for _, w := range ks.Context {
		if w != "" && strings.Contains(text, w) {
			contextHits = append(contextHits, w)
		}
	}

	if len(contextHits) > 0 {
		for _, theme := range ks.Themes {
			var hits []string
			for _, term := range theme.Terms {
				if term != "" && strings.Contains(text, term) {
					hits = append(hits, term)
				}
			}
			if len(hits) > 0 {
				return models.Verdict{
					IsRelevant:     true,
					Tier:           2,
					MatchedTerms:   hits,
					MatchedContext: contextHits,
					MatchedTheme:   theme.Name,
				}
			}
		}
	}

	// Tier-2 terms from unrelated themes provide context for each other:
	// e.g. subsidence stories hitting both agriculture and buildings.
	var allHits []string
	var themeNames []string
	for _, theme := range ks.Themes {
		matched := false
		for _, term := range theme.Terms {
			if term != "" && strings.Contains(text, term) {
				allHits = append(allHits, term)
				matched = true
			}
		}
		if matched {
			themeNames = append(themeNames, theme.Name)
		}
	}
	if len(themeNames) >= 2 {
		return models.Verdict{
			IsRelevant:     true,
			Tier:           2,
			MatchedTerms:   allHits,
			MatchedContext: []string{MultiThemeMarker},
			MatchedTheme:   strings.Join(themeNames, ", "),
		}
	}

	return models.Verdict{
		MatchedTerms:   []string{},
		MatchedContext: []string{},
	}
}

// FormatVerdict renders a verdict for log output
func FormatVerdict(v models.Verdict) string {
	if !v.IsRelevant {
		return "not relevant (no keyword matches)"
	}
	shown := v.MatchedTerms
	if len(shown) > 3 {
		shown = shown[:3]
	}
	switch v.Tier {
	case 1:
		return fmt.Sprintf("[tier 1] direct hit: %s", strings.Join(shown, ", "))
	case 2:
		context := ""
		if len(v.MatchedContext) > 0 {
			context = v.MatchedContext[0]
		}
		return fmt.Sprintf("[tier 2] %s: %s + context: %s", v.MatchedTheme, strings.Join(shown, ", "), context)
	}
	return "unknown match type"
}
