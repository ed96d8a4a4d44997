package monitor

import (
	"net/url"
	"sort"
	"strings"
	"unicode"

	"github.com/koen-bo/KA-database/models"
)

// HostPathPattern matches a URL when both the host substring and the path
// substring occur in it. An empty path matches any path.
type HostPathPattern struct {
	Host string
	Path string
}

// ScoringRules is the declarative rule table for link-candidate scoring.
// Every pattern list and weight is configuration so the signal set can be
// recalibrated without touching the scoring control flow.
type ScoringRules struct {
	// URL-shape signals
	ArtifactExt   string            // artifact file extension, with dot
	TrustedRepos  []HostPathPattern // repository links serving primary documents
	GazetteHosts  []string          // official-gazette domains
	ExtSuffix     int               // URL ends with ArtifactExt
	TrustedRepo   int               // URL matches a trusted repository pattern
	GazetteHost   int               // URL matches a gazette domain
	ExtAnywhere   int               // ArtifactExt occurs anywhere in the URL
	// Page-context signal: the page itself is a document detail page
	DetailPageFragments []string // path fragments marking document detail pages
	DetailPage          int
	// Anchor-text signals
	DownloadCues  []string // "download this" style wording
	DocTypeWords  []string // report / advice / artifact wording
	ParenMarkers  []string // parenthetical artifact markers, e.g. "(pdf"
	FullVersCues  []string // "full version" wording
	Download      int      // download cue combined with a document-type word
	Parenthetical int      // parenthetical artifact marker
	FullVersion   int      // full-version cue combined with a document-type word
	// Penalties
	PeripheralTags   []string // structurally peripheral ancestor elements
	SuppMarkers      []string // supplementary-content class/id markers
	SuppPhrases      []string // "see also / related / source:" anchor phrases
	CrossRefWords    []string // generic document words hinting at another document
	Peripheral       int      // negative
	SuppMarker       int      // negative
	DOMPenaltyFloor  int      // most negative combined DOM penalty
	SuppPhrase       int      // negative, first matching phrase only
	CrossRef         int      // negative
	// Title-overlap signal
	TitleStopWords  []string
	MinTitleWordLen int
	MinTitleWords   int     // title words needed before a zero overlap counts as mismatch
	StrongRatio     float64 // overlap ratio for the strong boost
	WeakRatio       float64 // overlap ratio for the weak boost
	TitleStrong     int
	TitleWeak       int
	TitleMismatch   int // negative
}

// DefaultScoringRules returns the rule table tuned against the Dutch
// government and policy sources the monitor watches.
func DefaultScoringRules() ScoringRules {
	return ScoringRules{
		ArtifactExt: ".pdf",
		TrustedRepos: []HostPathPattern{
			{Host: "open.overheid.nl", Path: "/file"},
		},
		GazetteHosts: []string{"officielebekendmakingen.nl"},
		ExtSuffix:    100,
		TrustedRepo:  90,
		GazetteHost:  80,
		ExtAnywhere:  70,

		DetailPageFragments: []string{
			"/kamerstuk", "/rapport", "/publicatie", "/nota", "/brief", "/besluit",
			"/document",
		},
		DetailPage: 50,

		DownloadCues: []string{"download"},
		DocTypeWords: []string{"pdf", "rapport", "advies"},
		ParenMarkers: []string{"(pdf"},
		FullVersCues:  []string{"volledige"},
		Download:      50,
		Parenthetical: 40,
		FullVersion:   30,

		PeripheralTags: []string{"nav", "footer", "aside"},
		SuppMarkers: []string{
			"sidebar", "related", "widget", "recommended", "footer", "nav", "menu",
		},
		SuppPhrases: []string{
			"zie ook", "lees ook", "lees meer over", "gerelateerd", "achtergrond", "bron:",
		},
		CrossRefWords:   []string{"rapport", "advies", "publicatie"},
		Peripheral:      -50,
		SuppMarker:      -40,
		DOMPenaltyFloor: -60,
		SuppPhrase:      -40,
		CrossRef:        -20,

		TitleStopWords: []string{
			"voor", "naar", "over", "door", "deze", "onze", "zijn", "wordt",
			"worden", "heeft", "hebben", "tussen", "binnen", "vanuit",
		},
		MinTitleWordLen: 4,
		MinTitleWords:   3,
		StrongRatio:     0.4,
		WeakRatio:       0.2,
		TitleStrong:     40,
		TitleWeak:       20,
		TitleMismatch:   -50,
	}
}

// boostSignal is one positive URL/anchor signal in the rule table.
type boostSignal struct {
	label string
	eval  func(urlLower, anchorLower string) int
}

// boostSignals builds the positive signal table. Signals are additive: a
// link may collect several at once.
func (r ScoringRules) boostSignals() []boostSignal {
	return []boostSignal{
		{"artifact-extension", func(u, _ string) int {
			if r.ArtifactExt != "" && strings.HasSuffix(u, r.ArtifactExt) {
				return r.ExtSuffix
			}
			return 0
		}},
		{"trusted-repository", func(u, _ string) int {
			for _, p := range r.TrustedRepos {
				if strings.Contains(u, p.Host) && (p.Path == "" || strings.Contains(u, p.Path)) {
					return r.TrustedRepo
				}
			}
			return 0
		}},
		{"official-gazette", func(u, _ string) int {
			for _, host := range r.GazetteHosts {
				if strings.Contains(u, host) {
					return r.GazetteHost
				}
			}
			return 0
		}},
		{"extension-in-url", func(u, _ string) int {
			if r.ArtifactExt != "" && strings.Contains(u, r.ArtifactExt) {
				return r.ExtAnywhere
			}
			return 0
		}},
		{"download-cue", func(_, a string) int {
			if containsAny(a, r.DownloadCues) && containsAny(a, r.DocTypeWords) {
				return r.Download
			}
			return 0
		}},
		{"parenthetical-marker", func(_, a string) int {
			if containsAny(a, r.ParenMarkers) {
				return r.Parenthetical
			}
			return 0
		}},
		{"full-version-cue", func(_, a string) int {
			if containsAny(a, r.FullVersCues) && containsAny(a, r.DocTypeWords) {
				return r.FullVersion
			}
			return 0
		}},
	}
}

// IsDetailPage reports whether the page URL itself looks like a document
// detail page (a page dedicated to a single report, letter or decision).
func (r ScoringRules) IsDetailPage(pageURL string) bool {
	lower := strings.ToLower(pageURL)
	for _, frag := range r.DetailPageFragments {
		if strings.Contains(lower, frag) {
			return true
		}
	}
	return false
}

// ScoreCandidates scores every anchor on a page against the rule table and
// returns the surviving candidates sorted by score descending. Sorting is
// stable, so ties keep discovery order. Candidates collecting no positive
// signal at all are dropped before penalties, and hrefs that are neither
// absolute nor root-relative are discarded outright.
func ScoreCandidates(rules ScoringRules, links []models.PageLink, pageURL, articleTitle string) []models.LinkCandidate {
	base, err := url.Parse(pageURL)
	if err != nil {
		base = nil
	}
	detailPage := rules.IsDetailPage(pageURL)
	titleWords := meaningfulWords(articleTitle, rules.MinTitleWordLen, rules.TitleStopWords)
	boosts := rules.boostSignals()

	var out []models.LinkCandidate
	for _, link := range links {
		href := strings.TrimSpace(link.Href)
		if href == "" {
			continue
		}
		abs, ok := absoluteURL(base, href)
		if !ok {
			continue
		}

		anchor := strings.TrimSpace(link.AnchorText)
		anchorLower := strings.ToLower(anchor)
		urlLower := strings.ToLower(abs)

		score := 0
		var adjustments []models.ScoreAdjustment
		add := func(label string, delta int) {
			score += delta
			adjustments = append(adjustments, models.ScoreAdjustment{Label: label, Delta: delta})
		}

		for _, sig := range boosts {
			if d := sig.eval(urlLower, anchorLower); d != 0 {
				add(sig.label, d)
			}
		}
		if detailPage {
			add("document-detail-page", rules.DetailPage)
		}

		// A link with zero positive signal is never an artifact candidate.
		if score == 0 {
			continue
		}

		applyDOMPenalty(rules, link.Ancestors, add)

		for _, phrase := range rules.SuppPhrases {
			if phrase != "" && strings.Contains(anchorLower, phrase) {
				add("supplementary-phrase", rules.SuppPhrase)
				break
			}
		}

		// A generic document word in the anchor is weak evidence the link
		// references some other document than the current one.
		if containsAny(anchorLower, rules.CrossRefWords) {
			add("cross-reference", rules.CrossRef)
		}

		if label, delta := titleAdjustment(rules, titleWords, abs, anchorLower); delta != 0 {
			add(label, delta)
		}

		out = append(out, models.LinkCandidate{
			URL:         abs,
			AnchorText:  anchor,
			RawScore:    score,
			Adjustments: adjustments,
		})
	}

	sort.SliceStable(out, func(i, j int) bool {
		return out[i].RawScore > out[j].RawScore
	})
	return out
}

// applyDOMPenalty walks the ancestor chain twice, nearest ancestor first:
// once for the first structurally peripheral element, once for the first
// supplementary-content class or id marker. Both can hit (a footer with a
// "related" class), but the combined penalty never goes below the floor;
// the clamp is recorded so the adjustment log still sums to the score.
func applyDOMPenalty(rules ScoringRules, ancestors []models.AncestorInfo, add func(string, int)) {
	applied := 0

	for _, anc := range ancestors {
		if tagIn(anc.Tag, rules.PeripheralTags) {
			add("peripheral-ancestor", rules.Peripheral)
			applied += rules.Peripheral
			break
		}
	}

	for _, anc := range ancestors {
		marker := strings.ToLower(anc.Class + " " + anc.ID)
		if containsAny(marker, rules.SuppMarkers) {
			delta := rules.SuppMarker
			if applied+delta < rules.DOMPenaltyFloor {
				delta = rules.DOMPenaltyFloor - applied
			}
			if delta != 0 {
				add("supplementary-ancestor", delta)
			}
			break
		}
	}
}

// titleAdjustment correlates the candidate's filename and anchor text with
// the article title. Strong overlap is positive evidence the link is the
// article's own artifact; total non-overlap against a title of reasonable
// length is strong evidence it belongs to an unrelated document.
func titleAdjustment(rules ScoringRules, titleWords []string, candidateURL, anchorLower string) (string, int) {
	if len(titleWords) == 0 {
		return "", 0
	}

	urlRatio := overlapRatio(titleWords, urlPathText(candidateURL, rules.ArtifactExt))
	anchorRatio := overlapRatio(titleWords, anchorLower)
	ratio := urlRatio
	if anchorRatio > ratio {
		ratio = anchorRatio
	}

	switch {
	case ratio >= rules.StrongRatio:
		return "title-match-strong", rules.TitleStrong
	case ratio >= rules.WeakRatio:
		return "title-match-weak", rules.TitleWeak
	case ratio == 0 && len(titleWords) >= rules.MinTitleWords:
		return "title-mismatch", rules.TitleMismatch
	}
	return "", 0
}

// urlPathText turns the final URL path segment into matchable text:
// extension stripped, separators replaced with spaces.
func urlPathText(rawURL, ext string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return ""
	}
	path := strings.Trim(u.Path, "/")
	if idx := strings.LastIndex(path, "/"); idx >= 0 {
		path = path[idx+1:]
	}
	path = strings.ToLower(path)
	if ext != "" {
		path = strings.TrimSuffix(path, ext)
	}
	replacer := strings.NewReplacer("-", " ", "_", " ", ".", " ", "+", " ", "%20", " ")
	return replacer.Replace(path)
}

// overlapRatio is matched-title-word-count / title-word-count, where a
// title word counts as matched when it appears as a token in text.
func overlapRatio(titleWords []string, text string) float64 {
	if len(titleWords) == 0 {
		return 0
	}
	tokens := make(map[string]bool)
	for _, tok := range splitWords(text) {
		tokens[tok] = true
	}
	matched := 0
	for _, w := range titleWords {
		if tokens[w] {
			matched++
		}
	}
	return float64(matched) / float64(len(titleWords))
}

// meaningfulWords extracts the title words worth matching on: lower-cased,
// minimum length, stop words removed, deduplicated.
func meaningfulWords(title string, minLen int, stopWords []string) []string {
	stop := make(map[string]bool, len(stopWords))
	for _, w := range stopWords {
		stop[w] = true
	}
	var words []string
	seen := make(map[string]bool)
	for _, w := range splitWords(strings.ToLower(title)) {
		if len([]rune(w)) < minLen || stop[w] || seen[w] {
			continue
		}
		seen[w] = true
		words = append(words, w)
	}
	return words
}

// splitWords tokenizes on any non-letter, non-digit rune
func splitWords(s string) []string {
	return strings.FieldsFunc(s, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
}

// absoluteURL accepts absolute http(s) hrefs as-is and resolves
// root-relative hrefs against the page's scheme and host. Everything else
// (relative paths, protocol-relative, javascript:, mailto:) is unusable
// without base-path knowledge the scorer does not have.
func absoluteURL(base *url.URL, href string) (string, bool) {
	if strings.HasPrefix(href, "http://") || strings.HasPrefix(href, "https://") {
		return href, true
	}
	if strings.HasPrefix(href, "//") {
		return "", false
	}
	if strings.HasPrefix(href, "/") {
		if base == nil || base.Scheme == "" || base.Host == "" {
			return "", false
		}
		return base.Scheme + "://" + base.Host + href, true
	}
	return "", false
}

func containsAny(s string, subs []string) bool {
	for _, sub := range subs {
		if sub != "" && strings.Contains(s, sub) {
			return true
		}
	}
	return false
}

func tagIn(tag string, tags []string) bool {
	tag = strings.ToLower(tag)
	for _, t := range tags {
		if tag == t {
			return true
		}
	}
	return false
}
