// Package keywords loads the hot-reloadable keyword and feed configuration
// files. The files are plain text, one entry per line, with # comments.
// The tier-2 file groups terms under [Theme] section headers; theme order in
// the file is the order the classifier scans them in.
package keywords

import (
	"bufio"
	"log"
	"os"
	"strings"

	"github.com/koen-bo/KA-database/models"
)

// Paths locates the keyword and feed configuration files
type Paths struct {
	Tier1   string // direct-hit terms, one per line
	Tier2   string // themed terms with [Theme] headers
	Context string // context words, one per line
	Feeds   string // "URL | Source Name" lines
}

// DefaultPaths returns the conventional file locations under dir
func DefaultPaths(dir string) Paths {
	join := func(name string) string {
		return strings.TrimRight(dir, "/") + "/" + name
	}
	return Paths{
		Tier1:   join("tier1_keywords.txt"),
		Tier2:   join("tier2_keywords.txt"),
		Context: join("context_words.txt"),
		Feeds:   join("feeds.txt"),
	}
}

// LoadSet reads all three keyword files into a KeywordSet. A missing file
// degrades to an empty collection for that tier; it is never an error, so a
// partial configuration still classifies with whatever is present.
func LoadSet(p Paths) models.KeywordSet {
	return models.KeywordSet{
		Direct:  loadList(p.Tier1),
		Themes:  loadThemes(p.Tier2),
		Context: loadList(p.Context),
	}
}

// loadList loads a simple keyword list: one term per line, lower-cased,
// trimmed, deduplicated, preserving first-occurrence order. Lines starting
// with # or [ are skipped.
func loadList(path string) []string {
	f, err := os.Open(path)
	if err != nil {
		log.Printf("keywords: file not found: %s", path)
		return nil
	}
	defer f.Close()

	var terms []string
	seen := make(map[string]bool)
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") || strings.HasPrefix(line, "[") {
			continue
		}
		term := strings.ToLower(line)
		if !seen[term] {
			seen[term] = true
			terms = append(terms, term)
		}
	}
	return terms
}

// loadThemes loads the tier-2 file. Terms before the first [Theme] header
// are ignored; empty themes are kept so the configured order stays intact.
func loadThemes(path string) []models.Theme {
	f, err := os.Open(path)
	if err != nil {
		log.Printf("keywords: tier-2 file not found: %s", path)
		return nil
	}
	defer f.Close()

	var themes []models.Theme
	current := -1
	seen := make(map[string]bool)
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		if strings.HasPrefix(line, "[") && strings.HasSuffix(line, "]") {
			name := strings.TrimSpace(line[1 : len(line)-1])
			themes = append(themes, models.Theme{Name: name})
			current = len(themes) - 1
			continue
		}
		if current < 0 {
			continue
		}
		term := strings.ToLower(line)
		key := themes[current].Name + "\x00" + term
		if !seen[key] {
			seen[key] = true
			themes[current].Terms = append(themes[current].Terms, term)
		}
	}
	return themes
}

// LoadFeeds reads the feed list. Each line is "URL | Source Name"; a line
// without the separator gets the source name "Unknown".
func LoadFeeds(path string) []models.FeedSource {
	f, err := os.Open(path)
	if err != nil {
		log.Printf("keywords: feeds file not found: %s", path)
		return nil
	}
	defer f.Close()

	var feeds []models.FeedSource
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		url, name, found := strings.Cut(line, "|")
		src := models.FeedSource{URL: strings.TrimSpace(url), SourceName: "Unknown"}
		if found {
			if n := strings.TrimSpace(name); n != "" {
				src.SourceName = n
			}
		}
		feeds = append(feeds, src)
	}
	return feeds
}
