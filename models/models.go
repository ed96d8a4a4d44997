package models

import "time"

// Payload kinds for a resolved document.
const (
	PayloadEmbeddedArtifact = "embedded-artifact"
	PayloadSourcePage       = "source-page"
)

// Processing status lifecycle for stored documents.
const (
	StatusNew      = "new"
	StatusAnalyzed = "analyzed"
	StatusFailed   = "failed"
)

// FeedSource identifies a single RSS feed to poll
type FeedSource struct {
	URL        string `json:"url"`
	SourceName string `json:"source_name"`
}

// FeedItem is one entry discovered in a feed
type FeedItem struct {
	Title       string     `json:"title"`
	Description string     `json:"description"`
	Link        string     `json:"link"`
	Published   *time.Time `json:"published,omitempty"`
	SourceName  string     `json:"source_name"`
}

// Theme groups tier-2 terms under a named theme. Theme order is the
// configuration file order and is significant for classification.
type Theme struct {
	Name  string   `json:"name"`
	Terms []string `json:"terms"`
}

// KeywordSet holds the three keyword collections used by the classifier.
// All terms are lower-case, trimmed and deduplicated. The set is immutable
// during a classification pass; reloading produces a new value.
type KeywordSet struct {
	Direct  []string `json:"direct"`
	Themes  []Theme  `json:"themes"`
	Context []string `json:"context"`
}

// Verdict is the outcome of a relevance classification.
// Tier is 1 or 2 for relevant items and 0 when not relevant.
type Verdict struct {
	IsRelevant     bool     `json:"is_relevant"`
	Tier           int      `json:"tier,omitempty"`
	MatchedTerms   []string `json:"matched_terms"`
	MatchedContext []string `json:"matched_context"`
	MatchedTheme   string   `json:"matched_theme,omitempty"`
}

// AncestorInfo describes one element on an anchor's ancestor chain,
// nearest ancestor first.
type AncestorInfo struct {
	Tag   string `json:"tag"`
	Class string `json:"class,omitempty"`
	ID    string `json:"id,omitempty"`
}

// PageLink is a raw anchor discovered on a page, before scoring
type PageLink struct {
	Href       string         `json:"href"`
	AnchorText string         `json:"anchor_text"`
	Ancestors  []AncestorInfo `json:"ancestors,omitempty"`
}

// ScoreAdjustment records one signal's contribution to a candidate score
type ScoreAdjustment struct {
	Label string `json:"label"`
	Delta int    `json:"delta"`
}

// LinkCandidate is a scored artifact-link candidate. AnchorText keeps the
// original casing for display; matching is done on a lowered copy.
// Adjustments lists every signal that contributed, in evaluation order,
// and always sums to RawScore.
type LinkCandidate struct {
	URL         string            `json:"url"`
	AnchorText  string            `json:"anchor_text"`
	RawScore    int               `json:"raw_score"`
	Adjustments []ScoreAdjustment `json:"adjustments"`
}

// ResolvedDocument is the resolver's output contract to storage
type ResolvedDocument struct {
	SourceURL     string `json:"source_url"`
	PayloadKind   string `json:"payload_kind"`
	Text          string `json:"text"`
	ArtifactBytes []byte `json:"-"`
	ArtifactURL   string `json:"artifact_url,omitempty"`
}

// Document is a stored knowledge-base entry: feed metadata plus the
// resolved content and its processing state.
type Document struct {
	ID              string     `json:"id"`
	URL             string     `json:"url"`
	SourceName      string     `json:"source_name,omitempty"`
	Title           string     `json:"title,omitempty"`
	PublicationDate *time.Time `json:"publication_date,omitempty"`
	FetchedAt       time.Time  `json:"fetched_at"`
	ContentType     string     `json:"content_type,omitempty"` // embedded-artifact or source-page
	ArtifactPath    string     `json:"artifact_path,omitempty"`
	FullText        string     `json:"full_text,omitempty"`
	Status          string     `json:"status"`
	Tier            int        `json:"tier,omitempty"`
	MatchedTerms    []string   `json:"matched_terms,omitempty"`
	MatchedTheme    string     `json:"matched_theme,omitempty"`
	IsRelevant      *bool      `json:"is_relevant,omitempty"` // post-hoc analysis flag
	Summary         string     `json:"summary,omitempty"`
}

// IngestStats counts the outcomes of one ingestion run
type IngestStats struct {
	FeedsProcessed  int `json:"feeds_processed"`
	EntriesFound    int `json:"entries_found"`
	EntriesFiltered int `json:"entries_filtered"`
	EntriesSkipped  int `json:"entries_skipped_existing"`
	EntriesFetched  int `json:"entries_fetched"`
	EntriesFailed   int `json:"entries_failed"`
	EntriesStored   int `json:"entries_stored"`
}

// RefetchStats counts the outcomes of one artifact re-fetch pass over
// stored source-page documents.
type RefetchStats struct {
	Checked  int `json:"checked"`
	Upgraded int `json:"upgraded"`
	Failed   int `json:"failed"`
}

// ClassifyRequest is an API request to classify a feed item
type ClassifyRequest struct {
	Title       string `json:"title"`
	Description string `json:"description"`
}

// ClassifyResponse wraps a classification verdict
type ClassifyResponse struct {
	Title   string  `json:"title"`
	Verdict Verdict `json:"verdict"`
}

// ResolveRequest is an API request to resolve a URL to its document
type ResolveRequest struct {
	URL   string `json:"url"`
	Title string `json:"title,omitempty"`
}

// ResolveResponse describes a resolution outcome without the artifact bytes
type ResolveResponse struct {
	SourceURL   string          `json:"source_url"`
	PayloadKind string          `json:"payload_kind"`
	TextLength  int             `json:"text_length"`
	ArtifactURL string          `json:"artifact_url,omitempty"`
	Candidates  []LinkCandidate `json:"candidates,omitempty"`
}
