// Package monitor implements the document monitor core: tiered keyword
// relevance classification, scored artifact-link disambiguation, document
// resolution and feed ingestion.
package monitor

import (
	"net/http"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/koen-bo/KA-database/keywords"
	"github.com/koen-bo/KA-database/models"
)

const userAgent = "ClimateMonitor/1.0 (Climate Adaptation Research Bot)"

// Config contains monitor configuration
type Config struct {
	HTTPTimeout  time.Duration
	ConfigDir    string       // directory holding keyword and feed files
	AcceptScore  int          // minimum candidate score before a sub-fetch is attempted
	Rules        ScoringRules // link scoring rule table
	MaxFeedItems int          // per-feed item cap, 0 means no cap
}

// DefaultConfig returns default monitor configuration
func DefaultConfig() Config {
	return Config{
		HTTPTimeout: 15 * time.Second,
		ConfigDir:   ".",
		AcceptScore: 120,
		Rules:       DefaultScoringRules(),
	}
}

// DB is the narrow store interface the ingestion pipeline needs.
// It can be nil for classification-only or resolution-only use.
type DB interface {
	URLExists(url string) (bool, error)
	SaveDocument(doc *models.Document) error
}

// ArtifactStore persists resolved artifact bytes
type ArtifactStore interface {
	SaveArtifact(data []byte, filename string) (string, error)
}

// Monitor ties the classifier, resolver and feed ingestion together
type Monitor struct {
	config     Config
	httpClient *http.Client
	db         DB
	store      ArtifactStore
}

// New creates a new Monitor. db and store may be nil when only
// classification or resolution is needed.
func New(config Config, db DB, store ArtifactStore) *Monitor {
	if config.AcceptScore == 0 {
		config.AcceptScore = DefaultConfig().AcceptScore
	}
	return &Monitor{
		config: config,
		httpClient: &http.Client{
			Timeout:   config.HTTPTimeout,
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		},
		db:    db,
		store: store,
	}
}

// Keywords loads the keyword set from the configured directory. Called once
// per ingestion pass so that file edits take effect between passes without
// a restart.
func (m *Monitor) Keywords() models.KeywordSet {
	return keywords.LoadSet(keywords.DefaultPaths(m.config.ConfigDir))
}

// Feeds loads the feed list from the configured directory
func (m *Monitor) Feeds() []models.FeedSource {
	return keywords.LoadFeeds(keywords.DefaultPaths(m.config.ConfigDir).Feeds)
}
