package monitor

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/koen-bo/KA-database/docname"
	"github.com/koen-bo/KA-database/models"
)

// RunIngestion runs one full ingestion pass: poll every configured feed,
// classify each entry, skip ones already stored, resolve the relevant ones
// to their documents and persist them. Keyword and feed configuration is
// loaded once at the start of the pass, so file edits apply to the next
// pass, never mid-pass.
func (m *Monitor) RunIngestion(ctx context.Context) (*models.IngestStats, error) {
	if m.db == nil {
		return nil, fmt.Errorf("ingestion requires a database")
	}
	start := time.Now()
	defer func() {
		metricRunDuration.Observe(time.Since(start).Seconds())
	}()

	stats := &models.IngestStats{}
	ks := m.Keywords()
	feeds := m.Feeds()
	if len(feeds) == 0 {
		slog.Warn("no feeds configured", "config_dir", m.config.ConfigDir)
		return stats, nil
	}
	slog.Info("ingestion run starting", "feeds", len(feeds))

	for _, src := range feeds {
		if err := ctx.Err(); err != nil {
			return stats, err
		}
		items, err := m.FetchFeed(ctx, src)
		if err != nil {
			slog.Warn("feed fetch failed", "source", src.SourceName, "url", src.URL, "error", err)
			metricFailures.WithLabelValues("feed").Inc()
			continue
		}
		stats.FeedsProcessed++
		slog.Info("feed processed", "source", src.SourceName, "entries", len(items))

		for _, item := range items {
			m.processItem(ctx, ks, item, stats)
		}
	}

	slog.Info("ingestion run complete",
		"feeds_processed", stats.FeedsProcessed,
		"entries_found", stats.EntriesFound,
		"filtered_out", stats.EntriesFiltered,
		"already_stored", stats.EntriesSkipped,
		"fetched", stats.EntriesFetched,
		"failed", stats.EntriesFailed,
		"stored", stats.EntriesStored,
	)
	return stats, nil
}

func (m *Monitor) processItem(ctx context.Context, ks models.KeywordSet, item models.FeedItem, stats *models.IngestStats) {
	stats.EntriesFound++
	metricEntriesSeen.Inc()

	if item.Link == "" {
		return
	}

	verdict := Classify(ks, item.Title, item.Description)
	if !verdict.IsRelevant {
		stats.EntriesFiltered++
		return
	}
	metricRelevant.WithLabelValues(strconv.Itoa(verdict.Tier)).Inc()

	exists, err := m.db.URLExists(item.Link)
	if err != nil {
		slog.Error("dedup check failed", "url", item.Link, "error", err)
		metricFailures.WithLabelValues("db").Inc()
		stats.EntriesFailed++
		return
	}
	if exists {
		stats.EntriesSkipped++
		return
	}

	slog.Info("new relevant entry", "title", item.Title, "match", FormatVerdict(verdict))

	resolved, _, err := m.Resolve(ctx, item.Link, item.Title)
	if err != nil {
		slog.Warn("resolution failed", "url", item.Link, "error", err)
		metricFailures.WithLabelValues("fetch").Inc()
		stats.EntriesFailed++
		return
	}
	stats.EntriesFetched++
	metricResolved.WithLabelValues(resolved.PayloadKind).Inc()

	artifactPath := ""
	if resolved.PayloadKind == models.PayloadEmbeddedArtifact && m.store != nil {
		filename := docname.ForArtifact(item.SourceName, item.Title, resolved.ArtifactURL, time.Now())
		path, err := m.store.SaveArtifact(resolved.ArtifactBytes, filename)
		if err != nil {
			// Text is already extracted; losing the artifact copy is not fatal.
			slog.Warn("artifact save failed", "url", resolved.ArtifactURL, "error", err)
			metricFailures.WithLabelValues("storage").Inc()
		} else {
			artifactPath = path
		}
	}

	doc := &models.Document{
		ID:              uuid.New().String(),
		URL:             item.Link,
		SourceName:      item.SourceName,
		Title:           item.Title,
		PublicationDate: item.Published,
		FetchedAt:       time.Now(),
		ContentType:     resolved.PayloadKind,
		ArtifactPath:    artifactPath,
		FullText:        resolved.Text,
		Status:          models.StatusNew,
		Tier:            verdict.Tier,
		MatchedTerms:    verdict.MatchedTerms,
		MatchedTheme:    verdict.MatchedTheme,
	}
	if err := m.db.SaveDocument(doc); err != nil {
		slog.Error("document save failed", "url", item.Link, "error", err)
		metricFailures.WithLabelValues("db").Inc()
		stats.EntriesFailed++
		return
	}
	stats.EntriesStored++
	metricStored.Inc()
	slog.Info("document stored",
		"id", doc.ID,
		"kind", resolved.PayloadKind,
		"text_chars", len(resolved.Text),
		"artifact_path", artifactPath,
	)
}
