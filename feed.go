package monitor

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/mmcdole/gofeed"

	"github.com/koen-bo/KA-database/models"
)

// FetchFeed pulls one RSS/Atom feed and returns its items with the source
// name attached. The publication date falls back from published to updated;
// items without either keep a nil date.
func (m *Monitor) FetchFeed(ctx context.Context, src models.FeedSource) ([]models.FeedItem, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, src.URL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)

	resp, err := m.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch feed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("HTTP error: %d %s", resp.StatusCode, resp.Status)
	}

	feed, err := gofeed.NewParser().Parse(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to parse feed: %w", err)
	}

	items := make([]models.FeedItem, 0, len(feed.Items))
	for _, it := range feed.Items {
		if m.config.MaxFeedItems > 0 && len(items) >= m.config.MaxFeedItems {
			break
		}
		item := models.FeedItem{
			Title:       strings.TrimSpace(it.Title),
			Description: strings.TrimSpace(it.Description),
			Link:        strings.TrimSpace(it.Link),
			SourceName:  src.SourceName,
		}
		if it.PublishedParsed != nil {
			item.Published = it.PublishedParsed
		} else if it.UpdatedParsed != nil {
			item.Published = it.UpdatedParsed
		}
		items = append(items, item)
	}
	return items, nil
}
