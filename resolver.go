package monitor

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"strings"

	"github.com/koen-bo/KA-database/models"
)

// maxPayloadBytes caps how much of any response body is read
const maxPayloadBytes = 50 * 1024 * 1024

var pdfMagic = []byte("%PDF")

// Resolve fetches a page and resolves it to its authoritative full-text
// document. The fetched payload moves through exactly one transition:
// either it is itself a confirmed artifact, or it is parsed as a page,
// its anchor candidates scored, and at most one candidate sub-fetched for
// verification. A sub-fetch that fails or serves something that is not an
// artifact falls back to the page's own text; only an unreachable or
// text-less original page is a terminal failure.
//
// articleTitle is the item title from feed metadata, used for the
// title-overlap scoring signal; when empty the page's own title is used.
// The returned candidate list is the scorer's audit output for the page
// (nil when the payload was a direct artifact).
func (m *Monitor) Resolve(ctx context.Context, pageURL, articleTitle string) (*models.ResolvedDocument, []models.LinkCandidate, error) {
	body, contentType, err := m.fetch(ctx, pageURL)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to fetch %s: %w", pageURL, err)
	}

	// The payload may be the artifact itself, linked directly from the feed.
	if isArtifactPayload(pageURL, contentType) {
		text, err := ExtractPDFText(body)
		if err != nil {
			return nil, nil, fmt.Errorf("artifact at %s: %w", pageURL, err)
		}
		if text == "" {
			log.Printf("resolver: no text extracted from artifact %s", pageURL)
		}
		return &models.ResolvedDocument{
			SourceURL:     pageURL,
			PayloadKind:   models.PayloadEmbeddedArtifact,
			Text:          text,
			ArtifactBytes: body,
			ArtifactURL:   pageURL,
		}, nil, nil
	}

	page, err := ParsePage(bytes.NewReader(body))
	if err != nil {
		return nil, nil, fmt.Errorf("failed to parse %s: %w", pageURL, err)
	}

	title := articleTitle
	if title == "" {
		title = page.Title
	}

	candidates := ScoreCandidates(m.config.Rules, page.Links, pageURL, title)

	if len(candidates) > 0 && candidates[0].RawScore >= m.config.AcceptScore {
		best := candidates[0]
		log.Printf("resolver: candidate for %s (score %d): %s", pageURL, best.RawScore, best.URL)
		if doc := m.fetchArtifact(ctx, best.URL, pageURL); doc != nil {
			return doc, candidates, nil
		}
	}

	// Source-page fallback: the page's own extracted text is the document.
	text := page.Text()
	if text == "" {
		return nil, candidates, fmt.Errorf("no text extracted from %s", pageURL)
	}
	return &models.ResolvedDocument{
		SourceURL:   pageURL,
		PayloadKind: models.PayloadSourcePage,
		Text:        text,
	}, candidates, nil
}

// fetchArtifact sub-fetches a candidate and verifies it really serves an
// artifact, guarding against tracking and redirect links that carry
// artifact-shaped URLs but serve HTML. Any failure returns nil so the
// caller falls back to the source page.
func (m *Monitor) fetchArtifact(ctx context.Context, artifactURL, pageURL string) *models.ResolvedDocument {
	body, contentType, err := m.fetch(ctx, artifactURL)
	if err != nil {
		log.Printf("resolver: candidate fetch failed for %s: %v", artifactURL, err)
		return nil
	}
	if !confirmArtifact(contentType, body) {
		log.Printf("resolver: candidate %s did not serve an artifact (%s)", artifactURL, contentType)
		return nil
	}
	text, err := ExtractPDFText(body)
	if err != nil {
		log.Printf("resolver: candidate %s text extraction failed: %v", artifactURL, err)
		return nil
	}
	return &models.ResolvedDocument{
		SourceURL:     pageURL,
		PayloadKind:   models.PayloadEmbeddedArtifact,
		Text:          text,
		ArtifactBytes: body,
		ArtifactURL:   artifactURL,
	}
}

// fetch performs one GET and returns the body and content type
func (m *Monitor) fetch(ctx context.Context, rawURL string) ([]byte, string, error) {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return nil, "", fmt.Errorf("invalid URL: %w", err)
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return nil, "", fmt.Errorf("URL must be http or https")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, "", fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)

	resp, err := m.httpClient.Do(req)
	if err != nil {
		return nil, "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, "", fmt.Errorf("HTTP error: %d %s", resp.StatusCode, resp.Status)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxPayloadBytes))
	if err != nil {
		return nil, "", fmt.Errorf("failed to read body: %w", err)
	}
	return body, strings.ToLower(resp.Header.Get("Content-Type")), nil
}

// isArtifactPayload detects a direct artifact by transport content type or
// URL suffix.
func isArtifactPayload(rawURL, contentType string) bool {
	if strings.Contains(contentType, "application/pdf") {
		return true
	}
	if u, err := url.Parse(rawURL); err == nil {
		return strings.HasSuffix(strings.ToLower(u.Path), ".pdf")
	}
	return false
}

// confirmArtifact verifies a sub-fetched payload by content type or byte
// signature. URL suffix deliberately does not count here: an
// artifact-shaped URL serving HTML is exactly the case this guards.
func confirmArtifact(contentType string, body []byte) bool {
	if strings.Contains(contentType, "application/pdf") {
		return true
	}
	return bytes.HasPrefix(body, pdfMagic)
}
