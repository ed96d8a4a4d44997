package monitor

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/koen-bo/KA-database/models"
)

func testMonitor() *Monitor {
	cfg := DefaultConfig()
	cfg.HTTPTimeout = 10 * time.Second
	return New(cfg, nil, nil)
}

const articlePage = `<html>
<head><title>Persbericht droogte</title></head>
<body>
<nav><a href="/">Home</a></nav>
<main>
<h1>Persbericht droogte</h1>
<p>Uitgebreide toelichting op de maatregelen tegen droogte.</p>
%s
</main>
</body>
</html>`

func TestResolveSourcePageWithoutCandidates(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		w.Write([]byte(strings.Replace(articlePage, "%s", "", 1)))
	}))
	defer ts.Close()

	m := testMonitor()
	resolved, candidates, err := m.Resolve(context.Background(), ts.URL+"/nieuws/item", "")
	if err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}

	if resolved.PayloadKind != models.PayloadSourcePage {
		t.Errorf("PayloadKind = %q, want %q", resolved.PayloadKind, models.PayloadSourcePage)
	}
	if !strings.Contains(resolved.Text, "maatregelen tegen droogte") {
		t.Errorf("Text missing page content: %q", resolved.Text)
	}
	// nav clutter is stripped from extracted text
	if strings.Contains(resolved.Text, "Home") {
		t.Errorf("Text contains navigation clutter: %q", resolved.Text)
	}
	if len(candidates) != 0 {
		t.Errorf("candidates = %+v, want none", candidates)
	}
	if resolved.ArtifactBytes != nil {
		t.Error("source-page resolution should carry no artifact bytes")
	}
}

func TestResolveBelowThresholdSkipsSubFetch(t *testing.T) {
	var candidateFetches int32
	mux := http.NewServeMux()
	mux.HandleFunc("/nieuws/item", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		// Gazette link scores 80, below the 120 threshold
		link := `<a href="https://zoek.officielebekendmakingen.nl/kst-1">Kamerstuk</a>`
		w.Write([]byte(strings.Replace(articlePage, "%s", link, 1)))
	})
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&candidateFetches, 1)
	})
	ts := httptest.NewServer(mux)
	defer ts.Close()

	m := testMonitor()
	resolved, candidates, err := m.Resolve(context.Background(), ts.URL+"/nieuws/item", "")
	if err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}

	if resolved.PayloadKind != models.PayloadSourcePage {
		t.Errorf("PayloadKind = %q, want %q", resolved.PayloadKind, models.PayloadSourcePage)
	}
	if len(candidates) != 1 || candidates[0].RawScore != 80 {
		t.Errorf("candidates = %+v, want one with score 80", candidates)
	}
	if n := atomic.LoadInt32(&candidateFetches); n != 0 {
		t.Errorf("candidate was sub-fetched %d times, want 0", n)
	}
}

func TestResolveSubFetchServingHTMLFallsBack(t *testing.T) {
	var candidateFetches int32
	mux := http.NewServeMux()
	mux.HandleFunc("/nieuws/item", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		link := `<a href="/files/rapport.pdf">Rapport</a>`
		w.Write([]byte(strings.Replace(articlePage, "%s", link, 1)))
	})
	mux.HandleFunc("/files/rapport.pdf", func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&candidateFetches, 1)
		// Artifact-shaped URL serving an HTML interstitial
		w.Header().Set("Content-Type", "text/html")
		w.Write([]byte("<html><body>U wordt doorgestuurd...</body></html>"))
	})
	ts := httptest.NewServer(mux)
	defer ts.Close()

	m := testMonitor()
	resolved, candidates, err := m.Resolve(context.Background(), ts.URL+"/nieuws/item", "")
	if err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}

	if n := atomic.LoadInt32(&candidateFetches); n != 1 {
		t.Errorf("candidate fetched %d times, want 1", n)
	}
	if resolved.PayloadKind != models.PayloadSourcePage {
		t.Errorf("PayloadKind = %q, want fallback to %q", resolved.PayloadKind, models.PayloadSourcePage)
	}
	if !strings.Contains(resolved.Text, "maatregelen tegen droogte") {
		t.Errorf("fallback text missing page content: %q", resolved.Text)
	}
	if len(candidates) == 0 {
		t.Error("expected scored candidates to be reported")
	}
}

func TestResolveSubFetchFailureFallsBack(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/nieuws/item", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		link := `<a href="/files/weg.pdf">Rapport</a>`
		w.Write([]byte(strings.Replace(articlePage, "%s", link, 1)))
	})
	mux.HandleFunc("/files/weg.pdf", func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	})
	ts := httptest.NewServer(mux)
	defer ts.Close()

	m := testMonitor()
	resolved, _, err := m.Resolve(context.Background(), ts.URL+"/nieuws/item", "")
	if err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}
	if resolved.PayloadKind != models.PayloadSourcePage {
		t.Errorf("PayloadKind = %q, want %q", resolved.PayloadKind, models.PayloadSourcePage)
	}
}

func TestResolveCorruptArtifactCandidateFallsBack(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/nieuws/item", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		link := `<a href="/files/kapot.pdf">Rapport</a>`
		w.Write([]byte(strings.Replace(articlePage, "%s", link, 1)))
	})
	mux.HandleFunc("/files/kapot.pdf", func(w http.ResponseWriter, r *http.Request) {
		// Confirmed by content type, but the payload is not parseable
		w.Header().Set("Content-Type", "application/pdf")
		w.Write([]byte("%PDF-1.4 truncated garbage"))
	})
	ts := httptest.NewServer(mux)
	defer ts.Close()

	m := testMonitor()
	resolved, _, err := m.Resolve(context.Background(), ts.URL+"/nieuws/item", "")
	if err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}
	if resolved.PayloadKind != models.PayloadSourcePage {
		t.Errorf("PayloadKind = %q, want %q", resolved.PayloadKind, models.PayloadSourcePage)
	}
}

func TestResolvePageErrors(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/missing":
			http.NotFound(w, r)
		case "/empty":
			w.Header().Set("Content-Type", "text/html")
			w.Write([]byte("<html><body></body></html>"))
		}
	}))
	defer ts.Close()

	m := testMonitor()

	tests := []struct {
		name string
		url  string
	}{
		{"unsupported scheme", "ftp://example.com/rapport.pdf"},
		{"http error", ts.URL + "/missing"},
		{"no extractable text", ts.URL + "/empty"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, _, err := m.Resolve(context.Background(), tt.url, ""); err == nil {
				t.Error("expected error, got nil")
			}
		})
	}
}

func TestFetchSendsUserAgent(t *testing.T) {
	var gotUA string
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotUA = r.Header.Get("User-Agent")
		w.Write([]byte("ok"))
	}))
	defer ts.Close()

	m := testMonitor()
	if _, _, err := m.fetch(context.Background(), ts.URL); err != nil {
		t.Fatalf("fetch failed: %v", err)
	}
	if gotUA != userAgent {
		t.Errorf("User-Agent = %q, want %q", gotUA, userAgent)
	}
}

func TestIsArtifactPayload(t *testing.T) {
	tests := []struct {
		url         string
		contentType string
		want        bool
	}{
		{"https://example.com/page", "application/pdf", true},
		{"https://example.com/page", "application/pdf; charset=binary", true},
		{"https://example.com/doc.pdf", "text/html", true},
		{"https://example.com/doc.PDF?download=1", "text/html", true},
		{"https://example.com/page", "text/html", false},
		{"https://example.com/pdf-uitleg", "text/html", false},
	}
	for _, tt := range tests {
		if got := isArtifactPayload(tt.url, tt.contentType); got != tt.want {
			t.Errorf("isArtifactPayload(%q, %q) = %v, want %v", tt.url, tt.contentType, got, tt.want)
		}
	}
}

func TestConfirmArtifact(t *testing.T) {
	tests := []struct {
		name        string
		contentType string
		body        []byte
		want        bool
	}{
		{"content type", "application/pdf", []byte("anything"), true},
		{"magic bytes", "application/octet-stream", []byte("%PDF-1.7 ..."), true},
		{"html payload", "text/html", []byte("<html></html>"), false},
		{"pdf-shaped url is not checked here", "text/html", []byte("redirecting"), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := confirmArtifact(tt.contentType, tt.body); got != tt.want {
				t.Errorf("confirmArtifact = %v, want %v", got, tt.want)
			}
		})
	}
}
