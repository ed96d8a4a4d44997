package monitor

import (
	"strings"
	"testing"
)

func TestParsePageLinksWithAncestors(t *testing.T) {
	html := `<html><body>
		<main class="content-main">
			<p><a href="/doc.pdf">Download <b>rapport</b> (PDF)</a></p>
		</main>
		<footer id="site-footer"><a href="/oud.pdf">Archief</a></footer>
	</body></html>`

	page, err := ParsePage(strings.NewReader(html))
	if err != nil {
		t.Fatalf("ParsePage failed: %v", err)
	}

	if len(page.Links) != 2 {
		t.Fatalf("got %d links, want 2", len(page.Links))
	}

	first := page.Links[0]
	if first.Href != "/doc.pdf" {
		t.Errorf("Href = %q, want /doc.pdf", first.Href)
	}
	// Nested element text is joined
	if first.AnchorText != "Download rapport (PDF)" {
		t.Errorf("AnchorText = %q", first.AnchorText)
	}
	// Ancestors run nearest first: p, main, body, html
	if len(first.Ancestors) < 2 || first.Ancestors[0].Tag != "p" || first.Ancestors[1].Tag != "main" {
		t.Errorf("Ancestors = %+v", first.Ancestors)
	}
	if first.Ancestors[1].Class != "content-main" {
		t.Errorf("main class = %q, want content-main", first.Ancestors[1].Class)
	}

	second := page.Links[1]
	if second.Ancestors[0].Tag != "footer" || second.Ancestors[0].ID != "site-footer" {
		t.Errorf("footer ancestor = %+v", second.Ancestors[0])
	}
}

func TestParsePageTitlePreference(t *testing.T) {
	tests := []struct {
		name string
		html string
		want string
	}{
		{
			name: "og:title wins",
			html: `<html><head><title>Site | Item</title>
				<meta property="og:title" content="Echte titel"></head>
				<body><h1>Koptekst</h1></body></html>`,
			want: "Echte titel",
		},
		{
			name: "h1 over title tag",
			html: `<html><head><title>Site | Item</title></head>
				<body><h1>Koptekst</h1></body></html>`,
			want: "Koptekst",
		},
		{
			name: "title tag fallback",
			html: `<html><head><title>Site | Item</title></head><body></body></html>`,
			want: "Site | Item",
		},
		{
			name: "no title at all",
			html: `<html><body><p>tekst</p></body></html>`,
			want: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			page, err := ParsePage(strings.NewReader(tt.html))
			if err != nil {
				t.Fatalf("ParsePage failed: %v", err)
			}
			if page.Title != tt.want {
				t.Errorf("Title = %q, want %q", page.Title, tt.want)
			}
		})
	}
}

func TestPageTextPrefersMainContent(t *testing.T) {
	html := `<html><body>
		<header>Site header</header>
		<nav>Menu items</nav>
		<main>
			<h1>Hoofdonderwerp</h1>
			<p>Eerste alinea.</p>
			<script>console.log("weg")</script>
			<p>Tweede alinea.</p>
		</main>
		<aside>Zijbalk</aside>
		<footer>Voettekst</footer>
	</body></html>`

	page, err := ParsePage(strings.NewReader(html))
	if err != nil {
		t.Fatalf("ParsePage failed: %v", err)
	}

	text := page.Text()
	for _, want := range []string{"Hoofdonderwerp", "Eerste alinea.", "Tweede alinea."} {
		if !strings.Contains(text, want) {
			t.Errorf("Text missing %q: %q", want, text)
		}
	}
	for _, clutter := range []string{"Site header", "Menu items", "Zijbalk", "Voettekst", "console.log"} {
		if strings.Contains(text, clutter) {
			t.Errorf("Text contains clutter %q: %q", clutter, text)
		}
	}
}

func TestPageTextBodyFallback(t *testing.T) {
	html := `<html><body><div><p>Gewone inhoud zonder main.</p></div></body></html>`

	page, err := ParsePage(strings.NewReader(html))
	if err != nil {
		t.Fatalf("ParsePage failed: %v", err)
	}
	if !strings.Contains(page.Text(), "Gewone inhoud zonder main.") {
		t.Errorf("Text = %q", page.Text())
	}
}

func TestPageLinksCollectedBeforeClutterRemoval(t *testing.T) {
	html := `<html><body>
		<main><p>Inhoud.</p></main>
		<footer><a href="/archief/rapport.pdf">Oud rapport</a></footer>
	</body></html>`

	page, err := ParsePage(strings.NewReader(html))
	if err != nil {
		t.Fatalf("ParsePage failed: %v", err)
	}

	// Text() mutates the document, removing the footer
	_ = page.Text()

	if len(page.Links) != 1 || page.Links[0].Href != "/archief/rapport.pdf" {
		t.Errorf("Links = %+v, want the footer anchor to survive", page.Links)
	}
}
