package monitor

import (
	"fmt"
	"io"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"

	"github.com/koen-bo/KA-database/models"
)

// mainContentSelectors are tried in order when extracting page text; the
// first match wins, otherwise the whole body is used.
var mainContentSelectors = []string{"main", "article", "[role='main']", ".content", "#content"}

// clutterSelector matches elements stripped before text extraction
const clutterSelector = "script, style, nav, footer, aside, header, noscript"

// Page is a parsed HTML page: its title, every anchor with its ancestor
// chain, and the document for text extraction.
type Page struct {
	Title string
	Links []models.PageLink

	doc *goquery.Document
}

// ParsePage parses an HTML payload. Anchors are collected from the full
// tree (including navigation and footers, which the scorer penalizes by
// their ancestor chains) before any clutter removal happens.
func ParsePage(r io.Reader) (*Page, error) {
	root, err := html.Parse(r)
	if err != nil {
		return nil, fmt.Errorf("failed to parse HTML: %w", err)
	}
	return &Page{
		Title: extractTitle(root),
		Links: extractPageLinks(root),
		doc:   goquery.NewDocumentFromNode(root),
	}, nil
}

// Text extracts the page's readable text: clutter elements are removed,
// then the first main-content region found is used, falling back to the
// whole body. Block boundaries become newlines; the result is normalized.
func (p *Page) Text() string {
	p.doc.Find(clutterSelector).Remove()

	var sel *goquery.Selection
	for _, selector := range mainContentSelectors {
		if s := p.doc.Find(selector).First(); s.Length() > 0 {
			sel = s
			break
		}
	}
	if sel == nil {
		sel = p.doc.Find("body").First()
	}
	if sel == nil || sel.Length() == 0 {
		return ""
	}

	var lines []string
	for _, node := range sel.Nodes {
		collectTextLines(node, &lines)
	}
	return Normalize(strings.Join(lines, "\n"))
}

// collectTextLines appends each non-empty trimmed text node as one line
func collectTextLines(n *html.Node, lines *[]string) {
	if n.Type == html.TextNode {
		if text := strings.TrimSpace(n.Data); text != "" {
			*lines = append(*lines, text)
		}
		return
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		collectTextLines(c, lines)
	}
}

// extractPageLinks collects every anchor with an href, together with its
// element ancestor chain (nearest first) for DOM-context scoring.
func extractPageLinks(root *html.Node) []models.PageLink {
	var links []models.PageLink
	var f func(*html.Node)
	f = func(n *html.Node) {
		if n.Type == html.ElementNode && n.Data == "a" {
			href := ""
			for _, attr := range n.Attr {
				if attr.Key == "href" {
					href = strings.TrimSpace(attr.Val)
					break
				}
			}
			if href != "" {
				links = append(links, models.PageLink{
					Href:       href,
					AnchorText: anchorText(n),
					Ancestors:  ancestorChain(n),
				})
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			f(c)
		}
	}
	f(root)
	return links
}

// ancestorChain walks from the anchor's parent to the document root,
// recording tag, class and id for each element on the way.
func ancestorChain(n *html.Node) []models.AncestorInfo {
	var chain []models.AncestorInfo
	for p := n.Parent; p != nil; p = p.Parent {
		if p.Type != html.ElementNode {
			continue
		}
		info := models.AncestorInfo{Tag: p.Data}
		for _, attr := range p.Attr {
			switch attr.Key {
			case "class":
				info.Class = attr.Val
			case "id":
				info.ID = attr.Val
			}
		}
		chain = append(chain, info)
	}
	return chain
}

// anchorText extracts the anchor's text content, whitespace-joined
func anchorText(n *html.Node) string {
	var parts []string
	var f func(*html.Node)
	f = func(n *html.Node) {
		if n.Type == html.TextNode {
			if text := strings.TrimSpace(n.Data); text != "" {
				parts = append(parts, text)
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			f(c)
		}
	}
	f(n)
	return strings.Join(parts, " ")
}

// extractTitle prefers og:title, then the first h1, then the title tag
func extractTitle(root *html.Node) string {
	var ogTitle, h1Title, htmlTitle string
	var f func(*html.Node)
	f = func(n *html.Node) {
		if n.Type == html.ElementNode {
			switch n.Data {
			case "meta":
				var property, content string
				for _, attr := range n.Attr {
					switch attr.Key {
					case "property":
						property = strings.ToLower(attr.Val)
					case "content":
						content = attr.Val
					}
				}
				if property == "og:title" && ogTitle == "" {
					ogTitle = content
				}
			case "h1":
				if h1Title == "" {
					h1Title = anchorText(n)
				}
			case "title":
				if htmlTitle == "" && n.FirstChild != nil {
					htmlTitle = n.FirstChild.Data
				}
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			f(c)
		}
	}
	f(root)

	if ogTitle != "" {
		return strings.TrimSpace(ogTitle)
	}
	if h1Title != "" {
		return strings.TrimSpace(h1Title)
	}
	return strings.TrimSpace(htmlTitle)
}
