package crawler

import (
	"io"
	"net/url"
	"strings"

	"golang.org/x/net/html"
)

// Parser extracts structured content from HTML documents.
// It is a pure transform: one parsing pass over the DOM produces the page
// fields and the outbound link set; no policy or crawl state is involved.
//
// Design decision: We use golang.org/x/net/html rather than regex because:
//  1. It correctly handles malformed HTML common on the web
//  2. Provides a proper DOM-like structure
//  3. More maintainable than complex regex patterns
type Parser struct {
	// baseURL is the URL of the page being parsed, used for resolving
	// relative links.
	baseURL *url.URL

	// targetDomain is the crawl's registrable domain, used to split
	// links into internal and external.
	targetDomain string
}

// ParseResult contains everything extracted from one HTML page.
type ParseResult struct {
	// Title is the page title from the <title> tag.
	Title string

	// Description is the meta description, when present.
	Description string

	// Headings contains the text of h1-h3 elements in document order.
	Headings []string

	// WordCount is the number of words in the visible text.
	// Script, style, and comment content is excluded.
	WordCount int

	// Links contains all discovered links resolved to absolute URLs.
	Links []string

	// InternalLinks are links within the target domain.
	InternalLinks []string

	// ExternalLinks are links to other domains.
	ExternalLinks []string

	// Images contains image sources resolved to absolute URLs.
	Images []string

	// MetaTags contains meta tag name/content pairs.
	MetaTags map[string]string
}

// NewParser creates a parser for a page at baseURL belonging to
// targetDomain.
func NewParser(baseURL, targetDomain string) (*Parser, error) {
	u, err := url.Parse(baseURL)
	if err != nil {
		return nil, err
	}
	return &Parser{baseURL: u, targetDomain: targetDomain}, nil
}

// Parse parses HTML content and extracts the page record fields and
// outbound links in a single pass.
func (p *Parser) Parse(content io.Reader) (*ParseResult, error) {
	doc, err := html.Parse(content)
	if err != nil {
		return nil, err
	}

	result := &ParseResult{
		Headings:      make([]string, 0),
		Links:         make([]string, 0),
		InternalLinks: make([]string, 0),
		ExternalLinks: make([]string, 0),
		Images:        make([]string, 0),
		MetaTags:      make(map[string]string),
	}

	var text strings.Builder
	seen := make(map[string]bool)

	var walk func(n *html.Node, inHidden bool)
	walk = func(n *html.Node, inHidden bool) {
		switch n.Type {
		case html.ElementNode:
			// Text inside these elements is not page content.
			if n.Data == "script" || n.Data == "style" || n.Data == "noscript" {
				inHidden = true
			}
			p.processElement(n, result, seen)
		case html.TextNode:
			if !inHidden {
				text.WriteString(n.Data)
				text.WriteString(" ")
			}
		}

		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c, inHidden)
		}
	}
	walk(doc, false)

	result.WordCount = len(strings.Fields(text.String()))
	return result, nil
}

// processElement handles one HTML element node.
func (p *Parser) processElement(n *html.Node, result *ParseResult, seen map[string]bool) {
	switch n.Data {
	case "title":
		if n.FirstChild != nil && n.FirstChild.Type == html.TextNode {
			result.Title = strings.TrimSpace(n.FirstChild.Data)
		}

	case "h1", "h2", "h3":
		if heading := strings.TrimSpace(nodeText(n)); heading != "" {
			result.Headings = append(result.Headings, heading)
		}

	case "a":
		if href := getAttr(n, "href"); href != "" {
			resolved := p.resolveURL(href)
			if resolved == "" || seen[resolved] {
				return
			}
			seen[resolved] = true
			result.Links = append(result.Links, resolved)
			if SameSite(p.targetDomain, resolved) {
				result.InternalLinks = append(result.InternalLinks, resolved)
			} else {
				result.ExternalLinks = append(result.ExternalLinks, resolved)
			}
		}

	case "img":
		if src := getAttr(n, "src"); src != "" {
			if resolved := p.resolveURL(src); resolved != "" {
				result.Images = append(result.Images, resolved)
			}
		}

	case "meta":
		name := getAttr(n, "name")
		if name == "" {
			name = getAttr(n, "property") // OpenGraph uses property
		}
		content := getAttr(n, "content")
		if name != "" && content != "" {
			result.MetaTags[name] = content
			if strings.EqualFold(name, "description") {
				result.Description = content
			}
		}
	}
}

// resolveURL resolves a relative URL against the page's base URL.
// Non-navigational schemes and bare fragments resolve to empty string.
func (p *Parser) resolveURL(href string) string {
	href = strings.TrimSpace(href)
	if href == "" ||
		strings.HasPrefix(href, "javascript:") ||
		strings.HasPrefix(href, "mailto:") ||
		strings.HasPrefix(href, "tel:") ||
		strings.HasPrefix(href, "data:") ||
		strings.HasPrefix(href, "#") {
		return ""
	}

	u, err := url.Parse(href)
	if err != nil {
		return ""
	}

	return NormalizeURL(p.baseURL.ResolveReference(u).String())
}

// nodeText returns the concatenated text content of a node's subtree.
func nodeText(n *html.Node) string {
	var b strings.Builder
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.TextNode {
			b.WriteString(n.Data)
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(n)
	return b.String()
}

// getAttr retrieves an attribute value from an HTML node.
func getAttr(n *html.Node, key string) string {
	for _, attr := range n.Attr {
		if attr.Key == key {
			return attr.Val
		}
	}
	return ""
}
