package model

import (
	"strings"
	"time"
)

// ContentClass is a coarse classification of a page's content shape.
// The classes feed the content histogram in Stats and help readers of a
// report understand what kind of site was crawled without opening pages.
type ContentClass string

// Content classification values.
//
// Design decision: We classify with fixed structural thresholds rather than
// any language model or heuristic scoring because:
//  1. The classification must be deterministic and testable
//  2. It only needs to be coarse enough for a histogram
//  3. Word and link counts are already extracted for statistics
const (
	// ContentClassArticle is a text-heavy page (articles, documentation).
	ContentClassArticle ContentClass = "article"

	// ContentClassIndex is a link-heavy page with little prose
	// (navigation pages, category listings, sitemaps rendered as HTML).
	ContentClassIndex ContentClass = "index"

	// ContentClassMedia is an image-heavy page (galleries, portfolios).
	ContentClassMedia ContentClass = "media"

	// ContentClassStub is a page with almost no content
	// (placeholders, error pages served with status 200).
	ContentClassStub ContentClass = "stub"
)

// Classification thresholds. A page is a stub below StubWordCount words,
// an article above ArticleWordCount, media when images outnumber
// MediaImageCount, and an index when links outnumber words per IndexLinkRatio.
const (
	StubWordCount    = 50
	ArticleWordCount = 400
	MediaImageCount  = 10
	IndexLinkRatio   = 5
)

// PageRecord represents one successfully crawled page.
// It combines the extractor's output with crawl bookkeeping (depth, parent,
// timestamp). Records are immutable once appended to a report.
type PageRecord struct {
	// URL is the normalized URL of the page.
	URL string `json:"url"`

	// StatusCode is the HTTP response status code.
	StatusCode int `json:"status_code"`

	// ContentType is the MIME type from the Content-Type header.
	ContentType string `json:"content_type"`

	// Title is the page title from the <title> tag.
	Title string `json:"title,omitempty"`

	// Description is the meta description, when present.
	Description string `json:"description,omitempty"`

	// Headings contains the text of h1-h3 elements in document order.
	Headings []string `json:"headings,omitempty"`

	// WordCount is the number of whitespace-separated words in the
	// visible text of the page.
	WordCount int `json:"word_count"`

	// Links contains all outbound links found on the page, resolved
	// to absolute URLs.
	Links []string `json:"links,omitempty"`

	// InternalLinks are links within the crawled site.
	InternalLinks []string `json:"internal_links,omitempty"`

	// ExternalLinks are links to other sites.
	ExternalLinks []string `json:"external_links,omitempty"`

	// Images contains image sources referenced by the page.
	Images []string `json:"images,omitempty"`

	// MetaTags contains meta tag name/content pairs (including
	// OpenGraph properties).
	MetaTags map[string]string `json:"meta_tags,omitempty"`

	// ContentClass is the structural classification of the page.
	ContentClass ContentClass `json:"content_class"`

	// Depth is the link distance from the seed URL.
	Depth int `json:"depth"`

	// ParentURL is the URL of the page that linked to this one.
	// Empty for the seed.
	ParentURL string `json:"parent_url,omitempty"`

	// CrawledAt is the timestamp when the fetch completed.
	CrawledAt time.Time `json:"crawled_at"`
}

// Classify computes and sets the ContentClass from the record's word,
// link, and image counts. Call after the extractor fields are populated.
func (p *PageRecord) Classify() {
	switch {
	case p.WordCount < StubWordCount && len(p.Links) == 0 && len(p.Images) == 0:
		p.ContentClass = ContentClassStub
	case len(p.Images) > MediaImageCount && len(p.Images) > p.WordCount/StubWordCount:
		p.ContentClass = ContentClassMedia
	case p.WordCount >= ArticleWordCount:
		p.ContentClass = ContentClassArticle
	case len(p.Links)*IndexLinkRatio > p.WordCount && len(p.Links) > 0:
		p.ContentClass = ContentClassIndex
	case p.WordCount < StubWordCount:
		p.ContentClass = ContentClassStub
	default:
		p.ContentClass = ContentClassArticle
	}
}

// IsHTML returns true if the record's content type indicates HTML.
func (p *PageRecord) IsHTML() bool {
	return strings.HasPrefix(p.ContentType, "text/html") ||
		strings.HasPrefix(p.ContentType, "application/xhtml+xml")
}

// SkipRecord represents a URL the policy permanently skipped.
// A skipped URL was never (or no longer) fetched; the reason strings form
// a fixed vocabulary so the skip histogram is stable across sessions.
type SkipRecord struct {
	// URL is the normalized URL that was skipped.
	URL string `json:"url"`

	// Reason is the human-readable skip cause.
	Reason string `json:"reason"`

	// StatusCode is the HTTP status that triggered the skip.
	// Zero when the skip was not status-driven (robots, keyword match).
	StatusCode int `json:"status_code,omitempty"`

	// ParentURL is the page that linked to the skipped URL.
	ParentURL string `json:"parent_url,omitempty"`
}

// FailureRecord represents a URL whose fetch exhausted the retry budget.
type FailureRecord struct {
	// URL is the normalized URL that failed.
	URL string `json:"url"`

	// Error is the message of the last attempt's error.
	Error string `json:"error"`

	// ParentURL is the page that linked to the failed URL.
	ParentURL string `json:"parent_url,omitempty"`
}
