package model

import "sort"

// TopPageCount is the number of pages included in the summary's
// top-by-word-count list.
const TopPageCount = 10

// Summary is the derived overview of a crawl session.
// It contains only what a reader needs to judge a crawl at a glance and is
// the payload of the Markdown summary report.
type Summary struct {
	// Domain is the crawled site's registrable domain.
	Domain string `json:"domain"`

	// PagesCrawled is the number of successfully crawled pages.
	PagesCrawled int `json:"pages_crawled"`

	// PagesSkipped is the number of permanently skipped URLs.
	PagesSkipped int `json:"pages_skipped"`

	// PagesFailed is the number of URLs that exhausted retries.
	PagesFailed int `json:"pages_failed"`

	// TopPages lists the longest pages by word count, descending.
	// At most TopPageCount entries; ties keep crawl completion order.
	TopPages []TopPage `json:"top_pages"`

	// Stats is the statistics block copied from the full report.
	Stats Stats `json:"stats"`
}

// TopPage is one entry in the summary's top-pages list.
type TopPage struct {
	// URL is the page URL.
	URL string `json:"url"`

	// Title is the page title, may be empty.
	Title string `json:"title,omitempty"`

	// WordCount is the page's word count.
	WordCount int `json:"word_count"`
}

// NewSummary derives a Summary from a finished report.
// ComputeStats should have been called on the report first.
func NewSummary(r *CrawlReport) *Summary {
	s := &Summary{
		Domain:       r.Domain,
		PagesCrawled: len(r.Pages),
		PagesSkipped: len(r.Skips),
		PagesFailed:  len(r.Failures),
		Stats:        r.Stats,
		TopPages:     make([]TopPage, 0, TopPageCount),
	}

	ranked := make([]*PageRecord, len(r.Pages))
	copy(ranked, r.Pages)

	// SliceStable keeps completion order for equal word counts.
	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].WordCount > ranked[j].WordCount
	})

	for i, page := range ranked {
		if i >= TopPageCount {
			break
		}
		s.TopPages = append(s.TopPages, TopPage{
			URL:       page.URL,
			Title:     page.Title,
			WordCount: page.WordCount,
		})
	}

	return s
}
