package model

import (
	"net/url"
	"strings"
	"time"
)

// CrawlReport is the aggregate result of one crawl session.
// It is the single immutable snapshot handed to the report writers and the
// database once the crawl loop has terminated.
//
// Design decision: We keep pages, skips, and failures as three disjoint
// ordered lists rather than one tagged list because:
//  1. A URL reaches exactly one terminal outcome per session
//  2. Consumers almost always want one of the three lists, not a merge
//  3. Append order within each list preserves crawl completion order
type CrawlReport struct {
	// Seed is the URL the crawl started from.
	Seed string `json:"seed"`

	// Domain is the registrable domain the crawl was constrained to.
	Domain string `json:"domain"`

	// StartedAt is the timestamp when the session began.
	StartedAt time.Time `json:"started_at"`

	// Elapsed is the wall-clock duration of the session.
	Elapsed time.Duration `json:"elapsed"`

	// Config is the configuration the session ran with.
	Config ConfigSnapshot `json:"config"`

	// Pages contains successfully crawled pages in completion order.
	Pages []*PageRecord `json:"pages"`

	// Skips contains permanently skipped URLs in classification order.
	Skips []SkipRecord `json:"skips"`

	// Failures contains URLs that exhausted their retry budget.
	Failures []FailureRecord `json:"failures"`

	// Stats contains statistics derived from the three lists.
	Stats Stats `json:"stats"`

	// Summary is the derived overview. Generated on demand by
	// NewSummary; nil until then.
	Summary *Summary `json:"summary,omitempty"`
}

// ConfigSnapshot records the operating mode a session ran with.
// It is embedded in the report so results stay interpretable after the
// fact (a large skip list means something different with skip_unauthorized
// enabled than without).
type ConfigSnapshot struct {
	MaxPages           int           `json:"max_pages"`
	MaxDepth           int           `json:"max_depth"`
	Delay              time.Duration `json:"delay"`
	Timeout            time.Duration `json:"timeout"`
	MaxRetries         int           `json:"max_retries"`
	RespectRobots      bool          `json:"respect_robots"`
	SkipUnauthorized   bool          `json:"skip_unauthorized"`
	IgnoreRestrictions bool          `json:"ignore_restrictions"`
	UserAgent          string        `json:"user_agent"`
	Concurrency        int           `json:"concurrency"`
}

// Stats contains aggregate statistics derived from a finished session.
type Stats struct {
	// TotalLinks is the total number of outbound links across all pages.
	TotalLinks int `json:"total_links"`

	// UniqueExternalDomains is the number of distinct external hosts
	// referenced by crawled pages.
	UniqueExternalDomains int `json:"unique_external_domains"`

	// MeanLinksPerPage is TotalLinks divided by the page count.
	MeanLinksPerPage float64 `json:"mean_links_per_page"`

	// ContentClasses is a histogram of page content classifications.
	ContentClasses map[ContentClass]int `json:"content_classes"`

	// SkipReasons is a histogram of skip reasons.
	SkipReasons map[string]int `json:"skip_reasons"`
}

// NewCrawlReport creates an empty report for the given seed and domain.
func NewCrawlReport(seed, domain string) *CrawlReport {
	return &CrawlReport{
		Seed:      seed,
		Domain:    domain,
		StartedAt: time.Now(),
		Pages:     make([]*PageRecord, 0),
		Skips:     make([]SkipRecord, 0),
		Failures:  make([]FailureRecord, 0),
	}
}

// ComputeStats derives the Stats block from the report's lists.
// Call once after the crawl loop terminates, before writing the report.
func (r *CrawlReport) ComputeStats() {
	stats := Stats{
		ContentClasses: make(map[ContentClass]int),
		SkipReasons:    make(map[string]int),
	}

	externalHosts := make(map[string]struct{})
	for _, page := range r.Pages {
		stats.TotalLinks += len(page.Links)
		stats.ContentClasses[page.ContentClass]++

		for _, link := range page.ExternalLinks {
			if host := hostOf(link); host != "" {
				externalHosts[host] = struct{}{}
			}
		}
	}

	for _, skip := range r.Skips {
		stats.SkipReasons[skip.Reason]++
	}

	stats.UniqueExternalDomains = len(externalHosts)
	if len(r.Pages) > 0 {
		stats.MeanLinksPerPage = float64(stats.TotalLinks) / float64(len(r.Pages))
	}

	r.Stats = stats
}

// hostOf extracts the lowercased hostname from a raw URL.
// Returns empty string for unparseable or host-less URLs.
func hostOf(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return ""
	}
	return strings.ToLower(u.Hostname())
}
