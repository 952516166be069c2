package crawler

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	"golang.org/x/net/html/charset"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"github.com/nao1215/webcrawl/internal/model"
)

// ErrInvalidSeed is returned when the seed URL cannot be parsed or does not
// point at a crawlable http(s) resource. This is the only fatal error a
// session can produce; everything after the seed is contained per-URL.
var ErrInvalidSeed = errors.New("invalid seed URL")

// Spider drives one crawl session: it owns the frontier, consults the
// fetch/retry policy and the robots policy for every URL, fetches and
// extracts accepted pages, and accumulates the session's report.
//
// Design decision: We call it "Spider" rather than "Crawler" because:
//  1. "Spider" is the traditional term for web crawlers
//  2. Distinguishes the component from the package name
//  3. Clearer in code: crawler.NewSpider() vs crawler.NewCrawler()
type Spider struct {
	// client is the HTTP client used for all fetches. Its Timeout is
	// the per-fetch deadline.
	client *http.Client

	// maxDepth limits how deep to crawl from the seed URL.
	maxDepth int

	// maxPages limits the total number of pages to record.
	maxPages int

	// delay is the minimum interval between requests.
	delay time.Duration

	// maxRetries is the retry budget per URL.
	maxRetries int

	// retryBaseDelay is the backoff unit for retries.
	retryBaseDelay time.Duration

	// userAgent is sent with every request and used for robots
	// directive evaluation.
	userAgent string

	// maxBodySize limits the size of response bodies to read.
	maxBodySize int64

	// respectRobots enables the robots.txt check before each fetch.
	respectRobots bool

	// skipUnauthorized enables permanent skips for classified statuses.
	skipUnauthorized bool

	// ignoreRestrictions overrides robots and skip classification.
	ignoreRestrictions bool

	// concurrency is the number of workers pulling from the frontier.
	// 1 means the deterministic single-fetch loop.
	concurrency int

	// logger receives per-URL debug events and per-session summaries.
	logger *slog.Logger
}

// Option configures a Spider.
type Option func(*Spider)

// WithMaxDepth sets the maximum crawl depth.
// 0 = only the seed page, 1 = seed plus linked pages, etc.
func WithMaxDepth(depth int) Option {
	return func(s *Spider) { s.maxDepth = depth }
}

// WithMaxPages sets the maximum number of pages to record.
func WithMaxPages(maxPages int) Option {
	return func(s *Spider) { s.maxPages = maxPages }
}

// WithDelay sets the minimum interval between requests.
func WithDelay(d time.Duration) Option {
	return func(s *Spider) { s.delay = d }
}

// WithMaxRetries sets the retry budget per URL.
func WithMaxRetries(n int) Option {
	return func(s *Spider) { s.maxRetries = n }
}

// WithRetryBaseDelay sets the backoff unit; the delay before retry n is
// n times this value.
func WithRetryBaseDelay(d time.Duration) Option {
	return func(s *Spider) { s.retryBaseDelay = d }
}

// WithUserAgent sets the User-Agent header and robots identity.
func WithUserAgent(ua string) Option {
	return func(s *Spider) { s.userAgent = ua }
}

// WithMaxBodySize sets the maximum response body size.
func WithMaxBodySize(size int64) Option {
	return func(s *Spider) { s.maxBodySize = size }
}

// WithRespectRobots enables the robots.txt check before each fetch.
func WithRespectRobots(on bool) Option {
	return func(s *Spider) { s.respectRobots = on }
}

// WithSkipUnauthorized enables permanent skips for authorization-class
// and terminal-class HTTP statuses.
func WithSkipUnauthorized(on bool) Option {
	return func(s *Spider) { s.skipUnauthorized = on }
}

// WithIgnoreRestrictions disables robots and skip classification; every
// URL is either crawled or, after retries, failed.
func WithIgnoreRestrictions(on bool) Option {
	return func(s *Spider) { s.ignoreRestrictions = on }
}

// WithConcurrency sets the number of fetch workers. Values below 1 are
// treated as 1. Above 1, pages within a depth wave complete in fetch order
// rather than discovery order.
func WithConcurrency(n int) Option {
	return func(s *Spider) {
		if n < 1 {
			n = 1
		}
		s.concurrency = n
	}
}

// WithLogger sets the structured logger for crawl events.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Spider) { s.logger = logger }
}

// NewSpider creates a Spider with the given HTTP client.
//
// Design decision: We require an external client because:
//  1. Timeout and transport configuration belong to the caller
//  2. Tests inject clients pointed at httptest servers
func NewSpider(client *http.Client, opts ...Option) *Spider {
	s := &Spider{
		client:         client,
		maxDepth:       5,
		maxPages:       100,
		delay:          1 * time.Second,
		maxRetries:     3,
		retryBaseDelay: 500 * time.Millisecond,
		userAgent:      "webcrawl/1.0 (+https://github.com/nao1215/webcrawl)",
		maxBodySize:    5 * 1024 * 1024, // 5MB
		concurrency:    1,
		logger:         slog.Default(),
	}

	for _, opt := range opts {
		opt(s)
	}

	return s
}

// session holds the mutable state of one crawl: the frontier, the policies,
// and the report under construction. A Spider can run multiple sequential
// sessions; each gets a fresh session value.
type session struct {
	frontier *Frontier
	policy   *Policy
	robots   *RobotsPolicy
	limiter  *rate.Limiter
	report   *model.CrawlReport

	// mu guards report appends when workers run concurrently.
	mu sync.Mutex
}

// Crawl crawls the site reachable from seedURL and returns the finished
// report. Per-URL errors never abort the crawl; the only error returns are
// an unusable seed (ErrInvalidSeed) before any work happens, or the
// context's error after cooperative cancellation.
func (s *Spider) Crawl(ctx context.Context, seedURL string) (*model.CrawlReport, error) {
	seed := NormalizeURL(withScheme(seedURL))
	if !IsCrawlable(seed) {
		return nil, fmt.Errorf("%w: %s", ErrInvalidSeed, seedURL)
	}

	domain, err := RegistrableDomain(seed)
	if err != nil || domain == "" {
		return nil, fmt.Errorf("%w: %s", ErrInvalidSeed, seedURL)
	}

	sess := &session{
		frontier: NewFrontier(s.maxDepth, s.maxPages),
		policy:   NewPolicy(s.maxRetries, s.retryBaseDelay, s.skipUnauthorized, s.ignoreRestrictions),
		report:   model.NewCrawlReport(seed, domain),
	}
	sess.report.Config = s.configSnapshot()

	if s.delay > 0 {
		sess.limiter = rate.NewLimiter(rate.Every(s.delay), 1)
	}

	// Robots directives are loaded once per session, before any fetch.
	// ignoreRestrictions overrides the check entirely.
	if s.respectRobots && !s.ignoreRestrictions {
		sess.robots = LoadRobots(ctx, s.client, seed, s.userAgent)
	}

	sess.frontier.Enqueue(seed, 0, "")

	start := time.Now()
	if s.concurrency > 1 {
		err = s.crawlWaves(ctx, sess)
	} else {
		err = s.crawlLoop(ctx, sess)
	}

	sess.report.Elapsed = time.Since(start)
	sess.report.ComputeStats()
	sess.report.Summary = model.NewSummary(sess.report)

	s.logger.Info("crawl finished",
		"domain", domain,
		"pages", len(sess.report.Pages),
		"skips", len(sess.report.Skips),
		"failures", len(sess.report.Failures),
		"elapsed", sess.report.Elapsed.Round(time.Millisecond),
	)

	return sess.report, err
}

// crawlLoop is the single-worker loop: dequeue, process, repeat until the
// frontier is empty or the page budget is spent. Completion order equals
// dequeue order, which makes traversal strictly breadth-first.
func (s *Spider) crawlLoop(ctx context.Context, sess *session) error {
	for sess.frontier.BudgetLeft() {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		item, ok := sess.frontier.Dequeue()
		if !ok {
			return nil
		}

		if err := s.process(ctx, sess, item); err != nil {
			return err
		}
	}
	return nil
}

// crawlWaves is the bounded-concurrency loop. Each wave drains the queued
// items of the current depth and processes them on up to concurrency
// workers; links they discover form the next wave. Breadth-first order is
// preserved across waves, and DrainWave's mark-visited-on-dequeue rule
// remains the sole guard against duplicate in-flight fetches.
func (s *Spider) crawlWaves(ctx context.Context, sess *session) error {
	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		wave := sess.frontier.DrainWave()
		if len(wave) == 0 {
			return nil
		}

		g, gctx := errgroup.WithContext(ctx)
		g.SetLimit(s.concurrency)
		for _, item := range wave {
			g.Go(func() error {
				return s.process(gctx, sess, item)
			})
		}
		if err := g.Wait(); err != nil {
			return err
		}
	}
}

// process runs one work item to its terminal outcome: a PageRecord, a
// SkipRecord, a FailureRecord, or nothing when cancellation interrupts the
// retry path. The returned error is only ever the context's error.
func (s *Spider) process(ctx context.Context, sess *session, item WorkItem) error {
	// Robots check precedes any fetch attempt.
	if sess.robots != nil && !sess.robots.Allowed(item.URL) {
		s.logger.Debug("robots disallow", "url", item.URL)
		sess.frontier.MarkSkipped(item.URL)
		sess.recordSkip(model.SkipRecord{
			URL:       item.URL,
			Reason:    ReasonRobotsBlocked,
			ParentURL: item.ParentURL,
		})
		return nil
	}

	var lastOutcome Outcome
	for retries := 0; ; retries++ {
		if sess.limiter != nil {
			if err := sess.limiter.Wait(ctx); err != nil {
				return err
			}
		}

		page, result, outcome := s.fetch(ctx, item)
		if ctx.Err() != nil && outcome.Err != nil {
			// Cancelled mid-fetch: stop without a terminal record so
			// the session reports only real outcomes.
			return ctx.Err()
		}
		lastOutcome = outcome

		verdict := sess.policy.Classify(outcome, retries)
		s.logger.Debug("classified attempt",
			"url", item.URL,
			"status", outcome.StatusCode,
			"retries", retries,
			"decision", verdict.Decision.String(),
		)

		switch verdict.Decision {
		case DecisionAccept:
			s.recordPage(sess, item, page, result)
			return nil

		case DecisionRetry:
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(verdict.Delay):
			}

		case DecisionSkip:
			sess.recordSkip(model.SkipRecord{
				URL:        item.URL,
				Reason:     verdict.Reason,
				StatusCode: verdict.StatusCode,
				ParentURL:  item.ParentURL,
			})
			return nil

		case DecisionFail:
			sess.recordFailure(model.FailureRecord{
				URL:       item.URL,
				Error:     outcomeMessage(lastOutcome),
				ParentURL: item.ParentURL,
			})
			return nil
		}
	}
}

// fetch performs one HTTP attempt. On a readable response it returns the
// partially filled page record and, for HTML, the extraction result. The
// outcome is what the policy classifies.
func (s *Spider) fetch(ctx context.Context, item WorkItem) (*model.PageRecord, *ParseResult, Outcome) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, item.URL, nil)
	if err != nil {
		return nil, nil, Outcome{Err: err}
	}

	req.Header.Set("User-Agent", s.userAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")
	req.Header.Set("Accept-Language", "en-US,en;q=0.5")

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, nil, Outcome{Err: err}
	}
	defer resp.Body.Close()

	outcome := Outcome{StatusCode: resp.StatusCode}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		// Non-success bodies are not worth reading.
		return nil, nil, outcome
	}

	contentType := resp.Header.Get("Content-Type")
	page := &model.PageRecord{
		URL:         item.URL,
		StatusCode:  resp.StatusCode,
		ContentType: contentType,
		Depth:       item.Depth,
		ParentURL:   item.ParentURL,
		CrawledAt:   time.Now(),
	}

	if !page.IsHTML() {
		return page, nil, outcome
	}

	// Charset-aware decode so non-UTF-8 pages extract correctly.
	limited := io.LimitReader(resp.Body, s.maxBodySize)
	body, err := charset.NewReader(limited, contentType)
	if err != nil {
		body = limited
	}

	parser, err := NewParser(item.URL, s.mustDomain(item.URL))
	if err != nil {
		return page, nil, outcome
	}

	result, err := parser.Parse(body)
	if err != nil {
		return page, nil, outcome
	}

	return page, result, outcome
}

// recordPage fills the page record from the extraction result, appends it,
// and admits the page's internal links at depth+1.
func (s *Spider) recordPage(sess *session, item WorkItem, page *model.PageRecord, result *ParseResult) {
	if page == nil {
		return
	}

	var children []string
	if result != nil {
		page.Title = result.Title
		page.Description = result.Description
		page.Headings = result.Headings
		page.WordCount = result.WordCount
		page.Links = result.Links
		page.InternalLinks = result.InternalLinks
		page.ExternalLinks = result.ExternalLinks
		page.Images = result.Images
		page.MetaTags = result.MetaTags
		children = result.InternalLinks
	}
	page.Classify()

	sess.mu.Lock()
	sess.report.Pages = append(sess.report.Pages, page)
	sess.mu.Unlock()

	budgetLeft := sess.frontier.PageCompleted()
	if !budgetLeft {
		return
	}

	for _, link := range children {
		if IsCrawlable(link) {
			sess.frontier.Enqueue(link, item.Depth+1, item.URL)
		}
	}
}

// recordSkip appends a skip record.
func (sess *session) recordSkip(record model.SkipRecord) {
	sess.mu.Lock()
	defer sess.mu.Unlock()
	sess.report.Skips = append(sess.report.Skips, record)
}

// recordFailure appends a failure record.
func (sess *session) recordFailure(record model.FailureRecord) {
	sess.mu.Lock()
	defer sess.mu.Unlock()
	sess.report.Failures = append(sess.report.Failures, record)
}

// configSnapshot captures the spider's operating mode for the report.
func (s *Spider) configSnapshot() model.ConfigSnapshot {
	return model.ConfigSnapshot{
		MaxPages:           s.maxPages,
		MaxDepth:           s.maxDepth,
		Delay:              s.delay,
		Timeout:            s.client.Timeout,
		MaxRetries:         s.maxRetries,
		RespectRobots:      s.respectRobots,
		SkipUnauthorized:   s.skipUnauthorized,
		IgnoreRestrictions: s.ignoreRestrictions,
		UserAgent:          s.userAgent,
		Concurrency:        s.concurrency,
	}
}

// mustDomain returns the registrable domain of a URL that already passed
// admission; admission guarantees it parses.
func (s *Spider) mustDomain(rawURL string) string {
	domain, err := RegistrableDomain(rawURL)
	if err != nil {
		return ""
	}
	return domain
}

// outcomeMessage renders the last attempt's outcome for a failure record.
func outcomeMessage(outcome Outcome) string {
	if outcome.Err != nil {
		return outcome.Err.Error()
	}
	return fmt.Sprintf("HTTP status %d after retries exhausted", outcome.StatusCode)
}

// withScheme prepends https:// to scheme-less seed input such as
// "example.com" so users can paste bare hostnames.
func withScheme(rawURL string) string {
	if strings.Contains(rawURL, "://") {
		return rawURL
	}
	return "https://" + rawURL
}
