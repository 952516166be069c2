package config

import (
	"path/filepath"
	"time"

	"github.com/adrg/xdg"
)

// Default configuration values.
// These are chosen as polite defaults for crawling sites you operate or
// are authorized to audit; aggressive values belong in explicit flags.
const (
	// DefaultTimeout is the per-fetch deadline. 30 seconds tolerates
	// slow origins without letting a dead host stall the whole crawl.
	DefaultTimeout = 30 * time.Second

	// DefaultMaxDepth bounds the link distance from the seed. Most
	// sites expose the bulk of their pages within five hops.
	DefaultMaxDepth = 5

	// DefaultMaxPages caps the number of recorded pages per session.
	// This prevents runaway crawling on large or infinitely-generating
	// sites. Override via the --max-pages CLI flag.
	DefaultMaxPages = 100

	// DefaultDelay is the minimum interval between requests.
	// 1 second is conservative and respectful of server resources.
	DefaultDelay = 1 * time.Second

	// DefaultMaxRetries is the retry budget per URL.
	DefaultMaxRetries = 3

	// DefaultRetryBaseDelay is the backoff unit; the wait before retry
	// n is n times this value.
	DefaultRetryBaseDelay = 500 * time.Millisecond

	// DefaultUserAgent identifies webcrawl in HTTP requests and is the
	// agent identity for robots.txt evaluation. A descriptive
	// User-Agent lets operators identify crawler traffic in their logs.
	DefaultUserAgent = "webcrawl/1.0 (+https://github.com/nao1215/webcrawl)"

	// DefaultMaxBodySize limits the response body size to read.
	// 5MB is sufficient for any real HTML page while preventing memory
	// exhaustion from unexpectedly large responses.
	DefaultMaxBodySize = 5 * 1024 * 1024 // 5MB

	// DefaultConcurrency is the number of fetch workers. 1 keeps the
	// crawl strictly sequential and deterministic.
	DefaultConcurrency = 1

	// DefaultBatchSize is the number of seeds crawled concurrently
	// when multiple seeds are given.
	DefaultBatchSize = 1

	// AppName is the application name used for XDG directory paths.
	AppName = "webcrawl"
)

// Config holds all configuration options for a crawl run.
// It is populated from CLI flags plus the optional profile file and passed
// through the application by dependency injection; it is read-only for the
// lifetime of a session.
//
// Design decision: We use a single flat struct instead of nested structs
// (e.g., CrawlConfig, ReportConfig) for simplicity. The number of options
// is manageable, and nesting would add complexity without benefit.
type Config struct {
	// Seeds is the list of URLs to crawl, one session each.
	Seeds []string

	// MaxPages caps recorded pages per session.
	MaxPages int

	// MaxDepth drops discovered links deeper than this at admission.
	MaxDepth int

	// Delay is the minimum interval between requests within a session.
	Delay time.Duration

	// Timeout is the per-fetch deadline.
	Timeout time.Duration

	// MaxRetries is the retry budget per URL.
	MaxRetries int

	// RetryBaseDelay is the retry backoff unit.
	RetryBaseDelay time.Duration

	// RespectRobots enables the robots.txt check before each fetch.
	RespectRobots bool

	// SkipUnauthorized permanently skips URLs answering with
	// authorization-class or terminal-class statuses instead of
	// burning retries on them.
	SkipUnauthorized bool

	// IgnoreRestrictions overrides RespectRobots and SkipUnauthorized:
	// every URL is either crawled or, after retries, failed.
	IgnoreRestrictions bool

	// UserAgent is the request identity, also used for robots rules.
	UserAgent string

	// MaxBodySize is the response body read limit in bytes.
	MaxBodySize int64

	// Concurrency is the number of fetch workers per session.
	Concurrency int

	// BatchSize is the number of seeds crawled concurrently.
	BatchSize int

	// JSONReport writes the full JSON report instead of the
	// human-readable summary. Mutually exclusive with MarkdownReport.
	JSONReport bool

	// MarkdownReport writes the Markdown summary instead of the
	// human-readable one. Mutually exclusive with JSONReport.
	MarkdownReport bool

	// OutputDir is the directory report files are written to.
	// Empty means write to stdout.
	OutputDir string

	// DBDir is the directory for the SQLite history database.
	// Empty disables persistence.
	DBDir string

	// SaveToDB indicates whether sessions are saved to the database.
	SaveToDB bool

	// ConfigFilePath is an explicit profile file path. Empty means
	// search for .webcrawl in the current and home directories.
	ConfigFilePath string

	// Profiles holds per-site overrides loaded from the profile file.
	Profiles *File

	// Verbose enables debug-level logging.
	Verbose bool
}

// NewConfig creates a Config with default values.
//
// Design decision: We use a constructor instead of relying on zero values
// because many defaults are non-zero (timeouts, budgets). The constructor
// also documents what the defaults are.
func NewConfig() *Config {
	return &Config{
		MaxPages:       DefaultMaxPages,
		MaxDepth:       DefaultMaxDepth,
		Delay:          DefaultDelay,
		Timeout:        DefaultTimeout,
		MaxRetries:     DefaultMaxRetries,
		RetryBaseDelay: DefaultRetryBaseDelay,
		RespectRobots:  true,
		UserAgent:      DefaultUserAgent,
		MaxBodySize:    DefaultMaxBodySize,
		Concurrency:    DefaultConcurrency,
		BatchSize:      DefaultBatchSize,
	}
}

// XDGDataDir returns the XDG data directory for webcrawl.
// On Linux: ~/.local/share/webcrawl
func XDGDataDir() string {
	return filepath.Join(xdg.DataHome, AppName)
}

// XDGConfigDir returns the XDG config directory for webcrawl.
// On Linux: ~/.config/webcrawl
func XDGConfigDir() string {
	return filepath.Join(xdg.ConfigHome, AppName)
}

// Validate checks that the configuration is usable.
// It returns the first problem found; fixing one error often makes the
// others irrelevant.
func (c *Config) Validate() error {
	if len(c.Seeds) == 0 {
		return ErrNoSeed
	}
	if c.Timeout <= 0 {
		return ErrInvalidTimeout
	}
	if c.MaxPages <= 0 {
		return ErrInvalidMaxPages
	}
	if c.MaxDepth < 0 {
		return ErrInvalidMaxDepth
	}
	if c.Delay < 0 {
		return ErrInvalidDelay
	}
	if c.MaxRetries < 0 {
		return ErrInvalidMaxRetries
	}
	if c.Concurrency <= 0 {
		return ErrInvalidConcurrency
	}
	if c.BatchSize <= 0 {
		return ErrInvalidBatchSize
	}
	if c.JSONReport && c.MarkdownReport {
		return ErrConflictingReportFormats
	}
	return nil
}
