package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"sync"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/nao1215/webcrawl/internal/config"
	"github.com/nao1215/webcrawl/internal/crawler"
	"github.com/nao1215/webcrawl/internal/database"
	wclog "github.com/nao1215/webcrawl/internal/log"
	"github.com/nao1215/webcrawl/internal/model"
	"github.com/nao1215/webcrawl/internal/report"
)

// NewCrawlCmd creates the crawl command.
func NewCrawlCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "crawl <url>...",
		Short: "Crawl a website and emit structured page records",
		Long: `Crawl starts from each seed URL and follows same-domain links
breadth-first, recording a structured record per page plus aggregate
statistics. Every URL reaches exactly one outcome: crawled, skipped
(robots.txt, authorization, permanent errors), or failed after retries.

Examples:
  # Crawl a site with defaults (100 pages, depth 5, 1s delay)
  webcrawl crawl https://example.com

  # Crawl deeper and faster, skipping unauthorized pages
  webcrawl crawl --depth 10 --delay 200ms --skip-unauthorized https://example.com

  # Ignore robots.txt and skip classification (authorized audits only)
  webcrawl crawl --ignore-restrictions https://staging.example.com

  # Crawl several sites concurrently and write JSON reports
  webcrawl crawl --batch 3 --json -o ./reports site1.com site2.com site3.com

Profile file (.webcrawl) example:
  defaults:
    delay: 2s
  sites:
    example.com:
      maxDepth: 10
      skipUnauthorized: true`,
		Args: cobra.ArbitraryArgs,
		RunE: runCrawlCmd,
	}

	// Crawl behavior flags
	cmd.Flags().IntP("max-pages", "p", config.DefaultMaxPages,
		"Maximum number of pages to crawl per site")
	cmd.Flags().IntP("depth", "d", config.DefaultMaxDepth,
		"Maximum link distance from the seed")
	cmd.Flags().Duration("delay", config.DefaultDelay,
		"Minimum interval between requests")
	cmd.Flags().DurationP("timeout", "t", config.DefaultTimeout,
		"Per-request timeout")
	cmd.Flags().Int("max-retries", config.DefaultMaxRetries,
		"Retry budget per URL")
	cmd.Flags().Duration("retry-delay", config.DefaultRetryBaseDelay,
		"Backoff unit between retries (retry n waits n times this)")
	cmd.Flags().StringP("user-agent", "A", config.DefaultUserAgent,
		"User-Agent header and robots.txt identity")
	cmd.Flags().IntP("concurrency", "C", config.DefaultConcurrency,
		"Number of fetch workers per site")

	// Operating mode flags
	cmd.Flags().Bool("respect-robots", true,
		"Check robots.txt before each fetch")
	cmd.Flags().Bool("skip-unauthorized", false,
		"Permanently skip URLs with authorization or permanent-error statuses instead of retrying")
	cmd.Flags().Bool("ignore-restrictions", false,
		"Override robots.txt and skip classification; every URL is crawled or failed")

	// Batch flags
	cmd.Flags().IntP("batch", "b", config.DefaultBatchSize,
		"Number of sites crawled concurrently")

	// Configuration file
	cmd.Flags().StringP("config", "c", "",
		"Profile file path (default: .webcrawl in current or home directory)")

	// Report flags
	cmd.Flags().BoolP("json", "j", false,
		"Write full JSON report (mutually exclusive with --markdown)")
	cmd.Flags().BoolP("markdown", "m", false,
		"Write Markdown summary (mutually exclusive with --json)")
	cmd.Flags().StringP("output-dir", "o", "",
		"Write report files to this directory instead of stdout")

	// Persistence
	cmd.Flags().Bool("no-db", false,
		"Do not save the session to the crawl history database")

	return cmd
}

// runCrawlCmd executes the crawl command.
func runCrawlCmd(cmd *cobra.Command, args []string) error {
	cfg, err := buildConfig(cmd, args)
	if err != nil {
		return err
	}

	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("configuration error: %w", err)
	}

	logger := wclog.NewLogger(os.Stderr, cfg.Verbose)
	slog.SetDefault(logger)

	// Context with signal handling for graceful shutdown: a SIGINT stops
	// issuing new fetches; in-flight ones complete and are recorded.
	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigCh
		logger.Info("received shutdown signal, cancelling...")
		cancel()
	}()

	return runCrawl(ctx, cfg, logger)
}

// getVerboseFlag retrieves the verbose flag from the command or its parent.
func getVerboseFlag(cmd *cobra.Command) bool {
	verbose, err := cmd.Flags().GetBool("verbose")
	if err != nil {
		verbose, err = cmd.Root().PersistentFlags().GetBool("verbose")
		if err != nil {
			return false
		}
	}
	return verbose
}

// buildConfig creates a Config from cobra command flags.
func buildConfig(cmd *cobra.Command, args []string) (*config.Config, error) {
	cfg := config.NewConfig()

	var err error
	if cfg.MaxPages, err = cmd.Flags().GetInt("max-pages"); err != nil {
		return nil, err
	}
	if cfg.MaxDepth, err = cmd.Flags().GetInt("depth"); err != nil {
		return nil, err
	}
	if cfg.Delay, err = cmd.Flags().GetDuration("delay"); err != nil {
		return nil, err
	}
	if cfg.Timeout, err = cmd.Flags().GetDuration("timeout"); err != nil {
		return nil, err
	}
	if cfg.MaxRetries, err = cmd.Flags().GetInt("max-retries"); err != nil {
		return nil, err
	}
	if cfg.RetryBaseDelay, err = cmd.Flags().GetDuration("retry-delay"); err != nil {
		return nil, err
	}
	if cfg.UserAgent, err = cmd.Flags().GetString("user-agent"); err != nil {
		return nil, err
	}
	if cfg.Concurrency, err = cmd.Flags().GetInt("concurrency"); err != nil {
		return nil, err
	}
	if cfg.RespectRobots, err = cmd.Flags().GetBool("respect-robots"); err != nil {
		return nil, err
	}
	if cfg.SkipUnauthorized, err = cmd.Flags().GetBool("skip-unauthorized"); err != nil {
		return nil, err
	}
	if cfg.IgnoreRestrictions, err = cmd.Flags().GetBool("ignore-restrictions"); err != nil {
		return nil, err
	}
	if cfg.BatchSize, err = cmd.Flags().GetInt("batch"); err != nil {
		return nil, err
	}
	if cfg.JSONReport, err = cmd.Flags().GetBool("json"); err != nil {
		return nil, err
	}
	if cfg.MarkdownReport, err = cmd.Flags().GetBool("markdown"); err != nil {
		return nil, err
	}
	if cfg.OutputDir, err = cmd.Flags().GetString("output-dir"); err != nil {
		return nil, err
	}
	if cfg.ConfigFilePath, err = cmd.Flags().GetString("config"); err != nil {
		return nil, err
	}

	noDB, err := cmd.Flags().GetBool("no-db")
	if err != nil {
		return nil, err
	}
	cfg.SaveToDB = !noDB
	if cfg.SaveToDB {
		cfg.DBDir = config.XDGDataDir()
	}

	cfg.Verbose = getVerboseFlag(cmd)
	cfg.Seeds = args

	// Load site profiles. An explicit path that does not exist is an
	// error; a missing default file silently yields an empty profile set.
	explicitConfigPath := cfg.ConfigFilePath != ""
	configPath := config.FindConfigFile(cfg.ConfigFilePath)
	if configPath != "" {
		cfg.Profiles, err = config.LoadConfigFile(configPath)
		if err != nil {
			return nil, fmt.Errorf("failed to load config file %s: %w", configPath, err)
		}
	} else if explicitConfigPath {
		return nil, fmt.Errorf("configuration file not found: %s", cfg.ConfigFilePath)
	} else {
		cfg.Profiles = &config.File{Sites: make(map[string]config.SiteProfile)}
	}

	return cfg, nil
}

// runCrawl crawls every seed, sequentially or in concurrent batches.
func runCrawl(ctx context.Context, cfg *config.Config, logger *slog.Logger) error {
	logger.Info("starting crawl",
		"seeds", cfg.Seeds,
		"maxPages", cfg.MaxPages,
		"maxDepth", cfg.MaxDepth,
		"batchSize", cfg.BatchSize,
		"saveToDB", cfg.SaveToDB,
	)

	var db *database.CrawlDB
	if cfg.SaveToDB {
		var err error
		db, err = database.Open(cfg.DBDir, database.DefaultOptions())
		if err != nil {
			return fmt.Errorf("failed to open database: %w", err)
		}
		defer db.Close()
		logger.Info("database opened", "dir", cfg.DBDir)
	}

	if len(cfg.Seeds) > 1 && cfg.BatchSize > 1 {
		return runBatchCrawl(ctx, cfg, db, logger)
	}
	return runSequentialCrawl(ctx, cfg, db, logger)
}

// runSequentialCrawl crawls seeds one at a time.
func runSequentialCrawl(ctx context.Context, cfg *config.Config, db *database.CrawlDB, logger *slog.Logger) error {
	for _, seed := range cfg.Seeds {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		fmt.Printf("Crawling %s...\n", seed)
		start := time.Now()

		crawlReport, err := crawlSeed(ctx, cfg, seed, logger)
		if err != nil {
			logger.Error("crawl failed", "seed", seed, "error", err)
			fmt.Fprintf(os.Stderr, "Crawl error for %s: %v\n", seed, err)
			continue
		}

		fmt.Printf("Crawl completed in %s\n\n", time.Since(start).Round(time.Millisecond))

		if err := outputReport(cfg, crawlReport); err != nil {
			logger.Error("report failed", "seed", seed, "error", err)
		}
		if err := saveReport(ctx, db, crawlReport, logger); err != nil {
			logger.Error("failed to save report", "seed", seed, "error", err)
		}
	}
	return nil
}

// runBatchCrawl crawls multiple seeds concurrently.
// Output and database writes are serialized behind a mutex so concurrent
// sessions don't interleave their report lines.
func runBatchCrawl(ctx context.Context, cfg *config.Config, db *database.CrawlDB, logger *slog.Logger) error {
	fmt.Printf("Starting batch crawl of %d sites (concurrency: %d)...\n\n",
		len(cfg.Seeds), cfg.BatchSize)
	start := time.Now()

	var mu sync.Mutex
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(cfg.BatchSize)

	for i, seed := range cfg.Seeds {
		g.Go(func() error {
			crawlReport, err := crawlSeed(gctx, cfg, seed, logger)

			mu.Lock()
			defer mu.Unlock()

			if err != nil {
				logger.Error("crawl failed", "seed", seed, "error", err)
				fmt.Fprintf(os.Stderr, "Crawl error for %s: %v\n", seed, err)
				return nil // One bad seed doesn't abort the batch
			}

			fmt.Printf("[%d/%d] Crawl completed: %s\n", i+1, len(cfg.Seeds), crawlReport.Domain)
			if err := outputReport(cfg, crawlReport); err != nil {
				logger.Error("report failed", "seed", seed, "error", err)
			}
			if err := saveReport(gctx, db, crawlReport, logger); err != nil {
				logger.Error("failed to save report", "seed", seed, "error", err)
			}
			return nil
		})
	}

	err := g.Wait()
	fmt.Printf("\nBatch crawl completed in %s\n", time.Since(start).Round(time.Millisecond))
	return err
}

// crawlSeed runs one session for one seed with its merged site profile.
func crawlSeed(ctx context.Context, cfg *config.Config, seed string, logger *slog.Logger) (*model.CrawlReport, error) {
	// Per-seed copy so profile overrides don't leak across sessions.
	seedCfg := *cfg
	if domain, err := crawler.RegistrableDomain(seed); err == nil && cfg.Profiles != nil {
		cfg.Profiles.ProfileFor(domain).Apply(&seedCfg)
	}

	client := &http.Client{Timeout: seedCfg.Timeout}
	spider := crawler.NewSpider(client,
		crawler.WithMaxPages(seedCfg.MaxPages),
		crawler.WithMaxDepth(seedCfg.MaxDepth),
		crawler.WithDelay(seedCfg.Delay),
		crawler.WithMaxRetries(seedCfg.MaxRetries),
		crawler.WithRetryBaseDelay(seedCfg.RetryBaseDelay),
		crawler.WithUserAgent(seedCfg.UserAgent),
		crawler.WithMaxBodySize(seedCfg.MaxBodySize),
		crawler.WithRespectRobots(seedCfg.RespectRobots),
		crawler.WithSkipUnauthorized(seedCfg.SkipUnauthorized),
		crawler.WithIgnoreRestrictions(seedCfg.IgnoreRestrictions),
		crawler.WithConcurrency(seedCfg.Concurrency),
		crawler.WithLogger(logger),
	)

	crawlReport, err := spider.Crawl(ctx, seed)
	if crawlReport != nil && err != nil && ctx.Err() != nil {
		// Cancellation still yields the partial report.
		return crawlReport, nil
	}
	return crawlReport, err
}

// outputReport writes the report in the requested format to stdout or to
// a file in the output directory.
func outputReport(cfg *config.Config, crawlReport *model.CrawlReport) error {
	if crawlReport.Summary == nil {
		crawlReport.Summary = model.NewSummary(crawlReport)
	}

	output := os.Stdout
	if cfg.OutputDir != "" {
		if err := os.MkdirAll(cfg.OutputDir, 0750); err != nil {
			return fmt.Errorf("failed to create output directory: %w", err)
		}

		name := report.ReportFilename(crawlReport.Domain, crawlReport.StartedAt)
		if cfg.MarkdownReport {
			name = report.SummaryFilename(crawlReport.Domain, crawlReport.StartedAt)
		}

		f, err := os.OpenFile(filepath.Join(cfg.OutputDir, name),
			os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0600)
		if err != nil {
			return fmt.Errorf("failed to create output file: %w", err)
		}
		defer f.Close()
		output = f
	}

	var w report.Writer
	switch {
	case cfg.JSONReport:
		w = report.NewJSONWriter(output, report.WithPrettyPrint())
	case cfg.MarkdownReport:
		w = report.NewMarkdownWriter(output)
	default:
		w = report.NewSimpleWriter(output, report.WithVerbose(cfg.Verbose))
	}

	_, err := w.Write(crawlReport)
	return err
}

// saveReport saves the report to the history database if enabled.
// If db is nil, this function is a no-op.
func saveReport(ctx context.Context, db *database.CrawlDB, crawlReport *model.CrawlReport, logger *slog.Logger) error {
	if db == nil {
		return nil
	}

	id, err := db.SaveReport(ctx, crawlReport)
	if err != nil {
		return fmt.Errorf("failed to save crawl report: %w", err)
	}

	logger.Info("crawl report saved", "domain", crawlReport.Domain, "sessionID", id)
	return nil
}
