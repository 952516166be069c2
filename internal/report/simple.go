package report

import (
	"fmt"
	"io"
	"strings"

	"github.com/nao1215/webcrawl/internal/model"
)

// SimpleWriter outputs human-readable text reports for terminal display.
//
// Design decision: We use plain text with ASCII formatting rather than
// ANSI colors because:
//  1. It works in all terminals without compatibility issues
//  2. It's easier to pipe to files or other tools
type SimpleWriter struct {
	baseWriter

	// verbose adds the per-URL skip and failure listings.
	verbose bool
}

// SimpleWriterOption configures a SimpleWriter.
type SimpleWriterOption func(*SimpleWriter)

// WithVerbose enables the per-URL skip and failure listings.
func WithVerbose(verbose bool) SimpleWriterOption {
	return func(w *SimpleWriter) {
		w.verbose = verbose
	}
}

// NewSimpleWriter creates a SimpleWriter that outputs to the given writer.
func NewSimpleWriter(output io.Writer, opts ...SimpleWriterOption) *SimpleWriter {
	w := &SimpleWriter{baseWriter: newBaseWriter(output)}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Write outputs the report in human-readable format.
func (w *SimpleWriter) Write(report *model.CrawlReport) (int, error) {
	summary := report.Summary
	if summary == nil {
		summary = model.NewSummary(report)
	}

	var sb strings.Builder

	fmt.Fprintf(&sb, "Crawl of %s\n", report.Domain)
	fmt.Fprintf(&sb, "Seed:    %s\n", report.Seed)
	fmt.Fprintf(&sb, "Started: %s\n", report.StartedAt.Format("2006-01-02 15:04:05 MST"))
	fmt.Fprintf(&sb, "Elapsed: %s\n", report.Elapsed)
	sb.WriteString(strings.Repeat("-", 60))
	sb.WriteString("\n")

	w.writeSummary(&sb, summary)

	if w.verbose {
		w.writeSkips(&sb, report)
		w.writeFailures(&sb, report)
	}

	return io.WriteString(w.output, sb.String())
}

// WriteSummary outputs only the summary portion.
func (w *SimpleWriter) WriteSummary(summary *model.Summary) (int, error) {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Crawl summary for %s\n", summary.Domain)
	sb.WriteString(strings.Repeat("-", 60))
	sb.WriteString("\n")
	w.writeSummary(&sb, summary)
	return io.WriteString(w.output, sb.String())
}

// writeSummary writes the totals, statistics, and top pages.
func (w *SimpleWriter) writeSummary(sb *strings.Builder, summary *model.Summary) {
	fmt.Fprintf(sb, "Pages crawled: %d  skipped: %d  failed: %d\n",
		summary.PagesCrawled, summary.PagesSkipped, summary.PagesFailed)
	fmt.Fprintf(sb, "Outbound links: %d (%.1f per page), external domains: %d\n",
		summary.Stats.TotalLinks, summary.Stats.MeanLinksPerPage,
		summary.Stats.UniqueExternalDomains)

	if len(summary.TopPages) > 0 {
		sb.WriteString("\nTop pages by word count:\n")
		for i, page := range summary.TopPages {
			title := page.Title
			if title == "" {
				title = "(untitled)"
			}
			fmt.Fprintf(sb, "  %2d. %s (%d words)\n      %s\n", i+1, title, page.WordCount, page.URL)
		}
	}
}

// writeSkips lists every skipped URL with its reason.
func (w *SimpleWriter) writeSkips(sb *strings.Builder, report *model.CrawlReport) {
	if len(report.Skips) == 0 {
		return
	}
	sb.WriteString("\nSkipped URLs:\n")
	for _, skip := range report.Skips {
		if skip.StatusCode != 0 {
			fmt.Fprintf(sb, "  [%d] %s - %s\n", skip.StatusCode, skip.URL, skip.Reason)
		} else {
			fmt.Fprintf(sb, "  %s - %s\n", skip.URL, skip.Reason)
		}
	}
}

// writeFailures lists every failed URL with its last error.
func (w *SimpleWriter) writeFailures(sb *strings.Builder, report *model.CrawlReport) {
	if len(report.Failures) == 0 {
		return
	}
	sb.WriteString("\nFailed URLs:\n")
	for _, failure := range report.Failures {
		fmt.Fprintf(sb, "  %s - %s\n", failure.URL, failure.Error)
	}
}
