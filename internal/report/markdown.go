package report

import (
	"fmt"
	"io"
	"sort"
	"strconv"

	"github.com/nao1215/markdown"
	"github.com/nao1215/markdown/mermaid/piechart"

	"github.com/nao1215/webcrawl/internal/model"
)

// MarkdownWriter outputs the crawl summary in Markdown format.
// This format is designed for documentation and sharing.
//
// Design decision: We use the nao1215/markdown library for fluent markdown
// generation which provides:
//  1. Type-safe markdown generation
//  2. Support for tables, lists, and code blocks
//  3. Mermaid charts for the histograms
type MarkdownWriter struct {
	baseWriter
}

// NewMarkdownWriter creates a MarkdownWriter that outputs to the given writer.
func NewMarkdownWriter(output io.Writer) *MarkdownWriter {
	return &MarkdownWriter{baseWriter: newBaseWriter(output)}
}

// Write outputs the report's summary in Markdown format.
func (w *MarkdownWriter) Write(report *model.CrawlReport) (int, error) {
	summary := report.Summary
	if summary == nil {
		summary = model.NewSummary(report)
	}
	return w.WriteSummary(summary)
}

// WriteSummary outputs the summary in Markdown format.
func (w *MarkdownWriter) WriteSummary(summary *model.Summary) (int, error) {
	md := markdown.NewMarkdown(w.output)

	w.writeHeader(md, summary)
	w.writeStats(md, summary)
	w.writeTopPages(md, summary)
	w.writeSkipReasons(md, summary)

	return len(md.String()), md.Build()
}

// writeHeader writes the title and the totals table.
func (w *MarkdownWriter) writeHeader(md *markdown.Markdown, summary *model.Summary) {
	md.H1("Crawl Summary")
	md.PlainText("")
	md.Table(markdown.TableSet{
		Header: []string{"Property", "Value"},
		Rows: [][]string{
			{"Domain", "`" + summary.Domain + "`"},
			{"Pages Crawled", strconv.Itoa(summary.PagesCrawled)},
			{"Pages Skipped", strconv.Itoa(summary.PagesSkipped)},
			{"Pages Failed", strconv.Itoa(summary.PagesFailed)},
		},
	})
	md.PlainText("")
}

// writeStats writes the link statistics and the content class breakdown.
func (w *MarkdownWriter) writeStats(md *markdown.Markdown, summary *model.Summary) {
	md.H2("Statistics")
	md.PlainText("")
	md.Table(markdown.TableSet{
		Header: []string{"Metric", "Value"},
		Rows: [][]string{
			{"Total outbound links", strconv.Itoa(summary.Stats.TotalLinks)},
			{"Unique external domains", strconv.Itoa(summary.Stats.UniqueExternalDomains)},
			{"Mean links per page", fmt.Sprintf("%.1f", summary.Stats.MeanLinksPerPage)},
		},
	})
	md.PlainText("")

	if len(summary.Stats.ContentClasses) > 0 {
		chart := piechart.NewPieChart(
			io.Discard,
			piechart.WithTitle("Page Content Classes"),
			piechart.WithShowData(true),
		)
		for _, class := range sortedClasses(summary.Stats.ContentClasses) {
			chart.LabelAndIntValue(string(class), uint64(summary.Stats.ContentClasses[class]))
		}
		md.CodeBlocks(markdown.SyntaxHighlightMermaid, chart.String())
		md.PlainText("")
	}
}

// writeTopPages writes the top-pages-by-word-count table.
func (w *MarkdownWriter) writeTopPages(md *markdown.Markdown, summary *model.Summary) {
	if len(summary.TopPages) == 0 {
		return
	}

	md.H2("Top Pages by Word Count")
	md.PlainText("")

	rows := make([][]string, 0, len(summary.TopPages))
	for _, page := range summary.TopPages {
		title := page.Title
		if title == "" {
			title = "(untitled)"
		}
		rows = append(rows, []string{title, "`" + page.URL + "`", strconv.Itoa(page.WordCount)})
	}
	md.Table(markdown.TableSet{
		Header: []string{"Title", "URL", "Words"},
		Rows:   rows,
	})
	md.PlainText("")
}

// writeSkipReasons writes the skip reason histogram when skips happened.
func (w *MarkdownWriter) writeSkipReasons(md *markdown.Markdown, summary *model.Summary) {
	if len(summary.Stats.SkipReasons) == 0 {
		return
	}

	md.H2("Skip Reasons")
	md.PlainText("")

	reasons := make([]string, 0, len(summary.Stats.SkipReasons))
	for reason := range summary.Stats.SkipReasons {
		reasons = append(reasons, reason)
	}
	sort.Strings(reasons)

	rows := make([][]string, 0, len(reasons))
	for _, reason := range reasons {
		rows = append(rows, []string{reason, strconv.Itoa(summary.Stats.SkipReasons[reason])})
	}
	md.Table(markdown.TableSet{
		Header: []string{"Reason", "Count"},
		Rows:   rows,
	})
	md.PlainText("")
}

// sortedClasses returns histogram keys in stable alphabetical order so
// report output is deterministic.
func sortedClasses(histogram map[model.ContentClass]int) []model.ContentClass {
	classes := make([]model.ContentClass, 0, len(histogram))
	for class := range histogram {
		classes = append(classes, class)
	}
	sort.Slice(classes, func(i, j int) bool { return classes[i] < classes[j] })
	return classes
}
