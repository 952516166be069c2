package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// NewRootCmd creates the root command for webcrawl.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "webcrawl",
		Short: "Polite same-domain website crawler",
		Long: `webcrawl crawls all pages of a website reachable by same-domain links,
starting from a seed URL. It records structured data per page (title,
headings, word count, links, images) plus aggregate statistics, and can
write JSON reports, Markdown summaries, and a SQLite crawl history.

By default webcrawl respects robots.txt and waits one second between
requests. Crawl only sites you operate or are authorized to audit.`,
		Version:       getVersion(),
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	// Global flags that apply to all commands
	cmd.PersistentFlags().BoolP("verbose", "v", false, "Enable verbose logging")

	// Add subcommands
	cmd.AddCommand(NewCrawlCmd())
	cmd.AddCommand(NewHistoryCmd())
	cmd.AddCommand(NewVersionCmd())

	return cmd
}

// Execute runs the root command.
func Execute() {
	if err := NewRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
