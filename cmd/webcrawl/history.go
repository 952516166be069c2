package main

import (
	"fmt"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"github.com/nao1215/webcrawl/internal/config"
	"github.com/nao1215/webcrawl/internal/database"
	"github.com/nao1215/webcrawl/internal/report"
)

// NewHistoryCmd creates the history command.
func NewHistoryCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "history [session-id]",
		Short: "List stored crawl sessions or show one session",
		Long: `History lists crawl sessions stored in the local SQLite database,
newest first. With a session ID argument it prints that session's
summary instead.

Examples:
  # List the 20 most recent sessions
  webcrawl history

  # List sessions for one domain
  webcrawl history --domain example.com

  # Show the summary of session 4
  webcrawl history 4`,
		Args: cobra.MaximumNArgs(1),
		RunE: runHistoryCmd,
	}

	cmd.Flags().IntP("limit", "n", 20, "Maximum number of sessions to list")
	cmd.Flags().String("domain", "", "Only list sessions for this domain")

	return cmd
}

// runHistoryCmd executes the history command.
func runHistoryCmd(cmd *cobra.Command, args []string) error {
	db, err := database.Open(config.XDGDataDir(), database.Options{
		CreateIfNotExists: false,
		EnableWAL:         true,
	})
	if err != nil {
		return fmt.Errorf("no crawl history yet: %w", err)
	}
	defer db.Close()

	if len(args) == 1 {
		id, err := strconv.ParseInt(args[0], 10, 64)
		if err != nil {
			return fmt.Errorf("invalid session ID %q: %w", args[0], err)
		}
		return showSession(cmd, db, id)
	}

	return listSessions(cmd, db)
}

// listSessions prints the session index.
func listSessions(cmd *cobra.Command, db *database.CrawlDB) error {
	limit, err := cmd.Flags().GetInt("limit")
	if err != nil {
		return err
	}
	domain, err := cmd.Flags().GetString("domain")
	if err != nil {
		return err
	}

	var sessions []database.SessionRecord
	if domain != "" {
		sessions, err = db.SessionsForDomain(cmd.Context(), domain)
	} else {
		sessions, err = db.ListSessions(cmd.Context(), limit)
	}
	if err != nil {
		return err
	}

	if len(sessions) == 0 {
		fmt.Fprintln(cmd.OutOrStdout(), "No stored crawl sessions.")
		return nil
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "%-5s %-30s %-20s %8s %6s %6s %8s\n",
		"ID", "DOMAIN", "STARTED", "PAGES", "SKIPS", "FAILS", "ELAPSED")
	for _, s := range sessions {
		fmt.Fprintf(out, "%-5d %-30s %-20s %8d %6d %6d %8s\n",
			s.ID, s.Domain, s.StartedAt.Local().Format("2006-01-02 15:04:05"),
			s.Pages, s.Skips, s.Failures, s.Elapsed.Round(time.Millisecond))
	}
	return nil
}

// showSession prints one stored session's summary.
func showSession(cmd *cobra.Command, db *database.CrawlDB, id int64) error {
	stored, err := db.GetReport(cmd.Context(), id)
	if err != nil {
		return err
	}
	if stored == nil {
		return fmt.Errorf("session %d not found", id)
	}

	writer := report.NewSimpleWriter(cmd.OutOrStdout(), report.WithVerbose(true))
	_, err = writer.Write(stored)
	return err
}
