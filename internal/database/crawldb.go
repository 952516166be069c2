package database

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite" // SQLite driver

	"github.com/nao1215/webcrawl/internal/model"
)

// CrawlDB provides SQLite-based storage for finished crawl sessions.
// It keeps a queryable index of sessions plus the full report JSON, so
// past crawls can be listed and reopened without re-crawling.
//
// Design decision: We use a single database file for all sessions rather
// than one file per domain. This simplifies listing across domains and
// backup/restore operations.
type CrawlDB struct {
	// db is the underlying SQL database connection.
	db *sql.DB

	// dbPath is the path to the SQLite database file.
	dbPath string
}

// Options configures CrawlDB behavior.
type Options struct {
	// CreateIfNotExists creates the database file if it doesn't exist.
	CreateIfNotExists bool

	// EnableWAL enables Write-Ahead Logging for better concurrent
	// performance. Recommended for most use cases.
	EnableWAL bool
}

// DefaultOptions returns the default database options.
func DefaultOptions() Options {
	return Options{
		CreateIfNotExists: true,
		EnableWAL:         true,
	}
}

// Open opens or creates a CrawlDB at the specified directory.
func Open(dbDir string, opts Options) (*CrawlDB, error) {
	dbPath := filepath.Join(dbDir, "webcrawl.db")

	if !opts.CreateIfNotExists {
		if _, err := os.Stat(dbPath); os.IsNotExist(err) {
			return nil, fmt.Errorf("database not found at %s (use CreateIfNotExists option to create)", dbPath)
		} else if err != nil {
			return nil, fmt.Errorf("failed to check database path: %w", err)
		}
	} else {
		if err := os.MkdirAll(dbDir, 0750); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	// modernc.org/sqlite connection string: mode=rw prevents creating
	// new files, mode=rwc allows creation.
	var dsn string
	if opts.CreateIfNotExists {
		dsn = dbPath + "?mode=rwc"
	} else {
		dsn = dbPath + "?mode=rw"
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// SQLite only supports one writer; a single connection avoids
	// SQLITE_BUSY surprises.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(time.Hour)

	cdb := &CrawlDB{db: db, dbPath: dbPath}

	if opts.EnableWAL {
		if _, err := db.ExecContext(context.Background(), "PRAGMA journal_mode=WAL"); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
		}
	}

	if err := cdb.createTables(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to create tables: %w", err)
	}

	return cdb, nil
}

// Close closes the database connection.
func (cdb *CrawlDB) Close() error {
	return cdb.db.Close()
}

// createTables creates the database schema if it doesn't exist.
func (cdb *CrawlDB) createTables() error {
	schema := `
	-- Sessions store one row per finished crawl plus the full report JSON
	CREATE TABLE IF NOT EXISTS sessions (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		domain TEXT NOT NULL,
		seed TEXT NOT NULL,
		started_at DATETIME NOT NULL,
		elapsed_ms INTEGER NOT NULL,
		pages INTEGER NOT NULL,
		skips INTEGER NOT NULL,
		failures INTEGER NOT NULL,
		report_json TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_sessions_domain ON sessions(domain);
	CREATE INDEX IF NOT EXISTS idx_sessions_started ON sessions(started_at);

	-- Pages store a queryable index of crawled pages per session
	CREATE TABLE IF NOT EXISTS pages (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		session_id INTEGER NOT NULL REFERENCES sessions(id) ON DELETE CASCADE,
		url TEXT NOT NULL,
		status_code INTEGER,
		title TEXT,
		content_class TEXT,
		word_count INTEGER,
		depth INTEGER,
		parent_url TEXT,
		crawled_at DATETIME
	);

	CREATE INDEX IF NOT EXISTS idx_pages_session ON pages(session_id);
	CREATE INDEX IF NOT EXISTS idx_pages_url ON pages(url);
	`

	_, err := cdb.db.ExecContext(context.Background(), schema)
	return err
}

// SessionRecord is one row of the session index.
type SessionRecord struct {
	ID        int64
	Domain    string
	Seed      string
	StartedAt time.Time
	Elapsed   time.Duration
	Pages     int
	Skips     int
	Failures  int
}

// SaveReport persists a finished crawl report and its page index.
// Returns the new session's ID.
func (cdb *CrawlDB) SaveReport(ctx context.Context, report *model.CrawlReport) (int64, error) {
	reportJSON, err := json.Marshal(report)
	if err != nil {
		return 0, fmt.Errorf("failed to serialize report: %w", err)
	}

	tx, err := cdb.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // No-op after commit

	result, err := tx.ExecContext(ctx, `
	INSERT INTO sessions (domain, seed, started_at, elapsed_ms, pages, skips, failures, report_json)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		report.Domain,
		report.Seed,
		report.StartedAt.UTC().Format(time.RFC3339Nano),
		report.Elapsed.Milliseconds(),
		len(report.Pages),
		len(report.Skips),
		len(report.Failures),
		string(reportJSON),
	)
	if err != nil {
		return 0, fmt.Errorf("failed to insert session: %w", err)
	}

	sessionID, err := result.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("failed to get session id: %w", err)
	}

	for _, page := range report.Pages {
		if _, err := tx.ExecContext(ctx, `
		INSERT INTO pages (session_id, url, status_code, title, content_class, word_count, depth, parent_url, crawled_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			sessionID,
			page.URL,
			page.StatusCode,
			page.Title,
			string(page.ContentClass),
			page.WordCount,
			page.Depth,
			page.ParentURL,
			page.CrawledAt.UTC().Format(time.RFC3339Nano),
		); err != nil {
			return 0, fmt.Errorf("failed to insert page record: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit session: %w", err)
	}

	return sessionID, nil
}

// ListSessions returns the most recent sessions, newest first.
// limit <= 0 means no limit.
func (cdb *CrawlDB) ListSessions(ctx context.Context, limit int) ([]SessionRecord, error) {
	query := `
	SELECT id, domain, seed, started_at, elapsed_ms, pages, skips, failures
	FROM sessions
	ORDER BY started_at DESC, id DESC
	`
	args := make([]any, 0, 1)
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := cdb.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list sessions: %w", err)
	}
	defer rows.Close()

	var records []SessionRecord
	for rows.Next() {
		var r SessionRecord
		var startedAt string
		var elapsedMs int64
		if err := rows.Scan(&r.ID, &r.Domain, &r.Seed, &startedAt, &elapsedMs,
			&r.Pages, &r.Skips, &r.Failures); err != nil {
			return nil, fmt.Errorf("failed to scan session: %w", err)
		}
		r.StartedAt = parseTimestamp(startedAt)
		r.Elapsed = time.Duration(elapsedMs) * time.Millisecond
		records = append(records, r)
	}

	return records, rows.Err()
}

// GetReport loads a full crawl report by session ID.
// Returns nil without error when the session does not exist.
func (cdb *CrawlDB) GetReport(ctx context.Context, sessionID int64) (*model.CrawlReport, error) {
	var reportJSON string
	err := cdb.db.QueryRowContext(ctx,
		"SELECT report_json FROM sessions WHERE id = ?", sessionID,
	).Scan(&reportJSON)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get session %d: %w", sessionID, err)
	}

	var report model.CrawlReport
	if err := json.Unmarshal([]byte(reportJSON), &report); err != nil {
		return nil, fmt.Errorf("failed to parse stored report: %w", err)
	}

	return &report, nil
}

// SessionsForDomain returns the session index for one domain, newest first.
func (cdb *CrawlDB) SessionsForDomain(ctx context.Context, domain string) ([]SessionRecord, error) {
	rows, err := cdb.db.QueryContext(ctx, `
	SELECT id, domain, seed, started_at, elapsed_ms, pages, skips, failures
	FROM sessions
	WHERE domain = ?
	ORDER BY started_at DESC, id DESC`, domain)
	if err != nil {
		return nil, fmt.Errorf("failed to query sessions for %s: %w", domain, err)
	}
	defer rows.Close()

	var records []SessionRecord
	for rows.Next() {
		var r SessionRecord
		var startedAt string
		var elapsedMs int64
		if err := rows.Scan(&r.ID, &r.Domain, &r.Seed, &startedAt, &elapsedMs,
			&r.Pages, &r.Skips, &r.Failures); err != nil {
			return nil, fmt.Errorf("failed to scan session: %w", err)
		}
		r.StartedAt = parseTimestamp(startedAt)
		r.Elapsed = time.Duration(elapsedMs) * time.Millisecond
		records = append(records, r)
	}

	return records, rows.Err()
}

// parseTimestamp parses the timestamp formats SQLite may hand back
// depending on how the value was written.
func parseTimestamp(value string) time.Time {
	for _, layout := range []string{
		time.RFC3339Nano,
		time.RFC3339,
		"2006-01-02 15:04:05",
	} {
		if t, err := time.Parse(layout, value); err == nil {
			return t
		}
	}
	return time.Time{}
}
