// Package database provides SQLite-based storage for webcrawl.
//
// This package implements the CrawlDB, which stores:
//   - One row per finished crawl session with the full report JSON
//   - A queryable index of crawled pages per session
//
// The database uses modernc.org/sqlite (pure Go) so no CGO is required.
package database
