// Package model defines the core data structures produced by a crawl session.
//
// This package contains the following main types:
//   - PageRecord: A successfully fetched and parsed page
//   - SkipRecord / FailureRecord: Terminal non-page outcomes per URL
//   - CrawlReport: The aggregate result of one crawl session
//   - Stats / Summary: Derived statistics and the top-N overview
//
// All types are plain data with JSON tags; behavior is limited to
// constructors and derivation helpers so the structures stay trivially
// serializable for the report writers and the database layer.
package model
