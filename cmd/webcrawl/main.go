// Package main provides the entry point for the webcrawl CLI.
//
// webcrawl discovers and retrieves all pages of a website reachable by
// same-domain hyperlinks, starting from a seed URL, and emits structured
// per-page records plus aggregate statistics.
//
// Usage:
//
//	webcrawl crawl <url>
//	webcrawl history
//
// See --help for all available options.
package main

// main is the entry point for webcrawl.
func main() {
	Execute()
}
