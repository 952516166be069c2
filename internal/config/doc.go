// Package config provides configuration structures and utilities for
// webcrawl: global crawl options, validation, and the optional .webcrawl
// YAML profile file with per-site overrides.
package config
