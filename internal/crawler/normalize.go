package crawler

import (
	"net/url"
	"path"
	"strings"

	"golang.org/x/net/publicsuffix"
)

// nonHTMLExtensions lists path extensions that never resolve to HTML pages.
// URLs ending in one of these are rejected at admission so the frontier
// never spends a fetch on media or binary assets.
var nonHTMLExtensions = map[string]bool{
	".png": true, ".jpg": true, ".jpeg": true, ".gif": true, ".svg": true,
	".webp": true, ".ico": true, ".css": true, ".js": true, ".mjs": true,
	".pdf": true, ".zip": true, ".tar": true, ".gz": true, ".rar": true,
	".mp3": true, ".mp4": true, ".avi": true, ".mov": true, ".webm": true,
	".woff": true, ".woff2": true, ".ttf": true, ".eot": true,
	".xml": true, ".rss": true, ".atom": true, ".json": true,
	".doc": true, ".docx": true, ".xls": true, ".xlsx": true,
	".ppt": true, ".pptx": true, ".exe": true, ".dmg": true, ".iso": true,
}

// NormalizeURL canonicalizes a URL to a stable identity for deduplication.
//
// Design decision: We normalize URLs because:
//  1. Same page can have different URL representations
//  2. Fragment (#anchor) doesn't change content
//  3. http://example.com and http://example.com/ are the same page
//
// The query string is kept untouched: reordering or stripping parameters
// can change page content, so collapsing them would merge distinct pages.
func NormalizeURL(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return rawURL
	}

	u.Fragment = ""
	u.Scheme = strings.ToLower(u.Scheme)
	u.Host = strings.ToLower(u.Host)
	if u.Path == "" {
		u.Path = "/"
	}

	return u.String()
}

// RegistrableDomain returns the registrable domain (eTLD+1) of a URL's host,
// e.g. "https://www.example.co.uk/a" -> "example.co.uk".
//
// Design decision: We scope the crawl by registrable domain rather than
// exact host because "www.example.com" and "example.com" are almost always
// one site, and seed URLs are typed both ways. publicsuffix gives the
// correct split for multi-label TLDs where string surgery would not.
func RegistrableDomain(rawURL string) (string, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "", err
	}

	host := strings.ToLower(u.Hostname())
	domain, err := publicsuffix.EffectiveTLDPlusOne(host)
	if err != nil {
		// Hosts without a public suffix (localhost, IPs, test servers)
		// fall back to the literal host so they remain crawlable.
		return host, nil //nolint:nilerr // Fallback is the desired behavior
	}
	return domain, nil
}

// SameSite reports whether a URL belongs to the crawl's target domain.
func SameSite(targetDomain, rawURL string) bool {
	domain, err := RegistrableDomain(rawURL)
	if err != nil {
		return false
	}
	return strings.EqualFold(domain, targetDomain)
}

// IsCrawlable reports whether a URL is worth enqueueing at all:
// http(s) scheme, a host, and not an obvious non-HTML resource.
func IsCrawlable(rawURL string) bool {
	u, err := url.Parse(rawURL)
	if err != nil {
		return false
	}

	if u.Scheme != "http" && u.Scheme != "https" {
		return false
	}
	if u.Host == "" {
		return false
	}

	ext := strings.ToLower(path.Ext(u.Path))
	return !nonHTMLExtensions[ext]
}
