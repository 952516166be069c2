package crawler

import (
	"context"
	"net/http"
	"net/url"

	"github.com/temoto/robotstxt"
)

// RobotsPolicy evaluates robots.txt rules for one site and one agent
// identity. It is loaded once at session start and consulted before
// every fetch when the respect-robots mode is active.
//
// Design decision: We use temoto/robotstxt rather than parsing ourselves
// because robots.txt has enough dialects (wildcards, Allow precedence,
// grouped agents) that a hand-rolled parser quietly diverges from what
// sites expect. The library also encodes the conventional status-code
// semantics: 4xx means allow all, 5xx means disallow all.
type RobotsPolicy struct {
	// group holds the matched rule group for the configured agent.
	// Nil when robots.txt was unavailable, which means allow all.
	group *robotstxt.Group
}

// LoadRobots fetches and parses <site>/robots.txt for the given agent.
// Failures are not fatal: an unreachable or unparseable robots.txt yields
// a policy that allows everything, matching crawler convention.
func LoadRobots(ctx context.Context, client *http.Client, siteURL, userAgent string) *RobotsPolicy {
	base, err := url.Parse(siteURL)
	if err != nil {
		return &RobotsPolicy{}
	}

	robotsURL := &url.URL{Scheme: base.Scheme, Host: base.Host, Path: "/robots.txt"}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, robotsURL.String(), nil)
	if err != nil {
		return &RobotsPolicy{}
	}
	req.Header.Set("User-Agent", userAgent)

	resp, err := client.Do(req)
	if err != nil {
		return &RobotsPolicy{}
	}
	defer resp.Body.Close()

	data, err := robotstxt.FromResponse(resp)
	if err != nil {
		return &RobotsPolicy{}
	}

	return &RobotsPolicy{group: data.FindGroup(userAgent)}
}

// Allowed reports whether the policy permits fetching the given URL.
func (r *RobotsPolicy) Allowed(rawURL string) bool {
	if r == nil || r.group == nil {
		return true
	}

	u, err := url.Parse(rawURL)
	if err != nil {
		return false
	}

	path := u.Path
	if path == "" {
		path = "/"
	}
	if u.RawQuery != "" {
		path += "?" + u.RawQuery
	}

	return r.group.Test(path)
}
