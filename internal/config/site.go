package config

import "time"

// SiteProfile holds per-site overrides for a single domain.
// Zero values mean "use the global setting".
type SiteProfile struct {
	// MaxDepth overrides the global depth limit for this site.
	MaxDepth int `yaml:"maxDepth,omitempty"`

	// MaxPages overrides the global page budget for this site.
	MaxPages int `yaml:"maxPages,omitempty"`

	// Delay overrides the global inter-request delay for this site.
	Delay time.Duration `yaml:"delay,omitempty"`

	// UserAgent overrides the request identity for this site.
	UserAgent string `yaml:"userAgent,omitempty"`

	// SkipUnauthorized overrides the global skip classification mode.
	// Pointer so "not set" is distinguishable from "explicitly false".
	SkipUnauthorized *bool `yaml:"skipUnauthorized,omitempty"`
}

// File represents the structure of the .webcrawl profile file.
type File struct {
	// Sites maps registrable domains to their overrides.
	// Keys are bare domains without protocol (e.g., "example.com").
	Sites map[string]SiteProfile `yaml:"sites,omitempty"`

	// Defaults contains overrides applied to every site unless a
	// site-specific profile overrides them again.
	Defaults SiteProfile `yaml:"defaults,omitempty"`
}

// ProfileFor returns the merged profile for a domain: defaults first,
// then site-specific values on top.
func (cf *File) ProfileFor(domain string) SiteProfile {
	result := cf.Defaults

	if site, ok := cf.Sites[domain]; ok {
		if site.MaxDepth != 0 {
			result.MaxDepth = site.MaxDepth
		}
		if site.MaxPages != 0 {
			result.MaxPages = site.MaxPages
		}
		if site.Delay != 0 {
			result.Delay = site.Delay
		}
		if site.UserAgent != "" {
			result.UserAgent = site.UserAgent
		}
		if site.SkipUnauthorized != nil {
			result.SkipUnauthorized = site.SkipUnauthorized
		}
	}

	return result
}

// Apply overlays the profile's non-zero values onto a Config.
func (p SiteProfile) Apply(cfg *Config) {
	if p.MaxDepth != 0 {
		cfg.MaxDepth = p.MaxDepth
	}
	if p.MaxPages != 0 {
		cfg.MaxPages = p.MaxPages
	}
	if p.Delay != 0 {
		cfg.Delay = p.Delay
	}
	if p.UserAgent != "" {
		cfg.UserAgent = p.UserAgent
	}
	if p.SkipUnauthorized != nil {
		cfg.SkipUnauthorized = *p.SkipUnauthorized
	}
}
