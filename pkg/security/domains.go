package security

import (
	"net/url"
	"strings"
)

// AllowList is the set of hostnames generated code may call out to.
// Matching is exact or by domain suffix; a nil or empty allow-list permits
// nothing, so every outbound URL is flagged.
type AllowList struct {
	domains []string
}

// NewAllowList creates an allow-list from permitted hostnames. Entries are
// normalized to lowercase without a leading dot.
func NewAllowList(domains ...string) *AllowList {
	normalized := make([]string, 0, len(domains))

	for _, domain := range domains {
		domain = strings.ToLower(strings.TrimPrefix(strings.TrimSpace(domain), "."))
		if domain != "" {
			normalized = append(normalized, domain)
		}
	}

	return &AllowList{domains: normalized}
}

// DefaultAllowList permits a small set of commonly integrated hosts.
// Deployments are expected to replace it with their own configuration.
func DefaultAllowList() *AllowList {
	return NewAllowList(
		"api.slack.com",
		"hooks.slack.com",
		"api.github.com",
		"example.com",
	)
}

// Domains returns a copy of the normalized allowed hostnames.
func (l *AllowList) Domains() []string {
	if l == nil {
		return nil
	}

	out := make([]string, len(l.domains))
	copy(out, l.domains)

	return out
}

// Contains reports whether a raw URL's host is allow-listed, by exact
// match or as a subdomain of an allowed suffix. Unparseable URLs and URLs
// without a host are not allowed.
func (l *AllowList) Contains(rawURL string) bool {
	if l == nil || len(l.domains) == 0 {
		return false
	}

	parsed, err := url.Parse(strings.TrimSpace(rawURL))
	if err != nil {
		return false
	}

	host := strings.ToLower(parsed.Hostname())
	if host == "" {
		return false
	}

	for _, domain := range l.domains {
		if host == domain || strings.HasSuffix(host, "."+domain) {
			return true
		}
	}

	return false
}
