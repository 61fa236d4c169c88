// Package urlutil provides URL and path-segment helpers shared by the
// collector and loader.
package urlutil

import (
	"net/url"
	"strings"
)

// Domain extracts the source domain from a URL: the lowercased host with any
// "www." prefix and port removed. It returns "" when the URL has no parseable
// host.
func Domain(rawURL string) string {
	if rawURL == "" {
		return ""
	}

	u, err := url.Parse(rawURL)
	if err != nil || u.Host == "" {
		return ""
	}

	host := strings.ToLower(u.Host)

	// Drop a port suffix if present
	if i := strings.LastIndex(host, ":"); i >= 0 && !strings.Contains(host[i:], "]") {
		host = host[:i]
	}

	return strings.TrimPrefix(host, "www.")
}

// SafeSegment converts a free-form name (such as an individual's full name)
// into a path segment safe for object keys: every non-alphanumeric rune
// becomes an underscore.
func SafeSegment(name string) string {
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			return r
		default:
			return '_'
		}
	}, name)
}
