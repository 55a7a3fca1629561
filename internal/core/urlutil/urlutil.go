// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package urlutil

import (
	"net/url"
	"strings"
)

// SanitizeURL removes user info and query from a URL string for safe logging.
// Playlist and stream URLs frequently carry tokens in either place.
func SanitizeURL(rawURL string) string {
	parsedURL, err := url.Parse(rawURL)
	if err != nil {
		return "invalid-url-redacted"
	}
	parsedURL.User = nil
	parsedURL.RawQuery = ""
	return parsedURL.String()
}

// ContainsFold reports whether needle occurs in rawURL, ignoring ASCII case.
func ContainsFold(rawURL, needle string) bool {
	if needle == "" {
		return false
	}
	return strings.Contains(strings.ToLower(rawURL), strings.ToLower(needle))
}

// IsHTTP reports whether s is an absolute http(s) URL with a host.
func IsHTTP(s string) bool {
	u, err := url.Parse(strings.TrimSpace(s))
	if err != nil {
		return false
	}
	return (u.Scheme == "http" || u.Scheme == "https") && u.Host != ""
}
