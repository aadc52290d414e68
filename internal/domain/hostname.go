package domain

import (
	"errors"
	"fmt"
	"net/url"
	"strings"

	"github.com/AdguardTeam/golibs/netutil"
)

// ErrInvalidDomain is returned when a user supplied domain cannot be used as a
// list entry.
var ErrInvalidDomain = errors.New("invalid domain")

// NormalizeDomain trims, lowercases and strips the scheme, path, port and any
// leading or trailing dots from a hostname or URL.
func NormalizeDomain(raw string) string {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return ""
	}

	// Allow bare hostnames by prefixing a scheme for URL parsing.
	if !strings.Contains(trimmed, "://") {
		trimmed = "https://" + strings.TrimLeft(trimmed, ".")
	}

	parsed, err := url.Parse(trimmed)
	if err != nil {
		return ""
	}

	host := strings.ToLower(parsed.Hostname())
	return strings.Trim(host, ".")
}

// NormalizeDomains normalizes and deduplicates entries, keeping the first
// occurrence order and dropping empty results.
func NormalizeDomains(entries []string) []string {
	unique := make(map[string]struct{}, len(entries))
	normalized := make([]string, 0, len(entries))

	for _, raw := range entries {
		host := NormalizeDomain(raw)
		if host == "" {
			continue
		}
		if _, exists := unique[host]; exists {
			continue
		}
		unique[host] = struct{}{}
		normalized = append(normalized, host)
	}

	return normalized
}

// ValidateDomain normalizes raw and checks that the result is a valid
// hostname.
func ValidateDomain(raw string) (string, error) {
	host := NormalizeDomain(raw)
	if host == "" {
		return "", fmt.Errorf("%w: %q", ErrInvalidDomain, raw)
	}

	if err := netutil.ValidateHostname(host); err != nil {
		return "", fmt.Errorf("%w: %q: %v", ErrInvalidDomain, raw, err)
	}

	return host, nil
}

// MatchesDomain reports whether host equals entry or is a subdomain of it.
// Both arguments are expected to be normalized.
func MatchesDomain(host, entry string) bool {
	if host == "" || entry == "" {
		return false
	}
	if host == entry {
		return true
	}
	return netutil.IsSubdomain(host, entry)
}

// MatchesAny reports whether host matches any of entries.
func MatchesAny(host string, entries []string) bool {
	for _, entry := range entries {
		if MatchesDomain(host, entry) {
			return true
		}
	}
	return false
}

// DomainsOverlap reports whether a and b are equal after stripping a leading
// dot, or one is a suffix of the other on a label boundary.
func DomainsOverlap(a, b string) bool {
	a = strings.ToLower(strings.TrimPrefix(a, "."))
	b = strings.ToLower(strings.TrimPrefix(b, "."))
	if a == "" || b == "" {
		return false
	}
	return a == b || strings.HasSuffix(a, "."+b) || strings.HasSuffix(b, "."+a)
}
