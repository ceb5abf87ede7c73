// Package domainparse normalizes and validates raw domain submissions before a
// batch is created from them.
package domainparse

import (
	"net"
	"strings"

	"golang.org/x/net/idna"
)

// InvalidDomain pairs a rejected input with a human-readable reason.
type InvalidDomain struct {
	Input  string `json:"input"`
	Reason string `json:"reason"`
}

// Result is the outcome of parsing a domain submission.
type Result struct {
	// Valid is the deduplicated, normalized domain list in first-seen order.
	Valid []string `json:"valid"`

	// Invalid lists rejected entries with reasons.
	Invalid []InvalidDomain `json:"invalid"`
}

// Parse splits free text on newlines, commas and tabs into domain candidates
// and validates each. Inner spaces are not separators: "bad domain" on one
// line is a single rejected entry, not two.
func Parse(raw string) Result {
	fields := strings.FieldsFunc(raw, func(r rune) bool {
		return r == '\n' || r == '\r' || r == ',' || r == '\t'
	})
	return ParseList(fields)
}

// ParseList validates a pre-split list of domain strings. Duplicates (after
// normalization, case-insensitive) keep only the first occurrence.
func ParseList(entries []string) Result {
	var res Result
	seen := make(map[string]struct{})

	for _, entry := range entries {
		domain, reason := Normalize(entry)
		if reason != "" {
			res.Invalid = append(res.Invalid, InvalidDomain{Input: entry, Reason: reason})
			continue
		}
		if _, dup := seen[domain]; dup {
			continue
		}
		seen[domain] = struct{}{}
		res.Valid = append(res.Valid, domain)
	}

	return res
}

// Normalize strips scheme, credentials, "www." prefix, path and port from a
// raw entry, lowercases it and folds unicode names to punycode. It returns the
// bare domain, or an empty domain with a rejection reason.
func Normalize(raw string) (domain string, reason string) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return "", "empty entry"
	}

	// Strip scheme ("https://", "ftp://", protocol-relative "//").
	if i := strings.Index(s, "://"); i >= 0 {
		s = s[i+3:]
	}
	s = strings.TrimPrefix(s, "//")

	// Drop credentials.
	if i := strings.LastIndex(s, "@"); i >= 0 {
		s = s[i+1:]
	}

	// Truncate at the first path/query/fragment separator.
	if i := strings.IndexAny(s, "/?#"); i >= 0 {
		s = s[:i]
	}

	// Drop a port suffix.
	if host, _, err := net.SplitHostPort(s); err == nil {
		s = host
	}

	s = strings.ToLower(strings.TrimSuffix(s, "."))
	s = strings.TrimPrefix(s, "www.")

	if s == "" {
		return "", "empty after normalization"
	}

	// Fold IDN names to punycode so unicode and ASCII spellings dedupe together.
	if puny, err := idna.Lookup.ToASCII(s); err == nil {
		s = puny
	}

	if reason := checkSyntax(s); reason != "" {
		return "", reason
	}

	return s, ""
}

// checkSyntax applies a conservative hostname check: dot-separated labels of
// letters, digits and inner hyphens, with an alphabetic TLD of 2+ characters.
func checkSyntax(domain string) string {
	if len(domain) > 253 {
		return "domain too long"
	}
	labels := strings.Split(domain, ".")
	if len(labels) < 2 {
		return "not a fully qualified domain"
	}
	for _, label := range labels {
		if label == "" {
			return "empty label"
		}
		if len(label) > 63 {
			return "label too long"
		}
		if strings.HasPrefix(label, "-") || strings.HasSuffix(label, "-") {
			return "label starts or ends with hyphen"
		}
		for _, r := range label {
			if (r < 'a' || r > 'z') && (r < '0' || r > '9') && r != '-' {
				return "invalid character in domain"
			}
		}
	}
	tld := labels[len(labels)-1]
	for _, r := range tld {
		if r < 'a' || r > 'z' {
			return "invalid top-level domain"
		}
	}
	if len(tld) < 2 {
		return "invalid top-level domain"
	}
	return ""
}
