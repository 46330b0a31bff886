package utils

import (
	"regexp"
	"strings"
)

var (
	schemePrefix = regexp.MustCompile(`^[a-zA-Z][a-zA-Z0-9+.\-]*://`)
	httpScheme   = regexp.MustCompile(`(?i)^https?://`)
	wwwPrefix    = regexp.MustCompile(`(?i)^www\.`)
)

// NormalizeDomain canonicalizes any string (URL, host, host:port/path...)
// into a comparable lower-case hostname without a leading "www.".
// It returns "" for empty input and never fails: unparseable input falls
// back to string surgery.
func NormalizeDomain(raw string) string {
	value := strings.ToLower(strings.TrimSpace(raw))
	if value == "" {
		return ""
	}
	if !schemePrefix.MatchString(value) {
		value = "https://" + value
	}

	if u, err := ParseURL(value); err == nil {
		return wwwPrefix.ReplaceAllString(Hostname(u), "")
	}

	value = httpScheme.ReplaceAllString(value, "")
	value = schemePrefix.ReplaceAllString(value, "")
	value, _, _ = strings.Cut(value, "/")
	return wwwPrefix.ReplaceAllString(value, "")
}

// IsTrustedDomain reports whether rawURL's domain matches an entry of the
// allow-list. Entries are matched case-insensitively:
//
//	"*.example.com"  -> any subdomain of example.com
//	".example.com"   -> any subdomain of example.com
//	"example.com"    -> example.com itself or a true subdomain of it
//
// "evilexample.com" never matches "example.com".
func IsTrustedDomain(rawURL string, list []string) bool {
	domain := NormalizeDomain(rawURL)
	if domain == "" || len(list) == 0 {
		return false
	}
	for _, item := range list {
		entry := strings.ToLower(strings.TrimSpace(item))
		if entry == "" {
			continue
		}
		switch {
		case strings.HasPrefix(entry, "*."):
			if strings.HasSuffix(domain, entry[1:]) {
				return true
			}
		case strings.HasPrefix(entry, "."):
			if strings.HasSuffix(domain, entry) {
				return true
			}
		default:
			if domain == entry || strings.HasSuffix(domain, "."+entry) {
				return true
			}
		}
	}
	return false
}
