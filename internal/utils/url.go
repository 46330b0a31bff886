package utils

import (
	"errors"
	"net"
	"net/url"
	"path"
	"sort"
	"strings"

	"golang.org/x/net/idna"
)

// Errors
var (
	ErrEmptyURL    = errors.New("empty url")
	ErrMissingHost = errors.New("missing host")
	ErrInvalidURL  = errors.New("invalid url")
)

// ParseURL parses raw the way a browser address bar would: scheme-less input
// gets "https://", the host is lower-cased and converted to its ASCII
// (punycode) form. A result without a host is an error.
func ParseURL(raw string) (*url.URL, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, ErrEmptyURL
	}
	if !schemePrefix.MatchString(raw) {
		raw = "https://" + raw
	}

	u, err := url.Parse(raw)
	if err != nil {
		return nil, errors.Join(ErrInvalidURL, err)
	}
	if u.Hostname() == "" {
		return nil, ErrMissingHost
	}

	u.Scheme = strings.ToLower(u.Scheme)
	host := asciiHost(u.Hostname())
	if port := u.Port(); port != "" {
		u.Host = net.JoinHostPort(host, port)
	} else if strings.Contains(host, ":") {
		u.Host = "[" + host + "]"
	} else {
		u.Host = host
	}
	if u.Path == "" && u.Opaque == "" {
		u.Path = "/"
	}
	return u, nil
}

// Hostname returns the lower-case host of u without port or IPv6 brackets.
func Hostname(u *url.URL) string {
	if u == nil {
		return ""
	}
	return strings.ToLower(u.Hostname())
}

func asciiHost(host string) string {
	host = strings.ToLower(host)
	if puny, err := idna.Lookup.ToASCII(host); err == nil && puny != "" {
		return puny
	}
	return host
}

// JoinURL joins an endpoint base and a path with exactly one slash.
//
//	JoinURL("http://localhost:8000/", "predict") -> "http://localhost:8000/predict"
//	JoinURL("", "/predict")                      -> "/predict"
func JoinURL(base, p string) string {
	if base == "" {
		return p
	}
	base = strings.TrimSuffix(base, "/")
	if !strings.HasPrefix(p, "/") {
		p = "/" + p
	}
	return base + p
}

// ResolveReference resolves href against base and returns an absolute URL.
// Non-http(s) results (javascript:, mailto:, ...) are rejected.
func ResolveReference(base *url.URL, href string) (string, bool) {
	href = strings.TrimSpace(href)
	if href == "" || base == nil {
		return "", false
	}
	ref, err := url.Parse(href)
	if err != nil {
		return "", false
	}
	abs := base.ResolveReference(ref)
	if abs.Scheme != "http" && abs.Scheme != "https" {
		return "", false
	}
	return abs.String(), true
}

// CanonicalizeOptions controls optional canonicalization policies.
type CanonicalizeOptions struct {
	DropTrackingParams bool   // remove common tracking params (utm_*, gclid, fbclid, ...)
	StripTrailingSlash bool   // treat /a and /a/ the same (except for root "/")
	DefaultScheme      string // if empty, require scheme in input
}

var defaultTrackingParams = map[string]struct{}{
	"utm_source": {}, "utm_medium": {}, "utm_campaign": {}, "utm_term": {}, "utm_content": {},
	"gclid": {}, "fbclid": {}, "mc_cid": {}, "mc_eid": {},
}

// Canonicalize returns a deterministic canonical URL string or an error.
// Used to de-duplicate collected links.
func Canonicalize(raw string, opts CanonicalizeOptions) (string, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", ErrEmptyURL
	}
	if opts.DefaultScheme != "" && !strings.Contains(raw, "://") {
		raw = opts.DefaultScheme + "://" + raw
	}

	u, err := url.Parse(raw)
	if err != nil {
		return "", err
	}
	if u.Host == "" {
		return "", ErrMissingHost
	}

	u.Scheme = strings.ToLower(u.Scheme)
	host := asciiHost(u.Hostname())
	port := u.Port()
	switch {
	case (u.Scheme == "http" && port == "80") || (u.Scheme == "https" && port == "443"), port == "":
		u.Host = host
	default:
		u.Host = net.JoinHostPort(host, port)
	}
	u.User = nil
	u.Fragment = ""

	cleanPath := path.Clean(u.Path)
	if cleanPath == "." {
		cleanPath = "/"
	}
	if opts.StripTrailingSlash && len(cleanPath) > 1 {
		cleanPath = strings.TrimRight(cleanPath, "/")
	}
	u.Path = cleanPath

	q := u.Query()
	if opts.DropTrackingParams {
		for k := range q {
			if _, ok := defaultTrackingParams[strings.ToLower(k)]; ok {
				q.Del(k)
			}
		}
	}
	keys := make([]string, 0, len(q))
	for k := range q {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	ordered := url.Values{}
	for _, k := range keys {
		values := q[k]
		sort.Strings(values)
		for _, v := range values {
			ordered.Add(k, v)
		}
	}
	u.RawQuery = ordered.Encode()

	return u.String(), nil
}
