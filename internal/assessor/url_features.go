package assessor

import (
	"math"
	"net"
	"net/url"
	"strings"
	"unicode"

	"github.com/raysh454/phishlens/internal/utils"
)

// URLFeatures is everything the URL rule table looks at, extracted once.
type URLFeatures struct {
	Href     string // serialised URL (scheme://host/path?query)
	Hostname string // lower-case, leading "www." removed
	Path     string
	Query    string // including the leading "?" when present
	Scheme   string
	Port     string // explicit port only

	IsIP           bool
	HasAt          bool
	Shortener      bool
	Punycode       bool
	TLD            string
	RiskyTLD       bool
	DashCount      int
	DoubleSlash    bool
	SubdomainCount int

	ParamCount      int
	ParamKeys       []string
	SuspiciousParam bool
	HTTPTokens      int

	DigitCount int
	DigitRatio float64
	Entropy    float64

	// Keywords holds every suspicious keyword found in Href, in list order.
	Keywords []string
}

// ExtractURLFeatures parses raw (defaulting to https) and computes its
// features. It fails only when raw cannot be parsed into a URL with a host.
func ExtractURLFeatures(raw string) (*URLFeatures, error) {
	u, err := utils.ParseURL(raw)
	if err != nil {
		return nil, err
	}
	return featuresFromURL(u), nil
}

func featuresFromURL(u *url.URL) *URLFeatures {
	f := &URLFeatures{
		Href:   u.String(),
		Scheme: u.Scheme,
		Port:   u.Port(),
		Path:   u.EscapedPath(),
	}
	if u.RawQuery != "" {
		f.Query = "?" + u.RawQuery
	}
	f.Hostname = strings.TrimPrefix(utils.Hostname(u), "www.")

	host := f.Hostname
	f.IsIP = net.ParseIP(host) != nil
	f.HasAt = strings.Contains(f.Href, "@")
	_, f.Shortener = shorteners[host]
	f.Punycode = strings.Contains(host, "xn--")

	parts := strings.Split(host, ".")
	f.SubdomainCount = max(0, len(parts)-2)
	f.TLD = parts[len(parts)-1]
	_, f.RiskyTLD = riskyTLDs[f.TLD]
	f.DashCount = strings.Count(host, "-")

	afterScheme := f.Href
	if i := strings.Index(afterScheme, "://"); i >= 0 {
		afterScheme = afterScheme[i+3:]
	}
	f.DoubleSlash = strings.Contains(afterScheme, "//")

	f.ParamKeys = queryKeys(u.RawQuery)
	f.ParamCount = len(f.ParamKeys)
	for _, k := range f.ParamKeys {
		if _, ok := suspiciousQueryKeys[strings.ToLower(k)]; ok {
			f.SuspiciousParam = true
			break
		}
	}
	f.HTTPTokens = strings.Count(strings.ToLower(f.Path+f.Query), "http")

	for _, r := range host {
		if unicode.IsDigit(r) {
			f.DigitCount++
		}
	}
	if len(host) > 0 {
		f.DigitRatio = float64(f.DigitCount) / float64(len(host))
	}
	f.Entropy = ShannonEntropy(host)

	lowerHref := strings.ToLower(f.Href)
	for _, w := range suspiciousWords {
		if strings.Contains(lowerHref, w) {
			f.Keywords = append(f.Keywords, w)
		}
	}
	return f
}

// queryKeys returns the parameter names of a raw query in order, keeping
// duplicates and skipping empty segments.
func queryKeys(rawQuery string) []string {
	var keys []string
	for _, part := range strings.Split(rawQuery, "&") {
		if part == "" {
			continue
		}
		k, _, _ := strings.Cut(part, "=")
		if dec, err := url.QueryUnescape(k); err == nil {
			k = dec
		}
		keys = append(keys, k)
	}
	return keys
}

// ShannonEntropy returns the base-2 entropy of the ASCII letters and digits
// of s. Other characters are ignored; an empty remainder scores 0.
func ShannonEntropy(s string) float64 {
	counts := map[rune]int{}
	total := 0
	for _, r := range s {
		if (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9') {
			counts[r]++
			total++
		}
	}
	if total == 0 {
		return 0
	}
	entropy := 0.0
	for _, c := range counts {
		p := float64(c) / float64(total)
		entropy -= p * math.Log2(p)
	}
	return entropy
}
