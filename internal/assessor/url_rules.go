package assessor

import "math"

// Score bounds and label cut-offs of the URL rule table.
const (
	URLBaseScore      = 0.06
	URLMaxScore       = 0.98
	PhishingCutoff    = 0.7
	SuspiciousCutoff  = 0.4
	keywordSignalStem = "keyword: "
)

// URLRule is one row of the URL rule table. Rules are evaluated in table
// order; every matching rule adds Weight and appends its signal(s).
type URLRule struct {
	ID     string
	Weight float64
	Signal string
	Match  func(f *URLFeatures) bool

	// Signals, when set, replaces Signal with a dynamic list.
	Signals func(f *URLFeatures) []string
}

// URLRules is the ordered rule table. The weights are compatibility
// constants shared with the browser extension; do not tune them here.
var URLRules = []URLRule{
	{ID: "ip_host", Weight: 0.28, Signal: "ip address in url",
		Match: func(f *URLFeatures) bool { return f.IsIP }},
	{ID: "at_symbol", Weight: 0.20, Signal: "@ symbol in url",
		Match: func(f *URLFeatures) bool { return f.HasAt }},
	{ID: "shortener", Weight: 0.22, Signal: "url shortener",
		Match: func(f *URLFeatures) bool { return f.Shortener }},
	{ID: "punycode", Weight: 0.18, Signal: "punycode domain",
		Match: func(f *URLFeatures) bool { return f.Punycode }},
	{ID: "risky_tld", Weight: 0.18, Signal: "risky tld",
		Match: func(f *URLFeatures) bool { return f.RiskyTLD }},
	{ID: "dash", Weight: 0.08, Signal: "dash in domain",
		Match: func(f *URLFeatures) bool { return f.DashCount > 0 }},
	{ID: "many_dashes", Weight: 0.08, Signal: "many dashes",
		Match: func(f *URLFeatures) bool { return f.DashCount >= 4 }},
	{ID: "double_slash", Weight: 0.12, Signal: "redirecting slashes",
		Match: func(f *URLFeatures) bool { return f.DoubleSlash }},
	{ID: "many_subdomains", Weight: 0.14, Signal: "many subdomains",
		Match: func(f *URLFeatures) bool { return f.SubdomainCount >= 3 }},

	{ID: "very_long_url", Weight: 0.18, Signal: "very long url",
		Match: func(f *URLFeatures) bool { return len(f.Href) > 115 }},
	{ID: "long_url", Weight: 0.10, Signal: "long url",
		Match: func(f *URLFeatures) bool { return len(f.Href) > 75 && len(f.Href) <= 115 }},

	{ID: "very_long_domain", Weight: 0.14, Signal: "very long domain",
		Match: func(f *URLFeatures) bool { return len(f.Hostname) > 40 }},
	{ID: "long_domain", Weight: 0.10, Signal: "long domain",
		Match: func(f *URLFeatures) bool { return len(f.Hostname) > 30 && len(f.Hostname) <= 40 }},

	{ID: "long_path", Weight: 0.08, Signal: "long path",
		Match: func(f *URLFeatures) bool { return len(f.Path) > 35 }},

	{ID: "very_long_query", Weight: 0.18, Signal: "very long query",
		Match: func(f *URLFeatures) bool { return len(f.Query) > 140 }},
	{ID: "long_query", Weight: 0.12, Signal: "long query",
		Match: func(f *URLFeatures) bool { return len(f.Query) > 80 && len(f.Query) <= 140 }},

	{ID: "many_params", Weight: 0.12, Signal: "many parameters",
		Match: func(f *URLFeatures) bool { return f.ParamCount >= 6 }},
	{ID: "multiple_params", Weight: 0.08, Signal: "multiple parameters",
		Match: func(f *URLFeatures) bool { return f.ParamCount >= 3 && f.ParamCount < 6 }},

	{ID: "redirect_param", Weight: 0.12, Signal: "suspicious redirect param",
		Match: func(f *URLFeatures) bool { return f.SuspiciousParam }},
	{ID: "http_token", Weight: 0.10, Signal: "http token in path",
		Match: func(f *URLFeatures) bool { return f.HTTPTokens > 0 }},
	{ID: "nonstandard_port", Weight: 0.10, Signal: "nonstandard port",
		Match: func(f *URLFeatures) bool { return f.Port != "" && f.Port != "80" && f.Port != "443" }},
	{ID: "non_https", Weight: 0.05, Signal: "non-https",
		Match: func(f *URLFeatures) bool { return f.Scheme != "https" }},

	{ID: "digit_heavy", Weight: 0.12, Signal: "digit-heavy domain",
		Match: func(f *URLFeatures) bool { return f.DigitRatio >= 0.3 }},
	{ID: "many_digits", Weight: 0.06, Signal: "many digits in domain",
		Match: func(f *URLFeatures) bool { return f.DigitRatio < 0.3 && f.DigitCount >= 4 }},

	{ID: "random_domain", Weight: 0.14, Signal: "random-looking domain",
		Match: func(f *URLFeatures) bool { return f.Entropy >= 4 }},
	{ID: "high_entropy", Weight: 0.10, Signal: "high entropy domain",
		Match: func(f *URLFeatures) bool { return f.Entropy >= 3.5 && f.Entropy < 4 }},

	// Weighted once however many keywords appear.
	{ID: "keyword", Weight: 0.08,
		Match: func(f *URLFeatures) bool { return len(f.Keywords) > 0 },
		Signals: func(f *URLFeatures) []string {
			out := make([]string, 0, len(f.Keywords))
			for _, w := range f.Keywords {
				out = append(out, keywordSignalStem+w)
			}
			return out
		}},
}

// EvaluateURLRules applies rules to f and returns the capped score, the
// signals in rule order and the ids of matched rules.
func EvaluateURLRules(f *URLFeatures, rules []URLRule) (float64, []string, []string) {
	score := URLBaseScore
	signals := []string{}
	var matched []string
	for _, r := range rules {
		if !r.Match(f) {
			continue
		}
		score += r.Weight
		matched = append(matched, r.ID)
		if r.Signals != nil {
			signals = append(signals, r.Signals(f)...)
		} else {
			signals = append(signals, r.Signal)
		}
	}
	return math.Min(score, URLMaxScore), signals, matched
}

// URLLabel maps a URL score to its label.
func URLLabel(score float64) string {
	switch {
	case score >= PhishingCutoff:
		return "phishing"
	case score >= SuspiciousCutoff:
		return "suspicious"
	default:
		return "legitimate"
	}
}

var shorteners = setOf(
	"bit.ly", "tinyurl.com", "t.co", "goo.gl", "ow.ly", "cutt.ly",
	"buff.ly", "is.gd", "soo.gd", "s.id", "rebrand.ly",
)

var riskyTLDs = setOf(
	"tk", "ml", "ga", "cf", "gq", "xyz", "top", "zip", "mov", "cam", "cfd",
	"gdn", "icu", "link", "click", "work", "support", "monster", "stream",
	"bond", "loan", "life", "asia",
)

var suspiciousQueryKeys = setOf(
	"redirect", "redirect_url", "url", "next", "target", "dest",
	"destination", "continue", "return", "session", "token", "auth", "login",
)

// suspiciousWords is ordered; the order decides signal order.
var suspiciousWords = []string{
	"login", "signin", "secure", "account", "verify", "update",
	"wallet", "bank", "payment", "otp", "password", "refund",
}

func setOf(items ...string) map[string]struct{} {
	m := make(map[string]struct{}, len(items))
	for _, it := range items {
		m[it] = struct{}{}
	}
	return m
}
