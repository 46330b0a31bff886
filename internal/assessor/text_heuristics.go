package assessor

import (
	"math"
	"regexp"
	"strings"

	"github.com/raysh454/phishlens/internal/model"
)

const (
	textBaseScore = 0.12
	textMaxScore  = 0.98
)

type textRule struct {
	pattern *regexp.Regexp
	weight  float64
	signal  string
}

var textRules = []textRule{
	{regexp.MustCompile(`(?i)(otp|one time password|verification code|pin|password|login|signin)`), 0.28, "credential bait"},
	{regexp.MustCompile(`(?i)(bank|account|kyc|suspend|blocked|verify|update|refund|reward|lottery|gift)`), 0.22, "account urgency"},
	{regexp.MustCompile(`(?i)(upi|paytm|gpay|phonepe|bhim|netbank|ifsc|wallet|debit|credit)`), 0.20, "payment lure"},
	{regexp.MustCompile(`(?i)(click|tap|open|link|download|install)`), 0.12, "link push"},
}

var shortLinkPattern = regexp.MustCompile(`(?i)(bit\.ly|tinyurl\.com|t\.co|goo\.gl)`)

// TextHeuristicScore scores page text, links and forms for lure patterns.
// It is the offline stand-in for the remote text model.
func TextHeuristicScore(payload *model.AnalysisPayload) model.ScoreRecord {
	score := textBaseScore
	signals := []string{}

	text := ""
	if payload != nil {
		text = strings.ToLower(payload.Text)
	}
	for _, r := range textRules {
		if r.pattern.MatchString(text) {
			score += r.weight
			signals = append(signals, r.signal)
		}
	}

	if payload != nil && len(payload.Links) > 0 {
		shortened, insecure := false, false
		for _, l := range payload.Links {
			if shortLinkPattern.MatchString(l) {
				shortened = true
			}
			if strings.HasPrefix(l, "http://") {
				insecure = true
			}
		}
		if shortened {
			score += 0.18
			signals = append(signals, "shortened links")
		}
		if insecure {
			score += 0.14
			signals = append(signals, "insecure links")
		}
	}

	if payload != nil && len(payload.Forms) > 0 {
		score += 0.15
		signals = append(signals, "sensitive form")
	}

	score = math.Min(score, textMaxScore)
	label := model.LabelSuspicious
	if score >= PhishingCutoff {
		label = model.LabelPhishing
	}
	return model.ScoreRecord{
		Score:   score,
		Label:   label,
		Signals: signals,
		Source:  model.SourceHeuristic,
	}
}
