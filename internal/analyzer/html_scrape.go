package analyzer

import (
	"bytes"
	"regexp"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/raysh454/phishlens/internal/model"
)

var (
	percentPattern = regexp.MustCompile(`(\d{1,3}(?:\.\d+)?)\s*%`)
	tagPattern     = regexp.MustCompile(`(?i)\b(phishing|phish|malicious|legitimate|legit|benign|safe)\b`)
)

// Elements that result pages commonly use for the verdict. They are read
// before falling back to the whole document text.
var verdictSelectors = []string{
	".probability", "#probability",
	".prediction", "#prediction", ".result", "#result", ".verdict",
}

// parseHTML scrapes a percentage and a phishing/legitimate tag from an HTML
// result page. The percentage is read as confidence in the tag.
func parseHTML(body []byte, contentType string) (model.ScoreRecord, bool) {
	trimmed := bytes.TrimSpace(body)
	if !strings.Contains(strings.ToLower(contentType), "html") &&
		(len(trimmed) == 0 || trimmed[0] != '<') {
		return model.ScoreRecord{}, false
	}
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(trimmed))
	if err != nil {
		return model.ScoreRecord{}, false
	}

	var focused strings.Builder
	for _, sel := range verdictSelectors {
		doc.Find(sel).Each(func(_ int, s *goquery.Selection) {
			focused.WriteString(s.Text())
			focused.WriteString(" ")
		})
	}

	pct, hasPct, tag := scrapeVerdict(focused.String())
	if !hasPct || tag == classUnknown {
		p2, has2, t2 := scrapeVerdict(doc.Find("body").Text())
		if !hasPct {
			pct, hasPct = p2, has2
		}
		if tag == classUnknown {
			tag = t2
		}
	}

	var score float64
	switch {
	case hasPct && tag == classPhishing:
		score = pct
	case hasPct && tag == classLegitimate:
		score = 1 - pct
	case hasPct:
		score = pct
	case tag == classPhishing:
		score = predictedPhishingScore
	case tag == classLegitimate:
		score = predictedLegitimateScore
	default:
		return model.ScoreRecord{}, false
	}
	score = model.Clamp01(score)

	label := binaryLabel(score)
	return model.ScoreRecord{
		Score:    score,
		Label:    label,
		Signals:  []string{},
		Source:   model.SourceServer,
		URLScore: model.Float(score),
		URLLabel: label,
	}, true
}

func scrapeVerdict(text string) (pct float64, hasPct bool, tag class) {
	if m := percentPattern.FindStringSubmatch(text); m != nil {
		if v, err := strconv.ParseFloat(m[1], 64); err == nil && v <= 100 {
			pct, hasPct = v/100, true
		}
	}
	if m := tagPattern.FindStringSubmatch(text); m != nil {
		tag = classOf(m[1])
	}
	return pct, hasPct, tag
}
