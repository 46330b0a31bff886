package analyzer

import (
	"bytes"
	"encoding/json"
	"strconv"
	"strings"

	"github.com/raysh454/phishlens/internal/model"
)

// ResponseKind tags which response shape a parser recognised.
type ResponseKind int

const (
	ResponseUnrecognized ResponseKind = iota
	ResponseCombined
	ResponseSingle
	ResponseHTML
)

func (k ResponseKind) String() string {
	switch k {
	case ResponseCombined:
		return "combined"
	case ResponseSingle:
		return "single"
	case ResponseHTML:
		return "html"
	default:
		return "unrecognized"
	}
}

// Prediction-only answers have no probability; these stand in for one.
const (
	predictedPhishingScore   = 0.85
	predictedLegitimateScore = 0.15
	modelPhishingCutoff      = 0.5
)

type responseParser struct {
	kind  ResponseKind
	parse func(body []byte, contentType string) (model.ScoreRecord, bool)
}

// parsers are tried in order; the first that succeeds wins.
var parsers = []responseParser{
	{ResponseCombined, parseCombined},
	{ResponseSingle, parseSingle},
	{ResponseHTML, parseHTML},
}

// Normalize turns a remote model response into a ScoreRecord. The kind is
// ResponseUnrecognized when no parser accepted the body.
func Normalize(body []byte, contentType string) (model.ScoreRecord, ResponseKind) {
	for _, p := range parsers {
		if rec, ok := p.parse(body, contentType); ok {
			return rec, p.kind
		}
	}
	return model.ScoreRecord{}, ResponseUnrecognized
}

func decodeObject(body []byte) (map[string]json.RawMessage, bool) {
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) == 0 || trimmed[0] != '{' {
		return nil, false
	}
	var obj map[string]json.RawMessage
	if err := json.Unmarshal(trimmed, &obj); err != nil {
		return nil, false
	}
	return obj, true
}

// parseCombined accepts {"url_model": {...}, "text_model": {...}}.
func parseCombined(body []byte, _ string) (model.ScoreRecord, bool) {
	obj, ok := decodeObject(body)
	if !ok {
		return model.ScoreRecord{}, false
	}
	urlObj, hasURL := subObject(obj, "url_model")
	textObj, hasText := subObject(obj, "text_model")
	if !hasURL && !hasText {
		return model.ScoreRecord{}, false
	}

	rec := model.ScoreRecord{Source: model.SourceServer, Signals: signalsOf(obj)}
	if hasURL {
		if s, ok := subModelScore(urlObj); ok {
			rec.URLScore = model.Float(s)
			rec.URLLabel = binaryLabel(s)
		}
	}
	if hasText {
		if s, ok := subModelScore(textObj); ok {
			rec.TextScore = model.Float(s)
			rec.TextLabel = binaryLabel(s)
		}
	}

	switch {
	case rec.URLScore != nil && rec.TextScore != nil:
		rec.Score = max(*rec.URLScore, *rec.TextScore)
	case rec.URLScore != nil:
		rec.Score = *rec.URLScore
	case rec.TextScore != nil:
		rec.Score = *rec.TextScore
	default:
		return model.ScoreRecord{}, false
	}
	rec.Label = binaryLabel(rec.Score)
	return rec, true
}

func subObject(obj map[string]json.RawMessage, key string) (map[string]json.RawMessage, bool) {
	raw, ok := obj[key]
	if !ok {
		return nil, false
	}
	return decodeObject(raw)
}

func subModelScore(obj map[string]json.RawMessage) (float64, bool) {
	if p, ok := firstNumber(obj, "probability", "phishing_probability", "score", "risk_score"); ok {
		return p, true
	}
	return predictionScore(obj, "prediction", "label")
}

// parseSingle accepts a flat object with one score and/or label.
func parseSingle(body []byte, _ string) (model.ScoreRecord, bool) {
	obj, ok := decodeObject(body)
	if !ok {
		return model.ScoreRecord{}, false
	}
	score, ok := firstNumber(obj, "risk_score", "riskScore", "score", "probability")
	if !ok {
		if score, ok = predictionScore(obj, "prediction", "label"); !ok {
			return model.ScoreRecord{}, false
		}
	}
	label := firstString(obj, "label", "prediction")
	if label == "" {
		label = binaryLabel(score)
	}
	return model.ScoreRecord{
		Score:    score,
		Label:    label,
		Signals:  signalsOf(obj),
		Source:   model.SourceServer,
		URLScore: model.Float(score),
		URLLabel: label,
	}, true
}

func binaryLabel(score float64) string {
	if score >= modelPhishingCutoff {
		return model.LabelPhishing
	}
	return model.LabelLegitimate
}

// firstNumber returns the first key holding a finite number, or a string
// that parses as one. Percentages above 1 are scaled down.
func firstNumber(obj map[string]json.RawMessage, keys ...string) (float64, bool) {
	for _, k := range keys {
		raw, ok := obj[k]
		if !ok {
			continue
		}
		var f float64
		if err := json.Unmarshal(raw, &f); err == nil {
			return normalizeProbability(f)
		}
		var s string
		if err := json.Unmarshal(raw, &s); err == nil {
			s = strings.TrimSuffix(strings.TrimSpace(s), "%")
			if f, err := strconv.ParseFloat(s, 64); err == nil {
				return normalizeProbability(f)
			}
		}
	}
	return 0, false
}

func normalizeProbability(f float64) (float64, bool) {
	if !model.Finite(&f) || f < 0 {
		return 0, false
	}
	if f > 1 {
		f /= 100
	}
	return model.Clamp01(f), true
}

func firstString(obj map[string]json.RawMessage, keys ...string) string {
	for _, k := range keys {
		var s string
		if raw, ok := obj[k]; ok && json.Unmarshal(raw, &s) == nil && strings.TrimSpace(s) != "" {
			return strings.TrimSpace(s)
		}
	}
	return ""
}

// predictionScore maps a class prediction (string or 0/1) to a stand-in score.
func predictionScore(obj map[string]json.RawMessage, keys ...string) (float64, bool) {
	for _, k := range keys {
		raw, ok := obj[k]
		if !ok {
			continue
		}
		var s string
		if json.Unmarshal(raw, &s) != nil {
			var n json.Number
			if json.Unmarshal(raw, &n) != nil {
				continue
			}
			s = n.String()
		}
		switch classOf(s) {
		case classPhishing:
			return predictedPhishingScore, true
		case classLegitimate:
			return predictedLegitimateScore, true
		}
	}
	return 0, false
}

type class int

const (
	classUnknown class = iota
	classPhishing
	classLegitimate
)

func classOf(s string) class {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "phishing", "phish", "malicious", "bad", "1", "true":
		return classPhishing
	case "legitimate", "legit", "benign", "safe", "good", "0", "false":
		return classLegitimate
	}
	return classUnknown
}

func signalsOf(obj map[string]json.RawMessage) []string {
	for _, k := range []string{"signals", "reasons"} {
		raw, ok := obj[k]
		if !ok {
			continue
		}
		var out []string
		if json.Unmarshal(raw, &out) == nil {
			return out
		}
	}
	return []string{}
}
