package model

import "math"

// Score sources.
const (
	SourceLocal     = "local"
	SourceHeuristic = "heuristic"
	SourceServer    = "server"
)

// Labels produced by scorers and by label derivation.
const (
	LabelPhishing      = "phishing"
	LabelSuspicious    = "suspicious"
	LabelLegitimate    = "legitimate"
	LabelUnknown       = "unknown"
	LabelReview        = "review"
	LabelTrustedDomain = "trusted domain"
	LabelTrustedList   = "trusted list"
	LabelError         = "error"
)

// TextModelOffline is the text label used when the remote model could not be
// consulted.
const TextModelOffline = "Text model offline"

// ScoreRecord is what a scorer (local heuristic or remote model) produces.
// Treat it as immutable once returned.
type ScoreRecord struct {
	Score float64 `json:"score"`
	Label string  `json:"label"`

	// Signals are kept in detection order; duplicates are allowed.
	Signals []string `json:"signals"`
	Source  string   `json:"source"`

	// Per-model annotations. A nil score means the model gave no answer.
	URLScore  *float64 `json:"urlScore,omitempty"`
	URLLabel  string   `json:"urlLabel,omitempty"`
	TextScore *float64 `json:"textScore,omitempty"`
	TextLabel string   `json:"textLabel,omitempty"`
	TextError string   `json:"textError,omitempty"`
}

// Float returns a pointer to v, for the optional score fields.
func Float(v float64) *float64 {
	return &v
}

// Finite reports whether p holds a usable score.
func Finite(p *float64) bool {
	return p != nil && !math.IsNaN(*p) && !math.IsInf(*p, 0)
}

// Clamp01 bounds v to [0, 1]; NaN becomes 0.
func Clamp01(v float64) float64 {
	if math.IsNaN(v) || v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
