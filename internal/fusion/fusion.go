// Package fusion blends URL and text model scores and derives the final
// label of an analysis.
package fusion

import (
	"math"

	"github.com/raysh454/phishlens/internal/model"
)

const (
	// DisagreementGap is the score spread at which the models are said to
	// disagree.
	DisagreementGap = 0.45

	// DampingCeiling: on disagreement, a low side under this value pulls the
	// fused score toward itself.
	DampingCeiling = 0.35

	// MaxLedgerBoost caps the configured ledger boost.
	MaxLedgerBoost = 0.35

	// MaxRiskScore caps a boosted score.
	MaxRiskScore = 0.98

	TrustedRiskScore = 0.02

	SignalDisagreement = "model disagreement"
	SignalLedger       = "ledger reports"
	SignalTrustedList  = "trusted list"

	EngineTrustedList = "trusted list"
	EngineError       = "error"
)

// FuseScores combines the two model scores. Nil or non-finite inputs count
// as absent. The returned signals hold "model disagreement" whenever both
// scores are present and at least DisagreementGap apart.
func FuseScores(urlScore, textScore *float64) (float64, []string) {
	hasURL, hasText := model.Finite(urlScore), model.Finite(textScore)
	switch {
	case !hasURL && !hasText:
		return 0, nil
	case !hasText:
		return model.Clamp01(*urlScore), nil
	case !hasURL:
		return model.Clamp01(*textScore), nil
	}

	u, t := *urlScore, *textScore
	high, low := math.Max(u, t), math.Min(u, t)

	var signals []string
	disagree := high-low >= DisagreementGap
	if disagree {
		signals = append(signals, SignalDisagreement)
	}

	var fused float64
	if disagree && low < DampingCeiling {
		fused = 0.7*low + 0.3*high
	} else {
		fused = 0.65*u + 0.35*t
	}
	return model.Clamp01(fused), signals
}

// DeriveLabel maps a fused score to phishing, review or legitimate. Review
// flags a page whose fused score stayed under threshold while one of two
// present sub-scores reached it.
func DeriveLabel(fused float64, urlScore, textScore *float64, threshold float64) string {
	if fused >= threshold {
		return model.LabelPhishing
	}
	if model.Finite(urlScore) && model.Finite(textScore) && math.Max(*urlScore, *textScore) >= threshold {
		return model.LabelReview
	}
	return model.LabelLegitimate
}

// ApplyLedgerBoost raises score for a domain with prior reports. The bool
// is true when a boost was applied.
func ApplyLedgerBoost(score float64, count int, boost float64) (float64, bool) {
	if count < 1 {
		return score, false
	}
	boost = math.Max(0, math.Min(boost, MaxLedgerBoost))
	return math.Min(MaxRiskScore, score+boost), true
}
