package fusion

import (
	"time"

	"github.com/raysh454/phishlens/internal/model"
)

// TrustedResult is the fixed low-risk result for allow-listed pages.
func TrustedResult(url string, threshold float64, now time.Time) model.FusedResult {
	return model.FusedResult{
		URL:         url,
		RiskScore:   TrustedRiskScore,
		Label:       model.LabelTrustedDomain,
		Signals:     []string{SignalTrustedList},
		Engine:      EngineTrustedList,
		URLScore:    nil,
		URLLabel:    model.LabelTrustedList,
		TextScore:   nil,
		TextLabel:   model.LabelTrustedList,
		Threshold:   threshold,
		LedgerCount: 0,
		At:          now.UnixMilli(),
	}
}

// ErrorResult is what an analysis that failed end to end resolves to.
func ErrorResult(url, reason string, now time.Time) model.FusedResult {
	if reason == "" {
		reason = "analysis failed"
	}
	return model.FusedResult{
		URL:       url,
		RiskScore: 0,
		Label:     model.LabelError,
		Signals:   []string{reason},
		Engine:    EngineError,
		Threshold: 1,
		At:        now.UnixMilli(),
	}
}
