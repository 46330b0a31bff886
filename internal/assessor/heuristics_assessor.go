package assessor

import (
	"context"
	"errors"

	"github.com/raysh454/phishlens/internal/logging"
	"github.com/raysh454/phishlens/internal/model"
)

// LocalURLScore scores payload.URL with the URL rule table. An unparseable
// URL yields a neutral "unknown" record rather than an error.
func LocalURLScore(payload *model.AnalysisPayload) model.ScoreRecord {
	raw := ""
	if payload != nil {
		raw = payload.URL
	}
	f, err := ExtractURLFeatures(raw)
	if err != nil {
		return model.ScoreRecord{
			Score:   0,
			Label:   model.LabelUnknown,
			Signals: []string{"invalid url"},
			Source:  model.SourceLocal,
		}
	}
	score, signals, _ := EvaluateURLRules(f, URLRules)
	return model.ScoreRecord{
		Score:   score,
		Label:   URLLabel(score),
		Signals: signals,
		Source:  model.SourceLocal,
	}
}

// HeuristicsAssessor is the rule-driven implementation of Assessor.
type HeuristicsAssessor struct {
	cfg    Config
	logger logging.Logger
}

// NewHeuristicsAssessor constructs a heuristics-based assessor.
func NewHeuristicsAssessor(cfg Config, logger logging.Logger) (*HeuristicsAssessor, error) {
	if logger == nil {
		return nil, errors.New("assessor: nil logger; please pass a valid logging.Logger")
	}
	l := logger.With(logging.Field{Key: "component", Value: "heuristics-assessor"})
	l.Debug("heuristics assessor constructed",
		logging.Field{Key: "scoring_version", Value: cfg.ScoringVersion},
		logging.Field{Key: "rules", Value: len(URLRules)})
	return &HeuristicsAssessor{cfg: cfg, logger: l}, nil
}

// ScoreURL implements Assessor.
func (h *HeuristicsAssessor) ScoreURL(ctx context.Context, payload *model.AnalysisPayload) model.ScoreRecord {
	rec := LocalURLScore(payload)
	if rec.Label == model.LabelUnknown {
		h.logger.Debug("url not parseable",
			logging.Field{Key: "kind", Value: model.KindInvalidInput})
	}
	h.logger.Debug("scored url",
		logging.Field{Key: "score", Value: rec.Score},
		logging.Field{Key: "signals", Value: len(rec.Signals)},
		logging.Field{Key: "scoring_version", Value: h.cfg.ScoringVersion})
	return rec
}

// ScoreText implements Assessor.
func (h *HeuristicsAssessor) ScoreText(ctx context.Context, payload *model.AnalysisPayload) model.ScoreRecord {
	rec := TextHeuristicScore(payload)
	h.logger.Debug("scored text",
		logging.Field{Key: "score", Value: rec.Score},
		logging.Field{Key: "signals", Value: len(rec.Signals)})
	return rec
}

// Close releases resources (currently a no-op).
func (h *HeuristicsAssessor) Close() error {
	h.logger.Debug("heuristics-assessor: closed")
	return nil
}
