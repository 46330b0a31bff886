// Package analyzer talks to the remote prediction service and turns its
// answers, whatever their shape, into a model.ScoreRecord.
package analyzer

import (
	"context"

	"github.com/raysh454/phishlens/internal/model"
)

// Analyzer is the remote scoring contract used by the orchestrator.
type Analyzer interface {
	// AnalyzeText scores payload with the remote model, asking it to run the
	// active plugins too. It never fails: any transport or decoding problem
	// yields a locally computed fallback record.
	AnalyzeText(ctx context.Context, payload *model.AnalysisPayload, settings model.Settings, active []model.ActivePlugin) model.ScoreRecord

	// Ping calls the health endpoint.
	Ping(ctx context.Context, settings model.Settings) model.PingResult

	Close() error
}
