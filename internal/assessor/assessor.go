package assessor

import (
	"context"

	"github.com/raysh454/phishlens/internal/model"
)

// Assessor is the offline scoring contract. Implementations never perform
// network I/O and always return a usable record.
type Assessor interface {
	// ScoreURL scores the payload URL with the weighted rule table.
	ScoreURL(ctx context.Context, payload *model.AnalysisPayload) model.ScoreRecord

	// ScoreText scores page text, links and forms with lure heuristics.
	ScoreText(ctx context.Context, payload *model.AnalysisPayload) model.ScoreRecord

	// Close releases any resources held by the assessor.
	Close() error
}
