package assessor

import (
	"context"
	"testing"

	"github.com/raysh454/phishlens/internal/logging"
	"github.com/raysh454/phishlens/internal/model"
)

func payload(raw string) *model.AnalysisPayload {
	return &model.AnalysisPayload{URL: raw}
}

func TestNewHeuristicsAssessor_NilLogger(t *testing.T) {
	t.Parallel()
	if _, err := NewHeuristicsAssessor(DefaultConfig(), nil); err == nil {
		t.Fatal("expected error for nil logger")
	}
}

func TestHeuristicsAssessor_ScoreURLMatchesLocalScore(t *testing.T) {
	t.Parallel()
	a, err := NewHeuristicsAssessor(DefaultConfig(), logging.NopLogger{})
	if err != nil {
		t.Fatalf("NewHeuristicsAssessor: %v", err)
	}
	defer a.Close()

	var _ Assessor = a

	p := payload("http://paypal-secure-login.tk/verify")
	got := a.ScoreURL(context.Background(), p)
	want := LocalURLScore(p)
	if got.Score != want.Score || got.Label != want.Label || len(got.Signals) != len(want.Signals) {
		t.Errorf("ScoreURL = %+v, want %+v", got, want)
	}
	if got.Label != "phishing" && got.Label != "suspicious" {
		t.Errorf("expected a risky label, got %q (score %v)", got.Label, got.Score)
	}
}

func TestHeuristicsAssessor_ScoreText(t *testing.T) {
	t.Parallel()
	a, err := NewHeuristicsAssessor(DefaultConfig(), logging.NopLogger{})
	if err != nil {
		t.Fatal(err)
	}
	rec := a.ScoreText(context.Background(), &model.AnalysisPayload{Text: "verify your account password"})
	if rec.Source != model.SourceHeuristic {
		t.Errorf("source = %q", rec.Source)
	}
	if rec.Score <= 0.12 {
		t.Errorf("score = %v, expected bumps over base", rec.Score)
	}
}
