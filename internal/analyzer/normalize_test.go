package analyzer

import (
	"math"
	"testing"
)

func TestNormalize_Shapes(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name        string
		body        string
		contentType string
		kind        ResponseKind
		score       float64
		label       string
		hasURL      bool
		hasText     bool
	}{
		{
			name:  "combined probabilities take the max",
			body:  `{"url_model":{"probability":0.2},"text_model":{"probability":0.9}}`,
			kind:  ResponseCombined,
			score: 0.9, label: "phishing", hasURL: true, hasText: true,
		},
		{
			name:  "combined prediction only",
			body:  `{"url_model":{"prediction":"phishing"},"text_model":{"prediction":"legitimate"}}`,
			kind:  ResponseCombined,
			score: 0.85, label: "phishing", hasURL: true, hasText: true,
		},
		{
			name:  "combined numeric prediction",
			body:  `{"url_model":{"prediction":0}}`,
			kind:  ResponseCombined,
			score: 0.15, label: "legitimate", hasURL: true,
		},
		{
			name:  "combined text only",
			body:  `{"text_model":{"probability":"0.4"}}`,
			kind:  ResponseCombined,
			score: 0.4, label: "legitimate", hasText: true,
		},
		{
			name:  "single risk_score",
			body:  `{"risk_score":0.77,"label":"phishing","signals":["a","b"]}`,
			kind:  ResponseSingle,
			score: 0.77, label: "phishing", hasURL: true,
		},
		{
			name:  "single camelCase with derived label",
			body:  `{"riskScore":0.3}`,
			kind:  ResponseSingle,
			score: 0.3, label: "legitimate", hasURL: true,
		},
		{
			name:  "single prediction only",
			body:  `{"prediction":"phishing"}`,
			kind:  ResponseSingle,
			score: 0.85, label: "phishing", hasURL: true,
		},
		{
			name:  "single percentage",
			body:  `{"probability":64}`,
			kind:  ResponseSingle,
			score: 0.64, label: "phishing", hasURL: true,
		},
		{
			name:        "html phishing percentage",
			body:        `<html><body><div class="result">Phishing</div><span class="probability">92.5%</span></body></html>`,
			contentType: "text/html",
			kind:        ResponseHTML,
			score:       0.925, label: "phishing", hasURL: true,
		},
		{
			name:  "html legitimate confidence inverts",
			body:  `<html><body><p>Prediction: Legitimate (confidence 80%)</p></body></html>`,
			kind:  ResponseHTML,
			score: 0.2, label: "legitimate", hasURL: true,
		},
		{
			name:  "html tag only",
			body:  `<html><body><h1>PHISHING</h1></body></html>`,
			kind:  ResponseHTML,
			score: 0.85, label: "phishing", hasURL: true,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			rec, kind := Normalize([]byte(tt.body), tt.contentType)
			if kind != tt.kind {
				t.Fatalf("kind = %v, want %v", kind, tt.kind)
			}
			if math.Abs(rec.Score-tt.score) > 1e-9 {
				t.Errorf("score = %v, want %v", rec.Score, tt.score)
			}
			if rec.Label != tt.label {
				t.Errorf("label = %q, want %q", rec.Label, tt.label)
			}
			if (rec.URLScore != nil) != tt.hasURL {
				t.Errorf("urlScore present = %v, want %v", rec.URLScore != nil, tt.hasURL)
			}
			if (rec.TextScore != nil) != tt.hasText {
				t.Errorf("textScore present = %v, want %v", rec.TextScore != nil, tt.hasText)
			}
			if rec.Source != "server" {
				t.Errorf("source = %q", rec.Source)
			}
		})
	}
}

func TestNormalize_Unrecognized(t *testing.T) {
	t.Parallel()
	bodies := []string{
		``,
		`[]`,
		`"just a string"`,
		`{"status":"ok"}`,
		`{"label":"unsure"}`,
		`{"url_model":{"prediction":"maybe"}}`,
		`<html><body>nothing to see</body></html>`,
		`plain text 90% phishing`,
	}
	for _, b := range bodies {
		if _, kind := Normalize([]byte(b), "application/json"); kind != ResponseUnrecognized {
			t.Errorf("Normalize(%q) kind = %v, want unrecognized", b, kind)
		}
	}
}

func TestNormalize_SignalsAndReasons(t *testing.T) {
	t.Parallel()
	rec, _ := Normalize([]byte(`{"score":0.5,"reasons":["r1"]}`), "")
	if len(rec.Signals) != 1 || rec.Signals[0] != "r1" {
		t.Errorf("signals = %v, want [r1]", rec.Signals)
	}
}

func TestResponseKind_String(t *testing.T) {
	t.Parallel()
	want := map[ResponseKind]string{
		ResponseUnrecognized: "unrecognized",
		ResponseCombined:     "combined",
		ResponseSingle:       "single",
		ResponseHTML:         "html",
	}
	for k, s := range want {
		if k.String() != s {
			t.Errorf("%d.String() = %q, want %q", k, k.String(), s)
		}
	}
}
