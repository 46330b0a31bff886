package analyzer_test

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"slices"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/raysh454/phishlens/internal/analyzer"
	"github.com/raysh454/phishlens/internal/assessor"
	"github.com/raysh454/phishlens/internal/logging"
	"github.com/raysh454/phishlens/internal/model"
	"github.com/raysh454/phishlens/internal/testutil"
	"github.com/raysh454/phishlens/internal/webclient"
)

func newClient(t *testing.T, cfg analyzer.Config) *analyzer.Client {
	t.Helper()
	wc, err := webclient.NewNetHTTPClient(webclient.DefaultConfig(), logging.NopLogger{}, nil)
	if err != nil {
		t.Fatalf("webclient: %v", err)
	}
	local, err := assessor.NewHeuristicsAssessor(assessor.DefaultConfig(), logging.NopLogger{})
	if err != nil {
		t.Fatalf("assessor: %v", err)
	}
	c, err := analyzer.NewClient(cfg, wc, local, &testutil.DummyLogger{})
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}
	t.Cleanup(func() { _ = c.Close() })
	return c
}

func settingsFor(base string) model.Settings {
	s := model.DefaultSettings()
	s.MLBaseURL = base
	return s
}

type captured struct {
	mu     sync.Mutex
	form   url.Values
	auth   string
	ctype  string
	method string
	path   string
}

func TestAnalyzeText_CombinedResponse(t *testing.T) {
	t.Parallel()
	var got captured
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got.mu.Lock()
		body, _ := io.ReadAll(r.Body)
		got.form, _ = url.ParseQuery(string(body))
		got.auth = r.Header.Get("Authorization")
		got.ctype = r.Header.Get("Content-Type")
		got.method = r.Method
		got.path = r.URL.Path
		got.mu.Unlock()
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, `{"url_model":{"probability":0.3},"text_model":{"probability":0.8}}`)
	}))
	defer ts.Close()

	c := newClient(t, analyzer.DefaultConfig())
	s := settingsFor(ts.URL + "/")
	s.APIKey = "secret"

	rec := c.AnalyzeText(context.Background(), &model.AnalysisPayload{URL: "https://example.com", Text: "hello"}, s, nil)

	if rec.Source != "server" || rec.Label != "phishing" || rec.Score != 0.8 {
		t.Errorf("unexpected record %+v", rec)
	}
	got.mu.Lock()
	defer got.mu.Unlock()
	if got.method != http.MethodPost || got.path != "/predict" {
		t.Errorf("request = %s %s, want POST /predict", got.method, got.path)
	}
	if got.form.Get("url") != "https://example.com" || got.form.Get("text") != "hello" || got.form.Get("model_type") != "combined" {
		t.Errorf("form = %v", got.form)
	}
	if got.auth != "Bearer secret" {
		t.Errorf("authorization = %q", got.auth)
	}
	if !strings.HasPrefix(got.ctype, "application/x-www-form-urlencoded") {
		t.Errorf("content type = %q", got.ctype)
	}
}

func TestAnalyzeText_URLOnlyModelType(t *testing.T) {
	t.Parallel()
	var form url.Values
	var mu sync.Mutex
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = r.ParseForm()
		mu.Lock()
		form = r.PostForm
		mu.Unlock()
		if r.Header.Get("Authorization") != "" {
			t.Errorf("unexpected authorization header")
		}
		_, _ = io.WriteString(w, `{"score":0.1,"label":"legitimate"}`)
	}))
	defer ts.Close()

	c := newClient(t, analyzer.DefaultConfig())
	rec := c.AnalyzeText(context.Background(), &model.AnalysisPayload{URL: "https://example.com"}, settingsFor(ts.URL), nil)

	mu.Lock()
	defer mu.Unlock()
	if form.Get("model_type") != "url" {
		t.Errorf("model_type = %q, want url", form.Get("model_type"))
	}
	if _, ok := form["text"]; ok {
		t.Errorf("text should be omitted when empty")
	}
	if rec.URLScore == nil || *rec.URLScore != 0.1 || rec.TextScore != nil {
		t.Errorf("unexpected record %+v", rec)
	}
}

func TestAnalyzeText_ForwardsActivePlugins(t *testing.T) {
	t.Parallel()
	var raw string
	var mu sync.Mutex
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = r.ParseForm()
		mu.Lock()
		raw = r.PostForm.Get("plugins")
		mu.Unlock()
		_, _ = io.WriteString(w, `{"score":0.2}`)
	}))
	defer ts.Close()

	c := newClient(t, analyzer.DefaultConfig())
	active := []model.ActivePlugin{{ID: "brand", Endpoint: "/plugins/brand", Settings: map[string]any{"strictness": "high"}}}
	c.AnalyzeText(context.Background(), &model.AnalysisPayload{URL: "https://example.com"}, settingsFor(ts.URL), active)

	sent := func() string {
		mu.Lock()
		defer mu.Unlock()
		return raw
	}
	var got []model.ActivePlugin
	if err := json.Unmarshal([]byte(sent()), &got); err != nil {
		t.Fatalf("plugins field %q: %v", sent(), err)
	}
	if len(got) != 1 || got[0].ID != "brand" || got[0].Settings["strictness"] != "high" {
		t.Errorf("plugins = %+v", got)
	}

	// No active plugins, no field.
	c.AnalyzeText(context.Background(), &model.AnalysisPayload{URL: "https://example.com"}, settingsFor(ts.URL), nil)
	if f := sent(); f != "" {
		t.Errorf("plugins field sent without active plugins: %q", f)
	}
}

func TestAnalyzeText_HTMLResponse(t *testing.T) {
	t.Parallel()
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		_, _ = io.WriteString(w, `<html><body><div class="result">This site is Phishing</div><b class="probability">97%</b></body></html>`)
	}))
	defer ts.Close()

	c := newClient(t, analyzer.DefaultConfig())
	rec := c.AnalyzeText(context.Background(), &model.AnalysisPayload{URL: "https://example.com"}, settingsFor(ts.URL), nil)
	if rec.Source != "server" || rec.Label != "phishing" || rec.URLScore == nil || *rec.URLScore != 0.97 {
		t.Errorf("unexpected record %+v", rec)
	}
}

func assertFallback(t *testing.T, rec model.ScoreRecord, kind model.ErrorKind) {
	t.Helper()
	if rec.Source != "local" {
		t.Errorf("source = %q, want local", rec.Source)
	}
	if len(rec.Signals) == 0 || rec.Signals[len(rec.Signals)-1] != "fallback: server" {
		t.Errorf("signals = %v, want trailing fallback signal", rec.Signals)
	}
	if rec.TextLabel != model.TextModelOffline {
		t.Errorf("textLabel = %q", rec.TextLabel)
	}
	if rec.URLScore == nil || *rec.URLScore != rec.Score || rec.URLLabel != rec.Label {
		t.Errorf("url annotations not copied from local score: %+v", rec)
	}
	if !strings.HasPrefix(rec.TextError, string(kind)) {
		t.Errorf("textError = %q, want prefix %q", rec.TextError, kind)
	}
}

func TestAnalyzeText_ServerErrorFallsBack(t *testing.T) {
	t.Parallel()
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	defer ts.Close()

	c := newClient(t, analyzer.DefaultConfig())
	rec := c.AnalyzeText(context.Background(), &model.AnalysisPayload{URL: "http://192.168.1.5/login.php?verify=1"}, settingsFor(ts.URL), nil)
	assertFallback(t, rec, model.KindNetwork)
	if !slices.Contains(rec.Signals, "ip address in url") {
		t.Errorf("expected local signals, got %v", rec.Signals)
	}
	if !strings.Contains(rec.TextError, "500") {
		t.Errorf("textError should mention status, got %q", rec.TextError)
	}
}

func TestAnalyzeText_UnreachableFallsBack(t *testing.T) {
	t.Parallel()
	c := newClient(t, analyzer.DefaultConfig())
	rec := c.AnalyzeText(context.Background(), &model.AnalysisPayload{URL: "https://example.com"}, settingsFor("http://127.0.0.1:1"), nil)
	assertFallback(t, rec, model.KindNetwork)
}

func TestAnalyzeText_TimeoutFallsBack(t *testing.T) {
	t.Parallel()
	release := make(chan struct{})
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer ts.Close()
	defer close(release)

	c := newClient(t, analyzer.Config{RequestTimeout: 100 * time.Millisecond})
	started := time.Now()
	rec := c.AnalyzeText(context.Background(), &model.AnalysisPayload{URL: "https://example.com"}, settingsFor(ts.URL), nil)
	if time.Since(started) > 2*time.Second {
		t.Errorf("request was not bounded by its timeout")
	}
	assertFallback(t, rec, model.KindTimeout)
}

func TestAnalyzeText_UnrecognizedShapeFallsBack(t *testing.T) {
	t.Parallel()
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, `{"status":"ok"}`)
	}))
	defer ts.Close()

	c := newClient(t, analyzer.DefaultConfig())
	rec := c.AnalyzeText(context.Background(), &model.AnalysisPayload{URL: "https://example.com"}, settingsFor(ts.URL), nil)
	assertFallback(t, rec, model.KindResponseShape)
}

func TestAnalyzeText_LocalTextFallback(t *testing.T) {
	t.Parallel()
	c := newClient(t, analyzer.DefaultConfig())
	s := settingsFor("http://127.0.0.1:1")
	s.LocalTextFallback = true

	rec := c.AnalyzeText(context.Background(), &model.AnalysisPayload{
		URL:  "https://example.com",
		Text: "Your account is suspended, enter your password",
	}, s, nil)

	if rec.Source != "heuristic" {
		t.Errorf("source = %q, want heuristic", rec.Source)
	}
	if rec.TextScore == nil || rec.TextLabel == model.TextModelOffline {
		t.Errorf("expected heuristic text score, got %+v", rec)
	}
	if rec.TextError == "" {
		t.Errorf("textError should still record the failure")
	}
	if rec.Signals[len(rec.Signals)-1] != "fallback: server" {
		t.Errorf("signals = %v", rec.Signals)
	}
}

func TestAnalyzeText_NilPayload(t *testing.T) {
	t.Parallel()
	c := newClient(t, analyzer.DefaultConfig())
	rec := c.AnalyzeText(context.Background(), nil, settingsFor("http://127.0.0.1:1"), nil)
	if rec.Label != "unknown" {
		t.Errorf("label = %q, want unknown for empty url", rec.Label)
	}
}

func TestPing(t *testing.T) {
	t.Parallel()
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/health" {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		_, _ = io.WriteString(w, "ok")
	}))
	defer ts.Close()

	c := newClient(t, analyzer.DefaultConfig())

	res := c.Ping(context.Background(), settingsFor(ts.URL))
	if !res.OK || !strings.HasSuffix(res.Latency, "ms") {
		t.Errorf("ping = %+v", res)
	}

	s := settingsFor(ts.URL)
	s.MLHealthPath = "missing"
	res = c.Ping(context.Background(), s)
	if res.OK || res.Latency == "--" {
		t.Errorf("non-2xx ping = %+v, want ok=false with latency", res)
	}

	res = c.Ping(context.Background(), settingsFor("http://127.0.0.1:1"))
	if res.OK || res.Latency != "--" {
		t.Errorf("unreachable ping = %+v", res)
	}
}

func TestNewClient_RequiresDependencies(t *testing.T) {
	t.Parallel()
	local, _ := assessor.NewHeuristicsAssessor(assessor.DefaultConfig(), logging.NopLogger{})
	if _, err := analyzer.NewClient(analyzer.DefaultConfig(), nil, local, nil); err == nil {
		t.Error("expected error for nil webclient")
	}
	if _, err := analyzer.NewClient(analyzer.DefaultConfig(), &testutil.DummyWebClient{}, nil, nil); err == nil {
		t.Error("expected error for nil assessor")
	}
}
