package server_test

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/raysh454/phishlens/internal/analyzer"
	"github.com/raysh454/phishlens/internal/app"
	"github.com/raysh454/phishlens/internal/assessor"
	"github.com/raysh454/phishlens/internal/collector"
	"github.com/raysh454/phishlens/internal/ledger"
	"github.com/raysh454/phishlens/internal/logging"
	"github.com/raysh454/phishlens/internal/mockmodel"
	"github.com/raysh454/phishlens/internal/model"
	"github.com/raysh454/phishlens/internal/plugins"
	"github.com/raysh454/phishlens/internal/server"
	"github.com/raysh454/phishlens/internal/store"
	"github.com/raysh454/phishlens/internal/testutil"
	"github.com/raysh454/phishlens/internal/webclient"
)

const lurePage = `<html lang="en"><head><title>Verify</title></head><body>
<p>Verify your account password</p>
<form><input type="password" name="password"></form></body></html>`

func newTestServer(t *testing.T) *server.Server {
	t.Helper()
	logger := &testutil.DummyLogger{}

	mock := httptest.NewServer(mockmodel.New(mockmodel.DefaultConfig(), logging.NopLogger{}))
	t.Cleanup(mock.Close)

	st := store.NewState(store.NewMemoryKV())
	if _, err := st.PatchSettings(t.Context(), []byte(`{"mlBaseUrl":"`+mock.URL+`","storeHistory":true}`)); err != nil {
		t.Fatalf("settings: %v", err)
	}
	led, err := ledger.NewService(st, logger)
	if err != nil {
		t.Fatalf("ledger: %v", err)
	}
	wc, err := webclient.NewNetHTTPClient(webclient.DefaultConfig(), logger, nil)
	if err != nil {
		t.Fatalf("webclient: %v", err)
	}
	local, err := assessor.NewHeuristicsAssessor(assessor.DefaultConfig(), logger)
	if err != nil {
		t.Fatalf("assessor: %v", err)
	}
	an, err := analyzer.NewClient(analyzer.DefaultConfig(), wc, local, logger)
	if err != nil {
		t.Fatalf("analyzer: %v", err)
	}
	t.Cleanup(func() { _ = an.Close() })

	pages := &testutil.DummyWebClient{Pages: map[string]string{"https://lure.example/login": lurePage}}
	col, err := collector.New(collector.DefaultConfig(), pages, logger)
	if err != nil {
		t.Fatalf("collector: %v", err)
	}

	orch, err := app.NewOrchestrator(app.DefaultConfig(), app.Deps{State: st, Ledger: led, Analyzer: an, Collector: col}, logger)
	if err != nil {
		t.Fatalf("orchestrator: %v", err)
	}
	t.Cleanup(orch.Close)

	s, err := server.NewServer(server.Config{ListenAddr: ":0", Logger: logger}, orch)
	if err != nil {
		t.Fatalf("NewServer: %v", err)
	}
	return s
}

func doJSON(t *testing.T, s http.Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	s.ServeHTTP(rec, req)
	return rec
}

func decodeJSON(t *testing.T, rec *httptest.ResponseRecorder, v any) {
	t.Helper()
	if err := json.NewDecoder(rec.Body).Decode(v); err != nil {
		t.Fatalf("decode JSON response: %v (body: %s)", err, rec.Body.String())
	}
}

// ─── CORS ──────────────────────────────────────────────────────────────

func TestServer_CORS_HeaderPresent(t *testing.T) {
	t.Parallel()
	s := newTestServer(t)

	rec := doJSON(t, s, "GET", "/settings", "")

	if origin := rec.Header().Get("Access-Control-Allow-Origin"); origin != "*" {
		t.Errorf("expected CORS origin *, got %q", origin)
	}
}

func TestServer_OptionsPreflight(t *testing.T) {
	t.Parallel()
	s := newTestServer(t)

	rec := doJSON(t, s, "OPTIONS", "/settings", "")
	if rec.Code != http.StatusNoContent {
		t.Errorf("expected 204 for OPTIONS, got %d", rec.Code)
	}
	if methods := rec.Header().Get("Access-Control-Allow-Methods"); !strings.Contains(methods, "PATCH") {
		t.Errorf("Allow-Methods = %q", methods)
	}
}

// ─── Analysis ──────────────────────────────────────────────────────────

func TestServer_Analyze(t *testing.T) {
	t.Parallel()
	s := newTestServer(t)

	rec := doJSON(t, s, "POST", "/analyze", `{"url":"http://192.168.1.5/login.php?verify=1"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	var res model.FusedResult
	decodeJSON(t, rec, &res)
	if res.Engine != model.SourceServer || res.ID == "" || res.URLScore == nil {
		t.Errorf("result = %+v", res)
	}

	rec = doJSON(t, s, "GET", "/scans/last", "")
	var last model.FusedResult
	decodeJSON(t, rec, &last)
	if last.ID != res.ID {
		t.Errorf("last scan %q, want %q", last.ID, res.ID)
	}
}

func TestServer_Analyze_InvalidJSON(t *testing.T) {
	t.Parallel()
	s := newTestServer(t)

	if rec := doJSON(t, s, "POST", "/analyze", `{invalid}`); rec.Code != http.StatusBadRequest {
		t.Errorf("expected 400, got %d", rec.Code)
	}
}

func TestServer_LastScan_Empty(t *testing.T) {
	t.Parallel()
	s := newTestServer(t)

	if rec := doJSON(t, s, "GET", "/scans/last", ""); rec.Code != http.StatusNotFound {
		t.Errorf("expected 404, got %d", rec.Code)
	}
}

func TestServer_Scan(t *testing.T) {
	t.Parallel()
	s := newTestServer(t)

	rec := doJSON(t, s, "POST", "/scan", `{"url":"https://lure.example/login"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	if rec := doJSON(t, s, "POST", "/scan", `{"source":"manual"}`); rec.Code != http.StatusBadRequest {
		t.Errorf("missing url: expected 400, got %d", rec.Code)
	}

	doJSON(t, s, "PATCH", "/settings", `{"autoScan":false}`)
	if rec := doJSON(t, s, "POST", "/scan", `{"url":"https://lure.example/login","source":"auto"}`); rec.Code != http.StatusConflict {
		t.Errorf("auto scan while disabled: expected 409, got %d", rec.Code)
	}
}

func TestServer_ScanBatch(t *testing.T) {
	t.Parallel()
	s := newTestServer(t)

	rec := doJSON(t, s, "POST", "/scan/batch", `{"urls":["https://a.example","https://b.example","https://c.example"],"concurrency":2}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	var results []model.FusedResult
	decodeJSON(t, rec, &results)
	if len(results) != 3 || results[1].URL != "https://b.example" {
		t.Errorf("results = %+v", results)
	}

	rec = doJSON(t, s, "GET", "/scans/history", "")
	var history []model.FusedResult
	decodeJSON(t, rec, &history)
	if len(history) != 3 {
		t.Errorf("history len = %d", len(history))
	}

	if rec := doJSON(t, s, "POST", "/scan/batch", `{"urls":[]}`); rec.Code != http.StatusBadRequest {
		t.Errorf("empty batch: expected 400, got %d", rec.Code)
	}
}

// ─── Ledger ────────────────────────────────────────────────────────────

func TestServer_Reports(t *testing.T) {
	t.Parallel()
	s := newTestServer(t)

	rec := doJSON(t, s, "POST", "/reports", `{"url":"https://phish.example/login"}`)
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
	}
	var rep model.ReportResult
	decodeJSON(t, rec, &rep)
	if !rep.OK || rep.Domain != "phish.example" || rep.Count != 1 {
		t.Errorf("report = %+v", rep)
	}

	rec = doJSON(t, s, "GET", "/reports/status?url=phish.example", "")
	var info model.LedgerInfo
	decodeJSON(t, rec, &info)
	if info.Count != 1 || info.LastAt == nil || info.Hash != rep.Hash {
		t.Errorf("info = %+v", info)
	}

	rec = doJSON(t, s, "GET", "/ledger/verify", "")
	var v ledger.VerifyReport
	decodeJSON(t, rec, &v)
	if !v.Valid || !v.HeadMatches || v.Checked != 1 {
		t.Errorf("verify = %+v", v)
	}
}

func TestServer_Reports_Invalid(t *testing.T) {
	t.Parallel()
	s := newTestServer(t)

	rec := doJSON(t, s, "POST", "/reports", `{"url":"   "}`)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
	var rep model.ReportResult
	decodeJSON(t, rec, &rep)
	if rep.OK || rep.Error != ledger.InvalidDomain {
		t.Errorf("report = %+v", rep)
	}

	if rec := doJSON(t, s, "GET", "/reports/status", ""); rec.Code != http.StatusBadRequest {
		t.Errorf("missing url param: expected 400, got %d", rec.Code)
	}
}

// ─── Settings and backend ──────────────────────────────────────────────

func TestServer_Settings(t *testing.T) {
	t.Parallel()
	s := newTestServer(t)

	rec := doJSON(t, s, "PATCH", "/settings", `{"globalThreshold":0.5,"trustedDomains":["example.org"]}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	rec = doJSON(t, s, "GET", "/settings", "")
	var st model.Settings
	decodeJSON(t, rec, &st)
	if st.GlobalThreshold != 0.5 || len(st.TrustedDomains) != 1 || st.MLPath != "/predict" {
		t.Errorf("settings = %+v", st)
	}

	if rec := doJSON(t, s, "PATCH", "/settings", `{"globalThreshold":7}`); rec.Code != http.StatusBadRequest {
		t.Errorf("invalid patch: expected 400, got %d", rec.Code)
	}
}

// ─── Plugins ───────────────────────────────────────────────────────────

func TestServer_Plugins(t *testing.T) {
	t.Parallel()
	s := newTestServer(t)

	rec := doJSON(t, s, "GET", "/plugins", "")
	var list server.PluginsResponse
	decodeJSON(t, rec, &list)
	if len(list.Plugins) == 0 || list.Active != plugins.CountActive(list.Plugins) {
		t.Fatalf("catalog = %+v", list)
	}

	rec = doJSON(t, s, "PATCH", "/plugins/homoglyph", `{"enabled":true,"settings":{"sensitivity":0.8}}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("patch: %d %s", rec.Code, rec.Body.String())
	}
	var view model.PluginView
	decodeJSON(t, rec, &view)
	if !view.Enabled || view.SettingsMap["sensitivity"] != 0.8 {
		t.Errorf("patched = %+v", view)
	}

	rec = doJSON(t, s, "PUT", "/plugins/brand-impersonation/settings/strictness", `{"value":"high"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("put setting: %d %s", rec.Code, rec.Body.String())
	}

	rec = doJSON(t, s, "POST", "/plugins/import", `[{"id":"qr","name":"QR codes","defaultEnabled":true}]`)
	decodeJSON(t, rec, &list)
	if _, ok := plugins.Find(list.Plugins, "qr"); !ok || rec.Code != http.StatusOK {
		t.Errorf("import: %d %+v", rec.Code, list)
	}

	rec = doJSON(t, s, "DELETE", "/plugins", "")
	if rec.Code != http.StatusNoContent {
		t.Errorf("reset: %d", rec.Code)
	}
	decodeJSON(t, doJSON(t, s, "GET", "/plugins", ""), &list)
	if _, ok := plugins.Find(list.Plugins, "qr"); ok {
		t.Error("imported plugin survived reset")
	}
}

func TestServer_Plugins_Errors(t *testing.T) {
	t.Parallel()
	s := newTestServer(t)

	tests := []struct {
		name, method, path, body string
		want                     int
	}{
		{"unknown plugin", "PATCH", "/plugins/nope", `{"enabled":true}`, http.StatusNotFound},
		{"unknown field", "PATCH", "/plugins/homoglyph", `{"colour":1}`, http.StatusBadRequest},
		{"bad value", "PATCH", "/plugins/homoglyph", `{"settings":{"sensitivity":"max"}}`, http.StatusBadRequest},
		{"unknown setting", "PUT", "/plugins/homoglyph/settings/nope", `{"value":1}`, http.StatusBadRequest},
		{"bad import", "POST", "/plugins/import", `{"version":"1"}`, http.StatusBadRequest},
		{"preflight", "OPTIONS", "/plugins/homoglyph", "", http.StatusNoContent},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if rec := doJSON(t, s, tt.method, tt.path, tt.body); rec.Code != tt.want {
				t.Errorf("%s %s = %d, want %d (%s)", tt.method, tt.path, rec.Code, tt.want, rec.Body.String())
			}
		})
	}
}

func TestServer_Ping(t *testing.T) {
	t.Parallel()
	s := newTestServer(t)

	rec := doJSON(t, s, "GET", "/backend/ping", "")
	var p model.PingResult
	decodeJSON(t, rec, &p)
	if !p.OK || !strings.HasSuffix(p.Latency, "ms") {
		t.Errorf("ping = %+v", p)
	}
}

func TestServer_Swagger(t *testing.T) {
	t.Parallel()
	s := newTestServer(t)

	rec := doJSON(t, s, "GET", "/swagger/doc.json", "")
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), "PhishLens API") {
		t.Errorf("swagger doc: %d %s", rec.Code, rec.Body.String())
	}
	var doc struct {
		Paths map[string]json.RawMessage `json:"paths"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &doc); err != nil {
		t.Fatalf("doc.json is not valid JSON: %v", err)
	}
	for _, path := range []string{"/analyze", "/settings", "/plugins", "/plugins/{id}", "/plugins/{id}/settings/{setting}", "/plugins/import"} {
		if _, ok := doc.Paths[path]; !ok {
			t.Errorf("doc.json is missing %s", path)
		}
	}
}

// ─── WebSocket feed ────────────────────────────────────────────────────

func TestServer_ScansWebSocket(t *testing.T) {
	t.Parallel()
	s := newTestServer(t)
	ts := httptest.NewServer(s)
	defer ts.Close()

	conn, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(ts.URL, "http")+"/ws/scans", nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	// The subscription is registered after the upgrade completes, so keep
	// analysing until the feed delivers something.
	stop := make(chan struct{})
	defer close(stop)
	go func() {
		for {
			select {
			case <-stop:
				return
			case <-time.After(20 * time.Millisecond):
				resp, err := http.Post(ts.URL+"/analyze", "application/json", strings.NewReader(`{"url":"https://feed.example"}`))
				if err == nil {
					resp.Body.Close()
				}
			}
		}
	}()

	_ = conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	var res model.FusedResult
	if err := conn.ReadJSON(&res); err != nil {
		t.Fatalf("read feed: %v", err)
	}
	if res.URL != "https://feed.example" || res.ID == "" {
		t.Errorf("feed result = %+v", res)
	}
}
