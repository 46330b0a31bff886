// Package mockmodel is a stand-in prediction backend. It scores requests
// with the local rules so answers are deterministic, and can be switched
// at runtime between response shapes and failure modes.
package mockmodel

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"html/template"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/raysh454/phishlens/internal/assessor"
	"github.com/raysh454/phishlens/internal/logging"
	"github.com/raysh454/phishlens/internal/model"
)

// Server is the mock model HTTP server.
type Server struct {
	cfg    Config
	logger logging.Logger
	pages  map[string]Page
	router chi.Router

	mu       sync.RWMutex
	mode     Mode
	requests int
}

// New creates a mock model server.
func New(cfg Config, logger logging.Logger) *Server {
	if !cfg.InitialMode.Valid() {
		cfg.InitialMode = ModeCombined
	}
	if logger == nil {
		logger = logging.NopLogger{}
	}
	s := &Server{
		cfg:    cfg,
		logger: logger.With(logging.Field{Key: "component", Value: "mockmodel"}),
		pages:  make(map[string]Page),
		mode:   cfg.InitialMode,
	}
	for _, p := range SamplePages() {
		s.pages[p.Path] = p
	}
	s.routes()
	return s
}

func (s *Server) routes() {
	r := chi.NewRouter()
	r.Post("/predict", s.predictHandler)
	r.Get("/health", s.healthHandler)
	r.Get("/mock/mode", s.getModeHandler)
	r.Post("/mock/mode", s.setModeHandler)
	r.Get("/mock/control", s.controlPanelHandler)
	r.Get("/pages/{page}", s.pageHandler)
	s.router = r
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// Mode returns the current mode.
func (s *Server) Mode() Mode {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.mode
}

// SetMode switches the response mode.
func (s *Server) SetMode(m Mode) error {
	if !m.Valid() {
		return fmt.Errorf("unknown mode %q", m)
	}
	s.mu.Lock()
	s.mode = m
	s.mu.Unlock()
	s.logger.Info("mode switched", logging.Field{Key: "mode", Value: string(m)})
	return nil
}

// Requests returns how many /predict calls were received.
func (s *Server) Requests() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.requests
}

// ListenAndServe serves on cfg.Addr until ctx is cancelled.
func (s *Server) ListenAndServe(ctx context.Context) error {
	srv := &http.Server{Addr: s.cfg.Addr, Handler: s, ReadHeaderTimeout: 10 * time.Second}
	errCh := make(chan error, 1)
	go func() { errCh <- srv.ListenAndServe() }()

	s.logger.Info("mock model listening",
		logging.Field{Key: "addr", Value: s.cfg.Addr},
		logging.Field{Key: "mode", Value: string(s.Mode())})

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}

// ─── Prediction ────────────────────────────────────────────────────────

type subModel struct {
	Probability float64 `json:"probability"`
	Prediction  string  `json:"prediction"`
}

func verdict(p float64) string {
	if p >= 0.5 {
		return "phishing"
	}
	return "legitimate"
}

func (s *Server) predictHandler(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	s.requests++
	mode := s.mode
	s.mu.Unlock()

	if err := r.ParseForm(); err != nil {
		http.Error(w, "invalid form", http.StatusBadRequest)
		return
	}
	payload := &model.AnalysisPayload{URL: r.PostFormValue("url"), Text: r.PostFormValue("text")}
	combined := r.PostFormValue("model_type") == "combined"

	urlRec := assessor.LocalURLScore(payload)
	textRec := assessor.TextHeuristicScore(payload)

	switch mode {
	case ModeError:
		http.Error(w, "model crashed", http.StatusInternalServerError)
		return

	case ModeSlow:
		select {
		case <-time.After(s.cfg.SlowDelay):
		case <-r.Context().Done():
			return
		}
		fallthrough

	case ModeCombined:
		resp := map[string]any{
			"url_model": subModel{Probability: urlRec.Score, Prediction: verdict(urlRec.Score)},
		}
		if combined {
			resp["text_model"] = subModel{Probability: textRec.Score, Prediction: verdict(textRec.Score)}
		}
		writeJSON(w, resp)

	case ModeSingle:
		score, reasons := urlRec.Score, urlRec.Signals
		if combined && textRec.Score > score {
			score, reasons = textRec.Score, textRec.Signals
		}
		writeJSON(w, map[string]any{
			"risk_score": score,
			"label":      verdict(score),
			"reasons":    reasons,
		})

	case ModeHTML:
		score := urlRec.Score
		if combined {
			score = max(score, textRec.Score)
		}
		tag, confidence := "Phishing", score
		if score < 0.5 {
			tag, confidence = "Legitimate", 1-score
		}
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		fmt.Fprintf(w, `<!DOCTYPE html><html><body><h1>Result</h1><div class="result">%s</div><div class="probability">%.1f%%</div></body></html>`,
			tag, confidence*100)
	}
}

func (s *Server) healthHandler(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, map[string]any{"status": "ok", "mode": string(s.Mode())})
}

// ─── Control ───────────────────────────────────────────────────────────

func (s *Server) getModeHandler(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, map[string]any{"mode": string(s.Mode()), "modes": Modes})
}

// setModeHandler accepts a form value or a JSON body {"mode": "..."}.
func (s *Server) setModeHandler(w http.ResponseWriter, r *http.Request) {
	var mode string
	if strings.HasPrefix(r.Header.Get("Content-Type"), "application/json") {
		var body struct {
			Mode string `json:"mode"`
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			http.Error(w, "invalid JSON", http.StatusBadRequest)
			return
		}
		mode = body.Mode
	} else {
		mode = r.FormValue("mode")
	}

	if err := s.SetMode(Mode(strings.ToLower(mode))); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	writeJSON(w, map[string]any{"success": true, "mode": string(s.Mode())})
}

func (s *Server) pageHandler(w http.ResponseWriter, r *http.Request) {
	p, ok := s.pages["/pages/"+chi.URLParam(r, "page")]
	if !ok {
		http.NotFound(w, r)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = w.Write([]byte(p.HTML))
}

var controlPanel = template.Must(template.New("control").Parse(controlPanelHTML))

func (s *Server) controlPanelHandler(w http.ResponseWriter, r *http.Request) {
	data := struct {
		Mode  Mode
		Modes []Mode
		Pages []Page
	}{Mode: s.Mode(), Modes: Modes, Pages: SamplePages()}
	w.Header().Set("Content-Type", "text/html")
	_ = controlPanel.Execute(w, data)
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}

const controlPanelHTML = `<!DOCTYPE html>
<html>
<head>
    <title>Mock Model Control Panel</title>
    <style>
        body { font-family: system-ui, sans-serif; max-width: 800px; margin: 0 auto; padding: 20px; }
        .mode-btn { padding: 8px 16px; border: none; border-radius: 4px; cursor: pointer; }
        .mode-btn.active { background: #007bff; color: white; }
        .mode-btn.inactive { background: #e9ecef; }
    </style>
</head>
<body>
    <h1>Mock Model</h1>
    <p>Current mode: <strong id="mode">{{.Mode}}</strong></p>
    {{range .Modes}}
    <button class="mode-btn {{if eq . $.Mode}}active{{else}}inactive{{end}}" onclick="setMode('{{.}}')">{{.}}</button>
    {{end}}
    <h2>Sample pages</h2>
    <ul>
    {{range .Pages}}<li><a href="{{.Path}}">{{.Path}}</a>: {{.Description}}</li>{{end}}
    </ul>
    <script>
        function setMode(mode) {
            fetch('/mock/mode', {
                method: 'POST',
                headers: {'Content-Type': 'application/x-www-form-urlencoded'},
                body: 'mode=' + encodeURIComponent(mode)
            }).then(() => location.reload());
        }
    </script>
</body>
</html>`
