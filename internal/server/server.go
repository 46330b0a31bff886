package server

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"
	httpSwagger "github.com/swaggo/http-swagger/v2"

	"github.com/raysh454/phishlens/internal/app"
	"github.com/raysh454/phishlens/internal/ledger"
	"github.com/raysh454/phishlens/internal/logging"
	"github.com/raysh454/phishlens/internal/model"
	"github.com/raysh454/phishlens/internal/plugins"
	"github.com/raysh454/phishlens/internal/store"

	_ "github.com/raysh454/phishlens/internal/server/docs" // registers the OpenAPI document
)

// maxBodyBytes bounds request bodies; collected page text is capped well
// below this.
const maxBodyBytes = 1 << 20

// Server is the HTTP + WebSocket API surface for PhishLens.
type Server struct {
	cfg          Config
	orchestrator *app.Orchestrator
	router       chi.Router
	upgrader     websocket.Upgrader
	logger       logging.Logger
}

// NewServer wraps orch in an HTTP router.
func NewServer(cfg Config, orch *app.Orchestrator) (*Server, error) {
	if orch == nil {
		return nil, errors.New("server: nil orchestrator")
	}
	logger := cfg.Logger
	if logger == nil {
		logger = logging.NewStdoutLogger("Server")
	}

	s := &Server{
		cfg:          cfg,
		orchestrator: orch,
		router:       chi.NewRouter(),
		logger:       logger.With(logging.Field{Key: "component", Value: "server"}),
		upgrader: websocket.Upgrader{
			// The feed is read-only and carries no credentials.
			CheckOrigin: func(r *http.Request) bool { return true },
		},
	}
	s.routes()
	return s, nil
}

func (s *Server) routes() {
	r := s.router

	r.Use(s.corsMiddleware)

	// CORS preflight
	r.Options("/analyze", s.optionsHandler("POST"))
	r.Options("/scan", s.optionsHandler("POST"))
	r.Options("/scan/batch", s.optionsHandler("POST"))
	r.Options("/reports", s.optionsHandler("POST"))
	r.Options("/settings", s.optionsHandler("GET, PATCH"))
	r.Options("/plugins", s.optionsHandler("GET, DELETE"))
	r.Options("/plugins/import", s.optionsHandler("POST"))
	r.Options("/plugins/{id}", s.optionsHandler("PATCH"))
	r.Options("/plugins/{id}/settings/{setting}", s.optionsHandler("PUT"))

	r.Post("/analyze", s.handleAnalyze)
	r.Post("/scan", s.handleScan)
	r.Post("/scan/batch", s.handleScanBatch)

	r.Get("/scans/last", s.handleLastScan)
	r.Get("/scans/history", s.handleHistory)

	r.Post("/reports", s.handleAddReport)
	r.Get("/reports/status", s.handleReportStatus)
	r.Get("/ledger/verify", s.handleVerifyLedger)

	r.Get("/backend/ping", s.handlePing)

	r.Get("/settings", s.handleGetSettings)
	r.Patch("/settings", s.handlePatchSettings)

	r.Get("/plugins", s.handleListPlugins)
	r.Delete("/plugins", s.handleResetPlugins)
	r.Post("/plugins/import", s.handleImportPlugins)
	r.Patch("/plugins/{id}", s.handlePatchPlugin)
	r.Put("/plugins/{id}/settings/{setting}", s.handleSetPluginSetting)

	// Live feed of every analysis result
	r.Get("/ws/scans", s.handleScansWS)

	r.Get("/swagger/*", httpSwagger.Handler(httpSwagger.URL("/swagger/doc.json")))
}

func (s *Server) corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
		w.Header().Set("Access-Control-Max-Age", "86400")

		next.ServeHTTP(w, r)
	})
}

func (s *Server) optionsHandler(methods string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Methods", methods)
		w.WriteHeader(http.StatusNoContent)
	}
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	fields := []logging.Field{
		{Key: "method", Value: r.Method},
		{Key: "path", Value: r.URL.Path},
	}

	if q := r.URL.Query(); len(q) > 0 {
		fields = append(fields, logging.Field{Key: "query", Value: q})
	}

	if r.Body != nil && (r.Method == http.MethodPost || r.Method == http.MethodPatch) {
		r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
		if s.cfg.LogBodies {
			if bodyBytes, err := io.ReadAll(r.Body); err == nil {
				fields = append(fields, logging.Field{Key: "body", Value: string(bodyBytes)})
				r.Body = io.NopCloser(bytes.NewReader(bodyBytes))
			}
		}
	}

	s.logger.Info("http_request", fields...)

	s.router.ServeHTTP(w, r)
}

// HTTPServer creates an *http.Server ready to ListenAndServe.
func (s *Server) HTTPServer() *http.Server {
	return &http.Server{
		Addr:         s.cfg.ListenAddr,
		Handler:      s,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 0, // allow streaming
	}
}

// --- JSON helpers ---

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if v != nil {
		_ = json.NewEncoder(w).Encode(v)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, ErrorResponse{Error: msg})
}

// --- HTTP handlers ---

// handleAnalyze godoc
// @Summary Analyse a collected page
// @Accept json
// @Produce json
// @Param payload body AnalyzeRequest true "Page payload"
// @Success 200 {object} model.FusedResult
// @Failure 400 {object} ErrorResponse
// @Router /analyze [post]
func (s *Server) handleAnalyze(w http.ResponseWriter, r *http.Request) {
	var payload AnalyzeRequest
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		s.logger.Warn("decoding analyze body", logging.Field{Key: "error", Value: err.Error()})
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	if payload.Source == "" {
		payload.Source = app.SourceAPI
	}
	res := s.orchestrator.Analyze(r.Context(), payload)
	writeJSON(w, http.StatusOK, res)
}

// handleScan godoc
// @Summary Collect and analyse one URL
// @Accept json
// @Produce json
// @Param request body ScanRequest true "URL to scan"
// @Success 200 {object} model.FusedResult
// @Failure 400 {object} ErrorResponse
// @Failure 409 {object} ErrorResponse
// @Failure 429 {object} ErrorResponse
// @Router /scan [post]
func (s *Server) handleScan(w http.ResponseWriter, r *http.Request) {
	var body ScanRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	if body.URL == "" {
		writeError(w, http.StatusBadRequest, "missing url")
		return
	}
	if body.Source == "" {
		body.Source = app.SourceAPI
	}

	res, err := s.orchestrator.ScanURL(r.Context(), body.URL, body.Source)
	switch {
	case errors.Is(err, app.ErrAutoScanDisabled):
		writeError(w, http.StatusConflict, err.Error())
		return
	case errors.Is(err, app.ErrScanThrottled):
		writeError(w, http.StatusTooManyRequests, err.Error())
		return
	case err != nil:
		s.logger.Warn("scanning url", logging.Field{Key: "error", Value: err.Error()})
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// handleScanBatch godoc
// @Summary Scan several URLs
// @Accept json
// @Produce json
// @Param request body BatchScanRequest true "URLs to scan"
// @Success 200 {array} model.FusedResult
// @Failure 400 {object} ErrorResponse
// @Router /scan/batch [post]
func (s *Server) handleScanBatch(w http.ResponseWriter, r *http.Request) {
	var body BatchScanRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	if len(body.URLs) == 0 {
		writeError(w, http.StatusBadRequest, "missing urls")
		return
	}

	results, err := s.orchestrator.ScanBatch(r.Context(), body.URLs, body.Concurrency)
	if err != nil {
		s.logger.Warn("batch scan", logging.Field{Key: "error", Value: err.Error()})
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.logger.Info("batch scan complete", logging.Field{Key: "count", Value: len(results)})
	writeJSON(w, http.StatusOK, results)
}

// handleLastScan godoc
// @Summary Most recent result
// @Produce json
// @Success 200 {object} model.FusedResult
// @Failure 404 {object} ErrorResponse
// @Router /scans/last [get]
func (s *Server) handleLastScan(w http.ResponseWriter, r *http.Request) {
	last, err := s.orchestrator.LastScan(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if last == nil {
		writeError(w, http.StatusNotFound, "no scan yet")
		return
	}
	writeJSON(w, http.StatusOK, last)
}

func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	h, err := s.orchestrator.History(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, h)
}

// Ledger

// handleAddReport godoc
// @Summary Report a domain
// @Accept json
// @Produce json
// @Param request body ReportRequest true "URL to report"
// @Success 201 {object} model.ReportResult
// @Failure 400 {object} model.ReportResult
// @Failure 500 {object} model.ReportResult
// @Router /reports [post]
func (s *Server) handleAddReport(w http.ResponseWriter, r *http.Request) {
	var body ReportRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}

	res, err := s.orchestrator.AddReport(r.Context(), body.URL, body.Source)
	switch {
	case err != nil:
		s.logger.Warn("adding report", logging.Field{Key: "error", Value: err.Error()})
		writeJSON(w, http.StatusInternalServerError, res)
	case !res.OK:
		writeJSON(w, http.StatusBadRequest, res)
	default:
		writeJSON(w, http.StatusCreated, res)
	}
}

// handleReportStatus godoc
// @Summary Report count of a URL's domain
// @Produce json
// @Param url query string true "URL or domain"
// @Success 200 {object} model.LedgerInfo
// @Failure 400 {object} ErrorResponse
// @Router /reports/status [get]
func (s *Server) handleReportStatus(w http.ResponseWriter, r *http.Request) {
	u := r.URL.Query().Get("url")
	if u == "" {
		writeError(w, http.StatusBadRequest, "missing url query parameter")
		return
	}
	info, err := s.orchestrator.ReportStatus(r.Context(), u)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if info.Hash == "" {
		writeError(w, http.StatusBadRequest, ledger.InvalidDomain)
		return
	}
	writeJSON(w, http.StatusOK, info)
}

func (s *Server) handleVerifyLedger(w http.ResponseWriter, r *http.Request) {
	rep, err := s.orchestrator.VerifyLedger(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, rep)
}

// Backend and settings

func (s *Server) handlePing(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.orchestrator.Ping(r.Context()))
}

func (s *Server) handleGetSettings(w http.ResponseWriter, r *http.Request) {
	st, err := s.orchestrator.Settings(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, st)
}

// handlePatchSettings godoc
// @Summary Merge a partial settings object
// @Accept json
// @Produce json
// @Success 200 {object} model.Settings
// @Failure 400 {object} ErrorResponse
// @Router /settings [patch]
func (s *Server) handlePatchSettings(w http.ResponseWriter, r *http.Request) {
	patch, err := io.ReadAll(r.Body)
	if err != nil {
		writeError(w, http.StatusBadRequest, "reading body")
		return
	}
	st, err := s.orchestrator.UpdateSettings(r.Context(), patch)
	switch {
	case errors.Is(err, store.ErrInvalidSettings):
		writeError(w, http.StatusBadRequest, err.Error())
	case err != nil:
		writeError(w, http.StatusInternalServerError, err.Error())
	default:
		writeJSON(w, http.StatusOK, st)
	}
}

// Plugins

func pluginsResponse(views []model.PluginView) PluginsResponse {
	return PluginsResponse{Plugins: views, Active: plugins.CountActive(views)}
}

// pluginErrorStatus maps plugin validation errors to 4xx codes.
func pluginErrorStatus(err error) int {
	switch {
	case errors.Is(err, plugins.ErrUnknownPlugin):
		return http.StatusNotFound
	case errors.Is(err, plugins.ErrUnknownSetting),
		errors.Is(err, plugins.ErrInvalidValue),
		errors.Is(err, plugins.ErrInvalidImport):
		return http.StatusBadRequest
	}
	return http.StatusInternalServerError
}

// handleListPlugins godoc
// @Summary List plugins merged with their stored state
// @Produce json
// @Success 200 {object} PluginsResponse
// @Router /plugins [get]
func (s *Server) handleListPlugins(w http.ResponseWriter, r *http.Request) {
	views, err := s.orchestrator.Plugins(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, pluginsResponse(views))
}

// handlePatchPlugin godoc
// @Summary Enable, disable or tune one plugin
// @Accept json
// @Produce json
// @Param id path string true "Plugin id"
// @Param patch body PluginPatchRequest true "Changes"
// @Success 200 {object} model.PluginView
// @Failure 400 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Router /plugins/{id} [patch]
func (s *Server) handlePatchPlugin(w http.ResponseWriter, r *http.Request) {
	var patch PluginPatchRequest
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&patch); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	view, err := s.orchestrator.PatchPlugin(r.Context(), chi.URLParam(r, "id"), patch)
	if err != nil {
		writeError(w, pluginErrorStatus(err), err.Error())
		return
	}
	writeJSON(w, http.StatusOK, view)
}

// handleSetPluginSetting godoc
// @Summary Set one plugin setting
// @Accept json
// @Produce json
// @Param id path string true "Plugin id"
// @Param setting path string true "Setting id"
// @Param request body PluginSettingRequest true "New value"
// @Success 200 {object} model.PluginView
// @Failure 400 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Router /plugins/{id}/settings/{setting} [put]
func (s *Server) handleSetPluginSetting(w http.ResponseWriter, r *http.Request) {
	var req PluginSettingRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	view, err := s.orchestrator.SetPluginSetting(r.Context(), chi.URLParam(r, "id"), chi.URLParam(r, "setting"), req.Value)
	if err != nil {
		writeError(w, pluginErrorStatus(err), err.Error())
		return
	}
	writeJSON(w, http.StatusOK, view)
}

// handleImportPlugins godoc
// @Summary Replace the imported plugin definitions
// @Accept json
// @Produce json
// @Success 200 {object} PluginsResponse
// @Failure 400 {object} ErrorResponse
// @Router /plugins/import [post]
func (s *Server) handleImportPlugins(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(r.Body)
	if err != nil {
		writeError(w, http.StatusBadRequest, "reading body")
		return
	}
	views, err := s.orchestrator.ImportPlugins(r.Context(), body)
	if err != nil {
		writeError(w, pluginErrorStatus(err), err.Error())
		return
	}
	writeJSON(w, http.StatusOK, pluginsResponse(views))
}

// handleResetPlugins godoc
// @Summary Drop imported plugins and stored plugin state
// @Success 204
// @Router /plugins [delete]
func (s *Server) handleResetPlugins(w http.ResponseWriter, r *http.Request) {
	if err := s.orchestrator.ResetPlugins(r.Context()); err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// WebSockets

func (s *Server) handleScansWS(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Warn("upgrading to websocket", logging.Field{Key: "error", Value: err.Error()})
		return
	}
	defer conn.Close()

	results, unsubscribe := s.orchestrator.Subscribe()
	defer unsubscribe()

	// Reader loop only notices the client going away.
	gone := make(chan struct{})
	go func() {
		defer close(gone)
		for {
			if _, _, err := conn.NextReader(); err != nil {
				return
			}
		}
	}()

	s.logger.Info("scan feed subscriber connected")
	for {
		select {
		case res, ok := <-results:
			if !ok {
				_ = conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseGoingAway, ""))
				return
			}
			if err := conn.WriteJSON(res); err != nil {
				return
			}
		case <-gone:
			return
		case <-r.Context().Done():
			return
		}
	}
}
