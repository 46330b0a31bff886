package analyzer

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/raysh454/phishlens/internal/assessor"
	"github.com/raysh454/phishlens/internal/logging"
	"github.com/raysh454/phishlens/internal/model"
	"github.com/raysh454/phishlens/internal/utils"
	"github.com/raysh454/phishlens/internal/webclient"
)

const fallbackSignal = "fallback: server"

// Client is the HTTP implementation of Analyzer.
type Client struct {
	cfg      Config
	wc       webclient.WebClient
	assessor assessor.Assessor
	logger   logging.Logger
}

// NewClient builds a remote model client. wc carries the requests; local is
// consulted whenever the remote model cannot be.
func NewClient(cfg Config, wc webclient.WebClient, local assessor.Assessor, logger logging.Logger) (*Client, error) {
	if wc == nil {
		return nil, errors.New("analyzer: nil webclient")
	}
	if local == nil {
		return nil, errors.New("analyzer: nil assessor")
	}
	if logger == nil {
		logger = logging.NopLogger{}
	}
	if cfg.RequestTimeout <= 0 {
		cfg.RequestTimeout = DefaultConfig().RequestTimeout
	}
	if cfg.PingTimeout <= 0 || cfg.PingTimeout > MaxPingTimeout {
		cfg.PingTimeout = MaxPingTimeout
	}
	l := logger.With(logging.Field{Key: "component", Value: "analyzer"})
	l.Debug("created remote model client",
		logging.Field{Key: "request_timeout", Value: cfg.RequestTimeout.String()})
	return &Client{cfg: cfg, wc: wc, assessor: local, logger: l}, nil
}

// AnalyzeText implements Analyzer.
func (c *Client) AnalyzeText(ctx context.Context, payload *model.AnalysisPayload, settings model.Settings, active []model.ActivePlugin) model.ScoreRecord {
	if payload == nil {
		payload = &model.AnalysisPayload{}
	}
	rec, kind, err := c.predict(ctx, payload, settings, active)
	if err != nil {
		c.logger.Warn("remote model unavailable, using local scorer",
			logging.Field{Key: "url", Value: payload.URL},
			logging.Field{Key: "kind", Value: kind},
			logging.Field{Key: "error", Value: err})
		return c.fallback(ctx, payload, settings, fmt.Sprintf("%s: %v", kind, err))
	}
	return rec
}

func (c *Client) predict(ctx context.Context, payload *model.AnalysisPayload, settings model.Settings, active []model.ActivePlugin) (model.ScoreRecord, model.ErrorKind, error) {
	endpoint := utils.JoinURL(settings.MLBaseURL, settings.MLPath)

	form := url.Values{}
	form.Set("url", payload.URL)
	modelType := "url"
	if strings.TrimSpace(payload.Text) != "" {
		modelType = "combined"
		form.Set("text", payload.Text)
	}
	form.Set("model_type", modelType)
	if len(active) > 0 {
		b, err := json.Marshal(active)
		if err != nil {
			return model.ScoreRecord{}, model.KindResponseShape, fmt.Errorf("encode plugins: %w", err)
		}
		form.Set("plugins", string(b))
	}

	headers := http.Header{}
	headers.Set("Content-Type", "application/x-www-form-urlencoded")
	headers.Set("Accept", "application/json, text/html;q=0.9")
	if settings.APIKey != "" {
		headers.Set("Authorization", "Bearer "+settings.APIKey)
	}

	reqCtx, cancel := context.WithTimeout(ctx, c.cfg.RequestTimeout)
	defer cancel()

	resp, err := c.wc.Do(reqCtx, &webclient.Request{
		Method:  http.MethodPost,
		URL:     endpoint,
		Headers: headers,
		Body:    []byte(form.Encode()),
	})
	if err != nil {
		if isTimeout(err) || errors.Is(reqCtx.Err(), context.DeadlineExceeded) {
			return model.ScoreRecord{}, model.KindTimeout, err
		}
		return model.ScoreRecord{}, model.KindNetwork, err
	}
	if !resp.OK() {
		return model.ScoreRecord{}, model.KindNetwork, fmt.Errorf("model responded %d", resp.StatusCode)
	}

	rec, kind := Normalize(resp.Body, resp.Headers.Get("Content-Type"))
	if kind == ResponseUnrecognized {
		return model.ScoreRecord{}, model.KindResponseShape, errors.New("unexpected response")
	}
	c.logger.Debug("remote model answered",
		logging.Field{Key: "url", Value: payload.URL},
		logging.Field{Key: "shape", Value: kind.String()},
		logging.Field{Key: "score", Value: rec.Score})
	return rec, "", nil
}

// fallback builds the degraded record from the local scorers.
func (c *Client) fallback(ctx context.Context, payload *model.AnalysisPayload, settings model.Settings, reason string) model.ScoreRecord {
	local := c.assessor.ScoreURL(ctx, payload)

	rec := model.ScoreRecord{
		Score:     local.Score,
		Label:     local.Label,
		Signals:   append([]string{}, local.Signals...),
		Source:    model.SourceLocal,
		URLScore:  model.Float(local.Score),
		URLLabel:  local.Label,
		TextLabel: model.TextModelOffline,
		TextError: reason,
	}

	if settings.LocalTextFallback && strings.TrimSpace(payload.Text) != "" {
		text := c.assessor.ScoreText(ctx, payload)
		rec.TextScore = model.Float(text.Score)
		rec.TextLabel = text.Label
		rec.Signals = append(rec.Signals, text.Signals...)
		rec.Source = model.SourceHeuristic
	}

	rec.Signals = append(rec.Signals, fallbackSignal)
	return rec
}

// Ping implements Analyzer.
func (c *Client) Ping(ctx context.Context, settings model.Settings) model.PingResult {
	endpoint := utils.JoinURL(settings.MLBaseURL, settings.MLHealthPath)

	pingCtx, cancel := context.WithTimeout(ctx, c.cfg.PingTimeout)
	defer cancel()

	started := time.Now()
	resp, err := c.wc.Do(pingCtx, &webclient.Request{Method: http.MethodGet, URL: endpoint})
	if err != nil {
		c.logger.Debug("health check failed",
			logging.Field{Key: "endpoint", Value: endpoint},
			logging.Field{Key: "error", Value: err})
		return model.PingResult{OK: false, Latency: "--"}
	}
	return model.PingResult{
		OK:      resp.OK(),
		Latency: fmt.Sprintf("%dms", time.Since(started).Round(time.Millisecond).Milliseconds()),
	}
}

// Close closes the underlying webclient.
func (c *Client) Close() error {
	return c.wc.Close()
}

func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var ne net.Error
	return errors.As(err, &ne) && ne.Timeout()
}
