package app

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/raysh454/phishlens/internal/analyzer"
	"github.com/raysh454/phishlens/internal/collector"
	"github.com/raysh454/phishlens/internal/fusion"
	"github.com/raysh454/phishlens/internal/ledger"
	"github.com/raysh454/phishlens/internal/logging"
	"github.com/raysh454/phishlens/internal/model"
	"github.com/raysh454/phishlens/internal/store"
	"github.com/raysh454/phishlens/internal/utils"
)

// Scan trigger sources.
const (
	SourceManual     = "manual"
	SourceAuto       = "auto"
	SourceNavigation = "navigation"
	SourceAPI        = "api"
	SourceAutoReport = "auto-report"
)

// ReasonTimedOut is the signal of an analysis cut off by the watchdog.
const ReasonTimedOut = "analysis timed out"

var (
	// ErrAutoScanDisabled is returned by ScanURL for automatic triggers
	// while the autoScan setting is off.
	ErrAutoScanDisabled = errors.New("automatic scanning is disabled")

	// ErrScanThrottled is returned by ScanURL when the same URL was
	// scanned automatically within Config.AutoScanCooldown.
	ErrScanThrottled = errors.New("scan throttled")
)

// Orchestrator sequences one risk assessment: trusted-domain check, remote
// model (with local fallback), ledger lookup, fusion, boost, label and
// persistence. It also fronts the ledger, settings and plugins for the
// outer surfaces (HTTP, CLI).
type Orchestrator struct {
	cfg       *Config
	state     *store.State
	ledger    *ledger.Service
	analyzer  analyzer.Analyzer
	collector collector.Source
	logger    logging.Logger
	now       func() time.Time

	subsMu  sync.Mutex
	subs    map[int]chan model.FusedResult
	nextSub int

	autoMu   sync.Mutex
	lastAuto map[string]time.Time
}

// Deps are the collaborators of an Orchestrator. Collector may be nil, in
// which case ScanURL analyses the bare URL.
type Deps struct {
	State     *store.State
	Ledger    *ledger.Service
	Analyzer  analyzer.Analyzer
	Collector collector.Source
}

// NewOrchestrator ties together config, collaborators and logger.
func NewOrchestrator(cfg *Config, deps Deps, logger logging.Logger) (*Orchestrator, error) {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	if deps.State == nil {
		return nil, errors.New("orchestrator: nil state")
	}
	if deps.Ledger == nil {
		return nil, errors.New("orchestrator: nil ledger")
	}
	if deps.Analyzer == nil {
		return nil, errors.New("orchestrator: nil analyzer")
	}
	if logger == nil {
		logger = logging.NopLogger{}
	}
	return &Orchestrator{
		cfg:       cfg,
		state:     deps.State,
		ledger:    deps.Ledger,
		analyzer:  deps.Analyzer,
		collector: deps.Collector,
		logger:    logger.With(logging.Field{Key: "component", Value: "orchestrator"}),
		now:       time.Now,
		subs:      make(map[int]chan model.FusedResult),
		lastAuto:  make(map[string]time.Time),
	}, nil
}

// SetClock replaces time.Now. Intended for tests.
func (o *Orchestrator) SetClock(now func() time.Time) {
	if now != nil {
		o.now = now
	}
}

// ─── Analyze ───────────────────────────────────────────────────────────

// Analyze scores payload. It never fails: a storage failure or a watchdog
// timeout resolves to the synthetic error result. A pipeline result that
// arrives after the watchdog fired is discarded and never persisted.
func (o *Orchestrator) Analyze(ctx context.Context, payload model.AnalysisPayload) model.FusedResult {
	ctx, cancel := context.WithTimeout(ctx, o.cfg.AnalyzeTimeout)
	defer cancel()

	var claimed atomic.Bool
	done := make(chan model.FusedResult, 1)

	go func() {
		res, settings, ok := o.evaluate(ctx, payload)
		if !claimed.CompareAndSwap(false, true) {
			o.logger.Warn("discarding late analysis result",
				logging.Field{Key: "url", Value: payload.URL},
				logging.Field{Key: "id", Value: res.ID})
			return
		}
		if ok {
			res = o.commit(context.WithoutCancel(ctx), res, settings)
		}
		done <- res
	}()

	select {
	case res := <-done:
		return res
	case <-ctx.Done():
		if claimed.CompareAndSwap(false, true) {
			o.logger.Warn("analysis watchdog fired",
				logging.Field{Key: "url", Value: payload.URL},
				logging.Field{Key: "timeout", Value: o.cfg.AnalyzeTimeout.String()})
			return fusion.ErrorResult(payload.URL, ReasonTimedOut, o.now())
		}
		// The pipeline claimed first and is persisting; wait for it.
		return <-done
	}
}

// evaluate computes a result without side effects. ok is false when the
// result is already the synthetic error result.
func (o *Orchestrator) evaluate(ctx context.Context, payload model.AnalysisPayload) (model.FusedResult, model.Settings, bool) {
	settings, err := o.state.Settings(ctx)
	if err != nil {
		o.logger.Error("loading settings",
			logging.Field{Key: "kind", Value: model.KindStorage},
			logging.Field{Key: "error", Value: err})
		return fusion.ErrorResult(payload.URL, "settings unavailable", o.now()), settings, false
	}
	threshold := settings.Threshold()

	if utils.IsTrustedDomain(payload.URL, settings.TrustedDomains) {
		res := fusion.TrustedResult(payload.URL, threshold, o.now())
		res.ID = uuid.New().String()
		return res, settings, true
	}

	var info model.LedgerInfo
	if settings.LedgerEnabled {
		if info, err = o.ledger.Info(ctx, payload.URL); err != nil {
			o.logger.Error("reading ledger",
				logging.Field{Key: "kind", Value: model.KindStorage},
				logging.Field{Key: "error", Value: err})
			return fusion.ErrorResult(payload.URL, "ledger unavailable", o.now()), settings, false
		}
	}

	active, err := o.activePlugins(ctx)
	if err != nil {
		o.logger.Error("loading plugins",
			logging.Field{Key: "kind", Value: model.KindStorage},
			logging.Field{Key: "error", Value: err})
		return fusion.ErrorResult(payload.URL, "plugins unavailable", o.now()), settings, false
	}

	rec := o.analyzer.AnalyzeText(ctx, &payload, settings, active)

	urlScore, textScore := rec.URLScore, rec.TextScore
	if urlScore == nil && textScore == nil {
		urlScore = model.Float(rec.Score)
	}
	risk, fusedSignals := fusion.FuseScores(urlScore, textScore)

	signals := make([]string, 0, len(rec.Signals)+len(fusedSignals)+1)
	signals = append(signals, rec.Signals...)
	signals = append(signals, fusedSignals...)

	if settings.LedgerEnabled {
		var boosted bool
		if risk, boosted = fusion.ApplyLedgerBoost(risk, info.Count, settings.LedgerBoost); boosted {
			signals = append(signals, fusion.SignalLedger)
		}
	}

	res := model.FusedResult{
		ID:          uuid.New().String(),
		URL:         payload.URL,
		RiskScore:   risk,
		Label:       fusion.DeriveLabel(risk, rec.URLScore, rec.TextScore, threshold),
		Signals:     signals,
		Engine:      rec.Source,
		URLScore:    rec.URLScore,
		URLLabel:    rec.URLLabel,
		TextScore:   rec.TextScore,
		TextLabel:   rec.TextLabel,
		Threshold:   threshold,
		LedgerCount: info.Count,
		At:          o.now().UnixMilli(),
	}
	if rec.TextError != "" {
		te := rec.TextError
		res.TextError = &te
	}
	return res, settings, true
}

// commit persists res, files an automatic report when enabled, and
// publishes the final result.
func (o *Orchestrator) commit(ctx context.Context, res model.FusedResult, settings model.Settings) model.FusedResult {
	if err := o.state.SaveScan(ctx, res, settings.StoreHistory, model.MaxScanHistory); err != nil {
		o.logger.Error("persisting scan",
			logging.Field{Key: "kind", Value: model.KindStorage},
			logging.Field{Key: "error", Value: err})
		res = fusion.ErrorResult(res.URL, "scan not persisted", o.now())
		o.publish(res)
		return res
	}

	if settings.AutoReport && settings.LedgerEnabled && res.Label == model.LabelPhishing {
		o.autoReport(ctx, res.URL)
	}

	o.logger.Info("analysis complete",
		logging.Field{Key: "url", Value: res.URL},
		logging.Field{Key: "label", Value: res.Label},
		logging.Field{Key: "risk", Value: res.RiskScore},
		logging.Field{Key: "engine", Value: res.Engine})
	o.publish(res)
	return res
}

func (o *Orchestrator) autoReport(ctx context.Context, rawURL string) {
	ok, err := o.ledger.ShouldAutoReport(ctx, rawURL, o.cfg.AutoReportCooldown)
	if err != nil {
		o.logger.Warn("auto-report check failed", logging.Field{Key: "error", Value: err})
		return
	}
	if !ok {
		return
	}
	if _, err := o.ledger.Add(ctx, rawURL, SourceAutoReport); err != nil {
		o.logger.Warn("auto-report failed", logging.Field{Key: "error", Value: err})
	}
}

// ─── Scans ─────────────────────────────────────────────────────────────

// ScanURL collects rawURL and analyses it. Automatic triggers ("auto",
// "navigation") honour the autoScan setting and a short per-URL cooldown.
// A collector failure degrades to a URL-only payload.
func (o *Orchestrator) ScanURL(ctx context.Context, rawURL, source string) (model.FusedResult, error) {
	if source == "" {
		source = SourceManual
	}
	settings, err := o.state.Settings(ctx)
	if err != nil {
		o.logger.Error("loading settings", logging.Field{Key: "error", Value: err})
		return fusion.ErrorResult(rawURL, "settings unavailable", o.now()), nil
	}

	if isAutomatic(source) {
		if !settings.AutoScan {
			return model.FusedResult{}, ErrAutoScanDisabled
		}
		if !o.claimAutoScan(rawURL) {
			return model.FusedResult{}, ErrScanThrottled
		}
	}

	payload := model.AnalysisPayload{URL: rawURL, Source: source}
	if o.collector != nil {
		collected, err := o.collector.Collect(ctx, rawURL, settings.DeepScan)
		if err != nil {
			o.logger.Warn("collecting page content, analysing URL only",
				logging.Field{Key: "url", Value: rawURL},
				logging.Field{Key: "error", Value: err})
		} else {
			payload = collected
			payload.Source = source
		}
	}
	return o.Analyze(ctx, payload), nil
}

func isAutomatic(source string) bool {
	switch strings.ToLower(source) {
	case SourceAuto, SourceNavigation:
		return true
	}
	return false
}

func (o *Orchestrator) claimAutoScan(rawURL string) bool {
	if o.cfg.AutoScanCooldown <= 0 {
		return true
	}
	now := o.now()
	o.autoMu.Lock()
	defer o.autoMu.Unlock()
	if last, ok := o.lastAuto[rawURL]; ok && now.Sub(last) < o.cfg.AutoScanCooldown {
		return false
	}
	o.lastAuto[rawURL] = now
	return true
}

// ScanBatch scans urls with at most concurrency scans in flight and
// returns the results in input order. A non-positive concurrency uses
// Config.BatchConcurrency.
func (o *Orchestrator) ScanBatch(ctx context.Context, urls []string, concurrency int) ([]model.FusedResult, error) {
	if concurrency <= 0 {
		concurrency = o.cfg.BatchConcurrency
	}
	if concurrency <= 0 {
		concurrency = 1
	}

	results := make([]model.FusedResult, len(urls))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(concurrency)
	for i, u := range urls {
		g.Go(func() error {
			res, err := o.ScanURL(gctx, u, SourceAPI)
			if err != nil {
				return fmt.Errorf("scan %s: %w", u, err)
			}
			results[i] = res
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

// ─── Ledger ────────────────────────────────────────────────────────────

// AddReport files a report for rawURL's domain.
func (o *Orchestrator) AddReport(ctx context.Context, rawURL, source string) (model.ReportResult, error) {
	return o.ledger.Add(ctx, rawURL, source)
}

// ReportStatus returns the report history of rawURL's domain.
func (o *Orchestrator) ReportStatus(ctx context.Context, rawURL string) (model.LedgerInfo, error) {
	return o.ledger.Info(ctx, rawURL)
}

// VerifyLedger recomputes the stored chain.
func (o *Orchestrator) VerifyLedger(ctx context.Context) (ledger.VerifyReport, error) {
	return o.ledger.Verify(ctx)
}

// ─── Settings and history ──────────────────────────────────────────────

// Ping checks the health of the configured model backend.
func (o *Orchestrator) Ping(ctx context.Context) model.PingResult {
	settings, err := o.state.Settings(ctx)
	if err != nil {
		o.logger.Warn("loading settings", logging.Field{Key: "error", Value: err})
		return model.PingResult{OK: false, Latency: "--"}
	}
	return o.analyzer.Ping(ctx, settings)
}

func (o *Orchestrator) Settings(ctx context.Context) (model.Settings, error) {
	return o.state.Settings(ctx)
}

// UpdateSettings merges a JSON patch over the stored settings.
func (o *Orchestrator) UpdateSettings(ctx context.Context, patch []byte) (model.Settings, error) {
	s, err := o.state.PatchSettings(ctx, patch)
	if err != nil {
		return s, err
	}
	o.logger.Info("settings updated")
	return s, nil
}

// LastScan returns the most recent result, or nil when nothing was scanned.
func (o *Orchestrator) LastScan(ctx context.Context) (*model.FusedResult, error) {
	return o.state.LastScan(ctx)
}

// History returns stored results, most recent first.
func (o *Orchestrator) History(ctx context.Context) ([]model.FusedResult, error) {
	return o.state.History(ctx)
}

// ─── Subscribers ───────────────────────────────────────────────────────

// Subscribe returns a channel receiving every final result and a function
// that unsubscribes and closes it. Slow subscribers miss results rather
// than blocking analysis.
func (o *Orchestrator) Subscribe() (<-chan model.FusedResult, func()) {
	buf := o.cfg.SubscriberBuffer
	if buf <= 0 {
		buf = 1
	}
	ch := make(chan model.FusedResult, buf)

	o.subsMu.Lock()
	id := o.nextSub
	o.nextSub++
	o.subs[id] = ch
	o.subsMu.Unlock()

	return ch, func() {
		o.subsMu.Lock()
		defer o.subsMu.Unlock()
		if _, ok := o.subs[id]; ok {
			delete(o.subs, id)
			close(ch)
		}
	}
}

func (o *Orchestrator) publish(res model.FusedResult) {
	o.subsMu.Lock()
	defer o.subsMu.Unlock()
	for _, ch := range o.subs {
		// Non-blocking send; drop if buffer is full.
		select {
		case ch <- res:
		default:
		}
	}
}

// Close unsubscribes every subscriber.
func (o *Orchestrator) Close() {
	o.subsMu.Lock()
	defer o.subsMu.Unlock()
	for id, ch := range o.subs {
		delete(o.subs, id)
		close(ch)
	}
}
