package app

import (
	"errors"
	"fmt"

	"github.com/raysh454/phishlens/internal/analyzer"
	"github.com/raysh454/phishlens/internal/assessor"
	"github.com/raysh454/phishlens/internal/collector"
	"github.com/raysh454/phishlens/internal/ledger"
	"github.com/raysh454/phishlens/internal/logging"
	"github.com/raysh454/phishlens/internal/store"
	"github.com/raysh454/phishlens/internal/webclient"
)

// Components are the long-lived services behind one Orchestrator.
type Components struct {
	KV        store.KV
	State     *store.State
	Ledger    *ledger.Service
	Assessor  assessor.Assessor
	Analyzer  *analyzer.Client
	Collector *collector.Collector

	// PageClient fetches pages for the collector. The model client always
	// talks through its own nethttp client since it needs POST.
	PageClient webclient.WebClient
}

// NewComponents opens the state store and builds the scoring stack.
func NewComponents(cfg *Config, logger logging.Logger) (*Components, error) {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	if logger == nil {
		logger = logging.NopLogger{}
	}

	kv, err := store.Open(cfg.StoreCfg, logger)
	if err != nil {
		return nil, fmt.Errorf("open store: %w", err)
	}
	c := &Components{KV: kv, State: store.NewState(kv)}

	if c.Ledger, err = ledger.NewService(c.State, logger); err != nil {
		c.Close()
		return nil, fmt.Errorf("new ledger: %w", err)
	}

	a, err := assessor.NewHeuristicsAssessor(cfg.AssessorCfg, logger)
	if err != nil {
		c.Close()
		return nil, fmt.Errorf("new assessor: %w", err)
	}
	c.Assessor = a

	modelCfg := cfg.WebClientCfg
	modelCfg.Client = webclient.ClientNetHTTP
	modelCfg.Timeout = cfg.AnalyzerCfg.RequestTimeout
	modelWC, err := webclient.NewWebClient(modelCfg, logger)
	if err != nil {
		c.Close()
		return nil, fmt.Errorf("new model webclient: %w", err)
	}
	if c.Analyzer, err = analyzer.NewClient(cfg.AnalyzerCfg, modelWC, a, logger); err != nil {
		_ = modelWC.Close()
		c.Close()
		return nil, fmt.Errorf("new analyzer: %w", err)
	}

	if c.PageClient, err = webclient.NewWebClient(cfg.WebClientCfg, logger); err != nil {
		c.Close()
		return nil, fmt.Errorf("new page webclient: %w", err)
	}
	if c.Collector, err = collector.New(cfg.CollectorCfg, c.PageClient, logger); err != nil {
		c.Close()
		return nil, fmt.Errorf("new collector: %w", err)
	}
	return c, nil
}

// Deps returns the orchestrator collaborators.
func (c *Components) Deps() Deps {
	d := Deps{State: c.State, Ledger: c.Ledger}
	if c.Analyzer != nil {
		d.Analyzer = c.Analyzer
	}
	if c.Collector != nil {
		d.Collector = c.Collector
	}
	return d
}

// Close releases every component that was opened.
func (c *Components) Close() error {
	var errs []error
	if c.PageClient != nil {
		if err := c.PageClient.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close page webclient: %w", err))
		}
	}
	if c.Analyzer != nil {
		if err := c.Analyzer.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close analyzer: %w", err))
		}
	}
	if c.Assessor != nil {
		if err := c.Assessor.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close assessor: %w", err))
		}
	}
	if c.KV != nil {
		if err := c.KV.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close store: %w", err))
		}
	}
	return errors.Join(errs...)
}
