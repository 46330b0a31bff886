package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/raysh454/phishlens/internal/logging"
)

// Application is the global runtime state container. It holds config,
// the components and the orchestrator shared by the HTTP server and the
// CLI commands.
type Application struct {
	Config *Config
	Logger logging.Logger
	Orch   *Orchestrator

	components *Components
}

// NewApplication resolves storage paths and builds every component.
func NewApplication(cfg *Config, logger logging.Logger) (*Application, error) {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	if logger == nil {
		logger = logging.NopLogger{}
	}
	if err := cfg.ResolveStorage(); err != nil {
		return nil, err
	}

	comps, err := NewComponents(cfg, logger)
	if err != nil {
		return nil, err
	}
	orch, err := NewOrchestrator(cfg, comps.Deps(), logger)
	if err != nil {
		_ = comps.Close()
		return nil, fmt.Errorf("new orchestrator: %w", err)
	}
	return &Application{Config: cfg, Logger: logger, Orch: orch, components: comps}, nil
}

// NewLogger builds the process logger at cfg.LogLevel.
func NewLogger(cfg *Config, w io.Writer) logging.Logger {
	l := logging.NewWriterLogger("phishlens", w)
	if cfg != nil {
		l.SetLevel(cfg.LogLevel)
	}
	return l
}

// Shutdown closes subscribers and then the components, bounded by a
// timeout.
func (a *Application) Shutdown(ctx context.Context) error {
	if a == nil {
		return errors.New("application is nil")
	}
	a.Logger.Info("application shutdown initiated")

	shutdownCtx, cancel := context.WithTimeout(ctx, 15*time.Second)
	defer cancel()

	done := make(chan error, 1)
	go func() {
		if a.Orch != nil {
			a.Orch.Close()
		}
		done <- a.components.Close()
	}()

	select {
	case err := <-done:
		if err != nil {
			a.Logger.Warn("component shutdown returned error", logging.Field{Key: "error", Value: err})
		}
		return err
	case <-shutdownCtx.Done():
		return fmt.Errorf("shutdown: %w", shutdownCtx.Err())
	}
}
