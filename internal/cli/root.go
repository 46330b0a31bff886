// Package cli provides the Cobra command tree of the phishlens binary.
package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/raysh454/phishlens/internal/app"
	"github.com/raysh454/phishlens/internal/store"
)

// Version is overridden at build time with -ldflags "-X ...cli.Version=...".
var Version = "0.1.0-dev"

// GlobalOpts override process configuration for a single invocation.
type GlobalOpts struct {
	StorageRoot string
	Store       string
	LogLevel    string
}

// NewRootCmd creates the root command.
func NewRootCmd() *cobra.Command {
	opts := &GlobalOpts{}

	rootCmd := &cobra.Command{
		Use:   "phishlens",
		Short: "Phishing-risk scoring for web pages",
		Long: `phishlens - phishing-risk scoring for web pages

Scores a page from its URL and visible text, fusing a remote model with
local heuristics, and keeps a tamper-evident ledger of reported domains.`,
		Version:       Version,
		SilenceErrors: true,
		SilenceUsage:  true,
	}

	rootCmd.PersistentFlags().StringVar(&opts.StorageRoot, "storage-root", "", "directory holding the state database")
	rootCmd.PersistentFlags().StringVar(&opts.Store, "store", "", "state backend: sqlite, redis or memory")
	rootCmd.PersistentFlags().StringVar(&opts.LogLevel, "log-level", "", "debug, info, warn or error")

	rootCmd.CompletionOptions.DisableDefaultCmd = true

	rootCmd.AddCommand(
		newServeCmd(opts),
		newAnalyzeCmd(opts),
		newScanCmd(opts),
		newReportCmd(opts),
		newStatusCmd(opts),
		newLedgerCmd(opts),
		newPingCmd(opts),
		newSettingsCmd(opts),
		newPluginsCmd(opts),
		newHistoryCmd(opts),
		newVersionCmd(),
	)

	return rootCmd
}

// Execute runs the root command with the given output writers.
func Execute(stdout, stderr io.Writer) error {
	rootCmd := NewRootCmd()
	rootCmd.SetOut(stdout)
	rootCmd.SetErr(stderr)
	return rootCmd.Execute()
}

// loadConfig reads the environment and applies the global flags.
func (o *GlobalOpts) loadConfig() (*app.Config, error) {
	cfg, err := app.LoadConfig()
	if err != nil {
		return nil, err
	}
	if o.StorageRoot != "" {
		cfg.StorageRoot = o.StorageRoot
	}
	if o.Store != "" {
		cfg.StoreCfg.Backend = store.Backend(o.Store)
	}
	if o.LogLevel != "" {
		cfg.LogLevel = o.LogLevel
	}
	return cfg, nil
}

// withApp builds an Application for the duration of fn. Logs go to the
// command's stderr so stdout stays machine readable.
func (o *GlobalOpts) withApp(cmd *cobra.Command, fn func(ctx context.Context, a *app.Application) error) error {
	cfg, err := o.loadConfig()
	if err != nil {
		return err
	}
	logger := app.NewLogger(cfg, cmd.ErrOrStderr())
	a, err := app.NewApplication(cfg, logger)
	if err != nil {
		return fmt.Errorf("starting phishlens: %w", err)
	}
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	defer func() { _ = a.Shutdown(context.WithoutCancel(ctx)) }()
	return fn(ctx, a)
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
