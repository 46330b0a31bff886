package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/raysh454/phishlens/internal/app"
	"github.com/raysh454/phishlens/internal/model"
)

func newAnalyzeCmd(opts *GlobalOpts) *cobra.Command {
	var payload model.AnalysisPayload

	cmd := &cobra.Command{
		Use:   "analyze",
		Short: "Score a URL and optional page text",
		Long: `Score a URL and optional page text without fetching the page.
Use "scan" to collect the page first.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if strings.TrimSpace(payload.URL) == "" && strings.TrimSpace(payload.Text) == "" {
				return errors.New("one of --url or --text is required")
			}
			payload.Source = app.SourceManual
			return opts.withApp(cmd, func(ctx context.Context, a *app.Application) error {
				return printJSON(cmd.OutOrStdout(), a.Orch.Analyze(ctx, payload))
			})
		},
	}

	cmd.Flags().StringVar(&payload.URL, "url", "", "page URL")
	cmd.Flags().StringVar(&payload.Text, "text", "", "visible page text")
	cmd.Flags().StringVar(&payload.Title, "title", "", "page title")
	return cmd
}

func newScanCmd(opts *GlobalOpts) *cobra.Command {
	var concurrency int
	var source string

	cmd := &cobra.Command{
		Use:   "scan <url>...",
		Short: "Fetch and score one or more pages",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return opts.withApp(cmd, func(ctx context.Context, a *app.Application) error {
				if len(args) == 1 {
					res, err := a.Orch.ScanURL(ctx, args[0], source)
					if err != nil {
						return err
					}
					return printJSON(cmd.OutOrStdout(), res)
				}
				results, err := a.Orch.ScanBatch(ctx, args, concurrency)
				if err != nil {
					return err
				}
				return printJSON(cmd.OutOrStdout(), results)
			})
		},
	}

	cmd.Flags().IntVar(&concurrency, "concurrency", 0, "parallel scans for several URLs (0 = configured default)")
	cmd.Flags().StringVar(&source, "source", app.SourceManual, "trigger tag recorded with the scan")
	return cmd
}

func newReportCmd(opts *GlobalOpts) *cobra.Command {
	var source string

	cmd := &cobra.Command{
		Use:   "report <url>",
		Short: "Record an abuse report for the URL's domain",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return opts.withApp(cmd, func(ctx context.Context, a *app.Application) error {
				res, err := a.Orch.AddReport(ctx, args[0], source)
				if err != nil {
					return err
				}
				if perr := printJSON(cmd.OutOrStdout(), res); perr != nil {
					return perr
				}
				if !res.OK {
					return fmt.Errorf("report rejected: %s", res.Error)
				}
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&source, "source", app.SourceManual, "report source tag")
	return cmd
}

func newStatusCmd(opts *GlobalOpts) *cobra.Command {
	return &cobra.Command{
		Use:   "status <url>",
		Short: "Show the report count of a URL's domain",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return opts.withApp(cmd, func(ctx context.Context, a *app.Application) error {
				info, err := a.Orch.ReportStatus(ctx, args[0])
				if err != nil {
					return err
				}
				return printJSON(cmd.OutOrStdout(), info)
			})
		},
	}
}

func newLedgerCmd(opts *GlobalOpts) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "ledger",
		Short: "Inspect the report ledger",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "verify",
		Short: "Recompute the hash chain and report the first broken link",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return opts.withApp(cmd, func(ctx context.Context, a *app.Application) error {
				rep, err := a.Orch.VerifyLedger(ctx)
				if err != nil {
					return err
				}
				if perr := printJSON(cmd.OutOrStdout(), rep); perr != nil {
					return perr
				}
				if !rep.Valid {
					return errors.New("ledger chain is broken")
				}
				return nil
			})
		},
	})
	return cmd
}

func newPingCmd(opts *GlobalOpts) *cobra.Command {
	return &cobra.Command{
		Use:   "ping",
		Short: "Check the model backend health endpoint",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return opts.withApp(cmd, func(ctx context.Context, a *app.Application) error {
				return printJSON(cmd.OutOrStdout(), a.Orch.Ping(ctx))
			})
		},
	}
}

func newSettingsCmd(opts *GlobalOpts) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "settings",
		Short: "Show or change stored settings",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "get",
		Short: "Print the current settings",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return opts.withApp(cmd, func(ctx context.Context, a *app.Application) error {
				st, err := a.Orch.Settings(ctx)
				if err != nil {
					return err
				}
				return printJSON(cmd.OutOrStdout(), st)
			})
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "set <key=value>...",
		Short: "Merge key=value pairs into the settings",
		Long: `Merge key=value pairs into the settings. Values are read as JSON when
they parse ("true", "0.5", '["example.com"]'), otherwise as strings.`,
		Example: `  phishlens settings set mlBaseUrl=http://localhost:8000 globalThreshold=0.6`,
		Args:    cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			patch, err := settingsPatch(args)
			if err != nil {
				return err
			}
			return opts.withApp(cmd, func(ctx context.Context, a *app.Application) error {
				st, err := a.Orch.UpdateSettings(ctx, patch)
				if err != nil {
					return err
				}
				return printJSON(cmd.OutOrStdout(), st)
			})
		},
	})
	return cmd
}

// settingsPatch turns key=value pairs into a JSON merge object.
func settingsPatch(pairs []string) ([]byte, error) {
	patch := make(map[string]json.RawMessage, len(pairs))
	for _, p := range pairs {
		key, val, ok := strings.Cut(p, "=")
		key = strings.TrimSpace(key)
		if !ok || key == "" {
			return nil, fmt.Errorf("expected key=value, got %q", p)
		}
		if json.Valid([]byte(val)) {
			patch[key] = json.RawMessage(val)
			continue
		}
		quoted, err := json.Marshal(val)
		if err != nil {
			return nil, err
		}
		patch[key] = quoted
	}
	return json.Marshal(patch)
}

func newHistoryCmd(opts *GlobalOpts) *cobra.Command {
	var last bool

	cmd := &cobra.Command{
		Use:   "history",
		Short: "Print stored scan results",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return opts.withApp(cmd, func(ctx context.Context, a *app.Application) error {
				if last {
					res, err := a.Orch.LastScan(ctx)
					if err != nil {
						return err
					}
					if res == nil {
						return errors.New("no scan yet")
					}
					return printJSON(cmd.OutOrStdout(), res)
				}
				h, err := a.Orch.History(ctx)
				if err != nil {
					return err
				}
				return printJSON(cmd.OutOrStdout(), h)
			})
		},
	}

	cmd.Flags().BoolVar(&last, "last", false, "print only the most recent result")
	return cmd
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print phishlens version",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "phishlens %s\n", Version)
		},
	}
}
