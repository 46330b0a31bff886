package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/raysh454/phishlens/internal/app"
	"github.com/raysh454/phishlens/internal/plugins"
)

func newPluginsCmd(opts *GlobalOpts) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "plugins",
		Short: "List, toggle, tune and import detector plugins",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "Print every plugin with its effective state",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return opts.withApp(cmd, func(ctx context.Context, a *app.Application) error {
				views, err := a.Orch.Plugins(ctx)
				if err != nil {
					return err
				}
				return printJSON(cmd.OutOrStdout(), views)
			})
		},
	})

	for _, enable := range []bool{true, false} {
		use, short := "enable <id>", "Turn a plugin on"
		if !enable {
			use, short = "disable <id>", "Turn a plugin off"
		}
		cmd.AddCommand(&cobra.Command{
			Use:   use,
			Short: short,
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				return opts.withApp(cmd, func(ctx context.Context, a *app.Application) error {
					view, err := a.Orch.SetPluginEnabled(ctx, args[0], enable)
					if err != nil {
						return err
					}
					return printJSON(cmd.OutOrStdout(), view)
				})
			},
		})
	}

	cmd.AddCommand(&cobra.Command{
		Use:     "set <id> <setting=value>...",
		Short:   "Change plugin settings",
		Example: `  phishlens plugins set homoglyph sensitivity=0.8`,
		Args:    cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return opts.withApp(cmd, func(ctx context.Context, a *app.Application) error {
				patch, err := pluginPatch(ctx, a.Orch, args[0], args[1:])
				if err != nil {
					return err
				}
				view, err := a.Orch.PatchPlugin(ctx, args[0], patch)
				if err != nil {
					return err
				}
				return printJSON(cmd.OutOrStdout(), view)
			})
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "import <file|->",
		Short: "Replace imported plugins with the definitions in a JSON file",
		Long: `Replace imported plugins with the definitions in a JSON file. The file
holds either an array of plugins or an object with a "plugins" array.
Use - to read standard input.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var data []byte
			var err error
			if args[0] == "-" {
				data, err = io.ReadAll(cmd.InOrStdin())
			} else {
				data, err = os.ReadFile(args[0])
			}
			if err != nil {
				return fmt.Errorf("reading plugins file: %w", err)
			}
			return opts.withApp(cmd, func(ctx context.Context, a *app.Application) error {
				views, err := a.Orch.ImportPlugins(ctx, data)
				if err != nil {
					return err
				}
				return printJSON(cmd.OutOrStdout(), views)
			})
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "reset",
		Short: "Drop imported plugins and every stored plugin override",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return opts.withApp(cmd, func(ctx context.Context, a *app.Application) error {
				if err := a.Orch.ResetPlugins(ctx); err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), "plugins reset")
				return nil
			})
		},
	})
	return cmd
}

// pluginPatch converts setting=value pairs using each setting's type.
func pluginPatch(ctx context.Context, orch *app.Orchestrator, id string, pairs []string) (app.PluginPatch, error) {
	views, err := orch.Plugins(ctx)
	if err != nil {
		return app.PluginPatch{}, err
	}
	view, ok := plugins.Find(views, id)
	if !ok {
		return app.PluginPatch{}, fmt.Errorf("%w: %s", plugins.ErrUnknownPlugin, id)
	}
	patch := app.PluginPatch{Settings: make(map[string]any, len(pairs))}
	for _, p := range pairs {
		key, raw, ok := strings.Cut(p, "=")
		key = strings.TrimSpace(key)
		if !ok || key == "" {
			return patch, fmt.Errorf("expected setting=value, got %q", p)
		}
		def, err := plugins.SettingOf(view.Plugin, key)
		if err != nil {
			return patch, err
		}
		if patch.Settings[key], err = plugins.ParseValue(def, raw); err != nil {
			return patch, err
		}
	}
	return patch, nil
}
