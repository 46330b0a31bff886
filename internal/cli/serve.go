package cli

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/raysh454/phishlens/internal/app"
	"github.com/raysh454/phishlens/internal/logging"
	"github.com/raysh454/phishlens/internal/server"
)

func newServeCmd(opts *GlobalOpts) *cobra.Command {
	var addr string
	var logBodies bool

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP and WebSocket API",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			cmd.SetContext(ctx)

			return opts.withApp(cmd, func(ctx context.Context, a *app.Application) error {
				if addr == "" {
					addr = a.Config.ListenAddr
				}
				srv, err := server.NewServer(server.Config{ListenAddr: addr, Logger: a.Logger, LogBodies: logBodies}, a.Orch)
				if err != nil {
					return err
				}
				return listen(ctx, srv.HTTPServer(), a.Logger)
			})
		},
	}

	cmd.Flags().StringVar(&addr, "addr", "", "listen address (default from PHISHLENS_LISTEN_ADDR or :8080)")
	cmd.Flags().BoolVar(&logBodies, "log-bodies", false, "log request bodies")
	return cmd
}

// listen serves until ctx is cancelled, then drains in-flight requests.
func listen(ctx context.Context, srv *http.Server, logger logging.Logger) error {
	errCh := make(chan error, 1)
	go func() { errCh <- srv.ListenAndServe() }()
	logger.Info("api listening", logging.Field{Key: "addr", Value: srv.Addr})

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		logger.Info("shutting down api")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}
