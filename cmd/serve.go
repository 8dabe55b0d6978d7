package cmd

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"qcflow/internal/bootstrap"
	"qcflow/internal/bootstrap/logging"
	"qcflow/internal/errs"
	"qcflow/internal/transport/httpapi"
	"qcflow/internal/usecase/workflow"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the HTTP API",
	RunE: withApp(func(cmd *cobra.Command, app *bootstrap.App, svc *workflow.Service) error {
		ctx := logging.WithComponent(cmd.Context(), "transport.httpapi")

		addr, _ := cmd.Flags().GetString("addr")
		if addr == "" {
			addr = app.Config.HTTP.Addr
		}

		handler := httpapi.WithCORS(httpapi.NewHandler(svc).Routes(), app.Config.HTTP.AllowedOrigins)
		server := &http.Server{
			Addr:              addr,
			Handler:           handler,
			ReadHeaderTimeout: 10 * time.Second,
			BaseContext: func(_ net.Listener) context.Context {
				return ctx
			},
		}

		sigCtx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
		defer stop()

		serveErr := make(chan error, 1)
		go func() {
			logging.Info(ctx, "http server listening", slog.String("addr", addr))
			serveErr <- server.ListenAndServe()
		}()

		select {
		case err := <-serveErr:
			if errors.Is(err, http.ErrServerClosed) {
				return nil
			}
			return errs.Wrap(err, "serve http")
		case <-sigCtx.Done():
		}

		logging.Info(ctx, "shutting down http server", slog.Duration("timeout", app.Config.HTTP.ShutdownTimeout))
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), app.Config.HTTP.ShutdownTimeout)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			return errs.Wrap(err, "shutdown http server")
		}
		return nil
	}),
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().String("addr", "", "Listen address (default http.addr from config)")
}
