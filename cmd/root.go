package cmd

import (
	"context"
	"errors"
	"log/slog"

	"github.com/spf13/cobra"

	"qcflow/internal/bootstrap/logging"
	"qcflow/internal/errs"
)

var (
	cfgFile    string
	jsonOutput bool
)

var rootCmd = &cobra.Command{
	Use:          "qcflow",
	Short:        "Factory-floor quality issue workflow engine",
	Long:         "Track quality issues from report to approval: assign, fix, review and audit, over CLI, HTTP or MCP.",
	SilenceUsage: true,
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute(ctx context.Context) error {
	if ctx == nil {
		return errors.New("context is required")
	}

	logger := slog.New(slog.NewTextHandler(rootCmd.ErrOrStderr(), &slog.HandlerOptions{
		Level: slog.LevelWarn,
	}))
	ctx = logging.WithLogger(ctx, logger)
	ctx = logging.WithAttrs(ctx, slog.String("app", "qcflow"))

	rootCmd.SetContext(ctx)

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		logging.Error(ctx, "command execution failed", slog.Any("err", errs.Loggable(err)))
		return errs.Wrap(err, "execute root command")
	}

	return nil
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "Config file path (default ./configs/config.yaml)")
	rootCmd.PersistentFlags().BoolVar(&jsonOutput, "json", false, "Print results as JSON")
	rootCmd.PersistentFlags().String("actor", "", "Acting person id (env QC_ACTOR)")
	rootCmd.PersistentFlags().String("request-id", "", "Idempotency key for mutating commands (default: generated)")
}
