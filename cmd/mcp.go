package cmd

import (
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"qcflow/internal/bootstrap"
	"qcflow/internal/bootstrap/logging"
	"qcflow/internal/errs"
	"qcflow/internal/transport/mcpapi"
	"qcflow/internal/usecase/workflow"
)

var version = "dev"

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Serve the workflow as MCP tools over stdio",
	Long:  "Start an MCP server on stdin/stdout. Logs go to stderr so the protocol stream stays clean.",
	RunE: withApp(func(cmd *cobra.Command, _ *bootstrap.App, svc *workflow.Service) error {
		ctx := logging.WithComponent(cmd.Context(), "transport.mcpapi")
		ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		logging.Info(ctx, "mcp stdio server starting")
		if err := mcpapi.NewServer(svc, version).ServeStdio(ctx); err != nil {
			return errs.Wrap(err, "serve mcp")
		}
		return nil
	}),
}

func init() {
	rootCmd.AddCommand(mcpCmd)
}
