package cmd

import (
	"fmt"
	"time"
	_ "time/tzdata"

	"github.com/spf13/cobra"

	"qcflow/internal/bootstrap"
	"qcflow/internal/errs"
	"qcflow/internal/usecase/workflow"
)

var dashboardCmd = &cobra.Command{
	Use:   "dashboard",
	Short: "Show issue totals, open count, issues created today and average fix time",
	RunE: withApp(func(cmd *cobra.Command, _ *bootstrap.App, svc *workflow.Service) error {
		tz, _ := cmd.Flags().GetString("tz")
		loc := time.Local
		if tz != "" {
			parsed, err := time.LoadLocation(tz)
			if err != nil {
				return fmt.Errorf("unknown time zone %q: %w", tz, err)
			}
			loc = parsed
		}

		stats, err := svc.GetDashboardStats(cmd.Context(), time.Now().In(loc))
		if err != nil {
			return errs.Wrap(err, "compute dashboard")
		}
		return newUI(cmd).Dashboard(stats)
	}),
}

func init() {
	rootCmd.AddCommand(dashboardCmd)
	dashboardCmd.Flags().String("tz", "", "IANA time zone that defines 'today' (default: local)")
}
