package cmd

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/spf13/cobra"

	"qcflow/internal/bootstrap"
	"qcflow/internal/bootstrap/logging"
	"qcflow/internal/domain/quality"
	"qcflow/internal/errs"
	"qcflow/internal/ports"
	"qcflow/internal/usecase/workflow"
)

var issueCmd = &cobra.Command{
	Use:   "issue",
	Short: "Report, inspect and move quality issues",
}

var issueCreateCmd = &cobra.Command{
	Use:   "create",
	Short: "Report a new quality issue",
	RunE: withApp(func(cmd *cobra.Command, _ *bootstrap.App, svc *workflow.Service) error {
		ctx := logging.WithAttrs(cmd.Context(), slog.String("command", cmd.CommandPath()))

		actor, err := actorFrom(cmd)
		if err != nil {
			return err
		}
		estimate, err := optionalIntFlag(cmd, "estimate")
		if err != nil {
			return err
		}

		title, _ := cmd.Flags().GetString("title")
		description, _ := cmd.Flags().GetString("description")
		location, _ := cmd.Flags().GetString("location")
		priority, _ := cmd.Flags().GetString("priority")
		reporter, _ := cmd.Flags().GetString("reporter")
		supervisor, _ := cmd.Flags().GetString("supervisor")
		beforePhoto, _ := cmd.Flags().GetString("before-photo")

		issue, err := svc.CreateIssue(ctx, workflow.CreateIssueInput{
			ActorID:                 actor,
			RequestID:               requestIDFrom(cmd),
			Title:                   title,
			Description:             description,
			Location:                location,
			Priority:                priority,
			ReporterID:              reporter,
			SupervisorID:            supervisor,
			BeforePhotoRef:          beforePhoto,
			EstimatedFixTimeMinutes: estimate,
		})
		if err != nil {
			return errs.Wrap(err, "create issue")
		}

		ui := newUI(cmd)
		if ui.JSON {
			return ui.PrintJSON(issue)
		}
		ui.Success("created issue %s (%s)", issue.ID, issue.Status)
		return nil
	}),
}

var issueShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show one issue",
	RunE: withApp(func(cmd *cobra.Command, _ *bootstrap.App, svc *workflow.Service) error {
		issueID, err := issueFrom(cmd)
		if err != nil {
			return err
		}
		issue, err := svc.GetIssue(cmd.Context(), issueID)
		if err != nil {
			return errs.Wrap(err, "get issue")
		}
		return newUI(cmd).Issue(issue)
	}),
}

var issueListCmd = &cobra.Command{
	Use:   "list",
	Short: "List issues",
	RunE: withApp(func(cmd *cobra.Command, _ *bootstrap.App, svc *workflow.Service) error {
		rawStatuses, _ := cmd.Flags().GetStringSlice("status")
		assignedTo, _ := cmd.Flags().GetString("assigned-to")
		supervisor, _ := cmd.Flags().GetString("supervisor")
		reporter, _ := cmd.Flags().GetString("reporter")

		filter := ports.IssueFilter{
			AssignedTo:   assignedTo,
			SupervisorID: supervisor,
			ReporterID:   reporter,
		}
		for _, raw := range rawStatuses {
			status, ok := quality.ParseStatus(raw)
			if !ok {
				return fmt.Errorf("unknown status %q (valid: %s)", raw, statusNames())
			}
			filter.Statuses = append(filter.Statuses, status)
		}

		issues, err := svc.ListIssues(cmd.Context(), filter)
		if err != nil {
			return errs.Wrap(err, "list issues")
		}
		return newUI(cmd).Issues(issues)
	}),
}

var issueEditCmd = &cobra.Command{
	Use:   "edit",
	Short: "Edit descriptive fields of an issue",
	RunE: withApp(func(cmd *cobra.Command, _ *bootstrap.App, svc *workflow.Service) error {
		ctx := logging.WithAttrs(cmd.Context(), slog.String("command", cmd.CommandPath()))

		actor, err := actorFrom(cmd)
		if err != nil {
			return err
		}
		issueID, err := issueFrom(cmd)
		if err != nil {
			return err
		}
		estimate, err := optionalIntFlag(cmd, "estimate")
		if err != nil {
			return err
		}
		clearEstimate, _ := cmd.Flags().GetBool("clear-estimate")

		issue, err := svc.EditFields(ctx, workflow.EditFieldsInput{
			IssueID:   issueID,
			ActorID:   actor,
			RequestID: requestIDFrom(cmd),
			Patch: quality.Patch{
				Title:                   optionalStringFlag(cmd, "title"),
				Description:             optionalStringFlag(cmd, "description"),
				Location:                optionalStringFlag(cmd, "location"),
				Priority:                optionalStringFlag(cmd, "priority"),
				EstimatedFixTimeMinutes: estimate,
				ClearEstimate:           clearEstimate,
			},
		})
		if err != nil {
			return errs.Wrap(err, "edit issue")
		}
		return newUI(cmd).Issue(issue)
	}),
}

var issueDeleteCmd = &cobra.Command{
	Use:   "delete",
	Short: "Delete an issue with its comments and history (admin only)",
	RunE: withApp(func(cmd *cobra.Command, _ *bootstrap.App, svc *workflow.Service) error {
		ctx := logging.WithAttrs(cmd.Context(), slog.String("command", cmd.CommandPath()))

		actor, err := actorFrom(cmd)
		if err != nil {
			return err
		}
		issueID, err := issueFrom(cmd)
		if err != nil {
			return err
		}
		if err := svc.DeleteIssue(ctx, workflow.DeleteIssueInput{
			IssueID:   issueID,
			ActorID:   actor,
			RequestID: requestIDFrom(cmd),
		}); err != nil {
			return errs.Wrap(err, "delete issue")
		}
		newUI(cmd).Success("deleted issue %s", issueID)
		return nil
	}),
}

var issueHistoryCmd = &cobra.Command{
	Use:   "history",
	Short: "Show the audit trail of an issue",
	RunE: withApp(func(cmd *cobra.Command, _ *bootstrap.App, svc *workflow.Service) error {
		issueID, err := issueFrom(cmd)
		if err != nil {
			return err
		}
		records, err := svc.GetHistory(cmd.Context(), issueID)
		if err != nil {
			return errs.Wrap(err, "get history")
		}
		return newUI(cmd).History(records)
	}),
}

func statusNames() string {
	names := make([]string, 0, len(quality.Statuses()))
	for _, s := range quality.Statuses() {
		names = append(names, string(s))
	}
	return strings.Join(names, ", ")
}

func addIssueFieldFlags(cmd *cobra.Command) {
	cmd.Flags().String("title", "", "Short summary of the defect")
	cmd.Flags().String("description", "", "Details of the defect")
	cmd.Flags().String("location", "", "Where on the floor the defect was found")
	cmd.Flags().String("priority", "", "low, medium, high or critical")
	cmd.Flags().Int("estimate", 0, "Estimated fix time in minutes")
}

func init() {
	rootCmd.AddCommand(issueCmd)
	issueCmd.AddCommand(issueCreateCmd, issueShowCmd, issueListCmd, issueEditCmd, issueDeleteCmd, issueHistoryCmd)

	addIssueFieldFlags(issueCreateCmd)
	issueCreateCmd.Flags().String("reporter", "", "Reporter id (default: the actor; admins may file for others)")
	issueCreateCmd.Flags().String("supervisor", "", "Responsible supervisor id")
	issueCreateCmd.Flags().String("before-photo", "", "Reference of the photo showing the defect")
	_ = issueCreateCmd.MarkFlagRequired("title")
	_ = issueCreateCmd.MarkFlagRequired("supervisor")
	_ = issueCreateCmd.MarkFlagRequired("before-photo")

	issueListCmd.Flags().StringSlice("status", nil, "Filter by status (repeatable or comma separated)")
	issueListCmd.Flags().String("assigned-to", "", "Filter by assigned worker")
	issueListCmd.Flags().String("supervisor", "", "Filter by supervisor")
	issueListCmd.Flags().String("reporter", "", "Filter by reporter")

	addIssueFieldFlags(issueEditCmd)
	issueEditCmd.Flags().Bool("clear-estimate", false, "Remove the estimated fix time")

	for _, c := range []*cobra.Command{issueShowCmd, issueEditCmd, issueDeleteCmd, issueHistoryCmd} {
		c.Flags().String("issue", "", "Issue id")
		_ = c.MarkFlagRequired("issue")
	}
}
