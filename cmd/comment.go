package cmd

import (
	"log/slog"

	"github.com/spf13/cobra"

	"qcflow/internal/bootstrap"
	"qcflow/internal/bootstrap/logging"
	"qcflow/internal/domain/quality"
	"qcflow/internal/errs"
	"qcflow/internal/usecase/workflow"
)

var commentCmd = &cobra.Command{
	Use:   "comment",
	Short: "Discuss an issue",
}

var commentAddCmd = &cobra.Command{
	Use:   "add",
	Short: "Add a comment to an issue",
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
		text, _ := cmd.Flags().GetString("text")
		kind, _ := cmd.Flags().GetString("kind")

		comment, err := svc.AddComment(ctx, workflow.AddCommentInput{
			IssueID:   issueID,
			ActorID:   actor,
			RequestID: requestIDFrom(cmd),
			Text:      text,
			Kind:      kind,
		})
		if err != nil {
			return errs.Wrap(err, "add comment")
		}

		ui := newUI(cmd)
		if ui.JSON {
			return ui.PrintJSON(comment)
		}
		ui.Success("comment %s added to %s", comment.ID, issueID)
		return nil
	}),
}

var commentListCmd = &cobra.Command{
	Use:   "list",
	Short: "List the comments of an issue, oldest first",
	RunE: withApp(func(cmd *cobra.Command, _ *bootstrap.App, svc *workflow.Service) error {
		issueID, err := issueFrom(cmd)
		if err != nil {
			return err
		}
		limit, _ := cmd.Flags().GetInt("limit")

		comments := make([]quality.Comment, 0)
		for c, err := range svc.ListComments(cmd.Context(), issueID) {
			if err != nil {
				return errs.Wrap(err, "list comments")
			}
			comments = append(comments, c)
			if limit > 0 && len(comments) >= limit {
				break
			}
		}
		return newUI(cmd).Comments(comments)
	}),
}

func init() {
	rootCmd.AddCommand(commentCmd)
	commentCmd.AddCommand(commentAddCmd, commentListCmd)

	for _, c := range []*cobra.Command{commentAddCmd, commentListCmd} {
		c.Flags().String("issue", "", "Issue id")
		_ = c.MarkFlagRequired("issue")
	}
	commentAddCmd.Flags().String("text", "", "Comment text")
	commentAddCmd.Flags().String("kind", "general", "general, progress, solution or review")
	_ = commentAddCmd.MarkFlagRequired("text")

	commentListCmd.Flags().Int("limit", 0, "Show at most this many comments (0 = all)")
}
