package cmd

import (
	"context"
	"log/slog"

	"github.com/spf13/cobra"

	"qcflow/internal/bootstrap"
	"qcflow/internal/bootstrap/logging"
	"qcflow/internal/domain/quality"
	"qcflow/internal/errs"
	"qcflow/internal/usecase/workflow"
)

// transitionTarget carries the common arguments of a workflow trigger.
type transitionTarget struct {
	issueID   string
	actorID   string
	requestID string
}

// transitionCommand builds a subcommand that fires one workflow trigger.
func transitionCommand(
	use string,
	short string,
	fire func(ctx context.Context, cmd *cobra.Command, svc *workflow.Service, target transitionTarget) (quality.Issue, error),
) *cobra.Command {
	c := &cobra.Command{
		Use:   use,
		Short: short,
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

			issue, err := fire(ctx, cmd, svc, transitionTarget{
				issueID:   issueID,
				actorID:   actor,
				requestID: requestIDFrom(cmd),
			})
			if err != nil {
				return errs.Wrapf(err, "%s issue %s", use, issueID)
			}

			ui := newUI(cmd)
			if ui.JSON {
				return ui.PrintJSON(issue)
			}
			ui.Success("issue %s is now %s", issue.ID, issue.Status)
			return nil
		}),
	}
	c.Flags().String("issue", "", "Issue id")
	_ = c.MarkFlagRequired("issue")
	return c
}

var issueAssignCmd = transitionCommand("assign", "Assign a worker (supervisor)",
	func(ctx context.Context, cmd *cobra.Command, svc *workflow.Service, t transitionTarget) (quality.Issue, error) {
		worker, _ := cmd.Flags().GetString("worker")
		return svc.AssignWorker(ctx, workflow.AssignWorkerInput{
			IssueID: t.issueID, ActorID: t.actorID, RequestID: t.requestID, WorkerID: worker,
		})
	})

var issueStartCmd = transitionCommand("start", "Start work on an assigned issue (assigned worker)",
	func(ctx context.Context, _ *cobra.Command, svc *workflow.Service, t transitionTarget) (quality.Issue, error) {
		return svc.StartWork(ctx, workflow.StartWorkInput{IssueID: t.issueID, ActorID: t.actorID, RequestID: t.requestID})
	})

var issueFixCmd = transitionCommand("fix", "Submit a fix with an after photo (assigned worker)",
	func(ctx context.Context, cmd *cobra.Command, svc *workflow.Service, t transitionTarget) (quality.Issue, error) {
		afterPhoto, _ := cmd.Flags().GetString("after-photo")
		return svc.SubmitFix(ctx, workflow.SubmitFixInput{
			IssueID: t.issueID, ActorID: t.actorID, RequestID: t.requestID, AfterPhotoRef: afterPhoto,
		})
	})

var issueAcceptCmd = transitionCommand("accept", "Accept a fix for review (supervisor)",
	func(ctx context.Context, cmd *cobra.Command, svc *workflow.Service, t transitionTarget) (quality.Issue, error) {
		reason, _ := cmd.Flags().GetString("reason")
		return svc.AcceptForReview(ctx, workflow.AcceptForReviewInput{
			IssueID: t.issueID, ActorID: t.actorID, RequestID: t.requestID, Reason: reason,
		})
	})

var issueRejectCmd = transitionCommand("reject", "Reject a fix at first pass (supervisor)",
	func(ctx context.Context, cmd *cobra.Command, svc *workflow.Service, t transitionTarget) (quality.Issue, error) {
		reason, _ := cmd.Flags().GetString("reason")
		return svc.RejectAtFirstPass(ctx, workflow.RejectAtFirstPassInput{
			IssueID: t.issueID, ActorID: t.actorID, RequestID: t.requestID, Reason: reason,
		})
	})

var issueFinalizeCmd = transitionCommand("finalize", "Approve or reject a reviewed fix (supervisor)",
	func(ctx context.Context, cmd *cobra.Command, svc *workflow.Service, t transitionTarget) (quality.Issue, error) {
		decision, _ := cmd.Flags().GetString("decision")
		reason, _ := cmd.Flags().GetString("reason")
		return svc.Finalize(ctx, workflow.FinalizeInput{
			IssueID: t.issueID, ActorID: t.actorID, RequestID: t.requestID, Decision: decision, Reason: reason,
		})
	})

func init() {
	issueCmd.AddCommand(issueAssignCmd, issueStartCmd, issueFixCmd, issueAcceptCmd, issueRejectCmd, issueFinalizeCmd)

	issueAssignCmd.Flags().String("worker", "", "Worker id")
	_ = issueAssignCmd.MarkFlagRequired("worker")

	issueFixCmd.Flags().String("after-photo", "", "Reference of the photo after the fix")

	issueAcceptCmd.Flags().String("reason", "", "Optional note")
	issueRejectCmd.Flags().String("reason", "", "Why the fix is rejected")
	_ = issueRejectCmd.MarkFlagRequired("reason")

	issueFinalizeCmd.Flags().String("decision", "", "approved or rejected")
	issueFinalizeCmd.Flags().String("reason", "", "Required when rejecting")
	_ = issueFinalizeCmd.MarkFlagRequired("decision")
}
