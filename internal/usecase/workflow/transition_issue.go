package workflow

import (
	"context"
	"log/slog"

	"qcflow/internal/bootstrap/logging"
	"qcflow/internal/domain/quality"
)

type transitionRequest struct {
	issueID   string
	actorID   string
	requestID string
	command   quality.Command
	// prepare runs before the transaction and returns a check that is applied
	// after the table, guard and argument checks passed, before any write.
	prepare func(ctx context.Context) func(next quality.Issue) error
}

// AssignWorker moves a Reported issue to Assigned. The worker must be a known
// actor with the worker role.
func (s *Service) AssignWorker(ctx context.Context, input AssignWorkerInput) (quality.Issue, error) {
	return s.transition(ctx, transitionRequest{
		issueID:   input.IssueID,
		actorID:   input.ActorID,
		requestID: input.RequestID,
		command:   quality.Command{Trigger: quality.TriggerAssignWorker, WorkerID: input.WorkerID},
		prepare: func(ctx context.Context) func(quality.Issue) error {
			worker := s.lookupRole(ctx, "worker", input.WorkerID)
			return func(quality.Issue) error {
				return worker.require(quality.RoleWorker)
			}
		},
	})
}

func (s *Service) StartWork(ctx context.Context, input StartWorkInput) (quality.Issue, error) {
	return s.transition(ctx, transitionRequest{
		issueID:   input.IssueID,
		actorID:   input.ActorID,
		requestID: input.RequestID,
		command:   quality.Command{Trigger: quality.TriggerStartWork},
	})
}

func (s *Service) SubmitFix(ctx context.Context, input SubmitFixInput) (quality.Issue, error) {
	return s.transition(ctx, transitionRequest{
		issueID:   input.IssueID,
		actorID:   input.ActorID,
		requestID: input.RequestID,
		command:   quality.Command{Trigger: quality.TriggerSubmitFix, AfterPhotoRef: input.AfterPhotoRef},
	})
}

// AcceptForReview records the actual fix time and moves a Fixed issue to Review.
func (s *Service) AcceptForReview(ctx context.Context, input AcceptForReviewInput) (quality.Issue, error) {
	return s.transition(ctx, transitionRequest{
		issueID:   input.IssueID,
		actorID:   input.ActorID,
		requestID: input.RequestID,
		command:   quality.Command{Trigger: quality.TriggerAcceptForReview, Reason: input.Reason},
	})
}

func (s *Service) RejectAtFirstPass(ctx context.Context, input RejectAtFirstPassInput) (quality.Issue, error) {
	return s.transition(ctx, transitionRequest{
		issueID:   input.IssueID,
		actorID:   input.ActorID,
		requestID: input.RequestID,
		command:   quality.Command{Trigger: quality.TriggerRejectAtFirstPass, Reason: input.Reason},
	})
}

// Finalize closes a reviewed issue as approved or rejected. An unknown
// decision is a failed precondition.
func (s *Service) Finalize(ctx context.Context, input FinalizeInput) (quality.Issue, error) {
	decision, _ := quality.ParseDecision(input.Decision)
	return s.transition(ctx, transitionRequest{
		issueID:   input.IssueID,
		actorID:   input.ActorID,
		requestID: input.RequestID,
		command:   quality.Command{Trigger: quality.TriggerFinalize, Decision: decision, Reason: input.Reason},
	})
}

// transition is the read-guard-write unit shared by every workflow trigger:
// under the issue lock and inside one transaction it loads the issue, applies
// the command, writes the issue with a version check and appends the audit record.
func (s *Service) transition(ctx context.Context, req transitionRequest) (quality.Issue, error) {
	ctx, cancel, err := s.begin(ctx, req.actorID, req.requestID)
	if err != nil {
		return quality.Issue{}, err
	}
	defer cancel()

	issueID, err := requireIssueID(req.issueID)
	if err != nil {
		return quality.Issue{}, err
	}
	ctx = logging.WithIssue(ctx, issueID)
	actor, err := s.resolveActor(ctx, req.actorID)
	if err != nil {
		return quality.Issue{}, err
	}

	var check func(quality.Issue) error
	if req.prepare != nil {
		check = req.prepare(ctx)
	}

	release, err := s.locks.acquire(ctx, issueID)
	if err != nil {
		return quality.Issue{}, err
	}
	defer release()

	now := s.now()
	var (
		applied  quality.Transition
		replayed bool
		result   quality.Issue
	)
	err = s.commit(ctx, func(txCtx context.Context) error {
		key := requestKey{ID: req.requestID, Operation: string(req.command.Trigger), IssueID: issueID, ActorID: actor.ID}
		out, wasReplay, err := runOnce(txCtx, s, key, now, func(txCtx context.Context) (quality.Issue, error) {
			current, err := s.repo.GetIssue(txCtx, issueID)
			if err != nil {
				return quality.Issue{}, err
			}
			next, t, err := current.Apply(actor, req.command, now)
			if err != nil {
				return quality.Issue{}, err
			}
			if check != nil {
				if err := check(next); err != nil {
					return quality.Issue{}, err
				}
			}

			saved, err := s.repo.UpdateIssue(txCtx, next, current.Version)
			if err != nil {
				return quality.Issue{}, err
			}
			if err := s.repo.AppendAudit(txCtx, quality.NewTransitionRecord(s.newID(), issueID, actor.ID, t)); err != nil {
				return quality.Issue{}, err
			}
			applied = t
			return saved, nil
		})
		result, replayed = out, wasReplay
		return err
	})
	if err != nil {
		return quality.Issue{}, classify(err)
	}
	if replayed {
		logging.Info(ctx, "replayed transition", slog.String("trigger", string(req.command.Trigger)))
		return result, nil
	}

	logging.Info(
		ctx,
		"issue transitioned",
		slog.String("trigger", string(applied.Trigger)),
		slog.String("from", string(applied.From)),
		slog.String("to", string(applied.To)),
	)
	s.publish(ctx, quality.Event{
		Type:    quality.EventIssueTransitioned,
		IssueID: issueID,
		ActorID: actor.ID,
		From:    applied.From,
		To:      applied.To,
		Reason:  applied.Reason,
		At:      applied.At,
	})
	return result, nil
}
