package workflow

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"qcflow/internal/bootstrap/logging"
	"qcflow/internal/domain/quality"
)

// EditFields changes descriptive fields without touching status. A patch that
// changes nothing returns the issue as stored and writes nothing.
func (s *Service) EditFields(ctx context.Context, input EditFieldsInput) (quality.Issue, error) {
	ctx, cancel, err := s.begin(ctx, input.ActorID, input.RequestID)
	if err != nil {
		return quality.Issue{}, err
	}
	defer cancel()

	issueID, err := requireIssueID(input.IssueID)
	if err != nil {
		return quality.Issue{}, err
	}
	actor, err := s.resolveActor(ctx, input.ActorID)
	if err != nil {
		return quality.Issue{}, err
	}

	release, err := s.locks.acquire(ctx, issueID)
	if err != nil {
		return quality.Issue{}, err
	}
	defer release()

	now := s.now()
	var (
		changed  []string
		replayed bool
		result   quality.Issue
	)
	err = s.commit(ctx, func(txCtx context.Context) error {
		key := requestKey{ID: input.RequestID, Operation: opEditIssue, IssueID: issueID, ActorID: actor.ID}
		out, wasReplay, err := runOnce(txCtx, s, key, now, func(txCtx context.Context) (quality.Issue, error) {
			current, err := s.repo.GetIssue(txCtx, issueID)
			if err != nil {
				return quality.Issue{}, err
			}
			next, fields, err := current.Edit(actor, input.Patch, now)
			if err != nil {
				return quality.Issue{}, err
			}
			if len(fields) == 0 {
				return current, nil
			}

			saved, err := s.repo.UpdateIssue(txCtx, next, current.Version)
			if err != nil {
				return quality.Issue{}, err
			}
			if err := s.repo.AppendAudit(txCtx, quality.NewUpdateRecord(s.newID(), saved, actor.ID, fields)); err != nil {
				return quality.Issue{}, err
			}
			changed = fields
			return saved, nil
		})
		result, replayed = out, wasReplay
		return err
	})
	if err != nil {
		return quality.Issue{}, classify(err)
	}
	if replayed || len(changed) == 0 {
		return result, nil
	}

	reason := "updated " + strings.Join(changed, ", ")
	logging.Info(ctx, "issue updated", slog.String("issue_id", issueID), slog.String("fields", strings.Join(changed, ",")))
	s.publish(ctx, quality.Event{
		Type:    quality.EventIssueUpdated,
		IssueID: issueID,
		ActorID: actor.ID,
		From:    result.Status,
		To:      result.Status,
		Reason:  reason,
		At:      result.UpdatedAt,
	})
	return result, nil
}

// DeleteIssue removes an issue with its comments and audit trail. Admin only.
func (s *Service) DeleteIssue(ctx context.Context, input DeleteIssueInput) error {
	ctx, cancel, err := s.begin(ctx, input.ActorID, input.RequestID)
	if err != nil {
		return err
	}
	defer cancel()

	issueID, err := requireIssueID(input.IssueID)
	if err != nil {
		return err
	}
	actor, err := s.resolveActor(ctx, input.ActorID)
	if err != nil {
		return err
	}
	if !actor.IsAdmin() {
		return fmt.Errorf("%w: only an admin may delete issue %s", quality.ErrForbidden, issueID)
	}

	release, err := s.locks.acquire(ctx, issueID)
	if err != nil {
		return err
	}
	defer release()

	now := s.now()
	var replayed bool
	err = s.commit(ctx, func(txCtx context.Context) error {
		key := requestKey{ID: input.RequestID, Operation: opDeleteIssue, IssueID: issueID, ActorID: actor.ID}
		_, wasReplay, err := runOnce(txCtx, s, key, now, func(txCtx context.Context) (struct{}, error) {
			return struct{}{}, s.repo.DeleteIssue(txCtx, issueID)
		})
		replayed = wasReplay
		return err
	})
	if err != nil {
		return classify(err)
	}
	if replayed {
		return nil
	}

	logging.Warn(ctx, "issue deleted with comments and history", slog.String("issue_id", issueID))
	s.publish(ctx, quality.Event{
		Type:    quality.EventIssueDeleted,
		IssueID: issueID,
		ActorID: actor.ID,
		At:      now,
	})
	return nil
}
