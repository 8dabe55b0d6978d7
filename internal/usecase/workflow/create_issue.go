package workflow

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"qcflow/internal/bootstrap/logging"
	"qcflow/internal/domain/quality"
)

// CreateIssue files a new issue in the Reported state. Any identified actor
// may report; the supervisor must be a known supervisor or admin.
func (s *Service) CreateIssue(ctx context.Context, input CreateIssueInput) (quality.Issue, error) {
	ctx, cancel, err := s.begin(ctx, input.ActorID, input.RequestID)
	if err != nil {
		return quality.Issue{}, err
	}
	defer cancel()

	actor, err := s.resolveActor(ctx, input.ActorID)
	if err != nil {
		return quality.Issue{}, err
	}

	reporterID := strings.TrimSpace(input.ReporterID)
	if reporterID == "" {
		reporterID = actor.ID
	}
	if reporterID != actor.ID && !actor.IsAdmin() {
		return quality.Issue{}, fmt.Errorf("%w: only an admin may report on behalf of %q", quality.ErrForbidden, reporterID)
	}

	supervisor := s.lookupRole(ctx, "supervisor", input.SupervisorID)

	now := s.now()
	var replayed bool
	var created quality.Issue
	err = s.commit(ctx, func(txCtx context.Context) error {
		out, wasReplay, err := runOnce(txCtx, s, requestKey{ID: input.RequestID, Operation: opCreateIssue, ActorID: actor.ID}, now,
			func(txCtx context.Context) (quality.Issue, error) {
				issue, err := quality.NewIssue(s.newIssueID(), quality.NewIssueInput{
					Title:                   input.Title,
					Description:             input.Description,
					Location:                input.Location,
					Priority:                input.Priority,
					ReporterID:              reporterID,
					SupervisorID:            input.SupervisorID,
					BeforePhotoRef:          input.BeforePhotoRef,
					EstimatedFixTimeMinutes: input.EstimatedFixTimeMinutes,
				}, now)
				if err != nil {
					return quality.Issue{}, err
				}
				if err := supervisor.require(quality.RoleSupervisor, quality.RoleAdmin); err != nil {
					return quality.Issue{}, err
				}
				return s.repo.CreateIssue(txCtx, issue)
			})
		created, replayed = out, wasReplay
		return err
	})
	if err != nil {
		return quality.Issue{}, classify(err)
	}
	if replayed {
		return created, nil
	}

	logging.Info(ctx, "issue created", slog.String("issue_id", created.ID), slog.String("priority", string(created.Priority)))
	s.publish(ctx, quality.Event{
		Type:    quality.EventIssueCreated,
		IssueID: created.ID,
		ActorID: actor.ID,
		To:      created.Status,
		At:      created.CreatedAt,
	})
	return created, nil
}
