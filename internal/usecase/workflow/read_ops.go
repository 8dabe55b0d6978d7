package workflow

import (
	"context"
	"errors"
	"time"

	"qcflow/internal/domain/quality"
	"qcflow/internal/ports"
)

// read runs one query with the default deadline and the error taxonomy applied.
func (s *Service) read(ctx context.Context, fn func(ctx context.Context) error) error {
	if ctx == nil {
		return errors.New("context is required")
	}
	if s.repo == nil {
		return errors.New("issue repository is required")
	}
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()
	if err := ctx.Err(); err != nil {
		return quality.Unavailable(err)
	}
	return classify(fn(ctx))
}

func (s *Service) GetIssue(ctx context.Context, issueID string) (quality.Issue, error) {
	id, err := requireIssueID(issueID)
	if err != nil {
		return quality.Issue{}, err
	}
	var issue quality.Issue
	err = s.read(ctx, func(ctx context.Context) error {
		var err error
		issue, err = s.repo.GetIssue(ctx, id)
		return err
	})
	return issue, err
}

func (s *Service) ListIssues(ctx context.Context, filter ports.IssueFilter) ([]quality.Issue, error) {
	var issues []quality.Issue
	err := s.read(ctx, func(ctx context.Context) error {
		var err error
		issues, err = s.repo.ListIssues(ctx, filter)
		return err
	})
	return issues, err
}

// GetHistory returns the audit trail of an issue, oldest first.
func (s *Service) GetHistory(ctx context.Context, issueID string) ([]quality.AuditRecord, error) {
	id, err := requireIssueID(issueID)
	if err != nil {
		return nil, err
	}
	var records []quality.AuditRecord
	err = s.read(ctx, func(ctx context.Context) error {
		if _, err := s.repo.GetIssue(ctx, id); err != nil {
			return err
		}
		var err error
		records, err = s.repo.ListAudit(ctx, id)
		return err
	})
	return records, err
}

// GetDashboardStats aggregates every issue as of now. The calendar day used
// for CreatedToday is taken in now's location; a zero now means the clock.
func (s *Service) GetDashboardStats(ctx context.Context, now time.Time) (quality.DashboardStats, error) {
	if now.IsZero() {
		now = s.now()
	}
	var issues []quality.Issue
	err := s.read(ctx, func(ctx context.Context) error {
		var err error
		issues, err = s.repo.ListIssues(ctx, ports.IssueFilter{})
		return err
	})
	if err != nil {
		return quality.DashboardStats{}, err
	}
	return quality.ComputeDashboard(issues, now), nil
}
