package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"gorm.io/gorm"

	"qcflow/internal/domain/quality"
	"qcflow/internal/errs"
	"qcflow/internal/infrastructure/persistence/gormstore/model"
	"qcflow/internal/ports"
)

type IssueRepository struct {
	db *gorm.DB
}

var _ ports.IssueRepository = (*IssueRepository)(nil)

func NewIssueRepository(db *gorm.DB) *IssueRepository {
	return &IssueRepository{db: db}
}

func (r *IssueRepository) dbFromContext(ctx context.Context) (*gorm.DB, error) {
	if ctx == nil {
		return nil, errors.New("context is required")
	}

	tx := ports.TxFromContext(ctx)
	if tx == nil {
		return r.db.WithContext(ctx), nil
	}

	gormTx, ok := tx.(*gorm.DB)
	if !ok || gormTx == nil {
		return nil, fmt.Errorf("invalid tx in context: %T", tx)
	}
	return gormTx.WithContext(ctx), nil
}

// inTx runs fn inside the caller's transaction, or a new one when there is none.
func (r *IssueRepository) inTx(ctx context.Context, fn func(db *gorm.DB) error) error {
	if ports.TxFromContext(ctx) != nil {
		db, err := r.dbFromContext(ctx)
		if err != nil {
			return err
		}
		return fn(db)
	}
	return r.db.WithContext(ctx).Transaction(fn)
}

// storageErr marks a driver failure as retryable and captures its stack.
func storageErr(err error, msg string) error {
	return errs.Wrap(quality.Unavailable(errs.WithStack(err)), msg)
}

func (r *IssueRepository) CreateIssue(ctx context.Context, issue quality.Issue) (quality.Issue, error) {
	db, err := r.dbFromContext(ctx)
	if err != nil {
		return quality.Issue{}, err
	}

	row := issueToRow(issue)
	row.Version = 1
	if err := db.Create(&row).Error; err != nil {
		return quality.Issue{}, storageErr(err, "insert issue")
	}
	return rowToIssue(row)
}

func (r *IssueRepository) GetIssue(ctx context.Context, issueID string) (quality.Issue, error) {
	db, err := r.dbFromContext(ctx)
	if err != nil {
		return quality.Issue{}, err
	}
	return getIssueByID(db, issueID)
}

func (r *IssueRepository) ListIssues(ctx context.Context, filter ports.IssueFilter) ([]quality.Issue, error) {
	db, err := r.dbFromContext(ctx)
	if err != nil {
		return nil, err
	}

	query := db.Model(&model.Issue{})
	if len(filter.Statuses) > 0 {
		statuses := make([]string, 0, len(filter.Statuses))
		for _, s := range filter.Statuses {
			statuses = append(statuses, string(s))
		}
		query = query.Where("status IN ?", statuses)
	}
	if v := strings.TrimSpace(filter.AssignedTo); v != "" {
		query = query.Where("assigned_to = ?", v)
	}
	if v := strings.TrimSpace(filter.SupervisorID); v != "" {
		query = query.Where("supervisor_id = ?", v)
	}
	if v := strings.TrimSpace(filter.ReporterID); v != "" {
		query = query.Where("reporter_id = ?", v)
	}

	var rows []model.Issue
	if err := query.Order("created_at asc").Order("issue_id asc").Find(&rows).Error; err != nil {
		return nil, storageErr(err, "query issues")
	}

	items := make([]quality.Issue, 0, len(rows))
	for _, row := range rows {
		issue, err := rowToIssue(row)
		if err != nil {
			return nil, err
		}
		items = append(items, issue)
	}
	return items, nil
}

func (r *IssueRepository) UpdateIssue(ctx context.Context, issue quality.Issue, expectedVersion int64) (quality.Issue, error) {
	db, err := r.dbFromContext(ctx)
	if err != nil {
		return quality.Issue{}, err
	}

	row := issueToRow(issue)
	row.Version = expectedVersion + 1

	result := db.Model(&model.Issue{}).
		Where("issue_id = ? AND version = ?", issue.ID, expectedVersion).
		Updates(issueColumns(row))
	if result.Error != nil {
		return quality.Issue{}, storageErr(result.Error, "update issue")
	}
	if result.RowsAffected == 0 {
		if _, err := getIssueByID(db, issue.ID); err != nil {
			return quality.Issue{}, err
		}
		return quality.Issue{}, fmt.Errorf("%w: issue %s changed since version %d", quality.ErrConflict, issue.ID, expectedVersion)
	}
	return rowToIssue(row)
}

// DeleteIssue removes the issue with its comments and audit trail.
func (r *IssueRepository) DeleteIssue(ctx context.Context, issueID string) error {
	return r.inTx(ctx, func(db *gorm.DB) error {
		if err := db.Where("issue_id = ?", issueID).Delete(&model.Comment{}).Error; err != nil {
			return storageErr(err, "delete issue comments")
		}
		if err := db.Where("issue_id = ?", issueID).Delete(&model.AuditRecord{}).Error; err != nil {
			return storageErr(err, "delete issue audit")
		}
		result := db.Where("issue_id = ?", issueID).Delete(&model.Issue{})
		if result.Error != nil {
			return storageErr(result.Error, "delete issue")
		}
		if result.RowsAffected == 0 {
			return fmt.Errorf("%w: issue %s", quality.ErrNotFound, issueID)
		}
		return nil
	})
}

func getIssueByID(db *gorm.DB, issueID string) (quality.Issue, error) {
	var row model.Issue
	if err := db.Where("issue_id = ?", issueID).Take(&row).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return quality.Issue{}, fmt.Errorf("%w: issue %s", quality.ErrNotFound, issueID)
		}
		return quality.Issue{}, storageErr(err, "query issue by id")
	}
	return rowToIssue(row)
}

func issueColumns(row model.Issue) map[string]any {
	return map[string]any{
		"title":                      row.Title,
		"description":                row.Description,
		"location":                   row.Location,
		"priority":                   row.Priority,
		"status":                     row.Status,
		"assigned_to":                row.AssignedTo,
		"after_photo_ref":            row.AfterPhotoRef,
		"estimated_fix_time_minutes": row.EstimatedFixTimeMinutes,
		"actual_fix_time_minutes":    row.ActualFixTimeMinutes,
		"assigned_at":                row.AssignedAt,
		"started_at":                 row.StartedAt,
		"completed_at":               row.CompletedAt,
		"reviewed_at":                row.ReviewedAt,
		"approved_at":                row.ApprovedAt,
		"updated_at":                 row.UpdatedAt,
		"version":                    row.Version,
	}
}

func issueToRow(issue quality.Issue) model.Issue {
	return model.Issue{
		IssueID:                 issue.ID,
		Title:                   issue.Title,
		Description:             issue.Description,
		Location:                issue.Location,
		Priority:                string(issue.Priority),
		Status:                  string(issue.Status),
		ReporterID:              issue.ReporterID,
		AssignedTo:              optionalString(issue.AssignedTo),
		SupervisorID:            issue.SupervisorID,
		BeforePhotoRef:          issue.BeforePhotoRef,
		AfterPhotoRef:           optionalString(issue.AfterPhotoRef),
		EstimatedFixTimeMinutes: issue.EstimatedFixTimeMinutes,
		ActualFixTimeMinutes:    issue.ActualFixTimeMinutes,
		CreatedAt:               model.FormatTime(issue.CreatedAt),
		AssignedAt:              model.FormatTimePtr(issue.AssignedAt),
		StartedAt:               model.FormatTimePtr(issue.StartedAt),
		CompletedAt:             model.FormatTimePtr(issue.CompletedAt),
		ReviewedAt:              model.FormatTimePtr(issue.ReviewedAt),
		ApprovedAt:              model.FormatTimePtr(issue.ApprovedAt),
		UpdatedAt:               model.FormatTime(issue.UpdatedAt),
		Version:                 issue.Version,
	}
}

func rowToIssue(row model.Issue) (quality.Issue, error) {
	issue := quality.Issue{
		ID:                      row.IssueID,
		Title:                   row.Title,
		Description:             row.Description,
		Location:                row.Location,
		Priority:                quality.Priority(row.Priority),
		Status:                  quality.Status(row.Status),
		ReporterID:              row.ReporterID,
		AssignedTo:              derefString(row.AssignedTo),
		SupervisorID:            row.SupervisorID,
		BeforePhotoRef:          row.BeforePhotoRef,
		AfterPhotoRef:           derefString(row.AfterPhotoRef),
		EstimatedFixTimeMinutes: row.EstimatedFixTimeMinutes,
		ActualFixTimeMinutes:    row.ActualFixTimeMinutes,
		Version:                 row.Version,
	}

	var err error
	if issue.CreatedAt, err = model.ParseTime(row.CreatedAt); err != nil {
		return quality.Issue{}, errs.Wrapf(err, "parse created_at of issue %s", row.IssueID)
	}
	if issue.UpdatedAt, err = model.ParseTime(row.UpdatedAt); err != nil {
		return quality.Issue{}, errs.Wrapf(err, "parse updated_at of issue %s", row.IssueID)
	}

	optional := []struct {
		name string
		src  *string
		dst  **time.Time
	}{
		{"assigned_at", row.AssignedAt, &issue.AssignedAt},
		{"started_at", row.StartedAt, &issue.StartedAt},
		{"completed_at", row.CompletedAt, &issue.CompletedAt},
		{"reviewed_at", row.ReviewedAt, &issue.ReviewedAt},
		{"approved_at", row.ApprovedAt, &issue.ApprovedAt},
	}
	for _, field := range optional {
		parsed, err := model.ParseTimePtr(field.src)
		if err != nil {
			return quality.Issue{}, errs.Wrapf(err, "parse %s of issue %s", field.name, row.IssueID)
		}
		*field.dst = parsed
	}

	return issue, nil
}

func optionalString(v string) *string {
	if v == "" {
		return nil
	}
	return &v
}

func derefString(v *string) string {
	if v == nil {
		return ""
	}
	return *v
}
