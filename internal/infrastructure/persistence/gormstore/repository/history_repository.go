package repository

import (
	"context"
	"errors"
	"strconv"
	"strings"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"qcflow/internal/domain/quality"
	"qcflow/internal/errs"
	"qcflow/internal/infrastructure/persistence/gormstore/model"
	"qcflow/internal/ports"
)

func (r *IssueRepository) AppendComment(ctx context.Context, comment quality.Comment) error {
	db, err := r.dbFromContext(ctx)
	if err != nil {
		return err
	}

	row := model.Comment{
		CommentID: comment.ID,
		IssueID:   comment.IssueID,
		AuthorID:  comment.AuthorID,
		Body:      comment.Text,
		Kind:      string(comment.Kind),
		CreatedAt: model.FormatTime(comment.CreatedAt),
	}
	if err := db.Create(&row).Error; err != nil {
		return storageErr(err, "insert comment")
	}
	return nil
}

// ListCommentsAfter pages by insertion sequence. The returned cursor is the
// sequence of the last row, or the input cursor when the page is empty.
func (r *IssueRepository) ListCommentsAfter(ctx context.Context, issueID string, cursor string, limit int) ([]quality.Comment, string, error) {
	db, err := r.dbFromContext(ctx)
	if err != nil {
		return nil, "", err
	}

	var afterSeq uint64
	if trimmed := strings.TrimSpace(cursor); trimmed != "" {
		afterSeq, err = strconv.ParseUint(trimmed, 10, 64)
		if err != nil {
			return nil, "", errs.Wrapf(err, "parse comment cursor %q", cursor)
		}
	}

	query := db.Model(&model.Comment{}).
		Where("issue_id = ? AND seq > ?", issueID, afterSeq).
		Order("seq asc")
	if limit > 0 {
		query = query.Limit(limit)
	}

	var rows []model.Comment
	if err := query.Find(&rows).Error; err != nil {
		return nil, "", storageErr(err, "query comments")
	}

	items := make([]quality.Comment, 0, len(rows))
	next := cursor
	for _, row := range rows {
		createdAt, err := model.ParseTime(row.CreatedAt)
		if err != nil {
			return nil, "", errs.Wrapf(err, "parse created_at of comment %s", row.CommentID)
		}
		items = append(items, quality.Comment{
			ID:        row.CommentID,
			IssueID:   row.IssueID,
			AuthorID:  row.AuthorID,
			Text:      row.Body,
			Kind:      quality.CommentKind(row.Kind),
			CreatedAt: createdAt,
		})
		next = strconv.FormatUint(row.Seq, 10)
	}
	return items, next, nil
}

func (r *IssueRepository) AppendAudit(ctx context.Context, record quality.AuditRecord) error {
	db, err := r.dbFromContext(ctx)
	if err != nil {
		return err
	}

	var from *string
	if record.FromStatus != nil {
		s := string(*record.FromStatus)
		from = &s
	}
	row := model.AuditRecord{
		AuditID:    record.ID,
		IssueID:    record.IssueID,
		ActorID:    record.ActorID,
		Kind:       string(record.Kind),
		FromStatus: from,
		ToStatus:   string(record.ToStatus),
		Reason:     record.Reason,
		At:         model.FormatTime(record.At),
	}
	if err := db.Create(&row).Error; err != nil {
		return storageErr(err, "insert audit record")
	}
	return nil
}

func (r *IssueRepository) ListAudit(ctx context.Context, issueID string) ([]quality.AuditRecord, error) {
	db, err := r.dbFromContext(ctx)
	if err != nil {
		return nil, err
	}

	var rows []model.AuditRecord
	if err := db.Where("issue_id = ?", issueID).Order("seq asc").Find(&rows).Error; err != nil {
		return nil, storageErr(err, "query audit records")
	}

	items := make([]quality.AuditRecord, 0, len(rows))
	for _, row := range rows {
		at, err := model.ParseTime(row.At)
		if err != nil {
			return nil, errs.Wrapf(err, "parse at of audit record %s", row.AuditID)
		}
		var from *quality.Status
		if row.FromStatus != nil {
			s := quality.Status(*row.FromStatus)
			from = &s
		}
		items = append(items, quality.AuditRecord{
			ID:         row.AuditID,
			IssueID:    row.IssueID,
			ActorID:    row.ActorID,
			Kind:       quality.AuditKind(row.Kind),
			FromStatus: from,
			ToStatus:   quality.Status(row.ToStatus),
			Reason:     row.Reason,
			At:         at,
		})
	}
	return items, nil
}

func (r *IssueRepository) GetRequest(ctx context.Context, requestID string) (ports.RequestRecord, bool, error) {
	db, err := r.dbFromContext(ctx)
	if err != nil {
		return ports.RequestRecord{}, false, err
	}

	var row model.RequestRecord
	if err := db.Where("request_id = ?", requestID).Take(&row).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ports.RequestRecord{}, false, nil
		}
		return ports.RequestRecord{}, false, storageErr(err, "query request record")
	}

	createdAt, err := model.ParseTime(row.CreatedAt)
	if err != nil {
		return ports.RequestRecord{}, false, errs.Wrapf(err, "parse created_at of request %s", row.RequestID)
	}
	expiresAt, err := model.ParseTime(row.ExpiresAt)
	if err != nil {
		return ports.RequestRecord{}, false, errs.Wrapf(err, "parse expires_at of request %s", row.RequestID)
	}
	return ports.RequestRecord{
		RequestID:    row.RequestID,
		Operation:    row.Operation,
		IssueID:      row.IssueID,
		ActorID:      row.ActorID,
		ResponseJSON: row.ResponseJSON,
		CreatedAt:    createdAt,
		ExpiresAt:    expiresAt,
	}, true, nil
}

func (r *IssueRepository) SaveRequest(ctx context.Context, record ports.RequestRecord) (bool, error) {
	db, err := r.dbFromContext(ctx)
	if err != nil {
		return false, err
	}

	row := model.RequestRecord{
		RequestID:    record.RequestID,
		Operation:    record.Operation,
		IssueID:      record.IssueID,
		ActorID:      record.ActorID,
		ResponseJSON: record.ResponseJSON,
		CreatedAt:    model.FormatTime(record.CreatedAt),
		ExpiresAt:    model.FormatTime(record.ExpiresAt),
	}
	result := db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "request_id"}},
		DoNothing: true,
	}).Create(&row)
	if result.Error != nil {
		return false, storageErr(result.Error, "insert request record")
	}
	return result.RowsAffected > 0, nil
}

func (r *IssueRepository) DeleteExpiredRequests(ctx context.Context, now time.Time) (int64, error) {
	db, err := r.dbFromContext(ctx)
	if err != nil {
		return 0, err
	}

	result := db.Where("expires_at <= ?", model.FormatTime(now)).Delete(&model.RequestRecord{})
	if result.Error != nil {
		return 0, storageErr(result.Error, "delete expired request records")
	}
	return result.RowsAffected, nil
}
