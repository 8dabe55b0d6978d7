package ports

import (
	"context"
	"time"

	"qcflow/internal/domain/quality"
)

type IssueFilter struct {
	Statuses     []quality.Status
	AssignedTo   string
	SupervisorID string
	ReporterID   string
}

// RequestRecord is the stored outcome of one deduplicated mutating call.
type RequestRecord struct {
	RequestID    string
	Operation    string
	IssueID      string
	ActorID      string
	ResponseJSON string
	CreatedAt    time.Time
	ExpiresAt    time.Time
}

// IssueRepository persists issues, their comment threads, audit trails and
// request records. Implementations read the active transaction from ctx
// (see WithTxContext) so several calls can share one atomic unit.
type IssueRepository interface {
	CreateIssue(ctx context.Context, issue quality.Issue) (quality.Issue, error)
	GetIssue(ctx context.Context, issueID string) (quality.Issue, error)
	ListIssues(ctx context.Context, filter IssueFilter) ([]quality.Issue, error)
	// UpdateIssue writes issue if the stored version equals expectedVersion and
	// returns the row with its incremented version; otherwise quality.ErrConflict.
	UpdateIssue(ctx context.Context, issue quality.Issue, expectedVersion int64) (quality.Issue, error)
	DeleteIssue(ctx context.Context, issueID string) error

	AppendComment(ctx context.Context, comment quality.Comment) error
	// ListCommentsAfter returns up to limit comments in creation order that
	// follow the cursor; an empty cursor starts at the beginning.
	ListCommentsAfter(ctx context.Context, issueID string, cursor string, limit int) ([]quality.Comment, string, error)

	AppendAudit(ctx context.Context, record quality.AuditRecord) error
	ListAudit(ctx context.Context, issueID string) ([]quality.AuditRecord, error)

	GetRequest(ctx context.Context, requestID string) (RequestRecord, bool, error)
	// SaveRequest returns inserted=false when the request id already exists.
	SaveRequest(ctx context.Context, record RequestRecord) (bool, error)
	DeleteExpiredRequests(ctx context.Context, now time.Time) (int64, error)
}
