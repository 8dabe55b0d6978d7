package quality

import (
	"strings"
	"time"
)

type AuditKind string

const (
	AuditTransition AuditKind = "transition"
	AuditUpdated    AuditKind = "updated"
)

// AuditRecord is one append-only history entry. Transition records capture an
// accepted state change; updated records note field edits without a status change.
type AuditRecord struct {
	ID         string    `json:"id"`
	IssueID    string    `json:"issueId"`
	ActorID    string    `json:"actorId"`
	Kind       AuditKind `json:"kind"`
	FromStatus *Status   `json:"fromStatus"`
	ToStatus   Status    `json:"toStatus"`
	Reason     string    `json:"reason,omitempty"`
	At         time.Time `json:"at"`
}

func NewTransitionRecord(id string, issueID string, actorID string, t Transition) AuditRecord {
	from := t.From
	return AuditRecord{
		ID:         id,
		IssueID:    issueID,
		ActorID:    actorID,
		Kind:       AuditTransition,
		FromStatus: &from,
		ToStatus:   t.To,
		Reason:     t.Reason,
		At:         t.At.UTC(),
	}
}

// NewUpdateRecord notes which fields an edit changed.
func NewUpdateRecord(id string, issue Issue, actorID string, changed []string) AuditRecord {
	status := issue.Status
	return AuditRecord{
		ID:         id,
		IssueID:    issue.ID,
		ActorID:    actorID,
		Kind:       AuditUpdated,
		FromStatus: &status,
		ToStatus:   status,
		Reason:     "updated " + strings.Join(changed, ", "),
		At:         issue.UpdatedAt.UTC(),
	}
}
