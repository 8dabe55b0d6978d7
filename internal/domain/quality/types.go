package quality

import "strings"

// Status is the workflow stage of an issue.
type Status string

const (
	StatusReported   Status = "reported"
	StatusAssigned   Status = "assigned"
	StatusInProgress Status = "in_progress"
	StatusFixed      Status = "fixed"
	StatusReview     Status = "review"
	StatusApproved   Status = "approved"
	StatusRejected   Status = "rejected"
)

var allStatuses = []Status{
	StatusReported,
	StatusAssigned,
	StatusInProgress,
	StatusFixed,
	StatusReview,
	StatusApproved,
	StatusRejected,
}

// Statuses returns every status in lifecycle order.
func Statuses() []Status {
	out := make([]Status, len(allStatuses))
	copy(out, allStatuses)
	return out
}

func ParseStatus(raw string) (Status, bool) {
	candidate := Status(strings.ToLower(strings.TrimSpace(raw)))
	for _, s := range allStatuses {
		if s == candidate {
			return s, true
		}
	}
	return "", false
}

func (s Status) Terminal() bool {
	return s == StatusApproved || s == StatusRejected
}

type Priority string

const (
	PriorityLow      Priority = "low"
	PriorityMedium   Priority = "medium"
	PriorityHigh     Priority = "high"
	PriorityCritical Priority = "critical"
)

func ParsePriority(raw string) (Priority, bool) {
	switch p := Priority(strings.ToLower(strings.TrimSpace(raw))); p {
	case PriorityLow, PriorityMedium, PriorityHigh, PriorityCritical:
		return p, true
	default:
		return "", false
	}
}

// Role is the identity fact the engine consumes for guards.
type Role string

const (
	RoleAdmin      Role = "admin"
	RoleSupervisor Role = "supervisor"
	RoleWorker     Role = "worker"
	RoleReporter   Role = "reporter"
)

func ParseRole(raw string) (Role, bool) {
	switch r := Role(strings.ToLower(strings.TrimSpace(raw))); r {
	case RoleAdmin, RoleSupervisor, RoleWorker, RoleReporter:
		return r, true
	default:
		return "", false
	}
}

// Actor is an identified caller with its resolved role.
type Actor struct {
	ID   string
	Role Role
}

func (a Actor) IsAdmin() bool { return a.Role == RoleAdmin }

type CommentKind string

const (
	CommentGeneral  CommentKind = "general"
	CommentProgress CommentKind = "progress"
	CommentSolution CommentKind = "solution"
	CommentReview   CommentKind = "review"
)

func ParseCommentKind(raw string) (CommentKind, bool) {
	trimmed := strings.ToLower(strings.TrimSpace(raw))
	if trimmed == "" {
		return CommentGeneral, true
	}
	switch k := CommentKind(trimmed); k {
	case CommentGeneral, CommentProgress, CommentSolution, CommentReview:
		return k, true
	default:
		return "", false
	}
}

// Decision is the supervisor's final verdict on an issue under review.
type Decision string

const (
	DecisionApproved Decision = "approved"
	DecisionRejected Decision = "rejected"
)

func ParseDecision(raw string) (Decision, bool) {
	switch d := Decision(strings.ToLower(strings.TrimSpace(raw))); d {
	case DecisionApproved, DecisionRejected:
		return d, true
	default:
		return "", false
	}
}
