package quality

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// Issue is one reported quality defect and its remediation record.
// Optional references are empty strings; optional instants are nil until set.
type Issue struct {
	ID                      string     `json:"id"`
	Title                   string     `json:"title"`
	Description             string     `json:"description"`
	Location                string     `json:"location,omitempty"`
	Priority                Priority   `json:"priority"`
	Status                  Status     `json:"status"`
	ReporterID              string     `json:"reporterId"`
	AssignedTo              string     `json:"assignedTo,omitempty"`
	SupervisorID            string     `json:"supervisorId"`
	BeforePhotoRef          string     `json:"beforePhotoRef"`
	AfterPhotoRef           string     `json:"afterPhotoRef,omitempty"`
	EstimatedFixTimeMinutes *int       `json:"estimatedFixTimeMinutes,omitempty"`
	ActualFixTimeMinutes    *int       `json:"actualFixTimeMinutes,omitempty"`
	CreatedAt               time.Time  `json:"createdAt"`
	AssignedAt              *time.Time `json:"assignedAt,omitempty"`
	StartedAt               *time.Time `json:"startedAt,omitempty"`
	CompletedAt             *time.Time `json:"completedAt,omitempty"`
	ReviewedAt              *time.Time `json:"reviewedAt,omitempty"`
	ApprovedAt              *time.Time `json:"approvedAt,omitempty"`
	UpdatedAt               time.Time  `json:"updatedAt"`
	Version                 int64      `json:"version"`
}

// NewIssueInput holds the caller-supplied fields of a new issue.
type NewIssueInput struct {
	Title                   string
	Description             string
	Location                string
	Priority                string
	ReporterID              string
	SupervisorID            string
	BeforePhotoRef          string
	EstimatedFixTimeMinutes *int
}

// NewIssue validates the input and returns an issue in the Reported state.
func NewIssue(id string, in NewIssueInput, now time.Time) (Issue, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return Issue{}, errors.New("issue id is required")
	}

	title := strings.TrimSpace(in.Title)
	if title == "" {
		return Issue{}, preconditionf("title is required")
	}
	reporterID := strings.TrimSpace(in.ReporterID)
	if reporterID == "" {
		return Issue{}, preconditionf("reporter id is required")
	}
	supervisorID := strings.TrimSpace(in.SupervisorID)
	if supervisorID == "" {
		return Issue{}, preconditionf("supervisor id is required")
	}
	beforePhoto := strings.TrimSpace(in.BeforePhotoRef)
	if beforePhoto == "" {
		return Issue{}, preconditionf("before photo reference is required")
	}

	priority := PriorityMedium
	if strings.TrimSpace(in.Priority) != "" {
		parsed, ok := ParsePriority(in.Priority)
		if !ok {
			return Issue{}, preconditionf("unknown priority %q", in.Priority)
		}
		priority = parsed
	}
	if err := validateEstimate(in.EstimatedFixTimeMinutes); err != nil {
		return Issue{}, err
	}

	now = now.UTC()
	return Issue{
		ID:                      id,
		Title:                   title,
		Description:             strings.TrimSpace(in.Description),
		Location:                strings.TrimSpace(in.Location),
		Priority:                priority,
		Status:                  StatusReported,
		ReporterID:              reporterID,
		SupervisorID:            supervisorID,
		BeforePhotoRef:          beforePhoto,
		EstimatedFixTimeMinutes: cloneInt(in.EstimatedFixTimeMinutes),
		CreatedAt:               now,
		UpdatedAt:               now,
	}, nil
}

// IsParticipant reports whether actor may read, comment on, or edit the issue.
func (i Issue) IsParticipant(actor Actor) bool {
	if actor.IsAdmin() {
		return true
	}
	if actor.ID == "" {
		return false
	}
	return actor.ID == i.ReporterID || actor.ID == i.SupervisorID || actor.ID == i.AssignedTo
}

func (i Issue) isSupervisorOrAdmin(actor Actor) bool {
	return actor.IsAdmin() || (actor.ID != "" && actor.ID == i.SupervisorID)
}

func (i Issue) isAssignee(actor Actor) bool {
	return actor.ID != "" && actor.ID == i.AssignedTo
}

// Patch is a partial edit of the descriptive fields. Nil means unchanged.
// ClearEstimate removes the estimate and cannot be combined with a new one.
type Patch struct {
	Title                   *string
	Description             *string
	Location                *string
	Priority                *string
	EstimatedFixTimeMinutes *int
	ClearEstimate           bool
}

func (p Patch) Empty() bool {
	return p.Title == nil && p.Description == nil && p.Location == nil &&
		p.Priority == nil && p.EstimatedFixTimeMinutes == nil && !p.ClearEstimate
}

// Edit applies a patch on behalf of actor and returns the edited copy plus the
// names of fields whose value actually changed. Status and timestamps other
// than UpdatedAt are never touched.
func (i Issue) Edit(actor Actor, p Patch, now time.Time) (Issue, []string, error) {
	if !i.IsParticipant(actor) {
		return i, nil, forbiddenf("actor %q may not edit issue %s", actor.ID, i.ID)
	}
	if p.Empty() {
		return i, nil, preconditionf("no fields to update")
	}

	next := i
	changed := make([]string, 0, 5)

	if p.Title != nil {
		title := strings.TrimSpace(*p.Title)
		if title == "" {
			return i, nil, preconditionf("title cannot be empty")
		}
		if title != i.Title {
			next.Title = title
			changed = append(changed, "title")
		}
	}
	if p.Description != nil {
		if desc := strings.TrimSpace(*p.Description); desc != i.Description {
			next.Description = desc
			changed = append(changed, "description")
		}
	}
	if p.Location != nil {
		if loc := strings.TrimSpace(*p.Location); loc != i.Location {
			next.Location = loc
			changed = append(changed, "location")
		}
	}
	if p.Priority != nil {
		priority, ok := ParsePriority(*p.Priority)
		if !ok {
			return i, nil, preconditionf("unknown priority %q", *p.Priority)
		}
		if priority != i.Priority {
			next.Priority = priority
			changed = append(changed, "priority")
		}
	}
	if p.ClearEstimate {
		if p.EstimatedFixTimeMinutes != nil {
			return i, nil, preconditionf("estimate cannot be set and cleared at once")
		}
		if i.EstimatedFixTimeMinutes != nil {
			next.EstimatedFixTimeMinutes = nil
			changed = append(changed, "estimatedFixTimeMinutes")
		}
	}
	if p.EstimatedFixTimeMinutes != nil {
		if err := validateEstimate(p.EstimatedFixTimeMinutes); err != nil {
			return i, nil, err
		}
		if i.EstimatedFixTimeMinutes == nil || *i.EstimatedFixTimeMinutes != *p.EstimatedFixTimeMinutes {
			next.EstimatedFixTimeMinutes = cloneInt(p.EstimatedFixTimeMinutes)
			changed = append(changed, "estimatedFixTimeMinutes")
		}
	}

	if len(changed) > 0 {
		next.UpdatedAt = laterOf(now.UTC(), i.UpdatedAt)
	}
	return next, changed, nil
}

// CheckTimestamps verifies that status and the presence of every lifecycle
// timestamp agree, and that set timestamps never go backwards.
// Rejected has two legal shapes: rejected at first pass (no reviewedAt) and
// rejected after review (reviewedAt set).
func (i Issue) CheckTimestamps() error {
	reached, ok := stageOf(i)
	if !ok {
		return fmt.Errorf("issue %s: unknown status %q", i.ID, i.Status)
	}

	checks := []struct {
		name string
		at   *time.Time
		want bool
	}{
		{"assignedAt", i.AssignedAt, reached >= 1},
		{"startedAt", i.StartedAt, reached >= 2},
		{"completedAt", i.CompletedAt, reached >= 3},
		{"reviewedAt", i.ReviewedAt, reached >= 4},
		{"approvedAt", i.ApprovedAt, i.Status == StatusApproved},
	}
	prev := i.CreatedAt
	for _, c := range checks {
		if (c.at != nil) != c.want {
			return fmt.Errorf("issue %s: status %s inconsistent with %s presence", i.ID, i.Status, c.name)
		}
		if c.at == nil {
			continue
		}
		if c.at.Before(prev) {
			return fmt.Errorf("issue %s: %s precedes previous lifecycle timestamp", i.ID, c.name)
		}
		prev = *c.at
	}

	if (i.AssignedTo != "") != (i.AssignedAt != nil) {
		return fmt.Errorf("issue %s: assignee inconsistent with assignedAt", i.ID)
	}
	if (i.AfterPhotoRef != "") != (i.CompletedAt != nil) {
		return fmt.Errorf("issue %s: after photo inconsistent with completedAt", i.ID)
	}
	if (i.ActualFixTimeMinutes != nil) != (i.ReviewedAt != nil) {
		return fmt.Errorf("issue %s: actual fix time inconsistent with reviewedAt", i.ID)
	}
	return nil
}

// stageOf maps an issue to how far along the main path it got.
func stageOf(i Issue) (int, bool) {
	switch i.Status {
	case StatusReported:
		return 0, true
	case StatusAssigned:
		return 1, true
	case StatusInProgress:
		return 2, true
	case StatusFixed:
		return 3, true
	case StatusReview:
		return 4, true
	case StatusApproved:
		return 5, true
	case StatusRejected:
		if i.ReviewedAt != nil {
			return 4, true
		}
		return 3, true
	default:
		return 0, false
	}
}

// Clone returns a deep copy so callers can mutate pointers safely.
func (i Issue) Clone() Issue {
	out := i
	out.EstimatedFixTimeMinutes = cloneInt(i.EstimatedFixTimeMinutes)
	out.ActualFixTimeMinutes = cloneInt(i.ActualFixTimeMinutes)
	out.AssignedAt = cloneTime(i.AssignedAt)
	out.StartedAt = cloneTime(i.StartedAt)
	out.CompletedAt = cloneTime(i.CompletedAt)
	out.ReviewedAt = cloneTime(i.ReviewedAt)
	out.ApprovedAt = cloneTime(i.ApprovedAt)
	return out
}

// latestTimestamp is the most recent lifecycle instant already recorded.
func (i Issue) latestTimestamp() time.Time {
	latest := i.CreatedAt
	for _, at := range []*time.Time{i.AssignedAt, i.StartedAt, i.CompletedAt, i.ReviewedAt, i.ApprovedAt} {
		if at != nil && at.After(latest) {
			latest = *at
		}
	}
	return latest
}

func validateEstimate(v *int) error {
	if v != nil && *v < 0 {
		return preconditionf("estimated fix time must be >= 0, got %d", *v)
	}
	return nil
}

func laterOf(a, b time.Time) time.Time {
	if a.Before(b) {
		return b
	}
	return a
}

func cloneInt(v *int) *int {
	if v == nil {
		return nil
	}
	out := *v
	return &out
}

func cloneTime(v *time.Time) *time.Time {
	if v == nil {
		return nil
	}
	out := *v
	return &out
}
