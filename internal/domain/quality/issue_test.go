package quality

import (
	"errors"
	"strings"
	"testing"
	"time"
)

func TestNewIssueValidation(t *testing.T) {
	base := NewIssueInput{
		Title:          "Weld crack",
		ReporterID:     "rep-1",
		SupervisorID:   "sup-1",
		BeforePhotoRef: "blob://before/1",
	}

	issue, err := NewIssue("iss-1", base, testT0)
	if err != nil {
		t.Fatalf("NewIssue() error = %v", err)
	}
	if issue.Status != StatusReported || issue.Priority != PriorityMedium {
		t.Fatalf("NewIssue() = %+v", issue)
	}
	if issue.AssignedTo != "" || issue.AssignedAt != nil {
		t.Fatalf("NewIssue() should not be assigned")
	}

	negative := -5
	cases := map[string]func(in *NewIssueInput){
		"missing title":        func(in *NewIssueInput) { in.Title = "  " },
		"missing before photo": func(in *NewIssueInput) { in.BeforePhotoRef = "" },
		"missing supervisor":   func(in *NewIssueInput) { in.SupervisorID = "" },
		"missing reporter":     func(in *NewIssueInput) { in.ReporterID = "" },
		"unknown priority":     func(in *NewIssueInput) { in.Priority = "urgent" },
		"negative estimate":    func(in *NewIssueInput) { in.EstimatedFixTimeMinutes = &negative },
	}
	for name, mutate := range cases {
		in := base
		mutate(&in)
		if _, err := NewIssue("iss-2", in, testT0); !errors.Is(err, ErrPreconditionFailed) {
			t.Fatalf("%s: NewIssue() error = %v, want ErrPreconditionFailed", name, err)
		}
	}
}

func TestEditChangesOnlyDescriptiveFields(t *testing.T) {
	issue := issueAt(t, StatusInProgress)
	title := "Deep weld crack"
	priority := "critical"
	estimate := 90

	next, changed, err := issue.Edit(testWorker, Patch{
		Title:                   &title,
		Priority:                &priority,
		EstimatedFixTimeMinutes: &estimate,
	}, testT0.Add(3*time.Hour))
	if err != nil {
		t.Fatalf("Edit() error = %v", err)
	}
	if strings.Join(changed, ",") != "title,priority,estimatedFixTimeMinutes" {
		t.Fatalf("Edit() changed = %v", changed)
	}
	if next.Status != issue.Status || next.StartedAt != issue.StartedAt {
		t.Fatalf("Edit() touched workflow state")
	}
	if next.Priority != PriorityCritical || *next.EstimatedFixTimeMinutes != 90 {
		t.Fatalf("Edit() = %+v", next)
	}
}

func TestEditClearsEstimate(t *testing.T) {
	issue := issueAt(t, StatusAssigned)
	estimate := 45
	issue.EstimatedFixTimeMinutes = &estimate

	next, changed, err := issue.Edit(testSupervisor, Patch{ClearEstimate: true}, testT0.Add(time.Hour))
	if err != nil {
		t.Fatalf("Edit(clear) error = %v", err)
	}
	if next.EstimatedFixTimeMinutes != nil || strings.Join(changed, ",") != "estimatedFixTimeMinutes" {
		t.Fatalf("Edit(clear) = %v, changed = %v", next.EstimatedFixTimeMinutes, changed)
	}
	if issue.EstimatedFixTimeMinutes == nil || *issue.EstimatedFixTimeMinutes != 45 {
		t.Fatalf("Edit(clear) modified the receiver")
	}

	_, changed, err = next.Edit(testSupervisor, Patch{ClearEstimate: true}, testT0.Add(2*time.Hour))
	if err != nil || len(changed) != 0 {
		t.Fatalf("Edit(clear again) changed = %v, err = %v", changed, err)
	}

	other := 10
	if _, _, err := issue.Edit(testSupervisor, Patch{ClearEstimate: true, EstimatedFixTimeMinutes: &other}, testT0); !errors.Is(err, ErrPreconditionFailed) {
		t.Fatalf("Edit(set and clear) error = %v", err)
	}
}

func TestEditGuardsAndPreconditions(t *testing.T) {
	issue := issueAt(t, StatusApproved)
	title := "x"

	if _, _, err := issue.Edit(Actor{ID: "stranger", Role: RoleWorker}, Patch{Title: &title}, testT0); !errors.Is(err, ErrForbidden) {
		t.Fatalf("Edit(stranger) error = %v", err)
	}
	if _, _, err := issue.Edit(testAdmin, Patch{}, testT0); !errors.Is(err, ErrPreconditionFailed) {
		t.Fatalf("Edit(empty) error = %v", err)
	}
	blank := " "
	if _, _, err := issue.Edit(testReporter, Patch{Title: &blank}, testT0); !errors.Is(err, ErrPreconditionFailed) {
		t.Fatalf("Edit(blank title) error = %v", err)
	}

	same := issue.Title
	next, changed, err := issue.Edit(testSupervisor, Patch{Title: &same}, testT0.Add(time.Hour))
	if err != nil {
		t.Fatalf("Edit(same) error = %v", err)
	}
	if len(changed) != 0 || !next.UpdatedAt.Equal(issue.UpdatedAt) {
		t.Fatalf("Edit(same) changed = %v", changed)
	}
}

func TestNewCommentValidation(t *testing.T) {
	c, err := NewComment("c-1", CommentInput{IssueID: "iss-1", AuthorID: "wrk-1", Text: "  started sanding  "}, 0, testT0)
	if err != nil {
		t.Fatalf("NewComment() error = %v", err)
	}
	if c.Text != "started sanding" || c.Kind != CommentGeneral {
		t.Fatalf("NewComment() = %+v", c)
	}

	if _, err := NewComment("c-2", CommentInput{IssueID: "iss-1", AuthorID: "wrk-1", Text: " \n\t "}, 0, testT0); !errors.Is(err, ErrPreconditionFailed) {
		t.Fatalf("NewComment(whitespace) error = %v", err)
	}
	if _, err := NewComment("c-3", CommentInput{IssueID: "iss-1", AuthorID: "wrk-1", Text: "ok", Kind: "rant"}, 0, testT0); !errors.Is(err, ErrPreconditionFailed) {
		t.Fatalf("NewComment(kind) error = %v", err)
	}
	if _, err := NewComment("c-4", CommentInput{IssueID: "iss-1", AuthorID: "wrk-1", Text: strings.Repeat("ü", 11)}, 10, testT0); !errors.Is(err, ErrPreconditionFailed) {
		t.Fatalf("NewComment(too long) error = %v", err)
	}
	if _, err := NewComment("c-5", CommentInput{IssueID: "iss-1", AuthorID: "wrk-1", Text: strings.Repeat("ü", 10)}, 10, testT0); err != nil {
		t.Fatalf("NewComment(at limit) error = %v", err)
	}
}

func TestComputeDashboard(t *testing.T) {
	empty := ComputeDashboard(nil, testT0)
	if empty.Total != 0 || empty.Open != 0 || empty.CreatedToday != 0 || empty.AverageFixTimeMinutes != 0 {
		t.Fatalf("ComputeDashboard(empty) = %+v", empty)
	}

	reviewed := issueAt(t, StatusApproved)
	fixed := issueAt(t, StatusReview)
	sixty := 60
	fixed.ActualFixTimeMinutes = &sixty
	old := newReportedIssue(t)
	old.CreatedAt = testT0.AddDate(0, 0, -3)

	stats := ComputeDashboard([]Issue{reviewed, fixed, old}, testT0.Add(5*time.Hour))
	if stats.Total != 3 || stats.Open != 2 || stats.CreatedToday != 2 {
		t.Fatalf("ComputeDashboard() = %+v", stats)
	}
	want := (float64(*reviewed.ActualFixTimeMinutes) + 60) / 2
	if stats.AverageFixTimeMinutes != want {
		t.Fatalf("AverageFixTimeMinutes = %v, want %v", stats.AverageFixTimeMinutes, want)
	}
	if stats.ByStatus[StatusApproved] != 1 || stats.ByStatus[StatusReported] != 1 {
		t.Fatalf("ByStatus = %v", stats.ByStatus)
	}
}

func TestComputeDashboardUsesCallerTimezone(t *testing.T) {
	issue := newReportedIssue(t)
	issue.CreatedAt = time.Date(2026, 3, 2, 22, 30, 0, 0, time.UTC)

	istanbul := time.FixedZone("TRT", 3*60*60)
	sameUTCDay := ComputeDashboard([]Issue{issue}, time.Date(2026, 3, 2, 23, 0, 0, 0, time.UTC))
	nextLocalDay := ComputeDashboard([]Issue{issue}, time.Date(2026, 3, 3, 9, 0, 0, 0, istanbul))

	if sameUTCDay.CreatedToday != 1 {
		t.Fatalf("UTC CreatedToday = %d", sameUTCDay.CreatedToday)
	}
	if nextLocalDay.CreatedToday != 1 {
		t.Fatalf("TRT CreatedToday = %d", nextLocalDay.CreatedToday)
	}
	if got := ComputeDashboard([]Issue{issue}, time.Date(2026, 3, 2, 12, 0, 0, 0, istanbul)).CreatedToday; got != 0 {
		t.Fatalf("TRT previous day CreatedToday = %d", got)
	}
}
