package workflow

import (
	"context"
	"strings"
	"testing"

	"qcflow/internal/domain/quality"
)

func TestAddCommentValidation(t *testing.T) {
	opts := DefaultOptions()
	opts.MaxCommentLength = 20
	f := setupFixture(t, opts)
	ctx := context.Background()
	issue := f.createIssue(t)

	_, err := f.svc.AddComment(ctx, AddCommentInput{IssueID: issue.ID, ActorID: "rep-1", Text: "  \n\t "})
	requireKind(t, err, quality.ErrPreconditionFailed)
	_, err = f.svc.AddComment(ctx, AddCommentInput{IssueID: issue.ID, ActorID: "rep-1", Text: strings.Repeat("x", 21)})
	requireKind(t, err, quality.ErrPreconditionFailed)
	_, err = f.svc.AddComment(ctx, AddCommentInput{IssueID: issue.ID, ActorID: "rep-1", Text: "ok", Kind: "rant"})
	requireKind(t, err, quality.ErrPreconditionFailed)
	_, err = f.svc.AddComment(ctx, AddCommentInput{IssueID: issue.ID, ActorID: "rep-2", Text: "not mine"})
	requireKind(t, err, quality.ErrForbidden)
	_, err = f.svc.AddComment(ctx, AddCommentInput{IssueID: "missing", ActorID: "adm-1", Text: "hello"})
	requireKind(t, err, quality.ErrNotFound)

	c, err := f.svc.AddComment(ctx, AddCommentInput{IssueID: issue.ID, ActorID: "sup-1", Text: "  looks bad  "})
	if err != nil {
		t.Fatalf("AddComment() error = %v", err)
	}
	if c.Text != "looks bad" || c.Kind != quality.CommentGeneral || c.AuthorID != "sup-1" {
		t.Fatalf("AddComment() = %+v", c)
	}
}

func TestListCommentsInCreationOrderAcrossPages(t *testing.T) {
	opts := DefaultOptions()
	opts.CommentPageSize = 2
	f := setupFixture(t, opts)
	ctx := context.Background()
	issue := f.advanceTo(t, quality.StatusInProgress)

	inputs := []AddCommentInput{
		{ActorID: "rep-1", Text: "spotted at shift start", Kind: "general"},
		{ActorID: "wrk-1", Text: "sanding done", Kind: "progress"},
		{ActorID: "sup-1", Text: "check the edge", Kind: "review"},
		{ActorID: "wrk-1", Text: "repainted", Kind: "solution"},
		{ActorID: "adm-1", Text: "tracking", Kind: ""},
	}
	for _, in := range inputs {
		in.IssueID = issue.ID
		if _, err := f.svc.AddComment(ctx, in); err != nil {
			t.Fatalf("AddComment(%q) error = %v", in.Text, err)
		}
	}

	for pass := range 2 {
		var texts []string
		for c, err := range f.svc.ListComments(ctx, issue.ID) {
			if err != nil {
				t.Fatalf("ListComments() pass %d error = %v", pass, err)
			}
			texts = append(texts, c.Text)
		}
		if len(texts) != len(inputs) {
			t.Fatalf("ListComments() pass %d len = %d, want %d", pass, len(texts), len(inputs))
		}
		for i, in := range inputs {
			if texts[i] != in.Text {
				t.Fatalf("ListComments() pass %d [%d] = %q, want %q", pass, i, texts[i], in.Text)
			}
		}
	}

	seen := 0
	for range f.svc.ListComments(ctx, issue.ID) {
		seen++
		if seen == 3 {
			break
		}
	}
	if seen != 3 {
		t.Fatalf("early break saw %d comments", seen)
	}
}

func TestListCommentsUnknownIssue(t *testing.T) {
	f := setupFixture(t, DefaultOptions())

	count := 0
	for _, err := range f.svc.ListComments(context.Background(), "missing") {
		count++
		requireKind(t, err, quality.ErrNotFound)
	}
	if count != 1 {
		t.Fatalf("ListComments() yielded %d items, want 1 error", count)
	}
}
