package quality

import (
	"errors"
	"strings"
	"time"
	"unicode/utf8"
)

// DefaultMaxCommentLength bounds comment text, counted in runes.
const DefaultMaxCommentLength = 5000

// Comment is an immutable message on an issue's discussion thread.
type Comment struct {
	ID        string      `json:"id"`
	IssueID   string      `json:"issueId"`
	AuthorID  string      `json:"authorId"`
	Text      string      `json:"text"`
	Kind      CommentKind `json:"kind"`
	CreatedAt time.Time   `json:"createdAt"`
}

type CommentInput struct {
	IssueID  string
	AuthorID string
	Text     string
	Kind     string
}

// NewComment trims and validates input. An empty kind defaults to general;
// maxLength <= 0 means DefaultMaxCommentLength.
func NewComment(id string, in CommentInput, maxLength int, now time.Time) (Comment, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return Comment{}, errors.New("comment id is required")
	}
	issueID := strings.TrimSpace(in.IssueID)
	if issueID == "" {
		return Comment{}, preconditionf("issue id is required")
	}
	authorID := strings.TrimSpace(in.AuthorID)
	if authorID == "" {
		return Comment{}, preconditionf("author id is required")
	}

	text := strings.TrimSpace(in.Text)
	if text == "" {
		return Comment{}, preconditionf("comment text is required")
	}
	if maxLength <= 0 {
		maxLength = DefaultMaxCommentLength
	}
	if n := utf8.RuneCountInString(text); n > maxLength {
		return Comment{}, preconditionf("comment text has %d characters, limit is %d", n, maxLength)
	}

	kind, ok := ParseCommentKind(in.Kind)
	if !ok {
		return Comment{}, preconditionf("unknown comment kind %q", in.Kind)
	}

	return Comment{
		ID:        id,
		IssueID:   issueID,
		AuthorID:  authorID,
		Text:      text,
		Kind:      kind,
		CreatedAt: now.UTC(),
	}, nil
}
