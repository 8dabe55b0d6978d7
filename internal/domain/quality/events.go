package quality

import "time"

type EventType string

const (
	EventIssueCreated      EventType = "created"
	EventIssueTransitioned EventType = "transitioned"
	EventIssueUpdated      EventType = "updated"
	EventIssueDeleted      EventType = "deleted"
	EventCommentAdded      EventType = "comment_added"
)

// Event is a committed change announced to downstream consumers.
type Event struct {
	Type      EventType `json:"type"`
	IssueID   string    `json:"issueId"`
	ActorID   string    `json:"actorId"`
	From      Status    `json:"from,omitempty"`
	To        Status    `json:"to,omitempty"`
	Reason    string    `json:"reason,omitempty"`
	CommentID string    `json:"commentId,omitempty"`
	At        time.Time `json:"at"`
}
