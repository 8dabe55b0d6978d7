package workflow

import (
	"context"
	"errors"
	"fmt"
	"iter"
	"log/slog"

	"qcflow/internal/bootstrap/logging"
	"qcflow/internal/domain/quality"
)

// AddComment appends to an issue's thread. Only participants may comment.
// Comments do not take the issue lock.
func (s *Service) AddComment(ctx context.Context, input AddCommentInput) (quality.Comment, error) {
	ctx, cancel, err := s.begin(ctx, input.ActorID, input.RequestID)
	if err != nil {
		return quality.Comment{}, err
	}
	defer cancel()

	issueID, err := requireIssueID(input.IssueID)
	if err != nil {
		return quality.Comment{}, err
	}
	actor, err := s.resolveActor(ctx, input.ActorID)
	if err != nil {
		return quality.Comment{}, err
	}

	now := s.now()
	var replayed bool
	var comment quality.Comment
	err = s.commit(ctx, func(txCtx context.Context) error {
		key := requestKey{ID: input.RequestID, Operation: opAddComment, IssueID: issueID, ActorID: actor.ID}
		out, wasReplay, err := runOnce(txCtx, s, key, now, func(txCtx context.Context) (quality.Comment, error) {
			issue, err := s.repo.GetIssue(txCtx, issueID)
			if err != nil {
				return quality.Comment{}, err
			}
			if !issue.IsParticipant(actor) {
				return quality.Comment{}, fmt.Errorf("%w: actor %q is not a participant of issue %s", quality.ErrForbidden, actor.ID, issueID)
			}
			c, err := quality.NewComment(s.newID(), quality.CommentInput{
				IssueID:  issueID,
				AuthorID: actor.ID,
				Text:     input.Text,
				Kind:     input.Kind,
			}, s.opts.MaxCommentLength, now)
			if err != nil {
				return quality.Comment{}, err
			}
			if err := s.repo.AppendComment(txCtx, c); err != nil {
				return quality.Comment{}, err
			}
			return c, nil
		})
		comment, replayed = out, wasReplay
		return err
	})
	if err != nil {
		return quality.Comment{}, classify(err)
	}
	if replayed {
		return comment, nil
	}

	logging.Info(ctx, "comment added", slog.String("issue_id", issueID), slog.String("kind", string(comment.Kind)))
	s.publish(ctx, quality.Event{
		Type:      quality.EventCommentAdded,
		IssueID:   issueID,
		ActorID:   actor.ID,
		CommentID: comment.ID,
		At:        comment.CreatedAt,
	})
	return comment, nil
}

// ListComments returns the thread oldest first. The sequence reads one page
// at a time and starts over on every range; an unknown issue yields a single
// NotFound error.
func (s *Service) ListComments(ctx context.Context, issueID string) iter.Seq2[quality.Comment, error] {
	return func(yield func(quality.Comment, error) bool) {
		if ctx == nil {
			yield(quality.Comment{}, errors.New("context is required"))
			return
		}
		id, err := requireIssueID(issueID)
		if err != nil {
			yield(quality.Comment{}, err)
			return
		}

		if err := s.read(ctx, func(ctx context.Context) error {
			_, err := s.repo.GetIssue(ctx, id)
			return err
		}); err != nil {
			yield(quality.Comment{}, err)
			return
		}

		cursor := ""
		for {
			var page []quality.Comment
			err := s.read(ctx, func(ctx context.Context) error {
				var err error
				page, cursor, err = s.repo.ListCommentsAfter(ctx, id, cursor, s.opts.CommentPageSize)
				return err
			})
			if err != nil {
				yield(quality.Comment{}, err)
				return
			}
			for _, c := range page {
				if !yield(c, nil) {
					return
				}
			}
			if len(page) < s.opts.CommentPageSize {
				return
			}
		}
	}
}

// CollectComments drains ListComments into a slice.
func (s *Service) CollectComments(ctx context.Context, issueID string) ([]quality.Comment, error) {
	out := make([]quality.Comment, 0)
	for c, err := range s.ListComments(ctx, issueID) {
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, nil
}
