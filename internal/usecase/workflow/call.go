package workflow

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"qcflow/internal/bootstrap/logging"
	"qcflow/internal/domain/quality"
	"qcflow/internal/errs"
	"qcflow/internal/ports"
)

// begin prepares the context of one engine call: request tags for logging
// and the default deadline.
func (s *Service) begin(ctx context.Context, actorID string, requestID string) (context.Context, context.CancelFunc, error) {
	if ctx == nil {
		return nil, nil, errors.New("context is required")
	}
	if s.repo == nil {
		return nil, nil, errors.New("issue repository is required")
	}
	if s.uow == nil {
		return nil, nil, errors.New("unit of work is required")
	}

	ctx = logging.WithComponent(
		logging.WithRequest(ctx, strings.TrimSpace(actorID), strings.TrimSpace(requestID)),
		"usecase.workflow",
	)
	ctx, cancel := s.withTimeout(ctx)
	if err := ctx.Err(); err != nil {
		cancel()
		return nil, nil, quality.Unavailable(err)
	}
	return ctx, cancel, nil
}

func (s *Service) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if _, ok := ctx.Deadline(); ok || s.opts.OperationTimeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, s.opts.OperationTimeout)
}

// resolveActor turns an actor id into an Actor. Unknown ids are Forbidden.
func (s *Service) resolveActor(ctx context.Context, actorID string) (quality.Actor, error) {
	actorID = strings.TrimSpace(actorID)
	if actorID == "" {
		return quality.Actor{}, fmt.Errorf("%w: actor id is required", quality.ErrForbidden)
	}
	if s.identity == nil {
		return quality.Actor{}, errors.New("identity provider is required")
	}

	role, err := s.identity.ResolveRole(ctx, actorID)
	if err != nil {
		if errors.Is(err, quality.ErrNotFound) {
			return quality.Actor{}, fmt.Errorf("%w: unknown actor %q", quality.ErrForbidden, actorID)
		}
		return quality.Actor{}, quality.Unavailable(errs.Wrapf(err, "resolve role of %q", actorID))
	}
	return quality.Actor{ID: actorID, Role: role}, nil
}

// roleLookup is a participant role resolved before the transaction opens, so
// identity backends that share the database never wait on the write lock.
type roleLookup struct {
	field   string
	actorID string
	role    quality.Role
	err     error
}

func (s *Service) lookupRole(ctx context.Context, field string, actorID string) roleLookup {
	lookup := roleLookup{field: field, actorID: strings.TrimSpace(actorID)}
	if lookup.actorID == "" {
		return lookup
	}
	if s.identity == nil {
		lookup.err = errors.New("identity provider is required")
		return lookup
	}
	lookup.role, lookup.err = s.identity.ResolveRole(ctx, lookup.actorID)
	return lookup
}

// require checks that the referenced participant exists with one of roles.
// An empty id passes; the domain reports missing fields itself.
func (l roleLookup) require(roles ...quality.Role) error {
	if l.actorID == "" {
		return nil
	}
	if l.err != nil {
		if errors.Is(l.err, quality.ErrNotFound) {
			return fmt.Errorf("%w: %s %q is not a known actor", quality.ErrPreconditionFailed, l.field, l.actorID)
		}
		return quality.Unavailable(errs.Wrapf(l.err, "resolve role of %q", l.actorID))
	}
	for _, want := range roles {
		if l.role == want {
			return nil
		}
	}
	return fmt.Errorf("%w: %s %q has role %s", quality.ErrPreconditionFailed, l.field, l.actorID, l.role)
}

func requireIssueID(issueID string) (string, error) {
	issueID = strings.TrimSpace(issueID)
	if issueID == "" {
		return "", fmt.Errorf("%w: issue id is required", quality.ErrPreconditionFailed)
	}
	return issueID, nil
}

// classify keeps taxonomy errors as they are and reports context expiry as
// Unavailable. Anything else is an internal failure and passes through.
func classify(err error) error {
	if err == nil {
		return nil
	}
	var coded *quality.Error
	if errors.As(err, &coded) {
		return err
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return quality.Unavailable(err)
	}
	return err
}

// requestKey identifies one deduplicated call. A stored outcome is only
// replayed to the actor that produced it.
type requestKey struct {
	ID        string
	Operation string
	IssueID   string
	ActorID   string
}

// runOnce executes run at most once per request id inside the current
// transaction. A stored outcome is decoded and returned with replayed=true.
// Failed runs store nothing so the caller may retry.
func runOnce[T any](ctx context.Context, s *Service, key requestKey, now time.Time, run func(ctx context.Context) (T, error)) (T, bool, error) {
	var zero T
	key.ID = strings.TrimSpace(key.ID)
	if key.ID == "" {
		out, err := run(ctx)
		return out, false, err
	}

	if _, err := s.repo.DeleteExpiredRequests(ctx, now); err != nil {
		return zero, false, err
	}

	record, found, err := s.repo.GetRequest(ctx, key.ID)
	if err != nil {
		return zero, false, err
	}
	if found {
		if record.Operation != key.Operation || record.IssueID != key.IssueID {
			return zero, false, fmt.Errorf(
				"%w: request id %q was already used for %s on %q",
				quality.ErrConflict, key.ID, record.Operation, record.IssueID,
			)
		}
		if record.ActorID != key.ActorID {
			return zero, false, fmt.Errorf(
				"%w: request id %q belongs to another actor", quality.ErrForbidden, key.ID,
			)
		}
		var out T
		if err := json.Unmarshal([]byte(record.ResponseJSON), &out); err != nil {
			return zero, false, errs.Wrapf(err, "decode stored response of request %q", key.ID)
		}
		return out, true, nil
	}

	out, err := run(ctx)
	if err != nil {
		return zero, false, err
	}

	payload, err := json.Marshal(out)
	if err != nil {
		return zero, false, errs.Wrap(err, "encode response snapshot")
	}
	inserted, err := s.repo.SaveRequest(ctx, ports.RequestRecord{
		RequestID:    key.ID,
		Operation:    key.Operation,
		IssueID:      key.IssueID,
		ActorID:      key.ActorID,
		ResponseJSON: string(payload),
		CreatedAt:    now,
		ExpiresAt:    now.Add(s.opts.RequestTTL),
	})
	if err != nil {
		return zero, false, err
	}
	if !inserted {
		return zero, false, fmt.Errorf("%w: request id %q is being processed concurrently", quality.ErrConflict, key.ID)
	}
	return out, false, nil
}

// commit runs fn in a transaction and refuses to commit once ctx is done, so a
// cancelled call is never half applied. A commit that loses the race with
// cancellation is rolled back by database/sql and reported as Unavailable.
func (s *Service) commit(ctx context.Context, fn func(txCtx context.Context) error) error {
	err := s.uow.WithTx(ctx, func(txCtx context.Context) error {
		if err := fn(txCtx); err != nil {
			return err
		}
		if err := txCtx.Err(); err != nil {
			return quality.Unavailable(errs.Wrap(err, "context done before commit"))
		}
		return nil
	})
	if err != nil && ctx.Err() != nil && errors.Is(err, sql.ErrTxDone) {
		return quality.Unavailable(errs.Wrap(err, "transaction aborted by context"))
	}
	return err
}

// publish announces committed changes. Failures are logged, never returned.
func (s *Service) publish(ctx context.Context, events ...quality.Event) {
	if s.publisher == nil {
		return
	}
	for _, event := range events {
		if err := s.publisher.Publish(ctx, event); err != nil {
			logging.Warn(
				ctx,
				"publish issue event failed",
				slog.String("type", string(event.Type)),
				slog.String("issue_id", event.IssueID),
				slog.Any("err", errs.Loggable(err)),
			)
		}
	}
}
