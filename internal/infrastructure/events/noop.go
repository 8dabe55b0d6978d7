package events

import (
	"context"
	"log/slog"

	"qcflow/internal/bootstrap/logging"
	"qcflow/internal/domain/quality"
	"qcflow/internal/ports"
)

// LogPublisher is used when no broker is configured. It only writes a debug line.
type LogPublisher struct{}

var _ ports.EventPublisher = LogPublisher{}

func (LogPublisher) Publish(ctx context.Context, event quality.Event) error {
	logging.Debug(
		logging.WithComponent(ctx, "events.log"),
		"issue event",
		slog.String("type", string(event.Type)),
		slog.String("issue_id", event.IssueID),
	)
	return nil
}
