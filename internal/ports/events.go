package ports

import (
	"context"

	"qcflow/internal/domain/quality"
)

// EventPublisher announces committed changes. Delivery is best effort.
type EventPublisher interface {
	Publish(ctx context.Context, event quality.Event) error
}
