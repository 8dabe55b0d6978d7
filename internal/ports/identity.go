package ports

import (
	"context"

	"qcflow/internal/domain/quality"
)

// IdentityProvider resolves actor ids to roles. Unknown actors yield
// quality.ErrNotFound; lookup failures should be retryable.
type IdentityProvider interface {
	ResolveRole(ctx context.Context, actorID string) (quality.Role, error)
}
