package identity

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"qcflow/internal/bootstrap/logging"
	"qcflow/internal/domain/quality"
	"qcflow/internal/errs"
	"qcflow/internal/ports"
)

const roleCachePrefix = "identity:role:"

// CachedProvider memoizes resolved roles in a ports.Cache for ttl. Unknown
// actors and failures are never cached; cache errors fall through to next.
type CachedProvider struct {
	next  ports.IdentityProvider
	cache ports.Cache
	ttl   time.Duration
}

var _ ports.IdentityProvider = (*CachedProvider)(nil)

func NewCachedProvider(next ports.IdentityProvider, cache ports.Cache, ttl time.Duration) *CachedProvider {
	return &CachedProvider{next: next, cache: cache, ttl: ttl}
}

func (p *CachedProvider) ResolveRole(ctx context.Context, actorID string) (quality.Role, error) {
	key := roleCachePrefix + strings.TrimSpace(actorID)
	logCtx := logging.WithComponent(ctx, "identity.cache")

	if p.cache != nil && p.ttl > 0 {
		value, found, err := p.cache.Get(ctx, key)
		if err != nil {
			logging.Warn(logCtx, "role cache read failed", slog.Any("err", errs.Loggable(err)))
		} else if found {
			if role, ok := quality.ParseRole(value); ok {
				return role, nil
			}
		}
	}

	role, err := p.next.ResolveRole(ctx, actorID)
	if err != nil {
		return "", err
	}

	if p.cache != nil && p.ttl > 0 {
		if err := p.cache.Set(ctx, key, string(role), p.ttl); err != nil {
			logging.Warn(logCtx, "role cache write failed", slog.Any("err", errs.Loggable(err)))
		}
	}
	return role, nil
}
