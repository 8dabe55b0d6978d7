package identity

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"qcflow/internal/domain/quality"
)

type countingProvider struct {
	roles map[string]quality.Role
	calls int
}

func (p *countingProvider) ResolveRole(_ context.Context, actorID string) (quality.Role, error) {
	p.calls++
	role, ok := p.roles[actorID]
	if !ok {
		return "", quality.ErrNotFound
	}
	return role, nil
}

type memoryCache struct {
	data   map[string]string
	getErr error
}

func (c *memoryCache) Get(_ context.Context, key string) (string, bool, error) {
	if c.getErr != nil {
		return "", false, c.getErr
	}
	v, ok := c.data[key]
	return v, ok, nil
}

func (c *memoryCache) Set(_ context.Context, key string, value string, _ time.Duration) error {
	c.data[key] = value
	return nil
}

func (c *memoryCache) Delete(_ context.Context, key string) error {
	delete(c.data, key)
	return nil
}

func TestCachedProviderMemoizesKnownActors(t *testing.T) {
	next := &countingProvider{roles: map[string]quality.Role{"sup-1": quality.RoleSupervisor}}
	cache := &memoryCache{data: map[string]string{}}
	provider := NewCachedProvider(next, cache, time.Minute)
	ctx := context.Background()

	for range 3 {
		role, err := provider.ResolveRole(ctx, "sup-1")
		require.NoError(t, err)
		assert.Equal(t, quality.RoleSupervisor, role)
	}
	assert.Equal(t, 1, next.calls)
	assert.Equal(t, "supervisor", cache.data["identity:role:sup-1"])

	for range 2 {
		_, err := provider.ResolveRole(ctx, "ghost")
		assert.True(t, errors.Is(err, quality.ErrNotFound))
	}
	assert.Equal(t, 3, next.calls, "unknown actors are not cached")
}

func TestCachedProviderFallsThroughOnCacheError(t *testing.T) {
	next := &countingProvider{roles: map[string]quality.Role{"wrk-1": quality.RoleWorker}}
	cache := &memoryCache{data: map[string]string{}, getErr: errors.New("cache down")}
	provider := NewCachedProvider(next, cache, time.Minute)

	role, err := provider.ResolveRole(context.Background(), "wrk-1")
	require.NoError(t, err)
	assert.Equal(t, quality.RoleWorker, role)
	assert.Equal(t, 1, next.calls)
}

func TestCachedProviderDisabledWithZeroTTL(t *testing.T) {
	next := &countingProvider{roles: map[string]quality.Role{"wrk-1": quality.RoleWorker}}
	cache := &memoryCache{data: map[string]string{}}
	provider := NewCachedProvider(next, cache, 0)

	for range 2 {
		_, err := provider.ResolveRole(context.Background(), "wrk-1")
		require.NoError(t, err)
	}
	assert.Equal(t, 2, next.calls)
	assert.Empty(t, cache.data)
}
