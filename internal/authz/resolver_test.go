package authz

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/angelmondragon/bizhub-backend/pkg/config"
	"github.com/angelmondragon/bizhub-backend/pkg/enums"
	"github.com/angelmondragon/bizhub-backend/pkg/redis"
)

type stubSource struct {
	scopes map[uuid.UUID][]string
	calls  int
	err    error
}

func (s *stubSource) ScopesForUser(_ context.Context, userID uuid.UUID) ([]string, error) {
	s.calls++
	if s.err != nil {
		return nil, s.err
	}
	return s.scopes[userID], nil
}

func newCache(t *testing.T) (*redis.Client, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client, err := redis.New(context.Background(), config.RedisConfig{Address: mr.Addr()}, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Close() })
	return client, mr
}

func TestResolverCachesScopes(t *testing.T) {
	ctx := context.Background()
	userID := uuid.New()
	source := &stubSource{scopes: map[uuid.UUID][]string{userID: {"INVENTORY_READ", "MENU_READ"}}}
	cache, mr := newCache(t)

	resolver, err := NewResolver(ResolverParams{Source: source, Cache: cache, CacheTTL: 30 * time.Second})
	require.NoError(t, err)

	set, err := resolver.EffectiveScopes(ctx, userID)
	require.NoError(t, err)
	assert.True(t, set.HasAll(enums.ScopeInventoryRead, enums.ScopeMenuRead))

	set, err = resolver.EffectiveScopes(ctx, userID)
	require.NoError(t, err)
	assert.True(t, set.Has(enums.ScopeMenuRead))
	assert.Equal(t, 1, source.calls)

	key := cache.ScopeCacheKey(userID.String())
	assert.Equal(t, 30*time.Second, mr.TTL(key))

	resolver.Invalidate(ctx, userID)
	assert.False(t, mr.Exists(key))

	_, err = resolver.EffectiveScopes(ctx, userID)
	require.NoError(t, err)
	assert.Equal(t, 2, source.calls)
}

func TestResolverCachesEmptySet(t *testing.T) {
	ctx := context.Background()
	source := &stubSource{}
	cache, _ := newCache(t)
	resolver, err := NewResolver(ResolverParams{Source: source, Cache: cache})
	require.NoError(t, err)

	userID := uuid.New()
	for i := 0; i < 2; i++ {
		set, err := resolver.EffectiveScopes(ctx, userID)
		require.NoError(t, err)
		assert.Zero(t, set.Len())
	}
	assert.Equal(t, 1, source.calls)
}

func TestResolverFallsBackWhenCacheUnavailable(t *testing.T) {
	ctx := context.Background()
	userID := uuid.New()
	source := &stubSource{scopes: map[uuid.UUID][]string{userID: {"SUPER_ADMIN"}}}
	cache, mr := newCache(t)
	mr.Close()

	resolver, err := NewResolver(ResolverParams{Source: source, Cache: cache})
	require.NoError(t, err)

	set, err := resolver.EffectiveScopes(ctx, userID)
	require.NoError(t, err)
	assert.True(t, set.IsSuperAdmin())
}

func TestResolverWithoutCache(t *testing.T) {
	userID := uuid.New()
	source := &stubSource{scopes: map[uuid.UUID][]string{userID: {"AUDIT_READ"}}}
	resolver, err := NewResolver(ResolverParams{Source: source})
	require.NoError(t, err)

	set, err := resolver.EffectiveScopes(context.Background(), userID)
	require.NoError(t, err)
	assert.True(t, set.Has(enums.ScopeAuditRead))
	resolver.Invalidate(context.Background(), userID)
}

func TestResolverPropagatesSourceError(t *testing.T) {
	source := &stubSource{err: errors.New("db down")}
	resolver, err := NewResolver(ResolverParams{Source: source})
	require.NoError(t, err)

	_, err = resolver.EffectiveScopes(context.Background(), uuid.New())
	assert.Error(t, err)
}

func TestNewResolverRequiresSource(t *testing.T) {
	_, err := NewResolver(ResolverParams{})
	assert.Error(t, err)
}
