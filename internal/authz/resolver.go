package authz

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/angelmondragon/bizhub-backend/pkg/logger"
	"github.com/angelmondragon/bizhub-backend/pkg/redis"
)

const defaultCacheTTL = time.Minute

// ErrInactivePrincipal is returned for users that are unknown or deactivated.
// It is never cached so a reactivated account is seen on its next request.
var ErrInactivePrincipal = errors.New("principal unknown or inactive")

type scopeSource interface {
	ScopesForUser(ctx context.Context, userID uuid.UUID) ([]string, error)
}

type scopeCache interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key string, value any, ttl time.Duration) error
	Del(ctx context.Context, keys ...string) error
	ScopeCacheKey(userID string) string
}

// ResolverParams bundles the dependencies of a Resolver. Cache is optional.
type ResolverParams struct {
	Source   scopeSource
	Cache    scopeCache
	CacheTTL time.Duration
	Logger   *logger.Logger
}

// Resolver computes effective scopes, caching them per user.
type Resolver struct {
	source scopeSource
	cache  scopeCache
	ttl    time.Duration
	logg   *logger.Logger
}

func NewResolver(params ResolverParams) (*Resolver, error) {
	if params.Source == nil {
		return nil, fmt.Errorf("scope source required")
	}
	ttl := params.CacheTTL
	if ttl <= 0 {
		ttl = defaultCacheTTL
	}
	logg := params.Logger
	if logg == nil {
		logg = logger.Nop()
	}
	return &Resolver{source: params.Source, cache: params.Cache, ttl: ttl, logg: logg}, nil
}

// EffectiveScopes returns the union of scopes across the user's roles. Cache
// failures fall through to the database.
func (r *Resolver) EffectiveScopes(ctx context.Context, userID uuid.UUID) (ScopeSet, error) {
	if cached, ok := r.fromCache(ctx, userID); ok {
		return cached, nil
	}

	values, err := r.source.ScopesForUser(ctx, userID)
	if err != nil {
		return ScopeSet{}, err
	}
	set := ScopeSetFromStrings(values)
	r.store(ctx, userID, set)
	return set, nil
}

// Invalidate drops the cached scopes for the users.
func (r *Resolver) Invalidate(ctx context.Context, userIDs ...uuid.UUID) {
	if r.cache == nil || len(userIDs) == 0 {
		return
	}
	keys := make([]string, 0, len(userIDs))
	for _, id := range userIDs {
		keys = append(keys, r.cache.ScopeCacheKey(id.String()))
	}
	if err := r.cache.Del(ctx, keys...); err != nil {
		r.logg.Error(ctx, "authz.cache.invalidate_failed", err)
	}
}

func (r *Resolver) fromCache(ctx context.Context, userID uuid.UUID) (ScopeSet, bool) {
	if r.cache == nil {
		return ScopeSet{}, false
	}
	raw, err := r.cache.Get(ctx, r.cache.ScopeCacheKey(userID.String()))
	if err != nil {
		if !errors.Is(err, redis.ErrNil) {
			r.logg.Warn(r.logg.WithField(ctx, "error", err.Error()), "authz.cache.read_failed")
		}
		return ScopeSet{}, false
	}
	var values []string
	if err := json.Unmarshal([]byte(raw), &values); err != nil {
		return ScopeSet{}, false
	}
	return ScopeSetFromStrings(values), true
}

func (r *Resolver) store(ctx context.Context, userID uuid.UUID, set ScopeSet) {
	if r.cache == nil {
		return
	}
	payload, err := json.Marshal(set.Strings())
	if err != nil {
		return
	}
	if err := r.cache.Set(ctx, r.cache.ScopeCacheKey(userID.String()), string(payload), r.ttl); err != nil {
		r.logg.Warn(r.logg.WithField(ctx, "error", err.Error()), "authz.cache.write_failed")
	}
}
