package middleware

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/angelmondragon/bizhub-backend/api/responses"
	"github.com/angelmondragon/bizhub-backend/internal/audit"
	"github.com/angelmondragon/bizhub-backend/internal/authz"
	"github.com/angelmondragon/bizhub-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/bizhub-backend/pkg/errors"
	"github.com/angelmondragon/bizhub-backend/pkg/logger"
	"github.com/angelmondragon/bizhub-backend/pkg/metrics"
)

type scopeResolver interface {
	EffectiveScopes(ctx context.Context, userID uuid.UUID) (authz.ScopeSet, error)
}

// ScopeGuardParams configure the scope middleware.
type ScopeGuardParams struct {
	Resolver scopeResolver
	Audit    audit.Sink
	Metrics  *metrics.AuthMetrics
	Logger   *logger.Logger
}

// ScopeGuard builds middleware that checks the caller's effective scopes
// before the handler runs.
type ScopeGuard struct {
	resolver scopeResolver
	audit    audit.Sink
	metrics  *metrics.AuthMetrics
	logg     *logger.Logger
}

func NewScopeGuard(params ScopeGuardParams) (*ScopeGuard, error) {
	if params.Resolver == nil {
		return nil, fmt.Errorf("scope resolver required")
	}
	sink := params.Audit
	if sink == nil {
		sink = audit.Nop{}
	}
	return &ScopeGuard{
		resolver: params.Resolver,
		audit:    sink,
		metrics:  params.Metrics,
		logg:     params.Logger,
	}, nil
}

// RequireScope allows the request when the caller holds scope.
func (g *ScopeGuard) RequireScope(scope enums.Scope) func(http.Handler) http.Handler {
	return g.require("scope", []enums.Scope{scope}, func(set authz.ScopeSet) bool {
		return set.Has(scope)
	})
}

// RequireAllScopes allows the request when the caller holds every scope.
func (g *ScopeGuard) RequireAllScopes(scopes ...enums.Scope) func(http.Handler) http.Handler {
	return g.require("all", scopes, func(set authz.ScopeSet) bool {
		return set.HasAll(scopes...)
	})
}

// RequireAnyScope allows the request when the caller holds at least one scope.
func (g *ScopeGuard) RequireAnyScope(scopes ...enums.Scope) func(http.Handler) http.Handler {
	return g.require("any", scopes, func(set authz.ScopeSet) bool {
		return set.HasAny(scopes...)
	})
}

// RequireActive allows the request only while the caller's account exists
// and is active. Scope checks imply it.
func (g *ScopeGuard) RequireActive() func(http.Handler) http.Handler {
	return g.require("active", nil, func(authz.ScopeSet) bool { return true })
}

func (g *ScopeGuard) require(mode string, required []enums.Scope, allowed func(authz.ScopeSet) bool) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			userID, ok := UserUUIDFromContext(ctx)
			if !ok {
				responses.WriteError(ctx, g.logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "user context missing"))
				return
			}

			set, err := g.resolver.EffectiveScopes(ctx, userID)
			if errors.Is(err, authz.ErrInactivePrincipal) {
				responses.WriteError(ctx, g.logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "authentication required"))
				return
			}
			if err != nil {
				responses.WriteError(ctx, g.logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "resolve scopes"))
				return
			}
			if allowed(set) {
				next.ServeHTTP(w, r)
				return
			}

			g.deny(ctx, userID, mode, required, r)
			responses.WriteError(ctx, g.logg, w, pkgerrors.New(pkgerrors.CodeForbidden, "insufficient permissions"))
		})
	}
}

func (g *ScopeGuard) deny(ctx context.Context, userID uuid.UUID, mode string, required []enums.Scope, r *http.Request) {
	g.metrics.Record(metrics.AuthEventAccessDenied, false)

	names := make([]string, 0, len(required))
	for _, s := range required {
		names = append(names, s.String())
	}
	details := map[string]any{
		"mode":     mode,
		"required": names,
		"method":   r.Method,
		"path":     r.URL.Path,
	}
	entry := audit.Entry{
		ActorID:    &userID,
		Action:     audit.ActionAccessDenied,
		EntityType: "route",
		EntityID:   r.Method + " " + r.URL.Path,
		NewValues:  details,
		Result:     enums.AuditResultDenied,
	}
	if businessID, ok := BusinessUUIDFromContext(ctx); ok {
		entry.BusinessID = &businessID
	}
	g.audit.Record(ctx, entry)

	if g.logg != nil {
		logCtx := g.logg.WithFields(ctx, map[string]any{
			"required_scopes": strings.Join(names, ","),
			"mode":            mode,
		})
		g.logg.Warn(logCtx, "authz.access_denied")
	}
}
