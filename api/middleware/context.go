package middleware

import (
	"context"

	"github.com/google/uuid"
)

type contextKey string

const (
	ctxUserID     contextKey = "user_id"
	ctxRole       contextKey = "actor_role"
	ctxBusinessID contextKey = "business_id"
)

func UserIDFromContext(ctx context.Context) string {
	return stringFromContext(ctx, ctxUserID)
}

func RoleFromContext(ctx context.Context) string {
	return stringFromContext(ctx, ctxRole)
}

func BusinessIDFromContext(ctx context.Context) string {
	return stringFromContext(ctx, ctxBusinessID)
}

// UserUUIDFromContext returns the authenticated user id, or false when the
// request is unauthenticated.
func UserUUIDFromContext(ctx context.Context) (uuid.UUID, bool) {
	return uuidFromContext(ctx, ctxUserID)
}

// BusinessUUIDFromContext returns the tenant carried by the access token.
func BusinessUUIDFromContext(ctx context.Context) (uuid.UUID, bool) {
	return uuidFromContext(ctx, ctxBusinessID)
}

// WithUserID injects the user identifier into the context.
func WithUserID(ctx context.Context, userID string) context.Context {
	return withValue(ctx, ctxUserID, userID)
}

func WithRole(ctx context.Context, role string) context.Context {
	return withValue(ctx, ctxRole, role)
}

// WithBusinessID injects the tenant identifier for downstream handlers.
func WithBusinessID(ctx context.Context, businessID string) context.Context {
	return withValue(ctx, ctxBusinessID, businessID)
}

func withValue(ctx context.Context, key contextKey, value string) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, key, value)
}

func stringFromContext(ctx context.Context, key contextKey) string {
	if ctx == nil {
		return ""
	}
	if v, ok := ctx.Value(key).(string); ok {
		return v
	}
	return ""
}

func uuidFromContext(ctx context.Context, key contextKey) (uuid.UUID, bool) {
	raw := stringFromContext(ctx, key)
	if raw == "" {
		return uuid.Nil, false
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, false
	}
	return id, true
}
