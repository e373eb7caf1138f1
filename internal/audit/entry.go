package audit

import (
	"context"

	"github.com/google/uuid"

	"github.com/angelmondragon/bizhub-backend/pkg/enums"
)

// Actions recorded by the platform.
const (
	ActionLogin          = "auth.login"
	ActionRefresh        = "auth.refresh"
	ActionLogout         = "auth.logout"
	ActionLogoutAll      = "auth.logout_all"
	ActionChangePassword = "auth.change_password"
	ActionAccessDenied   = "authz.access_denied"
	ActionRevokeSessions = "user.revoke_sessions"
	ActionUserCreate     = "user.create"
	ActionProductCreate  = "product.create"
	ActionProductUpdate  = "product.update"
	ActionProductDelete  = "product.delete"
	ActionCategoryCreate = "category.create"
	ActionCategoryDelete = "category.delete"
	ActionRoleCreate     = "role.create"
	ActionRoleAssign     = "role.assign"
)

// Entry is one audit event before it is persisted.
type Entry struct {
	BusinessID *uuid.UUID
	ActorID    *uuid.UUID
	Action     string
	EntityType string
	EntityID   string
	OldValues  any
	NewValues  any
	Result     enums.AuditResult
}

// Sink receives audit entries. Implementations must not block the caller.
type Sink interface {
	Record(ctx context.Context, entry Entry)
}

// Nop discards every entry.
type Nop struct{}

func (Nop) Record(context.Context, Entry) {}

// RequestMeta carries request attributes copied onto every entry.
type RequestMeta struct {
	RequestID string
	IP        string
}

type metaKey struct{}

// WithRequestMeta stores request attributes for entries recorded later in the request.
func WithRequestMeta(ctx context.Context, meta RequestMeta) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, metaKey{}, meta)
}

func RequestMetaFrom(ctx context.Context) RequestMeta {
	if ctx == nil {
		return RequestMeta{}
	}
	meta, _ := ctx.Value(metaKey{}).(RequestMeta)
	return meta
}
