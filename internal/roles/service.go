package roles

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"github.com/angelmondragon/bizhub-backend/internal/audit"
	"github.com/angelmondragon/bizhub-backend/pkg/db"
	"github.com/angelmondragon/bizhub-backend/pkg/db/models"
	"github.com/angelmondragon/bizhub-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/bizhub-backend/pkg/errors"
	"github.com/angelmondragon/bizhub-backend/pkg/pagination"
)

const (
	maxNameLength        = 100
	uniqueRoleConstraint = "uq_roles_business_name"
)

// RoleDTO is the API shape of a role.
type RoleDTO struct {
	ID          uuid.UUID  `json:"id"`
	BusinessID  *uuid.UUID `json:"business_id,omitempty"`
	Name        string     `json:"name"`
	Description *string    `json:"description,omitempty"`
	Scopes      []string   `json:"scopes"`
	IsSystem    bool       `json:"is_system"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

func FromModel(r models.Role) RoleDTO {
	scopes := append([]string{}, r.Scopes...)
	return RoleDTO{
		ID:          r.ID,
		BusinessID:  r.BusinessID,
		Name:        r.Name,
		Description: r.Description,
		Scopes:      scopes,
		IsSystem:    r.IsSystem,
		CreatedAt:   r.CreatedAt,
		UpdatedAt:   r.UpdatedAt,
	}
}

// CreateRoleInput is the body of a role creation request.
type CreateRoleInput struct {
	Name        string   `json:"name" validate:"required,max=100"`
	Description *string  `json:"description" validate:"omitempty,max=500"`
	Scopes      []string `json:"scopes" validate:"required,min=1"`
}

// Service manages tenant roles.
type Service interface {
	List(ctx context.Context, businessID uuid.UUID, q pagination.Query) (*pagination.Result[RoleDTO], error)
	Create(ctx context.Context, businessID, actorID uuid.UUID, input CreateRoleInput) (*RoleDTO, error)
	Assign(ctx context.Context, businessID, actorID, roleID, userID uuid.UUID) error
}

type roleRepository interface {
	Create(ctx context.Context, role *models.Role) error
	FindVisible(ctx context.Context, businessID, id uuid.UUID) (*models.Role, error)
	ListForBusiness(ctx context.Context, businessID uuid.UUID, q pagination.Query) (*pagination.Result[models.Role], error)
	AssignToUser(ctx context.Context, userID, roleID uuid.UUID) error
}

type userLookup interface {
	FindInBusiness(ctx context.Context, businessID, id uuid.UUID) (*models.User, error)
}

type scopeInvalidator interface {
	Invalidate(ctx context.Context, userIDs ...uuid.UUID)
}

// ServiceParams bundles the dependencies required to build a roles service.
type ServiceParams struct {
	Repo     roleRepository
	Users    userLookup
	Resolver scopeInvalidator
	Audit    audit.Sink
}

type service struct {
	repo     roleRepository
	users    userLookup
	resolver scopeInvalidator
	audit    audit.Sink
}

func NewService(params ServiceParams) (Service, error) {
	if params.Repo == nil {
		return nil, fmt.Errorf("roles repository required")
	}
	if params.Users == nil {
		return nil, fmt.Errorf("users repository required")
	}
	if params.Resolver == nil {
		return nil, fmt.Errorf("scope resolver required")
	}
	sink := params.Audit
	if sink == nil {
		sink = audit.Nop{}
	}
	return &service{
		repo:     params.Repo,
		users:    params.Users,
		resolver: params.Resolver,
		audit:    sink,
	}, nil
}

func (s *service) List(ctx context.Context, businessID uuid.UUID, q pagination.Query) (*pagination.Result[RoleDTO], error) {
	res, err := s.repo.ListForBusiness(ctx, businessID, q)
	if err != nil {
		if pkgerrors.As(err) != nil {
			return nil, err
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "list roles")
	}
	return pagination.MapResult(res, FromModel), nil
}

func (s *service) Create(ctx context.Context, businessID, actorID uuid.UUID, input CreateRoleInput) (*RoleDTO, error) {
	name := strings.TrimSpace(input.Name)
	scopes, err := normalizeScopes(input.Scopes)
	if err != nil {
		return nil, err
	}
	if name == "" || len(name) > maxNameLength {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid role").
			WithDetails(map[string]string{"name": fmt.Sprintf("must be 1-%d characters", maxNameLength)})
	}

	bizID := businessID
	role := &models.Role{
		BusinessID:  &bizID,
		Name:        name,
		Description: input.Description,
		Scopes:      pq.StringArray(scopes),
	}
	if err := s.repo.Create(ctx, role); err != nil {
		if db.IsUniqueViolation(err, uniqueRoleConstraint) {
			return nil, pkgerrors.New(pkgerrors.CodeConflict, "a role with this name already exists")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "create role")
	}

	dto := FromModel(*role)
	s.audit.Record(ctx, audit.Entry{
		BusinessID: &bizID,
		ActorID:    &actorID,
		Action:     audit.ActionRoleCreate,
		EntityType: "role",
		EntityID:   role.ID.String(),
		NewValues:  dto,
		Result:     enums.AuditResultSuccess,
	})
	return &dto, nil
}

func (s *service) Assign(ctx context.Context, businessID, actorID, roleID, userID uuid.UUID) error {
	role, err := s.repo.FindVisible(ctx, businessID, roleID)
	if err != nil {
		if db.IsNotFound(err) {
			return pkgerrors.New(pkgerrors.CodeNotFound, "role not found")
		}
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load role")
	}
	for _, scope := range role.Scopes {
		if enums.Scope(scope) == enums.ScopeSuperAdmin {
			return pkgerrors.New(pkgerrors.CodeForbidden, "role cannot be assigned by a business")
		}
	}

	if _, err := s.users.FindInBusiness(ctx, businessID, userID); err != nil {
		if db.IsNotFound(err) {
			return pkgerrors.New(pkgerrors.CodeNotFound, "user not found")
		}
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load user")
	}

	if err := s.repo.AssignToUser(ctx, userID, roleID); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "assign role")
	}
	s.resolver.Invalidate(ctx, userID)

	bizID := businessID
	s.audit.Record(ctx, audit.Entry{
		BusinessID: &bizID,
		ActorID:    &actorID,
		Action:     audit.ActionRoleAssign,
		EntityType: "user",
		EntityID:   userID.String(),
		NewValues:  map[string]string{"role_id": roleID.String()},
		Result:     enums.AuditResultSuccess,
	})
	return nil
}

// normalizeScopes validates against the closed scope set and removes
// duplicates. SUPER_ADMIN is reserved for system roles.
func normalizeScopes(values []string) ([]string, error) {
	if len(values) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid role").
			WithDetails(map[string]string{"scopes": "at least one scope is required"})
	}
	parsed, invalid := enums.ParseScopes(values)
	if len(invalid) > 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid role").
			WithDetails(map[string]string{"scopes": "unknown scopes: " + strings.Join(invalid, ", ")})
	}
	seen := make(map[enums.Scope]struct{}, len(parsed))
	out := make([]string, 0, len(parsed))
	for _, scope := range parsed {
		if scope == enums.ScopeSuperAdmin {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid role").
				WithDetails(map[string]string{"scopes": "SUPER_ADMIN cannot be granted to a business role"})
		}
		if _, ok := seen[scope]; ok {
			continue
		}
		seen[scope] = struct{}{}
		out = append(out, string(scope))
	}
	return out, nil
}
