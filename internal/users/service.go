package users

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/angelmondragon/bizhub-backend/internal/audit"
	"github.com/angelmondragon/bizhub-backend/internal/authz"
	"github.com/angelmondragon/bizhub-backend/pkg/config"
	"github.com/angelmondragon/bizhub-backend/pkg/db"
	"github.com/angelmondragon/bizhub-backend/pkg/db/models"
	"github.com/angelmondragon/bizhub-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/bizhub-backend/pkg/errors"
	"github.com/angelmondragon/bizhub-backend/pkg/pagination"
	"github.com/angelmondragon/bizhub-backend/pkg/security"
)

const uniqueEmailConstraint = "uq_users_email"

// Service exposes staff management and session administration.
type Service interface {
	Me(ctx context.Context, userID uuid.UUID) (*MeDTO, error)
	List(ctx context.Context, businessID uuid.UUID, q pagination.Query) (*pagination.Result[UserDTO], error)
	Create(ctx context.Context, businessID, actorID uuid.UUID, input CreateUserInput) (*UserDTO, error)
	RevokeSessions(ctx context.Context, businessID, actorID, userID uuid.UUID) (int64, error)
}

type userRepository interface {
	Create(ctx context.Context, dto CreateUserDTO) (*models.User, error)
	FindByID(ctx context.Context, id uuid.UUID) (*models.User, error)
	FindInBusiness(ctx context.Context, businessID, id uuid.UUID) (*models.User, error)
	ListForBusiness(ctx context.Context, businessID uuid.UUID, q pagination.Query) (*pagination.Result[models.User], error)
}

type scopeResolver interface {
	EffectiveScopes(ctx context.Context, userID uuid.UUID) (authz.ScopeSet, error)
}

type sessionRevoker interface {
	RevokeAll(ctx context.Context, userID uuid.UUID) (int64, error)
}

type sessionCounter interface {
	CountActive(ctx context.Context, userID uuid.UUID, now time.Time) (int64, error)
}

type roleLookup interface {
	FindVisible(ctx context.Context, businessID, id uuid.UUID) (*models.Role, error)
}

// ServiceParams bundles the dependencies required to build a users service.
type ServiceParams struct {
	Repo           userRepository
	Roles          roleLookup
	Resolver       scopeResolver
	Sessions       sessionRevoker
	Counter        sessionCounter
	PasswordConfig config.PasswordConfig
	Audit          audit.Sink
	Now            func() time.Time
}

type service struct {
	repo     userRepository
	roles    roleLookup
	resolver scopeResolver
	sessions sessionRevoker
	counter  sessionCounter
	pwCfg    config.PasswordConfig
	audit    audit.Sink
	now      func() time.Time
}

func NewService(params ServiceParams) (Service, error) {
	if params.Repo == nil {
		return nil, fmt.Errorf("users repository required")
	}
	if params.Resolver == nil {
		return nil, fmt.Errorf("scope resolver required")
	}
	if params.Sessions == nil {
		return nil, fmt.Errorf("session revoker required")
	}
	if params.Counter == nil {
		return nil, fmt.Errorf("session counter required")
	}
	if params.Roles == nil {
		return nil, fmt.Errorf("roles repository required")
	}
	sink := params.Audit
	if sink == nil {
		sink = audit.Nop{}
	}
	now := params.Now
	if now == nil {
		now = func() time.Time { return time.Now().UTC() }
	}
	return &service{
		repo:     params.Repo,
		roles:    params.Roles,
		resolver: params.Resolver,
		sessions: params.Sessions,
		counter:  params.Counter,
		pwCfg:    params.PasswordConfig,
		audit:    sink,
		now:      now,
	}, nil
}

func (s *service) Me(ctx context.Context, userID uuid.UUID) (*MeDTO, error) {
	user, err := s.repo.FindByID(ctx, userID)
	if err != nil {
		if db.IsNotFound(err) {
			return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "authentication required")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load user")
	}
	if !user.IsActive {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "authentication required")
	}
	scopes, err := s.resolver.EffectiveScopes(ctx, userID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "resolve scopes")
	}
	active, err := s.counter.CountActive(ctx, userID, s.now())
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "count sessions")
	}
	return &MeDTO{UserDTO: *FromModel(user), Scopes: scopes.Strings(), ActiveSessions: active}, nil
}

func (s *service) List(ctx context.Context, businessID uuid.UUID, q pagination.Query) (*pagination.Result[UserDTO], error) {
	res, err := s.repo.ListForBusiness(ctx, businessID, q)
	if err != nil {
		if pkgerrors.As(err) != nil {
			return nil, err
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "list users")
	}
	return pagination.MapResult(res, func(u models.User) UserDTO { return *FromModel(&u) }), nil
}

// Create adds a staff member to the caller's business. The new user must
// change the initial password, and may only receive a role whose scopes the
// caller already holds.
func (s *service) Create(ctx context.Context, businessID, actorID uuid.UUID, input CreateUserInput) (*UserDTO, error) {
	email := strings.ToLower(strings.TrimSpace(input.Email))
	firstName := strings.TrimSpace(input.FirstName)
	lastName := strings.TrimSpace(input.LastName)
	details := map[string]string{}
	if email == "" {
		details["email"] = "is required"
	}
	if firstName == "" {
		details["first_name"] = "is required"
	}
	if lastName == "" {
		details["last_name"] = "is required"
	}
	if err := security.ValidatePasswordStrength(input.Password, s.pwCfg); err != nil {
		details["password"] = err.Error()
	}
	if len(details) > 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid user").WithDetails(details)
	}

	if input.RoleID != nil {
		if err := s.checkGrantable(ctx, businessID, actorID, *input.RoleID); err != nil {
			return nil, err
		}
	}

	hash, err := security.HashPassword(input.Password, s.pwCfg)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "hash password")
	}

	bizID := businessID
	user, err := s.repo.Create(ctx, CreateUserDTO{
		Email:                 email,
		PasswordHash:          hash,
		FirstName:             firstName,
		LastName:              lastName,
		BusinessID:            &bizID,
		RoleID:                input.RoleID,
		PasswordResetRequired: true,
	})
	if err != nil {
		if db.IsUniqueViolation(err, uniqueEmailConstraint) {
			return nil, pkgerrors.New(pkgerrors.CodeConflict, "email already registered")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "create user")
	}

	dto := FromModel(user)
	s.audit.Record(ctx, audit.Entry{
		BusinessID: &bizID,
		ActorID:    &actorID,
		Action:     audit.ActionUserCreate,
		EntityType: "user",
		EntityID:   user.ID.String(),
		NewValues:  dto,
		Result:     enums.AuditResultSuccess,
	})
	return dto, nil
}

func (s *service) checkGrantable(ctx context.Context, businessID, actorID, roleID uuid.UUID) error {
	role, err := s.roles.FindVisible(ctx, businessID, roleID)
	if err != nil {
		if db.IsNotFound(err) {
			return pkgerrors.New(pkgerrors.CodeValidation, "invalid user").
				WithDetails(map[string]string{"role_id": "role not found"})
		}
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load role")
	}
	granted, invalid := enums.ParseScopes(role.Scopes)
	if len(invalid) > 0 {
		return pkgerrors.New(pkgerrors.CodeInternal, "role carries unknown scopes")
	}
	for _, scope := range granted {
		if scope == enums.ScopeSuperAdmin {
			return pkgerrors.New(pkgerrors.CodeForbidden, "role cannot be assigned by a business")
		}
	}
	held, err := s.resolver.EffectiveScopes(ctx, actorID)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "resolve scopes")
	}
	if len(granted) > 0 && !held.HasAll(granted...) {
		return pkgerrors.New(pkgerrors.CodeForbidden, "role grants scopes the caller does not hold")
	}
	return nil
}

// RevokeSessions revokes every refresh token of a user in the same business.
func (s *service) RevokeSessions(ctx context.Context, businessID, actorID, userID uuid.UUID) (int64, error) {
	if _, err := s.repo.FindInBusiness(ctx, businessID, userID); err != nil {
		if db.IsNotFound(err) {
			return 0, pkgerrors.New(pkgerrors.CodeNotFound, "user not found")
		}
		return 0, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load user")
	}
	count, err := s.sessions.RevokeAll(ctx, userID)
	if err != nil {
		return 0, err
	}

	bizID := businessID
	s.audit.Record(ctx, audit.Entry{
		BusinessID: &bizID,
		ActorID:    &actorID,
		Action:     audit.ActionRevokeSessions,
		EntityType: "user",
		EntityID:   userID.String(),
		NewValues:  map[string]int64{"revoked": count},
		Result:     enums.AuditResultSuccess,
	})
	return count, nil
}
