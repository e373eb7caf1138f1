package auth

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/bizhub-backend/internal/businesses"
	"github.com/angelmondragon/bizhub-backend/internal/roles"
	"github.com/angelmondragon/bizhub-backend/internal/users"
	"github.com/angelmondragon/bizhub-backend/pkg/config"
	"github.com/angelmondragon/bizhub-backend/pkg/db"
	"github.com/angelmondragon/bizhub-backend/pkg/db/models"
	pkgerrors "github.com/angelmondragon/bizhub-backend/pkg/errors"
	"github.com/angelmondragon/bizhub-backend/pkg/security"
)

// OwnerRoleName is the system role granted to the first user of a business.
const OwnerRoleName = "Owner"

// BootstrapOwnerRequest describes a new tenant and its first user.
type BootstrapOwnerRequest struct {
	BusinessName string
	Slug         string
	Email        string
	FirstName    string
	LastName     string
	Password     string
}

// BootstrapOwnerResult is what the operator needs to hand over the account.
type BootstrapOwnerResult struct {
	BusinessID uuid.UUID
	Slug       string
	Owner      *users.UserDTO
}

// OwnerBootstrapService creates a business together with its owner account.
// It is the operator path for onboarding a tenant; staff are added later
// through the users API.
type OwnerBootstrapService interface {
	Bootstrap(ctx context.Context, req BootstrapOwnerRequest) (*BootstrapOwnerResult, error)
}

// OwnerBootstrapServiceParams names the dependencies for the bootstrap flow.
type OwnerBootstrapServiceParams struct {
	DB             *db.Client
	PasswordConfig config.PasswordConfig
}

type ownerBootstrapService struct {
	db          *db.Client
	passwordCfg config.PasswordConfig
}

func NewOwnerBootstrapService(params OwnerBootstrapServiceParams) (OwnerBootstrapService, error) {
	if params.DB == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "database client required")
	}
	return &ownerBootstrapService{
		db:          params.DB,
		passwordCfg: params.PasswordConfig,
	}, nil
}

func (s *ownerBootstrapService) Bootstrap(ctx context.Context, req BootstrapOwnerRequest) (*BootstrapOwnerResult, error) {
	name := strings.TrimSpace(req.BusinessName)
	slug := strings.TrimSpace(req.Slug)
	if slug == "" {
		slug = businesses.Slugify(name)
	}
	email := strings.ToLower(strings.TrimSpace(req.Email))
	firstName := strings.TrimSpace(req.FirstName)
	lastName := strings.TrimSpace(req.LastName)

	details := map[string]string{}
	if name == "" {
		details["business_name"] = "is required"
	}
	if !businesses.ValidSlug(slug) {
		details["slug"] = "must be lowercase letters, digits and hyphens"
	}
	if email == "" || !strings.Contains(email, "@") {
		details["email"] = "must be a valid email"
	}
	if firstName == "" {
		details["first_name"] = "is required"
	}
	if lastName == "" {
		details["last_name"] = "is required"
	}
	if err := security.ValidatePasswordStrength(req.Password, s.passwordCfg); err != nil {
		details["password"] = err.Error()
	}
	if len(details) > 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid bootstrap request").WithDetails(details)
	}

	passwordHash, err := security.HashPassword(req.Password, s.passwordCfg)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "hash password")
	}

	var result *BootstrapOwnerResult
	err = s.db.WithTx(ctx, func(tx *gorm.DB) error {
		userRepo := users.NewRepository(tx)

		if _, err := userRepo.FindByEmail(ctx, email); err == nil {
			return pkgerrors.New(pkgerrors.CodeConflict, "email already registered")
		} else if !db.IsNotFound(err) {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "check user email")
		}

		owner, err := roles.NewRepository(tx).FindSystemByName(ctx, OwnerRoleName)
		if err != nil {
			if db.IsNotFound(err) {
				return pkgerrors.New(pkgerrors.CodeInternal, "owner role missing; run migrations first")
			}
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load owner role")
		}

		business := &models.Business{Name: name, Slug: slug, IsActive: true}
		if err := businesses.NewRepository(tx).Create(ctx, business); err != nil {
			if db.IsUniqueViolation(err, "uq_businesses_slug") {
				return pkgerrors.New(pkgerrors.CodeConflict, "business slug already taken")
			}
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "create business")
		}

		user, err := userRepo.Create(ctx, users.CreateUserDTO{
			Email:                 email,
			PasswordHash:          passwordHash,
			FirstName:             firstName,
			LastName:              lastName,
			BusinessID:            &business.ID,
			RoleID:                &owner.ID,
			PasswordResetRequired: true,
		})
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "create user")
		}
		user.Role = owner

		result = &BootstrapOwnerResult{
			BusinessID: business.ID,
			Slug:       business.Slug,
			Owner:      users.FromModel(user),
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}
