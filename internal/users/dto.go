package users

import (
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/angelmondragon/bizhub-backend/pkg/db/models"
)

// UserDTO is the transport shape that omits sensitive credentials.
type UserDTO struct {
	ID                    uuid.UUID  `json:"id"`
	Email                 string     `json:"email"`
	FirstName             string     `json:"first_name"`
	LastName              string     `json:"last_name"`
	BusinessID            *uuid.UUID `json:"business_id,omitempty"`
	RoleID                *uuid.UUID `json:"role_id,omitempty"`
	Role                  string     `json:"role,omitempty"`
	PasswordResetRequired bool       `json:"password_reset_required"`
	IsActive              bool       `json:"is_active"`
	LastLoginAt           *time.Time `json:"last_login_at,omitempty"`
	CreatedAt             time.Time  `json:"created_at"`
	UpdatedAt             time.Time  `json:"updated_at"`
}

// MeDTO is the current user plus their effective scopes.
type MeDTO struct {
	UserDTO
	Scopes         []string `json:"scopes"`
	ActiveSessions int64    `json:"active_sessions"`
}

// CreateUserInput is the body accepted when a business adds a staff member.
type CreateUserInput struct {
	Email     string     `json:"email" validate:"required,email,max=254"`
	FirstName string     `json:"first_name" validate:"required,max=100"`
	LastName  string     `json:"last_name" validate:"required,max=100"`
	Password  string     `json:"password" validate:"required,max=256"`
	RoleID    *uuid.UUID `json:"role_id"`
}

// CreateUserDTO holds the data required by the repo to persist a new user.
type CreateUserDTO struct {
	Email        string
	PasswordHash string
	FirstName    string
	LastName     string
	BusinessID   *uuid.UUID
	RoleID       *uuid.UUID
	IsActive     *bool
	// PasswordResetRequired forces a password change after first login.
	PasswordResetRequired bool
}

func FromModel(u *models.User) *UserDTO {
	if u == nil {
		return nil
	}

	return &UserDTO{
		ID:                    u.ID,
		Email:                 u.Email,
		FirstName:             u.FirstName,
		LastName:              u.LastName,
		BusinessID:            u.BusinessID,
		RoleID:                u.RoleID,
		Role:                  u.RoleName(),
		PasswordResetRequired: u.PasswordResetRequired,
		IsActive:              u.IsActive,
		LastLoginAt:           u.LastLoginAt,
		CreatedAt:             u.CreatedAt,
		UpdatedAt:             u.UpdatedAt,
	}
}

func (c CreateUserDTO) ToModel() *models.User {
	isActive := true
	if c.IsActive != nil {
		isActive = *c.IsActive
	}

	return &models.User{
		Email:                 strings.ToLower(strings.TrimSpace(c.Email)),
		PasswordHash:          c.PasswordHash,
		FirstName:             c.FirstName,
		LastName:              c.LastName,
		BusinessID:            c.BusinessID,
		RoleID:                c.RoleID,
		PasswordResetRequired: c.PasswordResetRequired,
		IsActive:              isActive,
	}
}
