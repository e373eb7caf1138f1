package auth

import (
	"time"

	"github.com/google/uuid"

	"github.com/angelmondragon/bizhub-backend/internal/users"
)

// LoginRequest captures the user credentials sent to the login endpoint.
type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// ChangePasswordRequest is the body of the change-password endpoint.
type ChangePasswordRequest struct {
	CurrentPassword string `json:"current_password" validate:"required"`
	NewPassword     string `json:"new_password" validate:"required"`
}

// ClientMeta describes the caller a refresh token is issued to.
type ClientMeta struct {
	IP        string
	UserAgent string
}

// Session is a freshly issued token pair. The refresh token is delivered by
// cookie and never serialized.
type Session struct {
	AccessToken      string         `json:"access_token"`
	AccessExpiresAt  time.Time      `json:"access_expires_at"`
	RefreshToken     string         `json:"-"`
	RefreshExpiresAt time.Time      `json:"-"`
	BusinessID       *uuid.UUID     `json:"business_id,omitempty"`
	User             *users.UserDTO `json:"user"`
}
