package auth

import (
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// TokenKind separates access from refresh tokens inside the claims so one
// can never be replayed as the other.
type TokenKind string

const (
	TokenKindAccess  TokenKind = "access"
	TokenKindRefresh TokenKind = "refresh"
)

// AccessTokenPayload captures the data available when minting an access token.
type AccessTokenPayload struct {
	UserID     uuid.UUID
	Role       string
	BusinessID *uuid.UUID
}

// AccessTokenClaims represents the short lived JWT sent on every request.
type AccessTokenClaims struct {
	UserID     uuid.UUID  `json:"user_id"`
	Role       string     `json:"role"`
	BusinessID *uuid.UUID `json:"business_id,omitempty"`
	Kind       TokenKind  `json:"kind"`
	jwt.RegisteredClaims
}

// RefreshTokenClaims represents the long lived JWT exchanged for a new pair.
// The registered ID claim carries the jti stored alongside the token hash.
type RefreshTokenClaims struct {
	UserID uuid.UUID `json:"user_id"`
	Kind   TokenKind `json:"kind"`
	jwt.RegisteredClaims
}
