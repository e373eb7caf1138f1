package auth

import (
	"fmt"
	"time"

	"github.com/angelmondragon/bizhub-backend/pkg/config"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

var jwtSigningMethod = jwt.SigningMethodHS256

// MintAccessToken issues a signed access JWT and returns it with its expiry.
func MintAccessToken(cfg config.JWTConfig, now time.Time, payload AccessTokenPayload) (string, time.Time, error) {
	if cfg.AccessSecret == "" {
		return "", time.Time{}, fmt.Errorf("jwt access secret is required")
	}
	if cfg.Issuer == "" {
		return "", time.Time{}, fmt.Errorf("jwt issuer is required")
	}
	ttl := cfg.AccessTokenTTL()
	if ttl <= 0 {
		return "", time.Time{}, fmt.Errorf("jwt expiration minutes must be positive")
	}
	if payload.UserID == uuid.Nil {
		return "", time.Time{}, fmt.Errorf("user id is required")
	}

	expiresAt := now.Add(ttl)
	claims := AccessTokenClaims{
		UserID:     payload.UserID,
		Role:       payload.Role,
		BusinessID: payload.BusinessID,
		Kind:       TokenKindAccess,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    cfg.Issuer,
			Subject:   payload.UserID.String(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
			ID:        uuid.NewString(),
		},
	}

	signed, err := jwt.NewWithClaims(jwtSigningMethod, claims).SignedString([]byte(cfg.AccessSecret))
	if err != nil {
		return "", time.Time{}, fmt.Errorf("signing access jwt: %w", err)
	}
	return signed, expiresAt, nil
}

// MintRefreshToken issues a signed refresh JWT carrying the supplied jti.
func MintRefreshToken(cfg config.JWTConfig, now time.Time, userID uuid.UUID, jti string) (string, time.Time, error) {
	if cfg.RefreshSecret == "" {
		return "", time.Time{}, fmt.Errorf("jwt refresh secret is required")
	}
	ttl := cfg.RefreshTokenTTL()
	if ttl <= 0 {
		return "", time.Time{}, fmt.Errorf("refresh token ttl must be positive")
	}
	if userID == uuid.Nil {
		return "", time.Time{}, fmt.Errorf("user id is required")
	}
	if jti == "" {
		return "", time.Time{}, fmt.Errorf("jti is required")
	}

	expiresAt := now.Add(ttl)
	claims := RefreshTokenClaims{
		UserID: userID,
		Kind:   TokenKindRefresh,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    cfg.Issuer,
			Subject:   userID.String(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
			ID:        jti,
		},
	}

	signed, err := jwt.NewWithClaims(jwtSigningMethod, claims).SignedString([]byte(cfg.RefreshSecret))
	if err != nil {
		return "", time.Time{}, fmt.Errorf("signing refresh jwt: %w", err)
	}
	return signed, expiresAt, nil
}

// ParseAccessToken validates signature, issuer and expiry and returns typed claims.
func ParseAccessToken(cfg config.JWTConfig, tokenString string) (*AccessTokenClaims, error) {
	if cfg.AccessSecret == "" {
		return nil, fmt.Errorf("jwt access secret is required")
	}

	claims := &AccessTokenClaims{}
	if err := parseSigned(tokenString, claims, cfg.AccessSecret, cfg.Issuer); err != nil {
		return nil, err
	}
	if claims.Kind != TokenKindAccess {
		return nil, fmt.Errorf("unexpected token kind %q", claims.Kind)
	}
	return claims, nil
}

// ParseRefreshToken validates a refresh JWT. A missing jti is rejected.
func ParseRefreshToken(cfg config.JWTConfig, tokenString string) (*RefreshTokenClaims, error) {
	if cfg.RefreshSecret == "" {
		return nil, fmt.Errorf("jwt refresh secret is required")
	}

	claims := &RefreshTokenClaims{}
	if err := parseSigned(tokenString, claims, cfg.RefreshSecret, cfg.Issuer); err != nil {
		return nil, err
	}
	if claims.Kind != TokenKindRefresh {
		return nil, fmt.Errorf("unexpected token kind %q", claims.Kind)
	}
	if claims.ID == "" {
		return nil, fmt.Errorf("refresh token missing jti")
	}
	return claims, nil
}

func parseSigned(tokenString string, claims jwt.Claims, secret, issuer string) error {
	_, err := jwt.ParseWithClaims(
		tokenString,
		claims,
		func(token *jwt.Token) (interface{}, error) {
			if token.Method != jwtSigningMethod {
				return nil, fmt.Errorf("unexpected signing method %s", token.Header["alg"])
			}
			return []byte(secret), nil
		},
		jwt.WithValidMethods([]string{jwtSigningMethod.Alg()}),
		jwt.WithIssuer(issuer),
		jwt.WithExpirationRequired(),
	)
	return err
}
