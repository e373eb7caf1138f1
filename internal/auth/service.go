package auth

import (
	"context"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/bizhub-backend/internal/audit"
	"github.com/angelmondragon/bizhub-backend/internal/refreshtokens"
	"github.com/angelmondragon/bizhub-backend/internal/users"
	pkgAuth "github.com/angelmondragon/bizhub-backend/pkg/auth"
	"github.com/angelmondragon/bizhub-backend/pkg/config"
	"github.com/angelmondragon/bizhub-backend/pkg/db"
	"github.com/angelmondragon/bizhub-backend/pkg/db/models"
	"github.com/angelmondragon/bizhub-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/bizhub-backend/pkg/errors"
	"github.com/angelmondragon/bizhub-backend/pkg/logger"
	"github.com/angelmondragon/bizhub-backend/pkg/metrics"
	"github.com/angelmondragon/bizhub-backend/pkg/security"
)

const (
	invalidCredentialsMessage = "invalid credentials"
	invalidRefreshMessage     = "invalid refresh token"
)

// Service defines the behavior needed by the auth controller.
type Service interface {
	Login(ctx context.Context, req LoginRequest, meta ClientMeta) (*Session, error)
	Refresh(ctx context.Context, rawToken string, meta ClientMeta) (*Session, error)
	Logout(ctx context.Context, rawToken string) error
	LogoutAll(ctx context.Context, userID uuid.UUID) (int64, error)
	RevokeAll(ctx context.Context, userID uuid.UUID) (int64, error)
	ChangePassword(ctx context.Context, userID uuid.UUID, req ChangePasswordRequest) error
}

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// ServiceParams bundles the dependencies required to build an auth service.
type ServiceParams struct {
	DB             txRunner
	Users          *users.Repository
	Tokens         *refreshtokens.Repository
	JWTConfig      config.JWTConfig
	PasswordConfig config.PasswordConfig
	Metrics        *metrics.AuthMetrics
	Audit          audit.Sink
	Logger         *logger.Logger
	Now            func() time.Time
}

type service struct {
	db      txRunner
	users   *users.Repository
	tokens  *refreshtokens.Repository
	hasher  *security.TokenHasher
	jwtCfg  config.JWTConfig
	pwCfg   config.PasswordConfig
	metrics *metrics.AuthMetrics
	audit   audit.Sink
	logg    *logger.Logger
	now     func() time.Time
}

// NewService constructs the auth service with the provided dependencies.
func NewService(params ServiceParams) (Service, error) {
	if params.DB == nil {
		return nil, fmt.Errorf("transaction runner is required")
	}
	if params.Users == nil {
		return nil, fmt.Errorf("user repository is required")
	}
	if params.Tokens == nil {
		return nil, fmt.Errorf("refresh token repository is required")
	}
	hasher, err := security.NewTokenHasher(params.JWTConfig.HashKey())
	if err != nil {
		return nil, err
	}
	sink := params.Audit
	if sink == nil {
		sink = audit.Nop{}
	}
	logg := params.Logger
	if logg == nil {
		logg = logger.Nop()
	}
	now := params.Now
	if now == nil {
		now = func() time.Time { return time.Now().UTC() }
	}
	return &service{
		db:      params.DB,
		users:   params.Users,
		tokens:  params.Tokens,
		hasher:  hasher,
		jwtCfg:  params.JWTConfig,
		pwCfg:   params.PasswordConfig,
		metrics: params.Metrics,
		audit:   sink,
		logg:    logg,
		now:     now,
	}, nil
}

func (s *service) Login(ctx context.Context, req LoginRequest, meta ClientMeta) (*Session, error) {
	user, err := s.authenticate(ctx, req.Email, req.Password)
	if err != nil {
		s.metrics.Record(metrics.AuthEventLogin, false)
		if pkgerrors.HasCode(err, pkgerrors.CodeUnauthorized) {
			s.logg.Warn(s.logg.WithField(ctx, "email", strings.ToLower(strings.TrimSpace(req.Email))), "auth.login.failed")
			var actor *uuid.UUID
			var business *uuid.UUID
			if user != nil {
				actor, business = &user.ID, user.BusinessID
			}
			s.record(ctx, audit.ActionLogin, business, actor, enums.AuditResultFailure)
		}
		return nil, err
	}

	now := s.now()
	var session *Session
	err = s.db.WithTx(ctx, func(tx *gorm.DB) error {
		usersTx := s.users.WithTx(tx)
		if err := usersTx.UpdateLastLogin(ctx, user.ID, now); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "update last login")
		}
		if security.NeedsRehash(user.PasswordHash, s.pwCfg) {
			if hash, err := security.HashPassword(req.Password, s.pwCfg); err == nil {
				if err := usersTx.UpdatePassword(ctx, user.ID, hash); err != nil {
					return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "rehash password")
				}
			}
		}
		user.LastLoginAt = &now
		issued, err := s.issue(ctx, s.tokens.WithTx(tx), user, now, meta)
		if err != nil {
			return err
		}
		session = issued
		return nil
	})
	if err != nil {
		s.metrics.Record(metrics.AuthEventLogin, false)
		return nil, err
	}

	s.metrics.Record(metrics.AuthEventLogin, true)
	s.logg.Info(s.logg.WithUserID(ctx, user.ID.String()), "auth.login.success")
	s.record(ctx, audit.ActionLogin, user.BusinessID, &user.ID, enums.AuditResultSuccess)
	return session, nil
}

// Refresh validates a presented refresh token and rotates it. Every failure
// is reported as the same Unauthorized error.
func (s *service) Refresh(ctx context.Context, rawToken string, meta ClientMeta) (*Session, error) {
	session, user, err := s.rotate(ctx, strings.TrimSpace(rawToken), meta)
	if err != nil {
		s.metrics.Record(metrics.AuthEventRefresh, false)
		if pkgerrors.HasCode(err, pkgerrors.CodeUnauthorized) {
			s.logg.Warn(ctx, "auth.refresh.rejected")
		}
		return nil, err
	}
	s.metrics.Record(metrics.AuthEventRefresh, true)
	s.logg.Info(s.logg.WithUserID(ctx, user.ID.String()), "auth.refresh.success")
	s.record(ctx, audit.ActionRefresh, user.BusinessID, &user.ID, enums.AuditResultSuccess)
	return session, nil
}

func (s *service) rotate(ctx context.Context, rawToken string, meta ClientMeta) (*Session, *models.User, error) {
	if rawToken == "" {
		return nil, nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "refresh token required")
	}
	claims, err := pkgAuth.ParseRefreshToken(s.jwtCfg, rawToken)
	if err != nil {
		return nil, nil, pkgerrors.New(pkgerrors.CodeUnauthorized, invalidRefreshMessage)
	}

	now := s.now()
	var (
		session *Session
		user    *models.User
	)
	err = s.db.WithTx(ctx, func(tx *gorm.DB) error {
		tokensTx := s.tokens.WithTx(tx)
		record, err := tokensTx.FindByHash(ctx, s.hasher.Hash(rawToken))
		if err != nil {
			if db.IsNotFound(err) {
				return pkgerrors.New(pkgerrors.CodeUnauthorized, invalidRefreshMessage)
			}
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "lookup refresh token")
		}
		if record.JTI != claims.ID || record.UserID != claims.UserID {
			return pkgerrors.New(pkgerrors.CodeUnauthorized, invalidRefreshMessage)
		}
		if record.RevokedAt != nil {
			s.logg.Warn(s.logg.WithUserID(ctx, record.UserID.String()), "auth.refresh.reuse_detected")
			return pkgerrors.New(pkgerrors.CodeUnauthorized, invalidRefreshMessage)
		}
		if !record.Usable(now) {
			return pkgerrors.New(pkgerrors.CodeUnauthorized, invalidRefreshMessage)
		}

		loaded, err := s.users.WithTx(tx).FindByID(ctx, record.UserID)
		if err != nil {
			if db.IsNotFound(err) {
				return pkgerrors.New(pkgerrors.CodeUnauthorized, invalidRefreshMessage)
			}
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load user")
		}
		if !loaded.IsActive {
			return pkgerrors.New(pkgerrors.CodeUnauthorized, invalidRefreshMessage)
		}

		revoked, err := tokensTx.Revoke(ctx, record.ID, now)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "revoke refresh token")
		}
		if !revoked {
			// Lost a race with a concurrent rotation of the same token.
			return pkgerrors.New(pkgerrors.CodeUnauthorized, invalidRefreshMessage)
		}

		issued, err := s.issue(ctx, tokensTx, loaded, now, meta)
		if err != nil {
			return err
		}
		session, user = issued, loaded
		return nil
	})
	if err != nil {
		return nil, nil, err
	}
	return session, user, nil
}

// Logout revokes the presented refresh token. Missing and unknown tokens are
// not errors.
func (s *service) Logout(ctx context.Context, rawToken string) error {
	rawToken = strings.TrimSpace(rawToken)
	if rawToken == "" {
		return nil
	}
	record, err := s.tokens.FindByHash(ctx, s.hasher.Hash(rawToken))
	if err != nil {
		if db.IsNotFound(err) {
			return nil
		}
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "lookup refresh token")
	}
	if record.RevokedAt != nil {
		return nil
	}
	if _, err := s.tokens.Revoke(ctx, record.ID, s.now()); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "revoke refresh token")
	}
	s.metrics.Record(metrics.AuthEventLogout, true)
	s.record(ctx, audit.ActionLogout, nil, &record.UserID, enums.AuditResultSuccess)
	return nil
}

// LogoutAll is RevokeAll initiated by the user themselves.
func (s *service) LogoutAll(ctx context.Context, userID uuid.UUID) (int64, error) {
	count, err := s.RevokeAll(ctx, userID)
	if err != nil {
		return 0, err
	}
	s.record(ctx, audit.ActionLogoutAll, nil, &userID, enums.AuditResultSuccess)
	return count, nil
}

// RevokeAll marks every unrevoked refresh token of the user revoked.
func (s *service) RevokeAll(ctx context.Context, userID uuid.UUID) (int64, error) {
	count, err := s.tokens.RevokeAllByUserID(ctx, userID, s.now())
	if err != nil {
		s.metrics.Record(metrics.AuthEventRevokeAll, false)
		return 0, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "revoke refresh tokens")
	}
	s.metrics.Record(metrics.AuthEventRevokeAll, true)
	s.logg.Info(s.logg.WithFields(ctx, map[string]any{"user_id": userID.String(), "revoked": count}), "auth.sessions.revoked")
	return count, nil
}

// ChangePassword replaces the password after checking the current one and
// revokes every refresh token of the user in the same transaction.
func (s *service) ChangePassword(ctx context.Context, userID uuid.UUID, req ChangePasswordRequest) error {
	user, err := s.users.FindByID(ctx, userID)
	if err != nil {
		if db.IsNotFound(err) {
			return pkgerrors.New(pkgerrors.CodeUnauthorized, invalidCredentialsMessage)
		}
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load user")
	}

	valid, err := security.VerifyPassword(req.CurrentPassword, user.PasswordHash)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "verify password")
	}
	if !valid || !user.IsActive {
		s.metrics.Record(metrics.AuthEventChangePassword, false)
		s.record(ctx, audit.ActionChangePassword, user.BusinessID, &user.ID, enums.AuditResultFailure)
		return pkgerrors.New(pkgerrors.CodeUnauthorized, invalidCredentialsMessage)
	}

	if req.NewPassword == req.CurrentPassword {
		return pkgerrors.New(pkgerrors.CodeValidation, "invalid password").
			WithDetails(map[string]string{"new_password": "must differ from the current password"})
	}
	if err := security.ValidatePasswordStrength(req.NewPassword, s.pwCfg); err != nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "invalid password").
			WithDetails(map[string]string{"new_password": err.Error()})
	}

	hash, err := security.HashPassword(req.NewPassword, s.pwCfg)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "hash password")
	}

	now := s.now()
	err = s.db.WithTx(ctx, func(tx *gorm.DB) error {
		if err := s.users.WithTx(tx).UpdatePassword(ctx, user.ID, hash); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "update password")
		}
		if _, err := s.tokens.WithTx(tx).RevokeAllByUserID(ctx, user.ID, now); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "revoke refresh tokens")
		}
		return nil
	})
	if err != nil {
		s.metrics.Record(metrics.AuthEventChangePassword, false)
		return err
	}

	s.metrics.Record(metrics.AuthEventChangePassword, true)
	s.logg.Info(s.logg.WithUserID(ctx, user.ID.String()), "auth.password.changed")
	s.record(ctx, audit.ActionChangePassword, user.BusinessID, &user.ID, enums.AuditResultSuccess)
	return nil
}

// authenticate returns the user alongside an Unauthorized error when the user
// exists but the credentials are rejected, so the failure can be attributed.
func (s *service) authenticate(ctx context.Context, email, password string) (*models.User, error) {
	input := strings.ToLower(strings.TrimSpace(email))
	if input == "" || password == "" {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, invalidCredentialsMessage)
	}
	user, err := s.users.FindByEmail(ctx, input)
	if err != nil {
		if db.IsNotFound(err) {
			security.EqualizeTiming(password)
			return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, invalidCredentialsMessage)
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "lookup user")
	}

	valid, err := security.VerifyPassword(password, user.PasswordHash)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "verify password")
	}
	if !valid || !user.IsActive {
		return user, pkgerrors.New(pkgerrors.CodeUnauthorized, invalidCredentialsMessage)
	}
	return user, nil
}

// issue mints an access and refresh pair and persists the refresh record.
func (s *service) issue(ctx context.Context, tokens *refreshtokens.Repository, user *models.User, now time.Time, meta ClientMeta) (*Session, error) {
	accessToken, accessExp, err := pkgAuth.MintAccessToken(s.jwtCfg, now, pkgAuth.AccessTokenPayload{
		UserID:     user.ID,
		Role:       user.RoleName(),
		BusinessID: user.BusinessID,
	})
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "mint access token")
	}

	jti := uuid.NewString()
	refreshToken, refreshExp, err := pkgAuth.MintRefreshToken(s.jwtCfg, now, user.ID, jti)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "mint refresh token")
	}

	record := &models.RefreshToken{
		UserID:    user.ID,
		TokenHash: s.hasher.Hash(refreshToken),
		JTI:       jti,
		ExpiresAt: refreshExp,
		IPAddress: optional(meta.IP),
		UserAgent: optional(meta.UserAgent),
		CreatedAt: now,
	}
	if err := tokens.Create(ctx, record); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "store refresh token")
	}

	return &Session{
		AccessToken:      accessToken,
		AccessExpiresAt:  accessExp,
		RefreshToken:     refreshToken,
		RefreshExpiresAt: refreshExp,
		BusinessID:       user.BusinessID,
		User:             users.FromModel(user),
	}, nil
}

func (s *service) record(ctx context.Context, action string, businessID, actorID *uuid.UUID, result enums.AuditResult) {
	entry := audit.Entry{
		BusinessID: businessID,
		ActorID:    actorID,
		Action:     action,
		EntityType: "user",
		Result:     result,
	}
	if actorID != nil {
		entry.EntityID = actorID.String()
	}
	s.audit.Record(ctx, entry)
}

const maxClientMetaLen = 512

// optional trims v to at most maxClientMetaLen bytes without splitting a
// UTF-8 sequence.
func optional(v string) *string {
	v = strings.TrimSpace(v)
	if v == "" {
		return nil
	}
	if len(v) > maxClientMetaLen {
		cut := maxClientMetaLen
		for cut > 0 && !utf8.RuneStart(v[cut]) {
			cut--
		}
		v = v[:cut]
	}
	return &v
}
