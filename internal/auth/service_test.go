package auth

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/angelmondragon/bizhub-backend/internal/audit"
	"github.com/angelmondragon/bizhub-backend/internal/refreshtokens"
	"github.com/angelmondragon/bizhub-backend/internal/users"
	pkgAuth "github.com/angelmondragon/bizhub-backend/pkg/auth"
	"github.com/angelmondragon/bizhub-backend/pkg/config"
	"github.com/angelmondragon/bizhub-backend/pkg/db"
	"github.com/angelmondragon/bizhub-backend/pkg/db/dbtest"
	"github.com/angelmondragon/bizhub-backend/pkg/db/models"
	"github.com/angelmondragon/bizhub-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/bizhub-backend/pkg/errors"
	"github.com/angelmondragon/bizhub-backend/pkg/security"
)

var (
	testJWT = config.JWTConfig{
		AccessSecret:           "access-secret",
		RefreshSecret:          "refresh-secret",
		Issuer:                 "bizhub",
		ExpirationMinutes:      15,
		RefreshTokenTTLMinutes: 60,
		RefreshTokenPepper:     "pepper",
	}
	testPassword = config.PasswordConfig{
		ArgonMemoryKB:    8,
		ArgonTime:        1,
		ArgonParallelism: 1,
		ArgonSaltLen:     16,
		ArgonKeyLen:      32,
		MinLength:        8,
	}
	testMeta = ClientMeta{IP: "10.0.0.1", UserAgent: "go-test"}
)

type memorySink struct {
	mu      sync.Mutex
	entries []audit.Entry
}

func (m *memorySink) Record(_ context.Context, e audit.Entry) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries = append(m.entries, e)
}

func (m *memorySink) actions(result enums.AuditResult) []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []string
	for _, e := range m.entries {
		if e.Result == result {
			out = append(out, e.Action)
		}
	}
	return out
}

type harness struct {
	db     *gorm.DB
	svc    Service
	tokens *refreshtokens.Repository
	sink   *memorySink
	hasher *security.TokenHasher
}

func newHarness(t *testing.T) harness {
	t.Helper()
	conn := dbtest.Open(t)
	tokens := refreshtokens.NewRepository(conn)
	sink := &memorySink{}
	svc, err := NewService(ServiceParams{
		DB:             db.FromGorm(conn),
		Users:          users.NewRepository(conn),
		Tokens:         tokens,
		JWTConfig:      testJWT,
		PasswordConfig: testPassword,
		Audit:          sink,
	})
	require.NoError(t, err)
	hasher, err := security.NewTokenHasher(testJWT.HashKey())
	require.NoError(t, err)
	return harness{db: conn, svc: svc, tokens: tokens, sink: sink, hasher: hasher}
}

func (h harness) seedUser(t *testing.T, email, password string, businessID *uuid.UUID) *models.User {
	t.Helper()
	hash, err := security.HashPassword(password, testPassword)
	require.NoError(t, err)
	user := &models.User{
		Email:        email,
		PasswordHash: hash,
		FirstName:    "Grace",
		LastName:     "Hopper",
		BusinessID:   businessID,
		IsActive:     true,
	}
	require.NoError(t, h.db.Create(user).Error)
	return user
}

func (h harness) countTokens(t *testing.T, userID uuid.UUID) int64 {
	t.Helper()
	var n int64
	require.NoError(t, h.db.Model(&models.RefreshToken{}).Where("user_id = ?", userID).Count(&n).Error)
	return n
}

func (h harness) recordFor(t *testing.T, raw string) *models.RefreshToken {
	t.Helper()
	record, err := h.tokens.FindByHash(context.Background(), h.hasher.Hash(raw))
	require.NoError(t, err)
	return record
}

func requireUnauthorized(t *testing.T, err error) {
	t.Helper()
	require.Error(t, err)
	assert.True(t, pkgerrors.HasCode(err, pkgerrors.CodeUnauthorized), "expected unauthorized, got %v", err)
}

func TestLoginPersistsExactlyOneHashedRecord(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	biz := uuid.New()
	user := h.seedUser(t, "owner@b1.com", "s3cretpass", &biz)

	session, err := h.svc.Login(ctx, LoginRequest{Email: " Owner@B1.com ", Password: "s3cretpass"}, testMeta)
	require.NoError(t, err)
	require.NotEmpty(t, session.AccessToken)
	require.NotEmpty(t, session.RefreshToken)
	require.NotNil(t, session.BusinessID)
	assert.Equal(t, biz, *session.BusinessID)
	assert.Equal(t, user.ID, session.User.ID)
	require.NotNil(t, session.User.LastLoginAt)

	assert.EqualValues(t, 1, h.countTokens(t, user.ID))

	var stored models.RefreshToken
	require.NoError(t, h.db.Where("user_id = ?", user.ID).First(&stored).Error)
	assert.NotEqual(t, session.RefreshToken, stored.TokenHash)
	assert.Equal(t, h.hasher.Hash(session.RefreshToken), stored.TokenHash)
	require.NotNil(t, stored.IPAddress)
	assert.Equal(t, "10.0.0.1", *stored.IPAddress)
	assert.Nil(t, stored.RevokedAt)

	claims, err := pkgAuth.ParseAccessToken(testJWT, session.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, user.ID, claims.UserID)
	require.NotNil(t, claims.BusinessID)
	assert.Equal(t, biz, *claims.BusinessID)

	refreshClaims, err := pkgAuth.ParseRefreshToken(testJWT, session.RefreshToken)
	require.NoError(t, err)
	assert.Equal(t, stored.JTI, refreshClaims.ID)

	assert.Equal(t, []string{audit.ActionLogin}, h.sink.actions(enums.AuditResultSuccess))
}

func TestLoginFailuresAreIndistinguishable(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	h.seedUser(t, "staff@b1.com", "rightpass1", nil)
	inactive := h.seedUser(t, "gone@b1.com", "rightpass1", nil)
	require.NoError(t, h.db.Model(&models.User{}).Where("id = ?", inactive.ID).Update("is_active", false).Error)

	cases := []LoginRequest{
		{Email: "nobody@b1.com", Password: "rightpass1"},
		{Email: "staff@b1.com", Password: "wrongpass1"},
		{Email: "gone@b1.com", Password: "rightpass1"},
		{Email: "", Password: "rightpass1"},
	}
	for _, req := range cases {
		_, err := h.svc.Login(ctx, req, testMeta)
		requireUnauthorized(t, err)
		assert.Equal(t, invalidCredentialsMessage, pkgerrors.As(err).Message())
	}

	var n int64
	require.NoError(t, h.db.Model(&models.RefreshToken{}).Count(&n).Error)
	assert.Zero(t, n)
	assert.Len(t, h.sink.actions(enums.AuditResultFailure), len(cases))
}

func TestRefreshRotatesAndRejectsReuse(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	user := h.seedUser(t, "rotate@b1.com", "rotatepass1", nil)

	first, err := h.svc.Login(ctx, LoginRequest{Email: "rotate@b1.com", Password: "rotatepass1"}, testMeta)
	require.NoError(t, err)
	oldRecord := h.recordFor(t, first.RefreshToken)

	second, err := h.svc.Refresh(ctx, first.RefreshToken, testMeta)
	require.NoError(t, err)
	assert.NotEqual(t, first.RefreshToken, second.RefreshToken)
	assert.NotEmpty(t, second.AccessToken)

	revoked := h.recordFor(t, first.RefreshToken)
	assert.NotNil(t, revoked.RevokedAt)

	fresh := h.recordFor(t, second.RefreshToken)
	assert.NotEqual(t, oldRecord.JTI, fresh.JTI)
	assert.Nil(t, fresh.RevokedAt)
	assert.EqualValues(t, 2, h.countTokens(t, user.ID))

	_, err = h.svc.Refresh(ctx, first.RefreshToken, testMeta)
	requireUnauthorized(t, err)

	third, err := h.svc.Refresh(ctx, second.RefreshToken, testMeta)
	require.NoError(t, err)
	assert.NotEmpty(t, third.RefreshToken)
}

func TestRefreshRejectsMalformedTokens(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	h.seedUser(t, "bad@b1.com", "badtokens1", nil)
	session, err := h.svc.Login(ctx, LoginRequest{Email: "bad@b1.com", Password: "badtokens1"}, testMeta)
	require.NoError(t, err)

	for _, raw := range []string{"", "   ", "not-a-jwt", session.AccessToken, session.RefreshToken + "x"} {
		_, err := h.svc.Refresh(ctx, raw, testMeta)
		requireUnauthorized(t, err)
	}

	// the valid token still works after the rejected attempts
	_, err = h.svc.Refresh(ctx, session.RefreshToken, testMeta)
	require.NoError(t, err)
}

func TestRefreshRejectsUnknownRecord(t *testing.T) {
	h := newHarness(t)
	user := h.seedUser(t, "ghost@b1.com", "ghostpass1", nil)

	raw, _, err := pkgAuth.MintRefreshToken(testJWT, time.Now(), user.ID, uuid.NewString())
	require.NoError(t, err)

	_, err = h.svc.Refresh(context.Background(), raw, testMeta)
	requireUnauthorized(t, err)
}

func TestRefreshRejectsJTIMismatch(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	user := h.seedUser(t, "jti@b1.com", "jtimatch1", nil)

	raw, exp, err := pkgAuth.MintRefreshToken(testJWT, time.Now(), user.ID, "jti-in-token")
	require.NoError(t, err)
	require.NoError(t, h.tokens.Create(ctx, &models.RefreshToken{
		UserID:    user.ID,
		TokenHash: h.hasher.Hash(raw),
		JTI:       "jti-in-record",
		ExpiresAt: exp,
	}))

	_, err = h.svc.Refresh(ctx, raw, testMeta)
	requireUnauthorized(t, err)
}

func TestRefreshRejectsExpiredRecord(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	user := h.seedUser(t, "expired@b1.com", "expiredpw1", nil)
	session, err := h.svc.Login(ctx, LoginRequest{Email: "expired@b1.com", Password: "expiredpw1"}, testMeta)
	require.NoError(t, err)

	require.NoError(t, h.db.Model(&models.RefreshToken{}).
		Where("user_id = ?", user.ID).
		Update("expires_at", time.Now().UTC().Add(-time.Minute)).Error)

	_, err = h.svc.Refresh(ctx, session.RefreshToken, testMeta)
	requireUnauthorized(t, err)
}

func TestRefreshRejectsDeactivatedUser(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	user := h.seedUser(t, "leaver@b1.com", "leaverpw1", nil)
	session, err := h.svc.Login(ctx, LoginRequest{Email: "leaver@b1.com", Password: "leaverpw1"}, testMeta)
	require.NoError(t, err)

	require.NoError(t, h.db.Model(&models.User{}).Where("id = ?", user.ID).Update("is_active", false).Error)

	_, err = h.svc.Refresh(ctx, session.RefreshToken, testMeta)
	requireUnauthorized(t, err)
	assert.Nil(t, h.recordFor(t, session.RefreshToken).RevokedAt, "rejected refresh must not revoke")
}

func TestConcurrentRefreshOnlyOneSucceeds(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	sqlDB, err := h.db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)

	h.seedUser(t, "race@b1.com", "racepass1", nil)
	session, err := h.svc.Login(ctx, LoginRequest{Email: "race@b1.com", Password: "racepass1"}, testMeta)
	require.NoError(t, err)

	const attempts = 4
	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		successes int
		failures  int
	)
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := h.svc.Refresh(ctx, session.RefreshToken, testMeta)
			mu.Lock()
			defer mu.Unlock()
			if err == nil {
				successes++
				return
			}
			if pkgerrors.HasCode(err, pkgerrors.CodeUnauthorized) {
				failures++
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, successes)
	assert.Equal(t, attempts-1, failures)
}

func TestLogoutIsIdempotent(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	h.seedUser(t, "bye@b1.com", "byebyepw1", nil)
	session, err := h.svc.Login(ctx, LoginRequest{Email: "bye@b1.com", Password: "byebyepw1"}, testMeta)
	require.NoError(t, err)

	require.NoError(t, h.svc.Logout(ctx, ""))
	require.NoError(t, h.svc.Logout(ctx, "unknown-token"))
	require.NoError(t, h.svc.Logout(ctx, session.RefreshToken))
	require.NoError(t, h.svc.Logout(ctx, session.RefreshToken))

	assert.NotNil(t, h.recordFor(t, session.RefreshToken).RevokedAt)

	_, err = h.svc.Refresh(ctx, session.RefreshToken, testMeta)
	requireUnauthorized(t, err)
}

func TestRevokeAllRevokesEverySession(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	user := h.seedUser(t, "multi@b1.com", "multipass1", nil)
	h.seedUser(t, "other@b1.com", "otherpass1", nil)

	var raws []string
	for i := 0; i < 3; i++ {
		session, err := h.svc.Login(ctx, LoginRequest{Email: "multi@b1.com", Password: "multipass1"}, testMeta)
		require.NoError(t, err)
		raws = append(raws, session.RefreshToken)
	}
	otherSession, err := h.svc.Login(ctx, LoginRequest{Email: "other@b1.com", Password: "otherpass1"}, testMeta)
	require.NoError(t, err)
	require.NoError(t, h.svc.Logout(ctx, raws[0]))

	count, err := h.svc.RevokeAll(ctx, user.ID)
	require.NoError(t, err)
	assert.EqualValues(t, 2, count)

	var unrevoked int64
	require.NoError(t, h.db.Model(&models.RefreshToken{}).
		Where("user_id = ? AND revoked_at IS NULL", user.ID).
		Count(&unrevoked).Error)
	assert.Zero(t, unrevoked)

	for _, raw := range raws {
		_, err := h.svc.Refresh(ctx, raw, testMeta)
		requireUnauthorized(t, err)
	}

	assert.Nil(t, h.recordFor(t, otherSession.RefreshToken).RevokedAt, "other users keep their sessions")
	_, err = h.svc.Refresh(ctx, otherSession.RefreshToken, testMeta)
	require.NoError(t, err)
}

func TestLogoutAllRecordsAudit(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	user := h.seedUser(t, "self@b1.com", "selfpass12", nil)
	_, err := h.svc.Login(ctx, LoginRequest{Email: "self@b1.com", Password: "selfpass12"}, testMeta)
	require.NoError(t, err)

	count, err := h.svc.LogoutAll(ctx, user.ID)
	require.NoError(t, err)
	assert.EqualValues(t, 1, count)
	assert.Contains(t, h.sink.actions(enums.AuditResultSuccess), audit.ActionLogoutAll)
}

func TestChangePasswordWrongCurrentLeavesHashUnchanged(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	user := h.seedUser(t, "pw@b1.com", "original1", nil)

	err := h.svc.ChangePassword(ctx, user.ID, ChangePasswordRequest{CurrentPassword: "wrongpass1", NewPassword: "brandnew22"})
	requireUnauthorized(t, err)

	var reloaded models.User
	require.NoError(t, h.db.First(&reloaded, "id = ?", user.ID).Error)
	assert.Equal(t, user.PasswordHash, reloaded.PasswordHash)
	assert.Contains(t, h.sink.actions(enums.AuditResultFailure), audit.ActionChangePassword)
}

func TestChangePasswordValidatesNewPassword(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	user := h.seedUser(t, "weak@b1.com", "original1", nil)

	for _, next := range []string{"short1", "onlyletters", "original1"} {
		err := h.svc.ChangePassword(ctx, user.ID, ChangePasswordRequest{CurrentPassword: "original1", NewPassword: next})
		require.Error(t, err)
		assert.True(t, pkgerrors.HasCode(err, pkgerrors.CodeValidation), next)
	}
}

func TestChangePasswordRevokesSessions(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	user := h.seedUser(t, "change@b1.com", "original1", nil)
	require.NoError(t, h.db.Model(&models.User{}).Where("id = ?", user.ID).Update("password_reset_required", true).Error)

	session, err := h.svc.Login(ctx, LoginRequest{Email: "change@b1.com", Password: "original1"}, testMeta)
	require.NoError(t, err)

	require.NoError(t, h.svc.ChangePassword(ctx, user.ID, ChangePasswordRequest{CurrentPassword: "original1", NewPassword: "replaced22"}))

	var reloaded models.User
	require.NoError(t, h.db.First(&reloaded, "id = ?", user.ID).Error)
	assert.NotEqual(t, user.PasswordHash, reloaded.PasswordHash)
	assert.False(t, reloaded.PasswordResetRequired)

	_, err = h.svc.Refresh(ctx, session.RefreshToken, testMeta)
	requireUnauthorized(t, err)

	_, err = h.svc.Login(ctx, LoginRequest{Email: "change@b1.com", Password: "original1"}, testMeta)
	requireUnauthorized(t, err)
	_, err = h.svc.Login(ctx, LoginRequest{Email: "change@b1.com", Password: "replaced22"}, testMeta)
	require.NoError(t, err)
}

func TestLoginTruncatesUserAgentOnRuneBoundary(t *testing.T) {
	h := newHarness(t)
	user := h.seedUser(t, "ua@b1.com", "s3cretpass", nil)

	agent := "a" + strings.Repeat("é", 300)
	_, err := h.svc.Login(context.Background(), LoginRequest{Email: "ua@b1.com", Password: "s3cretpass"}, ClientMeta{IP: "10.0.0.1", UserAgent: agent})
	require.NoError(t, err)

	var stored models.RefreshToken
	require.NoError(t, h.db.Where("user_id = ?", user.ID).First(&stored).Error)
	require.NotNil(t, stored.UserAgent)
	assert.True(t, utf8.ValidString(*stored.UserAgent))
	assert.Len(t, *stored.UserAgent, 511)
	assert.True(t, strings.HasPrefix(agent, *stored.UserAgent))

	assert.Nil(t, optional("   "))
	assert.Equal(t, "short", *optional(" short "))
}

func TestNewServiceRequiresDependencies(t *testing.T) {
	_, err := NewService(ServiceParams{})
	assert.Error(t, err)

	conn := dbtest.Open(t)
	_, err = NewService(ServiceParams{
		DB:     db.FromGorm(conn),
		Users:  users.NewRepository(conn),
		Tokens: refreshtokens.NewRepository(conn),
	})
	assert.Error(t, err, "a hash key is required")
}
