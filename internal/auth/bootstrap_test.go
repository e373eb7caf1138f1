package auth

import (
	"context"
	"testing"

	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/angelmondragon/bizhub-backend/internal/users"
	"github.com/angelmondragon/bizhub-backend/pkg/db"
	"github.com/angelmondragon/bizhub-backend/pkg/db/dbtest"
	"github.com/angelmondragon/bizhub-backend/pkg/db/models"
	pkgerrors "github.com/angelmondragon/bizhub-backend/pkg/errors"
	"github.com/angelmondragon/bizhub-backend/pkg/security"
)

func newBootstrapper(t *testing.T, withOwnerRole bool) (OwnerBootstrapService, *gorm.DB) {
	t.Helper()
	conn := dbtest.Open(t)
	if withOwnerRole {
		require.NoError(t, conn.Create(&models.Role{
			Name:     OwnerRoleName,
			Scopes:   pq.StringArray{"USERS_READ", "USERS_WRITE"},
			IsSystem: true,
		}).Error)
	}
	svc, err := NewOwnerBootstrapService(OwnerBootstrapServiceParams{DB: db.FromGorm(conn), PasswordConfig: testPassword})
	require.NoError(t, err)
	return svc, conn
}

func TestBootstrapCreatesBusinessAndOwner(t *testing.T) {
	svc, conn := newBootstrapper(t, true)
	ctx := context.Background()

	res, err := svc.Bootstrap(ctx, BootstrapOwnerRequest{
		BusinessName: "Corner Cafe",
		Email:        " Owner@Corner.Cafe ",
		FirstName:    "Olive",
		LastName:     "Owner",
		Password:     "opening day 1",
	})
	require.NoError(t, err)
	assert.Equal(t, "corner-cafe", res.Slug)
	assert.Equal(t, "owner@corner.cafe", res.Owner.Email)
	assert.Equal(t, OwnerRoleName, res.Owner.Role)
	assert.True(t, res.Owner.PasswordResetRequired)
	require.NotNil(t, res.Owner.BusinessID)
	assert.Equal(t, res.BusinessID, *res.Owner.BusinessID)

	stored, err := users.NewRepository(conn).FindByEmail(ctx, "owner@corner.cafe")
	require.NoError(t, err)
	ok, err := security.VerifyPassword("opening day 1", stored.PasswordHash)
	require.NoError(t, err)
	assert.True(t, ok)

	_, err = svc.Bootstrap(ctx, BootstrapOwnerRequest{
		BusinessName: "Corner Cafe", Email: "second@corner.cafe", FirstName: "Sam", LastName: "Second", Password: "opening day 2",
	})
	assert.True(t, pkgerrors.HasCode(err, pkgerrors.CodeConflict))

	_, err = svc.Bootstrap(ctx, BootstrapOwnerRequest{
		BusinessName: "Other Cafe", Email: "owner@corner.cafe", FirstName: "Olive", LastName: "Owner", Password: "opening day 3",
	})
	assert.True(t, pkgerrors.HasCode(err, pkgerrors.CodeConflict))

	var count int64
	require.NoError(t, conn.Model(&models.Business{}).Count(&count).Error)
	assert.EqualValues(t, 1, count)
}

func TestBootstrapValidatesAndNeedsOwnerRole(t *testing.T) {
	svc, conn := newBootstrapper(t, false)
	ctx := context.Background()

	_, err := svc.Bootstrap(ctx, BootstrapOwnerRequest{BusinessName: "!!!", Email: "nope", Password: "short"})
	require.True(t, pkgerrors.HasCode(err, pkgerrors.CodeValidation))
	details, ok := pkgerrors.As(err).Details().(map[string]string)
	require.True(t, ok)
	for _, field := range []string{"slug", "email", "first_name", "last_name", "password"} {
		assert.Contains(t, details, field)
	}

	_, err = svc.Bootstrap(ctx, BootstrapOwnerRequest{
		BusinessName: "Lonely Cafe", Email: "owner@lonely.cafe", FirstName: "Lo", LastName: "Nely", Password: "opening day 1",
	})
	assert.True(t, pkgerrors.HasCode(err, pkgerrors.CodeInternal))

	var count int64
	require.NoError(t, conn.Model(&models.Business{}).Count(&count).Error)
	assert.Zero(t, count)
}
