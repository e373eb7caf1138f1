package categories

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/angelmondragon/bizhub-backend/internal/audit"
	"github.com/angelmondragon/bizhub-backend/pkg/db"
	"github.com/angelmondragon/bizhub-backend/pkg/db/dbtest"
	"github.com/angelmondragon/bizhub-backend/pkg/db/models"
	pkgerrors "github.com/angelmondragon/bizhub-backend/pkg/errors"
	"github.com/angelmondragon/bizhub-backend/pkg/pagination"
)

type entries []audit.Entry

func (e *entries) Record(_ context.Context, entry audit.Entry) { *e = append(*e, entry) }

func newTestService(t *testing.T) (Service, *gorm.DB, *entries) {
	t.Helper()
	conn := dbtest.Open(t)
	sink := &entries{}
	svc, err := NewService(NewRepository(conn), db.FromGorm(conn), sink)
	require.NoError(t, err)
	return svc, conn, sink
}

func TestCreateCategoryConflictsOnDuplicateName(t *testing.T) {
	svc, _, sink := newTestService(t)
	ctx := context.Background()
	biz := uuid.New()

	created, err := svc.Create(ctx, biz, uuid.New(), CreateCategoryInput{Name: " Drinks "})
	require.NoError(t, err)
	assert.Equal(t, "Drinks", created.Name)

	_, err = svc.Create(ctx, biz, uuid.New(), CreateCategoryInput{Name: "Drinks"})
	assert.True(t, pkgerrors.HasCode(err, pkgerrors.CodeConflict))

	_, err = svc.Create(ctx, uuid.New(), uuid.New(), CreateCategoryInput{Name: "Drinks"})
	assert.NoError(t, err)

	_, err = svc.Create(ctx, biz, uuid.New(), CreateCategoryInput{Name: "   "})
	assert.True(t, pkgerrors.HasCode(err, pkgerrors.CodeValidation))

	require.Len(t, *sink, 2)
	assert.Equal(t, audit.ActionCategoryCreate, (*sink)[0].Action)
}

func TestDeleteIsSoftAndTenantScoped(t *testing.T) {
	svc, conn, sink := newTestService(t)
	ctx := context.Background()
	biz := uuid.New()

	category, err := svc.Create(ctx, biz, uuid.New(), CreateCategoryInput{Name: "Snacks"})
	require.NoError(t, err)
	product := &models.Product{BusinessID: biz, CategoryID: &category.ID, Name: "Chips", SKU: "CH-1", Price: decimal.RequireFromString("2.50"), IsActive: true}
	require.NoError(t, conn.Create(product).Error)

	err = svc.Delete(ctx, uuid.New(), uuid.New(), category.ID)
	assert.True(t, pkgerrors.HasCode(err, pkgerrors.CodeNotFound), "other tenants cannot delete")

	require.NoError(t, svc.Delete(ctx, biz, uuid.New(), category.ID))

	err = svc.Delete(ctx, biz, uuid.New(), category.ID)
	assert.True(t, pkgerrors.HasCode(err, pkgerrors.CodeNotFound))

	var raw models.Category
	require.NoError(t, conn.Unscoped().First(&raw, "id = ?", category.ID).Error)
	assert.True(t, raw.DeletedAt.Valid)

	var reloaded models.Product
	require.NoError(t, conn.First(&reloaded, "id = ?", product.ID).Error)
	assert.Nil(t, reloaded.CategoryID)

	_, err = svc.Create(ctx, biz, uuid.New(), CreateCategoryInput{Name: "Snacks"})
	assert.NoError(t, err, "name is free again once the category is deleted")

	last := (*sink)[len(*sink)-2]
	assert.Equal(t, audit.ActionCategoryDelete, last.Action)
	assert.NotNil(t, last.OldValues)
}

func TestListHidesDeletedAndForeignCategories(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()
	b1, b2 := uuid.New(), uuid.New()

	for _, name := range []string{"Coffee", "Cold brew", "Tea"} {
		_, err := svc.Create(ctx, b1, uuid.New(), CreateCategoryInput{Name: name})
		require.NoError(t, err)
	}
	gone, err := svc.Create(ctx, b1, uuid.New(), CreateCategoryInput{Name: "Coffee beans"})
	require.NoError(t, err)
	require.NoError(t, svc.Delete(ctx, b1, uuid.New(), gone.ID))
	_, err = svc.Create(ctx, b2, uuid.New(), CreateCategoryInput{Name: "Coffee"})
	require.NoError(t, err)

	res, err := svc.List(ctx, b1, pagination.Query{Search: "co", Sort: &pagination.Sort{Field: "name"}})
	require.NoError(t, err)
	require.Len(t, res.Items, 2)
	assert.Equal(t, "Coffee", res.Items[0].Name)
	assert.Equal(t, "Cold brew", res.Items[1].Name)
	assert.EqualValues(t, 2, res.Metadata.Total)
}
