package product

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/angelmondragon/bizhub-backend/internal/audit"
	"github.com/angelmondragon/bizhub-backend/internal/categories"
	"github.com/angelmondragon/bizhub-backend/pkg/db"
	"github.com/angelmondragon/bizhub-backend/pkg/db/dbtest"
	"github.com/angelmondragon/bizhub-backend/pkg/db/models"
	pkgerrors "github.com/angelmondragon/bizhub-backend/pkg/errors"
	"github.com/angelmondragon/bizhub-backend/pkg/pagination"
	"github.com/angelmondragon/bizhub-backend/pkg/types"
)

type captured struct {
	entries []audit.Entry
}

func (c *captured) Record(_ context.Context, e audit.Entry) { c.entries = append(c.entries, e) }

func (c *captured) last(t *testing.T) audit.Entry {
	t.Helper()
	require.NotEmpty(t, c.entries)
	return c.entries[len(c.entries)-1]
}

func newTestService(t *testing.T) (Service, *gorm.DB, *captured) {
	t.Helper()
	conn := dbtest.Open(t)
	sink := &captured{}
	svc, err := NewService(NewRepository(conn), db.FromGorm(conn), categories.NewRepository(conn), sink)
	require.NoError(t, err)
	return svc, conn, sink
}

func newCategory(t *testing.T, conn *gorm.DB, businessID uuid.UUID, name string) *models.Category {
	t.Helper()
	category := &models.Category{BusinessID: businessID, Name: name}
	require.NoError(t, conn.Create(category).Error)
	return category
}

func createInput(name, sku, price string) CreateProductInput {
	return CreateProductInput{Name: name, SKU: sku, Price: decimal.RequireFromString(price), StockQuantity: 5}
}

func ptr[T any](v T) *T { return &v }

func TestCreateProduct(t *testing.T) {
	svc, conn, sink := newTestService(t)
	ctx := context.Background()
	biz := uuid.New()
	category := newCategory(t, conn, biz, "Coffee")

	input := createInput(" Flat white ", " FW-1 ", "4.50")
	input.CategoryID = &category.ID
	created, err := svc.Create(ctx, biz, uuid.New(), input)
	require.NoError(t, err)
	assert.Equal(t, "Flat white", created.Name)
	assert.Equal(t, "FW-1", created.SKU)
	assert.True(t, created.Price.Equal(decimal.RequireFromString("4.5")))
	assert.True(t, created.IsActive)

	fetched, err := svc.Get(ctx, biz, created.ID)
	require.NoError(t, err)
	assert.True(t, fetched.Price.Equal(created.Price))
	require.NotNil(t, fetched.CategoryID)
	assert.Equal(t, category.ID, *fetched.CategoryID)

	entry := sink.last(t)
	assert.Equal(t, audit.ActionProductCreate, entry.Action)
	assert.Nil(t, entry.OldValues)
	assert.NotNil(t, entry.NewValues)
}

func TestCreateProductInactive(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()
	biz := uuid.New()

	input := createInput("Seasonal", "SEA-1", "3.00")
	input.IsActive = ptr(false)
	created, err := svc.Create(ctx, biz, uuid.New(), input)
	require.NoError(t, err)
	assert.False(t, created.IsActive)

	fetched, err := svc.Get(ctx, biz, created.ID)
	require.NoError(t, err)
	assert.False(t, fetched.IsActive)
}

func TestCreateProductValidation(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()

	cases := map[string]CreateProductInput{
		"name":           createInput(" ", "A-1", "1.00"),
		"sku":            createInput("Latte", "", "1.00"),
		"price":          createInput("Latte", "A-1", "-1"),
		"stock_quantity": {Name: "Latte", SKU: "A-1", StockQuantity: -2},
	}
	for field, input := range cases {
		_, err := svc.Create(ctx, uuid.New(), uuid.New(), input)
		require.Error(t, err, field)
		assert.True(t, pkgerrors.HasCode(err, pkgerrors.CodeValidation), field)
		details, ok := pkgerrors.As(err).Details().(map[string]string)
		require.True(t, ok, field)
		assert.Contains(t, details, field)
	}

	_, err := svc.Create(ctx, uuid.New(), uuid.New(), createInput("Latte", "A-1", "1.005"))
	assert.True(t, pkgerrors.HasCode(err, pkgerrors.CodeValidation))
}

func TestCreateProductConflictAndMissingCategory(t *testing.T) {
	svc, conn, _ := newTestService(t)
	ctx := context.Background()
	biz := uuid.New()

	_, err := svc.Create(ctx, biz, uuid.New(), createInput("Mocha", "MO-1", "5.00"))
	require.NoError(t, err)

	_, err = svc.Create(ctx, biz, uuid.New(), createInput("Mocha 2", "MO-1", "5.00"))
	assert.True(t, pkgerrors.HasCode(err, pkgerrors.CodeConflict))

	_, err = svc.Create(ctx, uuid.New(), uuid.New(), createInput("Mocha", "MO-1", "5.00"))
	assert.NoError(t, err, "sku is unique per business")

	input := createInput("Cortado", "CO-1", "3.20")
	input.CategoryID = ptr(uuid.New())
	_, err = svc.Create(ctx, biz, uuid.New(), input)
	assert.True(t, pkgerrors.HasCode(err, pkgerrors.CodeNotFound))

	foreign := newCategory(t, conn, uuid.New(), "Foreign")
	input.CategoryID = &foreign.ID
	_, err = svc.Create(ctx, biz, uuid.New(), input)
	assert.True(t, pkgerrors.HasCode(err, pkgerrors.CodeNotFound), "categories of other businesses are invisible")
}

func TestTenantIsolation(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()
	b1, b2 := uuid.New(), uuid.New()

	_, err := svc.Create(ctx, b1, uuid.New(), createInput("Espresso", "ES-1", "2.00"))
	require.NoError(t, err)
	theirs, err := svc.Create(ctx, b2, uuid.New(), createInput("Espresso", "ES-1", "2.00"))
	require.NoError(t, err)

	_, err = svc.Get(ctx, b1, theirs.ID)
	assert.True(t, pkgerrors.HasCode(err, pkgerrors.CodeNotFound))

	_, err = svc.Update(ctx, b1, uuid.New(), theirs.ID, UpdateProductInput{Name: ptr("Hijacked")})
	assert.True(t, pkgerrors.HasCode(err, pkgerrors.CodeNotFound))

	err = svc.Delete(ctx, b1, uuid.New(), theirs.ID)
	assert.True(t, pkgerrors.HasCode(err, pkgerrors.CodeNotFound))

	res, err := svc.List(ctx, b1, pagination.Query{
		Filters: []pagination.Filter{{FieldName: "id", Operator: pagination.OpEq, Value: theirs.ID.String()}},
	})
	require.NoError(t, err)
	assert.Empty(t, res.Items)
	assert.Zero(t, res.Metadata.Total)

	untouched, err := svc.Get(ctx, b2, theirs.ID)
	require.NoError(t, err)
	assert.Equal(t, "Espresso", untouched.Name)
}

func TestListFiltersByNameSubstring(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()
	biz := uuid.New()

	for i, name := range []string{"Coffee", "Iced COFFEE", "Decaf coffee", "Tea", "Cocoa"} {
		_, err := svc.Create(ctx, biz, uuid.New(), createInput(name, "SKU-"+string(rune('A'+i)), "1.00"))
		require.NoError(t, err)
	}

	res, err := svc.List(ctx, biz, pagination.Query{
		Page:    1,
		Limit:   20,
		Filters: []pagination.Filter{{FieldName: "name", Operator: pagination.OpILike, Value: "cof"}},
	})
	require.NoError(t, err)
	assert.Equal(t, 1, res.Metadata.Page)
	assert.EqualValues(t, 3, res.Metadata.Total)
	assert.Equal(t, 1, res.Metadata.Pages)
	require.Len(t, res.Items, 3)
	for _, item := range res.Items {
		assert.Contains(t, []string{"Coffee", "Iced COFFEE", "Decaf coffee"}, item.Name)
	}

	_, err = svc.List(ctx, biz, pagination.Query{
		Filters: []pagination.Filter{{FieldName: "business_id", Operator: pagination.OpEq, Value: uuid.NewString()}},
	})
	assert.True(t, pkgerrors.HasCode(err, pkgerrors.CodeValidation))
}

func TestUpdateProduct(t *testing.T) {
	svc, conn, sink := newTestService(t)
	ctx := context.Background()
	biz := uuid.New()
	category := newCategory(t, conn, biz, "Bakery")

	input := createInput("Croissant", "CR-1", "2.80")
	input.CategoryID = &category.ID
	created, err := svc.Create(ctx, biz, uuid.New(), input)
	require.NoError(t, err)
	_, err = svc.Create(ctx, biz, uuid.New(), createInput("Bagel", "BG-1", "2.00"))
	require.NoError(t, err)

	price := decimal.RequireFromString("3.10")
	updated, err := svc.Update(ctx, biz, uuid.New(), created.ID, UpdateProductInput{
		Name:       ptr("Butter croissant"),
		Price:      &price,
		CategoryID: types.PatchUUID{Set: true},
	})
	require.NoError(t, err)
	assert.Equal(t, "Butter croissant", updated.Name)
	assert.True(t, updated.Price.Equal(price))
	assert.Nil(t, updated.CategoryID)
	assert.Equal(t, "CR-1", updated.SKU)

	entry := sink.last(t)
	assert.Equal(t, audit.ActionProductUpdate, entry.Action)
	old, ok := entry.OldValues.(ProductDTO)
	require.True(t, ok)
	assert.Equal(t, "Croissant", old.Name)
	next, ok := entry.NewValues.(ProductDTO)
	require.True(t, ok)
	assert.Equal(t, "Butter croissant", next.Name)

	_, err = svc.Update(ctx, biz, uuid.New(), created.ID, UpdateProductInput{SKU: ptr("BG-1")})
	assert.True(t, pkgerrors.HasCode(err, pkgerrors.CodeConflict))

	_, err = svc.Update(ctx, biz, uuid.New(), created.ID, UpdateProductInput{StockQuantity: ptr(-1)})
	assert.True(t, pkgerrors.HasCode(err, pkgerrors.CodeValidation))

	_, err = svc.Update(ctx, biz, uuid.New(), created.ID, UpdateProductInput{
		CategoryID: types.PatchUUID{Set: true, ID: ptr(uuid.New())},
	})
	assert.True(t, pkgerrors.HasCode(err, pkgerrors.CodeNotFound))

	_, err = svc.Update(ctx, biz, uuid.New(), uuid.New(), UpdateProductInput{Name: ptr("Ghost")})
	assert.True(t, pkgerrors.HasCode(err, pkgerrors.CodeNotFound))
}

func TestDeleteProductIsSoft(t *testing.T) {
	svc, conn, sink := newTestService(t)
	ctx := context.Background()
	biz := uuid.New()

	created, err := svc.Create(ctx, biz, uuid.New(), createInput("Scone", "SC-1", "2.20"))
	require.NoError(t, err)
	require.NoError(t, svc.Delete(ctx, biz, uuid.New(), created.ID))

	_, err = svc.Get(ctx, biz, created.ID)
	assert.True(t, pkgerrors.HasCode(err, pkgerrors.CodeNotFound))
	err = svc.Delete(ctx, biz, uuid.New(), created.ID)
	assert.True(t, pkgerrors.HasCode(err, pkgerrors.CodeNotFound))

	var raw models.Product
	require.NoError(t, conn.Unscoped().First(&raw, "id = ?", created.ID).Error)
	assert.True(t, raw.DeletedAt.Valid)

	entry := sink.entries[1]
	assert.Equal(t, audit.ActionProductDelete, entry.Action)
	assert.Nil(t, entry.NewValues)

	_, err = svc.Create(ctx, biz, uuid.New(), createInput("Scone", "SC-1", "2.20"))
	assert.NoError(t, err, "sku is free again after a soft delete")
}
