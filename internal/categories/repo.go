package categories

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/bizhub-backend/pkg/db/models"
	"github.com/angelmondragon/bizhub-backend/pkg/pagination"
)

// Repository persists categories. Every read is tenant scoped and gorm's
// soft-delete scope hides deleted rows.
type Repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

func (r *Repository) WithTx(tx *gorm.DB) *Repository {
	if tx == nil {
		return r
	}
	return &Repository{db: tx}
}

func (r *Repository) Create(ctx context.Context, category *models.Category) error {
	return r.db.WithContext(ctx).Create(category).Error
}

func (r *Repository) FindByID(ctx context.Context, businessID, id uuid.UUID) (*models.Category, error) {
	var category models.Category
	err := r.db.WithContext(ctx).
		Where("id = ? AND business_id = ?", id, businessID).
		First(&category).Error
	if err != nil {
		return nil, err
	}
	return &category, nil
}

// Exists reports whether a live category with the id belongs to the business.
func (r *Repository) Exists(ctx context.Context, businessID, id uuid.UUID) (bool, error) {
	var n int64
	err := r.db.WithContext(ctx).
		Model(&models.Category{}).
		Where("id = ? AND business_id = ?", id, businessID).
		Count(&n).Error
	return n > 0, err
}

func (r *Repository) ListForBusiness(ctx context.Context, businessID uuid.UUID, q pagination.Query) (*pagination.Result[models.Category], error) {
	scoped := r.db.WithContext(ctx).
		Model(&models.Category{}).
		Where("categories.business_id = ?", businessID)
	return pagination.Find[models.Category](scoped, FieldMapping, q)
}

// SoftDelete marks the category deleted and reports whether a row changed.
func (r *Repository) SoftDelete(ctx context.Context, businessID, id uuid.UUID) (bool, error) {
	res := r.db.WithContext(ctx).
		Where("id = ? AND business_id = ?", id, businessID).
		Delete(&models.Category{})
	return res.RowsAffected == 1, res.Error
}

// DetachProducts clears the category from every product that references it.
func (r *Repository) DetachProducts(ctx context.Context, businessID, id uuid.UUID) (int64, error) {
	res := r.db.WithContext(ctx).
		Model(&models.Product{}).
		Where("category_id = ? AND business_id = ?", id, businessID).
		Updates(map[string]any{"category_id": nil, "updated_at": time.Now().UTC()})
	return res.RowsAffected, res.Error
}
