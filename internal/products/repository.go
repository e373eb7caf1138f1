package product

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/bizhub-backend/pkg/db/models"
	"github.com/angelmondragon/bizhub-backend/pkg/pagination"
)

// Repository persists products. Every query is scoped to one business and
// gorm's soft-delete scope hides deleted rows.
type Repository struct {
	db *gorm.DB
}

// NewRepository binds a product repository to the provided GORM DB.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// WithTx returns a repository bound to the supplied transaction.
func (r *Repository) WithTx(tx *gorm.DB) *Repository {
	if tx == nil {
		return r
	}
	return &Repository{db: tx}
}

func (r *Repository) Create(ctx context.Context, product *models.Product) error {
	active := product.IsActive
	if err := r.db.WithContext(ctx).Create(product).Error; err != nil {
		return err
	}
	// is_active carries a column default, so gorm skips a false value on insert.
	if !active {
		product.IsActive = false
		return r.db.WithContext(ctx).Model(product).UpdateColumn("is_active", false).Error
	}
	return nil
}

// FindByID loads a live product owned by the business.
func (r *Repository) FindByID(ctx context.Context, businessID, id uuid.UUID) (*models.Product, error) {
	var product models.Product
	err := r.db.WithContext(ctx).
		Where("id = ? AND business_id = ?", id, businessID).
		First(&product).Error
	if err != nil {
		return nil, err
	}
	return &product, nil
}

// Update writes the given columns on a live product owned by the business.
func (r *Repository) Update(ctx context.Context, businessID, id uuid.UUID, changes map[string]any) error {
	if len(changes) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).
		Model(&models.Product{}).
		Where("id = ? AND business_id = ?", id, businessID).
		Updates(changes).Error
}

// SoftDelete marks the product deleted and reports whether a row changed.
func (r *Repository) SoftDelete(ctx context.Context, businessID, id uuid.UUID) (bool, error) {
	res := r.db.WithContext(ctx).
		Where("id = ? AND business_id = ?", id, businessID).
		Delete(&models.Product{})
	return res.RowsAffected == 1, res.Error
}

// ListForBusiness pages through the live products of a business.
func (r *Repository) ListForBusiness(ctx context.Context, businessID uuid.UUID, q pagination.Query) (*pagination.Result[models.Product], error) {
	scoped := r.db.WithContext(ctx).
		Model(&models.Product{}).
		Where("products.business_id = ?", businessID)
	return pagination.Find[models.Product](scoped, FieldMapping, q)
}
