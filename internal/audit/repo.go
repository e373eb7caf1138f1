package audit

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/bizhub-backend/pkg/db/models"
	"github.com/angelmondragon/bizhub-backend/pkg/pagination"
)

// Repository persists and lists audit rows.
type Repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

func (r *Repository) Insert(ctx context.Context, row *models.AuditLog) error {
	return r.db.WithContext(ctx).Create(row).Error
}

// ListForBusiness pages through a tenant's audit rows.
func (r *Repository) ListForBusiness(ctx context.Context, businessID uuid.UUID, q pagination.Query) (*pagination.Result[models.AuditLog], error) {
	scoped := r.db.WithContext(ctx).
		Model(&models.AuditLog{}).
		Where("business_id = ?", businessID)
	return pagination.Find[models.AuditLog](scoped, FieldMapping, q)
}

// DeleteOlderThan removes rows created before cutoff and reports how many.
func (r *Repository) DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	res := r.db.WithContext(ctx).
		Where("created_at < ?", cutoff).
		Delete(&models.AuditLog{})
	return res.RowsAffected, res.Error
}
