package roles

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/angelmondragon/bizhub-backend/internal/authz"
	"github.com/angelmondragon/bizhub-backend/pkg/db/models"
	"github.com/angelmondragon/bizhub-backend/pkg/pagination"
)

// Repository persists roles and role assignments.
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

func (r *Repository) Create(ctx context.Context, role *models.Role) error {
	return r.db.WithContext(ctx).Create(role).Error
}

func (r *Repository) FindByID(ctx context.Context, id uuid.UUID) (*models.Role, error) {
	var role models.Role
	if err := r.db.WithContext(ctx).First(&role, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &role, nil
}

// FindVisible loads a role owned by the business or a system role.
func (r *Repository) FindVisible(ctx context.Context, businessID, id uuid.UUID) (*models.Role, error) {
	var role models.Role
	err := r.db.WithContext(ctx).
		Where("id = ? AND (business_id = ? OR business_id IS NULL)", id, businessID).
		First(&role).Error
	if err != nil {
		return nil, err
	}
	return &role, nil
}

// FindSystemByName loads a platform-wide role such as "Owner".
func (r *Repository) FindSystemByName(ctx context.Context, name string) (*models.Role, error) {
	var role models.Role
	err := r.db.WithContext(ctx).
		Where("name = ? AND is_system = ? AND business_id IS NULL", name, true).
		First(&role).Error
	if err != nil {
		return nil, err
	}
	return &role, nil
}

// ListForBusiness pages through the business roles together with system roles.
func (r *Repository) ListForBusiness(ctx context.Context, businessID uuid.UUID, q pagination.Query) (*pagination.Result[models.Role], error) {
	scoped := r.db.WithContext(ctx).
		Model(&models.Role{}).
		Where("business_id = ? OR business_id IS NULL", businessID)
	return pagination.Find[models.Role](scoped, FieldMapping, q)
}

// AssignToUser adds an extra role to the user. Repeating an assignment is a no-op.
func (r *Repository) AssignToUser(ctx context.Context, userID, roleID uuid.UUID) error {
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(&models.UserRole{UserID: userID, RoleID: roleID}).Error
}

// ScopesForUser returns the scopes of the user's primary role and every
// assigned role. Unknown or inactive users yield authz.ErrInactivePrincipal.
func (r *Repository) ScopesForUser(ctx context.Context, userID uuid.UUID) ([]string, error) {
	var user models.User
	err := r.db.WithContext(ctx).
		Select("id", "role_id", "is_active").
		First(&user, "id = ?", userID).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, authz.ErrInactivePrincipal
		}
		return nil, err
	}
	if !user.IsActive {
		return nil, authz.ErrInactivePrincipal
	}

	assigned := r.db.WithContext(ctx).
		Model(&models.UserRole{}).
		Select("role_id").
		Where("user_id = ?", userID)

	query := r.db.WithContext(ctx).Where("id IN (?)", assigned)
	if user.RoleID != nil {
		query = r.db.WithContext(ctx).Where("id = ? OR id IN (?)", *user.RoleID, assigned)
	}

	var rows []models.Role
	if err := query.Find(&rows).Error; err != nil {
		return nil, err
	}

	seen := make(map[string]struct{})
	var scopes []string
	for _, role := range rows {
		for _, s := range role.Scopes {
			if _, ok := seen[s]; ok {
				continue
			}
			seen[s] = struct{}{}
			scopes = append(scopes, s)
		}
	}
	return scopes, nil
}
