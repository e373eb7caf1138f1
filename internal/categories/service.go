package categories

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/bizhub-backend/internal/audit"
	"github.com/angelmondragon/bizhub-backend/pkg/db"
	"github.com/angelmondragon/bizhub-backend/pkg/db/models"
	"github.com/angelmondragon/bizhub-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/bizhub-backend/pkg/errors"
	"github.com/angelmondragon/bizhub-backend/pkg/pagination"
)

const uniqueNameConstraint = "uq_categories_business_name"

// CategoryDTO is the API shape of a category.
type CategoryDTO struct {
	ID          uuid.UUID `json:"id"`
	Name        string    `json:"name"`
	Description *string   `json:"description,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

func FromModel(c models.Category) CategoryDTO {
	return CategoryDTO{
		ID:          c.ID,
		Name:        c.Name,
		Description: c.Description,
		CreatedAt:   c.CreatedAt,
		UpdatedAt:   c.UpdatedAt,
	}
}

// CreateCategoryInput is the body of a category creation request.
type CreateCategoryInput struct {
	Name        string  `json:"name" validate:"required,max=120"`
	Description *string `json:"description" validate:"omitempty,max=1000"`
}

// Service manages a business's categories.
type Service interface {
	List(ctx context.Context, businessID uuid.UUID, q pagination.Query) (*pagination.Result[CategoryDTO], error)
	Create(ctx context.Context, businessID, actorID uuid.UUID, input CreateCategoryInput) (*CategoryDTO, error)
	Delete(ctx context.Context, businessID, actorID, categoryID uuid.UUID) error
}

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type service struct {
	repo  *Repository
	db    txRunner
	audit audit.Sink
}

func NewService(repo *Repository, dbClient txRunner, sink audit.Sink) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("category repository required")
	}
	if dbClient == nil {
		return nil, fmt.Errorf("db client required")
	}
	if sink == nil {
		sink = audit.Nop{}
	}
	return &service{repo: repo, db: dbClient, audit: sink}, nil
}

func (s *service) List(ctx context.Context, businessID uuid.UUID, q pagination.Query) (*pagination.Result[CategoryDTO], error) {
	res, err := s.repo.ListForBusiness(ctx, businessID, q)
	if err != nil {
		if pkgerrors.As(err) != nil {
			return nil, err
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "list categories")
	}
	return pagination.MapResult(res, FromModel), nil
}

func (s *service) Create(ctx context.Context, businessID, actorID uuid.UUID, input CreateCategoryInput) (*CategoryDTO, error) {
	name := strings.TrimSpace(input.Name)
	if name == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid category").
			WithDetails(map[string]string{"name": "is required"})
	}

	category := &models.Category{
		BusinessID:  businessID,
		Name:        name,
		Description: trimmed(input.Description),
	}
	if err := s.repo.Create(ctx, category); err != nil {
		if db.IsUniqueViolation(err, uniqueNameConstraint) {
			return nil, pkgerrors.New(pkgerrors.CodeConflict, "a category with this name already exists")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "create category")
	}

	dto := FromModel(*category)
	s.audit.Record(ctx, audit.Entry{
		BusinessID: &businessID,
		ActorID:    &actorID,
		Action:     audit.ActionCategoryCreate,
		EntityType: "category",
		EntityID:   category.ID.String(),
		NewValues:  dto,
		Result:     enums.AuditResultSuccess,
	})
	return &dto, nil
}

// Delete soft deletes the category and detaches it from its products.
func (s *service) Delete(ctx context.Context, businessID, actorID, categoryID uuid.UUID) error {
	var before *models.Category
	err := s.db.WithTx(ctx, func(tx *gorm.DB) error {
		txRepo := s.repo.WithTx(tx)
		existing, err := txRepo.FindByID(ctx, businessID, categoryID)
		if err != nil {
			if db.IsNotFound(err) {
				return pkgerrors.New(pkgerrors.CodeNotFound, "category not found")
			}
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load category")
		}
		if _, err := txRepo.DetachProducts(ctx, businessID, categoryID); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "detach products")
		}
		deleted, err := txRepo.SoftDelete(ctx, businessID, categoryID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "delete category")
		}
		if !deleted {
			return pkgerrors.New(pkgerrors.CodeNotFound, "category not found")
		}
		before = existing
		return nil
	})
	if err != nil {
		return err
	}

	s.audit.Record(ctx, audit.Entry{
		BusinessID: &businessID,
		ActorID:    &actorID,
		Action:     audit.ActionCategoryDelete,
		EntityType: "category",
		EntityID:   categoryID.String(),
		OldValues:  FromModel(*before),
		Result:     enums.AuditResultSuccess,
	})
	return nil
}

func trimmed(v *string) *string {
	if v == nil {
		return nil
	}
	out := strings.TrimSpace(*v)
	if out == "" {
		return nil
	}
	return &out
}
