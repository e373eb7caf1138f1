package product

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/angelmondragon/bizhub-backend/internal/audit"
	"github.com/angelmondragon/bizhub-backend/pkg/db"
	"github.com/angelmondragon/bizhub-backend/pkg/db/models"
	"github.com/angelmondragon/bizhub-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/bizhub-backend/pkg/errors"
	"github.com/angelmondragon/bizhub-backend/pkg/pagination"
)

const uniqueSKUConstraint = "uq_products_business_sku"

var maxPrice = decimal.New(9999999999, -2)

// Service exposes product management for one business at a time.
type Service interface {
	List(ctx context.Context, businessID uuid.UUID, q pagination.Query) (*pagination.Result[ProductDTO], error)
	Get(ctx context.Context, businessID, productID uuid.UUID) (*ProductDTO, error)
	Create(ctx context.Context, businessID, actorID uuid.UUID, input CreateProductInput) (*ProductDTO, error)
	Update(ctx context.Context, businessID, actorID, productID uuid.UUID, input UpdateProductInput) (*ProductDTO, error)
	Delete(ctx context.Context, businessID, actorID, productID uuid.UUID) error
}

type categoryChecker interface {
	Exists(ctx context.Context, businessID, id uuid.UUID) (bool, error)
}

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// service implements the product service.
type service struct {
	repo       *Repository
	dbClient   txRunner
	categories categoryChecker
	audit      audit.Sink
}

// NewService constructs a product service instance.
func NewService(repo *Repository, dbClient txRunner, categories categoryChecker, sink audit.Sink) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("product repository required")
	}
	if dbClient == nil {
		return nil, fmt.Errorf("db client required")
	}
	if categories == nil {
		return nil, fmt.Errorf("category checker required")
	}
	if sink == nil {
		sink = audit.Nop{}
	}
	return &service{
		repo:       repo,
		dbClient:   dbClient,
		categories: categories,
		audit:      sink,
	}, nil
}

func (s *service) List(ctx context.Context, businessID uuid.UUID, q pagination.Query) (*pagination.Result[ProductDTO], error) {
	res, err := s.repo.ListForBusiness(ctx, businessID, q)
	if err != nil {
		if pkgerrors.As(err) != nil {
			return nil, err
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "list products")
	}
	return pagination.MapResult(res, FromModel), nil
}

func (s *service) Get(ctx context.Context, businessID, productID uuid.UUID) (*ProductDTO, error) {
	product, err := s.load(ctx, s.repo, businessID, productID)
	if err != nil {
		return nil, err
	}
	dto := FromModel(*product)
	return &dto, nil
}

// Create validates the payload and inserts the product.
func (s *service) Create(ctx context.Context, businessID, actorID uuid.UUID, input CreateProductInput) (*ProductDTO, error) {
	details := map[string]string{}
	name := strings.TrimSpace(input.Name)
	if name == "" {
		details["name"] = "is required"
	}
	sku := strings.TrimSpace(input.SKU)
	if sku == "" {
		details["sku"] = "is required"
	}
	if msg := validatePrice(input.Price); msg != "" {
		details["price"] = msg
	}
	if input.StockQuantity < 0 {
		details["stock_quantity"] = "must be zero or greater"
	}
	if len(details) > 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid product").WithDetails(details)
	}
	if input.CategoryID != nil {
		if err := s.ensureCategory(ctx, businessID, *input.CategoryID); err != nil {
			return nil, err
		}
	}

	isActive := true
	if input.IsActive != nil {
		isActive = *input.IsActive
	}
	product := &models.Product{
		BusinessID:    businessID,
		CategoryID:    input.CategoryID,
		Name:          name,
		SKU:           sku,
		Description:   trimmed(input.Description),
		Price:         input.Price,
		StockQuantity: input.StockQuantity,
		IsActive:      isActive,
	}
	if err := s.repo.Create(ctx, product); err != nil {
		if db.IsUniqueViolation(err, uniqueSKUConstraint) {
			return nil, pkgerrors.New(pkgerrors.CodeConflict, "a product with this sku already exists")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "create product")
	}

	dto := FromModel(*product)
	s.record(ctx, businessID, actorID, audit.ActionProductCreate, product.ID, nil, dto)
	return &dto, nil
}

// Update applies the supplied fields and records the before and after state.
func (s *service) Update(ctx context.Context, businessID, actorID, productID uuid.UUID, input UpdateProductInput) (*ProductDTO, error) {
	changes, err := s.changesFor(ctx, businessID, input)
	if err != nil {
		return nil, err
	}

	var before, after *models.Product
	err = s.dbClient.WithTx(ctx, func(tx *gorm.DB) error {
		txRepo := s.repo.WithTx(tx)
		existing, err := s.load(ctx, txRepo, businessID, productID)
		if err != nil {
			return err
		}
		if len(changes) > 0 {
			changes["updated_at"] = time.Now().UTC()
			if err := txRepo.Update(ctx, businessID, productID, changes); err != nil {
				if db.IsUniqueViolation(err, uniqueSKUConstraint) {
					return pkgerrors.New(pkgerrors.CodeConflict, "a product with this sku already exists")
				}
				return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "update product")
			}
		}
		updated, err := s.load(ctx, txRepo, businessID, productID)
		if err != nil {
			return err
		}
		before, after = existing, updated
		return nil
	})
	if err != nil {
		return nil, err
	}

	dto := FromModel(*after)
	s.record(ctx, businessID, actorID, audit.ActionProductUpdate, productID, FromModel(*before), dto)
	return &dto, nil
}

// Delete soft deletes the product.
func (s *service) Delete(ctx context.Context, businessID, actorID, productID uuid.UUID) error {
	var before *models.Product
	err := s.dbClient.WithTx(ctx, func(tx *gorm.DB) error {
		txRepo := s.repo.WithTx(tx)
		existing, err := s.load(ctx, txRepo, businessID, productID)
		if err != nil {
			return err
		}
		deleted, err := txRepo.SoftDelete(ctx, businessID, productID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "delete product")
		}
		if !deleted {
			return pkgerrors.New(pkgerrors.CodeNotFound, "product not found")
		}
		before = existing
		return nil
	})
	if err != nil {
		return err
	}
	s.record(ctx, businessID, actorID, audit.ActionProductDelete, productID, FromModel(*before), nil)
	return nil
}

func (s *service) changesFor(ctx context.Context, businessID uuid.UUID, input UpdateProductInput) (map[string]any, error) {
	changes := map[string]any{}
	details := map[string]string{}

	if input.Name != nil {
		if name := strings.TrimSpace(*input.Name); name == "" {
			details["name"] = "cannot be empty"
		} else {
			changes["name"] = name
		}
	}
	if input.SKU != nil {
		if sku := strings.TrimSpace(*input.SKU); sku == "" {
			details["sku"] = "cannot be empty"
		} else {
			changes["sku"] = sku
		}
	}
	if input.Description != nil {
		changes["description"] = trimmed(input.Description)
	}
	if input.Price != nil {
		if msg := validatePrice(*input.Price); msg != "" {
			details["price"] = msg
		} else {
			changes["price"] = *input.Price
		}
	}
	if input.StockQuantity != nil {
		if *input.StockQuantity < 0 {
			details["stock_quantity"] = "must be zero or greater"
		} else {
			changes["stock_quantity"] = *input.StockQuantity
		}
	}
	if input.IsActive != nil {
		changes["is_active"] = *input.IsActive
	}
	if len(details) > 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid product").WithDetails(details)
	}

	switch {
	case input.CategoryID.Cleared():
		changes["category_id"] = nil
	case input.CategoryID.Set:
		if err := s.ensureCategory(ctx, businessID, *input.CategoryID.ID); err != nil {
			return nil, err
		}
		changes["category_id"] = *input.CategoryID.ID
	}
	return changes, nil
}

func (s *service) load(ctx context.Context, repo *Repository, businessID, productID uuid.UUID) (*models.Product, error) {
	product, err := repo.FindByID(ctx, businessID, productID)
	if err != nil {
		if db.IsNotFound(err) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "product not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load product")
	}
	return product, nil
}

func (s *service) ensureCategory(ctx context.Context, businessID, categoryID uuid.UUID) error {
	ok, err := s.categories.Exists(ctx, businessID, categoryID)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load category")
	}
	if !ok {
		return pkgerrors.New(pkgerrors.CodeNotFound, "category not found")
	}
	return nil
}

func (s *service) record(ctx context.Context, businessID, actorID uuid.UUID, action string, productID uuid.UUID, oldValues, newValues any) {
	s.audit.Record(ctx, audit.Entry{
		BusinessID: &businessID,
		ActorID:    &actorID,
		Action:     action,
		EntityType: "product",
		EntityID:   productID.String(),
		OldValues:  oldValues,
		NewValues:  newValues,
		Result:     enums.AuditResultSuccess,
	})
}

func validatePrice(price decimal.Decimal) string {
	switch {
	case price.IsNegative():
		return "must be zero or greater"
	case price.GreaterThan(maxPrice):
		return "is too large"
	case !price.Equal(price.Round(2)):
		return "must have at most two decimal places"
	}
	return ""
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
