package audit

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/angelmondragon/bizhub-backend/pkg/db/models"
	"github.com/angelmondragon/bizhub-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/bizhub-backend/pkg/errors"
	"github.com/angelmondragon/bizhub-backend/pkg/pagination"
	"github.com/angelmondragon/bizhub-backend/pkg/types"
)

// LogDTO is the API shape of an audit row.
type LogDTO struct {
	ID         uuid.UUID         `json:"id"`
	ActorID    *uuid.UUID        `json:"actor_id,omitempty"`
	Action     string            `json:"action"`
	EntityType string            `json:"entity_type"`
	EntityID   *string           `json:"entity_id,omitempty"`
	OldValues  types.JSON        `json:"old_values"`
	NewValues  types.JSON        `json:"new_values"`
	Result     enums.AuditResult `json:"result"`
	IPAddress  *string           `json:"ip_address,omitempty"`
	RequestID  *string           `json:"request_id,omitempty"`
	CreatedAt  time.Time         `json:"created_at"`
}

func FromModel(m models.AuditLog) LogDTO {
	return LogDTO{
		ID:         m.ID,
		ActorID:    m.ActorID,
		Action:     m.Action,
		EntityType: m.EntityType,
		EntityID:   m.EntityID,
		OldValues:  m.OldValues,
		NewValues:  m.NewValues,
		Result:     m.Result,
		IPAddress:  m.IPAddress,
		RequestID:  m.RequestID,
		CreatedAt:  m.CreatedAt,
	}
}

type lister interface {
	ListForBusiness(ctx context.Context, businessID uuid.UUID, q pagination.Query) (*pagination.Result[models.AuditLog], error)
}

// Service exposes audit reads to controllers.
type Service interface {
	List(ctx context.Context, businessID uuid.UUID, q pagination.Query) (*pagination.Result[LogDTO], error)
}

type service struct {
	repo lister
}

func NewService(repo lister) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("audit repository required")
	}
	return &service{repo: repo}, nil
}

func (s *service) List(ctx context.Context, businessID uuid.UUID, q pagination.Query) (*pagination.Result[LogDTO], error) {
	res, err := s.repo.ListForBusiness(ctx, businessID, q)
	if err != nil {
		if pkgerrors.As(err) != nil {
			return nil, err
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "list audit logs")
	}
	return pagination.MapResult(res, FromModel), nil
}
