package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/bizhub-backend/pkg/enums"
	"github.com/angelmondragon/bizhub-backend/pkg/types"
)

// AuditLog is an append-only record of a mutation or security event.
type AuditLog struct {
	ID         uuid.UUID         `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	BusinessID *uuid.UUID        `gorm:"column:business_id;type:uuid"`
	ActorID    *uuid.UUID        `gorm:"column:actor_id;type:uuid"`
	Action     string            `gorm:"column:action;not null"`
	EntityType string            `gorm:"column:entity_type;not null"`
	EntityID   *string           `gorm:"column:entity_id"`
	OldValues  types.JSON        `gorm:"column:old_values;type:jsonb"`
	NewValues  types.JSON        `gorm:"column:new_values;type:jsonb"`
	Result     enums.AuditResult `gorm:"column:result;not null"`
	IPAddress  *string           `gorm:"column:ip_address"`
	RequestID  *string           `gorm:"column:request_id"`
	CreatedAt  time.Time         `gorm:"column:created_at;autoCreateTime"`
}

func (a *AuditLog) BeforeCreate(*gorm.DB) error {
	ensureID(&a.ID)
	return nil
}
