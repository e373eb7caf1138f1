package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"gorm.io/gorm"
)

// Role is a named bundle of scopes. A nil BusinessID marks a system role
// shared by every tenant.
type Role struct {
	ID          uuid.UUID      `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	BusinessID  *uuid.UUID     `gorm:"column:business_id;type:uuid"`
	Name        string         `gorm:"column:name;not null"`
	Description *string        `gorm:"column:description"`
	Scopes      pq.StringArray `gorm:"column:scopes;type:text[];not null"`
	IsSystem    bool           `gorm:"column:is_system;not null;default:false"`
	CreatedAt   time.Time      `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt   time.Time      `gorm:"column:updated_at;autoUpdateTime"`
}

func (r *Role) BeforeCreate(*gorm.DB) error {
	ensureID(&r.ID)
	return nil
}

// UserRole is an additional role assignment on top of the user's primary role.
type UserRole struct {
	UserID    uuid.UUID `gorm:"column:user_id;type:uuid;primaryKey"`
	RoleID    uuid.UUID `gorm:"column:role_id;type:uuid;primaryKey"`
	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime"`
}

func (UserRole) TableName() string { return "user_roles" }
