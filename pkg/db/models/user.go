package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// User is a staff identity. Users are deactivated, never hard deleted.
type User struct {
	ID                    uuid.UUID  `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	Email                 string     `gorm:"column:email;type:text;not null;uniqueIndex"`
	PasswordHash          string     `gorm:"column:password_hash;not null"`
	FirstName             string     `gorm:"column:first_name;not null"`
	LastName              string     `gorm:"column:last_name;not null"`
	BusinessID            *uuid.UUID `gorm:"column:business_id;type:uuid"`
	RoleID                *uuid.UUID `gorm:"column:role_id;type:uuid"`
	Role                  *Role      `gorm:"foreignKey:RoleID"`
	PasswordResetRequired bool       `gorm:"column:password_reset_required;not null;default:false"`
	IsActive              bool       `gorm:"column:is_active;not null;default:true"`
	LastLoginAt           *time.Time `gorm:"column:last_login_at"`
	CreatedAt             time.Time  `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt             time.Time  `gorm:"column:updated_at;autoUpdateTime"`
}

func (u *User) BeforeCreate(*gorm.DB) error {
	ensureID(&u.ID)
	return nil
}

// RoleName returns the primary role name, empty when none is assigned.
func (u *User) RoleName() string {
	if u == nil || u.Role == nil {
		return ""
	}
	return u.Role.Name
}
