package models

import (
	"time"

	"gorm.io/gorm"
)

// Role names a dashboard role. Managers see every staff member's rows;
// the team roles are restricted to their allow-list.
type Role string

const (
	RoleManager   Role = "manager"
	RoleMarketing Role = "marketing"
	RoleRnD       Role = "rnd"
	RoleSales     Role = "sales"
	RoleCSKH      Role = "cskh"
)

// Valid reports whether the role is one of the known dashboard roles.
func (r Role) Valid() bool {
	switch r {
	case RoleManager, RoleMarketing, RoleRnD, RoleSales, RoleCSKH:
		return true
	}
	return false
}

// User represents a dashboard account.
type User struct {
	ID          uint64 `gorm:"type:bigint;primaryKey" json:"id"`
	Username    string `gorm:"uniqueIndex;not null" json:"username"`
	Password    string `gorm:"not null" json:"-"` // bcrypt hash, never exposed
	DisplayName string `json:"display_name"`
	Role        Role   `gorm:"index;not null" json:"role"`
	Team        string `json:"team"`
	IsActive    bool   `gorm:"default:true" json:"is_active"`

	// AllowedStaff restricts which staff members' order rows this user
	// may see. Managers always see everything.
	AllowedStaff []string `gorm:"serializer:json" json:"allowed_staff,omitempty"`

	// Security fields
	LastLogin     *time.Time `json:"last_login,omitempty"`
	LoginAttempts int        `gorm:"default:0" json:"-"`
	LockedUntil   *time.Time `json:"-"`

	// Timestamps
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`
}

// ColumnPermission maps a role to the column keys it may see on one view.
// A missing row for a (role, view) pair means the view's full column set.
type ColumnPermission struct {
	ID      uint64   `gorm:"type:bigint;primaryKey" json:"id"`
	Role    Role     `gorm:"uniqueIndex:idx_perm_role_view" json:"role"`
	View    string   `gorm:"uniqueIndex:idx_perm_role_view" json:"view"`
	Columns []string `gorm:"serializer:json" json:"columns"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// ToUserInfo converts User to UserInfo.
func (u *User) ToUserInfo() *UserInfo {
	return &UserInfo{
		ID:           u.ID,
		Username:     u.Username,
		DisplayName:  u.DisplayName,
		Role:         u.Role,
		Team:         u.Team,
		AllowedStaff: u.AllowedStaff,
	}
}
