package models

import (
	"time"

	"github.com/google/uuid"
)

// Role slugs. A user carries exactly one role at a time; role changes go
// through invitation acceptance or admin provisioning, never direct mutation.
const (
	RoleSuperAdmin = "super_admin"
	RoleAdmin      = "admin"
	RoleOwner      = "owner"
	RoleTeacher    = "teacher"
	RoleStudent    = "student"
	RoleStaff      = "staff"
	RoleMember     = "member"
)

// ValidRole reports whether slug is one of the enumerated role slugs.
func ValidRole(slug string) bool {
	switch slug {
	case RoleSuperAdmin, RoleAdmin, RoleOwner, RoleTeacher, RoleStudent, RoleStaff, RoleMember:
		return true
	}
	return false
}

type User struct {
	ID           uuid.UUID  `json:"id" db:"id"`
	TenantID     *uuid.UUID `json:"tenant_id" db:"tenant_id"` // nil => platform-level identity
	Email        string     `json:"email" db:"email"`
	PasswordHash string     `json:"-" db:"password_hash"` // Never serialize in JSON
	FirstName    string     `json:"first_name" db:"first_name"`
	LastName     string     `json:"last_name" db:"last_name"`
	Phone        *string    `json:"phone,omitempty" db:"phone"`
	Role         string     `json:"role" db:"role"`
	IsActive     bool       `json:"is_active" db:"is_active"`
	CreatedAt    time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at" db:"updated_at"`
}

// IsSuperAdmin reports whether this user is the platform super-admin: an
// admin-role identity not bound to any tenant.
func (u *User) IsSuperAdmin() bool {
	if u.Role == RoleSuperAdmin {
		return true
	}
	return u.Role == RoleAdmin && u.TenantID == nil
}
