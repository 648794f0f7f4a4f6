package domain

import "github.com/google/uuid"

type Role string

const (
	RoleAdmin  Role = "admin"
	RoleStaff  Role = "staff"
	RoleMentor Role = "mentor"
)

// Scope identifies the principal a repository call acts for. Every
// ownership-scoped query filters on it.
type Scope struct {
	TenantID uuid.UUID
	UserID   uuid.UUID
	Role     Role
}

// TenantWide reports whether the principal may act on records owned by other
// users of the same tenant.
func (s Scope) TenantWide() bool {
	return s.Role == RoleAdmin || s.Role == RoleStaff
}
