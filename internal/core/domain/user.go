// internal/core/domain/user.go
package domain

import (
	"time"

	"github.com/google/uuid"
)

// Role represents a staff role
type Role string

// Role constants
const (
	RoleCashier    Role = "CASHIER"
	RoleManager    Role = "MANAGER"
	RoleSuperAdmin Role = "SUPER_ADMIN"
)

// Valid reports whether the role is a known staff role.
func (r Role) Valid() bool {
	switch r {
	case RoleCashier, RoleManager, RoleSuperAdmin:
		return true
	}
	return false
}

// CanRecordSales reports whether the role may commit sales.
func (r Role) CanRecordSales() bool {
	switch r {
	case RoleCashier, RoleManager, RoleSuperAdmin:
		return true
	}
	return false
}

// CanViewAllSales reports whether the role may read sales recorded by other
// staff. Cashiers are always scoped to their own sales.
func (r Role) CanViewAllSales() bool {
	return r == RoleManager || r == RoleSuperAdmin
}

// CanManageProducts reports whether the role may create, edit, or restock
// products. Cashiers sell stock but never change it directly.
func (r Role) CanManageProducts() bool {
	return r == RoleManager || r == RoleSuperAdmin
}

// User is a staff record. Authentication lives outside this service; the
// session layer hands us a resolved identity per request.
type User struct {
	ID        uuid.UUID `json:"id"`
	Name      string    `json:"name"`
	Username  string    `json:"username"`
	Role      Role      `json:"role"`
	CreatedAt time.Time `json:"created_at"`
}

// Caller is the per-request identity supplied by the session resolver.
type Caller struct {
	UserID uuid.UUID
	Name   string
	Role   Role
}

// Anonymous reports whether no identity was resolved for the request.
func (c Caller) Anonymous() bool {
	return c.UserID == uuid.Nil
}
