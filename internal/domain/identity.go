package domain

import "github.com/google/uuid"

// Role is the access level carried in a bearer token.
type Role string

const (
	// RoleDriver may create trips for assigned vehicles and manage its own.
	RoleDriver Role = "driver"
	// RoleAdmin may read and manage every trip in its company.
	RoleAdmin Role = "admin"
)

// Identity is the authenticated caller, as established by the auth
// middleware from the bearer token. CompanyID is the tenant boundary:
// every query a component issues on behalf of an Identity must filter
// by it.
type Identity struct {
	DriverID  uuid.UUID
	CompanyID uuid.UUID
	Role      Role
}

// IsAdmin reports whether the identity holds the administrator role.
func (i Identity) IsAdmin() bool {
	return i.Role == RoleAdmin
}
