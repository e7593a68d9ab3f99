package domain

import "github.com/google/uuid"

// Role is the coarse authorization level carried in access tokens.
type Role string

const (
	RoleResident Role = "resident"
	RoleManager  Role = "manager"
	RoleAdmin    Role = "admin"
)

// IsValid reports whether the role is one of the known roles.
func (r Role) IsValid() bool {
	switch r {
	case RoleResident, RoleManager, RoleAdmin:
		return true
	}
	return false
}

// CanModerate reports whether the role may approve members and update maintenance requests.
func (r Role) CanModerate() bool {
	return r == RoleManager || r == RoleAdmin
}

// Principal is an authenticated identity as established by a verified token.
type Principal struct {
	UserID uuid.UUID
	Role   Role
}
