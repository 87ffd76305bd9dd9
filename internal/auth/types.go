package auth

import "errors"

// Role is a staff authorisation tier.
type Role string

const (
	// RoleHousekeeper works cleaning tasks assigned to them.
	RoleHousekeeper Role = "housekeeper"

	// RoleFrontDesk books, checks guests in and out and handles messages.
	RoleFrontDesk Role = "front_desk"

	// RoleManager can do everything, including conference and rule changes.
	RoleManager Role = "manager"
)

// ValidRoles lists every role a token may carry.
var ValidRoles = []Role{RoleHousekeeper, RoleFrontDesk, RoleManager}

// IsValidRole reports whether r is one of ValidRoles.
func IsValidRole(r Role) bool {
	for _, v := range ValidRoles {
		if r == v {
			return true
		}
	}
	return false
}

// Errors.
var (
	ErrTokenInvalid = errors.New("invalid token")
	ErrForbidden    = errors.New("insufficient permissions")
)
