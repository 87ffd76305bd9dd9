package auth

// Permission represents a named capability.
type Permission string

// Permission constants.
const (
	PermStayRead         Permission = "stay:read"
	PermStayManage       Permission = "stay:manage"
	PermCabinManage      Permission = "cabin:manage"
	PermTaskRead         Permission = "task:read"
	PermTaskWork         Permission = "task:work"
	PermTaskManage       Permission = "task:manage"
	PermTaskConfer       Permission = "task:confer"
	PermMessageManage    Permission = "message:manage"
	PermAutomationManage Permission = "automation:manage"
	PermAuditRead        Permission = "audit:read"
)

// rolePermissions is the single source of truth for the authorisation model.
var rolePermissions = map[Role][]Permission{
	RoleHousekeeper: {
		PermTaskRead,
		PermTaskWork,
	},
	RoleFrontDesk: {
		PermStayRead,
		PermStayManage,
		PermTaskRead,
		PermTaskManage,
		PermMessageManage,
	},
	RoleManager: {
		PermStayRead,
		PermStayManage,
		PermCabinManage,
		PermTaskRead,
		PermTaskWork,
		PermTaskManage,
		PermTaskConfer,
		PermMessageManage,
		PermAutomationManage,
		PermAuditRead,
	},
}

// HasPermission returns true if the given role has the specified permission.
func HasPermission(role Role, perm Permission) bool {
	for _, p := range rolePermissions[role] {
		if p == perm {
			return true
		}
	}
	return false
}

// PermissionsForRole returns all permissions granted to a role.
// Returns nil for unknown roles.
func PermissionsForRole(role Role) []Permission {
	perms := rolePermissions[role]
	if perms == nil {
		return nil
	}
	result := make([]Permission, len(perms))
	copy(result, perms)
	return result
}
