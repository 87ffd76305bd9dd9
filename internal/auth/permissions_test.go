package auth

import "testing"

func TestHasPermission(t *testing.T) {
	tests := []struct {
		role      Role
		should    []Permission
		shouldNot []Permission
	}{
		{
			role:      RoleHousekeeper,
			should:    []Permission{PermTaskRead, PermTaskWork},
			shouldNot: []Permission{PermTaskConfer, PermStayManage, PermAuditRead},
		},
		{
			role:      RoleFrontDesk,
			should:    []Permission{PermStayRead, PermStayManage, PermTaskManage, PermMessageManage},
			shouldNot: []Permission{PermTaskConfer, PermAutomationManage, PermCabinManage},
		},
		{
			role: RoleManager,
			should: []Permission{
				PermStayRead, PermStayManage, PermCabinManage,
				PermTaskRead, PermTaskWork, PermTaskManage, PermTaskConfer,
				PermMessageManage, PermAutomationManage, PermAuditRead,
			},
		},
	}

	for _, tt := range tests {
		t.Run(string(tt.role), func(t *testing.T) {
			for _, perm := range tt.should {
				if !HasPermission(tt.role, perm) {
					t.Errorf("%s should have %s", tt.role, perm)
				}
			}
			for _, perm := range tt.shouldNot {
				if HasPermission(tt.role, perm) {
					t.Errorf("%s should NOT have %s", tt.role, perm)
				}
			}
		})
	}
}

func TestHasPermission_InvalidRole(t *testing.T) {
	if HasPermission(Role("nonexistent"), PermStayRead) {
		t.Error("unknown role should have no permissions")
	}
	if PermissionsForRole(Role("nonexistent")) != nil {
		t.Error("PermissionsForRole(unknown) should be nil")
	}
}

func TestPermissionsForRole_ReturnsCopy(t *testing.T) {
	perms := PermissionsForRole(RoleHousekeeper)
	perms[0] = PermAuditRead
	if HasPermission(RoleHousekeeper, PermAuditRead) {
		t.Error("mutating the returned slice changed the role model")
	}
}
