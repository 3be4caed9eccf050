package authz

import "edumart2/internal/models"

// rolePermissions is the implicit permission set carried by each role.
// Permission strings follow "{resourceType}.{action}".
var rolePermissions = map[string][]string{
	models.RoleSuperAdmin: {"*"}, // never consulted; super-admin bypasses evaluation
	models.RoleOwner: {
		"organization.read", "organization.update",
		"member.read", "member.create", "member.update", "member.invite",
		"invitation.read", "invitation.revoke",
		"student.read", "student.create", "student.update",
		"teacher.read", "teacher.create", "teacher.update",
		"staff.read", "staff.create", "staff.update",
		"credential.read",
		"audit.read",
	},
	models.RoleAdmin: {
		"organization.read",
		"member.read", "member.create", "member.update", "member.invite",
		"invitation.read", "invitation.revoke",
		"student.read", "student.create", "student.update",
		"teacher.read", "teacher.create", "teacher.update",
		"staff.read", "staff.create", "staff.update",
		"credential.read",
		"audit.read",
	},
	models.RoleTeacher: {
		"organization.read",
		"student.read",
		"member.read",
	},
	models.RoleStaff: {
		"organization.read",
		"member.read",
	},
	models.RoleStudent: {
		"organization.read",
	},
	models.RoleMember: {
		"organization.read",
	},
}

// PermissionsForRole returns a copy of the role's implicit permission set.
// Unknown roles get an empty set.
func PermissionsForRole(role string) []string {
	perms, ok := rolePermissions[role]
	if !ok {
		return nil
	}
	out := make([]string, len(perms))
	copy(out, perms)
	return out
}
