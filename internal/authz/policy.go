package authz

import (
	"github.com/google/uuid"

	"edumart2/internal/models"
)

// DenyReason is a stable discriminant callers can branch on.
type DenyReason string

const (
	DenyNotAuthenticated  DenyReason = "NotAuthenticated"
	DenyRoleMismatch      DenyReason = "RoleMismatch"
	DenyPermissionMissing DenyReason = "PermissionMissing"
	DenyTenantMismatch    DenyReason = "TenantMismatch"
)

// AuthContext is the caller's resolved identity. It is built once per request
// from token claims and passed explicitly into every authorization call; the
// evaluator never reads ambient state.
type AuthContext struct {
	UserID          uuid.UUID
	TenantID        *uuid.UUID
	Role            string
	Permissions     []string
	IsAuthenticated bool
}

// IsSuperAdmin reports whether the context is a platform super-admin: an
// admin-role identity with no tenant binding.
func (c AuthContext) IsSuperAdmin() bool {
	if !c.IsAuthenticated {
		return false
	}
	if c.Role == models.RoleSuperAdmin {
		return true
	}
	return c.Role == models.RoleAdmin && c.TenantID == nil
}

// Resource describes the target of an action.
type Resource struct {
	Type     string
	OwnerID  uuid.UUID
	TenantID *uuid.UUID
}

// Decision is the evaluator's verdict. Reason is set only on deny.
type Decision struct {
	Allowed bool
	Reason  DenyReason
}

func allow() Decision            { return Decision{Allowed: true} }
func deny(r DenyReason) Decision { return Decision{Reason: r} }

// writeActions classifies actions that mutate tenant-scoped state.
var writeActions = map[string]bool{
	"create": true,
	"update": true,
	"delete": true,
	"invite": true,
	"revoke": true,
}

// Authorize decides allow/deny for an action on a resource. It is pure and
// deterministic: identical inputs always yield the identical decision.
func Authorize(ctx AuthContext, action string, res Resource) Decision {
	if !ctx.IsAuthenticated {
		return deny(DenyNotAuthenticated)
	}
	if ctx.IsSuperAdmin() {
		return allow()
	}
	if !models.ValidRole(ctx.Role) {
		return deny(DenyRoleMismatch)
	}

	// Any write to a tenant-scoped resource must stay inside the caller's
	// tenant. Checked before permission strings so a cross-tenant admin gets
	// TenantMismatch, not PermissionMissing.
	if writeActions[action] && res.TenantID != nil {
		if ctx.TenantID == nil || *ctx.TenantID != *res.TenantID {
			return deny(DenyTenantMismatch)
		}
	}

	required := res.Type + "." + action
	for _, p := range ctx.Permissions {
		if p == required {
			return allow()
		}
	}

	// Attribute-based fallbacks: self-service update, tenant co-member read.
	if action == "update" && res.OwnerID != uuid.Nil && res.OwnerID == ctx.UserID {
		return allow()
	}
	if action == "read" && res.TenantID != nil && ctx.TenantID != nil && *res.TenantID == *ctx.TenantID {
		return allow()
	}

	return deny(DenyPermissionMissing)
}
