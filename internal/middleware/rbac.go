package middleware

import (
	"context"
	"log"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"edumart2/internal/authz"
	"edumart2/internal/caching"
	"edumart2/internal/common"
	"edumart2/internal/repositories"
)

const permissionCacheTTL = 5 * time.Minute

// RBACMiddleware gates routes on permission strings. Token claims are
// advisory: for mutating permissions the durable user row is re-read and
// the context rebuilt from it, so a demoted or deactivated user loses
// access before their token expires.
type RBACMiddleware struct {
	userRepo repositories.UserRepository
	cacheSvc caching.CacheService
}

func NewRBACMiddleware(userRepo repositories.UserRepository, cacheSvc caching.CacheService) *RBACMiddleware {
	return &RBACMiddleware{
		userRepo: userRepo,
		cacheSvc: cacheSvc,
	}
}

func isWritePermission(permission string) bool {
	idx := strings.LastIndex(permission, ".")
	if idx < 0 {
		return false
	}
	switch permission[idx+1:] {
	case "create", "update", "delete", "invite", "revoke":
		return true
	}
	return false
}

func (m *RBACMiddleware) RequirePermission(permission string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			ctx := c.Request().Context()
			ac := common.GetAuthContext(ctx)
			if !ac.IsAuthenticated {
				return common.SendAuthenticationError(c, "User not authenticated")
			}

			if isWritePermission(permission) {
				verified, err := m.verifiedContext(ctx, ac)
				if err != nil {
					return common.SendAuthenticationError(c, "User not authenticated")
				}
				ac = verified
				c.SetRequest(c.Request().WithContext(common.SetAuthContext(ctx, ac)))
			}

			if ac.IsSuperAdmin() {
				return next(c)
			}
			for _, p := range ac.Permissions {
				if p == permission {
					return next(c)
				}
			}
			return common.SendAuthorizationError(c, authz.DenyPermissionMissing)
		}
	}
}

// verifiedContext rebuilds the auth context from the users table instead
// of trusting token claims. The permission set is cached briefly; role and
// tenant always come from the fresh row.
func (m *RBACMiddleware) verifiedContext(ctx context.Context, ac authz.AuthContext) (authz.AuthContext, error) {
	user, err := m.userRepo.GetByID(ctx, ac.UserID)
	if err != nil {
		return authz.AuthContext{}, err
	}
	if !user.IsActive {
		return authz.AuthContext{}, repositories.ErrNotFound
	}

	perms, err := m.cacheSvc.GetUserPermissions(ctx, user.ID)
	if err != nil || perms == nil {
		perms = authz.PermissionsForRole(user.Role)
		if err := m.cacheSvc.SetUserPermissions(ctx, user.ID, perms, permissionCacheTTL); err != nil {
			log.Printf("Failed to cache permissions for user %s: %v", user.ID, err)
		}
	}

	return authz.AuthContext{
		UserID:          user.ID,
		TenantID:        user.TenantID,
		Role:            user.Role,
		Permissions:     perms,
		IsAuthenticated: true,
	}, nil
}
