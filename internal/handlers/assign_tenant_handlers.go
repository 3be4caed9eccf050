package handlers

import (
	"crypto/subtle"
	"errors"
	"log"
	"net/http"

	"github.com/labstack/echo/v4"

	"edumart2/internal/caching"
	"edumart2/internal/common"
	"edumart2/internal/models"
	"edumart2/internal/repositories"
	"edumart2/internal/services"
)

// AssignTenantHandlers serves the trusted server-to-server endpoint that
// binds an existing user to a tenant with a role. Callers authenticate
// with a shared secret header, not a user token.
type AssignTenantHandlers struct {
	userRepo   repositories.UserRepository
	tenantRepo repositories.TenantRepository
	auditSvc   services.AuditLogsService
	cacheSvc   caching.CacheService
	secret     string
}

func NewAssignTenantHandlers(userRepo repositories.UserRepository, tenantRepo repositories.TenantRepository, auditSvc services.AuditLogsService, cacheSvc caching.CacheService, secret string) *AssignTenantHandlers {
	return &AssignTenantHandlers{
		userRepo:   userRepo,
		tenantRepo: tenantRepo,
		auditSvc:   auditSvc,
		cacheSvc:   cacheSvc,
		secret:     secret,
	}
}

type AssignTenantRequest struct {
	UserID   string `json:"userId"`
	TenantID string `json:"tenantId"`
	Role     string `json:"role"`
}

func (h *AssignTenantHandlers) AssignTenant(c echo.Context) error {
	// Fail closed if the deployment never configured the shared secret.
	if h.secret == "" {
		log.Printf("ASSIGN_TENANT_SECRET is not configured, rejecting request")
		return common.SendConfigurationError(c)
	}

	provided := c.Request().Header.Get("x-assign-tenant-secret")
	if subtle.ConstantTimeCompare([]byte(provided), []byte(h.secret)) != 1 {
		return common.SendAuthenticationError(c, "Invalid service secret")
	}

	var req AssignTenantRequest
	if err := c.Bind(&req); err != nil {
		return common.SendValidationError(c, "Invalid request body", nil)
	}

	userID, err := common.ValidateUUID(req.UserID, "user_id")
	if err != nil {
		return common.SendValidationError(c, err.Error(), nil)
	}
	tenantID, err := common.ValidateUUID(req.TenantID, "tenant_id")
	if err != nil {
		return common.SendValidationError(c, err.Error(), nil)
	}
	if !models.ValidRole(req.Role) || req.Role == models.RoleSuperAdmin {
		return common.SendValidationError(c, "Invalid role", map[string]string{"role": req.Role})
	}

	ctx := c.Request().Context()

	if _, err := h.tenantRepo.GetByID(ctx, tenantID); err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return common.SendNotFoundError(c, "tenant")
		}
		return common.SendUpstreamError(c, "tenant_lookup")
	}

	if err := h.userRepo.AssignTenant(ctx, userID, tenantID, req.Role); err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return common.SendNotFoundError(c, "user")
		}
		return common.SendUpstreamError(c, "tenant_assignment")
	}

	// The permission cache may hold the user's old role.
	if err := h.cacheSvc.InvalidateUser(ctx, userID); err != nil {
		log.Printf("Failed to invalidate permission cache for user %s: %v", userID, err)
	}

	if err := h.auditSvc.LogActivity(ctx, &tenantID, models.AuditTenantAssigned, "user", userID.String(), nil, models.JSONB{
		"role": req.Role,
	}); err != nil {
		log.Printf("Failed to write audit log for tenant assignment %s: %v", userID, err)
	}

	return c.JSON(http.StatusOK, map[string]interface{}{"success": true})
}
