package handlers

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"edumart2/internal/authz"
	"edumart2/internal/common"
	"edumart2/internal/models"
	"edumart2/internal/repositories"
	"edumart2/internal/services"
)

// TenantHandlers handles organization-related HTTP requests.
type TenantHandlers struct {
	tenantService services.TenantService
}

func NewTenantHandlers(tenantService services.TenantService) *TenantHandlers {
	return &TenantHandlers{tenantService: tenantService}
}

func (h *TenantHandlers) GetTenant(c echo.Context) error {
	tenantID, err := common.ValidateUUID(c.Param("id"), "id")
	if err != nil {
		return common.SendValidationError(c, err.Error(), nil)
	}

	ctx := c.Request().Context()
	ac := common.GetAuthContext(ctx)
	if !ac.IsSuperAdmin() && (ac.TenantID == nil || *ac.TenantID != tenantID) {
		return common.SendAuthorizationError(c, authz.DenyTenantMismatch)
	}

	tenant, err := h.tenantService.GetByID(ctx, tenantID)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return common.SendNotFoundError(c, "organization")
		}
		return echo.NewHTTPError(http.StatusInternalServerError, "Failed to load organization")
	}
	return c.JSON(http.StatusOK, map[string]interface{}{"tenant": tenant})
}

func (h *TenantHandlers) ListTenants(c echo.Context) error {
	ctx := c.Request().Context()
	ac := common.GetAuthContext(ctx)
	if !ac.IsSuperAdmin() {
		return common.SendAuthorizationError(c, authz.DenyRoleMismatch)
	}

	limit, offset := common.ValidatePaginationParams(
		parseIntParam(c, "limit", 50), parseIntParam(c, "offset", 0))

	tenants, err := h.tenantService.List(ctx, limit, offset)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "Failed to list organizations")
	}
	return c.JSON(http.StatusOK, map[string]interface{}{
		"tenants": tenants,
		"limit":   limit,
		"offset":  offset,
	})
}

type UpdateTenantRequest struct {
	Name   string `json:"name"`
	Status string `json:"status"`
}

func (h *TenantHandlers) UpdateTenant(c echo.Context) error {
	ctx := c.Request().Context()
	ac := common.GetAuthContext(ctx)
	if !ac.IsSuperAdmin() {
		return common.SendAuthorizationError(c, authz.DenyRoleMismatch)
	}

	tenantID, err := common.ValidateUUID(c.Param("id"), "id")
	if err != nil {
		return common.SendValidationError(c, err.Error(), nil)
	}

	var req UpdateTenantRequest
	if err := c.Bind(&req); err != nil {
		return common.SendValidationError(c, "Invalid request body", nil)
	}

	tenant, err := h.tenantService.GetByID(ctx, tenantID)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return common.SendNotFoundError(c, "organization")
		}
		return echo.NewHTTPError(http.StatusInternalServerError, "Failed to load organization")
	}

	if req.Name != "" {
		tenant.Name = req.Name
	}
	if req.Status != "" {
		if req.Status != models.TenantStatusActive && req.Status != models.TenantStatusSuspended {
			return common.SendValidationError(c, "Invalid status", map[string]string{"status": req.Status})
		}
		tenant.Status = req.Status
	}

	if err := h.tenantService.Update(ctx, tenant); err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "Failed to update organization")
	}
	return c.JSON(http.StatusOK, map[string]interface{}{"tenant": tenant})
}
