package handlers

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"edumart2/internal/authz"
	"edumart2/internal/common"
	"edumart2/internal/models"
	"edumart2/internal/services"
)

// AuditLogsHandlers exposes the activity trail for tenant admins.
type AuditLogsHandlers struct {
	auditSvc services.AuditLogsService
}

func NewAuditLogsHandlers(auditSvc services.AuditLogsService) *AuditLogsHandlers {
	return &AuditLogsHandlers{auditSvc: auditSvc}
}

func (h *AuditLogsHandlers) List(c echo.Context) error {
	ctx := c.Request().Context()
	ac := common.GetAuthContext(ctx)

	tenantID, err := common.ValidateUUID(c.Param("orgId"), "orgId")
	if err != nil {
		return common.SendValidationError(c, err.Error(), nil)
	}
	if !ac.IsSuperAdmin() && (ac.TenantID == nil || *ac.TenantID != tenantID) {
		return common.SendAuthorizationError(c, authz.DenyTenantMismatch)
	}

	limit, offset := common.ValidatePaginationParams(
		parseIntParam(c, "limit", 50), parseIntParam(c, "offset", 0))

	filters := &models.AuditLogFilters{
		Limit:  limit,
		Offset: offset,
	}
	if action := c.QueryParam("action"); action != "" {
		filters.Action = &action
	}
	if from := c.QueryParam("from"); from != "" {
		if t, err := time.Parse(time.RFC3339, from); err == nil {
			filters.StartDate = &t
		}
	}
	if to := c.QueryParam("to"); to != "" {
		if t, err := time.Parse(time.RFC3339, to); err == nil {
			filters.EndDate = &t
		}
	}

	logs, err := h.auditSvc.List(ctx, tenantID, filters)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "Failed to list audit logs")
	}
	return c.JSON(http.StatusOK, map[string]interface{}{
		"audit_logs": logs,
		"limit":      limit,
		"offset":     offset,
	})
}

func (h *AuditLogsHandlers) GetTargetHistory(c echo.Context) error {
	ctx := c.Request().Context()
	ac := common.GetAuthContext(ctx)

	tenantID, err := common.ValidateUUID(c.Param("orgId"), "orgId")
	if err != nil {
		return common.SendValidationError(c, err.Error(), nil)
	}
	if !ac.IsSuperAdmin() && (ac.TenantID == nil || *ac.TenantID != tenantID) {
		return common.SendAuthorizationError(c, authz.DenyTenantMismatch)
	}

	targetType := c.Param("targetType")
	targetID := c.Param("targetId")
	if targetType == "" || targetID == "" {
		return common.SendValidationError(c, "targetType and targetId are required", nil)
	}

	limit, offset := common.ValidatePaginationParams(
		parseIntParam(c, "limit", 50), parseIntParam(c, "offset", 0))

	logs, err := h.auditSvc.GetTargetHistory(ctx, tenantID, targetType, targetID, limit, offset)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "Failed to load target history")
	}
	return c.JSON(http.StatusOK, map[string]interface{}{
		"audit_logs": logs,
		"limit":      limit,
		"offset":     offset,
	})
}
