package middleware

import (
	"log"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"edumart2/internal/common"
	"edumart2/internal/models"
	"edumart2/internal/services"
)

// AuditMiddleware records mutating HTTP requests in the activity trail.
// Logging is best effort and never changes the response.
type AuditMiddleware struct {
	auditService services.AuditLogsService
}

func NewAuditMiddleware(auditService services.AuditLogsService) *AuditMiddleware {
	return &AuditMiddleware{auditService: auditService}
}

func (m *AuditMiddleware) AuditRequest() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			err := next(c)

			method := c.Request().Method
			if method != echo.POST && method != echo.PUT && method != echo.DELETE {
				return err
			}
			path := c.Path()
			if path == "/health" || path == "/health/ready" {
				return err
			}

			ctx := c.Request().Context()
			ac := common.GetAuthContext(ctx)

			var tenantPtr, userPtr *uuid.UUID
			if ac.IsAuthenticated {
				userPtr = &ac.UserID
				tenantPtr = ac.TenantID
			}

			details := models.JSONB{
				"method": method,
				"path":   path,
				"status": c.Response().Status,
				"ip":     c.RealIP(),
			}
			if err != nil {
				details["error"] = err.Error()
			}

			if logErr := m.auditService.LogActivity(ctx, tenantPtr, "http.request", "endpoint", path, userPtr, details); logErr != nil {
				log.Printf("Failed to write request audit log for %s %s: %v", method, path, logErr)
			}
			return err
		}
	}
}
