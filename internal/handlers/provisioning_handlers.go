package handlers

import (
	"errors"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"edumart2/internal/authz"
	"edumart2/internal/common"
	"edumart2/internal/repositories"
	"edumart2/internal/services"
)

// ProvisioningHandlers exposes admin-side identity creation: students,
// teachers, staff and organizations.
type ProvisioningHandlers struct {
	provisioningSvc services.ProvisioningService
	credRepo        repositories.CredentialRepository
	userRepo        repositories.UserRepository
}

func NewProvisioningHandlers(provisioningSvc services.ProvisioningService, credRepo repositories.CredentialRepository, userRepo repositories.UserRepository) *ProvisioningHandlers {
	return &ProvisioningHandlers{
		provisioningSvc: provisioningSvc,
		credRepo:        credRepo,
		userRepo:        userRepo,
	}
}

func sendProvisioningError(c echo.Context, err error) error {
	var (
		authErr       *services.AuthorizationError
		validationErr *services.ValidationError
		upstreamErr   *services.UpstreamError
	)
	switch {
	case errors.As(err, &authErr):
		return common.SendAuthorizationError(c, authErr.Reason)
	case errors.As(err, &validationErr):
		return common.SendValidationError(c, validationErr.Error(), map[string]string{
			"missing": strings.Join(validationErr.Missing, ","),
		})
	case errors.Is(err, services.ErrDuplicateMember):
		return common.SendConflictError(c, "member_exists", err.Error())
	case errors.As(err, &upstreamErr):
		return common.SendUpstreamError(c, upstreamErr.Step)
	default:
		return echo.NewHTTPError(http.StatusInternalServerError, "Provisioning failed")
	}
}

func (h *ProvisioningHandlers) CreateStudent(c echo.Context) error {
	ctx := c.Request().Context()
	ac := common.GetAuthContext(ctx)

	var req services.CreateStudentRequest
	if err := c.Bind(&req); err != nil {
		return common.SendValidationError(c, "Invalid request body", nil)
	}

	user, err := h.provisioningSvc.CreateStudent(ctx, ac, &req)
	if err != nil {
		return sendProvisioningError(c, err)
	}
	return c.JSON(http.StatusCreated, map[string]interface{}{
		"success": true,
		"user_id": user.ID,
	})
}

func (h *ProvisioningHandlers) CreateTeacher(c echo.Context) error {
	ctx := c.Request().Context()
	ac := common.GetAuthContext(ctx)

	var req services.CreateTeacherRequest
	if err := c.Bind(&req); err != nil {
		return common.SendValidationError(c, "Invalid request body", nil)
	}

	user, err := h.provisioningSvc.CreateTeacher(ctx, ac, &req)
	if err != nil {
		return sendProvisioningError(c, err)
	}
	return c.JSON(http.StatusCreated, map[string]interface{}{
		"success": true,
		"user_id": user.ID,
	})
}

func (h *ProvisioningHandlers) CreateStaff(c echo.Context) error {
	ctx := c.Request().Context()
	ac := common.GetAuthContext(ctx)

	var req services.CreateStaffRequest
	if err := c.Bind(&req); err != nil {
		return common.SendValidationError(c, "Invalid request body", nil)
	}

	user, err := h.provisioningSvc.CreateStaff(ctx, ac, &req)
	if err != nil {
		return sendProvisioningError(c, err)
	}
	return c.JSON(http.StatusCreated, map[string]interface{}{
		"success": true,
		"user_id": user.ID,
	})
}

func (h *ProvisioningHandlers) CreateOrganization(c echo.Context) error {
	ctx := c.Request().Context()
	ac := common.GetAuthContext(ctx)

	var req services.CreateOrganizationRequest
	if err := c.Bind(&req); err != nil {
		return common.SendValidationError(c, "Invalid request body", nil)
	}

	tenant, err := h.provisioningSvc.CreateOrganization(ctx, ac, &req)
	if err != nil {
		var validationErr *services.ValidationError
		if !errors.As(err, &validationErr) {
			var authErr *services.AuthorizationError
			if errors.As(err, &authErr) {
				return common.SendAuthorizationError(c, authErr.Reason)
			}
			return common.SendValidationError(c, err.Error(), nil)
		}
		return sendProvisioningError(c, err)
	}
	return c.JSON(http.StatusCreated, map[string]interface{}{
		"success": true,
		"tenant":  tenant,
	})
}

// GetCredentials returns the generated login pair for a provisioned user.
// The initial password is only present until the user rotates it.
func (h *ProvisioningHandlers) GetCredentials(c echo.Context) error {
	ctx := c.Request().Context()
	ac := common.GetAuthContext(ctx)

	userID, err := common.ValidateUUID(c.Param("id"), "id")
	if err != nil {
		return common.SendValidationError(c, err.Error(), nil)
	}

	user, err := h.userRepo.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return common.SendNotFoundError(c, "user")
		}
		return echo.NewHTTPError(http.StatusInternalServerError, "Failed to load user")
	}

	// Tenant admins can only read credentials inside their own tenant.
	if !ac.IsSuperAdmin() {
		if ac.TenantID == nil || user.TenantID == nil || *ac.TenantID != *user.TenantID {
			return common.SendAuthorizationError(c, authz.DenyTenantMismatch)
		}
	}

	cred, err := h.credRepo.GetByUserID(ctx, userID)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return common.SendNotFoundError(c, "credentials")
		}
		return echo.NewHTTPError(http.StatusInternalServerError, "Failed to load credentials")
	}

	resp := map[string]interface{}{
		"user_id":          cred.UserID,
		"username":         cred.Username,
		"password_changed": cred.PasswordChanged,
	}
	if !cred.PasswordChanged && cred.InitialPassword != "" {
		resp["initial_password"] = cred.InitialPassword
	}
	return c.JSON(http.StatusOK, resp)
}
