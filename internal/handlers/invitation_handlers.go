package handlers

import (
	"errors"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"edumart2/internal/caching"
	"edumart2/internal/common"
	"edumart2/internal/repositories"
	"edumart2/internal/services"
)

const (
	acceptRateLimit       = 10
	acceptRateLimitWindow = time.Minute
)

// InvitationHandlers exposes the invitation lifecycle over HTTP. Accept is
// public (token-bearing) and rate limited by client IP; the rest sit
// behind JWT auth.
type InvitationHandlers struct {
	invitationSvc services.InvitationService
	tenantSvc     services.TenantService
	userRepo      repositories.UserRepository
	cacheSvc      caching.CacheService
	acceptBaseURL string
}

func NewInvitationHandlers(invitationSvc services.InvitationService, tenantSvc services.TenantService, userRepo repositories.UserRepository, cacheSvc caching.CacheService, acceptBaseURL string) *InvitationHandlers {
	return &InvitationHandlers{
		invitationSvc: invitationSvc,
		tenantSvc:     tenantSvc,
		userRepo:      userRepo,
		cacheSvc:      cacheSvc,
		acceptBaseURL: acceptBaseURL,
	}
}

func (h *InvitationHandlers) Create(c echo.Context) error {
	ctx := c.Request().Context()
	ac := common.GetAuthContext(ctx)

	var req services.CreateInvitationRequest
	if err := c.Bind(&req); err != nil {
		return common.SendValidationError(c, "Invalid request body", nil)
	}
	if err := common.ValidateEmail(req.Email, "email"); err != nil {
		return common.SendValidationError(c, err.Error(), nil)
	}

	// The route's organization is authoritative. A body organization_id is
	// accepted only when it agrees with the path.
	orgID, err := common.ValidateUUID(c.Param("orgId"), "orgId")
	if err != nil {
		return common.SendValidationError(c, err.Error(), nil)
	}
	if req.TenantID != uuid.Nil && req.TenantID != orgID {
		return common.SendValidationError(c, "organization_id does not match the request path", nil)
	}
	req.TenantID = orgID

	inv, token, err := h.invitationSvc.Create(ctx, ac, &req)
	if err != nil {
		var authErr *services.AuthorizationError
		switch {
		case errors.As(err, &authErr):
			return common.SendAuthorizationError(c, authErr.Reason)
		case errors.Is(err, services.ErrDuplicateMember):
			return common.SendConflictError(c, "member_exists", err.Error())
		case errors.Is(err, services.ErrDuplicatePendingInvite):
			return common.SendConflictError(c, "pending_invitation", err.Error())
		case errors.Is(err, services.ErrInvalidRole):
			return common.SendValidationError(c, err.Error(), nil)
		case errors.Is(err, services.ErrTenantNotFound):
			return common.SendNotFoundError(c, "organization")
		default:
			return echo.NewHTTPError(http.StatusInternalServerError, "Failed to create invitation")
		}
	}

	var orgName string
	if org, err := h.tenantSvc.GetByID(ctx, inv.TenantID); err == nil {
		orgName = org.Name
	}

	return c.JSON(http.StatusCreated, map[string]interface{}{
		"invitation": map[string]interface{}{
			"id":           inv.ID,
			"email":        inv.Email,
			"role":         inv.Role,
			"organization": orgName,
			"expires_at":   inv.ExpiresAt,
			"accept_url":   fmt.Sprintf("%s/invitations/accept?token=%s", h.acceptBaseURL, token),
		},
	})
}

type AcceptInvitationRequest struct {
	Token string `json:"token"`
	Email string `json:"email"`
}

// Accept handles both anonymous and authenticated callers. The response
// body is a discriminated union: success, requires-signup, or error.
func (h *InvitationHandlers) Accept(c echo.Context) error {
	ctx := c.Request().Context()

	rateKey := "invite_accept:" + c.RealIP()
	limited, err := h.cacheSvc.IsRateLimited(ctx, rateKey, acceptRateLimit, acceptRateLimitWindow)
	if err == nil && limited {
		return echo.NewHTTPError(http.StatusTooManyRequests, "Too many attempts, try again later")
	}
	// Every attempt counts against the window, including rejected ones.
	// A redis failure here must not block accepts.
	if err := h.cacheSvc.IncrementRateLimit(ctx, rateKey, acceptRateLimitWindow); err != nil {
		log.Printf("Failed to count invite accept attempt: %v", err)
	}

	var req AcceptInvitationRequest
	if err := c.Bind(&req); err != nil {
		return common.SendValidationError(c, "Invalid request body", nil)
	}
	if req.Token == "" {
		req.Token = c.QueryParam("token")
	}
	if req.Token == "" {
		return common.SendValidationError(c, "token is required", nil)
	}

	// Anonymous callers supply their email with the token; authenticated
	// callers are matched against their account email.
	var callerID *uuid.UUID
	callerEmail := req.Email

	ac := common.GetAuthContext(ctx)
	if ac.IsAuthenticated {
		user, err := h.userRepo.GetByID(ctx, ac.UserID)
		if err != nil {
			return common.SendAuthenticationError(c, "User not authenticated")
		}
		id := user.ID
		callerID = &id
		callerEmail = user.Email
	}

	result, err := h.invitationSvc.Accept(ctx, req.Token, callerID, callerEmail)
	if err != nil {
		switch {
		case errors.Is(err, services.ErrInvitationExpired):
			return c.JSON(http.StatusGone, map[string]interface{}{
				"success": false,
				"error":   "invitation_expired",
			})
		case errors.Is(err, services.ErrInvalidOrExpiredToken):
			return c.JSON(http.StatusNotFound, map[string]interface{}{
				"success": false,
				"error":   "invalid_token",
			})
		case errors.Is(err, services.ErrEmailMismatch):
			return c.JSON(http.StatusForbidden, map[string]interface{}{
				"success": false,
				"error":   "email_mismatch",
			})
		case errors.Is(err, services.ErrAlreadyMember):
			return c.JSON(http.StatusConflict, map[string]interface{}{
				"success": false,
				"error":   "already_member",
			})
		default:
			return echo.NewHTTPError(http.StatusInternalServerError, "Failed to accept invitation")
		}
	}

	if result.RequiresSignup {
		return c.JSON(http.StatusOK, map[string]interface{}{
			"success":        false,
			"requiresSignup": true,
			"email":          result.Email,
			"role":           result.Role,
		})
	}

	resp := map[string]interface{}{
		"success": true,
		"role":    result.Role,
	}
	if result.Organization != nil {
		resp["organization"] = result.Organization.Name
	}
	return c.JSON(http.StatusOK, resp)
}

func (h *InvitationHandlers) Revoke(c echo.Context) error {
	ctx := c.Request().Context()
	ac := common.GetAuthContext(ctx)

	tenantID, err := common.ValidateUUID(c.Param("orgId"), "orgId")
	if err != nil {
		return common.SendValidationError(c, err.Error(), nil)
	}
	invitationID, err := common.ValidateUUID(c.Param("id"), "id")
	if err != nil {
		return common.SendValidationError(c, err.Error(), nil)
	}

	if err := h.invitationSvc.Revoke(ctx, ac, tenantID, invitationID); err != nil {
		var authErr *services.AuthorizationError
		switch {
		case errors.As(err, &authErr):
			return common.SendAuthorizationError(c, authErr.Reason)
		case errors.Is(err, services.ErrInvalidOrExpiredToken), errors.Is(err, repositories.ErrNotFound):
			return common.SendNotFoundError(c, "invitation")
		default:
			return echo.NewHTTPError(http.StatusInternalServerError, "Failed to revoke invitation")
		}
	}
	return c.JSON(http.StatusOK, map[string]interface{}{"success": true})
}

func (h *InvitationHandlers) List(c echo.Context) error {
	ctx := c.Request().Context()
	ac := common.GetAuthContext(ctx)

	tenantID, err := common.ValidateUUID(c.Param("orgId"), "orgId")
	if err != nil {
		return common.SendValidationError(c, err.Error(), nil)
	}

	limit, offset := common.ValidatePaginationParams(
		parseIntParam(c, "limit", 50), parseIntParam(c, "offset", 0))

	invitations, err := h.invitationSvc.ListByTenant(ctx, ac, tenantID, limit, offset)
	if err != nil {
		var authErr *services.AuthorizationError
		if errors.As(err, &authErr) {
			return common.SendAuthorizationError(c, authErr.Reason)
		}
		return echo.NewHTTPError(http.StatusInternalServerError, "Failed to list invitations")
	}

	return c.JSON(http.StatusOK, map[string]interface{}{
		"invitations": invitations,
		"limit":       limit,
		"offset":      offset,
	})
}
