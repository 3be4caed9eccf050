package handlers

import (
	"errors"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
	"golang.org/x/crypto/bcrypt"

	"edumart2/internal/common"
	"edumart2/internal/models"
	"edumart2/internal/repositories"
	"edumart2/internal/services"
)

// AuthHandlers handles login, token refresh and password rotation.
type AuthHandlers struct {
	userRepo repositories.UserRepository
	credRepo repositories.CredentialRepository
	tokenSvc services.TokenService
}

func NewAuthHandlers(userRepo repositories.UserRepository, credRepo repositories.CredentialRepository, tokenSvc services.TokenService) *AuthHandlers {
	return &AuthHandlers{
		userRepo: userRepo,
		credRepo: credRepo,
		tokenSvc: tokenSvc,
	}
}

// LoginRequest accepts either a generated username or an email address.
type LoginRequest struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

// resolveLogin finds the user row plus whether they still carry the
// generated initial password.
func (h *AuthHandlers) resolveLogin(c echo.Context, req *LoginRequest) (*models.User, bool, error) {
	ctx := c.Request().Context()

	if req.Username != "" {
		cred, err := h.credRepo.GetByUsername(ctx, strings.ToLower(strings.TrimSpace(req.Username)))
		if err != nil {
			if errors.Is(err, repositories.ErrNotFound) {
				return nil, false, common.SendAuthenticationError(c, "Invalid credentials")
			}
			return nil, false, echo.NewHTTPError(http.StatusInternalServerError, "Failed to look up credentials")
		}
		user, err := h.userRepo.GetByID(ctx, cred.UserID)
		if err != nil {
			return nil, false, common.SendAuthenticationError(c, "Invalid credentials")
		}
		return user, !cred.PasswordChanged, nil
	}

	user, err := h.userRepo.FindByEmail(ctx, strings.ToLower(strings.TrimSpace(req.Email)))
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return nil, false, common.SendAuthenticationError(c, "Invalid credentials")
		}
		return nil, false, echo.NewHTTPError(http.StatusInternalServerError, "Failed to look up user")
	}

	mustChange := false
	if cred, err := h.credRepo.GetByUserID(ctx, user.ID); err == nil {
		mustChange = !cred.PasswordChanged
	}
	return user, mustChange, nil
}

func (h *AuthHandlers) Login(c echo.Context) error {
	var req LoginRequest
	if err := c.Bind(&req); err != nil {
		return common.SendValidationError(c, "Invalid request body", nil)
	}
	if req.Password == "" || (req.Username == "" && req.Email == "") {
		return common.SendValidationError(c, "username or email, and password are required", nil)
	}

	user, mustChangePassword, err := h.resolveLogin(c, &req)
	if err != nil {
		return err
	}

	if user.PasswordHash == "" {
		return common.SendAuthenticationError(c, "Account not properly initialized")
	}
	if !user.IsActive {
		return common.SendAuthenticationError(c, "Account is disabled")
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.Password)); err != nil {
		return common.SendAuthenticationError(c, "Invalid credentials")
	}

	tokens, err := h.tokenSvc.GenerateTokens(c.Request().Context(), user, mustChangePassword)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "Failed to generate tokens")
	}
	return c.JSON(http.StatusOK, tokens)
}

type RefreshRequest struct {
	RefreshToken string `json:"refresh_token"`
}

func (h *AuthHandlers) Refresh(c echo.Context) error {
	var req RefreshRequest
	if err := c.Bind(&req); err != nil || req.RefreshToken == "" {
		return common.SendValidationError(c, "refresh_token is required", nil)
	}

	tokens, err := h.tokenSvc.RefreshToken(c.Request().Context(), req.RefreshToken)
	if err != nil {
		return common.SendAuthenticationError(c, "Invalid or expired refresh token")
	}
	return c.JSON(http.StatusOK, tokens)
}

func (h *AuthHandlers) Logout(c echo.Context) error {
	var req RefreshRequest
	if err := c.Bind(&req); err != nil || req.RefreshToken == "" {
		return common.SendValidationError(c, "refresh_token is required", nil)
	}

	if err := h.tokenSvc.RevokeRefreshToken(c.Request().Context(), req.RefreshToken); err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "Failed to revoke token")
	}
	return c.JSON(http.StatusOK, map[string]interface{}{"success": true})
}

type ChangePasswordRequest struct {
	CurrentPassword string `json:"current_password"`
	NewPassword     string `json:"new_password"`
}

func (h *AuthHandlers) ChangePassword(c echo.Context) error {
	ctx := c.Request().Context()
	ac := common.GetAuthContext(ctx)
	if !ac.IsAuthenticated {
		return common.SendAuthenticationError(c, "User not authenticated")
	}

	var req ChangePasswordRequest
	if err := c.Bind(&req); err != nil {
		return common.SendValidationError(c, "Invalid request body", nil)
	}
	if req.CurrentPassword == "" || req.NewPassword == "" {
		return common.SendValidationError(c, "current_password and new_password are required", nil)
	}
	if len(req.NewPassword) < 8 {
		return common.SendValidationError(c, "new_password must be at least 8 characters", nil)
	}

	user, err := h.userRepo.GetByID(ctx, ac.UserID)
	if err != nil {
		return common.SendAuthenticationError(c, "User not authenticated")
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.CurrentPassword)); err != nil {
		return common.SendAuthenticationError(c, "Current password is incorrect")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.NewPassword), bcrypt.DefaultCost)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "Failed to hash password")
	}
	if err := h.userRepo.UpdatePasswordHash(ctx, user.ID, string(hash)); err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "Failed to update password")
	}

	// Rotation clears the stored initial password.
	if err := h.credRepo.MarkPasswordChanged(ctx, user.ID); err != nil && !errors.Is(err, repositories.ErrNotFound) {
		return echo.NewHTTPError(http.StatusInternalServerError, "Failed to update credential record")
	}

	return c.JSON(http.StatusOK, map[string]interface{}{"success": true})
}

func (h *AuthHandlers) Me(c echo.Context) error {
	ctx := c.Request().Context()
	ac := common.GetAuthContext(ctx)
	if !ac.IsAuthenticated {
		return common.SendAuthenticationError(c, "User not authenticated")
	}

	user, err := h.userRepo.GetByID(ctx, ac.UserID)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return common.SendNotFoundError(c, "user")
		}
		return echo.NewHTTPError(http.StatusInternalServerError, "Failed to load user")
	}
	return c.JSON(http.StatusOK, map[string]interface{}{"user": user})
}
