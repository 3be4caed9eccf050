package common

import (
	"context"
	"fmt"
	"net/http"
	"regexp"
	"strings"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"edumart2/internal/authz"
)

type contextKey string

const (
	UserIDKey      contextKey = "user_id"
	TenantIDKey    contextKey = "tenant_id"
	AuthContextKey contextKey = "auth_context"
)

// Stable error codes surfaced to callers. Clients branch on these, never on
// message text.
const (
	CodeValidation     = "VALIDATION_ERROR"
	CodeAuthentication = "AUTHENTICATION_ERROR"
	CodeAuthorization  = "AUTHORIZATION_ERROR"
	CodeNotFound       = "NOT_FOUND"
	CodeConflict       = "CONFLICT"
	CodeExpired        = "EXPIRED"
	CodeConfiguration  = "CONFIGURATION_ERROR"
	CodeUpstream       = "UPSTREAM_ERROR"
)

// ErrorResponse is the standardized error envelope. RequestID carries the
// correlation id for support traceability.
type ErrorResponse struct {
	Error struct {
		Code    string            `json:"code"`
		Message string            `json:"message"`
		Details map[string]string `json:"details,omitempty"`
	} `json:"error"`
	RequestID string `json:"request_id,omitempty"`
}

// CreateErrorResponse creates a standardized error response
func CreateErrorResponse(code string, message string, details map[string]string) *ErrorResponse {
	var resp ErrorResponse
	resp.Error.Code = code
	resp.Error.Message = message
	resp.Error.Details = details
	return &resp
}

func sendError(c echo.Context, status int, code, message string, details map[string]string) error {
	resp := CreateErrorResponse(code, message, details)
	resp.RequestID = c.Response().Header().Get(echo.HeaderXRequestID)
	return c.JSON(status, resp)
}

// SendValidationError sends a validation error response
func SendValidationError(c echo.Context, message string, details map[string]string) error {
	return sendError(c, http.StatusBadRequest, CodeValidation, message, details)
}

// SendAuthenticationError sends a 401 response
func SendAuthenticationError(c echo.Context, message string) error {
	return sendError(c, http.StatusUnauthorized, CodeAuthentication, message, nil)
}

// SendAuthorizationError sends a 403 response carrying the enumerated deny reason.
func SendAuthorizationError(c echo.Context, reason authz.DenyReason) error {
	return sendError(c, http.StatusForbidden, CodeAuthorization, "Insufficient permissions",
		map[string]string{"reason": string(reason)})
}

// SendNotFoundError sends a not found error response
func SendNotFoundError(c echo.Context, resource string) error {
	return sendError(c, http.StatusNotFound, CodeNotFound, fmt.Sprintf("%s not found", resource), nil)
}

// SendConflictError sends a 409 response with a stable conflict discriminant.
func SendConflictError(c echo.Context, discriminant, message string) error {
	return sendError(c, http.StatusConflict, CodeConflict, message,
		map[string]string{"conflict": discriminant})
}

// SendExpiredError sends a 410 response for expired invitations.
func SendExpiredError(c echo.Context, message string) error {
	return sendError(c, http.StatusGone, CodeExpired, message, nil)
}

// SendConfigurationError signals missing server configuration; the server
// fails closed rather than proceeding without config.
func SendConfigurationError(c echo.Context) error {
	return sendError(c, http.StatusInternalServerError, CodeConfiguration, "Server configuration error", nil)
}

// SendUpstreamError sends a 500 response identifying which step failed.
func SendUpstreamError(c echo.Context, step string) error {
	return sendError(c, http.StatusInternalServerError, CodeUpstream, "Operation failed",
		map[string]string{"step": step})
}

// ValidateUUID validates UUID format with comprehensive checks
func ValidateUUID(idStr string, fieldName string) (uuid.UUID, error) {
	idStr = strings.TrimSpace(idStr)
	if idStr == "" {
		return uuid.Nil, fmt.Errorf("%s is required", fieldName)
	}

	if len(idStr) != 36 {
		return uuid.Nil, fmt.Errorf("Invalid UUID format for %s: must be exactly 36 characters", fieldName)
	}

	for _, pos := range []int{8, 13, 18, 23} {
		if idStr[pos] != '-' {
			return uuid.Nil, fmt.Errorf("Invalid UUID format for %s: hyphens must be at positions 9, 14, 19, and 24", fieldName)
		}
	}

	id, err := uuid.Parse(idStr)
	if err != nil {
		return uuid.Nil, fmt.Errorf("Invalid UUID format for %s: %v", fieldName, err)
	}

	return id, nil
}

// ValidateRequiredString validates required string fields
func ValidateRequiredString(value, fieldName string) error {
	if strings.TrimSpace(value) == "" {
		return fmt.Errorf("%s is required", fieldName)
	}
	return nil
}

var emailPattern = regexp.MustCompile(`^[^@\s]+@[^@\s]+\.[^@\s]+$`)

// ValidateEmail validates email format
func ValidateEmail(email, fieldName string) error {
	if strings.TrimSpace(email) == "" {
		return fmt.Errorf("%s is required", fieldName)
	}
	if !emailPattern.MatchString(email) {
		return fmt.Errorf("%s has invalid email format", fieldName)
	}
	return nil
}

// ValidatePaginationParams validates pagination parameters
func ValidatePaginationParams(limit, offset int) (int, int) {
	if limit <= 0 {
		limit = 50
	}
	if limit > 1000 {
		limit = 1000
	}
	if offset < 0 {
		offset = 0
	}
	return limit, offset
}

// SafeString safely handles string pointer operations
func SafeString(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

// SetAuthContext stores the resolved auth context on a request context.
func SetAuthContext(ctx context.Context, ac authz.AuthContext) context.Context {
	ctx = context.WithValue(ctx, AuthContextKey, ac)
	ctx = context.WithValue(ctx, UserIDKey, ac.UserID)
	if ac.TenantID != nil {
		ctx = context.WithValue(ctx, TenantIDKey, *ac.TenantID)
	}
	return ctx
}

// GetAuthContext extracts the resolved auth context from the request context.
// Absent context yields the unauthenticated zero value.
func GetAuthContext(ctx context.Context) authz.AuthContext {
	ac, ok := ctx.Value(AuthContextKey).(authz.AuthContext)
	if !ok {
		return authz.AuthContext{}
	}
	return ac
}

// GetUserIDFromContext extracts the user ID from the request context
func GetUserIDFromContext(ctx context.Context) (uuid.UUID, bool) {
	userID, ok := ctx.Value(UserIDKey).(uuid.UUID)
	return userID, ok
}

// GetTenantIDFromContext extracts the tenant ID from the request context
func GetTenantIDFromContext(ctx context.Context) (uuid.UUID, bool) {
	tenantID, ok := ctx.Value(TenantIDKey).(uuid.UUID)
	return tenantID, ok
}
