package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"edumart2/internal/caching"
	"edumart2/internal/models"
	"edumart2/internal/repositories"
	"edumart2/internal/services"
)

// Stubs embed their interface and override only the methods the assign
// tenant flow touches.

type stubUserRepo struct {
	repositories.UserRepository
	assignErr      error
	assignedUser   uuid.UUID
	assignedTenant uuid.UUID
	assignedRole   string
}

func (s *stubUserRepo) AssignTenant(ctx context.Context, id, tenantID uuid.UUID, role string) error {
	if s.assignErr != nil {
		return s.assignErr
	}
	s.assignedUser = id
	s.assignedTenant = tenantID
	s.assignedRole = role
	return nil
}

type stubTenantRepo struct {
	repositories.TenantRepository
	getErr error
}

func (s *stubTenantRepo) GetByID(ctx context.Context, id uuid.UUID) (*models.Tenant, error) {
	if s.getErr != nil {
		return nil, s.getErr
	}
	return &models.Tenant{ID: id, Name: "Springfield High", Slug: "springfield"}, nil
}

type stubAuditSvc struct {
	services.AuditLogsService
	entries int
}

func (s *stubAuditSvc) LogActivity(ctx context.Context, tenantID *uuid.UUID, action, targetType, targetID string, actor *uuid.UUID, details models.JSONB) error {
	s.entries++
	return nil
}

type stubCache struct {
	caching.CacheService
}

func (s *stubCache) InvalidateUser(ctx context.Context, userID uuid.UUID) error { return nil }

func performAssignTenant(h *AssignTenantHandlers, secret string, body string) *httptest.ResponseRecorder {
	e := echo.New()
	req := httptest.NewRequest(http.MethodPost, "/api/assignTenant", strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	if secret != "" {
		req.Header.Set("x-assign-tenant-secret", secret)
	}
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	if err := h.AssignTenant(c); err != nil {
		e.HTTPErrorHandler(err, c)
	}
	return rec
}

func validAssignBody(userID, tenantID uuid.UUID) string {
	payload, _ := json.Marshal(map[string]string{
		"userId":   userID.String(),
		"tenantId": tenantID.String(),
		"role":      models.RoleTeacher,
	})
	return string(payload)
}

func TestAssignTenantRejectsBadSecret(t *testing.T) {
	userRepo := &stubUserRepo{}
	h := NewAssignTenantHandlers(userRepo, &stubTenantRepo{}, &stubAuditSvc{}, &stubCache{}, "expected-secret")

	rec := performAssignTenant(h, "wrong-secret", validAssignBody(uuid.New(), uuid.New()))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, uuid.Nil, userRepo.assignedUser)
}

func TestAssignTenantFailsClosedWithoutConfiguredSecret(t *testing.T) {
	h := NewAssignTenantHandlers(&stubUserRepo{}, &stubTenantRepo{}, &stubAuditSvc{}, &stubCache{}, "")

	rec := performAssignTenant(h, "anything", validAssignBody(uuid.New(), uuid.New()))
	assert.Equal(t, http.StatusInternalServerError, rec.Code)

	var resp map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	errBody := resp["error"].(map[string]interface{})
	assert.Equal(t, "CONFIGURATION_ERROR", errBody["code"])
}

func TestAssignTenantRejectsMalformedUUID(t *testing.T) {
	h := NewAssignTenantHandlers(&stubUserRepo{}, &stubTenantRepo{}, &stubAuditSvc{}, &stubCache{}, "s3cret")

	body := `{"userId":"not-a-uuid","tenantId":"` + uuid.New().String() + `","role":"teacher"}`
	rec := performAssignTenant(h, "s3cret", body)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "Invalid UUID format")
}

func TestAssignTenantRejectsUnknownRole(t *testing.T) {
	h := NewAssignTenantHandlers(&stubUserRepo{}, &stubTenantRepo{}, &stubAuditSvc{}, &stubCache{}, "s3cret")

	body := `{"userId":"` + uuid.New().String() + `","tenantId":"` + uuid.New().String() + `","role":"wizard"}`
	rec := performAssignTenant(h, "s3cret", body)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestAssignTenantUnknownTenant(t *testing.T) {
	h := NewAssignTenantHandlers(&stubUserRepo{}, &stubTenantRepo{getErr: repositories.ErrNotFound}, &stubAuditSvc{}, &stubCache{}, "s3cret")

	rec := performAssignTenant(h, "s3cret", validAssignBody(uuid.New(), uuid.New()))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestAssignTenantUnknownUser(t *testing.T) {
	h := NewAssignTenantHandlers(&stubUserRepo{assignErr: repositories.ErrNotFound}, &stubTenantRepo{}, &stubAuditSvc{}, &stubCache{}, "s3cret")

	rec := performAssignTenant(h, "s3cret", validAssignBody(uuid.New(), uuid.New()))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestAssignTenantSuccess(t *testing.T) {
	userRepo := &stubUserRepo{}
	audit := &stubAuditSvc{}
	h := NewAssignTenantHandlers(userRepo, &stubTenantRepo{}, audit, &stubCache{}, "s3cret")

	userID := uuid.New()
	tenantID := uuid.New()
	rec := performAssignTenant(h, "s3cret", validAssignBody(userID, tenantID))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, userID, userRepo.assignedUser)
	assert.Equal(t, tenantID, userRepo.assignedTenant)
	assert.Equal(t, models.RoleTeacher, userRepo.assignedRole)
	assert.Equal(t, 1, audit.entries)
}
