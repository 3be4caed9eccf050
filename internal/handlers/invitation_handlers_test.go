package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"edumart2/internal/authz"
	"edumart2/internal/caching"
	"edumart2/internal/models"
	"edumart2/internal/services"
)

type stubInvitationSvc struct {
	services.InvitationService
	createdReq *services.CreateInvitationRequest
	createInv  *models.Invitation
	createErr  error
	acceptErr  error
}

func (s *stubInvitationSvc) Create(ctx context.Context, actor authz.AuthContext, req *services.CreateInvitationRequest) (*models.Invitation, string, error) {
	s.createdReq = req
	if s.createErr != nil {
		return nil, "", s.createErr
	}
	return s.createInv, "opaque-token", nil
}

func (s *stubInvitationSvc) Accept(ctx context.Context, token string, callerID *uuid.UUID, callerEmail string) (*services.AcceptResult, error) {
	return nil, s.acceptErr
}

type stubTenantSvc struct {
	services.TenantService
}

func (s *stubTenantSvc) GetByID(ctx context.Context, id uuid.UUID) (*models.Tenant, error) {
	return &models.Tenant{ID: id, Name: "Springfield High", Slug: "springfield"}, nil
}

// countingCache tracks rate-limit counters per key in memory.
type countingCache struct {
	caching.CacheService
	counts map[string]int
}

func (s *countingCache) IsRateLimited(ctx context.Context, key string, limit int, window time.Duration) (bool, error) {
	return s.counts[key] >= limit, nil
}

func (s *countingCache) IncrementRateLimit(ctx context.Context, key string, window time.Duration) error {
	s.counts[key]++
	return nil
}

func performAccept(h *InvitationHandlers, body string) *httptest.ResponseRecorder {
	e := echo.New()
	req := httptest.NewRequest(http.MethodPost, "/v1/invitations/accept", strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	if err := h.Accept(c); err != nil {
		e.HTTPErrorHandler(err, c)
	}
	return rec
}

func performCreate(h *InvitationHandlers, orgID string, body string) *httptest.ResponseRecorder {
	e := echo.New()
	req := httptest.NewRequest(http.MethodPost, "/v1/orgs/"+orgID+"/invitations", strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.SetParamNames("orgId")
	c.SetParamValues(orgID)
	if err := h.Create(c); err != nil {
		e.HTTPErrorHandler(err, c)
	}
	return rec
}

func TestAcceptThrottlesRepeatedAttempts(t *testing.T) {
	svc := &stubInvitationSvc{acceptErr: services.ErrInvalidOrExpiredToken}
	cache := &countingCache{counts: map[string]int{}}
	h := NewInvitationHandlers(svc, &stubTenantSvc{}, &stubUserRepo{}, cache, "http://localhost:8080")

	body := `{"token":"bogus","email":"bart@springfield.edu"}`

	// All requests in this test share httptest's fixed client address, so
	// they land on one counter.
	for i := 0; i < acceptRateLimit; i++ {
		rec := performAccept(h, body)
		assert.Equal(t, http.StatusNotFound, rec.Code, "attempt %d should reach the service", i+1)
	}

	rec := performAccept(h, body)
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)

	// Rejected requests stop at the limiter and are not counted twice.
	assert.Equal(t, acceptRateLimit, cache.counts["invite_accept:192.0.2.1"])
}

func TestAcceptCountsSuccessfulLookupsToo(t *testing.T) {
	svc := &stubInvitationSvc{acceptErr: services.ErrEmailMismatch}
	cache := &countingCache{counts: map[string]int{}}
	h := NewInvitationHandlers(svc, &stubTenantSvc{}, &stubUserRepo{}, cache, "http://localhost:8080")

	rec := performAccept(h, `{"token":"bogus","email":"bart@springfield.edu"}`)
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Equal(t, 1, cache.counts["invite_accept:192.0.2.1"])
}

func TestCreateDerivesOrganizationFromPath(t *testing.T) {
	orgID := uuid.New()
	svc := &stubInvitationSvc{createInv: &models.Invitation{
		ID:        uuid.New(),
		TenantID:  orgID,
		Email:     "lisa@springfield.edu",
		Role:      models.RoleStudent,
		ExpiresAt: time.Now().Add(7 * 24 * time.Hour),
	}}
	h := NewInvitationHandlers(svc, &stubTenantSvc{}, &stubUserRepo{}, &countingCache{counts: map[string]int{}}, "http://localhost:8080")

	body := `{"email":"lisa@springfield.edu","role":"student"}`
	rec := performCreate(h, orgID.String(), body)

	assert.Equal(t, http.StatusCreated, rec.Code)
	require.NotNil(t, svc.createdReq)
	assert.Equal(t, orgID, svc.createdReq.TenantID)
}

func TestCreateRejectsBodyPathOrganizationMismatch(t *testing.T) {
	svc := &stubInvitationSvc{}
	h := NewInvitationHandlers(svc, &stubTenantSvc{}, &stubUserRepo{}, &countingCache{counts: map[string]int{}}, "http://localhost:8080")

	payload, _ := json.Marshal(map[string]string{
		"email":           "lisa@springfield.edu",
		"role":            models.RoleStudent,
		"organization_id": uuid.New().String(),
	})
	rec := performCreate(h, uuid.New().String(), string(payload))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "does not match the request path")
	assert.Nil(t, svc.createdReq)
}

func TestCreateRejectsMalformedOrganizationID(t *testing.T) {
	svc := &stubInvitationSvc{}
	h := NewInvitationHandlers(svc, &stubTenantSvc{}, &stubUserRepo{}, &countingCache{counts: map[string]int{}}, "http://localhost:8080")

	rec := performCreate(h, "not-a-uuid", `{"email":"lisa@springfield.edu","role":"student"}`)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "Invalid UUID format")
	assert.Nil(t, svc.createdReq)
}
