package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/google/uuid"

	"edumart2/internal/authz"
	"edumart2/internal/models"
	"edumart2/internal/repositories"
)

// InvitationExpiryWindow is the fixed validity window for new invitations.
const InvitationExpiryWindow = 7 * 24 * time.Hour

// Enumerated invitation errors. Handlers branch on these with errors.Is;
// message text is never parsed.
var (
	ErrInvalidOrExpiredToken  = errors.New("invalid or expired invitation token")
	ErrInvitationExpired      = errors.New("invitation has expired")
	ErrEmailMismatch          = errors.New("invitation was issued for a different email")
	ErrAlreadyMember          = errors.New("user is already a member of this organization")
	ErrDuplicateMember        = errors.New("a member with this email already exists in the organization")
	ErrDuplicatePendingInvite = errors.New("a pending invitation already exists for this email")
	ErrInvalidRole            = errors.New("invalid role")
	ErrTenantNotFound         = errors.New("organization not found")
)

// AuthorizationError carries the evaluator's enumerated deny reason.
type AuthorizationError struct {
	Reason authz.DenyReason
}

func (e *AuthorizationError) Error() string {
	return fmt.Sprintf("not authorized: %s", e.Reason)
}

type CreateInvitationRequest struct {
	Email    string    `json:"email"`
	Role     string    `json:"role"`
	TenantID uuid.UUID `json:"organization_id"`
}

// AcceptResult is the discriminated outcome of a successful (or
// requires-signup) accept call.
type AcceptResult struct {
	RequiresSignup bool
	Email          string
	Role           string
	TenantID       uuid.UUID
	Organization   *models.Tenant
}

// InvitationService owns the invitation state machine: pending → accepted,
// pending → expired (lazily, on the read path), pending → revoked.
type InvitationService interface {
	Create(ctx context.Context, actor authz.AuthContext, req *CreateInvitationRequest) (*models.Invitation, string, error)
	Accept(ctx context.Context, token string, callerID *uuid.UUID, callerEmail string) (*AcceptResult, error)
	Revoke(ctx context.Context, actor authz.AuthContext, tenantID, invitationID uuid.UUID) error
	ListByTenant(ctx context.Context, actor authz.AuthContext, tenantID uuid.UUID, limit, offset int) ([]*models.Invitation, error)
}

type invitationService struct {
	invitationRepo repositories.InvitationRepository
	userRepo       repositories.UserRepository
	tenantRepo     repositories.TenantRepository
	credSvc        CredentialService
	auditSvc       AuditLogsService
	now            func() time.Time
}

func NewInvitationService(
	invitationRepo repositories.InvitationRepository,
	userRepo repositories.UserRepository,
	tenantRepo repositories.TenantRepository,
	credSvc CredentialService,
	auditSvc AuditLogsService,
) InvitationService {
	return &invitationService{
		invitationRepo: invitationRepo,
		userRepo:       userRepo,
		tenantRepo:     tenantRepo,
		credSvc:        credSvc,
		auditSvc:       auditSvc,
		now:            time.Now,
	}
}

func (s *invitationService) Create(ctx context.Context, actor authz.AuthContext, req *CreateInvitationRequest) (*models.Invitation, string, error) {
	if req.Email == "" || req.Role == "" || req.TenantID == uuid.Nil {
		return nil, "", errors.New("email, role and organization_id are required")
	}
	if !models.ValidRole(req.Role) || req.Role == models.RoleSuperAdmin {
		return nil, "", ErrInvalidRole
	}

	decision := authz.Authorize(actor, "invite", authz.Resource{Type: "member", TenantID: &req.TenantID})
	if !decision.Allowed {
		return nil, "", &AuthorizationError{Reason: decision.Reason}
	}

	if _, err := s.tenantRepo.GetByID(ctx, req.TenantID); err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return nil, "", ErrTenantNotFound
		}
		return nil, "", err
	}

	email := strings.ToLower(strings.TrimSpace(req.Email))

	exists, err := s.userRepo.ExistsByTenantEmail(ctx, req.TenantID, email)
	if err != nil {
		return nil, "", err
	}
	if exists {
		return nil, "", ErrDuplicateMember
	}

	now := s.now()
	pending, err := s.invitationRepo.HasPendingForEmail(ctx, req.TenantID, email, now)
	if err != nil {
		return nil, "", err
	}
	if pending {
		return nil, "", ErrDuplicatePendingInvite
	}

	token, fingerprint, err := s.credSvc.GenerateInvitationToken()
	if err != nil {
		return nil, "", err
	}

	inv := &models.Invitation{
		ID:        uuid.New(),
		TenantID:  req.TenantID,
		Email:     email,
		Role:      req.Role,
		TokenHash: fingerprint,
		Status:    models.InvitationStatusPending,
		ExpiresAt: now.Add(InvitationExpiryWindow),
		CreatedBy: actor.UserID,
		CreatedAt: now,
		UpdatedAt: now,
	}

	if err := s.invitationRepo.Create(ctx, inv); err != nil {
		return nil, "", err
	}

	// Best-effort audit: a failed audit write never rolls back the invitation.
	if err := s.auditSvc.LogActivity(ctx, &inv.TenantID, models.AuditMemberInvited, "invitation", inv.ID.String(), &actor.UserID, models.JSONB{
		"email": email,
		"role":  req.Role,
	}); err != nil {
		log.Printf("Failed to write audit log for invitation %s: %v", inv.ID, err)
	}

	return inv, token, nil
}

func (s *invitationService) Accept(ctx context.Context, token string, callerID *uuid.UUID, callerEmail string) (*AcceptResult, error) {
	if token == "" {
		return nil, ErrInvalidOrExpiredToken
	}

	inv, err := s.invitationRepo.GetByTokenHash(ctx, s.credSvc.FingerprintToken(token))
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return nil, ErrInvalidOrExpiredToken
		}
		return nil, err
	}

	if inv.Status != models.InvitationStatusPending {
		return nil, ErrInvalidOrExpiredToken
	}

	now := s.now()
	if inv.IsExpired(now) {
		// Lazy expiry: the state machine self-transitions on the read path.
		// MarkExpired is conditional on pending, so repeated calls are
		// idempotent.
		if err := s.invitationRepo.MarkExpired(ctx, inv.ID); err != nil {
			log.Printf("Failed to mark invitation %s expired: %v", inv.ID, err)
		}
		return nil, ErrInvitationExpired
	}

	if !strings.EqualFold(strings.TrimSpace(callerEmail), inv.Email) {
		return nil, ErrEmailMismatch
	}

	if callerID == nil {
		// Not an error: the caller must complete signup out-of-band and
		// retry once authenticated.
		return &AcceptResult{
			RequiresSignup: true,
			Email:          inv.Email,
			Role:           inv.Role,
			TenantID:       inv.TenantID,
		}, nil
	}

	user, err := s.userRepo.GetByID(ctx, *callerID)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return nil, ErrInvalidOrExpiredToken
		}
		return nil, err
	}
	if user.TenantID != nil && *user.TenantID == inv.TenantID {
		return nil, ErrAlreadyMember
	}

	// Member update and status flip are one transaction; the conditional
	// update inside makes concurrent accepts race to exactly one winner.
	if err := s.invitationRepo.Accept(ctx, inv.ID, *callerID, inv.TenantID, inv.Role, now); err != nil {
		if errors.Is(err, repositories.ErrNotPending) {
			return nil, ErrInvalidOrExpiredToken
		}
		return nil, err
	}

	if err := s.auditSvc.LogActivity(ctx, &inv.TenantID, models.AuditMemberJoined, "user", callerID.String(), callerID, models.JSONB{
		"email":         inv.Email,
		"role":          inv.Role,
		"invitation_id": inv.ID.String(),
	}); err != nil {
		log.Printf("Failed to write audit log for invitation %s acceptance: %v", inv.ID, err)
	}

	result := &AcceptResult{
		Email:    inv.Email,
		Role:     inv.Role,
		TenantID: inv.TenantID,
	}
	if org, err := s.tenantRepo.GetByID(ctx, inv.TenantID); err == nil {
		result.Organization = org
	}
	return result, nil
}

func (s *invitationService) Revoke(ctx context.Context, actor authz.AuthContext, tenantID, invitationID uuid.UUID) error {
	decision := authz.Authorize(actor, "revoke", authz.Resource{Type: "invitation", TenantID: &tenantID})
	if !decision.Allowed {
		return &AuthorizationError{Reason: decision.Reason}
	}

	if err := s.invitationRepo.Revoke(ctx, tenantID, invitationID); err != nil {
		if errors.Is(err, repositories.ErrNotPending) {
			return ErrInvalidOrExpiredToken
		}
		return err
	}

	if err := s.auditSvc.LogActivity(ctx, &tenantID, models.AuditInvitationRevoked, "invitation", invitationID.String(), &actor.UserID, nil); err != nil {
		log.Printf("Failed to write audit log for invitation %s revocation: %v", invitationID, err)
	}
	return nil
}

func (s *invitationService) ListByTenant(ctx context.Context, actor authz.AuthContext, tenantID uuid.UUID, limit, offset int) ([]*models.Invitation, error) {
	decision := authz.Authorize(actor, "read", authz.Resource{Type: "invitation", TenantID: &tenantID})
	if !decision.Allowed {
		return nil, &AuthorizationError{Reason: decision.Reason}
	}
	return s.invitationRepo.ListByTenant(ctx, tenantID, limit, offset)
}
