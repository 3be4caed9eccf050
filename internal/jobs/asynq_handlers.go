package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"
	"golang.org/x/crypto/bcrypt"

	"edumart2/internal/models"
	"edumart2/internal/repositories"
)

// CredentialIssuer is the narrow slice of services.CredentialService the
// handler needs; declared here to keep package jobs from importing
// services (which imports jobs for the task constructors).
type CredentialIssuer interface {
	GenerateUsername(ctx context.Context, firstName, lastName, role string) (string, error)
	GenerateDefaultPassword() (string, error)
}

// AuditLogger is the narrow slice of services.AuditLogsService the
// handler needs, declared locally for the same reason.
type AuditLogger interface {
	LogActivity(ctx context.Context, tenantID *uuid.UUID, action, targetType, targetID string, actor *uuid.UUID, details models.JSONB) error
}

// CredentialTaskHandler processes credential:issue tasks. Issuance is
// idempotent: a user that already holds a credential row is skipped, so
// asynq retries and duplicate enqueues are harmless.
type CredentialTaskHandler struct {
	userRepo repositories.UserRepository
	credRepo repositories.CredentialRepository
	credSvc  CredentialIssuer
	auditSvc AuditLogger
}

func NewCredentialTaskHandler(
	userRepo repositories.UserRepository,
	credRepo repositories.CredentialRepository,
	credSvc CredentialIssuer,
	auditSvc AuditLogger,
) *CredentialTaskHandler {
	return &CredentialTaskHandler{
		userRepo: userRepo,
		credRepo: credRepo,
		credSvc:  credSvc,
		auditSvc: auditSvc,
	}
}

func (h *CredentialTaskHandler) ProcessTask(ctx context.Context, t *asynq.Task) error {
	var payload CredentialIssuePayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return fmt.Errorf("unmarshal credential payload: %v: %w", err, asynq.SkipRetry)
	}

	user, err := h.userRepo.GetByID(ctx, payload.UserID)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			// The user was deleted between enqueue and processing.
			return fmt.Errorf("user %s not found: %w", payload.UserID, asynq.SkipRetry)
		}
		return err
	}

	if _, err := h.credRepo.GetByUserID(ctx, user.ID); err == nil {
		log.Printf("Credential already issued for user %s, skipping", user.ID)
		return nil
	} else if !errors.Is(err, repositories.ErrNotFound) {
		return err
	}

	username, err := h.credSvc.GenerateUsername(ctx, user.FirstName, user.LastName, user.Role)
	if err != nil {
		return err
	}
	password, err := h.credSvc.GenerateDefaultPassword()
	if err != nil {
		return err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	if err := h.userRepo.UpdatePasswordHash(ctx, user.ID, string(hash)); err != nil {
		return err
	}

	now := time.Now()
	cred := &models.Credential{
		ID:              uuid.New(),
		UserID:          user.ID,
		Username:        username,
		InitialPassword: password,
		PasswordChanged: false,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	if err := h.credRepo.Create(ctx, cred); err != nil {
		return err
	}

	if err := h.auditSvc.LogActivity(ctx, user.TenantID, models.AuditCredentialIssued, "user", user.ID.String(), nil, models.JSONB{
		"username": username,
	}); err != nil {
		log.Printf("Failed to write audit log for credential issuance %s: %v", user.ID, err)
	}

	log.Printf("Issued credentials for user %s (username %s)", user.ID, username)
	return nil
}
