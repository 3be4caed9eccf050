package services

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"edumart2/internal/models"
	"edumart2/internal/repositories"
)

// AuditLogsService records and queries the append-only activity trail.
type AuditLogsService interface {
	LogActivity(ctx context.Context, tenantID *uuid.UUID, action, targetType, targetID string, actor *uuid.UUID, details models.JSONB) error
	List(ctx context.Context, tenantID uuid.UUID, filters *models.AuditLogFilters) ([]*models.AuditLog, error)
	GetTargetHistory(ctx context.Context, tenantID uuid.UUID, targetType, targetID string, limit, offset int) ([]*models.AuditLog, error)
}

type auditLogsService struct {
	auditRepo repositories.AuditLogsRepository
}

func NewAuditLogsService(auditRepo repositories.AuditLogsRepository) AuditLogsService {
	return &auditLogsService{auditRepo: auditRepo}
}

func (s *auditLogsService) LogActivity(ctx context.Context, tenantID *uuid.UUID, action, targetType, targetID string, actor *uuid.UUID, details models.JSONB) error {
	if action == "" || targetType == "" {
		return errors.New("action and target type are required")
	}
	entry := &models.AuditLog{
		ID:         uuid.New(),
		TenantID:   tenantID,
		Actor:      actor,
		Action:     action,
		TargetType: targetType,
		TargetID:   targetID,
		Details:    details,
		CreatedAt:  time.Now(),
	}
	return s.auditRepo.Create(ctx, entry)
}

func (s *auditLogsService) List(ctx context.Context, tenantID uuid.UUID, filters *models.AuditLogFilters) ([]*models.AuditLog, error) {
	if filters == nil {
		filters = &models.AuditLogFilters{}
	}
	if filters.Limit <= 0 || filters.Limit > 200 {
		filters.Limit = 50
	}
	if filters.Offset < 0 {
		filters.Offset = 0
	}
	return s.auditRepo.List(ctx, tenantID, filters)
}

func (s *auditLogsService) GetTargetHistory(ctx context.Context, tenantID uuid.UUID, targetType, targetID string, limit, offset int) ([]*models.AuditLog, error) {
	if targetType == "" || targetID == "" {
		return nil, errors.New("target type and target id are required")
	}
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}
	return s.auditRepo.GetByTarget(ctx, tenantID, targetType, targetID, limit, offset)
}
