package repositories

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"edumart2/internal/models"

	"github.com/google/uuid"
)

type AuditLogsRepository interface {
	// Create appends an audit log entry. Entries are never updated or deleted.
	Create(ctx context.Context, entry *models.AuditLog) error

	List(ctx context.Context, tenantID uuid.UUID, filters *models.AuditLogFilters) ([]*models.AuditLog, error)

	// GetByTarget returns the history for a specific record.
	GetByTarget(ctx context.Context, tenantID uuid.UUID, targetType, targetID string, limit, offset int) ([]*models.AuditLog, error)
}

type auditLogsRepo struct {
	db Database
}

func NewAuditLogsRepo(db Database) AuditLogsRepository {
	return &auditLogsRepo{db: db}
}

func (r *auditLogsRepo) Create(ctx context.Context, entry *models.AuditLog) error {
	entry.CreatedAt = time.Now()
	if entry.ID == uuid.Nil {
		entry.ID = uuid.New()
	}

	var detailsBytes []byte
	var err error
	if entry.Details != nil {
		detailsBytes, err = json.Marshal(entry.Details)
		if err != nil {
			return fmt.Errorf("failed to marshal details: %w", err)
		}
	}

	query := `
		INSERT INTO audit_logs (id, tenant_id, actor, action, target_type, target_id, details, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`
	_, err = r.db.Exec(ctx, query, entry.ID, entry.TenantID, entry.Actor, entry.Action,
		entry.TargetType, entry.TargetID, detailsBytes, entry.CreatedAt)
	return err
}

func (r *auditLogsRepo) List(ctx context.Context, tenantID uuid.UUID, filters *models.AuditLogFilters) ([]*models.AuditLog, error) {
	query := `
		SELECT id, tenant_id, actor, action, target_type, target_id, details, created_at
		FROM audit_logs
		WHERE tenant_id = $1
	`
	args := []any{tenantID}
	idx := 2

	if filters.Action != nil {
		query += fmt.Sprintf(" AND action = $%d", idx)
		args = append(args, *filters.Action)
		idx++
	}
	if filters.TargetType != nil {
		query += fmt.Sprintf(" AND target_type = $%d", idx)
		args = append(args, *filters.TargetType)
		idx++
	}
	if filters.Actor != nil {
		query += fmt.Sprintf(" AND actor = $%d", idx)
		args = append(args, *filters.Actor)
		idx++
	}
	if filters.StartDate != nil {
		query += fmt.Sprintf(" AND created_at >= $%d", idx)
		args = append(args, *filters.StartDate)
		idx++
	}
	if filters.EndDate != nil {
		query += fmt.Sprintf(" AND created_at <= $%d", idx)
		args = append(args, *filters.EndDate)
		idx++
	}

	limit, offset := filters.Limit, filters.Offset
	if limit <= 0 {
		limit = 50
	}
	query += fmt.Sprintf(" ORDER BY created_at DESC LIMIT $%d OFFSET $%d", idx, idx+1)
	args = append(args, limit, offset)

	return r.query(ctx, query, args...)
}

func (r *auditLogsRepo) GetByTarget(ctx context.Context, tenantID uuid.UUID, targetType, targetID string, limit, offset int) ([]*models.AuditLog, error) {
	query := `
		SELECT id, tenant_id, actor, action, target_type, target_id, details, created_at
		FROM audit_logs
		WHERE tenant_id = $1 AND target_type = $2 AND target_id = $3
		ORDER BY created_at DESC
		LIMIT $4 OFFSET $5
	`
	return r.query(ctx, query, tenantID, targetType, targetID, limit, offset)
}

func (r *auditLogsRepo) query(ctx context.Context, query string, args ...any) ([]*models.AuditLog, error) {
	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []*models.AuditLog
	for rows.Next() {
		entry := &models.AuditLog{}
		var detailsBytes []byte
		if err := rows.Scan(&entry.ID, &entry.TenantID, &entry.Actor, &entry.Action,
			&entry.TargetType, &entry.TargetID, &detailsBytes, &entry.CreatedAt); err != nil {
			return nil, err
		}
		if len(detailsBytes) > 0 {
			if err := json.Unmarshal(detailsBytes, &entry.Details); err != nil {
				return nil, fmt.Errorf("failed to unmarshal details: %w", err)
			}
		}
		entries = append(entries, entry)
	}
	return entries, rows.Err()
}
