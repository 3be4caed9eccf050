package repositories

import (
	"context"
	"fmt"
	"time"

	"edumart2/internal/models"

	"github.com/google/uuid"
)

type InvitationRepository interface {
	Create(ctx context.Context, inv *models.Invitation) error
	GetByTokenHash(ctx context.Context, tokenHash string) (*models.Invitation, error)
	GetByID(ctx context.Context, tenantID, id uuid.UUID) (*models.Invitation, error)
	ListByTenant(ctx context.Context, tenantID uuid.UUID, limit, offset int) ([]*models.Invitation, error)
	HasPendingForEmail(ctx context.Context, tenantID uuid.UUID, email string, now time.Time) (bool, error)
	// MarkExpired lazily transitions a pending invitation to expired.
	// A row already out of pending is left untouched.
	MarkExpired(ctx context.Context, id uuid.UUID) error
	// Revoke transitions a pending invitation to revoked; ErrNotPending if
	// the invitation already reached a terminal state.
	Revoke(ctx context.Context, tenantID, id uuid.UUID) error
	// Accept flips the invitation to accepted and moves the acceptor into the
	// invitation's tenant with its role, as one transaction. The status flip
	// is a conditional update on status='pending': of two racing accepts,
	// exactly one wins and the loser gets ErrNotPending.
	Accept(ctx context.Context, id, acceptorID, tenantID uuid.UUID, role string, now time.Time) error
	// ExpireOverdue sweeps all pending invitations past expiry. Lazy expiry
	// on the read path stays authoritative; this is housekeeping.
	ExpireOverdue(ctx context.Context, now time.Time) (int64, error)
}

type invitationRepo struct {
	db Database
}

func NewInvitationRepo(db Database) InvitationRepository {
	return &invitationRepo{db: db}
}

const invitationColumns = `id, tenant_id, email, role, token_hash, status, expires_at, created_by, accepted_by, accepted_at, created_at, updated_at`

func scanInvitation(row interface{ Scan(dest ...any) error }) (*models.Invitation, error) {
	inv := &models.Invitation{}
	err := row.Scan(&inv.ID, &inv.TenantID, &inv.Email, &inv.Role, &inv.TokenHash, &inv.Status,
		&inv.ExpiresAt, &inv.CreatedBy, &inv.AcceptedBy, &inv.AcceptedAt, &inv.CreatedAt, &inv.UpdatedAt)
	if err != nil {
		return nil, mapNotFound(err)
	}
	return inv, nil
}

func (r *invitationRepo) Create(ctx context.Context, inv *models.Invitation) error {
	query := `
		INSERT INTO invitations (id, tenant_id, email, role, token_hash, status, expires_at, created_by, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, NOW(), NOW())
	`
	_, err := r.db.Exec(ctx, query, inv.ID, inv.TenantID, inv.Email, inv.Role, inv.TokenHash,
		inv.Status, inv.ExpiresAt, inv.CreatedBy)
	return err
}

func (r *invitationRepo) GetByTokenHash(ctx context.Context, tokenHash string) (*models.Invitation, error) {
	query := `SELECT ` + invitationColumns + ` FROM invitations WHERE token_hash = $1`
	return scanInvitation(r.db.QueryRow(ctx, query, tokenHash))
}

func (r *invitationRepo) GetByID(ctx context.Context, tenantID, id uuid.UUID) (*models.Invitation, error) {
	query := `SELECT ` + invitationColumns + ` FROM invitations WHERE tenant_id = $1 AND id = $2`
	return scanInvitation(r.db.QueryRow(ctx, query, tenantID, id))
}

func (r *invitationRepo) ListByTenant(ctx context.Context, tenantID uuid.UUID, limit, offset int) ([]*models.Invitation, error) {
	query := `
		SELECT ` + invitationColumns + `
		FROM invitations
		WHERE tenant_id = $1
		ORDER BY created_at DESC
		LIMIT $2 OFFSET $3
	`
	rows, err := r.db.Query(ctx, query, tenantID, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var invitations []*models.Invitation
	for rows.Next() {
		inv, err := scanInvitation(rows)
		if err != nil {
			return nil, err
		}
		invitations = append(invitations, inv)
	}
	return invitations, rows.Err()
}

func (r *invitationRepo) HasPendingForEmail(ctx context.Context, tenantID uuid.UUID, email string, now time.Time) (bool, error) {
	var exists bool
	query := `
		SELECT EXISTS(
			SELECT 1 FROM invitations
			WHERE tenant_id = $1 AND lower(email) = lower($2) AND status = 'pending' AND expires_at > $3
		)
	`
	err := r.db.QueryRow(ctx, query, tenantID, email, now).Scan(&exists)
	return exists, err
}

func (r *invitationRepo) MarkExpired(ctx context.Context, id uuid.UUID) error {
	query := `UPDATE invitations SET status = 'expired', updated_at = NOW() WHERE id = $1 AND status = 'pending'`
	_, err := r.db.Exec(ctx, query, id)
	return err
}

func (r *invitationRepo) Revoke(ctx context.Context, tenantID, id uuid.UUID) error {
	query := `UPDATE invitations SET status = 'revoked', updated_at = NOW() WHERE tenant_id = $1 AND id = $2 AND status = 'pending'`
	tag, err := r.db.Exec(ctx, query, tenantID, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotPending
	}
	return nil
}

func (r *invitationRepo) Accept(ctx context.Context, id, acceptorID, tenantID uuid.UUID, role string, now time.Time) error {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin accept transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	tag, err := tx.Exec(ctx, `
		UPDATE invitations
		SET status = 'accepted', accepted_by = $1, accepted_at = $2, updated_at = NOW()
		WHERE id = $3 AND status = 'pending'
	`, acceptorID, now, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotPending
	}

	_, err = tx.Exec(ctx, `
		UPDATE users SET tenant_id = $1, role = $2, updated_at = NOW() WHERE id = $3
	`, tenantID, role, acceptorID)
	if err != nil {
		return err
	}

	return tx.Commit(ctx)
}

func (r *invitationRepo) ExpireOverdue(ctx context.Context, now time.Time) (int64, error) {
	query := `UPDATE invitations SET status = 'expired', updated_at = NOW() WHERE status = 'pending' AND expires_at <= $1`
	tag, err := r.db.Exec(ctx, query, now)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}
