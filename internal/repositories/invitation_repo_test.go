package repositories

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"edumart2/internal/models"
)

func newInvitationRepoWithMock(t *testing.T) (InvitationRepository, pgxmock.PgxPoolIface) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	t.Cleanup(mock.Close)
	return NewInvitationRepo(mock), mock
}

func TestInvitationRepoAccept(t *testing.T) {
	ctx := context.Background()
	id := uuid.New()
	acceptorID := uuid.New()
	tenantID := uuid.New()
	now := time.Now()

	t.Run("accepts pending invitation and moves user in one transaction", func(t *testing.T) {
		repo, mock := newInvitationRepoWithMock(t)

		mock.ExpectBegin()
		mock.ExpectExec(`UPDATE invitations`).
			WithArgs(acceptorID, now, id).
			WillReturnResult(pgxmock.NewResult("UPDATE", 1))
		mock.ExpectExec(`UPDATE users`).
			WithArgs(tenantID, models.RoleTeacher, acceptorID).
			WillReturnResult(pgxmock.NewResult("UPDATE", 1))
		mock.ExpectCommit()

		err := repo.Accept(ctx, id, acceptorID, tenantID, models.RoleTeacher, now)
		assert.NoError(t, err)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("losing the status race rolls back without touching users", func(t *testing.T) {
		repo, mock := newInvitationRepoWithMock(t)

		mock.ExpectBegin()
		mock.ExpectExec(`UPDATE invitations`).
			WithArgs(acceptorID, now, id).
			WillReturnResult(pgxmock.NewResult("UPDATE", 0))
		mock.ExpectRollback()

		err := repo.Accept(ctx, id, acceptorID, tenantID, models.RoleTeacher, now)
		assert.ErrorIs(t, err, ErrNotPending)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestInvitationRepoRevoke(t *testing.T) {
	ctx := context.Background()
	tenantID := uuid.New()
	id := uuid.New()

	t.Run("revokes pending invitation", func(t *testing.T) {
		repo, mock := newInvitationRepoWithMock(t)
		mock.ExpectExec(`UPDATE invitations`).
			WithArgs(tenantID, id).
			WillReturnResult(pgxmock.NewResult("UPDATE", 1))

		assert.NoError(t, repo.Revoke(ctx, tenantID, id))
	})

	t.Run("already terminal invitation returns ErrNotPending", func(t *testing.T) {
		repo, mock := newInvitationRepoWithMock(t)
		mock.ExpectExec(`UPDATE invitations`).
			WithArgs(tenantID, id).
			WillReturnResult(pgxmock.NewResult("UPDATE", 0))

		assert.ErrorIs(t, repo.Revoke(ctx, tenantID, id), ErrNotPending)
	})
}

func TestInvitationRepoGetByTokenHash(t *testing.T) {
	ctx := context.Background()
	repo, mock := newInvitationRepoWithMock(t)

	inv := &models.Invitation{
		ID:        uuid.New(),
		TenantID:  uuid.New(),
		Email:     "new.member@example.com",
		Role:      models.RoleStaff,
		TokenHash: "abcd1234",
		Status:    models.InvitationStatusPending,
		ExpiresAt: time.Now().Add(time.Hour),
		CreatedBy: uuid.New(),
		CreatedAt: time.Now(),
		UpdatedAt: time.Now(),
	}

	rows := pgxmock.NewRows([]string{
		"id", "tenant_id", "email", "role", "token_hash", "status",
		"expires_at", "created_by", "accepted_by", "accepted_at", "created_at", "updated_at",
	}).AddRow(inv.ID, inv.TenantID, inv.Email, inv.Role, inv.TokenHash, inv.Status,
		inv.ExpiresAt, inv.CreatedBy, nil, nil, inv.CreatedAt, inv.UpdatedAt)

	mock.ExpectQuery(`SELECT .+ FROM invitations WHERE token_hash`).
		WithArgs("abcd1234").
		WillReturnRows(rows)

	got, err := repo.GetByTokenHash(ctx, "abcd1234")
	require.NoError(t, err)
	assert.Equal(t, inv.ID, got.ID)
	assert.Equal(t, models.InvitationStatusPending, got.Status)
	assert.Nil(t, got.AcceptedBy)
}

func TestInvitationRepoGetByTokenHashNotFound(t *testing.T) {
	repo, mock := newInvitationRepoWithMock(t)

	mock.ExpectQuery(`SELECT .+ FROM invitations WHERE token_hash`).
		WithArgs("missing").
		WillReturnRows(pgxmock.NewRows([]string{"id"}))

	_, err := repo.GetByTokenHash(context.Background(), "missing")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestInvitationRepoExpireOverdue(t *testing.T) {
	repo, mock := newInvitationRepoWithMock(t)
	now := time.Now()

	mock.ExpectExec(`UPDATE invitations`).
		WithArgs(now).
		WillReturnResult(pgxmock.NewResult("UPDATE", 3))

	count, err := repo.ExpireOverdue(context.Background(), now)
	require.NoError(t, err)
	assert.Equal(t, int64(3), count)
}
