package repositories

import (
	"context"

	"edumart2/internal/models"

	"github.com/google/uuid"
)

type CredentialRepository interface {
	Create(ctx context.Context, cred *models.Credential) error
	GetByUserID(ctx context.Context, userID uuid.UUID) (*models.Credential, error)
	GetByUsername(ctx context.Context, username string) (*models.Credential, error)
	UsernameExists(ctx context.Context, username string) (bool, error)
	// MarkPasswordChanged flips the rotation flag and clears the stored
	// plaintext initial password.
	MarkPasswordChanged(ctx context.Context, userID uuid.UUID) error
}

type credentialRepo struct {
	db Database
}

func NewCredentialRepo(db Database) CredentialRepository {
	return &credentialRepo{db: db}
}

const credentialColumns = `id, user_id, username, initial_password, password_changed, created_at, updated_at`

func scanCredential(row interface{ Scan(dest ...any) error }) (*models.Credential, error) {
	cred := &models.Credential{}
	err := row.Scan(&cred.ID, &cred.UserID, &cred.Username, &cred.InitialPassword,
		&cred.PasswordChanged, &cred.CreatedAt, &cred.UpdatedAt)
	if err != nil {
		return nil, mapNotFound(err)
	}
	return cred, nil
}

func (r *credentialRepo) Create(ctx context.Context, cred *models.Credential) error {
	query := `
		INSERT INTO credentials (id, user_id, username, initial_password, password_changed, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, NOW(), NOW())
	`
	_, err := r.db.Exec(ctx, query, cred.ID, cred.UserID, cred.Username, cred.InitialPassword, cred.PasswordChanged)
	return err
}

func (r *credentialRepo) GetByUserID(ctx context.Context, userID uuid.UUID) (*models.Credential, error) {
	query := `SELECT ` + credentialColumns + ` FROM credentials WHERE user_id = $1`
	return scanCredential(r.db.QueryRow(ctx, query, userID))
}

func (r *credentialRepo) GetByUsername(ctx context.Context, username string) (*models.Credential, error) {
	query := `SELECT ` + credentialColumns + ` FROM credentials WHERE username = $1`
	return scanCredential(r.db.QueryRow(ctx, query, username))
}

func (r *credentialRepo) UsernameExists(ctx context.Context, username string) (bool, error) {
	var exists bool
	query := `SELECT EXISTS(SELECT 1 FROM credentials WHERE username = $1)`
	err := r.db.QueryRow(ctx, query, username).Scan(&exists)
	return exists, err
}

func (r *credentialRepo) MarkPasswordChanged(ctx context.Context, userID uuid.UUID) error {
	query := `UPDATE credentials SET password_changed = true, initial_password = '', updated_at = NOW() WHERE user_id = $1`
	_, err := r.db.Exec(ctx, query, userID)
	return err
}
