package repositories

import (
	"context"

	"edumart2/internal/models"

	"github.com/google/uuid"
)

type StudentRepository interface {
	Create(ctx context.Context, profile *models.StudentProfile) error
	GetByUserID(ctx context.Context, tenantID, userID uuid.UUID) (*models.StudentProfile, error)
	ListByTenant(ctx context.Context, tenantID uuid.UUID, limit, offset int) ([]*models.StudentProfile, error)
}

type studentRepo struct {
	db Database
}

func NewStudentRepo(db Database) StudentRepository {
	return &studentRepo{db: db}
}

func (r *studentRepo) Create(ctx context.Context, profile *models.StudentProfile) error {
	query := `
		INSERT INTO student_profiles (id, tenant_id, user_id, admission_no, grade, section, guardian_name, guardian_phone, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, NOW(), NOW())
	`
	_, err := r.db.Exec(ctx, query, profile.ID, profile.TenantID, profile.UserID, profile.AdmissionNo,
		profile.Grade, profile.Section, profile.GuardianName, profile.GuardianPhone)
	return err
}

func (r *studentRepo) GetByUserID(ctx context.Context, tenantID, userID uuid.UUID) (*models.StudentProfile, error) {
	profile := &models.StudentProfile{}
	query := `
		SELECT id, tenant_id, user_id, admission_no, grade, section, guardian_name, guardian_phone, created_at, updated_at
		FROM student_profiles
		WHERE tenant_id = $1 AND user_id = $2
	`
	err := r.db.QueryRow(ctx, query, tenantID, userID).Scan(&profile.ID, &profile.TenantID, &profile.UserID,
		&profile.AdmissionNo, &profile.Grade, &profile.Section, &profile.GuardianName, &profile.GuardianPhone,
		&profile.CreatedAt, &profile.UpdatedAt)
	if err != nil {
		return nil, mapNotFound(err)
	}
	return profile, nil
}

func (r *studentRepo) ListByTenant(ctx context.Context, tenantID uuid.UUID, limit, offset int) ([]*models.StudentProfile, error) {
	query := `
		SELECT id, tenant_id, user_id, admission_no, grade, section, guardian_name, guardian_phone, created_at, updated_at
		FROM student_profiles
		WHERE tenant_id = $1
		ORDER BY created_at DESC
		LIMIT $2 OFFSET $3
	`
	rows, err := r.db.Query(ctx, query, tenantID, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var profiles []*models.StudentProfile
	for rows.Next() {
		profile := &models.StudentProfile{}
		if err := rows.Scan(&profile.ID, &profile.TenantID, &profile.UserID, &profile.AdmissionNo,
			&profile.Grade, &profile.Section, &profile.GuardianName, &profile.GuardianPhone,
			&profile.CreatedAt, &profile.UpdatedAt); err != nil {
			return nil, err
		}
		profiles = append(profiles, profile)
	}
	return profiles, rows.Err()
}
