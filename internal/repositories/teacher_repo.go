package repositories

import (
	"context"

	"edumart2/internal/models"

	"github.com/google/uuid"
)

type TeacherRepository interface {
	Create(ctx context.Context, profile *models.TeacherProfile) error
	GetByUserID(ctx context.Context, tenantID, userID uuid.UUID) (*models.TeacherProfile, error)
	ListByTenant(ctx context.Context, tenantID uuid.UUID, limit, offset int) ([]*models.TeacherProfile, error)
}

type teacherRepo struct {
	db Database
}

func NewTeacherRepo(db Database) TeacherRepository {
	return &teacherRepo{db: db}
}

func (r *teacherRepo) Create(ctx context.Context, profile *models.TeacherProfile) error {
	query := `
		INSERT INTO teacher_profiles (id, tenant_id, user_id, employee_no, subject, qualification, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, NOW(), NOW())
	`
	_, err := r.db.Exec(ctx, query, profile.ID, profile.TenantID, profile.UserID,
		profile.EmployeeNo, profile.Subject, profile.Qualification)
	return err
}

func (r *teacherRepo) GetByUserID(ctx context.Context, tenantID, userID uuid.UUID) (*models.TeacherProfile, error) {
	profile := &models.TeacherProfile{}
	query := `
		SELECT id, tenant_id, user_id, employee_no, subject, qualification, created_at, updated_at
		FROM teacher_profiles
		WHERE tenant_id = $1 AND user_id = $2
	`
	err := r.db.QueryRow(ctx, query, tenantID, userID).Scan(&profile.ID, &profile.TenantID, &profile.UserID,
		&profile.EmployeeNo, &profile.Subject, &profile.Qualification, &profile.CreatedAt, &profile.UpdatedAt)
	if err != nil {
		return nil, mapNotFound(err)
	}
	return profile, nil
}

func (r *teacherRepo) ListByTenant(ctx context.Context, tenantID uuid.UUID, limit, offset int) ([]*models.TeacherProfile, error) {
	query := `
		SELECT id, tenant_id, user_id, employee_no, subject, qualification, created_at, updated_at
		FROM teacher_profiles
		WHERE tenant_id = $1
		ORDER BY created_at DESC
		LIMIT $2 OFFSET $3
	`
	rows, err := r.db.Query(ctx, query, tenantID, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var profiles []*models.TeacherProfile
	for rows.Next() {
		profile := &models.TeacherProfile{}
		if err := rows.Scan(&profile.ID, &profile.TenantID, &profile.UserID, &profile.EmployeeNo,
			&profile.Subject, &profile.Qualification, &profile.CreatedAt, &profile.UpdatedAt); err != nil {
			return nil, err
		}
		profiles = append(profiles, profile)
	}
	return profiles, rows.Err()
}
