package repositories

import (
	"context"

	"edumart2/internal/models"

	"github.com/google/uuid"
)

type StaffRepository interface {
	Create(ctx context.Context, profile *models.StaffProfile) error
	GetByUserID(ctx context.Context, tenantID, userID uuid.UUID) (*models.StaffProfile, error)
	ListByTenant(ctx context.Context, tenantID uuid.UUID, limit, offset int) ([]*models.StaffProfile, error)
}

type staffRepo struct {
	db Database
}

func NewStaffRepo(db Database) StaffRepository {
	return &staffRepo{db: db}
}

func (r *staffRepo) Create(ctx context.Context, profile *models.StaffProfile) error {
	query := `
		INSERT INTO staff_profiles (id, tenant_id, user_id, employee_no, department, designation, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, NOW(), NOW())
	`
	_, err := r.db.Exec(ctx, query, profile.ID, profile.TenantID, profile.UserID,
		profile.EmployeeNo, profile.Department, profile.Designation)
	return err
}

func (r *staffRepo) GetByUserID(ctx context.Context, tenantID, userID uuid.UUID) (*models.StaffProfile, error) {
	profile := &models.StaffProfile{}
	query := `
		SELECT id, tenant_id, user_id, employee_no, department, designation, created_at, updated_at
		FROM staff_profiles
		WHERE tenant_id = $1 AND user_id = $2
	`
	err := r.db.QueryRow(ctx, query, tenantID, userID).Scan(&profile.ID, &profile.TenantID, &profile.UserID,
		&profile.EmployeeNo, &profile.Department, &profile.Designation, &profile.CreatedAt, &profile.UpdatedAt)
	if err != nil {
		return nil, mapNotFound(err)
	}
	return profile, nil
}

func (r *staffRepo) ListByTenant(ctx context.Context, tenantID uuid.UUID, limit, offset int) ([]*models.StaffProfile, error) {
	query := `
		SELECT id, tenant_id, user_id, employee_no, department, designation, created_at, updated_at
		FROM staff_profiles
		WHERE tenant_id = $1
		ORDER BY created_at DESC
		LIMIT $2 OFFSET $3
	`
	rows, err := r.db.Query(ctx, query, tenantID, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var profiles []*models.StaffProfile
	for rows.Next() {
		profile := &models.StaffProfile{}
		if err := rows.Scan(&profile.ID, &profile.TenantID, &profile.UserID, &profile.EmployeeNo,
			&profile.Department, &profile.Designation, &profile.CreatedAt, &profile.UpdatedAt); err != nil {
			return nil, err
		}
		profiles = append(profiles, profile)
	}
	return profiles, rows.Err()
}
