package models

import (
	"time"

	"github.com/google/uuid"
)

type StaffProfile struct {
	ID          uuid.UUID `json:"id" db:"id"`
	TenantID    uuid.UUID `json:"tenant_id" db:"tenant_id"`
	UserID      uuid.UUID `json:"user_id" db:"user_id"`
	EmployeeNo  string    `json:"employee_no" db:"employee_no"`
	Department  string    `json:"department" db:"department"`
	Designation *string   `json:"designation,omitempty" db:"designation"`
	CreatedAt   time.Time `json:"created_at" db:"created_at"`
	UpdatedAt   time.Time `json:"updated_at" db:"updated_at"`
}
