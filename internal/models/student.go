package models

import (
	"time"

	"github.com/google/uuid"
)

type StudentProfile struct {
	ID            uuid.UUID `json:"id" db:"id"`
	TenantID      uuid.UUID `json:"tenant_id" db:"tenant_id"`
	UserID        uuid.UUID `json:"user_id" db:"user_id"`
	AdmissionNo   string    `json:"admission_no" db:"admission_no"`
	Grade         string    `json:"grade" db:"grade"`
	Section       *string   `json:"section,omitempty" db:"section"`
	GuardianName  *string   `json:"guardian_name,omitempty" db:"guardian_name"`
	GuardianPhone *string   `json:"guardian_phone,omitempty" db:"guardian_phone"`
	CreatedAt     time.Time `json:"created_at" db:"created_at"`
	UpdatedAt     time.Time `json:"updated_at" db:"updated_at"`
}
