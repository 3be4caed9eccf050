package models

import (
	"time"

	"github.com/google/uuid"
)

// JSONB is a free-form details payload stored as jsonb.
type JSONB map[string]interface{}

// AuditLog is an append-only record of a sensitive action. Rows are never
// mutated or deleted.
type AuditLog struct {
	ID         uuid.UUID  `json:"id" db:"id"`
	TenantID   *uuid.UUID `json:"tenant_id" db:"tenant_id"` // nil for platform-level actions
	Actor      *uuid.UUID `json:"actor,omitempty" db:"actor"`
	Action     string     `json:"action" db:"action"`
	TargetType string     `json:"target_type" db:"target_type"`
	TargetID   string     `json:"target_id" db:"target_id"`
	Details    JSONB      `json:"details,omitempty" db:"details"`
	CreatedAt  time.Time  `json:"created_at" db:"created_at"`
}

// Action constants for audit logs
const (
	AuditMemberInvited       = "member.invited"
	AuditMemberJoined        = "member.joined"
	AuditMemberProvisioned   = "member.provisioned"
	AuditInvitationRevoked   = "invitation.revoked"
	AuditOrganizationCreated = "organization.created"
	AuditTenantAssigned      = "tenant.assigned"
	AuditCredentialIssued    = "credential.issued"
)

// AuditLogFilters represents filters for querying audit logs
type AuditLogFilters struct {
	Action     *string    `json:"action"`
	TargetType *string    `json:"target_type"`
	TargetID   *string    `json:"target_id"`
	Actor      *uuid.UUID `json:"actor"`
	StartDate  *time.Time `json:"start_date"`
	EndDate    *time.Time `json:"end_date"`
	Limit      int        `json:"limit"`
	Offset     int        `json:"offset"`
}
