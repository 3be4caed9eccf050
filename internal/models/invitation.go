package models

import (
	"time"

	"github.com/google/uuid"
)

const (
	InvitationStatusPending  = "pending"
	InvitationStatusAccepted = "accepted"
	InvitationStatusExpired  = "expired"
	InvitationStatusRevoked  = "revoked"
)

// Invitation is a single-use, time-bounded offer for an email address to join
// a tenant with a specific role. Only the SHA-256 fingerprint of the bearer
// token is persisted; the raw token is returned once at creation.
type Invitation struct {
	ID         uuid.UUID  `json:"id" db:"id"`
	TenantID   uuid.UUID  `json:"tenant_id" db:"tenant_id"`
	Email      string     `json:"email" db:"email"`
	Role       string     `json:"role" db:"role"`
	TokenHash  string     `json:"-" db:"token_hash"`
	Status     string     `json:"status" db:"status"`
	ExpiresAt  time.Time  `json:"expires_at" db:"expires_at"`
	CreatedBy  uuid.UUID  `json:"created_by" db:"created_by"`
	AcceptedBy *uuid.UUID `json:"accepted_by,omitempty" db:"accepted_by"`
	AcceptedAt *time.Time `json:"accepted_at,omitempty" db:"accepted_at"`
	CreatedAt  time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt  time.Time  `json:"updated_at" db:"updated_at"`
}

// IsExpired reports whether the invitation is past its expiry at the given time.
func (i *Invitation) IsExpired(now time.Time) bool {
	return !now.Before(i.ExpiresAt)
}

// IsAcceptable reports whether the invitation can still be accepted at the
// given time: pending status and not yet expired.
func (i *Invitation) IsAcceptable(now time.Time) bool {
	return i.Status == InvitationStatusPending && !i.IsExpired(now)
}
