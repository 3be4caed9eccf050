package models

import (
	"time"

	"github.com/google/uuid"
)

// Credential is the auto-issued login pair for a user. The username is
// globally unique across tenants. InitialPassword holds the generated
// temporary password only until the user rotates it; rotation sets
// PasswordChanged and clears the plaintext.
type Credential struct {
	ID              uuid.UUID `json:"id" db:"id"`
	UserID          uuid.UUID `json:"user_id" db:"user_id"`
	Username        string    `json:"username" db:"username"`
	InitialPassword string    `json:"initial_password,omitempty" db:"initial_password"`
	PasswordChanged bool      `json:"password_changed" db:"password_changed"`
	CreatedAt       time.Time `json:"created_at" db:"created_at"`
	UpdatedAt       time.Time `json:"updated_at" db:"updated_at"`
}
