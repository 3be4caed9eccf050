package models

import "time"

// TokenResponse is returned on login, signup and refresh.
type TokenResponse struct {
	AccessToken        string    `json:"access_token"`
	TokenType          string    `json:"token_type"`
	ExpiresIn          int       `json:"expires_in"`
	RefreshToken       string    `json:"refresh_token"`
	UserID             string    `json:"user_id"`
	TenantID           *string   `json:"tenant_id,omitempty"`
	Role               string    `json:"role"`
	TokenID            string    `json:"token_id"`
	MustChangePassword bool      `json:"must_change_password"`
	IssuedAt           time.Time `json:"issued_at"`
}
