package services

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"fmt"
	"math/big"
	"strings"
	"unicode"

	"edumart2/internal/models"
	"edumart2/internal/repositories"
)

const (
	// Generated passwords are temporary: long enough for one-time use before
	// forced rotation, drawn from a charset that survives copy-typing.
	defaultPasswordLength = 12
	passwordCharset       = "abcdefghijkmnpqrstuvwxyzABCDEFGHJKLMNPQRSTUVWXYZ23456789#@!%*"
	usernameMaxAttempts   = 100
	invitationTokenBytes  = 32 // 256 bits of entropy
)

// rolePrefixes maps role slugs to the short username prefix.
var rolePrefixes = map[string]string{
	models.RoleStudent:    "stu",
	models.RoleTeacher:    "tch",
	models.RoleStaff:      "stf",
	models.RoleAdmin:      "adm",
	models.RoleOwner:      "own",
	models.RoleMember:     "mem",
	models.RoleSuperAdmin: "adm",
}

// CredentialService generates usernames, temporary passwords and opaque
// bearer tokens.
type CredentialService interface {
	// GenerateUsername derives a human-typable, role-prefixed handle and
	// retries with an incrementing numeric suffix until it is globally unique.
	GenerateUsername(ctx context.Context, firstName, lastName, role string) (string, error)
	// GenerateDefaultPassword produces a temporary must-rotate password from
	// a cryptographically secure source.
	GenerateDefaultPassword() (string, error)
	// GenerateInvitationToken returns a fresh opaque URL-safe token and its
	// fingerprint. Only the fingerprint gets persisted.
	GenerateInvitationToken() (token string, fingerprint string, err error)
	// GenerateOpaqueToken returns a raw URL-safe random token.
	GenerateOpaqueToken() (string, error)
	// FingerprintToken returns the SHA-256 hex fingerprint of a token.
	FingerprintToken(token string) string
}

type credentialService struct {
	credentialRepo repositories.CredentialRepository
}

func NewCredentialService(credentialRepo repositories.CredentialRepository) CredentialService {
	return &credentialService{credentialRepo: credentialRepo}
}

func (s *credentialService) GenerateUsername(ctx context.Context, firstName, lastName, role string) (string, error) {
	prefix, ok := rolePrefixes[role]
	if !ok {
		prefix = "usr"
	}

	base := prefix + "." + usernameStem(firstName, lastName)

	candidate := base
	for attempt := 1; attempt <= usernameMaxAttempts; attempt++ {
		exists, err := s.credentialRepo.UsernameExists(ctx, candidate)
		if err != nil {
			return "", fmt.Errorf("failed to check username uniqueness: %w", err)
		}
		if !exists {
			return candidate, nil
		}
		candidate = fmt.Sprintf("%s%d", base, attempt)
	}

	// Pathological collision load: fall back to a random suffix.
	suffix, err := randomDigits(6)
	if err != nil {
		return "", err
	}
	return base + suffix, nil
}

// usernameStem builds the name part: first initial plus last name, lowercased
// letters and digits only, trimmed to 8 characters.
func usernameStem(firstName, lastName string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(firstName) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(r)
			break
		}
	}
	for _, r := range strings.ToLower(lastName) {
		if b.Len() >= 8 {
			break
		}
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(r)
		}
	}
	if b.Len() == 0 {
		return "user"
	}
	return b.String()
}

func (s *credentialService) GenerateDefaultPassword() (string, error) {
	var b strings.Builder
	charsetLen := big.NewInt(int64(len(passwordCharset)))
	for i := 0; i < defaultPasswordLength; i++ {
		n, err := rand.Int(rand.Reader, charsetLen)
		if err != nil {
			return "", fmt.Errorf("failed to read entropy: %w", err)
		}
		b.WriteByte(passwordCharset[n.Int64()])
	}
	return b.String(), nil
}

func (s *credentialService) GenerateInvitationToken() (string, string, error) {
	token, err := s.GenerateOpaqueToken()
	if err != nil {
		return "", "", err
	}
	return token, s.FingerprintToken(token), nil
}

func (s *credentialService) GenerateOpaqueToken() (string, error) {
	bytes := make([]byte, invitationTokenBytes)
	if _, err := rand.Read(bytes); err != nil {
		return "", fmt.Errorf("failed to read entropy: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(bytes), nil
}

func (s *credentialService) FingerprintToken(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}

func randomDigits(n int) (string, error) {
	var b strings.Builder
	ten := big.NewInt(10)
	for i := 0; i < n; i++ {
		d, err := rand.Int(rand.Reader, ten)
		if err != nil {
			return "", fmt.Errorf("failed to read entropy: %w", err)
		}
		b.WriteString(d.String())
	}
	return b.String(), nil
}
