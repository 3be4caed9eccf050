package services

import (
	"context"
	"fmt"
	"log"
	"strconv"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"edumart2/internal/authz"
	"edumart2/internal/caching"
	"edumart2/internal/models"
)

// TokenService issues and validates session tokens. Tenant id and role travel
// as claims for low latency; they are advisory and every write path
// re-verifies against the users row before acting.
type TokenService interface {
	GenerateTokens(ctx context.Context, user *models.User, mustChangePassword bool) (*models.TokenResponse, error)
	ValidateToken(tokenString string) (*SessionClaims, error)
	RefreshToken(ctx context.Context, refreshToken string) (*models.TokenResponse, error)
	RevokeRefreshToken(ctx context.Context, refreshToken string) error

	// ResolveContext turns a bearer token into an auth context. Absent,
	// invalid or malformed tokens degrade to the unauthenticated context;
	// this never returns an error.
	ResolveContext(tokenString string) authz.AuthContext
}

// SessionClaims represents JWT claims
type SessionClaims struct {
	UserID   string  `json:"user_id"`
	TenantID *string `json:"tenant_id,omitempty"`
	Role     string  `json:"role"`
	TokenID  string  `json:"token_id"`
	jwt.RegisteredClaims
}

type tokenService struct {
	cacheSvc   caching.CacheService
	credSvc    CredentialService
	jwtSecret  []byte
	tokenTTL   int // Access token TTL in seconds
	refreshTTL int // Refresh token TTL in seconds
}

func NewTokenService(cacheSvc caching.CacheService, credSvc CredentialService, jwtSecret string, tokenTTLSeconds, refreshTTLSeconds int) TokenService {
	return &tokenService{
		cacheSvc:   cacheSvc,
		credSvc:    credSvc,
		jwtSecret:  []byte(jwtSecret),
		tokenTTL:   tokenTTLSeconds,
		refreshTTL: refreshTTLSeconds,
	}
}

func (s *tokenService) GenerateTokens(ctx context.Context, user *models.User, mustChangePassword bool) (*models.TokenResponse, error) {
	now := time.Now()
	tokenID := uuid.NewString()

	var tenantClaim *string
	if user.TenantID != nil {
		t := user.TenantID.String()
		tenantClaim = &t
	}

	claims := SessionClaims{
		UserID:   user.ID.String(),
		TenantID: tenantClaim,
		Role:     user.Role,
		TokenID:  tokenID,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    "edumart-auth",
			Subject:   user.ID.String(),
			Audience:  jwt.ClaimStrings{"edumart-api"},
			ExpiresAt: jwt.NewNumericDate(now.Add(time.Duration(s.tokenTTL) * time.Second)),
			IssuedAt:  jwt.NewNumericDate(now),
			ID:        tokenID,
		},
	}

	accessToken := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	accessTokenString, err := accessToken.SignedString(s.jwtSecret)
	if err != nil {
		return nil, fmt.Errorf("failed to sign JWT: %v", err)
	}

	refreshToken, err := s.credSvc.GenerateOpaqueToken()
	if err != nil {
		return nil, fmt.Errorf("failed to generate refresh token: %v", err)
	}
	refreshTokenHash := s.credSvc.FingerprintToken(refreshToken)

	// Refresh tokens live in redis keyed by fingerprint, raw token never stored.
	tenantPart := ""
	if tenantClaim != nil {
		tenantPart = *tenantClaim
	}
	refreshTokenData := fmt.Sprintf("%s:%s:%s:%d", user.ID.String(), tenantPart, user.Role, now.Unix()+int64(s.refreshTTL))
	cacheKey := fmt.Sprintf("refresh_token:%s", refreshTokenHash)
	if err := s.cacheSvc.SetString(ctx, cacheKey, refreshTokenData, time.Duration(s.refreshTTL)*time.Second); err != nil {
		log.Printf("Failed to store refresh token: %v", err)
		// Continue - token generation succeeded
	}

	return &models.TokenResponse{
		AccessToken:        accessTokenString,
		TokenType:          "Bearer",
		ExpiresIn:          s.tokenTTL,
		RefreshToken:       refreshToken,
		UserID:             user.ID.String(),
		TenantID:           tenantClaim,
		Role:               user.Role,
		TokenID:            tokenID,
		MustChangePassword: mustChangePassword,
		IssuedAt:           now,
	}, nil
}

func (s *tokenService) RefreshToken(ctx context.Context, refreshToken string) (*models.TokenResponse, error) {
	refreshTokenHash := s.credSvc.FingerprintToken(refreshToken)

	cacheKey := fmt.Sprintf("refresh_token:%s", refreshTokenHash)
	tokenData, err := s.cacheSvc.GetString(ctx, cacheKey)
	if err != nil {
		return nil, fmt.Errorf("invalid refresh token")
	}

	parts := strings.Split(tokenData, ":")
	if len(parts) != 4 {
		return nil, fmt.Errorf("invalid token data")
	}

	userIDStr, tenantIDStr, role, expiryStr := parts[0], parts[1], parts[2], parts[3]
	expiry, err := strconv.ParseInt(expiryStr, 10, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid token expiry")
	}

	if time.Now().Unix() > expiry {
		s.cacheSvc.Delete(ctx, cacheKey)
		return nil, fmt.Errorf("refresh token expired")
	}

	userID, err := uuid.Parse(userIDStr)
	if err != nil {
		return nil, fmt.Errorf("invalid user ID in token")
	}

	user := &models.User{ID: userID, Role: role}
	if tenantIDStr != "" {
		tenantID, err := uuid.Parse(tenantIDStr)
		if err != nil {
			return nil, fmt.Errorf("invalid tenant ID in token")
		}
		user.TenantID = &tenantID
	}

	// Single-use rotation: the consumed refresh token is dropped.
	s.cacheSvc.Delete(ctx, cacheKey)

	return s.GenerateTokens(ctx, user, false)
}

func (s *tokenService) RevokeRefreshToken(ctx context.Context, refreshToken string) error {
	refreshTokenHash := s.credSvc.FingerprintToken(refreshToken)
	return s.cacheSvc.Delete(ctx, fmt.Sprintf("refresh_token:%s", refreshTokenHash))
}

func (s *tokenService) ValidateToken(tokenString string) (*SessionClaims, error) {
	jwtToken, err := jwt.ParseWithClaims(tokenString, &SessionClaims{}, func(token *jwt.Token) (interface{}, error) {
		return s.jwtSecret, nil
	})
	if err != nil {
		return nil, fmt.Errorf("token validation failed: %v", err)
	}

	if claims, ok := jwtToken.Claims.(*SessionClaims); ok && jwtToken.Valid {
		return claims, nil
	}

	return nil, fmt.Errorf("invalid token claims")
}

func (s *tokenService) ResolveContext(tokenString string) authz.AuthContext {
	if tokenString == "" {
		return authz.AuthContext{}
	}

	claims, err := s.ValidateToken(tokenString)
	if err != nil {
		return authz.AuthContext{}
	}

	return ContextFromClaims(claims)
}

// ContextFromClaims builds an auth context from validated session claims.
// Malformed claim values degrade to the unauthenticated context rather than
// partial trust.
func ContextFromClaims(claims *SessionClaims) authz.AuthContext {
	userID, err := uuid.Parse(claims.UserID)
	if err != nil || userID == uuid.Nil {
		return authz.AuthContext{}
	}
	if !models.ValidRole(claims.Role) {
		return authz.AuthContext{}
	}

	var tenantID *uuid.UUID
	if claims.TenantID != nil && *claims.TenantID != "" {
		t, err := uuid.Parse(*claims.TenantID)
		if err != nil {
			return authz.AuthContext{}
		}
		tenantID = &t
	}

	return authz.AuthContext{
		UserID:          userID,
		TenantID:        tenantID,
		Role:            claims.Role,
		Permissions:     authz.PermissionsForRole(claims.Role),
		IsAuthenticated: true,
	}
}
