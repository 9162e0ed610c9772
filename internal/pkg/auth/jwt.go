// internal/pkg/auth/jwt.go
package auth

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/your-org/marketplace-backend/internal/config"
)

// Token kinds carried in the token_type claim. A refresh token is never
// accepted where an access token is expected, and vice versa.
const (
	tokenKindAccess  = "access"
	tokenKindRefresh = "refresh"
)

// Claims is the payload of both token kinds
type Claims struct {
	UserID    uint   `json:"user_id"`
	Email     string `json:"email"`
	IsAdmin   bool   `json:"is_admin"`
	TokenType string `json:"token_type"`
	jwt.RegisteredClaims
}

// JWTManager signs and verifies HS256 tokens. It captures the secret,
// issuer and lifetimes at construction so callers never reach back into
// the config.
type JWTManager struct {
	secret     []byte
	issuer     string
	accessTTL  time.Duration
	refreshTTL time.Duration
}

func NewJWTManager(cfg *config.Config) *JWTManager {
	return &JWTManager{
		secret:     []byte(cfg.JWT.Secret),
		issuer:     cfg.App.Name,
		accessTTL:  cfg.JWT.AccessTokenExpiry,
		refreshTTL: cfg.JWT.RefreshTokenExpiry,
	}
}

// GenerateAccessToken issues a short-lived token carrying the user's
// admin flag.
func (j *JWTManager) GenerateAccessToken(userID uint, email string, isAdmin bool) (string, error) {
	return j.issue(tokenKindAccess, userID, email, isAdmin, j.accessTTL)
}

// GenerateRefreshToken issues a long-lived token. The admin flag is
// re-read from the database on refresh, so it is never baked in here.
func (j *JWTManager) GenerateRefreshToken(userID uint, email string) (string, error) {
	return j.issue(tokenKindRefresh, userID, email, false, j.refreshTTL)
}

func (j *JWTManager) issue(kind string, userID uint, email string, isAdmin bool, ttl time.Duration) (string, error) {
	now := time.Now().UTC()
	claims := &Claims{
		UserID:    userID,
		Email:     email,
		IsAdmin:   isAdmin,
		TokenType: kind,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			Issuer:    j.issuer,
			Subject:   fmt.Sprintf("user:%d", userID),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(j.secret)
}

// ValidateToken verifies the signature and standard claims of either
// token kind
func (j *JWTManager) ValidateToken(tokenString string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return j.secret, nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to parse token: %w", err)
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, fmt.Errorf("invalid token claims")
	}
	if claims.TokenType == "" {
		return nil, fmt.Errorf("token type not specified")
	}
	return claims, nil
}

// ValidateAccessToken rejects anything but a valid access token
func (j *JWTManager) ValidateAccessToken(tokenString string) (*Claims, error) {
	return j.validateKind(tokenString, tokenKindAccess)
}

// ValidateRefreshToken rejects anything but a valid refresh token
func (j *JWTManager) ValidateRefreshToken(tokenString string) (*Claims, error) {
	return j.validateKind(tokenString, tokenKindRefresh)
}

func (j *JWTManager) validateKind(tokenString, kind string) (*Claims, error) {
	claims, err := j.ValidateToken(tokenString)
	if err != nil {
		return nil, err
	}
	if claims.TokenType != kind {
		return nil, fmt.Errorf("invalid token type: expected %s, got %s", kind, claims.TokenType)
	}
	return claims, nil
}

// ExtractTokenFromHeader strips the Bearer prefix from an Authorization
// header. Returns "" when the header does not carry a bearer token.
func ExtractTokenFromHeader(authHeader string) string {
	if len(authHeader) > 7 && authHeader[:7] == "Bearer " {
		return authHeader[7:]
	}
	return ""
}
