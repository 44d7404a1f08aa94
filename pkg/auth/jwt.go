package auth

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// DefaultTokenDuration bounds tokens minted by the test helper.
const DefaultTokenDuration = 15 * time.Minute

// TokenManager validates the signed role tokens callers present. Identity
// resolution happens upstream; the engine only trusts the roles claim.
type TokenManager struct {
	secretKey []byte
	tokenTTL  time.Duration
}

// Claims carries the pre-resolved caller identity and roles.
type Claims struct {
	User  string   `json:"user"`
	Roles []string `json:"roles"`
	jwt.RegisteredClaims
}

// NewTokenManager creates a new token manager.
func NewTokenManager(secretKey string) *TokenManager {
	return &TokenManager{
		secretKey: []byte(secretKey),
		tokenTTL:  DefaultTokenDuration,
	}
}

// Generate mints a token carrying user and roles. Used by tests and tooling;
// production tokens come from the upstream identity layer.
func (m *TokenManager) Generate(user string, roles []string) (string, error) {
	now := time.Now()

	claims := &Claims{
		User:  user,
		Roles: roles,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(now.Add(m.tokenTTL)),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			Issuer:    "policyflow",
			Subject:   user,
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(m.secretKey)
}

// Validate parses and verifies a token, returning its claims.
func (m *TokenManager) Validate(tokenString string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return m.secretKey, nil
	})
	if err != nil {
		return nil, fmt.Errorf("invalid token: %w", err)
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, fmt.Errorf("invalid token claims")
	}

	return claims, nil
}
