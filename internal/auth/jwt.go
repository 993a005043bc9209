package auth

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var (
	ErrMissingToken = errors.New("authentication token is required")
	ErrInvalidToken = errors.New("invalid or expired token")
)

// Claims identifies the authenticated user behind a token.
type Claims struct {
	UserID string `json:"id"`
	Email  string `json:"email"`
	Name   string `json:"name"`
	jwt.RegisteredClaims
}

// TokenVerifier is the contract shared by the HTTP middleware and the realtime handshake.
type TokenVerifier interface {
	Verify(token string) (*Claims, error)
}

// TokenManager issues and verifies HS256 tokens.
type TokenManager struct {
	secret    []byte
	expiresIn time.Duration
	now       func() time.Time
}

func NewTokenManager(secret string, expiresIn time.Duration) *TokenManager {
	return &TokenManager{
		secret:    []byte(secret),
		expiresIn: expiresIn,
		now:       time.Now,
	}
}

func (m *TokenManager) Generate(userID, email, name string) (string, error) {
	now := m.now()
	claims := Claims{
		UserID: userID,
		Email:  email,
		Name:   name,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(m.expiresIn)),
		},
	}

	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(m.secret)
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}
	return token, nil
}

func (m *TokenManager) Verify(tokenString string) (*Claims, error) {
	if tokenString == "" {
		return nil, ErrMissingToken
	}

	claims := &Claims{}
	_, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
		return m.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(m.now),
	)
	if err != nil || claims.UserID == "" {
		return nil, ErrInvalidToken
	}
	return claims, nil
}

// BearerToken extracts the token from an Authorization header value.
func BearerToken(header string) string {
	const prefix = "Bearer "
	if len(header) > len(prefix) && strings.EqualFold(header[:len(prefix)], prefix) {
		return strings.TrimSpace(header[len(prefix):])
	}
	return ""
}
