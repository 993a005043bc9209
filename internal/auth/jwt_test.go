package auth

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func TestTokenManager_RoundTrip(t *testing.T) {
	m := NewTokenManager("secret", time.Hour)

	token, err := m.Generate("u1", "u1@example.com", "User One")
	require.NoError(t, err)

	claims, err := m.Verify(token)
	require.NoError(t, err)
	assert.Equal(t, "u1", claims.UserID)
	assert.Equal(t, "u1@example.com", claims.Email)
	assert.Equal(t, "User One", claims.Name)
}

func TestTokenManager_RejectsWrongSecret(t *testing.T) {
	token, err := NewTokenManager("secret", time.Hour).Generate("u1", "e", "n")
	require.NoError(t, err)

	_, err = NewTokenManager("other", time.Hour).Verify(token)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestTokenManager_RejectsExpired(t *testing.T) {
	m := NewTokenManager("secret", time.Minute)
	m.now = func() time.Time { return time.Now().Add(-2 * time.Hour) }
	token, err := m.Generate("u1", "e", "n")
	require.NoError(t, err)

	m.now = time.Now
	_, err = m.Verify(token)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestTokenManager_RejectsOtherAlgorithms(t *testing.T) {
	claims := Claims{UserID: "u1"}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS512, claims).SignedString([]byte("secret"))
	require.NoError(t, err)

	_, err = NewTokenManager("secret", time.Hour).Verify(token)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestTokenManager_MissingToken(t *testing.T) {
	_, err := NewTokenManager("secret", time.Hour).Verify("")
	assert.ErrorIs(t, err, ErrMissingToken)
}

func TestBearerToken(t *testing.T) {
	assert.Equal(t, "abc", BearerToken("Bearer abc"))
	assert.Equal(t, "abc", BearerToken("bearer abc"))
	assert.Equal(t, "", BearerToken("Basic abc"))
	assert.Equal(t, "", BearerToken("Bearer "))
	assert.Equal(t, "", BearerToken(""))
}

func TestPassword(t *testing.T) {
	hash, err := HashPassword("Secret123", bcrypt.MinCost)
	require.NoError(t, err)

	assert.True(t, CheckPassword(hash, "Secret123"))
	assert.False(t, CheckPassword(hash, "secret123"))
}
