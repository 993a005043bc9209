package services

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/yukikurage/task-realtime-api/internal/auth"
	"github.com/yukikurage/task-realtime-api/internal/repository"
	"github.com/yukikurage/task-realtime-api/internal/validation"
	"golang.org/x/crypto/bcrypt"
)

func setupAuthService(t *testing.T) *AuthService {
	t.Helper()
	db := newTestDB(t)
	tokens := auth.NewTokenManager("test-secret", time.Hour)
	return NewAuthService(repository.NewUserRepository(db), tokens, bcrypt.MinCost)
}

func TestAuthService_RegisterAndLogin(t *testing.T) {
	service := setupAuthService(t)

	registered, err := service.Register(RegisterInput{
		Email:    "  Alice@Example.com ",
		Password: "Password1",
		Name:     "Alice",
	})
	require.NoError(t, err)
	assert.Equal(t, "alice@example.com", registered.User.Email)
	assert.NotEmpty(t, registered.User.ID)
	assert.NotEqual(t, "Password1", registered.User.PasswordHash)

	claims, err := service.VerifyToken(registered.Token)
	require.NoError(t, err)
	assert.Equal(t, registered.User.ID, claims.UserID)
	assert.Equal(t, "Alice", claims.Name)

	loggedIn, err := service.Login(LoginInput{Email: "ALICE@example.com", Password: "Password1"})
	require.NoError(t, err)
	assert.Equal(t, registered.User.ID, loggedIn.User.ID)

	_, err = service.Login(LoginInput{Email: "alice@example.com", Password: "Wrong1234"})
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	_, err = service.Login(LoginInput{Email: "nobody@example.com", Password: "Password1"})
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestAuthService_RegisterDuplicateEmail(t *testing.T) {
	service := setupAuthService(t)
	input := RegisterInput{Email: "bob@example.com", Password: "Password1", Name: "Bob"}

	_, err := service.Register(input)
	require.NoError(t, err)

	_, err = service.Register(input)
	assert.ErrorIs(t, err, ErrEmailTaken)
}

func TestAuthService_RegisterValidation(t *testing.T) {
	service := setupAuthService(t)

	tests := []struct {
		name  string
		input RegisterInput
		field string
	}{
		{"bad email", RegisterInput{Email: "nope", Password: "Password1", Name: "Bob"}, "email"},
		{"short password", RegisterInput{Email: "b@example.com", Password: "Pa1", Name: "Bob"}, "password"},
		{"password without digit", RegisterInput{Email: "b@example.com", Password: "Passwordx", Name: "Bob"}, "password"},
		{"short name", RegisterInput{Email: "b@example.com", Password: "Password1", Name: "B"}, "name"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := service.Register(tt.input)

			var verr *validation.Error
			require.ErrorAs(t, err, &verr)
			assert.True(t, verr.HasField(tt.field))
		})
	}
}

func TestAuthService_UpdateProfileAndChangePassword(t *testing.T) {
	service := setupAuthService(t)
	registered, err := service.Register(RegisterInput{Email: "c@example.com", Password: "Password1", Name: "Carol"})
	require.NoError(t, err)
	id := registered.User.ID

	name := "Caroline"
	user, err := service.UpdateProfile(id, UpdateProfileInput{Name: &name})
	require.NoError(t, err)
	assert.Equal(t, "Caroline", user.Name)

	err = service.ChangePassword(id, ChangePasswordInput{CurrentPassword: "Wrong1234", NewPassword: "Newpass123"})
	assert.ErrorIs(t, err, ErrIncorrectPassword)

	require.NoError(t, service.ChangePassword(id, ChangePasswordInput{CurrentPassword: "Password1", NewPassword: "Newpass123"}))

	_, err = service.Login(LoginInput{Email: "c@example.com", Password: "Password1"})
	assert.ErrorIs(t, err, ErrInvalidCredentials)
	_, err = service.Login(LoginInput{Email: "c@example.com", Password: "Newpass123"})
	assert.NoError(t, err)

	_, err = service.GetUser("missing")
	assert.ErrorIs(t, err, ErrUserNotFound)
}

func TestAuthService_ListUsersOrderedByName(t *testing.T) {
	service := setupAuthService(t)
	for _, name := range []string{"Zed", "Amy", "Max"} {
		_, err := service.Register(RegisterInput{Email: name + "@example.com", Password: "Password1", Name: name})
		require.NoError(t, err)
	}

	users, err := service.ListUsers()
	require.NoError(t, err)
	require.Len(t, users, 3)
	assert.Equal(t, "Amy", users[0].Name)
	assert.Equal(t, "Zed", users[2].Name)
}
