package services

import (
	"errors"
	"fmt"
	"strings"

	"github.com/yukikurage/task-realtime-api/internal/auth"
	"github.com/yukikurage/task-realtime-api/internal/models"
	"github.com/yukikurage/task-realtime-api/internal/repository"
	"github.com/yukikurage/task-realtime-api/internal/validation"
	"gorm.io/gorm"
)

var (
	ErrEmailTaken           = errors.New("user with this email already exists")
	ErrInvalidCredentials   = errors.New("invalid email or password")
	ErrUserNotFound         = errors.New("user not found")
	ErrIncorrectPassword    = errors.New("current password is incorrect")
	ErrFailedToHashPassword = errors.New("failed to hash password")
)

// AuthService handles authentication related business logic.
type AuthService struct {
	userRepo   repository.UserRepository
	tokens     *auth.TokenManager
	bcryptCost int
}

// NewAuthService creates a new AuthService. A zero bcryptCost uses the application default.
func NewAuthService(userRepo repository.UserRepository, tokens *auth.TokenManager, bcryptCost int) *AuthService {
	return &AuthService{
		userRepo:   userRepo,
		tokens:     tokens,
		bcryptCost: bcryptCost,
	}
}

// RegisterInput represents the required information to create a new user.
type RegisterInput struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=8,password"`
	Name     string `json:"name" validate:"required,min=2,max=100"`
}

// LoginInput holds the credentials for authentication.
type LoginInput struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

type UpdateProfileInput struct {
	Name *string `json:"name" validate:"omitnil,min=2,max=100"`
}

type ChangePasswordInput struct {
	CurrentPassword string `json:"currentPassword" validate:"required"`
	NewPassword     string `json:"newPassword" validate:"required,min=8,password"`
}

// AuthResult is a user together with a freshly issued token.
type AuthResult struct {
	User  *models.User
	Token string
}

// Register creates a new user and issues a token.
func (s *AuthService) Register(input RegisterInput) (*AuthResult, error) {
	input.Email = strings.ToLower(strings.TrimSpace(input.Email))
	input.Name = strings.TrimSpace(input.Name)
	if err := validation.Struct(input); err != nil {
		return nil, err
	}

	if _, err := s.userRepo.FindByEmail(input.Email); err == nil {
		return nil, ErrEmailTaken
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("failed to check email: %w", err)
	}

	hash, err := auth.HashPassword(input.Password, s.bcryptCost)
	if err != nil {
		return nil, ErrFailedToHashPassword
	}

	user := &models.User{
		Email:        input.Email,
		Name:         input.Name,
		PasswordHash: hash,
	}
	if err := s.userRepo.Create(user); err != nil {
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	return s.issue(user)
}

// Login verifies credentials and returns the authenticated user.
func (s *AuthService) Login(input LoginInput) (*AuthResult, error) {
	input.Email = strings.ToLower(strings.TrimSpace(input.Email))
	if err := validation.Struct(input); err != nil {
		return nil, err
	}

	user, err := s.userRepo.FindByEmail(input.Email)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, fmt.Errorf("failed to find user: %w", err)
	}

	if !auth.CheckPassword(user.PasswordHash, input.Password) {
		return nil, ErrInvalidCredentials
	}

	return s.issue(user)
}

// GetUser retrieves a user by ID.
func (s *AuthService) GetUser(id string) (*models.User, error) {
	user, err := s.userRepo.FindByID(id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to find user: %w", err)
	}

	return user, nil
}

func (s *AuthService) UpdateProfile(id string, input UpdateProfileInput) (*models.User, error) {
	if input.Name != nil {
		name := strings.TrimSpace(*input.Name)
		input.Name = &name
	}
	if err := validation.Struct(input); err != nil {
		return nil, err
	}

	user, err := s.GetUser(id)
	if err != nil {
		return nil, err
	}
	if input.Name != nil {
		user.Name = *input.Name
	}
	if err := s.userRepo.Update(user); err != nil {
		return nil, fmt.Errorf("failed to update user: %w", err)
	}
	return user, nil
}

func (s *AuthService) ChangePassword(id string, input ChangePasswordInput) error {
	if err := validation.Struct(input); err != nil {
		return err
	}

	user, err := s.GetUser(id)
	if err != nil {
		return err
	}
	if !auth.CheckPassword(user.PasswordHash, input.CurrentPassword) {
		return ErrIncorrectPassword
	}

	hash, err := auth.HashPassword(input.NewPassword, s.bcryptCost)
	if err != nil {
		return ErrFailedToHashPassword
	}
	user.PasswordHash = hash
	if err := s.userRepo.Update(user); err != nil {
		return fmt.Errorf("failed to update password: %w", err)
	}
	return nil
}

func (s *AuthService) ListUsers() ([]models.User, error) {
	users, err := s.userRepo.List()
	if err != nil {
		return nil, fmt.Errorf("failed to list users: %w", err)
	}
	return users, nil
}

// VerifyToken validates a token and returns its claims.
func (s *AuthService) VerifyToken(token string) (*auth.Claims, error) {
	return s.tokens.Verify(token)
}

func (s *AuthService) issue(user *models.User) (*AuthResult, error) {
	token, err := s.tokens.Generate(user.ID, user.Email, user.Name)
	if err != nil {
		return nil, err
	}
	return &AuthResult{User: user, Token: token}, nil
}
