package dto

import (
	"time"

	"github.com/yukikurage/task-realtime-api/internal/models"
)

// UserDTO represents a user in API responses. The password hash is never exposed.
type UserDTO struct {
	ID        string    `json:"id"`
	Email     string    `json:"email"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

type UserSummaryDTO struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
}

type UserWithPresenceDTO struct {
	UserDTO
	Online bool `json:"online"`
}

type AuthResponse struct {
	User  UserDTO `json:"user"`
	Token string  `json:"token"`
}

// ToUserDTO converts a User model to UserDTO
func ToUserDTO(user models.User) UserDTO {
	return UserDTO{
		ID:        user.ID,
		Email:     user.Email,
		Name:      user.Name,
		CreatedAt: user.CreatedAt,
		UpdatedAt: user.UpdatedAt,
	}
}

func ToUserSummaryDTO(user models.User) UserSummaryDTO {
	return UserSummaryDTO{ID: user.ID, Name: user.Name, Email: user.Email}
}
