package dto

import (
	"time"

	"github.com/yukikurage/task-realtime-api/internal/models"
)

type NotificationDTO struct {
	ID        uint64    `json:"id"`
	Message   string    `json:"message"`
	Type      string    `json:"type"`
	Read      bool      `json:"read"`
	UserID    string    `json:"userId"`
	TaskID    *string   `json:"taskId"`
	CreatedAt time.Time `json:"createdAt"`
}

func ToNotificationDTO(n models.Notification) NotificationDTO {
	return NotificationDTO{
		ID:        n.ID,
		Message:   n.Message,
		Type:      n.Type,
		Read:      n.Read,
		UserID:    n.UserID,
		TaskID:    n.TaskID,
		CreatedAt: n.CreatedAt,
	}
}

func ToNotificationDTOs(notifications []models.Notification) []NotificationDTO {
	out := make([]NotificationDTO, len(notifications))
	for i, n := range notifications {
		out[i] = ToNotificationDTO(n)
	}
	return out
}
