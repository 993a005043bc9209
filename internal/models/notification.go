package models

import "time"

type Notification struct {
	ID        uint64    `gorm:"primarykey" json:"id"`
	Message   string    `gorm:"type:varchar(500);not null" json:"message"`
	Type      string    `gorm:"type:varchar(50);not null" json:"type"`
	Read      bool      `gorm:"column:is_read;not null;default:false" json:"read"`
	UserID    string    `gorm:"type:varchar(36);not null" json:"userId"`
	TaskID    *string   `gorm:"type:varchar(36)" json:"taskId"`
	CreatedAt time.Time `json:"createdAt"`
}
