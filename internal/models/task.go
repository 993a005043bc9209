package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type TaskStatus string

const (
	TaskStatusTodo       TaskStatus = "TODO"
	TaskStatusInProgress TaskStatus = "IN_PROGRESS"
	TaskStatusReview     TaskStatus = "REVIEW"
	TaskStatusCompleted  TaskStatus = "COMPLETED"
)

// TaskStatuses lists statuses in workflow order.
var TaskStatuses = []TaskStatus{TaskStatusTodo, TaskStatusInProgress, TaskStatusReview, TaskStatusCompleted}

func (s TaskStatus) Valid() bool {
	for _, v := range TaskStatuses {
		if v == s {
			return true
		}
	}
	return false
}

type TaskPriority string

const (
	TaskPriorityLow    TaskPriority = "LOW"
	TaskPriorityMedium TaskPriority = "MEDIUM"
	TaskPriorityHigh   TaskPriority = "HIGH"
	TaskPriorityUrgent TaskPriority = "URGENT"
)

// TaskPriorities lists priorities from lowest to highest.
var TaskPriorities = []TaskPriority{TaskPriorityLow, TaskPriorityMedium, TaskPriorityHigh, TaskPriorityUrgent}

func (p TaskPriority) Valid() bool {
	for _, v := range TaskPriorities {
		if v == p {
			return true
		}
	}
	return false
}

type Task struct {
	ID           string       `gorm:"type:varchar(36);primaryKey" json:"id"`
	Title        string       `gorm:"type:varchar(100);not null" json:"title"`
	Description  string       `gorm:"type:text;not null" json:"description"`
	DueDate      time.Time    `gorm:"not null" json:"dueDate"`
	Priority     TaskPriority `gorm:"type:varchar(20);not null;default:'MEDIUM'" json:"priority"`
	Status       TaskStatus   `gorm:"type:varchar(20);not null;default:'TODO'" json:"status"`
	CreatorID    string       `gorm:"type:varchar(36);not null" json:"creatorId"`
	AssignedToID *string      `gorm:"type:varchar(36)" json:"assignedToId"`
	Version      uint64       `gorm:"not null;default:1" json:"version"`
	CreatedAt    time.Time    `json:"createdAt"`
	UpdatedAt    time.Time    `json:"updatedAt"`

	// Relations
	Creator    *User `gorm:"foreignKey:CreatorID" json:"creator,omitempty"`
	AssignedTo *User `gorm:"foreignKey:AssignedToID" json:"assignedTo,omitempty"`
}

func (t *Task) BeforeCreate(tx *gorm.DB) error {
	if t.ID == "" {
		t.ID = uuid.NewString()
	}
	if t.Version == 0 {
		t.Version = 1
	}
	return nil
}
