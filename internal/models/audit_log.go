package models

import "time"

type AuditAction string

const (
	AuditActionCreate       AuditAction = "CREATE"
	AuditActionUpdate       AuditAction = "UPDATE"
	AuditActionDelete       AuditAction = "DELETE"
	AuditActionAssign       AuditAction = "ASSIGN"
	AuditActionStatusChange AuditAction = "STATUS_CHANGE"
)

// AuditLog is an append-only record of one change applied to a task.
type AuditLog struct {
	ID        uint64      `gorm:"primarykey" json:"id"`
	Action    AuditAction `gorm:"type:varchar(20);not null" json:"action"`
	Field     *string     `gorm:"type:varchar(50)" json:"field"`
	OldValue  *string     `gorm:"type:text" json:"oldValue"`
	NewValue  *string     `gorm:"type:text" json:"newValue"`
	TaskID    string      `gorm:"type:varchar(36);not null" json:"taskId"`
	UserID    string      `gorm:"type:varchar(36);not null" json:"userId"`
	CreatedAt time.Time   `json:"createdAt"`

	// Relations
	User *User `gorm:"foreignKey:UserID" json:"user,omitempty"`
}
