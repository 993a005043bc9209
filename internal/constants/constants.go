package constants

// Context and session keys
const (
	ContextKeyUserID    = "user_id"
	ContextKeyUserEmail = "user_email"
	ContextKeyUserName  = "user_name"

	SessionCookieName = "task_session"
	SessionKeyToken   = "token"
)

// Pagination
const (
	MinPageSize     = 1
	DefaultPageSize = 10
	MaxPageSize     = 100
)

// Task field limits
const (
	TitleMaxLength       = 100
	DescriptionMaxLength = 5000
)

// Auth
const (
	MinPasswordLength = 8
	BcryptCost        = 12
)

// Notifications
const (
	NotificationListLimit            = 50
	DefaultNotificationRetentionDays = 30
	NotificationTypeTaskAssigned     = "TASK_ASSIGNED"
)
