package repository

import (
	"errors"
	"time"

	"github.com/yukikurage/task-realtime-api/internal/models"
	"gorm.io/gorm"
)

// ErrStaleTask is returned when a conditional task write finds a newer version.
var ErrStaleTask = errors.New("task repository: stale task version")

// TaskRepository defines the interface for task data access
type TaskRepository interface {
	// Create creates a new task
	Create(task *models.Task) error

	// FindByID finds a task by ID with optional preloading
	FindByID(id string, preload ...string) (*models.Task, error)

	// List retrieves tasks with filtering, sorting and pagination
	List(filter TaskFilter) ([]models.Task, int64, error)

	// Count counts tasks matching the filter
	Count(filter TaskFilter) (int64, error)

	// UpdateFields writes the given columns if the stored version still matches
	UpdateFields(id string, expectedVersion uint64, fields map[string]interface{}) error

	// Delete removes a task along with its audit trail
	Delete(id string) error
}

type TaskSortField string

const (
	SortByDueDate   TaskSortField = "dueDate"
	SortByCreatedAt TaskSortField = "createdAt"
	SortByPriority  TaskSortField = "priority"
	SortByStatus    TaskSortField = "status"
)

func (f TaskSortField) Valid() bool {
	switch f {
	case SortByDueDate, SortByCreatedAt, SortByPriority, SortByStatus:
		return true
	}
	return false
}

type SortOrder string

const (
	SortAsc  SortOrder = "asc"
	SortDesc SortOrder = "desc"
)

// TaskFilter holds filtering options for listing tasks
type TaskFilter struct {
	Status         *models.TaskStatus
	Priority       *models.TaskPriority
	AssignedToID   *string
	CreatorID      *string
	InvolvedUserID *string
	Overdue        bool
	Now            time.Time
	SortBy         TaskSortField
	SortOrder      SortOrder
	Page           int
	PageSize       int
}

// UserRepository defines the interface for user data access
type UserRepository interface {
	// Create creates a new user
	Create(user *models.User) error

	// FindByID finds a user by ID
	FindByID(id string) (*models.User, error)

	// FindByEmail finds a user by email
	FindByEmail(email string) (*models.User, error)

	// Update saves profile and password changes
	Update(user *models.User) error

	// List returns every user ordered by name
	List() ([]models.User, error)

	// Exists reports whether a user with the ID exists
	Exists(id string) (bool, error)
}

// NotificationRepository defines the interface for notification data access
type NotificationRepository interface {
	Create(notification *models.Notification) error

	// ListByUser returns the newest notifications of a user
	ListByUser(userID string, unreadOnly bool, limit int) ([]models.Notification, error)

	// MarkAsRead flips one notification owned by userID; nil when none matched
	MarkAsRead(id uint64, userID string) (*models.Notification, error)

	// MarkAllAsRead flips every unread notification of a user
	MarkAllAsRead(userID string) (int64, error)

	CountUnread(userID string) (int64, error)

	// DeleteReadBefore removes read notifications created before cutoff
	DeleteReadBefore(cutoff time.Time) (int64, error)
}

// AuditLogRepository defines the interface for the append-only task audit trail
type AuditLogRepository interface {
	Create(entry *models.AuditLog) error
	CreateBatch(entries []models.AuditLog) error

	// ListByTask returns entries newest first with the acting user preloaded
	ListByTask(taskID string) ([]models.AuditLog, error)
}

// Repositories bundles every repository bound to one database handle.
type Repositories struct {
	db *gorm.DB

	Users         UserRepository
	Tasks         TaskRepository
	Notifications NotificationRepository
	AuditLogs     AuditLogRepository
}

func NewRepositories(db *gorm.DB) *Repositories {
	return &Repositories{
		db:            db,
		Users:         NewUserRepository(db),
		Tasks:         NewTaskRepository(db),
		Notifications: NewNotificationRepository(db),
		AuditLogs:     NewAuditLogRepository(db),
	}
}

// Transaction runs fn with repositories bound to a single database transaction.
func (r *Repositories) Transaction(fn func(tx *Repositories) error) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		return fn(NewRepositories(tx))
	})
}
