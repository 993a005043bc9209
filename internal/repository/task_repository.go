package repository

import (
	"fmt"
	"strings"
	"time"

	"github.com/yukikurage/task-realtime-api/internal/database"
	"github.com/yukikurage/task-realtime-api/internal/models"
	"github.com/yukikurage/task-realtime-api/internal/utils"
	"gorm.io/gorm"
)

// GormTaskRepository is a GORM implementation of TaskRepository
type GormTaskRepository struct {
	db *gorm.DB
}

// NewTaskRepository creates a new TaskRepository
func NewTaskRepository(db *gorm.DB) TaskRepository {
	return &GormTaskRepository{db: db}
}

// Create creates a new task
func (r *GormTaskRepository) Create(task *models.Task) error {
	return r.db.Omit("Creator", "AssignedTo").Create(task).Error
}

// FindByID finds a task by ID with optional preloading
func (r *GormTaskRepository) FindByID(id string, preload ...string) (*models.Task, error) {
	var task models.Task
	query := r.db

	for _, p := range preload {
		query = query.Preload(p)
	}

	if err := query.Where("id = ?", id).First(&task).Error; err != nil {
		return nil, err
	}

	return &task, nil
}

func (r *GormTaskRepository) filtered(filter TaskFilter) *gorm.DB {
	query := r.db.Model(&models.Task{})

	if filter.Status != nil {
		query = query.Where("tasks.status = ?", *filter.Status)
	}
	if filter.Priority != nil {
		query = query.Where("tasks.priority = ?", *filter.Priority)
	}
	if filter.AssignedToID != nil {
		query = query.Where("tasks.assigned_to_id = ?", *filter.AssignedToID)
	}
	if filter.CreatorID != nil {
		query = query.Where("tasks.creator_id = ?", *filter.CreatorID)
	}
	if filter.InvolvedUserID != nil {
		query = query.Where("(tasks.assigned_to_id = ? OR tasks.creator_id = ?)", *filter.InvolvedUserID, *filter.InvolvedUserID)
	}
	if filter.Overdue {
		now := filter.Now
		if now.IsZero() {
			now = time.Now()
		}
		query = query.Where("tasks.due_date < ? AND tasks.status <> ?", now.UTC(), models.TaskStatusCompleted)
	}

	return query
}

// List retrieves tasks with filtering and pagination
func (r *GormTaskRepository) List(filter TaskFilter) ([]models.Task, int64, error) {
	var tasks []models.Task

	var total int64
	if err := r.filtered(filter).Count(&total).Error; err != nil {
		return nil, 0, err
	}

	listQuery := r.filtered(filter).Order(orderClause(filter.SortBy, filter.SortOrder))

	if filter.Page > 0 && filter.PageSize > 0 {
		listQuery = listQuery.Scopes(database.Paginate(utils.NewPaginationParams(filter.Page, filter.PageSize)))
	}

	if err := listQuery.Preload("Creator").Preload("AssignedTo").Find(&tasks).Error; err != nil {
		return nil, 0, err
	}

	return tasks, total, nil
}

// Count counts tasks matching the filter
func (r *GormTaskRepository) Count(filter TaskFilter) (int64, error) {
	var total int64
	err := r.filtered(filter).Count(&total).Error
	return total, err
}

// UpdateFields applies a partial update guarded by the task version.
func (r *GormTaskRepository) UpdateFields(id string, expectedVersion uint64, fields map[string]interface{}) error {
	updates := make(map[string]interface{}, len(fields)+1)
	for k, v := range fields {
		updates[k] = v
	}
	updates["version"] = gorm.Expr("version + ?", 1)

	result := r.db.Model(&models.Task{}).
		Where("id = ? AND version = ?", id, expectedVersion).
		Updates(updates)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrStaleTask
	}
	return nil
}

// Delete removes audit entries first, detaches notifications, then drops the task.
func (r *GormTaskRepository) Delete(id string) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("task_id = ?", id).Delete(&models.AuditLog{}).Error; err != nil {
			return fmt.Errorf("failed to delete audit logs: %w", err)
		}

		if err := tx.Model(&models.Notification{}).
			Where("task_id = ?", id).
			Update("task_id", nil).Error; err != nil {
			return fmt.Errorf("failed to detach notifications: %w", err)
		}

		result := tx.Where("id = ?", id).Delete(&models.Task{})
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return gorm.ErrRecordNotFound
		}
		return nil
	})
}

func orderClause(sortBy TaskSortField, order SortOrder) string {
	direction := "DESC"
	if order == SortAsc {
		direction = "ASC"
	}

	var column string
	switch sortBy {
	case SortByDueDate:
		column = "tasks.due_date"
	case SortByPriority:
		column = rankExpression("tasks.priority", priorityNames())
	case SortByStatus:
		column = rankExpression("tasks.status", statusNames())
	default:
		column = "tasks.created_at"
	}

	return fmt.Sprintf("%s %s, tasks.id %s", column, direction, direction)
}

// rankExpression orders enum columns by declaration order instead of alphabetically.
func rankExpression(column string, values []string) string {
	var b strings.Builder
	b.WriteString("CASE ")
	b.WriteString(column)
	for i, v := range values {
		fmt.Fprintf(&b, " WHEN '%s' THEN %d", v, i+1)
	}
	b.WriteString(" ELSE 0 END")
	return b.String()
}

func priorityNames() []string {
	names := make([]string, len(models.TaskPriorities))
	for i, p := range models.TaskPriorities {
		names[i] = string(p)
	}
	return names
}

func statusNames() []string {
	names := make([]string, len(models.TaskStatuses))
	for i, s := range models.TaskStatuses {
		names[i] = string(s)
	}
	return names
}
