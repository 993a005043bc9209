package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/yukikurage/task-realtime-api/internal/constants"
	"github.com/yukikurage/task-realtime-api/internal/dto"
	"github.com/yukikurage/task-realtime-api/internal/metrics"
	"github.com/yukikurage/task-realtime-api/internal/models"
	"github.com/yukikurage/task-realtime-api/internal/repository"
	"github.com/yukikurage/task-realtime-api/internal/validation"
	"gorm.io/gorm"
)

var (
	ErrTaskNotFound     = errors.New("task not found")
	ErrNotTaskCreator   = errors.New("only the task creator can delete this task")
	ErrTaskConflict     = errors.New("task was modified by another request")
	ErrAssigneeNotFound = errors.New("assigned user does not exist")
)

// UnassignedLabel replaces a null assignee in change records.
const UnassignedLabel = "Unassigned"

var taskRelations = []string{"Creator", "AssignedTo"}

// TaskService handles task business logic
type TaskService struct {
	repos         *repository.Repositories
	notifications *NotificationService
	now           func() time.Time
}

// NewTaskService creates a new TaskService
func NewTaskService(repos *repository.Repositories, notifications *NotificationService) *TaskService {
	return &TaskService{
		repos:         repos,
		notifications: notifications,
		now:           time.Now,
	}
}

// CreateTaskInput represents input for creating a task
type CreateTaskInput struct {
	Title        string              `json:"title" validate:"required,max=100"`
	Description  string              `json:"description" validate:"required,max=5000"`
	DueDate      string              `json:"dueDate" validate:"required,date"`
	Priority     models.TaskPriority `json:"priority" validate:"omitempty,oneof=LOW MEDIUM HIGH URGENT"`
	Status       models.TaskStatus   `json:"status" validate:"omitempty,oneof=TODO IN_PROGRESS REVIEW COMPLETED"`
	AssignedToID *string             `json:"assignedToId"`
}

// UpdateTaskInput is a partial update; nil fields are left untouched.
// AssignedToID distinguishes "not provided" from an explicit null (unassign).
type UpdateTaskInput struct {
	Title        *string              `json:"title" validate:"omitnil,min=1,max=100"`
	Description  *string              `json:"description" validate:"omitnil,min=1,max=5000"`
	DueDate      *string              `json:"dueDate" validate:"omitnil,date"`
	Priority     *models.TaskPriority `json:"priority" validate:"omitnil,oneof=LOW MEDIUM HIGH URGENT"`
	Status       *models.TaskStatus   `json:"status" validate:"omitnil,oneof=TODO IN_PROGRESS REVIEW COMPLETED"`
	AssignedToID dto.Nullable[string] `json:"assignedToId"`
}

// FieldChange records one tracked field that an update modified.
type FieldChange = dto.FieldChange

type CreateTaskResult struct {
	Task *models.Task
	// Notification is set when the task was assigned to someone other than its creator.
	Notification *models.Notification
}

type UpdateTaskResult struct {
	Task            *models.Task
	Changes         []FieldChange
	AssigneeChanged bool
	NewAssigneeID   *string
	Notification    *models.Notification
}

// ListTasksInput represents filters for listing tasks
type ListTasksInput struct {
	Status       *models.TaskStatus
	Priority     *models.TaskPriority
	AssignedToID *string
	CreatorID    *string
	Overdue      bool
	SortBy       repository.TaskSortField
	SortOrder    repository.SortOrder
	Page         int
	PageSize     int
}

type DashboardStats struct {
	Assigned   int64
	Created    int64
	Overdue    int64
	Completed  int64
	InProgress int64
}

type Dashboard struct {
	Stats    DashboardStats
	Assigned []models.Task
	Created  []models.Task
	Overdue  []models.Task
}

// CreateTask persists a task together with its CREATE audit entry and,
// when assigned to someone else, the assignment notification.
func (s *TaskService) CreateTask(input CreateTaskInput, creatorID string) (*CreateTaskResult, error) {
	if err := validation.Struct(input); err != nil {
		return nil, err
	}

	dueDate, err := validation.ParseDate(input.DueDate)
	if err != nil {
		return nil, validation.NewError("dueDate", "Invalid date format")
	}
	if input.Priority == "" {
		input.Priority = models.TaskPriorityMedium
	}
	if input.Status == "" {
		input.Status = models.TaskStatusTodo
	}
	assigneeID := normalizeID(input.AssignedToID)

	task := &models.Task{
		Title:        input.Title,
		Description:  input.Description,
		DueDate:      dueDate,
		Priority:     input.Priority,
		Status:       input.Status,
		CreatorID:    creatorID,
		AssignedToID: assigneeID,
		Version:      1,
	}

	result := &CreateTaskResult{}
	err = s.repos.Transaction(func(tx *repository.Repositories) error {
		if err := ensureUserExists(tx.Users, assigneeID); err != nil {
			return err
		}

		if err := tx.Tasks.Create(task); err != nil {
			return fmt.Errorf("failed to create task: %w", err)
		}

		if err := tx.AuditLogs.Create(&models.AuditLog{
			Action: models.AuditActionCreate,
			TaskID: task.ID,
			UserID: creatorID,
		}); err != nil {
			return fmt.Errorf("failed to record audit entry: %w", err)
		}

		if assigneeID != nil && *assigneeID != creatorID {
			notification, err := s.notifications.WithRepository(tx.Notifications).Create(CreateNotificationInput{
				Message: AssignmentMessage(task.Title),
				Type:    constants.NotificationTypeTaskAssigned,
				UserID:  *assigneeID,
				TaskID:  &task.ID,
			})
			if err != nil {
				return err
			}
			result.Notification = notification
		}
		return nil
	})
	if err != nil {
		metrics.RecordTaskOp(context.Background(), "create", "error")
		return nil, err
	}
	metrics.RecordTaskOp(context.Background(), "create", "success")

	created, err := s.repos.Tasks.FindByID(task.ID, taskRelations...)
	if err != nil {
		return nil, fmt.Errorf("failed to reload task: %w", err)
	}
	result.Task = created
	return result, nil
}

// UpdateTask applies a partial update, appending one audit entry per tracked change.
// The write is conditional on the version read here, so a concurrent update yields ErrTaskConflict.
func (s *TaskService) UpdateTask(taskID string, input UpdateTaskInput, actorID string) (*UpdateTaskResult, error) {
	if err := validation.Struct(input); err != nil {
		return nil, err
	}

	existing, err := s.repos.Tasks.FindByID(taskID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrTaskNotFound
		}
		return nil, fmt.Errorf("failed to find task: %w", err)
	}

	d, err := diffTask(existing, input)
	if err != nil {
		return nil, err
	}

	result := &UpdateTaskResult{
		Changes:         d.changes,
		AssigneeChanged: d.assigneeChanged,
		NewAssigneeID:   d.newAssigneeID,
	}

	err = s.repos.Transaction(func(tx *repository.Repositories) error {
		if d.assigneeChanged {
			if err := ensureUserExists(tx.Users, d.newAssigneeID); err != nil {
				return err
			}
		}

		if err := tx.Tasks.UpdateFields(taskID, existing.Version, d.fields); err != nil {
			if errors.Is(err, repository.ErrStaleTask) {
				return ErrTaskConflict
			}
			return fmt.Errorf("failed to update task: %w", err)
		}

		if err := tx.AuditLogs.CreateBatch(auditEntries(taskID, actorID, d.changes)); err != nil {
			return fmt.Errorf("failed to record audit entries: %w", err)
		}

		if d.assigneeChanged && d.newAssigneeID != nil && *d.newAssigneeID != actorID {
			notification, err := s.notifications.WithRepository(tx.Notifications).Create(CreateNotificationInput{
				Message: AssignmentMessage(d.title),
				Type:    constants.NotificationTypeTaskAssigned,
				UserID:  *d.newAssigneeID,
				TaskID:  &existing.ID,
			})
			if err != nil {
				return err
			}
			result.Notification = notification
		}
		return nil
	})
	if err != nil {
		outcome := "error"
		if errors.Is(err, ErrTaskConflict) {
			outcome = "conflict"
		}
		metrics.RecordTaskOp(context.Background(), "update", outcome)
		return nil, err
	}
	metrics.RecordTaskOp(context.Background(), "update", "success")

	updated, err := s.repos.Tasks.FindByID(taskID, taskRelations...)
	if err != nil {
		return nil, fmt.Errorf("failed to reload task: %w", err)
	}
	result.Task = updated
	return result, nil
}

// DeleteTask deletes a task if the actor is the creator
func (s *TaskService) DeleteTask(taskID, actorID string) error {
	task, err := s.repos.Tasks.FindByID(taskID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrTaskNotFound
		}
		return fmt.Errorf("failed to find task: %w", err)
	}

	if task.CreatorID != actorID {
		metrics.RecordTaskOp(context.Background(), "delete", "forbidden")
		return ErrNotTaskCreator
	}

	if err := s.repos.Tasks.Delete(taskID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrTaskNotFound
		}
		metrics.RecordTaskOp(context.Background(), "delete", "error")
		return fmt.Errorf("failed to delete task: %w", err)
	}

	metrics.RecordTaskOp(context.Background(), "delete", "success")
	return nil
}

// GetTask returns a task with creator and assignee loaded
func (s *TaskService) GetTask(taskID string) (*models.Task, error) {
	task, err := s.repos.Tasks.FindByID(taskID, taskRelations...)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrTaskNotFound
		}
		return nil, fmt.Errorf("failed to find task: %w", err)
	}
	return task, nil
}

// ListTasks returns one page of tasks matching the filters
func (s *TaskService) ListTasks(input ListTasksInput) ([]models.Task, int64, error) {
	sortBy := input.SortBy
	if !sortBy.Valid() {
		sortBy = repository.SortByCreatedAt
	}
	sortOrder := input.SortOrder
	if sortOrder != repository.SortAsc {
		sortOrder = repository.SortDesc
	}

	tasks, total, err := s.repos.Tasks.List(repository.TaskFilter{
		Status:       input.Status,
		Priority:     input.Priority,
		AssignedToID: input.AssignedToID,
		CreatorID:    input.CreatorID,
		Overdue:      input.Overdue,
		Now:          s.now(),
		SortBy:       sortBy,
		SortOrder:    sortOrder,
		Page:         input.Page,
		PageSize:     input.PageSize,
	})
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list tasks: %w", err)
	}
	return tasks, total, nil
}

// GetDashboard aggregates the counters and task lists shown on a user's dashboard.
func (s *TaskService) GetDashboard(userID string) (*Dashboard, error) {
	stats, err := s.GetDashboardStats(userID)
	if err != nil {
		return nil, err
	}

	now := s.now()
	assigned, _, err := s.repos.Tasks.List(repository.TaskFilter{
		AssignedToID: &userID,
		SortBy:       repository.SortByDueDate,
		SortOrder:    repository.SortAsc,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list assigned tasks: %w", err)
	}
	created, _, err := s.repos.Tasks.List(repository.TaskFilter{
		CreatorID: &userID,
		SortBy:    repository.SortByCreatedAt,
		SortOrder: repository.SortDesc,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list created tasks: %w", err)
	}
	overdue, _, err := s.repos.Tasks.List(repository.TaskFilter{
		InvolvedUserID: &userID,
		Overdue:        true,
		Now:            now,
		SortBy:         repository.SortByDueDate,
		SortOrder:      repository.SortAsc,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list overdue tasks: %w", err)
	}

	return &Dashboard{
		Stats:    *stats,
		Assigned: assigned,
		Created:  created,
		Overdue:  overdue,
	}, nil
}

func (s *TaskService) GetDashboardStats(userID string) (*DashboardStats, error) {
	now := s.now()
	completed := models.TaskStatusCompleted
	inProgress := models.TaskStatusInProgress

	filters := []repository.TaskFilter{
		{AssignedToID: &userID},
		{CreatorID: &userID},
		{InvolvedUserID: &userID, Overdue: true, Now: now},
		{InvolvedUserID: &userID, Status: &completed},
		{InvolvedUserID: &userID, Status: &inProgress},
	}
	counts := make([]int64, len(filters))
	for i, f := range filters {
		count, err := s.repos.Tasks.Count(f)
		if err != nil {
			return nil, fmt.Errorf("failed to count tasks: %w", err)
		}
		counts[i] = count
	}

	return &DashboardStats{
		Assigned:   counts[0],
		Created:    counts[1],
		Overdue:    counts[2],
		Completed:  counts[3],
		InProgress: counts[4],
	}, nil
}

// GetTaskAuditLogs returns the audit trail of an existing task, newest first.
func (s *TaskService) GetTaskAuditLogs(taskID string) ([]models.AuditLog, error) {
	if _, err := s.repos.Tasks.FindByID(taskID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrTaskNotFound
		}
		return nil, fmt.Errorf("failed to find task: %w", err)
	}

	logs, err := s.repos.AuditLogs.ListByTask(taskID)
	if err != nil {
		return nil, fmt.Errorf("failed to list audit logs: %w", err)
	}
	return logs, nil
}

type taskDiff struct {
	changes         []FieldChange
	fields          map[string]interface{}
	assigneeChanged bool
	newAssigneeID   *string
	title           string
}

// diffTask compares the present patch fields against the stored task.
// Tracked fields are evaluated in a fixed order: title, status, priority, assignedToId.
func diffTask(existing *models.Task, patch UpdateTaskInput) (*taskDiff, error) {
	d := &taskDiff{
		fields: make(map[string]interface{}),
		title:  existing.Title,
	}

	if patch.Title != nil {
		d.fields["title"] = *patch.Title
		d.title = *patch.Title
		if *patch.Title != existing.Title {
			d.changes = append(d.changes, FieldChange{Field: "title", OldValue: existing.Title, NewValue: *patch.Title})
		}
	}

	if patch.Status != nil {
		d.fields["status"] = *patch.Status
		if *patch.Status != existing.Status {
			d.changes = append(d.changes, FieldChange{Field: "status", OldValue: string(existing.Status), NewValue: string(*patch.Status)})
		}
	}

	if patch.Priority != nil {
		d.fields["priority"] = *patch.Priority
		if *patch.Priority != existing.Priority {
			d.changes = append(d.changes, FieldChange{Field: "priority", OldValue: string(existing.Priority), NewValue: string(*patch.Priority)})
		}
	}

	if patch.AssignedToID.Set {
		next := normalizeID(patch.AssignedToID.Value)
		if !sameID(next, existing.AssignedToID) {
			d.assigneeChanged = true
			d.newAssigneeID = next
			d.changes = append(d.changes, FieldChange{
				Field:    "assignedToId",
				OldValue: assigneeLabel(existing.AssignedToID),
				NewValue: assigneeLabel(next),
			})
			if next == nil {
				d.fields["assigned_to_id"] = nil
			} else {
				d.fields["assigned_to_id"] = *next
			}
		}
	}

	if patch.Description != nil {
		d.fields["description"] = *patch.Description
	}
	if patch.DueDate != nil {
		dueDate, err := validation.ParseDate(*patch.DueDate)
		if err != nil {
			return nil, validation.NewError("dueDate", "Invalid date format")
		}
		d.fields["due_date"] = dueDate
	}

	return d, nil
}

func auditEntries(taskID, actorID string, changes []FieldChange) []models.AuditLog {
	entries := make([]models.AuditLog, 0, len(changes))
	for _, c := range changes {
		action := models.AuditActionUpdate
		if c.Field == "status" {
			action = models.AuditActionStatusChange
		}
		field, oldValue, newValue := c.Field, c.OldValue, c.NewValue
		entries = append(entries, models.AuditLog{
			Action:   action,
			Field:    &field,
			OldValue: &oldValue,
			NewValue: &newValue,
			TaskID:   taskID,
			UserID:   actorID,
		})
	}
	return entries
}

func ensureUserExists(users repository.UserRepository, id *string) error {
	if id == nil {
		return nil
	}
	ok, err := users.Exists(*id)
	if err != nil {
		return fmt.Errorf("failed to look up assignee: %w", err)
	}
	if !ok {
		return ErrAssigneeNotFound
	}
	return nil
}

// normalizeID treats an empty or blank id as no id.
func normalizeID(id *string) *string {
	if id == nil {
		return nil
	}
	trimmed := strings.TrimSpace(*id)
	if trimmed == "" {
		return nil
	}
	return &trimmed
}

func sameID(a, b *string) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}

func assigneeLabel(id *string) string {
	if id == nil {
		return UnassignedLabel
	}
	return *id
}
