package dto

import (
	"time"

	"github.com/yukikurage/task-realtime-api/internal/models"
)

// TaskDTO represents a task in API responses and realtime events
type TaskDTO struct {
	ID           string              `json:"id"`
	Title        string              `json:"title"`
	Description  string              `json:"description"`
	DueDate      time.Time           `json:"dueDate"`
	Priority     models.TaskPriority `json:"priority"`
	Status       models.TaskStatus   `json:"status"`
	CreatorID    string              `json:"creatorId"`
	AssignedToID *string             `json:"assignedToId"`
	Version      uint64              `json:"version"`
	CreatedAt    time.Time           `json:"createdAt"`
	UpdatedAt    time.Time           `json:"updatedAt"`
	Creator      *UserDTO            `json:"creator,omitempty"`
	AssignedTo   *UserDTO            `json:"assignedTo"`
}

// FieldChange is one tracked field modified by an update.
type FieldChange struct {
	Field    string `json:"field"`
	OldValue string `json:"oldValue"`
	NewValue string `json:"newValue"`
}

// TaskListResponse represents a paginated list of tasks
type TaskListResponse struct {
	Tasks      []TaskDTO `json:"tasks"`
	Total      int64     `json:"total"`
	Page       int       `json:"page"`
	Limit      int       `json:"limit"`
	TotalPages int       `json:"totalPages"`
}

// DashboardStatsDTO holds the per-user task counters
type DashboardStatsDTO struct {
	Assigned   int64 `json:"assigned"`
	Created    int64 `json:"created"`
	Overdue    int64 `json:"overdue"`
	Completed  int64 `json:"completed"`
	InProgress int64 `json:"inProgress"`
}

type DashboardResponse struct {
	Stats    DashboardStatsDTO `json:"stats"`
	Assigned []TaskDTO         `json:"assigned"`
	Created  []TaskDTO         `json:"created"`
	Overdue  []TaskDTO         `json:"overdue"`
}

// AuditLogDTO represents one audit trail entry with its actor
type AuditLogDTO struct {
	ID        uint64             `json:"id"`
	Action    models.AuditAction `json:"action"`
	Field     *string            `json:"field"`
	OldValue  *string            `json:"oldValue"`
	NewValue  *string            `json:"newValue"`
	TaskID    string             `json:"taskId"`
	UserID    string             `json:"userId"`
	CreatedAt time.Time          `json:"createdAt"`
	User      *UserSummaryDTO    `json:"user,omitempty"`
}

// ToTaskDTO converts a Task model to TaskDTO
func ToTaskDTO(task models.Task) TaskDTO {
	dto := TaskDTO{
		ID:           task.ID,
		Title:        task.Title,
		Description:  task.Description,
		DueDate:      task.DueDate,
		Priority:     task.Priority,
		Status:       task.Status,
		CreatorID:    task.CreatorID,
		AssignedToID: task.AssignedToID,
		Version:      task.Version,
		CreatedAt:    task.CreatedAt,
		UpdatedAt:    task.UpdatedAt,
	}

	// Include relations if preloaded
	if task.Creator != nil {
		creator := ToUserDTO(*task.Creator)
		dto.Creator = &creator
	}
	if task.AssignedTo != nil {
		assignee := ToUserDTO(*task.AssignedTo)
		dto.AssignedTo = &assignee
	}

	return dto
}

func ToTaskDTOs(tasks []models.Task) []TaskDTO {
	out := make([]TaskDTO, len(tasks))
	for i, task := range tasks {
		out[i] = ToTaskDTO(task)
	}
	return out
}

// ToTaskListResponse converts a slice of tasks to TaskListResponse
func ToTaskListResponse(tasks []models.Task, page, limit int, total int64) TaskListResponse {
	totalPages := 0
	if limit > 0 {
		totalPages = int(total) / limit
		if int(total)%limit > 0 {
			totalPages++
		}
	}

	return TaskListResponse{
		Tasks:      ToTaskDTOs(tasks),
		Total:      total,
		Page:       page,
		Limit:      limit,
		TotalPages: totalPages,
	}
}

func ToAuditLogDTO(entry models.AuditLog) AuditLogDTO {
	dto := AuditLogDTO{
		ID:        entry.ID,
		Action:    entry.Action,
		Field:     entry.Field,
		OldValue:  entry.OldValue,
		NewValue:  entry.NewValue,
		TaskID:    entry.TaskID,
		UserID:    entry.UserID,
		CreatedAt: entry.CreatedAt,
	}
	if entry.User != nil {
		summary := ToUserSummaryDTO(*entry.User)
		dto.User = &summary
	}
	return dto
}

func ToAuditLogDTOs(entries []models.AuditLog) []AuditLogDTO {
	out := make([]AuditLogDTO, len(entries))
	for i, e := range entries {
		out[i] = ToAuditLogDTO(e)
	}
	return out
}
