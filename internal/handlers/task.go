package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/yukikurage/task-realtime-api/internal/dto"
	"github.com/yukikurage/task-realtime-api/internal/models"
	"github.com/yukikurage/task-realtime-api/internal/realtime"
	"github.com/yukikurage/task-realtime-api/internal/repository"
	"github.com/yukikurage/task-realtime-api/internal/services"
	"github.com/yukikurage/task-realtime-api/internal/utils"
	"github.com/yukikurage/task-realtime-api/internal/validation"
)

type TaskHandler struct {
	taskService *services.TaskService
	publisher   EventPublisher
}

func NewTaskHandler(taskService *services.TaskService, publisher EventPublisher) *TaskHandler {
	return &TaskHandler{
		taskService: taskService,
		publisher:   publisher,
	}
}

// CreateTask creates a task and announces it to every connected client
func (h *TaskHandler) CreateTask(c *gin.Context) {
	userID, ok := requireUserID(c)
	if !ok {
		return
	}

	var req services.CreateTaskInput
	if !bindJSON(c, &req) {
		return
	}

	result, err := h.taskService.CreateTask(req, userID)
	if err != nil {
		respondError(c, err)
		return
	}

	task := dto.ToTaskDTO(*result.Task)
	h.publisher.Broadcast(realtime.TaskCreated{Task: task})
	h.notify(result.Notification)

	respondOK(c, http.StatusCreated, gin.H{"task": task}, "Task created successfully")
}

// ListTasks returns one page of tasks matching the query filters
func (h *TaskHandler) ListTasks(c *gin.Context) {
	input, verr := parseListQuery(c)
	if verr != nil {
		respondError(c, verr)
		return
	}
	params := utils.GetPaginationParams(c)
	input.Page = params.Page
	input.PageSize = params.Limit

	tasks, total, err := h.taskService.ListTasks(input)
	if err != nil {
		respondError(c, err)
		return
	}

	respondOK(c, http.StatusOK, dto.ToTaskListResponse(tasks, params.Page, params.Limit, total), "")
}

func (h *TaskHandler) GetTask(c *gin.Context) {
	task, err := h.taskService.GetTask(c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}

	respondOK(c, http.StatusOK, gin.H{"task": dto.ToTaskDTO(*task)}, "")
}

// UpdateTask applies a partial update; the broadcast carries the tracked changes
func (h *TaskHandler) UpdateTask(c *gin.Context) {
	userID, ok := requireUserID(c)
	if !ok {
		return
	}

	var req services.UpdateTaskInput
	if !bindJSON(c, &req) {
		return
	}

	result, err := h.taskService.UpdateTask(c.Param("id"), req, userID)
	if err != nil {
		respondError(c, err)
		return
	}

	task := dto.ToTaskDTO(*result.Task)
	changes := result.Changes
	if changes == nil {
		changes = []dto.FieldChange{}
	}
	h.publisher.Broadcast(realtime.TaskUpdated{Task: task, Changes: changes})
	h.notify(result.Notification)

	respondOK(c, http.StatusOK, gin.H{"task": task}, "Task updated successfully")
}

// DeleteTask is restricted to the task creator
func (h *TaskHandler) DeleteTask(c *gin.Context) {
	userID, ok := requireUserID(c)
	if !ok {
		return
	}

	taskID := c.Param("id")
	if err := h.taskService.DeleteTask(taskID, userID); err != nil {
		respondError(c, err)
		return
	}

	h.publisher.Broadcast(realtime.TaskDeleted{TaskID: taskID})
	respondOK(c, http.StatusOK, nil, "Task deleted successfully")
}

func (h *TaskHandler) GetAuditLogs(c *gin.Context) {
	logs, err := h.taskService.GetTaskAuditLogs(c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}

	respondOK(c, http.StatusOK, gin.H{"logs": dto.ToAuditLogDTOs(logs)}, "")
}

func (h *TaskHandler) GetDashboard(c *gin.Context) {
	userID, ok := requireUserID(c)
	if !ok {
		return
	}

	dashboard, err := h.taskService.GetDashboard(userID)
	if err != nil {
		respondError(c, err)
		return
	}

	respondOK(c, http.StatusOK, dto.DashboardResponse{
		Stats: dto.DashboardStatsDTO{
			Assigned:   dashboard.Stats.Assigned,
			Created:    dashboard.Stats.Created,
			Overdue:    dashboard.Stats.Overdue,
			Completed:  dashboard.Stats.Completed,
			InProgress: dashboard.Stats.InProgress,
		},
		Assigned: dto.ToTaskDTOs(dashboard.Assigned),
		Created:  dto.ToTaskDTOs(dashboard.Created),
		Overdue:  dto.ToTaskDTOs(dashboard.Overdue),
	}, "")
}

func (h *TaskHandler) notify(n *models.Notification) {
	if n == nil {
		return
	}
	h.publisher.EmitToUser(n.UserID, realtime.NotificationEvent(dto.ToNotificationDTO(*n)))
}

func parseListQuery(c *gin.Context) (services.ListTasksInput, error) {
	var input services.ListTasksInput
	var fields []validation.FieldError

	if v := c.Query("status"); v != "" {
		status := models.TaskStatus(v)
		if !status.Valid() {
			fields = append(fields, validation.FieldError{Field: "status", Message: "Invalid status"})
		}
		input.Status = &status
	}
	if v := c.Query("priority"); v != "" {
		priority := models.TaskPriority(v)
		if !priority.Valid() {
			fields = append(fields, validation.FieldError{Field: "priority", Message: "Invalid priority"})
		}
		input.Priority = &priority
	}
	if v := c.Query("assignedToId"); v != "" {
		input.AssignedToID = &v
	}
	if v := c.Query("creatorId"); v != "" {
		input.CreatorID = &v
	}
	input.Overdue = c.Query("overdue") == "true"

	input.SortBy = repository.TaskSortField(c.DefaultQuery("sortBy", string(repository.SortByCreatedAt)))
	if !input.SortBy.Valid() {
		fields = append(fields, validation.FieldError{Field: "sortBy", Message: "Invalid sort field"})
	}
	input.SortOrder = repository.SortOrder(c.DefaultQuery("sortOrder", string(repository.SortDesc)))
	if input.SortOrder != repository.SortAsc && input.SortOrder != repository.SortDesc {
		fields = append(fields, validation.FieldError{Field: "sortOrder", Message: "Sort order must be asc or desc"})
	}

	if len(fields) > 0 {
		return input, &validation.Error{Fields: fields}
	}
	return input, nil
}
