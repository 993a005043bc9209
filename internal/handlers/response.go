package handlers

import (
	"errors"
	"log/slog"

	"github.com/gin-gonic/gin"
	apierrors "github.com/yukikurage/task-realtime-api/internal/errors"
	"github.com/yukikurage/task-realtime-api/internal/middleware"
	"github.com/yukikurage/task-realtime-api/internal/realtime"
	"github.com/yukikurage/task-realtime-api/internal/services"
	"github.com/yukikurage/task-realtime-api/internal/validation"
)

// EventPublisher pushes realtime events to connected clients.
type EventPublisher interface {
	Broadcast(event realtime.Event)
	EmitToUser(userID string, event realtime.Event)
}

// PresenceChecker reports whether a user currently holds a realtime connection.
type PresenceChecker interface {
	IsOnline(userID string) bool
}

func respondOK(c *gin.Context, status int, data interface{}, message string) {
	body := gin.H{"success": true}
	if data != nil {
		body["data"] = data
	}
	if message != "" {
		body["message"] = message
	}
	c.JSON(status, body)
}

// bindJSON decodes the body into req and runs the shared validator on it.
// It writes the error response and returns false on failure.
func bindJSON(c *gin.Context, req interface{}) bool {
	if err := c.ShouldBindJSON(req); err != nil {
		apierrors.BadRequest(c, "Invalid request body")
		return false
	}
	if err := validation.Struct(req); err != nil {
		respondError(c, err)
		return false
	}
	return true
}

func requireUserID(c *gin.Context) (string, bool) {
	userID, ok := middleware.GetUserID(c)
	if !ok {
		apierrors.Unauthorized(c, "Not authenticated")
	}
	return userID, ok
}

func respondError(c *gin.Context, err error) {
	var verr *validation.Error
	switch {
	case errors.As(err, &verr):
		apierrors.ValidationFailed(c, verr)
	case errors.Is(err, services.ErrAssigneeNotFound):
		apierrors.ValidationFailed(c, validation.NewError("assignedToId", "Assigned user does not exist"))
	case errors.Is(err, services.ErrTaskNotFound):
		apierrors.NotFound(c, "Task not found")
	case errors.Is(err, services.ErrNotTaskCreator):
		apierrors.Forbidden(c, "Only the task creator can delete this task")
	case errors.Is(err, services.ErrTaskConflict):
		apierrors.Conflict(c, "Task was modified by another request")
	case errors.Is(err, services.ErrNotificationNotFound):
		apierrors.NotFound(c, "Notification not found")
	case errors.Is(err, services.ErrEmailTaken):
		apierrors.AlreadyExists(c, "User with this email already exists")
	case errors.Is(err, services.ErrInvalidCredentials):
		apierrors.InvalidCredentials(c, "Invalid email or password")
	case errors.Is(err, services.ErrUserNotFound):
		apierrors.NotFound(c, "User not found")
	case errors.Is(err, services.ErrIncorrectPassword):
		apierrors.BadRequest(c, "Current password is incorrect")
	default:
		slog.Error("request failed", "method", c.Request.Method, "path", c.FullPath(), "error", err)
		apierrors.InternalError(c, err.Error())
	}
}
