package middleware

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	apierrors "github.com/yukikurage/task-realtime-api/internal/errors"
)

// RequireTaskID rejects requests whose :id parameter cannot name a task.
// Malformed ids answer 404 like unknown ones.
func RequireTaskID() gin.HandlerFunc {
	return func(c *gin.Context) {
		if _, err := uuid.Parse(c.Param("id")); err != nil {
			apierrors.NotFound(c, "Task not found")
			return
		}
		c.Next()
	}
}
