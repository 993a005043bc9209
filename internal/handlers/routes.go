package handlers

import (
	"github.com/gin-gonic/gin"
	"github.com/yukikurage/task-realtime-api/internal/auth"
	"github.com/yukikurage/task-realtime-api/internal/middleware"
)

// Handlers groups everything mounted by RegisterRoutes.
type Handlers struct {
	Auth          *AuthHandler
	Tasks         *TaskHandler
	Notifications *NotificationHandler
	Health        *HealthHandler
	Realtime      gin.HandlerFunc
}

// RegisterRoutes mounts /health and the /api/v1 tree.
func RegisterRoutes(r *gin.Engine, h Handlers, verifier auth.TokenVerifier) {
	if h.Health != nil {
		r.GET("/health", h.Health.Health)
	}

	requireAuth := middleware.RequireAuth(verifier)
	api := r.Group("/api/v1")
	{
		authRoutes := api.Group("/auth")
		{
			authRoutes.POST("/register", h.Auth.Register)
			authRoutes.POST("/login", h.Auth.Login)
			authRoutes.POST("/logout", h.Auth.Logout)
			authRoutes.GET("/me", requireAuth, h.Auth.GetCurrentUser)
			authRoutes.PUT("/me", requireAuth, h.Auth.UpdateProfile)
			authRoutes.PUT("/password", requireAuth, h.Auth.ChangePassword)
			authRoutes.GET("/users", requireAuth, h.Auth.ListUsers)
		}

		tasks := api.Group("/tasks")
		tasks.Use(requireAuth)
		{
			tasks.GET("/dashboard", h.Tasks.GetDashboard)
			tasks.GET("", h.Tasks.ListTasks)
			tasks.POST("", h.Tasks.CreateTask)
			tasks.GET("/:id", middleware.RequireTaskID(), h.Tasks.GetTask)
			tasks.PUT("/:id", middleware.RequireTaskID(), h.Tasks.UpdateTask)
			tasks.DELETE("/:id", middleware.RequireTaskID(), h.Tasks.DeleteTask)
			tasks.GET("/:id/audit", middleware.RequireTaskID(), h.Tasks.GetAuditLogs)
		}

		notifications := api.Group("/notifications")
		notifications.Use(requireAuth)
		{
			notifications.GET("", h.Notifications.ListNotifications)
			notifications.GET("/count", h.Notifications.UnreadCount)
			notifications.PUT("/read-all", h.Notifications.MarkAllAsRead)
			notifications.PUT("/:id/read", h.Notifications.MarkAsRead)
		}

		if h.Realtime != nil {
			api.GET("/ws", h.Realtime)
		}
	}
}
