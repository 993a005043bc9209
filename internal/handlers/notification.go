package handlers

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/yukikurage/task-realtime-api/internal/dto"
	apierrors "github.com/yukikurage/task-realtime-api/internal/errors"
	"github.com/yukikurage/task-realtime-api/internal/services"
)

type NotificationHandler struct {
	notificationService *services.NotificationService
}

func NewNotificationHandler(notificationService *services.NotificationService) *NotificationHandler {
	return &NotificationHandler{notificationService: notificationService}
}

// ListNotifications returns the newest notifications; ?unread=true filters to unread ones
func (h *NotificationHandler) ListNotifications(c *gin.Context) {
	userID, ok := requireUserID(c)
	if !ok {
		return
	}

	notifications, err := h.notificationService.ListForUser(userID, c.Query("unread") == "true")
	if err != nil {
		respondError(c, err)
		return
	}

	respondOK(c, http.StatusOK, gin.H{"notifications": dto.ToNotificationDTOs(notifications)}, "")
}

func (h *NotificationHandler) UnreadCount(c *gin.Context) {
	userID, ok := requireUserID(c)
	if !ok {
		return
	}

	count, err := h.notificationService.UnreadCount(userID)
	if err != nil {
		respondError(c, err)
		return
	}

	respondOK(c, http.StatusOK, gin.H{"count": count}, "")
}

// MarkAsRead answers 404 for ids that do not belong to the caller
func (h *NotificationHandler) MarkAsRead(c *gin.Context) {
	userID, ok := requireUserID(c)
	if !ok {
		return
	}

	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		apierrors.NotFound(c, "Notification not found")
		return
	}

	notification, err := h.notificationService.MarkAsRead(id, userID)
	if err != nil {
		respondError(c, err)
		return
	}
	if notification == nil {
		respondError(c, services.ErrNotificationNotFound)
		return
	}

	respondOK(c, http.StatusOK, gin.H{"notification": dto.ToNotificationDTO(*notification)}, "Notification marked as read")
}

func (h *NotificationHandler) MarkAllAsRead(c *gin.Context) {
	userID, ok := requireUserID(c)
	if !ok {
		return
	}

	count, err := h.notificationService.MarkAllAsRead(userID)
	if err != nil {
		respondError(c, err)
		return
	}

	respondOK(c, http.StatusOK, gin.H{"count": count}, fmt.Sprintf("%d notifications marked as read", count))
}
