package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/yukikurage/task-realtime-api/internal/constants"
	"github.com/yukikurage/task-realtime-api/internal/metrics"
	"github.com/yukikurage/task-realtime-api/internal/models"
	"github.com/yukikurage/task-realtime-api/internal/repository"
)

var ErrNotificationNotFound = errors.New("notification not found")

// NotificationService persists notifications and their read state.
type NotificationService struct {
	repo repository.NotificationRepository
	now  func() time.Time
}

func NewNotificationService(repo repository.NotificationRepository) *NotificationService {
	return &NotificationService{
		repo: repo,
		now:  time.Now,
	}
}

// WithRepository returns a copy bound to repo, typically a transaction-scoped one.
func (s *NotificationService) WithRepository(repo repository.NotificationRepository) *NotificationService {
	return &NotificationService{repo: repo, now: s.now}
}

// CreateNotificationInput represents input for creating a notification
type CreateNotificationInput struct {
	Message string
	Type    string
	UserID  string
	TaskID  *string
}

func (s *NotificationService) Create(input CreateNotificationInput) (*models.Notification, error) {
	notification := &models.Notification{
		Message: input.Message,
		Type:    input.Type,
		UserID:  input.UserID,
		TaskID:  input.TaskID,
	}
	if err := s.repo.Create(notification); err != nil {
		return nil, fmt.Errorf("failed to create notification: %w", err)
	}

	metrics.RecordNotification(context.Background(), notification.Type)
	return notification, nil
}

// ListForUser returns at most 50 notifications, newest first.
func (s *NotificationService) ListForUser(userID string, unreadOnly bool) ([]models.Notification, error) {
	notifications, err := s.repo.ListByUser(userID, unreadOnly, constants.NotificationListLimit)
	if err != nil {
		return nil, fmt.Errorf("failed to list notifications: %w", err)
	}
	return notifications, nil
}

// MarkAsRead returns nil without error when no notification owned by userID matches.
func (s *NotificationService) MarkAsRead(id uint64, userID string) (*models.Notification, error) {
	notification, err := s.repo.MarkAsRead(id, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to mark notification as read: %w", err)
	}
	return notification, nil
}

func (s *NotificationService) MarkAllAsRead(userID string) (int64, error) {
	count, err := s.repo.MarkAllAsRead(userID)
	if err != nil {
		return 0, fmt.Errorf("failed to mark notifications as read: %w", err)
	}
	return count, nil
}

func (s *NotificationService) UnreadCount(userID string) (int64, error) {
	count, err := s.repo.CountUnread(userID)
	if err != nil {
		return 0, fmt.Errorf("failed to count unread notifications: %w", err)
	}
	return count, nil
}

// PruneOld deletes read notifications older than daysOld days.
func (s *NotificationService) PruneOld(daysOld int) (int64, error) {
	if daysOld <= 0 {
		daysOld = constants.DefaultNotificationRetentionDays
	}
	cutoff := s.now().AddDate(0, 0, -daysOld)
	deleted, err := s.repo.DeleteReadBefore(cutoff)
	if err != nil {
		return 0, fmt.Errorf("failed to prune notifications: %w", err)
	}
	return deleted, nil
}

// AssignmentMessage is the message shown to a user assigned to a task.
func AssignmentMessage(title string) string {
	return fmt.Sprintf("You have been assigned to task: \"%s\"", title)
}
