package repository

import (
	"errors"
	"time"

	"github.com/yukikurage/task-realtime-api/internal/models"
	"gorm.io/gorm"
)

// GormNotificationRepository is a GORM implementation of NotificationRepository
type GormNotificationRepository struct {
	db *gorm.DB
}

func NewNotificationRepository(db *gorm.DB) NotificationRepository {
	return &GormNotificationRepository{db: db}
}

func (r *GormNotificationRepository) Create(notification *models.Notification) error {
	return r.db.Create(notification).Error
}

func (r *GormNotificationRepository) ListByUser(userID string, unreadOnly bool, limit int) ([]models.Notification, error) {
	query := r.db.Where("user_id = ?", userID)
	if unreadOnly {
		query = query.Where("is_read = ?", false)
	}

	var notifications []models.Notification
	if err := query.Order("created_at DESC").Order("id DESC").Limit(limit).Find(&notifications).Error; err != nil {
		return nil, err
	}
	return notifications, nil
}

// MarkAsRead scopes the write by owner so a foreign id never matches.
func (r *GormNotificationRepository) MarkAsRead(id uint64, userID string) (*models.Notification, error) {
	if err := r.db.Model(&models.Notification{}).
		Where("id = ? AND user_id = ?", id, userID).
		Update("is_read", true).Error; err != nil {
		return nil, err
	}

	var notification models.Notification
	err := r.db.Where("id = ? AND user_id = ?", id, userID).First(&notification).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &notification, nil
}

func (r *GormNotificationRepository) MarkAllAsRead(userID string) (int64, error) {
	result := r.db.Model(&models.Notification{}).
		Where("user_id = ? AND is_read = ?", userID, false).
		Update("is_read", true)
	return result.RowsAffected, result.Error
}

func (r *GormNotificationRepository) CountUnread(userID string) (int64, error) {
	var count int64
	err := r.db.Model(&models.Notification{}).
		Where("user_id = ? AND is_read = ?", userID, false).
		Count(&count).Error
	return count, err
}

func (r *GormNotificationRepository) DeleteReadBefore(cutoff time.Time) (int64, error) {
	result := r.db.Where("is_read = ? AND created_at < ?", true, cutoff).Delete(&models.Notification{})
	return result.RowsAffected, result.Error
}
