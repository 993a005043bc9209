package repository

import (
	"github.com/yukikurage/task-realtime-api/internal/models"
	"gorm.io/gorm"
)

// GormAuditLogRepository is a GORM implementation of AuditLogRepository
type GormAuditLogRepository struct {
	db *gorm.DB
}

func NewAuditLogRepository(db *gorm.DB) AuditLogRepository {
	return &GormAuditLogRepository{db: db}
}

func (r *GormAuditLogRepository) Create(entry *models.AuditLog) error {
	return r.db.Omit("User").Create(entry).Error
}

// CreateBatch inserts entries in slice order so ids follow evaluation order.
func (r *GormAuditLogRepository) CreateBatch(entries []models.AuditLog) error {
	if len(entries) == 0 {
		return nil
	}
	return r.db.Omit("User").Create(&entries).Error
}

func (r *GormAuditLogRepository) ListByTask(taskID string) ([]models.AuditLog, error) {
	var logs []models.AuditLog
	err := r.db.Preload("User").
		Where("task_id = ?", taskID).
		Order("created_at DESC").
		Order("id DESC").
		Find(&logs).Error
	if err != nil {
		return nil, err
	}
	return logs, nil
}
