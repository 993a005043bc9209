package database

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/yukikurage/task-realtime-api/internal/models"
	"gorm.io/gorm"
)

type indexDef struct {
	model   interface{}
	name    string
	columns []string
}

var indexes = []indexDef{
	// Task filters and sorts
	{&models.Task{}, "idx_tasks_creator_id", []string{"creator_id"}},
	{&models.Task{}, "idx_tasks_assigned_to_id", []string{"assigned_to_id"}},
	{&models.Task{}, "idx_tasks_status", []string{"status"}},
	{&models.Task{}, "idx_tasks_priority", []string{"priority"}},
	{&models.Task{}, "idx_tasks_due_date", []string{"due_date"}},
	{&models.Task{}, "idx_tasks_created_at", []string{"created_at"}},

	{&models.AuditLog{}, "idx_audit_logs_task_id", []string{"task_id"}},

	// Notification inbox lookups
	{&models.Notification{}, "idx_notifications_user_read", []string{"user_id", "is_read"}},
	{&models.Notification{}, "idx_notifications_created_at", []string{"created_at"}},
}

// AddIndexes adds the lookup indexes that AutoMigrate does not declare.
func AddIndexes(db *gorm.DB) error {
	migrator := db.Migrator()
	for _, idx := range indexes {
		if migrator.HasIndex(idx.model, idx.name) {
			continue
		}

		stmt := &gorm.Statement{DB: db}
		if err := stmt.Parse(idx.model); err != nil {
			return fmt.Errorf("failed to parse model for index %s: %w", idx.name, err)
		}
		table := stmt.Schema.Table

		quoted := make([]string, len(idx.columns))
		for i, col := range idx.columns {
			quoted[i] = db.Statement.Quote(col)
		}
		sql := fmt.Sprintf("CREATE INDEX %s ON %s (%s)",
			db.Statement.Quote(idx.name), db.Statement.Quote(table), strings.Join(quoted, ", "))
		if err := db.Exec(sql).Error; err != nil {
			return fmt.Errorf("failed to create index %s: %w", idx.name, err)
		}

		slog.Info("created index", "index", idx.name, "table", table)
	}

	return nil
}
