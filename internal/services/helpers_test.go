package services

import (
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/yukikurage/task-realtime-api/internal/models"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// newTestDB opens a fresh in-memory database pinned to one connection,
// so every query and transaction sees the same schema.
func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() {
		sqlDB.Close()
	})

	require.NoError(t, db.AutoMigrate(models.All()...))
	return db
}

func createUser(t *testing.T, db *gorm.DB, id, email, name string) *models.User {
	t.Helper()
	user := &models.User{ID: id, Email: email, Name: name, PasswordHash: "hashed"}
	require.NoError(t, db.Create(user).Error)
	return user
}

func strPtr(s string) *string {
	return &s
}
