package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLoad_Defaults(t *testing.T) {
	cfg := Load()

	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, "postgres", cfg.DBDriver)
	assert.Equal(t, 7*24*time.Hour, cfg.JWTExpiresIn)
	assert.Equal(t, 30, cfg.NotificationRetentionDays)
	assert.Equal(t, "@daily", cfg.NotificationPruneSchedule)
	assert.False(t, cfg.IsProduction())
}

func TestLoad_FromEnvironment(t *testing.T) {
	t.Setenv("PORT", "9090")
	t.Setenv("GIN_MODE", "release")
	t.Setenv("DB_DRIVER", "SQLite")
	t.Setenv("JWT_EXPIRES_IN", "2h")
	t.Setenv("NOTIFICATION_RETENTION_DAYS", "7")
	t.Setenv("METRICS_ENABLED", "false")

	cfg := Load()

	assert.Equal(t, "9090", cfg.Port)
	assert.Equal(t, "sqlite", cfg.DBDriver)
	assert.Equal(t, 2*time.Hour, cfg.JWTExpiresIn)
	assert.Equal(t, 7, cfg.NotificationRetentionDays)
	assert.False(t, cfg.MetricsEnabled)
	assert.True(t, cfg.IsProduction())
}
