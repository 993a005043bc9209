package config

import (
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Port        string
	GinMode     string
	FrontendURL string

	DBDriver   string
	DBHost     string
	DBPort     string
	DBUser     string
	DBPassword string
	DBName     string
	DBPath     string

	JWTSecret    string
	JWTExpiresIn time.Duration

	RedisHost     string
	RedisPort     string
	SessionSecret string

	NotificationRetentionDays int
	NotificationPruneSchedule string
	MetricsEnabled            bool
}

// Load reads configuration from the environment, falling back to development defaults.
func Load() *Config {
	v := viper.New()
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	v.SetDefault("PORT", "8080")
	v.SetDefault("GIN_MODE", "debug")
	v.SetDefault("FRONTEND_URL", "http://localhost:5173")
	v.SetDefault("DB_DRIVER", "postgres")
	v.SetDefault("DB_HOST", "localhost")
	v.SetDefault("DB_PORT", "5432")
	v.SetDefault("DB_USER", "taskuser")
	v.SetDefault("DB_PASSWORD", "taskpassword")
	v.SetDefault("DB_NAME", "task_management")
	v.SetDefault("DB_PATH", "task_management.db")
	v.SetDefault("JWT_SECRET", "default-jwt-secret-change-me")
	v.SetDefault("JWT_EXPIRES_IN", "168h")
	v.SetDefault("REDIS_HOST", "")
	v.SetDefault("REDIS_PORT", "6379")
	v.SetDefault("SESSION_SECRET", "default-secret-key-change-me")
	v.SetDefault("NOTIFICATION_RETENTION_DAYS", 30)
	v.SetDefault("NOTIFICATION_PRUNE_SCHEDULE", "@daily")
	v.SetDefault("METRICS_ENABLED", true)

	expiresIn := v.GetDuration("JWT_EXPIRES_IN")
	if expiresIn <= 0 {
		expiresIn = 7 * 24 * time.Hour
	}

	return &Config{
		Port:        v.GetString("PORT"),
		GinMode:     v.GetString("GIN_MODE"),
		FrontendURL: v.GetString("FRONTEND_URL"),

		DBDriver:   strings.ToLower(v.GetString("DB_DRIVER")),
		DBHost:     v.GetString("DB_HOST"),
		DBPort:     v.GetString("DB_PORT"),
		DBUser:     v.GetString("DB_USER"),
		DBPassword: v.GetString("DB_PASSWORD"),
		DBName:     v.GetString("DB_NAME"),
		DBPath:     v.GetString("DB_PATH"),

		JWTSecret:    v.GetString("JWT_SECRET"),
		JWTExpiresIn: expiresIn,

		RedisHost:     v.GetString("REDIS_HOST"),
		RedisPort:     v.GetString("REDIS_PORT"),
		SessionSecret: v.GetString("SESSION_SECRET"),

		NotificationRetentionDays: v.GetInt("NOTIFICATION_RETENTION_DAYS"),
		NotificationPruneSchedule: v.GetString("NOTIFICATION_PRUNE_SCHEDULE"),
		MetricsEnabled:            v.GetBool("METRICS_ENABLED"),
	}
}

// IsProduction reports whether gin runs in release mode.
func (c *Config) IsProduction() bool {
	return c.GinMode == "release"
}
