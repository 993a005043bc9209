package middleware

import (
	"log/slog"
	"time"

	"github.com/gin-gonic/gin"
)

// RequestLogger logs one line per request once the handler chain has finished.
func RequestLogger(logger *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path

		c.Next()

		status := c.Writer.Status()
		attrs := []any{
			slog.String("method", c.Request.Method),
			slog.String("path", path),
			slog.Int("status", status),
			slog.Duration("duration", time.Since(start)),
		}
		if userID, ok := GetUserID(c); ok {
			attrs = append(attrs, slog.String("user_id", userID))
		}

		switch {
		case status >= 500:
			logger.Error("request failed", attrs...)
		case status >= 400:
			logger.Warn("request rejected", attrs...)
		default:
			logger.Info("request handled", attrs...)
		}
	}
}
