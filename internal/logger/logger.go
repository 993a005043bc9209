package logger

import (
	"io"
	"log/slog"
	"os"
)

// New builds the process logger: JSON in production, text otherwise.
func New(production bool) *slog.Logger {
	return newWithWriter(os.Stdout, production)
}

func newWithWriter(w io.Writer, production bool) *slog.Logger {
	if production {
		return slog.New(slog.NewJSONHandler(w, &slog.HandlerOptions{Level: slog.LevelInfo}))
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: slog.LevelDebug}))
}
