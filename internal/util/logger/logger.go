package logger

import (
	"log/slog"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/lmittmann/tint"
)

var (
	once   sync.Once
	logger *slog.Logger
)

// GetLogger returns the process-wide logger. Level and format come straight
// from LOG_LEVEL / LOG_FORMAT because the config package logs while loading.
func GetLogger() *slog.Logger {
	once.Do(func() {
		logger = New(os.Getenv("LOG_LEVEL"), os.Getenv("LOG_FORMAT"))
	})

	return logger
}

func New(level, format string) *slog.Logger {
	logLevel := parseLevel(level)

	var handler slog.Handler
	switch strings.ToLower(format) {
	case "json":
		handler = slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: logLevel})
	default:
		handler = tint.NewHandler(os.Stdout, &tint.Options{
			Level:      logLevel,
			TimeFormat: time.TimeOnly,
		})
	}

	return slog.New(handler)
}

func parseLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
