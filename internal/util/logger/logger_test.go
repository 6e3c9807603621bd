package logger

import (
	"context"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
)

func Test_ParseLevel_WhenLevelIsKnown_ReturnsMatchingLevel(t *testing.T) {
	assert.Equal(t, slog.LevelDebug, parseLevel("debug"))
	assert.Equal(t, slog.LevelWarn, parseLevel("WARN"))
	assert.Equal(t, slog.LevelError, parseLevel("error"))
}

func Test_ParseLevel_WhenLevelIsUnknown_FallsBackToInfo(t *testing.T) {
	assert.Equal(t, slog.LevelInfo, parseLevel(""))
	assert.Equal(t, slog.LevelInfo, parseLevel("verbose"))
}

func Test_New_WithJsonFormat_RespectsLevel(t *testing.T) {
	log := New("warn", "json")

	assert.False(t, log.Enabled(context.Background(), slog.LevelInfo))
	assert.True(t, log.Enabled(context.Background(), slog.LevelWarn))
}

func Test_GetLogger_ReturnsSameInstance(t *testing.T) {
	assert.Same(t, GetLogger(), GetLogger())
}
