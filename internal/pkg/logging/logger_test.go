package logging

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLevel(t *testing.T) {
	assert.Equal(t, slog.LevelDebug, ParseLevel("debug"))
	assert.Equal(t, slog.LevelWarn, ParseLevel("WARN"))
	assert.Equal(t, slog.LevelError, ParseLevel("error"))
	assert.Equal(t, slog.LevelInfo, ParseLevel("info"))
	assert.Equal(t, slog.LevelInfo, ParseLevel("verbose"))
}

func TestNewLogger(t *testing.T) {
	prev := slog.Default()
	t.Cleanup(func() { slog.SetDefault(prev) })

	t.Run("Production Writes JSON", func(t *testing.T) {
		var buf bytes.Buffer
		logger := newLogger(&buf, "info", true)
		logger.Info("hello", "reference", "BK20250310ABCDEF")
		logger.Debug("hidden")

		lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
		require.Len(t, lines, 1)
		var entry map[string]any
		require.NoError(t, json.Unmarshal([]byte(lines[0]), &entry))
		assert.Equal(t, "hello", entry["msg"])
		assert.Equal(t, "BK20250310ABCDEF", entry["reference"])
	})

	t.Run("Development Writes Text And Becomes Default", func(t *testing.T) {
		var buf bytes.Buffer
		newLogger(&buf, "debug", false)
		slog.Debug("via default", "k", "v")

		assert.Contains(t, buf.String(), "msg=\"via default\"")
		assert.Contains(t, buf.String(), "k=v")
	})
}
