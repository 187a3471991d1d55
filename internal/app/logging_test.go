package app

import (
	"bytes"
	"encoding/json"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLogLevel(t *testing.T) {
	tests := []struct {
		input    string
		expected zerolog.Level
	}{
		{"debug", zerolog.DebugLevel},
		{"DEBUG", zerolog.DebugLevel},
		{"trace", zerolog.TraceLevel},
		{"info", zerolog.InfoLevel},
		{"warn", zerolog.WarnLevel},
		{"warning", zerolog.WarnLevel},
		{"WARNING", zerolog.WarnLevel},
		{"error", zerolog.ErrorLevel},
		{"off", zerolog.Disabled},
		{"unknown", zerolog.InfoLevel},
		{"", zerolog.InfoLevel},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.expected, ParseLogLevel(tt.input), tt.input)
	}
}

func TestNewLoggerJSON(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger(LoggerConfig{Level: zerolog.InfoLevel, Format: "json", Output: &buf})

	logger.Debug().Msg("hidden")
	engineLog := WithComponent(logger, "engine")
	engineLog.Info().Str("extension", "finder").Msg("extension activated")

	lines := bytes.Split(bytes.TrimSpace(buf.Bytes()), []byte("\n"))
	require.Len(t, lines, 1)

	var entry map[string]any
	require.NoError(t, json.Unmarshal(lines[0], &entry))
	assert.Equal(t, "info", entry["level"])
	assert.Equal(t, "engine", entry["component"])
	assert.Equal(t, "finder", entry["extension"])
	assert.Equal(t, "extension activated", entry["message"])
	assert.Contains(t, entry, "time")
}

func TestNewLoggerConsole(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger(LoggerConfig{Level: zerolog.DebugLevel, Format: "console", Output: &buf})

	logger.Warn().Str("trigger", "cmd:Telescope").Msg("no extension bound")

	out := buf.String()
	assert.Contains(t, out, "WRN")
	assert.Contains(t, out, "no extension bound")
	assert.Contains(t, out, "trigger=cmd:Telescope")
	assert.NotContains(t, out, "\x1b[", "no color for non-terminal output")
}

func TestOpenLogFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "lazyrc.log")
	f, err := openLogFile(path)
	require.NoError(t, err)
	defer f.Close()

	logger := NewLogger(LoggerConfig{Level: zerolog.InfoLevel, Format: "json", Output: f})
	logger.Info().Msg("written")
	require.NoError(t, f.Sync())
	assert.FileExists(t, path)
}
