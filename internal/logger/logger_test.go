package logger

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSetLevel_FiltersBelowThreshold(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Configure("WARN", "text", "stdout"))
	SetOutput(&buf)
	defer func() { _ = Configure("INFO", "text", "stdout") }()

	Info("hidden %d", 1)
	Warn("shown %d", 2)

	out := buf.String()
	assert.NotContains(t, out, "hidden 1")
	assert.Contains(t, out, "shown 2")
}

func TestSetLevel_IgnoresUnknown(t *testing.T) {
	SetLevel("ERROR")
	defer SetLevel("INFO")

	SetLevel("verbose")
	assert.False(t, IsEnabled(LevelWarn))
	assert.True(t, IsEnabled(LevelError))
}

func TestConfigure_JSONFormat(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Configure("debug", "json", "stdout"))
	SetOutput(&buf)
	defer func() { _ = Configure("INFO", "text", "stdout") }()

	Debug("request %s", "GET /")

	line := strings.TrimSpace(buf.String())
	var entry map[string]any
	require.NoError(t, json.Unmarshal([]byte(line), &entry))
	assert.Equal(t, "request GET /", entry["msg"])
	assert.Equal(t, "debug", entry["level"])
}

func TestConfigure_FileOutput(t *testing.T) {
	path := filepath.Join(t.TempDir(), "server.log")
	require.NoError(t, Configure("INFO", "text", path))
	defer func() { _ = Configure("INFO", "text", "stdout") }()

	Info("written to file")

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "written to file")
}

func TestConfigure_RejectsUnknownFormat(t *testing.T) {
	err := Configure("INFO", "xml", "stdout")
	assert.Error(t, err)
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in   string
		want Level
		ok   bool
	}{
		{"debug", LevelDebug, true},
		{"INFO", LevelInfo, true},
		{"Warn", LevelWarn, true},
		{"error", LevelError, true},
		{"trace", LevelInfo, false},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, ok := ParseLevel(tt.in)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, tt.ok, ok)
		})
	}
}
