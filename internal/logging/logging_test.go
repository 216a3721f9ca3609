package logging

import (
	"bytes"
	"log/slog"
	"testing"

	json "github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in   string
		want slog.Level
		err  bool
	}{
		{"", slog.LevelInfo, false},
		{"debug", slog.LevelDebug, false},
		{"WARN", slog.LevelWarn, false},
		{"error", slog.LevelError, false},
		{"loud", 0, true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseLevel(tt.in)
			if tt.err {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestJSONFormat(t *testing.T) {
	var buf bytes.Buffer
	logger, err := New(Options{Level: "info", Format: FormatJSON, Out: &buf})
	require.NoError(t, err)

	logger.Debug("hidden")
	logger.Info("delivered", slog.String("message_id", "m1"))

	var rec map[string]any
	require.NoError(t, json.Unmarshal(bytes.TrimSpace(buf.Bytes()), &rec))
	assert.Equal(t, "delivered", rec["message"])
	assert.Equal(t, "m1", rec["message_id"])
	assert.Equal(t, "info", rec["level"])
}

func TestConsoleFormat(t *testing.T) {
	var buf bytes.Buffer
	logger, err := New(Options{Level: "debug", Out: &buf})
	require.NoError(t, err)

	logger.Debug("queue drained", slog.Int("processed", 3))
	assert.Contains(t, buf.String(), "queue drained")
	assert.Contains(t, buf.String(), "processed=")
}

func TestInvalidOptions(t *testing.T) {
	_, err := New(Options{Format: "xml"})
	assert.Error(t, err)
	_, err = Setup(Options{Level: "loud"})
	assert.Error(t, err)
}

func TestSetupInstallsDefault(t *testing.T) {
	prev := slog.Default()
	t.Cleanup(func() { slog.SetDefault(prev) })

	var buf bytes.Buffer
	_, err := Setup(Options{Level: "info", Format: FormatJSON, Out: &buf})
	require.NoError(t, err)

	slog.Info("hello")
	assert.Contains(t, buf.String(), `"hello"`)
}
