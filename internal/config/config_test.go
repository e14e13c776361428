package config

import (
	"bytes"
	"context"
	"log/slog"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_MissingFileUsesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.NoError(t, err)

	assert.Equal(t, "http://localhost:5000", cfg.Backend.MailURL)
	assert.Equal(t, "http://localhost:5001", cfg.Backend.ChatURL)
	assert.Equal(t, 180*time.Second, cfg.Timeout())
	assert.Equal(t, "inbox", cfg.Inbox.Folder)
	assert.Equal(t, time.Duration(0), cfg.RefreshInterval())
	assert.Equal(t, 1500*time.Millisecond, cfg.CloseDelay())
	require.NoError(t, cfg.Validate())
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("INBOXDESK_BACKEND_MAIL_URL", "http://mail.internal:8080/")
	t.Setenv("INBOXDESK_USER_NAME", "Ann")

	cfg, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.NoError(t, err)

	assert.Equal(t, "http://mail.internal:8080", cfg.Backend.MailURL)
	assert.Equal(t, "Ann", cfg.User.Name)
}

func TestSaveThenLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.yaml")

	cfg := Default()
	cfg.Backend.MailURL = "http://10.0.0.5:5000"
	cfg.User.Name = "Ann Lee"
	cfg.Inbox.RefreshIntervalSec = 60
	cfg.Reply.CloseDelayMS = 500
	require.NoError(t, Save(path, cfg))
	assert.True(t, Exists(path))

	loaded, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "http://10.0.0.5:5000", loaded.Backend.MailURL)
	assert.Equal(t, "Ann Lee", loaded.User.Name)
	assert.Equal(t, time.Minute, loaded.RefreshInterval())
	assert.Equal(t, 500*time.Millisecond, loaded.CloseDelay())
}

func TestValidate(t *testing.T) {
	cfg := Default()
	cfg.Backend.ChatURL = " "
	assert.ErrorContains(t, cfg.Validate(), "backend.chat_url")

	cfg = Default()
	cfg.Log.Level = "loud"
	assert.ErrorContains(t, cfg.Validate(), "unknown log level")
}

func TestParseLogLevel(t *testing.T) {
	tests := []struct {
		in   string
		want slog.Level
	}{
		{"", slog.LevelInfo},
		{"TRACE", LevelTrace},
		{"debug", slog.LevelDebug},
		{"Warning", slog.LevelWarn},
		{"error", slog.LevelError},
	}
	for _, tt := range tests {
		got, err := ParseLogLevel(tt.in)
		require.NoError(t, err, tt.in)
		assert.Equal(t, tt.want, got, tt.in)
	}

	_, err := ParseLogLevel("verbose")
	assert.Error(t, err)
}

func TestNewLogger_TraceLabel(t *testing.T) {
	var buf bytes.Buffer
	logger, err := NewLogger(&buf, "trace")
	require.NoError(t, err)

	logger.Log(context.Background(), LevelTrace, "payload")
	assert.Contains(t, buf.String(), "level=TRACE")
}
