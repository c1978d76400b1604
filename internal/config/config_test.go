package config

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{"POSTBOX_STORAGE", "POSTBOX_SNAPSHOT_PATH", "POSTBOX_SHARE_BASE_URL", "DATABASE_URL", "LOG_LEVEL"} {
		t.Setenv(key, "")
	}
}

func TestFromEnv_Defaults(t *testing.T) {
	clearEnv(t)

	cfg, err := FromEnv()
	require.NoError(t, err)
	assert.Equal(t, StorageFile, cfg.Storage)
	assert.Equal(t, "posts.json", cfg.SnapshotPath)
	assert.Equal(t, "http://myapp.com", cfg.ShareBaseURL)
	assert.Equal(t, defaultDatabaseURL, cfg.DatabaseURL)
	assert.Equal(t, slog.LevelInfo, cfg.LogLevel)
}

func TestFromEnv_Overrides(t *testing.T) {
	clearEnv(t)
	t.Setenv("POSTBOX_STORAGE", "Postgres")
	t.Setenv("POSTBOX_SNAPSHOT_PATH", "/var/lib/postbox/posts.cbor")
	t.Setenv("POSTBOX_SHARE_BASE_URL", "https://share.example")
	t.Setenv("DATABASE_URL", "postgres://u:p@db:5432/postbox")
	t.Setenv("LOG_LEVEL", "debug")

	cfg, err := FromEnv()
	require.NoError(t, err)
	assert.Equal(t, StoragePostgres, cfg.Storage)
	assert.Equal(t, "/var/lib/postbox/posts.cbor", cfg.SnapshotPath)
	assert.Equal(t, "https://share.example", cfg.ShareBaseURL)
	assert.Equal(t, "postgres://u:p@db:5432/postbox", cfg.DatabaseURL)
	assert.Equal(t, slog.LevelDebug, cfg.LogLevel)
}

func TestFromEnv_Invalid(t *testing.T) {
	tests := []struct {
		name   string
		key    string
		value  string
		errMsg string
	}{
		{name: "unknown storage", key: "POSTBOX_STORAGE", value: "s3", errMsg: "invalid POSTBOX_STORAGE"},
		{name: "unknown log level", key: "LOG_LEVEL", value: "loud", errMsg: "invalid LOG_LEVEL"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clearEnv(t)
			t.Setenv(tt.key, tt.value)

			_, err := FromEnv()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.errMsg)
		})
	}
}

func TestLoad_DotEnv(t *testing.T) {
	clearEnv(t)
	os.Unsetenv("POSTBOX_STORAGE")
	os.Unsetenv("POSTBOX_SHARE_BASE_URL")

	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".env"),
		[]byte("POSTBOX_STORAGE=memory\nPOSTBOX_SHARE_BASE_URL=https://dotenv.example\n"), 0o600))
	chdir(t, dir)

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, StorageMemory, cfg.Storage)
	assert.Equal(t, "https://dotenv.example", cfg.ShareBaseURL)
}

func TestLoad_NoDotEnv(t *testing.T) {
	clearEnv(t)
	chdir(t, t.TempDir())

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, StorageFile, cfg.Storage)
}

// chdir changes the working directory for the duration of the test, restoring it on cleanup.
func chdir(t *testing.T, dir string) {
	t.Helper()
	prev, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { _ = os.Chdir(prev) })
}
