package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func env(values map[string]string) func(string) (string, bool) {
	return func(key string) (string, bool) {
		v, ok := values[key]
		return v, ok
	}
}

func noFiles(t *testing.T) []string {
	dir := t.TempDir()
	return []string{"-c", filepath.Join(dir, "missing.json"), "-env", filepath.Join(dir, "missing.env")}
}

func TestParse_Defaults(t *testing.T) {
	opts, err := parse(noFiles(t), env(nil))
	require.NoError(t, err)

	assert.Equal(t, "localhost:8080", opts.Port)
	assert.Equal(t, "sqlite://studymate.db", opts.DatabaseDSN)
	assert.Empty(t, opts.RedisURL)
	assert.Equal(t, 24*time.Hour, opts.SessionTTL)
	assert.Equal(t, time.Hour, opts.ResetTokenTTL)
	assert.False(t, opts.RejectPastDatesOnEdit)
	assert.False(t, opts.SecureCookies)
}

func TestParse_Flags(t *testing.T) {
	args := append(noFiles(t), "-a", ":9000", "-d", "postgres://u@h/db", "-r", "redis://localhost:6379/0", "-reject-past-edits")
	opts, err := parse(args, env(nil))
	require.NoError(t, err)

	assert.Equal(t, ":9000", opts.Port)
	assert.Equal(t, "postgres://u@h/db", opts.DatabaseDSN)
	assert.Equal(t, "redis://localhost:6379/0", opts.RedisURL)
	assert.True(t, opts.RejectPastDatesOnEdit)
}

func TestParse_Precedence(t *testing.T) {
	dir := t.TempDir()
	cfg := filepath.Join(dir, "config.json")
	require.NoError(t, os.WriteFile(cfg, []byte(`{
		"port": ":7000",
		"database_dsn": "sqlite://from-file.db",
		"log_level": "debug",
		"session_ttl": "2h"
	}`), 0o600))
	dotenv := filepath.Join(dir, ".env")
	require.NoError(t, os.WriteFile(dotenv, []byte("DATABASE_DSN=sqlite://from-dotenv.db\nSECURE_COOKIES=true\nSERVER_ADDRESS=:7100\n"), 0o600))

	opts, err := parse([]string{"-a", ":6000", "-c", cfg, "-env", dotenv}, env(map[string]string{
		"SERVER_ADDRESS": ":8000",
	}))
	require.NoError(t, err)

	assert.Equal(t, ":8000", opts.Port, "environment beats .env, file and flags")
	assert.Equal(t, "sqlite://from-dotenv.db", opts.DatabaseDSN, ".env beats file")
	assert.Equal(t, "debug", opts.LogLevel, "file beats flag default")
	assert.Equal(t, 2*time.Hour, opts.SessionTTL)
	assert.True(t, opts.SecureCookies)
}

func TestParse_Errors(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
	}{
		{"bad bool", map[string]string{"SECURE_COOKIES": "maybe"}},
		{"bad duration", map[string]string{"SESSION_TTL": "forever"}},
		{"negative duration", map[string]string{"RESET_TOKEN_TTL": "-1h"}},
		{"short csrf key", map[string]string{"CSRF_KEY": "too-short"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := parse(noFiles(t), env(tt.env))
			assert.Error(t, err)
		})
	}
}

func TestParse_BadConfigFile(t *testing.T) {
	cfg := filepath.Join(t.TempDir(), "config.json")
	require.NoError(t, os.WriteFile(cfg, []byte(`{not json`), 0o600))

	_, err := parse([]string{"-c", cfg, "-env", ""}, env(nil))
	assert.Error(t, err)
}
