package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadMissingFileFallsBackToDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, "coursehub_dev", cfg.Database.Database)
	assert.Equal(t, 24*time.Hour, cfg.JWT.Expiration.Std())
}

func TestLoadParsesDurations(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	data := []byte("database:\n  timeout: 3s\n  conn_max_lifetime: 15m\njwt:\n  expiration: 48h\n")
	require.NoError(t, os.WriteFile(path, data, 0644))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 3*time.Second, cfg.Database.Timeout.Std())
	assert.Equal(t, 15*time.Minute, cfg.Database.ConnMaxLifetime.Std())
	assert.Equal(t, 48*time.Hour, cfg.JWT.Expiration.Std())
	// Untouched sections keep defaults
	assert.Equal(t, "coursehub", cfg.Database.User)
}

func TestLoadRejectsBadDuration(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	data := []byte("database:\n  timeout: soon\n")
	require.NoError(t, os.WriteFile(path, data, 0644))

	_, err := Load(path)
	assert.Error(t, err)
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("COURSEHUB_JWT_SECRET", "from-env")
	t.Setenv("COURSEHUB_DB_HOST", "db.internal")

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "from-env", cfg.JWT.Secret)
	assert.Equal(t, "db.internal", cfg.Database.Host)
}
