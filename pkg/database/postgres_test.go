package database

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func devConfig() Config {
	return Config{
		Host:            "localhost",
		Port:            5432,
		User:            "coursehub",
		Password:        "coursehub_dev_password",
		Database:        "coursehub_dev",
		MaxOpenConns:    5,
		MaxIdleConns:    2,
		ConnMaxLifetime: 5 * time.Minute,
		ConnMaxIdleTime: 2 * time.Minute,
		Timeout:         10 * time.Second,
	}
}

func openDevDB(t *testing.T) *DB {
	t.Helper()
	db, err := NewDB(devConfig())
	if err != nil {
		t.Skipf("Skipping test: PostgreSQL not available: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func TestConfigDSN(t *testing.T) {
	dsn := devConfig().dsn()
	assert.Contains(t, dsn, "dbname=coursehub_dev")
	assert.Contains(t, dsn, "sslmode=disable")
	assert.Contains(t, dsn, "connect_timeout=10")

	// Defaults kick in when the optional fields are blank
	blank := Config{Host: "localhost", Port: 5432}
	assert.Contains(t, blank.dsn(), "sslmode=disable")
	assert.Contains(t, blank.dsn(), "connect_timeout=5")
}

func TestNewDB(t *testing.T) {
	db := openDevDB(t)

	require.NoError(t, db.HealthCheck(context.Background()))

	stats := db.PoolStats()
	assert.GreaterOrEqual(t, stats.Open, 0)
	assert.LessOrEqual(t, stats.InUse, stats.Open)
}

func TestHealthCheckCancelled(t *testing.T) {
	db := openDevDB(t)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := db.HealthCheck(ctx)
	require.Error(t, err)
	assert.True(t, strings.Contains(err.Error(), "database probe"))
}
