package testutil

import (
	"database/sql"
	"os"
	"strconv"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/xxxsen/hmochat/internal/config"
	"github.com/xxxsen/hmochat/internal/db"
)

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// OpenTestDB connects to the postgres named by TEST_DB_HOST, or skips the
// test when it is unset. The embedding cache is emptied on cleanup.
func OpenTestDB(t *testing.T) (*sql.DB, func()) {
	t.Helper()
	host := os.Getenv("TEST_DB_HOST")
	if host == "" {
		t.Skip("TEST_DB_HOST not set, skipping postgres test")
	}
	port, err := strconv.Atoi(envOr("TEST_DB_PORT", "5432"))
	require.NoError(t, err)
	conn, err := db.Open(config.DatabaseConfig{
		Host:     host,
		Port:     port,
		User:     envOr("TEST_DB_USER", "hmochat"),
		Password: envOr("TEST_DB_PASSWORD", "hmochat_pass"),
		DBName:   envOr("TEST_DB_NAME", "hmochat_test"),
	})
	require.NoError(t, err)
	require.NoError(t, db.ApplyMigrations(conn))
	return conn, func() {
		_, _ = conn.Exec("DELETE FROM embedding_cache")
		_ = conn.Close()
	}
}
