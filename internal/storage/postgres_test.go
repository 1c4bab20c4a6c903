package storage

import (
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func getPostgresDSN(t *testing.T) string {
	t.Helper()
	dsn := os.Getenv("POSTGRES_TEST_DSN")
	if dsn == "" {
		t.Skip("POSTGRES_TEST_DSN not set, skipping PostgreSQL tests")
	}
	return dsn
}

func newPostgresTestStorage(t *testing.T) Storage {
	t.Helper()
	dsn := getPostgresDSN(t)
	s, err := NewPostgresStorage(Config{ConnectionString: dsn, MaxOpenConns: 5, ConnMaxLifetime: time.Minute})
	require.NoError(t, err, "failed to create postgres storage")
	t.Cleanup(func() { s.Close() })
	return s
}

func TestPostgresStorageConnectionError(t *testing.T) {
	_, err := NewPostgresStorage(Config{ConnectionString: ""})
	assert.Error(t, err, "expected error for empty connection string")
}

func TestPostgresStorageInvalidDSN(t *testing.T) {
	_, err := NewPostgresStorage(Config{ConnectionString: "postgres://invalid:5432/nonexistent?connect_timeout=1"})
	assert.Error(t, err, "expected error for invalid DSN")
}

func TestPostgresStorage(t *testing.T) {
	runStorageSuite(t, newPostgresTestStorage(t))
}

func TestPgTimestamptzHelpers(t *testing.T) {
	assert.False(t, timePtrToPgTimestamptz(nil).Valid)
	assert.Nil(t, pgTimestamptzToTimePtr(timePtrToPgTimestamptz(nil)))

	ts := timePtrToPgTimestamptz(&fixedTime)
	require.True(t, ts.Valid)
	got := pgTimestamptzToTimePtr(ts)
	require.NotNil(t, got)
	assert.True(t, fixedTime.Equal(*got))
}
