// Package testdb provides helpers for integration tests that need a real
// Postgres instance. Tests using it are skipped unless a database URL is
// present in the environment, so the default `go test` run stays hermetic.
package testdb

import (
	"context"
	"database/sql"
	"errors"
	"os"
	"testing"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
)

// Environment variables checked, in order, for the test database URL.
const (
	EnvDatabaseURL     = "DATABASE_URL"
	EnvTestDatabaseURL = "PRISM_TEST_DB_URL"
)

// URL returns the configured test database URL, or "" when none is set.
func URL() string {
	if v := os.Getenv(EnvTestDatabaseURL); v != "" {
		return v
	}
	return os.Getenv(EnvDatabaseURL)
}

// Open connects to the test database, skipping the test when no URL is
// configured. The connection is closed when the test finishes.
func Open(t *testing.T) *sql.DB {
	t.Helper()

	dbURL := URL()
	if dbURL == "" {
		t.Skipf("skipping: set %s or %s to run database tests", EnvTestDatabaseURL, EnvDatabaseURL)
	}

	db, err := sql.Open("pgx", dbURL)
	if err != nil {
		t.Fatalf("failed to open test database: %v", err)
	}
	t.Cleanup(func() {
		if err := db.Close(); err != nil {
			t.Logf("warning: failed to close test database: %v", err)
		}
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		t.Fatalf("failed to ping test database: %v", err)
	}

	return db
}

// WithTx runs fn inside a transaction that is always rolled back, so tests
// can write freely without leaking rows into other tests.
func WithTx(t *testing.T, db *sql.DB, fn func(t *testing.T, tx *sql.Tx)) {
	t.Helper()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		t.Fatalf("failed to begin transaction: %v", err)
	}
	defer func() {
		if err := tx.Rollback(); err != nil && !errors.Is(err, sql.ErrTxDone) {
			t.Logf("warning: failed to rollback transaction: %v", err)
		}
	}()

	fn(t, tx)
}
