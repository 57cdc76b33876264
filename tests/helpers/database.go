package helpers

import (
	"context"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"golang.org/x/crypto/bcrypt"
)

// GetTestDatabasePool creates a database connection pool for testing
func GetTestDatabasePool(ctx context.Context) (*pgxpool.Pool, error) {
	databaseURL := buildDatabaseURL()

	config, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse database URL: %w", err)
	}

	pool, err := pgxpool.NewWithConfig(ctx, config)
	if err != nil {
		return nil, fmt.Errorf("failed to create connection pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return pool, nil
}

// buildDatabaseURL constructs the database URL from environment variables
func buildDatabaseURL() string {
	if url := os.Getenv("OPAL_MONITOR_TEST_DATABASE_URL"); url != "" {
		return url
	}

	host := os.Getenv("POSTGRES_HOST")
	if host == "" {
		host = "localhost"
	}

	port := os.Getenv("POSTGRES_PORT")
	if port == "" {
		port = "5432"
	}

	user := os.Getenv("POSTGRES_USER")
	if user == "" {
		user = "postgres"
	}

	password := os.Getenv("POSTGRES_PASSWORD")
	if password == "" {
		password = "postgres"
	}

	dbname := os.Getenv("POSTGRES_DB")
	if dbname == "" {
		dbname = "opal_sync_monitor_test"
	}

	return fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=prefer",
		user, password, host, port, dbname)
}

// TestDatabase provides database utilities for integration tests. Tests that
// use it are skipped when no database is reachable.
type TestDatabase struct {
	Pool *pgxpool.Pool
	ctx  context.Context
}

// NewTestDatabase connects to the test database or skips the calling test.
func NewTestDatabase(t *testing.T) *TestDatabase {
	ctx := context.Background()

	pool, err := GetTestDatabasePool(ctx)
	if err != nil {
		t.Skipf("test database unavailable, skipping: %v", err)
	}

	return &TestDatabase{
		Pool: pool,
		ctx:  ctx,
	}
}

// Close closes the database connection
func (db *TestDatabase) Close() {
	if db.Pool != nil {
		db.Pool.Close()
	}
}

// CleanupWorkflow removes all rows for one workflow id so repeated runs of
// the same test do not collide.
func (db *TestDatabase) CleanupWorkflow(t *testing.T, workflowID string) {
	for _, stmt := range []string{
		"DELETE FROM webhook_events WHERE workflow_id = $1",
		"DELETE FROM integration_validations WHERE force_sync_workflow_id = $1",
		"DELETE FROM workflow_executions WHERE workflow_id = $1",
	} {
		if _, err := db.Pool.Exec(db.ctx, stmt, workflowID); err != nil {
			t.Logf("Warning: cleanup failed: %v", err)
		}
	}
}

// CreateTestOperator inserts an operator account with a bcrypt-hashed
// password and returns its id.
func (db *TestDatabase) CreateTestOperator(t *testing.T, email, password string) string {
	hashed, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	if err != nil {
		t.Fatalf("Failed to hash password: %v", err)
	}

	var userID string
	err = db.Pool.QueryRow(db.ctx, `
		INSERT INTO users (id, name, email, hashed_password)
		VALUES ($1, $2, $3, $4)
		RETURNING id
	`, uuid.New().String(), "Test Operator", email, string(hashed)).Scan(&userID)
	if err != nil {
		t.Fatalf("Failed to create test operator: %v", err)
	}

	return userID
}

// DeleteOperator removes a test operator account.
func (db *TestDatabase) DeleteOperator(t *testing.T, userID string) {
	if _, err := db.Pool.Exec(db.ctx, "DELETE FROM users WHERE id = $1", userID); err != nil {
		t.Logf("Warning: failed to delete operator %s: %v", userID, err)
	}
}

// CountEventsForWorkflow returns the number of stored webhook events for one
// workflow, quarantined rows included.
func (db *TestDatabase) CountEventsForWorkflow(t *testing.T, workflowID string) int {
	var count int
	err := db.Pool.QueryRow(db.ctx,
		"SELECT COUNT(*) FROM webhook_events WHERE workflow_id = $1", workflowID,
	).Scan(&count)
	if err != nil {
		t.Fatalf("Failed to count events: %v", err)
	}
	return count
}

// CountValidationsForWorkflow returns the number of persisted verdicts for
// one workflow.
func (db *TestDatabase) CountValidationsForWorkflow(t *testing.T, workflowID string) int {
	var count int
	err := db.Pool.QueryRow(db.ctx,
		"SELECT COUNT(*) FROM integration_validations WHERE force_sync_workflow_id = $1", workflowID,
	).Scan(&count)
	if err != nil {
		t.Fatalf("Failed to count validations: %v", err)
	}
	return count
}

// WaitForDatabase waits for the database to accept connections.
func WaitForDatabase(ctx context.Context, maxAttempts int) error {
	for i := 0; i < maxAttempts; i++ {
		pool, err := GetTestDatabasePool(ctx)
		if err == nil {
			pool.Close()
			return nil
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(time.Second):
		}
	}

	return fmt.Errorf("database not ready after %d attempts", maxAttempts)
}
