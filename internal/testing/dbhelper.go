// Package testing holds helpers for integration tests that need a real
// PostgreSQL server.
package testing

import (
	"context"
	"os"
	"sync"
	"testing"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/vvka-141/pgseed/internal/db"
	"github.com/vvka-141/pgseed/internal/db/manager"
	"github.com/vvka-141/pgseed/internal/loader"
	"github.com/vvka-141/pgseed/internal/logging"
	"github.com/vvka-141/pgseed/internal/services"
	"github.com/vvka-141/pgseed/internal/testinfra"
	"github.com/vvka-141/pgseed/pkg/pgseed"
)

var (
	testContainerOnce sync.Once
	testContainerConn string
	testContainerErr  error
)

func getOrStartTestContainer() (string, error) {
	testContainerOnce.Do(func() {
		container, err := testinfra.StartPostgres(context.Background())
		if err != nil {
			testContainerErr = err
			return
		}
		testContainerConn = container.ConnString
	})
	return testContainerConn, testContainerErr
}

// GetTestConnectionString returns the test server connection string.
// Priority: PGSEED_TEST_CONN env var > auto-started testcontainer > skip test.
func GetTestConnectionString(t *testing.T) string {
	t.Helper()

	if connString := os.Getenv("PGSEED_TEST_CONN"); connString != "" {
		return connString
	}

	connString, err := getOrStartTestContainer()
	if err != nil {
		t.Skipf("PGSEED_TEST_CONN not set and Docker unavailable: %v", err)
	}
	return connString
}

// SkipIfShort skips the test if running in short mode (-short flag).
func SkipIfShort(t *testing.T) {
	t.Helper()

	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}
}

// RequireDatabase combines SkipIfShort and GetTestConnectionString.
func RequireDatabase(t *testing.T) string {
	t.Helper()

	SkipIfShort(t)
	return GetTestConnectionString(t)
}

// TestConnectionConfig parses connString or fails the test.
func TestConnectionConfig(t *testing.T, connString string) *pgseed.ConnectionConfig {
	t.Helper()

	cfg, err := db.ParseConnectionString(connString)
	if err != nil {
		t.Fatalf("Failed to parse connection string: %v", err)
	}
	return cfg
}

// NewTestService creates a LoadService wired to real connections, reading
// sources through opener and approving every recreate.
func NewTestService(t *testing.T, opener pgseed.SourceOpener) *services.LoadService {
	t.Helper()

	logger := logging.NewNullLogger()
	return services.NewLoadService(
		db.ConnectorOpener(db.NewConnector),
		&ForceApprover{},
		logger,
		manager.New(logger),
		loader.New(opener, logger),
	)
}

// ForceApprover is a test approver that always approves.
type ForceApprover struct{}

// RequestApproval always returns true.
func (a *ForceApprover) RequestApproval(ctx context.Context, dbName string) (bool, error) {
	return true, nil
}

// CleanupTestDB drops dbName after terminating its sessions.
// Safe to call multiple times.
func CleanupTestDB(t *testing.T, connString, dbName string) {
	t.Helper()

	ctx := context.Background()
	pool, err := pgxpool.New(ctx, connString)
	if err != nil {
		t.Logf("Warning: Failed to connect for cleanup: %v", err)
		return
	}
	defer pool.Close()

	_, err = pool.Exec(ctx, `
		SELECT pg_terminate_backend(pid)
		FROM pg_stat_activity
		WHERE datname = $1 AND pid <> pg_backend_pid()
	`, dbName)
	if err != nil {
		t.Logf("Warning: Failed to terminate connections to %s: %v", dbName, err)
	}

	if _, err = pool.Exec(ctx, "DROP DATABASE IF EXISTS "+db.QuoteIdent(dbName)); err != nil {
		t.Logf("Warning: Failed to drop database %s: %v", dbName, err)
	}
}

// GetTestPool creates a pool to dbName on the server of connString.
// The pool is closed when the test completes.
func GetTestPool(t *testing.T, connString, dbName string) *pgxpool.Pool {
	t.Helper()

	config := TestConnectionConfig(t, connString).WithDatabase(dbName)
	pool, err := pgxpool.New(context.Background(), db.BuildConnectionString(config))
	if err != nil {
		t.Fatalf("Failed to create connection pool: %v", err)
	}
	t.Cleanup(pool.Close)
	return pool
}

// CountRows returns SELECT count(*) of an already quoted table name.
func CountRows(t *testing.T, pool *pgxpool.Pool, qualified string) int64 {
	t.Helper()

	var n int64
	if err := pool.QueryRow(context.Background(), "SELECT count(*) FROM "+qualified).Scan(&n); err != nil {
		t.Fatalf("Failed to count rows in %s: %v", qualified, err)
	}
	return n
}
