package manager

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/vvka-141/pgseed/internal/db"
	"github.com/vvka-141/pgseed/pkg/pgseed"
)

const (
	queryDatabaseExists       = "SELECT EXISTS(SELECT 1 FROM pg_database WHERE datname = $1)"
	queryTerminateConnections = `
		SELECT pg_terminate_backend(pid)
		FROM pg_stat_activity
		WHERE datname = $1 AND pid <> pg_backend_pid()
	`
)

var errEmptyName = errors.New("name cannot be empty")

// Manager implements database, schema and table lifecycle operations using
// the DBConnection abstraction. Names are folded to lower case and quoted.
type Manager struct {
	logger pgseed.Logger
}

// New creates a new DatabaseManager instance.
func New(logger pgseed.Logger) *Manager {
	if logger == nil {
		panic("logger cannot be nil")
	}
	return &Manager{logger: logger}
}

// Exists checks if a database exists.
func (m *Manager) Exists(ctx context.Context, conn pgseed.DBConnection, dbName string) (bool, error) {
	var exists bool
	err := conn.QueryRow(ctx, queryDatabaseExists, strings.ToLower(dbName)).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("failed to check database existence: %w", err)
	}
	return exists, nil
}

// Create creates a new database. CREATE DATABASE cannot run inside a
// transaction block, so it is sent in auto-commit mode.
func (m *Manager) Create(ctx context.Context, conn pgseed.DBConnection, dbName string) error {
	if _, err := conn.Exec(ctx, "CREATE DATABASE "+db.QuoteIdent(dbName)); err != nil {
		return fmt.Errorf("failed to create database %q: %w", dbName, err)
	}
	return nil
}

// Drop drops the specified database if it exists.
func (m *Manager) Drop(ctx context.Context, conn pgseed.DBConnection, dbName string) error {
	if _, err := conn.Exec(ctx, "DROP DATABASE IF EXISTS "+db.QuoteIdent(dbName)); err != nil {
		return fmt.Errorf("failed to drop database %q: %w", dbName, err)
	}
	return nil
}

// TerminateConnections terminates all other sessions on the specified database.
func (m *Manager) TerminateConnections(ctx context.Context, conn pgseed.DBConnection, dbName string) error {
	_, err := conn.Exec(ctx, queryTerminateConnections, strings.ToLower(dbName))
	if err != nil {
		return fmt.Errorf("failed to terminate connections to database %q: %w", dbName, err)
	}
	return nil
}

// RecreateDatabases processes names in order. Under PolicyRecreate each
// database is dropped (after terminating other sessions) and created again;
// under PolicyPreserve it is only created when missing. A failure is logged
// and recorded, and the next name is still attempted.
func (m *Manager) RecreateDatabases(ctx context.Context, conn pgseed.DBConnection, names []string, policy pgseed.Policy) []pgseed.StepResult {
	results := make([]pgseed.StepResult, 0, len(names))
	for _, name := range names {
		start := time.Now()
		err := m.recreateDatabase(ctx, conn, name, policy)
		results = append(results, pgseed.StepResult{
			Kind:     pgseed.StepDatabase,
			Database: name,
			Duration: time.Since(start),
			Err:      err,
		})
		if err != nil {
			m.logger.Error("Error creating database %s: %v", name, err)
			continue
		}
		m.logger.Info("Database %s created successfully", name)
	}
	return results
}

func (m *Manager) recreateDatabase(ctx context.Context, conn pgseed.DBConnection, name string, policy pgseed.Policy) error {
	if strings.TrimSpace(name) == "" {
		return fmt.Errorf("database %w", errEmptyName)
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	if policy.IsDestructive() {
		if err := m.TerminateConnections(ctx, conn, name); err != nil {
			return err
		}
		if err := m.Drop(ctx, conn, name); err != nil {
			return err
		}
		m.logger.Verbose("Dropped database %s", name)
		return m.Create(ctx, conn, name)
	}

	exists, err := m.Exists(ctx, conn, name)
	if err != nil {
		return err
	}
	if exists {
		m.logger.Verbose("Database %s exists, keeping it", name)
		return nil
	}
	return m.Create(ctx, conn, name)
}

// RecreateSchemas processes names in order, one transaction per schema.
// PolicyRecreate drops the schema with CASCADE before creating it, so every
// run starts from an empty schema; PolicyPreserve only creates it.
func (m *Manager) RecreateSchemas(ctx context.Context, conn pgseed.DBConnection, names []string, policy pgseed.Policy) []pgseed.StepResult {
	results := make([]pgseed.StepResult, 0, len(names))
	for _, name := range names {
		start := time.Now()
		err := m.recreateSchema(ctx, conn, name, policy)
		results = append(results, pgseed.StepResult{
			Kind:     pgseed.StepSchema,
			Database: conn.Database(),
			Schema:   name,
			Duration: time.Since(start),
			Err:      err,
		})
		if err != nil {
			m.logger.Error("Error creating schema %s: %v", name, err)
			continue
		}
		m.logger.Info("Schema %s created successfully", name)
	}
	return results
}

func (m *Manager) recreateSchema(ctx context.Context, conn pgseed.DBConnection, name string, policy pgseed.Policy) error {
	if strings.TrimSpace(name) == "" {
		return fmt.Errorf("schema %w", errEmptyName)
	}

	statements := []string{"CREATE SCHEMA IF NOT EXISTS " + db.QuoteIdent(name)}
	if policy.IsDestructive() {
		statements = append([]string{"DROP SCHEMA IF EXISTS " + db.QuoteIdent(name) + " CASCADE"}, statements...)
	}
	return inTransaction(ctx, conn, statements...)
}

// CreateTable creates schema.table from a raw column definition fragment if
// it does not exist yet. Existing tables are left untouched.
func (m *Manager) CreateTable(ctx context.Context, conn pgseed.DBConnection, schema, table, columns string) pgseed.StepResult {
	start := time.Now()
	result := pgseed.StepResult{
		Kind:     pgseed.StepTable,
		Database: conn.Database(),
		Schema:   schema,
		Table:    table,
	}

	switch {
	case strings.TrimSpace(schema) == "":
		result.Err = fmt.Errorf("schema %w", errEmptyName)
	case strings.TrimSpace(table) == "":
		result.Err = fmt.Errorf("table %w", errEmptyName)
	case strings.TrimSpace(columns) == "":
		result.Err = fmt.Errorf("column definition for %s.%s cannot be empty", schema, table)
	default:
		stmt := fmt.Sprintf("CREATE TABLE IF NOT EXISTS %s (%s)", db.Qualified(schema, table), columns)
		result.Err = inTransaction(ctx, conn, stmt)
	}
	result.Duration = time.Since(start)

	if result.Err != nil {
		m.logger.Error("Error creating table %s: %v", result.Target(), result.Err)
		return result
	}
	m.logger.Info("Table %s created successfully", result.Target())
	return result
}

// inTransaction runs statements in one transaction and commits. On any
// error the transaction is rolled back.
func inTransaction(ctx context.Context, conn pgseed.DBConnection, statements ...string) (err error) {
	tx, err := conn.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		if err != nil {
			tx.Rollback(context.WithoutCancel(ctx)) //nolint:errcheck
		}
	}()

	for _, stmt := range statements {
		if _, err = tx.Exec(ctx, stmt); err != nil {
			return err
		}
	}
	return tx.Commit(ctx)
}

// Verify Manager implements the DatabaseManager interface at compile time
var _ pgseed.DatabaseManager = (*Manager)(nil)
