package pgseed

import (
	"context"
)

// DatabaseManager defines database, schema and table lifecycle operations.
//
// Batch operations never abort on a single failure: each item produces a
// StepResult and the loop moves on to the next item.
//
// Implementations are NOT safe for concurrent use.
type DatabaseManager interface {
	// Exists checks if a database exists.
	Exists(ctx context.Context, conn DBConnection, dbName string) (bool, error)

	// Create creates a new database.
	Create(ctx context.Context, conn DBConnection, dbName string) error

	// Drop drops the specified database if it exists.
	Drop(ctx context.Context, conn DBConnection, dbName string) error

	// TerminateConnections terminates all other sessions on the specified database.
	TerminateConnections(ctx context.Context, conn DBConnection, dbName string) error

	// RecreateDatabases (re)creates each named database in order according to policy.
	RecreateDatabases(ctx context.Context, conn DBConnection, names []string, policy Policy) []StepResult

	// RecreateSchemas (re)creates each named schema in order according to policy,
	// committing per schema.
	RecreateSchemas(ctx context.Context, conn DBConnection, names []string, policy Policy) []StepResult

	// CreateTable creates schema.table from a raw column definition fragment
	// if it does not exist yet.
	CreateTable(ctx context.Context, conn DBConnection, schema, table, columns string) StepResult
}
