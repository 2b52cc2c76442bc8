package pgseed

import (
	"context"
	"io"

	"github.com/jackc/pgx/v5/pgconn"
)

// DBConnection abstracts the single live session used by the schema operator,
// the bulk loader and the orchestrator. It decouples those components from
// pgx-specific types so they can be tested with doubles.
//
// Thread-Safety: NOT safe for concurrent use. A session is owned by exactly
// one scope at a time.
type DBConnection interface {
	// Exec executes a statement outside of any explicit transaction
	// (auto-commit). Required for CREATE DATABASE / DROP DATABASE.
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)

	// QueryRow executes a query that is expected to return at most one row.
	QueryRow(ctx context.Context, sql string, args ...any) Row

	// Begin starts a transaction. The caller must Commit or Rollback it.
	Begin(ctx context.Context) (Tx, error)

	// Database returns the name of the database this session is bound to.
	Database() string

	// Close terminates the session.
	Close(ctx context.Context) error
}

// Row represents a single row returned by QueryRow.
type Row interface {
	Scan(dest ...any) error
}

// Tx is an open transaction on a DBConnection.
type Tx interface {
	// Exec executes a statement inside the transaction.
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)

	// CopyFrom streams r through a COPY ... FROM STDIN statement.
	CopyFrom(ctx context.Context, r io.Reader, sql string) (pgconn.CommandTag, error)

	Commit(ctx context.Context) error

	// Rollback aborts the transaction. Calling it after Commit is a no-op.
	Rollback(ctx context.Context) error
}
