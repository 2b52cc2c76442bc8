package pgseed

import (
	"context"

	"github.com/jackc/pgx/v5"
)

// Connector is a unified interface for establishing database sessions.
// Different implementations handle various authentication methods
// (standard credentials, cloud IAM tokens, Cloud SQL dialers).
type Connector interface {
	// Connect opens a single session to the database.
	// The returned connection must be closed by the caller when done.
	Connect(ctx context.Context) (*pgx.Conn, error)
}
