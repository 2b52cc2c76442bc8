package db

import (
	"context"
	"errors"
	"io"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/vvka-141/pgseed/pkg/pgseed"
)

// Conn adapts a *pgx.Conn to pgseed.DBConnection.
type Conn struct {
	conn    *pgx.Conn
	release io.Closer
	closed  bool
}

// NewConn wraps a live pgx session. release, if not nil, is closed right
// after the session (the Cloud SQL dialer, for instance).
func NewConn(conn *pgx.Conn, release io.Closer) *Conn {
	return &Conn{conn: conn, release: release}
}

func (c *Conn) Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error) {
	return c.conn.Exec(ctx, sql, args...)
}

func (c *Conn) QueryRow(ctx context.Context, sql string, args ...any) pgseed.Row {
	return c.conn.QueryRow(ctx, sql, args...)
}

func (c *Conn) Begin(ctx context.Context) (pgseed.Tx, error) {
	tx, err := c.conn.Begin(ctx)
	if err != nil {
		return nil, err
	}
	return &transaction{tx: tx}, nil
}

func (c *Conn) Database() string {
	return c.conn.Config().Database
}

// Close terminates the session. Later calls are no-ops.
func (c *Conn) Close(ctx context.Context) error {
	if c.closed {
		return nil
	}
	c.closed = true

	err := c.conn.Close(ctx)
	if c.release != nil {
		err = errors.Join(err, c.release.Close())
	}
	return err
}

type transaction struct {
	tx pgx.Tx
}

func (t *transaction) Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error) {
	return t.tx.Exec(ctx, sql, args...)
}

// CopyFrom runs COPY on the transaction's session, so it commits or rolls
// back together with the rest of the transaction.
func (t *transaction) CopyFrom(ctx context.Context, r io.Reader, sql string) (pgconn.CommandTag, error) {
	return t.tx.Conn().PgConn().CopyFrom(ctx, r, sql)
}

func (t *transaction) Commit(ctx context.Context) error {
	return t.tx.Commit(ctx)
}

func (t *transaction) Rollback(ctx context.Context) error {
	err := t.tx.Rollback(ctx)
	if errors.Is(err, pgx.ErrTxClosed) {
		return nil
	}
	return err
}

var (
	_ pgseed.DBConnection = (*Conn)(nil)
	_ pgseed.Tx           = (*transaction)(nil)
)
