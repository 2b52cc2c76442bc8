package db

import (
	"context"
	"fmt"
	"io"

	"github.com/vvka-141/pgseed/pkg/pgseed"
)

// SessionOpener opens a session for a fully resolved connection config.
type SessionOpener func(ctx context.Context, config *pgseed.ConnectionConfig) (pgseed.DBConnection, error)

// ConnectorOpener turns a ConnectorFactory into a SessionOpener. Connectors
// that implement io.Closer are released together with their session.
func ConnectorOpener(factory ConnectorFactory) SessionOpener {
	return func(ctx context.Context, config *pgseed.ConnectionConfig) (pgseed.DBConnection, error) {
		connector, err := factory(config)
		if err != nil {
			return nil, err
		}

		closer, _ := connector.(io.Closer)
		conn, err := connector.Connect(ctx)
		if err != nil {
			if closer != nil {
				closer.Close() //nolint:errcheck
			}
			return nil, err
		}
		return NewConn(conn, closer), nil
	}
}

// Scope hands out sessions bound to one database for the duration of a callback.
type Scope struct {
	base   *pgseed.ConnectionConfig
	open   SessionOpener
	logger pgseed.Logger
}

// NewScope creates a Scope. base supplies every connection parameter except
// the database name, which each With call replaces.
func NewScope(base *pgseed.ConnectionConfig, open SessionOpener, logger pgseed.Logger) *Scope {
	if base == nil {
		panic("base connection config cannot be nil")
	}
	if open == nil {
		panic("open cannot be nil")
	}
	if logger == nil {
		panic("logger cannot be nil")
	}
	return &Scope{base: base, open: open, logger: logger}
}

// With connects to database, runs fn and closes the session exactly once on
// every exit path, including a panic in fn. If the connect fails, fn is not
// called and the error, wrapped with pgseed.ErrConnectionFailed, is returned.
func (s *Scope) With(ctx context.Context, database string, fn func(ctx context.Context, conn pgseed.DBConnection) error) error {
	conn, err := s.open(ctx, s.base.WithDatabase(database))
	if err != nil {
		s.logger.Error("Connection to database %q failed: %v", database, err)
		return fmt.Errorf("%w: database %q: %w", pgseed.ErrConnectionFailed, database, err)
	}
	s.logger.Info("Connected to database %q", database)

	defer func() {
		s.logger.Info("Closing connection to database %q", database)
		if cerr := conn.Close(context.WithoutCancel(ctx)); cerr != nil {
			s.logger.Verbose("close %q: %v", database, cerr)
		}
	}()

	return fn(ctx, conn)
}
