// Package loader replaces table contents with CSV data using COPY FROM STDIN.
package loader

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/vvka-141/pgseed/internal/checksum"
	"github.com/vvka-141/pgseed/internal/db"
	"github.com/vvka-141/pgseed/pkg/pgseed"
)

// CopyOptions is the option list every load sends to COPY.
const CopyOptions = "(FORMAT csv, HEADER true, DELIMITER ',')"

// Loader truncates a table and streams one CSV source into it inside a
// single transaction. A failed load leaves the previous content in place.
type Loader struct {
	opener pgseed.SourceOpener
	logger pgseed.Logger
}

// New creates a Loader reading sources through opener.
func New(opener pgseed.SourceOpener, logger pgseed.Logger) *Loader {
	if opener == nil {
		panic("opener cannot be nil")
	}
	if logger == nil {
		panic("logger cannot be nil")
	}
	return &Loader{opener: opener, logger: logger}
}

// Load implements pgseed.BulkLoader.
func (l *Loader) Load(ctx context.Context, conn pgseed.DBConnection, source, schema, table string) pgseed.StepResult {
	start := time.Now()
	result := pgseed.StepResult{
		Kind:     pgseed.StepLoad,
		Database: conn.Database(),
		Schema:   schema,
		Table:    table,
		Source:   source,
	}

	result.Err = l.load(ctx, conn, &result)
	result.Duration = time.Since(start)

	if result.Err != nil {
		l.logger.Error("Error loading data into %s: %v", result.Target(), result.Err)
		return result
	}
	l.logger.Info("Data from %s loaded into %s (%d rows)", source, result.Target(), result.Rows)
	return result
}

func (l *Loader) load(ctx context.Context, conn pgseed.DBConnection, result *pgseed.StepResult) (err error) {
	if result.Schema == "" || result.Table == "" {
		return errors.New("schema and table are required")
	}

	src, err := l.opener.Open(ctx, result.Source)
	if err != nil {
		return err
	}
	defer src.Close()

	tx, err := conn.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		if err != nil {
			tx.Rollback(context.WithoutCancel(ctx)) //nolint:errcheck
		}
	}()

	target := db.Qualified(result.Schema, result.Table)
	l.logger.Info("Truncating table %s before loading new data", result.Target())
	if _, err = tx.Exec(ctx, "TRUNCATE TABLE "+target); err != nil {
		return fmt.Errorf("truncate: %w", err)
	}

	hashed := checksum.NewReader(src)
	tag, err := tx.CopyFrom(ctx, hashed, CopyStatement(result.Schema, result.Table))
	result.Bytes = hashed.Bytes()
	if err != nil {
		return fmt.Errorf("copy from %s: %w", result.Source, err)
	}
	result.Checksum = hashed.Sum()
	result.Rows = tag.RowsAffected()
	l.logger.Verbose("Streamed %d bytes into %s (sha256 %s)", result.Bytes, result.Target(), result.Checksum)

	if err = tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

// CopyStatement returns the COPY ... FROM STDIN statement for schema.table.
func CopyStatement(schema, table string) string {
	return fmt.Sprintf("COPY %s FROM STDIN WITH %s", db.Qualified(schema, table), CopyOptions)
}

var _ pgseed.BulkLoader = (*Loader)(nil)
