package pgseed

import (
	"context"
	"io"
)

// SourceOpener opens a CSV source by location (local path or URI).
type SourceOpener interface {
	Open(ctx context.Context, location string) (io.ReadCloser, error)
}

// BulkLoader replaces the content of a table with the rows of a CSV source.
type BulkLoader interface {
	// Load truncates schema.table and streams the CSV at source into it.
	// Failures are reported in the returned StepResult, never propagated.
	Load(ctx context.Context, conn DBConnection, source, schema, table string) StepResult
}
