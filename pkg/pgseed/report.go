package pgseed

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// StepKind identifies what a StepResult describes.
type StepKind string

const (
	StepDatabase StepKind = "database"
	StepSchema   StepKind = "schema"
	StepTable    StepKind = "table"
	StepLoad     StepKind = "load"
)

// StepResult is the outcome of one catalog item in a run.
type StepResult struct {
	Kind     StepKind
	Database string
	Schema   string
	Table    string
	Source   string

	// Rows is the number of rows copied (load steps only).
	Rows int64
	// Bytes is the number of source bytes streamed (load steps only).
	Bytes int64
	// Checksum is the SHA-256 of the streamed source (load steps only).
	Checksum string

	Duration time.Duration
	Err      error
}

// OK reports whether the step succeeded.
func (r StepResult) OK() bool {
	return r.Err == nil
}

// Target returns a dotted name for the object the step touched.
func (r StepResult) Target() string {
	parts := make([]string, 0, 3)
	for _, p := range []string{r.Database, r.Schema, r.Table} {
		if p != "" {
			parts = append(parts, p)
		}
	}
	return strings.Join(parts, ".")
}

// Report accumulates step results of a run in execution order.
type Report struct {
	RunID      uuid.UUID
	StartedAt  time.Time
	FinishedAt time.Time
	Steps      []StepResult
}

// NewReport starts a report with a fresh run id.
func NewReport() *Report {
	return &Report{
		RunID:     uuid.New(),
		StartedAt: time.Now(),
	}
}

// Add appends results in order.
func (r *Report) Add(results ...StepResult) {
	r.Steps = append(r.Steps, results...)
}

// Finish stamps the end time.
func (r *Report) Finish() {
	r.FinishedAt = time.Now()
}

// Failed returns the failed steps in execution order.
func (r *Report) Failed() []StepResult {
	var failed []StepResult
	for _, s := range r.Steps {
		if !s.OK() {
			failed = append(failed, s)
		}
	}
	return failed
}

// RowsLoaded sums the rows copied by successful load steps.
func (r *Report) RowsLoaded() int64 {
	var total int64
	for _, s := range r.Steps {
		if s.Kind == StepLoad && s.OK() {
			total += s.Rows
		}
	}
	return total
}

// Err returns ErrPartialFailure wrapped with a count when any step failed.
func (r *Report) Err() error {
	failed := r.Failed()
	if len(failed) == 0 {
		return nil
	}
	return fmt.Errorf("%d of %d steps: %w", len(failed), len(r.Steps), ErrPartialFailure)
}
