// Package mockdb provides a recording pgseed.DBConnection for unit tests.
package mockdb

import (
	"context"
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/vvka-141/pgseed/pkg/pgseed"
)

// Conn records every statement sent to it. Statements run inside a
// transaction are recorded too, so Statements is the full wire order.
//
// Rows committed by COPY are kept per target in Tables; a rolled back
// transaction leaves Tables unchanged.
type Conn struct {
	Name string

	mu         sync.Mutex
	statements []string
	failures   []failure
	existing   map[string]bool
	tables     map[string]int64
	commits    int
	rollbacks  int
	closeCount int
}

type failure struct {
	substr string
	err    error
}

// New returns a Conn bound to database name.
func New(name string) *Conn {
	return &Conn{Name: name, existing: map[string]bool{}, tables: map[string]int64{}}
}

// FailWhen makes any statement containing substr fail with err.
func (c *Conn) FailWhen(substr string, err error) *Conn {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.failures = append(c.failures, failure{substr: substr, err: err})
	return c
}

// SetExists sets the answer of the database existence query for dbName.
func (c *Conn) SetExists(dbName string, exists bool) *Conn {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.existing[dbName] = exists
	return c
}

// Statements returns a copy of the recorded statements.
func (c *Conn) Statements() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]string(nil), c.statements...)
}

// StatementsContaining returns the recorded statements that contain substr.
func (c *Conn) StatementsContaining(substr string) []string {
	var out []string
	for _, s := range c.Statements() {
		if strings.Contains(s, substr) {
			out = append(out, s)
		}
	}
	return out
}

// Rows returns the committed row count for a COPY target such as `"ipl"."teams"`.
func (c *Conn) Rows(target string) int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.tables[target]
}

// SetRows seeds the committed row count of a target.
func (c *Conn) SetRows(target string, rows int64) *Conn {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.tables[target] = rows
	return c
}

func (c *Conn) Commits() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.commits
}

func (c *Conn) Rollbacks() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.rollbacks
}

func (c *Conn) CloseCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closeCount
}

func (c *Conn) record(sql string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.statements = append(c.statements, sql)
	for _, f := range c.failures {
		if strings.Contains(sql, f.substr) {
			return f.err
		}
	}
	return nil
}

func (c *Conn) Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error) {
	if err := ctx.Err(); err != nil {
		return pgconn.CommandTag{}, err
	}
	if err := c.record(sql); err != nil {
		return pgconn.CommandTag{}, err
	}
	return pgconn.NewCommandTag(commandOf(sql)), nil
}

func (c *Conn) QueryRow(ctx context.Context, sql string, args ...any) pgseed.Row {
	if err := c.record(sql); err != nil {
		return row{err: err}
	}
	var name string
	if len(args) > 0 {
		name = fmt.Sprint(args[0])
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	return row{value: c.existing[name]}
}

func (c *Conn) Begin(ctx context.Context) (pgseed.Tx, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := c.record("BEGIN"); err != nil {
		return nil, err
	}
	return &Tx{conn: c, pending: map[string]int64{}}, nil
}

func (c *Conn) Database() string {
	return c.Name
}

func (c *Conn) Close(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closeCount++
	return nil
}

// Tx buffers TRUNCATE and COPY effects until Commit.
type Tx struct {
	conn    *Conn
	pending map[string]int64
	done    bool
}

func (t *Tx) Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error) {
	tag, err := t.conn.Exec(ctx, sql, args...)
	if err != nil {
		return tag, err
	}
	if target, ok := strings.CutPrefix(sql, "TRUNCATE TABLE "); ok {
		t.pending[target] = 0
	}
	return tag, nil
}

// CopyFrom counts non-empty lines after the header as rows.
func (t *Tx) CopyFrom(ctx context.Context, r io.Reader, sql string) (pgconn.CommandTag, error) {
	if err := t.conn.record(sql); err != nil {
		return pgconn.CommandTag{}, err
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return pgconn.CommandTag{}, err
	}

	var rows int64
	for i, line := range strings.Split(string(data), "\n") {
		if i == 0 || strings.TrimSpace(line) == "" {
			continue
		}
		rows++
	}

	target := strings.TrimPrefix(sql, "COPY ")
	if i := strings.Index(target, " "); i >= 0 {
		target = target[:i]
	}
	t.pending[target] += rows
	return pgconn.NewCommandTag(fmt.Sprintf("COPY %d", rows)), nil
}

func (t *Tx) Commit(ctx context.Context) error {
	if err := t.conn.record("COMMIT"); err != nil {
		return err
	}
	t.conn.mu.Lock()
	defer t.conn.mu.Unlock()
	for target, rows := range t.pending {
		t.conn.tables[target] = rows
	}
	t.conn.commits++
	t.done = true
	return nil
}

func (t *Tx) Rollback(ctx context.Context) error {
	if t.done {
		return nil
	}
	t.done = true
	t.conn.record("ROLLBACK") //nolint:errcheck
	t.conn.mu.Lock()
	defer t.conn.mu.Unlock()
	t.conn.rollbacks++
	return nil
}

type row struct {
	value bool
	err   error
}

func (r row) Scan(dest ...any) error {
	if r.err != nil {
		return r.err
	}
	if len(dest) == 1 {
		if p, ok := dest[0].(*bool); ok {
			*p = r.value
		}
	}
	return nil
}

func commandOf(sql string) string {
	fields := strings.Fields(sql)
	if len(fields) >= 2 && (fields[0] == "CREATE" || fields[0] == "DROP") {
		return fields[0] + " " + fields[1]
	}
	if len(fields) > 0 {
		return fields[0]
	}
	return ""
}

var (
	_ pgseed.DBConnection = (*Conn)(nil)
	_ pgseed.Tx           = (*Tx)(nil)
)
