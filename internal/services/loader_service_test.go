package services_test

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vvka-141/pgseed/internal/catalog"
	"github.com/vvka-141/pgseed/internal/db/manager"
	"github.com/vvka-141/pgseed/internal/files/filesystem"
	"github.com/vvka-141/pgseed/internal/loader"
	"github.com/vvka-141/pgseed/internal/logging"
	"github.com/vvka-141/pgseed/internal/services"
	"github.com/vvka-141/pgseed/internal/source"
	"github.com/vvka-141/pgseed/internal/testing/mockdb"
	"github.com/vvka-141/pgseed/pkg/pgseed"
)

// fakeServer hands out one recording session per database.
type fakeServer struct {
	conns  map[string]*mockdb.Conn
	opened []string
	down   map[string]error
}

func newFakeServer() *fakeServer {
	return &fakeServer{conns: map[string]*mockdb.Conn{}, down: map[string]error{}}
}

func (f *fakeServer) conn(name string) *mockdb.Conn {
	if c, ok := f.conns[name]; ok {
		return c
	}
	c := mockdb.New(name)
	f.conns[name] = c
	return c
}

func (f *fakeServer) open(_ context.Context, cfg *pgseed.ConnectionConfig) (pgseed.DBConnection, error) {
	f.opened = append(f.opened, cfg.Database)
	if err := f.down[cfg.Database]; err != nil {
		return nil, err
	}
	return f.conn(cfg.Database), nil
}

func (f *fakeServer) totalStatements() int {
	n := 0
	for _, c := range f.conns {
		n += len(c.Statements())
	}
	return n
}

type mockApprover struct {
	approved bool
	err      error
	asked    []string
}

func (m *mockApprover) RequestApproval(_ context.Context, dbName string) (bool, error) {
	m.asked = append(m.asked, dbName)
	return m.approved, m.err
}

func newService(server *fakeServer, approver pgseed.Approver, mem *filesystem.MemoryFileSystem) *services.LoadService {
	logger := logging.NewNullLogger()
	return services.NewLoadService(
		server.open,
		approver,
		logger,
		manager.New(logger),
		loader.New(source.NewFileOpener(mem), logger),
	)
}

func options(policy pgseed.Policy) pgseed.RunOptions {
	return pgseed.RunOptions{
		Connection: &pgseed.ConnectionConfig{Host: "postgres", Port: 5432, Database: "postgres", Username: "postgres"},
		Policy:     policy,
	}
}

func csvWithRows(n int) string {
	content := "id,name\n"
	for i := 1; i <= n; i++ {
		content += fmt.Sprintf("%d,row%d\n", i, i)
	}
	return content
}

func builtinFiles() *filesystem.MemoryFileSystem {
	mem := filesystem.NewMemoryFileSystem()
	for i, name := range []string{"Team", "Season", "Player", "Player_Match", "Match", "Ball_by_Ball"} {
		mem.AddFile("/data/database_data_csv/"+name+".csv", csvWithRows(i+1))
	}
	return mem
}

func TestLoadService_BuiltinCatalog(t *testing.T) {
	server := newFakeServer()
	approver := &mockApprover{approved: true}
	svc := newService(server, approver, builtinFiles())

	report, err := svc.Run(context.Background(), catalog.Builtin("/data"), options(pgseed.PolicyRecreate))
	require.NoError(t, err)
	require.NoError(t, report.Err())

	assert.Equal(t, []string{"postgres", "kaggle_db", "dbt_database"}, server.opened)
	assert.Equal(t, []string{"kaggle_db", "dbt_database"}, approver.asked)

	admin := server.conn("postgres")
	assert.Equal(t, []string{`DROP DATABASE IF EXISTS "kaggle_db"`, `DROP DATABASE IF EXISTS "dbt_database"`},
		admin.StatementsContaining("DROP DATABASE"))
	assert.Equal(t, []string{`CREATE DATABASE "kaggle_db"`, `CREATE DATABASE "dbt_database"`},
		admin.StatementsContaining("CREATE DATABASE"))

	kaggle := server.conn("kaggle_db")
	assert.Len(t, kaggle.StatementsContaining("CREATE TABLE IF NOT EXISTS"), 6)
	assert.Len(t, kaggle.StatementsContaining("COPY "), 6)
	assert.Equal(t, int64(1), kaggle.Rows(`"ipl"."teams"`))
	assert.Equal(t, int64(6), kaggle.Rows(`"ipl"."ball_by_ball"`))
	assert.Equal(t, int64(21), report.RowsLoaded())

	dbt := server.conn("dbt_database")
	assert.Equal(t, []string{`CREATE SCHEMA IF NOT EXISTS "staging"`, `CREATE SCHEMA IF NOT EXISTS "transformation"`},
		dbt.StatementsContaining("CREATE SCHEMA"))
	assert.Empty(t, dbt.StatementsContaining("COPY"))

	for name, c := range server.conns {
		assert.Equal(t, 1, c.CloseCount(), "session %s closed once", name)
	}
	assert.False(t, report.FinishedAt.IsZero())
}

func TestLoadService_CreatesAllTablesBeforeLoading(t *testing.T) {
	server := newFakeServer()
	cat := catalog.Catalog{Databases: []catalog.Database{{
		Name: "app",
		Schemas: []catalog.Schema{{
			Name: "s",
			Tables: []catalog.Table{
				{Name: "a", Columns: "id INT", Source: "a.csv"},
				{Name: "b", Columns: "id INT", Source: "b.csv"},
			},
		}},
	}}}
	mem := filesystem.NewMemoryFileSystem().AddFile("a.csv", csvWithRows(1)).AddFile("b.csv", csvWithRows(1))

	_, err := newService(server, &mockApprover{approved: true}, mem).Run(context.Background(), cat, options(pgseed.PolicyRecreate))
	require.NoError(t, err)

	var order []string
	for _, stmt := range server.conn("app").Statements() {
		switch {
		case len(stmt) > 6 && stmt[:6] == "CREATE":
			order = append(order, stmt)
		case len(stmt) > 4 && stmt[:4] == "COPY":
			order = append(order, stmt[:14])
		}
	}
	assert.Equal(t, []string{
		`CREATE SCHEMA IF NOT EXISTS "s"`,
		`CREATE TABLE IF NOT EXISTS "s"."a" (id INT)`,
		`CREATE TABLE IF NOT EXISTS "s"."b" (id INT)`,
		`COPY "s"."a" F`,
		`COPY "s"."b" F`,
	}, order)
}

func TestLoadService_MissingSourceDoesNotBlockNextTable(t *testing.T) {
	server := newFakeServer()
	cat := catalog.Catalog{Databases: []catalog.Database{{
		Name: "kaggle_db",
		Schemas: []catalog.Schema{{
			Name: "IPL",
			Tables: []catalog.Table{
				{Name: "a", Columns: "id INT", Source: "missing.csv"},
				{Name: "b", Columns: "id INT, name TEXT", Source: "b.csv"},
			},
		}},
	}}}
	mem := filesystem.NewMemoryFileSystem().AddFile("b.csv", csvWithRows(3))

	report, err := newService(server, &mockApprover{approved: true}, mem).Run(context.Background(), cat, options(pgseed.PolicyRecreate))
	require.NoError(t, err)

	conn := server.conn("kaggle_db")
	assert.Zero(t, conn.Rows(`"ipl"."a"`))
	assert.Equal(t, int64(3), conn.Rows(`"ipl"."b"`))

	failed := report.Failed()
	require.Len(t, failed, 1)
	assert.Equal(t, pgseed.StepLoad, failed[0].Kind)
	assert.Equal(t, "a", failed[0].Table)
	assert.ErrorIs(t, failed[0].Err, pgseed.ErrSourceNotFound)
	assert.ErrorIs(t, report.Err(), pgseed.ErrPartialFailure)
}

func TestLoadService_DDLFailureIsRecorded(t *testing.T) {
	server := newFakeServer()
	server.conn("kaggle_db").FailWhen(`"ipl"."bad"`, errors.New(`syntax error at or near "INTEGR"`))
	cat := catalog.Catalog{Databases: []catalog.Database{{
		Name: "kaggle_db",
		Schemas: []catalog.Schema{{
			Name: "ipl",
			Tables: []catalog.Table{
				{Name: "bad", Columns: "id INTEGR", Source: "bad.csv"},
				{Name: "good", Columns: "id INT", Source: "good.csv"},
			},
		}},
	}}}
	mem := filesystem.NewMemoryFileSystem().AddFile("bad.csv", csvWithRows(1)).AddFile("good.csv", csvWithRows(2))

	report, err := newService(server, &mockApprover{approved: true}, mem).Run(context.Background(), cat, options(pgseed.PolicyRecreate))
	require.NoError(t, err)

	failed := report.Failed()
	require.Len(t, failed, 2, "create and load of the bad table")
	assert.Equal(t, pgseed.StepTable, failed[0].Kind)
	assert.Equal(t, pgseed.StepLoad, failed[1].Kind)
	assert.Equal(t, int64(2), server.conn("kaggle_db").Rows(`"ipl"."good"`))
}

func TestLoadService_ApprovalDenied(t *testing.T) {
	server := newFakeServer()
	approver := &mockApprover{approved: false}

	report, err := newService(server, approver, builtinFiles()).Run(context.Background(), catalog.Builtin("/data"), options(pgseed.PolicyRecreate))

	assert.ErrorIs(t, err, pgseed.ErrApprovalDenied)
	assert.Empty(t, server.opened)
	assert.Empty(t, report.Steps)
}

func TestLoadService_ApprovalError(t *testing.T) {
	server := newFakeServer()
	approver := &mockApprover{err: errors.New("no tty")}

	_, err := newService(server, approver, builtinFiles()).Run(context.Background(), catalog.Builtin("/data"), options(pgseed.PolicyRecreate))

	assert.ErrorContains(t, err, "approval request failed")
	assert.Empty(t, server.opened)
}

func TestLoadService_ConnectFailureBeforeAnyScope(t *testing.T) {
	server := newFakeServer()
	server.down["postgres"] = errors.New("connection refused")

	report, err := newService(server, &mockApprover{approved: true}, builtinFiles()).Run(context.Background(), catalog.Builtin("/data"), options(pgseed.PolicyRecreate))

	assert.ErrorIs(t, err, pgseed.ErrConnectionFailed)
	assert.Equal(t, []string{"postgres"}, server.opened)
	assert.Zero(t, server.totalStatements(), "no mutation when the first connect fails")
	assert.Empty(t, report.Steps)
}

func TestLoadService_ConnectFailurePropagatesWithPartialReport(t *testing.T) {
	server := newFakeServer()
	server.down["kaggle_db"] = errors.New("database \"kaggle_db\" does not exist")

	report, err := newService(server, &mockApprover{approved: true}, builtinFiles()).Run(context.Background(), catalog.Builtin("/data"), options(pgseed.PolicyRecreate))

	assert.ErrorIs(t, err, pgseed.ErrConnectionFailed)
	assert.Equal(t, []string{"postgres", "kaggle_db"}, server.opened)
	require.Len(t, report.Steps, 2)
	assert.Equal(t, pgseed.StepDatabase, report.Steps[0].Kind)
}

func TestLoadService_PreserveIssuesNoDrop(t *testing.T) {
	server := newFakeServer()
	server.conn("postgres").SetExists("kaggle_db", true)
	approver := &mockApprover{approved: false}

	report, err := newService(server, approver, builtinFiles()).Run(context.Background(), catalog.Builtin("/data"), options(pgseed.PolicyPreserve))
	require.NoError(t, err)
	require.NoError(t, report.Err())

	assert.Empty(t, approver.asked, "preserve never asks")
	for name, c := range server.conns {
		assert.Empty(t, c.StatementsContaining("DROP"), "no DROP on %s", name)
	}
	assert.Equal(t, []string{`CREATE DATABASE "dbt_database"`}, server.conn("postgres").StatementsContaining("CREATE DATABASE"))
}

func TestLoadService_OnlyAndSkipLoad(t *testing.T) {
	server := newFakeServer()
	opts := options(pgseed.PolicyRecreate)
	opts.Only = []string{"KAGGLE_DB"}
	opts.SkipLoad = true

	report, err := newService(server, &mockApprover{approved: true}, builtinFiles()).Run(context.Background(), catalog.Builtin("/data"), opts)
	require.NoError(t, err)

	assert.Equal(t, []string{"postgres", "kaggle_db"}, server.opened)
	assert.Empty(t, server.conn("kaggle_db").StatementsContaining("COPY"))
	assert.Len(t, server.conn("kaggle_db").StatementsContaining("CREATE TABLE"), 6)
	assert.Zero(t, report.RowsLoaded())
}

func TestLoadService_UsesGivenRunID(t *testing.T) {
	server := newFakeServer()
	opts := options(pgseed.PolicyRecreate)
	opts.SkipLoad = true
	opts.RunID = uuid.MustParse("6f1c2a7e-3d4b-4c8e-9a0f-1b2c3d4e5f60")

	report, err := newService(server, &mockApprover{approved: true}, builtinFiles()).Run(context.Background(), catalog.Builtin("/data"), opts)
	require.NoError(t, err)
	assert.Equal(t, opts.RunID, report.RunID)
}

func TestLoadService_InvalidInput(t *testing.T) {
	tests := []struct {
		name    string
		cat     catalog.Catalog
		opts    func() pgseed.RunOptions
		wantErr error
	}{
		{
			name:    "missing connection",
			cat:     catalog.Builtin("/data"),
			opts:    func() pgseed.RunOptions { return pgseed.RunOptions{} },
			wantErr: pgseed.ErrInvalidConfig,
		},
		{
			name: "unknown database selected",
			cat:  catalog.Builtin("/data"),
			opts: func() pgseed.RunOptions {
				o := options(pgseed.PolicyRecreate)
				o.Only = []string{"nope"}
				return o
			},
			wantErr: pgseed.ErrInvalidCatalog,
		},
		{
			name:    "maintenance database in catalog",
			cat:     catalog.Catalog{Databases: []catalog.Database{{Name: "Postgres"}}},
			opts:    func() pgseed.RunOptions { return options(pgseed.PolicyRecreate) },
			wantErr: pgseed.ErrInvalidCatalog,
		},
		{
			name:    "template database",
			cat:     catalog.Catalog{Databases: []catalog.Database{{Name: "template1"}}},
			opts:    func() pgseed.RunOptions { return options(pgseed.PolicyRecreate) },
			wantErr: pgseed.ErrInvalidConfig,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := newFakeServer()
			_, err := newService(server, &mockApprover{approved: true}, builtinFiles()).Run(context.Background(), tt.cat, tt.opts())
			assert.ErrorIs(t, err, tt.wantErr)
			assert.Empty(t, server.opened)
		})
	}
}

func TestLoadService_CancelledContext(t *testing.T) {
	server := newFakeServer()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := newService(server, &mockApprover{approved: true}, builtinFiles()).Run(ctx, catalog.Builtin("/data"), options(pgseed.PolicyRecreate))

	assert.ErrorIs(t, err, context.Canceled)
	assert.Zero(t, server.totalStatements())
}

func TestNewLoadService_PanicsOnNil(t *testing.T) {
	logger := logging.NewNullLogger()
	open := newFakeServer().open
	approver := &mockApprover{}
	mgr := manager.New(logger)
	ld := loader.New(source.NewFileOpener(filesystem.NewMemoryFileSystem()), logger)

	assert.Panics(t, func() { services.NewLoadService(nil, approver, logger, mgr, ld) })
	assert.Panics(t, func() { services.NewLoadService(open, nil, logger, mgr, ld) })
	assert.Panics(t, func() { services.NewLoadService(open, approver, nil, mgr, ld) })
	assert.Panics(t, func() { services.NewLoadService(open, approver, logger, nil, ld) })
	assert.Panics(t, func() { services.NewLoadService(open, approver, logger, mgr, nil) })
}
