package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vvka-141/pgseed/internal/catalog"
	"github.com/vvka-141/pgseed/internal/config"
	"github.com/vvka-141/pgseed/internal/testing/mockdb"
	"github.com/vvka-141/pgseed/internal/tui"
	"github.com/vvka-141/pgseed/internal/ui"
	"github.com/vvka-141/pgseed/pkg/pgseed"
)

const testCatalog = `databases:
  - name: kaggle_db
    schemas:
      - name: IPL
        tables:
          - name: teams
            columns: Team_Id INT PRIMARY KEY, Team_Name VARCHAR(50)
            source: teams.csv
          - name: venues
            columns: Venue_Id INT, Venue_Name TEXT
            source: venues.csv
`

// isolate runs the test in an empty directory with no PG*/PGSEED_* settings.
func isolate(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	t.Chdir(dir)
	for _, name := range []string{"PGHOST", "PGPORT", "PGUSER", "PGPASSWORD", "PGDATABASE", "PGSSLMODE", "DATABASE_URL"} {
		t.Setenv(name, "")
	}
	for _, kv := range os.Environ() {
		if name, _, ok := strings.Cut(kv, "="); ok && strings.HasPrefix(name, "PGSEED_") {
			t.Setenv(name, "")
			os.Unsetenv(name)
		}
	}
	return dir
}

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	cmd := NewRootCmd()
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

type approveAll struct{ asked []string }

func (a *approveAll) RequestApproval(_ context.Context, db string) (bool, error) {
	a.asked = append(a.asked, db)
	return true, nil
}

// fakeSessions replaces the session opener with recording connections.
func fakeSessions(t *testing.T, down map[string]error) map[string]*mockdb.Conn {
	t.Helper()
	conns := map[string]*mockdb.Conn{}
	origOpener, origApprover := sessionOpener, newApprover
	t.Cleanup(func() { sessionOpener, newApprover = origOpener, origApprover })

	sessionOpener = func(_ context.Context, cfg *pgseed.ConnectionConfig) (pgseed.DBConnection, error) {
		if err := down[cfg.Database]; err != nil {
			return nil, err
		}
		c, ok := conns[cfg.Database]
		if !ok {
			c = mockdb.New(cfg.Database)
			conns[cfg.Database] = c
		}
		return c, nil
	}
	newApprover = func(bool, bool) pgseed.Approver { return &approveAll{} }
	return conns
}

func writeFiles(t *testing.T, dir string, files map[string]string) {
	t.Helper()
	for name, content := range files {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0644))
	}
}

func TestVersionCmd(t *testing.T) {
	out, err := run(t, "version")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(out, "pgseed "), out)
}

func TestResolveVersionInfo_LdflagsOverride(t *testing.T) {
	original := version
	defer func() { version = original }()

	version = "1.2.3"
	v, _, _ := resolveVersionInfo()
	assert.Equal(t, "1.2.3", v)
}

func TestCatalogValidate_Builtin(t *testing.T) {
	isolate(t)

	out, err := run(t, "catalog", "validate")
	require.NoError(t, err)
	assert.Equal(t, "Catalog OK: 2 databases, 6 tables\n", out)
}

func TestCatalogValidate_Invalid(t *testing.T) {
	dir := isolate(t)
	writeFiles(t, dir, map[string]string{"bad.yaml": "databases:\n  - name: a\n    schemas:\n      - name: s\n        tables:\n          - name: t\n"})

	_, err := run(t, "catalog", "validate", "--catalog", "bad.yaml")
	assert.ErrorIs(t, err, pgseed.ErrInvalidCatalog)
	assert.Equal(t, pgseed.ExitConfigError, pgseed.ExitCodeForError(err))

	_, err = run(t, "catalog", "validate", "--catalog", "missing.yaml")
	assert.Equal(t, pgseed.ExitConfigError, pgseed.ExitCodeForError(err))
}

func TestCatalogShow_JSON(t *testing.T) {
	isolate(t)

	out, err := run(t, "catalog", "show", "--report", "json", "--only", "kaggle_db", "--base-dir", "/seed")
	require.NoError(t, err)

	var entries []map[string]string
	require.NoError(t, json.Unmarshal([]byte(out), &entries))
	require.Len(t, entries, 6)
	assert.Equal(t, "teams", entries[0]["table"])
	assert.Equal(t, "/seed/database_data_csv/Team.csv", entries[0]["source"])
}

func TestCatalogExport_RoundTrips(t *testing.T) {
	out, err := run(t, "catalog", "export")
	require.NoError(t, err)

	cat, err := catalog.Parse([]byte(out), "/seed")
	require.NoError(t, err)
	assert.Equal(t, []string{"kaggle_db", "dbt_database"}, cat.DatabaseNames())
}

func TestLoadCmd_RunsCatalog(t *testing.T) {
	dir := isolate(t)
	writeFiles(t, dir, map[string]string{
		"catalog.yaml": testCatalog,
		"teams.csv":    "Team_Id,Team_Name\n1,KKR\n2,RCB\n",
		"venues.csv":   "Venue_Id,Venue_Name\n1,Eden Gardens\n",
	})
	conns := fakeSessions(t, nil)

	out, err := run(t, "load", "--catalog", "catalog.yaml", "--force", "--log-format", "json")
	require.NoError(t, err)

	assert.Contains(t, out, "kaggle_db.IPL.teams")
	require.Contains(t, conns, "postgres", "maintenance database defaults to postgres")
	assert.Equal(t, []string{`CREATE DATABASE "kaggle_db"`}, conns["postgres"].StatementsContaining("CREATE DATABASE"))
	assert.Equal(t, int64(2), conns["kaggle_db"].Rows(`"ipl"."teams"`))
	assert.Equal(t, int64(1), conns["kaggle_db"].Rows(`"ipl"."venues"`))
}

func TestLoadCmd_DefaultLogFormat(t *testing.T) {
	dir := isolate(t)
	writeFiles(t, dir, map[string]string{
		"catalog.yaml": testCatalog,
		"teams.csv":    "Team_Id,Team_Name\n1,KKR\n",
		"venues.csv":   "Venue_Id,Venue_Name\n1,Eden Gardens\n",
	})
	conns := fakeSessions(t, nil)

	_, err := run(t, "load", "--catalog", "catalog.yaml", "--force")
	require.NoError(t, err)
	assert.Equal(t, int64(1), conns["kaggle_db"].Rows(`"ipl"."teams"`))
}

func TestLoadCmd_SettingsFile(t *testing.T) {
	dir := isolate(t)
	writeFiles(t, dir, map[string]string{
		"catalog.yaml": testCatalog,
		"pgseed.yaml":  "connection:\n  database: admin\ncatalog: catalog.yaml\npolicy: preserve\nskip_load: true\nreport: json\n",
	})
	conns := fakeSessions(t, nil)

	out, err := run(t, "load")
	require.NoError(t, err)

	assert.Contains(t, conns, "admin")
	assert.Empty(t, conns["admin"].StatementsContaining("DROP"))
	assert.Empty(t, conns["kaggle_db"].StatementsContaining("COPY"))

	var rep map[string]any
	require.NoError(t, json.Unmarshal([]byte(out), &rep))
	assert.Equal(t, float64(0), rep["failed"])
}

func TestLoadCmd_FailedStepsAndStrict(t *testing.T) {
	dir := isolate(t)
	writeFiles(t, dir, map[string]string{
		"catalog.yaml": testCatalog,
		"venues.csv":   "Venue_Id,Venue_Name\n1,Eden Gardens\n",
	})
	conns := fakeSessions(t, nil)

	_, err := run(t, "load", "--catalog", "catalog.yaml", "--force")
	require.NoError(t, err, "failed steps do not fail the run by default")
	assert.Equal(t, int64(1), conns["kaggle_db"].Rows(`"ipl"."venues"`))

	_, err = run(t, "load", "--catalog", "catalog.yaml", "--force", "--strict")
	assert.ErrorIs(t, err, pgseed.ErrPartialFailure)
	assert.Equal(t, pgseed.ExitPartialFailure, pgseed.ExitCodeForError(err))
}

func TestLoadCmd_ConnectionFailure(t *testing.T) {
	isolate(t)
	fakeSessions(t, map[string]error{"postgres": errors.New("dial tcp: connection refused")})

	_, err := run(t, "load", "--force")
	assert.ErrorIs(t, err, pgseed.ErrConnectionFailed)
	assert.Equal(t, pgseed.ExitConnectionError, pgseed.ExitCodeForError(err))
}

func TestLoadCmd_InvalidInput(t *testing.T) {
	tests := []struct {
		name string
		args []string
		code int
	}{
		{"unknown flag", []string{"load", "--nope"}, pgseed.ExitUsageError},
		{"unexpected argument", []string{"load", "extra"}, pgseed.ExitUsageError},
		{"report format", []string{"load", "--report", "yaml"}, pgseed.ExitConfigError},
		{"policy", []string{"load", "--policy", "append"}, pgseed.ExitConfigError},
		{"auth method", []string{"load", "--auth-method", "kerberos"}, pgseed.ExitConfigError},
		{"negative retries", []string{"load", "--connect-retries", "-1"}, pgseed.ExitConfigError},
		{"missing catalog", []string{"load", "--catalog", "missing.yaml"}, pgseed.ExitConfigError},
		{"missing settings file", []string{"load", "--config", "missing.yaml"}, pgseed.ExitConfigError},
		{"unknown database", []string{"load", "--only", "nope", "--force"}, pgseed.ExitConfigError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			isolate(t)
			conns := fakeSessions(t, nil)

			_, err := run(t, tt.args...)
			require.Error(t, err)
			assert.Equal(t, tt.code, pgseed.ExitCodeForError(err), "%v", err)
			assert.Empty(t, conns, "nothing connects on invalid input")
		})
	}
}

func withMode(t *testing.T, mode ui.Mode) {
	t.Helper()
	orig := detectMode
	t.Cleanup(func() { detectMode = orig })
	detectMode = func() ui.Mode { return mode }
}

func TestInitCmd_NonInteractive(t *testing.T) {
	dir := isolate(t)
	withMode(t, ui.ModeNonInteractive)
	t.Setenv("PGHOST", "pg.internal")

	out, err := run(t, "init", "--port", "6543", "--catalog", "catalog.yaml", "--policy", "preserve")
	require.NoError(t, err)
	assert.Equal(t, "Wrote pgseed.yaml\n", out)

	s, err := config.Load(config.LoadOptions{Dir: dir})
	require.NoError(t, err)
	assert.Equal(t, "pg.internal", s.Connection.Host)
	assert.Equal(t, 6543, s.Connection.Port)
	assert.Equal(t, filepath.Join(dir, "catalog.yaml"), s.Catalog)
	assert.Equal(t, pgseed.PolicyPreserve, s.RunPolicy())
	assert.Empty(t, s.Connection.Password)

	_, err = run(t, "init")
	assert.ErrorIs(t, err, pgseed.ErrInvalidConfig, "existing file is kept")

	_, err = run(t, "init", "--overwrite", "--policy", "append")
	assert.ErrorIs(t, err, pgseed.ErrInvalidConfig)
}

func TestInitCmd_Wizard(t *testing.T) {
	dir := isolate(t)
	withMode(t, ui.ModeInteractive)

	orig := runWizard
	t.Cleanup(func() { runWizard = orig })

	var fields int
	runWizard = func(w tui.InitWizard) (tui.InitWizard, error) {
		fields = len(w.Values())
		var m tea.Model = w
		m, _ = m.Update(tea.KeyMsg{Type: tea.KeyTab})
		m, _ = m.Update(tea.KeyMsg{Type: tea.KeyTab})
		m, _ = m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("_ro")})
		for i := 0; i < len(initFields); i++ {
			m, _ = m.Update(tea.KeyMsg{Type: tea.KeyEnter})
		}
		return m.(tui.InitWizard), nil
	}

	out, err := run(t, "init", "--no-test", "--output", "custom.yaml")
	require.NoError(t, err)
	assert.Equal(t, len(initFields), fields)
	assert.Contains(t, out, "Wrote custom.yaml")

	s, err := config.Load(config.LoadOptions{File: filepath.Join(dir, "custom.yaml")})
	require.NoError(t, err)
	assert.Equal(t, "postgres_ro", s.Connection.Username)
}

func TestInitCmd_WizardCancelled(t *testing.T) {
	dir := isolate(t)
	withMode(t, ui.ModeInteractive)

	orig := runWizard
	t.Cleanup(func() { runWizard = orig })
	runWizard = func(w tui.InitWizard) (tui.InitWizard, error) {
		m, _ := w.Update(tea.KeyMsg{Type: tea.KeyEsc})
		return m.(tui.InitWizard), nil
	}

	_, err := run(t, "init", "--no-test")
	require.NoError(t, err)
	assert.NoFileExists(t, filepath.Join(dir, "pgseed.yaml"))
}
