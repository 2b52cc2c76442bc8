package cli

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/vvka-141/pgseed/internal/config"
	"github.com/vvka-141/pgseed/internal/db"
	"github.com/vvka-141/pgseed/internal/tui"
	"github.com/vvka-141/pgseed/internal/ui"
	"github.com/vvka-141/pgseed/pkg/pgseed"
)

// Seams replaced in tests.
var (
	detectMode = ui.DetectMode
	runWizard  = func(w tui.InitWizard) (tui.InitWizard, error) {
		return tui.Run(w, os.Stdin, os.Stderr)
	}
)

func newInitCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "init",
		Short: "Write a pgseed.yaml settings file",
		Long: `Init asks for the server, catalog and policy and writes them to a settings
file that later commands pick up from the working directory. The password is
never written; supply it with PGPASSWORD or a .env file.

Without a terminal the values come from flags and PG* environment variables.

Examples:
  pgseed init
  pgseed init --host db.internal --catalog catalog.yaml --no-test
  pgseed init --output ci/pgseed.yaml --overwrite`,
		Args: cobra.NoArgs,
		RunE: runInit,
	}

	cmd.Flags().String("output", config.ConfigFileName, "Path of the settings file to write")
	cmd.Flags().Bool("overwrite", false, "Replace an existing settings file")
	cmd.Flags().Bool("no-test", false, "Skip the connection check")
	cmd.Flags().String("host", "", "PostgreSQL server host")
	cmd.Flags().IntP("port", "p", 0, "PostgreSQL server port")
	cmd.Flags().StringP("username", "U", "", "PostgreSQL user")
	cmd.Flags().StringP("database", "d", "", "Maintenance database")
	cmd.Flags().String("sslmode", "", "SSL mode")
	cmd.Flags().String("catalog", "", "Catalog YAML file (empty for the built-in catalog)")
	cmd.Flags().String("policy", "", "Existing object policy: recreate|preserve")
	return cmd
}

// initField describes one prompt and the settings key it fills.
type initField struct {
	key, flag, label string
	required         bool
	validate         func(string) error
}

var initFields = []initField{
	{key: "connection.host", flag: "host", label: "Host", required: true},
	{key: "connection.port", flag: "port", label: "Port", required: true, validate: validatePort},
	{key: "connection.username", flag: "username", label: "User", required: true},
	{key: "connection.database", flag: "database", label: "Maintenance database", required: true},
	{key: "connection.sslmode", flag: "sslmode", label: "SSL mode (disable, prefer, require, verify-full)"},
	{key: "catalog", flag: "catalog", label: "Catalog file (empty for built-in)"},
	{key: "policy", flag: "policy", label: "Policy (recreate or preserve)", validate: validatePolicy},
}

func validatePort(v string) error {
	port, err := strconv.Atoi(v)
	if err != nil || port < 1 || port > 65535 {
		return fmt.Errorf("port must be between 1 and 65535")
	}
	return nil
}

func validatePolicy(v string) error {
	_, err := pgseed.ParsePolicy(v)
	return err
}

func runInit(cmd *cobra.Command, _ []string) error {
	_ = godotenv.Load()

	output, _ := cmd.Flags().GetString("output")
	overwrite, _ := cmd.Flags().GetBool("overwrite")
	noTest, _ := cmd.Flags().GetBool("no-test")

	values, err := initialValues(cmd)
	if err != nil {
		return err
	}

	if detectMode() == ui.ModeInteractive {
		fields := make([]tui.Field, 0, len(initFields))
		for _, f := range initFields {
			field := tui.NewField(f.key, f.label, values[f.key])
			field.Required = f.required
			field.Validate = f.validate
			fields = append(fields, field)
		}

		var tester tui.ConnectionTester
		if !noTest {
			tester = sessionTester{}
		}

		w, err := runWizard(tui.NewInitWizard(tester, fields...))
		if err != nil {
			return err
		}
		if w.Cancelled() {
			fmt.Fprintln(cmd.ErrOrStderr(), "Cancelled, nothing written")
			return nil
		}
		values = w.Values()
		if w.TestErr() != nil {
			fmt.Fprintln(cmd.ErrOrStderr(), ui.WarningStyle.Render("Writing settings although the connection check failed"))
		}
	} else {
		for _, f := range initFields {
			if f.validate != nil && values[f.key] != "" {
				if err := f.validate(values[f.key]); err != nil {
					return fmt.Errorf("--%s: %v: %w", f.flag, err, pgseed.ErrInvalidConfig)
				}
			}
		}
	}

	doc := make(map[string]interface{}, len(values))
	for k, v := range values {
		doc[k] = v
	}
	if port, err := strconv.Atoi(values["connection.port"]); err == nil {
		doc["connection.port"] = port
	}

	if err := config.WriteFile(output, doc, overwrite); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Wrote %s\n", output)
	return nil
}

// initialValues prefers flags, then PG* environment variables and
// DATABASE_URL, then the connection defaults.
func initialValues(cmd *cobra.Command) (map[string]string, error) {
	resolved, err := db.ResolveConnection(&db.ConnectionFlags{}, db.LoadFromEnvironment())
	if err != nil {
		return nil, err
	}

	values := map[string]string{
		"connection.host":     resolved.Host,
		"connection.port":     strconv.Itoa(resolved.Port),
		"connection.username": resolved.Username,
		"connection.database": resolved.Database,
		"connection.sslmode":  resolved.SSLMode,
		"catalog":             "",
		"policy":              pgseed.PolicyRecreate.String(),
	}
	for _, f := range initFields {
		if !cmd.Flags().Changed(f.flag) {
			continue
		}
		v, _ := cmd.Flags().GetString(f.flag)
		if f.flag == "port" {
			port, _ := cmd.Flags().GetInt(f.flag)
			v = strconv.Itoa(port)
		}
		values[f.key] = strings.TrimSpace(v)
	}
	return values, nil
}

// sessionTester checks the connection with the same opener load uses.
// The password comes from the environment, never from the form.
type sessionTester struct{}

func (sessionTester) TestConnection(ctx context.Context, values map[string]string) (string, error) {
	port, _ := strconv.Atoi(values["connection.port"])
	cfg, err := db.ResolveConnection(&db.ConnectionFlags{
		Host:     values["connection.host"],
		Port:     port,
		Username: values["connection.username"],
		Database: values["connection.database"],
		SSLMode:  values["connection.sslmode"],
	}, db.LoadFromEnvironment())
	if err != nil {
		return "", err
	}

	conn, err := sessionOpener(ctx, cfg)
	if err != nil {
		return "", err
	}
	defer conn.Close(ctx) //nolint:errcheck

	var version string
	if err := conn.QueryRow(ctx, "SELECT version()").Scan(&version); err != nil {
		return "", err
	}
	if idx := strings.Index(version, ","); idx > 0 {
		version = version[:idx]
	}
	return version, nil
}
