package cli

import (
	"github.com/spf13/cobra"
)

const rootLong = `pgseed creates databases, schemas and tables from a catalog of DDL
fragments and bulk-loads CSV files into them with COPY FROM STDIN.

Without a --catalog the built-in catalog is used: kaggle_db with the IPL
tables loaded from ./database_data_csv, and dbt_database with the STAGING and
TRANSFORMATION schemas.

Settings are read from, lowest precedence first: defaults, pgseed.yaml,
PGSEED_* environment variables, command-line flags. Connection fields not set
there fall back to PGHOST, PGPORT, PGUSER, PGPASSWORD, PGDATABASE, PGSSLMODE
and DATABASE_URL.

Exit Codes:
  0  - Success (individual steps may have failed unless --strict)
  1  - General error
  2  - CLI usage error (invalid arguments or flags)
  3  - Panic or unexpected system error
  10 - Invalid configuration or catalog
  11 - Database connection failed
  12 - User denied the destructive run
  13 - One or more steps failed (--strict)`

// NewRootCmd builds the command tree. Each call returns fresh flag state.
func NewRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "pgseed",
		Short:         "Create PostgreSQL databases from a catalog and load CSV data",
		Long:          rootLong,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.PersistentFlags().BoolP("verbose", "v", false, "Enable verbose output for all commands")
	root.PersistentFlags().String("config", "", "Settings file (default: ./pgseed.yaml if present)")
	root.PersistentFlags().String("log-format", "", "Log format: console|json (default console)")

	root.AddCommand(newLoadCmd(), newCatalogCmd(), newInitCmd(), newVersionCmd())
	return root
}

// Execute runs the root command with os.Args.
func Execute() error {
	return NewRootCmd().Execute()
}
